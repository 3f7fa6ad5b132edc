package health

// ReconcileStorage recomputes the system composite's storage verdict from
// the resolved storage-controller health, after every subsystem has been
// built. The health_at_a_glance storage status flips to a degraded state
// whenever any drive fails vendor authentication, even though the drive
// hierarchy has already judged the array effectively healthy; this step
// suppresses that false positive (and, symmetrically, surfaces controller
// problems the summary missed).
//
// The rule: multiply the health values of all top-level controllers. A
// product of 1 forces the storage label to "OK", anything else to
// "Degraded", and the system AND-value is recomputed from the updated
// labels. When no controller sensors were resolvable the label is left
// untouched rather than guessed at.
//
// Reconciliation is idempotent: running it again on an already-reconciled
// model changes nothing. The returned bool reports whether the system
// sensor changed, in which case its previously emitted series must be
// superseded.
func (cv *Converter) ReconcileStorage(m *Model) bool {
	if m.System == nil || len(m.Controllers) == 0 {
		return false
	}

	product := 1.0
	for _, controller := range m.Controllers {
		product *= controller.Value
	}
	status := statusOK
	if product != 1 {
		status = statusDegraded
	}

	changed := m.System.Labels["storage"] != status
	m.System.Labels["storage"] = status
	value := cv.systemValue(m.System.Labels)
	changed = changed || value != m.System.Value
	m.System.Value = value
	m.System.Healthy = value == 1
	return changed
}
