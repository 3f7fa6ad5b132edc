package health

// Classification is the result of matching a raw status string against a
// sensor kind's vocabulary.
type Classification int

const (
	// StatusDegraded is anything the vocabulary does not recognize as
	// healthy or missing.
	StatusDegraded Classification = iota
	// StatusHealthy covers statuses that indicate working hardware.
	StatusHealthy
	// StatusMissing covers hardware the iLO reports on but which is not
	// physically present. Missing sensors are never emitted.
	StatusMissing
)

// Status strings observed across iLO firmware revisions. HPE does not
// document the full set, so the vocabulary is kept as data and can be
// extended per kind through configuration.
const (
	statusOK            = "OK"
	statusGoodInUse     = "Good, In Use"
	statusPresentUnused = "Present, Unused"
	statusNotInstalled  = "Not Installed"
	statusNotPresent    = "Not Present"
	statusRedundant     = "Redundant"
	statusUnknown       = "Unknown"
	statusOther         = "Other"
	statusDegraded      = "Degraded"

	// statusNonOEMDrive is reported for drives that fail the controller's
	// vendor authentication. The drive itself is fine; treating it as
	// degraded produces false alerts for every non-HP replacement disk.
	statusNonOEMDrive = "Degraded (Not Authenticated)"
)

// Vocabulary holds the status strings one sensor kind recognizes as healthy
// or missing. Matching is exact.
type Vocabulary struct {
	Healthy []string
	Missing []string
}

// Classify matches a raw status string against the vocabulary.
func (v Vocabulary) Classify(status string) Classification {
	for _, s := range v.Missing {
		if status == s {
			return StatusMissing
		}
	}
	for _, s := range v.Healthy {
		if status == s {
			return StatusHealthy
		}
	}
	return StatusDegraded
}

// withHealthy returns a copy of the vocabulary with extra healthy statuses.
func (v Vocabulary) withHealthy(extra ...string) Vocabulary {
	healthy := make([]string, 0, len(v.Healthy)+len(extra))
	healthy = append(healthy, v.Healthy...)
	healthy = append(healthy, extra...)
	return Vocabulary{Healthy: healthy, Missing: v.Missing}
}

func baseVocabulary() Vocabulary {
	return Vocabulary{
		Healthy: []string{statusOK, statusGoodInUse},
		Missing: []string{statusNotInstalled, statusNotPresent},
	}
}

// Classifier maps sensor kinds to their status vocabularies. The zero value
// is not usable; construct with NewClassifier.
type Classifier struct {
	vocabularies map[Kind]Vocabulary
}

// NewClassifier returns a classifier loaded with the default per-kind
// vocabularies.
func NewClassifier() *Classifier {
	base := baseVocabulary()
	storage := base.withHealthy(statusPresentUnused)
	c := &Classifier{vocabularies: make(map[Kind]Vocabulary)}
	for _, kind := range AllKinds() {
		c.vocabularies[kind] = base
	}
	// The system composite evaluates redundancy fields alongside plain
	// statuses, so "Redundant" has to count as healthy there.
	c.vocabularies[KindSystem] = base.withHealthy(statusRedundant)
	for _, kind := range []Kind{KindDisk, KindStorageController, KindLogicalDrive, KindStorageEnclosure} {
		c.vocabularies[kind] = storage
	}
	// Non-OEM drives report an authentication failure while being perfectly
	// functional. Counting that as healthy here also feeds the
	// logical-drive override in convertLogicalDrive.
	c.vocabularies[KindDisk] = c.vocabularies[KindDisk].withHealthy(statusNonOEMDrive)
	return c
}

// Vocabulary returns the vocabulary for a kind.
func (c *Classifier) Vocabulary(kind Kind) Vocabulary {
	return c.vocabularies[kind]
}

// ExtendHealthy adds healthy statuses to a kind's vocabulary. Firmware
// revisions are known to introduce new strings; operators can fold them in
// through configuration instead of waiting for a release.
func (c *Classifier) ExtendHealthy(kind Kind, statuses ...string) {
	c.vocabularies[kind] = c.vocabularies[kind].withHealthy(statuses...)
}

// ExtendMissing adds missing statuses to a kind's vocabulary.
func (c *Classifier) ExtendMissing(kind Kind, statuses ...string) {
	v := c.vocabularies[kind]
	missing := make([]string, 0, len(v.Missing)+len(statuses))
	missing = append(missing, v.Missing...)
	missing = append(missing, statuses...)
	c.vocabularies[kind] = Vocabulary{Healthy: v.Healthy, Missing: missing}
}

// Classify matches a status string against the vocabulary for kind.
func (c *Classifier) Classify(kind Kind, status string) Classification {
	return c.vocabularies[kind].Classify(status)
}
