package health

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifierDefaults(t *testing.T) {
	c := NewClassifier()

	tT := map[string]struct {
		kind   Kind
		status string
		want   Classification
	}{
		"OK is healthy":                     {KindFan, "OK", StatusHealthy},
		"Good, In Use is healthy":           {KindMemory, "Good, In Use", StatusHealthy},
		"Not Installed is missing":          {KindCPU, "Not Installed", StatusMissing},
		"Not Present is missing":            {KindPowerSupply, "Not Present", StatusMissing},
		"anything else is degraded":         {KindFan, "Failed", StatusDegraded},
		"empty status is degraded":          {KindFan, "", StatusDegraded},
		"Present, Unused healthy for disks": {KindDisk, "Present, Unused", StatusHealthy},
		"Present, Unused degraded for fans": {KindFan, "Present, Unused", StatusDegraded},
		"Redundant healthy for system":      {KindSystem, "Redundant", StatusHealthy},
		"Redundant degraded for NICs":       {KindNIC, "Redundant", StatusDegraded},
		"non-OEM auth healthy for disks":    {KindDisk, "Degraded (Not Authenticated)", StatusHealthy},
		"non-OEM auth not healthy for logical drives": {KindLogicalDrive, "Degraded (Not Authenticated)", StatusDegraded},
	}
	for tName, test := range tT {
		t.Run(tName, func(t *testing.T) {
			assert.Equal(t, test.want, c.Classify(test.kind, test.status))
		})
	}
}

func TestClassifierExtension(t *testing.T) {
	c := NewClassifier()
	assert.Equal(t, StatusDegraded, c.Classify(KindFan, "Nominal"))

	c.ExtendHealthy(KindFan, "Nominal")
	assert.Equal(t, StatusHealthy, c.Classify(KindFan, "Nominal"))
	assert.Equal(t, StatusDegraded, c.Classify(KindNIC, "Nominal"), "extension is scoped to one kind")

	c.ExtendMissing(KindFan, "Unpopulated")
	assert.Equal(t, StatusMissing, c.Classify(KindFan, "Unpopulated"))
}

func TestKindNames(t *testing.T) {
	for _, kind := range AllKinds() {
		resolved, ok := KindFromName(kind.String())
		assert.True(t, ok)
		assert.Equal(t, kind, resolved)
	}
	_, ok := KindFromName("gpu")
	assert.False(t, ok)
}
