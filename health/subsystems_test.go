package health

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleDoc mirrors the shape of an iLO embedded-health dump with every
// category populated.
func sampleDoc() Document {
	return Document{
		"health_at_a_glance": map[string]any{
			"battery":        map[string]any{"status": "OK"},
			"bios_hardware":  map[string]any{"status": "OK"},
			"fans":           map[string]any{"status": "OK", "redundancy": "Redundant"},
			"memory":         map[string]any{"status": "OK"},
			"network":        map[string]any{"status": "OK"},
			"power_supplies": map[string]any{"status": "OK", "redundancy": "Redundant"},
			"processor":      map[string]any{"status": "OK"},
			"storage":        map[string]any{"status": "OK"},
			"temperature":    map[string]any{"status": "OK"},
		},
		"power_supply_summary": map[string]any{
			"present_power_reading":   "98 Watts",
			"high_efficiency_mode":    "Balanced",
			"power_system_redundancy": "Redundant",
		},
		"processors": map[string]any{
			"Proc 1": map[string]any{"label": "Proc 1", "status": "OK", "name": "Xeon", "speed": "2400 MHz"},
			"Proc 2": map[string]any{"label": "Proc 2", "status": "Not Installed", "name": "", "speed": ""},
		},
		"power_supplies": map[string]any{
			"Power Supply 1": map[string]any{"label": "Power Supply 1", "status": "Good, In Use"},
		},
		"fans": map[string]any{
			"Fan 1": map[string]any{"label": "Fan 1", "status": "OK", "speed": []any{"16", "Percentage"}, "zone": "System"},
		},
		"nic_information": map[string]any{
			"iLO Dedicated Network Port": map[string]any{
				"network_port": "Port 1", "status": "OK", "location": "Embedded",
				"ip_address": "10.0.0.5", "mac_address": "aa:bb:cc:dd:ee:ff",
			},
		},
		"temperature": map[string]any{
			"01-Inlet Ambient": map[string]any{
				"label": "01-Inlet Ambient", "status": "OK", "location": "Ambient",
				"currentreading": []any{"21", "Celsius"},
				"caution":        []any{"42", "Celsius"},
				"critical":       []any{"46", "Celsius"},
			},
		},
		"memory": map[string]any{
			"memory_details_summary": map[string]any{},
			"memory_details": map[string]any{
				"proc_1": map[string]any{
					"socket 1": map[string]any{"socket": "1", "status": "Good, In Use", "size": "16384 MB", "type": "DIMM DDR4"},
					"socket 2": map[string]any{"socket": "2", "status": "Not Present"},
				},
				"proc_2": map[string]any{
					"socket 1": map[string]any{"socket": "1", "status": "Good, In Use", "size": "16384 MB", "type": "DIMM DDR4"},
				},
			},
		},
		"storage": map[string]any{
			"Controller on System Board": map[string]any(controllerDoc()),
		},
		"firmware_information": map[string]any{
			"iLO":                      "2.61 Jul 27 2018",
			"System ROM":               "P89 v2.60 (05/21/2018)",
			"Intelligent Provisioning": "2.61.24",
		},
	}
}

func TestBuild(t *testing.T) {
	cv := NewConverter(nil)
	m := cv.Build(sampleDoc())

	require.Empty(t, m.Errors)
	require.NotNil(t, m.System)
	require.NotNil(t, m.Power)
	assert.Equal(t, float64(98), m.Power.Value)

	assert.Len(t, m.CPUs, 1, "the uninstalled processor is excluded")
	assert.Len(t, m.PowerSupplies, 1)
	assert.Len(t, m.Fans, 1)
	assert.Len(t, m.NICs, 1)
	assert.Len(t, m.Temperatures, 1)

	require.Len(t, m.Memory, 2, "absent slots are excluded")
	assert.Equal(t, "proc_1", m.Memory[0].Labels["cpu"])
	assert.Equal(t, "proc_2", m.Memory[1].Labels["cpu"])

	require.Len(t, m.Controllers, 1)
	assert.Empty(t, m.Disks, "disks live under the controller hierarchy")

	require.NotNil(t, m.Firmware)
	assert.Equal(t, "2.61 Jul 27 2018", m.Firmware["iLO"])
	assert.Equal(t, "P89 v2.60 (05/21/2018)", m.Firmware["System_ROM"])
	assert.Equal(t, "2.61.24", m.Firmware["Intelligent_Provisioning"])
}

func TestBuildLegacyDrives(t *testing.T) {
	cv := NewConverter(nil)
	doc := sampleDoc()
	doc["storage"] = map[string]any{
		"controller": map[string]any{
			"physical_drives": []any{
				map[string]any{"label": "Bay 2", "status": "OK", "location": "Bay 2", "capacity": "300 GB"},
				map[string]any{"label": "Bay 1", "status": "OK", "location": "Bay 1", "capacity": "300 GB"},
			},
		},
	}
	m := cv.Build(doc)

	require.Empty(t, m.Errors)
	assert.Empty(t, m.Controllers)
	require.Len(t, m.Disks, 2)
	assert.Equal(t, "Bay 1", m.Disks[0].Labels["location"])
	assert.Equal(t, "N/A", m.Disks[0].Labels["logical_drive"])
	assert.Equal(t, "N/A", m.Disks[1].Labels["logical_drive"])
}

func TestBuildScopedErrors(t *testing.T) {
	cv := NewConverter(nil)
	doc := sampleDoc()
	doc["fans"] = map[string]any{
		"Fan 1": map[string]any{"label": "Fan 1", "status": "OK", "speed": []any{"fast"}},
		"Fan 2": map[string]any{"label": "Fan 2", "status": "OK", "speed": []any{"20", "Percentage"}},
	}
	m := cv.Build(doc)

	require.Len(t, m.Errors, 1)
	var recErr *RecordError
	require.ErrorAs(t, m.Errors[0], &recErr)
	assert.Equal(t, KindFan, recErr.Kind)
	require.Len(t, m.Fans, 1, "the well-formed fan still converts")
	assert.Equal(t, "Fan 2", m.Fans[0].Labels["name"])
	require.NotNil(t, m.System, "scoped errors never abort the build")
}

func TestBuildNonMappingRecord(t *testing.T) {
	cv := NewConverter(nil)
	doc := sampleDoc()
	doc["fans"] = map[string]any{"Fan 1": "broken"}
	m := cv.Build(doc)

	require.Len(t, m.Errors, 1)
	var recErr *RecordError
	require.ErrorAs(t, m.Errors[0], &recErr)
	assert.Equal(t, KindFan, recErr.Kind, "the error carries the category's kind")
	assert.Equal(t, "Fan 1", recErr.Record)
}

func TestBuildEmptyDocument(t *testing.T) {
	cv := NewConverter(nil)
	m := cv.Build(Document{})

	assert.Nil(t, m.System)
	assert.Nil(t, m.Power)
	assert.Empty(t, m.CPUs)
	assert.Empty(t, m.Controllers)
	assert.Empty(t, m.Errors)
	assert.Nil(t, m.Firmware)
}

// Two structurally different inputs for the same category must produce the
// same label keys, or the per-cycle gauge vectors would reject the sensors.
func TestLabelSchemaStability(t *testing.T) {
	cv := NewConverter(nil)

	full := cv.Build(sampleDoc())
	legacy := Document{
		"storage": map[string]any{
			"controller": map[string]any{
				"physical_drives": []any{
					map[string]any{"label": "Bay 1", "status": "OK"},
				},
			},
		},
	}
	sparse := cv.Build(legacy)

	hierDisk := full.Controllers[0].LogicalDrives[0].Disks[0]
	legacyDisk := sparse.Disks[0]
	assert.ElementsMatch(t, labelKeys(hierDisk), labelKeys(legacyDisk))
}

func labelKeys(s *Sensor) []string {
	keys := make([]string, 0, len(s.Labels))
	for key := range s.Labels {
		keys = append(keys, key)
	}
	return keys
}
