package health

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertSystem(t *testing.T) {
	cv := NewConverter(nil)

	raw := Document{
		"battery":        map[string]any{"status": "OK"},
		"bios_hardware":  map[string]any{"status": "OK"},
		"fans":           map[string]any{"status": "OK", "redundancy": "Redundant"},
		"memory":         map[string]any{"status": "OK"},
		"network":        map[string]any{"status": "OK"},
		"power_supplies": map[string]any{"status": "OK", "redundancy": "Redundant"},
		"processor":      map[string]any{"status": "OK"},
		"storage":        map[string]any{"status": "OK"},
		"temperature":    map[string]any{"status": "OK"},
	}

	s, err := cv.convertSystem(raw)
	require.NoError(t, err)
	assert.Equal(t, float64(1), s.Value)
	assert.True(t, s.Healthy)
	assert.Equal(t, "Redundant", s.Labels["fan_redundancy"])
	assert.Equal(t, "Redundant", s.Labels["ps_redundancy"])
	assert.Len(t, s.Labels, 11)

	t.Run("one degraded sub-status flips the composite", func(t *testing.T) {
		flipped := Document{}
		for k, v := range raw {
			flipped[k] = v
		}
		flipped["memory"] = map[string]any{"status": "Degraded"}
		s, err := cv.convertSystem(flipped)
		require.NoError(t, err)
		assert.Equal(t, float64(0), s.Value)
		assert.False(t, s.Healthy)
	})

	t.Run("unknown network summary is exempt", func(t *testing.T) {
		exempt := Document{}
		for k, v := range raw {
			exempt[k] = v
		}
		exempt["network"] = map[string]any{"status": "Unknown"}
		s, err := cv.convertSystem(exempt)
		require.NoError(t, err)
		assert.Equal(t, float64(1), s.Value)
	})

	t.Run("absent battery counts as not installed", func(t *testing.T) {
		noBattery := Document{}
		for k, v := range raw {
			noBattery[k] = v
		}
		delete(noBattery, "battery")
		s, err := cv.convertSystem(noBattery)
		require.NoError(t, err)
		assert.Equal(t, "Not Installed", s.Labels["battery"])
		assert.Equal(t, float64(1), s.Value)
	})
}

func TestConvertPower(t *testing.T) {
	cv := NewConverter(nil)

	s, err := cv.convertPower(Document{
		"present_power_reading":                         "112 Watts",
		"high_efficiency_mode":                          "Balanced",
		"hp_power_discovery_services_redundancy_status": "N/A",
		"power_management_controller_firmware_version":  "4.1",
		"power_system_redundancy":                       "Redundant",
	})
	require.NoError(t, err)
	assert.Equal(t, float64(112), s.Value)
	assert.Equal(t, "Watts", s.Labels["unit"])
	assert.Equal(t, "Redundant", s.Labels["power_system_redundancy"])

	_, err = cv.convertPower(Document{"present_power_reading": "garbage"})
	require.Error(t, err)
	var recErr *RecordError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, KindPower, recErr.Kind)
}

func TestConvertCPU(t *testing.T) {
	cv := NewConverter(nil)

	s, err := cv.convertCPU(Document{
		"label":                "Proc 1",
		"name":                 "Intel(R) Xeon(R) CPU E5-2680 v4",
		"status":               "OK",
		"speed":                "2400 MHz",
		"internal_l1_cache":    "896 KB",
		"internal_l2_cache":    "3584 KB",
		"internal_l3_cache":    "35840 KB",
		"execution_technology": "14/28 cores; 28 threads",
	})
	require.NoError(t, err)
	assert.Equal(t, "1", s.Labels["index"])
	assert.Equal(t, "Intel(R) Xeon(R) CPU E5-2680 v4", s.Labels["model"])
	assert.Equal(t, float64(1), s.Value)
	assert.True(t, s.Installed)

	t.Run("label without an index is a record error", func(t *testing.T) {
		_, err := cv.convertCPU(Document{"label": "Proc", "status": "OK"})
		require.Error(t, err)
	})

	t.Run("missing status is a record error", func(t *testing.T) {
		_, err := cv.convertCPU(Document{"label": "Proc 2"})
		require.Error(t, err)
	})
}

func TestConvertPowerSupply(t *testing.T) {
	cv := NewConverter(nil)

	s, err := cv.convertPowerSupply(Document{
		"label":            "Power Supply 1",
		"status":           "Good, In Use",
		"capacity":         "500 Watts",
		"firmware_version": "1.00",
		"model":            "720478-B21",
		"serial_number":    "5DLVA0A4D7X1Y8",
		"spare":            "754377-001",
	})
	require.NoError(t, err)
	assert.Equal(t, float64(1), s.Value)
	assert.Equal(t, "No", s.Labels["hotplug_capable"], "hotplug capability defaults to No when unreported")

	s, err = cv.convertPowerSupply(Document{
		"label":           "Power Supply 2",
		"status":          "Failed",
		"hotplug_capable": "Yes",
	})
	require.NoError(t, err)
	assert.Equal(t, float64(0), s.Value)
	assert.Equal(t, "Yes", s.Labels["hotplug_capable"])
	assert.True(t, s.Installed)
	assert.False(t, s.Healthy)
}

func TestConvertFan(t *testing.T) {
	cv := NewConverter(nil)

	s, err := cv.convertFan(Document{
		"label":  "Fan 1",
		"status": "OK",
		"speed":  []any{"23", "Percentage"},
		"zone":   "System",
	})
	require.NoError(t, err)
	assert.Equal(t, float64(23), s.Value)
	assert.Equal(t, "Percentage", s.Labels["unit"])
	assert.Equal(t, "System", s.Labels["location"])

	t.Run("absent fan skips the speed parse", func(t *testing.T) {
		s, err := cv.convertFan(Document{"label": "Fan 7", "status": "Not Installed"})
		require.NoError(t, err)
		assert.False(t, s.Installed)
	})

	t.Run("malformed speed is a record error", func(t *testing.T) {
		_, err := cv.convertFan(Document{"label": "Fan 2", "status": "OK", "speed": []any{"fast"}})
		require.Error(t, err)
	})
}

func TestConvertNIC(t *testing.T) {
	cv := NewConverter(nil)

	tT := map[string]struct {
		status  string
		want    float64
		healthy bool
	}{
		"OK":        {"OK", 1, true},
		"Disabled":  {"Disabled", 2, false},
		"Unknown":   {"Unknown", 3, false},
		"Link Down": {"Link Down", 4, false},
		"unlisted":  {"Degraded", 0, false},
	}
	for tName, test := range tT {
		t.Run(tName, func(t *testing.T) {
			s, err := cv.convertNIC(Document{
				"network_port":     "Port 1",
				"port_description": "iLO Dedicated Network Port",
				"location":         "Embedded",
				"ip_address":       "10.0.0.5",
				"mac_address":      "aa:bb:cc:dd:ee:ff",
				"status":           test.status,
			})
			require.NoError(t, err)
			assert.Equal(t, test.want, s.Value)
			assert.Equal(t, test.healthy, s.Healthy)
			assert.Equal(t, "Port 1", s.Labels["location"])
			assert.Equal(t, "Embedded", s.Labels["name"])
		})
	}
}

func TestConvertMemory(t *testing.T) {
	cv := NewConverter(nil)

	raw := Document{
		"socket":    "1",
		"status":    "Good, In Use",
		"frequency": "2400 MHz",
		"size":      "16384 MB",
		"type":      "DIMM DDR4",
		"part":      map[string]any{"number": "809081-081"},
		"serial":    map[string]any{"number": "12345678"},
	}
	s, err := cv.convertMemory(raw, "proc_1")
	require.NoError(t, err)
	assert.Equal(t, "proc_1", s.Labels["cpu"])
	assert.Equal(t, "DIMM DDR4", s.Labels["mem_type"])
	assert.Equal(t, "809081-081", s.Labels["part"])
	assert.Equal(t, "12345678", s.Labels["serial"])
	assert.Equal(t, float64(1), s.Value)

	t.Run("serial defaults to N/A when unreported", func(t *testing.T) {
		noSerial := Document{}
		for k, v := range raw {
			noSerial[k] = v
		}
		delete(noSerial, "serial")
		s, err := cv.convertMemory(noSerial, "proc_1")
		require.NoError(t, err)
		assert.Equal(t, "N/A", s.Labels["serial"])
	})
}

func TestConvertTemperature(t *testing.T) {
	cv := NewConverter(nil)

	s, err := cv.convertTemperature(Document{
		"label":          "01-Inlet Ambient",
		"status":         "OK",
		"location":       "Ambient",
		"currentreading": []any{"21", "Celsius"},
		"caution":        []any{"42", "Celsius"},
		"critical":       []any{"46", "Celsius"},
	})
	require.NoError(t, err)
	assert.Equal(t, float64(21), s.Value)
	caution, critical := TemperatureThresholds(s)
	assert.Equal(t, 42, caution)
	assert.Equal(t, 46, critical)

	t.Run("unconfigured threshold parses to the sentinel", func(t *testing.T) {
		s, err := cv.convertTemperature(Document{
			"label":          "10-Chipset Zone",
			"status":         "OK",
			"location":       "Chipset",
			"currentreading": []any{"44", "Celsius"},
			"caution":        []any{"105", "Celsius"},
			"critical":       "-",
		})
		require.NoError(t, err)
		caution, critical := TemperatureThresholds(s)
		assert.Equal(t, 105, caution)
		assert.Equal(t, -1, critical)
	})

	t.Run("absent sensor skips the reading parse", func(t *testing.T) {
		s, err := cv.convertTemperature(Document{"label": "20-PCI Zone", "status": "Not Installed"})
		require.NoError(t, err)
		assert.False(t, s.Installed)
	})
}

func TestConvertDisk(t *testing.T) {
	cv := NewConverter(nil)

	raw := Document{
		"label":         "Port 1I Box 1 Bay 1",
		"status":        "OK",
		"capacity":      "300 GB",
		"media_type":    "HDD",
		"serial_number": "S7K0A1B2",
		"model":         "EG0300FCVBF",
		"fw_version":    "HPD6",
		"location":      "Port 1I Box 1 Bay 1",
	}

	s, err := cv.convertDisk(raw, "Logical Drive 1")
	require.NoError(t, err)
	assert.Equal(t, "Logical Drive 1", s.Labels["logical_drive"])
	assert.Equal(t, float64(1), s.Value)

	t.Run("legacy path gets the N/A parent", func(t *testing.T) {
		s, err := cv.convertDisk(raw, "")
		require.NoError(t, err)
		assert.Equal(t, "N/A", s.Labels["logical_drive"])
	})

	t.Run("non-OEM authentication status counts healthy", func(t *testing.T) {
		degraded := Document{}
		for k, v := range raw {
			degraded[k] = v
		}
		degraded["status"] = "Degraded (Not Authenticated)"
		s, err := cv.convertDisk(degraded, "Logical Drive 1")
		require.NoError(t, err)
		assert.True(t, s.Healthy)
		assert.Equal(t, float64(1), s.Value)
	})
}
