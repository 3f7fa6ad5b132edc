// mock-agent stands in for the hpilo-health dump command during local
// development: it prints a complete embedded-health JSON document to stdout,
// optionally injecting faults so the exporter's degradation paths can be
// exercised without hardware.
//
// Point the exporter at it:
//
//	source:
//	  command: mock-agent
//	  args: ["--fail-fan", "Fan 2"]
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"
)

func main() {
	var (
		dataFile    = flag.String("data", "", "Serve this JSON snapshot instead of the built-in document")
		failFan     = flag.String("fail-fan", "", "Mark the named fan as Failed")
		failDisk    = flag.String("fail-disk", "", "Mark the named physical drive as Failed")
		nonOEMDisk  = flag.String("non-oem-disk", "", "Mark the named physical drive as not authenticated")
		linkDownNIC = flag.String("link-down-nic", "", "Mark the named NIC port as Link Down")
		delay       = flag.Duration("delay", 0, "Sleep before responding, to simulate a loaded iLO channel")
		exitCode    = flag.Int("exit", 0, "Exit with this code after printing nothing, to simulate a dump failure")
	)
	flag.Parse()

	if *exitCode != 0 {
		fmt.Fprintln(os.Stderr, "mock-agent: simulated dump failure")
		os.Exit(*exitCode)
	}
	if *delay > 0 {
		time.Sleep(*delay)
	}

	doc := builtinDocument()
	if *dataFile != "" {
		data, err := os.ReadFile(*dataFile)
		if err != nil {
			log.Fatalf("reading %s: %v", *dataFile, err)
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			log.Fatalf("parsing %s: %v", *dataFile, err)
		}
	}

	if *failFan != "" {
		setStatus(doc, "fans", *failFan, "Failed")
		setSummary(doc, "fans", "Degraded")
	}
	if *linkDownNIC != "" {
		setStatus(doc, "nic_information", *linkDownNIC, "Link Down")
	}
	if *failDisk != "" {
		setDriveStatus(doc, *failDisk, "Failed")
		setSummary(doc, "storage", "Degraded")
	}
	if *nonOEMDisk != "" {
		setDriveStatus(doc, *nonOEMDisk, "Degraded (Not Authenticated)")
		// The iLO summary flags non-OEM drives even though the array is fine;
		// reproducing that is the whole point of this flag.
		setSummary(doc, "storage", "Degraded (Smart Storage Battery Failure)")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		log.Fatal(err)
	}
}

func setStatus(doc map[string]any, category, key, status string) {
	cat, ok := doc[category].(map[string]any)
	if !ok {
		return
	}
	rec, ok := cat[key].(map[string]any)
	if !ok {
		log.Fatalf("no %s named %q in document", category, key)
	}
	rec["status"] = status
}

func setSummary(doc map[string]any, key, status string) {
	glance, ok := doc["health_at_a_glance"].(map[string]any)
	if !ok {
		return
	}
	glance[key] = map[string]any{"status": status}
}

func setDriveStatus(doc map[string]any, label, status string) {
	storage, ok := doc["storage"].(map[string]any)
	if !ok {
		return
	}
	for _, v := range storage {
		controller, ok := v.(map[string]any)
		if !ok {
			continue
		}
		drives, _ := controller["logical_drives"].([]any)
		for _, ld := range drives {
			logical, ok := ld.(map[string]any)
			if !ok {
				continue
			}
			physical, _ := logical["physical_drives"].([]any)
			for _, pd := range physical {
				drive, ok := pd.(map[string]any)
				if !ok {
					continue
				}
				if drive["label"] == label {
					drive["status"] = status
					return
				}
			}
		}
	}
	log.Fatalf("no physical drive labeled %q in document", label)
}

// builtinDocument is a trimmed dump from a DL360 Gen9: every category the
// exporter reads, two of everything that commonly comes in pairs.
func builtinDocument() map[string]any {
	return map[string]any{
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
			"present_power_reading":                         "112 Watts",
			"high_efficiency_mode":                          "Balanced",
			"hp_power_discovery_services_redundancy_status": "N/A",
			"power_management_controller_firmware_version":  "4.1",
			"power_system_redundancy":                       "Redundant",
		},
		"processors": map[string]any{
			"Proc 1": map[string]any{
				"label": "Proc 1", "name": "Intel(R) Xeon(R) CPU E5-2680 v4 @ 2.40GHz",
				"status": "OK", "speed": "2400 MHz",
				"internal_l1_cache": "896 KB", "internal_l2_cache": "3584 KB",
				"internal_l3_cache": "35840 KB", "execution_technology": "14/28 cores; 28 threads",
			},
			"Proc 2": map[string]any{
				"label": "Proc 2", "name": "Intel(R) Xeon(R) CPU E5-2680 v4 @ 2.40GHz",
				"status": "OK", "speed": "2400 MHz",
				"internal_l1_cache": "896 KB", "internal_l2_cache": "3584 KB",
				"internal_l3_cache": "35840 KB", "execution_technology": "14/28 cores; 28 threads",
			},
		},
		"power_supplies": map[string]any{
			"Power Supply 1": map[string]any{
				"label": "Power Supply 1", "status": "Good, In Use",
				"capacity": "500 Watts", "firmware_version": "1.00",
				"hotplug_capable": "Yes", "model": "720478-B21",
				"serial_number": "5DLVA0A4D7X1Y8", "spare": "754377-001",
			},
			"Power Supply 2": map[string]any{
				"label": "Power Supply 2", "status": "Good, In Use",
				"capacity": "500 Watts", "firmware_version": "1.00",
				"hotplug_capable": "Yes", "model": "720478-B21",
				"serial_number": "5DLVA0A4D7X2Z3", "spare": "754377-001",
			},
		},
		"fans": map[string]any{
			"Fan 1": map[string]any{"label": "Fan 1", "status": "OK", "speed": []any{16, "Percentage"}, "zone": "System"},
			"Fan 2": map[string]any{"label": "Fan 2", "status": "OK", "speed": []any{16, "Percentage"}, "zone": "System"},
			"Fan 3": map[string]any{"label": "Fan 3", "status": "OK", "speed": []any{23, "Percentage"}, "zone": "System"},
		},
		"nic_information": map[string]any{
			"iLO Dedicated Network Port": map[string]any{
				"network_port": "Port 1", "port_description": "iLO Dedicated Network Port",
				"location": "Embedded", "status": "OK",
				"ip_address": "10.20.30.40", "mac_address": "94:57:a5:60:11:22",
			},
			"NIC Port 1": map[string]any{
				"network_port": "Port 1", "port_description": "NIC Port 1",
				"location": "Embedded", "status": "Unknown",
				"ip_address": "Unknown", "mac_address": "94:57:a5:60:33:44",
			},
		},
		"memory": map[string]any{
			"memory_details_summary": map[string]any{
				"proc_1": map[string]any{"total_memory_size": "32 GB"},
				"proc_2": map[string]any{"total_memory_size": "32 GB"},
			},
			"memory_details": map[string]any{
				"proc_1": map[string]any{
					"socket 1": map[string]any{
						"socket": 1, "status": "Good, In Use", "size": "16384 MB",
						"frequency": "2400 MHz", "type": "DIMM DDR4",
						"part": map[string]any{"number": "809081-081"},
					},
					"socket 4": map[string]any{"socket": 4, "status": "Not Present"},
				},
				"proc_2": map[string]any{
					"socket 1": map[string]any{
						"socket": 1, "status": "Good, In Use", "size": "16384 MB",
						"frequency": "2400 MHz", "type": "DIMM DDR4",
						"part": map[string]any{"number": "809081-081"},
					},
				},
			},
		},
		"temperature": map[string]any{
			"01-Inlet Ambient": map[string]any{
				"label": "01-Inlet Ambient", "status": "OK", "location": "Ambient",
				"currentreading": []any{21, "Celsius"},
				"caution":        []any{42, "Celsius"},
				"critical":       []any{46, "Celsius"},
			},
			"02-CPU 1": map[string]any{
				"label": "02-CPU 1", "status": "OK", "location": "CPU",
				"currentreading": []any{40, "Celsius"},
				"caution":        []any{70, "Celsius"},
				"critical":       "-",
			},
			"20-PCI Zone": map[string]any{
				"label": "20-PCI Zone", "status": "Not Installed", "location": "I/O Board",
			},
		},
		"storage": map[string]any{
			"Controller on System Board": map[string]any{
				"label": "Controller on System Board", "status": "OK",
				"model": "Smart Array P440ar", "serial_number": "PDNLH0BRH7V7JE",
				"fw_version": "6.88", "cache_module_status": "OK",
				"cache_module_memory": "2097152 KB", "encryption_status": "Not Enabled",
				"drive_enclosures": []any{
					map[string]any{"label": "Port 1I Box 1", "status": "OK", "drive_bay": "4"},
				},
				"logical_drives": []any{
					map[string]any{
						"label": "Logical Drive 1", "status": "OK",
						"capacity": "558 GB", "fault_tolerance": "RAID 1/RAID 1+0",
						"physical_drives": []any{
							map[string]any{
								"label": "Port 1I Box 1 Bay 1", "status": "OK",
								"capacity": "600 GB", "media_type": "HDD",
								"model": "EG0600FCVBK", "serial_number": "S7K0A1B2",
								"fw_version": "HPD6", "location": "Port 1I Box 1 Bay 1",
							},
							map[string]any{
								"label": "Port 1I Box 1 Bay 2", "status": "OK",
								"capacity": "600 GB", "media_type": "HDD",
								"model": "EG0600FCVBK", "serial_number": "S7K0C3D4",
								"fw_version": "HPD6", "location": "Port 1I Box 1 Bay 2",
							},
						},
					},
				},
			},
		},
		"firmware_information": map[string]any{
			"iLO":                                  "2.61 Jul 27 2018",
			"System ROM":                           "P89 v2.60 (05/21/2018)",
			"Redundant System ROM":                 "P89 v2.52 (10/25/2017)",
			"Intelligent Provisioning":             "2.61.24",
			"Power Management Controller Firmware": "1.0.9",
		},
	}
}
