package health

import (
	"regexp"
	"sort"
)

// Model is the complete sensor graph built from one telemetry document. It
// is rebuilt from scratch every poll cycle and discarded afterwards; nothing
// in it survives across cycles.
type Model struct {
	System        *Sensor
	Power         *Sensor
	CPUs          []*Sensor
	PowerSupplies []*Sensor
	Fans          []*Sensor
	NICs          []*Sensor
	Memory        []*Sensor
	Temperatures  []*Sensor
	Disks         []*Sensor
	Controllers   []*StorageController
	Firmware      map[string]string

	// Errors collects scoped per-record conversion failures. They are
	// reported by the caller and never abort the cycle.
	Errors []error
}

// Build assembles the full sensor model from a raw telemetry document.
// Absent or empty categories contribute no sensors; present-but-malformed
// records surface as scoped errors on the model.
func (cv *Converter) Build(doc Document) *Model {
	m := &Model{}

	if raw, ok := doc.Map("health_at_a_glance"); ok {
		system, err := cv.convertSystem(raw)
		if err != nil {
			m.Errors = append(m.Errors, err)
		} else {
			m.System = system
		}
	}
	if raw, ok := doc.Map("power_supply_summary"); ok {
		power, err := cv.convertPower(raw)
		if err != nil {
			m.Errors = append(m.Errors, err)
		} else {
			m.Power = power
		}
	}
	m.CPUs = cv.mapCategory(doc, "processors", KindCPU, m, cv.convertCPU)
	m.PowerSupplies = cv.mapCategory(doc, "power_supplies", KindPowerSupply, m, cv.convertPowerSupply)
	m.Fans = cv.mapCategory(doc, "fans", KindFan, m, cv.convertFan)
	m.NICs = cv.mapCategory(doc, "nic_information", KindNIC, m, cv.convertNIC)
	m.Temperatures = cv.mapCategory(doc, "temperature", KindTemperature, m, cv.convertTemperature)
	m.Memory = cv.memorySensors(doc, m)
	cv.storageSensors(doc, m)
	m.Firmware = firmwareInfo(doc)

	return m
}

// mapCategory handles the simple categories: a mapping of arbitrary keys to
// sub-records, one sensor per record, missing sensors excluded. Keys are
// iterated in sorted order so output is deterministic.
func (cv *Converter) mapCategory(doc Document, category string, kind Kind, m *Model, convert func(Document) (*Sensor, error)) []*Sensor {
	raw, ok := doc.Map(category)
	if !ok {
		return nil
	}
	var sensors []*Sensor
	for _, key := range sortedKeys(raw) {
		rec, ok := raw.Map(key)
		if !ok {
			m.Errors = append(m.Errors, recordErr(kind, key, "category %s: record is not a mapping", category))
			continue
		}
		sensor, err := convert(rec)
		if err != nil {
			m.Errors = append(m.Errors, err)
			continue
		}
		if sensor.Installed {
			sensors = append(sensors, sensor)
		}
	}
	return sensors
}

// memorySensors flattens the doubly nested memory category (CPU socket
// group, then memory slot) into one sensor per slot, tagging each with its
// group key.
func (cv *Converter) memorySensors(doc Document, m *Model) []*Sensor {
	memory, ok := doc.Map("memory")
	if !ok {
		return nil
	}
	details, ok := memory.Map("memory_details")
	if !ok {
		return nil
	}
	var sensors []*Sensor
	for _, cpu := range sortedKeys(details) {
		slots, ok := details.Map(cpu)
		if !ok {
			m.Errors = append(m.Errors, recordErr(KindMemory, cpu, "memory group is not a mapping"))
			continue
		}
		for _, slot := range sortedKeys(slots) {
			rec, ok := slots.Map(slot)
			if !ok {
				m.Errors = append(m.Errors, recordErr(KindMemory, slot, "memory slot is not a mapping"))
				continue
			}
			sensor, err := cv.convertMemory(rec, cpu)
			if err != nil {
				m.Errors = append(m.Errors, err)
				continue
			}
			if sensor.Installed {
				sensors = append(sensors, sensor)
			}
		}
	}
	return sensors
}

// storageSensors splits the storage category into one of its two observed
// shapes: a controller-keyed mapping of controller records (each owning its
// enclosure and logical-drive hierarchy), or the legacy layout where a
// physical_drives list hides at some nesting depth with no controller
// records around it.
func (cv *Converter) storageSensors(doc Document, m *Model) {
	storage, ok := doc.Map("storage")
	if !ok || len(storage) == 0 {
		return
	}
	for _, key := range sortedKeys(storage) {
		rec, ok := storage.Map(key)
		if !ok || rec.String("status") == "" {
			continue
		}
		controller, errs := cv.convertStorageController(rec)
		m.Errors = append(m.Errors, errs...)
		if controller != nil {
			m.Controllers = append(m.Controllers, controller)
		}
	}
	if len(m.Controllers) > 0 {
		return
	}

	host, ok := FindKey(storage, "physical_drives")
	if !ok {
		return
	}
	drives, ok := host.List("physical_drives")
	if !ok {
		return
	}
	m.Disks = cv.diskSensors(drives, m)
}

// diskSensors handles the legacy top-level drive list, re-keying it by the
// label field so drives process uniformly and deterministically.
func (cv *Converter) diskSensors(drives []any, m *Model) []*Sensor {
	byLabel := Document{}
	for _, item := range drives {
		rec, ok := item.(map[string]any)
		if !ok {
			m.Errors = append(m.Errors, recordErr(KindDisk, "", "drive record is not a mapping"))
			continue
		}
		byLabel[Document(rec).String("label")] = rec
	}
	var sensors []*Sensor
	for _, key := range sortedKeys(byLabel) {
		rec, _ := byLabel.Map(key)
		sensor, err := cv.convertDisk(rec, labelValueNA)
		if err != nil {
			m.Errors = append(m.Errors, err)
			continue
		}
		if sensor.Installed {
			sensors = append(sensors, sensor)
		}
	}
	return sensors
}

var labelSanitizer = regexp.MustCompile(`[^A-Za-z0-9]`)

// firmwareInfo flattens the firmware_information category into label pairs
// for the always-1 info gauge, sanitizing keys into valid label names.
func firmwareInfo(doc Document) map[string]string {
	raw, ok := doc.Map("firmware_information")
	if !ok || len(raw) == 0 {
		return nil
	}
	info := make(map[string]string, len(raw))
	for key, value := range raw {
		if s, ok := value.(string); ok {
			info[labelSanitizer.ReplaceAllString(key, "_")] = s
		}
	}
	return info
}

func sortedKeys(d Document) []string {
	keys := make([]string, 0, len(d))
	for key := range d {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
