package health

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// RecordError scopes a conversion failure to one raw telemetry record. A
// RecordError never aborts a cycle; the affected sensor is skipped and the
// rest of the category is still emitted.
type RecordError struct {
	Kind   Kind
	Record string
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s record %q: %v", e.Kind, e.Record, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

func recordErr(kind Kind, record string, format string, args ...any) *RecordError {
	return &RecordError{Kind: kind, Record: record, Err: fmt.Errorf(format, args...)}
}

// Converter builds canonical sensors from raw telemetry records using a
// shared status classifier. Conversion rules are pure: one raw record in,
// one sensor (or a scoped RecordError) out.
type Converter struct {
	classifier *Classifier
}

// NewConverter returns a converter over the given classifier. A nil
// classifier selects the defaults.
func NewConverter(classifier *Classifier) *Converter {
	if classifier == nil {
		classifier = NewClassifier()
	}
	return &Converter{classifier: classifier}
}

// decodeRecord maps one raw untyped record onto a per-kind schema struct.
// Unknown raw fields are ignored; missing fields decode to zero values and
// are checked explicitly by each conversion rule. Weak typing folds the
// iLO's habit of switching between numbers and strings across firmware
// revisions.
func decodeRecord(raw Document, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(map[string]any(raw))
}

// splitReading splits a "<number> <unit>" reading into its value and unit.
func splitReading(reading string) (float64, string, error) {
	fields := strings.Fields(reading)
	if len(fields) < 2 {
		return 0, "", fmt.Errorf("malformed reading %q", reading)
	}
	value, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, "", fmt.Errorf("non-numeric reading %q", reading)
	}
	return value, fields[1], nil
}

// pairValue extracts the numeric first element of a (value, unit) pair.
func pairValue(pair []string) (float64, error) {
	if len(pair) < 2 {
		return 0, fmt.Errorf("malformed value pair %v", pair)
	}
	value, err := strconv.ParseFloat(pair[0], 64)
	if err != nil {
		return 0, fmt.Errorf("non-numeric value in pair %v", pair)
	}
	return value, nil
}

// thresholdValue parses an integer threshold from a (value, unit) pair.
// iLO reports unconfigured thresholds as "-"; those become the -1 sentinel.
func thresholdValue(pair []string) int {
	if len(pair) == 0 {
		return -1
	}
	v, err := strconv.Atoi(pair[0])
	if err != nil {
		return -1
	}
	return v
}

func healthValue(healthy bool) float64 {
	if healthy {
		return 1
	}
	return 0
}

type rawSummaryStatus struct {
	Status     string `mapstructure:"status"`
	Redundancy string `mapstructure:"redundancy"`
}

type rawHealthSummary struct {
	Battery       any              `mapstructure:"battery"`
	BIOSHardware  rawSummaryStatus `mapstructure:"bios_hardware"`
	Fans          rawSummaryStatus `mapstructure:"fans"`
	Memory        rawSummaryStatus `mapstructure:"memory"`
	Network       rawSummaryStatus `mapstructure:"network"`
	PowerSupplies rawSummaryStatus `mapstructure:"power_supplies"`
	Processor     rawSummaryStatus `mapstructure:"processor"`
	Storage       rawSummaryStatus `mapstructure:"storage"`
	Temperature   rawSummaryStatus `mapstructure:"temperature"`
}

// convertSystem builds the system composite from health_at_a_glance. The
// battery record is structurally absent on systems without one; that counts
// as "Not Installed" rather than a malformed record.
func (cv *Converter) convertSystem(raw Document) (*Sensor, error) {
	var rec rawHealthSummary
	if err := decodeRecord(raw, &rec); err != nil {
		return nil, recordErr(KindSystem, "health_at_a_glance", "decode: %v", err)
	}

	battery := statusNotInstalled
	if m, ok := rec.Battery.(map[string]any); ok {
		if s, ok := m["status"].(string); ok {
			battery = s
		}
	}

	labels := map[string]string{
		"battery":        battery,
		"bios_hardware":  rec.BIOSHardware.Status,
		"fans":           rec.Fans.Status,
		"fan_redundancy": rec.Fans.Redundancy,
		"memory":         rec.Memory.Status,
		"network":        rec.Network.Status,
		"power_supplies": rec.PowerSupplies.Status,
		"ps_redundancy":  rec.PowerSupplies.Redundancy,
		"processor":      rec.Processor.Status,
		"storage":        rec.Storage.Status,
		"temperature":    rec.Temperature.Status,
	}

	value := cv.systemValue(labels)
	return &Sensor{
		Kind:      KindSystem,
		Labels:    labels,
		Value:     value,
		Status:    labels["bios_hardware"],
		Installed: true,
		Healthy:   value == 1,
	}, nil
}

// systemValue ANDs the tracked sub-statuses: 1 only when every one of them
// is healthy or missing. The summary-level network status is allowed to be
// "Unknown" (non-HP NICs always report that) even though the standalone NIC
// sensor does not treat "Unknown" as OK; the asymmetry is intentional.
func (cv *Converter) systemValue(labels map[string]string) float64 {
	vocab := cv.classifier.Vocabulary(KindSystem)
	for key, status := range labels {
		if key == "network" && status == statusUnknown {
			continue
		}
		if vocab.Classify(status) == StatusDegraded {
			return 0
		}
	}
	return 1
}

type rawPowerSummary struct {
	PresentPowerReading      string `mapstructure:"present_power_reading"`
	HighEfficiencyMode       string `mapstructure:"high_efficiency_mode"`
	PowerDiscoveryRedundancy string `mapstructure:"hp_power_discovery_services_redundancy_status"`
	PowerManagementCtrlFW    string `mapstructure:"power_management_controller_firmware_version"`
	PowerSystemRedundancy    string `mapstructure:"power_system_redundancy"`
}

// convertPower builds the power-consumption sensor from the power supply
// summary. The value is the present reading; there is no health semantic.
func (cv *Converter) convertPower(raw Document) (*Sensor, error) {
	var rec rawPowerSummary
	if err := decodeRecord(raw, &rec); err != nil {
		return nil, recordErr(KindPower, "power_supply_summary", "decode: %v", err)
	}
	value, unit, err := splitReading(rec.PresentPowerReading)
	if err != nil {
		return nil, recordErr(KindPower, "power_supply_summary", "present_power_reading: %v", err)
	}
	return &Sensor{
		Kind: KindPower,
		Labels: map[string]string{
			"unit":                 unit,
			"high_efficiency_mode": rec.HighEfficiencyMode,
			"hp_power_discovery_services_redundancy_status": rec.PowerDiscoveryRedundancy,
			"power_management_controller_firmware_version":  rec.PowerManagementCtrlFW,
			"power_system_redundancy":                       rec.PowerSystemRedundancy,
		},
		Value:     value,
		Installed: true,
		Healthy:   true,
	}, nil
}

type rawCPU struct {
	Status              string `mapstructure:"status"`
	Name                string `mapstructure:"name"`
	Label               string `mapstructure:"label"`
	Speed               string `mapstructure:"speed"`
	InternalL1Cache     string `mapstructure:"internal_l1_cache"`
	InternalL2Cache     string `mapstructure:"internal_l2_cache"`
	InternalL3Cache     string `mapstructure:"internal_l3_cache"`
	ExecutionTechnology string `mapstructure:"execution_technology"`
}

// convertCPU builds one processor sensor. The label field encodes the
// processor index as its second token ("Proc 1" -> "1").
func (cv *Converter) convertCPU(raw Document) (*Sensor, error) {
	var rec rawCPU
	if err := decodeRecord(raw, &rec); err != nil {
		return nil, recordErr(KindCPU, raw.String("label"), "decode: %v", err)
	}
	if rec.Status == "" {
		return nil, recordErr(KindCPU, rec.Label, "missing status")
	}
	tokens := strings.Fields(rec.Label)
	if len(tokens) < 2 {
		return nil, recordErr(KindCPU, rec.Label, "label does not encode an index")
	}
	class := cv.classifier.Classify(KindCPU, rec.Status)
	return &Sensor{
		Kind: KindCPU,
		Labels: map[string]string{
			"status":               rec.Status,
			"model":                rec.Name,
			"index":                tokens[1],
			"speed":                rec.Speed,
			"l1_cache":             rec.InternalL1Cache,
			"l2_cache":             rec.InternalL2Cache,
			"l3_cache":             rec.InternalL3Cache,
			"execution_technology": rec.ExecutionTechnology,
		},
		Value:     healthValue(class == StatusHealthy),
		Status:    rec.Status,
		Installed: class != StatusMissing,
		Healthy:   class == StatusHealthy,
	}, nil
}

type rawPowerSupply struct {
	Label           string `mapstructure:"label"`
	Capacity        string `mapstructure:"capacity"`
	FirmwareVersion string `mapstructure:"firmware_version"`
	HotplugCapable  string `mapstructure:"hotplug_capable"`
	Model           string `mapstructure:"model"`
	SerialNumber    string `mapstructure:"serial_number"`
	Status          string `mapstructure:"status"`
	Spare           string `mapstructure:"spare"`
}

func (cv *Converter) convertPowerSupply(raw Document) (*Sensor, error) {
	var rec rawPowerSupply
	if err := decodeRecord(raw, &rec); err != nil {
		return nil, recordErr(KindPowerSupply, raw.String("label"), "decode: %v", err)
	}
	if rec.Status == "" {
		return nil, recordErr(KindPowerSupply, rec.Label, "missing status")
	}
	if rec.HotplugCapable == "" {
		rec.HotplugCapable = "No"
	}
	class := cv.classifier.Classify(KindPowerSupply, rec.Status)
	return &Sensor{
		Kind: KindPowerSupply,
		Labels: map[string]string{
			"name":             rec.Label,
			"capacity":         rec.Capacity,
			"firmware_version": rec.FirmwareVersion,
			"hotplug_capable":  rec.HotplugCapable,
			"model":            rec.Model,
			"serial_number":    rec.SerialNumber,
			"status":           rec.Status,
			"spare":            rec.Spare,
		},
		Value:     healthValue(class == StatusHealthy),
		Status:    rec.Status,
		Installed: class != StatusMissing,
		Healthy:   class == StatusHealthy,
	}, nil
}

type rawFan struct {
	Label  string   `mapstructure:"label"`
	Speed  []string `mapstructure:"speed"`
	Status string   `mapstructure:"status"`
	Zone   string   `mapstructure:"zone"`
}

// convertFan builds one fan sensor; the value is the speed percentage, not
// a health indicator.
func (cv *Converter) convertFan(raw Document) (*Sensor, error) {
	var rec rawFan
	if err := decodeRecord(raw, &rec); err != nil {
		return nil, recordErr(KindFan, raw.String("label"), "decode: %v", err)
	}
	if rec.Status == "" {
		return nil, recordErr(KindFan, rec.Label, "missing status")
	}
	class := cv.classifier.Classify(KindFan, rec.Status)
	if class == StatusMissing {
		return &Sensor{Kind: KindFan, Status: rec.Status, Installed: false}, nil
	}
	speed, err := pairValue(rec.Speed)
	if err != nil {
		return nil, recordErr(KindFan, rec.Label, "speed: %v", err)
	}
	unit := rec.Speed[1]
	return &Sensor{
		Kind: KindFan,
		Labels: map[string]string{
			"name":     rec.Label,
			"status":   rec.Status,
			"location": rec.Zone,
			"unit":     unit,
		},
		Value:     speed,
		Status:    rec.Status,
		Installed: true,
		Healthy:   class == StatusHealthy,
	}, nil
}

// nicStatusOrdinals orders NIC statuses for the emitted ordinal value. The
// ordinal is 1-based index + 1; unrecognized statuses emit 0. It exists so
// dashboards can distinguish the states, and is not a health gate.
var nicStatusOrdinals = []string{statusOK, "Disabled", statusUnknown, "Link Down"}

type rawNIC struct {
	IPAddress       string `mapstructure:"ip_address"`
	Location        string `mapstructure:"location"`
	MACAddress      string `mapstructure:"mac_address"`
	NetworkPort     string `mapstructure:"network_port"`
	PortDescription string `mapstructure:"port_description"`
	Status          string `mapstructure:"status"`
}

func (cv *Converter) convertNIC(raw Document) (*Sensor, error) {
	var rec rawNIC
	if err := decodeRecord(raw, &rec); err != nil {
		return nil, recordErr(KindNIC, raw.String("network_port"), "decode: %v", err)
	}
	if rec.Status == "" {
		return nil, recordErr(KindNIC, rec.NetworkPort, "missing status")
	}
	value := float64(0)
	for i, status := range nicStatusOrdinals {
		if rec.Status == status {
			value = float64(i + 1)
			break
		}
	}
	class := cv.classifier.Classify(KindNIC, rec.Status)
	return &Sensor{
		Kind: KindNIC,
		Labels: map[string]string{
			"ip_address":  rec.IPAddress,
			"mac_address": rec.MACAddress,
			"name":        rec.Location,
			"status":      rec.Status,
			"location":    rec.NetworkPort,
			"description": rec.PortDescription,
		},
		Value:     value,
		Status:    rec.Status,
		Installed: class != StatusMissing,
		Healthy:   class == StatusHealthy,
	}, nil
}

type rawMemory struct {
	Frequency string `mapstructure:"frequency"`
	Part      struct {
		Number string `mapstructure:"number"`
	} `mapstructure:"part"`
	Serial any    `mapstructure:"serial"`
	Size   string `mapstructure:"size"`
	Socket string `mapstructure:"socket"`
	Status string `mapstructure:"status"`
	Type   string `mapstructure:"type"`
}

// convertMemory builds one DIMM sensor. The cpu argument is the socket-group
// key injected by the memory aggregator. The raw "type" field is exposed as
// the mem_type label. Serial numbers are not reported by every firmware.
func (cv *Converter) convertMemory(raw Document, cpu string) (*Sensor, error) {
	var rec rawMemory
	if err := decodeRecord(raw, &rec); err != nil {
		return nil, recordErr(KindMemory, raw.String("socket"), "decode: %v", err)
	}
	if rec.Status == "" {
		return nil, recordErr(KindMemory, rec.Socket, "missing status")
	}
	serial := labelValueNA
	if m, ok := rec.Serial.(map[string]any); ok {
		if s, ok := m["number"].(string); ok {
			serial = s
		}
	}
	class := cv.classifier.Classify(KindMemory, rec.Status)
	return &Sensor{
		Kind: KindMemory,
		Labels: map[string]string{
			"cpu":       cpu,
			"frequency": rec.Frequency,
			"part":      rec.Part.Number,
			"size":      rec.Size,
			"socket":    rec.Socket,
			"status":    rec.Status,
			"mem_type":  rec.Type,
			"serial":    serial,
		},
		Value:     healthValue(class == StatusHealthy),
		Status:    rec.Status,
		Installed: class != StatusMissing,
		Healthy:   class == StatusHealthy,
	}, nil
}

type rawTemperature struct {
	Caution        []string `mapstructure:"caution"`
	Critical       []string `mapstructure:"critical"`
	CurrentReading []string `mapstructure:"currentreading"`
	Label          string   `mapstructure:"label"`
	Location       string   `mapstructure:"location"`
	Status         string   `mapstructure:"status"`
}

// convertTemperature builds one temperature sensor. Thresholds parse to the
// -1 sentinel when the iLO reports them as unconfigured ("-"). One sensor
// fans out to up to three series at emission time: the detail series plus a
// caution and a critical series for each threshold that is >= 0.
func (cv *Converter) convertTemperature(raw Document) (*Sensor, error) {
	var rec rawTemperature
	if err := decodeRecord(raw, &rec); err != nil {
		return nil, recordErr(KindTemperature, raw.String("label"), "decode: %v", err)
	}
	if rec.Status == "" {
		return nil, recordErr(KindTemperature, rec.Label, "missing status")
	}
	class := cv.classifier.Classify(KindTemperature, rec.Status)
	if class == StatusMissing {
		return &Sensor{Kind: KindTemperature, Status: rec.Status, Installed: false}, nil
	}
	reading, err := pairValue(rec.CurrentReading)
	if err != nil {
		return nil, recordErr(KindTemperature, rec.Label, "currentreading: %v", err)
	}
	unit := rec.CurrentReading[1]
	return &Sensor{
		Kind: KindTemperature,
		Labels: map[string]string{
			"name":     rec.Label,
			"status":   rec.Status,
			"location": rec.Location,
			"unit":     unit,
			"caution":  strconv.Itoa(thresholdValue(rec.Caution)),
			"critical": strconv.Itoa(thresholdValue(rec.Critical)),
		},
		Value:     reading,
		Status:    rec.Status,
		Installed: true,
		Healthy:   class == StatusHealthy,
	}, nil
}

// TemperatureThresholds reads the caution and critical thresholds back off a
// temperature sensor's labels. -1 means no threshold is configured and the
// corresponding series must not be emitted.
func TemperatureThresholds(s *Sensor) (caution, critical int) {
	caution, critical = -1, -1
	if v, err := strconv.Atoi(s.Labels["caution"]); err == nil {
		caution = v
	}
	if v, err := strconv.Atoi(s.Labels["critical"]); err == nil {
		critical = v
	}
	return caution, critical
}

type rawDisk struct {
	Capacity     string `mapstructure:"capacity"`
	FWVersion    string `mapstructure:"fw_version"`
	Label        string `mapstructure:"label"`
	Location     string `mapstructure:"location"`
	MediaType    string `mapstructure:"media_type"`
	Model        string `mapstructure:"model"`
	SerialNumber string `mapstructure:"serial_number"`
	Status       string `mapstructure:"status"`
}

// convertDisk builds one physical-drive sensor. logicalDrive is the owning
// logical drive's identifier, or "N/A" on the legacy top-level drive path,
// so that the disk label schema stays identical across both paths.
func (cv *Converter) convertDisk(raw Document, logicalDrive string) (*Sensor, error) {
	var rec rawDisk
	if err := decodeRecord(raw, &rec); err != nil {
		return nil, recordErr(KindDisk, raw.String("label"), "decode: %v", err)
	}
	if rec.Status == "" {
		return nil, recordErr(KindDisk, rec.Label, "missing status")
	}
	if logicalDrive == "" {
		logicalDrive = labelValueNA
	}
	class := cv.classifier.Classify(KindDisk, rec.Status)
	return &Sensor{
		Kind: KindDisk,
		Labels: map[string]string{
			"capacity":      rec.Capacity,
			"media_type":    rec.MediaType,
			"serial_number": rec.SerialNumber,
			"model":         rec.Model,
			"fw_version":    rec.FWVersion,
			"location":      rec.Location,
			"status":        rec.Status,
			"logical_drive": logicalDrive,
		},
		Value:     healthValue(class == StatusHealthy),
		Status:    rec.Status,
		Installed: class != StatusMissing,
		Healthy:   class == StatusHealthy,
	}, nil
}
