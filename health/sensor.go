package health

// Kind identifies the hardware category a sensor describes. The set is
// closed: emission arity and label schemas are keyed off it.
type Kind int

const (
	KindSystem Kind = iota
	KindPower
	KindCPU
	KindPowerSupply
	KindFan
	KindNIC
	KindMemory
	KindDisk
	KindTemperature
	KindStorageController
	KindLogicalDrive
	KindStorageEnclosure
)

var kindNames = map[Kind]string{
	KindSystem:            "system",
	KindPower:             "power",
	KindCPU:               "cpu",
	KindPowerSupply:       "power_supply",
	KindFan:               "fan",
	KindNIC:               "nic",
	KindMemory:            "memory",
	KindDisk:              "disk",
	KindTemperature:       "temperature",
	KindStorageController: "storage_controller",
	KindLogicalDrive:      "logical_drive",
	KindStorageEnclosure:  "storage_enclosure",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// KindFromName resolves a kind from its configuration name.
func KindFromName(name string) (Kind, bool) {
	for kind, n := range kindNames {
		if n == name {
			return kind, true
		}
	}
	return 0, false
}

// AllKinds returns every sensor kind in emission order.
func AllKinds() []Kind {
	return []Kind{
		KindSystem, KindPower, KindCPU, KindPowerSupply, KindFan, KindNIC,
		KindMemory, KindDisk, KindTemperature, KindStorageController,
		KindLogicalDrive, KindStorageEnclosure,
	}
}

// labelValueNA is substituted for genuinely absent optional sub-fields so
// that every emitted sensor carries its kind's full label set.
const labelValueNA = "N/A"

// Sensor is one canonical health observation: a raw vendor status, a numeric
// value, and the label set forming the metric's dimensional identity. The
// label-key set is fixed per kind. Installed and Healthy are derived from
// Status at conversion time; the only later mutation is the explicit storage
// reconciliation on the system composite.
type Sensor struct {
	Kind      Kind
	Labels    map[string]string
	Value     float64
	Status    string
	Installed bool
	Healthy   bool
}

// StorageController is the composite sensor for one storage controller. It
// exclusively owns its child enclosures and logical drives; health
// propagates bottom-up from them during conversion.
type StorageController struct {
	Sensor
	Enclosures    []*Sensor
	LogicalDrives []*LogicalDrive
}

// LogicalDrive is the composite sensor for one logical drive and the
// physical disks it owns.
type LogicalDrive struct {
	Sensor
	Disks []*Sensor
}
