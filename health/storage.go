package health

// Storage controller health is judged against wider vocabularies than the
// baseline classifier: a controller with nothing attached ("Present,
// Unused") or an absent cache module ("Not Installed") is not a fault.
var (
	controllerGoodStatus = []string{statusOK, statusGoodInUse, statusPresentUnused, statusNotInstalled}
	cacheGoodStatus      = []string{statusOK, statusGoodInUse, statusPresentUnused, statusNotInstalled, statusOther}
)

const encryptionNotEnabled = "Not Enabled"

func statusIn(status string, set []string) bool {
	for _, s := range set {
		if status == s {
			return true
		}
	}
	return false
}

type rawStorageController struct {
	Label                    string           `mapstructure:"label"`
	Status                   string           `mapstructure:"status"`
	Model                    string           `mapstructure:"model"`
	SerialNumber             string           `mapstructure:"serial_number"`
	FWVersion                string           `mapstructure:"fw_version"`
	CacheModuleStatus        string           `mapstructure:"cache_module_status"`
	CacheModuleMemory        string           `mapstructure:"cache_module_memory"`
	EncryptionStatus         string           `mapstructure:"encryption_status"`
	EncryptionSelfTestStatus string           `mapstructure:"encryption_self_test_status"`
	EncryptionCSPTestStatus  string           `mapstructure:"encryption_csp_test_status"`
	DriveEnclosures          []map[string]any `mapstructure:"drive_enclosures"`
	LogicalDrives            []map[string]any `mapstructure:"logical_drives"`
}

type rawStorageEnclosure struct {
	Label    string `mapstructure:"label"`
	Status   string `mapstructure:"status"`
	DriveBay string `mapstructure:"drive_bay"`
}

type rawLogicalDrive struct {
	Label          string           `mapstructure:"label"`
	Status         string           `mapstructure:"status"`
	Capacity       string           `mapstructure:"capacity"`
	FaultTolerance string           `mapstructure:"fault_tolerance"`
	PhysicalDrives []map[string]any `mapstructure:"physical_drives"`
}

// convertStorageController builds one controller composite, recursively
// converting its drive enclosures and logical drives. The controller's
// resolved health is computed exactly once, here, and the resolved status is
// written back into the status label before the sensor is ever emitted: the
// controller's true status is only knowable after inspecting its children.
// Scoped child conversion failures are collected, not fatal.
func (cv *Converter) convertStorageController(raw Document) (*StorageController, []error) {
	var errs []error
	var rec rawStorageController
	if err := decodeRecord(raw, &rec); err != nil {
		return nil, []error{recordErr(KindStorageController, raw.String("label"), "decode: %v", err)}
	}
	if rec.Status == "" {
		return nil, []error{recordErr(KindStorageController, rec.Label, "missing status")}
	}
	if rec.CacheModuleStatus == "" {
		rec.CacheModuleStatus = statusNotInstalled
	}

	controller := &StorageController{
		Sensor: Sensor{
			Kind:      KindStorageController,
			Status:    rec.Status,
			Installed: true,
		},
	}

	for _, enc := range rec.DriveEnclosures {
		sensor, err := cv.convertStorageEnclosure(Document(enc), rec.Label)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if sensor.Installed {
			controller.Enclosures = append(controller.Enclosures, sensor)
		}
	}
	for _, ld := range rec.LogicalDrives {
		drive, ldErrs := cv.convertLogicalDrive(Document(ld), rec.Label)
		errs = append(errs, ldErrs...)
		if drive != nil {
			controller.LogicalDrives = append(controller.LogicalDrives, drive)
		}
	}

	healthy := statusIn(rec.Status, controllerGoodStatus) &&
		statusIn(rec.CacheModuleStatus, cacheGoodStatus)
	if healthy && rec.EncryptionStatus != "" && rec.EncryptionStatus != encryptionNotEnabled {
		healthy = statusIn(rec.EncryptionStatus, controllerGoodStatus) &&
			statusIn(rec.EncryptionSelfTestStatus, controllerGoodStatus) &&
			statusIn(rec.EncryptionCSPTestStatus, controllerGoodStatus)
	}
	for _, enc := range controller.Enclosures {
		if !enc.Healthy {
			healthy = false
		}
	}
	for _, ld := range controller.LogicalDrives {
		if !ld.Healthy {
			healthy = false
		}
	}

	resolved := statusOK
	if !healthy {
		resolved = statusDegraded
	}
	controller.Status = resolved
	controller.Healthy = healthy
	controller.Value = healthValue(healthy)
	controller.Labels = map[string]string{
		"name":                rec.Label,
		"model":               rec.Model,
		"serial_number":       rec.SerialNumber,
		"fw_version":          rec.FWVersion,
		"status":              resolved,
		"cache_module_status": rec.CacheModuleStatus,
		"encryption_status":   rec.EncryptionStatus,
	}
	return controller, errs
}

func (cv *Converter) convertStorageEnclosure(raw Document, controller string) (*Sensor, error) {
	var rec rawStorageEnclosure
	if err := decodeRecord(raw, &rec); err != nil {
		return nil, recordErr(KindStorageEnclosure, raw.String("label"), "decode: %v", err)
	}
	if rec.Status == "" {
		return nil, recordErr(KindStorageEnclosure, rec.Label, "missing status")
	}
	class := cv.classifier.Classify(KindStorageEnclosure, rec.Status)
	return &Sensor{
		Kind: KindStorageEnclosure,
		Labels: map[string]string{
			"name":       rec.Label,
			"status":     rec.Status,
			"drive_bay":  rec.DriveBay,
			"controller": controller,
		},
		Value:     healthValue(class == StatusHealthy),
		Status:    rec.Status,
		Installed: class != StatusMissing,
		Healthy:   class == StatusHealthy,
	}, nil
}

// convertLogicalDrive builds one logical-drive composite. A drive counts as
// healthy when its own status is healthy OR every child disk is individually
// healthy: controllers mark arrays degraded when a member disk fails vendor
// authentication, but the disk vocabulary already accepts that status, so an
// array of individually-healthy disks overrides the array-level verdict.
func (cv *Converter) convertLogicalDrive(raw Document, controller string) (*LogicalDrive, []error) {
	var errs []error
	var rec rawLogicalDrive
	if err := decodeRecord(raw, &rec); err != nil {
		return nil, []error{recordErr(KindLogicalDrive, raw.String("label"), "decode: %v", err)}
	}
	if rec.Status == "" {
		return nil, []error{recordErr(KindLogicalDrive, rec.Label, "missing status")}
	}

	drive := &LogicalDrive{
		Sensor: Sensor{
			Kind:      KindLogicalDrive,
			Status:    rec.Status,
			Installed: cv.classifier.Classify(KindLogicalDrive, rec.Status) != StatusMissing,
		},
	}

	disksHealthy := true
	for _, disk := range rec.PhysicalDrives {
		sensor, err := cv.convertDisk(Document(disk), rec.Label)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !sensor.Installed {
			continue
		}
		drive.Disks = append(drive.Disks, sensor)
		if !sensor.Healthy {
			disksHealthy = false
		}
	}

	ownHealthy := cv.classifier.Classify(KindLogicalDrive, rec.Status) == StatusHealthy
	drive.Healthy = ownHealthy || disksHealthy
	drive.Value = healthValue(drive.Healthy)
	drive.Labels = map[string]string{
		"name":            rec.Label,
		"capacity":        rec.Capacity,
		"fault_tolerance": rec.FaultTolerance,
		"status":          rec.Status,
		"controller":      controller,
	}
	return drive, errs
}
