package collector

import (
	"fmt"
	"maps"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/sseiler-cboe/hpilo-exporter/health"
)

// Metric name parts.
const (
	namespace = "hpilo"
	exporter  = "exporter"
)

// Per-kind label schemas. These are the fixed dimensional identities of the
// emitted series; every sensor of a kind carries exactly this key set.
var (
	systemLabels = []string{
		"battery", "bios_hardware", "fans", "memory", "network",
		"power_supplies", "processor", "storage", "temperature",
		"ps_redundancy", "fan_redundancy",
	}
	powerLabels = []string{
		"high_efficiency_mode", "hp_power_discovery_services_redundancy_status",
		"power_management_controller_firmware_version", "power_system_redundancy", "unit",
	}
	cpuLabels         = []string{"status", "model", "index", "speed", "l1_cache", "l2_cache", "l3_cache", "execution_technology"}
	powerSupplyLabels = []string{"capacity", "firmware_version", "hotplug_capable", "name", "model", "serial_number", "status", "spare"}
	fanLabels         = []string{"status", "name", "location", "unit"}
	nicLabels         = []string{"status", "name", "location", "ip_address", "mac_address", "description"}
	memoryLabels      = []string{"cpu", "frequency", "part", "size", "socket", "mem_type", "status", "serial"}
	diskLabels        = []string{"capacity", "media_type", "serial_number", "model", "fw_version", "location", "status", "logical_drive"}
	tempDetailLabels  = []string{"name", "caution", "critical", "location", "status", "unit"}
	tempLimitLabels   = []string{"name", "location", "unit"}
	controllerLabels  = []string{"name", "model", "serial_number", "fw_version", "status", "cache_module_status", "encryption_status"}
	logicalDrvLabels  = []string{"name", "capacity", "fault_tolerance", "status", "controller"}
	enclosureLabels   = []string{"name", "status", "drive_bay", "controller"}
)

func newGaugeVec(name, help string, labels []string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

// MetricSet is the metric registry for one poll cycle. A fresh set is built
// per cycle and swapped in wholesale once the cycle completes, so repeated
// cycles never accumulate stale series. Gauge vectors (rather than const
// metrics) give the reconciliation step its overwrite semantics: a
// previously emitted series can be deleted and superseded.
type MetricSet struct {
	registry *prometheus.Registry

	vecs map[health.Kind]*prometheus.GaugeVec

	temperatureCaution  *prometheus.GaugeVec
	temperatureCritical *prometheus.GaugeVec

	up             prometheus.Gauge
	scrapeDuration prometheus.Gauge
	scrapeStatus   *prometheus.GaugeVec
}

// NewMetricSet builds a metric set on its own registry.
func NewMetricSet() *MetricSet {
	m := &MetricSet{
		registry: prometheus.NewRegistry(),
		vecs: map[health.Kind]*prometheus.GaugeVec{
			health.KindSystem:            newGaugeVec("system_health", "HP iLO overall system health", systemLabels),
			health.KindPower:             newGaugeVec("power_supplies_reading_gauge", "HP iLO power usage", powerLabels),
			health.KindCPU:               newGaugeVec("processor_detail_gauge", "HP iLO CPU detail", cpuLabels),
			health.KindPowerSupply:       newGaugeVec("power_supplies_detail_gauge", "HP iLO power supply details", powerSupplyLabels),
			health.KindFan:               newGaugeVec("fans_speed_percent_gauge", "HP iLO fan speed", fanLabels),
			health.KindNIC:               newGaugeVec("nic_status_gauge", "HP iLO NIC status", nicLabels),
			health.KindMemory:            newGaugeVec("memory", "HP iLO memory status", memoryLabels),
			health.KindDisk:              newGaugeVec("disk", "HP iLO disk status", diskLabels),
			health.KindTemperature:       newGaugeVec("temperature_detail", "HP iLO temperature detail", tempDetailLabels),
			health.KindStorageController: newGaugeVec("storage_controller", "HP iLO storage controller status", controllerLabels),
			health.KindLogicalDrive:      newGaugeVec("logical_drive", "HP iLO logical drive status", logicalDrvLabels),
			health.KindStorageEnclosure:  newGaugeVec("storage_enclosure", "HP iLO storage enclosure status", enclosureLabels),
		},
		temperatureCaution:  newGaugeVec("temperature_caution", "HP iLO temperature caution values", tempLimitLabels),
		temperatureCritical: newGaugeVec("temperature_critical", "HP iLO temperature critical values", tempLimitLabels),
		up: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "up",
			Help:      "whether the last telemetry poll succeeded",
		}),
		scrapeDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: exporter,
			Name:      "collector_duration_seconds",
			Help:      "Collector time duration.",
		}),
		scrapeStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: exporter,
				Name:      "subsystem_scrape_status",
				Help:      "whether a telemetry subsystem yielded sensors this cycle",
			},
			[]string{"subsystem"},
		),
	}
	for _, vec := range m.vecs {
		m.registry.MustRegister(vec)
	}
	m.registry.MustRegister(m.temperatureCaution, m.temperatureCritical, m.up, m.scrapeDuration, m.scrapeStatus)
	return m
}

// Unavailable returns a metric set carrying hpilo_up=0 and nothing else. It
// is published in place of the previous cycle when a poll fails, so scrapers
// and the metrics file see the outage instead of stale healthy series.
func Unavailable() *MetricSet {
	ms := NewMetricSet()
	ms.up.Set(0)
	return ms
}

// Emit registers one sensor's series. Sensors classified missing are never
// emitted. Temperature sensors fan out to the detail series plus one series
// per configured threshold.
func (m *MetricSet) Emit(s *health.Sensor) error {
	if s == nil || !s.Installed {
		return nil
	}
	vec, ok := m.vecs[s.Kind]
	if !ok {
		return fmt.Errorf("no metric mapped for sensor kind %s", s.Kind)
	}
	gauge, err := vec.GetMetricWith(prometheus.Labels(s.Labels))
	if err != nil {
		return fmt.Errorf("emitting %s sensor: %w", s.Kind, err)
	}
	gauge.Set(s.Value)

	if s.Kind == health.KindTemperature {
		m.emitTemperatureLimits(s)
	}
	return nil
}

func (m *MetricSet) emitTemperatureLimits(s *health.Sensor) {
	limits := prometheus.Labels{
		"name":     s.Labels["name"],
		"location": s.Labels["location"],
		"unit":     s.Labels["unit"],
	}
	caution, critical := health.TemperatureThresholds(s)
	if caution >= 0 {
		m.temperatureCaution.With(limits).Set(float64(caution))
	}
	if critical >= 0 {
		m.temperatureCritical.With(limits).Set(float64(critical))
	}
}

// Supersede removes the series previously emitted for a sensor and emits the
// sensor's current state in its place. Used by storage reconciliation, which
// rewrites the system sensor's labels after its first emission.
func (m *MetricSet) Supersede(previous map[string]string, s *health.Sensor) error {
	if vec, ok := m.vecs[s.Kind]; ok && previous != nil {
		vec.Delete(prometheus.Labels(previous))
	}
	return m.Emit(s)
}

// EmitFirmware registers the always-1 firmware info gauge. Its label keys
// come from the document, so the vector is built per cycle.
func (m *MetricSet) EmitFirmware(info map[string]string) error {
	if len(info) == 0 {
		return nil
	}
	keys := slices.Sorted(maps.Keys(info))
	vec := newGaugeVec("firmware_info", "HP iLO firmware information", keys)
	if err := m.registry.Register(vec); err != nil {
		return fmt.Errorf("registering firmware info: %w", err)
	}
	vec.With(prometheus.Labels(info)).Set(1)
	return nil
}

// Registry exposes the cycle's registry for serving and file export.
func (m *MetricSet) Registry() *prometheus.Registry { return m.registry }

// Gather implements prometheus.Gatherer.
func (m *MetricSet) Gather() ([]*dto.MetricFamily, error) { return m.registry.Gather() }
