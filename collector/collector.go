package collector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sseiler-cboe/hpilo-exporter/config"
	"github.com/sseiler-cboe/hpilo-exporter/health"
	"github.com/sseiler-cboe/hpilo-exporter/ilo"
)

// ILOCollector drives one poll cycle: fetch the raw telemetry document,
// build the sensor model, emit it, reconcile, and hand back the finished
// metric set. Cycles are strictly sequential; the collector holds no state
// between them beyond its collaborators.
type ILOCollector struct {
	client    ilo.Client
	converter *health.Converter
	extras    []*ExtraMetric
	logger    *slog.Logger
}

// New returns a collector over the given telemetry client. A nil classifier
// selects the default vocabularies.
func New(client ilo.Client, classifier *health.Classifier, logger *slog.Logger) *ILOCollector {
	return &ILOCollector{
		client:    client,
		converter: health.NewConverter(classifier),
		logger:    logger.With(slog.String("collector", "ILOCollector")),
	}
}

// WithExtraMetrics sets the user-configured JQ metric extractors to run
// against the raw document each cycle.
func (c *ILOCollector) WithExtraMetrics(extras []*ExtraMetric) {
	c.extras = extras
}

// Collect runs one complete poll cycle and returns the resulting metric
// set. Only a failure to obtain the document at all is returned as an
// error; everything after that is best-effort, with per-record failures
// logged and skipped.
func (c *ILOCollector) Collect(ctx context.Context) (*MetricSet, error) {
	scrapeTime := time.Now()

	doc, err := c.client.EmbeddedHealth(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching embedded health: %w", err)
	}

	ms := NewMetricSet()
	model := c.converter.Build(doc)
	for _, recErr := range model.Errors {
		c.logger.Warn("skipping malformed telemetry record", slog.Any("error", recErr))
	}

	c.emitModel(ms, model)

	if err := ms.EmitFirmware(model.Firmware); err != nil {
		c.logger.Warn("failed to emit firmware info", slog.Any("error", err))
	}
	for _, extra := range c.extras {
		extra.Emit(ctx, doc, ms, c.logger)
	}

	ms.up.Set(1)
	ms.scrapeDuration.Set(time.Since(scrapeTime).Seconds())
	return ms, nil
}

func (c *ILOCollector) emitModel(ms *MetricSet, model *health.Model) {
	c.emitAll(ms, "processors", model.CPUs)
	c.emitAll(ms, "power_supplies", model.PowerSupplies)
	c.emitAll(ms, "fans", model.Fans)
	c.emitAll(ms, "nic_information", model.NICs)
	c.emitAll(ms, "memory", model.Memory)
	c.emitAll(ms, "temperature", model.Temperatures)
	c.emitAll(ms, "disks", model.Disks)

	if model.Power != nil {
		c.emit(ms, model.Power)
		ms.scrapeStatus.WithLabelValues("power").Set(1)
	}

	c.emitStorage(ms, model)

	if model.System == nil {
		return
	}
	c.emit(ms, model.System)

	// The system sensor goes out before reconciliation so that the
	// supersede path is exercised every cycle it applies; reconciliation
	// then rewrites the storage label from controller health and the
	// stale series is replaced.
	previous := make(map[string]string, len(model.System.Labels))
	for k, v := range model.System.Labels {
		previous[k] = v
	}
	if c.converter.ReconcileStorage(model) {
		c.logger.Info("storage reconciliation updated system health",
			slog.String("storage", model.System.Labels["storage"]))
		if err := ms.Supersede(previous, model.System); err != nil {
			c.logger.Error("failed to supersede system sensor", slog.Any("error", err))
		}
	}
	ms.scrapeStatus.WithLabelValues("system").Set(1)
}

func (c *ILOCollector) emitStorage(ms *MetricSet, model *health.Model) {
	if len(model.Controllers) == 0 {
		return
	}
	for _, controller := range model.Controllers {
		c.emit(ms, &controller.Sensor)
		for _, enclosure := range controller.Enclosures {
			c.emit(ms, enclosure)
		}
		for _, drive := range controller.LogicalDrives {
			c.emit(ms, &drive.Sensor)
			for _, disk := range drive.Disks {
				c.emit(ms, disk)
			}
		}
	}
	ms.scrapeStatus.WithLabelValues("storage").Set(1)
}

func (c *ILOCollector) emitAll(ms *MetricSet, subsystem string, sensors []*health.Sensor) {
	if len(sensors) == 0 {
		return
	}
	for _, s := range sensors {
		c.emit(ms, s)
	}
	ms.scrapeStatus.WithLabelValues(subsystem).Set(1)
}

func (c *ILOCollector) emit(ms *MetricSet, s *health.Sensor) {
	if err := ms.Emit(s); err != nil {
		c.logger.Error("failed to emit sensor", slog.Any("error", err))
	}
}

// ClassifierFromConfig builds a status classifier from the configured
// per-kind vocabulary overrides.
func ClassifierFromConfig(overrides map[string]config.StatusOverride) (*health.Classifier, error) {
	classifier := health.NewClassifier()
	for name, override := range overrides {
		kind, ok := health.KindFromName(name)
		if !ok {
			return nil, fmt.Errorf("status override for unknown sensor kind %q", name)
		}
		classifier.ExtendHealthy(kind, override.Healthy...)
		classifier.ExtendMissing(kind, override.Missing...)
	}
	return classifier, nil
}
