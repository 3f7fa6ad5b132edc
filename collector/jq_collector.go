package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/itchyny/gojq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sseiler-cboe/hpilo-exporter/config"
	"github.com/sseiler-cboe/hpilo-exporter/health"
)

// YieldedMetric is a metric-like struct built from applying a JQ filter to
// the raw health document.
type YieldedMetric struct {
	Name   string
	Help   string
	Value  float64
	Labels map[string]string
}

// ExtraMetric applies one user-configured JQ filter to the raw health
// document each cycle, turning the yielded items into gauge series. It
// exists for the telemetry the fixed sensor model does not cover: firmware
// oddities, OEM fields, one-off counters.
type ExtraMetric struct {
	name    string
	query   *gojq.Query
	timeout time.Duration
}

// NewExtraMetric parses the configured filter.
func NewExtraMetric(name string, cfg config.ExtraMetricConfig) (*ExtraMetric, error) {
	query, err := gojq.Parse(cfg.JQFilter)
	if err != nil {
		return nil, fmt.Errorf("jq parse error in extra metric %q: %w", name, err)
	}
	return &ExtraMetric{name: name, query: query, timeout: cfg.Timeout.Std()}, nil
}

// ExtraMetricsFromConfig builds all configured extractors, in name order.
func ExtraMetricsFromConfig(cfgs map[string]config.ExtraMetricConfig) ([]*ExtraMetric, error) {
	var extras []*ExtraMetric
	for _, name := range slices.Sorted(maps.Keys(cfgs)) {
		extra, err := NewExtraMetric(name, cfgs[name])
		if err != nil {
			return nil, err
		}
		extras = append(extras, extra)
	}
	return extras, nil
}

// Emit runs the filter against the document and registers the yielded
// gauges on the cycle's metric set. Filter and item errors are logged and
// skipped; extra metrics never fail a cycle.
func (e *ExtraMetric) Emit(ctx context.Context, doc health.Document, ms *MetricSet, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	yielded, err := e.run(ctx, doc)
	if err != nil {
		logger.Warn("extra metric filter failed",
			slog.String("extra_metric", e.name), slog.Any("error", err))
	}

	vecs := map[string]*prometheus.GaugeVec{}
	for _, metric := range yielded {
		keys := slices.Sorted(maps.Keys(metric.Labels))
		vec, ok := vecs[metric.Name]
		if !ok {
			vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: metric.Name, Help: metric.Help}, keys)
			if err := ms.registry.Register(vec); err != nil {
				logger.Warn("extra metric collides with an existing series",
					slog.String("extra_metric", e.name), slog.Any("error", err))
				continue
			}
			vecs[metric.Name] = vec
		}
		gauge, err := vec.GetMetricWith(prometheus.Labels(metric.Labels))
		if err != nil {
			logger.Warn("extra metric item has inconsistent labels",
				slog.String("extra_metric", e.name), slog.Any("error", err))
			continue
		}
		gauge.Set(metric.Value)
	}
}

// run applies the JQ query. The result of the filter is expected to yield
// lists of items each carrying name, help, value, and optionally labels;
// items that do not are skipped, with their errors joined and returned.
func (e *ExtraMetric) run(ctx context.Context, doc health.Document) ([]YieldedMetric, error) {
	var yielded []YieldedMetric
	var parseErrors []error

	iter := e.query.RunWithContext(ctx, map[string]any(doc))
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			if haltErr, ok := err.(*gojq.HaltError); ok && haltErr.Value() == nil {
				break
			}
			return nil, err
		}
		if container, ok := v.([]any); ok {
			for _, items := range container {
				if item, ok := items.(map[string]any); ok {
					metric, err := convertToMetric(item)
					if err != nil {
						parseErrors = append(parseErrors, err)
						continue
					}
					yielded = append(yielded, metric)
				}
			}
		}
	}
	return yielded, errors.Join(parseErrors...)
}

// convertToMetric yields a typed struct through type assertions on one item
// produced by the JQ filter.
func convertToMetric(item map[string]any) (YieldedMetric, error) {
	ret := YieldedMetric{
		Labels: map[string]string{},
	}
	var convertErrors []error
	keys := slices.Sorted(maps.Keys(item))

	if iName, ok := item["name"]; ok {
		if strName, ok := iName.(string); ok {
			ret.Name = strName
		} else {
			convertErrors = append(convertErrors, fmt.Errorf("item contained a non-string name"))
		}
	} else {
		convertErrors = append(convertErrors, fmt.Errorf("item missing name, provided keys: %s", keys))
	}

	if iVal, ok := item["value"]; ok {
		// gojq yields int for integer-valued results and float64 otherwise.
		switch val := iVal.(type) {
		case float64:
			ret.Value = val
		case int:
			ret.Value = float64(val)
		default:
			convertErrors = append(convertErrors, fmt.Errorf("item contained a non-numeric value"))
		}
	} else {
		convertErrors = append(convertErrors, fmt.Errorf("item missing value, provided keys: %s", keys))
	}

	if iHelp, ok := item["help"]; ok {
		if strHelp, ok := iHelp.(string); ok {
			ret.Help = strHelp
		} else {
			convertErrors = append(convertErrors, fmt.Errorf("item contained a non-string help"))
		}
	} else {
		convertErrors = append(convertErrors, fmt.Errorf("item missing help, provided keys: %s", keys))
	}

	if iLabels, ok := item["labels"]; ok {
		if mapLabels, ok := iLabels.(map[string]any); ok {
			for lName, lVal := range mapLabels {
				if valStr, ok := lVal.(string); ok {
					ret.Labels[lName] = valStr
				}
			}
		}
	}

	return ret, errors.Join(convertErrors...)
}
