package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sseiler-cboe/hpilo-exporter/config"
)

func upValue(t *testing.T, holder *metricsHolder) float64 {
	t.Helper()
	families, err := holder.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == "hpilo_up" {
			return family.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatal("no hpilo_up family gathered")
	return -1
}

// A failed poll must drop hpilo_up to 0, on /metrics and in the metrics
// file, instead of leaving the last good cycle published.
func TestRunCyclePublishesFailure(t *testing.T) {
	dir := t.TempDir()
	snapshot := filepath.Join(dir, "health.json")
	metricsFile := filepath.Join(dir, "hpilo.prom")

	sc.Lock()
	sc.Config = &config.Config{
		Source:      config.SourceConfig{File: snapshot, Timeout: config.Duration(time.Minute)},
		MetricsFile: metricsFile,
	}
	sc.Unlock()

	holder := &metricsHolder{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	require.Error(t, runCycle(context.Background(), holder, logger), "snapshot does not exist yet")
	assert.Equal(t, float64(0), upValue(t, holder))
	written, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(written), "hpilo_up 0"))

	require.NoError(t, os.WriteFile(snapshot, []byte(`{
		"fans": {"Fan 1": {"label": "Fan 1", "status": "OK", "speed": [16, "Percentage"], "zone": "System"}}
	}`), 0o644))
	require.NoError(t, runCycle(context.Background(), holder, logger))
	assert.Equal(t, float64(1), upValue(t, holder))
	written, err = os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(written), "hpilo_up 1"))

	t.Run("recovery then failure drops back to 0", func(t *testing.T) {
		require.NoError(t, os.Remove(snapshot))
		require.Error(t, runCycle(context.Background(), holder, logger))
		assert.Equal(t, float64(0), upValue(t, holder))
	})
}
