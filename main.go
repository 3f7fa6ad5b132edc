package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/prometheus/exporter-toolkit/web"

	"github.com/sseiler-cboe/hpilo-exporter/collector"
	"github.com/sseiler-cboe/hpilo-exporter/config"
	"github.com/sseiler-cboe/hpilo-exporter/ilo"
)

var (
	webConfig     = flag.String("web.config-file", "", "Path to web configuration file.")
	configFile    = flag.String("config.file", "config.yml", "Path to configuration file.")
	pprofEnabled  = flag.Bool("pprof.enabled", false, "Enable pprof handler at /debug/pprof")
	runOnce       = flag.Bool("once", false, "Run a single poll cycle, write the metrics file, and exit.")
	listenAddress = flag.String(
		"web.listen-address",
		":9416",
		"Address to listen on for web interface and telemetry.",
	)
	sc = &config.SafeConfig{
		Config: &config.Config{},
	}
	reloadCh chan chan error
)

// metricsHolder publishes the metric set of the most recent completed poll
// cycle. Cycles build an entirely new set and swap it in, so scrapes never
// observe a half-built cycle.
type metricsHolder struct {
	current atomic.Pointer[collector.MetricSet]
}

// Gather implements prometheus.Gatherer over the current cycle.
func (h *metricsHolder) Gather() ([]*dto.MetricFamily, error) {
	ms := h.current.Load()
	if ms == nil {
		return nil, nil
	}
	return ms.Gather()
}

func reloadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "POST" || r.Method == "PUT" {
			slog.Info("Triggered configuration reload from /-/reload HTTP endpoint")
			rc := make(chan error)
			reloadCh <- rc
			if err := <-rc; err != nil {
				slog.Error("failed to reload config file", slog.Any("error", err))
				http.Error(w, "failed to reload config file", http.StatusInternalServerError)
				return
			}

			w.WriteHeader(http.StatusOK)
			_, err := io.WriteString(w, "Configuration reloaded successfully!")
			if err != nil {
				slog.Warn("failed to send configuration reload status message")
			}
		} else {
			http.Error(w, "Only PUT and POST methods are allowed", http.StatusBadRequest)
		}
	}
}

// newCollector assembles a collector from the current configuration.
func newCollector(cfg *config.Config, logger *slog.Logger) (*collector.ILOCollector, error) {
	classifier, err := collector.ClassifierFromConfig(cfg.StatusOverrides)
	if err != nil {
		return nil, err
	}
	extras, err := collector.ExtraMetricsFromConfig(cfg.ExtraMetrics)
	if err != nil {
		return nil, err
	}

	var client ilo.Client
	if cfg.Source.File != "" {
		client = ilo.NewFileClient(cfg.Source.File)
	} else {
		cc := ilo.NewCommandClient(cfg.Source.Command, cfg.Source.Args...)
		cc.Timeout = cfg.Source.Timeout.Std()
		client = cc
	}

	c := collector.New(client, classifier, logger)
	c.WithExtraMetrics(extras)
	return c, nil
}

// runCycle performs one poll cycle and publishes its result. A failed cycle
// still publishes: hpilo_up drops to 0 instead of the last good cycle being
// served indefinitely.
func runCycle(ctx context.Context, holder *metricsHolder, logger *slog.Logger) error {
	cfg := sc.Snapshot()
	c, err := newCollector(cfg, logger)
	if err != nil {
		publishDown(cfg, holder, logger)
		return fmt.Errorf("building collector: %w", err)
	}

	ms, err := c.Collect(ctx)
	if err != nil {
		publishDown(cfg, holder, logger)
		return err
	}
	holder.current.Store(ms)

	if cfg.MetricsFile != "" {
		if err := writeMetricsFile(cfg.MetricsFile, ms); err != nil {
			return fmt.Errorf("writing metrics file: %w", err)
		}
	}
	return nil
}

// publishDown replaces the published cycle with one reading hpilo_up=0.
func publishDown(cfg *config.Config, holder *metricsHolder, logger *slog.Logger) {
	ms := collector.Unavailable()
	holder.current.Store(ms)
	if cfg.MetricsFile != "" {
		if err := writeMetricsFile(cfg.MetricsFile, ms); err != nil {
			logger.Error("writing metrics file", slog.Any("error", err))
		}
	}
}

// writeMetricsFile renders the cycle's registry in text exposition format.
// The write goes through a temp file and rename so scrapers of the file
// never see a torn snapshot.
func writeMetricsFile(path string, ms *collector.MetricSet) error {
	families, err := ms.Gather()
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(f, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, family := range families {
		if err := enc.Encode(family); err != nil {
			f.Close()
			return err
		}
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// pollLoop runs cycles at the configured refresh interval until ctx ends.
func pollLoop(ctx context.Context, holder *metricsHolder, logger *slog.Logger) {
	for {
		interval := sc.Snapshot().RefreshInterval.Std()
		if interval <= 0 {
			interval = 3 * time.Minute
		}
		start := time.Now()
		if err := runCycle(ctx, holder, logger); err != nil {
			logger.Error("poll cycle failed", slog.Any("error", err))
		} else {
			logger.Info("poll cycle completed", slog.Duration("elapsed", time.Since(start)))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// Parse the log level from input
func parseLogLevel(level string) slog.Level {
	ret := slog.LevelInfo
	switch level {
	case "debug":
		ret = slog.LevelDebug
	case "info":
		ret = slog.LevelInfo
	case "warn":
		ret = slog.LevelWarn
	case "error":
		ret = slog.LevelError
	default:
		slog.Warn("Invalid loglevel provided. Fallback to default")
	}

	return ret
}

func main() {
	slog.Info("Starting hpilo-exporter")
	flag.Parse()

	// load config first time
	if err := sc.ReloadConfig(*configFile); err != nil {
		slog.Error("Error parsing config file", slog.Any("error", err))
		os.Exit(1)
	}

	// Setup final logger from config
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(sc.AppLogLevel()),
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, opts))
	slog.SetDefault(logger)

	slog.Info("Config successfully parsed", slog.String("loglevel", opts.Level.Level().String()))

	holder := &metricsHolder{}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *runOnce {
		if err := runCycle(ctx, holder, logger); err != nil {
			slog.Error("poll cycle failed", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	// reload config in background on SIGHUP or /-/reload
	hup := make(chan os.Signal, 1)
	reloadCh = make(chan chan error)
	signal.Notify(hup, syscall.SIGHUP)

	go func() {
		for {
			select {
			case <-hup:
				if err := sc.ReloadConfig(*configFile); err != nil {
					slog.Error("failed to reload config file", slog.Any("error", err))
					break
				}
				slog.Info("config file reloaded", slog.String("operation", "sc.ReloadConfig"))
			case rc := <-reloadCh:
				if err := sc.ReloadConfig(*configFile); err != nil {
					slog.Error("failed to reload config file", slog.Any("error", err))
					rc <- err
					break
				}
				slog.Info("config file reloaded", slog.String("operation", "sc.ReloadConfig"))
				rc <- nil
			}
		}
	}()

	go pollLoop(ctx, holder, logger)

	mux := http.NewServeMux()

	gatherers := prometheus.Gatherers{
		prometheus.DefaultGatherer,
		holder,
	}
	mux.Handle("/metrics", promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{}))
	mux.Handle("/-/reload", reloadHandler())

	if *pprofEnabled {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
		mux.Handle("/debug/pprof/heap", pprof.Handler("heap"))
		mux.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
		mux.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
		mux.Handle("/debug/pprof/block", pprof.Handler("block"))
		mux.Handle("/debug/pprof/mutex", pprof.Handler("mutex"))
		mux.Handle("/debug/pprof/allocs", pprof.Handler("allocs"))

		slog.Info("pprof endpoints enabled", slog.Any("endpoint", "/debug/pprof/"))
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// nolint
		w.Write([]byte(`<html>
            <head>
            <title>HP iLO Exporter</title>
            </head>
            <body>
            <h1>hpilo-exporter</h1>
            <p><a href="/metrics">Metrics</a></p>
            </body>
            </html>`))
	})

	exporterToolkitConf := web.FlagConfig{
		WebListenAddresses: &([]string{*listenAddress}),
		WebConfigFile:      webConfig,
	}
	slog.Info("Exporter started", slog.String("listenAddress", *listenAddress))
	srv := &http.Server{
		Handler: mux,
	}
	err := web.ListenAndServe(srv, &exporterToolkitConf, logger)
	if err != nil {
		log.Fatal(err)
	}
}
