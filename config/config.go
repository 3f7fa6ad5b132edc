package config

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	yaml "gopkg.in/yaml.v3"
)

var (
	// DefaultSource runs the bundled health dump helper.
	DefaultSource = SourceConfig{
		Command: "hpilo-health",
		Args:    []string{"--json"},
		Timeout: Duration(3 * time.Minute),
	}
	// DefaultExtraMetric is a default unless the user provides particular values.
	DefaultExtraMetric = ExtraMetricConfig{
		Timeout: Duration(10 * time.Second),
	}
	// DefaultConfig holds the defaults applied before unmarshaling.
	DefaultConfig = Config{
		Loglevel:        "info",
		RefreshInterval: Duration(3 * time.Minute),
		Source:          DefaultSource,
	}
)

// Duration wraps time.Duration with YAML string support ("90s", "3m").
type Duration time.Duration

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// SourceConfig selects where the raw health document comes from: a dump
// command, or a JSON snapshot file written out of band. File wins when both
// are set.
type SourceConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	File    string   `yaml:"file"`
	Timeout Duration `yaml:"timeout"`
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (s *SourceConfig) UnmarshalYAML(unmarshal func(any) error) error {
	*s = DefaultSource
	type plain SourceConfig

	if err := unmarshal((*plain)(s)); err != nil {
		return err
	}

	return nil
}

// StatusOverride extends a sensor kind's status vocabulary. Firmware
// revisions introduce new strings; operators fold them in here instead of
// waiting for a release.
type StatusOverride struct {
	Healthy []string `yaml:"healthy"`
	Missing []string `yaml:"missing"`
}

// ExtraMetricConfig defines one user-supplied gauge extracted from the raw
// health document with a JQ filter.
type ExtraMetricConfig struct {
	JQFilter string   `yaml:"jq_filter"`
	Timeout  Duration `yaml:"timeout"`
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (e *ExtraMetricConfig) UnmarshalYAML(unmarshal func(any) error) error {
	*e = DefaultExtraMetric
	type plain ExtraMetricConfig

	if err := unmarshal((*plain)(e)); err != nil {
		return err
	}
	if e.JQFilter == "" {
		return fmt.Errorf("extra metrics require a jq_filter to be set")
	}
	return nil
}

// Config represents the hpilo-exporter config file.
type Config struct {
	Loglevel        string                       `yaml:"loglevel"`
	RefreshInterval Duration                     `yaml:"refresh_interval"`
	MetricsFile     string                       `yaml:"metrics_file"`
	Source          SourceConfig                 `yaml:"source"`
	StatusOverrides map[string]StatusOverride    `yaml:"status_overrides"`
	ExtraMetrics    map[string]ExtraMetricConfig `yaml:"extra_metrics"`
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (c *Config) UnmarshalYAML(unmarshal func(any) error) error {
	*c = DefaultConfig
	type plain Config
	if err := unmarshal((*plain)(c)); err != nil {
		return err
	}
	return nil
}

// SafeConfig is a mutex-enabled Config.
type SafeConfig struct {
	sync.RWMutex
	Config *Config
}

// Read exporter config from an input file path.
func NewConfigFromFile(configFilePath string) (*Config, error) {
	file, err := os.Open(configFilePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return readConfigFrom(file)
}

func readConfigFrom(r io.Reader) (*Config, error) {
	config := &Config{}
	if err := yaml.NewDecoder(r).Decode(config); err != nil {
		return config, err
	}

	return config, nil
}

// ReloadConfig reads a given configuration file.
// If successfully read, the SafeConfig mutex is obtained and config structure rebuilt.
func (sc *SafeConfig) ReloadConfig(configFile string) error {
	var c, err = NewConfigFromFile(configFile)
	if err != nil {
		return err
	}

	sc.Lock()
	sc.Config = c
	sc.Unlock()

	return nil
}

// Snapshot returns the current config under the read lock. Callers must not
// mutate the result.
func (sc *SafeConfig) Snapshot() *Config {
	sc.RLock()
	defer sc.RUnlock()
	return sc.Config
}

// AppLogLevel applies a log level to the application.
func (sc *SafeConfig) AppLogLevel() string {
	sc.RLock()
	defer sc.RUnlock()
	logLevel := sc.Config.Loglevel
	if logLevel != "" {
		return logLevel
	}
	return "info"
}
