// Package config handles configuration loading for lmmarrears.
// It supports YAML config files with environment variable overrides.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/seenimoa/lmmarrears/pkg/models"
)

// EnvPrefix prefixes every environment override, e.g. LMMARREARS_SIMULATION_PATHS.
const EnvPrefix = "LMMARREARS"

// Config represents the complete application configuration.
type Config struct {
	Simulation  SimulationConfig  `mapstructure:"simulation"  yaml:"simulation"`
	Tenor       TenorConfig       `mapstructure:"tenor"       yaml:"tenor"`
	Curve       CurveConfig       `mapstructure:"curve"       yaml:"curve"`
	Volatility  VolatilityConfig  `mapstructure:"volatility"  yaml:"volatility"`
	Correlation CorrelationConfig `mapstructure:"correlation" yaml:"correlation"`
	Model       ModelConfig       `mapstructure:"model"       yaml:"model"`
	Product     ProductConfig     `mapstructure:"product"     yaml:"product"`
	Report      ReportConfig      `mapstructure:"report"      yaml:"report"`
	Logging     LoggingConfig     `mapstructure:"logging"     yaml:"logging"`
	Metrics     MetricsConfig     `mapstructure:"metrics"     yaml:"metrics"`
	Recorder    RecorderConfig    `mapstructure:"recorder"    yaml:"recorder"`
}

// SimulationConfig holds Monte Carlo settings.
type SimulationConfig struct {
	Paths               int     `mapstructure:"paths"                 yaml:"paths"`
	Seed                int64   `mapstructure:"seed"                  yaml:"seed"`
	TimeStep            float64 `mapstructure:"time_step"             yaml:"time_step"`
	Workers             int     `mapstructure:"workers"               yaml:"workers"` // 0 = one per CPU
	BatchSize           int     `mapstructure:"batch_size"            yaml:"batch_size"`
	MaxUnstableFraction float64 `mapstructure:"max_unstable_fraction" yaml:"max_unstable_fraction"`
	RetainPathValues    bool    `mapstructure:"retain_path_values"    yaml:"retain_path_values"`
}

// TenorConfig describes the LIBOR period structure.
type TenorConfig struct {
	PeriodLength float64 `mapstructure:"period_length" yaml:"period_length"`
	Horizon      float64 `mapstructure:"horizon"       yaml:"horizon"`
}

// CurveConfig holds the initial forward fixings.
type CurveConfig struct {
	FixingTimes   []float64 `mapstructure:"fixing_times"  yaml:"fixing_times"`
	Forwards      []float64 `mapstructure:"forwards"      yaml:"forwards"`
	Extrapolation string    `mapstructure:"extrapolation" yaml:"extrapolation"` // "constant" or "none"
}

// VolatilityConfig holds σ(τ) = d + (a + bτ)·exp(-cτ).
type VolatilityConfig struct {
	A           float64 `mapstructure:"a"            yaml:"a"`
	B           float64 `mapstructure:"b"            yaml:"b"`
	C           float64 `mapstructure:"c"            yaml:"c"`
	D           float64 `mapstructure:"d"            yaml:"d"`
	NormalScale float64 `mapstructure:"normal_scale" yaml:"normal_scale"`
}

// CorrelationConfig holds the exponential decay parameter.
type CorrelationConfig struct {
	Decay float64 `mapstructure:"decay" yaml:"decay"`
}

// ModelConfig selects dynamics and measures.
type ModelConfig struct {
	Dynamics string   `mapstructure:"dynamics" yaml:"dynamics"` // "lognormal" or "normal"
	Measures []string `mapstructure:"measures" yaml:"measures"` // "terminal", "spot"
}

// ProductConfig holds contract terms.
type ProductConfig struct {
	Notional float64 `mapstructure:"notional" yaml:"notional"`
}

// ReportConfig holds output rendering settings.
type ReportConfig struct {
	Format   string `mapstructure:"format"   yaml:"format"`   // "text", "json", "csv", "html"
	Decimals int    `mapstructure:"decimals" yaml:"decimals"`
	Grouping string `mapstructure:"grouping" yaml:"grouping"` // "none", "international", "indian"
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"       yaml:"level"`  // "debug", "info", "warn", "error"
	Format     string `mapstructure:"format"      yaml:"format"` // "text" or "json"
	Output     string `mapstructure:"output"      yaml:"output"` // "stderr", "file", "both"
	FilePath   string `mapstructure:"file_path"   yaml:"file_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
}

// MetricsConfig holds Prometheus textfile export settings.
type MetricsConfig struct {
	TextfilePath string `mapstructure:"textfile_path" yaml:"textfile_path"` // empty = disabled
	Namespace    string `mapstructure:"namespace"     yaml:"namespace"`
}

// RecorderConfig holds run-summary persistence settings.
type RecorderConfig struct {
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"` // empty = disabled
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.lmmarrears/config.yaml (home directory)
//  3. /etc/lmmarrears/config.yaml (system)
//
// Environment variables override config file values.
// Format: LMMARREARS_<SECTION>_<KEY>, e.g., LMMARREARS_SIMULATION_PATHS
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".lmmarrears"))
	v.AddConfigPath("/etc/lmmarrears")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return unmarshal(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return unmarshal(v)
}

// Default returns the built-in configuration without reading files or the
// environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults are static; decoding them cannot fail.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// setDefaults reproduces the reference run: 12000 paths over a 16y
// half-yearly tenor structure on a 0.1y Euler grid.
func setDefaults(v *viper.Viper) {
	// Simulation defaults
	v.SetDefault("simulation.paths", 12000)
	v.SetDefault("simulation.seed", 1897)
	v.SetDefault("simulation.time_step", 0.1)
	v.SetDefault("simulation.workers", 0)
	v.SetDefault("simulation.batch_size", 500)
	v.SetDefault("simulation.max_unstable_fraction", 0.01)
	v.SetDefault("simulation.retain_path_values", false)

	// Tenor defaults
	v.SetDefault("tenor.period_length", 0.5)
	v.SetDefault("tenor.horizon", 16.0)

	// Curve defaults
	v.SetDefault("curve.fixing_times", []float64{0.5, 1.0, 2.0, 3.0})
	v.SetDefault("curve.forwards", []float64{0.05, 0.05, 0.05, 0.05})
	v.SetDefault("curve.extrapolation", string(models.ExtrapolationConstant))

	// Volatility and correlation defaults
	v.SetDefault("volatility.a", 0.1)
	v.SetDefault("volatility.b", 0.1)
	v.SetDefault("volatility.c", 0.15)
	v.SetDefault("volatility.d", 0.15)
	v.SetDefault("volatility.normal_scale", 0.05)
	v.SetDefault("correlation.decay", 0.5)

	// Model defaults
	v.SetDefault("model.dynamics", string(models.DynamicsLognormal))
	v.SetDefault("model.measures", []string{string(models.MeasureTerminal), string(models.MeasureSpot)})

	// Product defaults
	v.SetDefault("product.notional", 1000.0)

	// Report defaults
	v.SetDefault("report.format", "text")
	v.SetDefault("report.decimals", 6)
	v.SetDefault("report.grouping", "none")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("logging.file_path", "lmmarrears.log")
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 3)

	// Metrics and recorder defaults (disabled)
	v.SetDefault("metrics.textfile_path", "")
	v.SetDefault("metrics.namespace", "lmmarrears")
	v.SetDefault("recorder.sqlite_path", "")
}

// ════════════════════════════════════════════════════════════════════
// Validation
// ════════════════════════════════════════════════════════════════════

const gridTolerance = 1e-9

// Validate checks the configuration before any simulation. Every problem is
// reported; each wraps models.ErrConfiguration.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{models.ErrConfiguration}, args...)...))
	}

	s := c.Simulation
	if s.Paths <= 0 {
		add("simulation.paths must be positive, got %d", s.Paths)
	}
	if !(s.TimeStep > 0) {
		add("simulation.time_step must be positive, got %v", s.TimeStep)
	}
	if s.Workers < 0 {
		add("simulation.workers must not be negative, got %d", s.Workers)
	}
	if s.BatchSize <= 0 {
		add("simulation.batch_size must be positive, got %d", s.BatchSize)
	}
	if s.MaxUnstableFraction < 0 || s.MaxUnstableFraction > 1 {
		add("simulation.max_unstable_fraction must be in [0, 1], got %v", s.MaxUnstableFraction)
	}

	t := c.Tenor
	if !(t.PeriodLength > 0) {
		add("tenor.period_length must be positive, got %v", t.PeriodLength)
	}
	if !(t.Horizon > 0) {
		add("tenor.horizon must be positive, got %v", t.Horizon)
	}
	if t.PeriodLength > 0 && t.Horizon > 0 && !isMultiple(t.Horizon, t.PeriodLength) {
		add("tenor.horizon %v is not a multiple of tenor.period_length %v", t.Horizon, t.PeriodLength)
	}
	if t.PeriodLength > 0 && s.TimeStep > 0 && !isMultiple(t.PeriodLength, s.TimeStep) {
		add("tenor.period_length %v is not a multiple of simulation.time_step %v", t.PeriodLength, s.TimeStep)
	}

	cv := c.Curve
	if len(cv.FixingTimes) == 0 {
		add("curve.fixing_times must not be empty")
	}
	if len(cv.FixingTimes) != len(cv.Forwards) {
		add("curve has %d fixing times but %d forwards", len(cv.FixingTimes), len(cv.Forwards))
	}
	for i := 1; i < len(cv.FixingTimes); i++ {
		if cv.FixingTimes[i] <= cv.FixingTimes[i-1] {
			add("curve.fixing_times must be strictly increasing (%v after %v)", cv.FixingTimes[i], cv.FixingTimes[i-1])
			break
		}
	}
	switch models.Extrapolation(strings.ToLower(cv.Extrapolation)) {
	case models.ExtrapolationConstant, models.ExtrapolationNone:
	default:
		add("unknown curve.extrapolation %q", cv.Extrapolation)
	}

	if !(c.Correlation.Decay > 0) {
		add("correlation.decay must be positive, got %v", c.Correlation.Decay)
	}
	if c.Volatility.NormalScale < 0 {
		add("volatility.normal_scale must not be negative, got %v", c.Volatility.NormalScale)
	}

	if _, err := models.ParseDynamics(c.Model.Dynamics); err != nil {
		errs = append(errs, err)
	}
	if len(c.Model.Measures) == 0 {
		add("model.measures must not be empty")
	}
	for _, m := range c.Model.Measures {
		if _, err := models.ParseMeasure(m); err != nil {
			errs = append(errs, err)
		}
	}

	switch strings.ToLower(c.Report.Format) {
	case "text", "json", "csv", "html":
	default:
		add("unknown report.format %q", c.Report.Format)
	}
	switch strings.ToLower(c.Report.Grouping) {
	case "", "none", "international", "indian":
	default:
		add("unknown report.grouping %q", c.Report.Grouping)
	}
	if c.Report.Decimals < 0 || c.Report.Decimals > 12 {
		add("report.decimals must be in [0, 12], got %d", c.Report.Decimals)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		add("unknown logging.format %q", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Output) {
	case "stderr", "file", "both":
	default:
		add("unknown logging.output %q", c.Logging.Output)
	}

	return errors.Join(errs...)
}

// Measures returns the parsed measure list. Call after Validate.
func (c *Config) Measures() []models.Measure {
	out := make([]models.Measure, 0, len(c.Model.Measures))
	for _, m := range c.Model.Measures {
		if parsed, err := models.ParseMeasure(m); err == nil {
			out = append(out, parsed)
		}
	}
	return out
}

func isMultiple(value, step float64) bool {
	n := math.Round(value / step)
	return n >= 1 && math.Abs(n*step-value) <= gridTolerance
}

// ════════════════════════════════════════════════════════════════════
// Dump / fingerprint
// ════════════════════════════════════════════════════════════════════

// Dump renders the effective configuration as YAML.
func Dump(cfg *Config) ([]byte, error) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return out, nil
}

// Fingerprint returns a short hash of the effective configuration, used to
// group recorded runs.
func Fingerprint(cfg *Config) (string, error) {
	out, err := Dump(cfg)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(out)
	return hex.EncodeToString(sum[:8]), nil
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
