package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/seenimoa/lmmarrears/pkg/models"
)

// ── Load / Defaults ──

func TestLoadReturnsDefaults(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// Simulation defaults
	if cfg.Simulation.Paths != 12000 {
		t.Errorf("Simulation.Paths: got %d, want 12000", cfg.Simulation.Paths)
	}
	if cfg.Simulation.Seed != 1897 {
		t.Errorf("Simulation.Seed: got %d, want 1897", cfg.Simulation.Seed)
	}
	if cfg.Simulation.TimeStep != 0.1 {
		t.Errorf("Simulation.TimeStep: got %f, want 0.1", cfg.Simulation.TimeStep)
	}
	if cfg.Simulation.BatchSize != 500 {
		t.Errorf("Simulation.BatchSize: got %d, want 500", cfg.Simulation.BatchSize)
	}
	if cfg.Simulation.MaxUnstableFraction != 0.01 {
		t.Errorf("Simulation.MaxUnstableFraction: got %f, want 0.01", cfg.Simulation.MaxUnstableFraction)
	}

	// Tenor and curve defaults
	if cfg.Tenor.PeriodLength != 0.5 || cfg.Tenor.Horizon != 16 {
		t.Errorf("Tenor: got %+v, want period 0.5 horizon 16", cfg.Tenor)
	}
	if len(cfg.Curve.FixingTimes) != 4 || cfg.Curve.FixingTimes[3] != 3 {
		t.Errorf("Curve.FixingTimes: got %v", cfg.Curve.FixingTimes)
	}
	for i, f := range cfg.Curve.Forwards {
		if f != 0.05 {
			t.Errorf("Curve.Forwards[%d]: got %f, want 0.05", i, f)
		}
	}

	// Model defaults
	if cfg.Volatility.A != 0.1 || cfg.Volatility.B != 0.1 || cfg.Volatility.C != 0.15 || cfg.Volatility.D != 0.15 {
		t.Errorf("Volatility: got %+v", cfg.Volatility)
	}
	if cfg.Volatility.NormalScale != 0.05 {
		t.Errorf("Volatility.NormalScale: got %f, want 0.05", cfg.Volatility.NormalScale)
	}
	if cfg.Correlation.Decay != 0.5 {
		t.Errorf("Correlation.Decay: got %f, want 0.5", cfg.Correlation.Decay)
	}
	if cfg.Model.Dynamics != "lognormal" {
		t.Errorf("Model.Dynamics: got %q, want %q", cfg.Model.Dynamics, "lognormal")
	}
	if strings.Join(cfg.Model.Measures, ",") != "terminal,spot" {
		t.Errorf("Model.Measures: got %v, want [terminal spot]", cfg.Model.Measures)
	}
	if cfg.Product.Notional != 1000 {
		t.Errorf("Product.Notional: got %f, want 1000", cfg.Product.Notional)
	}

	// Logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format: got %q, want %q", cfg.Logging.Format, "text")
	}
	if cfg.Recorder.SQLitePath != "" {
		t.Errorf("Recorder.SQLitePath: got %q, want disabled", cfg.Recorder.SQLitePath)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestDefaultMatchesLoad(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	a, _ := Dump(loaded)
	b, _ := Dump(Default())
	if string(a) != string(b) {
		t.Errorf("Default() differs from Load():\n%s\nvs\n%s", b, a)
	}
}

// ── LoadFromFile ──

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	cfgPath := writeConfig(t, `
simulation:
  paths: 5000
  seed: 42
  workers: 4
tenor:
  horizon: 3
model:
  dynamics: "normal"
  measures: ["spot"]
curve:
  fixing_times: [1, 2]
  forwards: [0.03, 0.04]
logging:
  level: "debug"
  format: "json"
`)

	cfg, err := LoadFromFile(cfgPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if cfg.Simulation.Paths != 5000 {
		t.Errorf("Simulation.Paths: got %d, want 5000", cfg.Simulation.Paths)
	}
	if cfg.Simulation.Seed != 42 {
		t.Errorf("Simulation.Seed: got %d, want 42", cfg.Simulation.Seed)
	}
	if cfg.Simulation.Workers != 4 {
		t.Errorf("Simulation.Workers: got %d, want 4", cfg.Simulation.Workers)
	}
	// Unset keys keep their defaults.
	if cfg.Simulation.TimeStep != 0.1 {
		t.Errorf("Simulation.TimeStep: got %f, want 0.1", cfg.Simulation.TimeStep)
	}
	if cfg.Tenor.Horizon != 3 {
		t.Errorf("Tenor.Horizon: got %f, want 3", cfg.Tenor.Horizon)
	}
	if cfg.Model.Dynamics != "normal" {
		t.Errorf("Model.Dynamics: got %q, want %q", cfg.Model.Dynamics, "normal")
	}
	if len(cfg.Model.Measures) != 1 || cfg.Model.Measures[0] != "spot" {
		t.Errorf("Model.Measures: got %v, want [spot]", cfg.Model.Measures)
	}
	if len(cfg.Curve.Forwards) != 2 || cfg.Curve.Forwards[1] != 0.04 {
		t.Errorf("Curve.Forwards: got %v", cfg.Curve.Forwards)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestLoadFromFileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("LoadFromFile() with nonexistent path should return error")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	cfgPath := writeConfig(t, "simulation:\n  paths: 5000\n")
	t.Setenv("LMMARREARS_SIMULATION_PATHS", "250")
	t.Setenv("LMMARREARS_MODEL_DYNAMICS", "normal")

	cfg, err := LoadFromFile(cfgPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if cfg.Simulation.Paths != 250 {
		t.Errorf("Simulation.Paths: got %d, want 250 from env", cfg.Simulation.Paths)
	}
	if cfg.Model.Dynamics != "normal" {
		t.Errorf("Model.Dynamics: got %q, want %q from env", cfg.Model.Dynamics, "normal")
	}
}

// ── Validate ──

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero paths", func(c *Config) { c.Simulation.Paths = 0 }},
		{"negative step", func(c *Config) { c.Simulation.TimeStep = -0.1 }},
		{"zero period", func(c *Config) { c.Tenor.PeriodLength = 0 }},
		{"horizon not multiple of period", func(c *Config) { c.Tenor.Horizon = 15.7 }},
		{"period not multiple of step", func(c *Config) { c.Simulation.TimeStep = 0.3 }},
		{"forward length mismatch", func(c *Config) { c.Curve.Forwards = c.Curve.Forwards[:2] }},
		{"non-increasing fixings", func(c *Config) { c.Curve.FixingTimes = []float64{0.5, 0.5, 2, 3} }},
		{"zero decay", func(c *Config) { c.Correlation.Decay = 0 }},
		{"unknown dynamics", func(c *Config) { c.Model.Dynamics = "cev" }},
		{"unknown measure", func(c *Config) { c.Model.Measures = []string{"forward"} }},
		{"no measures", func(c *Config) { c.Model.Measures = nil }},
		{"unknown format", func(c *Config) { c.Report.Format = "pdf" }},
		{"unknown grouping", func(c *Config) { c.Report.Grouping = "swiss" }},
		{"bad extrapolation", func(c *Config) { c.Curve.Extrapolation = "linear" }},
		{"unstable fraction", func(c *Config) { c.Simulation.MaxUnstableFraction = 1.5 }},
		{"bad log output", func(c *Config) { c.Logging.Output = "syslog" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, models.ErrConfiguration) {
				t.Errorf("Validate(): got %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Simulation.Paths = 0
	cfg.Correlation.Decay = -1
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() should fail")
	}
	msg := err.Error()
	if !strings.Contains(msg, "simulation.paths") || !strings.Contains(msg, "correlation.decay") {
		t.Errorf("Validate() message should name both keys, got %q", msg)
	}
}

func TestMeasuresParsed(t *testing.T) {
	cfg := Default()
	cfg.Model.Measures = []string{"SPOT", " terminal "}
	got := cfg.Measures()
	if len(got) != 2 || got[0] != models.MeasureSpot || got[1] != models.MeasureTerminal {
		t.Errorf("Measures(): got %v", got)
	}
}

// ── Dump / Fingerprint ──

func TestDumpRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Simulation.Paths = 777
	out, err := Dump(cfg)
	if err != nil {
		t.Fatalf("Dump() error: %v", err)
	}
	var back Config
	if err := yaml.Unmarshal(out, &back); err != nil {
		t.Fatalf("yaml.Unmarshal() error: %v", err)
	}
	if back.Simulation.Paths != 777 || back.Tenor.Horizon != 16 {
		t.Errorf("round trip: got paths %d horizon %v", back.Simulation.Paths, back.Tenor.Horizon)
	}
	if !strings.Contains(string(out), "max_unstable_fraction:") {
		t.Errorf("Dump() should use snake_case yaml keys:\n%s", out)
	}
}

func TestFingerprint(t *testing.T) {
	a, err := Fingerprint(Default())
	if err != nil {
		t.Fatalf("Fingerprint() error: %v", err)
	}
	b, _ := Fingerprint(Default())
	if a != b || len(a) != 16 {
		t.Errorf("Fingerprint: got %q and %q, want equal 16-char hashes", a, b)
	}
	changed := Default()
	changed.Simulation.Seed = 1
	if c, _ := Fingerprint(changed); c == a {
		t.Error("Fingerprint should change with the seed")
	}
}

// ── CheckOverrides ──

func TestCheckOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LMMARREARS_SIMULATION_SEED", "7")

	for _, s := range CheckOverrides() {
		switch s.Key {
		case "simulation.seed":
			if s.Source != SourceEnv || s.Value != "7" {
				t.Errorf("simulation.seed: got %+v, want env override 7", s)
			}
		default:
			if s.Source != SourceConfig {
				t.Errorf("%s source: got %q, want %q", s.Key, s.Source, SourceConfig)
			}
		}
	}
}

func TestEnvVar(t *testing.T) {
	if got, want := EnvVar("simulation.max_unstable_fraction"), "LMMARREARS_SIMULATION_MAX_UNSTABLE_FRACTION"; got != want {
		t.Errorf("EnvVar: got %q, want %q", got, want)
	}
}

// ── homeDir ──

func TestHomeDirReturnsNonEmpty(t *testing.T) {
	h := homeDir()
	if h == "" {
		t.Error("homeDir() should not return empty string")
	}
}

// ═══ Test Helpers ═══

func clearEnv(t *testing.T) {
	t.Helper()
	for _, e := range os.Environ() {
		if name, _, ok := strings.Cut(e, "="); ok && strings.HasPrefix(name, EnvPrefix+"_") {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test_config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

// chdir mirrors testing.T.Chdir (Go 1.24): it changes the working directory
// for the duration of the test and restores it on cleanup.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir(%q): %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Errorf("restore Chdir(%q): %v", prev, err)
		}
	})
}
