package config

import (
	"os"
	"strings"
)

// SettingSource represents where a setting's value comes from.
type SettingSource string

const (
	SourceEnv    SettingSource = "env"
	SourceConfig SettingSource = "config" // config file or built-in default
)

// SettingStatus describes one environment-overridable setting.
type SettingStatus struct {
	Key    string        `json:"key"`
	EnvVar string        `json:"env_var"`
	Source SettingSource `json:"source"`
	Value  string        `json:"value,omitempty"` // raw env value when overridden
}

// overridableKeys are the settings most often changed per run.
var overridableKeys = []string{
	"simulation.paths",
	"simulation.seed",
	"simulation.workers",
	"simulation.batch_size",
	"model.dynamics",
	"model.measures",
	"report.format",
	"logging.level",
	"metrics.textfile_path",
	"recorder.sqlite_path",
}

// EnvVar returns the environment variable that overrides key.
func EnvVar(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// CheckOverrides reports which common settings are overridden from the
// environment.
func CheckOverrides() []SettingStatus {
	out := make([]SettingStatus, 0, len(overridableKeys))
	for _, key := range overridableKeys {
		out = append(out, checkSetting(key))
	}
	return out
}

func checkSetting(key string) SettingStatus {
	env := EnvVar(key)
	status := SettingStatus{Key: key, EnvVar: env, Source: SourceConfig}
	if value, ok := os.LookupEnv(env); ok && value != "" {
		status.Source = SourceEnv
		status.Value = value
	}
	return status
}
