package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"airportsearch/internal/filter"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return fs
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(viper.New(), newFlags(t), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.FilterMode != "flatten" || cfg.Output != OutputList || cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Prompt != PromptAuto || cfg.Snapshot || cfg.Watch || cfg.PollInterval != 0 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if !errors.Is(cfg.Validate(), ErrNoData) {
		t.Errorf("Validate = %v, want ErrNoData", cfg.Validate())
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yaml := strings.Join([]string{
		"data:",
		"  - file.csv",
		"filter_mode: disjunctive",
		"output: table",
		"poll_interval: 30s",
		"min_rebuild_interval: 5s",
		"log_level: warn",
	}, "\n")
	if err := os.WriteFile(filepath.Join(dir, "airportsearch.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("AIRPORTSEARCH_OUTPUT", "json")
	t.Setenv("AIRPORTSEARCH_LOG_LEVEL", "debug")

	cfg, err := Load(viper.New(), newFlags(t, "--log-level=error", "--watch"), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !slices.Equal(cfg.Data, []string{"file.csv"}) {
		t.Errorf("Data = %v, want from file", cfg.Data)
	}
	if cfg.FilterMode != "disjunctive" {
		t.Errorf("FilterMode = %q, want from file", cfg.FilterMode)
	}
	if cfg.PollInterval != 30*time.Second || cfg.MinRebuildInterval != 5*time.Second {
		t.Errorf("PollInterval = %v, MinRebuildInterval = %v", cfg.PollInterval, cfg.MinRebuildInterval)
	}
	if cfg.Output != OutputJSON {
		t.Errorf("Output = %q, want env to override file", cfg.Output)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("LogLevel = %q, want flag to override env", cfg.LogLevel)
	}
	if !cfg.Watch {
		t.Error("Watch should be set by flag")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if cfg.Mode() != filter.ModeDisjunctive {
		t.Errorf("Mode = %s", cfg.Mode())
	}
}

func TestLoadDataFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("AIRPORTSEARCH_DATA", "a.csv,b/*.csv.gz")

	cfg, err := Load(viper.New(), nil, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !slices.Equal(cfg.Data, []string{"a.csv", "b/*.csv.gz"}) {
		t.Errorf("Data = %q", cfg.Data)
	}
}

func TestLoadSearchDirs(t *testing.T) {
	t.Chdir(t.TempDir())
	homeDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(homeDir, "airportsearch.yaml"), []byte("output: table\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(viper.New(), nil, "", homeDir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Output != OutputTable {
		t.Errorf("Output = %q, want table from home config", cfg.Output)
	}
}

func TestLoadExplicitConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("snapshot: true\ndata: [x.csv]\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(viper.New(), nil, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Snapshot || !slices.Equal(cfg.Data, []string{"x.csv"}) {
		t.Errorf("cfg = %+v", cfg)
	}

	if _, err := Load(viper.New(), nil, filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestLoadLogLevels(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	yaml := "log_levels:\n  query-engine: debug\n  reload: warn\n"
	if err := os.WriteFile(filepath.Join(dir, "airportsearch.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(viper.New(), newFlags(t), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	levels := cfg.ComponentLevels()
	if len(levels) != 2 || levels["query-engine"] != slog.LevelDebug || levels["reload"] != slog.LevelWarn {
		t.Errorf("ComponentLevels = %v", levels)
	}

	cfg, err = Load(viper.New(), newFlags(t, "--log-levels=repl=error"), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	levels = cfg.ComponentLevels()
	if len(levels) != 1 || levels["repl"] != slog.LevelError {
		t.Errorf("flag should replace file levels, got %v", levels)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Data:       []string{"a.csv"},
			FilterMode: "flatten",
			LogLevel:   "info",
			LogFormat:  "text",
			Output:     OutputList,
			Prompt:     PromptAuto,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"no data", func(c *Config) { c.Data = nil }, true},
		{"bad filter mode", func(c *Config) { c.FilterMode = "or" }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"component log level", func(c *Config) { c.LogLevels = map[string]string{"reload": "debug"} }, false},
		{"bad component log level", func(c *Config) { c.LogLevels = map[string]string{"reload": "chatty"} }, true},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, true},
		{"bad output", func(c *Config) { c.Output = "csv" }, true},
		{"bad prompt", func(c *Config) { c.Prompt = "sometimes" }, true},
		{"negative poll", func(c *Config) { c.PollInterval = -time.Second }, true},
		{"negative rebuild interval", func(c *Config) { c.MinRebuildInterval = -time.Second }, true},
		{"valid cron", func(c *Config) { c.RebuildCron = "0 3 * * *" }, false},
		{"valid 6-field cron", func(c *Config) { c.RebuildCron = "30 0 3 * * *" }, false},
		{"bad cron", func(c *Config) { c.RebuildCron = "every night" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := Config{FilterMode: "x", LogLevel: "info", LogFormat: "text", Output: "csv", Prompt: PromptAuto}
	err := cfg.Validate()
	if !errors.Is(err, ErrNoData) {
		t.Errorf("error should include ErrNoData: %v", err)
	}
	if !strings.Contains(err.Error(), "filter mode") || !strings.Contains(err.Error(), "output format") {
		t.Errorf("error should mention every problem: %v", err)
	}
}

func TestReloading(t *testing.T) {
	if (&Config{}).Reloading() {
		t.Error("zero config should not reload")
	}
	for _, c := range []Config{{Watch: true}, {PollInterval: time.Minute}, {RebuildCron: "@daily"}} {
		if !c.Reloading() {
			t.Errorf("%+v should reload", c)
		}
	}
}
