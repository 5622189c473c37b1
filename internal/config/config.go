// Package config loads the airportsearch runtime configuration.
//
// Values come from, lowest precedence first: built-in defaults, the YAML
// config file, AIRPORTSEARCH_* environment variables, then command-line
// flags. Keys use underscores; the matching flags use dashes
// (filter_mode ↔ --filter-mode).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"airportsearch/internal/filter"
	"airportsearch/internal/logging"

	"github.com/go-co-op/gocron/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment variable names.
const EnvPrefix = "AIRPORTSEARCH"

// Output formats.
const (
	OutputList  = "list"
	OutputTable = "table"
	OutputJSON  = "json"
)

// Prompt modes.
const (
	PromptAuto   = "auto"
	PromptAlways = "always"
	PromptNever  = "never"
)

// ErrNoData is returned by Validate when no data paths are configured.
var ErrNoData = errors.New("no data files configured")

// Config is the runtime configuration.
type Config struct {
	// Data lists data file paths or doublestar globs.
	Data []string `mapstructure:"data"`

	// FilterMode is "flatten" or "disjunctive".
	FilterMode string `mapstructure:"filter_mode"`

	// Snapshot enables name index snapshots under the home directory.
	Snapshot bool `mapstructure:"snapshot"`

	// Watch rebuilds the index when data files change (fsnotify).
	Watch bool `mapstructure:"watch"`

	// PollInterval re-checks the data fingerprint periodically. Zero disables.
	PollInterval time.Duration `mapstructure:"poll_interval"`

	// RebuildCron forces a rebuild on a cron schedule (5 or 6 fields).
	// Empty disables.
	RebuildCron string `mapstructure:"rebuild_cron"`

	// MinRebuildInterval is the shortest time between two rebuilds.
	MinRebuildInterval time.Duration `mapstructure:"min_rebuild_interval"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// LogLevels overrides LogLevel per component ("query-engine": "debug").
	LogLevels map[string]string `mapstructure:"log_levels"`

	// Output is "list", "table" or "json".
	Output string `mapstructure:"output"`

	// Prompt controls REPL prompts: "auto" shows them only on a terminal.
	Prompt string `mapstructure:"prompt"`

	// Home overrides the home directory.
	Home string `mapstructure:"home"`
}

// flagNames maps config keys to their command-line flag.
var flagNames = map[string]string{
	"data":                 "data",
	"filter_mode":          "filter-mode",
	"snapshot":             "snapshot",
	"watch":                "watch",
	"poll_interval":        "poll-interval",
	"rebuild_cron":         "rebuild-cron",
	"min_rebuild_interval": "min-rebuild-interval",
	"log_level":            "log-level",
	"log_format":           "log-format",
	"log_levels":           "log-levels",
	"output":               "output",
	"prompt":               "prompt",
	"home":                 "home",
}

// SetDefaults registers the default for every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data", []string{})
	v.SetDefault("filter_mode", string(filter.ModeFlatten))
	v.SetDefault("snapshot", false)
	v.SetDefault("watch", false)
	v.SetDefault("poll_interval", time.Duration(0))
	v.SetDefault("rebuild_cron", "")
	v.SetDefault("min_rebuild_interval", time.Duration(0))
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("log_levels", map[string]string{})
	v.SetDefault("output", OutputList)
	v.SetDefault("prompt", PromptAuto)
	v.SetDefault("home", "")
}

// RegisterFlags defines the configuration flags on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to the configuration file")
	fs.StringSlice("data", nil, "Data file paths or globs (repeatable)")
	fs.String("filter-mode", string(filter.ModeFlatten), "How || groups combine: flatten or disjunctive")
	fs.Bool("snapshot", false, "Persist the name index under the home directory")
	fs.Bool("watch", false, "Rebuild the index when data files change")
	fs.Duration("poll-interval", 0, "Re-check data files at this interval (0 disables)")
	fs.String("rebuild-cron", "", "Cron schedule for forced index rebuilds")
	fs.Duration("min-rebuild-interval", 0, "Shortest time between index rebuilds (0 disables)")
	fs.String("log-level", "info", "Log level: debug, info, warn, error")
	fs.String("log-format", "text", "Log format: text or json")
	fs.StringToString("log-levels", nil, "Per-component log levels, e.g. query-engine=debug,reload=warn")
	fs.StringP("output", "o", OutputList, "Output format: list, table or json")
	fs.String("prompt", PromptAuto, "REPL prompts: auto, always or never")
	fs.String("home", "", "Home directory (default: platform config dir)")
}

// Load resolves the configuration. flags may be nil. configFile, if set,
// must exist; otherwise airportsearch.yaml is looked up in the working
// directory and then in each of searchDirs. Load does not validate.
func Load(v *viper.Viper, flags *pflag.FlagSet, configFile string, searchDirs ...string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range flagNames {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("airportsearch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		for _, dir := range searchDirs {
			if dir != "" {
				v.AddConfigPath(dir)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Validate checks every field and returns all problems joined.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Data) == 0 {
		errs = append(errs, ErrNoData)
	}
	if _, err := filter.ParseMode(c.FilterMode); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	for component, lvl := range c.LogLevels {
		if _, err := logging.ParseLevel(lvl); err != nil {
			errs = append(errs, fmt.Errorf("log level for %s: %w", component, err))
		}
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q (want text or json)", c.LogFormat))
	}
	switch c.Output {
	case OutputList, OutputTable, OutputJSON:
	default:
		errs = append(errs, fmt.Errorf("unknown output format %q (want list, table or json)", c.Output))
	}
	switch c.Prompt {
	case PromptAuto, PromptAlways, PromptNever:
	default:
		errs = append(errs, fmt.Errorf("unknown prompt mode %q (want auto, always or never)", c.Prompt))
	}
	if c.PollInterval < 0 {
		errs = append(errs, fmt.Errorf("poll interval must not be negative, got %s", c.PollInterval))
	}
	if c.MinRebuildInterval < 0 {
		errs = append(errs, fmt.Errorf("min rebuild interval must not be negative, got %s", c.MinRebuildInterval))
	}
	if err := ValidateCron(c.RebuildCron); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Mode returns the parsed filter mode. Call Validate first.
func (c *Config) Mode() filter.Mode {
	m, _ := filter.ParseMode(c.FilterMode)
	return m
}

// ComponentLevels returns the parsed per-component log levels. Call Validate
// first; unparseable entries are left out.
func (c *Config) ComponentLevels() map[string]slog.Level {
	levels := make(map[string]slog.Level, len(c.LogLevels))
	for component, lvl := range c.LogLevels {
		if l, err := logging.ParseLevel(lvl); err == nil {
			levels[component] = l
		}
	}
	return levels
}

// Reloading reports whether any reload trigger is configured.
func (c *Config) Reloading() bool {
	return c.Watch || c.PollInterval > 0 || c.RebuildCron != ""
}

// ValidateCron checks a cron expression. Supports both 5-field
// (minute-level) and 6-field (second-level) syntax. Empty is valid.
func ValidateCron(expr string) error {
	if expr == "" {
		return nil
	}
	cr := gocron.NewDefaultCron(true)
	if err := cr.IsValid(expr, time.UTC, time.Now()); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}
