// Package config loads roulette's settings from .roulette/config.toml (or
// config.yaml) with ROULETTE_* environment overrides. Settings are read
// fresh on every call so edits apply to the next commit.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"roulette/pkg/engine"
	"roulette/pkg/mutation"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// File names looked up in the state directory, in order.
const (
	TOMLFile = "config.toml"
	YAMLFile = "config.yaml"
	YMLFile  = "config.yml"
)

// Config is the full configuration surface.
type Config struct {
	Enabled                 bool     `toml:"enabled" yaml:"enabled" json:"enabled"`
	Probability             float64  `toml:"probability" yaml:"probability" json:"probability"`
	EnabledMutations        []string `toml:"enabled_mutations" yaml:"enabled_mutations" json:"enabled_mutations"`
	MutationDurationMinutes int      `toml:"mutation_duration_minutes" yaml:"mutation_duration_minutes" json:"mutation_duration_minutes"`
	PollIntervalSeconds     int      `toml:"poll_interval_seconds" yaml:"poll_interval_seconds" json:"poll_interval_seconds"`
	DebounceSeconds         int      `toml:"debounce_seconds" yaml:"debounce_seconds" json:"debounce_seconds"`
	TriggerCooldownSeconds  int      `toml:"trigger_cooldown_seconds" yaml:"trigger_cooldown_seconds" json:"trigger_cooldown_seconds"`
}

// fileConfig mirrors Config with pointers so absent keys keep their
// defaults and an explicit empty list stays empty.
type fileConfig struct {
	Enabled                 *bool     `toml:"enabled" yaml:"enabled"`
	Probability             *float64  `toml:"probability" yaml:"probability"`
	EnabledMutations        *[]string `toml:"enabled_mutations" yaml:"enabled_mutations"`
	MutationDurationMinutes *int      `toml:"mutation_duration_minutes" yaml:"mutation_duration_minutes"`
	PollIntervalSeconds     *int      `toml:"poll_interval_seconds" yaml:"poll_interval_seconds"`
	DebounceSeconds         *int      `toml:"debounce_seconds" yaml:"debounce_seconds"`
	TriggerCooldownSeconds  *int      `toml:"trigger_cooldown_seconds" yaml:"trigger_cooldown_seconds"`
}

// Default returns the built-in configuration: enabled, 1% per commit, every
// mutation, five minutes.
func Default() Config {
	return Config{
		Enabled:                 true,
		Probability:             1,
		EnabledMutations:        mutation.Default().Names(),
		MutationDurationMinutes: 5,
		PollIntervalSeconds:     10,
		DebounceSeconds:         5,
	}
}

// Validate reports the first out-of-range value.
func (c Config) Validate() error {
	switch {
	case !(c.Probability >= 0 && c.Probability <= 100): // also rejects NaN
		return fmt.Errorf("probability must be between 0 and 100, got %g", c.Probability)
	case c.MutationDurationMinutes < 1:
		return fmt.Errorf("mutation_duration_minutes must be at least 1, got %d", c.MutationDurationMinutes)
	case c.PollIntervalSeconds < 1:
		return fmt.Errorf("poll_interval_seconds must be at least 1, got %d", c.PollIntervalSeconds)
	case c.DebounceSeconds < 0:
		return fmt.Errorf("debounce_seconds must not be negative, got %d", c.DebounceSeconds)
	case c.TriggerCooldownSeconds < 0:
		return fmt.Errorf("trigger_cooldown_seconds must not be negative, got %d", c.TriggerCooldownSeconds)
	}
	return nil
}

// MutationDuration is the configured auto-expiry.
func (c Config) MutationDuration() time.Duration {
	return time.Duration(c.MutationDurationMinutes) * time.Minute
}

// PollInterval is the commit detector's polling period.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// Debounce is the quiet period after .git changes before HEAD is checked.
func (c Config) Debounce() time.Duration {
	return time.Duration(c.DebounceSeconds) * time.Second
}

// TriggerCooldown is the minimum time between two triggers, zero for none.
func (c Config) TriggerCooldown() time.Duration {
	return time.Duration(c.TriggerCooldownSeconds) * time.Second
}

// IsEnabled reports whether mutation name is in the enabled set.
func (c Config) IsEnabled(name string) bool {
	for _, n := range c.EnabledMutations {
		if n == name {
			return true
		}
	}
	return false
}

// Loader reads the configuration from a state directory.
type Loader struct {
	dir    string
	getenv func(string) string
}

// NewLoader returns a Loader for the config files in dir.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir, getenv: os.Getenv}
}

// Path returns the config file in use, or the TOML path when none exists.
func (l *Loader) Path() string {
	for _, name := range []string{TOMLFile, YAMLFile, YMLFile} {
		p := filepath.Join(l.dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return filepath.Join(l.dir, TOMLFile)
}

// Load returns defaults, overlaid with the config file, overlaid with the
// environment. A missing file is not an error.
func (l *Loader) Load() (Config, error) {
	return l.load(true)
}

func (l *Loader) load(withEnv bool) (Config, error) {
	cfg := Default()

	path := l.Path()
	data, err := os.ReadFile(path) //nolint:gosec // path is inside the state dir
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	default:
		var fc fileConfig
		if isYAML(path) {
			err = yaml.Unmarshal(data, &fc)
		} else {
			err = toml.Unmarshal(data, &fc)
		}
		if err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
		fc.apply(&cfg)
	}

	if withEnv {
		l.applyEnv(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Settings adapts Load for the engine.
func (l *Loader) Settings() (engine.Settings, error) {
	cfg, err := l.Load()
	if err != nil {
		return engine.Settings{}, err
	}
	return engine.Settings{
		Enabled:          cfg.Enabled,
		Probability:      cfg.Probability,
		EnabledMutations: cfg.EnabledMutations,
		MutationDuration: cfg.MutationDuration(),
	}, nil
}

// Save validates cfg and writes it to the config file in use, keeping its
// format. Environment overrides are not written.
func (l *Loader) Save(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	path := l.Path()

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = toml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// Update loads the file configuration (without env overrides), applies fn
// and saves the result.
func (l *Loader) Update(fn func(*Config) error) (Config, error) {
	cfg, err := l.load(false)
	if err != nil {
		return cfg, err
	}
	if err := fn(&cfg); err != nil {
		return cfg, err
	}
	return cfg, l.Save(cfg)
}

func isYAML(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".yaml" || ext == ".yml"
}

func (fc fileConfig) apply(cfg *Config) {
	if fc.Enabled != nil {
		cfg.Enabled = *fc.Enabled
	}
	if fc.Probability != nil {
		cfg.Probability = *fc.Probability
	}
	if fc.EnabledMutations != nil {
		cfg.EnabledMutations = append([]string{}, (*fc.EnabledMutations)...)
	}
	if fc.MutationDurationMinutes != nil {
		cfg.MutationDurationMinutes = *fc.MutationDurationMinutes
	}
	if fc.PollIntervalSeconds != nil {
		cfg.PollIntervalSeconds = *fc.PollIntervalSeconds
	}
	if fc.DebounceSeconds != nil {
		cfg.DebounceSeconds = *fc.DebounceSeconds
	}
	if fc.TriggerCooldownSeconds != nil {
		cfg.TriggerCooldownSeconds = *fc.TriggerCooldownSeconds
	}
}

func (l *Loader) applyEnv(cfg *Config) {
	cfg.Enabled = l.getEnvBool("ROULETTE_ENABLED", cfg.Enabled)
	cfg.Probability = l.getEnvFloat("ROULETTE_PROBABILITY", cfg.Probability)
	cfg.MutationDurationMinutes = l.getEnvInt("ROULETTE_MUTATION_DURATION_MINUTES", cfg.MutationDurationMinutes)
	if v, ok := l.lookup("ROULETTE_ENABLED_MUTATIONS"); ok {
		cfg.EnabledMutations = splitList(v)
	}
}

// lookup treats an unset and an empty variable alike.
func (l *Loader) lookup(key string) (string, bool) {
	v := strings.TrimSpace(l.getenv(key))
	return v, v != ""
}

// splitList parses a comma list; "none" selects no mutations.
func splitList(v string) []string {
	if strings.EqualFold(v, "none") {
		return []string{}
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnvInt returns the integer value of key, or defaultValue when unset or
// unparsable.
func (l *Loader) getEnvInt(key string, defaultValue int) int {
	if value, ok := l.lookup(key); ok {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (l *Loader) getEnvFloat(key string, defaultValue float64) float64 {
	if value, ok := l.lookup(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvBool recognizes true/1/yes and false/0/no, case-insensitively.
func (l *Loader) getEnvBool(key string, defaultValue bool) bool {
	if value, ok := l.lookup(key); ok {
		switch strings.ToLower(value) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return defaultValue
}
