package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func loaderFor(t *testing.T, env map[string]string) *Loader {
	t.Helper()
	l := NewLoader(t.TempDir())
	l.getenv = func(k string) string { return env[k] }
	return l
}

func writeConfig(t *testing.T, l *Loader, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(l.dir, name), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDefaults(t *testing.T) {
	l := loaderFor(t, nil)
	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Enabled || cfg.Probability != 1 || cfg.MutationDurationMinutes != 5 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.EnabledMutations) != 9 {
		t.Errorf("default mutations = %v, want all 9", cfg.EnabledMutations)
	}
	if cfg.MutationDuration() != 5*time.Minute || cfg.PollInterval() != 10*time.Second {
		t.Errorf("durations: %v %v", cfg.MutationDuration(), cfg.PollInterval())
	}
	if got := l.Path(); filepath.Base(got) != TOMLFile {
		t.Errorf("Path() = %q, want config.toml", got)
	}
}

func TestLoadTOML(t *testing.T) {
	l := loaderFor(t, nil)
	writeConfig(t, l, TOMLFile, `
enabled = false
probability = 25.5
enabled_mutations = ["placebo", "terminal-bell"]
`)
	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Enabled {
		t.Error("enabled should be false")
	}
	if cfg.Probability != 25.5 {
		t.Errorf("probability = %g", cfg.Probability)
	}
	if strings.Join(cfg.EnabledMutations, ",") != "placebo,terminal-bell" {
		t.Errorf("mutations = %v", cfg.EnabledMutations)
	}
	if cfg.MutationDurationMinutes != 5 {
		t.Errorf("absent key should keep default, got %d", cfg.MutationDurationMinutes)
	}
}

func TestLoadYAML(t *testing.T) {
	l := loaderFor(t, nil)
	writeConfig(t, l, YAMLFile, "probability: 50\nmutation_duration_minutes: 2\n")
	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Probability != 50 || cfg.MutationDurationMinutes != 2 {
		t.Errorf("got %+v", cfg)
	}
	if filepath.Base(l.Path()) != YAMLFile {
		t.Errorf("Path() = %q", l.Path())
	}
}

func TestExplicitEmptyMutationList(t *testing.T) {
	l := loaderFor(t, nil)
	writeConfig(t, l, TOMLFile, "enabled_mutations = []\n")
	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.EnabledMutations == nil || len(cfg.EnabledMutations) != 0 {
		t.Errorf("want explicit empty list, got %#v", cfg.EnabledMutations)
	}
}

func TestEnvOverrides(t *testing.T) {
	l := loaderFor(t, map[string]string{
		"ROULETTE_ENABLED":                   "no",
		"ROULETTE_PROBABILITY":               "80",
		"ROULETTE_ENABLED_MUTATIONS":         " placebo , jitterbug ",
		"ROULETTE_MUTATION_DURATION_MINUTES": "not-a-number",
	})
	writeConfig(t, l, TOMLFile, "probability = 10\nmutation_duration_minutes = 3\n")

	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Enabled {
		t.Error("ROULETTE_ENABLED=no should disable")
	}
	if cfg.Probability != 80 {
		t.Errorf("probability = %g, want env value 80", cfg.Probability)
	}
	if strings.Join(cfg.EnabledMutations, ",") != "placebo,jitterbug" {
		t.Errorf("mutations = %v", cfg.EnabledMutations)
	}
	if cfg.MutationDurationMinutes != 3 {
		t.Errorf("unparsable env should fall back to file value, got %d", cfg.MutationDurationMinutes)
	}
}

func TestEnvNoneClearsMutations(t *testing.T) {
	l := loaderFor(t, map[string]string{"ROULETTE_ENABLED_MUTATIONS": "none"})
	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.EnabledMutations) != 0 {
		t.Errorf("mutations = %v, want none", cfg.EnabledMutations)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "negative probability", mutate: func(c *Config) { c.Probability = -1 }, want: "probability"},
		{name: "probability over 100", mutate: func(c *Config) { c.Probability = 101 }, want: "probability"},
		{name: "probability NaN", mutate: func(c *Config) { c.Probability = math.NaN() }, want: "probability"},
		{name: "probability infinite", mutate: func(c *Config) { c.Probability = math.Inf(1) }, want: "probability"},
		{name: "zero duration", mutate: func(c *Config) { c.MutationDurationMinutes = 0 }, want: "mutation_duration_minutes"},
		{name: "zero poll", mutate: func(c *Config) { c.PollIntervalSeconds = 0 }, want: "poll_interval_seconds"},
		{name: "negative cooldown", mutate: func(c *Config) { c.TriggerCooldownSeconds = -5 }, want: "trigger_cooldown_seconds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error mentioning %q", err, tt.want)
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	l := loaderFor(t, nil)
	writeConfig(t, l, TOMLFile, "probability = 250\n")
	if _, err := l.Load(); err == nil {
		t.Fatal("expected validation error")
	}

	writeConfig(t, l, TOMLFile, "probability = [broken\n")
	if _, err := l.Load(); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestLoadRejectsNaNProbability(t *testing.T) {
	l := loaderFor(t, nil)
	writeConfig(t, l, TOMLFile, "probability = nan\n")
	if cfg, err := l.Load(); err == nil {
		t.Fatalf("Load accepted probability %g", cfg.Probability)
	}

	l = loaderFor(t, map[string]string{"ROULETTE_PROBABILITY": "NaN"})
	if cfg, err := l.Load(); err == nil {
		t.Fatalf("Load accepted env probability %g", cfg.Probability)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	l := loaderFor(t, nil)
	cfg := Default()
	cfg.Probability = 42
	cfg.EnabledMutations = []string{}
	if err := l.Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Probability != 42 || len(got.EnabledMutations) != 0 {
		t.Errorf("round trip = %+v", got)
	}
}

func TestSaveKeepsYAMLFormat(t *testing.T) {
	l := loaderFor(t, nil)
	writeConfig(t, l, YMLFile, "probability: 5\n")
	if _, err := l.Update(func(c *Config) error { c.Enabled = false; return nil }); err != nil {
		t.Fatalf("Update: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(l.dir, YMLFile))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "enabled: false") {
		t.Errorf("expected YAML output, got:\n%s", data)
	}
	if _, err := os.Stat(filepath.Join(l.dir, TOMLFile)); err == nil {
		t.Error("Save should not create config.toml next to a YAML file")
	}
}

func TestUpdateIgnoresEnv(t *testing.T) {
	l := loaderFor(t, map[string]string{"ROULETTE_PROBABILITY": "99"})
	cfg, err := l.Update(func(c *Config) error { c.MutationDurationMinutes = 7; return nil })
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if cfg.Probability != 1 {
		t.Errorf("env override leaked into saved config: %g", cfg.Probability)
	}
}

func TestSettings(t *testing.T) {
	l := loaderFor(t, nil)
	writeConfig(t, l, TOMLFile, "mutation_duration_minutes = 2\nprobability = 100\n")
	s, err := l.Settings()
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if s.MutationDuration != 2*time.Minute || s.Probability != 100 || !s.Enabled {
		t.Errorf("Settings() = %+v", s)
	}
}
