package extension

import (
	"testing"
	"time"
)

func TestMergeWithDefaults(t *testing.T) {
	cfg := mergeWithDefaults(Config{VerifyPageSize: 50})

	want := DefaultConfig()
	want.VerifyPageSize = 50
	if cfg != want {
		t.Errorf("mergeWithDefaults = %+v, want %+v", cfg, want)
	}
}

func TestMergeConfigurations(t *testing.T) {
	tests := []struct {
		name         string
		yaml         Config
		programmatic Config
		check        func(t *testing.T, got Config)
	}{
		{
			name:         "yaml wins for numbers",
			yaml:         Config{VerifyConcurrency: 8},
			programmatic: Config{VerifyConcurrency: 2},
			check: func(t *testing.T, got Config) {
				if got.VerifyConcurrency != 8 {
					t.Errorf("VerifyConcurrency = %d, want 8", got.VerifyConcurrency)
				}
			},
		},
		{
			name:         "programmatic fills gaps",
			yaml:         Config{},
			programmatic: Config{AccountCacheTTL: time.Minute, GroveDatabase: "books"},
			check: func(t *testing.T, got Config) {
				if got.AccountCacheTTL != time.Minute {
					t.Errorf("AccountCacheTTL = %v, want 1m", got.AccountCacheTTL)
				}
				if got.GroveDatabase != "books" {
					t.Errorf("GroveDatabase = %q, want books", got.GroveDatabase)
				}
			},
		},
		{
			name:         "programmatic flags override",
			yaml:         Config{},
			programmatic: Config{DisableMigrate: true, DisableMetrics: true},
			check: func(t *testing.T, got Config) {
				if !got.DisableMigrate || !got.DisableMetrics {
					t.Errorf("flags = %v/%v, want both set", got.DisableMigrate, got.DisableMetrics)
				}
			},
		},
		{
			name:         "defaults fill the rest",
			yaml:         Config{RetryMaxTries: 3},
			programmatic: Config{},
			check: func(t *testing.T, got Config) {
				if got.RetryMaxTries != 3 {
					t.Errorf("RetryMaxTries = %d, want 3", got.RetryMaxTries)
				}
				if got.RetryMaxElapsed != DefaultConfig().RetryMaxElapsed {
					t.Errorf("RetryMaxElapsed = %v, want default", got.RetryMaxElapsed)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, mergeWithDefaults(mergeConfigurations(tt.yaml, tt.programmatic)))
		})
	}
}

func TestOptionsSetConfig(t *testing.T) {
	e := &Extension{}
	for _, opt := range []Option{
		WithGroveDatabase(""),
		WithAccountCacheTTL(time.Second),
		WithVerifyConcurrency(2),
		WithDisableMigrate(),
	} {
		opt(e)
	}

	if !e.useGrove {
		t.Error("WithGroveDatabase did not enable grove resolution")
	}
	if e.config.AccountCacheTTL != time.Second || e.config.VerifyConcurrency != 2 || !e.config.DisableMigrate {
		t.Errorf("config = %+v", e.config)
	}
}
