package sessionstore

import (
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config rejected: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty key prefix", func(c *Config) { c.Cache.KeyPrefix = "" }},
		{"negative lifetime", func(c *Config) { c.Cache.DefaultSessionLifetime = -time.Minute }},
		{"sliding without lifetime", func(c *Config) { c.Cache.SlidingExpiration = true }},
		{"sub-second sweep interval", func(c *Config) { c.Sweeper.Interval = 100 * time.Millisecond }},
		{"zero refresh concurrency", func(c *Config) { c.Refresh.Concurrency = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}
