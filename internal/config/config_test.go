package config

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080, Mode: "release"},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			Output: LogOutputConfig{ToStdout: true},
		},
		OAuth: OAuthConfig{ClientID: "client", ClientSecret: "secret"},
		Retry: RetryConfig{MaxRetries: 3, BaseDelayMS: 1000},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }},
		{"empty log level", func(c *Config) { c.Log.Level = "" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
		{"no log outputs", func(c *Config) { c.Log.Output = LogOutputConfig{} }},
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }},
		{"missing client id", func(c *Config) { c.OAuth.ClientID = "" }},
		{"missing client secret", func(c *Config) { c.OAuth.ClientSecret = "" }},
		{"zero retries", func(c *Config) { c.Retry.MaxRetries = 0 }},
		{"zero base delay", func(c *Config) { c.Retry.BaseDelayMS = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestListenAddr(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "0.0.0.0:8080", cfg.ListenAddr())
}

func TestCredentialSlots(t *testing.T) {
	t.Setenv("CREDENTIAL_0", `{"refresh_token":"rt0"}`)
	t.Setenv("CREDENTIAL_1", "")
	t.Setenv("CREDENTIAL_2", `  {"refresh_token":"rt2"}  `)
	t.Setenv("CREDENTIAL_3", `{"refresh_token":"rt3"}`)

	slots := CredentialSlots()
	require.Len(t, slots, 3)
	// Empty slots are skipped; survivors keep their relative order and are
	// trimmed.
	assert.Equal(t, `{"refresh_token":"rt0"}`, slots[0])
	assert.Equal(t, `{"refresh_token":"rt2"}`, slots[1])
	assert.Equal(t, `{"refresh_token":"rt3"}`, slots[2])
}

func TestCredentialSlotsEmpty(t *testing.T) {
	for i := 0; i < MaxCredentialSlots; i++ {
		t.Setenv(fmt.Sprintf("CREDENTIAL_%d", i), "")
	}
	assert.Empty(t, CredentialSlots())
}
