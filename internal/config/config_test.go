package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  name: test
mongo:
  uri: mongodb://localhost:27017
api:
  jwt_secret: secret
pdf:
  local: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, "tranzac", cfg.Mongo.Database)
	assert.Equal(t, "costestimates", cfg.Mongo.Collection)
	assert.Equal(t, 0.13, cfg.Pricing.TaxRate)
	assert.Equal(t, "America/Toronto", cfg.Pricing.Timezone)
	assert.Equal(t, 30, cfg.PDF.PollAttempts)
	assert.Equal(t, 24*60*60, cfg.API.SessionTTL)
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_MONGO_URI", "mongodb://db:27017")
	path := writeConfig(t, `
mongo:
  uri: ${TEST_MONGO_URI}
api:
  jwt_secret: secret
pdf:
  local: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mongodb://db:27017", cfg.Mongo.URI)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing mongo uri",
			mutate:  func(c *Config) { c.Mongo.URI = "" },
			wantErr: "mongo uri is required",
		},
		{
			name:    "placeholder jwt secret",
			mutate:  func(c *Config) { c.API.JWTSecret = "CHANGE_ME" },
			wantErr: "jwt_secret is required",
		},
		{
			name:    "tax rate out of range",
			mutate:  func(c *Config) { c.Pricing.TaxRate = 1.5 },
			wantErr: "tax_rate",
		},
		{
			name:    "remote pdf without key",
			mutate:  func(c *Config) { c.PDF.Local = false; c.PDF.APIKey = "" },
			wantErr: "pdf api_key is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.Mongo.URI = "mongodb://localhost:27017"
			cfg.API.JWTSecret = "secret"
			cfg.Pricing.TaxRate = 0.13
			cfg.PDF.Local = true
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
