package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProductionConfig() *Config {
	return &Config{
		Env:        "production",
		Port:       "8080",
		DBDriver:   "postgres",
		DBSSLMode:  "require",
		DBPassword: "secure-password",
		JWTSecret:  "secure-secret-at-least-32-chars-long",
	}
}

func TestConfig_ValidateSSLMode(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		sslMode     string
		expectError bool
	}{
		{"Production with empty SSL mode", "production", "", true},
		{"Production with disable SSL mode", "production", "disable", true},
		{"Production with require SSL mode", "production", "require", false},
		{"Prod with verify-full SSL mode", "prod", "verify-full", false},
		{"Development with disable SSL mode", "development", "disable", false},
		{"Test with empty SSL mode", "test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validProductionConfig()
			c.Env = tt.env
			c.DBSSLMode = tt.sslMode

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateProductionSecrets(t *testing.T) {
	c := validProductionConfig()
	c.JWTSecret = defaultJWTSecret
	assert.Error(t, c.Validate())

	c = validProductionConfig()
	c.JWTSecret = "short"
	assert.Error(t, c.Validate())

	c = validProductionConfig()
	c.DBPassword = "password"
	assert.Error(t, c.Validate())

	c = validProductionConfig()
	c.DBDriver = "sqlite"
	assert.Error(t, c.Validate())
}

func TestConfig_ValidateDriverAndInterval(t *testing.T) {
	c := &Config{Port: "1", JWTSecret: "x", DBDriver: "mysql"}
	assert.Error(t, c.Validate())

	c = &Config{Port: "1", JWTSecret: "x", DBDriver: "sqlite", ReconcileInterval: -time.Second}
	assert.Error(t, c.Validate())

	c = &Config{Port: "1", JWTSecret: "x", DBDriver: "sqlite"}
	assert.NoError(t, c.Validate())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	defer viper.Reset()

	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_DRIVER", "  SQLITE ")
	t.Setenv("DB_SSLMODE", "  DISABLE  ")
	t.Setenv("RECONCILE_INTERVAL", "30s")
	t.Setenv("FEATURE_FLAGS", "review_premoderation=on")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "disable", cfg.DBSSLMode)
	assert.Equal(t, 30*time.Second, cfg.ReconcileInterval)
	assert.Equal(t, "review_premoderation=on", cfg.FeatureFlags)
	assert.Equal(t, "8375", cfg.Port)
	assert.Equal(t, "pariposhan-identity", cfg.JWTIssuer)
	assert.Equal(t, 200, cfg.ReconcileBatchSize)
}
