package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TODOAPI_AUTH_JWTSECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:3000", cfg.Server.Addr)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, "todo-api", cfg.Objects.KeyPrefix)
	assert.Equal(t, time.Hour, cfg.TokenTTL())
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TODOAPI_AUTH_JWTSECRET", "secret")
	t.Setenv("TODOAPI_STORAGE_BACKEND", "Postgres")
	t.Setenv("TODOAPI_POSTGRES_DSN", "postgres://u:p@localhost/todo")
	t.Setenv("TODOAPI_SERVER_WRITETIMEOUT", "30s")
	t.Setenv("TODOAPI_AUTH_TOKENTTLMINUTES", "5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendPostgres, cfg.Storage.Backend)
	assert.Equal(t, "postgres://u:p@localhost/todo", cfg.Postgres.DSN)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 5*time.Minute, cfg.TokenTTL())
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		var c Config
		c.Auth.JWTSecret = "secret"
		c.Auth.TokenTTLMinutes = 60
		c.Auth.BcryptCost = 10
		c.Storage.Backend = BackendMemory
		c.Log.Level = "info"
		c.Log.Format = "text"
		return c
	}
	require.NoError(t, valid().Validate())

	tests := map[string]func(*Config){
		"missing secret":      func(c *Config) { c.Auth.JWTSecret = " " },
		"zero ttl":            func(c *Config) { c.Auth.TokenTTLMinutes = 0 },
		"bcrypt too low":      func(c *Config) { c.Auth.BcryptCost = 1 },
		"unknown backend":     func(c *Config) { c.Storage.Backend = "mongo" },
		"file without path":   func(c *Config) { c.Storage.Backend = BackendFile },
		"sqlite without path": func(c *Config) { c.Storage.Backend = BackendSQLite },
		"postgres no dsn":     func(c *Config) { c.Storage.Backend = BackendPostgres },
		"objects no bucket":   func(c *Config) { c.Storage.Backend = BackendObjectStore },
		"bad level":           func(c *Config) { c.Log.Level = "loud" },
		"bad format":          func(c *Config) { c.Log.Format = "xml" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestNewLogger(t *testing.T) {
	var c Config
	c.Log.Level = "debug"
	c.Log.Format = "json"

	logger := c.NewLogger()
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
}
