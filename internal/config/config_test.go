package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "data/gate.db", cfg.Database.Path)
	assert.Equal(t, "gate_session", cfg.Auth.CookieName)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, 6, cfg.Auth.MinPasswordLength)
	assert.Equal(t, "/login", cfg.Auth.LoginPath)
	assert.Equal(t, "/welcome", cfg.Auth.LandingPath)
	assert.Equal(t, time.Hour, cfg.SessionTTL())
	assert.Equal(t, 5*time.Minute, cfg.SweepInterval())

	// no secret by default
	assert.ErrorContains(t, cfg.Validate(), "session secret")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GATE_AUTH_SESSIONSECRET", "s3cret-s3cret-s3cret-s3cret-s3cret")
	t.Setenv("GATE_AUTH_SESSIONTTLMINUTES", "15")
	t.Setenv("GATE_DATABASE_DRIVER", "postgres")
	t.Setenv("GATE_DATABASE_DSN", "postgres://gate@localhost/gate")
	t.Setenv("GATE_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "s3cret-s3cret-s3cret-s3cret-s3cret", cfg.Auth.SessionSecret)
	assert.Equal(t, 15*time.Minute, cfg.SessionTTL())
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)

	level, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, level)
}

func TestLoad_ConfigFileAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  addr: 127.0.0.1:9999\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("# comment\nexport GATE_AUTH_SESSIONSECRET=\"from-dotenv\"\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("GATE_AUTH_SESSIONSECRET") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", cfg.Server.Addr)
	assert.Equal(t, "from-dotenv", cfg.Auth.SessionSecret)
}

func TestLoadDotEnv_DoesNotOverrideEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("GATE_TEST_KEY=file\n"), 0o600))
	t.Setenv("GATE_TEST_KEY", "env")

	loadDotEnv(path)
	assert.Equal(t, "env", os.Getenv("GATE_TEST_KEY"))
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		var c Config
		c.Database.Driver = DriverSQLite
		c.Database.Path = "gate.db"
		c.Auth.SessionSecret = strings.Repeat("k", MinSessionSecretBytes)
		c.Auth.SessionTTLMinutes = 60
		c.Auth.BcryptCost = 10
		c.Auth.MinPasswordLength = 6
		c.Log.Level = "info"
		return c
	}
	require.NoError(t, valid().Validate())

	cases := map[string]func(*Config){
		"unknown driver":    func(c *Config) { c.Database.Driver = "mysql" },
		"postgres no dsn":   func(c *Config) { c.Database.Driver = DriverPostgres },
		"bcrypt too cheap":  func(c *Config) { c.Auth.BcryptCost = 2 },
		"zero ttl":          func(c *Config) { c.Auth.SessionTTLMinutes = 0 },
		"bad log level":     func(c *Config) { c.Log.Level = "loud" },
		"zero min length":   func(c *Config) { c.Auth.MinPasswordLength = 0 },
		"blank secret":      func(c *Config) { c.Auth.SessionSecret = "  " },
		"short secret":      func(c *Config) { c.Auth.SessionSecret = "s" },
		"sqlite empty path": func(c *Config) { c.Database.Path = "" },
	}
	c := valid()
	c.Auth.SessionSecret = strings.Repeat("k", MinSessionSecretBytes-1)
	assert.ErrorContains(t, c.Validate(), "at least 32 bytes")

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
