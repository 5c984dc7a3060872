package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExpiry(t *testing.T) {
	cases := map[string]time.Duration{
		"7d":   7 * 24 * time.Hour,
		"1d":   24 * time.Hour,
		"24h":  24 * time.Hour,
		"90m":  90 * time.Minute,
		"3600": time.Hour,
	}
	for in, want := range cases {
		got, err := ParseExpiry(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "xd", "0d", "-5", "soon"} {
		_, err := ParseExpiry(bad)
		assert.Error(t, err, bad)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "7d", cfg.JWTExpiresIn)
	assert.Equal(t, 7*24*time.Hour, cfg.jwtExpiry)
	assert.Equal(t, 10*time.Second, cfg.mailTimeout)
	assert.False(t, cfg.ReturnGeneratedPassword)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nimblevision.yaml")
	body := "port: \"8080\"\ndb_driver: sqlite3\njwt_expires_in: 12h\nsmtp_from_name: Ops\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	t.Setenv("SMTP_FROM_NAME", "From Env")
	t.Setenv("RETURN_GENERATED_PASSWORD", "true")
	t.Setenv("DB_HOST", "")
	t.Setenv("PGHOST", "pg.internal")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 12*time.Hour, cfg.jwtExpiry)
	assert.Equal(t, "From Env", cfg.SMTPFromName)
	assert.Equal(t, "pg.internal", cfg.DBHost)
	assert.True(t, cfg.ReturnGeneratedPassword)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("JWT_EXPIRES_IN", "forever")
	_, err := Load("")
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestAllowedOrigins(t *testing.T) {
	AppConfig = Defaults()
	assert.Equal(t, []string{"*"}, AllowedOrigins())

	AppConfig.CORSOrigins = "https://a.example, https://b.example ,"
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, AllowedOrigins())
}
