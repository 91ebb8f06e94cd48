package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"seyon/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("JWT_SECRET", "")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 120*time.Hour, cfg.TokenTTL)
	assert.Equal(t, "uploads", cfg.UploadDir)
	assert.Equal(t, int64(5_000_000), cfg.MaxUploadBytes)
	assert.Equal(t, "@every 1h", cfg.Janitor.Schedule)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Empty(t, cfg.RabbitMQURL)

	// No JWT secret configured.
	assert.ErrorContains(t, cfg.Validate(), "JWT_SECRET")
}

func TestLoadFromEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("APP_PORT", "8080")
	t.Setenv("DATABASE_DRIVER", "POSTGRES")
	t.Setenv("DATABASE_DSN", "host=db user=app dbname=seyon sslmode=disable")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TOKEN_TTL", "48h")
	t.Setenv("ADMIN_USERNAME", "admin@example.com")
	t.Setenv("ADMIN_PASSWORD", "changeme")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("JANITOR_SCHEDULE", "")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 48*time.Hour, cfg.TokenTTL)
	assert.Equal(t, "admin@example.com", cfg.Admin.Username)
	assert.Equal(t, "changeme", cfg.Admin.Password)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Empty(t, cfg.Janitor.Schedule)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := filepath.Join(dir, "seyon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("jwt_secret: from-file\nupload_dir: /var/lib/seyon/uploads\napp_port: \":7000\"\n"), 0o600))
	t.Setenv("APP_PORT", ":9000")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, "/var/lib/seyon/uploads", cfg.UploadDir)
	assert.Equal(t, ":9000", cfg.Port, "environment overrides the file")
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SEYON_TEST_MARKER=from-dotenv\nJWT_SECRET=dotenv-secret\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("SEYON_TEST_MARKER")
		os.Unsetenv("JWT_SECRET")
	})

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "dotenv-secret", cfg.JWTSecret)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DATABASE_DRIVER", "mongodb")

	_, err := config.Load("")
	assert.ErrorContains(t, err, "DATABASE_DRIVER")
}

func TestLoadMissingConfigFile(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := config.Load("does-not-exist.yaml")
	assert.Error(t, err)
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Fatal(err)
		}
	})
}
