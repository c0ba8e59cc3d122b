package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.yml"), []byte(body), 0o600))
	return dir
}

func TestLoadDefaults(t *testing.T) {
	dir := writeSettings(t, "jwt:\n  secret: s3cret\n")

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)
	require.Equal(t, "s3cret", cfg.JWT.Secret)
	require.Equal(t, time.Hour, cfg.JWT.AccessTTL)
	require.Equal(t, time.Hour, cfg.JWT.ConfirmTTL)
	require.Equal(t, int64(50<<20), cfg.Storage.MaxUploadBytes)
	require.True(t, cfg.Storage.UnlinkOnDelete)
	require.ElementsMatch(t, DefaultAllowedExtensions, cfg.Storage.AllowedExtensions)
	require.Equal(t, ":8080", cfg.HTTP.Addr)
	require.Empty(t, cfg.Permissions.Capabilities)
}

func TestLoadFile(t *testing.T) {
	dir := writeSettings(t, `
db:
  source: postgres://u:p@localhost/db
jwt:
  secret: abc
  access_ttl: 15m
storage:
  path: /tmp/files
  max_upload_bytes: 1024
  allowed_extensions: [".TXT", "pdf"]
  unlink_on_delete: false
permissions:
  capabilities:
    guest: [download_files, upload_files]
`)

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)
	require.Equal(t, "postgres://u:p@localhost/db", cfg.DB.Source)
	require.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
	require.Equal(t, "/tmp/files", cfg.Storage.Path)
	require.Equal(t, int64(1024), cfg.Storage.MaxUploadBytes)
	require.Equal(t, []string{"txt", "pdf"}, cfg.Storage.AllowedExtensions)
	require.False(t, cfg.Storage.UnlinkOnDelete)
	require.Equal(t, []string{"download_files", "upload_files"}, cfg.Permissions.Capabilities["guest"])
}

func TestLoadEnvOverride(t *testing.T) {
	dir := writeSettings(t, "jwt:\n  secret: fromfile\n")
	t.Setenv("JWT_SECRET", "fromenv")
	t.Setenv("STORAGE_PATH", "/data")

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)
	require.Equal(t, "fromenv", cfg.JWT.Secret)
	require.Equal(t, "/data", cfg.Storage.Path)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := LoadFrom(t.TempDir())
	require.ErrorIs(t, err, ErrMissingSecret)
}
