package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLogger returns a debug-level logger so config debug output appears in
// test output.
func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err)

	return path
}

func ptr[T any](v T) *T {
	return &v
}

func TestLoad_ValidFullConfig(t *testing.T) {
	path := writeTestConfig(t, `
chunk_size = "16MiB"
refresh_expired_digest = true

spo_domain = "contoso"
spo_site = "MVP"
spo_path = "/sites/MVP/Shared Documents"

log_level = "debug"
log_format = "json"

connect_timeout = "30s"
data_timeout = "120s"
user_agent = "ISV|contoso|blob2spo/1.0"

listen_addr = "0.0.0.0"
port = 7071
`)

	cfg, err := Load(path, testLogger(t))
	require.NoError(t, err)

	assert.Equal(t, "16MiB", cfg.ChunkSize)
	assert.True(t, cfg.RefreshExpiredDigest)
	assert.Equal(t, "contoso", cfg.SPODomain)
	assert.Equal(t, "MVP", cfg.SPOSite)
	assert.Equal(t, "/sites/MVP/Shared Documents", cfg.SPOPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "30s", cfg.ConnectTimeout)
	assert.Equal(t, "120s", cfg.DataTimeout)
	assert.Equal(t, "ISV|contoso|blob2spo/1.0", cfg.UserAgent)
	assert.Equal(t, "0.0.0.0", cfg.ListenAddr)
	assert.Equal(t, 7071, cfg.Port)
}

func TestLoad_PartialConfigKeepsDefaults(t *testing.T) {
	path := writeTestConfig(t, "spo_domain = \"fabrikam\"\n")

	cfg, err := Load(path, testLogger(t))
	require.NoError(t, err)

	assert.Equal(t, "fabrikam", cfg.SPODomain)
	assert.Equal(t, "64MiB", cfg.ChunkSize)
	assert.Equal(t, 3000, cfg.Port)
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := writeTestConfig(t, "chunk_size = \n")

	_, err := Load(path, testLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestLoad_ValidationErrors(t *testing.T) {
	path := writeTestConfig(t, "chunk_size = \"300MiB\"\nlog_level = \"loud\"\n")

	_, err := Load(path, testLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk_size")
	assert.Contains(t, err.Error(), "log_level")
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"), testLogger(t))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadOrDefault_EmptyPath(t *testing.T) {
	cfg, err := LoadOrDefault("", testLogger(t))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestResolve_Defaults(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "config.toml")

	r, err := Resolve(EnvOverrides{}, CLIOverrides{ConfigPath: missing}, testLogger(t))
	require.NoError(t, err)

	assert.Equal(t, missing, r.ConfigPath)
	assert.Equal(t, int64(64*1024*1024), r.ChunkSize)
	assert.Zero(t, r.BandwidthLimit)
	assert.Equal(t, 10*time.Second, r.ConnectTimeout)
	assert.Equal(t, 60*time.Second, r.DataTimeout)
	assert.Equal(t, "127.0.0.1", r.ListenAddr)
	assert.Equal(t, 3000, r.Port)
}

func TestResolve_Precedence(t *testing.T) {
	path := writeTestConfig(t, `
chunk_size = "8MiB"
bandwidth_limit = "2MB/s"
spo_domain = "file-domain"
spo_site = "FileSite"
port = 4000
`)

	tests := []struct {
		name       string
		env        EnvOverrides
		cli        CLIOverrides
		wantDomain string
		wantSite   string
		wantChunk  int64
		wantPort   int
	}{
		{
			name:       "file only",
			cli:        CLIOverrides{ConfigPath: path},
			wantDomain: "file-domain",
			wantSite:   "FileSite",
			wantChunk:  8 * mebibyte,
			wantPort:   4000,
		},
		{
			name:       "env beats file",
			env:        EnvOverrides{SPODomain: "env-domain", Port: 5000},
			cli:        CLIOverrides{ConfigPath: path},
			wantDomain: "env-domain",
			wantSite:   "FileSite",
			wantChunk:  8 * mebibyte,
			wantPort:   5000,
		},
		{
			name: "cli beats env",
			env:  EnvOverrides{SPODomain: "env-domain", Port: 5000},
			cli: CLIOverrides{
				ConfigPath: path,
				SPODomain:  ptr("cli-domain"),
				SPOSite:    ptr("CliSite"),
				ChunkSize:  ptr("2MiB"),
				Port:       ptr(6000),
			},
			wantDomain: "cli-domain",
			wantSite:   "CliSite",
			wantChunk:  2 * mebibyte,
			wantPort:   6000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Resolve(tt.env, tt.cli, testLogger(t))
			require.NoError(t, err)

			assert.Equal(t, tt.wantDomain, r.SPODomain)
			assert.Equal(t, tt.wantSite, r.SPOSite)
			assert.Equal(t, tt.wantChunk, r.ChunkSize)
			assert.Equal(t, tt.wantPort, r.Port)
			assert.Equal(t, int64(2_000_000), r.BandwidthLimit)
		})
	}
}

func TestResolve_ConfigPathFromEnv(t *testing.T) {
	path := writeTestConfig(t, "spo_site = \"FromEnvFile\"\n")

	r, err := Resolve(EnvOverrides{ConfigPath: path}, CLIOverrides{}, testLogger(t))
	require.NoError(t, err)
	assert.Equal(t, "FromEnvFile", r.SPOSite)
	assert.Equal(t, path, r.ConfigPath)
}

func TestResolve_InvalidCLIValue(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "config.toml")

	_, err := Resolve(EnvOverrides{}, CLIOverrides{ConfigPath: missing, ChunkSize: ptr("512KiB")}, testLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk_size: must be between 1MiB and 250MiB")
}

func TestResolve_CarriesCredentials(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "config.toml")
	creds := Credentials{TenantID: "t", ClientID: "c", ClientSecret: "s"}

	r, err := Resolve(EnvOverrides{Credentials: creds}, CLIOverrides{ConfigPath: missing}, testLogger(t))
	require.NoError(t, err)
	assert.Equal(t, creds, r.Credentials)
}
