package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blob2spo/blob2spo/internal/blob"
	"github.com/blob2spo/blob2spo/internal/config"
	"github.com/blob2spo/blob2spo/internal/server"
)

// newRootCmd binds flags with StringVar/BoolVar, which resets the globals.
// Tests set globals after newRootCmd() or let Execute parse them.

func restoreFlags(t *testing.T) {
	t.Helper()

	oldConfig, oldVerbose, oldQuiet := flagConfigPath, flagVerbose, flagQuiet

	t.Cleanup(func() {
		flagConfigPath, flagVerbose, flagQuiet = oldConfig, oldVerbose, oldQuiet
	})
}

// clearEnv blanks every variable config resolution reads.
func clearEnv(t *testing.T) {
	t.Helper()

	for _, name := range []string{
		config.EnvConfig, config.EnvDomain, config.EnvPort,
		config.EnvTenantID, config.EnvClientID, config.EnvClientSecret,
	} {
		t.Setenv(name, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	restoreFlags(t)

	cmd := newRootCmd()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())

	return out.String(), err
}

// --- logger tests ---

func TestBootstrapLogger(t *testing.T) {
	restoreFlags(t)

	tests := []struct {
		name    string
		verbose bool
		quiet   bool
		enabled slog.Level
		off     slog.Level
	}{
		{"default", false, false, slog.LevelWarn, slog.LevelInfo},
		{"verbose", true, false, slog.LevelDebug, slog.LevelDebug - 1},
		{"quiet", false, true, slog.LevelError, slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flagVerbose, flagQuiet = tt.verbose, tt.quiet

			h := bootstrapLogger(io.Discard).Handler()
			assert.True(t, h.Enabled(context.Background(), tt.enabled))
			assert.False(t, h.Enabled(context.Background(), tt.off))
		})
	}
}

func TestBuildLogger_Levels(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.Resolved
		flags   CLIFlags
		enabled slog.Level
		off     slog.Level
	}{
		{"nil config", nil, CLIFlags{}, slog.LevelInfo, slog.LevelDebug},
		{"config debug", &config.Resolved{LogLevel: "debug"}, CLIFlags{}, slog.LevelDebug, slog.LevelDebug - 1},
		{"config warn", &config.Resolved{LogLevel: "warn"}, CLIFlags{}, slog.LevelWarn, slog.LevelInfo},
		{"config error", &config.Resolved{LogLevel: "error"}, CLIFlags{}, slog.LevelError, slog.LevelWarn},
		{"verbose beats config", &config.Resolved{LogLevel: "error"}, CLIFlags{Verbose: true}, slog.LevelDebug, slog.LevelDebug - 1},
		{"quiet beats config", &config.Resolved{LogLevel: "debug"}, CLIFlags{Quiet: true}, slog.LevelError, slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := buildLogger(tt.cfg, tt.flags, io.Discard).Handler()
			assert.True(t, h.Enabled(context.Background(), tt.enabled))
			assert.False(t, h.Enabled(context.Background(), tt.off))
		})
	}
}

func TestBuildLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer

	logger := buildLogger(&config.Resolved{LogLevel: "info", LogFormat: "json"}, CLIFlags{}, &buf)
	logger.Info("hello", slog.String("k", "v"))

	assert.Contains(t, buf.String(), `"msg":"hello"`)
	assert.Contains(t, buf.String(), `"k":"v"`)
}

func TestMustCLIContext_PanicsWithoutContext(t *testing.T) {
	assert.Panics(t, func() { mustCLIContext(context.Background()) })
}

// --- config resolution through the command tree ---

func TestConfigShow_LayersFlagsOverFileAndEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvDomain, "fromenv")
	t.Setenv(config.EnvTenantID, "tenant")

	path := writeConfig(t, "spo_site = \"FileSite\"\nspo_domain = \"fromfile\"\nport = 7071\n")

	out, err := execute(t, "config", "show", "--config", path)
	require.NoError(t, err)

	assert.Contains(t, out, "file: "+path)
	assert.Contains(t, out, `"fromenv"`)
	assert.Contains(t, out, `"FileSite"`)
	assert.Contains(t, out, "7071")
	assert.Contains(t, out, "AZURE_TENANT_ID     = (set)")
	assert.NotContains(t, out, "tenant\"")
}

func TestConfigShow_InvalidFileFails(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, "chunk_size = \"1GiB\"\n")

	_, err := execute(t, "config", "show", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
	assert.Contains(t, err.Error(), "chunk_size")
}

func TestConfigInit_WritesTemplateEvenWhenConfigBroken(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, "not toml at all [[[")

	_, err := execute(t, "config", "init", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = execute(t, "config", "init", "--config", path, "--force")
	require.NoError(t, err)

	cfg, err := config.Load(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), cfg)
}

func TestConfigInitPath_Precedence(t *testing.T) {
	restoreFlags(t)
	clearEnv(t)

	flagConfigPath = ""
	assert.Equal(t, config.DefaultConfigPath(), configInitPath())

	t.Setenv(config.EnvConfig, "/env/config.toml")
	assert.Equal(t, "/env/config.toml", configInitPath())

	flagConfigPath = "/flag/config.toml"
	assert.Equal(t, "/flag/config.toml", configInitPath())
}

func TestCLIOverrides_OnlyChangedFlags(t *testing.T) {
	restoreFlags(t)

	cmd := newCopyCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--spo-site", "MVP", "--chunk-size", "8MiB"}))

	cli, err := cliOverrides(cmd)
	require.NoError(t, err)

	require.NotNil(t, cli.SPOSite)
	assert.Equal(t, "MVP", *cli.SPOSite)
	require.NotNil(t, cli.ChunkSize)
	assert.Equal(t, "8MiB", *cli.ChunkSize)
	assert.Nil(t, cli.SPODomain)
	assert.Nil(t, cli.SPOPath)
	assert.Nil(t, cli.Port, "copy has no --port flag")
}

func TestCLIOverrides_Port(t *testing.T) {
	restoreFlags(t)

	cmd := newServeCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--port", "8080"}))

	cli, err := cliOverrides(cmd)
	require.NoError(t, err)
	require.NotNil(t, cli.Port)
	assert.Equal(t, 8080, *cli.Port)
}

// --- copy ---

func TestCopy_MissingCredentials(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, "")
	src := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o600))

	_, err := execute(t, "copy", "--config", path, "-q",
		"--source", "file", "--blob-name", src,
		"--spo-domain", "contoso", "--spo-site", "MVP", "--spo-path", "/sites/MVP/Docs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy failed")
	assert.Contains(t, err.Error(), "tenant id must not be empty")
	assert.Contains(t, err.Error(), config.EnvTenantID)
}

func TestCopy_UnknownSource(t *testing.T) {
	clearEnv(t)

	_, err := execute(t, "copy", "--config", writeConfig(t, ""), "--source", "ftp", "--blob-name", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown source "ftp"`)
}

func TestCopy_InvalidChunkSizeFlag(t *testing.T) {
	clearEnv(t)

	_, err := execute(t, "copy", "--config", writeConfig(t, ""), "--chunk-size", "300MiB", "--blob-name", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk_size")
}

func TestCopyJob_ValidateAccumulates(t *testing.T) {
	job := &copyJob{Location: blob.Location{Kind: blob.KindAzure}}

	err := job.validate()
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "client secret must not be empty")
	assert.Contains(t, msg, "sharepoint domain is required")
	assert.Contains(t, msg, "sharepoint site is required")
	assert.Contains(t, msg, "sharepoint path is required")
	assert.Contains(t, msg, "storage account must not be empty")
}

func TestCopyJob_DestinationDefaultsToBlobBaseName(t *testing.T) {
	job := &copyJob{
		Domain:   "contoso",
		Site:     "MVP",
		Path:     "/sites/MVP/Docs",
		Location: blob.Location{Kind: blob.KindAzure, Name: "2024/q1/report.csv"},
	}

	assert.Contains(t, job.destination().SaveURL(), "report.csv")
	assert.NotContains(t, job.destination().SaveURL(), "2024")

	job.FileName = "renamed.csv"
	assert.Contains(t, job.destination().SaveURL(), "renamed.csv")
}

// --- serve ---

func TestJobFromRequest(t *testing.T) {
	job := jobFromRequest(&server.Request{
		TenantID:         "t",
		ClientID:         "c",
		ClientSecret:     "s",
		SharePointDomain: "contoso",
		SharePointSite:   "MVP",
		SharePointPath:   "/sites/MVP/Docs",
		Account:          "acct",
		Container:        "exports",
		BlobName:         "dir/file.bin",
	})

	require.NoError(t, job.validate())
	assert.Equal(t, blob.KindAzure, job.Location.Kind)
	assert.Equal(t, "acct", job.Location.Account)
	assert.Equal(t, "exports", job.Location.Container)
	assert.Equal(t, "t", job.Credential.TenantID)
	assert.Contains(t, job.destination().SaveURL(), "file.bin")
}

func TestRequestCopier_InvalidRequestFailsBeforeNetwork(t *testing.T) {
	c := &requestCopier{runner: &jobRunner{
		cfg:        &config.Resolved{ChunkSize: 1 << 20},
		httpClient: &http.Client{Transport: failTransport{t}},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}}

	err := c.Copy(context.Background(), &server.Request{BlobName: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sharepoint domain is required")
}

type failTransport struct{ t *testing.T }

func (f failTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	f.t.Errorf("unexpected request to %s", r.URL)

	return nil, http.ErrHandlerTimeout
}

// --- http client ---

func TestNewHTTPClient_Timeouts(t *testing.T) {
	cfg := &config.Resolved{ConnectTimeout: 3 * time.Second, DataTimeout: 45 * time.Second}

	c := newHTTPClient(cfg)

	assert.Zero(t, c.Timeout, "large chunks must not hit an overall deadline")

	tr, ok := c.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, 3*time.Second, tr.TLSHandshakeTimeout)
	assert.Equal(t, 45*time.Second, tr.ResponseHeaderTimeout)
	assert.NotNil(t, tr.DialContext)
}

func TestNewJobRunner_Limiter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	assert.Nil(t, newJobRunner(&config.Resolved{}, logger).limiter)
	assert.NotNil(t, newJobRunner(&config.Resolved{BandwidthLimit: 1 << 20}, logger).limiter)
}

func TestUserAgent(t *testing.T) {
	assert.Equal(t, "blob2spo/"+version, userAgent(&config.Resolved{}))
	assert.Equal(t, "custom/2", userAgent(&config.Resolved{UserAgent: "custom/2"}))
}
