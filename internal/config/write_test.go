package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTemplate_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "deep", "config.toml")

	require.NoError(t, WriteTemplate(path, false, testLogger(t)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	content := string(data)
	assert.Contains(t, content, "# blob2spo configuration")
	assert.Contains(t, content, `# chunk_size = "64MiB"`)
	assert.Contains(t, content, "# port = 3000")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(configFilePermissions), info.Mode().Perm())
}

func TestWriteTemplate_RoundTripsToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, WriteTemplate(path, false, testLogger(t)))

	cfg, err := Load(path, testLogger(t))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestWriteTemplate_RefusesOverwrite(t *testing.T) {
	path := writeTestConfig(t, "spo_site = \"Keep\"\n")

	err := WriteTemplate(path, false, testLogger(t))
	require.ErrorIs(t, err, ErrConfigExists)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "spo_site = \"Keep\"\n", string(data))
}

func TestWriteTemplate_Force(t *testing.T) {
	path := writeTestConfig(t, "spo_site = \"Old\"\n")

	require.NoError(t, WriteTemplate(path, true, testLogger(t)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, configTemplate, string(data))
}

func TestAtomicWriteFile_NoTempLeftBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	require.NoError(t, atomicWriteFile(path, []byte("x = 1\n")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "config.toml", entries[0].Name())
}
