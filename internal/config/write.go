package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// configFilePermissions is the standard permission mode for config files.
// Owner read/write, group and others read-only.
const configFilePermissions = 0o644

// configDirPermissions is the standard permission mode for config directories.
const configDirPermissions = 0o755

// ErrConfigExists is returned by WriteTemplate when the file is already there.
var ErrConfigExists = errors.New("config file already exists")

// configTemplate is the config file written by "config init". Every setting
// is present as a commented-out default so users can discover every option
// without reading docs.
const configTemplate = `# blob2spo configuration
#
# Credentials are never read from this file. Set AZURE_TENANT_ID,
# AZURE_CLIENT_ID and AZURE_CLIENT_SECRET in the environment.

# ── Transfer ──

# Files up to this size are written in one request; larger files are
# uploaded in chunks of this size. 1MiB to 250MiB.
# chunk_size = "64MiB"

# Fetch a new form digest when the current one expires mid-transfer.
# refresh_expired_digest = false

# Cap on how fast the blob is read, e.g. "5MB/s". "0" means unlimited.
# bandwidth_limit = "0"

# ── SharePoint destination defaults ──

# Tenant name, as in https://<spo_domain>.sharepoint.com
# spo_domain = ""
# spo_site = ""
# Server-relative folder, e.g. "/sites/MVP/Shared Documents"
# spo_path = ""

# ── Logging ──

# debug, info, warn, error
# log_level = "info"
# text or json
# log_format = "text"

# ── Network ──

# connect_timeout = "10s"
# data_timeout = "60s"
# user_agent = ""

# ── HTTP trigger (serve) ──

# listen_addr = "127.0.0.1"
# port = 3000
`

// WriteTemplate writes the commented default config to path. It refuses to
// replace an existing file unless force is set. The write is atomic.
func WriteTemplate(path string, force bool, logger *slog.Logger) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
	}

	logger.Info("writing config template", slog.String("path", path))

	return atomicWriteFile(path, []byte(configTemplate))
}

// atomicWriteFile writes data to path via a temp file and rename, so
// readers never observe a partial file.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, configDirPermissions); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	tempPath := f.Name()

	// Clean up the temp file on any error path.
	succeeded := false
	defer func() {
		if !succeeded {
			os.Remove(tempPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()

		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Chmod(tempPath, configFilePermissions); err != nil {
		return fmt.Errorf("setting file permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	succeeded = true

	return nil
}
