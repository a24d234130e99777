package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validation range constants.
const (
	minChunkBytes     = 1 * mebibyte
	maxChunkBytes     = 250 * mebibyte
	minConnectTimeout = 1 * time.Second
	minDataTimeout    = 5 * time.Second
	minPort           = 1
	maxPort           = 65535
)

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateTransfer(&cfg.TransferConfig)...)
	errs = append(errs, validateSharePoint(&cfg.SharePointConfig)...)
	errs = append(errs, validateLogging(&cfg.LoggingConfig)...)
	errs = append(errs, validateNetwork(&cfg.NetworkConfig)...)
	errs = append(errs, validateServer(&cfg.ServerConfig)...)

	return errors.Join(errs...)
}

func validateTransfer(t *TransferConfig) []error {
	errs := validateChunkSize(t.ChunkSize)

	if _, err := ParseRate(t.BandwidthLimit); err != nil {
		errs = append(errs, fmt.Errorf("bandwidth_limit: %w", err))
	}

	return errs
}

func validateChunkSize(s string) []error {
	bytes, err := ParseSize(s)
	if err != nil {
		return []error{fmt.Errorf("chunk_size: %w", err)}
	}

	if bytes < minChunkBytes || bytes > maxChunkBytes {
		return []error{fmt.Errorf("chunk_size: must be between 1MiB and 250MiB, got %s", s)}
	}

	return nil
}

func validateSharePoint(s *SharePointConfig) []error {
	var errs []error

	if strings.ContainsAny(s.SPODomain, "./:") {
		errs = append(errs, fmt.Errorf(
			"spo_domain: must be the tenant name only (contoso, not contoso.sharepoint.com), got %q", s.SPODomain))
	}

	if s.SPOSite != "" && strings.Contains(s.SPOSite, "/") {
		errs = append(errs, fmt.Errorf("spo_site: must be a single site name, got %q", s.SPOSite))
	}

	if s.SPOPath != "" && !strings.HasPrefix(s.SPOPath, "/") {
		errs = append(errs, fmt.Errorf("spo_path: must be server-relative and start with /, got %q", s.SPOPath))
	}

	return errs
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	errs = append(errs, validateLogLevel(l.LogLevel)...)
	errs = append(errs, validateLogFormat(l.LogFormat)...)

	return errs
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

func validateLogLevel(level string) []error {
	if !validLogLevels[level] {
		return []error{fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", level)}
	}

	return nil
}

var validLogFormats = map[string]bool{
	"text": true,
	"json": true,
}

func validateLogFormat(format string) []error {
	if !validLogFormats[format] {
		return []error{fmt.Errorf("log_format: must be one of text, json; got %q", format)}
	}

	return nil
}

func validateNetwork(n *NetworkConfig) []error {
	var errs []error

	errs = append(errs, validateDurationMin("connect_timeout", n.ConnectTimeout, minConnectTimeout)...)
	errs = append(errs, validateDurationMin("data_timeout", n.DataTimeout, minDataTimeout)...)

	return errs
}

func validateServer(s *ServerConfig) []error {
	var errs []error

	if s.ListenAddr == "" {
		errs = append(errs, errors.New("listen_addr: must not be empty"))
	}

	if s.Port < minPort || s.Port > maxPort {
		errs = append(errs, fmt.Errorf("port: must be between %d and %d, got %d", minPort, maxPort, s.Port))
	}

	return errs
}

func parseDuration(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", field, value, err)
	}

	return d, nil
}

func validateDurationMin(field, value string, minimum time.Duration) []error {
	d, err := parseDuration(field, value)
	if err != nil {
		return []error{err}
	}

	if d < minimum {
		return []error{fmt.Errorf("%s: must be >= %s, got %s", field, minimum, d)}
	}

	return nil
}
