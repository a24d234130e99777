package config

import (
	"fmt"
	"io"
)

// RenderEffective writes the resolved configuration as an annotated summary
// to w. Secrets are reported as set or unset, never printed.
func RenderEffective(r *Resolved, w io.Writer) error {
	ew := &errWriter{w: w}

	if r.ConfigPath != "" {
		ew.printf("# Effective configuration (file: %s)\n\n", r.ConfigPath)
	} else {
		ew.printf("# Effective configuration (no config file)\n\n")
	}

	ew.printf("[transfer]\n")
	ew.printf("  chunk_size             = %d  # bytes\n", r.ChunkSize)
	ew.printf("  refresh_expired_digest = %t\n", r.RefreshExpiredDigest)
	ew.printf("  bandwidth_limit        = %d  # bytes/s, 0 = unlimited\n", r.BandwidthLimit)
	ew.printf("\n")

	ew.printf("[sharepoint]\n")
	ew.printf("  spo_domain = %q\n", r.SPODomain)
	ew.printf("  spo_site   = %q\n", r.SPOSite)
	ew.printf("  spo_path   = %q\n", r.SPOPath)
	ew.printf("\n")

	ew.printf("[credentials]\n")
	ew.printf("  %-19s = %s\n", EnvTenantID, setOrUnset(r.Credentials.TenantID))
	ew.printf("  %-19s = %s\n", EnvClientID, setOrUnset(r.Credentials.ClientID))
	ew.printf("  %-19s = %s\n", EnvClientSecret, setOrUnset(r.Credentials.ClientSecret))
	ew.printf("\n")

	ew.printf("[logging]\n")
	ew.printf("  log_level  = %q\n", r.LogLevel)
	ew.printf("  log_format = %q\n", r.LogFormat)
	ew.printf("\n")

	ew.printf("[network]\n")
	ew.printf("  connect_timeout = %q\n", r.ConnectTimeout.String())
	ew.printf("  data_timeout    = %q\n", r.DataTimeout.String())

	if r.UserAgent != "" {
		ew.printf("  user_agent      = %q\n", r.UserAgent)
	}

	ew.printf("\n")

	ew.printf("[server]\n")
	ew.printf("  listen_addr = %q\n", r.ListenAddr)
	ew.printf("  port        = %d\n", r.Port)

	return ew.err
}

func setOrUnset(v string) string {
	if v == "" {
		return "(unset)"
	}

	return "(set)"
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops, so callers can chain
// printf calls without checking each one individually.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
