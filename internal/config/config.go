// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for blob2spo. It supports a four-layer
// override chain (defaults -> config file -> environment -> CLI flags).
// Secrets never come from the config file; the SharePoint service principal
// is read from the environment only.
package config

import "time"

// Config is the top-level configuration structure parsed from a TOML file.
// All keys are flat; the embedded sections only group related fields.
type Config struct {
	TransferConfig
	SharePointConfig
	LoggingConfig
	NetworkConfig
	ServerConfig
}

// TransferConfig controls chunking of uploads into SharePoint.
type TransferConfig struct {
	ChunkSize            string `toml:"chunk_size"`
	RefreshExpiredDigest bool   `toml:"refresh_expired_digest"`
	BandwidthLimit       string `toml:"bandwidth_limit"`
}

// SharePointConfig holds default destination coordinates. Each may be
// overridden per run from the command line.
type SharePointConfig struct {
	SPODomain string `toml:"spo_domain"`
	SPOSite   string `toml:"spo_site"`
	SPOPath   string `toml:"spo_path"`
}

// LoggingConfig controls log output: level and format.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// NetworkConfig controls HTTP client behavior. There is no overall request
// timeout; a 250 MiB chunk on a slow link can take minutes.
type NetworkConfig struct {
	ConnectTimeout string `toml:"connect_timeout"`
	DataTimeout    string `toml:"data_timeout"`
	UserAgent      string `toml:"user_agent"`
}

// ServerConfig controls the HTTP trigger started by "serve".
type ServerConfig struct {
	ListenAddr string `toml:"listen_addr"`
	Port       int    `toml:"port"`
}

// Credentials identify the service principal that writes to SharePoint.
type Credentials struct {
	TenantID     string
	ClientID     string
	ClientSecret string
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Pointer fields distinguish "not specified" (nil)
// from "explicitly set to zero value".
type CLIOverrides struct {
	ConfigPath string  // --config flag (empty = use default)
	ChunkSize  *string // --chunk-size
	SPODomain  *string // --spo-domain
	SPOSite    *string // --spo-site
	SPOPath    *string // --spo-path
	Port       *int    // --port
}

// Resolved is the effective configuration after all four layers, with sizes
// and durations parsed.
type Resolved struct {
	ConfigPath string

	ChunkSize            int64
	RefreshExpiredDigest bool
	BandwidthLimit       int64 // bytes per second, 0 = unlimited

	SPODomain string
	SPOSite   string
	SPOPath   string

	LogLevel  string
	LogFormat string

	ConnectTimeout time.Duration
	DataTimeout    time.Duration
	UserAgent      string

	ListenAddr string
	Port       int

	Credentials Credentials
}
