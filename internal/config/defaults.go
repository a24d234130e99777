package config

// Default values for configuration options. These represent the "layer 0"
// of the four-layer override chain.
const (
	defaultChunkSize      = "64MiB"
	defaultBandwidthLimit = "0"
	defaultLogLevel       = "info"
	defaultLogFormat      = "text"
	defaultConnectTimeout = "10s"
	defaultDataTimeout    = "60s"
	defaultListenAddr     = "127.0.0.1"
	defaultPort           = 3000
)

// DefaultConfig returns a Config populated with all default values.
// This is used both as the starting point for TOML decoding (so unset
// fields retain defaults) and as the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		TransferConfig: TransferConfig{
			ChunkSize:      defaultChunkSize,
			BandwidthLimit: defaultBandwidthLimit,
		},
		LoggingConfig: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
		NetworkConfig: NetworkConfig{
			ConnectTimeout: defaultConnectTimeout,
			DataTimeout:    defaultDataTimeout,
		},
		ServerConfig: ServerConfig{
			ListenAddr: defaultListenAddr,
			Port:       defaultPort,
		},
	}
}
