package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal, with "did you mean?" suggestions.
func Load(path string, logger *slog.Logger) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	logger.Debug("config file loaded",
		slog.String("path", path),
		slog.Int("keys", len(md.Keys())),
	)

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// a Config populated with all default values.
func LoadOrDefault(path string, logger *slog.Logger) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Debug("no config file, using defaults", slog.String("path", path))

		return DefaultConfig(), nil
	}

	return Load(path, logger)
}

// Resolve loads configuration and applies the four-layer override chain:
// defaults -> config file -> environment variables -> CLI flags.
func Resolve(env EnvOverrides, cli CLIOverrides, logger *slog.Logger) (*Resolved, error) {
	// 1. Resolve config path: CLI > env > default
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	// 2. Load config file (returns defaults if no file exists)
	cfg, err := LoadOrDefault(cfgPath, logger)
	if err != nil {
		return nil, err
	}

	// 3. Apply env overrides
	if env.SPODomain != "" {
		cfg.SPODomain = env.SPODomain
	}

	if env.Port != 0 {
		cfg.Port = env.Port
	}

	// 4. Apply CLI overrides (pointer fields: nil = not specified)
	applyCLIOverrides(cfg, cli)

	// 5. Validate the merged result; flag values have not been checked yet.
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	resolved, err := resolve(cfg)
	if err != nil {
		return nil, err
	}

	resolved.ConfigPath = cfgPath
	resolved.Credentials = env.Credentials

	return resolved, nil
}

func applyCLIOverrides(cfg *Config, cli CLIOverrides) {
	if cli.ChunkSize != nil {
		cfg.ChunkSize = *cli.ChunkSize
	}

	if cli.SPODomain != nil {
		cfg.SPODomain = *cli.SPODomain
	}

	if cli.SPOSite != nil {
		cfg.SPOSite = *cli.SPOSite
	}

	if cli.SPOPath != nil {
		cfg.SPOPath = *cli.SPOPath
	}

	if cli.Port != nil {
		cfg.Port = *cli.Port
	}
}

// resolve parses the string-typed sizes and durations of a validated Config.
func resolve(cfg *Config) (*Resolved, error) {
	chunk, err := ParseSize(cfg.ChunkSize)
	if err != nil {
		return nil, fmt.Errorf("chunk_size: %w", err)
	}

	bandwidth, err := ParseRate(cfg.BandwidthLimit)
	if err != nil {
		return nil, fmt.Errorf("bandwidth_limit: %w", err)
	}

	connect, err := parseDuration("connect_timeout", cfg.ConnectTimeout)
	if err != nil {
		return nil, err
	}

	data, err := parseDuration("data_timeout", cfg.DataTimeout)
	if err != nil {
		return nil, err
	}

	return &Resolved{
		ChunkSize:            chunk,
		RefreshExpiredDigest: cfg.RefreshExpiredDigest,
		BandwidthLimit:       bandwidth,
		SPODomain:            cfg.SPODomain,
		SPOSite:              cfg.SPOSite,
		SPOPath:              cfg.SPOPath,
		LogLevel:             cfg.LogLevel,
		LogFormat:            cfg.LogFormat,
		ConnectTimeout:       connect,
		DataTimeout:          data,
		UserAgent:            cfg.UserAgent,
		ListenAddr:           cfg.ListenAddr,
		Port:                 cfg.Port,
	}, nil
}
