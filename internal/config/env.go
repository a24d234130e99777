package config

import (
	"log/slog"
	"os"
	"strconv"
)

// Environment variable names for overrides. The credential and port names
// match what Azure Functions custom handlers are given.
const (
	EnvConfig       = "BLOB2SPO_CONFIG"
	EnvDomain       = "SHARE_POINT_DOMAIN"
	EnvPort         = "FUNCTIONS_CUSTOMHANDLER_PORT"
	EnvTenantID     = "AZURE_TENANT_ID"
	EnvClientID     = "AZURE_CLIENT_ID"
	EnvClientSecret = "AZURE_CLIENT_SECRET"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath  string // BLOB2SPO_CONFIG: override config file path
	SPODomain   string // SHARE_POINT_DOMAIN
	Port        int    // FUNCTIONS_CUSTOMHANDLER_PORT; 0 = unset
	Credentials Credentials
}

// ReadEnvOverrides reads environment variables and returns any overrides
// found. A port that is not a number is logged and ignored.
func ReadEnvOverrides(logger *slog.Logger) EnvOverrides {
	env := EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		SPODomain:  os.Getenv(EnvDomain),
		Credentials: Credentials{
			TenantID:     os.Getenv(EnvTenantID),
			ClientID:     os.Getenv(EnvClientID),
			ClientSecret: os.Getenv(EnvClientSecret),
		},
	}

	if raw := os.Getenv(EnvPort); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			logger.Warn("ignoring invalid port from environment",
				slog.String("var", EnvPort),
				slog.String("value", raw),
			)
		} else {
			env.Port = port
		}
	}

	logger.Debug("environment overrides",
		slog.String("config_path", env.ConfigPath),
		slog.String("spo_domain", env.SPODomain),
		slog.Int("port", env.Port),
		slog.Bool("tenant_id_set", env.Credentials.TenantID != ""),
		slog.Bool("client_id_set", env.Credentials.ClientID != ""),
		slog.Bool("client_secret_set", env.Credentials.ClientSecret != ""),
	)

	return env
}
