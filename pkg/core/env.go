package core

import (
	"os"

	"github.com/joho/godotenv"
)

// Environment variable names. The OKEX_ spellings predate the rebrand and are still honored.
const (
	EnvAPIKey     = "OKX_API_KEY"
	EnvPassphrase = "OKX_PASSPHRASE"
	EnvSecretKey  = "OKX_SECRET_KEY"
	EnvRESTURL    = "OKX_REST_URL"
	EnvWSURL      = "OKX_WS_URL"
	EnvSimulated  = "OKX_SIMULATED"
	EnvLogLevel   = "OKX_LOG_LEVEL"
)

var legacyEnv = map[string]string{
	EnvAPIKey:     "OKEX_API_KEY",
	EnvPassphrase: "OKEX_PASSPHRASE",
	EnvSecretKey:  "OKEX_SECRET_KEY",
}

// ConfigFromEnv builds a Config from the process environment.
// Named files are loaded with godotenv first and must exist; with no names a
// ./.env file is loaded when present. Variables already set in the process win.
// The result is not validated; clients validate on construction.
func ConfigFromEnv(files ...string) (*Config, error) {
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return nil, NewConfigError("load env files").Wrap(err)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, NewConfigError("load .env").Wrap(err)
		}
	}

	cfg := DefaultConfig()
	cfg.Credentials = &Credentials{
		APIKey:     lookupEnv(EnvAPIKey),
		SecretKey:  lookupEnv(EnvSecretKey),
		Passphrase: lookupEnv(EnvPassphrase),
	}
	if v := lookupEnv(EnvRESTURL); v != "" {
		cfg.RESTURL = v
	}
	if v := lookupEnv(EnvWSURL); v != "" {
		cfg.WSURL = v
	}
	if v := lookupEnv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	switch lookupEnv(EnvSimulated) {
	case "1", "true", "TRUE", "yes":
		cfg.Simulated = true
	}
	return cfg, nil
}

func lookupEnv(name string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	if legacy, ok := legacyEnv[name]; ok {
		return os.Getenv(legacy)
	}
	return ""
}
