package core

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Default OKX endpoints.
const (
	DefaultRESTURL   = "https://www.okx.com"
	DefaultWSURL     = "wss://ws.okx.com:8443/ws"
	SimulatedWSURL   = "wss://wspap.okx.com:8443/ws"
	SimulatedHeader  = "x-simulated-trading"
	DefaultPingEvery = 25 * time.Second
)

// Credentials holds API authentication credentials.
// The secret is optional: without it every request goes out unsigned.
type Credentials struct {
	// APIKey is the public API key identifier.
	APIKey string `json:"api_key" validate:"required"`
	// SecretKey is the private key used for signing requests.
	SecretKey string `json:"secret_key"`
	// Passphrase is the passphrase chosen when the API key was created.
	Passphrase string `json:"passphrase" validate:"required"`
}

// HasSecret reports whether requests can be signed.
func (c *Credentials) HasSecret() bool {
	return c != nil && c.SecretKey != ""
}

// String masks everything but the first and last characters of each field.
func (c Credentials) String() string {
	return "Credentials{APIKey:" + mask(c.APIKey) +
		" SecretKey:" + mask(c.SecretKey) +
		" Passphrase:" + mask(c.Passphrase) + "}"
}

func mask(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

// Config contains all configuration options for the REST and WebSocket clients.
type Config struct {
	Credentials *Credentials `json:"credentials" validate:"required"`

	RESTURL string `json:"rest_url" validate:"required,url"`
	WSURL   string `json:"ws_url" validate:"required,url"`

	// Simulated routes traffic to the OKX demo trading environment.
	Simulated bool `json:"simulated"`

	// Timeout bounds a single HTTP call. Zero keeps the transport default.
	Timeout time.Duration `json:"timeout" validate:"min=0"`

	PingInterval     time.Duration `json:"ping_interval" validate:"min=1ms"`
	PongWait         time.Duration `json:"pong_wait" validate:"min=0"`
	HandshakeTimeout time.Duration `json:"handshake_timeout" validate:"min=0"`

	LogLevel string `json:"log_level" validate:"omitempty,oneof=trace debug info warn error disabled"`
}

// DefaultConfig returns a Config for production OKX hosts with a 25s keep-alive ping.
// Credentials still have to be supplied.
func DefaultConfig() *Config {
	return &Config{
		RESTURL:          DefaultRESTURL,
		WSURL:            DefaultWSURL,
		PingInterval:     DefaultPingEvery,
		PongWait:         10 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		LogLevel:         "info",
	}
}

var validate = validator.New()

// Validate checks the config. Missing API key or passphrase is a configuration error.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return NewConfigError("invalid config").Wrap(err)
	}
	return nil
}

// WSBaseURL returns the WebSocket base URL, switching to the demo host when Simulated
// is set and no custom host was configured.
func (c *Config) WSBaseURL() string {
	if c.Simulated && c.WSURL == DefaultWSURL {
		return SimulatedWSURL
	}
	return strings.TrimRight(c.WSURL, "/")
}

// WithCredentials sets the API credentials and returns the config for chaining.
func (c *Config) WithCredentials(creds *Credentials) *Config {
	c.Credentials = creds
	return c
}

// WithSimulated enables or disables demo trading and returns the config for chaining.
func (c *Config) WithSimulated(simulated bool) *Config {
	c.Simulated = simulated
	return c
}

// WithTimeout sets the HTTP request timeout and returns the config for chaining.
func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.Timeout = timeout
	return c
}

// WithURLs overrides the REST and WebSocket hosts and returns the config for chaining.
func (c *Config) WithURLs(rest, ws string) *Config {
	c.RESTURL = rest
	c.WSURL = ws
	return c
}

// WithKeepAlive sets the ping interval and pong wait and returns the config for chaining.
func (c *Config) WithKeepAlive(ping, pongWait time.Duration) *Config {
	c.PingInterval = ping
	c.PongWait = pongWait
	return c
}
