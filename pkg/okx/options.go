package okx

import (
	"time"

	"github.com/rs/zerolog"
)

// Option is a functional option for configuring the REST and WebSocket clients.
type Option func(*Options)

// Options holds the optional collaborators of a client.
type Options struct {
	Logger zerolog.Logger
	// Clock supplies signing timestamps. Defaults to time.Now.
	Clock func() time.Time
}

// WithLogger returns an option that sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithClock returns an option that replaces the signing clock.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		o.Clock = now
	}
}

func applyOptions(opts ...Option) *Options {
	options := &Options{
		Logger: zerolog.Nop(),
		Clock:  time.Now,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}
