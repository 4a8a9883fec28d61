package http

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"resty.dev/v3"

	"okxapi/pkg/core"
)

// Client is a thin resty wrapper. It never retries; a zero Timeout keeps the transport default.
type Client struct {
	client *resty.Client
	logger zerolog.Logger
	mu     sync.RWMutex
	closed bool
}

type Config struct {
	BaseURL string            `validate:"required,url"`
	Timeout time.Duration     `validate:"min=0"`
	Headers map[string]string `validate:"omitempty"`
}

type RequestOption func(*resty.Request)

var validate = validator.New()

// NewClient validates config and builds a resty client that never retries.
func NewClient(config *Config, logger zerolog.Logger) (*Client, error) {
	if err := validate.Struct(config); err != nil {
		return nil, core.NewConfigError("invalid http config").Wrap(err)
	}

	client := resty.New()
	client.SetBaseURL(config.BaseURL)
	if config.Timeout > 0 {
		client.SetTimeout(config.Timeout)
	}
	client.SetRetryCount(0)
	client.AddContentTypeEncoder("application/json", func(w io.Writer, v any) error {
		data, err := sonic.ConfigStd.Marshal(v)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	})
	client.AddContentTypeDecoder("application/json", func(r io.Reader, v any) error {
		data, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		return sonic.Unmarshal(data, v)
	})

	for k, v := range config.Headers {
		client.SetHeader(k, v)
	}

	client.AddRequestMiddleware(func(_ *resty.Client, req *resty.Request) error {
		logger.Debug().
			Str("method", req.Method).
			Str("url", req.URL).
			Msg("http request")
		return nil
	})

	client.AddResponseMiddleware(func(_ *resty.Client, resp *resty.Response) error {
		logger.Debug().
			Str("method", resp.Request.Method).
			Str("url", resp.Request.URL).
			Int("status", resp.StatusCode()).
			Int("size", len(resp.Bytes())).
			Msg("http response")
		return nil
	})

	return &Client{
		client: client,
		logger: logger,
	}, nil
}

// Close releases idle connections. Later requests fail with core.ErrClientClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.client.Close()
}

// Do sends a request with a pre-serialized body. An empty body sends no payload.
func (c *Client) Do(ctx context.Context, method, url, body string, opts ...RequestOption) (*resty.Response, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, core.ErrClientClosed
	}

	req := c.client.R().SetContext(ctx)
	if body != "" {
		req.SetBody(body)
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := req.Execute(method, url)
	if err != nil {
		if ctx.Err() != nil {
			return nil, core.NewExchangeError(core.Exchange, core.ErrorTypeTimeout, 0,
				fmt.Sprintf("%s %s", method, url)).Wrap(err)
		}
		return nil, core.NewExchangeError(core.Exchange, core.ErrorTypeNetwork, 0,
			fmt.Sprintf("%s %s", method, url)).Wrap(err)
	}
	return resp, nil
}

func (c *Client) Get(ctx context.Context, url string, opts ...RequestOption) (*resty.Response, error) {
	return c.Do(ctx, "GET", url, "", opts...)
}

func WithHeader(key, value string) RequestOption {
	return func(r *resty.Request) {
		r.SetHeader(key, value)
	}
}

func WithHeaders(headers map[string]string) RequestOption {
	return func(r *resty.Request) {
		r.SetHeaders(headers)
	}
}
