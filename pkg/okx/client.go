package okx

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	httpClient "okxapi/internal/http"
	"okxapi/pkg/core"
)

// Response is a decoded JSON response body, returned as the server sent it.
type Response map[string]any

// Client dispatches REST requests. It holds no per-request state, so one
// Client may be shared by any number of goroutines.
type Client struct {
	config     *core.Config
	httpClient *httpClient.Client
	signer     *Signer
	logger     zerolog.Logger
}

// New validates config and creates a REST client. A missing secret is not an
// error: requests then go out unsigned and only public endpoints will work.
func New(config *core.Config, opts ...Option) (*Client, error) {
	if config == nil {
		return nil, core.NewConfigError("config is nil")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	options := applyOptions(opts...)

	headers := map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	}
	if config.Simulated {
		headers[core.SimulatedHeader] = "1"
	}

	hc, err := httpClient.NewClient(&httpClient.Config{
		BaseURL: config.RESTURL,
		Timeout: config.Timeout,
		Headers: headers,
	}, options.Logger)
	if err != nil {
		return nil, fmt.Errorf("create http client: %w", err)
	}

	signer := NewSigner(config.Credentials, options.Clock)
	if !signer.CanSign() {
		options.Logger.Warn().Msg("no secret key configured, requests will be sent unauthenticated")
	}

	return &Client{
		config:     config,
		httpClient: hc,
		signer:     signer,
		logger:     options.Logger,
	}, nil
}

// Close releases the underlying HTTP client.
func (c *Client) Close() error {
	return c.httpClient.Close()
}

// Request sends method path+query with body serialized as minified JSON and
// returns the decoded response verbatim. The OKX code/msg envelope is not
// interpreted here, so a rejected request still returns a Response.
func (c *Client) Request(ctx context.Context, method, path string, query *Query, body map[string]any) (Response, error) {
	data, status, err := c.do(ctx, method, path, query, body)
	if err != nil {
		return nil, err
	}
	var out Response
	if err := sonic.Unmarshal(data, &out); err != nil {
		return nil, core.NewParseError(err, "decode %s %s response (status %d)", method, path, status)
	}
	return out, nil
}

// Get is Request with GET and no body.
func (c *Client) Get(ctx context.Context, path string, query *Query) (Response, error) {
	return c.Request(ctx, "GET", path, query, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query *Query, body map[string]any) ([]byte, int, error) {
	payload, err := encodeBody(body)
	if err != nil {
		return nil, 0, err
	}

	req := core.NewRequest(method, path).
		SetQuery(query.String()).
		SetBody(payload)
	c.signer.SignRequest(req)

	resp, err := c.httpClient.Do(ctx, req.Method, req.RequestPath(), req.Body, httpClient.WithHeaders(req.Headers))
	if err != nil {
		return nil, 0, err
	}
	return resp.Bytes(), resp.StatusCode(), nil
}

// encodeBody produces the exact body string that is both sent and signed:
// sorted keys, no whitespace, and "" rather than "{}" for no fields.
func encodeBody(body map[string]any) (string, error) {
	if len(body) == 0 {
		return "", nil
	}
	data, err := sonic.ConfigStd.Marshal(body)
	if err != nil {
		return "", core.NewValidationError("body is not serializable: %v", err)
	}
	return string(data), nil
}

type envelope[T any] struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data T      `json:"data"`
}

// fetch performs a GET and unwraps the OKX envelope, turning a non-zero code into an error.
func fetch[T any](ctx context.Context, c *Client, path string, query *Query) (T, error) {
	var zero T
	data, status, err := c.do(ctx, "GET", path, query, nil)
	if err != nil {
		return zero, err
	}
	var env envelope[T]
	if err := sonic.Unmarshal(data, &env); err != nil {
		return zero, core.NewParseError(err, "decode %s response (status %d)", path, status)
	}
	if env.Code != "0" {
		return zero, newAPIError(status, env.Code, env.Msg)
	}
	return env.Data, nil
}
