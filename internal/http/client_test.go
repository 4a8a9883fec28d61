package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"okxapi/pkg/core"
)

func TestNewClient_InvalidConfig(t *testing.T) {
	_, err := NewClient(&Config{BaseURL: ""}, zerolog.Nop())

	require.Error(t, err)
	assert.True(t, core.IsConfigError(err))
}

func TestClient_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/api/v5/market/ticker", r.URL.Path)
		assert.Equal(t, "instId=BTC-USDT", r.URL.RawQuery)
		assert.Equal(t, "v", r.Header.Get("X-Test"))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"code":"0"}`))
	}))
	defer server.Close()

	client, err := NewClient(&Config{BaseURL: server.URL}, zerolog.Nop())
	require.NoError(t, err)
	defer client.Close()

	resp, err := client.Get(context.Background(), "/api/v5/market/ticker?instId=BTC-USDT", WithHeader("X-Test", "v"))

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode())
	assert.JSONEq(t, `{"code":"0"}`, string(resp.Bytes()))
}

func TestClient_Do_RawBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, `{"a":1,"b":"x"}`, string(body))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client, err := NewClient(&Config{BaseURL: server.URL}, zerolog.Nop())
	require.NoError(t, err)

	resp, err := client.Do(context.Background(), "POST", "/x", `{"a":1,"b":"x"}`,
		WithHeaders(map[string]string{"Content-Type": "application/json"}))

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode())
}

func TestClient_NoRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewClient(&Config{BaseURL: server.URL}, zerolog.Nop())
	require.NoError(t, err)

	resp, err := client.Get(context.Background(), "/down")

	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode())
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client, err := NewClient(&Config{BaseURL: url}, zerolog.Nop())
	require.NoError(t, err)

	_, err = client.Get(context.Background(), "/gone")

	require.Error(t, err)
	assert.True(t, core.IsNetworkError(err))
}

func TestClient_Closed(t *testing.T) {
	client, err := NewClient(&Config{BaseURL: "http://localhost"}, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	_, err = client.Get(context.Background(), "/x")
	assert.ErrorIs(t, err, core.ErrClientClosed)
}
