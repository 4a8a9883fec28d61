package okx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/lxzan/gws"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"okxapi/internal/ws"
	"okxapi/pkg/core"
)

func newTestLogger(t *testing.T) zerolog.Logger {
	return zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel)
}

// fakeOKX speaks just enough of the OKX socket protocol: it answers login and
// subscribe requests and then pushes the configured data frames.
type fakeOKX struct {
	gws.BuiltinEventHandler

	loginCode string
	// ackFrame replaces the normal subscribe acknowledgement when set.
	ackFrame string
	frames   []string

	mu       sync.Mutex
	paths    []string
	requests []wsRequest

	closed atomic.Int32
}

func (s *fakeOKX) OnMessage(socket *gws.Conn, message *gws.Message) {
	defer message.Close()

	var req wsRequest
	if err := sonic.Unmarshal(message.Bytes(), &req); err != nil {
		return
	}
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	switch req.Op {
	case "login":
		code := s.loginCode
		if code == "" {
			code = "0"
		}
		s.write(socket, `{"event":"login","code":"`+code+`","msg":""}`)
	case "subscribe":
		if s.ackFrame != "" {
			s.write(socket, s.ackFrame)
			return
		}
		ack, _ := sonic.MarshalString(map[string]any{"event": "subscribe", "arg": req.Args[0]})
		s.write(socket, ack)
		for _, f := range s.frames {
			s.write(socket, f)
		}
	}
}

func (s *fakeOKX) write(socket *gws.Conn, frame string) {
	_ = socket.WriteMessage(gws.OpcodeText, []byte(frame))
}

func (s *fakeOKX) OnClose(socket *gws.Conn, err error) {
	s.closed.Add(1)
}

func (s *fakeOKX) connections() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.paths...)
}

func (s *fakeOKX) received() []wsRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]wsRequest(nil), s.requests...)
}

// start serves s and returns a config whose WS host points at it.
func (s *fakeOKX) start(t *testing.T, secret string) *core.Config {
	t.Helper()
	upgrader := gws.NewUpgrader(s, &gws.ServerOption{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.paths = append(s.paths, r.URL.Path)
		s.mu.Unlock()
		socket, err := upgrader.Upgrade(w, r)
		if err != nil {
			return
		}
		go socket.ReadLoop()
	}))
	t.Cleanup(server.Close)

	return core.DefaultConfig().
		WithCredentials(&core.Credentials{APIKey: "key", SecretKey: secret, Passphrase: "pass"}).
		WithURLs("http://127.0.0.1", "ws"+strings.TrimPrefix(server.URL, "http")+"/ws/").
		WithKeepAlive(time.Second, 5*time.Second)
}

func newTestWSClient(t *testing.T, config *core.Config) *WSClient {
	t.Helper()
	client, err := NewWSClient(config,
		WithLogger(newTestLogger(t)),
		WithClock(fixedClock(time.Unix(1538054050, 0))))
	require.NoError(t, err)
	return client
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func tradeFrame(id string) string {
	return `{"arg":{"channel":"trades","instId":"BTC-USDT"},"data":[{"instId":"BTC-USDT","tradeId":"` + id +
		`","px":"42219.9","sz":"0.12","side":"buy","ts":"1630048897897"}]}`
}

func TestWSClient_Endpoint(t *testing.T) {
	tests := []struct {
		name   string
		config *core.Config
		vis    Visibility
		want   string
	}{
		{"public", core.DefaultConfig(), Public, "wss://ws.okx.com:8443/ws/v5/public"},
		{"private", core.DefaultConfig(), Private, "wss://ws.okx.com:8443/ws/v5/private"},
		{"simulated", core.DefaultConfig().WithSimulated(true), Public, "wss://wspap.okx.com:8443/ws/v5/public"},
		{"custom_host", core.DefaultConfig().WithURLs(core.DefaultRESTURL, "ws://localhost:9000/ws/"), Private,
			"ws://localhost:9000/ws/v5/private"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.WithCredentials(&core.Credentials{APIKey: "k", Passphrase: "p"})
			client, err := NewWSClient(tt.config)
			require.NoError(t, err)
			assert.Equal(t, tt.want, client.Endpoint(tt.vis))
		})
	}
}

func TestNewWSClient_InvalidConfig(t *testing.T) {
	_, err := NewWSClient(nil)
	assert.True(t, core.IsConfigError(err))

	_, err = NewWSClient(core.DefaultConfig())
	assert.True(t, core.IsConfigError(err))
}

func TestSubscribe_UnknownChannelDoesNotDial(t *testing.T) {
	server := &fakeOKX{}
	client := newTestWSClient(t, server.start(t, "secret"))

	sub, err := client.Subscribe(testContext(t), "candle7m", map[string]string{"instId": "BTC-USDT"})

	require.Error(t, err)
	assert.Nil(t, sub)
	assert.ErrorIs(t, err, core.ErrInvalidChannel)
	assert.Empty(t, server.connections())
}

func TestSubscribe_PrivateWithoutSecretDoesNotDial(t *testing.T) {
	server := &fakeOKX{}
	client := newTestWSClient(t, server.start(t, ""))

	_, err := client.Subscribe(testContext(t), ChannelOrders, map[string]string{"instType": "SPOT"})

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNoCredentials)
	assert.True(t, core.IsAuthenticationError(err))
	assert.Empty(t, server.connections())
}

func TestSubscribe_PublicStream(t *testing.T) {
	server := &fakeOKX{frames: []string{tradeFrame("1"), tradeFrame("2"), tradeFrame("3")}}
	client := newTestWSClient(t, server.start(t, ""))
	ctx := testContext(t)

	sub, err := client.Subscribe(ctx, ChannelTrades, map[string]string{"instId": "BTC-USDT"})
	require.NoError(t, err)
	assert.Equal(t, ws.StateSubscribed, sub.State())
	assert.Equal(t, ChannelTrades, sub.Channel())

	assert.Equal(t, []string{"/ws/v5/public"}, server.connections())
	reqs := server.received()
	require.Len(t, reqs, 1)
	assert.Equal(t, "subscribe", reqs[0].Op)
	assert.Equal(t, []map[string]string{{"channel": "trades", "instId": "BTC-USDT"}}, reqs[0].Args)

	var payloads []string
	for msg, err := range sub.Stream(ctx) {
		require.NoError(t, err)
		payloads = append(payloads, string(msg))
		if len(payloads) == 2 {
			break
		}
	}
	require.Len(t, payloads, 2)
	assert.Contains(t, payloads[0], `"tradeId":"1"`)
	assert.Contains(t, payloads[1], `"tradeId":"2"`)

	assert.Equal(t, ws.StateClosed, sub.State())
	assert.NoError(t, sub.Close())
	assert.Eventually(t, func() bool { return server.closed.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), server.closed.Load())

	_, err = sub.Next(ctx)
	assert.ErrorIs(t, err, core.ErrStreamClosed)
	assert.True(t, core.IsErrorCode(err, core.ErrCodeStreamClosed))
}

func TestSubscribe_Rejected(t *testing.T) {
	server := &fakeOKX{ackFrame: `{"event":"error","code":"60018","msg":"x"}`}
	client := newTestWSClient(t, server.start(t, ""))

	sub, err := client.Subscribe(testContext(t), ChannelTrades, map[string]string{"instId": "BTC-USDT"})

	require.Error(t, err)
	assert.Nil(t, sub)
	assert.ErrorIs(t, err, core.ErrSubscribeRejected)
	var exErr *core.ExchangeError
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, core.ErrorTypeProtocol, exErr.Type)
	assert.Equal(t, "x", exErr.Message)
	assert.Equal(t, "60018", exErr.Code)
	assert.Eventually(t, func() bool { return server.closed.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestSubscribe_UnexpectedHandshakeReply(t *testing.T) {
	server := &fakeOKX{ackFrame: tradeFrame("1")}
	client := newTestWSClient(t, server.start(t, ""))

	_, err := client.Subscribe(testContext(t), ChannelTrades, map[string]string{"instId": "BTC-USDT"})

	require.Error(t, err)
	assert.True(t, core.IsProtocolError(err))
	assert.NotErrorIs(t, err, core.ErrSubscribeRejected)
}

func TestSubscription_NextRequiresOneDataElement(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{"two_elements", `{"arg":{"channel":"trades","instId":"BTC-USDT"},"data":[{"tradeId":"1"},{"tradeId":"2"}]}`},
		{"empty_data", `{"arg":{"channel":"trades","instId":"BTC-USDT"},"data":[]}`},
		{"missing_data", `{"arg":{"channel":"trades","instId":"BTC-USDT"}}`},
		{"null_data", `{"arg":{"channel":"trades","instId":"BTC-USDT"},"data":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := &fakeOKX{frames: []string{tt.frame}}
			client := newTestWSClient(t, server.start(t, ""))
			ctx := testContext(t)

			sub, err := client.Subscribe(ctx, ChannelTrades, map[string]string{"instId": "BTC-USDT"})
			require.NoError(t, err)
			defer sub.Close()

			msg, err := sub.Next(ctx)
			require.Error(t, err)
			assert.Nil(t, msg)
			assert.ErrorIs(t, err, core.ErrUnexpectedData)
			assert.True(t, core.IsProtocolError(err))
			assert.Equal(t, ws.StateStreaming, sub.State())
		})
	}
}

func TestSubscription_NextHonorsContext(t *testing.T) {
	server := &fakeOKX{}
	client := newTestWSClient(t, server.start(t, ""))

	sub, err := client.Subscribe(testContext(t), ChannelTickers, map[string]string{"instId": "BTC-USDT"})
	require.NoError(t, err)
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = sub.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubscribe_PrivateLogin(t *testing.T) {
	server := &fakeOKX{}
	client := newTestWSClient(t, server.start(t, "secret"))

	sub, err := client.Subscribe(testContext(t), ChannelOrders, map[string]string{"instType": "SPOT"})
	require.NoError(t, err)

	assert.Equal(t, []string{"/ws/v5/private"}, server.connections())
	reqs := server.received()
	require.Len(t, reqs, 2)
	assert.Equal(t, "login", reqs[0].Op)
	assert.Equal(t, []map[string]string{{
		"apiKey":     "key",
		"passphrase": "pass",
		"timestamp":  "1538054050",
		"sign":       "Gj2hQIVKFcXbiwCak8SmVOu5mxPCizWDdmUAhbx8Z+s=",
	}}, reqs[0].Args)
	assert.Equal(t, "subscribe", reqs[1].Op)
	assert.Equal(t, "orders", reqs[1].Args[0]["channel"])

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	assert.Eventually(t, func() bool { return server.closed.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestSubscribe_LoginRejected(t *testing.T) {
	server := &fakeOKX{loginCode: "60009"}
	client := newTestWSClient(t, server.start(t, "secret"))

	_, err := client.Subscribe(testContext(t), ChannelAccount, nil)

	require.Error(t, err)
	assert.True(t, core.IsAuthenticationError(err))
	assert.Len(t, server.received(), 1)
	assert.Eventually(t, func() bool { return server.closed.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestSubscribe_DialFailure(t *testing.T) {
	config := core.DefaultConfig().
		WithCredentials(&core.Credentials{APIKey: "k", Passphrase: "p"}).
		WithURLs(core.DefaultRESTURL, "ws://127.0.0.1:1/ws")
	client := newTestWSClient(t, config)

	_, err := client.Subscribe(testContext(t), ChannelTrades, map[string]string{"instId": "BTC-USDT"})

	require.Error(t, err)
	assert.True(t, core.IsNetworkError(err) || core.IsTimeoutError(err), "got %v", err)
}

func TestWSClient_Trades(t *testing.T) {
	server := &fakeOKX{frames: []string{tradeFrame("7"), tradeFrame("8")}}
	client := newTestWSClient(t, server.start(t, ""))

	var trades []*Trade
	for trade, err := range client.Trades(testContext(t), "BTC-USDT") {
		require.NoError(t, err)
		trades = append(trades, trade)
		if len(trades) == 2 {
			break
		}
	}

	require.Len(t, trades, 2)
	assert.Equal(t, "7", trades[0].TradeID)
	assert.Equal(t, core.SideBuy, trades[1].Side)
	assert.Eventually(t, func() bool { return server.closed.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWSClient_DailyCandles(t *testing.T) {
	server := &fakeOKX{frames: []string{
		`{"arg":{"channel":"candle1D","instId":"BTC-USDT"},"data":[["1620000000000","1","2","0.5","1.5","10","15","15","0"]]}`,
	}}
	client := newTestWSClient(t, server.start(t, ""))

	for candle, err := range client.DailyCandles(testContext(t), "BTC-USDT") {
		require.NoError(t, err)
		assert.Equal(t, "0.5", candle.Change.String())
		assert.False(t, candle.Confirmed)
		break
	}
	reqs := server.received()
	require.Len(t, reqs, 1)
	assert.Equal(t, ChannelCandle1D, reqs[0].Args[0]["channel"])
}

func TestWSClient_OrderBooksDecodeError(t *testing.T) {
	server := &fakeOKX{frames: []string{
		`{"arg":{"channel":"books","instId":"BTC-USDT"},"data":[{"asks":[["1"]],"bids":[],"ts":"1"}]}`,
	}}
	client := newTestWSClient(t, server.start(t, ""))

	var errs []error
	for _, err := range client.OrderBooks(testContext(t), "BTC-USDT") {
		errs = append(errs, err)
	}

	require.Len(t, errs, 1)
	assert.True(t, core.IsParseError(errs[0]))
	assert.Eventually(t, func() bool { return server.closed.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}
