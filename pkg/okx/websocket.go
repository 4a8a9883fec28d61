package okx

import (
	"context"
	"encoding/json"
	"iter"
	"net/http"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	"okxapi/internal/ws"
	"okxapi/pkg/core"
)

const (
	eventSubscribe = "subscribe"
	eventLogin     = "login"
	eventError     = "error"
)

type wsRequest struct {
	Op   string              `json:"op"`
	Args []map[string]string `json:"args"`
}

type wsResponse struct {
	Event string            `json:"event"`
	Code  string            `json:"code"`
	Msg   string            `json:"msg"`
	Arg   map[string]string `json:"arg"`
	Data  []json.RawMessage `json:"data"`
}

// WSClient opens one socket per subscription.
type WSClient struct {
	config *core.Config
	signer *Signer
	logger zerolog.Logger
}

// NewWSClient validates config and creates a websocket client.
// Credentials are required as for New; the secret is only needed for private channels.
func NewWSClient(config *core.Config, opts ...Option) (*WSClient, error) {
	if config == nil {
		return nil, core.NewConfigError("config is nil")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	options := applyOptions(opts...)

	signer := NewSigner(config.Credentials, options.Clock)
	if !signer.CanSign() {
		options.Logger.Warn().Msg("no secret key configured, private channels are unavailable")
	}

	return &WSClient{
		config: config,
		signer: signer,
		logger: options.Logger,
	}, nil
}

// Endpoint returns the socket URL for a visibility.
func (c *WSClient) Endpoint(v Visibility) string {
	return c.config.WSBaseURL() + "/v5/" + v.String()
}

// Subscription is a live single-channel subscription. It must be closed by its owner.
type Subscription struct {
	channel string
	args    map[string]string
	conn    *ws.Conn
	state   ws.State
	logger  zerolog.Logger

	closeOnce sync.Once
	closeErr  error
}

// Subscribe connects to the endpoint that serves channel, logs in when the
// channel is private, and performs the subscribe handshake. An unknown channel
// fails before any connection is made. A rejected handshake closes the socket
// and returns an error carrying the server message.
func (c *WSClient) Subscribe(ctx context.Context, channel string, args map[string]string) (*Subscription, error) {
	vis, err := ChannelVisibility(channel)
	if err != nil {
		return nil, err
	}

	var login map[string]string
	if vis == Private {
		if login, err = c.signer.LoginArgs(); err != nil {
			return nil, err
		}
	}

	sub := &Subscription{
		channel: channel,
		args:    args,
		logger:  c.logger.With().Str("channel", channel).Logger(),
	}
	if err := sub.state.Transition(ws.StateIdle, ws.StateConnecting); err != nil {
		return nil, err
	}

	var header http.Header
	if c.config.Simulated {
		header = http.Header{core.SimulatedHeader: []string{"1"}}
	}
	conn, err := ws.Dial(ctx, ws.Config{
		URL:              c.Endpoint(vis),
		Header:           header,
		PingInterval:     c.config.PingInterval,
		PongWait:         c.config.PongWait,
		HandshakeTimeout: c.config.HandshakeTimeout,
	}, c.logger)
	if err != nil {
		sub.state.Store(ws.StateFailed)
		return nil, err
	}
	sub.conn = conn

	if err := sub.state.Transition(ws.StateConnecting, ws.StateHandshaking); err != nil {
		sub.fail()
		return nil, err
	}

	if login != nil {
		if err := sub.login(ctx, login); err != nil {
			sub.fail()
			return nil, err
		}
	}

	if err := sub.handshake(ctx); err != nil {
		sub.fail()
		return nil, err
	}

	if err := sub.state.Transition(ws.StateHandshaking, ws.StateSubscribed); err != nil {
		sub.fail()
		return nil, err
	}
	sub.logger.Info().Str("visibility", vis.String()).Msg("subscribed")
	return sub, nil
}

func (s *Subscription) login(ctx context.Context, args map[string]string) error {
	if err := s.conn.Send(wsRequest{Op: "login", Args: []map[string]string{args}}); err != nil {
		return err
	}
	resp, err := s.recvEvent(ctx)
	if err != nil {
		return err
	}
	if resp.Event == eventLogin && (resp.Code == "" || resp.Code == "0") {
		return nil
	}
	return core.NewExchangeErrorWithCode(core.Exchange, core.ErrorTypeAuthentication, 0, resp.Code, resp.Msg).
		Wrap(core.ErrSubscribeRejected)
}

// handshake sends the subscribe frame and reads exactly one reply.
func (s *Subscription) handshake(ctx context.Context) error {
	arg := make(map[string]string, len(s.args)+1)
	for k, v := range s.args {
		arg[k] = v
	}
	arg["channel"] = s.channel

	if err := s.conn.Send(wsRequest{Op: "subscribe", Args: []map[string]string{arg}}); err != nil {
		return err
	}
	resp, err := s.recvEvent(ctx)
	if err != nil {
		return err
	}

	switch resp.Event {
	case eventSubscribe:
		return nil
	case eventError:
		return core.NewExchangeErrorWithCode(core.Exchange, core.ErrorTypeProtocol, 0, resp.Code, resp.Msg).
			Wrap(core.ErrSubscribeRejected)
	}
	return core.NewProtocolError(nil, "unexpected handshake reply %q", resp.Event).WithCode(core.ErrCodeHandshake)
}

func (s *Subscription) recvEvent(ctx context.Context) (*wsResponse, error) {
	raw, err := s.conn.Recv(ctx)
	if err != nil {
		return nil, err
	}
	var resp wsResponse
	if err := sonic.Unmarshal(raw, &resp); err != nil {
		return nil, core.NewProtocolError(err, "decode frame %q", raw)
	}
	return &resp, nil
}

func (s *Subscription) fail() {
	s.state.Store(ws.StateFailed)
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})
}

// Channel returns the subscribed channel name.
func (s *Subscription) Channel() string {
	return s.channel
}

// State returns the current lifecycle state.
func (s *Subscription) State() ws.ConnState {
	return s.state.Load()
}

// Next blocks for the next data frame and returns its single data element.
// A frame whose data does not hold exactly one element is a protocol error.
func (s *Subscription) Next(ctx context.Context) (json.RawMessage, error) {
	if st := s.state.Load(); st.Terminal() || st == ws.StateClosing {
		return nil, core.NewProtocolError(core.ErrStreamClosed, "channel %s is %s", s.channel, st).
			WithCode(core.ErrCodeStreamClosed)
	}
	s.state.CompareAndSwap(ws.StateSubscribed, ws.StateStreaming)

	resp, err := s.recvEvent(ctx)
	if err != nil {
		return nil, err
	}
	if resp.Event == eventError {
		return nil, core.NewExchangeErrorWithCode(core.Exchange, core.ErrorTypeProtocol, 0, resp.Code, resp.Msg)
	}
	if len(resp.Data) != 1 {
		return nil, core.NewProtocolError(core.ErrUnexpectedData, "channel %s frame carries %d data elements, want 1",
			s.channel, len(resp.Data)).WithCode(core.ErrCodeUnexpectedData)
	}
	return resp.Data[0], nil
}

// Stream yields data payloads until the caller stops, ctx ends, or an error
// occurs. The subscription is closed when iteration ends, so a Stream can be
// ranged over only once.
func (s *Subscription) Stream(ctx context.Context) iter.Seq2[json.RawMessage, error] {
	return func(yield func(json.RawMessage, error) bool) {
		defer s.Close()
		for {
			msg, err := s.Next(ctx)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(msg, nil) {
				return
			}
		}
	}
}

// Close closes the socket. It is safe to call more than once.
func (s *Subscription) Close() error {
	s.closeOnce.Do(func() {
		s.state.Store(ws.StateClosing)
		s.closeErr = s.conn.Close()
		s.state.Store(ws.StateClosed)
		s.logger.Info().Msg("subscription closed")
	})
	return s.closeErr
}

// Trades streams public trades for one instrument. The socket is closed when iteration ends.
func (c *WSClient) Trades(ctx context.Context, instID string) iter.Seq2[*Trade, error] {
	return stream(ctx, c, ChannelTrades, instID, func(raw json.RawMessage) (*Trade, error) {
		var d TradeData
		if err := sonic.Unmarshal(raw, &d); err != nil {
			return nil, core.NewParseError(err, "decode trade")
		}
		return NewTrade(&d)
	})
}

// DailyCandles streams daily candlestick updates for one instrument.
func (c *WSClient) DailyCandles(ctx context.Context, instID string) iter.Seq2[*Candlestick, error] {
	return stream(ctx, c, ChannelCandle1D, instID, func(raw json.RawMessage) (*Candlestick, error) {
		var row []string
		if err := sonic.Unmarshal(raw, &row); err != nil {
			return nil, core.NewParseError(err, "decode candlestick")
		}
		return NewCandlestick(row)
	})
}

// OrderBooks streams books channel snapshots and updates for one instrument.
func (c *WSClient) OrderBooks(ctx context.Context, instID string) iter.Seq2[*OrderBook, error] {
	return stream(ctx, c, ChannelBooks, instID, func(raw json.RawMessage) (*OrderBook, error) {
		var d OrderBookData
		if err := sonic.Unmarshal(raw, &d); err != nil {
			return nil, core.NewParseError(err, "decode order book")
		}
		return NewOrderBook(&d)
	})
}

func stream[T any](ctx context.Context, c *WSClient, channel, instID string, decode func(json.RawMessage) (T, error)) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		sub, err := c.Subscribe(ctx, channel, map[string]string{"instId": instID})
		if err != nil {
			yield(zero, err)
			return
		}
		defer sub.Close()

		for raw, err := range sub.Stream(ctx) {
			if err != nil {
				yield(zero, err)
				return
			}
			v, err := decode(raw)
			if err != nil {
				yield(zero, err)
				return
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}
