package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/lxzan/gws"
	"github.com/rs/zerolog"

	"okxapi/pkg/core"
)

// Config holds the options for a single websocket connection.
type Config struct {
	// URL is the websocket server endpoint to connect to.
	URL string `validate:"required,url"`
	// Header is sent with the upgrade request.
	Header http.Header
	// PingInterval is the duration between keep-alive pings.
	PingInterval time.Duration `validate:"min=1ms"`
	// PongWait is how long past a missed ping the peer is considered gone.
	PongWait time.Duration `validate:"min=0"`
	// HandshakeTimeout bounds the upgrade request. Zero keeps the gws default.
	HandshakeTimeout time.Duration `validate:"min=0"`
}

// Conn is a websocket owned by exactly one reader. Frames are handed from the
// gws read loop over an unbuffered channel, so the caller sees them in arrival
// order and a slow caller stalls the read loop instead of losing frames.
type Conn struct {
	config Config
	socket *gws.Conn
	logger zerolog.Logger

	frames  chan []byte
	closeCh chan struct{}
	doneCh  chan struct{}
	readErr error

	closeOnce sync.Once
	wg        sync.WaitGroup
}

type eventHandler struct {
	conn *Conn
}

var validate = validator.New()

// Dial opens the connection and starts the read loop and keep-alive pinger.
// The context bounds the handshake only.
func Dial(ctx context.Context, config Config, logger zerolog.Logger) (*Conn, error) {
	if err := validate.Struct(config); err != nil {
		return nil, core.NewConfigError("invalid websocket config").Wrap(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := &Conn{
		config:  config,
		logger:  logger.With().Str("url", config.URL).Logger(),
		frames:  make(chan []byte),
		closeCh: make(chan struct{}),
		doneCh:  make(chan struct{}),
	}

	timeout := config.HandshakeTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); timeout == 0 || d < timeout {
			timeout = d
		}
	}

	socket, _, err := gws.NewClient(&eventHandler{conn: c}, &gws.ClientOption{
		Addr:             config.URL,
		RequestHeader:    config.Header,
		HandshakeTimeout: timeout,
	})
	if err != nil {
		return nil, core.NewExchangeError(core.Exchange, core.ErrorTypeNetwork, 0, "connect websocket").Wrap(err)
	}
	c.socket = socket
	c.resetDeadline()

	c.wg.Go(socket.ReadLoop)
	c.wg.Go(c.keepAlive)

	return c, nil
}

func (h *eventHandler) OnOpen(socket *gws.Conn) {
	h.conn.logger.Info().Msg("websocket connected")
}

func (h *eventHandler) OnClose(socket *gws.Conn, err error) {
	h.conn.readErr = err
	close(h.conn.doneCh)

	h.conn.logger.Debug().
		Err(err).
		Msg("websocket read loop stopped")
}

func (h *eventHandler) OnPing(socket *gws.Conn, payload []byte) {
	h.conn.resetDeadline()
	_ = socket.WritePong(payload)
}

func (h *eventHandler) OnPong(socket *gws.Conn, payload []byte) {
	h.conn.resetDeadline()
}

func (h *eventHandler) OnMessage(socket *gws.Conn, message *gws.Message) {
	defer message.Close()

	// gws recycles the message buffer once this returns.
	data := append([]byte(nil), message.Bytes()...)
	h.conn.logger.Debug().Str("data", string(data)).Msg("received websocket message")

	select {
	case h.conn.frames <- data:
	case <-h.conn.closeCh:
		return
	}
	h.conn.resetDeadline()
}

// resetDeadline pushes the read deadline out. Writes carry no deadline so a
// slow reader cannot break the pinger.
func (c *Conn) resetDeadline() {
	_ = c.socket.SetReadDeadline(time.Now().Add(c.config.PingInterval + c.config.PongWait))
}

func (c *Conn) keepAlive() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.socket.WritePing(nil); err != nil {
				c.logger.Warn().Err(err).Msg("websocket ping failed")
				return
			}
		case <-c.closeCh:
			return
		case <-c.doneCh:
			return
		}
	}
}

// Send marshals v to JSON and writes it as a single text frame.
func (c *Conn) Send(v any) error {
	select {
	case <-c.closeCh:
		return core.ErrStreamClosed
	case <-c.doneCh:
		return c.closedErr()
	default:
	}

	data, err := sonic.Marshal(v)
	if err != nil {
		return core.NewProtocolError(err, "marshal websocket frame")
	}
	c.logger.Debug().Str("data", string(data)).Msg("send websocket message")

	if err := c.socket.WriteMessage(gws.OpcodeText, data); err != nil {
		return core.NewExchangeError(core.Exchange, core.ErrorTypeNetwork, 0, "write websocket frame").Wrap(err)
	}
	return nil
}

// Recv blocks until the next frame arrives, the connection ends, or ctx is done.
func (c *Conn) Recv(ctx context.Context) ([]byte, error) {
	select {
	case data := <-c.frames:
		return data, nil
	case <-c.closeCh:
		return nil, core.ErrStreamClosed
	case <-c.doneCh:
		return nil, c.closedErr()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Conn) closedErr() error {
	select {
	case <-c.closeCh:
		return core.ErrStreamClosed
	default:
	}
	if c.readErr == nil {
		return core.ErrStreamClosed
	}
	return core.NewExchangeError(core.Exchange, core.ErrorTypeNetwork, 0, "websocket closed: "+c.readErr.Error()).
		WithCode(core.ErrCodeStreamClosed).Wrap(core.ErrStreamClosed)
}

// Close sends a normal closure frame, tears down the socket and waits for the
// read loop and pinger to exit. Only the first call does anything.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closeCh)
		c.socket.WriteClose(1000, nil)
		_ = c.socket.NetConn().Close()
		c.wg.Wait()
		c.logger.Info().Msg("websocket closed")
	})
	return nil
}
