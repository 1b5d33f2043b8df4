// Package feed owns the live-update channel: one WebSocket connection to the
// tracking server that is re-dialled after transport errors and whose
// messages are decoded and routed to the state sinks.
package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/HerbHall/livefeed/internal/metrics"
)

// SocketPath is the update channel endpoint on the tracking server.
const SocketPath = "/api/socket"

// ErrClosed is returned by Connect after Close.
var ErrClosed = errors.New("channel closed")

// Config holds update channel settings.
type Config struct {
	ReconnectDelay   time.Duration `mapstructure:"reconnect_delay"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	ReadLimit        int64         `mapstructure:"read_limit"`
}

// DefaultConfig returns the default channel settings.
func DefaultConfig() Config {
	return Config{
		ReconnectDelay:   60 * time.Second,
		HandshakeTimeout: 30 * time.Second,
		ReadLimit:        4 << 20,
	}
}

// ChannelURL derives the channel URL from the server base URL: wss for an
// https server, ws otherwise, same host.
func ChannelURL(base *url.URL) (string, error) {
	var scheme string
	switch base.Scheme {
	case "https":
		scheme = "wss"
	case "http":
		scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported scheme %q", base.Scheme)
	}
	if base.Host == "" {
		return "", fmt.Errorf("base url %q has no host", base.String())
	}
	u := url.URL{
		Scheme: scheme,
		Host:   base.Host,
		Path:   strings.TrimRight(base.Path, "/") + SocketPath,
	}
	return u.String(), nil
}

// Channel is the update channel manager. At most one connection is open at
// a time. Transport errors schedule exactly one reconnect after a fixed
// delay, with no backoff and no attempt limit.
//
// Every connection attempt and Close bump a generation counter; a scheduled
// reconnect or a finishing reader only acts while its generation is still
// current, so nothing fires after Close.
type Channel struct {
	url    string
	client *http.Client
	router Router
	cfg    Config
	logger *zap.Logger

	mu       sync.Mutex
	state    State
	gen      uint64
	attempts int
	conn     *websocket.Conn
	timer    *time.Timer
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewChannel creates a channel for wsURL. client may be nil; when set, its
// cookie jar authenticates the handshake.
func NewChannel(wsURL string, client *http.Client, router Router, cfg Config, logger *zap.Logger) *Channel {
	def := DefaultConfig()
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = def.ReconnectDelay
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = def.HandshakeTimeout
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = def.ReadLimit
	}
	return &Channel{
		url:    wsURL,
		client: client,
		router: router,
		cfg:    cfg,
		logger: logger,
	}
}

// State returns the current channel state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attempts returns the number of connection attempts made so far.
func (c *Channel) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// Connect starts a connection attempt in the background. It is a no-op
// while a connection is being established or open.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateClosed:
		return ErrClosed
	case StateConnecting, StateOpen:
		return nil
	}

	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.startLocked(runCtx)
	return nil
}

// Close tears the channel down. It is safe to call more than once and
// before Connect. Pending reconnects are cancelled and Close waits for the
// reader to exit, so it must not be called from a sink.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.gen++
	c.setStateLocked(StateClosed)
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	conn := c.conn
	c.conn = nil
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if conn != nil {
		if err := conn.Close(websocket.StatusNormalClosure, ""); err != nil {
			c.logger.Debug("channel close", zap.Error(err))
		}
	}
	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
	c.logger.Info("update channel closed", zap.String("component", "feed"))
}

func (c *Channel) startLocked(ctx context.Context) {
	c.gen++
	c.attempts++
	c.setStateLocked(StateConnecting)

	gen := c.gen
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(ctx, gen)
	}()
}

func (c *Channel) run(ctx context.Context, gen uint64) {
	connID := uuid.NewString()
	log := c.logger.With(zap.String("component", "feed"), zap.String("conn_id", connID))

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
	conn, _, err := websocket.Dial(dialCtx, c.url, &websocket.DialOptions{HTTPClient: c.client})
	cancel()

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		if conn != nil {
			_ = conn.CloseNow()
		}
		return
	}
	if err != nil {
		metrics.ConnectionAttempts.WithLabelValues(metrics.ResultError).Inc()
		if ctx.Err() != nil {
			c.setStateLocked(StateDisconnected)
			c.mu.Unlock()
			return
		}
		c.failLocked(ctx, gen, log, fmt.Errorf("dial %s: %w", c.url, err))
		c.mu.Unlock()
		return
	}
	conn.SetReadLimit(c.cfg.ReadLimit)
	c.conn = conn
	c.setStateLocked(StateOpen)
	c.mu.Unlock()

	metrics.ConnectionAttempts.WithLabelValues(metrics.ResultOK).Inc()
	log.Info("update channel open", zap.String("url", c.url))

	c.read(ctx, gen, conn, log)
}

func (c *Channel) read(ctx context.Context, gen uint64, conn *websocket.Conn, log *zap.Logger) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			c.readFailed(ctx, gen, conn, log, err)
			return
		}
		metrics.MessagesReceived.Inc()

		u, err := Decode(data)
		if err != nil {
			metrics.DecodeErrors.Inc()
			log.Error("dropping malformed update fields", zap.Error(err), zap.Int("bytes", len(data)))
		}
		if u == nil || u.Empty() {
			continue
		}
		c.router.Route(ctx, u)
	}
}

func (c *Channel) readFailed(ctx context.Context, gen uint64, conn *websocket.Conn, log *zap.Logger, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		return
	}
	c.conn = nil
	_ = conn.CloseNow()

	if ctx.Err() != nil {
		c.setStateLocked(StateDisconnected)
		return
	}
	if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
		log.Warn("update channel closed by server")
		c.setStateLocked(StateDisconnected)
		return
	}
	c.failLocked(ctx, gen, log, err)
}

// failLocked records a transport error and schedules the single reconnect.
func (c *Channel) failLocked(ctx context.Context, gen uint64, log *zap.Logger, err error) {
	c.setStateLocked(StateError)
	log.Warn("update channel error, reconnecting",
		zap.Duration("delay", c.cfg.ReconnectDelay),
		zap.Error(err),
	)

	c.setStateLocked(StateDisconnected)
	metrics.ReconnectsScheduled.Inc()
	c.timer = time.AfterFunc(c.cfg.ReconnectDelay, func() { c.reconnect(ctx, gen) })
}

func (c *Channel) reconnect(ctx context.Context, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen || c.state != StateDisconnected || ctx.Err() != nil {
		return
	}
	c.timer = nil
	c.startLocked(ctx)
}

func (c *Channel) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.logger.Debug("channel state",
		zap.Stringer("from", c.state),
		zap.Stringer("to", s),
	)
	c.state = s
	metrics.ChannelState.Set(float64(s))
}
