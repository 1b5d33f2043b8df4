// Package webhook forwards shown notifications to an HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/HerbHall/livefeed/internal/event"
	"github.com/HerbHall/livefeed/internal/notify"
)

// Config holds the webhook forwarder configuration.
type Config struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Rate    float64       `mapstructure:"rate"` // deliveries per second
	Burst   int           `mapstructure:"burst"`
	Enabled bool          `mapstructure:"enabled"`
}

// DefaultConfig returns the forwarder defaults. Forwarding is off until
// enabled with a URL.
func DefaultConfig() Config {
	return Config{
		Timeout: 10 * time.Second,
		Rate:    1,
		Burst:   5,
	}
}

// Subscriber registers bus handlers.
type Subscriber interface {
	Subscribe(topic string, handler event.Handler) (unsubscribe func())
}

// Forwarder posts notify.shown events to the configured URL.
type Forwarder struct {
	logger  *zap.Logger
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
}

// New creates a Forwarder. Zero Timeout, Rate or Burst take the defaults.
func New(cfg Config, logger *zap.Logger) *Forwarder {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Rate <= 0 {
		cfg.Rate = def.Rate
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}

	if cfg.Enabled && cfg.URL == "" {
		logger.Warn("webhook URL not configured; notifications will be dropped",
			zap.String("component", "webhook"),
		)
	}

	return &Forwarder{
		logger:  logger,
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst),
	}
}

// Subscribe attaches the forwarder to the bus.
func (f *Forwarder) Subscribe(bus Subscriber) (unsubscribe func()) {
	return bus.Subscribe(notify.TopicShown, f.handleEvent)
}

// Payload is the JSON body sent to the webhook URL.
type Payload struct {
	Event     string `json:"event"`
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
}

func (f *Forwarder) handleEvent(ctx context.Context, e event.Event) {
	if !f.cfg.Enabled || f.cfg.URL == "" {
		return
	}
	if !f.limiter.Allow() {
		f.logger.Warn("webhook rate limit exceeded; notification dropped",
			zap.String("topic", e.Topic),
		)
		return
	}

	body, err := json.Marshal(Payload{
		Event:     e.Topic,
		Source:    e.Source,
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
		Data:      e.Payload,
	})
	if err != nil {
		f.logger.Error("failed to marshal webhook payload",
			zap.String("topic", e.Topic),
			zap.Error(err),
		)
		return
	}

	f.send(ctx, body, e.Topic)
}

func (f *Forwarder) send(ctx context.Context, body []byte, topic string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.cfg.URL, bytes.NewReader(body))
	if err != nil {
		f.logger.Error("failed to create webhook request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "livefeed-webhook/0.1")

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Warn("webhook delivery failed",
			zap.String("url", f.cfg.URL),
			zap.String("topic", topic),
			zap.Error(err),
		)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		f.logger.Warn("webhook endpoint returned error",
			zap.String("url", f.cfg.URL),
			zap.String("topic", topic),
			zap.Int("status_code", resp.StatusCode),
		)
		return
	}

	f.logger.Debug("webhook delivered",
		zap.String("topic", topic),
		zap.Int("status_code", resp.StatusCode),
	)
}
