// Package notify turns the most recent batch of pushed events into a
// transient notification that clears itself after a fixed display time.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/HerbHall/livefeed/internal/event"
	"github.com/HerbHall/livefeed/internal/i18n"
	"github.com/HerbHall/livefeed/internal/metrics"
	"github.com/HerbHall/livefeed/pkg/models"
)

// UnknownDevice is shown in place of a device name that is not in the store.
const UnknownDevice = "unknown"

// DeviceLookup resolves a device ID to its display name.
type DeviceLookup interface {
	Name(id int64) (string, bool)
}

// Translator resolves a catalog key to a localized label.
type Translator interface {
	Translate(key string) string
}

// Config holds notification settings.
type Config struct {
	Display time.Duration `mapstructure:"display"`
	Locale  string        `mapstructure:"locale"`
}

// DefaultConfig returns the default notification settings.
func DefaultConfig() Config {
	return Config{
		Display: 6 * time.Second,
		Locale:  "en",
	}
}

// Queue holds the pending-events batch and the notification derived from it.
//
// A batch overwrites the notification once per event in order, so only the
// last event of a batch is ever announced. Every overwrite bumps a
// generation counter and a scheduled clear only applies while its
// generation is current, so a clear never hides a newer notification.
type Queue struct {
	devices DeviceLookup
	labels  Translator
	display time.Duration
	bus     event.Publisher
	logger  *zap.Logger

	mu      sync.Mutex
	pending []models.Event
	current models.Notification
	gen     uint64
	timer   *time.Timer
	closed  bool
}

// New creates a notification queue. bus may be nil.
func New(devices DeviceLookup, labels Translator, bus event.Publisher, cfg Config, logger *zap.Logger) *Queue {
	if cfg.Display <= 0 {
		cfg.Display = DefaultConfig().Display
	}
	return &Queue{
		devices: devices,
		labels:  labels,
		display: cfg.Display,
		bus:     bus,
		logger:  logger,
	}
}

// Text returns the notification text for an event: "<device name>: <label>".
func (q *Queue) Text(e models.Event) string {
	name, ok := q.devices.Name(e.DeviceID)
	if !ok {
		name = UnknownDevice
	}
	return name + ": " + q.labels.Translate(i18n.EventKey(e.Type))
}

// Replace makes events the pending batch, replacing any earlier batch, and
// shows a notification for it.
func (q *Queue) Replace(ctx context.Context, events []models.Event) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}

	q.pending = append([]models.Event(nil), events...)
	if len(events) == 0 {
		q.mu.Unlock()
		return
	}

	for _, e := range events {
		q.gen++
		q.current = models.Notification{
			ID:      uuid.NewString(),
			Message: q.Text(e),
			Visible: true,
		}
	}
	shown := q.current
	gen := q.gen

	if q.timer != nil {
		q.timer.Stop()
	}
	q.timer = time.AfterFunc(q.display, func() { q.clear(gen) })
	q.mu.Unlock()

	if skipped := len(events) - 1; skipped > 0 {
		q.logger.Debug("notifications overwritten within batch", zap.Int("skipped", skipped))
	}
	q.logger.Info("notification",
		zap.String("component", "notify"),
		zap.String("message", shown.Message),
	)
	metrics.NotificationsShown.Inc()

	if q.bus != nil {
		q.bus.PublishAsync(context.WithoutCancel(ctx), event.Event{
			Topic:   TopicShown,
			Source:  "notify",
			Payload: shown,
		})
	}
}

func (q *Queue) clear(gen uint64) {
	q.mu.Lock()
	if q.closed || gen != q.gen {
		q.mu.Unlock()
		return
	}
	cleared := q.current
	q.current = models.Notification{}
	q.timer = nil
	q.mu.Unlock()

	if q.bus != nil {
		q.bus.Publish(context.Background(), event.Event{
			Topic:   TopicCleared,
			Source:  "notify",
			Payload: models.Notification{ID: cleared.ID},
		})
	}
}

// Current returns the notification state.
func (q *Queue) Current() models.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.current
}

// Pending returns a copy of the pending-events batch.
func (q *Queue) Pending() []models.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]models.Event(nil), q.pending...)
}

// Close cancels any scheduled clear and ignores later batches.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.gen++
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
}
