package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/HerbHall/livefeed/internal/event"
	"github.com/HerbHall/livefeed/internal/notify"
	"github.com/HerbHall/livefeed/pkg/models"
)

func shown(msg string) event.Event {
	return event.Event{
		Topic:     notify.TopicShown,
		Source:    "notify",
		Timestamp: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Payload:   models.Notification{ID: "n1", Message: msg, Visible: true},
	}
}

func TestForwarder_DeliversShownNotification(t *testing.T) {
	var mu sync.Mutex
	var received []Payload

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "livefeed-webhook/0.1", r.Header.Get("User-Agent"))

		var p Payload
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&p)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		received = append(received, p)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	bus := event.NewBus(zap.NewNop())
	f := New(Config{URL: srv.URL, Enabled: true}, zaptest.NewLogger(t))
	unsubscribe := f.Subscribe(bus)
	defer unsubscribe()

	bus.Publish(context.Background(), shown("Truck 7: Status online"))
	// Other topics are ignored.
	bus.Publish(context.Background(), event.Event{Topic: notify.TopicCleared})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, notify.TopicShown, received[0].Event)
	assert.Equal(t, "notify", received[0].Source)
	assert.Equal(t, "2025-01-01T00:00:00Z", received[0].Timestamp)

	data, ok := received[0].Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Truck 7: Status online", data["message"])
}

func TestForwarder_Skips(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "disabled", cfg: Config{URL: srv.URL, Enabled: false}},
		{name: "no url", cfg: Config{Enabled: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(tt.cfg, zap.NewNop())
			f.handleEvent(context.Background(), shown("x"))
		})
	}
	assert.Zero(t, calls.Load())
}

func TestForwarder_RateLimited(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	// One token, refilled far slower than the test runs.
	f := New(Config{URL: srv.URL, Enabled: true, Rate: 0.001, Burst: 1}, zap.NewNop())
	for range 3 {
		f.handleEvent(context.Background(), shown("x"))
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestForwarder_ServerErrorDoesNotPanic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := New(Config{URL: srv.URL, Enabled: true}, zaptest.NewLogger(t))
	f.handleEvent(context.Background(), shown("x"))
}

func TestNew_AppliesDefaults(t *testing.T) {
	f := New(Config{Enabled: false}, zap.NewNop())
	def := DefaultConfig()
	assert.Equal(t, def.Timeout, f.client.Timeout)
	assert.Equal(t, def.Burst, f.limiter.Burst())
}

func TestDefaultConfig_Disabled(t *testing.T) {
	assert.False(t, DefaultConfig().Enabled)
}
