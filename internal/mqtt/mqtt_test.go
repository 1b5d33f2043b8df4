package mqtt

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/HerbHall/livefeed/internal/event"
	"github.com/HerbHall/livefeed/internal/notify"
	"github.com/HerbHall/livefeed/internal/state"
	"github.com/HerbHall/livefeed/internal/testutil"
	"github.com/HerbHall/livefeed/pkg/models"
)

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type message struct {
	topic   string
	retain  bool
	payload []byte
}

type fakeClient struct {
	mu           sync.Mutex
	connected    bool
	publishErr   error
	messages     []message
	disconnected bool
}

func (c *fakeClient) IsConnected() bool { return c.connected }

func (c *fakeClient) Publish(topic string, _ byte, retained bool, payload any) pahomqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, _ := payload.([]byte)
	c.messages = append(c.messages, message{topic: topic, retain: retained, payload: b})
	return &fakeToken{err: c.publishErr}
}

func (c *fakeClient) Disconnect(uint) { c.disconnected = true }

func (c *fakeClient) topics() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.messages))
	for _, m := range c.messages {
		out = append(out, m.topic)
	}
	return out
}

func connected(t *testing.T, cfg Config) (*Publisher, *fakeClient, *event.Bus) {
	t.Helper()
	p := New(cfg, zaptest.NewLogger(t))
	fc := &fakeClient{connected: true}
	p.client = fc
	bus := event.NewBus(zap.NewNop())
	t.Cleanup(p.Subscribe(bus))
	return p, fc, bus
}

func TestPublisher_RoutesTopics(t *testing.T) {
	_, fc, bus := connected(t, Config{TopicPrefix: "fleet"})
	ctx := context.Background()

	devices := state.NewDevices(bus)
	positions := state.NewPositions(bus)

	devices.Replace(ctx, []models.Device{testutil.NewDevice(1), testutil.NewDevice(2)})
	devices.Upsert(ctx, []models.Device{testutil.NewDevice(3)})
	positions.Upsert(ctx, []models.Position{testutil.NewPosition(100, 2, 1, 2)})
	bus.Publish(ctx, event.Event{
		Topic:   notify.TopicShown,
		Payload: models.Notification{ID: "n", Message: "Truck: Status online", Visible: true},
	})

	assert.ElementsMatch(t, []string{
		"fleet/device/1",
		"fleet/device/2",
		"fleet/device/3",
		"fleet/position/2",
		"fleet/notification",
	}, fc.topics())

	var n models.Notification
	require.NoError(t, json.Unmarshal(fc.messages[len(fc.messages)-1].payload, &n))
	assert.Equal(t, "Truck: Status online", n.Message)
}

func TestPublisher_NoOpWhenDisconnected(t *testing.T) {
	p, fc, bus := connected(t, Config{})
	fc.connected = false

	state.NewPositions(bus).Upsert(context.Background(), []models.Position{testutil.NewPosition(1, 1, 0, 0)})
	assert.Empty(t, fc.topics())

	p.client = nil
	p.handleNotification(context.Background(), event.Event{Payload: models.Notification{}})
}

func TestPublisher_PublishErrorIsLogged(t *testing.T) {
	_, fc, bus := connected(t, Config{})
	fc.publishErr = errors.New("broker gone")

	state.NewDevices(bus).Upsert(context.Background(), []models.Device{testutil.NewDevice(1)})
	assert.Len(t, fc.topics(), 1)
}

func TestPublisher_HADiscoveryOncePerDevice(t *testing.T) {
	_, fc, bus := connected(t, Config{TopicPrefix: "lf", HADiscovery: true})
	ctx := context.Background()
	devices := state.NewDevices(bus)

	truck := testutil.NewDevice(7, testutil.WithName("Truck 7"))
	devices.Upsert(ctx, []models.Device{truck})
	devices.Upsert(ctx, []models.Device{truck})

	truck.Disabled = true
	devices.Upsert(ctx, []models.Device{truck})

	var discovery []message
	for _, m := range fc.messages {
		if m.topic == "homeassistant/device_tracker/livefeed_7/config" {
			discovery = append(discovery, m)
		}
	}
	require.Len(t, discovery, 2)
	assert.True(t, discovery[0].retain)
	assert.NotEmpty(t, discovery[0].payload)
	assert.Empty(t, discovery[1].payload, "disabled device removes its entity")
}

func TestPublisher_HADiscoveryRetriedAfterOutage(t *testing.T) {
	_, fc, bus := connected(t, Config{TopicPrefix: "lf", HADiscovery: true})
	ctx := context.Background()
	devices := state.NewDevices(bus)
	truck := testutil.NewDevice(9, testutil.WithName("Truck 9"))

	fc.connected = false
	devices.Upsert(ctx, []models.Device{truck})
	assert.Empty(t, fc.topics())

	fc.connected = true
	devices.Upsert(ctx, []models.Device{truck})
	assert.Contains(t, fc.topics(), "homeassistant/device_tracker/livefeed_9/config")
}

func TestPublisher_HADiscoveryRetriedAfterPublishError(t *testing.T) {
	_, fc, bus := connected(t, Config{TopicPrefix: "lf", HADiscovery: true})
	ctx := context.Background()
	devices := state.NewDevices(bus)
	truck := testutil.NewDevice(9)

	fc.publishErr = errors.New("broker gone")
	devices.Upsert(ctx, []models.Device{truck})
	fc.publishErr = nil
	devices.Upsert(ctx, []models.Device{truck})

	count := 0
	for _, topic := range fc.topics() {
		if topic == "homeassistant/device_tracker/livefeed_9/config" {
			count++
		}
	}
	assert.Equal(t, 2, count)
}

// broker is a minimal MQTT endpoint that answers every CONNECT with an
// accepting CONNACK and discards everything else.
type broker struct {
	ln      net.Listener
	accepts atomic.Int32
}

func startBroker(t *testing.T, addr string) *broker {
	t.Helper()
	ln, err := net.Listen("tcp", addr)
	require.NoError(t, err)
	b := &broker{ln: ln}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			b.accepts.Add(1)
			go serveMQTT(conn)
		}
	}()
	return b
}

func serveMQTT(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	for {
		header, err := r.ReadByte()
		if err != nil {
			return
		}
		// Remaining length is a base-128 varint.
		length, mult := 0, 1
		for {
			b, err := r.ReadByte()
			if err != nil {
				return
			}
			length += int(b&0x7f) * mult
			if b&0x80 == 0 {
				break
			}
			mult *= 128
		}
		if _, err := io.CopyN(io.Discard, r, int64(length)); err != nil {
			return
		}
		switch header >> 4 {
		case 1: // CONNECT
			if _, err := conn.Write([]byte{0x20, 0x02, 0x00, 0x00}); err != nil {
				return
			}
		case 12: // PINGREQ
			if _, err := conn.Write([]byte{0xd0, 0x00}); err != nil {
				return
			}
		case 14: // DISCONNECT
			return
		}
	}
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestConnect_RetriesUntilBrokerIsUp(t *testing.T) {
	addr := freeAddr(t)
	p := New(Config{
		BrokerURL:     "tcp://" + addr,
		ClientID:      "livefeed-test",
		Timeout:       100 * time.Millisecond,
		RetryInterval: 50 * time.Millisecond,
	}, zap.NewNop())
	defer p.Close()

	p.Connect(context.Background())
	assert.False(t, p.Connected())

	b := startBroker(t, addr)
	require.Eventually(t, p.Connected, 5*time.Second, 20*time.Millisecond)
	assert.GreaterOrEqual(t, b.accepts.Load(), int32(1))
}

func TestConnect_NoOpWithEmptyBrokerURL(t *testing.T) {
	p := New(Config{}, zap.NewNop())
	p.Connect(context.Background())
	assert.Nil(t, p.client)
}

func TestClose_Disconnects(t *testing.T) {
	p, fc, _ := connected(t, Config{})
	p.Close()
	assert.True(t, fc.disconnected)
	assert.Nil(t, p.client)
	p.Close()
}

func TestNew_Defaults(t *testing.T) {
	p := New(Config{}, zap.NewNop())
	assert.Equal(t, "livefeed", p.cfg.TopicPrefix)
	assert.Equal(t, "livefeed", p.cfg.ClientID)
	assert.Equal(t, "homeassistant", p.cfg.HADiscoveryPrefix)
	assert.Equal(t, 10*time.Second, p.cfg.Timeout)
	assert.Equal(t, 10*time.Second, p.cfg.RetryInterval)
}
