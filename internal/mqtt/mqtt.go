// Package mqtt mirrors notifications, device records and positions to an
// MQTT broker, optionally announcing devices to Home Assistant.
package mqtt

import (
	"context"
	"encoding/json"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/HerbHall/livefeed/internal/event"
	"github.com/HerbHall/livefeed/internal/notify"
	"github.com/HerbHall/livefeed/internal/state"
	"github.com/HerbHall/livefeed/pkg/models"
)

// Subscriber registers bus handlers.
type Subscriber interface {
	Subscribe(topic string, handler event.Handler) (unsubscribe func())
}

// client is the subset of pahomqtt.Client the publisher uses.
type client interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload any) pahomqtt.Token
	Disconnect(quiesce uint)
}

// Publisher forwards bus events to MQTT topics under Config.TopicPrefix:
//
//	<prefix>/notification          shown notifications
//	<prefix>/device/<id>           device records
//	<prefix>/position/<deviceId>   latest position per device
type Publisher struct {
	logger *zap.Logger
	cfg    Config

	mu        sync.RWMutex
	client    client
	announced map[int64]bool // devices with a published HA discovery config
}

// New creates a Publisher. Empty fields take the defaults.
func New(cfg Config, logger *zap.Logger) *Publisher {
	def := DefaultConfig()
	if cfg.ClientID == "" {
		cfg.ClientID = def.ClientID
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = def.TopicPrefix
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = def.RetryInterval
	}
	if cfg.HADiscoveryPrefix == "" {
		cfg.HADiscoveryPrefix = def.HADiscoveryPrefix
	}
	return &Publisher{
		logger:    logger,
		cfg:       cfg,
		announced: make(map[int64]bool),
	}
}

// Connect dials the broker. When the first attempt does not succeed within
// Timeout, paho keeps retrying every RetryInterval in the background;
// messages published before then are dropped.
func (p *Publisher) Connect(_ context.Context) {
	if p.cfg.BrokerURL == "" {
		p.logger.Warn("MQTT broker URL not configured; events will be dropped",
			zap.String("component", "mqtt"),
		)
		return
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(p.cfg.BrokerURL).
		SetClientID(p.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(p.cfg.RetryInterval).
		SetConnectTimeout(p.cfg.Timeout).
		SetOnConnectHandler(func(pahomqtt.Client) {
			p.logger.Info("mqtt connected to broker",
				zap.String("broker_url", p.cfg.BrokerURL),
			)
		})

	if p.cfg.Username != "" {
		opts.SetUsername(p.cfg.Username)
		opts.SetPassword(p.cfg.Password) //nolint:gosec // G101: config field
	}

	c := pahomqtt.NewClient(opts)
	token := c.Connect()

	switch {
	case !token.WaitTimeout(p.cfg.Timeout):
		p.logger.Warn("mqtt broker not reachable yet; retrying in background",
			zap.String("broker_url", p.cfg.BrokerURL),
			zap.Duration("retry_interval", p.cfg.RetryInterval),
		)
	case token.Error() != nil:
		p.logger.Warn("mqtt connection failed; retrying in background",
			zap.Error(token.Error()),
		)
	}

	p.mu.Lock()
	p.client = c
	p.mu.Unlock()
}

// Connected reports whether the broker connection is up.
func (p *Publisher) Connected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client != nil && p.client.IsConnected()
}

// Close disconnects from the broker and stops any pending connect retries.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		p.client.Disconnect(250)
		p.logger.Info("mqtt disconnected")
	}
	p.client = nil
}

// Subscribe attaches the publisher to the bus.
func (p *Publisher) Subscribe(bus Subscriber) (unsubscribe func()) {
	unsubs := []func(){
		bus.Subscribe(notify.TopicShown, p.handleNotification),
		bus.Subscribe(state.TopicDevicesReplaced, p.handleDevices),
		bus.Subscribe(state.TopicDevicesUpdated, p.handleDevices),
		bus.Subscribe(state.TopicPositionsUpdate, p.handlePositions),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func (p *Publisher) handleNotification(_ context.Context, e event.Event) {
	n, ok := e.Payload.(models.Notification)
	if !ok {
		return
	}
	p.publishJSON(p.cfg.TopicPrefix+"/notification", p.cfg.Retain, n)
}

func (p *Publisher) handleDevices(_ context.Context, e event.Event) {
	list, ok := e.Payload.([]models.Device)
	if !ok {
		return
	}
	for i := range list {
		p.publishJSON(deviceTopic(p.cfg.TopicPrefix, list[i].ID), p.cfg.Retain, list[i])
		if p.cfg.HADiscovery {
			p.announce(&list[i])
		}
	}
}

func (p *Publisher) handlePositions(_ context.Context, e event.Event) {
	list, ok := e.Payload.([]models.Position)
	if !ok {
		return
	}
	for i := range list {
		p.publishJSON(positionTopic(p.cfg.TopicPrefix, list[i].DeviceID), p.cfg.Retain, list[i])
	}
}

// announce publishes the HA discovery config the first time a device is
// seen, and a removal when it becomes disabled. A device only counts as
// announced once the broker accepted the config, so devices seen while
// disconnected are announced on their next update.
func (p *Publisher) announce(device *models.Device) {
	p.mu.RLock()
	seen := p.announced[device.ID]
	p.mu.RUnlock()
	if seen != device.Disabled {
		// Enabled and announced, or disabled and never announced.
		return
	}

	cfg := BuildTrackerDiscovery(device, p.cfg.TopicPrefix, p.cfg.HADiscoveryPrefix)
	// Discovery configs are always retained so HA picks them up on restart.
	if !p.publish(cfg.Topic, true, cfg.Payload) {
		return
	}

	p.mu.Lock()
	if device.Disabled {
		delete(p.announced, device.ID)
	} else {
		p.announced[device.ID] = true
	}
	p.mu.Unlock()
}

func (p *Publisher) publishJSON(topic string, retain bool, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		p.logger.Warn("failed to marshal MQTT payload",
			zap.String("mqtt_topic", topic),
			zap.Error(err),
		)
		return
	}
	p.publish(topic, retain, payload)
}

// publish sends payload and reports whether the broker acknowledged it.
func (p *Publisher) publish(topic string, retain bool, payload []byte) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.client == nil || !p.client.IsConnected() {
		return false
	}

	token := p.client.Publish(topic, p.cfg.QoS, retain, payload)
	if !token.WaitTimeout(p.cfg.Timeout) {
		p.logger.Warn("mqtt publish timed out", zap.String("mqtt_topic", topic))
		return false
	}
	if token.Error() != nil {
		p.logger.Warn("mqtt publish failed",
			zap.String("mqtt_topic", topic),
			zap.Error(token.Error()),
		)
		return false
	}
	p.logger.Debug("mqtt message published", zap.String("mqtt_topic", topic))
	return true
}
