// Package state holds the client-side view of devices, positions and the
// current session. Each store is safe for concurrent use and announces
// mutations on the event bus.
package state

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/HerbHall/livefeed/internal/event"
	"github.com/HerbHall/livefeed/pkg/models"
)

// Devices is the device store, keyed by device ID.
type Devices struct {
	mu    sync.RWMutex
	items map[int64]models.Device
	bus   event.Publisher
}

// NewDevices creates an empty device store. bus may be nil.
func NewDevices(bus event.Publisher) *Devices {
	return &Devices{
		items: make(map[int64]models.Device),
		bus:   bus,
	}
}

// Replace discards every known device and stores list in its place.
func (s *Devices) Replace(ctx context.Context, list []models.Device) {
	items := make(map[int64]models.Device, len(list))
	for i := range list {
		items[list[i].ID] = list[i]
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()

	s.publish(ctx, TopicDevicesReplaced, list)
}

// Upsert inserts or overwrites each device by ID, leaving others untouched.
func (s *Devices) Upsert(ctx context.Context, list []models.Device) {
	s.mu.Lock()
	for i := range list {
		s.items[list[i].ID] = list[i]
	}
	s.mu.Unlock()

	s.publish(ctx, TopicDevicesUpdated, list)
}

// Get returns the device with the given ID.
func (s *Devices) Get(id int64) (models.Device, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.items[id]
	return d, ok
}

// Name returns the display name of a device.
func (s *Devices) Name(id int64) (string, bool) {
	d, ok := s.Get(id)
	if !ok {
		return "", false
	}
	return d.Name, true
}

// List returns all devices ordered by ID.
func (s *Devices) List() []models.Device {
	s.mu.RLock()
	out := make([]models.Device, 0, len(s.items))
	for _, d := range s.items {
		out = append(out, d)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b models.Device) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Len returns the number of known devices.
func (s *Devices) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Devices) publish(ctx context.Context, topic string, payload []models.Device) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, event.Event{Topic: topic, Source: "state", Payload: payload})
}
