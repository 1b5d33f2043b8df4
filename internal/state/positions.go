package state

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/HerbHall/livefeed/internal/event"
	"github.com/HerbHall/livefeed/pkg/models"
)

// Positions keeps the latest known position per device.
type Positions struct {
	mu    sync.RWMutex
	items map[int64]models.Position // device ID -> latest position
	bus   event.Publisher
}

// NewPositions creates an empty position store. bus may be nil.
func NewPositions(bus event.Publisher) *Positions {
	return &Positions{
		items: make(map[int64]models.Position),
		bus:   bus,
	}
}

// Upsert records each position as the latest one for its device.
func (s *Positions) Upsert(ctx context.Context, list []models.Position) {
	s.mu.Lock()
	for i := range list {
		s.items[list[i].DeviceID] = list[i]
	}
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(ctx, event.Event{Topic: TopicPositionsUpdate, Source: "state", Payload: list})
	}
}

// Get returns the latest position for a device.
func (s *Positions) Get(deviceID int64) (models.Position, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.items[deviceID]
	return p, ok
}

// List returns the latest positions ordered by device ID.
func (s *Positions) List() []models.Position {
	s.mu.RLock()
	out := make([]models.Position, 0, len(s.items))
	for _, p := range s.items {
		out = append(out, p)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b models.Position) int { return cmp.Compare(a.DeviceID, b.DeviceID) })
	return out
}
