package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/HerbHall/livefeed/pkg/models"
)

// NewDevice returns a Device with sensible defaults, suitable for test fixtures.
// Override individual fields after creation as needed.
func NewDevice(id int64, opts ...func(*models.Device)) models.Device {
	d := models.Device{
		ID:         id,
		Name:       "test-device",
		UniqueID:   uuid.New().String(),
		Status:     models.DeviceStatusOnline,
		LastUpdate: time.Now().UTC(),
		Category:   "default",
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// WithName sets the device name.
func WithName(name string) func(*models.Device) {
	return func(d *models.Device) { d.Name = name }
}

// WithStatus sets the device status.
func WithStatus(s models.DeviceStatus) func(*models.Device) {
	return func(d *models.Device) { d.Status = s }
}

// NewPosition returns a valid Position for deviceID at the given coordinates.
func NewPosition(id, deviceID int64, lat, lon float64) models.Position {
	now := time.Now().UTC()
	return models.Position{
		ID:         id,
		DeviceID:   deviceID,
		Protocol:   "osmand",
		ServerTime: now,
		DeviceTime: now,
		FixTime:    now,
		Valid:      true,
		Latitude:   lat,
		Longitude:  lon,
	}
}

// NewEvent returns an Event of the given type for deviceID.
func NewEvent(deviceID int64, eventType string) models.Event {
	return models.Event{
		Type:      eventType,
		DeviceID:  deviceID,
		EventTime: time.Now().UTC(),
	}
}
