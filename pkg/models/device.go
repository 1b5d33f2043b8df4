package models

import "time"

// DeviceStatus is the connectivity state reported by the tracking server.
type DeviceStatus string

const (
	DeviceStatusOnline  DeviceStatus = "online"
	DeviceStatusOffline DeviceStatus = "offline"
	DeviceStatusUnknown DeviceStatus = "unknown"
)

// Device is a tracked unit as reported by /api/devices and the update channel.
type Device struct {
	ID         int64          `json:"id"`
	Name       string         `json:"name"`
	UniqueID   string         `json:"uniqueId"`
	Status     DeviceStatus   `json:"status,omitempty"`
	Disabled   bool           `json:"disabled,omitempty"`
	LastUpdate time.Time      `json:"lastUpdate,omitempty"`
	PositionID int64          `json:"positionId,omitempty"`
	GroupID    int64          `json:"groupId,omitempty"`
	Phone      string         `json:"phone,omitempty"`
	Model      string         `json:"model,omitempty"`
	Contact    string         `json:"contact,omitempty"`
	Category   string         `json:"category,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}
