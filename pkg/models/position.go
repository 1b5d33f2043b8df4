package models

import "time"

// Position is a single location fix for a device.
type Position struct {
	ID         int64          `json:"id"`
	DeviceID   int64          `json:"deviceId"`
	Protocol   string         `json:"protocol,omitempty"`
	ServerTime time.Time      `json:"serverTime,omitempty"`
	DeviceTime time.Time      `json:"deviceTime,omitempty"`
	FixTime    time.Time      `json:"fixTime,omitempty"`
	Outdated   bool           `json:"outdated,omitempty"`
	Valid      bool           `json:"valid"`
	Latitude   float64        `json:"latitude"`
	Longitude  float64        `json:"longitude"`
	Altitude   float64        `json:"altitude,omitempty"`
	Speed      float64        `json:"speed"` // knots
	Course     float64        `json:"course"`
	Address    string         `json:"address,omitempty"`
	Accuracy   float64        `json:"accuracy,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}
