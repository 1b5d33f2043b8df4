package models

import "time"

// Server holds server-wide settings returned by /api/server.
type Server struct {
	ID               int64          `json:"id"`
	Registration     bool           `json:"registration"`
	Readonly         bool           `json:"readonly"`
	DeviceReadonly   bool           `json:"deviceReadonly"`
	Map              string         `json:"map,omitempty"`
	MapURL           string         `json:"mapUrl,omitempty"`
	Latitude         float64        `json:"latitude"`
	Longitude        float64        `json:"longitude"`
	Zoom             int            `json:"zoom"`
	TwelveHourFormat bool           `json:"twelveHourFormat"`
	Version          string         `json:"version,omitempty"`
	ForceSettings    bool           `json:"forceSettings"`
	CoordinateFormat string         `json:"coordinateFormat,omitempty"`
	Attributes       map[string]any `json:"attributes,omitempty"`
}

// User is the identity attached to the current session (/api/session).
type User struct {
	ID               int64          `json:"id"`
	Name             string         `json:"name"`
	Email            string         `json:"email"`
	Readonly         bool           `json:"readonly"`
	Administrator    bool           `json:"administrator"`
	Map              string         `json:"map,omitempty"`
	Latitude         float64        `json:"latitude"`
	Longitude        float64        `json:"longitude"`
	Zoom             int            `json:"zoom"`
	TwelveHourFormat bool           `json:"twelveHourFormat"`
	CoordinateFormat string         `json:"coordinateFormat,omitempty"`
	Disabled         bool           `json:"disabled"`
	ExpirationTime   *time.Time     `json:"expirationTime,omitempty"`
	DeviceLimit      int            `json:"deviceLimit"`
	UserLimit        int            `json:"userLimit"`
	DeviceReadonly   bool           `json:"deviceReadonly"`
	LimitCommands    bool           `json:"limitCommands"`
	Attributes       map[string]any `json:"attributes,omitempty"`
}
