package models

import "time"

// Event types emitted by the tracking server. The list is not exhaustive;
// unknown types are passed through unchanged.
const (
	EventCommandResult   = "commandResult"
	EventDeviceOnline    = "deviceOnline"
	EventDeviceUnknown   = "deviceUnknown"
	EventDeviceOffline   = "deviceOffline"
	EventDeviceInactive  = "deviceInactive"
	EventDeviceMoving    = "deviceMoving"
	EventDeviceStopped   = "deviceStopped"
	EventDeviceOverspeed = "deviceOverspeed"
	EventDeviceFuelDrop  = "deviceFuelDrop"
	EventGeofenceEnter   = "geofenceEnter"
	EventGeofenceExit    = "geofenceExit"
	EventAlarm           = "alarm"
	EventIgnitionOn      = "ignitionOn"
	EventIgnitionOff     = "ignitionOff"
	EventMaintenance     = "maintenance"
	EventTextMessage     = "textMessage"
	EventDriverChanged   = "driverChanged"
)

// Event is a server-side occurrence attached to a device, such as a device
// coming online or entering a geofence.
type Event struct {
	ID            int64          `json:"id,omitempty"`
	Type          string         `json:"type"`
	EventTime     time.Time      `json:"eventTime,omitempty"`
	DeviceID      int64          `json:"deviceId"`
	PositionID    int64          `json:"positionId,omitempty"`
	GeofenceID    int64          `json:"geofenceId,omitempty"`
	MaintenanceID int64          `json:"maintenanceId,omitempty"`
	Attributes    map[string]any `json:"attributes,omitempty"`
}
