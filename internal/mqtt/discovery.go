package mqtt

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/HerbHall/livefeed/pkg/models"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// DiscoveryConfig holds a single HA MQTT discovery payload.
type DiscoveryConfig struct {
	Topic   string // homeassistant/...
	Payload []byte // empty removes the entity
}

// HADevice is the "device" block in HA discovery payloads.
type HADevice struct {
	Identifiers []string `json:"identifiers"`
	Name        string   `json:"name"`
	Model       string   `json:"model,omitempty"`
	ViaDevice   string   `json:"via_device,omitempty"`
}

// TrackerConfig is the HA discovery payload for an MQTT device_tracker whose
// location comes from the JSON attributes topic.
type TrackerConfig struct {
	Name                string   `json:"name"`
	ObjectID            string   `json:"object_id"`
	UniqueID            string   `json:"unique_id"`
	JSONAttributesTopic string   `json:"json_attributes_topic"`
	SourceType          string   `json:"source_type"`
	Icon                string   `json:"icon,omitempty"`
	Device              HADevice `json:"device"`
}

// SafeObjectID lowercases s and replaces anything outside [a-z0-9_] with
// underscores, as HA requires for object IDs.
func SafeObjectID(s string) string {
	s = strings.ToLower(s)
	s = nonAlphanumeric.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "unknown"
	}
	return s
}

// BuildTrackerDiscovery returns the device_tracker discovery config for a
// device. Disabled devices get a removal config.
func BuildTrackerDiscovery(device *models.Device, topicPrefix, haPrefix string) DiscoveryConfig {
	id := strconv.FormatInt(device.ID, 10)
	objectID := "livefeed_" + SafeObjectID(id)
	topic := fmt.Sprintf("%s/device_tracker/%s/config", haPrefix, objectID)

	if device.Disabled {
		return DiscoveryConfig{Topic: topic}
	}

	name := device.Name
	if name == "" {
		name = device.UniqueID
	}
	payload, err := json.Marshal(TrackerConfig{
		Name:                name,
		ObjectID:            objectID,
		UniqueID:            objectID,
		JSONAttributesTopic: positionTopic(topicPrefix, device.ID),
		SourceType:          "gps",
		Icon:                device.Icon(),
		Device: HADevice{
			Identifiers: []string{"livefeed_" + device.UniqueID},
			Name:        name,
			Model:       device.Model,
			ViaDevice:   "livefeed",
		},
	})
	if err != nil {
		return DiscoveryConfig{Topic: topic}
	}
	return DiscoveryConfig{Topic: topic, Payload: payload}
}

func deviceTopic(prefix string, id int64) string {
	return prefix + "/device/" + strconv.FormatInt(id, 10)
}

func positionTopic(prefix string, deviceID int64) string {
	return prefix + "/position/" + strconv.FormatInt(deviceID, 10)
}
