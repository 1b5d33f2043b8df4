package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/HerbHall/livefeed/pkg/models"
)

// ErrMalformedUpdate is returned by Decode for frames that are not a JSON
// object or that carry a field of the wrong shape.
var ErrMalformedUpdate = errors.New("malformed update")

// Decode parses one channel frame. An empty object ("{}", sent by the server
// as keepalive) decodes to an empty update.
//
// Fields are decoded independently: a field that does not match its record
// type is left nil and reported in the error, while the other fields are
// still returned. Only a frame that is not a JSON object yields a nil update.
func Decode(data []byte) (*models.Update, error) {
	var raw struct {
		Devices   json.RawMessage `json:"devices"`
		Positions json.RawMessage `json:"positions"`
		Events    json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedUpdate, err)
	}

	var u models.Update
	err := errors.Join(
		decodeField("devices", raw.Devices, &u.Devices),
		decodeField("positions", raw.Positions, &u.Positions),
		decodeField("events", raw.Events, &u.Events),
	)
	if err != nil {
		return &u, fmt.Errorf("%w: %w", ErrMalformedUpdate, err)
	}
	return &u, nil
}

// decodeField fills dst from raw, leaving it untouched when raw is absent
// or does not decode.
func decodeField[T any](name string, raw json.RawMessage, dst *[]T) error {
	if raw == nil {
		return nil
	}
	var list []T
	if err := json.Unmarshal(raw, &list); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = list
	return nil
}

// DeviceSink receives per-record device upserts.
type DeviceSink interface {
	Upsert(ctx context.Context, devices []models.Device)
}

// PositionSink receives per-record position upserts.
type PositionSink interface {
	Upsert(ctx context.Context, positions []models.Position)
}

// EventSink receives each events batch, replacing the previous one.
type EventSink interface {
	Replace(ctx context.Context, events []models.Event)
}

// Router hands the fields of an update to their sinks. Absent fields are
// not routed, so the corresponding state is left untouched.
type Router struct {
	Devices   DeviceSink
	Positions PositionSink
	Events    EventSink
}

// Route delivers u to the sinks in the order devices, positions, events.
func (r Router) Route(ctx context.Context, u *models.Update) {
	if u.Devices != nil && r.Devices != nil {
		r.Devices.Upsert(ctx, u.Devices)
	}
	if u.Positions != nil && r.Positions != nil {
		r.Positions.Upsert(ctx, u.Positions)
	}
	if u.Events != nil && r.Events != nil {
		r.Events.Replace(ctx, u.Events)
	}
}
