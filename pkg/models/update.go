package models

// Update is one message pushed over the live-update channel. Every field is
// optional; a nil slice means the message carries no update of that kind.
type Update struct {
	Devices   []Device   `json:"devices,omitempty"`
	Positions []Position `json:"positions,omitempty"`
	Events    []Event    `json:"events,omitempty"`
}

// Empty reports whether the update carries nothing to route.
func (u *Update) Empty() bool {
	return u.Devices == nil && u.Positions == nil && u.Events == nil
}

// Notification is the transient text shown for the most recent event.
type Notification struct {
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
	Visible bool   `json:"visible"`
}
