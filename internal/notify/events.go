package notify

// Topic constants for notification events published on the bus.
// Both carry a models.Notification payload.
const (
	TopicShown   = "notify.shown"
	TopicCleared = "notify.cleared"
)
