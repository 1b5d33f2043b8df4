package state

// Topic constants for state change events published on the bus.
const (
	TopicDevicesReplaced = "devices.replaced"
	TopicDevicesUpdated  = "devices.updated"
	TopicPositionsUpdate = "positions.updated"
	TopicSessionServer   = "session.server"
	TopicSessionUser     = "session.user"
)

// UserChange is the payload of TopicSessionUser.
type UserChange struct {
	Authenticated bool
}
