package realtime

// Named realtime streams and events.
const (
	StreamChat          = "chat"
	StreamNotifications = "notifications"

	EventReceiveMessage      = "ReceiveMessage"
	EventNotificationCreated = "notification.created"
	EventNotificationUpdated = "notification.updated"
	EventNotificationRead    = "notification.read"
	EventNotificationReadAll = "notification.read_all"
	EventPong                = "pong"
)

const (
	userGroupPrefix = "user:"
	groupCodePrefix = "group:"
)

func userGroup(userID string) string {
	return userGroupPrefix + userID
}

func codeGroup(code string) string {
	return groupCodePrefix + code
}
