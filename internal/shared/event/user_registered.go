package event

const UserRegisteredDestination string = "auth_user_registered"
const UserRegisteredConsumerNotification string = "auth_user_registered_notification"

type UserRegisteredMessage struct {
	UserID   int64  `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}
