package event

const UserLockedOutDestination string = "auth_user_locked_out"
const UserLockedOutConsumerNotification string = "auth_user_locked_out_notification"

type UserLockedOutMessage struct {
	UserID       int64  `json:"user_id"`
	Email        string `json:"email"`
	PhoneNumber  string `json:"phone_number"`
	FullName     string `json:"full_name"`
	BlockedUntil string `json:"blocked_until"`
}
