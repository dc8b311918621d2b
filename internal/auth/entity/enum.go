package entity

type OTPStatus int16

const (
	// OTPStatusUnknown is mean status is not known / not set.
	OTPStatusUnknown OTPStatus = 0

	// OTPStatusPending mean the code was issued and may still be verified.
	OTPStatusPending OTPStatus = 1

	// OTPStatusVerified mean the code was validated successfully.
	OTPStatusVerified OTPStatus = 2

	// OTPStatusExpired is a terminal label for reporting. The engine never
	// writes it; expiry is derived from ExpiresAt at read time.
	OTPStatusExpired OTPStatus = 3

	// OTPStatusMaxAttemptsReached mean the code was burned by too many wrong guesses.
	OTPStatusMaxAttemptsReached OTPStatus = 4

	// OTPStatusCancelled mean the request was withdrawn before verification.
	OTPStatusCancelled OTPStatus = 5
)

func (os OTPStatus) String() string {
	switch os {
	case OTPStatusPending:
		return "Pending"
	case OTPStatusVerified:
		return "Verified"
	case OTPStatusExpired:
		return "Expired"
	case OTPStatusMaxAttemptsReached:
		return "MaxAttemptsReached"
	case OTPStatusCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether the status can no longer change.
func (os OTPStatus) IsTerminal() bool {
	switch os {
	case OTPStatusVerified, OTPStatusExpired, OTPStatusMaxAttemptsReached, OTPStatusCancelled:
		return true
	default:
		return false
	}
}

type DeliveryMethod int16

const (
	DeliveryMethodUnknown DeliveryMethod = 0
	DeliveryMethodSMS     DeliveryMethod = 1
	DeliveryMethodEmail   DeliveryMethod = 2
)

func DeliveryMethodFromString(str string) DeliveryMethod {
	switch str {
	case "SMS", "sms":
		return DeliveryMethodSMS
	case "Email", "email":
		return DeliveryMethodEmail
	default:
		return DeliveryMethodUnknown
	}
}

func (dm DeliveryMethod) String() string {
	switch dm {
	case DeliveryMethodSMS:
		return "SMS"
	case DeliveryMethodEmail:
		return "Email"
	default:
		return "Unknown"
	}
}

func (dm DeliveryMethod) IsUnknown() bool {
	return dm != DeliveryMethodSMS && dm != DeliveryMethodEmail
}

// MessageKind selects the outbound message template.
type MessageKind int16

const (
	MessageKindUnknown       MessageKind = 0
	MessageKindOTPCode       MessageKind = 1
	MessageKindWelcome       MessageKind = 2
	MessageKindSecurityAlert MessageKind = 3
)

func (mk MessageKind) String() string {
	switch mk {
	case MessageKindOTPCode:
		return "OTPCode"
	case MessageKindWelcome:
		return "Welcome"
	case MessageKindSecurityAlert:
		return "SecurityAlert"
	default:
		return "Unknown"
	}
}
