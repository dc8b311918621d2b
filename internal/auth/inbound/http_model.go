package inbound

import "time"

type GenerateOTPRequest struct {
	Identifier     string `json:"identifier"`
	DeliveryMethod string `json:"deliveryMethod"`
}

type GenerateOTPResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	ExpiresAt      string `json:"expiresAt"`
	RetryCount     int32  `json:"retryCount"`
	DeliveryMethod string `json:"deliveryMethod"`
	// OTPCode is present only when code exposure is enabled for the
	// environment.
	OTPCode string `json:"otpCode,omitempty"`
}

type ValidateOTPRequest struct {
	Identifier string `json:"identifier"`
	OTPCode    string `json:"otpCode"`
}

type ValidateOTPResponse struct {
	Success      bool        `json:"success"`
	Message      string      `json:"message"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	ExpiresAt    string      `json:"expiresAt"`
	User         UserPayload `json:"user"`
}

type UserPayload struct {
	ID       int64  `json:"id,string"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

type ResendOTPRequest struct {
	Identifier     string `json:"identifier"`
	DeliveryMethod string `json:"deliveryMethod"`
}

type ResendOTPResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	ExpiresAt      string `json:"expiresAt"`
	RetryCount     int32  `json:"retryCount"`
	NextRetryAt    string `json:"nextRetryAt"`
	DeliveryMethod string `json:"deliveryMethod"`
	OTPCode        string `json:"otpCode,omitempty"`
}

type CancelOTPRequest struct {
	Identifier string `json:"identifier"`
}

type OTPStatusResponse struct {
	HasActiveOTP bool    `json:"hasActiveOTP"`
	ExpiresAt    *string `json:"expiresAt,omitempty"`
	RetryCount   int32   `json:"retryCount"`
	NextRetryAt  *string `json:"nextRetryAt,omitempty"`
	IsBlocked    bool    `json:"isBlocked"`
	BlockedUntil *string `json:"blockedUntil,omitempty"`
}

type RefreshSessionRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type RefreshSessionResponse struct {
	Success      bool   `json:"success"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    string `json:"expiresAt"`
}

type RevokeSessionRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type RegisterRequest struct {
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
}

type RegisterResponse struct {
	ID          int64  `json:"id,string"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	FullName    string `json:"fullName"`
}

// fmtTime renders timestamps as UTC RFC3339, the wire format for every
// endpoint.
func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func fmtTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := fmtTime(*t)
	return &s
}
