package entity

import "time"

type User struct {
	ID               int64
	Email            string
	PhoneNumber      string
	FullName         string
	IsActive         bool
	OTPAttempts      int32
	OTPBlockedUntil  *time.Time
	LastOTPRequestAt *time.Time
	LastLoginAt      *time.Time
	CreatedAt        time.Time
}

// IsBlocked reports whether the user is inside an OTP lockout window. The
// flag is always derived; nothing in storage says "blocked".
func (u *User) IsBlocked(now time.Time) bool {
	return u.OTPBlockedUntil != nil && now.Before(*u.OTPBlockedUntil)
}

// DeliveryTarget returns the address the given method would deliver to, or
// empty when the user has no usable address for it.
func (u *User) DeliveryTarget(method DeliveryMethod) string {
	switch method {
	case DeliveryMethodSMS:
		return u.PhoneNumber
	case DeliveryMethodEmail:
		return u.Email
	default:
		return ""
	}
}

type OTPRequest struct {
	ID             int64
	UserID         int64
	CodeHash       string // HMAC of the code; the plaintext is never stored
	Status         OTPStatus
	Attempts       int32
	MaxAttempts    int32
	RetryCount     int32
	NextRetryAt    *time.Time
	DeliveryMethod DeliveryMethod
	DeliveryTarget string
	CreatedAt      time.Time
	ExpiresAt      time.Time
	VerifiedAt     *time.Time
}

// IsExpired is derived from ExpiresAt; the row keeps Pending status until a
// transition is actually recorded.
func (r *OTPRequest) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

func (r *OTPRequest) IsMaxAttemptsReached() bool {
	return r.Attempts >= r.MaxAttempts
}

// EffectiveStatus folds lazy expiry into the stored status for reporting.
func (r *OTPRequest) EffectiveStatus(now time.Time) OTPStatus {
	if r.Status == OTPStatusPending && r.IsExpired(now) {
		return OTPStatusExpired
	}
	return r.Status
}

type UserSession struct {
	ID               int64
	UserID           int64
	AccessTokenHash  string
	RefreshTokenHash string
	CreatedAt        time.Time
	ExpiresAt        time.Time
	LastUsedAt       *time.Time
	RevokedAt        *time.Time
}

// IsActive is derived; sessions are never flipped inactive in place.
func (s *UserSession) IsActive(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// ---- //

type NewUser struct {
	ID          int64
	Email       string
	PhoneNumber string
	FullName    string
}

// RefreshOTPRequest carries the fields Resend overwrites in place: a fresh
// code and window plus the advanced retry counter, with attempts reset.
type RefreshOTPRequest struct {
	ID          int64
	UserID      int64
	CodeHash    string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	RetryCount  int32
	NextRetryAt time.Time
}

// RecordFailedAttempt bumps the attempt counter on a pending request.
type RecordFailedAttempt struct {
	RequestID int64
	UserID    int64
	Attempts  int32
}

// LockoutUser burns the active request and opens the user's block window in
// one transaction.
type LockoutUser struct {
	RequestID    int64
	UserID       int64
	BlockedUntil time.Time
}

// VerifyOTPRequest marks the request verified and stamps the user's login in
// one transaction.
type VerifyOTPRequest struct {
	RequestID  int64
	UserID     int64
	VerifiedAt time.Time
}

// RotateSession swaps both token hashes on an active session.
type RotateSession struct {
	SessionID           int64
	NewAccessTokenHash  string
	NewRefreshTokenHash string
	NewExpiresAt        time.Time
	LastUsedAt          time.Time
}

// SessionUser joins a session row with its owner for refresh decisions.
type SessionUser struct {
	SessionID        int64
	SessionExpiresAt time.Time
	SessionRevokedAt *time.Time
	UserID           int64
	UserEmail        string
	UserIsActive     bool
}
