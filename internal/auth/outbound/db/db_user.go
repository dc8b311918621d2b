package db

import (
	"context"

	"github.com/shandysiswandi/passwordless/internal/auth/entity"
)

const queryGetUserByIdentifier = `
SELECT id, email, COALESCE(phone_number, ''), full_name, is_active,
       otp_attempts, otp_blocked_until, last_otp_request_at, last_login_at, created_at
FROM auth_users
WHERE (lower(email) = lower($1) OR phone_number = $1) AND is_active
LIMIT 1`

func (s *DB) GetUserByIdentifier(ctx context.Context, identifier string) (user *entity.User, err error) {
	ctx, span := s.startSpan(ctx, "GetUserByIdentifier")
	defer func() { s.endSpan(span, err) }()

	var u entity.User
	err = s.conn.QueryRow(ctx, queryGetUserByIdentifier, identifier).Scan(
		&u.ID,
		&u.Email,
		&u.PhoneNumber,
		&u.FullName,
		&u.IsActive,
		&u.OTPAttempts,
		&u.OTPBlockedUntil,
		&u.LastOTPRequestAt,
		&u.LastLoginAt,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, s.mapError(err)
	}

	return &u, nil
}

const queryCreateUser = `
INSERT INTO auth_users (id, email, phone_number, full_name, is_active)
VALUES ($1, $2, NULLIF($3, ''), $4, TRUE)`

func (s *DB) CreateUser(ctx context.Context, in entity.NewUser) (err error) {
	ctx, span := s.startSpan(ctx, "CreateUser")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, queryCreateUser, in.ID, in.Email, in.PhoneNumber, in.FullName)
	return s.mapError(err)
}
