package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/passwordless/internal/auth/entity"
)

const queryGetActiveOTPRequest = `
SELECT id, user_id, code_hash, status, attempts, max_attempts,
       retry_count, next_retry_at, delivery_method, delivery_target,
       created_at, expires_at, verified_at
FROM auth_otp_requests
WHERE user_id = $1 AND status = $2 AND expires_at > $3
ORDER BY created_at DESC
LIMIT 1`

// GetActiveOTPRequest returns the latest pending, unexpired request. Expiry
// lives in the predicate, not in a stored flag.
func (s *DB) GetActiveOTPRequest(ctx context.Context, userID int64, now time.Time) (req *entity.OTPRequest, err error) {
	ctx, span := s.startSpan(ctx, "GetActiveOTPRequest")
	defer func() { s.endSpan(span, err) }()

	var r entity.OTPRequest
	err = s.conn.QueryRow(ctx, queryGetActiveOTPRequest, userID, entity.OTPStatusPending, now).Scan(
		&r.ID,
		&r.UserID,
		&r.CodeHash,
		&r.Status,
		&r.Attempts,
		&r.MaxAttempts,
		&r.RetryCount,
		&r.NextRetryAt,
		&r.DeliveryMethod,
		&r.DeliveryTarget,
		&r.CreatedAt,
		&r.ExpiresAt,
		&r.VerifiedAt,
	)
	if err != nil {
		return nil, s.mapError(err)
	}

	return &r, nil
}

const queryCancelPendingOTPRequests = `
UPDATE auth_otp_requests
SET status = $1
WHERE user_id = $2 AND status = $3`

const queryInsertOTPRequest = `
INSERT INTO auth_otp_requests
	(id, user_id, code_hash, status, attempts, max_attempts,
	 retry_count, delivery_method, delivery_target, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

const queryStampLastOTPRequest = `
UPDATE auth_users SET last_otp_request_at = $1 WHERE id = $2`

// NewOTPRequest cancels the user's pending requests and inserts the new one
// in a single transaction, preserving the one-active-request invariant.
func (s *DB) NewOTPRequest(ctx context.Context, in entity.OTPRequest) (err error) {
	ctx, span := s.startSpan(ctx, "NewOTPRequest")
	defer func() { s.endSpan(span, err) }()

	return s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, queryCancelPendingOTPRequests,
			entity.OTPStatusCancelled, in.UserID, entity.OTPStatusPending); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, queryInsertOTPRequest,
			in.ID, in.UserID, in.CodeHash, in.Status, in.Attempts, in.MaxAttempts,
			in.RetryCount, in.DeliveryMethod, in.DeliveryTarget, in.CreatedAt, in.ExpiresAt); err != nil {
			return err
		}

		_, err := tx.Exec(ctx, queryStampLastOTPRequest, in.CreatedAt, in.UserID)
		return err
	})
}

const queryRefreshOTPRequest = `
UPDATE auth_otp_requests
SET code_hash = $1, created_at = $2, expires_at = $3,
    attempts = 0, retry_count = $4, next_retry_at = $5
WHERE id = $6 AND user_id = $7 AND status = $8`

// RefreshOTPRequest overwrites the code and window in place for a resend.
func (s *DB) RefreshOTPRequest(ctx context.Context, in entity.RefreshOTPRequest) (err error) {
	ctx, span := s.startSpan(ctx, "RefreshOTPRequest")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, queryRefreshOTPRequest,
		in.CodeHash, in.CreatedAt, in.ExpiresAt, in.RetryCount, in.NextRetryAt,
		in.ID, in.UserID, entity.OTPStatusPending)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return s.mapError(pgx.ErrNoRows)
	}

	return nil
}

const queryRecordFailedAttempt = `
UPDATE auth_otp_requests
SET attempts = $1
WHERE id = $2 AND user_id = $3 AND status = $4`

func (s *DB) RecordFailedAttempt(ctx context.Context, in entity.RecordFailedAttempt) (err error) {
	ctx, span := s.startSpan(ctx, "RecordFailedAttempt")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, queryRecordFailedAttempt,
		in.Attempts, in.RequestID, in.UserID, entity.OTPStatusPending)
	return s.mapError(err)
}

const queryBurnOTPRequest = `
UPDATE auth_otp_requests SET status = $1 WHERE id = $2 AND user_id = $3`

const queryBlockUser = `
UPDATE auth_users SET otp_blocked_until = $1, otp_attempts = 0 WHERE id = $2`

// LockoutUser burns the request and opens the block window atomically.
func (s *DB) LockoutUser(ctx context.Context, in entity.LockoutUser) (err error) {
	ctx, span := s.startSpan(ctx, "LockoutUser")
	defer func() { s.endSpan(span, err) }()

	return s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, queryBurnOTPRequest,
			entity.OTPStatusMaxAttemptsReached, in.RequestID, in.UserID); err != nil {
			return err
		}

		_, err := tx.Exec(ctx, queryBlockUser, in.BlockedUntil, in.UserID)
		return err
	})
}

const queryVerifyOTPRequest = `
UPDATE auth_otp_requests
SET status = $1, verified_at = $2
WHERE id = $3 AND user_id = $4 AND status = $5`

const queryStampLogin = `
UPDATE auth_users SET last_login_at = $1, otp_attempts = 0, otp_blocked_until = NULL WHERE id = $2`

// VerifyOTPRequest marks the request verified and stamps the login.
func (s *DB) VerifyOTPRequest(ctx context.Context, in entity.VerifyOTPRequest) (err error) {
	ctx, span := s.startSpan(ctx, "VerifyOTPRequest")
	defer func() { s.endSpan(span, err) }()

	return s.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, queryVerifyOTPRequest,
			entity.OTPStatusVerified, in.VerifiedAt, in.RequestID, in.UserID, entity.OTPStatusPending)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}

		_, err = tx.Exec(ctx, queryStampLogin, in.VerifiedAt, in.UserID)
		return err
	})
}

func (s *DB) CancelActiveOTPRequests(ctx context.Context, userID int64) (err error) {
	ctx, span := s.startSpan(ctx, "CancelActiveOTPRequests")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, queryCancelPendingOTPRequests,
		entity.OTPStatusCancelled, userID, entity.OTPStatusPending)
	return s.mapError(err)
}
