package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/passwordless/internal/auth/entity"
)

const queryCreateSession = `
INSERT INTO auth_user_sessions
	(id, user_id, access_token_hash, refresh_token_hash, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6)`

func (s *DB) CreateSession(ctx context.Context, in entity.UserSession) (err error) {
	ctx, span := s.startSpan(ctx, "CreateSession")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, queryCreateSession,
		in.ID, in.UserID, in.AccessTokenHash, in.RefreshTokenHash, in.CreatedAt, in.ExpiresAt)
	return s.mapError(err)
}

const queryGetSessionByRefreshTokenHash = `
SELECT s.id, s.expires_at, s.revoked_at, u.id, u.email, u.is_active
FROM auth_user_sessions s
JOIN auth_users u ON u.id = s.user_id
WHERE s.refresh_token_hash = $1
LIMIT 1`

func (s *DB) GetSessionByRefreshTokenHash(ctx context.Context, tokenHash string) (su *entity.SessionUser, err error) {
	ctx, span := s.startSpan(ctx, "GetSessionByRefreshTokenHash")
	defer func() { s.endSpan(span, err) }()

	var row entity.SessionUser
	err = s.conn.QueryRow(ctx, queryGetSessionByRefreshTokenHash, tokenHash).Scan(
		&row.SessionID,
		&row.SessionExpiresAt,
		&row.SessionRevokedAt,
		&row.UserID,
		&row.UserEmail,
		&row.UserIsActive,
	)
	if err != nil {
		return nil, s.mapError(err)
	}

	return &row, nil
}

const queryRotateSession = `
UPDATE auth_user_sessions
SET access_token_hash = $1, refresh_token_hash = $2, expires_at = $3, last_used_at = $4
WHERE id = $5 AND revoked_at IS NULL`

func (s *DB) RotateSession(ctx context.Context, in entity.RotateSession) (err error) {
	ctx, span := s.startSpan(ctx, "RotateSession")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, queryRotateSession,
		in.NewAccessTokenHash, in.NewRefreshTokenHash, in.NewExpiresAt, in.LastUsedAt, in.SessionID)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return s.mapError(pgx.ErrNoRows)
	}

	return nil
}

const queryRevokeSession = `
UPDATE auth_user_sessions
SET revoked_at = $1
WHERE refresh_token_hash = $2 AND revoked_at IS NULL`

// RevokeSession reports whether a live session was actually revoked.
func (s *DB) RevokeSession(ctx context.Context, tokenHash string, at time.Time) (revoked bool, err error) {
	ctx, span := s.startSpan(ctx, "RevokeSession")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, queryRevokeSession, at, tokenHash)
	if err != nil {
		return false, s.mapError(err)
	}

	return tag.RowsAffected() > 0, nil
}
