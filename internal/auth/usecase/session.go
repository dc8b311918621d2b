package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shandysiswandi/passwordless/internal/auth/entity"
	"github.com/shandysiswandi/passwordless/internal/pkg/goerror"
)

// mintSession issues an access/refresh token pair and persists the session
// with both tokens hashed. The raw values exist only in the response. The
// returned expiry is the access token's; the session row carries the longer
// refresh window.
func (s *Usecase) mintSession(ctx context.Context, userID int64, email string) (access, refresh string, expiresAt time.Time, err error) {
	access, err = s.jwt.Generate(userID, email)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate access jwt token", "user_id", userID, "error", err)
		return "", "", time.Time{}, goerror.NewServer(err)
	}

	refresh = s.oid.Generate()

	accessHash, err := s.hmac.Hash(access)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash access token", "user_id", userID, "error", err)
		return "", "", time.Time{}, goerror.NewServer(err)
	}

	refreshHash, err := s.hmac.Hash(refresh)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash refresh token", "user_id", userID, "error", err)
		return "", "", time.Time{}, goerror.NewServer(err)
	}

	now := s.clock.Now()
	expiresAt = now.Add(s.accessTTL())

	if err = s.repoDB.CreateSession(ctx, entity.UserSession{
		ID:               s.uid.Generate(),
		UserID:           userID,
		AccessTokenHash:  string(accessHash),
		RefreshTokenHash: string(refreshHash),
		CreatedAt:        now,
		ExpiresAt:        now.Add(s.refreshTTL()),
	}); err != nil {
		slog.ErrorContext(ctx, "failed to repo create session", "user_id", userID, "error", err)
		return "", "", time.Time{}, goerror.NewServer(err)
	}

	return access, refresh, expiresAt, nil
}

type RefreshSessionInput struct {
	RefreshToken string `validate:"required"`
}

type RefreshSessionOutput struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// RefreshSession rotates both tokens on an active session.
func (s *Usecase) RefreshSession(ctx context.Context, in RefreshSessionInput) (*RefreshSessionOutput, error) {
	ctx, span := s.startSpan(ctx, "RefreshSession")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	oldHash, err := s.hmac.Hash(in.RefreshToken)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash old refresh token", "error", err)
		return nil, goerror.NewServer(err)
	}

	sess, err := s.repoDB.GetSessionByRefreshTokenHash(ctx, string(oldHash))
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "session not found for refresh token")
		return nil, goerror.NewBusiness("Invalid or expired refresh token", goerror.CodeUnauthorized)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get session by refresh token", "error", err)
		return nil, goerror.NewServer(err)
	}

	now := s.clock.Now()
	if sess.SessionRevokedAt != nil || now.After(sess.SessionExpiresAt) {
		slog.WarnContext(ctx, "session is revoked or expired", "session_id", sess.SessionID)
		return nil, goerror.NewBusiness("Invalid or expired refresh token", goerror.CodeUnauthorized)
	}

	if !sess.UserIsActive {
		slog.WarnContext(ctx, "session owner is deactivated", "user_id", sess.UserID)
		return nil, goerror.NewBusiness("Account is deactivated", goerror.CodeUnauthorized)
	}

	access, err := s.jwt.Generate(sess.UserID, sess.UserEmail)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate access jwt token", "user_id", sess.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	refresh := s.oid.Generate()

	accessHash, err := s.hmac.Hash(access)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash new access token", "error", err)
		return nil, goerror.NewServer(err)
	}

	refreshHash, err := s.hmac.Hash(refresh)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash new refresh token", "error", err)
		return nil, goerror.NewServer(err)
	}

	if err := s.repoDB.RotateSession(ctx, entity.RotateSession{
		SessionID:           sess.SessionID,
		NewAccessTokenHash:  string(accessHash),
		NewRefreshTokenHash: string(refreshHash),
		NewExpiresAt:        now.Add(s.refreshTTL()),
		LastUsedAt:          now,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to repo rotate session", "session_id", sess.SessionID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &RefreshSessionOutput{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    now.Add(s.accessTTL()),
	}, nil
}

type RevokeSessionInput struct {
	RefreshToken string `validate:"required"`
}

// RevokeSession stamps RevokedAt on the session owning the refresh token.
// Unknown tokens report false rather than an error.
func (s *Usecase) RevokeSession(ctx context.Context, in RevokeSessionInput) (bool, error) {
	ctx, span := s.startSpan(ctx, "RevokeSession")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return false, goerror.NewInvalidInput(err)
	}

	tokenHash, err := s.hmac.Hash(in.RefreshToken)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash refresh token", "error", err)
		return false, goerror.NewServer(err)
	}

	revoked, err := s.repoDB.RevokeSession(ctx, string(tokenHash), s.clock.Now())
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo revoke session", "error", err)
		return false, goerror.NewServer(err)
	}

	return revoked, nil
}
