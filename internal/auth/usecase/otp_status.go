package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shandysiswandi/passwordless/internal/pkg/goerror"
)

type OTPStatusInput struct {
	Identifier string `validate:"required,min=3,max=254"`
}

type OTPStatusOutput struct {
	HasActiveOTP bool
	ExpiresAt    *time.Time
	RetryCount   int32
	NextRetryAt  *time.Time
	IsBlocked    bool
	BlockedUntil *time.Time
}

// OTPStatus is a read-only projection of the user's verification state. It
// is total: unknown identifiers simply report no active request, so the
// endpoint cannot be used to probe which accounts exist.
func (s *Usecase) OTPStatus(ctx context.Context, in OTPStatusInput) (*OTPStatusOutput, error) {
	ctx, span := s.startSpan(ctx, "OTPStatus")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	user, err := s.repoDB.GetUserByIdentifier(ctx, in.Identifier)
	if errors.Is(err, goerror.ErrNotFound) {
		return &OTPStatusOutput{}, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by identifier", "identifier", in.Identifier, "error", err)
		return nil, goerror.NewServer(err)
	}

	now := s.clock.Now()
	out := &OTPStatusOutput{
		IsBlocked:    user.IsBlocked(now),
		BlockedUntil: user.OTPBlockedUntil,
	}

	req, err := s.repoDB.GetActiveOTPRequest(ctx, user.ID, now)
	if errors.Is(err, goerror.ErrNotFound) {
		return out, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get active otp request", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	out.HasActiveOTP = true
	out.ExpiresAt = &req.ExpiresAt
	out.RetryCount = req.RetryCount
	out.NextRetryAt = req.NextRetryAt

	return out, nil
}
