package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/passwordless/internal/pkg/goerror"
)

type CancelOTPInput struct {
	Identifier string `validate:"required,min=3,max=254"`
}

// CancelOTP withdraws the user's active requests. It is idempotent: with or
// without an active request the result is true, and only an unknown
// identifier yields false.
func (s *Usecase) CancelOTP(ctx context.Context, in CancelOTPInput) (bool, error) {
	ctx, span := s.startSpan(ctx, "CancelOTP")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return false, goerror.NewInvalidInput(err)
	}

	var cancelled bool
	err := s.withUserLock(ctx, in.Identifier, func(ctx context.Context) error {
		user, err := s.resolveUser(ctx, in.Identifier)
		if err != nil {
			var gerr *goerror.Error
			if errors.As(err, &gerr) && gerr.Type() == goerror.TypeBusiness {
				cancelled = false
				return nil
			}
			return err
		}

		if err := s.repoDB.CancelActiveOTPRequests(ctx, user.ID); err != nil {
			slog.ErrorContext(ctx, "failed to repo cancel otp requests", "user_id", user.ID, "error", err)
			return goerror.NewServer(err)
		}

		cancelled = true
		return nil
	})

	return cancelled, err
}
