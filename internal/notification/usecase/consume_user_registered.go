package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shandysiswandi/passwordless/internal/pkg/mail"
)

type ConsumeUserRegisteredInput struct {
	UserID   int64  `validate:"required,gt=0"`
	Email    string `validate:"required,email"`
	FullName string `validate:"required,min=3,max=100"`
}

// ConsumeUserRegistered sends the welcome message for a new account.
// Malformed payloads are dropped without a retry; only transport failures
// bubble up for redelivery.
func (s *Usecase) ConsumeUserRegistered(ctx context.Context, in ConsumeUserRegisteredInput) error {
	ctx, span := s.startSpan(ctx, "ConsumeUserRegistered")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.ErrorContext(ctx, "dropping malformed user registered event", "error", err)
		return nil
	}

	msg := mail.Message{
		From:    s.mailFrom(),
		To:      []string{in.Email},
		Subject: "Welcome aboard",
		TextBody: fmt.Sprintf("Hi %s, your account is ready. "+
			"Sign in any time by requesting a one-time code.", in.FullName),
	}
	if err := s.repoMail.Send(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "failed to send welcome email", "user_id", in.UserID, "error", err)
		return err
	}

	return nil
}
