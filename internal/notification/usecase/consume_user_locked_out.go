package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shandysiswandi/passwordless/internal/pkg/mail"
	"github.com/shandysiswandi/passwordless/internal/pkg/sms"
)

type ConsumeUserLockedOutInput struct {
	UserID       int64  `validate:"required,gt=0"`
	Email        string `validate:"required,email"`
	PhoneNumber  string `validate:"omitempty,e164"`
	FullName     string `validate:"required,min=3,max=100"`
	BlockedUntil string `validate:"required"`
}

// ConsumeUserLockedOut sends a security alert after an account lockout.
// The alert goes to email and, when a phone number is on file, to SMS as
// well. A failure on either channel is returned for redelivery.
func (s *Usecase) ConsumeUserLockedOut(ctx context.Context, in ConsumeUserLockedOutInput) error {
	ctx, span := s.startSpan(ctx, "ConsumeUserLockedOut")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.ErrorContext(ctx, "dropping malformed user locked out event", "error", err)
		return nil
	}

	body := fmt.Sprintf("Hi %s, your account was temporarily locked after too many "+
		"failed verification attempts. You can try again after %s. "+
		"If this was not you, please contact support.", in.FullName, in.BlockedUntil)

	if err := s.repoMail.Send(ctx, mail.Message{
		From:     s.mailFrom(),
		To:       []string{in.Email},
		Subject:  "Account temporarily locked",
		TextBody: body,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to send lockout alert email", "user_id", in.UserID, "error", err)
		return err
	}

	if in.PhoneNumber != "" {
		if err := s.repoSMS.Send(ctx, sms.Message{To: in.PhoneNumber, Body: body}); err != nil {
			slog.ErrorContext(ctx, "failed to send lockout alert sms", "user_id", in.UserID, "error", err)
			return err
		}
	}

	return nil
}
