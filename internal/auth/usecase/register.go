package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/passwordless/internal/auth/entity"
	"github.com/shandysiswandi/passwordless/internal/pkg/goerror"
)

type RegisterInput struct {
	Email       string `validate:"required,email,max=254"`
	PhoneNumber string `validate:"omitempty,e164"`
	FullName    string `validate:"required,min=3,max=100"`
}

type RegisterOutput struct {
	UserID      int64
	Email       string
	PhoneNumber string
	FullName    string
}

// Register creates a passwordless account. There is no credential to store;
// the account is immediately able to request codes. A welcome message goes
// out through the notification pipeline.
func (s *Usecase) Register(ctx context.Context, in RegisterInput) (*RegisterOutput, error) {
	ctx, span := s.startSpan(ctx, "Register")
	defer span.End()

	// Normalize before validating so padded input passes the email rule and
	// the stored form is the one that was checked.
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	in.FullName = strings.TrimSpace(in.FullName)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	user := entity.NewUser{
		ID:          s.uid.Generate(),
		Email:       in.Email,
		PhoneNumber: in.PhoneNumber,
		FullName:    in.FullName,
	}

	err := s.repoDB.CreateUser(ctx, user)
	if errors.Is(err, goerror.ErrConflict) {
		slog.WarnContext(ctx, "user already registered", "email", user.Email)
		return nil, goerror.NewBusiness("Email or phone number already registered", goerror.CodeConflict)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo create user", "email", user.Email, "error", err)
		return nil, goerror.NewServer(err)
	}

	if err := s.repoMessaging.PublishUserRegistered(ctx, UserRegisteredEvent{
		UserID:   user.ID,
		Email:    user.Email,
		FullName: user.FullName,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to publish user registered event", "user_id", user.ID, "error", err)
	}

	return &RegisterOutput{
		UserID:      user.ID,
		Email:       user.Email,
		PhoneNumber: user.PhoneNumber,
		FullName:    user.FullName,
	}, nil
}
