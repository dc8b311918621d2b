package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shandysiswandi/passwordless/internal/auth/entity"
	"github.com/shandysiswandi/passwordless/internal/pkg/goerror"
)

type ValidateOTPInput struct {
	Identifier string `validate:"required,min=3,max=254"`
	Code       string `validate:"required,min=4,max=12"`
}

type ValidateOTPOutput struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	UserID       int64
	Email        string
	FullName     string
}

// ValidateOTP checks the submitted code against the user's active request.
// The attempt ceiling is enforced before the code is even compared, so a
// burned request cannot be brute-forced by a lucky last guess.
func (s *Usecase) ValidateOTP(ctx context.Context, in ValidateOTPInput) (*ValidateOTPOutput, error) {
	ctx, span := s.startSpan(ctx, "ValidateOTP")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	var out *ValidateOTPOutput
	err := s.withUserLock(ctx, in.Identifier, func(ctx context.Context) error {
		var err error
		out, err = s.validateOTP(ctx, in)
		return err
	})

	return out, err
}

func (s *Usecase) validateOTP(ctx context.Context, in ValidateOTPInput) (*ValidateOTPOutput, error) {
	user, err := s.resolveUser(ctx, in.Identifier)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	req, err := s.repoDB.GetActiveOTPRequest(ctx, user.ID, now)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "no active otp request", "user_id", user.ID)
		return nil, goerror.NewBusiness("No active OTP found", goerror.CodeBadRequest)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get active otp request", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if req.IsMaxAttemptsReached() {
		return nil, s.lockout(ctx, user, req, now)
	}

	if !s.hmac.Verify(req.CodeHash, in.Code) {
		attempts := req.Attempts + 1
		if err := s.repoDB.RecordFailedAttempt(ctx, entity.RecordFailedAttempt{
			RequestID: req.ID,
			UserID:    user.ID,
			Attempts:  attempts,
		}); err != nil {
			slog.ErrorContext(ctx, "failed to repo record failed attempt", "user_id", user.ID, "error", err)
			return nil, goerror.NewServer(err)
		}

		if attempts >= req.MaxAttempts {
			return nil, s.lockout(ctx, user, req, now)
		}

		remaining := req.MaxAttempts - attempts
		slog.WarnContext(ctx, "otp code mismatch", "user_id", user.ID, "attempts", attempts)
		return nil, goerror.NewBusiness(
			fmt.Sprintf("Invalid OTP code. %d attempts remaining", remaining),
			goerror.CodeBadRequest,
		)
	}

	if err := s.repoDB.VerifyOTPRequest(ctx, entity.VerifyOTPRequest{
		RequestID:  req.ID,
		UserID:     user.ID,
		VerifiedAt: now,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to repo verify otp request", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	access, refresh, expiresAt, err := s.mintSession(ctx, user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	return &ValidateOTPOutput{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
		UserID:       user.ID,
		Email:        user.Email,
		FullName:     user.FullName,
	}, nil
}

// lockout burns the request, opens the block window, and emits a security
// alert. The alert is best effort and never fails the call.
func (s *Usecase) lockout(ctx context.Context, user *entity.User, req *entity.OTPRequest, now time.Time) error {
	blockedUntil := now.Add(s.lockoutDuration())

	if err := s.repoDB.LockoutUser(ctx, entity.LockoutUser{
		RequestID:    req.ID,
		UserID:       user.ID,
		BlockedUntil: blockedUntil,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to repo lockout user", "user_id", user.ID, "error", err)
		return goerror.NewServer(err)
	}

	if err := s.repoMessaging.PublishUserLockedOut(ctx, UserLockedOutEvent{
		UserID:       user.ID,
		Email:        user.Email,
		PhoneNumber:  user.PhoneNumber,
		FullName:     user.FullName,
		BlockedUntil: blockedUntil,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to publish user locked out event", "user_id", user.ID, "error", err)
	}

	slog.WarnContext(ctx, "otp max attempts reached, user locked out",
		"user_id", user.ID, "blocked_until", blockedUntil)

	return goerror.NewBusiness(
		"Maximum attempts exceeded. Account blocked until "+blockedUntil.UTC().Format(time.RFC3339),
		goerror.CodeBadRequest,
	)
}
