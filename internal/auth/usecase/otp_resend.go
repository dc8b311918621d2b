package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shandysiswandi/passwordless/internal/auth/entity"
	"github.com/shandysiswandi/passwordless/internal/pkg/goerror"
)

type ResendOTPInput struct {
	Identifier     string `validate:"required,min=3,max=254"`
	DeliveryMethod string `validate:"required,oneof=SMS Email sms email"`
}

type ResendOTPOutput struct {
	ExpiresAt      time.Time
	RetryCount     int32
	NextRetryAt    time.Time
	DeliveryMethod entity.DeliveryMethod
	// Code is populated only when code exposure is enabled.
	Code string
}

// ResendOTP re-delivers a fresh code for an existing cycle. It never starts
// one: without an active request the caller must use generate. Each resend
// advances the retry counter and the escalating backoff window.
func (s *Usecase) ResendOTP(ctx context.Context, in ResendOTPInput) (*ResendOTPOutput, error) {
	ctx, span := s.startSpan(ctx, "ResendOTP")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	var out *ResendOTPOutput
	err := s.withUserLock(ctx, in.Identifier, func(ctx context.Context) error {
		var err error
		out, err = s.resendOTP(ctx, in)
		return err
	})

	return out, err
}

func (s *Usecase) resendOTP(ctx context.Context, in ResendOTPInput) (*ResendOTPOutput, error) {
	user, err := s.resolveUser(ctx, in.Identifier)
	if err != nil {
		return nil, err
	}

	if err := s.ensureNotBlocked(ctx, user); err != nil {
		return nil, err
	}

	method := entity.DeliveryMethodFromString(in.DeliveryMethod)
	target := user.DeliveryTarget(method)
	if target == "" {
		slog.WarnContext(ctx, "user has no address for delivery method",
			"user_id", user.ID, "delivery_method", method.String())
		return nil, goerror.NewInvalidInput(nil, "delivery_method", "no "+method.String()+" address on file")
	}

	now := s.clock.Now()
	req, err := s.repoDB.GetActiveOTPRequest(ctx, user.ID, now)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "no active otp request to resend", "user_id", user.ID)
		return nil, goerror.NewBusiness("No active OTP found", goerror.CodeBadRequest)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get active otp request", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if req.RetryCount >= s.maxRetries() {
		slog.WarnContext(ctx, "otp resend limit reached", "user_id", user.ID, "retry_count", req.RetryCount)
		return nil, goerror.NewBusiness("Maximum resend attempts reached", goerror.CodeBadRequest)
	}

	intervals := s.retryIntervals()
	idx := int(req.RetryCount)
	if idx >= len(intervals) {
		idx = len(intervals) - 1
	}
	nextRetryAt := now.Add(intervals[idx])

	code, err := s.codeGen.Generate()
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate otp code", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	codeHash, err := s.hmac.Hash(code)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash otp code", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	expiresAt := now.Add(s.otpExpiry())

	// The request is refreshed in place: new code, new window, attempts back
	// to zero, retry counter advanced. One update keeps it atomic.
	if err := s.repoDB.RefreshOTPRequest(ctx, entity.RefreshOTPRequest{
		ID:          req.ID,
		UserID:      user.ID,
		CodeHash:    string(codeHash),
		CreatedAt:   now,
		ExpiresAt:   expiresAt,
		RetryCount:  req.RetryCount + 1,
		NextRetryAt: nextRetryAt,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to repo refresh otp request", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if ok := s.notifier.Send(ctx, method, entity.MessageKindOTPCode, target, map[string]string{
		"code":           code,
		"expires_at":     expiresAt.UTC().Format(time.RFC3339),
		"expiry_minutes": s.expiryMinutes(),
		"full_name":      user.FullName,
	}); !ok {
		slog.WarnContext(ctx, "otp code delivery failed on resend", "user_id", user.ID, "delivery_method", method.String())
		return nil, goerror.NewBusiness("Failed to deliver OTP, please try again", goerror.CodeBadRequest)
	}

	out := &ResendOTPOutput{
		ExpiresAt:      expiresAt,
		RetryCount:     req.RetryCount + 1,
		NextRetryAt:    nextRetryAt,
		DeliveryMethod: method,
	}
	if s.cfg.GetBool("app.expose_otp_code") {
		out.Code = code
	}

	return out, nil
}
