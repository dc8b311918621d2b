package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/passwordless/internal/auth/entity"
	"github.com/shandysiswandi/passwordless/internal/pkg/goerror"
)

type GenerateOTPInput struct {
	Identifier     string `validate:"required,min=3,max=254"`
	DeliveryMethod string `validate:"required,oneof=SMS Email sms email"`
}

type GenerateOTPOutput struct {
	ExpiresAt      time.Time
	RetryCount     int32
	DeliveryMethod entity.DeliveryMethod
	// Code is populated only when code exposure is enabled for the
	// environment; production responses never carry it.
	Code string
}

// GenerateOTP starts a fresh verification cycle: any active request for the
// user is cancelled, a new code is issued, and delivery is attempted. The
// request outlives a failed delivery so a resend can still serve it.
func (s *Usecase) GenerateOTP(ctx context.Context, in GenerateOTPInput) (*GenerateOTPOutput, error) {
	ctx, span := s.startSpan(ctx, "GenerateOTP")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	var out *GenerateOTPOutput
	err := s.withUserLock(ctx, in.Identifier, func(ctx context.Context) error {
		var err error
		out, err = s.generateOTP(ctx, in)
		return err
	})

	return out, err
}

func (s *Usecase) generateOTP(ctx context.Context, in GenerateOTPInput) (*GenerateOTPOutput, error) {
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

	now := s.clock.Now()
	req := entity.OTPRequest{
		ID:             s.uid.Generate(),
		UserID:         user.ID,
		CodeHash:       string(codeHash),
		Status:         entity.OTPStatusPending,
		Attempts:       0,
		MaxAttempts:    s.maxAttempts(),
		RetryCount:     0,
		DeliveryMethod: method,
		DeliveryTarget: target,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.otpExpiry()),
	}

	// Cancels any active request and inserts the new one atomically, so at
	// most one pending request per user ever exists.
	if err := s.repoDB.NewOTPRequest(ctx, req); err != nil {
		slog.ErrorContext(ctx, "failed to repo create otp request", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if ok := s.notifier.Send(ctx, method, entity.MessageKindOTPCode, target, map[string]string{
		"code":           code,
		"expires_at":     req.ExpiresAt.UTC().Format(time.RFC3339),
		"expiry_minutes": s.expiryMinutes(),
		"full_name":      user.FullName,
	}); !ok {
		slog.WarnContext(ctx, "otp code delivery failed", "user_id", user.ID, "delivery_method", method.String())
		return nil, goerror.NewBusiness("Failed to deliver OTP, please try again", goerror.CodeBadRequest)
	}

	out := &GenerateOTPOutput{
		ExpiresAt:      req.ExpiresAt,
		RetryCount:     0,
		DeliveryMethod: method,
	}
	if s.cfg.GetBool("app.expose_otp_code") {
		out.Code = code
	}

	return out, nil
}
