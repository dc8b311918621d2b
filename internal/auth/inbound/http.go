package inbound

import (
	"context"

	"github.com/shandysiswandi/passwordless/internal/auth/usecase"
	"github.com/shandysiswandi/passwordless/internal/pkg/router"
)

type uc interface {
	GenerateOTP(ctx context.Context, in usecase.GenerateOTPInput) (*usecase.GenerateOTPOutput, error)
	ValidateOTP(ctx context.Context, in usecase.ValidateOTPInput) (*usecase.ValidateOTPOutput, error)
	ResendOTP(ctx context.Context, in usecase.ResendOTPInput) (*usecase.ResendOTPOutput, error)
	CancelOTP(ctx context.Context, in usecase.CancelOTPInput) (bool, error)
	OTPStatus(ctx context.Context, in usecase.OTPStatusInput) (*usecase.OTPStatusOutput, error)

	RefreshSession(ctx context.Context, in usecase.RefreshSessionInput) (*usecase.RefreshSessionOutput, error)
	RevokeSession(ctx context.Context, in usecase.RevokeSessionInput) (bool, error)

	Register(ctx context.Context, in usecase.RegisterInput) (*usecase.RegisterOutput, error)
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	// OTP lifecycle
	r.POST("/otp/generate", end.GenerateOTP)
	r.POST("/otp/validate", end.ValidateOTP)
	r.POST("/otp/resend", end.ResendOTP)
	r.POST("/otp/cancel", end.CancelOTP)
	r.GET("/otp/status/:identifier", end.OTPStatus)

	// Sessions
	r.POST("/auth/refresh", end.RefreshSession)
	r.POST("/auth/revoke", end.RevokeSession)

	// Accounts
	r.POST("/users/register", end.Register)
}
