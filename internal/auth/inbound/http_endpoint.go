package inbound

import (
	"strings"

	"github.com/shandysiswandi/passwordless/internal/auth/usecase"
	"github.com/shandysiswandi/passwordless/internal/pkg/router"
)

// HTTPEndpoint exposes HTTP handlers for the OTP and session workflows.
type HTTPEndpoint struct {
	uc uc
}

// GenerateOTP starts a verification cycle and delivers a fresh code.
func (h *HTTPEndpoint) GenerateOTP(r *router.Request) (any, error) {
	var req GenerateOTPRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.GenerateOTP(r.Context(), usecase.GenerateOTPInput{
		Identifier:     req.Identifier,
		DeliveryMethod: req.DeliveryMethod,
	})
	if err != nil {
		return nil, err
	}

	return GenerateOTPResponse{
		Success:        true,
		Message:        "OTP sent via " + resp.DeliveryMethod.String(),
		ExpiresAt:      fmtTime(resp.ExpiresAt),
		RetryCount:     resp.RetryCount,
		DeliveryMethod: resp.DeliveryMethod.String(),
		OTPCode:        resp.Code,
	}, nil
}

// ValidateOTP checks a submitted code and returns a session on success.
func (h *HTTPEndpoint) ValidateOTP(r *router.Request) (any, error) {
	var req ValidateOTPRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.ValidateOTP(r.Context(), usecase.ValidateOTPInput{
		Identifier: req.Identifier,
		Code:       req.OTPCode,
	})
	if err != nil {
		return nil, err
	}

	return ValidateOTPResponse{
		Success:      true,
		Message:      "OTP validated successfully",
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    fmtTime(resp.ExpiresAt),
		User: UserPayload{
			ID:       resp.UserID,
			Email:    resp.Email,
			FullName: resp.FullName,
		},
	}, nil
}

// ResendOTP re-delivers a fresh code for the active cycle.
func (h *HTTPEndpoint) ResendOTP(r *router.Request) (any, error) {
	var req ResendOTPRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.ResendOTP(r.Context(), usecase.ResendOTPInput{
		Identifier:     req.Identifier,
		DeliveryMethod: req.DeliveryMethod,
	})
	if err != nil {
		return nil, err
	}

	return ResendOTPResponse{
		Success:        true,
		Message:        "OTP resent via " + resp.DeliveryMethod.String(),
		ExpiresAt:      fmtTime(resp.ExpiresAt),
		RetryCount:     resp.RetryCount,
		NextRetryAt:    fmtTime(resp.NextRetryAt),
		DeliveryMethod: resp.DeliveryMethod.String(),
		OTPCode:        resp.Code,
	}, nil
}

// CancelOTP withdraws the active cycle. The body is a bare boolean.
func (h *HTTPEndpoint) CancelOTP(r *router.Request) (any, error) {
	var req CancelOTPRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	return h.uc.CancelOTP(r.Context(), usecase.CancelOTPInput{Identifier: req.Identifier})
}

// OTPStatus reports the verification state for an identifier.
func (h *HTTPEndpoint) OTPStatus(r *router.Request) (any, error) {
	resp, err := h.uc.OTPStatus(r.Context(), usecase.OTPStatusInput{
		Identifier: r.GetParam("identifier"),
	})
	if err != nil {
		return nil, err
	}

	return OTPStatusResponse{
		HasActiveOTP: resp.HasActiveOTP,
		ExpiresAt:    fmtTimePtr(resp.ExpiresAt),
		RetryCount:   resp.RetryCount,
		NextRetryAt:  fmtTimePtr(resp.NextRetryAt),
		IsBlocked:    resp.IsBlocked,
		BlockedUntil: fmtTimePtr(resp.BlockedUntil),
	}, nil
}

// RefreshSession rotates an access/refresh token pair.
func (h *HTTPEndpoint) RefreshSession(r *router.Request) (any, error) {
	var req RefreshSessionRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.RefreshSession(r.Context(), usecase.RefreshSessionInput{
		RefreshToken: req.RefreshToken,
	})
	if err != nil {
		return nil, err
	}

	return RefreshSessionResponse{
		Success:      true,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    fmtTime(resp.ExpiresAt),
	}, nil
}

// RevokeSession invalidates a refresh token. The body is a bare boolean.
func (h *HTTPEndpoint) RevokeSession(r *router.Request) (any, error) {
	var req RevokeSessionRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	return h.uc.RevokeSession(r.Context(), usecase.RevokeSessionInput{RefreshToken: req.RefreshToken})
}

// Register creates a passwordless account.
func (h *HTTPEndpoint) Register(r *router.Request) (any, error) {
	var req RegisterRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	fullName := strings.TrimSpace(strings.TrimSpace(req.FirstName) + " " + strings.TrimSpace(req.LastName))

	resp, err := h.uc.Register(r.Context(), usecase.RegisterInput{
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		FullName:    fullName,
	})
	if err != nil {
		return nil, err
	}

	return RegisterResponse{
		ID:          resp.UserID,
		Email:       resp.Email,
		PhoneNumber: resp.PhoneNumber,
		FullName:    resp.FullName,
	}, nil
}
