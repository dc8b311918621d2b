package tests

import (
	"net/http"
	"strings"
	"testing"
)

func TestOTPGenerateValidateFlow(t *testing.T) {
	user := registerUser(t, "otp-flow")

	gen := generateOTP(t, user.Email)
	if gen.RetryCount != 0 {
		t.Errorf("fresh request retry count = %d, want 0", gen.RetryCount)
	}
	if gen.DeliveryMethod != "Email" {
		t.Errorf("delivery method = %q, want Email", gen.DeliveryMethod)
	}

	st := otpStatus(t, user.Email)
	if !st.HasActiveOTP {
		t.Error("status after generate should report an active request")
	}

	// A wrong guess burns one attempt but keeps the request alive.
	status, body := doJSON(t, http.MethodPost, "/otp/validate", map[string]string{
		"identifier": user.Email,
		"otpCode":    "000000",
	})
	if gen.OTPCode == "000000" {
		t.Skip("generated code collided with the deliberate wrong guess")
	}
	if status != http.StatusBadRequest {
		t.Fatalf("wrong code status = %d, want 400", status)
	}
	if eb := decodeError(t, body); !strings.Contains(eb.Error, "2 attempts remaining") {
		t.Errorf("wrong code error = %q, want to mention 2 attempts remaining", eb.Error)
	}

	status, body = doJSON(t, http.MethodPost, "/otp/validate", map[string]string{
		"identifier": user.Email,
		"otpCode":    gen.OTPCode,
	})
	if status != http.StatusOK {
		eb := decodeError(t, body)
		t.Fatalf("correct code status = %d error=%q, want 200", status, eb.Error)
	}

	var val validateData
	decodeInto(t, body, &val)
	if val.AccessToken == "" || val.RefreshToken == "" {
		t.Error("successful validation must return both tokens")
	}
	if val.User.Email != user.Email {
		t.Errorf("validated user email = %q, want %q", val.User.Email, user.Email)
	}

	if st := otpStatus(t, user.Email); st.HasActiveOTP {
		t.Error("status after successful validation should report no active request")
	}
}

func TestOTPGenerateReplacesActiveRequest(t *testing.T) {
	user := registerUser(t, "otp-replace")

	first := generateOTP(t, user.Email)
	second := generateOTP(t, user.Email)

	// The first code is dead once a second cycle starts.
	status, body := doJSON(t, http.MethodPost, "/otp/validate", map[string]string{
		"identifier": user.Email,
		"otpCode":    first.OTPCode,
	})
	if first.OTPCode == second.OTPCode {
		t.Skip("consecutive codes collided")
	}
	if status != http.StatusBadRequest {
		t.Fatalf("stale code status = %d, want 400", status)
	}
	_ = decodeError(t, body)
}

func TestOTPValidateUnknownUser(t *testing.T) {
	status, body := doJSON(t, http.MethodPost, "/otp/validate", map[string]string{
		"identifier": uniqueEmail("never-registered"),
		"otpCode":    "123456",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("unknown user status = %d, want 400", status)
	}
	if eb := decodeError(t, body); eb.Error == "" {
		t.Error("unknown user error body must carry a message")
	}
}

func TestOTPMaxAttemptsLockout(t *testing.T) {
	user := registerUser(t, "otp-lockout")
	gen := generateOTP(t, user.Email)

	wrong := "000000"
	if gen.OTPCode == wrong {
		wrong = "999999"
	}

	var lastErr errorBody
	for i := 0; i < 3; i++ {
		status, body := doJSON(t, http.MethodPost, "/otp/validate", map[string]string{
			"identifier": user.Email,
			"otpCode":    wrong,
		})
		if status != http.StatusBadRequest {
			t.Fatalf("wrong guess %d status = %d, want 400", i+1, status)
		}
		lastErr = decodeError(t, body)
	}

	if !strings.Contains(lastErr.Error, "blocked") {
		t.Errorf("final guess error = %q, want lockout message", lastErr.Error)
	}

	st := otpStatus(t, user.Email)
	if !st.IsBlocked {
		t.Error("status after lockout should report blocked")
	}
	if st.BlockedUntil == nil {
		t.Error("status after lockout should carry blockedUntil")
	}

	// The lockout window also rejects new cycles.
	status, body := doJSON(t, http.MethodPost, "/otp/generate", map[string]string{
		"identifier":     user.Email,
		"deliveryMethod": "Email",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("generate during lockout status = %d, want 400", status)
	}
	if eb := decodeError(t, body); !strings.Contains(eb.Error, "blocked") {
		t.Errorf("generate during lockout error = %q, want lockout message", eb.Error)
	}
}

func TestOTPCancelIsIdempotent(t *testing.T) {
	user := registerUser(t, "otp-cancel")
	generateOTP(t, user.Email)

	cancel := func() bool {
		status, body := doJSON(t, http.MethodPost, "/otp/cancel", map[string]string{
			"identifier": user.Email,
		})
		if status != http.StatusOK {
			t.Fatalf("cancel status = %d, want 200", status)
		}
		var cancelled bool
		decodeInto(t, body, &cancelled)
		return cancelled
	}

	if !cancel() {
		t.Error("cancel with active request should return true")
	}
	if !cancel() {
		t.Error("cancel without active request should still return true")
	}

	status, body := doJSON(t, http.MethodPost, "/otp/cancel", map[string]string{
		"identifier": uniqueEmail("ghost"),
	})
	if status != http.StatusOK {
		t.Fatalf("cancel unknown user status = %d, want 200", status)
	}
	var cancelled bool
	decodeInto(t, body, &cancelled)
	if cancelled {
		t.Error("cancel for unknown user should return false")
	}
}

func TestOTPResendBackoffSchedule(t *testing.T) {
	user := registerUser(t, "otp-resend")
	generateOTP(t, user.Email)

	for i := 1; i <= 3; i++ {
		status, body := doJSON(t, http.MethodPost, "/otp/resend", map[string]string{
			"identifier":     user.Email,
			"deliveryMethod": "Email",
		})
		if status != http.StatusOK {
			eb := decodeError(t, body)
			t.Fatalf("resend %d status = %d error=%q, want 200", i, status, eb.Error)
		}

		var data struct {
			RetryCount  int32  `json:"retryCount"`
			NextRetryAt string `json:"nextRetryAt"`
		}
		decodeInto(t, body, &data)
		if data.RetryCount != int32(i) {
			t.Errorf("resend %d retry count = %d, want %d", i, data.RetryCount, i)
		}
		if data.NextRetryAt == "" {
			t.Errorf("resend %d missing nextRetryAt", i)
		}
	}

	status, body := doJSON(t, http.MethodPost, "/otp/resend", map[string]string{
		"identifier":     user.Email,
		"deliveryMethod": "Email",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("4th resend status = %d, want 400", status)
	}
	if eb := decodeError(t, body); !strings.Contains(eb.Error, "resend") {
		t.Errorf("4th resend error = %q, want max resend message", eb.Error)
	}
}

func TestOTPResendWithoutActiveRequest(t *testing.T) {
	user := registerUser(t, "otp-resend-none")

	status, body := doJSON(t, http.MethodPost, "/otp/resend", map[string]string{
		"identifier":     user.Email,
		"deliveryMethod": "Email",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("resend without request status = %d, want 400", status)
	}
	if eb := decodeError(t, body); eb.Error == "" {
		t.Error("resend without request must carry an error message")
	}
}

func TestOTPStatusUnknownIdentifier(t *testing.T) {
	st := otpStatus(t, uniqueEmail("status-ghost"))
	if st.HasActiveOTP || st.IsBlocked {
		t.Errorf("unknown identifier status = %+v, want empty projection", st)
	}
}
