package tests

import (
	"net/http"
	"testing"
)

func loginUser(t *testing.T, prefix string) validateData {
	t.Helper()

	user := registerUser(t, prefix)
	gen := generateOTP(t, user.Email)

	status, body := doJSON(t, http.MethodPost, "/otp/validate", map[string]string{
		"identifier": user.Email,
		"otpCode":    gen.OTPCode,
	})
	if status != http.StatusOK {
		eb := decodeError(t, body)
		t.Fatalf("login failed: status=%d error=%q", status, eb.Error)
	}

	var val validateData
	decodeInto(t, body, &val)

	return val
}

func TestSessionRefreshRotatesTokens(t *testing.T) {
	session := loginUser(t, "session-refresh")

	status, body := doJSON(t, http.MethodPost, "/auth/refresh", map[string]string{
		"refreshToken": session.RefreshToken,
	})
	if status != http.StatusOK {
		eb := decodeError(t, body)
		t.Fatalf("refresh status = %d error=%q, want 200", status, eb.Error)
	}

	var refreshed struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	decodeInto(t, body, &refreshed)
	if refreshed.RefreshToken == "" || refreshed.RefreshToken == session.RefreshToken {
		t.Error("refresh must rotate the refresh token")
	}
	if refreshed.AccessToken == "" {
		t.Error("refresh must return a new access token")
	}

	// The old token is single use.
	status, _ = doJSON(t, http.MethodPost, "/auth/refresh", map[string]string{
		"refreshToken": session.RefreshToken,
	})
	if status != http.StatusUnauthorized {
		t.Errorf("reused refresh token status = %d, want 401", status)
	}
}

func TestSessionRevoke(t *testing.T) {
	session := loginUser(t, "session-revoke")

	status, body := doJSON(t, http.MethodPost, "/auth/revoke", map[string]string{
		"refreshToken": session.RefreshToken,
	})
	if status != http.StatusOK {
		t.Fatalf("revoke status = %d, want 200", status)
	}
	var revoked bool
	decodeInto(t, body, &revoked)
	if !revoked {
		t.Error("revoking a live session should return true")
	}

	// Revoking twice reports false.
	status, body = doJSON(t, http.MethodPost, "/auth/revoke", map[string]string{
		"refreshToken": session.RefreshToken,
	})
	if status != http.StatusOK {
		t.Fatalf("second revoke status = %d, want 200", status)
	}
	decodeInto(t, body, &revoked)
	if revoked {
		t.Error("revoking an already revoked session should return false")
	}

	// A revoked session can no longer refresh.
	status, _ = doJSON(t, http.MethodPost, "/auth/refresh", map[string]string{
		"refreshToken": session.RefreshToken,
	})
	if status != http.StatusUnauthorized {
		t.Errorf("refresh after revoke status = %d, want 401", status)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	user := registerUser(t, "register-dup")

	status, body := doJSON(t, http.MethodPost, "/users/register", map[string]string{
		"email":     user.Email,
		"firstName": "Test",
		"lastName":  "User",
	})
	if status != http.StatusConflict {
		t.Fatalf("duplicate register status = %d, want 409", status)
	}
	if eb := decodeError(t, body); eb.Error == "" {
		t.Error("duplicate register must carry an error message")
	}
}
