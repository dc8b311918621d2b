package tests

import (
	"net/http"
	"testing"
)

type registerData struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	FullName    string `json:"fullName"`
}

type generateData struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	ExpiresAt      string `json:"expiresAt"`
	RetryCount     int32  `json:"retryCount"`
	DeliveryMethod string `json:"deliveryMethod"`
	OTPCode        string `json:"otpCode"`
}

type validateData struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    string `json:"expiresAt"`
	User         struct {
		ID       string `json:"id"`
		Email    string `json:"email"`
		FullName string `json:"fullName"`
	} `json:"user"`
}

type statusData struct {
	HasActiveOTP bool    `json:"hasActiveOTP"`
	ExpiresAt    *string `json:"expiresAt"`
	RetryCount   int32   `json:"retryCount"`
	NextRetryAt  *string `json:"nextRetryAt"`
	IsBlocked    bool    `json:"isBlocked"`
	BlockedUntil *string `json:"blockedUntil"`
}

// registerUser creates a fresh account for a test and returns it.
func registerUser(t *testing.T, prefix string) registerData {
	t.Helper()

	payload := map[string]string{
		"email":     uniqueEmail(prefix),
		"firstName": "Test",
		"lastName":  "User",
	}

	status, body := doJSON(t, http.MethodPost, "/users/register", payload)
	if status != http.StatusOK {
		eb := decodeError(t, body)
		t.Fatalf("register failed: status=%d error=%q", status, eb.Error)
	}

	var data registerData
	decodeInto(t, body, &data)

	return data
}

// generateOTP starts a verification cycle and returns the response. The dev
// environment exposes the plain code so the flow can be driven end to end.
func generateOTP(t *testing.T, identifier string) generateData {
	t.Helper()

	payload := map[string]string{
		"identifier":     identifier,
		"deliveryMethod": "Email",
	}

	status, body := doJSON(t, http.MethodPost, "/otp/generate", payload)
	if status != http.StatusOK {
		eb := decodeError(t, body)
		t.Fatalf("generate otp failed: status=%d error=%q", status, eb.Error)
	}

	var data generateData
	decodeInto(t, body, &data)
	if data.OTPCode == "" {
		t.Fatal("real otp tests require app.expose_otp_code to be enabled")
	}

	return data
}

func otpStatus(t *testing.T, identifier string) statusData {
	t.Helper()

	status, body := doJSON(t, http.MethodGet, "/otp/status/"+identifier, nil)
	if status != http.StatusOK {
		t.Fatalf("otp status failed: status=%d body=%q", status, string(body))
	}

	var data statusData
	decodeInto(t, body, &data)

	return data
}
