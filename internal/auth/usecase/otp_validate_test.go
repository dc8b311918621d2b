package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/shandysiswandi/passwordless/internal/auth/entity"
)

func TestValidateOTP(t *testing.T) {
	ctx := context.Background()

	generate := func(t *testing.T, env *testEnv, identifier string) {
		t.Helper()
		if _, err := env.uc.GenerateOTP(ctx, GenerateOTPInput{Identifier: identifier, DeliveryMethod: "Email"}); err != nil {
			t.Fatalf("GenerateOTP() error = %v", err)
		}
	}

	t.Run("mints a session on the correct code", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedUser(t, 1, "alice@example.com", "")
		generate(t, env, "alice@example.com")

		out, err := env.uc.ValidateOTP(ctx, ValidateOTPInput{Identifier: "alice@example.com", Code: "111111"})
		if err != nil {
			t.Fatalf("ValidateOTP() error = %v", err)
		}

		if out.AccessToken != "jwt-1-alice@example.com" {
			t.Errorf("AccessToken = %q, want jwt-1-alice@example.com", out.AccessToken)
		}
		if out.RefreshToken == "" {
			t.Error("RefreshToken is empty")
		}
		if out.UserID != 1 || out.Email != "alice@example.com" || out.FullName != "Alice Example" {
			t.Errorf("user projection = %+v", out)
		}
		// The surfaced expiry is the access token's lifetime, not the
		// refresh window.
		wantExpiry := env.clock.Now().Add(time.Hour)
		if !out.ExpiresAt.Equal(wantExpiry) {
			t.Errorf("ExpiresAt = %v, want %v", out.ExpiresAt, wantExpiry)
		}

		if got := env.db.pendingRequests(1, env.clock.Now()); got != 0 {
			t.Errorf("pending requests after verification = %d, want 0", got)
		}
		if len(env.db.sessions) != 1 {
			t.Fatalf("stored sessions = %d, want 1", len(env.db.sessions))
		}
		for _, s := range env.db.sessions {
			// Tokens are stored hashed, never as issued.
			if s.RefreshTokenHash == out.RefreshToken || s.AccessTokenHash == out.AccessToken {
				t.Error("session stores a plaintext token")
			}
			wantWindow := env.clock.Now().Add(7 * 24 * time.Hour)
			if !s.ExpiresAt.Equal(wantWindow) {
				t.Errorf("session row ExpiresAt = %v, want refresh window %v", s.ExpiresAt, wantWindow)
			}
		}
	})

	t.Run("counts down remaining attempts on a wrong code", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedUser(t, 1, "alice@example.com", "")
		generate(t, env, "alice@example.com")

		_, err := env.uc.ValidateOTP(ctx, ValidateOTPInput{Identifier: "alice@example.com", Code: "999999"})
		assertBusinessError(t, err, "Invalid OTP code. 2 attempts remaining")

		_, err = env.uc.ValidateOTP(ctx, ValidateOTPInput{Identifier: "alice@example.com", Code: "999999"})
		assertBusinessError(t, err, "Invalid OTP code. 1 attempts remaining")
	})

	t.Run("locks the account on the final failed attempt", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedUser(t, 1, "alice@example.com", "+15550001111")
		generate(t, env, "alice@example.com")

		for i := 0; i < 2; i++ {
			if _, err := env.uc.ValidateOTP(ctx, ValidateOTPInput{Identifier: "alice@example.com", Code: "999999"}); err == nil {
				t.Fatal("expected error for wrong code")
			}
		}

		blockedUntil := env.clock.Now().Add(15 * time.Minute)
		_, err := env.uc.ValidateOTP(ctx, ValidateOTPInput{Identifier: "alice@example.com", Code: "999999"})
		assertBusinessError(t, err, "Maximum attempts exceeded. Account blocked until "+blockedUntil.UTC().Format(time.RFC3339))

		user := env.db.users[1]
		if user.OTPBlockedUntil == nil || !user.OTPBlockedUntil.Equal(blockedUntil) {
			t.Errorf("OTPBlockedUntil = %v, want %v", user.OTPBlockedUntil, blockedUntil)
		}
		if got := env.db.pendingRequests(1, env.clock.Now()); got != 0 {
			t.Errorf("pending requests after lockout = %d, want 0", got)
		}

		if len(env.messaging.lockedOut) != 1 {
			t.Fatalf("locked-out events = %d, want 1", len(env.messaging.lockedOut))
		}
		evt := env.messaging.lockedOut[0]
		if evt.UserID != 1 || evt.Email != "alice@example.com" || evt.PhoneNumber != "+15550001111" {
			t.Errorf("locked-out event = %+v", evt)
		}
		if !evt.BlockedUntil.Equal(blockedUntil) {
			t.Errorf("event BlockedUntil = %v, want %v", evt.BlockedUntil, blockedUntil)
		}
	})

	t.Run("rejects a burned request before comparing the code", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedUser(t, 1, "alice@example.com", "")
		generate(t, env, "alice@example.com")

		req := activeRequest(t, env, 1)
		req.Attempts = req.MaxAttempts

		// Even the correct code must not pass once the ceiling is hit.
		_, err := env.uc.ValidateOTP(ctx, ValidateOTPInput{Identifier: "alice@example.com", Code: "111111"})
		assertBusinessError(t, err, "Maximum attempts exceeded")
	})

	t.Run("treats an expired request as absent", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedUser(t, 1, "alice@example.com", "")
		generate(t, env, "alice@example.com")

		env.clock.Advance(6 * time.Minute)

		_, err := env.uc.ValidateOTP(ctx, ValidateOTPInput{Identifier: "alice@example.com", Code: "111111"})
		assertBusinessError(t, err, "No active OTP found")
	})

	t.Run("rejects users without an active request", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedUser(t, 1, "alice@example.com", "")

		_, err := env.uc.ValidateOTP(ctx, ValidateOTPInput{Identifier: "alice@example.com", Code: "111111"})
		assertBusinessError(t, err, "No active OTP found")
	})

	t.Run("rejects unknown users", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.uc.ValidateOTP(ctx, ValidateOTPInput{Identifier: "ghost@example.com", Code: "111111"})
		assertBusinessError(t, err, "User not found")
	})

	t.Run("clears the block on successful verification", func(t *testing.T) {
		env := newTestEnv(t)
		user := env.seedUser(t, 1, "alice@example.com", "")
		past := env.clock.Now().Add(-time.Minute)
		user.OTPBlockedUntil = &past

		generate(t, env, "alice@example.com")
		if _, err := env.uc.ValidateOTP(ctx, ValidateOTPInput{Identifier: "alice@example.com", Code: "111111"}); err != nil {
			t.Fatalf("ValidateOTP() error = %v", err)
		}

		if user.OTPBlockedUntil != nil {
			t.Errorf("OTPBlockedUntil = %v, want nil", user.OTPBlockedUntil)
		}
		if user.LastLoginAt == nil {
			t.Error("LastLoginAt not stamped")
		}
	})
}

// activeRequest returns the stored pending request for direct mutation.
func activeRequest(t *testing.T, env *testEnv, userID int64) *entity.OTPRequest {
	t.Helper()

	for _, r := range env.db.otps {
		if r.UserID == userID && r.Status == entity.OTPStatusPending {
			return r
		}
	}
	t.Fatal("no pending request in storage")
	return nil
}
