package usecase

import (
	"context"
	"testing"
	"time"
)

func TestCancelOTP(t *testing.T) {
	ctx := context.Background()

	t.Run("withdraws the active request", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedUser(t, 1, "alice@example.com", "")
		if _, err := env.uc.GenerateOTP(ctx, GenerateOTPInput{Identifier: "alice@example.com", DeliveryMethod: "Email"}); err != nil {
			t.Fatalf("GenerateOTP() error = %v", err)
		}

		ok, err := env.uc.CancelOTP(ctx, CancelOTPInput{Identifier: "alice@example.com"})
		if err != nil || !ok {
			t.Fatalf("CancelOTP() = (%v, %v), want (true, nil)", ok, err)
		}

		if got := env.db.pendingRequests(1, env.clock.Now()); got != 0 {
			t.Errorf("pending requests after cancel = %d, want 0", got)
		}
		_, err = env.uc.ValidateOTP(ctx, ValidateOTPInput{Identifier: "alice@example.com", Code: "111111"})
		assertBusinessError(t, err, "No active OTP found")
	})

	t.Run("is idempotent without an active request", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedUser(t, 1, "alice@example.com", "")

		for i := 0; i < 2; i++ {
			ok, err := env.uc.CancelOTP(ctx, CancelOTPInput{Identifier: "alice@example.com"})
			if err != nil || !ok {
				t.Fatalf("CancelOTP() #%d = (%v, %v), want (true, nil)", i+1, ok, err)
			}
		}
	})

	t.Run("reports false for unknown identifiers", func(t *testing.T) {
		env := newTestEnv(t)

		ok, err := env.uc.CancelOTP(ctx, CancelOTPInput{Identifier: "ghost@example.com"})
		if err != nil {
			t.Fatalf("CancelOTP() error = %v", err)
		}
		if ok {
			t.Error("CancelOTP() = true for unknown identifier, want false")
		}
	})
}

func TestOTPStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("projects the active request", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedUser(t, 1, "alice@example.com", "")
		if _, err := env.uc.GenerateOTP(ctx, GenerateOTPInput{Identifier: "alice@example.com", DeliveryMethod: "Email"}); err != nil {
			t.Fatalf("GenerateOTP() error = %v", err)
		}
		if _, err := env.uc.ResendOTP(ctx, ResendOTPInput{Identifier: "alice@example.com", DeliveryMethod: "Email"}); err != nil {
			t.Fatalf("ResendOTP() error = %v", err)
		}

		out, err := env.uc.OTPStatus(ctx, OTPStatusInput{Identifier: "alice@example.com"})
		if err != nil {
			t.Fatalf("OTPStatus() error = %v", err)
		}
		if !out.HasActiveOTP {
			t.Error("HasActiveOTP = false, want true")
		}
		if out.RetryCount != 1 {
			t.Errorf("RetryCount = %d, want 1", out.RetryCount)
		}
		wantNext := env.clock.Now().Add(30 * time.Second)
		if out.NextRetryAt == nil || !out.NextRetryAt.Equal(wantNext) {
			t.Errorf("NextRetryAt = %v, want %v", out.NextRetryAt, wantNext)
		}
		if out.ExpiresAt == nil || !out.ExpiresAt.Equal(env.clock.Now().Add(5*time.Minute)) {
			t.Errorf("ExpiresAt = %v", out.ExpiresAt)
		}
		if out.IsBlocked {
			t.Error("IsBlocked = true, want false")
		}
	})

	t.Run("reports no activity after verification", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedUser(t, 1, "alice@example.com", "")
		if _, err := env.uc.GenerateOTP(ctx, GenerateOTPInput{Identifier: "alice@example.com", DeliveryMethod: "Email"}); err != nil {
			t.Fatalf("GenerateOTP() error = %v", err)
		}
		if _, err := env.uc.ValidateOTP(ctx, ValidateOTPInput{Identifier: "alice@example.com", Code: "111111"}); err != nil {
			t.Fatalf("ValidateOTP() error = %v", err)
		}

		out, err := env.uc.OTPStatus(ctx, OTPStatusInput{Identifier: "alice@example.com"})
		if err != nil {
			t.Fatalf("OTPStatus() error = %v", err)
		}
		if out.HasActiveOTP {
			t.Error("HasActiveOTP = true after verification, want false")
		}
	})

	t.Run("surfaces the lockout window", func(t *testing.T) {
		env := newTestEnv(t)
		user := env.seedUser(t, 1, "alice@example.com", "")
		until := env.clock.Now().Add(10 * time.Minute)
		user.OTPBlockedUntil = &until

		out, err := env.uc.OTPStatus(ctx, OTPStatusInput{Identifier: "alice@example.com"})
		if err != nil {
			t.Fatalf("OTPStatus() error = %v", err)
		}
		if !out.IsBlocked {
			t.Error("IsBlocked = false, want true")
		}
		if out.BlockedUntil == nil || !out.BlockedUntil.Equal(until) {
			t.Errorf("BlockedUntil = %v, want %v", out.BlockedUntil, until)
		}
	})

	t.Run("does not reveal whether an account exists", func(t *testing.T) {
		env := newTestEnv(t)

		out, err := env.uc.OTPStatus(ctx, OTPStatusInput{Identifier: "ghost@example.com"})
		if err != nil {
			t.Fatalf("OTPStatus() error = %v", err)
		}
		if out.HasActiveOTP || out.IsBlocked || out.ExpiresAt != nil || out.BlockedUntil != nil {
			t.Errorf("unknown identifier output = %+v, want zero projection", out)
		}
	})
}
