package usecase

import (
	"context"
	"testing"
	"time"
)

func TestResendOTP(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) *testEnv {
		t.Helper()
		env := newTestEnv(t)
		env.seedUser(t, 1, "alice@example.com", "")
		if _, err := env.uc.GenerateOTP(ctx, GenerateOTPInput{Identifier: "alice@example.com", DeliveryMethod: "Email"}); err != nil {
			t.Fatalf("GenerateOTP() error = %v", err)
		}
		return env
	}

	t.Run("walks the escalating backoff schedule", func(t *testing.T) {
		env := setup(t)

		backoffs := []time.Duration{30 * time.Second, 60 * time.Second, 90 * time.Second}
		for i, backoff := range backoffs {
			out, err := env.uc.ResendOTP(ctx, ResendOTPInput{Identifier: "alice@example.com", DeliveryMethod: "Email"})
			if err != nil {
				t.Fatalf("ResendOTP() #%d error = %v", i+1, err)
			}
			if out.RetryCount != int32(i+1) {
				t.Errorf("resend #%d RetryCount = %d, want %d", i+1, out.RetryCount, i+1)
			}
			want := env.clock.Now().Add(backoff)
			if !out.NextRetryAt.Equal(want) {
				t.Errorf("resend #%d NextRetryAt = %v, want %v", i+1, out.NextRetryAt, want)
			}
		}

		_, err := env.uc.ResendOTP(ctx, ResendOTPInput{Identifier: "alice@example.com", DeliveryMethod: "Email"})
		assertBusinessError(t, err, "Maximum resend attempts reached")
	})

	t.Run("issues a fresh code and resets failed attempts", func(t *testing.T) {
		env := setup(t)

		if _, err := env.uc.ValidateOTP(ctx, ValidateOTPInput{Identifier: "alice@example.com", Code: "999999"}); err == nil {
			t.Fatal("expected error for wrong code")
		}
		if got := activeRequest(t, env, 1).Attempts; got != 1 {
			t.Fatalf("attempts before resend = %d, want 1", got)
		}

		out, err := env.uc.ResendOTP(ctx, ResendOTPInput{Identifier: "alice@example.com", DeliveryMethod: "Email"})
		if err != nil {
			t.Fatalf("ResendOTP() error = %v", err)
		}

		req := activeRequest(t, env, 1)
		if req.Attempts != 0 {
			t.Errorf("attempts after resend = %d, want 0", req.Attempts)
		}
		if !req.ExpiresAt.Equal(out.ExpiresAt) {
			t.Errorf("stored ExpiresAt = %v, want %v", req.ExpiresAt, out.ExpiresAt)
		}

		// The generator moved on, so the second code differs from the first.
		sent := env.notifier.sent
		if len(sent) != 2 {
			t.Fatalf("deliveries = %d, want 2", len(sent))
		}
		if sent[0].Data["code"] == sent[1].Data["code"] {
			t.Error("resend delivered the original code")
		}
		if _, err := env.uc.ValidateOTP(ctx, ValidateOTPInput{Identifier: "alice@example.com", Code: sent[1].Data["code"]}); err != nil {
			t.Errorf("ValidateOTP() with resent code error = %v", err)
		}
	})

	t.Run("extends the expiry window", func(t *testing.T) {
		env := setup(t)

		env.clock.Advance(4 * time.Minute)

		out, err := env.uc.ResendOTP(ctx, ResendOTPInput{Identifier: "alice@example.com", DeliveryMethod: "Email"})
		if err != nil {
			t.Fatalf("ResendOTP() error = %v", err)
		}
		want := env.clock.Now().Add(5 * time.Minute)
		if !out.ExpiresAt.Equal(want) {
			t.Errorf("ExpiresAt = %v, want %v", out.ExpiresAt, want)
		}
	})

	t.Run("never starts a cycle on its own", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedUser(t, 1, "alice@example.com", "")

		_, err := env.uc.ResendOTP(ctx, ResendOTPInput{Identifier: "alice@example.com", DeliveryMethod: "Email"})
		assertBusinessError(t, err, "No active OTP found")
	})

	t.Run("rejects blocked users", func(t *testing.T) {
		env := setup(t)
		until := env.clock.Now().Add(10 * time.Minute)
		env.db.users[1].OTPBlockedUntil = &until

		_, err := env.uc.ResendOTP(ctx, ResendOTPInput{Identifier: "alice@example.com", DeliveryMethod: "Email"})
		assertBusinessError(t, err, "blocked until")
	})

	t.Run("reports delivery failure without consuming the cycle", func(t *testing.T) {
		env := setup(t)
		env.notifier.ok = false

		_, err := env.uc.ResendOTP(ctx, ResendOTPInput{Identifier: "alice@example.com", DeliveryMethod: "Email"})
		assertBusinessError(t, err, "Failed to deliver OTP")

		if got := env.db.pendingRequests(1, env.clock.Now()); got != 1 {
			t.Errorf("pending requests after failed delivery = %d, want 1", got)
		}
	})
}
