package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/shandysiswandi/passwordless/internal/auth/entity"
)

func TestGenerateOTP(t *testing.T) {
	ctx := context.Background()

	t.Run("issues a pending request and delivers the code", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedUser(t, 1, "alice@example.com", "+15550001111")

		out, err := env.uc.GenerateOTP(ctx, GenerateOTPInput{
			Identifier:     "alice@example.com",
			DeliveryMethod: "Email",
		})
		if err != nil {
			t.Fatalf("GenerateOTP() error = %v", err)
		}

		wantExpiry := env.clock.Now().Add(5 * time.Minute)
		if !out.ExpiresAt.Equal(wantExpiry) {
			t.Errorf("ExpiresAt = %v, want %v", out.ExpiresAt, wantExpiry)
		}
		if out.RetryCount != 0 {
			t.Errorf("RetryCount = %d, want 0", out.RetryCount)
		}
		if out.DeliveryMethod != entity.DeliveryMethodEmail {
			t.Errorf("DeliveryMethod = %v, want Email", out.DeliveryMethod)
		}
		if out.Code != "" {
			t.Errorf("Code = %q, want empty without the exposure flag", out.Code)
		}

		if got := env.db.pendingRequests(1, env.clock.Now()); got != 1 {
			t.Errorf("pending requests = %d, want 1", got)
		}
		if len(env.notifier.sent) != 1 {
			t.Fatalf("deliveries = %d, want 1", len(env.notifier.sent))
		}
		sent := env.notifier.sent[0]
		if sent.Target != "alice@example.com" || sent.Kind != entity.MessageKindOTPCode {
			t.Errorf("delivery = %+v, want otp code to alice@example.com", sent)
		}
		if sent.Data["code"] != "111111" {
			t.Errorf("delivered code = %q, want 111111", sent.Data["code"])
		}
		if env.locker.calls != 1 {
			t.Errorf("lock acquisitions = %d, want 1", env.locker.calls)
		}
	})

	t.Run("exposes the code when the dev flag is on", func(t *testing.T) {
		env := newTestEnv(t)
		env.cfg.bools["app.expose_otp_code"] = true
		env.seedUser(t, 1, "alice@example.com", "")

		out, err := env.uc.GenerateOTP(ctx, GenerateOTPInput{
			Identifier:     "alice@example.com",
			DeliveryMethod: "Email",
		})
		if err != nil {
			t.Fatalf("GenerateOTP() error = %v", err)
		}
		if out.Code != "111111" {
			t.Errorf("Code = %q, want 111111", out.Code)
		}
	})

	t.Run("replaces the previous active request", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedUser(t, 1, "alice@example.com", "")

		if _, err := env.uc.GenerateOTP(ctx, GenerateOTPInput{Identifier: "alice@example.com", DeliveryMethod: "Email"}); err != nil {
			t.Fatalf("first GenerateOTP() error = %v", err)
		}
		if _, err := env.uc.GenerateOTP(ctx, GenerateOTPInput{Identifier: "alice@example.com", DeliveryMethod: "Email"}); err != nil {
			t.Fatalf("second GenerateOTP() error = %v", err)
		}

		if got := env.db.pendingRequests(1, env.clock.Now()); got != 1 {
			t.Errorf("pending requests after two generates = %d, want 1", got)
		}
	})

	t.Run("rejects unknown users", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.uc.GenerateOTP(ctx, GenerateOTPInput{Identifier: "ghost@example.com", DeliveryMethod: "Email"})
		assertBusinessError(t, err, "User not found")
	})

	t.Run("rejects users inside the lockout window", func(t *testing.T) {
		env := newTestEnv(t)
		user := env.seedUser(t, 1, "alice@example.com", "")
		until := env.clock.Now().Add(10 * time.Minute)
		user.OTPBlockedUntil = &until

		_, err := env.uc.GenerateOTP(ctx, GenerateOTPInput{Identifier: "alice@example.com", DeliveryMethod: "Email"})
		assertBusinessError(t, err, "blocked until")
	})

	t.Run("allows generate once the lockout window has passed", func(t *testing.T) {
		env := newTestEnv(t)
		user := env.seedUser(t, 1, "alice@example.com", "")
		until := env.clock.Now().Add(10 * time.Minute)
		user.OTPBlockedUntil = &until

		env.clock.Advance(11 * time.Minute)

		if _, err := env.uc.GenerateOTP(ctx, GenerateOTPInput{Identifier: "alice@example.com", DeliveryMethod: "Email"}); err != nil {
			t.Fatalf("GenerateOTP() after lockout expiry error = %v", err)
		}
	})

	t.Run("rejects delivery methods without an address on file", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedUser(t, 1, "alice@example.com", "") // no phone number

		_, err := env.uc.GenerateOTP(ctx, GenerateOTPInput{Identifier: "alice@example.com", DeliveryMethod: "SMS"})
		if err == nil {
			t.Fatal("expected error for SMS without a phone number")
		}
	})

	t.Run("keeps the request valid when delivery fails", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedUser(t, 1, "alice@example.com", "")
		env.notifier.ok = false

		_, err := env.uc.GenerateOTP(ctx, GenerateOTPInput{Identifier: "alice@example.com", DeliveryMethod: "Email"})
		assertBusinessError(t, err, "Failed to deliver OTP")

		// The stored request survived, so a later resend can still serve it.
		if got := env.db.pendingRequests(1, env.clock.Now()); got != 1 {
			t.Errorf("pending requests after failed delivery = %d, want 1", got)
		}
	})

	t.Run("rejects invalid delivery method values", func(t *testing.T) {
		env := newTestEnv(t)

		if _, err := env.uc.GenerateOTP(ctx, GenerateOTPInput{Identifier: "alice@example.com", DeliveryMethod: "pigeon"}); err == nil {
			t.Fatal("expected validation error for unsupported delivery method")
		}
	})
}
