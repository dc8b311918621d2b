package usecase

import (
	"context"
	"errors"
	"testing"
)

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("creates an active account and announces it", func(t *testing.T) {
		env := newTestEnv(t)

		out, err := env.uc.Register(ctx, RegisterInput{
			Email:       "  Alice@Example.COM ",
			PhoneNumber: "+15550001111",
			FullName:    " Alice Example ",
		})
		if err != nil {
			t.Fatalf("Register() error = %v", err)
		}

		if out.Email != "alice@example.com" {
			t.Errorf("Email = %q, want normalized alice@example.com", out.Email)
		}
		if out.FullName != "Alice Example" {
			t.Errorf("FullName = %q, want trimmed Alice Example", out.FullName)
		}
		if out.UserID == 0 {
			t.Error("UserID is zero")
		}

		stored := env.db.users[out.UserID]
		if stored == nil {
			t.Fatal("user not persisted")
		}
		if !stored.IsActive {
			t.Error("new account is not active")
		}

		if len(env.messaging.registered) != 1 {
			t.Fatalf("registered events = %d, want 1", len(env.messaging.registered))
		}
		evt := env.messaging.registered[0]
		if evt.UserID != out.UserID || evt.Email != "alice@example.com" || evt.FullName != "Alice Example" {
			t.Errorf("registered event = %+v", evt)
		}

		// The new account can immediately request a code.
		if _, err := env.uc.GenerateOTP(ctx, GenerateOTPInput{Identifier: "alice@example.com", DeliveryMethod: "SMS"}); err != nil {
			t.Errorf("GenerateOTP() after register error = %v", err)
		}
	})

	t.Run("rejects duplicate identifiers", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedUser(t, 1, "alice@example.com", "+15550001111")

		_, err := env.uc.Register(ctx, RegisterInput{Email: "ALICE@example.com", FullName: "Alice Again"})
		assertBusinessError(t, err, "Email or phone number already registered")

		_, err = env.uc.Register(ctx, RegisterInput{Email: "other@example.com", PhoneNumber: "+15550001111", FullName: "Alice Again"})
		assertBusinessError(t, err, "Email or phone number already registered")
	})

	t.Run("does not fail when the announcement cannot be published", func(t *testing.T) {
		env := newTestEnv(t)
		env.messaging.err = errors.New("broker down")

		if _, err := env.uc.Register(ctx, RegisterInput{Email: "alice@example.com", FullName: "Alice Example"}); err != nil {
			t.Fatalf("Register() error = %v, want nil despite publish failure", err)
		}
	})

	t.Run("validates the input shape", func(t *testing.T) {
		env := newTestEnv(t)

		cases := []RegisterInput{
			{Email: "not-an-email", FullName: "Alice Example"},
			{Email: "alice@example.com", FullName: "Al"},
			{Email: "alice@example.com", PhoneNumber: "555", FullName: "Alice Example"},
		}
		for _, in := range cases {
			if _, err := env.uc.Register(ctx, in); err == nil {
				t.Errorf("Register(%+v) error = nil, want validation error", in)
			}
		}
	})
}
