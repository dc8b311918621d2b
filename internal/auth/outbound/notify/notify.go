// Package notify delivers OTP codes and account notices over email or SMS.
// Dispatch is best effort: Send reports plain success or failure and never
// panics, so callers decide what a failed delivery means for their flow.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/passwordless/internal/auth/entity"
	"github.com/shandysiswandi/passwordless/internal/pkg/instrument"
	"github.com/shandysiswandi/passwordless/internal/pkg/mail"
	"github.com/shandysiswandi/passwordless/internal/pkg/sms"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type Notifier struct {
	mail     mail.Mail
	sms      sms.Client
	from     string
	maxRetry uint64
	ins      instrument.Instrumentation
}

type Config struct {
	// EmailFrom is the sender address for outbound mail.
	EmailFrom string

	// MaxRetry caps transient-failure retries per dispatch. Zero disables
	// retrying.
	MaxRetry uint64
}

func New(mailClient mail.Mail, smsClient sms.Client, cfg Config, ins instrument.Instrumentation) *Notifier {
	return &Notifier{
		mail:     mailClient,
		sms:      smsClient,
		from:     cfg.EmailFrom,
		maxRetry: cfg.MaxRetry,
		ins:      ins,
	}
}

// Send renders the template for kind and delivers it to target over the
// given method. It returns false on any failure instead of an error.
func (n *Notifier) Send(ctx context.Context, method entity.DeliveryMethod, kind entity.MessageKind, target string, data map[string]string) (ok bool) {
	ctx, span := n.ins.Tracer("auth.outbound.notify").Start(ctx, "Send")
	defer span.End()

	span.SetAttributes(
		attribute.String("delivery.method", method.String()),
		attribute.String("message.kind", kind.String()),
	)

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "notifier panicked during dispatch",
				"method", method.String(), "kind", kind.String(), "panic", r)
			ok = false
		}
	}()

	subject, body := render(kind, data)

	var err error
	switch method {
	case entity.DeliveryMethodEmail:
		err = n.withRetry(ctx, func(ctx context.Context) error {
			return n.mail.Send(ctx, mail.Message{
				From:     n.from,
				To:       []string{target},
				Subject:  subject,
				TextBody: body,
			})
		})
	case entity.DeliveryMethodSMS:
		err = n.withRetry(ctx, func(ctx context.Context) error {
			return n.sms.Send(ctx, sms.Message{To: target, Body: body})
		})
	default:
		err = fmt.Errorf("unsupported delivery method %q", method.String())
	}

	if err != nil {
		slog.ErrorContext(ctx, "failed to dispatch notification",
			"method", method.String(), "kind", kind.String(), "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false
	}

	return true
}

func (n *Notifier) withRetry(ctx context.Context, fn func(context.Context) error) error {
	backoff := retry.WithMaxRetries(n.maxRetry, retry.NewFibonacci(200*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

func render(kind entity.MessageKind, data map[string]string) (subject, body string) {
	switch kind {
	case entity.MessageKindOTPCode:
		subject = "Your verification code"
		body = fmt.Sprintf("Your verification code is %s. It expires in %s minutes. "+
			"If you did not request this code, you can ignore this message.",
			data["code"], data["expiry_minutes"])
	case entity.MessageKindWelcome:
		subject = "Welcome aboard"
		body = fmt.Sprintf("Hi %s, your account is ready. "+
			"Sign in any time by requesting a one-time code.", data["full_name"])
	case entity.MessageKindSecurityAlert:
		subject = "Account temporarily locked"
		body = fmt.Sprintf("Hi %s, your account was temporarily locked after too many "+
			"failed verification attempts. You can try again after %s.",
			data["full_name"], data["blocked_until"])
	default:
		subject = "Notification"
		body = "You have a new notification."
	}

	return subject, body
}
