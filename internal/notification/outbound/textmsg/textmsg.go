package textmsg

import (
	"context"

	"github.com/shandysiswandi/passwordless/internal/pkg/instrument"
	"github.com/shandysiswandi/passwordless/internal/pkg/sms"
	"go.opentelemetry.io/otel/codes"
)

type SMS struct {
	client sms.Client
	ins    instrument.Instrumentation
}

func New(client sms.Client, ins instrument.Instrumentation) *SMS {
	return &SMS{client: client, ins: ins}
}

func (s *SMS) Send(ctx context.Context, msg sms.Message) error {
	ctx, span := s.ins.Tracer("notification.outbound.textmsg").Start(ctx, "Send")
	defer span.End()

	if err := s.client.Send(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
