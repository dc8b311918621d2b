package instrument

import "context"

type correlationIDKey struct{}

// SetCorrelationID stores the correlation ID on the context so every log
// record and outgoing message emitted downstream carries it.
func SetCorrelationID(ctx context.Context, cID string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, cID)
}

// GetCorrelationID returns the correlation ID on the context, or empty when
// none was set.
func GetCorrelationID(ctx context.Context) string {
	cID, _ := ctx.Value(correlationIDKey{}).(string)
	return cID
}
