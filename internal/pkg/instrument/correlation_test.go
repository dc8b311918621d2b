package instrument

import (
	"context"
	"testing"
)

func TestCorrelationID(t *testing.T) {
	ctx := context.Background()

	if got := GetCorrelationID(ctx); got != "" {
		t.Errorf("GetCorrelationID() on bare context = %q, want empty", got)
	}

	ctx = SetCorrelationID(ctx, "cid-123")
	if got := GetCorrelationID(ctx); got != "cid-123" {
		t.Errorf("GetCorrelationID() = %q, want cid-123", got)
	}

	ctx = SetCorrelationID(ctx, "cid-456")
	if got := GetCorrelationID(ctx); got != "cid-456" {
		t.Errorf("GetCorrelationID() after overwrite = %q, want cid-456", got)
	}
}
