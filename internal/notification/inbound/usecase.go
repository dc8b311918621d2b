package inbound

import (
	"context"

	"github.com/shandysiswandi/passwordless/internal/notification/usecase"
)

type uc interface {
	ConsumeUserRegistered(ctx context.Context, in usecase.ConsumeUserRegisteredInput) error
	ConsumeUserLockedOut(ctx context.Context, in usecase.ConsumeUserLockedOutInput) error
}
