package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// Claim stores p as the pending payment of its consultation, or takes
	// over the existing row when that one failed or is pending for longer
	// than staleAfter. A completed or refunded payment yields ErrAlreadyPaid,
	// a live pending one ErrPaymentInProgress.
	Claim(ctx context.Context, p *Payment, staleAfter time.Duration) error
	SetTransaction(ctx context.Context, id uuid.UUID, transactionID string) error
	SetStatus(ctx context.Context, id uuid.UUID, status Status) error
	GetByConsultation(ctx context.Context, consultationID uuid.UUID) (*Payment, error)
}
