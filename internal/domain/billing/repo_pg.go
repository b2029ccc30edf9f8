package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/skinclinic/skinclinic/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const paymentCols = `id, consultation_id, amount::text, method, transaction_id, status, payment_date`

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	var amount string
	err := row.Scan(&p.ID, &p.ConsultationID, &amount, &p.Method, &p.TransactionID, &p.Status, &p.PaymentDate)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	return &p, nil
}

func (r *repoPG) Claim(ctx context.Context, p *Payment, staleAfter time.Duration) error {
	p.Status = StatusPending
	p.TransactionID = ""
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO payments (id, consultation_id, amount, method, transaction_id, status)
		VALUES ($1, $2, $3::numeric, $4, '', 'pending')
		ON CONFLICT (consultation_id) DO UPDATE
			SET amount = EXCLUDED.amount, method = EXCLUDED.method,
				transaction_id = '', status = 'pending', payment_date = NOW()
			WHERE payments.status = 'failed'
				OR (payments.status = 'pending' AND payments.payment_date < NOW() - make_interval(secs => $5))
		RETURNING id, payment_date`,
		uuid.New(), p.ConsultationID, p.Amount.StringFixed(2), p.Method, staleAfter.Seconds(),
	).Scan(&p.ID, &p.PaymentDate)
	switch {
	case err == nil:
		return nil
	case db.IsUniqueViolation(err):
		return ErrPaymentInProgress
	case !db.IsNoRows(err):
		return err
	}

	// The conflicting row was left untouched.
	existing, err := r.GetByConsultation(ctx, p.ConsultationID)
	if err != nil {
		return err
	}
	if existing.Status == StatusPending {
		return ErrPaymentInProgress
	}
	return ErrAlreadyPaid
}

func (r *repoPG) SetTransaction(ctx context.Context, id uuid.UUID, transactionID string) error {
	return r.update(ctx, `UPDATE payments SET transaction_id = $2 WHERE id = $1`, id, transactionID)
}

func (r *repoPG) SetStatus(ctx context.Context, id uuid.UUID, status Status) error {
	return r.update(ctx, `UPDATE payments SET status = $2 WHERE id = $1`, id, status)
}

func (r *repoPG) update(ctx context.Context, query string, args ...interface{}) error {
	tag, err := r.conn(ctx).Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) GetByConsultation(ctx context.Context, consultationID uuid.UUID) (*Payment, error) {
	return scanPayment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+paymentCols+` FROM payments WHERE consultation_id = $1`, consultationID))
}
