package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rookgm/orderflow/internal/models"
	"github.com/rookgm/orderflow/internal/repository/postgres"
)

const (
	upsertPaymentStatusQuery = `
						INSERT INTO payments (id, order_id, amount, currency, payment_method, external_payment_id, status,
						                      items, customer_info, created_at, updated_at)
						VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
						ON CONFLICT (order_id) DO UPDATE
						SET status = EXCLUDED.status,
						    external_payment_id = EXCLUDED.external_payment_id,
						    payment_method = COALESCE(NULLIF(EXCLUDED.payment_method, ''), payments.payment_method),
						    updated_at = EXCLUDED.updated_at
						WHERE (payments.status IS DISTINCT FROM EXCLUDED.status
						       OR payments.external_payment_id IS DISTINCT FROM EXCLUDED.external_payment_id)
						  AND NOT (payments.status = ANY($11) AND EXCLUDED.status = ANY($12))
`
	selectPaymentByOrderIDQuery = `
						SELECT id, order_id, amount, currency, payment_method, external_payment_id, external_preference_id,
						       status, items, customer_info, created_at, updated_at
						FROM payments
						WHERE order_id = $1
`
)

var (
	settledStatuses = []string{
		string(models.ProviderStatusApproved), string(models.ProviderStatusAuthorized),
		string(models.ProviderStatusRejected), string(models.ProviderStatusCancelled),
		string(models.ProviderStatusRefunded), string(models.ProviderStatusChargedBack),
	}
	inFlightStatuses = []string{
		string(models.ProviderStatusPending), string(models.ProviderStatusInProcess),
		string(models.ProviderStatusInMediation),
	}
)

// PaymentRepository implements PaymentRepository interface
type PaymentRepository struct {
	db *postgres.DB
}

// NewPaymentRepository creates new PaymentRepository instance
func NewPaymentRepository(db *postgres.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func scanPayment(row rowScanner, p *models.Payment) error {
	return row.Scan(&p.ID, &p.OrderID, &p.Amount, &p.Currency, &p.PaymentMethod, &p.ExternalPaymentID,
		&p.ExternalPreferenceID, &p.Status, &p.Items, &p.CustomerInfo, &p.CreatedAt, &p.UpdatedAt)
}

// UpsertStatus creates the order payment if absent, otherwise updates its status and external id.
// A settled status is never replaced by an in-flight one. It reports whether anything was written.
func (pr *PaymentRepository) UpsertStatus(ctx context.Context, payment *models.Payment) (bool, error) {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	if payment.Items == nil {
		payment.Items = []models.Item{}
	}

	cmd, err := pr.db.Exec(ctx, upsertPaymentStatusQuery, payment.ID, payment.OrderID, payment.Amount,
		payment.Currency, payment.PaymentMethod, payment.ExternalPaymentID, string(payment.Status), payment.Items,
		payment.CustomerInfo, payment.UpdatedAt, settledStatuses, inFlightStatuses)
	if err != nil {
		return false, err
	}

	return cmd.RowsAffected() > 0, nil
}

// GetByOrderID returns the payment of an order
func (pr *PaymentRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	p := models.Payment{}
	if err := scanPayment(pr.db.QueryRow(ctx, selectPaymentByOrderIDQuery, orderID), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}
