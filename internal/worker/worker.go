package worker

import (
	"context"
	"time"

	"github.com/rookgm/orderflow/internal/lifecycle"
	"github.com/rookgm/orderflow/internal/logger"
	"github.com/rookgm/orderflow/internal/models"
	"github.com/rookgm/orderflow/internal/service"
	"go.uber.org/zap"
)

const (
	defaultBatchSize = 50
	// defaultLookback bounds how old a pending order may be to still be swept
	defaultLookback = 7 * 24 * time.Hour
)

//go:generate mockgen -source=worker.go -destination=mocks/mock_worker.go -package=mocks

type PendingPayments interface {
	PendingPayments(ctx context.Context, since time.Time, from []models.OrderStatus, limit int) ([]models.PendingPayment, error)
}

type Reconciler interface {
	Reconcile(ctx context.Context, paymentID, externalReference string) (*service.ReconcileResult, error)
}

// PaymentSweeper periodically reconciles payments of orders still awaiting payment,
// covering notifications the provider never delivered
type PaymentSweeper struct {
	pending  PendingPayments
	rec      Reconciler
	interval time.Duration
	batch    int
	lookback time.Duration
	now      func() time.Time
}

// NewPaymentSweeper create new payment sweeper
func NewPaymentSweeper(pending PendingPayments, rec Reconciler, interval time.Duration) *PaymentSweeper {
	return &PaymentSweeper{
		pending:  pending,
		rec:      rec,
		interval: interval,
		batch:    defaultBatchSize,
		lookback: defaultLookback,
		now:      time.Now,
	}
}

// Run sweeps every interval until ctx is done
func (ps *PaymentSweeper) Run(ctx context.Context) {
	if ps.interval <= 0 {
		logger.Log.Info("payment sweeper is disabled")
		return
	}

	payments := make(chan models.PendingPayment, ps.batch)

	go ps.reconcile(ctx, payments)

	ticker := time.NewTicker(ps.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			close(payments)
			logger.Log.Debug("payment sweeper is done")
			return
		case <-ticker.C:
			if err := ps.collect(ctx, payments); err != nil {
				logger.Log.Error("error get pending payments", zap.Error(err))
			}
		}
	}
}

// collect sends payments of orders that can still be confirmed to the channel
func (ps *PaymentSweeper) collect(ctx context.Context, payments chan<- models.PendingPayment) error {
	from := lifecycle.LegalSources(models.OrderStatusPaymentConfirmed)
	pending, err := ps.pending.PendingPayments(ctx, ps.now().Add(-ps.lookback), from, ps.batch)
	if err != nil {
		return err
	}

	for _, p := range pending {
		select {
		case payments <- p:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// reconcile reconciles payments read from the channel one at a time
func (ps *PaymentSweeper) reconcile(ctx context.Context, payments <-chan models.PendingPayment) {
	for p := range payments {
		if ctx.Err() != nil {
			return
		}

		// business id comes from our own store, so it is a trusted reference
		res, err := ps.rec.Reconcile(ctx, p.PaymentID, p.BusinessID)
		if err != nil {
			logger.Log.Warn("sweep payment",
				zap.String("payment_id", p.PaymentID),
				zap.String("order_id", p.BusinessID),
				zap.Bool("retryable", models.IsRetryable(err)),
				zap.Error(err))
			continue
		}

		logger.Log.Debug("payment swept",
			zap.String("payment_id", p.PaymentID),
			zap.String("order_id", res.OrderID.String()),
			zap.String("outcome", string(res.Outcome)))
	}
}

// SweepOnce reconciles one batch synchronously
func (ps *PaymentSweeper) SweepOnce(ctx context.Context) error {
	payments := make(chan models.PendingPayment, ps.batch)
	if err := ps.collect(ctx, payments); err != nil {
		close(payments)
		return err
	}
	close(payments)
	ps.reconcile(ctx, payments)
	return nil
}
