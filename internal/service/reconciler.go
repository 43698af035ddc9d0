package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rookgm/orderflow/internal/lifecycle"
	"github.com/rookgm/orderflow/internal/logger"
	"github.com/rookgm/orderflow/internal/metrics"
	"github.com/rookgm/orderflow/internal/models"
	"go.uber.org/zap"
)

const defaultFetchTimeout = 5 * time.Second

// Outcome is the result class of a reconciliation
type Outcome string

const (
	// OutcomeConfirmed means this call won the payment confirmation and ran its side effects
	OutcomeConfirmed Outcome = "confirmed"
	// OutcomeDuplicate means the confirmation was already applied
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeNotApplicable means the payment is approved but the order can not move to payment_confirmed
	OutcomeNotApplicable Outcome = "not_applicable"
	// OutcomePaymentFailed means the order payment was marked failed
	OutcomePaymentFailed Outcome = "payment_failed"
	// OutcomeRecorded means only the payment record was updated
	OutcomeRecorded Outcome = "recorded"
)

//go:generate mockgen -source=reconciler.go -destination=mocks/mock_reconciler.go -package=mocks

// ReconcileOrderRepository is the order store used by the reconciler
type ReconcileOrderRepository interface {
	FindByBusinessID(ctx context.Context, businessID string) (*models.Order, error)
	ConditionalUpdateStatus(ctx context.Context, upd models.StatusUpdate) (bool, error)
	SetPaymentStatus(ctx context.Context, orderID uuid.UUID, status models.PaymentStatus) (bool, error)
	AppendNotification(ctx context.Context, orderID uuid.UUID, rec models.NotificationRecord) error
}

// PaymentRepository stores payment records
type PaymentRepository interface {
	// UpsertStatus reports whether the stored payment changed
	UpsertStatus(ctx context.Context, payment *models.Payment) (bool, error)
}

// PaymentProvider reads payment state from the payment provider
type PaymentProvider interface {
	FetchPayment(ctx context.Context, paymentID string) (*models.ProviderPayment, error)
}

// InventoryLedger decrements product stock atomically
type InventoryLedger interface {
	Decrement(ctx context.Context, productID string, qty int) error
}

// DiscountLedger counts discount code usage atomically
type DiscountLedger interface {
	IncrementUsage(ctx context.Context, code string) error
}

// Notifier dispatches notifications
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// ReconcilerDeps bundles reconciler collaborators
type ReconcilerDeps struct {
	Orders       ReconcileOrderRepository
	Payments     PaymentRepository
	Provider     PaymentProvider
	Inventory    InventoryLedger
	Discounts    DiscountLedger
	Notifier     Notifier
	Metrics      *metrics.Recorder
	FetchTimeout time.Duration
	AdminEmail   string
	Clock        func() time.Time
}

// ReconcileResult describes what a reconciliation did
type ReconcileResult struct {
	Outcome        Outcome
	OrderID        uuid.UUID
	BusinessID     string
	ProviderStatus models.ProviderStatus
	// Warnings are side-effect failures after a committed transition
	Warnings []error
}

// Reconciler turns provider payment notifications into at-most-once order changes
type Reconciler struct {
	orders       ReconcileOrderRepository
	payments     PaymentRepository
	provider     PaymentProvider
	inventory    InventoryLedger
	discounts    DiscountLedger
	notifier     Notifier
	metrics      *metrics.Recorder
	fetchTimeout time.Duration
	adminEmail   string
	now          func() time.Time
}

// NewReconciler creates new Reconciler instance
func NewReconciler(deps ReconcilerDeps) (*Reconciler, error) {
	switch {
	case deps.Orders == nil:
		return nil, errors.New("reconciler: order repository is required")
	case deps.Payments == nil:
		return nil, errors.New("reconciler: payment repository is required")
	case deps.Provider == nil:
		return nil, errors.New("reconciler: payment provider is required")
	case deps.Inventory == nil:
		return nil, errors.New("reconciler: inventory ledger is required")
	case deps.Discounts == nil:
		return nil, errors.New("reconciler: discount ledger is required")
	case deps.Notifier == nil:
		return nil, errors.New("reconciler: notifier is required")
	}

	timeout := deps.FetchTimeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Reconciler{
		orders:       deps.Orders,
		payments:     deps.Payments,
		provider:     deps.Provider,
		inventory:    deps.Inventory,
		discounts:    deps.Discounts,
		notifier:     deps.Notifier,
		metrics:      deps.Metrics,
		fetchTimeout: timeout,
		adminEmail:   deps.AdminEmail,
		now:          clock,
	}, nil
}

// Reconcile applies the provider state of paymentID to the referenced order.
// externalReference must come from a trusted source such as the order store; it is used
// when the provider payment carries none.
// Errors matching models.IsRetryable left no state behind and may be retried.
func (r *Reconciler) Reconcile(ctx context.Context, paymentID, externalReference string) (*ReconcileResult, error) {
	log := logger.Log.With(zap.String("payment_id", paymentID))

	// 1. provider-side status
	payment, err := r.fetch(ctx, paymentID)
	if err != nil {
		log.Warn("fetch provider payment", zap.Error(err), zap.Bool("retryable", models.IsRetryable(err)))
		r.metrics.Outcome("fetch_failed")
		return nil, err
	}

	// 2. order by business id
	ref := payment.ExternalReference
	if ref == "" {
		ref = externalReference
	}
	if ref == "" {
		log.Error("payment has no order reference")
		r.metrics.Outcome("order_not_found")
		return nil, fmt.Errorf("payment %s: %w", paymentID, models.ErrOrderNotFound)
	}

	order, err := r.orders.FindByBusinessID(ctx, ref)
	if err != nil || order.Deleted() {
		if err == nil || errors.Is(err, models.ErrDataNotFound) {
			log.Error("order referenced by payment not found", zap.String("business_id", ref))
			r.metrics.Outcome("order_not_found")
			return nil, fmt.Errorf("order %s: %w", ref, models.ErrOrderNotFound)
		}
		return nil, models.NewRetryableError(fmt.Errorf("find order %s: %w", ref, err))
	}

	log = log.With(zap.String("order_id", order.ID.String()),
		zap.String("business_id", order.BusinessID),
		zap.String("provider_status", string(payment.Status)))

	// 3. payment record, whatever happens next
	changed, err := r.upsertPayment(ctx, order, payment)
	if err != nil {
		log.Error("upsert payment", zap.Error(err))
		return nil, models.NewRetryableError(fmt.Errorf("upsert payment %s: %w", paymentID, err))
	}

	result := &ReconcileResult{
		OrderID:        order.ID,
		BusinessID:     order.BusinessID,
		ProviderStatus: payment.Status,
	}

	switch {
	case payment.Status.IsApproved():
		err = r.confirm(ctx, order, payment, changed, result)
	case payment.Status.IsFailed():
		err = r.fail(ctx, order, payment, result)
	default:
		result.Outcome = OutcomeRecorded
	}
	if err != nil {
		log.Error("reconcile order", zap.Error(err))
		return nil, err
	}

	r.metrics.Outcome(string(result.Outcome))
	log.Info("payment reconciled",
		zap.String("outcome", string(result.Outcome)),
		zap.Int("warnings", len(result.Warnings)))

	return result, nil
}

func (r *Reconciler) fetch(ctx context.Context, paymentID string) (*models.ProviderPayment, error) {
	fctx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()

	payment, err := r.provider.FetchPayment(fctx, paymentID)
	if err == nil {
		return payment, nil
	}
	if errors.Is(err, models.ErrPaymentNotFound) || errors.Is(err, models.ErrUnknownStatus) || models.IsRetryable(err) {
		return nil, err
	}
	return nil, models.NewRetryableError(err)
}

func (r *Reconciler) upsertPayment(ctx context.Context, order *models.Order, p *models.ProviderPayment) (bool, error) {
	amount := p.Amount
	if amount == 0 {
		amount = order.Total
	}
	externalID := p.ID

	return r.payments.UpsertStatus(ctx, &models.Payment{
		OrderID:           order.ID,
		Amount:            amount,
		Currency:          p.Currency,
		PaymentMethod:     p.PaymentMethod,
		ExternalPaymentID: &externalID,
		Status:            p.Status,
		Items:             order.Items,
		CustomerInfo:      order.Customer,
		UpdatedAt:         r.now().UTC(),
	})
}

// confirm runs the compound payment confirmation. The conditional write is the only
// idempotency guard: side effects run only for the call whose write affected the order.
// paymentChanged tells whether this call stored the approval on the payment record.
func (r *Reconciler) confirm(ctx context.Context, order *models.Order, p *models.ProviderPayment, paymentChanged bool, result *ReconcileResult) error {
	step := lifecycle.NewStep(models.OrderStatusPaymentConfirmed, lifecycle.TransitionMeta{
		UpdatedBy:      models.ActorSystem,
		Description:    "Payment approved by the payment provider",
		AdditionalInfo: "payment " + p.ID,
		Now:            r.now(),
	})

	applied, err := r.orders.ConditionalUpdateStatus(ctx, models.StatusUpdate{
		OrderID:         order.ID,
		From:            lifecycle.LegalSources(models.OrderStatusPaymentConfirmed),
		PaymentStatusIs: models.PaymentStatusPending,
		Status:          models.OrderStatusPaymentConfirmed,
		PaymentStatus:   models.PaymentStatusCompleted,
		Step:            step,
	})
	if err != nil {
		return models.NewRetryableError(fmt.Errorf("confirm order %s: %w", order.ID, err))
	}

	if !applied {
		result.Outcome = OutcomeDuplicate
		current, err := r.orders.FindByBusinessID(ctx, order.BusinessID)
		if err == nil && current.PaymentStatus == models.PaymentStatusPending {
			// approved payment for an order that left the payment stage
			result.Outcome = OutcomeNotApplicable
			if !paymentChanged {
				// already reported when the approval was first stored
				return nil
			}
			r.dispatch(ctx, order, models.Notification{
				Kind:      models.NotificationAdminPaymentIssue,
				Recipient: r.adminEmail,
				Data: map[string]string{
					"paymentId":    p.ID,
					"status":       string(p.Status),
					"orderStatus":  string(current.Status),
					"reason":       "approved payment for order outside the payment stage",
					"statusDetail": p.StatusDetail,
				},
			}, result)
		}
		return nil
	}

	result.Outcome = OutcomeConfirmed
	r.metrics.Transition(string(models.OrderStatusPaymentConfirmed), string(models.ActorSystem))

	for _, item := range order.Items {
		if !item.Physical() {
			continue
		}
		if err := r.inventory.Decrement(ctx, item.ID, item.Quantity); err != nil {
			r.warn(result, "inventory", fmt.Errorf("decrement %s by %d: %w", item.ID, item.Quantity, err))
		}
	}

	if order.DiscountCode != nil && *order.DiscountCode != "" {
		if err := r.discounts.IncrementUsage(ctx, *order.DiscountCode); err != nil {
			r.warn(result, "discount", fmt.Errorf("increment usage of %s: %w", *order.DiscountCode, err))
		}
	}

	data := map[string]string{
		"paymentId": p.ID,
		"total":     fmt.Sprintf("%.2f", order.Total),
	}
	r.dispatch(ctx, order, models.Notification{
		Kind:      models.NotificationCustomerOrderConfirmed,
		Recipient: order.Customer.Email,
		Data:      data,
	}, result)
	r.dispatch(ctx, order, models.Notification{
		Kind:      models.NotificationAdminNewOrder,
		Recipient: r.adminEmail,
		Data:      data,
	}, result)

	return nil
}

// fail marks the order payment failed without moving the order status backward
func (r *Reconciler) fail(ctx context.Context, order *models.Order, p *models.ProviderPayment, result *ReconcileResult) error {
	changed, err := r.orders.SetPaymentStatus(ctx, order.ID, models.PaymentStatusFailed)
	if err != nil {
		return models.NewRetryableError(fmt.Errorf("mark payment failed for order %s: %w", order.ID, err))
	}

	result.Outcome = OutcomePaymentFailed
	if !changed {
		return nil
	}

	r.dispatch(ctx, order, models.Notification{
		Kind:      models.NotificationAdminPaymentIssue,
		Recipient: r.adminEmail,
		Data: map[string]string{
			"paymentId":    p.ID,
			"status":       string(p.Status),
			"statusDetail": p.StatusDetail,
			"orderStatus":  string(order.Status),
		},
	}, result)

	return nil
}

// dispatch sends n best-effort and logs it on the order
func (r *Reconciler) dispatch(ctx context.Context, order *models.Order, n models.Notification, result *ReconcileResult) {
	n.OrderID = order.ID.String()
	n.BusinessID = order.BusinessID

	rec := models.NotificationRecord{
		ID:        uuid.New(),
		Kind:      n.Kind,
		Recipient: n.Recipient,
		SentAt:    r.now().UTC(),
		Success:   true,
	}
	if err := r.notifier.Notify(ctx, n); err != nil {
		rec.Success = false
		rec.Error = err.Error()
		r.warn(result, "notification", fmt.Errorf("notify %s: %w", n.Kind, err))
	}

	if err := r.orders.AppendNotification(ctx, order.ID, rec); err != nil {
		logger.Log.Warn("append notification log",
			zap.String("order_id", order.ID.String()),
			zap.String("kind", string(n.Kind)),
			zap.Error(err))
	}
}

func (r *Reconciler) warn(result *ReconcileResult, kind string, err error) {
	result.Warnings = append(result.Warnings, err)
	r.metrics.SideEffectFailure(kind)
	logger.Log.Warn("side effect failed",
		zap.String("order_id", result.OrderID.String()),
		zap.String("kind", kind),
		zap.Error(err))
}
