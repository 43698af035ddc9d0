package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rookgm/orderflow/internal/lifecycle"
	"github.com/rookgm/orderflow/internal/logger"
	"github.com/rookgm/orderflow/internal/metrics"
	"github.com/rookgm/orderflow/internal/models"
	"go.uber.org/zap"
)

//go:generate mockgen -source=order.go -destination=mocks/mock_order.go -package=mocks

// OrderRepository is interface for interacting with order-related data
type OrderRepository interface {
	// CreateOrder inserts order with its items, first tracking step and payment
	CreateOrder(ctx context.Context, order *models.Order, payment *models.Payment) error
	// Find returns order by storage id
	Find(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// FindByBusinessID returns order by human-facing id
	FindByBusinessID(ctx context.Context, businessID string) (*models.Order, error)
	// List returns active orders
	List(ctx context.Context, filter models.OrderFilter) ([]models.Order, error)
	// ConditionalUpdateStatus applies a guarded status change and appends its tracking step
	ConditionalUpdateStatus(ctx context.Context, upd models.StatusUpdate) (bool, error)
	// AddIssue adds a problem report
	AddIssue(ctx context.Context, orderID uuid.UUID, issue models.Issue) error
	// ResolveIssue marks an issue resolved
	ResolveIssue(ctx context.Context, orderID, issueID uuid.UUID, resolution string, at time.Time) error
	// SoftDelete marks order deleted
	SoftDelete(ctx context.Context, orderID uuid.UUID, at time.Time) error
}

// CreateOrderRequest is a checkout request
type CreateOrderRequest struct {
	Customer       models.Customer
	Items          []models.Item
	DiscountCode   string
	DiscountAmount float64
	Currency       string
	PaymentMethod  string
	PreferenceID   string
}

// Tracking is the public view of an order progress
type Tracking struct {
	BusinessID             string                   `json:"businessId"`
	Status                 models.OrderStatus       `json:"status"`
	PaymentStatus          models.PaymentStatus     `json:"paymentStatus"`
	Metadata               lifecycle.StatusMetadata `json:"metadata"`
	Terminal               bool                     `json:"terminal"`
	EstimatedDaysRemaining *int                     `json:"estimatedDaysRemaining"`
	Steps                  []models.TrackingStep    `json:"trackingSteps"`
}

// OrderService implements OrderService interface
type OrderService struct {
	repo    OrderRepository
	metrics *metrics.Recorder
	now     func() time.Time
}

// NewOrderService creates new OrderService instance
func NewOrderService(repo OrderRepository, rec *metrics.Recorder) *OrderService {
	return &OrderService{
		repo:    repo,
		metrics: rec,
		now:     time.Now,
	}
}

// Create stores a new order in pending_payment together with its pending payment
func (os *OrderService) Create(ctx context.Context, req CreateOrderRequest) (*models.Order, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	now := os.now().UTC()

	var subtotal, shipping float64
	items := make([]models.Item, len(req.Items))
	for i, item := range req.Items {
		if item.Type == "" {
			item.Type = models.ItemTypeProduct
		}
		items[i] = item
		line := item.UnitPrice * float64(item.Quantity)
		if item.Type == models.ItemTypeShipping {
			shipping += line
		}
		subtotal += line
	}

	total := math.Max(subtotal-req.DiscountAmount, 0)

	order := &models.Order{
		ID:             uuid.New(),
		BusinessID:     ulid.Make().String(),
		Customer:       req.Customer,
		Status:         models.OrderStatusPendingPayment,
		PaymentStatus:  models.PaymentStatusPending,
		Items:          items,
		Total:          round2(total),
		DiscountAmount: req.DiscountAmount,
		ShippingCost:   round2(shipping),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if code := strings.TrimSpace(req.DiscountCode); code != "" {
		order.DiscountCode = &code
	}
	order.TrackingSteps = []models.TrackingStep{
		lifecycle.NewStep(models.OrderStatusPendingPayment, lifecycle.TransitionMeta{UpdatedBy: models.ActorSystem, Now: now}),
	}

	payment := &models.Payment{
		ID:            uuid.New(),
		OrderID:       order.ID,
		Amount:        order.Total,
		Currency:      req.Currency,
		PaymentMethod: req.PaymentMethod,
		Status:        models.ProviderStatusPending,
		Items:         items,
		CustomerInfo:  req.Customer,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.PreferenceID != "" {
		pref := req.PreferenceID
		payment.ExternalPreferenceID = &pref
	}

	if err := os.repo.CreateOrder(ctx, order, payment); err != nil {
		return nil, err
	}

	logger.Log.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("business_id", order.BusinessID),
		zap.Float64("total", order.Total))

	return order, nil
}

func validateCreate(req CreateOrderRequest) error {
	if strings.TrimSpace(req.Customer.Name) == "" || strings.TrimSpace(req.Customer.Email) == "" {
		return fmt.Errorf("%w: customer name and email are required", models.ErrInvalidOrder)
	}
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: order has no items", models.ErrInvalidOrder)
	}
	for _, item := range req.Items {
		if item.ID == "" || item.Quantity <= 0 || item.UnitPrice < 0 {
			return fmt.Errorf("%w: bad item %q", models.ErrInvalidOrder, item.ID)
		}
		if item.Type != "" && item.Type != models.ItemTypeProduct && item.Type != models.ItemTypeShipping {
			return fmt.Errorf("%w: bad item type %q", models.ErrInvalidOrder, item.Type)
		}
	}
	if req.DiscountAmount < 0 {
		return fmt.Errorf("%w: negative discount", models.ErrInvalidOrder)
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Get returns an active order by storage id
func (os *OrderService) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := os.repo.Find(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrDataNotFound) {
			return nil, models.ErrOrderNotFound
		}
		return nil, err
	}
	if order.Deleted() {
		return nil, models.ErrOrderNotFound
	}
	return order, nil
}

// List returns active orders
func (os *OrderService) List(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	if filter.Status != "" && !lifecycle.Known(filter.Status) {
		return nil, models.ErrUnknownStatus
	}
	return os.repo.List(ctx, filter)
}

// Track returns public tracking information by business id
func (os *OrderService) Track(ctx context.Context, businessID string) (*Tracking, error) {
	order, err := os.repo.FindByBusinessID(ctx, businessID)
	if err != nil {
		if errors.Is(err, models.ErrDataNotFound) {
			return nil, models.ErrOrderNotFound
		}
		return nil, err
	}
	if order.Deleted() {
		return nil, models.ErrOrderNotFound
	}

	md, _ := lifecycle.Metadata(order.Status)

	return &Tracking{
		BusinessID:             order.BusinessID,
		Status:                 order.Status,
		PaymentStatus:          order.PaymentStatus,
		Metadata:               md,
		Terminal:               lifecycle.IsTerminal(order.Status),
		EstimatedDaysRemaining: lifecycle.EstimatedDaysRemaining(order.Status),
		Steps:                  order.TrackingSteps,
	}, nil
}

// Transition moves an order to status on behalf of an operator.
// It never touches inventory or discounts.
func (os *OrderService) Transition(ctx context.Context, id uuid.UUID, status models.OrderStatus, meta lifecycle.TransitionMeta) (*models.Order, error) {
	if meta.UpdatedBy == "" {
		meta.UpdatedBy = models.ActorAdmin
	}
	if !meta.UpdatedBy.Valid() || meta.UpdatedBy == models.ActorSystem {
		return nil, fmt.Errorf("%w: actor %q", models.ErrInvalidOrder, meta.UpdatedBy)
	}
	if meta.Now.IsZero() {
		meta.Now = os.now()
	}

	order, err := os.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := lifecycle.RecordTransition(*order, status, meta)
	if err != nil {
		return nil, err
	}

	applied, err := os.repo.ConditionalUpdateStatus(ctx, models.StatusUpdate{
		OrderID: order.ID,
		From:    []models.OrderStatus{order.Status},
		Status:  status,
		Step:    updated.TrackingSteps[len(updated.TrackingSteps)-1],
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, models.ErrConcurrentUpdate
	}

	os.metrics.Transition(string(status), string(meta.UpdatedBy))
	logger.Log.Info("order status changed",
		zap.String("order_id", order.ID.String()),
		zap.String("from", string(order.Status)),
		zap.String("to", string(status)),
		zap.String("updated_by", string(meta.UpdatedBy)))

	return &updated, nil
}

// ReportIssue attaches a problem report to an order
func (os *OrderService) ReportIssue(ctx context.Context, id uuid.UUID, kind, description string) (*models.Issue, error) {
	if strings.TrimSpace(kind) == "" || strings.TrimSpace(description) == "" {
		return nil, fmt.Errorf("%w: issue kind and description are required", models.ErrInvalidOrder)
	}
	if _, err := os.Get(ctx, id); err != nil {
		return nil, err
	}

	issue := models.Issue{
		ID:          uuid.New(),
		Kind:        kind,
		Description: description,
		ReportedAt:  os.now().UTC(),
	}
	if err := os.repo.AddIssue(ctx, id, issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// ResolveIssue closes an open issue
func (os *OrderService) ResolveIssue(ctx context.Context, id, issueID uuid.UUID, resolution string) error {
	return os.repo.ResolveIssue(ctx, id, issueID, resolution, os.now().UTC())
}

// SoftDelete hides an order, it is never removed physically
func (os *OrderService) SoftDelete(ctx context.Context, id uuid.UUID) error {
	if err := os.repo.SoftDelete(ctx, id, os.now().UTC()); err != nil {
		if errors.Is(err, models.ErrDataNotFound) {
			return models.ErrOrderNotFound
		}
		return err
	}
	logger.Log.Info("order soft-deleted", zap.String("order_id", id.String()))
	return nil
}
