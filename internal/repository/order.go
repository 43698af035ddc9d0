package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rookgm/orderflow/internal/models"
	"github.com/rookgm/orderflow/internal/repository/postgres"
)

const pgErrUniqueViolationCode = "23505"

const (
	orderColumns = `id, business_id, customer_name, customer_email, customer_phone, customer_address, account_id,
						status, payment_status, total, discount_code, discount_amount, shipping_cost,
						created_at, updated_at, deleted_at`

	insertOrderQuery = `
						INSERT INTO orders (id, business_id, customer_name, customer_email, customer_phone, customer_address,
						                    account_id, status, payment_status, total, discount_code, discount_amount,
						                    shipping_cost, created_at, updated_at)
						VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
`
	insertOrderItemQuery = `
						INSERT INTO order_items (order_id, position, item_id, name, type, unit_price, quantity)
						VALUES ($1, $2, $3, $4, $5, $6, $7)
`
	insertPaymentQuery = `
						INSERT INTO payments (id, order_id, amount, currency, payment_method, external_payment_id,
						                      external_preference_id, status, items, customer_info, created_at, updated_at)
						VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
`
	selectOrderByIDQuery = `
						SELECT ` + orderColumns + ` FROM orders
						WHERE id = $1
`
	selectOrderByBusinessIDQuery = `
						SELECT ` + orderColumns + ` FROM orders
						WHERE business_id = $1
`
	selectOrdersQuery = `
						SELECT ` + orderColumns + ` FROM orders
						WHERE deleted_at IS NULL
						  AND ($1 = '' OR status = $1)
						  AND ($2 = '' OR payment_status = $2)
						ORDER BY created_at DESC
						LIMIT $3 OFFSET $4
`
	selectOrderItemsQuery = `
						SELECT item_id, name, type, unit_price, quantity FROM order_items
						WHERE order_id = $1
						ORDER BY position
`
	selectTrackingStepsQuery = `
						SELECT id, status, display_title, description, step_date, completed, is_current,
						       location, updated_by, additional_info
						FROM tracking_steps
						WHERE order_id = $1
						ORDER BY seq
`
	selectIssuesQuery = `
						SELECT id, kind, description, reported_at, resolved, resolved_at, resolution FROM order_issues
						WHERE order_id = $1
						ORDER BY reported_at
`
	selectNotificationsQuery = `
						SELECT id, kind, recipient, sent_at, success, error FROM order_notifications
						WHERE order_id = $1
						ORDER BY sent_at
`
	conditionalUpdateStatusQuery = `
						UPDATE orders
						SET status = $2,
						    payment_status = COALESCE(NULLIF($3, ''), payment_status),
						    updated_at = $6
						WHERE id = $1
						  AND status = ANY($4)
						  AND ($5 = '' OR payment_status = $5)
						  AND deleted_at IS NULL
`
	closeCurrentStepQuery = `
						UPDATE tracking_steps
						SET is_current = FALSE, completed = TRUE
						WHERE order_id = $1 AND is_current
`
	insertTrackingStepQuery = `
						INSERT INTO tracking_steps (id, order_id, status, display_title, description, step_date,
						                            completed, is_current, location, updated_by, additional_info)
						VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`
	updatePaymentStatusQuery = `
						UPDATE orders
						SET payment_status = $2, updated_at = now()
						WHERE id = $1 AND payment_status <> $2 AND deleted_at IS NULL
`
	insertNotificationQuery = `
						INSERT INTO order_notifications (id, order_id, kind, recipient, sent_at, success, error)
						VALUES ($1, $2, $3, $4, $5, $6, $7)
`
	insertIssueQuery = `
						INSERT INTO order_issues (id, order_id, kind, description, reported_at)
						VALUES ($1, $2, $3, $4, $5)
`
	resolveIssueQuery = `
						UPDATE order_issues
						SET resolved = TRUE, resolved_at = $3, resolution = $4
						WHERE id = $1 AND order_id = $2 AND NOT resolved
`
	softDeleteOrderQuery = `
						UPDATE orders
						SET deleted_at = $2, updated_at = $2
						WHERE id = $1 AND deleted_at IS NULL
`
	selectPendingPaymentsQuery = `
						SELECT p.external_payment_id, o.business_id FROM payments p
						JOIN orders o ON o.id = p.order_id
						WHERE o.payment_status = 'pending'
						  AND o.status = ANY($2)
						  AND o.deleted_at IS NULL
						  AND p.external_payment_id IS NOT NULL
						  AND o.created_at > $1
						ORDER BY o.created_at
						LIMIT $3
`
)

// OrderRepository implements OrderRepository interface
type OrderRepository struct {
	db *postgres.DB
}

// NewOrderRepository creates new OrderRepository instance
func NewOrderRepository(db *postgres.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner, order *models.Order) error {
	return row.Scan(&order.ID, &order.BusinessID, &order.Customer.Name, &order.Customer.Email, &order.Customer.Phone,
		&order.Customer.Address, &order.Customer.AccountID, &order.Status, &order.PaymentStatus, &order.Total,
		&order.DiscountCode, &order.DiscountAmount, &order.ShippingCost, &order.CreatedAt, &order.UpdatedAt,
		&order.DeletedAt)
}

// CreateOrder inserts order with its items, first tracking step and payment in one transaction
func (or *OrderRepository) CreateOrder(ctx context.Context, order *models.Order, payment *models.Payment) error {
	tx, err := or.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, insertOrderQuery, order.ID, order.BusinessID, order.Customer.Name, order.Customer.Email,
		order.Customer.Phone, order.Customer.Address, order.Customer.AccountID, string(order.Status),
		string(order.PaymentStatus), order.Total, order.DiscountCode, order.DiscountAmount, order.ShippingCost,
		order.CreatedAt)
	if err != nil {
		if or.db.ErrorCode(err) == pgErrUniqueViolationCode {
			return models.ErrConflictData
		}
		return err
	}

	for i, item := range order.Items {
		_, err = tx.Exec(ctx, insertOrderItemQuery, order.ID, i, item.ID, item.Name, string(item.Type), item.UnitPrice, item.Quantity)
		if err != nil {
			return fmt.Errorf("insert item %s: %w", item.ID, err)
		}
	}

	for _, step := range order.TrackingSteps {
		if err := appendTrackingStep(ctx, tx, order.ID, step); err != nil {
			return err
		}
	}

	if payment != nil {
		_, err = tx.Exec(ctx, insertPaymentQuery, payment.ID, order.ID, payment.Amount, payment.Currency,
			payment.PaymentMethod, payment.ExternalPaymentID, payment.ExternalPreferenceID, string(payment.Status),
			payment.Items, payment.CustomerInfo, payment.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// Find returns order with items, tracking steps, issues and notifications
func (or *OrderRepository) Find(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return or.findOne(ctx, selectOrderByIDQuery, id)
}

// FindByBusinessID returns order by its human-facing id
func (or *OrderRepository) FindByBusinessID(ctx context.Context, businessID string) (*models.Order, error) {
	return or.findOne(ctx, selectOrderByBusinessIDQuery, businessID)
}

func (or *OrderRepository) findOne(ctx context.Context, query string, arg any) (*models.Order, error) {
	order := models.Order{}
	if err := scanOrder(or.db.QueryRow(ctx, query, arg), &order); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrDataNotFound
		}
		return nil, err
	}

	if err := or.loadChildren(ctx, &order); err != nil {
		return nil, err
	}

	return &order, nil
}

func (or *OrderRepository) loadChildren(ctx context.Context, order *models.Order) error {
	var err error

	order.Items, err = collect(ctx, or.db, selectOrderItemsQuery, order.ID, func(row pgx.CollectableRow) (models.Item, error) {
		item := models.Item{}
		err := row.Scan(&item.ID, &item.Name, &item.Type, &item.UnitPrice, &item.Quantity)
		return item, err
	})
	if err != nil {
		return fmt.Errorf("load items: %w", err)
	}

	order.TrackingSteps, err = collect(ctx, or.db, selectTrackingStepsQuery, order.ID, func(row pgx.CollectableRow) (models.TrackingStep, error) {
		step := models.TrackingStep{}
		err := row.Scan(&step.ID, &step.Status, &step.DisplayTitle, &step.Description, &step.Date, &step.Completed,
			&step.Current, &step.Location, &step.UpdatedBy, &step.AdditionalInfo)
		return step, err
	})
	if err != nil {
		return fmt.Errorf("load tracking steps: %w", err)
	}

	order.Issues, err = collect(ctx, or.db, selectIssuesQuery, order.ID, func(row pgx.CollectableRow) (models.Issue, error) {
		issue := models.Issue{}
		err := row.Scan(&issue.ID, &issue.Kind, &issue.Description, &issue.ReportedAt, &issue.Resolved,
			&issue.ResolvedAt, &issue.Resolution)
		return issue, err
	})
	if err != nil {
		return fmt.Errorf("load issues: %w", err)
	}

	order.Notifications, err = collect(ctx, or.db, selectNotificationsQuery, order.ID, func(row pgx.CollectableRow) (models.NotificationRecord, error) {
		rec := models.NotificationRecord{}
		err := row.Scan(&rec.ID, &rec.Kind, &rec.Recipient, &rec.SentAt, &rec.Success, &rec.Error)
		return rec, err
	})
	if err != nil {
		return fmt.Errorf("load notifications: %w", err)
	}

	return nil
}

func collect[T any](ctx context.Context, db *postgres.DB, query string, orderID uuid.UUID, fn pgx.RowToFunc[T]) ([]T, error) {
	rows, err := db.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, fn)
}

// List returns active orders matching filter, without child collections
func (or *OrderRepository) List(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := or.db.Query(ctx, selectOrdersQuery, string(filter.Status), string(filter.PaymentStatus), limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []models.Order{}

	for rows.Next() {
		order := models.Order{}
		if err := scanOrder(rows, &order); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

// ConditionalUpdateStatus applies upd atomically. It reports false when the guard did not match,
// in which case nothing was written.
func (or *OrderRepository) ConditionalUpdateStatus(ctx context.Context, upd models.StatusUpdate) (bool, error) {
	from := make([]string, 0, len(upd.From))
	for _, s := range upd.From {
		from = append(from, string(s))
	}

	tx, err := or.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, conditionalUpdateStatusQuery, upd.OrderID, string(upd.Status), string(upd.PaymentStatus),
		from, string(upd.PaymentStatusIs), upd.Step.Date)
	if err != nil {
		return false, err
	}

	if cmd.RowsAffected() == 0 {
		return false, nil
	}

	if err := appendTrackingStep(ctx, tx, upd.OrderID, upd.Step); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}

	return true, nil
}

// appendTrackingStep closes the current step of the order and inserts step
func appendTrackingStep(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, step models.TrackingStep) error {
	if _, err := tx.Exec(ctx, closeCurrentStepQuery, orderID); err != nil {
		return fmt.Errorf("close current step: %w", err)
	}

	_, err := tx.Exec(ctx, insertTrackingStepQuery, step.ID, orderID, string(step.Status), step.DisplayTitle,
		step.Description, step.Date, step.Completed, step.Current, step.Location, string(step.UpdatedBy),
		step.AdditionalInfo)
	if err != nil {
		return fmt.Errorf("insert tracking step: %w", err)
	}

	return nil
}

// SetPaymentStatus sets order payment status. It reports false when the order already had it.
func (or *OrderRepository) SetPaymentStatus(ctx context.Context, orderID uuid.UUID, status models.PaymentStatus) (bool, error) {
	cmd, err := or.db.Exec(ctx, updatePaymentStatusQuery, orderID, string(status))
	if err != nil {
		return false, err
	}

	return cmd.RowsAffected() > 0, nil
}

// AppendNotification adds a record to the order notification log
func (or *OrderRepository) AppendNotification(ctx context.Context, orderID uuid.UUID, rec models.NotificationRecord) error {
	_, err := or.db.Exec(ctx, insertNotificationQuery, rec.ID, orderID, string(rec.Kind), rec.Recipient, rec.SentAt,
		rec.Success, rec.Error)
	return err
}

// AddIssue adds a problem report to the order
func (or *OrderRepository) AddIssue(ctx context.Context, orderID uuid.UUID, issue models.Issue) error {
	_, err := or.db.Exec(ctx, insertIssueQuery, issue.ID, orderID, issue.Kind, issue.Description, issue.ReportedAt)
	return err
}

// ResolveIssue marks an open issue resolved
func (or *OrderRepository) ResolveIssue(ctx context.Context, orderID, issueID uuid.UUID, resolution string, at time.Time) error {
	cmd, err := or.db.Exec(ctx, resolveIssueQuery, issueID, orderID, at, resolution)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return models.ErrDataNotFound
	}

	return nil
}

// SoftDelete marks the order deleted
func (or *OrderRepository) SoftDelete(ctx context.Context, orderID uuid.UUID, at time.Time) error {
	cmd, err := or.db.Exec(ctx, softDeleteOrderQuery, orderID, at)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return models.ErrDataNotFound
	}

	return nil
}

// PendingPayments returns payments of active orders still awaiting payment, created after since,
// whose status is one of from
func (or *OrderRepository) PendingPayments(ctx context.Context, since time.Time, from []models.OrderStatus, limit int) ([]models.PendingPayment, error) {
	statuses := make([]string, 0, len(from))
	for _, s := range from {
		statuses = append(statuses, string(s))
	}

	rows, err := or.db.Query(ctx, selectPendingPaymentsQuery, since, statuses, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[models.PendingPayment])
}
