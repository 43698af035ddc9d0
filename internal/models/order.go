package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the fulfilment status of an order
type OrderStatus string

// order status
const (
	OrderStatusPendingPayment         OrderStatus = "pending_payment"
	OrderStatusPaymentConfirmed       OrderStatus = "payment_confirmed"
	OrderStatusPreparingOrder         OrderStatus = "preparing_order"
	OrderStatusStockVerification      OrderStatus = "stock_verification"
	OrderStatusAwaitingSupplier       OrderStatus = "awaiting_supplier"
	OrderStatusOrderingOverseas       OrderStatus = "ordering_overseas"
	OrderStatusOverseasProcessing     OrderStatus = "overseas_processing"
	OrderStatusInternationalShipping  OrderStatus = "international_shipping"
	OrderStatusInTransitInternational OrderStatus = "in_transit_international"
	OrderStatusCustomsClearance       OrderStatus = "customs_clearance"
	OrderStatusCustomsInspection      OrderStatus = "customs_inspection"
	OrderStatusCustomsApproved        OrderStatus = "customs_approved"
	OrderStatusPayingDuties           OrderStatus = "paying_duties"
	OrderStatusArrivedLocalWarehouse  OrderStatus = "arrived_local_warehouse"
	OrderStatusQualityInspection      OrderStatus = "quality_inspection"
	OrderStatusLocalProcessing        OrderStatus = "local_processing"
	OrderStatusReadyForDispatch       OrderStatus = "ready_for_dispatch"
	OrderStatusDispatched             OrderStatus = "dispatched"
	OrderStatusOutForDelivery         OrderStatus = "out_for_delivery"
	OrderStatusDeliveryAttempted      OrderStatus = "delivery_attempted"
	OrderStatusDelivered              OrderStatus = "delivered"
	OrderStatusOnHold                 OrderStatus = "on_hold"
	OrderStatusReturnedToSender       OrderStatus = "returned_to_sender"
	OrderStatusCancelled              OrderStatus = "cancelled"
	OrderStatusRefunded               OrderStatus = "refunded"
	OrderStatusLostInTransit          OrderStatus = "lost_in_transit"
	OrderStatusDamaged                OrderStatus = "damaged"
	OrderStatusAwaitingCustomerAction OrderStatus = "awaiting_customer_action"
)

// PaymentStatus is the coarse payment state kept on the order
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Actor identifies who recorded a tracking step
type Actor string

const (
	ActorSystem   Actor = "system"
	ActorAdmin    Actor = "admin"
	ActorSupplier Actor = "supplier"
	ActorCustoms  Actor = "customs"
	ActorCarrier  Actor = "carrier"
)

// Valid reports whether a is a known actor
func (a Actor) Valid() bool {
	switch a {
	case ActorSystem, ActorAdmin, ActorSupplier, ActorCustoms, ActorCarrier:
		return true
	}
	return false
}

// ItemType distinguishes physical goods from fee lines
type ItemType string

const (
	ItemTypeProduct  ItemType = "product"
	ItemTypeShipping ItemType = "shipping"
)

// Customer is a snapshot of the buyer taken at checkout
type Customer struct {
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Phone     string  `json:"phone"`
	Address   string  `json:"address"`
	AccountID *string `json:"accountId,omitempty"`
}

// Item is an order line
type Item struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Type      ItemType `json:"type"`
	UnitPrice float64  `json:"unitPrice"`
	Quantity  int      `json:"quantity"`
}

// Physical reports whether the line decrements inventory
func (i Item) Physical() bool {
	return i.Type != ItemTypeShipping
}

// TrackingStep is one entry of the append-only tracking history
type TrackingStep struct {
	ID             uuid.UUID   `json:"id"`
	Status         OrderStatus `json:"status"`
	DisplayTitle   string      `json:"displayTitle"`
	Description    string      `json:"description,omitempty"`
	Date           time.Time   `json:"date"`
	Completed      bool        `json:"completed"`
	Current        bool        `json:"current"`
	Location       string      `json:"location,omitempty"`
	UpdatedBy      Actor       `json:"updatedBy"`
	AdditionalInfo string      `json:"additionalInfo,omitempty"`
}

// Issue is a problem report attached to an order
type Issue struct {
	ID          uuid.UUID  `json:"id"`
	Kind        string     `json:"kind"`
	Description string     `json:"description"`
	ReportedAt  time.Time  `json:"reportedAt"`
	Resolved    bool       `json:"resolved"`
	ResolvedAt  *time.Time `json:"resolvedAt,omitempty"`
	Resolution  string     `json:"resolution,omitempty"`
}

// NotificationRecord logs a dispatched customer or admin notification
type NotificationRecord struct {
	ID        uuid.UUID        `json:"id"`
	Kind      NotificationKind `json:"kind"`
	Recipient string           `json:"recipient"`
	SentAt    time.Time        `json:"sentAt"`
	Success   bool             `json:"success"`
	Error     string           `json:"error,omitempty"`
}

// Order is order entity
type Order struct {
	ID             uuid.UUID            `json:"id"`
	BusinessID     string               `json:"businessId"`
	Customer       Customer             `json:"customer"`
	Status         OrderStatus          `json:"status"`
	PaymentStatus  PaymentStatus        `json:"paymentStatus"`
	Items          []Item               `json:"items"`
	Total          float64              `json:"total"`
	DiscountCode   *string              `json:"discountCode,omitempty"`
	DiscountAmount float64              `json:"discountAmount"`
	ShippingCost   float64              `json:"shippingCost"`
	TrackingSteps  []TrackingStep       `json:"trackingSteps"`
	Issues         []Issue              `json:"issues"`
	Notifications  []NotificationRecord `json:"notifications"`
	CreatedAt      time.Time            `json:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt"`
	DeletedAt      *time.Time           `json:"softDeletedAt,omitempty"`
}

// CurrentStep returns the step flagged as current, if any
func (o *Order) CurrentStep() (TrackingStep, bool) {
	for _, s := range o.TrackingSteps {
		if s.Current {
			return s, true
		}
	}
	return TrackingStep{}, false
}

// Deleted reports whether the order is soft-deleted
func (o *Order) Deleted() bool {
	return o.DeletedAt != nil
}

// StatusUpdate is a guarded status change. It applies only when the order is active,
// its status is one of From and, if PaymentStatusIs is set, its payment status matches.
type StatusUpdate struct {
	OrderID         uuid.UUID
	From            []OrderStatus
	PaymentStatusIs PaymentStatus
	Status          OrderStatus
	// PaymentStatus is written when not empty
	PaymentStatus PaymentStatus
	Step          TrackingStep
}

// OrderFilter selects orders for listing
type OrderFilter struct {
	Status        OrderStatus
	PaymentStatus PaymentStatus
	Limit         int
	Offset        int
}
