// Package lifecycle holds the order status table and the tracking history transition.
package lifecycle

import (
	"github.com/rookgm/orderflow/internal/models"
)

// StatusMetadata is display metadata of an order status
type StatusMetadata struct {
	Title                  string `json:"title"`
	Description            string `json:"description"`
	Color                  string `json:"color"`
	ProgressPercent        int    `json:"progressPercent"`
	RequiresCustomerAction bool   `json:"requiresCustomerAction"`
	TypicalDurationDays    int    `json:"typicalDurationDays"`
}

type statusEntry struct {
	meta StatusMetadata
	// first entry is the default path successor
	next []models.OrderStatus
}

// statusTable is the single source of truth for metadata and the transition graph.
var statusTable = map[models.OrderStatus]statusEntry{
	models.OrderStatusPendingPayment: {
		meta: StatusMetadata{"Pending payment", "Waiting for the payment to be confirmed", "#f59e0b", 5, true, 1},
		next: []models.OrderStatus{models.OrderStatusPaymentConfirmed, models.OrderStatusCancelled},
	},
	models.OrderStatusPaymentConfirmed: {
		meta: StatusMetadata{"Payment confirmed", "Payment received, the order will be prepared soon", "#10b981", 10, false, 1},
		next: []models.OrderStatus{models.OrderStatusPreparingOrder, models.OrderStatusOnHold, models.OrderStatusCancelled},
	},
	models.OrderStatusPreparingOrder: {
		meta: StatusMetadata{"Preparing order", "The order is being prepared", "#3b82f6", 15, false, 1},
		next: []models.OrderStatus{models.OrderStatusStockVerification, models.OrderStatusOnHold, models.OrderStatusCancelled},
	},
	models.OrderStatusStockVerification: {
		meta: StatusMetadata{"Stock verification", "Checking product availability with suppliers", "#3b82f6", 20, false, 1},
		next: []models.OrderStatus{models.OrderStatusAwaitingSupplier, models.OrderStatusOrderingOverseas, models.OrderStatusOnHold, models.OrderStatusCancelled},
	},
	models.OrderStatusAwaitingSupplier: {
		meta: StatusMetadata{"Awaiting supplier", "Waiting for the supplier to confirm the purchase", "#6366f1", 25, false, 3},
		next: []models.OrderStatus{models.OrderStatusOrderingOverseas, models.OrderStatusOnHold, models.OrderStatusCancelled},
	},
	models.OrderStatusOrderingOverseas: {
		meta: StatusMetadata{"Ordering overseas", "The purchase is being placed with the overseas seller", "#6366f1", 30, false, 2},
		next: []models.OrderStatus{models.OrderStatusOverseasProcessing, models.OrderStatusCancelled},
	},
	models.OrderStatusOverseasProcessing: {
		meta: StatusMetadata{"Overseas processing", "The seller is processing the purchase", "#6366f1", 35, false, 3},
		next: []models.OrderStatus{models.OrderStatusInternationalShipping, models.OrderStatusCancelled},
	},
	models.OrderStatusInternationalShipping: {
		meta: StatusMetadata{"International shipping", "The package was handed to the international carrier", "#8b5cf6", 45, false, 2},
		next: []models.OrderStatus{models.OrderStatusInTransitInternational, models.OrderStatusLostInTransit, models.OrderStatusDamaged, models.OrderStatusReturnedToSender},
	},
	models.OrderStatusInTransitInternational: {
		meta: StatusMetadata{"In international transit", "The package is travelling to the destination country", "#8b5cf6", 55, false, 7},
		next: []models.OrderStatus{models.OrderStatusCustomsClearance, models.OrderStatusLostInTransit, models.OrderStatusDamaged, models.OrderStatusReturnedToSender},
	},
	models.OrderStatusCustomsClearance: {
		meta: StatusMetadata{"Customs clearance", "The package is going through customs", "#f97316", 60, false, 3},
		next: []models.OrderStatus{models.OrderStatusCustomsApproved, models.OrderStatusCustomsInspection, models.OrderStatusPayingDuties, models.OrderStatusOnHold},
	},
	models.OrderStatusCustomsInspection: {
		meta: StatusMetadata{"Customs inspection", "Customs selected the package for inspection", "#f97316", 62, false, 5},
		next: []models.OrderStatus{models.OrderStatusCustomsApproved, models.OrderStatusPayingDuties, models.OrderStatusOnHold, models.OrderStatusReturnedToSender},
	},
	models.OrderStatusCustomsApproved: {
		meta: StatusMetadata{"Customs approved", "Customs released the package", "#10b981", 70, false, 1},
		next: []models.OrderStatus{models.OrderStatusArrivedLocalWarehouse},
	},
	models.OrderStatusPayingDuties: {
		meta: StatusMetadata{"Paying duties", "Import duties are being paid", "#f97316", 65, false, 2},
		next: []models.OrderStatus{models.OrderStatusCustomsApproved, models.OrderStatusAwaitingCustomerAction},
	},
	models.OrderStatusArrivedLocalWarehouse: {
		meta: StatusMetadata{"Arrived at local warehouse", "The package arrived at our local warehouse", "#0ea5e9", 75, false, 1},
		next: []models.OrderStatus{models.OrderStatusQualityInspection, models.OrderStatusLocalProcessing},
	},
	models.OrderStatusQualityInspection: {
		meta: StatusMetadata{"Quality inspection", "The product is being inspected", "#0ea5e9", 78, false, 1},
		next: []models.OrderStatus{models.OrderStatusLocalProcessing, models.OrderStatusOnHold, models.OrderStatusDamaged},
	},
	models.OrderStatusLocalProcessing: {
		meta: StatusMetadata{"Local processing", "The package is being prepared for local delivery", "#0ea5e9", 82, false, 1},
		next: []models.OrderStatus{models.OrderStatusReadyForDispatch},
	},
	models.OrderStatusReadyForDispatch: {
		meta: StatusMetadata{"Ready for dispatch", "The package is ready to leave the warehouse", "#14b8a6", 85, false, 1},
		next: []models.OrderStatus{models.OrderStatusDispatched},
	},
	models.OrderStatusDispatched: {
		meta: StatusMetadata{"Dispatched", "The package was handed to the local carrier", "#14b8a6", 90, false, 1},
		next: []models.OrderStatus{models.OrderStatusOutForDelivery, models.OrderStatusLostInTransit, models.OrderStatusDamaged, models.OrderStatusReturnedToSender},
	},
	models.OrderStatusOutForDelivery: {
		meta: StatusMetadata{"Out for delivery", "The carrier is on the way to the delivery address", "#14b8a6", 95, false, 1},
		next: []models.OrderStatus{models.OrderStatusDelivered, models.OrderStatusDeliveryAttempted, models.OrderStatusLostInTransit, models.OrderStatusDamaged, models.OrderStatusReturnedToSender},
	},
	models.OrderStatusDeliveryAttempted: {
		meta: StatusMetadata{"Delivery attempted", "The carrier could not deliver the package", "#f59e0b", 95, true, 1},
		next: []models.OrderStatus{models.OrderStatusOutForDelivery, models.OrderStatusReturnedToSender, models.OrderStatusAwaitingCustomerAction},
	},
	models.OrderStatusDelivered: {
		meta: StatusMetadata{"Delivered", "The package was delivered", "#22c55e", 100, false, 0},
	},
	models.OrderStatusOnHold: {
		meta: StatusMetadata{"On hold", "The order is on hold, our team is reviewing it", "#eab308", 0, false, 3},
		next: []models.OrderStatus{models.OrderStatusAwaitingCustomerAction, models.OrderStatusCancelled},
	},
	models.OrderStatusReturnedToSender: {
		meta: StatusMetadata{"Returned to sender", "The package is being returned to the sender", "#ef4444", 0, false, 10},
		next: []models.OrderStatus{models.OrderStatusRefunded, models.OrderStatusDispatched},
	},
	models.OrderStatusCancelled: {
		meta: StatusMetadata{"Cancelled", "The order was cancelled", "#ef4444", 0, false, 0},
		next: []models.OrderStatus{models.OrderStatusRefunded},
	},
	models.OrderStatusRefunded: {
		meta: StatusMetadata{"Refunded", "The payment was refunded", "#6b7280", 0, false, 0},
	},
	models.OrderStatusLostInTransit: {
		meta: StatusMetadata{"Lost in transit", "The carrier reported the package as lost", "#ef4444", 0, false, 0},
		next: []models.OrderStatus{models.OrderStatusRefunded},
	},
	models.OrderStatusDamaged: {
		meta: StatusMetadata{"Damaged", "The product was damaged", "#ef4444", 0, false, 0},
		next: []models.OrderStatus{models.OrderStatusRefunded},
	},
	models.OrderStatusAwaitingCustomerAction: {
		meta: StatusMetadata{"Awaiting customer action", "We need information or an action from you", "#f59e0b", 0, true, 2},
		next: []models.OrderStatus{models.OrderStatusPreparingOrder, models.OrderStatusCustomsClearance, models.OrderStatusOutForDelivery, models.OrderStatusCancelled},
	},
}

// statusOrder lists statuses in lifecycle order.
var statusOrder = []models.OrderStatus{
	models.OrderStatusPendingPayment,
	models.OrderStatusPaymentConfirmed,
	models.OrderStatusPreparingOrder,
	models.OrderStatusStockVerification,
	models.OrderStatusAwaitingSupplier,
	models.OrderStatusOrderingOverseas,
	models.OrderStatusOverseasProcessing,
	models.OrderStatusInternationalShipping,
	models.OrderStatusInTransitInternational,
	models.OrderStatusCustomsClearance,
	models.OrderStatusCustomsInspection,
	models.OrderStatusCustomsApproved,
	models.OrderStatusPayingDuties,
	models.OrderStatusArrivedLocalWarehouse,
	models.OrderStatusQualityInspection,
	models.OrderStatusLocalProcessing,
	models.OrderStatusReadyForDispatch,
	models.OrderStatusDispatched,
	models.OrderStatusOutForDelivery,
	models.OrderStatusDeliveryAttempted,
	models.OrderStatusDelivered,
	models.OrderStatusOnHold,
	models.OrderStatusReturnedToSender,
	models.OrderStatusCancelled,
	models.OrderStatusRefunded,
	models.OrderStatusLostInTransit,
	models.OrderStatusDamaged,
	models.OrderStatusAwaitingCustomerAction,
}

// Statuses returns every order status in lifecycle order
func Statuses() []models.OrderStatus {
	out := make([]models.OrderStatus, len(statusOrder))
	copy(out, statusOrder)
	return out
}

// Known reports whether s is part of the vocabulary
func Known(s models.OrderStatus) bool {
	_, ok := statusTable[s]
	return ok
}

// AllowedNext returns the statuses reachable from s in one step.
// The result is never nil.
func AllowedNext(s models.OrderStatus) []models.OrderStatus {
	entry, ok := statusTable[s]
	if !ok {
		return []models.OrderStatus{}
	}
	out := make([]models.OrderStatus, len(entry.next))
	copy(out, entry.next)
	return out
}

// IsLegal reports whether an order in from may move to to
func IsLegal(from, to models.OrderStatus) bool {
	if !Known(from) || !Known(to) {
		return false
	}
	if from == to {
		return true
	}
	for _, s := range statusTable[from].next {
		if s == to {
			return true
		}
	}
	return false
}

// LegalSources returns every status from which to is legal, to included
func LegalSources(to models.OrderStatus) []models.OrderStatus {
	var out []models.OrderStatus
	for _, s := range statusOrder {
		if IsLegal(s, to) {
			out = append(out, s)
		}
	}
	return out
}

// IsTerminal reports whether s has no outgoing transitions
func IsTerminal(s models.OrderStatus) bool {
	entry, ok := statusTable[s]
	return ok && len(entry.next) == 0
}

// Metadata returns display metadata of s
func Metadata(s models.OrderStatus) (StatusMetadata, bool) {
	entry, ok := statusTable[s]
	return entry.meta, ok
}

// EstimatedDaysRemaining sums typical durations from s to the first terminal status
// along the default path. It returns nil for terminal or unknown statuses.
func EstimatedDaysRemaining(s models.OrderStatus) *int {
	if !Known(s) || IsTerminal(s) {
		return nil
	}

	days := 0
	seen := make(map[models.OrderStatus]bool)
	for cur := s; !IsTerminal(cur); cur = statusTable[cur].next[0] {
		if seen[cur] {
			// default path loops back, no terminal is reachable
			return nil
		}
		seen[cur] = true
		days += statusTable[cur].meta.TypicalDurationDays
	}

	return &days
}
