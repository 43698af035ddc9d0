package models

import (
	"time"

	"github.com/google/uuid"
)

// ProviderStatus is the payment status reported by the payment provider
type ProviderStatus string

// provider status
const (
	ProviderStatusPending     ProviderStatus = "pending"
	ProviderStatusApproved    ProviderStatus = "approved"
	ProviderStatusAuthorized  ProviderStatus = "authorized"
	ProviderStatusInProcess   ProviderStatus = "in_process"
	ProviderStatusInMediation ProviderStatus = "in_mediation"
	ProviderStatusRejected    ProviderStatus = "rejected"
	ProviderStatusCancelled   ProviderStatus = "cancelled"
	ProviderStatusRefunded    ProviderStatus = "refunded"
	ProviderStatusChargedBack ProviderStatus = "charged_back"
)

// IsApproved reports whether the payment belongs to the approved class
func (s ProviderStatus) IsApproved() bool {
	return s == ProviderStatusApproved || s == ProviderStatusAuthorized
}

// IsFailed reports whether the payment belongs to the failed class
func (s ProviderStatus) IsFailed() bool {
	switch s {
	case ProviderStatusRejected, ProviderStatusCancelled, ProviderStatusRefunded, ProviderStatusChargedBack:
		return true
	}
	return false
}

// IsInFlight reports whether the provider has not settled the payment yet
func (s ProviderStatus) IsInFlight() bool {
	switch s {
	case ProviderStatusPending, ProviderStatusInProcess, ProviderStatusInMediation:
		return true
	}
	return false
}

// IsSettled reports whether the provider reached a final decision on the payment
func (s ProviderStatus) IsSettled() bool {
	return s.IsApproved() || s.IsFailed()
}

// Valid reports whether s belongs to the provider vocabulary
func (s ProviderStatus) Valid() bool {
	return s.IsApproved() || s.IsFailed() || s.IsInFlight()
}

// Payment is a payment attempt against an order.
// OrderID is always the order storage identity.
type Payment struct {
	ID                   uuid.UUID      `json:"id"`
	OrderID              uuid.UUID      `json:"orderId"`
	Amount               float64        `json:"amount"`
	Currency             string         `json:"currency"`
	PaymentMethod        string         `json:"paymentMethod"`
	ExternalPaymentID    *string        `json:"externalPaymentId,omitempty"`
	ExternalPreferenceID *string        `json:"externalPreferenceId,omitempty"`
	Status               ProviderStatus `json:"status"`
	Items                []Item         `json:"items"`
	CustomerInfo         Customer       `json:"customerInfo"`
	CreatedAt            time.Time      `json:"createdAt"`
	UpdatedAt            time.Time      `json:"updatedAt"`
}

// ProviderPayment is the provider-side view of a payment
type ProviderPayment struct {
	ID                string
	Status            ProviderStatus
	StatusDetail      string
	ExternalReference string
	Amount            float64
	Currency          string
	PaymentMethod     string
}

// PendingPayment is a payment of an order still awaiting confirmation
type PendingPayment struct {
	PaymentID  string
	BusinessID string
}
