package models

// NotificationKind names a notification template
type NotificationKind string

const (
	NotificationCustomerOrderConfirmed NotificationKind = "customer-order-confirmed"
	NotificationAdminNewOrder          NotificationKind = "admin-new-order"
	NotificationAdminPaymentIssue      NotificationKind = "admin-payment-issue"
)

// Notification is the payload handed to the notification emitter
type Notification struct {
	Kind       NotificationKind  `json:"kind"`
	Recipient  string            `json:"recipient"`
	OrderID    string            `json:"orderId"`
	BusinessID string            `json:"businessId"`
	Data       map[string]string `json:"data,omitempty"`
}
