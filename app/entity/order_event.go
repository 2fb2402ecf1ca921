package entity

import "time"

const OrderEventPaymentSettled = "payment_settled"

type OrderEvent struct {
	ID uint64

	OrderID string

	EventType string

	OldStatus        string
	NewStatus        string
	OldPaymentStatus string
	NewPaymentStatus string

	GatewayStatus    string
	GatewayPaymentID *string

	CreatedAt time.Time
}
