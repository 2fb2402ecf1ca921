package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending    = "pending"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
	OrderStatusRefunded   = "refunded"
)

const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

type Order struct {
	ID          string
	OrderNumber string

	CustomerName  string
	CustomerEmail string
	CustomerPhone *string

	Status        string
	PaymentStatus string

	TotalAmount decimal.Decimal

	Items []OrderItem

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PaymentSettled reports whether the order has left the pending payment state.
func (o *Order) PaymentSettled() bool {
	return o.PaymentStatus != PaymentStatusPending
}

type OrderItem struct {
	ID      string
	OrderID string

	ProductID *string
	VariantID *string

	ProductName string
	Quantity    int32
	UnitPrice   decimal.Decimal
}

func (i OrderItem) TotalPrice() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt32(i.Quantity))
}

// Settlement is the transition applied to a pending order by a verified
// gateway notification.
type Settlement struct {
	OrderID          string
	NewStatus        string
	NewPaymentStatus string
	GatewayStatus    string
	GatewayPaymentID *string
	Items            []OrderItem
	SettledAt        time.Time
}

type StockShortfall struct {
	ProductID *string
	VariantID *string
	Requested int32
	Available int32
}

type SettlementResult struct {
	Applied    bool
	Shortfalls []StockShortfall
}
