package provider

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrConfiguration         = errors.New("payment gateway configuration is invalid")
	ErrInvalidPaymentInput   = errors.New("invalid payment input")
	ErrMalformedNotification = errors.New("malformed payment notification")
)

type StatusClass int

const (
	StatusUnrecognized StatusClass = iota
	StatusSettledSuccess
	StatusSettledFailure
)

func (c StatusClass) String() string {
	switch c {
	case StatusSettledSuccess:
		return "settled_success"
	case StatusSettledFailure:
		return "settled_failure"
	default:
		return "unrecognized"
	}
}

type PaymentInput struct {
	OrderID       string
	OrderNumber   string
	CustomerName  string
	CustomerEmail string
	CustomerPhone *string
	Amount        decimal.Decimal
	Description   string
}

type FormField struct {
	Name  string
	Value string
}

// PaymentRequest is the signed form posted to the hosted payment page.
// Optional fields left empty are neither submitted nor signed.
type PaymentRequest struct {
	MerchantID      string
	MerchantKey     string
	ReturnURL       string
	CancelURL       string
	NotifyURL       string
	NameFirst       string
	NameLast        string
	EmailAddress    string
	CellNumber      string
	MPaymentID      string
	Amount          string
	ItemName        string
	ItemDescription string
	CustomStr1      string
	Signature       string
}

// FormFields returns the populated fields in submission order, signature last.
func (r *PaymentRequest) FormFields() []FormField {
	ordered := []FormField{
		{"merchant_id", r.MerchantID},
		{"merchant_key", r.MerchantKey},
		{"return_url", r.ReturnURL},
		{"cancel_url", r.CancelURL},
		{"notify_url", r.NotifyURL},
		{"name_first", r.NameFirst},
		{"name_last", r.NameLast},
		{"email_address", r.EmailAddress},
		{"cell_number", r.CellNumber},
		{"m_payment_id", r.MPaymentID},
		{"amount", r.Amount},
		{"item_name", r.ItemName},
		{"item_description", r.ItemDescription},
		{"custom_str1", r.CustomStr1},
		{SignatureField, r.Signature},
	}

	out := make([]FormField, 0, len(ordered))
	for _, field := range ordered {
		if field.Value == "" {
			continue
		}
		out = append(out, field)
	}
	return out
}

// Fields returns the signature payload: every populated field except the
// signature itself.
func (r *PaymentRequest) Fields() map[string]string {
	fields := make(map[string]string)
	for _, field := range r.FormFields() {
		if field.Name == SignatureField {
			continue
		}
		fields[field.Name] = field.Value
	}
	return fields
}

func (r *PaymentRequest) Values() map[string]string {
	values := r.Fields()
	if r.Signature != "" {
		values[SignatureField] = r.Signature
	}
	return values
}

// Notification is a decoded ITN body. Fields holds everything received
// except the signature.
type Notification struct {
	PaymentID        string
	PaymentStatus    string
	Signature        string
	CustomStr1       string
	AmountGross      string
	GatewayPaymentID string
	Fields           map[string]string
}
