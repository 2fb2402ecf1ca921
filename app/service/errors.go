package service

import "errors"

var (
	ErrInvalidRequest         = errors.New("invalid request")
	ErrOrderNotFound          = errors.New("order not found")
	ErrInvalidStatus          = errors.New("invalid status")
	ErrSourceNotAllowed       = errors.New("notification source not allowed")
	ErrMalformedNotification  = errors.New("malformed notification")
	ErrSignatureMismatch      = errors.New("signature mismatch")
	ErrReferenceMismatch      = errors.New("order reference mismatch")
	ErrAmountMismatch         = errors.New("amount mismatch")
	ErrLedgerWrite            = errors.New("ledger write failed")
	ErrDownstreamNotification = errors.New("downstream notification failed")
)
