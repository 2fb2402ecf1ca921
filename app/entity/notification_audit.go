package entity

import "time"

const (
	NotificationOutcomeSettled        = "settled"
	NotificationOutcomeAlreadySettled = "already_settled"
	NotificationOutcomeIgnored        = "ignored"
	NotificationOutcomeRejected       = "rejected"
)

type NotificationAudit struct {
	ID uint64

	OrderReference string
	GatewayStatus  string
	Outcome        string
	Reason         *string
	RemoteIP       string

	CreatedAt time.Time
}
