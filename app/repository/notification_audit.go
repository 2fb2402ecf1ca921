package repository

import (
	"context"

	"github.com/vibast-solutions/ms-go-storefront-payments/app/entity"
)

type NotificationAuditRepository struct {
	db DBTX
}

func NewNotificationAuditRepository(db DBTX) *NotificationAuditRepository {
	return &NotificationAuditRepository{db: db}
}

func (r *NotificationAuditRepository) Create(ctx context.Context, audit *entity.NotificationAudit) error {
	query := `
		INSERT INTO notification_audits (
			order_reference, gateway_status, outcome, reason, remote_ip, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		audit.OrderReference,
		audit.GatewayStatus,
		audit.Outcome,
		nullableStringValue(audit.Reason),
		audit.RemoteIP,
		audit.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	audit.ID = uint64(id)

	return nil
}
