package repository

import (
	"context"
	"database/sql"

	"github.com/vibast-solutions/ms-go-storefront-payments/app/entity"
)

type OrderEventRepository struct {
	db DBTX
}

func NewOrderEventRepository(db DBTX) *OrderEventRepository {
	return &OrderEventRepository{db: db}
}

func (r *OrderEventRepository) Create(ctx context.Context, event *entity.OrderEvent) error {
	query := `
		INSERT INTO order_events (
			order_id, event_type, old_status, new_status, old_payment_status, new_payment_status,
			gateway_status, gateway_payment_id, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		event.OrderID,
		event.EventType,
		event.OldStatus,
		event.NewStatus,
		event.OldPaymentStatus,
		event.NewPaymentStatus,
		event.GatewayStatus,
		nullableStringValue(event.GatewayPaymentID),
		event.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	event.ID = uint64(id)

	return nil
}

func (r *OrderEventRepository) ListByOrderID(ctx context.Context, orderID string) ([]*entity.OrderEvent, error) {
	query := `
		SELECT id, order_id, event_type, old_status, new_status, old_payment_status, new_payment_status,
			gateway_status, gateway_payment_id, created_at
		FROM order_events
		WHERE order_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*entity.OrderEvent, 0)
	for rows.Next() {
		event := &entity.OrderEvent{}
		var gatewayPaymentID sql.NullString
		if err := rows.Scan(
			&event.ID,
			&event.OrderID,
			&event.EventType,
			&event.OldStatus,
			&event.NewStatus,
			&event.OldPaymentStatus,
			&event.NewPaymentStatus,
			&event.GatewayStatus,
			&gatewayPaymentID,
			&event.CreatedAt,
		); err != nil {
			return nil, err
		}
		event.GatewayPaymentID = stringPtrFromNull(gatewayPaymentID)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}
