package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vibast-solutions/ms-go-storefront-payments/app/entity"
)

var ErrOrderNotFound = errors.New("order not found")

const orderColumns = `
	id, order_number, customer_name, customer_email, customer_phone,
	status, payment_status, total_amount, created_at, updated_at
`

type OrderRepository struct {
	db TxDB
}

func NewOrderRepository(db TxDB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_number = ? LIMIT 1`
	return r.findOne(ctx, query, orderNumber)
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`
	return r.findOne(ctx, query, id)
}

func (r *OrderRepository) findOne(ctx context.Context, query string, arg interface{}) (*entity.Order, error) {
	order := &entity.Order{}
	if err := scanOrder(r.db.QueryRowContext(ctx, query, arg), order); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	items, err := listOrderItems(ctx, r.db, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}

// SettleOrder applies a settlement in one transaction. The status update is
// conditional on the order still being pending; when another delivery got
// there first nothing is written and Applied is false. A paid settlement
// decrements stock for every item and never drives a counter below zero.
func (r *OrderRepository) SettleOrder(ctx context.Context, settlement *entity.Settlement) (result *entity.SettlementResult, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var oldStatus, oldPaymentStatus string
	lockQuery := `SELECT status, payment_status FROM orders WHERE id = ? FOR UPDATE`
	if err = tx.QueryRowContext(ctx, lockQuery, settlement.OrderID).Scan(&oldStatus, &oldPaymentStatus); err == sql.ErrNoRows {
		err = ErrOrderNotFound
		return nil, err
	} else if err != nil {
		return nil, err
	}

	updateQuery := `
		UPDATE orders SET
			status = ?,
			payment_status = ?,
			updated_at = ?
		WHERE id = ? AND payment_status = ?
	`
	res, err := tx.ExecContext(ctx, updateQuery,
		settlement.NewStatus,
		settlement.NewPaymentStatus,
		settlement.SettledAt,
		settlement.OrderID,
		entity.PaymentStatusPending,
	)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		if err = tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			return nil, err
		}
		return &entity.SettlementResult{Applied: false}, nil
	}

	result = &entity.SettlementResult{Applied: true}
	if settlement.NewPaymentStatus == entity.PaymentStatusPaid {
		for _, item := range settlement.Items {
			shortfall, decErr := decrementStock(ctx, tx, item, settlement)
			if decErr != nil {
				err = decErr
				return nil, err
			}
			if shortfall != nil {
				result.Shortfalls = append(result.Shortfalls, *shortfall)
			}
		}
	}

	event := &entity.OrderEvent{
		OrderID:          settlement.OrderID,
		EventType:        entity.OrderEventPaymentSettled,
		OldStatus:        oldStatus,
		NewStatus:        settlement.NewStatus,
		OldPaymentStatus: oldPaymentStatus,
		NewPaymentStatus: settlement.NewPaymentStatus,
		GatewayStatus:    settlement.GatewayStatus,
		GatewayPaymentID: settlement.GatewayPaymentID,
		CreatedAt:        settlement.SettledAt,
	}
	if err = NewOrderEventRepository(tx).Create(ctx, event); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}

func decrementStock(ctx context.Context, tx *sql.Tx, item entity.OrderItem, settlement *entity.Settlement) (*entity.StockShortfall, error) {
	table, id := stockTarget(item)
	if table == "" {
		return nil, nil
	}

	query := fmt.Sprintf(`
		UPDATE %s SET
			stock_quantity = stock_quantity - ?,
			updated_at = ?
		WHERE id = ? AND stock_quantity >= ?
	`, table)
	res, err := tx.ExecContext(ctx, query, item.Quantity, settlement.SettledAt, id, item.Quantity)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected > 0 {
		return nil, nil
	}

	shortfall := &entity.StockShortfall{
		ProductID: item.ProductID,
		VariantID: item.VariantID,
		Requested: item.Quantity,
	}

	var available int32
	stockQuery := fmt.Sprintf(`SELECT stock_quantity FROM %s WHERE id = ? FOR UPDATE`, table)
	if err := tx.QueryRowContext(ctx, stockQuery, id).Scan(&available); err == sql.ErrNoRows {
		return shortfall, nil
	} else if err != nil {
		return nil, err
	}
	shortfall.Available = available

	clampQuery := fmt.Sprintf(`UPDATE %s SET stock_quantity = 0, updated_at = ? WHERE id = ?`, table)
	if _, err := tx.ExecContext(ctx, clampQuery, settlement.SettledAt, id); err != nil {
		return nil, err
	}
	return shortfall, nil
}

func stockTarget(item entity.OrderItem) (string, string) {
	if item.VariantID != nil && *item.VariantID != "" {
		return "product_variants", *item.VariantID
	}
	if item.ProductID != nil && *item.ProductID != "" {
		return "products", *item.ProductID
	}
	return "", ""
}

func listOrderItems(ctx context.Context, db DBTX, orderID string) ([]entity.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, variant_id, product_name, quantity, unit_price
		FROM order_items
		WHERE order_id = ?
		ORDER BY id ASC
	`

	rows, err := db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]entity.OrderItem, 0)
	for rows.Next() {
		var (
			item      entity.OrderItem
			productID sql.NullString
			variantID sql.NullString
		)
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&productID,
			&variantID,
			&item.ProductName,
			&item.Quantity,
			&item.UnitPrice,
		); err != nil {
			return nil, err
		}
		item.ProductID = stringPtrFromNull(productID)
		item.VariantID = stringPtrFromNull(variantID)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func scanOrder(row *sql.Row, order *entity.Order) error {
	var phone sql.NullString
	if err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.CustomerName,
		&order.CustomerEmail,
		&phone,
		&order.Status,
		&order.PaymentStatus,
		&order.TotalAmount,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		return err
	}
	order.CustomerPhone = stringPtrFromNull(phone)
	return nil
}
