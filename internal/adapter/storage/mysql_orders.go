package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/purchasing/internal/core/domain"
)

func (m *MySQLAdapter) CreateOrder(ctx context.Context, order domain.PurchaseOrder) (domain.PurchaseOrder, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.PurchaseOrder{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO purchase_orders (
			order_number, supplier_name, supplier_tax_id, estimated_delivery, warehouse, buyer,
			payment_terms, currency, category, notes, subtotal, tax, total, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.SupplierName, order.SupplierTaxID, order.EstimatedDelivery, order.Warehouse, order.Buyer,
		order.PaymentTerms, order.Currency, order.Category, order.Notes, order.Subtotal, order.Tax, order.Total, order.Status,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return domain.PurchaseOrder{}, domain.ErrDuplicateOrderID
		}
		return domain.PurchaseOrder{}, fmt.Errorf("insert order: %w", err)
	}

	order.PK, err = result.LastInsertId()
	if err != nil {
		return domain.PurchaseOrder{}, fmt.Errorf("order id: %w", err)
	}
	err = tx.QueryRowContext(ctx, `SELECT issue_date FROM purchase_orders WHERE id = ?`, order.PK).Scan(&order.IssueDate)
	if err != nil {
		return domain.PurchaseOrder{}, fmt.Errorf("read issue date: %w", err)
	}

	itemStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO purchase_order_items (
			order_id, position, sku, description, quantity, unit_price, unit, discount, tax_rate, subtotal, tax, total)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return domain.PurchaseOrder{}, fmt.Errorf("prepare item insert: %w", err)
	}
	defer itemStmt.Close()

	items := make([]domain.LineItem, len(order.Items))
	copy(items, order.Items)
	for i, li := range items {
		res, err := itemStmt.ExecContext(ctx,
			order.PK, li.Position, li.SKU, li.Description, li.Quantity, li.UnitPrice, li.Unit,
			li.Discount, li.TaxRate, li.Subtotal, li.Tax, li.Total,
		)
		if err != nil {
			return domain.PurchaseOrder{}, fmt.Errorf("insert item %d (%s): %w", li.Position, li.SKU, err)
		}
		if items[i].ID, err = res.LastInsertId(); err != nil {
			return domain.PurchaseOrder{}, fmt.Errorf("item id: %w", err)
		}
	}
	order.Items = items

	timeline := make([]domain.TimelineEvent, len(order.Timeline))
	copy(timeline, order.Timeline)
	for i, ev := range timeline {
		id, err := insertTimelineEvent(ctx, tx, order.PK, ev)
		if err != nil {
			return domain.PurchaseOrder{}, err
		}
		timeline[i].ID = id
	}
	order.Timeline = timeline

	if err := tx.Commit(); err != nil {
		return domain.PurchaseOrder{}, fmt.Errorf("commit: %w", err)
	}
	return order, nil
}

func insertTimelineEvent(ctx context.Context, tx *sql.Tx, orderPK int64, ev domain.TimelineEvent) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO purchase_order_timeline (order_id, stage, occurred_at, actor, completed, note)
		VALUES (?, ?, CURRENT_TIMESTAMP(3), ?, ?, ?)`,
		orderPK, ev.Stage, ev.Actor, ev.Completed, ev.Note,
	)
	if err != nil {
		return 0, fmt.Errorf("insert timeline %q: %w", ev.Stage, err)
	}
	return res.LastInsertId()
}

func (m *MySQLAdapter) GetOrder(ctx context.Context, id string) (*domain.PurchaseOrder, error) {
	var o domain.PurchaseOrder
	var status string
	err := m.db.QueryRowContext(ctx, `
		SELECT id, order_number, supplier_name, supplier_tax_id, issue_date, estimated_delivery, warehouse,
			buyer, payment_terms, currency, category, notes, subtotal, tax, total, status
		FROM purchase_orders WHERE order_number = ?`, id,
	).Scan(&o.PK, &o.ID, &o.SupplierName, &o.SupplierTaxID, &o.IssueDate, &o.EstimatedDelivery, &o.Warehouse,
		&o.Buyer, &o.PaymentTerms, &o.Currency, &o.Category, &o.Notes, &o.Subtotal, &o.Tax, &o.Total, &status)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	o.Status = domain.OrderStatus(status)

	if o.Items, err = m.orderItems(ctx, o.PK); err != nil {
		return nil, err
	}
	if o.Timeline, err = m.orderTimeline(ctx, o.PK); err != nil {
		return nil, err
	}
	return &o, nil
}

func (m *MySQLAdapter) orderItems(ctx context.Context, orderPK int64) ([]domain.LineItem, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, position, sku, description, quantity, unit_price, unit, discount, tax_rate, subtotal, tax, total
		FROM purchase_order_items WHERE order_id = ? ORDER BY position`, orderPK)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := []domain.LineItem{}
	for rows.Next() {
		var li domain.LineItem
		if err := rows.Scan(&li.ID, &li.Position, &li.SKU, &li.Description, &li.Quantity, &li.UnitPrice,
			&li.Unit, &li.Discount, &li.TaxRate, &li.Subtotal, &li.Tax, &li.Total); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, li)
	}
	return items, rows.Err()
}

func (m *MySQLAdapter) orderTimeline(ctx context.Context, orderPK int64) ([]domain.TimelineEvent, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, stage, occurred_at, actor, completed, note
		FROM purchase_order_timeline WHERE order_id = ? ORDER BY occurred_at, id`, orderPK)
	if err != nil {
		return nil, fmt.Errorf("query timeline: %w", err)
	}
	defer rows.Close()

	events := []domain.TimelineEvent{}
	for rows.Next() {
		var ev domain.TimelineEvent
		if err := rows.Scan(&ev.ID, &ev.Stage, &ev.OccurredAt, &ev.Actor, &ev.Completed, &ev.Note); err != nil {
			return nil, fmt.Errorf("scan timeline: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (m *MySQLAdapter) ListOrders(ctx context.Context) ([]domain.OrderSummary, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT o.order_number, o.supplier_name, o.issue_date, o.estimated_delivery, o.warehouse, o.buyer,
			o.currency, o.category, o.total, o.status,
			(SELECT COUNT(*) FROM purchase_order_items i WHERE i.order_id = o.id) AS item_count
		FROM purchase_orders o
		ORDER BY o.issue_date DESC, o.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.OrderSummary{}
	for rows.Next() {
		var s domain.OrderSummary
		var status string
		if err := rows.Scan(&s.ID, &s.SupplierName, &s.IssueDate, &s.EstimatedDelivery, &s.Warehouse, &s.Buyer,
			&s.Currency, &s.Category, &s.Total, &status, &s.ItemCount); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		s.Status = domain.OrderStatus(status)
		orders = append(orders, s)
	}
	return orders, rows.Err()
}

func (m *MySQLAdapter) TransitionOrder(ctx context.Context, id string, from, to domain.OrderStatus, event domain.TimelineEvent) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var pk int64
	var status string
	err = tx.QueryRowContext(ctx, `SELECT id, status FROM purchase_orders WHERE order_number = ? FOR UPDATE`, id).
		Scan(&pk, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("lock order: %w", err)
	}
	if domain.OrderStatus(status) != from {
		return fmt.Errorf("%w: order is %q", domain.ErrInvalidTransition, status)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE purchase_orders SET status = ? WHERE id = ?`, to, pk); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE purchase_order_timeline SET completed = TRUE
		WHERE order_id = ? AND stage = ? AND completed = FALSE`, pk, string(from)); err != nil {
		return fmt.Errorf("complete timeline stage: %w", err)
	}
	if _, err := insertTimelineEvent(ctx, tx, pk, event); err != nil {
		return err
	}

	return tx.Commit()
}
