package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

const mysqlErrDuplicateEntry = 1062

// MySQLAdapter implements the order and supplier repositories on a shared pool.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// Ping reports whether the database is reachable.
func (m *MySQLAdapter) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS suppliers (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(200) NOT NULL,
		tax_id VARCHAR(20) NOT NULL DEFAULT '',
		contact_name VARCHAR(120) NOT NULL DEFAULT '',
		email VARCHAR(254) NOT NULL DEFAULT '',
		phone VARCHAR(30) NOT NULL DEFAULT '',
		address VARCHAR(500) NOT NULL DEFAULT '',
		payment_terms VARCHAR(100) NOT NULL DEFAULT '',
		created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3)
	)`,
	`CREATE TABLE IF NOT EXISTS purchase_orders (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		order_number VARCHAR(40) NOT NULL,
		supplier_name VARCHAR(200) NOT NULL,
		supplier_tax_id VARCHAR(20) NOT NULL DEFAULT '',
		issue_date DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		estimated_delivery DATE NOT NULL,
		warehouse VARCHAR(120) NOT NULL DEFAULT '',
		buyer VARCHAR(120) NOT NULL,
		payment_terms VARCHAR(100) NOT NULL DEFAULT '',
		currency CHAR(3) NOT NULL,
		category VARCHAR(60) NOT NULL,
		notes TEXT NOT NULL,
		subtotal DECIMAL(14,2) NOT NULL,
		tax DECIMAL(14,2) NOT NULL,
		total DECIMAL(14,2) NOT NULL,
		status VARCHAR(32) NOT NULL,
		updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3),
		UNIQUE KEY uq_purchase_orders_number (order_number),
		INDEX idx_purchase_orders_issue_date (issue_date)
	)`,
	`CREATE TABLE IF NOT EXISTS purchase_order_items (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		order_id BIGINT NOT NULL,
		position INT NOT NULL,
		sku VARCHAR(64) NOT NULL,
		description VARCHAR(500) NOT NULL DEFAULT '',
		quantity DECIMAL(14,3) NOT NULL,
		unit_price DECIMAL(14,4) NOT NULL,
		unit VARCHAR(16) NOT NULL,
		discount DECIMAL(14,2) NOT NULL DEFAULT 0,
		tax_rate DECIMAL(6,4) NOT NULL,
		subtotal DECIMAL(14,2) NOT NULL,
		tax DECIMAL(14,2) NOT NULL,
		total DECIMAL(14,2) NOT NULL,
		UNIQUE KEY uq_purchase_order_items_position (order_id, position),
		CONSTRAINT fk_purchase_order_items_order FOREIGN KEY (order_id)
			REFERENCES purchase_orders(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS purchase_order_timeline (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		order_id BIGINT NOT NULL,
		stage VARCHAR(40) NOT NULL,
		occurred_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		actor VARCHAR(120) NOT NULL,
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		note VARCHAR(500) NOT NULL DEFAULT '',
		INDEX idx_purchase_order_timeline_order (order_id, occurred_at),
		CONSTRAINT fk_purchase_order_timeline_order FOREIGN KEY (order_id)
			REFERENCES purchase_orders(id) ON DELETE CASCADE
	)`,
}

// Migrate creates the tables if they don't exist.
func (m *MySQLAdapter) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func isDuplicateEntry(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlErrDuplicateEntry
}
