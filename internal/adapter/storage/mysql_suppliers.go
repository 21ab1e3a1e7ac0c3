package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/purchasing/internal/core/domain"
)

const supplierColumns = `id, name, tax_id, contact_name, email, phone, address, payment_terms, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSupplier(row rowScanner) (domain.Supplier, error) {
	var s domain.Supplier
	err := row.Scan(&s.ID, &s.Name, &s.TaxID, &s.ContactName, &s.Email, &s.Phone, &s.Address,
		&s.PaymentTerms, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (m *MySQLAdapter) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT `+supplierColumns+` FROM suppliers ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query suppliers: %w", err)
	}
	defer rows.Close()

	suppliers := []domain.Supplier{}
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, fmt.Errorf("scan supplier: %w", err)
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, rows.Err()
}

func (m *MySQLAdapter) GetSupplier(ctx context.Context, id int64) (*domain.Supplier, error) {
	s, err := scanSupplier(m.db.QueryRowContext(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query supplier: %w", err)
	}
	return &s, nil
}

func (m *MySQLAdapter) CreateSupplier(ctx context.Context, s domain.Supplier) (int64, error) {
	result, err := m.db.ExecContext(ctx, `
		INSERT INTO suppliers (name, tax_id, contact_name, email, phone, address, payment_terms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.Name, s.TaxID, s.ContactName, s.Email, s.Phone, s.Address, s.PaymentTerms,
	)
	if err != nil {
		return 0, fmt.Errorf("insert supplier: %w", err)
	}
	return result.LastInsertId()
}

// UpdateSupplier returns matched rows; the pool is opened with clientFoundRows so an
// update that changes nothing still counts the row.
func (m *MySQLAdapter) UpdateSupplier(ctx context.Context, s domain.Supplier) (int64, error) {
	result, err := m.db.ExecContext(ctx, `
		UPDATE suppliers
		SET name = ?, tax_id = ?, contact_name = ?, email = ?, phone = ?, address = ?, payment_terms = ?
		WHERE id = ?`,
		s.Name, s.TaxID, s.ContactName, s.Email, s.Phone, s.Address, s.PaymentTerms, s.ID,
	)
	if err != nil {
		return 0, fmt.Errorf("update supplier: %w", err)
	}
	return result.RowsAffected()
}

func (m *MySQLAdapter) DeleteSupplier(ctx context.Context, id int64) (int64, error) {
	result, err := m.db.ExecContext(ctx, `DELETE FROM suppliers WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("delete supplier: %w", err)
	}
	return result.RowsAffected()
}
