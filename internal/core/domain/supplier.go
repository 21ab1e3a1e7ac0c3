package domain

import "time"

type Supplier struct {
	ID           int64
	Name         string
	TaxID        string
	ContactName  string
	Email        string
	Phone        string
	Address      string
	PaymentTerms string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
