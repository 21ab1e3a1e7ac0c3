package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/rl1809/purchasing/internal/core/domain"
	"github.com/rl1809/purchasing/internal/port"
)

type SupplierService struct {
	suppliers port.SupplierRepository
}

func NewSupplierService(suppliers port.SupplierRepository) *SupplierService {
	return &SupplierService{suppliers: suppliers}
}

type SupplierInput struct {
	Name         string
	TaxID        string
	ContactName  string
	Email        string
	Phone        string
	Address      string
	PaymentTerms string
}

type DeleteResult struct {
	Deleted      bool
	AffectedRows int64
}

func (in SupplierInput) normalize() (domain.Supplier, error) {
	s := domain.Supplier{
		Name:         strings.TrimSpace(in.Name),
		TaxID:        strings.ToUpper(strings.TrimSpace(in.TaxID)),
		ContactName:  strings.TrimSpace(in.ContactName),
		Email:        strings.TrimSpace(in.Email),
		Phone:        strings.TrimSpace(in.Phone),
		Address:      strings.TrimSpace(in.Address),
		PaymentTerms: strings.TrimSpace(in.PaymentTerms),
	}
	if s.Name == "" {
		return domain.Supplier{}, fmt.Errorf("%w: name is required", domain.ErrInvalidSupplier)
	}
	if s.Email != "" {
		if _, err := mail.ParseAddress(s.Email); err != nil {
			return domain.Supplier{}, fmt.Errorf("%w: invalid email", domain.ErrInvalidSupplier)
		}
	}
	return s, nil
}

// List returns every supplier in ascending id order.
func (s *SupplierService) List(ctx context.Context) ([]domain.Supplier, error) {
	list, err := s.suppliers.ListSuppliers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	if list == nil {
		list = []domain.Supplier{}
	}
	return list, nil
}

func (s *SupplierService) Get(ctx context.Context, id int64) (domain.Supplier, error) {
	sup, err := s.suppliers.GetSupplier(ctx, id)
	if err != nil {
		return domain.Supplier{}, fmt.Errorf("get supplier: %w", err)
	}
	if sup == nil {
		return domain.Supplier{}, domain.ErrSupplierNotFound
	}
	return *sup, nil
}

func (s *SupplierService) Create(ctx context.Context, in SupplierInput) (domain.Supplier, error) {
	sup, err := in.normalize()
	if err != nil {
		return domain.Supplier{}, err
	}
	id, err := s.suppliers.CreateSupplier(ctx, sup)
	if err != nil {
		return domain.Supplier{}, fmt.Errorf("create supplier: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *SupplierService) Update(ctx context.Context, id int64, in SupplierInput) (domain.Supplier, error) {
	sup, err := in.normalize()
	if err != nil {
		return domain.Supplier{}, err
	}
	sup.ID = id
	rows, err := s.suppliers.UpdateSupplier(ctx, sup)
	if err != nil {
		return domain.Supplier{}, fmt.Errorf("update supplier: %w", err)
	}
	if rows == 0 {
		return domain.Supplier{}, domain.ErrSupplierNotFound
	}
	return s.Get(ctx, id)
}

// Delete removes a supplier. A missing id is not an error: the result reports
// zero affected rows.
func (s *SupplierService) Delete(ctx context.Context, id int64) (DeleteResult, error) {
	rows, err := s.suppliers.DeleteSupplier(ctx, id)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("delete supplier: %w", err)
	}
	return DeleteResult{Deleted: rows > 0, AffectedRows: rows}, nil
}
