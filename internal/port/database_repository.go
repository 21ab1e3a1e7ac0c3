package port

import (
	"context"

	"github.com/rl1809/purchasing/internal/core/domain"
)

type OrderRepository interface {
	// CreateOrder persists header, line items and timeline in one transaction and
	// returns the order with its database-assigned key and issue date filled in
	CreateOrder(ctx context.Context, order domain.PurchaseOrder) (domain.PurchaseOrder, error)

	// GetOrder returns the order with items and timeline, or nil if it does not exist
	GetOrder(ctx context.Context, id string) (*domain.PurchaseOrder, error)

	// ListOrders returns every order header with its line item count
	ListOrders(ctx context.Context) ([]domain.OrderSummary, error)

	// TransitionOrder moves an order from one status to another and appends the event
	TransitionOrder(ctx context.Context, id string, from, to domain.OrderStatus, event domain.TimelineEvent) error
}

type SupplierRepository interface {
	ListSuppliers(ctx context.Context) ([]domain.Supplier, error)

	// GetSupplier returns nil if the supplier does not exist
	GetSupplier(ctx context.Context, id int64) (*domain.Supplier, error)

	CreateSupplier(ctx context.Context, s domain.Supplier) (int64, error)

	// UpdateSupplier and DeleteSupplier report the number of rows affected
	UpdateSupplier(ctx context.Context, s domain.Supplier) (int64, error)
	DeleteSupplier(ctx context.Context, id int64) (int64, error)
}
