package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPendingApproval OrderStatus = "Pending Approval"
	OrderStatusApproved        OrderStatus = "Approved"
	OrderStatusRejected        OrderStatus = "Rejected"
)

const (
	StageCreated         = "Created"
	StagePendingApproval = "Pending Approval"
	StageApproved        = "Approved"
	StageRejected        = "Rejected"

	// SystemActor is recorded on timeline events not attributable to a person.
	SystemActor = "system"
)

// PurchaseOrder is the header row of an order together with its children.
type PurchaseOrder struct {
	PK                int64
	ID                string
	SupplierName      string
	SupplierTaxID     string
	IssueDate         time.Time
	EstimatedDelivery time.Time
	Warehouse         string
	Buyer             string
	PaymentTerms      string
	Currency          string
	Category          string
	Notes             string
	Subtotal          decimal.Decimal
	Tax               decimal.Decimal
	Total             decimal.Decimal
	Status            OrderStatus
	Items             []LineItem
	Timeline          []TimelineEvent
}

// OrderSummary is the list projection of a purchase order.
type OrderSummary struct {
	ID                string
	SupplierName      string
	IssueDate         time.Time
	EstimatedDelivery time.Time
	Warehouse         string
	Buyer             string
	Currency          string
	Category          string
	Total             decimal.Decimal
	Status            OrderStatus
	ItemCount         int
}

type LineItem struct {
	ID          int64
	Position    int
	SKU         string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Unit        string
	Discount    decimal.Decimal
	TaxRate     decimal.Decimal
	Subtotal    decimal.Decimal
	Tax         decimal.Decimal
	Total       decimal.Decimal
}

// TimelineEvent is an append-only record of a lifecycle stage.
type TimelineEvent struct {
	ID         int64
	Stage      string
	OccurredAt time.Time
	Actor      string
	Completed  bool
	Note       string
}

// InitialTimeline returns the two events written together with a new order.
func InitialTimeline(buyer string) []TimelineEvent {
	return []TimelineEvent{
		{Stage: StageCreated, Actor: buyer, Completed: true},
		{Stage: StagePendingApproval, Actor: SystemActor, Completed: false},
	}
}
