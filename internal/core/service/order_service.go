package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/purchasing/internal/core/domain"
	"github.com/rl1809/purchasing/internal/port"
)

const (
	idempotencyKeyPrefix = "po:idempotency:"

	// idempotencyCleanupTimeout bounds Release and Complete, which run detached
	// from the request context so a client disconnect cannot leave a key pending.
	idempotencyCleanupTimeout = 5 * time.Second
)

// OrderDefaults fill optional fields of a submitted order.
type OrderDefaults struct {
	Currency string
	Category string
	Unit     string
	TaxRate  decimal.Decimal
}

func DefaultOrderDefaults() OrderDefaults {
	return OrderDefaults{
		Currency: "MXN",
		Category: "General",
		Unit:     "PZA",
		TaxRate:  decimal.RequireFromString("0.16"),
	}
}

type OrderService struct {
	orders      port.OrderRepository
	idempotency port.IdempotencyStore
	ids         *OrderIDGenerator
	defaults    OrderDefaults
	logger      *slog.Logger
}

// NewOrderService wires the order use cases. idempotency may be nil, in which
// case idempotency keys are ignored.
func NewOrderService(orders port.OrderRepository, idempotency port.IdempotencyStore, ids *OrderIDGenerator, defaults OrderDefaults, logger *slog.Logger) *OrderService {
	if ids == nil {
		ids = NewOrderIDGenerator("", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderService{
		orders:      orders,
		idempotency: idempotency,
		ids:         ids,
		defaults:    defaults,
		logger:      logger,
	}
}

type LineItemInput struct {
	SKU         string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Unit        string
	Discount    decimal.Decimal
	TaxRate     *decimal.Decimal
}

type CreateOrderInput struct {
	IdempotencyKey    string
	SupplierName      string
	SupplierTaxID     string
	EstimatedDelivery time.Time
	Warehouse         string
	Buyer             string
	PaymentTerms      string
	Currency          string
	Category          string
	Notes             string
	// Totals as computed by the client; checked against the server computation when set.
	Totals *domain.Totals
	Items  []LineItemInput
}

type CreateOrderResult struct {
	ID        string    `json:"id"`
	IssueDate time.Time `json:"issueDate"`
	Replayed  bool      `json:"-"`
}

func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (CreateOrderResult, error) {
	order, err := s.buildOrder(in)
	if err != nil {
		return CreateOrderResult{}, err
	}

	if in.IdempotencyKey == "" || s.idempotency == nil {
		return s.persist(ctx, order)
	}

	key := idempotencyKeyPrefix + in.IdempotencyKey
	ok, err := s.idempotency.Reserve(ctx, key)
	if err != nil {
		return CreateOrderResult{}, fmt.Errorf("idempotency check failed: %w", err)
	}
	if !ok {
		return s.replay(ctx, key)
	}

	result, err := s.persist(ctx, order)

	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), idempotencyCleanupTimeout)
	defer cancel()

	if err != nil {
		if relErr := s.idempotency.Release(cleanupCtx, key); relErr != nil {
			s.logger.Warn("failed to release idempotency key", "key", in.IdempotencyKey, "error", relErr)
		}
		return CreateOrderResult{}, err
	}

	payload, err := json.Marshal(result)
	if err == nil {
		err = s.idempotency.Complete(cleanupCtx, key, payload)
	}
	if err != nil {
		// the order is committed; a retry will see the key as still in flight
		s.logger.Warn("failed to store idempotent result", "key", in.IdempotencyKey, "order_id", result.ID, "error", err)
	}
	return result, nil
}

func (s *OrderService) persist(ctx context.Context, order domain.PurchaseOrder) (CreateOrderResult, error) {
	id, err := s.ids.Next()
	if err != nil {
		return CreateOrderResult{}, err
	}
	order.ID = id

	saved, err := s.orders.CreateOrder(ctx, order)
	if err != nil {
		s.logger.Warn("purchase order rolled back", "order_id", id, "error", err)
		return CreateOrderResult{}, fmt.Errorf("create order: %w", err)
	}

	s.logger.Info("purchase order created",
		"order_id", saved.ID,
		"supplier", saved.SupplierName,
		"items", len(saved.Items),
		"total", saved.Total.StringFixed(2),
	)
	return CreateOrderResult{ID: saved.ID, IssueDate: saved.IssueDate}, nil
}

func (s *OrderService) replay(ctx context.Context, key string) (CreateOrderResult, error) {
	payload, completed, err := s.idempotency.Lookup(ctx, key)
	if err != nil {
		return CreateOrderResult{}, fmt.Errorf("idempotency lookup failed: %w", err)
	}
	if !completed {
		return CreateOrderResult{}, domain.ErrDuplicateRequest
	}

	var result CreateOrderResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return CreateOrderResult{}, fmt.Errorf("decode idempotent result: %w", err)
	}
	result.Replayed = true
	return result, nil
}

func (s *OrderService) buildOrder(in CreateOrderInput) (domain.PurchaseOrder, error) {
	supplierName := strings.TrimSpace(in.SupplierName)
	buyer := strings.TrimSpace(in.Buyer)
	switch {
	case supplierName == "":
		return domain.PurchaseOrder{}, fmt.Errorf("%w: supplier name is required", domain.ErrInvalidOrder)
	case buyer == "":
		return domain.PurchaseOrder{}, fmt.Errorf("%w: buyer is required", domain.ErrInvalidOrder)
	case in.EstimatedDelivery.IsZero():
		return domain.PurchaseOrder{}, fmt.Errorf("%w: estimated delivery is required", domain.ErrInvalidOrder)
	case len(in.Items) == 0:
		return domain.PurchaseOrder{}, fmt.Errorf("%w: at least one line item is required", domain.ErrInvalidOrder)
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = s.defaults.Currency
	}
	if len(currency) != 3 {
		return domain.PurchaseOrder{}, fmt.Errorf("%w: currency must be a 3-letter code", domain.ErrInvalidOrder)
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = s.defaults.Category
	}

	items := make([]domain.LineItem, 0, len(in.Items))
	for i, it := range in.Items {
		li := domain.LineItem{
			Position:    i + 1,
			SKU:         strings.TrimSpace(it.SKU),
			Description: strings.TrimSpace(it.Description),
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Unit:        strings.TrimSpace(it.Unit),
			Discount:    it.Discount,
			TaxRate:     s.defaults.TaxRate,
		}
		if li.Unit == "" {
			li.Unit = s.defaults.Unit
		}
		if it.TaxRate != nil {
			li.TaxRate = *it.TaxRate
		}
		if err := li.Validate(); err != nil {
			return domain.PurchaseOrder{}, err
		}
		items = append(items, li.Price())
	}

	totals := domain.SumLines(items)
	if err := totals.Validate(); err != nil {
		return domain.PurchaseOrder{}, err
	}
	if in.Totals != nil && !totals.Matches(*in.Totals) {
		return domain.PurchaseOrder{}, fmt.Errorf("%w: totals do not match line items (expected total %s)",
			domain.ErrInvalidOrder, totals.Total.StringFixed(2))
	}

	return domain.PurchaseOrder{
		SupplierName:      supplierName,
		SupplierTaxID:     strings.TrimSpace(in.SupplierTaxID),
		EstimatedDelivery: in.EstimatedDelivery,
		Warehouse:         strings.TrimSpace(in.Warehouse),
		Buyer:             buyer,
		PaymentTerms:      strings.TrimSpace(in.PaymentTerms),
		Currency:          currency,
		Category:          category,
		Notes:             in.Notes,
		Subtotal:          totals.Subtotal,
		Tax:               totals.Tax,
		Total:             totals.Total,
		Status:            domain.OrderStatusPendingApproval,
		Items:             items,
		Timeline:          domain.InitialTimeline(buyer),
	}, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (domain.PurchaseOrder, error) {
	order, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return domain.PurchaseOrder{}, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return domain.PurchaseOrder{}, domain.ErrOrderNotFound
	}
	return *order, nil
}

func (s *OrderService) ListOrders(ctx context.Context) ([]domain.OrderSummary, error) {
	orders, err := s.orders.ListOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if orders == nil {
		orders = []domain.OrderSummary{}
	}
	return orders, nil
}

func (s *OrderService) Approve(ctx context.Context, id, actor string) (domain.PurchaseOrder, error) {
	return s.transition(ctx, id, actor, domain.OrderStatusApproved, domain.StageApproved, "")
}

func (s *OrderService) Reject(ctx context.Context, id, actor, reason string) (domain.PurchaseOrder, error) {
	return s.transition(ctx, id, actor, domain.OrderStatusRejected, domain.StageRejected, strings.TrimSpace(reason))
}

func (s *OrderService) transition(ctx context.Context, id, actor string, to domain.OrderStatus, stage, note string) (domain.PurchaseOrder, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return domain.PurchaseOrder{}, fmt.Errorf("%w: actor is required", domain.ErrInvalidOrder)
	}

	event := domain.TimelineEvent{Stage: stage, Actor: actor, Completed: true, Note: note}
	if err := s.orders.TransitionOrder(ctx, id, domain.OrderStatusPendingApproval, to, event); err != nil {
		return domain.PurchaseOrder{}, fmt.Errorf("transition order: %w", err)
	}
	s.logger.Info("purchase order status changed", "order_id", id, "status", to, "actor", actor)

	return s.GetOrder(ctx, id)
}
