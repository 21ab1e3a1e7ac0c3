package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/purchasing/internal/core/domain"
	"github.com/rl1809/purchasing/internal/core/service"
)

const dateLayout = "2006-01-02"

type SupplierRef struct {
	Name  string `json:"name"`
	TaxID string `json:"taxId"`
}

type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

type LineItemRequest struct {
	SKU         string           `json:"sku"`
	Description string           `json:"description"`
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitPrice   decimal.Decimal  `json:"unitPrice"`
	Unit        string           `json:"unit,omitempty"`
	Discount    decimal.Decimal  `json:"discount"`
	TaxRate     *decimal.Decimal `json:"taxRate,omitempty"`
}

// CreateOrderRequest is the body of POST /api/purchase-orders. EstimatedDelivery
// accepts a calendar date (2006-01-02) or an RFC 3339 timestamp.
type CreateOrderRequest struct {
	IdempotencyKey    string            `json:"idempotencyKey,omitempty"`
	Supplier          SupplierRef       `json:"supplier"`
	EstimatedDelivery string            `json:"estimatedDelivery"`
	Warehouse         string            `json:"warehouse"`
	Buyer             string            `json:"buyer"`
	PaymentTerms      string            `json:"paymentTerms"`
	Currency          string            `json:"currency,omitempty"`
	Category          string            `json:"category,omitempty"`
	Notes             string            `json:"notes"`
	Totals            *Totals           `json:"totals,omitempty"`
	Items             []LineItemRequest `json:"items"`
}

func (r CreateOrderRequest) toInput() (service.CreateOrderInput, error) {
	delivery, err := parseDate(r.EstimatedDelivery)
	if err != nil {
		return service.CreateOrderInput{}, fmt.Errorf("%w: estimatedDelivery: %v", domain.ErrInvalidOrder, err)
	}

	in := service.CreateOrderInput{
		IdempotencyKey:    r.IdempotencyKey,
		SupplierName:      r.Supplier.Name,
		SupplierTaxID:     r.Supplier.TaxID,
		EstimatedDelivery: delivery,
		Warehouse:         r.Warehouse,
		Buyer:             r.Buyer,
		PaymentTerms:      r.PaymentTerms,
		Currency:          r.Currency,
		Category:          r.Category,
		Notes:             r.Notes,
		Items:             make([]service.LineItemInput, 0, len(r.Items)),
	}
	if r.Totals != nil {
		in.Totals = &domain.Totals{Subtotal: r.Totals.Subtotal, Tax: r.Totals.Tax, Total: r.Totals.Total}
	}
	for _, it := range r.Items {
		in.Items = append(in.Items, service.LineItemInput{
			SKU:         it.SKU,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Unit:        it.Unit,
			Discount:    it.Discount,
			TaxRate:     it.TaxRate,
		})
	}
	return in, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("required")
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD")
	}
	return t.UTC(), nil
}

type CreateOrderResponse struct {
	ID        string    `json:"id"`
	IssueDate time.Time `json:"issueDate"`
}

type GetOrderRequest struct {
	ID string `json:"id"`
}

type LineItemResponse struct {
	Position    int    `json:"position"`
	SKU         string `json:"sku"`
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unitPrice"`
	Unit        string `json:"unit"`
	Discount    string `json:"discount"`
	TaxRate     string `json:"taxRate"`
	Subtotal    string `json:"subtotal"`
	Tax         string `json:"tax"`
	Total       string `json:"total"`
}

type TimelineResponse struct {
	Stage      string    `json:"stage"`
	OccurredAt time.Time `json:"occurredAt"`
	Actor      string    `json:"actor"`
	Completed  bool      `json:"completed"`
	Note       string    `json:"note,omitempty"`
}

type OrderResponse struct {
	ID                string             `json:"id"`
	Supplier          SupplierRef        `json:"supplier"`
	IssueDate         time.Time          `json:"issueDate"`
	EstimatedDelivery string             `json:"estimatedDelivery"`
	Warehouse         string             `json:"warehouse"`
	Buyer             string             `json:"buyer"`
	PaymentTerms      string             `json:"paymentTerms"`
	Currency          string             `json:"currency"`
	Category          string             `json:"category"`
	Notes             string             `json:"notes"`
	Subtotal          string             `json:"subtotal"`
	Tax               string             `json:"tax"`
	Total             string             `json:"total"`
	Status            string             `json:"status"`
	Items             []LineItemResponse `json:"items"`
	Timeline          []TimelineResponse `json:"timeline"`
}

func newOrderResponse(o domain.PurchaseOrder) OrderResponse {
	resp := OrderResponse{
		ID:                o.ID,
		Supplier:          SupplierRef{Name: o.SupplierName, TaxID: o.SupplierTaxID},
		IssueDate:         o.IssueDate,
		EstimatedDelivery: o.EstimatedDelivery.Format(dateLayout),
		Warehouse:         o.Warehouse,
		Buyer:             o.Buyer,
		PaymentTerms:      o.PaymentTerms,
		Currency:          o.Currency,
		Category:          o.Category,
		Notes:             o.Notes,
		Subtotal:          o.Subtotal.StringFixed(2),
		Tax:               o.Tax.StringFixed(2),
		Total:             o.Total.StringFixed(2),
		Status:            string(o.Status),
		Items:             make([]LineItemResponse, 0, len(o.Items)),
		Timeline:          make([]TimelineResponse, 0, len(o.Timeline)),
	}
	for _, li := range o.Items {
		resp.Items = append(resp.Items, LineItemResponse{
			Position:    li.Position,
			SKU:         li.SKU,
			Description: li.Description,
			Quantity:    li.Quantity.String(),
			UnitPrice:   li.UnitPrice.String(),
			Unit:        li.Unit,
			Discount:    li.Discount.StringFixed(2),
			TaxRate:     li.TaxRate.String(),
			Subtotal:    li.Subtotal.StringFixed(2),
			Tax:         li.Tax.StringFixed(2),
			Total:       li.Total.StringFixed(2),
		})
	}
	for _, ev := range o.Timeline {
		resp.Timeline = append(resp.Timeline, TimelineResponse{
			Stage:      ev.Stage,
			OccurredAt: ev.OccurredAt,
			Actor:      ev.Actor,
			Completed:  ev.Completed,
			Note:       ev.Note,
		})
	}
	return resp
}

type OrderSummaryResponse struct {
	ID                string    `json:"id"`
	SupplierName      string    `json:"supplierName"`
	IssueDate         time.Time `json:"issueDate"`
	EstimatedDelivery string    `json:"estimatedDelivery"`
	Warehouse         string    `json:"warehouse"`
	Buyer             string    `json:"buyer"`
	Currency          string    `json:"currency"`
	Category          string    `json:"category"`
	Total             string    `json:"total"`
	Status            string    `json:"status"`
	ItemCount         int       `json:"itemCount"`
}

func newOrderSummaryResponse(s domain.OrderSummary) OrderSummaryResponse {
	return OrderSummaryResponse{
		ID:                s.ID,
		SupplierName:      s.SupplierName,
		IssueDate:         s.IssueDate,
		EstimatedDelivery: s.EstimatedDelivery.Format(dateLayout),
		Warehouse:         s.Warehouse,
		Buyer:             s.Buyer,
		Currency:          s.Currency,
		Category:          s.Category,
		Total:             s.Total.StringFixed(2),
		Status:            string(s.Status),
		ItemCount:         s.ItemCount,
	}
}

type transitionRequest struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason,omitempty"`
}

type supplierRequest struct {
	Name         string `json:"name"`
	TaxID        string `json:"taxId"`
	ContactName  string `json:"contactName"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	PaymentTerms string `json:"paymentTerms"`
}

func (r supplierRequest) toInput() service.SupplierInput {
	return service.SupplierInput{
		Name:         r.Name,
		TaxID:        r.TaxID,
		ContactName:  r.ContactName,
		Email:        r.Email,
		Phone:        r.Phone,
		Address:      r.Address,
		PaymentTerms: r.PaymentTerms,
	}
}

type supplierResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	TaxID        string    `json:"taxId"`
	ContactName  string    `json:"contactName"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Address      string    `json:"address"`
	PaymentTerms string    `json:"paymentTerms"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func newSupplierResponse(s domain.Supplier) supplierResponse {
	return supplierResponse{
		ID:           s.ID,
		Name:         s.Name,
		TaxID:        s.TaxID,
		ContactName:  s.ContactName,
		Email:        s.Email,
		Phone:        s.Phone,
		Address:      s.Address,
		PaymentTerms: s.PaymentTerms,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

type deleteResponse struct {
	Deleted      bool  `json:"deleted"`
	AffectedRows int64 `json:"affectedRows"`
}
