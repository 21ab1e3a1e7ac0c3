package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rl1809/purchasing/internal/core/domain"
	"github.com/rl1809/purchasing/internal/core/service"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"
	requestTimeout    = 30 * time.Second
	maxBodyBytes      = 1 << 20
)

var errTrailingData = errors.New("unexpected data after JSON body")

type OrderService interface {
	CreateOrder(ctx context.Context, in service.CreateOrderInput) (service.CreateOrderResult, error)
	GetOrder(ctx context.Context, id string) (domain.PurchaseOrder, error)
	ListOrders(ctx context.Context) ([]domain.OrderSummary, error)
	Approve(ctx context.Context, id, actor string) (domain.PurchaseOrder, error)
	Reject(ctx context.Context, id, actor, reason string) (domain.PurchaseOrder, error)
}

type SupplierService interface {
	List(ctx context.Context) ([]domain.Supplier, error)
	Get(ctx context.Context, id int64) (domain.Supplier, error)
	Create(ctx context.Context, in service.SupplierInput) (domain.Supplier, error)
	Update(ctx context.Context, id int64, in service.SupplierInput) (domain.Supplier, error)
	Delete(ctx context.Context, id int64) (service.DeleteResult, error)
}

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HTTPHandler struct {
	orders    OrderService
	suppliers SupplierService
	db        Pinger
	logger    *slog.Logger
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func NewHTTPHandler(orders OrderService, suppliers SupplierService, db Pinger, logger *slog.Logger) *HTTPHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPHandler{orders: orders, suppliers: suppliers, db: db, logger: logger}
}

// Routes returns the REST API mounted on a chi router.
func (h *HTTPHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", h.HealthCheck)

	r.Route("/api/suppliers", func(r chi.Router) {
		r.Get("/", h.ListSuppliers)
		r.Post("/", h.CreateSupplier)
		r.Get("/{id}", h.GetSupplier)
		r.Put("/{id}", h.UpdateSupplier)
		r.Delete("/{id}", h.DeleteSupplier)
	})

	r.Route("/api/purchase-orders", func(r chi.Router) {
		r.Get("/", h.ListOrders)
		r.Post("/", h.CreateOrder)
		r.Get("/{id}", h.GetOrder)
		r.Post("/{id}/approve", h.ApproveOrder)
		r.Post("/{id}/reject", h.RejectOrder)
	})

	return r
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			h.logger.Error("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return errTrailingData
	}
	return nil
}

// writeServiceError maps domain errors onto HTTP statuses. Anything it does not
// recognise is logged and reported as a generic 500.
func (h *HTTPHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidOrder), errors.Is(err, domain.ErrInvalidSupplier):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, domain.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order_not_found", "purchase order not found")
	case errors.Is(err, domain.ErrSupplierNotFound):
		writeError(w, http.StatusNotFound, "supplier_not_found", "supplier not found")
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", "purchase order is not pending approval")
	case errors.Is(err, domain.ErrDuplicateRequest):
		writeError(w, http.StatusConflict, "duplicate_request", "request with this idempotency key is in progress")
	default:
		h.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
