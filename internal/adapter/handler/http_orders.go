package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

func (h *HTTPHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if key := strings.TrimSpace(r.Header.Get(idempotencyHeader)); key != "" {
		req.IdempotencyKey = key
	}

	in, err := req.toInput()
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	result, err := h.orders.CreateOrder(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if result.Replayed {
		w.Header().Set(replayedHeader, "true")
	}
	writeJSON(w, http.StatusOK, CreateOrderResponse{ID: result.ID, IssueDate: result.IssueDate})
}

func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(order))
}

func (h *HTTPHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListOrders(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	resp := make([]OrderSummaryResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, newOrderSummaryResponse(o))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) ApproveOrder(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	order, err := h.orders.Approve(r.Context(), chi.URLParam(r, "id"), req.Actor)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(order))
}

func (h *HTTPHandler) RejectOrder(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	order, err := h.orders.Reject(r.Context(), chi.URLParam(r, "id"), req.Actor, req.Reason)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(order))
}
