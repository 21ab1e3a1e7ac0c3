package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func (h *HTTPHandler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.suppliers.List(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	resp := make([]supplierResponse, 0, len(suppliers))
	for _, s := range suppliers {
		resp = append(resp, newSupplierResponse(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) GetSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := supplierID(w, r)
	if !ok {
		return
	}

	s, err := h.suppliers.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSupplierResponse(s))
}

func (h *HTTPHandler) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req supplierRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	s, err := h.suppliers.Create(r.Context(), req.toInput())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSupplierResponse(s))
}

func (h *HTTPHandler) UpdateSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := supplierID(w, r)
	if !ok {
		return
	}

	var req supplierRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	s, err := h.suppliers.Update(r.Context(), id, req.toInput())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSupplierResponse(s))
}

// DeleteSupplier answers 200 even when nothing matched; the caller reads
// affectedRows to tell the cases apart.
func (h *HTTPHandler) DeleteSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := supplierID(w, r)
	if !ok {
		return
	}

	res, err := h.suppliers.Delete(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Deleted: res.Deleted, AffectedRows: res.AffectedRows})
}

func supplierID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "supplier id must be a positive integer")
		return 0, false
	}
	return id, true
}
