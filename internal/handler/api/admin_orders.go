package api

import (
	"net/http"
	"time"

	"github.com/tmcewen/vanir/internal/domain"
	"github.com/tmcewen/vanir/internal/handler"
)

// AdminOrderHandler serves the admin order management endpoints.
type AdminOrderHandler struct {
	orders domain.OrderService
}

// NewAdminOrderHandler creates an admin order handler.
func NewAdminOrderHandler(orders domain.OrderService) *AdminOrderHandler {
	return &AdminOrderHandler{orders: orders}
}

// List handles GET /api/admin/orders with optional status and date filters.
func (h *AdminOrderHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := domain.OrderFilter{
		Page:    queryInt(r, "page", 1),
		PerPage: queryInt(r, "perPage", 0),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status := domain.OrderStatus(s)
		filter.Status = &status
	}
	if from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from")); err == nil {
		filter.From = &from
	}
	if to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to")); err == nil {
		filter.To = &to
	}

	page, err := h.orders.ListOrders(r.Context(), filter)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	items := make([]orderResponse, len(page.Orders))
	for i := range page.Orders {
		items[i] = toOrderResponse(&page.Orders[i])
	}
	handler.OKPage(w, items, handler.NewPagination(page.Page, page.PerPage, page.TotalItems))
}

type updateStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
	Notes  string             `json:"notes"`
}

// UpdateStatus handles PATCH /api/admin/orders/{id}/status.
func (h *AdminOrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	var req updateStatusRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), id, req.Status, req.Notes)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.OK(w, http.StatusOK, "Order status updated", toOrderResponse(order))
}

type setTrackingRequest struct {
	Carrier string `json:"carrier"`
	Number  string `json:"number"`
}

// SetTracking handles PUT /api/admin/orders/{id}/tracking.
func (h *AdminOrderHandler) SetTracking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	var req setTrackingRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	order, err := h.orders.SetTracking(r.Context(), id, domain.TrackingInfo{
		Carrier: req.Carrier,
		Number:  req.Number,
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.OK(w, http.StatusOK, "Tracking updated", toOrderResponse(order))
}

// Delete handles DELETE /api/admin/orders/{id}.
func (h *AdminOrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	if err := h.orders.DeleteOrder(r.Context(), id); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.OK(w, http.StatusOK, "Order deleted", nil)
}
