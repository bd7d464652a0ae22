package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tmcewen/vanir/internal/domain"
	"github.com/tmcewen/vanir/internal/handler"
)

// OrderHandler serves checkout and order lifecycle endpoints.
type OrderHandler struct {
	checkout domain.CheckoutService
	orders   domain.OrderService
}

// NewOrderHandler creates an order handler.
func NewOrderHandler(checkout domain.CheckoutService, orders domain.OrderService) *OrderHandler {
	return &OrderHandler{checkout: checkout, orders: orders}
}

type orderItemResponse struct {
	ProductID uuid.UUID `json:"productId"`
	Name      string    `json:"name"`
	Image     string    `json:"image,omitempty"`
	Price     int64     `json:"price"`
	Quantity  int       `json:"quantity"`
	Total     int64     `json:"total"`
}

type paymentResponse struct {
	Method string     `json:"method"`
	Status string     `json:"status"`
	Amount int64      `json:"amount"`
	PaidAt *time.Time `json:"paidAt,omitempty"`
}

type orderResponse struct {
	ID              uuid.UUID              `json:"id"`
	OrderNumber     string                 `json:"orderNumber"`
	Status          domain.OrderStatus     `json:"status"`
	Items           []orderItemResponse    `json:"items"`
	ShippingAddress domain.ShippingAddress `json:"shippingAddress"`
	Payment         paymentResponse        `json:"payment"`
	Subtotal        int64                  `json:"subtotal"`
	Shipping        int64                  `json:"shipping"`
	Tax             int64                  `json:"tax"`
	Total           int64                  `json:"total"`
	Notes           string                 `json:"notes,omitempty"`
	Tracking        *domain.TrackingInfo   `json:"tracking,omitempty"`
	CancelReason    string                 `json:"cancellationReason,omitempty"`
	ShippedAt       *time.Time             `json:"shippedAt,omitempty"`
	DeliveredAt     *time.Time             `json:"deliveredAt,omitempty"`
	CancelledAt     *time.Time             `json:"cancelledAt,omitempty"`
	CreatedAt       time.Time              `json:"createdAt"`
}

func toOrderResponse(o *domain.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = orderItemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			Image:     item.ImageURL,
			Price:     item.PriceCents,
			Quantity:  item.Quantity,
			Total:     item.TotalCents,
		}
	}
	return orderResponse{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		Status:          o.Status,
		Items:           items,
		ShippingAddress: o.ShippingAddress,
		Payment: paymentResponse{
			Method: string(o.Payment.Method),
			Status: string(o.Payment.Status),
			Amount: o.Payment.AmountCents,
			PaidAt: o.Payment.PaidAt,
		},
		Subtotal:     o.SubtotalCents,
		Shipping:     o.ShippingCents,
		Tax:          o.TaxCents,
		Total:        o.TotalCents,
		Notes:        o.Notes,
		Tracking:     o.Tracking,
		CancelReason: o.CancellationReason,
		ShippedAt:    o.ShippedAt,
		DeliveredAt:  o.DeliveredAt,
		CancelledAt:  o.CancelledAt,
		CreatedAt:    o.CreatedAt,
	}
}

type createOrderRequest struct {
	ShippingAddress domain.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   domain.PaymentMethod   `json:"paymentMethod"`
	Notes           string                 `json:"notes"`
}

// Create handles POST /api/orders, converting the user's cart to an order.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	order, err := h.checkout.CreateOrder(r.Context(), domain.CreateOrderParams{
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.OK(w, http.StatusCreated, "Order placed", toOrderResponse(order))
}

// ListMine handles GET /api/orders.
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListMyOrders(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	items := make([]orderResponse, len(orders))
	for i := range orders {
		items[i] = toOrderResponse(&orders[i])
	}
	handler.OK(w, http.StatusOK, "", items)
}

// Get handles GET /api/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	order, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.OK(w, http.StatusOK, "", toOrderResponse(order))
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

// Cancel handles POST /api/orders/{id}/cancel.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	// The reason payload is optional.
	var req cancelOrderRequest
	if r.ContentLength != 0 {
		if err := handler.DecodeJSON(r, &req); err != nil {
			handler.ErrorResponse(w, r, err)
			return
		}
	}

	order, err := h.orders.UpdateStatus(r.Context(), id, domain.OrderStatusCancelled, req.Reason)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.OK(w, http.StatusOK, "Order cancelled", toOrderResponse(order))
}

type refundResponse struct {
	RefundAmount int64 `json:"refundAmount"`
}

// Refund handles GET /api/orders/{id}/refund.
func (h *OrderHandler) Refund(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	amount, err := h.orders.RefundAmount(r.Context(), id)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.OK(w, http.StatusOK, "", refundResponse{RefundAmount: amount})
}
