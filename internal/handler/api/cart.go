package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tmcewen/vanir/internal/domain"
	"github.com/tmcewen/vanir/internal/handler"
)

// CartHandler serves the authenticated user's cart.
type CartHandler struct {
	carts domain.CartService
}

// NewCartHandler creates a cart handler.
func NewCartHandler(carts domain.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

type cartItemResponse struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
	Price     int64     `json:"price"`
	Total     int64     `json:"total"`
}

type cartResponse struct {
	ID         uuid.UUID          `json:"id"`
	Items      []cartItemResponse `json:"items"`
	TotalItems int                `json:"totalItems"`
	TotalPrice int64              `json:"totalPrice"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

func toCartResponse(c *domain.Cart) cartResponse {
	items := make([]cartItemResponse, len(c.Items))
	for i, item := range c.Items {
		items[i] = cartItemResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.PriceCents,
			Total:     item.LineTotalCents(),
		}
	}
	return cartResponse{
		ID:         c.ID,
		Items:      items,
		TotalItems: c.TotalItems,
		TotalPrice: c.TotalPriceCents,
		UpdatedAt:  c.UpdatedAt,
	}
}

// Get handles GET /api/cart.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.GetCart(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.OK(w, http.StatusOK, "", toCartResponse(cart))
}

type addItemRequest struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
}

// AddItem handles POST /api/cart/items.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	cart, err := h.carts.AddItem(r.Context(), req.ProductID, req.Quantity)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.OK(w, http.StatusOK, "Item added to cart", toCartResponse(cart))
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateItem handles PATCH /api/cart/items/{id}.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	var req updateItemRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	cart, err := h.carts.UpdateItemQuantity(r.Context(), productID, req.Quantity)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.OK(w, http.StatusOK, "Cart updated", toCartResponse(cart))
}

// RemoveItem handles DELETE /api/cart/items/{id}.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	cart, err := h.carts.RemoveItem(r.Context(), productID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.OK(w, http.StatusOK, "Item removed", toCartResponse(cart))
}

// Clear handles DELETE /api/cart.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.ClearCart(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.OK(w, http.StatusOK, "Cart cleared", toCartResponse(cart))
}

type validateCartResponse struct {
	Cart    cartResponse       `json:"cart"`
	IsValid bool               `json:"isValid"`
	Issues  []domain.CartIssue `json:"issues"`
}

// Validate handles POST /api/cart/validate.
func (h *CartHandler) Validate(w http.ResponseWriter, r *http.Request) {
	cart, result, err := h.carts.ValidateCart(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	issues := result.Issues
	if issues == nil {
		issues = []domain.CartIssue{}
	}
	handler.OK(w, http.StatusOK, "", validateCartResponse{
		Cart:    toCartResponse(cart),
		IsValid: result.IsValid,
		Issues:  issues,
	})
}
