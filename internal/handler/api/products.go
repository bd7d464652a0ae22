// Package api contains the JSON API handlers for the storefront and admin
// surfaces.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tmcewen/vanir/internal/domain"
	"github.com/tmcewen/vanir/internal/handler"
)

// ProductHandler serves catalog endpoints.
type ProductHandler struct {
	products domain.ProductService
}

// NewProductHandler creates a product handler.
func NewProductHandler(products domain.ProductService) *ProductHandler {
	return &ProductHandler{products: products}
}

// productResponse is the JSON shape of a product.
type productResponse struct {
	ID          uuid.UUID             `json:"id"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Category    domain.Category       `json:"category"`
	Price       int64                 `json:"price"`
	OldPrice    *int64                `json:"oldPrice,omitempty"`
	Stock       int                   `json:"stock"`
	IsAvailable bool                  `json:"isAvailable"`
	Images      []domain.ProductImage `json:"images"`
	Rating      domain.Rating         `json:"rating"`
	CreatedAt   time.Time             `json:"createdAt"`
	UpdatedAt   time.Time             `json:"updatedAt"`
}

func toProductResponse(p *domain.Product) productResponse {
	images := p.Images
	if images == nil {
		images = []domain.ProductImage{}
	}
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Price:       p.PriceCents,
		OldPrice:    p.OldPriceCents,
		Stock:       p.Stock,
		IsAvailable: p.IsAvailable,
		Images:      images,
		Rating:      p.Rating,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// pathID extracts the {id} path value as a UUID.
func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, domain.Invalid("handler.path_id", "invalid resource id")
	}
	return id, nil
}

// List handles GET /api/products.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := domain.ProductFilter{
		Page:    queryInt(r, "page", 1),
		PerPage: queryInt(r, "perPage", 0),
	}
	if c := r.URL.Query().Get("category"); c != "" {
		category := domain.Category(c)
		filter.Category = &category
	}
	if r.URL.Query().Get("available") == "true" {
		filter.AvailableOnly = true
	}

	page, err := h.products.ListProducts(r.Context(), filter)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	items := make([]productResponse, len(page.Products))
	for i := range page.Products {
		items[i] = toProductResponse(&page.Products[i])
	}
	handler.OKPage(w, items, handler.NewPagination(page.Page, page.PerPage, page.TotalItems))
}

// Get handles GET /api/products/{id}.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	product, err := h.products.GetProduct(r.Context(), id)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.OK(w, http.StatusOK, "", toProductResponse(product))
}

type createProductRequest struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Category    domain.Category       `json:"category"`
	Price       int64                 `json:"price"`
	OldPrice    *int64                `json:"oldPrice"`
	Stock       int                   `json:"stock"`
	Images      []domain.ProductImage `json:"images"`
}

// Create handles POST /api/admin/products.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	product, err := h.products.CreateProduct(r.Context(), domain.CreateProductParams{
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		PriceCents:    req.Price,
		OldPriceCents: req.OldPrice,
		Stock:         req.Stock,
		Images:        req.Images,
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.OK(w, http.StatusCreated, "Product created", toProductResponse(product))
}

type updateProductRequest struct {
	Name        *string               `json:"name"`
	Description *string               `json:"description"`
	Category    *domain.Category      `json:"category"`
	Price       *int64                `json:"price"`
	OldPrice    *int64                `json:"oldPrice"`
	Images      []domain.ProductImage `json:"images"`
	IsAvailable *bool                 `json:"isAvailable"`
}

// Update handles PATCH /api/admin/products/{id}.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	var req updateProductRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	product, err := h.products.UpdateProduct(r.Context(), id, domain.UpdateProductParams{
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		PriceCents:    req.Price,
		OldPriceCents: req.OldPrice,
		Images:        req.Images,
		IsAvailable:   req.IsAvailable,
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.OK(w, http.StatusOK, "Product updated", toProductResponse(product))
}

// Delete handles DELETE /api/admin/products/{id}.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	if err := h.products.DeleteProduct(r.Context(), id); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.OK(w, http.StatusOK, "Product deleted", nil)
}

type updateStockRequest struct {
	Quantity  int            `json:"quantity"`
	Operation domain.StockOp `json:"operation"`
}

// UpdateStock handles PATCH /api/admin/products/{id}/stock.
func (h *ProductHandler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	var req updateStockRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if req.Operation == "" {
		req.Operation = domain.StockOpSet
	}

	product, err := h.products.UpdateStock(r.Context(), id, req.Quantity, req.Operation)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.OK(w, http.StatusOK, "Stock updated", toProductResponse(product))
}

type addReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// AddReview handles POST /api/products/{id}/reviews.
func (h *ProductHandler) AddReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	var req addReviewRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	product, err := h.products.AddReview(r.Context(), id, req.Rating, req.Comment)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.OK(w, http.StatusCreated, "Review added", toProductResponse(product))
}

// queryInt parses an integer query parameter with a fallback.
func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
