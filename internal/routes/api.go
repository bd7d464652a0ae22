// Package routes defines the HTTP route table.
package routes

import (
	"net/http"

	"github.com/tmcewen/vanir/internal/middleware"
	"github.com/tmcewen/vanir/internal/router"
)

// Register registers all API routes on the router.
func Register(r *router.Router, deps Deps) {
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK")) //nolint:errcheck
	})
	r.Handle(http.MethodGet, "/metrics", deps.Metrics.Handler())

	// Public catalog
	r.Get("/api/products", deps.ProductHandler.List)
	r.Get("/api/products/{id}", deps.ProductHandler.Get)

	// Authenticated storefront
	auth := r.Group(deps.Auth.Authenticate)

	auth.Post("/api/products/{id}/reviews", deps.ProductHandler.AddReview)

	auth.Get("/api/cart", deps.CartHandler.Get)
	auth.Delete("/api/cart", deps.CartHandler.Clear)
	auth.Post("/api/cart/items", deps.CartHandler.AddItem)
	auth.Patch("/api/cart/items/{id}", deps.CartHandler.UpdateItem)
	auth.Delete("/api/cart/items/{id}", deps.CartHandler.RemoveItem)
	auth.Post("/api/cart/validate", deps.CartHandler.Validate)

	auth.Post("/api/orders", deps.OrderHandler.Create)
	auth.Get("/api/orders", deps.OrderHandler.ListMine)
	auth.Get("/api/orders/{id}", deps.OrderHandler.Get)
	auth.Post("/api/orders/{id}/cancel", deps.OrderHandler.Cancel)
	auth.Get("/api/orders/{id}/refund", deps.OrderHandler.Refund)

	// Admin
	admin := r.Group(deps.Auth.Authenticate, middleware.RequireAdmin)

	admin.Post("/api/admin/products", deps.ProductHandler.Create)
	admin.Patch("/api/admin/products/{id}", deps.ProductHandler.Update)
	admin.Delete("/api/admin/products/{id}", deps.ProductHandler.Delete)
	admin.Patch("/api/admin/products/{id}/stock", deps.ProductHandler.UpdateStock)

	admin.Get("/api/admin/orders", deps.AdminOrderHandler.List)
	admin.Patch("/api/admin/orders/{id}/status", deps.AdminOrderHandler.UpdateStatus)
	admin.Put("/api/admin/orders/{id}/tracking", deps.AdminOrderHandler.SetTracking)
	admin.Delete("/api/admin/orders/{id}", deps.AdminOrderHandler.Delete)
}
