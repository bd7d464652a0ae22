package routes

import (
	"github.com/tmcewen/vanir/internal/handler/api"
	"github.com/tmcewen/vanir/internal/middleware"
)

// Deps contains the handlers and middleware the route table wires together.
type Deps struct {
	// Catalog (public reads, admin writes)
	ProductHandler *api.ProductHandler

	// Cart
	CartHandler *api.CartHandler

	// Orders
	OrderHandler      *api.OrderHandler
	AdminOrderHandler *api.AdminOrderHandler

	Auth    *middleware.Authenticator
	Metrics *middleware.Metrics
}
