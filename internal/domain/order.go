package domain

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ORDER DOMAIN TYPES
// =============================================================================

// OrderStatus is one state of the order lifecycle.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// orderTransitions is the explicit state machine: each status maps to the set
// of statuses it may move to. Terminal states map to the empty set.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s OrderStatus) bool {
	_, ok := orderTransitions[s]
	return ok
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status has no further allowed transitions.
func IsTerminal(s OrderStatus) bool {
	return len(orderTransitions[s]) == 0
}

// PaymentMethod is how the customer pays.
type PaymentMethod string

const (
	PaymentMethodCard       PaymentMethod = "card"
	PaymentMethodCOD        PaymentMethod = "cod"
	PaymentMethodUPI        PaymentMethod = "upi"
	PaymentMethodNetBanking PaymentMethod = "netbanking"
)

// ValidPaymentMethod reports whether m is a known payment method.
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentMethodCard, PaymentMethodCOD, PaymentMethodUPI, PaymentMethodNetBanking:
		return true
	}
	return false
}

// PaymentStatus is the state of the payment attached to an order.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// PaymentInfo records how an order is paid. Actual payment processing is an
// external collaborator; this core only tracks the recorded state.
type PaymentInfo struct {
	Method      PaymentMethod `json:"method"`
	Status      PaymentStatus `json:"status"`
	AmountCents int64         `json:"amount"`
	PaidAt      *time.Time    `json:"paidAt,omitempty"`
}

// ShippingAddress is where an order ships. All fields except Country are
// required at checkout; Country defaults when empty.
type ShippingAddress struct {
	FullName string `json:"fullName" validate:"required"`
	Street   string `json:"street" validate:"required"`
	City     string `json:"city" validate:"required"`
	State    string `json:"state" validate:"required"`
	ZipCode  string `json:"zipCode" validate:"required"`
	Phone    string `json:"phone" validate:"required"`
	Country  string `json:"country"`
}

// DefaultCountry fills ShippingAddress.Country when the client omits it.
const DefaultCountry = "India"

// TrackingInfo is optional carrier tracking attached once an order ships.
type TrackingInfo struct {
	Carrier string `json:"carrier"`
	Number  string `json:"number"`
}

// OrderItem is a frozen copy of a product line captured at checkout time.
// Later product changes or deletions never alter it.
type OrderItem struct {
	ProductID  uuid.UUID
	Name       string
	ImageURL   string
	PriceCents int64
	Quantity   int
	TotalCents int64
}

// Order is an immutable snapshot of cart contents at checkout time, carrying
// its own status state machine. Only ApplyStatus mutates it after creation.
type Order struct {
	ID          uuid.UUID
	OrderNumber string
	UserID      uuid.UUID

	Items           []OrderItem
	ShippingAddress ShippingAddress
	Payment         PaymentInfo

	Status OrderStatus

	SubtotalCents int64
	ShippingCents int64
	TaxCents      int64
	TotalCents    int64

	Notes              string
	Tracking           *TrackingInfo
	CancellationReason string

	ShippedAt   *time.Time
	DeliveredAt *time.Time
	CancelledAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ApplyStatus transitions the order to next, enforcing the state machine and
// performing the per-transition side effects:
//
//   - shipped:   stamps ShippedAt
//   - delivered: stamps DeliveredAt, forces payment to paid and stamps PaidAt
//   - cancelled: stamps CancelledAt and records notes as the cancellation reason
//
// Stock restoration on cancellation is the caller's responsibility; this
// method only mutates the order itself.
func (o *Order) ApplyStatus(next OrderStatus, notes string, now time.Time) error {
	if !ValidOrderStatus(next) {
		return Errorf(EINVALID, "order.apply_status", "unknown order status: %s", next)
	}
	if !CanTransition(o.Status, next) {
		return ErrInvalidTransition
	}

	o.Status = next
	switch next {
	case OrderStatusShipped:
		o.ShippedAt = &now
	case OrderStatusDelivered:
		o.DeliveredAt = &now
		o.Payment.Status = PaymentStatusPaid
		o.Payment.PaidAt = &now
	case OrderStatusCancelled:
		o.CancelledAt = &now
		o.CancellationReason = notes
	}
	o.UpdatedAt = now
	return nil
}

// RefundAmountCents returns the full order total when the order is cancelled,
// paid, and was never dispatched; otherwise 0. No refund after dispatch.
func (o *Order) RefundAmountCents() int64 {
	if o.Status == OrderStatusCancelled && o.Payment.Status == PaymentStatusPaid && o.ShippedAt == nil {
		return o.TotalCents
	}
	return 0
}

// NewOrderNumber generates a human-readable unique order identifier:
// an uppercased timestamp plus random suffix, e.g. ORD-20250129-A3K9.
func NewOrderNumber(now time.Time) string {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failing means the platform is broken; fall back to
		// nanoseconds so order creation still proceeds.
		return strings.ToUpper(fmt.Sprintf("ORD-%s-%04d", now.Format("20060102"), now.Nanosecond()%10000))
	}
	for i := range b {
		b[i] = alphabet[int(b[i])%len(alphabet)]
	}
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), string(b))
}

// =============================================================================
// SERVICE INTERFACES
// =============================================================================

// OrderFilter contains optional filters for admin order listing.
type OrderFilter struct {
	Status  *OrderStatus
	From    *time.Time
	To      *time.Time
	Page    int
	PerPage int
}

// OrderPage is one page of order listing results.
type OrderPage struct {
	Orders     []Order
	TotalItems int64
	Page       int
	PerPage    int
}

// OrderService provides business logic for order lifecycle operations.
type OrderService interface {
	// GetOrder retrieves an order. Users see only their own orders;
	// admins see all.
	GetOrder(ctx context.Context, id uuid.UUID) (*Order, error)

	// ListMyOrders returns the authenticated user's orders, newest first.
	ListMyOrders(ctx context.Context) ([]Order, error)

	// ListOrders returns a filtered page of all orders (admin).
	ListOrders(ctx context.Context, filter OrderFilter) (*OrderPage, error)

	// UpdateStatus drives the state machine. Users may only cancel their
	// own orders while pending or confirmed; admins may drive any allowed
	// transition. Cancellation restores stock for every order item.
	UpdateStatus(ctx context.Context, id uuid.UUID, next OrderStatus, notes string) (*Order, error)

	// SetTracking attaches carrier tracking to a shipped order (admin).
	SetTracking(ctx context.Context, id uuid.UUID, tracking TrackingInfo) (*Order, error)

	// RefundAmount reports the refundable amount for an order.
	RefundAmount(ctx context.Context, id uuid.UUID) (int64, error)

	// DeleteOrder removes an order; permitted only when cancelled (admin).
	DeleteOrder(ctx context.Context, id uuid.UUID) error
}

// CheckoutConfig carries the pricing constants applied at checkout.
// Promoted to explicit configuration rather than schema defaults.
type CheckoutConfig struct {
	ShippingCents int64
	TaxCents      int64
}

// CheckoutService converts a cart into an order.
type CheckoutService interface {
	// CreateOrder validates the shipping address and every cart line
	// against live product state, snapshots the cart into an order,
	// decrements stock, and clears the cart. Validation is
	// all-or-nothing: the first failing line aborts the checkout with no
	// partial order and no stock mutation.
	CreateOrder(ctx context.Context, params CreateOrderParams) (*Order, error)
}

// CreateOrderParams contains parameters for checkout.
type CreateOrderParams struct {
	ShippingAddress ShippingAddress
	PaymentMethod   PaymentMethod
	Notes           string
}

// =============================================================================
// DOMAIN ERRORS
// =============================================================================

var (
	ErrOrderNotFound        = &Error{Code: ENOTFOUND, Message: "Order not found"}
	ErrEmptyCart            = &Error{Code: EINVALID, Message: "Cart is empty"}
	ErrInvalidTransition    = &Error{Code: ECONFLICT, Message: "Order status transition not allowed"}
	ErrInvalidPaymentMethod = &Error{Code: EINVALID, Message: "Invalid payment method"}
	ErrOrderNotCancelled    = &Error{Code: ECONFLICT, Message: "Only cancelled orders can be deleted"}
	ErrNotShipped           = &Error{Code: ECONFLICT, Message: "Tracking can only be set on shipped orders"}
)
