package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MaxLineQuantity caps how many units of one product a cart line may hold.
const MaxLineQuantity = 10

// =============================================================================
// CART DOMAIN TYPES
// =============================================================================

// CartItem is one cart line: a product reference with a quantity and the unit
// price snapshotted when the line was added.
type CartItem struct {
	ProductID  uuid.UUID
	Quantity   int
	PriceCents int64
}

// LineTotalCents returns quantity times the snapshotted unit price.
func (i CartItem) LineTotalCents() int64 {
	return int64(i.Quantity) * i.PriceCents
}

// Cart is a per-user mutable collection of lines with derived totals.
// Totals are never set directly; every mutation recomputes them before the
// cart is considered valid to persist.
type Cart struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Items  []CartItem

	TotalItems      int
	TotalPriceCents int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewCart returns an empty cart for the given user.
func NewCart(userID uuid.UUID) *Cart {
	return &Cart{
		ID:     uuid.New(),
		UserID: userID,
		Items:  []CartItem{},
	}
}

// recompute refreshes the derived totals from the current lines.
func (c *Cart) recompute() {
	items := 0
	var price int64
	for _, it := range c.Items {
		items += it.Quantity
		price += it.LineTotalCents()
	}
	c.TotalItems = items
	c.TotalPriceCents = price
}

// findLine returns the index of the line for productID, or -1.
func (c *Cart) findLine(productID uuid.UUID) int {
	for i, it := range c.Items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

// Item returns the line for productID, if present.
func (c *Cart) Item(productID uuid.UUID) (CartItem, bool) {
	if i := c.findLine(productID); i >= 0 {
		return c.Items[i], true
	}
	return CartItem{}, false
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// AddItem merges quantity into an existing line for the product or appends a
// new one. The caller must have already validated product existence,
// availability, and stock sufficiency, and passes the current unit price.
// Fails with ErrCartLimitExceeded when the merged quantity would exceed
// MaxLineQuantity; the cart is left unchanged on failure.
func (c *Cart) AddItem(productID uuid.UUID, quantity int, priceCents int64) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	if i := c.findLine(productID); i >= 0 {
		merged := c.Items[i].Quantity + quantity
		if merged > MaxLineQuantity {
			return ErrCartLimitExceeded
		}
		c.Items[i].Quantity = merged
	} else {
		if quantity > MaxLineQuantity {
			return ErrCartLimitExceeded
		}
		c.Items = append(c.Items, CartItem{
			ProductID:  productID,
			Quantity:   quantity,
			PriceCents: priceCents,
		})
	}

	c.recompute()
	return nil
}

// UpdateQuantity sets the quantity of an existing line. Zero or negative
// removes the line; above MaxLineQuantity fails with ErrCartLimitExceeded;
// a missing line fails with ErrCartItemNotFound.
func (c *Cart) UpdateQuantity(productID uuid.UUID, quantity int) error {
	i := c.findLine(productID)
	if i < 0 {
		return ErrCartItemNotFound
	}

	if quantity <= 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
		c.recompute()
		return nil
	}
	if quantity > MaxLineQuantity {
		return ErrCartLimitExceeded
	}

	c.Items[i].Quantity = quantity
	c.recompute()
	return nil
}

// RemoveItem removes the line for productID. Removing an absent line is a
// no-op, not an error.
func (c *Cart) RemoveItem(productID uuid.UUID) {
	if i := c.findLine(productID); i >= 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
		c.recompute()
	}
}

// Clear empties the cart and zeroes the totals. The cart itself survives;
// carts are never hard-deleted.
func (c *Cart) Clear() {
	c.Items = []CartItem{}
	c.recompute()
}

// =============================================================================
// CART VALIDATION AGAINST LIVE CATALOG STATE
// =============================================================================

// CartIssueKind names one way a cart line can disagree with the live catalog.
type CartIssueKind string

const (
	IssueProductRemoved     CartIssueKind = "product_removed"
	IssueProductUnavailable CartIssueKind = "product_unavailable"
	IssueOutOfStock         CartIssueKind = "out_of_stock"
	IssueQuantityReduced    CartIssueKind = "quantity_reduced"
	IssuePriceChanged       CartIssueKind = "price_changed"
)

// CartIssue describes one correction applied while validating a cart.
type CartIssue struct {
	ProductID uuid.UUID     `json:"productId"`
	Kind      CartIssueKind `json:"kind"`
	Message   string        `json:"message"`
}

// ValidationResult reports cart validation. IsValid is true iff no issues
// were found; when issues exist the cart has been corrected in place.
type ValidationResult struct {
	IsValid bool        `json:"isValid"`
	Issues  []CartIssue `json:"issues"`
}

// Validate reconciles the cart against the live products keyed by product ID.
// A missing or unavailable product drops the line; a quantity above current
// stock is dropped (stock zero) or clamped; a stale price snapshot is
// refreshed in place. The cart is mutated only when at least one issue is
// found, and totals are recomputed afterwards.
func (c *Cart) Validate(live map[uuid.UUID]*Product) ValidationResult {
	var issues []CartIssue
	kept := make([]CartItem, 0, len(c.Items))

	for _, it := range c.Items {
		p, ok := live[it.ProductID]
		if !ok || p == nil {
			issues = append(issues, CartIssue{
				ProductID: it.ProductID,
				Kind:      IssueProductRemoved,
				Message:   "Product is no longer sold and was removed from your cart",
			})
			continue
		}
		if !p.IsAvailable {
			issues = append(issues, CartIssue{
				ProductID: it.ProductID,
				Kind:      IssueProductUnavailable,
				Message:   "Product is currently unavailable and was removed from your cart",
			})
			continue
		}
		if it.Quantity > p.Stock {
			if p.Stock <= 0 {
				issues = append(issues, CartIssue{
					ProductID: it.ProductID,
					Kind:      IssueOutOfStock,
					Message:   "Product is out of stock and was removed from your cart",
				})
				continue
			}
			issues = append(issues, CartIssue{
				ProductID: it.ProductID,
				Kind:      IssueQuantityReduced,
				Message:   "Quantity was reduced to the available stock",
			})
			it.Quantity = p.Stock
		}
		if it.PriceCents != p.PriceCents {
			issues = append(issues, CartIssue{
				ProductID: it.ProductID,
				Kind:      IssuePriceChanged,
				Message:   "Price has changed since the item was added",
			})
			it.PriceCents = p.PriceCents
		}
		kept = append(kept, it)
	}

	if len(issues) == 0 {
		return ValidationResult{IsValid: true}
	}

	c.Items = kept
	c.recompute()
	return ValidationResult{IsValid: false, Issues: issues}
}

// =============================================================================
// SERVICE INTERFACE
// =============================================================================

// CartService provides business logic for shopping cart operations.
// The authenticated user in context owns the cart being operated on;
// carts are created lazily on first access.
type CartService interface {
	// GetCart retrieves the user's cart, creating an empty one if absent.
	GetCart(ctx context.Context) (*Cart, error)

	// AddItem validates the product against live catalog state, snapshots
	// its current price, and merges the quantity into the cart.
	AddItem(ctx context.Context, productID uuid.UUID, quantity int) (*Cart, error)

	// UpdateItemQuantity sets a line's quantity; zero or below removes it.
	UpdateItemQuantity(ctx context.Context, productID uuid.UUID, quantity int) (*Cart, error)

	// RemoveItem removes a line; absent lines are a no-op.
	RemoveItem(ctx context.Context, productID uuid.UUID) (*Cart, error)

	// ClearCart empties the cart.
	ClearCart(ctx context.Context) (*Cart, error)

	// ValidateCart reconciles the cart with live product state, persisting
	// corrections when any issue is found.
	ValidateCart(ctx context.Context) (*Cart, *ValidationResult, error)
}

// =============================================================================
// DOMAIN ERRORS
// =============================================================================

var (
	ErrCartNotFound       = &Error{Code: ENOTFOUND, Message: "Cart not found"}
	ErrCartItemNotFound   = &Error{Code: ENOTFOUND, Message: "Item not found in cart"}
	ErrInvalidQuantity    = &Error{Code: EINVALID, Message: "Quantity must be greater than 0"}
	ErrCartLimitExceeded  = &Error{Code: EINVALID, Message: "Cannot hold more than 10 units of one product"}
	ErrProductUnavailable = &Error{Code: ECONFLICT, Message: "Product is unavailable"}
	ErrInsufficientStock  = &Error{Code: ECONFLICT, Message: "Insufficient stock for one or more items"}
)
