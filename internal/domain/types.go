package domain

import (
	"strings"
	"time"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// Page bundles a result slice with the continuation token for the next call.
type Page[T any] struct {
	Items         []T
	NextPageToken string
}

// Role enumerates the access levels attached to an authenticated user.
type Role string

const (
	// RoleCustomer identifies shoppers who own carts, orders and reviews.
	RoleCustomer Role = "CUSTOMER"
	// RoleSeller identifies vendors who own products and fulfil orders.
	RoleSeller Role = "SELLER"
	// RoleAdmin identifies operators with cross-tenant access.
	RoleAdmin Role = "ADMIN"
)

// ParseRole maps an external role string onto a known Role, falling back to
// RoleCustomer for unknown or empty values.
func ParseRole(value string) Role {
	switch Role(strings.ToUpper(strings.TrimSpace(value))) {
	case RoleSeller:
		return RoleSeller
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleCustomer
	}
}

// User stores the profile fields surfaced to payment sessions and orders.
type User struct {
	ID        string
	Name      string
	Email     string
	Role      Role
	CreatedAt time.Time
}

// Product is a sellable catalog entry owned by a single seller.
// Price is in the smallest currency unit (IDR has no subunit).
type Product struct {
	ID          string
	SellerID    string
	Name        string
	Description string
	Price       int64
	Stock       int64
	ImageURL    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CartItem is a single product entry in a user's cart. A user holds at most
// one item per product; adding again merges quantities.
type CartItem struct {
	ID        string
	UserID    string
	ProductID string
	Quantity  int64
	AddedAt   time.Time
	UpdatedAt time.Time
}

// CartLine joins a cart item with the product fields current at read time.
// The price shown here is informational; checkout re-reads prices inside its
// transaction.
type CartLine struct {
	Item        CartItem
	ProductName string
	UnitPrice   int64
	Available   int64
}

// CartSnapshot is the read model returned to cart views and checkout previews.
type CartSnapshot struct {
	UserID   string
	Lines    []CartLine
	Subtotal int64
}

// VoucherType enumerates supported discount shapes.
type VoucherType string

const (
	// VoucherFixed subtracts a flat amount from the subtotal.
	VoucherFixed VoucherType = "FIXED"
	// VoucherPercent subtracts a percentage of the subtotal.
	VoucherPercent VoucherType = "PERCENT"
)

// Voucher is a seller-issued discount code redeemable at checkout.
type Voucher struct {
	ID          string
	SellerID    string
	Code        string
	Type        VoucherType
	Amount      int64
	MinPurchase int64
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// PricingQuote summarises the monetary outcome of evaluating a cart subtotal
// against an optional voucher.
type PricingQuote struct {
	Subtotal int64
	Discount int64
	Total    int64
}

// OrderStatus enumerates valid lifecycle states for orders.
type OrderStatus string

const (
	// OrderStatusPending indicates the order awaits payment completion.
	OrderStatusPending OrderStatus = "PENDING"
	// OrderStatusPaid indicates payment settled and fulfilment can begin.
	OrderStatusPaid OrderStatus = "PAID"
	// OrderStatusShipped indicates the seller handed the order to a carrier.
	OrderStatusShipped OrderStatus = "SHIPPED"
	// OrderStatusCompleted indicates the order reached the customer.
	OrderStatusCompleted OrderStatus = "COMPLETED"
	// OrderStatusCancelled indicates the order was abandoned or voided.
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// orderStatusTransitions is the full lifecycle graph. COMPLETED and CANCELLED
// are terminal.
var orderStatusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:      {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:   {OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusCompleted: {},
	OrderStatusCancelled: {},
}

// CanTransition reports whether the lifecycle graph permits moving from the
// current status to the target status.
func (s OrderStatus) CanTransition(target OrderStatus) bool {
	for _, allowed := range orderStatusTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s OrderStatus) IsTerminal() bool {
	return len(orderStatusTransitions[s]) == 0
}

// Valid reports whether the status is a known lifecycle state.
func (s OrderStatus) Valid() bool {
	_, ok := orderStatusTransitions[s]
	return ok
}

// HoldsStock reports whether stock decremented at checkout is still held by
// an order in this status. Cancellation from these states restores stock.
func (s OrderStatus) HoldsStock() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusShipped:
		return true
	}
	return false
}

// OrderItem mirrors a cart line at checkout time. UnitPrice and SellerID are
// frozen copies; later product edits do not affect them.
type OrderItem struct {
	ID          string
	ProductID   string
	ProductName string
	SellerID    string
	Quantity    int64
	UnitPrice   int64
	Total       int64
}

// PaymentSession records the gateway session attached to an order.
type PaymentSession struct {
	Token         string
	RedirectURL   string
	CreatedAt     time.Time
	FailedAt      *time.Time
	FailureReason string
}

// Order is the checkout aggregate. Items, amounts and the voucher snapshot
// are immutable after creation; only Status, Payment and the status
// timestamps change afterwards.
type Order struct {
	ID          string
	OrderNumber string
	UserID      string
	Status      OrderStatus
	Subtotal    int64
	Discount    int64
	Total       int64
	VoucherCode *string
	Items       []OrderItem
	// ProductRefs and SellerRefs index the frozen items for purchase and
	// ownership queries.
	ProductRefs []string
	SellerRefs  []string
	Payment     *PaymentSession
	CreatedAt   time.Time
	UpdatedAt   time.Time
	PaidAt      *time.Time
	ShippedAt   *time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time
}

// ContainsProduct reports whether the order froze a line for the product.
func (o Order) ContainsProduct(productID string) bool {
	for _, ref := range o.ProductRefs {
		if ref == productID {
			return true
		}
	}
	return false
}

// ContainsSeller reports whether the order holds at least one line owned by
// the seller.
func (o Order) ContainsSeller(sellerID string) bool {
	for _, ref := range o.SellerRefs {
		if ref == sellerID {
			return true
		}
	}
	return false
}

// Review is a customer's verdict on a purchased product. A user writes at
// most one review per product.
type Review struct {
	ID        string
	UserID    string
	ProductID string
	Rating    int
	Comment   string
	CreatedAt time.Time
}

// WishlistItem marks a product a user saved for later.
type WishlistItem struct {
	ID        string
	UserID    string
	ProductID string
	CreatedAt time.Time
}
