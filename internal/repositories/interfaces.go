package repositories

import (
	"context"
	"time"

	domain "github.com/tokokita/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close() error

	Users() UserRepository
	Products() ProductRepository
	Carts() CartRepository
	Vouchers() VoucherRepository
	Orders() OrderRepository
	Reviews() ReviewRepository
	Wishlists() WishlistRepository
	Counters() CounterRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UserRepository stores user profiles referenced by orders and payment sessions.
type UserRepository interface {
	FindByID(ctx context.Context, userID string) (domain.User, error)
	Save(ctx context.Context, user domain.User) (domain.User, error)
}

// ProductRepository persists catalog entries. Stock mutations during checkout
// and cancellation run inside OrderRepository transactions, not here.
type ProductRepository interface {
	Insert(ctx context.Context, product domain.Product) error
	Update(ctx context.Context, product domain.Product) error
	Delete(ctx context.Context, productID string) error
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	List(ctx context.Context, filter ProductListFilter) (domain.Page[domain.Product], error)
}

// ProductListFilter narrows product listings.
type ProductListFilter struct {
	SellerID string
	Pager    domain.Pagination
}

// CartRepository stores one item per (user, product) pair.
type CartRepository interface {
	ListByUser(ctx context.Context, userID string) ([]domain.CartItem, error)
	FindByUserAndProduct(ctx context.Context, userID string, productID string) (domain.CartItem, error)
	Save(ctx context.Context, item domain.CartItem) (domain.CartItem, error)
	Remove(ctx context.Context, userID string, itemID string) error
}

// VoucherRepository persists discount codes. Codes are unique; Insert reports
// a conflict when the code is already taken.
type VoucherRepository interface {
	Insert(ctx context.Context, voucher domain.Voucher) error
	FindByCode(ctx context.Context, code string) (domain.Voucher, error)
	ListBySeller(ctx context.Context, sellerID string, pager domain.Pagination) (domain.Page[domain.Voucher], error)
}

// OrderRepository persists order aggregates. PlaceOrder and TransitionStatus
// run as single transactions so checkout and lifecycle moves are atomic.
type OrderRepository interface {
	// PlaceOrder atomically snapshots the cart at transaction-time prices,
	// creates the order, decrements stock and clears the cart. Typed errors:
	// ErrCartEmpty, InsufficientStockError, ProductGoneError.
	PlaceOrder(ctx context.Context, req PlaceOrderRequest) (domain.Order, error)
	// TransitionStatus applies a lifecycle move guarded by the status graph,
	// restoring held stock when the target is CANCELLED. Typed error:
	// InvalidTransitionError.
	TransitionStatus(ctx context.Context, req TransitionStatusRequest) (domain.Order, error)
	SavePaymentSession(ctx context.Context, orderID string, session domain.PaymentSession) (domain.Order, error)
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	ListByUser(ctx context.Context, userID string, filter OrderListFilter) (domain.Page[domain.Order], error)
	ListBySeller(ctx context.Context, sellerID string, filter OrderListFilter) (domain.Page[domain.Order], error)
	// HasPurchased reports whether the user holds an order in a paid-or-later
	// state containing the product.
	HasPurchased(ctx context.Context, userID string, productID string) (bool, error)
}

// PlaceOrderRequest carries the prepared header fields plus the pricing
// callback evaluated against the transaction-time subtotal.
type PlaceOrderRequest struct {
	OrderID     string
	OrderNumber string
	UserID      string
	VoucherCode *string
	Now         time.Time
	// Quote turns the fresh in-transaction subtotal into the amounts frozen
	// on the order. Returning an error aborts the transaction.
	Quote func(subtotal int64) (domain.PricingQuote, error)
	// NewItemID mints identifiers for the frozen line items.
	NewItemID func() string
}

// TransitionStatusRequest describes a guarded lifecycle move.
type TransitionStatusRequest struct {
	OrderID string
	Target  domain.OrderStatus
	Now     time.Time
}

// OrderListFilter narrows order listings.
type OrderListFilter struct {
	Statuses []domain.OrderStatus
	Pager    domain.Pagination
}

// ReviewRepository stores product reviews, one per (user, product) pair.
// Insert reports a conflict for a duplicate pair.
type ReviewRepository interface {
	Insert(ctx context.Context, review domain.Review) (domain.Review, error)
	ListByProduct(ctx context.Context, productID string, pager domain.Pagination) (domain.Page[domain.Review], error)
}

// WishlistRepository tracks saved products per user.
type WishlistRepository interface {
	// Put records the pair and reports whether it was newly added.
	Put(ctx context.Context, userID string, productID string, addedAt time.Time) (bool, error)
	Delete(ctx context.Context, userID string, productID string) error
	List(ctx context.Context, userID string, pager domain.Pagination) (domain.Page[domain.WishlistItem], error)
}

// CounterRepository provides transaction-safe sequence numbers.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
}
