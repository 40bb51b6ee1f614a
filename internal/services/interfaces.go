package services

import (
	"context"
	"time"

	domain "github.com/tokokita/api/internal/domain"
)

// Actor identifies the authenticated caller of a service operation.
type Actor struct {
	UserID string
	Role   domain.Role
}

// IsSeller reports whether the actor carries the seller role.
func (a Actor) IsSeller() bool { return a.Role == domain.RoleSeller }

// IsAdmin reports whether the actor carries the admin role.
func (a Actor) IsAdmin() bool { return a.Role == domain.RoleAdmin }

// CartService exposes the shopping cart read and mutation flows.
type CartService interface {
	GetCart(ctx context.Context, actor Actor) (domain.CartSnapshot, error)
	AddItem(ctx context.Context, cmd AddCartItemCommand) (domain.CartItem, error)
	UpdateQuantity(ctx context.Context, cmd UpdateCartQuantityCommand) (domain.CartItem, error)
	RemoveItem(ctx context.Context, actor Actor, itemID string) error
}

// AddCartItemCommand adds quantity to the (user, product) cart line, creating
// it when absent.
type AddCartItemCommand struct {
	Actor     Actor
	ProductID string
	Quantity  int64
}

// UpdateCartQuantityCommand sets the absolute quantity on an existing line.
type UpdateCartQuantityCommand struct {
	Actor    Actor
	ItemID   string
	Quantity int64
}

// CheckoutService turns a cart into an order and manages payment sessions.
type CheckoutService interface {
	Checkout(ctx context.Context, cmd CheckoutCommand) (CheckoutResult, error)
	RetryPaymentSession(ctx context.Context, actor Actor, orderID string) (CheckoutResult, error)
}

// CheckoutCommand initiates checkout of the actor's entire cart.
type CheckoutCommand struct {
	Actor       Actor
	VoucherCode string
}

// CheckoutResult carries the created order and the gateway session when one
// could be established.
type CheckoutResult struct {
	Order   domain.Order
	Payment *domain.PaymentSession
}

// OrderService encapsulates order reads, fulfilment moves and payment
// notification reconciliation.
type OrderService interface {
	GetOrder(ctx context.Context, actor Actor, orderID string) (domain.Order, error)
	ListMyOrders(ctx context.Context, actor Actor, pager domain.Pagination) (domain.Page[domain.Order], error)
	ListSellerOrders(ctx context.Context, actor Actor, pager domain.Pagination) (domain.Page[domain.Order], error)
	UpdateFulfillmentStatus(ctx context.Context, cmd FulfillmentCommand) (domain.Order, error)
	ApplyPaymentNotification(ctx context.Context, notification PaymentNotification) error
}

// FulfillmentCommand moves an order along the fulfilment lifecycle on behalf
// of a seller owning at least one of its lines.
type FulfillmentCommand struct {
	Actor   Actor
	OrderID string
	Target  domain.OrderStatus
}

// PaymentNotification is the normalised payload delivered by the payment
// gateway webhook.
type PaymentNotification struct {
	OrderID           string
	TransactionStatus string
	FraudStatus       string
}

// VoucherService manages seller discount codes.
type VoucherService interface {
	CreateVoucher(ctx context.Context, cmd CreateVoucherCommand) (domain.Voucher, error)
	ListMyVouchers(ctx context.Context, actor Actor, pager domain.Pagination) (domain.Page[domain.Voucher], error)
}

// CreateVoucherCommand registers a new discount code owned by the acting
// seller.
type CreateVoucherCommand struct {
	Actor       Actor
	Code        string
	Type        domain.VoucherType
	Amount      int64
	MinPurchase int64
	ExpiresAt   time.Time
}

// CatalogService manages the product catalog.
type CatalogService interface {
	CreateProduct(ctx context.Context, cmd UpsertProductCommand) (domain.Product, error)
	UpdateProduct(ctx context.Context, cmd UpsertProductCommand) (domain.Product, error)
	DeleteProduct(ctx context.Context, actor Actor, productID string) error
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
	ListProducts(ctx context.Context, filter ProductListQuery) (domain.Page[domain.Product], error)
}

// UpsertProductCommand carries the writable product fields. ProductID is
// empty on create.
type UpsertProductCommand struct {
	Actor       Actor
	ProductID   string
	Name        string
	Description string
	Price       int64
	Stock       int64
	ImageURL    string
}

// ProductListQuery narrows catalog listings.
type ProductListQuery struct {
	SellerID string
	Pager    domain.Pagination
}

// ReviewService gates review submission on purchase history.
type ReviewService interface {
	SubmitReview(ctx context.Context, cmd SubmitReviewCommand) (domain.Review, error)
	ListProductReviews(ctx context.Context, productID string, pager domain.Pagination) (domain.Page[domain.Review], error)
	CanReview(ctx context.Context, actor Actor, productID string) (bool, error)
}

// SubmitReviewCommand records the actor's verdict on a purchased product.
type SubmitReviewCommand struct {
	Actor     Actor
	ProductID string
	Rating    int
	Comment   string
}

// WishlistService manages saved products.
type WishlistService interface {
	SaveProduct(ctx context.Context, actor Actor, productID string) (bool, error)
	RemoveProduct(ctx context.Context, actor Actor, productID string) error
	ListWishlist(ctx context.Context, actor Actor, pager domain.Pagination) (domain.Page[domain.WishlistItem], error)
}

// UserService keeps the user profile store in sync with the identity
// provider and serves profile reads.
type UserService interface {
	GetProfile(ctx context.Context, userID string) (domain.User, error)
	SyncProfile(ctx context.Context, cmd SyncProfileCommand) (domain.User, error)
}

// SyncProfileCommand upserts the profile fields asserted by the identity
// token.
type SyncProfileCommand struct {
	UserID string
	Name   string
	Email  string
	Role   domain.Role
}

// OrderEventPublisher publishes order domain events for downstream consumers.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

// OrderEvent captures metadata for emitted order domain events.
type OrderEvent struct {
	Type           string
	OrderID        string
	OrderNumber    string
	PreviousStatus string
	CurrentStatus  string
	ActorID        string
	OccurredAt     time.Time
	Metadata       map[string]any
}

// ReviewEventPublisher publishes review domain events for downstream consumers.
type ReviewEventPublisher interface {
	PublishReviewEvent(ctx context.Context, event ReviewEvent) error
}

// ReviewEvent captures metadata for emitted review domain events.
type ReviewEvent struct {
	Type       string
	ReviewID   string
	ProductID  string
	UserID     string
	Rating     int
	OccurredAt time.Time
}
