package firestore

import (
	"errors"
	"fmt"

	pfirestore "github.com/tokokita/api/internal/platform/firestore"
	"github.com/tokokita/api/internal/repositories"
)

// Registry owns the Firestore-backed repository set and the provider whose
// client they share.
type Registry struct {
	provider *pfirestore.Provider

	users     *UserRepository
	products  *ProductRepository
	carts     *CartRepository
	vouchers  *VoucherRepository
	orders    *OrderRepository
	reviews   *ReviewRepository
	wishlists *WishlistRepository
	counters  *CounterRepository
}

// NewRegistry constructs every repository against the shared provider.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("firestore registry: provider is required")
	}

	users, err := NewUserRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("firestore registry: users: %w", err)
	}
	products, err := NewProductRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("firestore registry: products: %w", err)
	}
	carts, err := NewCartRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("firestore registry: carts: %w", err)
	}
	vouchers, err := NewVoucherRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("firestore registry: vouchers: %w", err)
	}
	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("firestore registry: orders: %w", err)
	}
	reviews, err := NewReviewRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("firestore registry: reviews: %w", err)
	}
	wishlists, err := NewWishlistRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("firestore registry: wishlists: %w", err)
	}
	counters, err := NewCounterRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("firestore registry: counters: %w", err)
	}

	return &Registry{
		provider:  provider,
		users:     users,
		products:  products,
		carts:     carts,
		vouchers:  vouchers,
		orders:    orders,
		reviews:   reviews,
		wishlists: wishlists,
		counters:  counters,
	}, nil
}

// Close releases the underlying Firestore client.
func (r *Registry) Close() error {
	return r.provider.Close()
}

func (r *Registry) Users() repositories.UserRepository         { return r.users }
func (r *Registry) Products() repositories.ProductRepository   { return r.products }
func (r *Registry) Carts() repositories.CartRepository         { return r.carts }
func (r *Registry) Vouchers() repositories.VoucherRepository   { return r.vouchers }
func (r *Registry) Orders() repositories.OrderRepository       { return r.orders }
func (r *Registry) Reviews() repositories.ReviewRepository     { return r.reviews }
func (r *Registry) Wishlists() repositories.WishlistRepository { return r.wishlists }
func (r *Registry) Counters() repositories.CounterRepository   { return r.counters }

var _ repositories.Registry = (*Registry)(nil)
