package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/tokokita/api/internal/domain"
	"github.com/tokokita/api/internal/repositories"
)

var (
	// ErrWishlistInvalidInput signals the caller provided invalid data.
	ErrWishlistInvalidInput = errors.New("wishlist: invalid input")
	// ErrWishlistProductNotFound indicates the product does not exist.
	ErrWishlistProductNotFound = errors.New("wishlist: product not found")
	// ErrWishlistEntryNotFound indicates the product is not on the wishlist.
	ErrWishlistEntryNotFound = errors.New("wishlist: entry not found")
)

// WishlistServiceDeps bundles collaborators required to construct a WishlistService.
type WishlistServiceDeps struct {
	Wishlists repositories.WishlistRepository
	Products  repositories.ProductRepository
	Clock     func() time.Time
	Logger    func(ctx context.Context, event string, fields map[string]any)
}

type wishlistService struct {
	wishlists repositories.WishlistRepository
	products  repositories.ProductRepository
	clock     func() time.Time
	logger    func(context.Context, string, map[string]any)
}

// NewWishlistService wires dependencies into a concrete WishlistService implementation.
func NewWishlistService(deps WishlistServiceDeps) (WishlistService, error) {
	if deps.Wishlists == nil {
		return nil, errors.New("wishlist service: wishlist repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &wishlistService{
		wishlists: deps.Wishlists,
		products:  deps.Products,
		clock:     func() time.Time { return clock().UTC() },
		logger:    logger,
	}, nil
}

// SaveProduct puts the product on the actor's wishlist. It reports whether
// the entry is new; saving twice is not an error.
func (s *wishlistService) SaveProduct(ctx context.Context, actor Actor, productID string) (bool, error) {
	userID := strings.TrimSpace(actor.UserID)
	productID = strings.TrimSpace(productID)
	if userID == "" || productID == "" {
		return false, fmt.Errorf("%w: user id and product id are required", ErrWishlistInvalidInput)
	}

	if s.products != nil {
		if _, err := s.products.FindByID(ctx, productID); err != nil {
			if isNotFound(err) {
				return false, fmt.Errorf("%w: %s", ErrWishlistProductNotFound, productID)
			}
			return false, fmt.Errorf("wishlist: load product: %w", err)
		}
	}

	added, err := s.wishlists.Put(ctx, userID, productID, s.clock())
	if err != nil {
		return false, fmt.Errorf("wishlist: save: %w", err)
	}
	if added {
		s.logger(ctx, "wishlist.added", map[string]any{
			"user":    userID,
			"product": productID,
		})
	}
	return added, nil
}

func (s *wishlistService) RemoveProduct(ctx context.Context, actor Actor, productID string) error {
	userID := strings.TrimSpace(actor.UserID)
	productID = strings.TrimSpace(productID)
	if userID == "" || productID == "" {
		return fmt.Errorf("%w: user id and product id are required", ErrWishlistInvalidInput)
	}
	if err := s.wishlists.Delete(ctx, userID, productID); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: %s", ErrWishlistEntryNotFound, productID)
		}
		return fmt.Errorf("wishlist: remove: %w", err)
	}
	return nil
}

func (s *wishlistService) ListWishlist(ctx context.Context, actor Actor, pager domain.Pagination) (domain.Page[domain.WishlistItem], error) {
	if strings.TrimSpace(actor.UserID) == "" {
		return domain.Page[domain.WishlistItem]{}, fmt.Errorf("%w: user id is required", ErrWishlistInvalidInput)
	}
	page, err := s.wishlists.List(ctx, actor.UserID, pager)
	if err != nil {
		return domain.Page[domain.WishlistItem]{}, fmt.Errorf("wishlist: list: %w", err)
	}
	return page, nil
}
