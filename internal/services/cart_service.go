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
	// ErrCartInvalidInput signals the caller provided invalid data.
	ErrCartInvalidInput = errors.New("cart: invalid input")
	// ErrCartItemNotFound indicates the cart item could not be located.
	ErrCartItemNotFound = errors.New("cart: item not found")
	// ErrCartProductNotFound indicates the referenced product does not exist.
	ErrCartProductNotFound = errors.New("cart: product not found")
	// ErrCartForbidden indicates the item belongs to a different user.
	ErrCartForbidden = errors.New("cart: forbidden")
)

// CartServiceDeps bundles collaborators required to construct a CartService.
type CartServiceDeps struct {
	Carts    repositories.CartRepository
	Products repositories.ProductRepository
	Clock    func() time.Time
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

type cartService struct {
	carts    repositories.CartRepository
	products repositories.ProductRepository
	clock    func() time.Time
	logger   func(context.Context, string, map[string]any)
}

// NewCartService wires dependencies into a concrete CartService implementation.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Carts == nil {
		return nil, errors.New("cart service: cart repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("cart service: product repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &cartService{
		carts:    deps.Carts,
		products: deps.Products,
		clock:    func() time.Time { return clock().UTC() },
		logger:   logger,
	}, nil
}

// GetCart joins the user's cart items with current product data. The prices
// shown are informational; checkout re-reads them inside its transaction.
func (s *cartService) GetCart(ctx context.Context, actor Actor) (domain.CartSnapshot, error) {
	userID := strings.TrimSpace(actor.UserID)
	if userID == "" {
		return domain.CartSnapshot{}, fmt.Errorf("%w: user id is required", ErrCartInvalidInput)
	}

	items, err := s.carts.ListByUser(ctx, userID)
	if err != nil {
		return domain.CartSnapshot{}, s.mapRepositoryError(err)
	}

	snapshot := domain.CartSnapshot{UserID: userID, Lines: make([]domain.CartLine, 0, len(items))}
	for _, item := range items {
		line := domain.CartLine{Item: item}
		product, err := s.products.FindByID(ctx, item.ProductID)
		if err == nil {
			line.ProductName = product.Name
			line.UnitPrice = product.Price
			line.Available = product.Stock
		} else if !isNotFound(err) {
			return domain.CartSnapshot{}, s.mapRepositoryError(err)
		}
		// Lines whose product vanished stay visible with a zero price so the
		// user can remove them.
		snapshot.Subtotal += line.UnitPrice * item.Quantity
		snapshot.Lines = append(snapshot.Lines, line)
	}
	return snapshot, nil
}

func (s *cartService) AddItem(ctx context.Context, cmd AddCartItemCommand) (domain.CartItem, error) {
	userID := strings.TrimSpace(cmd.Actor.UserID)
	productID := strings.TrimSpace(cmd.ProductID)
	if userID == "" || productID == "" {
		return domain.CartItem{}, fmt.Errorf("%w: user id and product id are required", ErrCartInvalidInput)
	}
	if cmd.Quantity <= 0 {
		return domain.CartItem{}, fmt.Errorf("%w: quantity must be positive", ErrCartInvalidInput)
	}

	if _, err := s.products.FindByID(ctx, productID); err != nil {
		if isNotFound(err) {
			return domain.CartItem{}, fmt.Errorf("%w: %s", ErrCartProductNotFound, productID)
		}
		return domain.CartItem{}, s.mapRepositoryError(err)
	}

	now := s.clock()
	item := domain.CartItem{
		UserID:    userID,
		ProductID: productID,
		Quantity:  cmd.Quantity,
		AddedAt:   now,
	}

	existing, err := s.carts.FindByUserAndProduct(ctx, userID, productID)
	switch {
	case err == nil:
		item.Quantity = existing.Quantity + cmd.Quantity
		item.AddedAt = existing.AddedAt
	case isNotFound(err):
		// first entry for this product
	default:
		return domain.CartItem{}, s.mapRepositoryError(err)
	}

	saved, err := s.carts.Save(ctx, item)
	if err != nil {
		return domain.CartItem{}, s.mapRepositoryError(err)
	}
	s.logger(ctx, "cart.item.added", map[string]any{
		"user":     userID,
		"product":  productID,
		"quantity": saved.Quantity,
	})
	return saved, nil
}

func (s *cartService) UpdateQuantity(ctx context.Context, cmd UpdateCartQuantityCommand) (domain.CartItem, error) {
	userID := strings.TrimSpace(cmd.Actor.UserID)
	itemID := strings.TrimSpace(cmd.ItemID)
	if userID == "" || itemID == "" {
		return domain.CartItem{}, fmt.Errorf("%w: user id and item id are required", ErrCartInvalidInput)
	}
	if cmd.Quantity <= 0 {
		return domain.CartItem{}, fmt.Errorf("%w: quantity must be positive", ErrCartInvalidInput)
	}

	items, err := s.carts.ListByUser(ctx, userID)
	if err != nil {
		return domain.CartItem{}, s.mapRepositoryError(err)
	}
	for _, item := range items {
		if item.ID != itemID {
			continue
		}
		item.Quantity = cmd.Quantity
		saved, err := s.carts.Save(ctx, item)
		if err != nil {
			return domain.CartItem{}, s.mapRepositoryError(err)
		}
		return saved, nil
	}
	return domain.CartItem{}, fmt.Errorf("%w: %s", ErrCartItemNotFound, itemID)
}

func (s *cartService) RemoveItem(ctx context.Context, actor Actor, itemID string) error {
	userID := strings.TrimSpace(actor.UserID)
	if userID == "" || strings.TrimSpace(itemID) == "" {
		return fmt.Errorf("%w: user id and item id are required", ErrCartInvalidInput)
	}
	if err := s.carts.Remove(ctx, userID, itemID); err != nil {
		if errors.Is(err, repositories.ErrNotOwner) {
			return ErrCartForbidden
		}
		if isNotFound(err) {
			return fmt.Errorf("%w: %s", ErrCartItemNotFound, itemID)
		}
		return s.mapRepositoryError(err)
	}
	return nil
}

func (s *cartService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrCartItemNotFound, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("cart: repository unavailable: %w", err)
		}
	}
	return err
}

func isNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

func isConflict(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsConflict()
}
