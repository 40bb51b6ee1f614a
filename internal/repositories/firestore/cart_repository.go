package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/tokokita/api/internal/domain"
	pfirestore "github.com/tokokita/api/internal/platform/firestore"
	"github.com/tokokita/api/internal/repositories"
)

const cartItemsCollection = "cart_items"

type cartItemDocument struct {
	UserRef    string    `firestore:"userRef"`
	ProductRef string    `firestore:"productRef"`
	Quantity   int64     `firestore:"quantity"`
	AddedAt    time.Time `firestore:"addedAt"`
	UpdatedAt  time.Time `firestore:"updatedAt"`
}

// CartRepository stores one document per (user, product) pair. The document
// ID is derived from the pair so duplicates cannot exist.
type CartRepository struct {
	base *pfirestore.BaseRepository[cartItemDocument]
}

// NewCartRepository constructs a Firestore-backed cart repository.
func NewCartRepository(provider *pfirestore.Provider) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository requires firestore provider")
	}
	return &CartRepository{
		base: pfirestore.NewBaseRepository[cartItemDocument](provider, cartItemsCollection, nil),
	}, nil
}

// ListByUser returns every cart item owned by the user, oldest first.
func (r *CartRepository) ListByUser(ctx context.Context, userID string) ([]domain.CartItem, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("cart repository not initialised")
	}
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return nil, errors.New("cart repository: user id is required")
	}

	docs, err := r.base.Query(ctx, func(query firestore.Query) firestore.Query {
		return query.Where("userRef", "==", uid).OrderBy("addedAt", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}

	items := make([]domain.CartItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, toDomainCartItem(doc.ID, doc.Data))
	}
	return items, nil
}

// FindByUserAndProduct loads the cart item for the pair.
func (r *CartRepository) FindByUserAndProduct(ctx context.Context, userID string, productID string) (domain.CartItem, error) {
	if r == nil || r.base == nil {
		return domain.CartItem{}, errors.New("cart repository not initialised")
	}
	id, err := cartItemID(userID, productID)
	if err != nil {
		return domain.CartItem{}, err
	}
	doc, err := r.base.Get(ctx, id)
	if err != nil {
		return domain.CartItem{}, err
	}
	return toDomainCartItem(doc.ID, doc.Data), nil
}

// Save upserts the cart item for its (user, product) pair.
func (r *CartRepository) Save(ctx context.Context, item domain.CartItem) (domain.CartItem, error) {
	if r == nil || r.base == nil {
		return domain.CartItem{}, errors.New("cart repository not initialised")
	}
	id, err := cartItemID(item.UserID, item.ProductID)
	if err != nil {
		return domain.CartItem{}, err
	}
	if item.Quantity <= 0 {
		return domain.CartItem{}, errors.New("cart repository: quantity must be positive")
	}

	now := time.Now().UTC()
	addedAt := item.AddedAt.UTC()
	if addedAt.IsZero() {
		addedAt = now
	}
	doc := cartItemDocument{
		UserRef:    strings.TrimSpace(item.UserID),
		ProductRef: strings.TrimSpace(item.ProductID),
		Quantity:   item.Quantity,
		AddedAt:    addedAt,
		UpdatedAt:  now,
	}
	if _, err := r.base.Set(ctx, id, doc); err != nil {
		return domain.CartItem{}, err
	}
	return toDomainCartItem(id, doc), nil
}

// Remove deletes the cart item after checking ownership.
func (r *CartRepository) Remove(ctx context.Context, userID string, itemID string) error {
	if r == nil || r.base == nil {
		return errors.New("cart repository not initialised")
	}
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return errors.New("cart repository: user id is required")
	}

	doc, err := r.base.Get(ctx, itemID)
	if err != nil {
		return err
	}
	if doc.Data.UserRef != uid {
		return repositories.ErrNotOwner
	}
	return r.base.Delete(ctx, itemID)
}

func cartItemID(userID string, productID string) (string, error) {
	uid := strings.TrimSpace(userID)
	pid := strings.TrimSpace(productID)
	if uid == "" {
		return "", errors.New("cart repository: user id is required")
	}
	if pid == "" {
		return "", errors.New("cart repository: product id is required")
	}
	return fmt.Sprintf("%s_%s", uid, pid), nil
}

func toDomainCartItem(id string, doc cartItemDocument) domain.CartItem {
	return domain.CartItem{
		ID:        id,
		UserID:    doc.UserRef,
		ProductID: doc.ProductRef,
		Quantity:  doc.Quantity,
		AddedAt:   doc.AddedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

var _ repositories.CartRepository = (*CartRepository)(nil)
