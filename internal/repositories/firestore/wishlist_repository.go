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

const wishlistsCollection = "wishlists"

type wishlistDocument struct {
	UserRef    string    `firestore:"userRef"`
	ProductRef string    `firestore:"productRef"`
	AddedAt    time.Time `firestore:"addedAt"`
}

// WishlistRepository stores saved products, one document per (user, product)
// pair.
type WishlistRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.BaseRepository[wishlistDocument]
}

// NewWishlistRepository constructs a Firestore-backed wishlist repository.
func NewWishlistRepository(provider *pfirestore.Provider) (*WishlistRepository, error) {
	if provider == nil {
		return nil, errors.New("wishlist repository requires firestore provider")
	}
	return &WishlistRepository{
		provider: provider,
		base:     pfirestore.NewBaseRepository[wishlistDocument](provider, wishlistsCollection, nil),
	}, nil
}

// Put records the pair and reports whether it was newly added.
func (r *WishlistRepository) Put(ctx context.Context, userID string, productID string, addedAt time.Time) (bool, error) {
	if r == nil || r.provider == nil {
		return false, errors.New("wishlist repository not initialised")
	}
	docID, err := wishlistID(userID, productID)
	if err != nil {
		return false, err
	}

	doc := wishlistDocument{
		UserRef:    strings.TrimSpace(userID),
		ProductRef: strings.TrimSpace(productID),
		AddedAt:    addedAt.UTC(),
	}
	_, err = r.base.Create(ctx, docID, doc)
	if err != nil {
		var repoErr *pfirestore.Error
		if errors.As(err, &repoErr) && repoErr.IsConflict() {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Delete removes the pair. Removing an absent pair is not an error.
func (r *WishlistRepository) Delete(ctx context.Context, userID string, productID string) error {
	if r == nil || r.base == nil {
		return errors.New("wishlist repository not initialised")
	}
	docID, err := wishlistID(userID, productID)
	if err != nil {
		return err
	}
	return r.base.Delete(ctx, docID)
}

// List returns the user's saved products, most recent first.
func (r *WishlistRepository) List(ctx context.Context, userID string, pager domain.Pagination) (domain.Page[domain.WishlistItem], error) {
	if r == nil || r.base == nil {
		return domain.Page[domain.WishlistItem]{}, errors.New("wishlist repository not initialised")
	}
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return domain.Page[domain.WishlistItem]{}, errors.New("wishlist repository: user id is required")
	}

	limit := pager.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit := 0
	if limit > 0 {
		fetchLimit = limit + 1
	}

	var startAfter []any
	if token := strings.TrimSpace(pager.PageToken); token != "" {
		addedAt, docID, err := decodeCursor(token)
		if err != nil {
			return domain.Page[domain.WishlistItem]{}, fmt.Errorf("wishlists.list: invalid page token: %w", err)
		}
		startAfter = []any{addedAt, docID}
	}

	docs, err := r.base.Query(ctx, func(query firestore.Query) firestore.Query {
		query = query.Where("userRef", "==", uid).
			OrderBy("addedAt", firestore.Desc).
			OrderBy(firestore.DocumentID, firestore.Desc)
		if startAfter != nil {
			query = query.StartAfter(startAfter...)
		}
		if fetchLimit > 0 {
			query = query.Limit(fetchLimit)
		}
		return query
	})
	if err != nil {
		return domain.Page[domain.WishlistItem]{}, err
	}

	nextToken := ""
	if fetchLimit > 0 && len(docs) == fetchLimit {
		last := docs[len(docs)-1]
		nextToken = encodeCursor(last.Data.AddedAt, last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.WishlistItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, domain.WishlistItem{
			ID:        doc.ID,
			UserID:    doc.Data.UserRef,
			ProductID: doc.Data.ProductRef,
			CreatedAt: doc.Data.AddedAt,
		})
	}
	return domain.Page[domain.WishlistItem]{Items: items, NextPageToken: nextToken}, nil
}

func wishlistID(userID string, productID string) (string, error) {
	uid := strings.TrimSpace(userID)
	pid := strings.TrimSpace(productID)
	if uid == "" {
		return "", errors.New("wishlist repository: user id is required")
	}
	if pid == "" {
		return "", errors.New("wishlist repository: product id is required")
	}
	return fmt.Sprintf("%s_%s", uid, pid), nil
}

var _ repositories.WishlistRepository = (*WishlistRepository)(nil)
