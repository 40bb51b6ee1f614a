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

const productsCollection = "products"

type productDocument struct {
	SellerRef   string    `firestore:"sellerRef"`
	Name        string    `firestore:"name"`
	Description string    `firestore:"description,omitempty"`
	Price       int64     `firestore:"price"`
	Stock       int64     `firestore:"stock"`
	ImageURL    string    `firestore:"imageUrl,omitempty"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

// ProductRepository persists catalog entries. Checkout-time stock mutations
// happen inside the order repository transactions.
type ProductRepository struct {
	base *pfirestore.BaseRepository[productDocument]
}

// NewProductRepository constructs a Firestore-backed product repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	return &ProductRepository{
		base: pfirestore.NewBaseRepository[productDocument](provider, productsCollection, nil),
	}, nil
}

// Insert creates the product document, failing when the ID is already taken.
func (r *ProductRepository) Insert(ctx context.Context, product domain.Product) error {
	if r == nil || r.base == nil {
		return errors.New("product repository not initialised")
	}
	if strings.TrimSpace(product.ID) == "" {
		return errors.New("product repository: product id is required")
	}
	_, err := r.base.Create(ctx, product.ID, fromDomainProduct(product))
	return err
}

// Update replaces the product document.
func (r *ProductRepository) Update(ctx context.Context, product domain.Product) error {
	if r == nil || r.base == nil {
		return errors.New("product repository not initialised")
	}
	if strings.TrimSpace(product.ID) == "" {
		return errors.New("product repository: product id is required")
	}
	_, err := r.base.Set(ctx, product.ID, fromDomainProduct(product))
	return err
}

// Delete removes the product document.
func (r *ProductRepository) Delete(ctx context.Context, productID string) error {
	if r == nil || r.base == nil {
		return errors.New("product repository not initialised")
	}
	return r.base.Delete(ctx, productID)
}

// FindByID loads a product by ID.
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if r == nil || r.base == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	doc, err := r.base.Get(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	return toDomainProduct(doc.ID, doc.Data), nil
}

// List returns products ordered by newest first, optionally scoped to a seller.
func (r *ProductRepository) List(ctx context.Context, filter repositories.ProductListFilter) (domain.Page[domain.Product], error) {
	if r == nil || r.base == nil {
		return domain.Page[domain.Product]{}, errors.New("product repository not initialised")
	}

	limit := filter.Pager.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit := 0
	if limit > 0 {
		fetchLimit = limit + 1
	}

	var startAfter []any
	if token := strings.TrimSpace(filter.Pager.PageToken); token != "" {
		createdAt, docID, err := decodeCursor(token)
		if err != nil {
			return domain.Page[domain.Product]{}, fmt.Errorf("products.list: invalid page token: %w", err)
		}
		startAfter = []any{createdAt, docID}
	}

	docs, err := r.base.Query(ctx, func(query firestore.Query) firestore.Query {
		if sellerID := strings.TrimSpace(filter.SellerID); sellerID != "" {
			query = query.Where("sellerRef", "==", sellerID)
		}
		query = query.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if startAfter != nil {
			query = query.StartAfter(startAfter...)
		}
		if fetchLimit > 0 {
			query = query.Limit(fetchLimit)
		}
		return query
	})
	if err != nil {
		return domain.Page[domain.Product]{}, err
	}

	nextToken := ""
	if fetchLimit > 0 && len(docs) == fetchLimit {
		last := docs[len(docs)-1]
		nextToken = encodeCursor(last.Data.CreatedAt, last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		items = append(items, toDomainProduct(doc.ID, doc.Data))
	}
	return domain.Page[domain.Product]{Items: items, NextPageToken: nextToken}, nil
}

func fromDomainProduct(product domain.Product) productDocument {
	createdAt := product.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := product.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}
	return productDocument{
		SellerRef:   strings.TrimSpace(product.SellerID),
		Name:        strings.TrimSpace(product.Name),
		Description: strings.TrimSpace(product.Description),
		Price:       product.Price,
		Stock:       product.Stock,
		ImageURL:    strings.TrimSpace(product.ImageURL),
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}
}

func toDomainProduct(id string, doc productDocument) domain.Product {
	return domain.Product{
		ID:          id,
		SellerID:    doc.SellerRef,
		Name:        doc.Name,
		Description: doc.Description,
		Price:       doc.Price,
		Stock:       doc.Stock,
		ImageURL:    doc.ImageURL,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}

var _ repositories.ProductRepository = (*ProductRepository)(nil)
