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

const reviewsCollection = "reviews"

type reviewDocument struct {
	ReviewID   string    `firestore:"reviewId"`
	UserRef    string    `firestore:"userRef"`
	ProductRef string    `firestore:"productRef"`
	Rating     int       `firestore:"rating"`
	Comment    string    `firestore:"comment,omitempty"`
	CreatedAt  time.Time `firestore:"createdAt"`
}

// ReviewRepository keys review documents by the (user, product) pair so a
// second review for the same product collides on document identity.
type ReviewRepository struct {
	base *pfirestore.BaseRepository[reviewDocument]
}

// NewReviewRepository constructs a Firestore-backed review repository.
func NewReviewRepository(provider *pfirestore.Provider) (*ReviewRepository, error) {
	if provider == nil {
		return nil, errors.New("review repository requires firestore provider")
	}
	return &ReviewRepository{
		base: pfirestore.NewBaseRepository[reviewDocument](provider, reviewsCollection, nil),
	}, nil
}

// Insert creates the review, reporting a conflict for a duplicate pair.
func (r *ReviewRepository) Insert(ctx context.Context, review domain.Review) (domain.Review, error) {
	if r == nil || r.base == nil {
		return domain.Review{}, errors.New("review repository not initialised")
	}
	uid := strings.TrimSpace(review.UserID)
	pid := strings.TrimSpace(review.ProductID)
	if uid == "" || pid == "" {
		return domain.Review{}, errors.New("review repository: user id and product id are required")
	}

	createdAt := review.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	doc := reviewDocument{
		ReviewID:   strings.TrimSpace(review.ID),
		UserRef:    uid,
		ProductRef: pid,
		Rating:     review.Rating,
		Comment:    review.Comment,
		CreatedAt:  createdAt,
	}
	docID := fmt.Sprintf("%s_%s", uid, pid)
	if _, err := r.base.Create(ctx, docID, doc); err != nil {
		return domain.Review{}, err
	}
	return toDomainReview(docID, doc), nil
}

// ListByProduct returns the product's reviews, newest first.
func (r *ReviewRepository) ListByProduct(ctx context.Context, productID string, pager domain.Pagination) (domain.Page[domain.Review], error) {
	if r == nil || r.base == nil {
		return domain.Page[domain.Review]{}, errors.New("review repository not initialised")
	}
	pid := strings.TrimSpace(productID)
	if pid == "" {
		return domain.Page[domain.Review]{}, errors.New("review repository: product id is required")
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
		createdAt, docID, err := decodeCursor(token)
		if err != nil {
			return domain.Page[domain.Review]{}, fmt.Errorf("reviews.list: invalid page token: %w", err)
		}
		startAfter = []any{createdAt, docID}
	}

	docs, err := r.base.Query(ctx, func(query firestore.Query) firestore.Query {
		query = query.Where("productRef", "==", pid).
			OrderBy("createdAt", firestore.Desc).
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
		return domain.Page[domain.Review]{}, err
	}

	nextToken := ""
	if fetchLimit > 0 && len(docs) == fetchLimit {
		last := docs[len(docs)-1]
		nextToken = encodeCursor(last.Data.CreatedAt, last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.Review, 0, len(docs))
	for _, doc := range docs {
		items = append(items, toDomainReview(doc.ID, doc.Data))
	}
	return domain.Page[domain.Review]{Items: items, NextPageToken: nextToken}, nil
}

func toDomainReview(docID string, doc reviewDocument) domain.Review {
	id := doc.ReviewID
	if id == "" {
		id = docID
	}
	return domain.Review{
		ID:        id,
		UserID:    doc.UserRef,
		ProductID: doc.ProductRef,
		Rating:    doc.Rating,
		Comment:   doc.Comment,
		CreatedAt: doc.CreatedAt,
	}
}

var _ repositories.ReviewRepository = (*ReviewRepository)(nil)
