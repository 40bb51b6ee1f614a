package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/tokokita/api/internal/domain"
	"github.com/tokokita/api/internal/repositories"
)

const (
	reviewIDPrefix     = "rev_"
	reviewEventCreated = "review.created"

	reviewMinRating = 1
	reviewMaxRating = 5
)

var (
	// ErrReviewInvalidInput signals the caller provided invalid data.
	ErrReviewInvalidInput = errors.New("review: invalid input")
	// ErrReviewInvalidRating indicates the rating falls outside 1 through 5.
	ErrReviewInvalidRating = errors.New("review: rating out of range")
	// ErrReviewNotPurchased indicates the actor has not bought the product.
	ErrReviewNotPurchased = errors.New("review: product not purchased")
	// ErrReviewDuplicate indicates the actor already reviewed the product.
	ErrReviewDuplicate = errors.New("review: already reviewed")
	// ErrReviewProductNotFound indicates the product does not exist.
	ErrReviewProductNotFound = errors.New("review: product not found")
)

// ReviewServiceDeps bundles collaborators required to construct a ReviewService.
type ReviewServiceDeps struct {
	Reviews     repositories.ReviewRepository
	Orders      repositories.OrderRepository
	Products    repositories.ProductRepository
	Events      ReviewEventPublisher
	Sanitizer   func(string) string
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type reviewService struct {
	reviews  repositories.ReviewRepository
	orders   repositories.OrderRepository
	products repositories.ProductRepository
	events   ReviewEventPublisher
	sanitize func(string) string
	clock    func() time.Time
	newID    func() string
	logger   func(context.Context, string, map[string]any)
}

// NewReviewService wires dependencies into a concrete ReviewService implementation.
func NewReviewService(deps ReviewServiceDeps) (ReviewService, error) {
	if deps.Reviews == nil {
		return nil, errors.New("review service: review repository is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("review service: order repository is required")
	}

	sanitize := deps.Sanitizer
	if sanitize == nil {
		sanitize = func(s string) string { return s }
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &reviewService{
		reviews:  deps.Reviews,
		orders:   deps.Orders,
		products: deps.Products,
		events:   deps.Events,
		sanitize: sanitize,
		clock:    func() time.Time { return clock().UTC() },
		newID:    idGen,
		logger:   logger,
	}, nil
}

// SubmitReview records a review once the actor has a paid order containing
// the product. One review per user and product pair.
func (s *reviewService) SubmitReview(ctx context.Context, cmd SubmitReviewCommand) (domain.Review, error) {
	userID := strings.TrimSpace(cmd.Actor.UserID)
	productID := strings.TrimSpace(cmd.ProductID)
	if userID == "" || productID == "" {
		return domain.Review{}, fmt.Errorf("%w: user id and product id are required", ErrReviewInvalidInput)
	}
	if cmd.Rating < reviewMinRating || cmd.Rating > reviewMaxRating {
		return domain.Review{}, fmt.Errorf("%w: %d", ErrReviewInvalidRating, cmd.Rating)
	}

	if s.products != nil {
		if _, err := s.products.FindByID(ctx, productID); err != nil {
			if isNotFound(err) {
				return domain.Review{}, fmt.Errorf("%w: %s", ErrReviewProductNotFound, productID)
			}
			return domain.Review{}, fmt.Errorf("review: load product: %w", err)
		}
	}

	purchased, err := s.orders.HasPurchased(ctx, userID, productID)
	if err != nil {
		return domain.Review{}, fmt.Errorf("review: purchase check: %w", err)
	}
	if !purchased {
		return domain.Review{}, fmt.Errorf("%w: %s", ErrReviewNotPurchased, productID)
	}

	now := s.clock()
	review := domain.Review{
		ID:        reviewIDPrefix + s.newID(),
		UserID:    userID,
		ProductID: productID,
		Rating:    cmd.Rating,
		Comment:   strings.TrimSpace(s.sanitize(cmd.Comment)),
		CreatedAt: now,
	}
	created, err := s.reviews.Insert(ctx, review)
	if err != nil {
		if isConflict(err) {
			return domain.Review{}, fmt.Errorf("%w: %s", ErrReviewDuplicate, productID)
		}
		return domain.Review{}, fmt.Errorf("review: insert: %w", err)
	}

	s.logger(ctx, "review.created", map[string]any{
		"review":  created.ID,
		"product": created.ProductID,
		"user":    created.UserID,
		"rating":  created.Rating,
	})
	if s.events != nil {
		if err := s.events.PublishReviewEvent(ctx, ReviewEvent{
			Type:       reviewEventCreated,
			ReviewID:   created.ID,
			ProductID:  created.ProductID,
			UserID:     created.UserID,
			Rating:     created.Rating,
			OccurredAt: now,
		}); err != nil {
			s.logger(ctx, "review.event.publish.failed", map[string]any{
				"review": created.ID,
				"error":  err.Error(),
			})
		}
	}
	return created, nil
}

func (s *reviewService) ListProductReviews(ctx context.Context, productID string, pager domain.Pagination) (domain.Page[domain.Review], error) {
	if strings.TrimSpace(productID) == "" {
		return domain.Page[domain.Review]{}, fmt.Errorf("%w: product id is required", ErrReviewInvalidInput)
	}
	page, err := s.reviews.ListByProduct(ctx, productID, pager)
	if err != nil {
		return domain.Page[domain.Review]{}, fmt.Errorf("review: list: %w", err)
	}
	return page, nil
}

// CanReview reports whether the actor holds a paid order containing the
// product. It does not check for an existing review.
func (s *reviewService) CanReview(ctx context.Context, actor Actor, productID string) (bool, error) {
	userID := strings.TrimSpace(actor.UserID)
	if userID == "" || strings.TrimSpace(productID) == "" {
		return false, fmt.Errorf("%w: user id and product id are required", ErrReviewInvalidInput)
	}
	purchased, err := s.orders.HasPurchased(ctx, userID, productID)
	if err != nil {
		return false, fmt.Errorf("review: purchase check: %w", err)
	}
	return purchased, nil
}
