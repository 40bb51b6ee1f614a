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

const productIDPrefix = "prd_"

var (
	// ErrCatalogInvalidInput signals the caller provided invalid data.
	ErrCatalogInvalidInput = errors.New("catalog: invalid input")
	// ErrCatalogProductNotFound indicates the product does not exist.
	ErrCatalogProductNotFound = errors.New("catalog: product not found")
	// ErrCatalogForbidden indicates the actor does not own the product.
	ErrCatalogForbidden = errors.New("catalog: forbidden")
)

// CatalogServiceDeps bundles collaborators required to construct a CatalogService.
type CatalogServiceDeps struct {
	Products    repositories.ProductRepository
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type catalogService struct {
	products repositories.ProductRepository
	clock    func() time.Time
	newID    func() string
	logger   func(context.Context, string, map[string]any)
}

// NewCatalogService wires dependencies into a concrete CatalogService implementation.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Products == nil {
		return nil, errors.New("catalog service: product repository is required")
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

	return &catalogService{
		products: deps.Products,
		clock:    func() time.Time { return clock().UTC() },
		newID:    idGen,
		logger:   logger,
	}, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, cmd UpsertProductCommand) (domain.Product, error) {
	if !cmd.Actor.IsSeller() && !cmd.Actor.IsAdmin() {
		return domain.Product{}, ErrCatalogForbidden
	}
	if err := validateProductFields(cmd); err != nil {
		return domain.Product{}, err
	}

	now := s.clock()
	product := domain.Product{
		ID:          productIDPrefix + s.newID(),
		SellerID:    cmd.Actor.UserID,
		Name:        strings.TrimSpace(cmd.Name),
		Description: strings.TrimSpace(cmd.Description),
		Price:       cmd.Price,
		Stock:       cmd.Stock,
		ImageURL:    strings.TrimSpace(cmd.ImageURL),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.products.Insert(ctx, product); err != nil {
		return domain.Product{}, fmt.Errorf("catalog: create: %w", err)
	}

	s.logger(ctx, "catalog.product.created", map[string]any{
		"product": product.ID,
		"seller":  product.SellerID,
	})
	return product, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, cmd UpsertProductCommand) (domain.Product, error) {
	if strings.TrimSpace(cmd.ProductID) == "" {
		return domain.Product{}, fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}
	if err := validateProductFields(cmd); err != nil {
		return domain.Product{}, err
	}

	existing, err := s.loadOwned(ctx, cmd.Actor, cmd.ProductID)
	if err != nil {
		return domain.Product{}, err
	}

	existing.Name = strings.TrimSpace(cmd.Name)
	existing.Description = strings.TrimSpace(cmd.Description)
	existing.Price = cmd.Price
	existing.Stock = cmd.Stock
	existing.ImageURL = strings.TrimSpace(cmd.ImageURL)
	existing.UpdatedAt = s.clock()

	if err := s.products.Update(ctx, existing); err != nil {
		if isNotFound(err) {
			return domain.Product{}, fmt.Errorf("%w: %s", ErrCatalogProductNotFound, cmd.ProductID)
		}
		return domain.Product{}, fmt.Errorf("catalog: update: %w", err)
	}
	return existing, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, actor Actor, productID string) error {
	if strings.TrimSpace(productID) == "" {
		return fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}
	if _, err := s.loadOwned(ctx, actor, productID); err != nil {
		return err
	}
	if err := s.products.Delete(ctx, productID); err != nil {
		return fmt.Errorf("catalog: delete: %w", err)
	}
	s.logger(ctx, "catalog.product.deleted", map[string]any{
		"product": productID,
		"actor":   actor.UserID,
	})
	return nil
}

func (s *catalogService) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	if strings.TrimSpace(productID) == "" {
		return domain.Product{}, fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if isNotFound(err) {
			return domain.Product{}, fmt.Errorf("%w: %s", ErrCatalogProductNotFound, productID)
		}
		return domain.Product{}, fmt.Errorf("catalog: load: %w", err)
	}
	return product, nil
}

func (s *catalogService) ListProducts(ctx context.Context, filter ProductListQuery) (domain.Page[domain.Product], error) {
	page, err := s.products.List(ctx, repositories.ProductListFilter{
		SellerID: strings.TrimSpace(filter.SellerID),
		Pager:    filter.Pager,
	})
	if err != nil {
		return domain.Page[domain.Product]{}, fmt.Errorf("catalog: list: %w", err)
	}
	return page, nil
}

func (s *catalogService) loadOwned(ctx context.Context, actor Actor, productID string) (domain.Product, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if isNotFound(err) {
			return domain.Product{}, fmt.Errorf("%w: %s", ErrCatalogProductNotFound, productID)
		}
		return domain.Product{}, fmt.Errorf("catalog: load: %w", err)
	}
	if product.SellerID != actor.UserID && !actor.IsAdmin() {
		return domain.Product{}, ErrCatalogForbidden
	}
	return product, nil
}

func validateProductFields(cmd UpsertProductCommand) error {
	if strings.TrimSpace(cmd.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrCatalogInvalidInput)
	}
	if cmd.Price <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrCatalogInvalidInput)
	}
	if cmd.Stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrCatalogInvalidInput)
	}
	return nil
}
