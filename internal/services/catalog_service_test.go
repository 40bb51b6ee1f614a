package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/tokokita/api/internal/domain"
	"github.com/tokokita/api/internal/repositories"
)

func newCatalogService(t *testing.T, deps CatalogServiceDeps) CatalogService {
	t.Helper()
	if deps.Clock == nil {
		deps.Clock = fixedClock(time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC))
	}
	if deps.IDGenerator == nil {
		deps.IDGenerator = sequenceIDs("01PRD")
	}
	svc, err := NewCatalogService(deps)
	if err != nil {
		t.Fatalf("failed to construct catalog service: %v", err)
	}
	return svc
}

func TestCreateProduct(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	var inserted domain.Product
	products := &stubProductRepo{
		insertFunc: func(_ context.Context, product domain.Product) error {
			inserted = product
			return nil
		},
	}
	svc := newCatalogService(t, CatalogServiceDeps{Products: products, Clock: fixedClock(now)})

	created, err := svc.CreateProduct(context.Background(), UpsertProductCommand{
		Actor: Actor{UserID: "seller-1", Role: domain.RoleSeller},
		Name:  "  Batik Shirt  ",
		Price: 125000,
		Stock: 10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID != "prd_01PRD" {
		t.Fatalf("unexpected id %q", created.ID)
	}
	if created.Name != "Batik Shirt" {
		t.Fatalf("expected trimmed name, got %q", created.Name)
	}
	if inserted.SellerID != "seller-1" {
		t.Fatalf("expected seller-1 as owner, got %q", inserted.SellerID)
	}
	if !created.CreatedAt.Equal(now) || !created.UpdatedAt.Equal(now) {
		t.Fatalf("unexpected timestamps %+v", created)
	}
}

func TestCreateProductValidation(t *testing.T) {
	seller := Actor{UserID: "seller-1", Role: domain.RoleSeller}
	svc := newCatalogService(t, CatalogServiceDeps{Products: &stubProductRepo{}})

	cases := []struct {
		name    string
		cmd     UpsertProductCommand
		wantErr error
	}{
		{"customer cannot create", UpsertProductCommand{Actor: Actor{UserID: "user-1", Role: domain.RoleCustomer}, Name: "X", Price: 1}, ErrCatalogForbidden},
		{"blank name", UpsertProductCommand{Actor: seller, Name: "  ", Price: 1}, ErrCatalogInvalidInput},
		{"zero price", UpsertProductCommand{Actor: seller, Name: "X"}, ErrCatalogInvalidInput},
		{"negative stock", UpsertProductCommand{Actor: seller, Name: "X", Price: 1, Stock: -1}, ErrCatalogInvalidInput},
	}
	for _, tc := range cases {
		if _, err := svc.CreateProduct(context.Background(), tc.cmd); !errors.Is(err, tc.wantErr) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.wantErr, err)
		}
	}
}

func TestUpdateProductOwnership(t *testing.T) {
	existing := domain.Product{
		ID:        "prd_1",
		SellerID:  "seller-1",
		Name:      "Batik Shirt",
		Price:     125000,
		Stock:     10,
		CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	products := &stubProductRepo{
		findByIDFunc: func(_ context.Context, productID string) (domain.Product, error) {
			return existing, nil
		},
		updateFunc: func(_ context.Context, product domain.Product) error {
			return nil
		},
	}
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	svc := newCatalogService(t, CatalogServiceDeps{Products: products, Clock: fixedClock(now)})

	updated, err := svc.UpdateProduct(context.Background(), UpsertProductCommand{
		Actor:     Actor{UserID: "seller-1", Role: domain.RoleSeller},
		ProductID: "prd_1",
		Name:      "Batik Shirt Premium",
		Price:     150000,
		Stock:     5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Name != "Batik Shirt Premium" || updated.Price != 150000 {
		t.Fatalf("unexpected product %+v", updated)
	}
	if !updated.UpdatedAt.Equal(now) {
		t.Fatalf("expected UpdatedAt %v, got %v", now, updated.UpdatedAt)
	}
	if !updated.CreatedAt.Equal(existing.CreatedAt) {
		t.Fatalf("expected CreatedAt to be preserved, got %v", updated.CreatedAt)
	}

	// Another seller cannot touch it; an admin can.
	_, err = svc.UpdateProduct(context.Background(), UpsertProductCommand{
		Actor:     Actor{UserID: "seller-2", Role: domain.RoleSeller},
		ProductID: "prd_1",
		Name:      "Hijacked",
		Price:     1,
	})
	if !errors.Is(err, ErrCatalogForbidden) {
		t.Fatalf("expected ErrCatalogForbidden, got %v", err)
	}
	_, err = svc.UpdateProduct(context.Background(), UpsertProductCommand{
		Actor:     Actor{UserID: "ops-1", Role: domain.RoleAdmin},
		ProductID: "prd_1",
		Name:      "Moderated",
		Price:     1,
	})
	if err != nil {
		t.Fatalf("expected admin update to succeed, got %v", err)
	}
}

func TestDeleteProduct(t *testing.T) {
	deleted := ""
	products := &stubProductRepo{
		findByIDFunc: func(_ context.Context, productID string) (domain.Product, error) {
			return domain.Product{ID: productID, SellerID: "seller-1"}, nil
		},
		deleteFunc: func(_ context.Context, productID string) error {
			deleted = productID
			return nil
		},
	}
	svc := newCatalogService(t, CatalogServiceDeps{Products: products})

	if err := svc.DeleteProduct(context.Background(), Actor{UserID: "seller-1", Role: domain.RoleSeller}, "prd_1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != "prd_1" {
		t.Fatalf("expected prd_1 deleted, got %q", deleted)
	}

	err := svc.DeleteProduct(context.Background(), Actor{UserID: "seller-2", Role: domain.RoleSeller}, "prd_1")
	if !errors.Is(err, ErrCatalogForbidden) {
		t.Fatalf("expected ErrCatalogForbidden, got %v", err)
	}
}

func TestGetProductNotFound(t *testing.T) {
	products := &stubProductRepo{
		findByIDFunc: func(_ context.Context, productID string) (domain.Product, error) {
			return domain.Product{}, notFoundErr("no such product")
		},
	}
	svc := newCatalogService(t, CatalogServiceDeps{Products: products})

	if _, err := svc.GetProduct(context.Background(), "prd_gone"); !errors.Is(err, ErrCatalogProductNotFound) {
		t.Fatalf("expected ErrCatalogProductNotFound, got %v", err)
	}
}

func TestListProductsPassesSellerFilter(t *testing.T) {
	var filter repositories.ProductListFilter
	products := &stubProductRepo{
		listFunc: func(_ context.Context, f repositories.ProductListFilter) (domain.Page[domain.Product], error) {
			filter = f
			return domain.Page[domain.Product]{Items: []domain.Product{{ID: "prd_1"}}}, nil
		},
	}
	svc := newCatalogService(t, CatalogServiceDeps{Products: products})

	page, err := svc.ListProducts(context.Background(), ProductListQuery{SellerID: " seller-1 "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filter.SellerID != "seller-1" {
		t.Fatalf("expected trimmed seller filter, got %q", filter.SellerID)
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected one product, got %d", len(page.Items))
	}
}
