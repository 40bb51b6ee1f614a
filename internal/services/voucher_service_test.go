package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/tokokita/api/internal/domain"
)

func newVoucherService(t *testing.T, deps VoucherServiceDeps) VoucherService {
	t.Helper()
	if deps.Clock == nil {
		deps.Clock = fixedClock(time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC))
	}
	if deps.IDGenerator == nil {
		deps.IDGenerator = sequenceIDs("01VCH")
	}
	svc, err := NewVoucherService(deps)
	if err != nil {
		t.Fatalf("failed to construct voucher service: %v", err)
	}
	return svc
}

func TestCreateVoucherNormalisesCode(t *testing.T) {
	var inserted domain.Voucher
	vouchers := &stubVoucherRepo{
		insertFunc: func(_ context.Context, voucher domain.Voucher) error {
			inserted = voucher
			return nil
		},
	}
	svc := newVoucherService(t, VoucherServiceDeps{Vouchers: vouchers})

	created, err := svc.CreateVoucher(context.Background(), CreateVoucherCommand{
		Actor:       Actor{UserID: "seller-1", Role: domain.RoleSeller},
		Code:        "  hemat30  ",
		Type:        domain.VoucherFixed,
		Amount:      30000,
		MinPurchase: 100000,
		ExpiresAt:   time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID != "vch_01VCH" {
		t.Fatalf("unexpected id %q", created.ID)
	}
	if created.Code != "HEMAT30" {
		t.Fatalf("expected code HEMAT30, got %q", created.Code)
	}
	if inserted.SellerID != "seller-1" {
		t.Fatalf("expected seller-1 as owner, got %q", inserted.SellerID)
	}
}

func TestCreateVoucherValidation(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)
	seller := Actor{UserID: "seller-1", Role: domain.RoleSeller}

	cases := []struct {
		name    string
		cmd     CreateVoucherCommand
		wantErr error
	}{
		{
			"customer cannot create",
			CreateVoucherCommand{Actor: Actor{UserID: "user-1", Role: domain.RoleCustomer}, Code: "X", Type: domain.VoucherFixed, Amount: 1, ExpiresAt: future},
			ErrVoucherForbidden,
		},
		{
			"blank code",
			CreateVoucherCommand{Actor: seller, Code: "   ", Type: domain.VoucherFixed, Amount: 1, ExpiresAt: future},
			ErrVoucherInvalidInput,
		},
		{
			"fixed amount must be positive",
			CreateVoucherCommand{Actor: seller, Code: "X", Type: domain.VoucherFixed, Amount: 0, ExpiresAt: future},
			ErrVoucherInvalidInput,
		},
		{
			"percent above 100",
			CreateVoucherCommand{Actor: seller, Code: "X", Type: domain.VoucherPercent, Amount: 150, ExpiresAt: future},
			ErrVoucherInvalidInput,
		},
		{
			"unknown type",
			CreateVoucherCommand{Actor: seller, Code: "X", Type: domain.VoucherType("BOGO"), Amount: 1, ExpiresAt: future},
			ErrVoucherInvalidInput,
		},
		{
			"negative minimum purchase",
			CreateVoucherCommand{Actor: seller, Code: "X", Type: domain.VoucherFixed, Amount: 1, MinPurchase: -1, ExpiresAt: future},
			ErrVoucherInvalidInput,
		},
		{
			"expiry in the past",
			CreateVoucherCommand{Actor: seller, Code: "X", Type: domain.VoucherFixed, Amount: 1, ExpiresAt: now.Add(-time.Hour)},
			ErrVoucherInvalidInput,
		},
		{
			"zero expiry",
			CreateVoucherCommand{Actor: seller, Code: "X", Type: domain.VoucherFixed, Amount: 1},
			ErrVoucherInvalidInput,
		},
	}
	svc := newVoucherService(t, VoucherServiceDeps{Vouchers: &stubVoucherRepo{}, Clock: fixedClock(now)})
	for _, tc := range cases {
		if _, err := svc.CreateVoucher(context.Background(), tc.cmd); !errors.Is(err, tc.wantErr) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.wantErr, err)
		}
	}
}

func TestCreateVoucherDuplicateCode(t *testing.T) {
	vouchers := &stubVoucherRepo{
		insertFunc: func(_ context.Context, voucher domain.Voucher) error {
			return conflictErr("code exists")
		},
	}
	svc := newVoucherService(t, VoucherServiceDeps{Vouchers: vouchers})

	_, err := svc.CreateVoucher(context.Background(), CreateVoucherCommand{
		Actor:     Actor{UserID: "seller-1", Role: domain.RoleSeller},
		Code:      "HEMAT30",
		Type:      domain.VoucherFixed,
		Amount:    30000,
		ExpiresAt: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, ErrVoucherCodeTaken) {
		t.Fatalf("expected ErrVoucherCodeTaken, got %v", err)
	}
}

func TestListMyVouchersRequiresSellerRole(t *testing.T) {
	vouchers := &stubVoucherRepo{
		listBySellerFunc: func(_ context.Context, sellerID string, pager domain.Pagination) (domain.Page[domain.Voucher], error) {
			return domain.Page[domain.Voucher]{Items: []domain.Voucher{{ID: "vch_1", SellerID: sellerID}}}, nil
		},
	}
	svc := newVoucherService(t, VoucherServiceDeps{Vouchers: vouchers})

	page, err := svc.ListMyVouchers(context.Background(), Actor{UserID: "seller-1", Role: domain.RoleSeller}, domain.Pagination{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected one voucher, got %d", len(page.Items))
	}

	if _, err := svc.ListMyVouchers(context.Background(), Actor{UserID: "user-1", Role: domain.RoleCustomer}, domain.Pagination{}); !errors.Is(err, ErrVoucherForbidden) {
		t.Fatalf("expected ErrVoucherForbidden, got %v", err)
	}
}
