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

const voucherIDPrefix = "vch_"

var (
	// ErrVoucherInvalidInput signals the caller provided invalid data.
	ErrVoucherInvalidInput = errors.New("voucher: invalid input")
	// ErrVoucherForbidden indicates a non-seller attempted a seller operation.
	ErrVoucherForbidden = errors.New("voucher: forbidden")
	// ErrVoucherCodeTaken indicates the code is already registered.
	ErrVoucherCodeTaken = errors.New("voucher: code already exists")
)

// VoucherServiceDeps bundles collaborators required to construct a VoucherService.
type VoucherServiceDeps struct {
	Vouchers    repositories.VoucherRepository
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type voucherService struct {
	vouchers repositories.VoucherRepository
	clock    func() time.Time
	newID    func() string
	logger   func(context.Context, string, map[string]any)
}

// NewVoucherService wires dependencies into a concrete VoucherService implementation.
func NewVoucherService(deps VoucherServiceDeps) (VoucherService, error) {
	if deps.Vouchers == nil {
		return nil, errors.New("voucher service: voucher repository is required")
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

	return &voucherService{
		vouchers: deps.Vouchers,
		clock:    func() time.Time { return clock().UTC() },
		newID:    idGen,
		logger:   logger,
	}, nil
}

func (s *voucherService) CreateVoucher(ctx context.Context, cmd CreateVoucherCommand) (domain.Voucher, error) {
	if !cmd.Actor.IsSeller() && !cmd.Actor.IsAdmin() {
		return domain.Voucher{}, ErrVoucherForbidden
	}
	code := strings.ToUpper(strings.TrimSpace(cmd.Code))
	if code == "" {
		return domain.Voucher{}, fmt.Errorf("%w: code is required", ErrVoucherInvalidInput)
	}
	switch cmd.Type {
	case domain.VoucherFixed:
		if cmd.Amount <= 0 {
			return domain.Voucher{}, fmt.Errorf("%w: fixed amount must be positive", ErrVoucherInvalidInput)
		}
	case domain.VoucherPercent:
		if cmd.Amount <= 0 || cmd.Amount > 100 {
			return domain.Voucher{}, fmt.Errorf("%w: percent must be between 1 and 100", ErrVoucherInvalidInput)
		}
	default:
		return domain.Voucher{}, fmt.Errorf("%w: unknown voucher type %q", ErrVoucherInvalidInput, cmd.Type)
	}
	if cmd.MinPurchase < 0 {
		return domain.Voucher{}, fmt.Errorf("%w: minimum purchase must not be negative", ErrVoucherInvalidInput)
	}
	now := s.clock()
	if cmd.ExpiresAt.IsZero() || !cmd.ExpiresAt.After(now) {
		return domain.Voucher{}, fmt.Errorf("%w: expiry must be in the future", ErrVoucherInvalidInput)
	}

	voucher := domain.Voucher{
		ID:          voucherIDPrefix + s.newID(),
		SellerID:    cmd.Actor.UserID,
		Code:        code,
		Type:        cmd.Type,
		Amount:      cmd.Amount,
		MinPurchase: cmd.MinPurchase,
		ExpiresAt:   cmd.ExpiresAt.UTC(),
		CreatedAt:   now,
	}
	if err := s.vouchers.Insert(ctx, voucher); err != nil {
		if isConflict(err) {
			return domain.Voucher{}, fmt.Errorf("%w: %s", ErrVoucherCodeTaken, code)
		}
		return domain.Voucher{}, fmt.Errorf("voucher: create: %w", err)
	}

	s.logger(ctx, "voucher.created", map[string]any{
		"voucher": voucher.ID,
		"code":    voucher.Code,
		"seller":  voucher.SellerID,
	})
	return voucher, nil
}

func (s *voucherService) ListMyVouchers(ctx context.Context, actor Actor, pager domain.Pagination) (domain.Page[domain.Voucher], error) {
	if strings.TrimSpace(actor.UserID) == "" {
		return domain.Page[domain.Voucher]{}, fmt.Errorf("%w: user id is required", ErrVoucherInvalidInput)
	}
	if !actor.IsSeller() && !actor.IsAdmin() {
		return domain.Page[domain.Voucher]{}, ErrVoucherForbidden
	}
	page, err := s.vouchers.ListBySeller(ctx, actor.UserID, pager)
	if err != nil {
		return domain.Page[domain.Voucher]{}, fmt.Errorf("voucher: list: %w", err)
	}
	return page, nil
}
