package services

import (
	"errors"
	"fmt"
	"time"

	domain "github.com/tokokita/api/internal/domain"
)

var (
	// ErrVoucherNotFound indicates no voucher exists for the supplied code.
	ErrVoucherNotFound = errors.New("pricing: voucher not found")
	// ErrVoucherExpired indicates the voucher's validity window has passed.
	ErrVoucherExpired = errors.New("pricing: voucher expired")
	// ErrVoucherMinimumNotMet indicates the subtotal is below the voucher's
	// minimum purchase amount. Use VoucherMinimumError to read the minimum.
	ErrVoucherMinimumNotMet = errors.New("pricing: voucher minimum purchase not met")
)

// VoucherMinimumError carries the minimum purchase the subtotal failed to
// reach. It unwraps to ErrVoucherMinimumNotMet.
type VoucherMinimumError struct {
	Minimum  int64
	Subtotal int64
}

// Error implements the error interface.
func (e *VoucherMinimumError) Error() string {
	return fmt.Sprintf("pricing: subtotal %d below voucher minimum %d", e.Subtotal, e.Minimum)
}

// Unwrap ties the typed error to the sentinel.
func (e *VoucherMinimumError) Unwrap() error { return ErrVoucherMinimumNotMet }

// QuoteCart evaluates the subtotal against an optional voucher and returns
// the amounts to freeze on the order. A nil voucher yields a zero discount.
//
// PERCENT discounts use integer division (subtotal*amount/100), truncating
// any fractional remainder toward zero. The total never goes below zero.
func QuoteCart(subtotal int64, voucher *domain.Voucher, now time.Time) (domain.PricingQuote, error) {
	quote := domain.PricingQuote{Subtotal: subtotal, Total: subtotal}
	if voucher == nil {
		return quote, nil
	}

	if !voucher.ExpiresAt.IsZero() && now.After(voucher.ExpiresAt) {
		return domain.PricingQuote{}, ErrVoucherExpired
	}
	if subtotal < voucher.MinPurchase {
		return domain.PricingQuote{}, &VoucherMinimumError{Minimum: voucher.MinPurchase, Subtotal: subtotal}
	}

	var discount int64
	switch voucher.Type {
	case domain.VoucherFixed:
		discount = voucher.Amount
	case domain.VoucherPercent:
		discount = subtotal * voucher.Amount / 100
	default:
		return domain.PricingQuote{}, fmt.Errorf("pricing: unknown voucher type %q", voucher.Type)
	}
	if discount < 0 {
		discount = 0
	}

	total := subtotal - discount
	if total < 0 {
		total = 0
	}
	quote.Discount = discount
	quote.Total = total
	return quote, nil
}
