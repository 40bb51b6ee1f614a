package repositories

import (
	"errors"
	"fmt"

	domain "github.com/tokokita/api/internal/domain"
)

// ErrCartEmpty reports that checkout found no cart lines for the user.
var ErrCartEmpty = errors.New("order: cart is empty")

// ErrNotOwner reports that the document belongs to a different user than the
// caller.
var ErrNotOwner = errors.New("repository: resource owned by another user")

// InsufficientStockError aborts a checkout transaction when a product cannot
// cover the requested quantity. No partial writes survive it.
type InsufficientStockError struct {
	ProductID string
	Requested int64
	Available int64
}

// Error implements the error interface.
func (e *InsufficientStockError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("order: insufficient stock for product %s (requested %d, available %d)", e.ProductID, e.Requested, e.Available)
}

// ProductGoneError aborts a checkout transaction when a cart line references
// a product that no longer exists.
type ProductGoneError struct {
	ProductID string
}

// Error implements the error interface.
func (e *ProductGoneError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("order: product %s no longer exists", e.ProductID)
}

// InvalidTransitionError reports a lifecycle move the status graph forbids.
type InvalidTransitionError struct {
	OrderID string
	From    domain.OrderStatus
	To      domain.OrderStatus
}

// Error implements the error interface.
func (e *InvalidTransitionError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("order %s: transition %s -> %s is not allowed", e.OrderID, e.From, e.To)
}
