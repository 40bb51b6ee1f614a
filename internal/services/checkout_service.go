package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/tokokita/api/internal/domain"
	"github.com/tokokita/api/internal/payments"
	"github.com/tokokita/api/internal/repositories"
)

const (
	orderIDPrefix     = "ord_"
	orderItemIDPrefix = "itm_"

	orderEventCreated       = "order.created"
	orderEventStatusChanged = "order.status.changed"
)

var (
	// ErrCheckoutInvalidInput signals the caller provided invalid data.
	ErrCheckoutInvalidInput = errors.New("checkout: invalid input")
	// ErrCheckoutEmptyCart indicates the user attempted checkout with no cart items.
	ErrCheckoutEmptyCart = errors.New("checkout: cart is empty")
	// ErrCheckoutPaymentFailed indicates the order was created but no payment
	// session could be established. The order stays PENDING and the session
	// can be retried.
	ErrCheckoutPaymentFailed = errors.New("checkout: payment session failed")
	// ErrCheckoutOrderNotFound indicates the order could not be located.
	ErrCheckoutOrderNotFound = errors.New("checkout: order not found")
	// ErrCheckoutForbidden indicates the order belongs to a different user.
	ErrCheckoutForbidden = errors.New("checkout: forbidden")
	// ErrCheckoutInvalidState indicates the order is past the point where a
	// payment session makes sense.
	ErrCheckoutInvalidState = errors.New("checkout: order not awaiting payment")
	// ErrCheckoutSessionActive indicates the order already has an open payment
	// session; retrying would risk a duplicate charge.
	ErrCheckoutSessionActive = errors.New("checkout: payment session still open")
)

// StockShortageError reports the product that blocked checkout. It is
// returned before any write takes effect.
type StockShortageError struct {
	ProductID string
	Requested int64
	Available int64
}

// Error implements the error interface.
func (e *StockShortageError) Error() string {
	return fmt.Sprintf("checkout: insufficient stock for product %s (requested %d, available %d)", e.ProductID, e.Requested, e.Available)
}

// CheckoutServiceDeps bundles collaborators required to construct a CheckoutService.
type CheckoutServiceDeps struct {
	Orders      repositories.OrderRepository
	Carts       repositories.CartRepository
	Vouchers    repositories.VoucherRepository
	Users       repositories.UserRepository
	Counters    repositories.CounterRepository
	Gateway     payments.Provider
	Events      OrderEventPublisher
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type checkoutService struct {
	orders   repositories.OrderRepository
	carts    repositories.CartRepository
	vouchers repositories.VoucherRepository
	users    repositories.UserRepository
	counters repositories.CounterRepository
	gateway  payments.Provider
	events   OrderEventPublisher
	clock    func() time.Time
	newID    func() string
	logger   func(context.Context, string, map[string]any)
}

// NewCheckoutService wires dependencies into a concrete CheckoutService implementation.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Orders == nil {
		return nil, errors.New("checkout service: order repository is required")
	}
	if deps.Carts == nil {
		return nil, errors.New("checkout service: cart repository is required")
	}
	if deps.Vouchers == nil {
		return nil, errors.New("checkout service: voucher repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("checkout service: counter repository is required")
	}
	if deps.Gateway == nil {
		return nil, errors.New("checkout service: payment gateway is required")
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

	return &checkoutService{
		orders:   deps.Orders,
		carts:    deps.Carts,
		vouchers: deps.Vouchers,
		users:    deps.Users,
		counters: deps.Counters,
		gateway:  deps.Gateway,
		events:   deps.Events,
		clock:    func() time.Time { return clock().UTC() },
		newID:    idGen,
		logger:   logger,
	}, nil
}

// Checkout converts the actor's cart into a PENDING order in one transaction
// and then opens a payment session for it. A gateway failure leaves the
// order PENDING with a failed session record and returns
// ErrCheckoutPaymentFailed alongside the created order.
func (s *checkoutService) Checkout(ctx context.Context, cmd CheckoutCommand) (CheckoutResult, error) {
	userID := strings.TrimSpace(cmd.Actor.UserID)
	if userID == "" {
		return CheckoutResult{}, fmt.Errorf("%w: user id is required", ErrCheckoutInvalidInput)
	}

	// An empty cart must fail before the order counter is touched; the
	// transaction re-checks under contention.
	items, err := s.carts.ListByUser(ctx, userID)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("checkout: load cart: %w", err)
	}
	if len(items) == 0 {
		return CheckoutResult{}, ErrCheckoutEmptyCart
	}

	var voucher *domain.Voucher
	var voucherCode *string
	if code := strings.ToUpper(strings.TrimSpace(cmd.VoucherCode)); code != "" {
		found, err := s.vouchers.FindByCode(ctx, code)
		if err != nil {
			if isNotFound(err) {
				return CheckoutResult{}, fmt.Errorf("%w: %s", ErrVoucherNotFound, code)
			}
			return CheckoutResult{}, fmt.Errorf("checkout: load voucher: %w", err)
		}
		voucher = &found
		voucherCode = &found.Code
	}

	now := s.clock()
	orderID := orderIDPrefix + s.newID()
	orderNumber, err := s.generateOrderNumber(ctx, now)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("checkout: order number: %w", err)
	}

	order, err := s.orders.PlaceOrder(ctx, repositories.PlaceOrderRequest{
		OrderID:     orderID,
		OrderNumber: orderNumber,
		UserID:      userID,
		VoucherCode: voucherCode,
		Now:         now,
		Quote: func(subtotal int64) (domain.PricingQuote, error) {
			return QuoteCart(subtotal, voucher, now)
		},
		NewItemID: func() string { return orderItemIDPrefix + s.newID() },
	})
	if err != nil {
		return CheckoutResult{}, s.mapPlaceOrderError(err)
	}

	s.logger(ctx, "checkout.order.created", map[string]any{
		"order":  order.ID,
		"number": order.OrderNumber,
		"user":   userID,
		"total":  order.Total,
	})
	s.publishEvent(ctx, OrderEvent{
		Type:          orderEventCreated,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CurrentStatus: string(order.Status),
		ActorID:       userID,
		OccurredAt:    now,
	})

	return s.openPaymentSession(ctx, order)
}

// RetryPaymentSession opens a fresh gateway session for a PENDING order whose
// previous session attempt failed. An order whose latest session is still
// open is rejected; paying it twice is worse than waiting for the webhook.
func (s *checkoutService) RetryPaymentSession(ctx context.Context, actor Actor, orderID string) (CheckoutResult, error) {
	userID := strings.TrimSpace(actor.UserID)
	if userID == "" || strings.TrimSpace(orderID) == "" {
		return CheckoutResult{}, fmt.Errorf("%w: user id and order id are required", ErrCheckoutInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if isNotFound(err) {
			return CheckoutResult{}, fmt.Errorf("%w: %s", ErrCheckoutOrderNotFound, orderID)
		}
		return CheckoutResult{}, fmt.Errorf("checkout: load order: %w", err)
	}
	if order.UserID != userID && !actor.IsAdmin() {
		return CheckoutResult{}, ErrCheckoutForbidden
	}
	if order.Status != domain.OrderStatusPending {
		return CheckoutResult{}, fmt.Errorf("%w: status %s", ErrCheckoutInvalidState, order.Status)
	}
	if order.Payment != nil && order.Payment.FailedAt == nil {
		return CheckoutResult{}, fmt.Errorf("%w: token issued at %s", ErrCheckoutSessionActive, order.Payment.CreatedAt.Format(time.RFC3339))
	}

	return s.openPaymentSession(ctx, order)
}

func (s *checkoutService) openPaymentSession(ctx context.Context, order domain.Order) (CheckoutResult, error) {
	result := CheckoutResult{Order: order}
	now := s.clock()

	var customerName, customerEmail string
	if s.users != nil {
		if user, err := s.users.FindByID(ctx, order.UserID); err == nil {
			customerName = user.Name
			customerEmail = user.Email
		} else if !isNotFound(err) {
			s.logger(ctx, "checkout.customer.lookup_failed", map[string]any{
				"order": order.ID,
				"error": err.Error(),
			})
		}
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, payments.CheckoutSessionRequest{
		OrderID:       order.ID,
		GrossAmount:   order.Total,
		CustomerName:  customerName,
		CustomerEmail: customerEmail,
	})
	if err != nil {
		failedAt := now
		record := domain.PaymentSession{
			CreatedAt:     now,
			FailedAt:      &failedAt,
			FailureReason: err.Error(),
		}
		if saved, saveErr := s.orders.SavePaymentSession(ctx, order.ID, record); saveErr != nil {
			s.logger(ctx, "checkout.session.record_failed", map[string]any{
				"order": order.ID,
				"error": saveErr.Error(),
			})
		} else {
			result.Order = saved
		}
		s.logger(ctx, "checkout.session.failed", map[string]any{
			"order": order.ID,
			"error": err.Error(),
		})
		return result, fmt.Errorf("%w: %v", ErrCheckoutPaymentFailed, err)
	}

	record := domain.PaymentSession{
		Token:       session.Token,
		RedirectURL: session.RedirectURL,
		CreatedAt:   now,
	}
	saved, err := s.orders.SavePaymentSession(ctx, order.ID, record)
	if err != nil {
		// The gateway session exists; surface it even though persisting the
		// record failed.
		s.logger(ctx, "checkout.session.record_failed", map[string]any{
			"order": order.ID,
			"error": err.Error(),
		})
		result.Payment = &record
		return result, nil
	}
	result.Order = saved
	result.Payment = saved.Payment
	if result.Payment == nil {
		result.Payment = &record
	}
	return result, nil
}

func (s *checkoutService) generateOrderNumber(ctx context.Context, now time.Time) (string, error) {
	seq, err := s.counters.Next(ctx, "orders", 1)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("TK-%04d-%06d", now.Year(), seq), nil
}

func (s *checkoutService) mapPlaceOrderError(err error) error {
	if errors.Is(err, repositories.ErrCartEmpty) {
		return ErrCheckoutEmptyCart
	}
	var stockErr *repositories.InsufficientStockError
	if errors.As(err, &stockErr) {
		return &StockShortageError{
			ProductID: stockErr.ProductID,
			Requested: stockErr.Requested,
			Available: stockErr.Available,
		}
	}
	var goneErr *repositories.ProductGoneError
	if errors.As(err, &goneErr) {
		return &StockShortageError{ProductID: goneErr.ProductID}
	}
	if errors.Is(err, ErrVoucherExpired) || errors.Is(err, ErrVoucherMinimumNotMet) || errors.Is(err, ErrVoucherNotFound) {
		return err
	}
	return fmt.Errorf("checkout: place order: %w", err)
}

func (s *checkoutService) publishEvent(ctx context.Context, event OrderEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "order.event.publish.failed", map[string]any{
			"type":  event.Type,
			"order": event.OrderID,
			"error": err.Error(),
		})
	}
}
