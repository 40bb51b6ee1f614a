package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/tokokita/api/internal/domain"
	"github.com/tokokita/api/internal/payments"
	"github.com/tokokita/api/internal/repositories"
)

func newCheckoutService(t *testing.T, deps CheckoutServiceDeps) CheckoutService {
	t.Helper()
	if deps.Clock == nil {
		deps.Clock = fixedClock(time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC))
	}
	if deps.IDGenerator == nil {
		deps.IDGenerator = sequenceIDs("01AAA", "01BBB", "01CCC", "01DDD")
	}
	if deps.Carts == nil {
		deps.Carts = &stubCartRepo{
			listByUserFunc: func(_ context.Context, userID string) ([]domain.CartItem, error) {
				return []domain.CartItem{{ID: "itm_seed", UserID: userID, ProductID: "prd_seed", Quantity: 1}}, nil
			},
		}
	}
	svc, err := NewCheckoutService(deps)
	if err != nil {
		t.Fatalf("failed to construct checkout service: %v", err)
	}
	return svc
}

func TestCheckoutPlacesOrderAndOpensSession(t *testing.T) {
	now := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	var placed *repositories.PlaceOrderRequest
	var sessionReq *payments.CheckoutSessionRequest

	orders := &stubOrderRepo{
		placeOrderFunc: func(_ context.Context, req repositories.PlaceOrderRequest) (domain.Order, error) {
			placed = &req
			quote, err := req.Quote(200000)
			if err != nil {
				return domain.Order{}, err
			}
			return domain.Order{
				ID:          req.OrderID,
				OrderNumber: req.OrderNumber,
				UserID:      req.UserID,
				Status:      domain.OrderStatusPending,
				Subtotal:    quote.Subtotal,
				Discount:    quote.Discount,
				Total:       quote.Total,
				CreatedAt:   req.Now,
			}, nil
		},
		saveSessionFunc: func(_ context.Context, orderID string, session domain.PaymentSession) (domain.Order, error) {
			return domain.Order{
				ID:      orderID,
				Status:  domain.OrderStatusPending,
				Payment: &session,
			}, nil
		},
	}
	vouchers := &stubVoucherRepo{
		findByCodeFunc: func(_ context.Context, code string) (domain.Voucher, error) {
			if code != "HEMAT30" {
				t.Fatalf("expected upper-cased code HEMAT30, got %q", code)
			}
			return domain.Voucher{
				Code:      "HEMAT30",
				Type:      domain.VoucherFixed,
				Amount:    30000,
				ExpiresAt: now.Add(time.Hour),
			}, nil
		},
	}
	users := &stubUserRepo{
		findByIDFunc: func(_ context.Context, userID string) (domain.User, error) {
			return domain.User{ID: userID, Name: "Sari Wijaya", Email: "sari@example.com"}, nil
		},
	}
	counters := &stubCounterRepo{
		nextFunc: func(_ context.Context, counterID string, step int64) (int64, error) {
			if counterID != "orders" || step != 1 {
				t.Fatalf("unexpected counter request %s/%d", counterID, step)
			}
			return 42, nil
		},
	}
	gateway := &stubGateway{
		createFunc: func(_ context.Context, req payments.CheckoutSessionRequest) (payments.CheckoutSession, error) {
			sessionReq = &req
			return payments.CheckoutSession{Token: "snap-token", RedirectURL: "https://app.sandbox.midtrans.com/snap/v4/redirection/snap-token"}, nil
		},
	}
	events := &capturedOrderEvents{}

	svc := newCheckoutService(t, CheckoutServiceDeps{
		Orders:   orders,
		Vouchers: vouchers,
		Users:    users,
		Counters: counters,
		Gateway:  gateway,
		Events:   events,
		Clock:    fixedClock(now),
	})

	result, err := svc.Checkout(context.Background(), CheckoutCommand{
		Actor:       Actor{UserID: "user-1", Role: domain.RoleCustomer},
		VoucherCode: " hemat30 ",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if placed == nil {
		t.Fatal("expected PlaceOrder to be called")
	}
	if placed.OrderNumber != "TK-2026-000042" {
		t.Fatalf("unexpected order number %q", placed.OrderNumber)
	}
	if placed.OrderID != "ord_01AAA" {
		t.Fatalf("unexpected order id %q", placed.OrderID)
	}
	if placed.VoucherCode == nil || *placed.VoucherCode != "HEMAT30" {
		t.Fatalf("expected voucher code HEMAT30 on request, got %v", placed.VoucherCode)
	}
	if itemID := placed.NewItemID(); itemID != "itm_01BBB" {
		t.Fatalf("unexpected item id %q", itemID)
	}

	if sessionReq == nil {
		t.Fatal("expected gateway session to be requested")
	}
	if sessionReq.GrossAmount != 170000 {
		t.Fatalf("expected gross amount 170000, got %d", sessionReq.GrossAmount)
	}
	if sessionReq.CustomerName != "Sari Wijaya" {
		t.Fatalf("expected customer name on request, got %q", sessionReq.CustomerName)
	}

	if result.Payment == nil || result.Payment.Token != "snap-token" {
		t.Fatalf("expected payment session on result, got %+v", result.Payment)
	}

	if len(events.events) != 1 {
		t.Fatalf("expected one published event, got %d", len(events.events))
	}
	if events.events[0].Type != "order.created" {
		t.Fatalf("unexpected event type %q", events.events[0].Type)
	}
}

func TestCheckoutEmptyCartLeavesCounterUntouched(t *testing.T) {
	var counterCalls int
	counters := &stubCounterRepo{
		nextFunc: func(context.Context, string, int64) (int64, error) {
			counterCalls++
			return 1, nil
		},
	}
	svc := newCheckoutService(t, CheckoutServiceDeps{
		Orders:   &stubOrderRepo{},
		Vouchers: &stubVoucherRepo{},
		Counters: counters,
		Gateway:  &stubGateway{},
		Carts: &stubCartRepo{
			listByUserFunc: func(context.Context, string) ([]domain.CartItem, error) {
				return nil, nil
			},
		},
	})

	_, err := svc.Checkout(context.Background(), CheckoutCommand{Actor: Actor{UserID: "user-1"}})
	if !errors.Is(err, ErrCheckoutEmptyCart) {
		t.Fatalf("expected ErrCheckoutEmptyCart, got %v", err)
	}
	if counterCalls != 0 {
		t.Fatalf("expected no order counter allocation for an empty cart, got %d", counterCalls)
	}
}

func TestCheckoutCartDrainedInsideTransaction(t *testing.T) {
	orders := &stubOrderRepo{
		placeOrderFunc: func(context.Context, repositories.PlaceOrderRequest) (domain.Order, error) {
			return domain.Order{}, repositories.ErrCartEmpty
		},
	}
	svc := newCheckoutService(t, CheckoutServiceDeps{
		Orders:   orders,
		Vouchers: &stubVoucherRepo{},
		Counters: &stubCounterRepo{nextFunc: func(context.Context, string, int64) (int64, error) { return 1, nil }},
		Gateway:  &stubGateway{},
	})

	_, err := svc.Checkout(context.Background(), CheckoutCommand{Actor: Actor{UserID: "user-1"}})
	if !errors.Is(err, ErrCheckoutEmptyCart) {
		t.Fatalf("expected ErrCheckoutEmptyCart, got %v", err)
	}
}

func TestCheckoutUnknownVoucher(t *testing.T) {
	svc := newCheckoutService(t, CheckoutServiceDeps{
		Orders: &stubOrderRepo{},
		Vouchers: &stubVoucherRepo{
			findByCodeFunc: func(context.Context, string) (domain.Voucher, error) {
				return domain.Voucher{}, notFoundErr("voucher missing")
			},
		},
		Counters: &stubCounterRepo{},
		Gateway:  &stubGateway{},
	})

	_, err := svc.Checkout(context.Background(), CheckoutCommand{
		Actor:       Actor{UserID: "user-1"},
		VoucherCode: "GAIB",
	})
	if !errors.Is(err, ErrVoucherNotFound) {
		t.Fatalf("expected ErrVoucherNotFound, got %v", err)
	}
}

func TestCheckoutStockShortage(t *testing.T) {
	orders := &stubOrderRepo{
		placeOrderFunc: func(context.Context, repositories.PlaceOrderRequest) (domain.Order, error) {
			return domain.Order{}, &repositories.InsufficientStockError{
				ProductID: "prd_01X",
				Requested: 3,
				Available: 1,
			}
		},
	}
	svc := newCheckoutService(t, CheckoutServiceDeps{
		Orders:   orders,
		Vouchers: &stubVoucherRepo{},
		Counters: &stubCounterRepo{nextFunc: func(context.Context, string, int64) (int64, error) { return 1, nil }},
		Gateway:  &stubGateway{},
	})

	_, err := svc.Checkout(context.Background(), CheckoutCommand{Actor: Actor{UserID: "user-1"}})
	var shortage *StockShortageError
	if !errors.As(err, &shortage) {
		t.Fatalf("expected StockShortageError, got %v", err)
	}
	if shortage.ProductID != "prd_01X" || shortage.Requested != 3 || shortage.Available != 1 {
		t.Fatalf("unexpected shortage detail %+v", shortage)
	}
}

func TestCheckoutPaymentFailureKeepsOrder(t *testing.T) {
	now := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	var savedSession *domain.PaymentSession

	orders := &stubOrderRepo{
		placeOrderFunc: func(_ context.Context, req repositories.PlaceOrderRequest) (domain.Order, error) {
			return domain.Order{
				ID:     req.OrderID,
				Status: domain.OrderStatusPending,
				Total:  120000,
				UserID: req.UserID,
			}, nil
		},
		saveSessionFunc: func(_ context.Context, orderID string, session domain.PaymentSession) (domain.Order, error) {
			savedSession = &session
			return domain.Order{ID: orderID, Status: domain.OrderStatusPending, Payment: &session}, nil
		},
	}
	gateway := &stubGateway{
		createFunc: func(context.Context, payments.CheckoutSessionRequest) (payments.CheckoutSession, error) {
			return payments.CheckoutSession{}, payments.ErrSessionFailed
		},
	}

	svc := newCheckoutService(t, CheckoutServiceDeps{
		Orders:   orders,
		Vouchers: &stubVoucherRepo{},
		Counters: &stubCounterRepo{nextFunc: func(context.Context, string, int64) (int64, error) { return 7, nil }},
		Gateway:  gateway,
		Clock:    fixedClock(now),
	})

	result, err := svc.Checkout(context.Background(), CheckoutCommand{Actor: Actor{UserID: "user-1"}})
	if !errors.Is(err, ErrCheckoutPaymentFailed) {
		t.Fatalf("expected ErrCheckoutPaymentFailed, got %v", err)
	}
	if result.Order.ID == "" {
		t.Fatal("expected the created order on the result despite the failure")
	}
	if result.Order.Status != domain.OrderStatusPending {
		t.Fatalf("expected order to stay PENDING, got %s", result.Order.Status)
	}
	if savedSession == nil {
		t.Fatal("expected failed session record to be persisted")
	}
	if savedSession.FailedAt == nil || savedSession.FailureReason == "" {
		t.Fatalf("expected failure detail on session record, got %+v", savedSession)
	}
}

func TestRetryPaymentSessionRequiresPendingOrder(t *testing.T) {
	orders := &stubOrderRepo{
		findByIDFunc: func(_ context.Context, orderID string) (domain.Order, error) {
			return domain.Order{ID: orderID, UserID: "user-1", Status: domain.OrderStatusPaid}, nil
		},
	}
	svc := newCheckoutService(t, CheckoutServiceDeps{
		Orders:   orders,
		Vouchers: &stubVoucherRepo{},
		Counters: &stubCounterRepo{},
		Gateway:  &stubGateway{},
	})

	_, err := svc.RetryPaymentSession(context.Background(), Actor{UserID: "user-1"}, "ord_01X")
	if !errors.Is(err, ErrCheckoutInvalidState) {
		t.Fatalf("expected ErrCheckoutInvalidState, got %v", err)
	}
}

func TestRetryPaymentSessionRejectsOpenSession(t *testing.T) {
	now := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	orders := &stubOrderRepo{
		findByIDFunc: func(_ context.Context, orderID string) (domain.Order, error) {
			return domain.Order{
				ID:     orderID,
				UserID: "user-1",
				Status: domain.OrderStatusPending,
				Payment: &domain.PaymentSession{
					Token:     "snap-token-1",
					CreatedAt: now.Add(-5 * time.Minute),
				},
			}, nil
		},
	}
	svc := newCheckoutService(t, CheckoutServiceDeps{
		Orders:   orders,
		Vouchers: &stubVoucherRepo{},
		Counters: &stubCounterRepo{},
		Gateway:  &stubGateway{},
		Clock:    fixedClock(now),
	})

	_, err := svc.RetryPaymentSession(context.Background(), Actor{UserID: "user-1"}, "ord_01X")
	if !errors.Is(err, ErrCheckoutSessionActive) {
		t.Fatalf("expected ErrCheckoutSessionActive while a session is open, got %v", err)
	}
}

func TestRetryPaymentSessionReplacesFailedSession(t *testing.T) {
	now := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	failedAt := now.Add(-10 * time.Minute)
	var sessionReq *payments.CheckoutSessionRequest

	orders := &stubOrderRepo{
		findByIDFunc: func(_ context.Context, orderID string) (domain.Order, error) {
			return domain.Order{
				ID:     orderID,
				UserID: "user-1",
				Status: domain.OrderStatusPending,
				Total:  95000,
				Payment: &domain.PaymentSession{
					FailedAt:      &failedAt,
					FailureReason: "gateway timeout",
					CreatedAt:     now.Add(-11 * time.Minute),
				},
			}, nil
		},
		saveSessionFunc: func(_ context.Context, orderID string, session domain.PaymentSession) (domain.Order, error) {
			return domain.Order{ID: orderID, Status: domain.OrderStatusPending, Payment: &session}, nil
		},
	}
	gateway := &stubGateway{
		createFunc: func(_ context.Context, req payments.CheckoutSessionRequest) (payments.CheckoutSession, error) {
			sessionReq = &req
			return payments.CheckoutSession{Token: "snap-token-2", RedirectURL: "https://app.sandbox.midtrans.com/snap/v4/redirection/snap-token-2"}, nil
		},
	}
	users := &stubUserRepo{
		findByIDFunc: func(_ context.Context, userID string) (domain.User, error) {
			return domain.User{ID: userID, Name: "Sari Wijaya", Email: "sari@example.com"}, nil
		},
	}

	svc := newCheckoutService(t, CheckoutServiceDeps{
		Orders:   orders,
		Vouchers: &stubVoucherRepo{},
		Users:    users,
		Counters: &stubCounterRepo{},
		Gateway:  gateway,
		Clock:    fixedClock(now),
	})

	result, err := svc.RetryPaymentSession(context.Background(), Actor{UserID: "user-1"}, "ord_01X")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sessionReq == nil {
		t.Fatal("expected a fresh gateway session to be requested")
	}
	if sessionReq.GrossAmount != 95000 {
		t.Fatalf("expected gross amount 95000, got %d", sessionReq.GrossAmount)
	}
	if result.Payment == nil || result.Payment.Token != "snap-token-2" {
		t.Fatalf("expected replacement session on result, got %+v", result.Payment)
	}
}

func TestRetryPaymentSessionForbiddenForOtherUser(t *testing.T) {
	orders := &stubOrderRepo{
		findByIDFunc: func(_ context.Context, orderID string) (domain.Order, error) {
			return domain.Order{ID: orderID, UserID: "user-1", Status: domain.OrderStatusPending}, nil
		},
	}
	svc := newCheckoutService(t, CheckoutServiceDeps{
		Orders:   orders,
		Vouchers: &stubVoucherRepo{},
		Counters: &stubCounterRepo{},
		Gateway:  &stubGateway{},
	})

	_, err := svc.RetryPaymentSession(context.Background(), Actor{UserID: "user-2", Role: domain.RoleCustomer}, "ord_01X")
	if !errors.Is(err, ErrCheckoutForbidden) {
		t.Fatalf("expected ErrCheckoutForbidden, got %v", err)
	}
}
