package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/tokokita/api/internal/domain"
	"github.com/tokokita/api/internal/repositories"
)

func newOrderService(t *testing.T, deps OrderServiceDeps) OrderService {
	t.Helper()
	if deps.Clock == nil {
		deps.Clock = fixedClock(time.Date(2026, 4, 3, 8, 0, 0, 0, time.UTC))
	}
	svc, err := NewOrderService(deps)
	if err != nil {
		t.Fatalf("failed to construct order service: %v", err)
	}
	return svc
}

func TestGetOrderAccessRules(t *testing.T) {
	order := domain.Order{
		ID:         "ord_01X",
		UserID:     "buyer-1",
		SellerRefs: []string{"seller-1"},
		Status:     domain.OrderStatusPaid,
	}
	orders := &stubOrderRepo{
		findByIDFunc: func(_ context.Context, orderID string) (domain.Order, error) {
			return order, nil
		},
	}
	svc := newOrderService(t, OrderServiceDeps{Orders: orders})

	cases := []struct {
		name    string
		actor   Actor
		wantErr error
	}{
		{"buyer", Actor{UserID: "buyer-1", Role: domain.RoleCustomer}, nil},
		{"admin", Actor{UserID: "ops-1", Role: domain.RoleAdmin}, nil},
		{"seller with line", Actor{UserID: "seller-1", Role: domain.RoleSeller}, nil},
		{"seller without line", Actor{UserID: "seller-2", Role: domain.RoleSeller}, ErrOrderForbidden},
		{"other customer", Actor{UserID: "buyer-2", Role: domain.RoleCustomer}, ErrOrderForbidden},
	}
	for _, tc := range cases {
		_, err := svc.GetOrder(context.Background(), tc.actor, "ord_01X")
		if !errors.Is(err, tc.wantErr) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.wantErr, err)
		}
	}
}

func TestListSellerOrdersExcludesPending(t *testing.T) {
	var filter *repositories.OrderListFilter
	orders := &stubOrderRepo{
		listBySellerFunc: func(_ context.Context, sellerID string, f repositories.OrderListFilter) (domain.Page[domain.Order], error) {
			filter = &f
			return domain.Page[domain.Order]{}, nil
		},
	}
	svc := newOrderService(t, OrderServiceDeps{Orders: orders})

	if _, err := svc.ListSellerOrders(context.Background(), Actor{UserID: "seller-1", Role: domain.RoleSeller}, domain.Pagination{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filter == nil {
		t.Fatal("expected ListBySeller to be called")
	}
	for _, status := range filter.Statuses {
		if status == domain.OrderStatusPending {
			t.Fatal("expected PENDING to be excluded from seller listings")
		}
	}
	if len(filter.Statuses) != 4 {
		t.Fatalf("expected 4 statuses in filter, got %d", len(filter.Statuses))
	}

	if _, err := svc.ListSellerOrders(context.Background(), Actor{UserID: "user-1", Role: domain.RoleCustomer}, domain.Pagination{}); !errors.Is(err, ErrOrderForbidden) {
		t.Fatalf("expected ErrOrderForbidden for customers, got %v", err)
	}
}

func TestUpdateFulfillmentStatus(t *testing.T) {
	now := time.Date(2026, 4, 3, 8, 0, 0, 0, time.UTC)
	order := domain.Order{
		ID:          "ord_01X",
		OrderNumber: "TK-2026-000007",
		UserID:      "buyer-1",
		SellerRefs:  []string{"seller-1"},
		Status:      domain.OrderStatusPaid,
	}
	orders := &stubOrderRepo{
		findByIDFunc: func(_ context.Context, orderID string) (domain.Order, error) {
			return order, nil
		},
		transitionFunc: func(_ context.Context, req repositories.TransitionStatusRequest) (domain.Order, error) {
			updated := order
			updated.Status = req.Target
			return updated, nil
		},
	}
	events := &capturedOrderEvents{}
	svc := newOrderService(t, OrderServiceDeps{Orders: orders, Events: events, Clock: fixedClock(now)})

	updated, err := svc.UpdateFulfillmentStatus(context.Background(), FulfillmentCommand{
		Actor:   Actor{UserID: "seller-1", Role: domain.RoleSeller},
		OrderID: "ord_01X",
		Target:  domain.OrderStatusShipped,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != domain.OrderStatusShipped {
		t.Fatalf("expected SHIPPED, got %s", updated.Status)
	}
	if len(events.events) != 1 {
		t.Fatalf("expected one event, got %d", len(events.events))
	}
	event := events.events[0]
	if event.Type != "order.status.changed" {
		t.Fatalf("unexpected event type %q", event.Type)
	}
	if event.PreviousStatus != "PAID" || event.CurrentStatus != "SHIPPED" {
		t.Fatalf("unexpected event statuses %+v", event)
	}
}

func TestUpdateFulfillmentStatusRejections(t *testing.T) {
	order := domain.Order{
		ID:         "ord_01X",
		UserID:     "buyer-1",
		SellerRefs: []string{"seller-1"},
		Status:     domain.OrderStatusPaid,
	}
	orders := &stubOrderRepo{
		findByIDFunc: func(_ context.Context, orderID string) (domain.Order, error) {
			return order, nil
		},
	}
	svc := newOrderService(t, OrderServiceDeps{Orders: orders})

	cases := []struct {
		name    string
		cmd     FulfillmentCommand
		wantErr error
	}{
		{
			"customer cannot fulfil",
			FulfillmentCommand{Actor: Actor{UserID: "buyer-1", Role: domain.RoleCustomer}, OrderID: "ord_01X", Target: domain.OrderStatusShipped},
			ErrOrderForbidden,
		},
		{
			"seller without line",
			FulfillmentCommand{Actor: Actor{UserID: "seller-2", Role: domain.RoleSeller}, OrderID: "ord_01X", Target: domain.OrderStatusShipped},
			ErrOrderForbidden,
		},
		{
			"sellers cannot mark paid",
			FulfillmentCommand{Actor: Actor{UserID: "seller-1", Role: domain.RoleSeller}, OrderID: "ord_01X", Target: domain.OrderStatusPaid},
			ErrOrderInvalidInput,
		},
		{
			"unknown status",
			FulfillmentCommand{Actor: Actor{UserID: "seller-1", Role: domain.RoleSeller}, OrderID: "ord_01X", Target: domain.OrderStatus("REFUNDED")},
			ErrOrderInvalidInput,
		},
	}
	for _, tc := range cases {
		if _, err := svc.UpdateFulfillmentStatus(context.Background(), tc.cmd); !errors.Is(err, tc.wantErr) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.wantErr, err)
		}
	}
}

func TestUpdateFulfillmentStatusInvalidTransition(t *testing.T) {
	orders := &stubOrderRepo{
		findByIDFunc: func(_ context.Context, orderID string) (domain.Order, error) {
			return domain.Order{ID: orderID, SellerRefs: []string{"seller-1"}, Status: domain.OrderStatusCompleted}, nil
		},
		transitionFunc: func(_ context.Context, req repositories.TransitionStatusRequest) (domain.Order, error) {
			return domain.Order{}, &repositories.InvalidTransitionError{
				OrderID: req.OrderID,
				From:    domain.OrderStatusCompleted,
				To:      req.Target,
			}
		},
	}
	svc := newOrderService(t, OrderServiceDeps{Orders: orders})

	_, err := svc.UpdateFulfillmentStatus(context.Background(), FulfillmentCommand{
		Actor:   Actor{UserID: "seller-1", Role: domain.RoleSeller},
		OrderID: "ord_01X",
		Target:  domain.OrderStatusCancelled,
	})
	if !errors.Is(err, ErrOrderInvalidState) {
		t.Fatalf("expected ErrOrderInvalidState, got %v", err)
	}
}

func TestNotificationTarget(t *testing.T) {
	cases := []struct {
		transaction string
		fraud       string
		want        domain.OrderStatus
	}{
		{"capture", "accept", domain.OrderStatusPaid},
		{"capture", "challenge", ""},
		{"capture", "deny", ""},
		{"settlement", "", domain.OrderStatusPaid},
		{"settlement", "accept", domain.OrderStatusPaid},
		{"cancel", "", domain.OrderStatusCancelled},
		{"deny", "", domain.OrderStatusCancelled},
		{"expire", "", domain.OrderStatusCancelled},
		{"pending", "", ""},
		{"refund", "", ""},
		{"", "", ""},
	}
	for _, tc := range cases {
		if got := notificationTarget(tc.transaction, tc.fraud); got != tc.want {
			t.Errorf("notificationTarget(%q, %q): expected %q, got %q", tc.transaction, tc.fraud, tc.want, got)
		}
	}
}

func TestApplyPaymentNotificationSettlement(t *testing.T) {
	now := time.Date(2026, 4, 3, 8, 0, 0, 0, time.UTC)
	orders := &stubOrderRepo{
		findByIDFunc: func(_ context.Context, orderID string) (domain.Order, error) {
			return domain.Order{ID: orderID, OrderNumber: "TK-2026-000007", Status: domain.OrderStatusPending}, nil
		},
		transitionFunc: func(_ context.Context, req repositories.TransitionStatusRequest) (domain.Order, error) {
			if req.Target != domain.OrderStatusPaid {
				t.Fatalf("expected target PAID, got %s", req.Target)
			}
			return domain.Order{ID: req.OrderID, OrderNumber: "TK-2026-000007", Status: req.Target}, nil
		},
	}
	events := &capturedOrderEvents{}
	svc := newOrderService(t, OrderServiceDeps{Orders: orders, Events: events, Clock: fixedClock(now)})

	err := svc.ApplyPaymentNotification(context.Background(), PaymentNotification{
		OrderID:           "ord_01X",
		TransactionStatus: "settlement",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events.events) != 1 {
		t.Fatalf("expected one event, got %d", len(events.events))
	}
	event := events.events[0]
	if event.CurrentStatus != "PAID" || event.PreviousStatus != "PENDING" {
		t.Fatalf("unexpected event %+v", event)
	}
	if event.Metadata["transaction_status"] != "settlement" {
		t.Fatalf("expected transaction status in metadata, got %v", event.Metadata)
	}
}

func TestApplyPaymentNotificationIdempotent(t *testing.T) {
	orders := &stubOrderRepo{
		findByIDFunc: func(_ context.Context, orderID string) (domain.Order, error) {
			return domain.Order{ID: orderID, Status: domain.OrderStatusPaid}, nil
		},
	}
	events := &capturedOrderEvents{}
	svc := newOrderService(t, OrderServiceDeps{Orders: orders, Events: events})

	err := svc.ApplyPaymentNotification(context.Background(), PaymentNotification{
		OrderID:           "ord_01X",
		TransactionStatus: "settlement",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events.events) != 0 {
		t.Fatalf("expected no event for a repeated callback, got %d", len(events.events))
	}
}

func TestApplyPaymentNotificationSwallowsStaleCallback(t *testing.T) {
	orders := &stubOrderRepo{
		findByIDFunc: func(_ context.Context, orderID string) (domain.Order, error) {
			return domain.Order{ID: orderID, Status: domain.OrderStatusCompleted}, nil
		},
		transitionFunc: func(_ context.Context, req repositories.TransitionStatusRequest) (domain.Order, error) {
			return domain.Order{}, &repositories.InvalidTransitionError{
				OrderID: req.OrderID,
				From:    domain.OrderStatusCompleted,
				To:      req.Target,
			}
		},
	}
	svc := newOrderService(t, OrderServiceDeps{Orders: orders})

	err := svc.ApplyPaymentNotification(context.Background(), PaymentNotification{
		OrderID:           "ord_01X",
		TransactionStatus: "expire",
	})
	if err != nil {
		t.Fatalf("expected stale callback to be swallowed, got %v", err)
	}
}

func TestApplyPaymentNotificationUnknownOrder(t *testing.T) {
	orders := &stubOrderRepo{
		findByIDFunc: func(_ context.Context, orderID string) (domain.Order, error) {
			return domain.Order{}, notFoundErr("no such order")
		},
	}
	svc := newOrderService(t, OrderServiceDeps{Orders: orders})

	err := svc.ApplyPaymentNotification(context.Background(), PaymentNotification{
		OrderID:           "ord_gone",
		TransactionStatus: "settlement",
	})
	if err != nil {
		t.Fatalf("expected unknown order to be swallowed, got %v", err)
	}
}

func TestApplyPaymentNotificationIgnoresUnmappedStatus(t *testing.T) {
	svc := newOrderService(t, OrderServiceDeps{Orders: &stubOrderRepo{}})

	err := svc.ApplyPaymentNotification(context.Background(), PaymentNotification{
		OrderID:           "ord_01X",
		TransactionStatus: "pending",
	})
	if err != nil {
		t.Fatalf("expected unmapped status to be a no-op, got %v", err)
	}
}

func TestApplyPaymentNotificationRequiresOrderID(t *testing.T) {
	svc := newOrderService(t, OrderServiceDeps{Orders: &stubOrderRepo{}})

	err := svc.ApplyPaymentNotification(context.Background(), PaymentNotification{TransactionStatus: "settlement"})
	if !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected ErrOrderInvalidInput, got %v", err)
	}
}
