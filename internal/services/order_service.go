package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/tokokita/api/internal/domain"
	"github.com/tokokita/api/internal/repositories"
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the requested order does not exist.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderForbidden indicates the actor has no claim on the order.
	ErrOrderForbidden = errors.New("order: forbidden")
	// ErrOrderInvalidState indicates the requested status change is not
	// allowed from the order's current status.
	ErrOrderInvalidState = errors.New("order: invalid status transition")
)

// sellerTransitionTargets are the statuses a seller may move an order into.
var sellerTransitionTargets = map[domain.OrderStatus]struct{}{
	domain.OrderStatusShipped:   {},
	domain.OrderStatusCompleted: {},
	domain.OrderStatusCancelled: {},
}

// OrderServiceDeps bundles collaborators required to construct an OrderService.
type OrderServiceDeps struct {
	Orders repositories.OrderRepository
	Events OrderEventPublisher
	Clock  func() time.Time
	Logger func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders repositories.OrderRepository
	events OrderEventPublisher
	clock  func() time.Time
	logger func(context.Context, string, map[string]any)
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderService{
		orders: deps.Orders,
		events: deps.Events,
		clock:  func() time.Time { return clock().UTC() },
		logger: logger,
	}, nil
}

// GetOrder returns the order when the actor is the buyer, an admin, or a
// seller with at least one line in it.
func (s *orderService) GetOrder(ctx context.Context, actor Actor, orderID string) (domain.Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.UserID == actor.UserID || actor.IsAdmin() {
		return order, nil
	}
	if actor.IsSeller() && order.ContainsSeller(actor.UserID) {
		return order, nil
	}
	return domain.Order{}, ErrOrderForbidden
}

func (s *orderService) ListMyOrders(ctx context.Context, actor Actor, pager domain.Pagination) (domain.Page[domain.Order], error) {
	if strings.TrimSpace(actor.UserID) == "" {
		return domain.Page[domain.Order]{}, fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	page, err := s.orders.ListByUser(ctx, actor.UserID, repositories.OrderListFilter{Pager: pager})
	if err != nil {
		return domain.Page[domain.Order]{}, fmt.Errorf("order: list by user: %w", err)
	}
	return page, nil
}

// ListSellerOrders returns orders containing the seller's products. Orders
// that have not been paid yet are excluded; sellers act on paid orders only.
func (s *orderService) ListSellerOrders(ctx context.Context, actor Actor, pager domain.Pagination) (domain.Page[domain.Order], error) {
	if strings.TrimSpace(actor.UserID) == "" {
		return domain.Page[domain.Order]{}, fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	if !actor.IsSeller() && !actor.IsAdmin() {
		return domain.Page[domain.Order]{}, ErrOrderForbidden
	}
	page, err := s.orders.ListBySeller(ctx, actor.UserID, repositories.OrderListFilter{
		Statuses: []domain.OrderStatus{
			domain.OrderStatusPaid,
			domain.OrderStatusShipped,
			domain.OrderStatusCompleted,
			domain.OrderStatusCancelled,
		},
		Pager: pager,
	})
	if err != nil {
		return domain.Page[domain.Order]{}, fmt.Errorf("order: list by seller: %w", err)
	}
	return page, nil
}

// UpdateFulfillmentStatus lets a seller with a line in the order (or an
// admin) move it along the fulfillment path. Cancelling restores stock for
// the order's lines in the same transaction.
func (s *orderService) UpdateFulfillmentStatus(ctx context.Context, cmd FulfillmentCommand) (domain.Order, error) {
	if strings.TrimSpace(cmd.OrderID) == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if !cmd.Target.Valid() {
		return domain.Order{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, cmd.Target)
	}
	if _, ok := sellerTransitionTargets[cmd.Target]; !ok {
		return domain.Order{}, fmt.Errorf("%w: sellers cannot set status %s", ErrOrderInvalidInput, cmd.Target)
	}
	if !cmd.Actor.IsSeller() && !cmd.Actor.IsAdmin() {
		return domain.Order{}, ErrOrderForbidden
	}

	order, err := s.loadOrder(ctx, cmd.OrderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !cmd.Actor.IsAdmin() && !order.ContainsSeller(cmd.Actor.UserID) {
		return domain.Order{}, ErrOrderForbidden
	}

	previous := order.Status
	now := s.clock()
	updated, err := s.orders.TransitionStatus(ctx, repositories.TransitionStatusRequest{
		OrderID: cmd.OrderID,
		Target:  cmd.Target,
		Now:     now,
	})
	if err != nil {
		var transitionErr *repositories.InvalidTransitionError
		if errors.As(err, &transitionErr) {
			return domain.Order{}, fmt.Errorf("%w: %s to %s", ErrOrderInvalidState, transitionErr.From, transitionErr.To)
		}
		if isNotFound(err) {
			return domain.Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, cmd.OrderID)
		}
		return domain.Order{}, fmt.Errorf("order: transition: %w", err)
	}

	s.logger(ctx, "order.status.changed", map[string]any{
		"order": updated.ID,
		"from":  string(previous),
		"to":    string(updated.Status),
		"actor": cmd.Actor.UserID,
	})
	s.publishEvent(ctx, OrderEvent{
		Type:           orderEventStatusChanged,
		OrderID:        updated.ID,
		OrderNumber:    updated.OrderNumber,
		PreviousStatus: string(previous),
		CurrentStatus:  string(updated.Status),
		ActorID:        cmd.Actor.UserID,
		OccurredAt:     now,
	})
	return updated, nil
}

// ApplyPaymentNotification applies a gateway callback to the order. The
// mapping is idempotent; a repeated or out-of-order callback is logged and
// dropped rather than failing the webhook.
func (s *orderService) ApplyPaymentNotification(ctx context.Context, note PaymentNotification) error {
	if strings.TrimSpace(note.OrderID) == "" {
		return fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	target := notificationTarget(note.TransactionStatus, note.FraudStatus)
	if target == "" {
		s.logger(ctx, "payment.notification.ignored", map[string]any{
			"order":  note.OrderID,
			"status": note.TransactionStatus,
			"fraud":  note.FraudStatus,
		})
		return nil
	}

	order, err := s.loadOrder(ctx, note.OrderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			s.logger(ctx, "payment.notification.unknown_order", map[string]any{
				"order":  note.OrderID,
				"status": note.TransactionStatus,
			})
			return nil
		}
		return err
	}
	if order.Status == target {
		return nil
	}

	now := s.clock()
	updated, err := s.orders.TransitionStatus(ctx, repositories.TransitionStatusRequest{
		OrderID: note.OrderID,
		Target:  target,
		Now:     now,
	})
	if err != nil {
		var transitionErr *repositories.InvalidTransitionError
		if errors.As(err, &transitionErr) {
			s.logger(ctx, "payment.notification.stale", map[string]any{
				"order": note.OrderID,
				"from":  string(transitionErr.From),
				"to":    string(transitionErr.To),
			})
			return nil
		}
		return fmt.Errorf("order: apply notification: %w", err)
	}

	s.logger(ctx, "payment.notification.applied", map[string]any{
		"order":  updated.ID,
		"from":   string(order.Status),
		"to":     string(updated.Status),
		"status": note.TransactionStatus,
	})
	s.publishEvent(ctx, OrderEvent{
		Type:           orderEventStatusChanged,
		OrderID:        updated.ID,
		OrderNumber:    updated.OrderNumber,
		PreviousStatus: string(order.Status),
		CurrentStatus:  string(updated.Status),
		OccurredAt:     now,
		Metadata: map[string]any{
			"transaction_status": note.TransactionStatus,
			"fraud_status":       note.FraudStatus,
		},
	})
	return nil
}

// notificationTarget maps a gateway transaction status to the order status
// it implies. An empty result means the callback carries no state change.
func notificationTarget(transactionStatus, fraudStatus string) domain.OrderStatus {
	switch strings.ToLower(strings.TrimSpace(transactionStatus)) {
	case "capture":
		if strings.EqualFold(strings.TrimSpace(fraudStatus), "accept") {
			return domain.OrderStatusPaid
		}
		return ""
	case "settlement":
		return domain.OrderStatusPaid
	case "cancel", "deny", "expire":
		return domain.OrderStatusCancelled
	default:
		return ""
	}
}

func (s *orderService) loadOrder(ctx context.Context, orderID string) (domain.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if isNotFound(err) {
			return domain.Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		return domain.Order{}, fmt.Errorf("order: load: %w", err)
	}
	return order, nil
}

func (s *orderService) publishEvent(ctx context.Context, event OrderEvent) {
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
