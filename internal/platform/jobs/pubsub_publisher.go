package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"

	"github.com/tokokita/api/internal/services"
)

// PubSubEventPublisher publishes order and review domain events to Pub/Sub
// topics for downstream consumers (notifications, analytics).
type PubSubEventPublisher struct {
	orderTopic  *pubsub.Topic
	reviewTopic *pubsub.Topic
	marshal     func(any) ([]byte, error)
}

// NewPubSubEventPublisher constructs a Pub/Sub backed event publisher. The
// review topic is optional; review events are dropped when it is nil.
func NewPubSubEventPublisher(orderTopic, reviewTopic *pubsub.Topic) (*PubSubEventPublisher, error) {
	if orderTopic == nil {
		return nil, errors.New("pubsub event publisher: order topic is required")
	}
	return &PubSubEventPublisher{
		orderTopic:  orderTopic,
		reviewTopic: reviewTopic,
		marshal:     json.Marshal,
	}, nil
}

// PublishOrderEvent enqueues an order event message on the order topic.
func (p *PubSubEventPublisher) PublishOrderEvent(ctx context.Context, event services.OrderEvent) error {
	if p == nil || p.orderTopic == nil {
		return errors.New("pubsub event publisher: not initialised")
	}

	data, err := p.marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "type", event.Type)
	setAttr(attrs, "orderId", event.OrderID)
	setAttr(attrs, "orderNumber", event.OrderNumber)
	setAttr(attrs, "status", event.CurrentStatus)

	result := p.orderTopic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish order event: %w", err)
	}
	return nil
}

// PublishReviewEvent enqueues a review event message on the review topic.
func (p *PubSubEventPublisher) PublishReviewEvent(ctx context.Context, event services.ReviewEvent) error {
	if p == nil || p.reviewTopic == nil {
		return nil
	}

	data, err := p.marshal(event)
	if err != nil {
		return fmt.Errorf("marshal review event: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "type", event.Type)
	setAttr(attrs, "reviewId", event.ReviewID)
	setAttr(attrs, "productId", event.ProductID)

	result := p.reviewTopic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish review event: %w", err)
	}
	return nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}

var (
	_ services.OrderEventPublisher  = (*PubSubEventPublisher)(nil)
	_ services.ReviewEventPublisher = (*PubSubEventPublisher)(nil)
)
