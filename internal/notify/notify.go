package notify

import (
	"context"
	"fmt"

	"github.com/skvora/clothes-shop/internal/models"
	"github.com/skvora/clothes-shop/internal/mykafka"
)

// Notifier receives a finalized order after its transaction has committed.
// Delivery is fire-and-forget: the checkout engine logs failures and never
// rolls an order back because of them.
type Notifier interface {
	OrderPlaced(ctx context.Context, order *models.Order, items []models.OrderItem) error
}

// KafkaNotifier publishes an order_created event carrying everything the
// downstream mail consumers need to render confirmation messages.
type KafkaNotifier struct {
	Producer *mykafka.Producer
	Topic    string
}

func (n *KafkaNotifier) OrderPlaced(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	topic := n.Topic
	if topic == "" {
		topic = "order_events"
	}
	event := map[string]any{
		"type":      "order_created",
		"orderID":   order.ID,
		"reference": order.Reference,
		"userID":    order.UserID,
		"full_name": order.FullName,
		"phone":     order.Phone,
		"address":   order.Address,
		"total":     order.Total,
		"items":     items,
	}
	return n.Producer.PublishEvent(ctx, topic, fmt.Sprint(order.UserID), event)
}
