package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/miras-dev/taxi-dispatch/internal/domain/models"
	"github.com/miras-dev/taxi-dispatch/internal/domain/types"
	"github.com/miras-dev/taxi-dispatch/pkg/logger"
	wrap "github.com/miras-dev/taxi-dispatch/pkg/logger/wrapper"
	"github.com/miras-dev/taxi-dispatch/pkg/metrics"
	"github.com/miras-dev/taxi-dispatch/pkg/rabbit"
)

const (
	OrderExchange = "order_topic"

	QueueOrderRequests   = "order_requests"
	QueueLocationUpdates = "location_updates"

	bindOrderRequests   = "order.request"
	bindLocationUpdates = "driver.location"
)

// EventBroker publishes lifecycle events to the notification exchange.
// Delivery is fire-and-forget with at-least-once semantics: publish errors
// are logged, never surfaced to the transition that produced the event.
type EventBroker struct {
	client *rabbit.RabbitMQ

	l logger.Logger
}

func NewEventBroker(client *rabbit.RabbitMQ, l logger.Logger) *EventBroker {
	return &EventBroker{client: client, l: l}
}

// Emit publishes the event for an already-committed transition. The order
// snapshot is read-only here.
func (b *EventBroker) Emit(ctx context.Context, event types.OrderEvent, order *models.Order) {
	ctx = wrap.WithAction(wrap.WithOrderID(ctx, order.ID.String()), "rabbitmq_publish_order_event")

	msg := models.OrderEventMessage{
		Event:       event,
		OrderID:     order.ID,
		OrderNo:     order.OrderNo,
		Status:      order.Status,
		PassengerID: order.PassengerID,
		DriverID:    order.DriverID,
		ActualPrice: order.ActualPrice,
		Timestamp:   time.Now(),
	}

	go func() {
		// detach from the request lifetime, bound the publish instead
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()

		err := b.publish(pubCtx, msg)
		metrics.RecordRabbitMQPublish("dispatch", OrderExchange, err)
		if err != nil {
			b.l.Error(pubCtx, "failed to publish order event", err, "event", string(event))
		}
	}()
}

func (b *EventBroker) publish(ctx context.Context, msg models.OrderEventMessage) error {
	if err := b.client.EnsureConnection(ctx); err != nil {
		return wrap.Error(ctx, err)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to marshal message: %w", err))
	}

	// routing key, example, "order.event.ORDER_CREATED"
	key := fmt.Sprintf("order.event.%s", msg.Event)

	if err := retry(5, time.Second, func() error {
		return b.client.Channel.PublishWithContext(
			ctx,
			OrderExchange, // exchange
			key,           // routing key
			false,         // mandatory
			false,         // immediate
			amqp.Publishing{
				ContentType: "application/json",
				Body:        body,
				Timestamp:   time.Now(),
			},
		)
	}); err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to publish with context: %w", err))
	}

	return nil
}
