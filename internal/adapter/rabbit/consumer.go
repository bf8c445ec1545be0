package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/miras-dev/taxi-dispatch/internal/domain/models"
	"github.com/miras-dev/taxi-dispatch/pkg/logger"
	wrap "github.com/miras-dev/taxi-dispatch/pkg/logger/wrapper"
	"github.com/miras-dev/taxi-dispatch/pkg/metrics"
	"github.com/miras-dev/taxi-dispatch/pkg/rabbit"
)

type OrderConsumer struct {
	client *rabbit.RabbitMQ
	l      logger.Logger
}

func NewOrderConsumer(client *rabbit.RabbitMQ, l logger.Logger) *OrderConsumer {
	return &OrderConsumer{client: client, l: l}
}

type OrderRequestHandler func(ctx context.Context, req models.OrderRequestMessage) error

type LocationUpdateHandler func(ctx context.Context, req models.LocationUpdateMessage) error

// declareAndBindQueue объявляет и привязывает очередь к exchange.
func (c *OrderConsumer) declareAndBindQueue(ctx context.Context, queueName, bindingKey string) (amqp.Queue, error) {
	const op = "OrderConsumer.declareAndBindQueue"

	q, err := c.client.Channel.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		return q, wrap.Error(ctx, fmt.Errorf("%s: declare queue failed: %w", op, err))
	}

	if err := c.client.Channel.QueueBind(q.Name, bindingKey, OrderExchange, false, nil); err != nil {
		return q, wrap.Error(ctx, fmt.Errorf("%s: bind queue failed: %w", op, err))
	}

	return q, nil
}

// ConsumeOrderRequests слушает order.request события и передаёт их в обработчик fn.
func (c *OrderConsumer) ConsumeOrderRequests(ctx context.Context, fn OrderRequestHandler) error {
	ctx = wrap.WithAction(ctx, "rabbitmq_consume_order_requests")

	return c.consume(ctx, QueueOrderRequests, bindOrderRequests, func(ctx context.Context, d amqp.Delivery) {
		var req models.OrderRequestMessage
		if err := json.Unmarshal(d.Body, &req); err != nil {
			c.l.Error(ctx, "failed to unmarshal order request", err)
			_ = d.Nack(false, false)
			return
		}

		ctxx := wrap.WithRequestID(ctx, d.CorrelationId)

		err := fn(ctxx, req)
		metrics.RecordRabbitMQConsume("dispatch", QueueOrderRequests, err)
		if err != nil {
			c.l.Error(wrap.ErrorCtx(ctx, err), "failed to handle order request", err)

			if isRecoverableError(err) {
				_ = d.Nack(false, true) // requeue
			} else {
				_ = d.Nack(false, false) // discard / dead-letter
			}
			return
		}

		if err := d.Ack(false); err != nil {
			c.l.Error(ctx, "failed to ack message", err)
		}
	})
}

// ConsumeLocationUpdates слушает координаты водителей.
func (c *OrderConsumer) ConsumeLocationUpdates(ctx context.Context, fn LocationUpdateHandler) error {
	ctx = wrap.WithAction(ctx, "rabbitmq_consume_location_updates")

	return c.consume(ctx, QueueLocationUpdates, bindLocationUpdates, func(ctx context.Context, d amqp.Delivery) {
		var req models.LocationUpdateMessage
		if err := json.Unmarshal(d.Body, &req); err != nil {
			c.l.Error(ctx, "failed to unmarshal location update", err)
			_ = d.Nack(false, false)
			return
		}

		ctxx := wrap.WithDriverID(ctx, req.DriverID.String())

		err := fn(ctxx, req)
		metrics.RecordRabbitMQConsume("dispatch", QueueLocationUpdates, err)
		if err != nil {
			c.l.Error(wrap.ErrorCtx(ctx, err), "failed to handle location update", err)
			if isRecoverableError(err) {
				_ = d.Nack(false, true)
			} else {
				_ = d.Nack(false, false)
			}
			return
		}

		if err := d.Ack(false); err != nil {
			c.l.Error(ctx, "failed to ack message", err)
		}
	})
}

// consume runs the reconnect-declare-consume loop until ctx is cancelled.
func (c *OrderConsumer) consume(ctx context.Context, queue, bindingKey string, handle func(ctx context.Context, d amqp.Delivery)) error {
	// Основной цикл потребителя
	for {
		if ctx.Err() != nil {
			c.l.Debug(ctx, "consumer stopped by context", "queue", queue)
			return nil
		}

		// Проверяем и восстанавливаем соединение
		if err := c.client.EnsureConnection(ctx); err != nil {
			c.l.Error(ctx, "ensure connection failed", err)
			time.Sleep(2 * time.Second)
			continue
		}

		// Гарантируем наличие exchange
		if err := c.client.Channel.ExchangeDeclare(OrderExchange, "topic", true, false, false, false, nil); err != nil {
			c.l.Error(ctx, "declare exchange failed", err)
			time.Sleep(3 * time.Second)
			continue
		}

		q, err := c.declareAndBindQueue(ctx, queue, bindingKey)
		if err != nil {
			c.l.Error(ctx, "declare queue failed", err)
			time.Sleep(2 * time.Second)
			continue
		}

		// Подписываемся на очередь
		msgs, err := c.client.Channel.Consume(q.Name, "", false, false, false, false, nil)
		if err != nil {
			c.l.Error(ctx, "consume failed", err)
			time.Sleep(2 * time.Second)
			continue
		}

		c.l.Info(ctx, "start consuming", "queue", q.Name)

		// Цикл чтения сообщений
	consumeLoop:
		for {
			select {
			case <-ctx.Done():
				c.l.Info(ctx, "consumer shutting down", "queue", q.Name)
				return nil

			case msg, ok := <-msgs:
				if !ok {
					c.l.Warn(ctx, "message channel closed, reconnecting...")
					time.Sleep(2 * time.Second)
					continue consumeLoop
				}

				go handle(ctx, msg)
			}
		}
	}
}
