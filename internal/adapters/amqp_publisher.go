package adapters

import (
	"context"

	"budget/internal/amqp"
	"budget/internal/core"
)

// AMQPPublisher adapts the AMQP client to services.EventPublisher so the
// service layer never sees broker message types.
type AMQPPublisher struct {
	client eventSink
}

type eventSink interface {
	PublishTransactionEvent(ctx context.Context, ev *amqp.TransactionEvent) error
	Close() error
}

func NewAMQPPublisher(client *amqp.Client) *AMQPPublisher {
	return &AMQPPublisher{client: client}
}

// PublishUpserted implements services.EventPublisher
func (p *AMQPPublisher) PublishUpserted(ctx context.Context, tx core.Transaction) error {
	return p.client.PublishTransactionEvent(ctx, amqp.NewUpsertedEvent(tx))
}

// PublishDeleted implements services.EventPublisher
func (p *AMQPPublisher) PublishDeleted(ctx context.Context, id int64) error {
	return p.client.PublishTransactionEvent(ctx, amqp.NewDeletedEvent(id))
}

func (p *AMQPPublisher) Close() error {
	return p.client.Close()
}
