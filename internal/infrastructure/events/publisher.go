package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	jsoniter "github.com/json-iterator/go"
	amqp "github.com/rabbitmq/amqp091-go"

	"shirtdrop/internal/domain/entity"
	"shirtdrop/pkg/contextx"
	"shirtdrop/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

type channelProvider interface {
	Channel(ctx context.Context) (*amqp.Channel, error)
}

// AMQPPublisher writes events to a topic exchange, routed by event type.
type AMQPPublisher struct {
	provider channelProvider
	exchange string
}

func NewAMQPPublisher(provider channelProvider, exchange string) *AMQPPublisher {
	return &AMQPPublisher{
		provider: provider,
		exchange: exchange,
	}
}

func (p *AMQPPublisher) Publish(ctx context.Context, event entity.Event) error {
	ch, err := p.provider.Channel(ctx)
	if err != nil {
		return fmt.Errorf("provider.Channel: %w", err)
	}

	body, err := jsoniter.Marshal(event)
	if err != nil {
		return fmt.Errorf("jsoniter.Marshal: %w", err)
	}

	err = ch.PublishWithContext(ctx, p.exchange, string(event.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.At,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("ch.PublishWithContext: %w", err)
	}

	return nil
}

type publisher interface {
	Publish(ctx context.Context, event entity.Event) error
}

// Bus is the single entry point services publish through. Events go to the
// broker when one is configured and are mirrored to subscribers (the operator
// notifier). A slow subscriber loses events rather than blocking a request.
type Bus struct {
	broker      publisher
	subscribers []chan entity.Event
}

func NewBus(broker publisher) *Bus {
	return &Bus{broker: broker}
}

// Subscribe must be called before the bus is used.
func (b *Bus) Subscribe(buffer int) <-chan entity.Event {
	ch := make(chan entity.Event, buffer)
	b.subscribers = append(b.subscribers, ch)

	return ch
}

// Publish never fails the caller: delivery problems are logged.
func (b *Bus) Publish(ctx context.Context, event entity.Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	if b.broker != nil {
		if err := b.broker.Publish(ctx, event); err != nil {
			logger(ctx).Error("broker.Publish",
				logx.Error(err),
				slog.String("event", string(event.Type)),
			)
		}
	}

	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			logger(ctx).Warn("event subscriber is full, event dropped", slog.String("event", string(event.Type)))
		}
	}
}

// Close closes subscriber channels; publishing afterwards panics.
func (b *Bus) Close() {
	for _, ch := range b.subscribers {
		close(ch)
	}
}
