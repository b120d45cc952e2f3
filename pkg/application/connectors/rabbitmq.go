package connectors

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"shirtdrop/pkg/logx"
)

// RabbitMQ owns one connection and one channel used for publishing.
type RabbitMQ struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	URL      string
	Exchange string
	init     sync.Once
	initErr  error
}

func (r *RabbitMQ) Channel(ctx context.Context) (*amqp.Channel, error) {
	r.init.Do(func() {
		conn, err := amqp.Dial(r.URL)
		if err != nil {
			r.initErr = fmt.Errorf("amqp.Dial: %w", err)
			return
		}

		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			r.initErr = fmt.Errorf("conn.Channel: %w", err)

			return
		}

		if err = ch.ExchangeDeclare(r.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
			_ = conn.Close()
			r.initErr = fmt.Errorf("ch.ExchangeDeclare: %w", err)

			return
		}

		r.conn = conn
		r.channel = ch

		logger(ctx).Info(
			"rabbitmq connected",
			slog.String("host", r.host()),
			slog.String("exchange", r.Exchange),
		)
	})

	return r.channel, r.initErr
}

func (r *RabbitMQ) Close(ctx context.Context) {
	if r.conn == nil {
		return
	}

	if err := r.conn.Close(); err != nil {
		logger(ctx).Error("rabbitmqConnection.Close", logx.Error(err))
	}

	logger(ctx).Info("rabbitmq disconnected", slog.String("host", r.host()))
}

func (r *RabbitMQ) host() string {
	u, err := url.Parse(r.URL)
	if err != nil {
		return ""
	}

	return u.Host
}
