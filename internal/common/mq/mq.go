package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"cafe-system/internal/store"
)

// EventsExchange fans committed document changes out to every terminal.
const EventsExchange = "cafe.events"

type Client struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func Dial(url string) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &Client{conn: conn, ch: ch}, nil
}

func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *Client) DeclareEvents() error {
	if c == nil || c.ch == nil {
		return fmt.Errorf("nil channel")
	}
	return c.ch.ExchangeDeclare(EventsExchange, "fanout", true, false, false, false, nil)
}

// PublishEvents sends one transaction's change set as a single message.
// Implements store.Notifier.
func (c *Client) PublishEvents(events []store.Event) error {
	body, err := json.Marshal(events)
	if err != nil {
		return err
	}
	return c.ch.PublishWithContext(context.Background(), EventsExchange, "", false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		ContentType:  "application/json",
		Body:         body,
	})
}

// ConsumeEvents binds a private queue to the fanout exchange and streams
// decoded change events until ctx is done.
func (c *Client) ConsumeEvents(ctx context.Context, log zerolog.Logger) (<-chan store.Event, error) {
	q, err := c.ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, err
	}
	if err := c.ch.QueueBind(q.Name, "", EventsExchange, false, nil); err != nil {
		return nil, err
	}
	deliveries, err := c.ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return nil, err
	}

	out := make(chan store.Event, 128)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				var events []store.Event
				if err := json.Unmarshal(d.Body, &events); err != nil {
					log.Error().Err(err).Msg("malformed change-event message")
					continue
				}
				for _, ev := range events {
					select {
					case out <- ev:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return out, nil
}
