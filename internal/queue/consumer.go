package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/handoff-wait/internal/config"
	"github.com/iliyamo/handoff-wait/internal/model"
)

const (
	minBackoff = time.Second
	maxBackoff = 30 * time.Second
)

// Consumer receives changes published by any process, including this
// one, and hands each to OnChange.
type Consumer struct {
	cfg      config.ChangesConfig
	OnChange func(model.Change)
}

// NewConsumer returns a Consumer for cfg calling onChange per message.
func NewConsumer(cfg config.ChangesConfig, onChange func(model.Change)) *Consumer {
	return &Consumer{cfg: cfg, OnChange: onChange}
}

// Run connects, binds a private queue to the exchange and delivers
// changes until ctx is cancelled.  Lost connections are redialed with
// exponential backoff.  It returns ctx.Err() on shutdown.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := minBackoff
	for {
		conn, err := amqp.Dial(c.cfg.URL)
		if err != nil {
			log.Printf("changes-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			backoff = nextBackoff(backoff)
			continue
		}
		backoff = minBackoff

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("changes-consumer: consume loop ended: %v; reconnecting", err)
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := declareExchange(ch, c.cfg.Exchange); err != nil {
		return err
	}
	// Server-named, exclusive and auto-deleted: each process gets every
	// message and nothing piles up while it is down.
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", c.cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	msgs, err := ch.Consume(q.Name, "display-"+uuid.NewString(), true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.handle(d.Body)
		}
	}
}

func (c *Consumer) handle(body []byte) {
	ev, err := decodeEvent(body)
	if err != nil {
		log.Printf("changes-consumer: drop message: %v", err)
		return
	}
	if c.OnChange != nil {
		c.OnChange(ev.Change)
	}
}

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// sleepCtx waits for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
