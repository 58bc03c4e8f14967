package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/handoff-wait/internal/config"
	"github.com/iliyamo/handoff-wait/internal/model"
)

const (
	// publishBuffer bounds the events waiting for the broker.  Events
	// beyond it are dropped; displays catch up on their next poll.
	publishBuffer = 64
	// dialTimeout caps the TCP connect and the AMQP handshake.
	dialTimeout = 2 * time.Second
	// drainTimeout is how long Run keeps flushing queued events after
	// its context ends.
	drainTimeout = 2 * time.Second
)

// Publisher announces changes on the fanout exchange.  Notify only
// queues the event; Run owns the broker connection and does the sending,
// so a slow or unreachable broker never delays the write being
// announced.  After a failure the connection is not redialed until the
// backoff has passed, and events arriving meanwhile are dropped.
type Publisher struct {
	cfg    config.ChangesConfig
	source string
	events chan ChangeEvent

	conn     *amqp.Connection
	ch       *amqp.Channel
	backoff  time.Duration
	retryAt  time.Time
	now      func() time.Time
	dialFunc func(url string) (*amqp.Connection, error)
}

// NewPublisher returns a Publisher for cfg.  source identifies this
// process in published events.  Nothing is sent until Run is started.
func NewPublisher(cfg config.ChangesConfig, source string) *Publisher {
	return &Publisher{
		cfg:      cfg,
		source:   source,
		events:   make(chan ChangeEvent, publishBuffer),
		now:      time.Now,
		dialFunc: dial,
	}
}

func dial(url string) (*amqp.Connection, error) {
	return amqp.DialConfig(url, amqp.Config{Dial: amqp.DefaultDial(dialTimeout)})
}

// Notify queues c for publishing and returns at once.  It satisfies the
// service Notifier interface.
func (p *Publisher) Notify(_ context.Context, c model.Change) {
	if !p.cfg.Enabled {
		return
	}
	select {
	case p.events <- NewChangeEvent(p.source, c):
	default:
		log.Printf("changes-publisher: queue full, dropping %s change", c.Table)
	}
}

// Run sends queued events until ctx is done, then flushes what is still
// queued for a short while and closes the connection.
func (p *Publisher) Run(ctx context.Context) {
	defer p.reset()
	for {
		select {
		case ev := <-p.events:
			p.send(ctx, ev)
		case <-ctx.Done():
			p.drain()
			return
		}
	}
}

func (p *Publisher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case ev := <-p.events:
			p.send(ctx, ev)
		default:
			return
		}
	}
}

func (p *Publisher) send(ctx context.Context, ev ChangeEvent) {
	if p.ch == nil && p.now().Before(p.retryAt) {
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		p.backoff = nextBackoff(max(p.backoff, minBackoff/2))
		p.retryAt = p.now().Add(p.backoff)
		log.Printf("changes-publisher: publish %s failed: %v; next attempt after %s", ev.Change.Table, err, p.backoff)
		return
	}
	p.backoff = 0
}

// Publish sends ev and returns any broker error.  After a failure the
// channel is discarded so the next call redials.  It is not safe for
// concurrent use; Run is its only caller once started.
func (p *Publisher) Publish(ctx context.Context, ev ChangeEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	ch, err := p.channel()
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Transient, // a missed change is repaired by the next poll
		MessageId:    ev.ID,
		AppId:        ev.Source,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, p.cfg.Exchange, "", false, false, pub); err != nil {
		p.reset()
		return err
	}
	return nil
}

// channel returns the open channel, dialing and declaring the exchange
// when needed.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	conn, err := p.dialFunc(p.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	if err := declareExchange(ch, p.cfg.Exchange); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

func declareExchange(ch *amqp.Channel, name string) error {
	if err := ch.ExchangeDeclare(
		name,     // name
		"fanout", // kind
		true,     // durable
		false,    // autoDelete
		false,    // internal
		false,    // noWait
		nil,      // args
	); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	return nil
}
