// Package events publishes domain events for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// MatchCreated is emitted once per new match row.
type MatchCreated struct {
	MatchID     uint64    `json:"match_id"`
	UserID1     uint64    `json:"user_id1"`
	UserID2     uint64    `json:"user_id2"`
	TriggeredBy uint64    `json:"triggered_by"`
	AnimalID    uint64    `json:"animal_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	PublishMatchCreated(ctx context.Context, e MatchCreated) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) PublishMatchCreated(context.Context, MatchCreated) error { return nil }
func (Nop) Close() error                                            { return nil }

// AMQPPublisher sends JSON events to a durable queue on the default exchange.
type AMQPPublisher struct {
	queue string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPPublisher dials url and declares queue.
func NewAMQPPublisher(url, queue string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: declare queue: %w", err)
	}
	return &AMQPPublisher{queue: queue, conn: conn, ch: ch}, nil
}

func (p *AMQPPublisher) PublishMatchCreated(ctx context.Context, e MatchCreated) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal event: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Type:         "match.created",
		Body:         body,
	}

	// channels are not safe for concurrent publishes
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		pub,
	); err != nil {
		return fmt.Errorf("rabbitmq: publish: %w", err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.ch.Close()
	return p.conn.Close()
}

// Recorder keeps published events in memory. Useful in tests.
type Recorder struct {
	mu     sync.Mutex
	events []MatchCreated
}

func (r *Recorder) PublishMatchCreated(_ context.Context, e MatchCreated) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []MatchCreated {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]MatchCreated(nil), r.events...)
}
