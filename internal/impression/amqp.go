package impression

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/advenue/screen-server/internal/model"
)

const (
	publishTimeout = 5 * time.Second
	queueBuffer    = 1024
)

type publisher interface {
	Publish(ctx context.Context, body []byte) error
	Close() error
}

// AMQPPublisher publishes to a durable queue through the default exchange,
// redialing after a failure.
type AMQPPublisher struct {
	url   string
	queue string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPPublisher(url, queue string) (*AMQPPublisher, error) {
	p := &AMQPPublisher{url: url, queue: queue}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *AMQPPublisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("amqp channel: %w", err)
	}

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("amqp queue declare: %w", err)
	}

	p.conn = conn
	p.ch = ch
	return nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil || p.ch.IsClosed() {
		p.closeLocked()
		if err := p.connect(); err != nil {
			return err
		}
	}

	err := p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		p.closeLocked()
		return fmt.Errorf("amqp publish: %w", err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
	return nil
}

func (p *AMQPPublisher) closeLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// AMQPSink queues impression records and publishes them from one worker so a
// slow broker never stalls a player. Records are dropped when the buffer is
// full.
type AMQPSink struct {
	t     *tracker
	pub   publisher
	queue chan Record
	wg    sync.WaitGroup

	mu      sync.Mutex
	closed  bool
	dropped int
}

func NewAMQPSink(pub *AMQPPublisher) *AMQPSink {
	return newAMQPSink(pub)
}

func newAMQPSink(pub publisher) *AMQPSink {
	s := &AMQPSink{
		pub:   pub,
		queue: make(chan Record, queueBuffer),
	}
	s.t = newTracker(s.enqueue)

	s.wg.Add(1)
	go s.run()
	return s
}

func (s *AMQPSink) OnItemStart(screenID string, item *model.DisplayItem, metadata map[string]string) Handle {
	return s.t.start(screenID, item, metadata)
}

func (s *AMQPSink) OnItemEnd(h Handle) {
	s.t.end(h)
}

func (s *AMQPSink) enqueue(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	select {
	case s.queue <- rec:
	default:
		s.dropped++
		log.Warn().Int("dropped", s.dropped).Str("screenId", rec.ScreenID).Msg("impression buffer full")
	}
}

func (s *AMQPSink) run() {
	defer s.wg.Done()

	for rec := range s.queue {
		body, err := json.Marshal(rec)
		if err != nil {
			log.Error().Err(err).Msg("failed to encode impression")
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := s.pub.Publish(ctx, body); err != nil {
			log.Error().Err(err).Str("impressionId", string(rec.Handle)).Msg("failed to publish impression")
		}
		cancel()
	}
}

// Close drains queued records and closes the publisher.
func (s *AMQPSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	s.wg.Wait()
	return s.pub.Close()
}
