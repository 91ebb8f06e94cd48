// Package rabbitmq publishes and consumes project lifecycle events on a
// topic exchange.
package rabbitmq

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/streadway/amqp"
	"go.uber.org/zap"
)

// DefaultExchange is the topic exchange project events are published to.
const DefaultExchange = "projects"

const (
	defaultOutboxSize = 256
	drainTimeout      = 5 * time.Second
	reconnectMin      = time.Second
	reconnectMax      = 30 * time.Second
)

var (
	ErrClosed       = errors.New("rabbitmq client is closed")
	ErrNotConnected = errors.New("events disabled until the broker reconnects")
	ErrOutboxFull   = errors.New("event outbox is full")
)

type outgoing struct {
	routingKey string
	body       []byte
}

// Client holds the RabbitMQ connection and channel. Publish only queues the
// message; a background loop delivers it, and a watcher reconnects after the
// broker drops the connection.
type Client struct {
	url      string
	exchange string
	log      *zap.Logger

	mu        sync.Mutex
	conn      *amqp.Connection
	channel   *amqp.Channel
	connected atomic.Bool

	outbox    chan outgoing
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL      string
	Exchange string
}

func newClient(cfg Config, log *zap.Logger, outboxSize int) *Client {
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}
	return &Client{
		url:      cfg.URL,
		exchange: cfg.Exchange,
		log:      log,
		outbox:   make(chan outgoing, outboxSize),
		done:     make(chan struct{}),
	}
}

// NewClient connects to RabbitMQ, opens a channel and declares the durable
// topic exchange.
func NewClient(cfg Config, log *zap.Logger) (*Client, error) {
	c := newClient(cfg, log, defaultOutboxSize)

	conn, err := c.connect()
	if err != nil {
		return nil, err
	}
	log.Info("RabbitMQ client connected", zap.String("exchange", c.exchange))

	c.wg.Add(2)
	go c.publishLoop()
	go c.watch(conn)
	return c, nil
}

func (c *Client) connect() (*amqp.Connection, error) {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		c.exchange, // name
		"topic",    // kind
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", c.exchange, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.done:
		ch.Close()
		conn.Close()
		return nil, ErrClosed
	default:
	}
	c.conn = conn
	c.channel = ch
	c.connected.Store(true)
	return conn, nil
}

// watch waits for the connection to drop, then reconnects with backoff.
// Publish reports ErrNotConnected in between.
func (c *Client) watch(conn *amqp.Connection) {
	defer c.wg.Done()

	for {
		closed := conn.NotifyClose(make(chan *amqp.Error, 1))
		select {
		case <-c.done:
			return
		case amqpErr := <-closed:
			c.connected.Store(false)
			select {
			case <-c.done:
				return
			default:
			}
			var err error
			if amqpErr != nil {
				err = amqpErr
			}
			c.log.Error("RabbitMQ connection lost, events disabled", zap.Error(err))
		}

		conn = c.reconnect()
		if conn == nil {
			return
		}
	}
}

func (c *Client) reconnect() *amqp.Connection {
	backoff := reconnectMin
	for {
		select {
		case <-c.done:
			return nil
		case <-time.After(backoff):
		}

		conn, err := c.connect()
		if err == nil {
			c.log.Info("RabbitMQ reconnected, events enabled", zap.String("exchange", c.exchange))
			return conn
		}
		if errors.Is(err, ErrClosed) {
			return nil
		}
		c.log.Warn("RabbitMQ reconnect failed", zap.Error(err), zap.Duration("retry_in", backoff))
		backoff = min(backoff*2, reconnectMax)
	}
}

// Close stops the background loops, giving queued events a short time to be
// delivered, and closes the channel and connection. It is safe to call more
// than once.
func (c *Client) Close() error {
	var errs []error
	c.closeOnce.Do(func() {
		close(c.done)

		drained := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(drained)
		}()
		select {
		case <-drained:
		case <-time.After(drainTimeout):
			c.log.Warn("RabbitMQ outbox not drained before close", zap.Int("pending", len(c.outbox)))
		}

		c.connected.Store(false)
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.channel != nil {
			if err := c.channel.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
			}
			c.channel = nil
		}
		if c.conn != nil {
			if err := c.conn.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
			}
			c.conn = nil
		}
	})
	return errors.Join(errs...)
}

// Publish queues a persistent JSON message with the given routing key,
// e.g. "project.created". It never waits on the broker.
func (c *Client) Publish(routingKey string, body []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	if !c.connected.Load() {
		return ErrNotConnected
	}

	select {
	case c.outbox <- outgoing{routingKey: routingKey, body: body}:
		return nil
	default:
		return ErrOutboxFull
	}
}

func (c *Client) publishLoop() {
	defer c.wg.Done()

	for {
		select {
		case msg := <-c.outbox:
			c.send(msg)
		case <-c.done:
			for {
				select {
				case msg := <-c.outbox:
					c.send(msg)
				default:
					return
				}
			}
		}
	}
}

func (c *Client) send(msg outgoing) {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil {
		c.log.Warn("dropping event, no RabbitMQ channel", zap.String("routing_key", msg.routingKey))
		return
	}

	err := ch.Publish(
		c.exchange,     // exchange
		msg.routingKey, // routing key
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         msg.body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	if err != nil {
		c.log.Warn("failed to publish event", zap.String("routing_key", msg.routingKey), zap.Error(err))
		return
	}
	c.log.Debug("published event", zap.String("routing_key", msg.routingKey), zap.Int("bytes", len(msg.body)))
}

// Consume binds an exclusive, auto-deleted queue to the exchange with
// bindingKey (for example "project.#") and hands each delivery to handler
// until the channel closes. Successful deliveries are acked; failed ones are
// rejected without requeueing.
func (c *Client) Consume(bindingKey string, handler func(msg amqp.Delivery) error) error {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil {
		return errors.New("RabbitMQ channel is not available for consumption")
	}

	queue, err := ch.QueueDeclare(
		"",    // name: server generated
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(queue.Name, bindingKey, c.exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue to %s: %w", c.exchange, err)
	}

	msgs, err := ch.Consume(
		queue.Name, // queue
		"",         // consumer tag
		false,      // auto-ack
		true,       // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.log.Info("waiting for events", zap.String("exchange", c.exchange), zap.String("binding", bindingKey))

	for msg := range msgs {
		if err := handler(msg); err != nil {
			c.log.Warn("failed to process message",
				zap.Uint64("delivery_tag", msg.DeliveryTag), zap.String("routing_key", msg.RoutingKey), zap.Error(err))
			if nackErr := msg.Nack(false, false); nackErr != nil {
				c.log.Error("failed to nack message", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(nackErr))
			}
			continue
		}
		if ackErr := msg.Ack(false); ackErr != nil {
			c.log.Error("failed to ack message", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(ackErr))
		}
	}

	select {
	case <-c.done:
		return nil
	default:
		return errors.New("RabbitMQ delivery channel closed")
	}
}
