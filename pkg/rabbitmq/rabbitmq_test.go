package rabbitmq

import (
	"testing"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewClientInvalidURL(t *testing.T) {
	_, err := NewClient(Config{URL: "http://not-an-amqp-url"}, zap.NewNop())
	assert.ErrorContains(t, err, "failed to connect to RabbitMQ")
}

func TestClientWithoutConnection(t *testing.T) {
	c := newClient(Config{}, zap.NewNop(), 4)
	assert.Equal(t, DefaultExchange, c.exchange)

	assert.ErrorIs(t, c.Publish("project.created", []byte(`{}`)), ErrNotConnected)
	assert.Error(t, c.Consume("project.#", func(amqp.Delivery) error { return nil }))
	assert.NoError(t, c.Close())
}

func TestPublishDoesNotBlockWhenOutboxIsFull(t *testing.T) {
	c := newClient(Config{}, zap.NewNop(), 2)
	c.connected.Store(true)

	require.NoError(t, c.Publish("project.created", []byte(`{}`)))
	require.NoError(t, c.Publish("project.updated", []byte(`{}`)))
	assert.ErrorIs(t, c.Publish("project.deleted", []byte(`{}`)), ErrOutboxFull)
	assert.NoError(t, c.Close())
}

func TestPublishAfterClose(t *testing.T) {
	c := newClient(Config{}, zap.NewNop(), 2)
	c.connected.Store(true)

	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Publish("project.created", []byte(`{}`)), ErrClosed)
	assert.NoError(t, c.Close(), "Close is idempotent")
}

func TestCloseDrainsOutbox(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	c := newClient(Config{}, zap.New(core), 4)
	c.connected.Store(true)

	require.NoError(t, c.Publish("project.created", []byte(`{}`)))
	require.NoError(t, c.Publish("project.deleted", []byte(`{}`)))

	c.wg.Add(1)
	go c.publishLoop()
	require.NoError(t, c.Close())

	assert.Empty(t, c.outbox)
	assert.Equal(t, 2, logs.FilterMessage("dropping event, no RabbitMQ channel").Len())
}
