package mq

import (
	"context"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vocaciona/apiserver/config"
)

type fakeBackend struct {
	published []Message
	delivered []Message
	closed    bool
}

func (b *fakeBackend) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	b.published = append(b.published, Message{ID: "msg-1", Data: data, Attributes: attrs})
	return "msg-1", nil
}

func (b *fakeBackend) Subscribe(ctx context.Context, channel string, handler Handler) error {
	for _, msg := range b.delivered {
		if err := handler(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (b *fakeBackend) Close() error {
	b.closed = true
	return nil
}

func TestMQDelegatesToBackend(t *testing.T) {
	backend := &fakeBackend{
		delivered: []Message{{ID: "a", Data: []byte(`{}`), Attributes: map[string]string{"evento": "resultado.guardado"}}},
	}
	m := New(backend)

	id, err := m.Publish(context.Background(), "resultados", []byte(`{"id":"r1"}`), map[string]string{"evento": "resultado.guardado"})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	require.Len(t, backend.published, 1)

	var received []Message
	err = m.Subscribe(context.Background(), "resultados", func(_ context.Context, msg Message) error {
		received = append(received, msg)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, "resultado.guardado", received[0].Attributes["evento"])

	require.NoError(t, m.Close())
	assert.True(t, backend.closed)
}

func TestMQSubscribeHandlerErrorPropagates(t *testing.T) {
	backend := &fakeBackend{delivered: []Message{{ID: "a"}}}
	m := New(backend)

	err := m.Subscribe(context.Background(), "resultados", func(context.Context, Message) error {
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestNewFromConfigSelection(t *testing.T) {
	t.Run("empty backend disables publishing", func(t *testing.T) {
		m, err := NewFromConfig(context.Background(), config.MQConfig{})
		require.NoError(t, err)
		assert.Nil(t, m)
	})

	t.Run("unknown backend is an error", func(t *testing.T) {
		_, err := NewFromConfig(context.Background(), config.MQConfig{Backend: "kafka"})
		assert.Error(t, err)
	})

	t.Run("rabbitmq without url is an error", func(t *testing.T) {
		_, err := NewFromConfig(context.Background(), config.MQConfig{Backend: "rabbitmq"})
		assert.Error(t, err)
	})

	t.Run("pubsub without project is an error", func(t *testing.T) {
		_, err := NewFromConfig(context.Background(), config.MQConfig{Backend: "pubsub"})
		assert.Error(t, err)
	})
}

func TestHeadersToAttributes(t *testing.T) {
	attrs := headersToAttributes(amqp.Table{
		"evento": "resultado.guardado",
		"raw":    []byte("bytes"),
		"n":      int32(7),
	})
	assert.Equal(t, "resultado.guardado", attrs["evento"])
	assert.Equal(t, "bytes", attrs["raw"])
	assert.Equal(t, "7", attrs["n"])

	assert.Nil(t, headersToAttributes(nil))
}
