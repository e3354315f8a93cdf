package websocket

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestHub_Implements_EventPublisher(t *testing.T) {
	var _ EventPublisher = (*Hub)(nil)
}

func TestHub_Publish(t *testing.T) {
	hub := NewHub()
	collector := uuid.New()

	client := newMockClient("client-1", collector)
	hub.Register(client)

	var publisher EventPublisher = hub
	publisher.Publish(collector, LoanPaymentCreated(map[string]interface{}{"installments": float64(2)}))

	waitForMessages(t, client, 1)
}

func TestHub_PublishAll(t *testing.T) {
	hub := NewHub()

	client := newMockClient("client-1", uuid.New())
	hub.Register(client)

	var publisher EventPublisher = hub
	publisher.PublishAll(ConfigUpdated(map[string]interface{}{"currencyCode": "COP"}))

	waitForMessages(t, client, 1)
}

func TestNoOpPublisher_Publish(t *testing.T) {
	publisher := &NoOpPublisher{}

	assert.NotPanics(t, func() {
		publisher.Publish(uuid.New(), LoanCreated(nil))
		publisher.PublishAll(ConfigUpdated(nil))
	})
}

func TestNoOpPublisher_Implements_EventPublisher(t *testing.T) {
	var _ EventPublisher = (*NoOpPublisher)(nil)
}
