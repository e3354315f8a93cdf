package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	payload := map[string]interface{}{
		"id":             "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d",
		"pendingBalance": "157500",
	}

	before := time.Now()
	evt := NewEvent(EventTypeUpdated, EntityTypeLoan, payload)
	after := time.Now()

	assert.Equal(t, "loan.updated", evt.Type)
	assert.Equal(t, EntityTypeLoan, evt.Entity)
	assert.Equal(t, payload, evt.Payload)
	assert.True(t, !evt.Timestamp.Before(before) && !evt.Timestamp.After(after))
}

func TestEvent_JSON_Serialization(t *testing.T) {
	fixedTime := time.Date(2025, 10, 10, 10, 30, 0, 0, time.UTC)
	evt := Event{
		Type:      "loan.created",
		Entity:    EntityTypeLoan,
		Payload:   map[string]interface{}{"installmentValue": "52500"},
		Timestamp: fixedTime,
	}

	data, err := evt.ToJSON()
	require.NoError(t, err)

	var decoded Event
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, evt.Type, decoded.Type)
	assert.Equal(t, evt.Entity, decoded.Entity)
	assert.Equal(t, fixedTime, decoded.Timestamp.UTC())

	decodedPayload, ok := decoded.Payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "52500", decodedPayload["installmentValue"])
}

func TestEvent_Helpers(t *testing.T) {
	payload := map[string]interface{}{"id": "l-1"}

	tests := []struct {
		name   string
		evt    Event
		typ    string
		entity EntityType
	}{
		{"LoanCreated", LoanCreated(payload), "loan.created", EntityTypeLoan},
		{"LoanUpdated", LoanUpdated(payload), "loan.updated", EntityTypeLoan},
		{"LoanDeleted", LoanDeleted(payload), "loan.deleted", EntityTypeLoan},
		{"LoanRenewed", LoanRenewed(payload), "loan.renewed", EntityTypeLoan},
		{"LoanReassigned", LoanReassigned(payload), "loan.reassigned", EntityTypeLoan},
		{"LoanPaymentCreated", LoanPaymentCreated(payload), "loan_payment.created", EntityTypeLoanPayment},
		{"ConfigUpdated", ConfigUpdated(payload), "config.updated", EntityTypeConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.typ, tt.evt.Type)
			assert.Equal(t, tt.entity, tt.evt.Entity)
			assert.Equal(t, payload, tt.evt.Payload)
		})
	}
}
