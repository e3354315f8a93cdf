package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents what happened to the entity
type EventType string

const (
	EventTypeCreated    EventType = "created"
	EventTypeUpdated    EventType = "updated"
	EventTypeDeleted    EventType = "deleted"
	EventTypeRenewed    EventType = "renewed"
	EventTypeReassigned EventType = "reassigned"
)

// EntityType represents the type of entity the event is about
type EntityType string

const (
	EntityTypeLoan        EntityType = "loan"
	EntityTypeLoanPayment EntityType = "loan_payment"
	EntityTypeConfig      EntityType = "config"
)

// Event represents a WebSocket event message sent to clients
// Format: { type, entity, payload, timestamp }
type Event struct {
	Type      string      `json:"type"`      // Combined type e.g. "loan.created"
	Entity    EntityType  `json:"entity"`    // Entity type e.g. "loan"
	Payload   interface{} `json:"payload"`   // Full entity data
	Timestamp time.Time   `json:"timestamp"` // Event timestamp
}

// NewEvent creates a new event with the given type, entity, and payload
func NewEvent(eventType EventType, entityType EntityType, payload interface{}) Event {
	return Event{
		Type:      fmt.Sprintf("%s.%s", entityType, eventType),
		Entity:    entityType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON serializes the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LoanCreated creates a loan.created event
func LoanCreated(payload interface{}) Event {
	return NewEvent(EventTypeCreated, EntityTypeLoan, payload)
}

// LoanUpdated creates a loan.updated event
func LoanUpdated(payload interface{}) Event {
	return NewEvent(EventTypeUpdated, EntityTypeLoan, payload)
}

// LoanDeleted creates a loan.deleted event
func LoanDeleted(payload interface{}) Event {
	return NewEvent(EventTypeDeleted, EntityTypeLoan, payload)
}

// LoanRenewed creates a loan.renewed event
func LoanRenewed(payload interface{}) Event {
	return NewEvent(EventTypeRenewed, EntityTypeLoan, payload)
}

// LoanReassigned creates a loan.reassigned event
func LoanReassigned(payload interface{}) Event {
	return NewEvent(EventTypeReassigned, EntityTypeLoan, payload)
}

// LoanPaymentCreated creates a loan_payment.created event
func LoanPaymentCreated(payload interface{}) Event {
	return NewEvent(EventTypeCreated, EntityTypeLoanPayment, payload)
}

// ConfigUpdated creates a config.updated event
func ConfigUpdated(payload interface{}) Event {
	return NewEvent(EventTypeUpdated, EntityTypeConfig, payload)
}
