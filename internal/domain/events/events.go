// Package events defines domain events that represent significant business occurrences.
// Events are immutable facts about what happened in the past.
//
// Pattern: Domain Events (Observer Pattern foundation)
// - Events are raised by use cases when order state changes
// - Persisted to the outbox in the same transaction as the state change
// - A relay process publishes them to the message broker afterwards
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/valueobjects"
)

// DomainEvent is the base interface for all domain events.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() string // ID of the entity that raised this event
}

// BaseEvent provides common fields for all events.
// Embedded in specific event types to avoid duplication (DRY).
type BaseEvent struct {
	eventID     uuid.UUID
	eventType   string
	occurredAt  time.Time
	aggregateID string
}

func newBaseEvent(eventType string, aggregateID string) BaseEvent {
	return BaseEvent{
		eventID:     uuid.New(),
		eventType:   eventType,
		occurredAt:  time.Now(),
		aggregateID: aggregateID,
	}
}

func (e BaseEvent) EventID() uuid.UUID {
	return e.eventID
}

func (e BaseEvent) EventType() string {
	return e.eventType
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.occurredAt
}

func (e BaseEvent) AggregateID() string {
	return e.aggregateID
}

// Event Types (constants for type checking)
const (
	EventTypeOrderCreated           = "order.created"
	EventTypeOrderPaid              = "order.paid"
	EventTypeOrderExpired           = "order.expired"
	EventTypeOrderAccessGranted     = "order.access_granted"
	EventTypeCheckoutSessionCreated = "checkout.session_created"
)

// ===== Order Events =====

// OrderCreated is raised when a buyer starts a checkout and a pending order
// is recorded.
type OrderCreated struct {
	BaseEvent
	ProductID string
	TipsterID string
	Amount    valueobjects.Money
	IsGuest   bool
}

func NewOrderCreated(orderID, productID, tipsterID string, amount valueobjects.Money, isGuest bool) *OrderCreated {
	return &OrderCreated{
		BaseEvent: newBaseEvent(EventTypeOrderCreated, orderID),
		ProductID: productID,
		TipsterID: tipsterID,
		Amount:    amount,
		IsGuest:   isGuest,
	}
}

// OrderPaid is raised exactly once per order, by whichever reconciliation
// path wins the status update.
type OrderPaid struct {
	BaseEvent
	ProductID     string
	TipsterID     string
	Amount        valueobjects.Money
	Provider      string
	PaymentMethod string
}

func NewOrderPaid(orderID, productID, tipsterID string, amount valueobjects.Money, provider, paymentMethod string) *OrderPaid {
	return &OrderPaid{
		BaseEvent:     newBaseEvent(EventTypeOrderPaid, orderID),
		ProductID:     productID,
		TipsterID:     tipsterID,
		Amount:        amount,
		Provider:      provider,
		PaymentMethod: paymentMethod,
	}
}

// OrderExpired is raised when a gateway session times out without payment.
type OrderExpired struct {
	BaseEvent
	ProductID string
	Provider  string
}

func NewOrderExpired(orderID, productID, provider string) *OrderExpired {
	return &OrderExpired{
		BaseEvent: newBaseEvent(EventTypeOrderExpired, orderID),
		ProductID: productID,
		Provider:  provider,
	}
}

// OrderAccessGranted is raised after the buyer's channel entitlement was
// provisioned.
type OrderAccessGranted struct {
	BaseEvent
	ProductID  string
	ChannelID  string
	InviteLink string
}

func NewOrderAccessGranted(orderID, productID, channelID, inviteLink string) *OrderAccessGranted {
	return &OrderAccessGranted{
		BaseEvent:  newBaseEvent(EventTypeOrderAccessGranted, orderID),
		ProductID:  productID,
		ChannelID:  channelID,
		InviteLink: inviteLink,
	}
}

// ===== Checkout Events =====

// CheckoutSessionCreated is raised when a gateway session is opened for an
// order. Useful for funnel analytics.
type CheckoutSessionCreated struct {
	BaseEvent
	Provider  string
	SessionID string
}

func NewCheckoutSessionCreated(orderID, provider, sessionID string) *CheckoutSessionCreated {
	return &CheckoutSessionCreated{
		BaseEvent: newBaseEvent(EventTypeCheckoutSessionCreated, orderID),
		Provider:  provider,
		SessionID: sessionID,
	}
}
