package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventBookingCreated    = "booking_created"
	EventBookingConfirmed  = "booking_confirmed"
	EventBookingCancelled  = "booking_cancelled"
	EventBookingExpired    = "booking_expired"
	EventVehicleCheckedIn  = "vehicle_checked_in"
	EventVehicleCheckedOut = "vehicle_checked_out"
	EventPaymentCompleted  = "payment_completed"
	EventPaymentExpired    = "payment_expired"
)

// BookingEventPayload describes the minimal booking snapshot for event consumers.
type BookingEventPayload struct {
	BookingID    int64     `json:"booking_id"`
	UserID       int64     `json:"user_id"`
	LicensePlate string    `json:"license_plate"`
	Status       string    `json:"status"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Amount       int64     `json:"amount,omitempty"`
	PaymentRef   string    `json:"payment_ref,omitempty"`
}

// GateEventPayload describes a gate transaction for event consumers.
type GateEventPayload struct {
	VehicleID    int64  `json:"vehicle_id"`
	LicensePlate string `json:"license_plate"`
	SlotID       int64  `json:"slot_id"`
	BookingID    int64  `json:"booking_id,omitempty"`
	TicketCode   string `json:"ticket_code,omitempty"`
}

// PaymentEventPayload describes a payment settlement for event consumers.
type PaymentEventPayload struct {
	PaymentRef string `json:"payment_ref"`
	BookingID  int64  `json:"booking_id,omitempty"`
	VehicleID  int64  `json:"vehicle_id,omitempty"`
	Amount     int64  `json:"amount"`
	Status     string `json:"status"`
}

// Event represents a lightweight domain event.
type Event struct {
	ID        int64
	Type      string
	Payload   []byte
	CreatedAt time.Time
	Processed bool
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
