package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBusPublishSubscribe(t *testing.T) {
	bus := NewEventBus()

	var got []string
	bus.Subscribe(EventBookingCreated, func(ev *Event) error {
		got = append(got, ev.Type)
		return nil
	})
	bus.Subscribe(EventBookingCreated, func(ev *Event) error {
		got = append(got, "second")
		return nil
	})

	bus.Publish(&Event{Type: EventBookingCreated})
	assert.Equal(t, []string{EventBookingCreated, "second"}, got)

	// Unrelated event types do not fire.
	bus.Publish(&Event{Type: EventPaymentCompleted})
	assert.Len(t, got, 2)
}

func TestEventBusPublishJSON(t *testing.T) {
	bus := NewEventBus()

	var received PaymentEventPayload
	bus.Subscribe(EventPaymentCompleted, func(ev *Event) error {
		return json.Unmarshal(ev.Payload, &received)
	})

	payload := PaymentEventPayload{PaymentRef: "BOOKS17300000001", BookingID: 1, Amount: 40000, Status: "completed"}
	require.NoError(t, bus.PublishJSON(EventPaymentCompleted, payload))

	assert.Equal(t, payload, received)
}

func TestEventBusNilSafe(t *testing.T) {
	var bus *EventBus
	assert.NoError(t, bus.PublishJSON(EventBookingCreated, nil))
}
