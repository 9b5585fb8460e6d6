package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whisperhq/whisperd/internal/model"
	"github.com/whisperhq/whisperd/internal/testutil"
)

func TestPublishDeliversToAllSubscribers(t *testing.T) {
	bus := NewBus(testutil.NopLogger())

	sub1 := bus.Subscribe()
	sub2 := bus.Subscribe()
	defer bus.Unsubscribe(sub1)
	defer bus.Unsubscribe(sub2)

	bus.Publish(model.Event{Type: model.EventMessageSent})

	for _, sub := range []*Subscription{sub1, sub2} {
		select {
		case evt := <-sub.C:
			assert.Equal(t, model.EventMessageSent, evt.Type)
		default:
			t.Fatal("expected event on subscriber channel")
		}
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus(testutil.NopLogger())

	sub := bus.Subscribe()
	bus.Unsubscribe(sub)

	_, open := <-sub.C
	assert.False(t, open)

	// Unsubscribing twice is a no-op
	bus.Unsubscribe(sub)
}

func TestPublishAfterUnsubscribeDoesNotPanic(t *testing.T) {
	bus := NewBus(testutil.NopLogger())

	sub := bus.Subscribe()
	bus.Unsubscribe(sub)

	bus.Publish(model.Event{Type: model.EventPuppetRegistered})
}

func TestSlowSubscriberDoesNotBlockPublisher(t *testing.T) {
	bus := NewBus(testutil.NopLogger())

	slow := bus.Subscribe()
	defer bus.Unsubscribe(slow)

	// Fill the subscriber's buffer, then publish one more
	for i := 0; i < subscriberBufferSize+10; i++ {
		bus.Publish(model.Event{Type: model.EventMessageSent})
	}

	// The buffer holds exactly its capacity; overflow was dropped
	require.Len(t, slow.C, subscriberBufferSize)
}
