package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusPublishAndConsume(t *testing.T) {
	bus := NewBus(4)
	defer bus.Close()

	ok := bus.Publish(Event{Type: FeedbackReceived, FreelancerID: "fr-1"})
	require.True(t, ok)

	event := <-bus.Events()
	assert.Equal(t, FeedbackReceived, event.Type)
	assert.Equal(t, "fr-1", event.FreelancerID)
	assert.False(t, event.OccurredAt.IsZero())
}

func TestBusDropsWhenFull(t *testing.T) {
	bus := NewBus(1)
	defer bus.Close()

	require.True(t, bus.Publish(Event{Type: ProjectCompleted, FreelancerID: "fr-1"}))

	// Буфер полон: событие отбрасывается, публикация не блокирует
	assert.False(t, bus.Publish(Event{Type: ProjectCompleted, FreelancerID: "fr-2"}))
}

func TestBusRejectsAfterClose(t *testing.T) {
	bus := NewBus(4)
	bus.Close()

	assert.False(t, bus.Publish(Event{Type: EngagementCompleted, FreelancerID: "fr-1"}))

	// Повторный Close безопасен
	bus.Close()

	_, open := <-bus.Events()
	assert.False(t, open)
}
