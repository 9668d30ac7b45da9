package eventbus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishReachesSubscribers(t *testing.T) {
	bus := NewApplicationEventBus()

	var got []ApplicationEvent
	bus.Subscribe(AppEventApproved, func(ctx context.Context, event ApplicationEvent) error {
		got = append(got, event)
		return nil
	})

	err := bus.Publish(context.Background(), AppEventApproved, ApplicationEvent{
		Type:          AppEventApproved,
		ApplicationID: 42,
		AgentChatID:   "chat-agent",
	})
	assert.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, uint(42), got[0].ApplicationID)
}

func TestPublishIgnoresOtherEventTypes(t *testing.T) {
	bus := NewApplicationEventBus()

	called := false
	bus.Subscribe(AppEventClosed, func(ctx context.Context, event ApplicationEvent) error {
		called = true
		return nil
	})

	err := bus.Publish(context.Background(), AppEventCreated, ApplicationEvent{Type: AppEventCreated})
	assert.NoError(t, err)
	assert.False(t, called)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewApplicationEventBus()

	count := 0
	unsubscribe := bus.Subscribe(AppEventReturned, func(ctx context.Context, event ApplicationEvent) error {
		count++
		return nil
	})

	_ = bus.Publish(context.Background(), AppEventReturned, ApplicationEvent{})
	unsubscribe()
	_ = bus.Publish(context.Background(), AppEventReturned, ApplicationEvent{})

	assert.Equal(t, 1, count)
}

func TestPublishJoinsHandlerErrors(t *testing.T) {
	bus := NewApplicationEventBus()

	failure := errors.New("delivery failed")
	bus.Subscribe(AppEventTaskAssigned, func(ctx context.Context, event ApplicationEvent) error {
		return failure
	})
	bus.Subscribe(AppEventTaskAssigned, func(ctx context.Context, event ApplicationEvent) error {
		return nil
	})

	err := bus.Publish(context.Background(), AppEventTaskAssigned, ApplicationEvent{})
	assert.ErrorIs(t, err, failure)
}
