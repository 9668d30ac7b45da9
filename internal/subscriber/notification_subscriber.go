package subscriber

import (
	"context"

	"github.com/dealflowbot/backend/internal/eventbus"
	"github.com/dealflowbot/backend/internal/notify"
)

// NotificationSubscriber bridges application lifecycle events to chat
// notifications.
type NotificationSubscriber struct {
	notifier *notify.Service
}

func NewNotificationSubscriber(notifier *notify.Service) *NotificationSubscriber {
	return &NotificationSubscriber{notifier: notifier}
}

// Register attaches the subscriber to the bus. Handlers never return an
// error: notification delivery must not fail the publishing operation.
func (s *NotificationSubscriber) Register(bus *eventbus.ApplicationEventBus) {
	bus.Subscribe(eventbus.AppEventCreated, s.onCreated)
	bus.Subscribe(eventbus.AppEventApproved, s.onApproved)
	bus.Subscribe(eventbus.AppEventReturned, s.onReturned)
	bus.Subscribe(eventbus.AppEventTaskAssigned, s.onTaskAssigned)
	bus.Subscribe(eventbus.AppEventTasksCompleted, s.onTasksCompleted)
	bus.Subscribe(eventbus.AppEventClosed, s.onClosed)
}

func (s *NotificationSubscriber) onCreated(ctx context.Context, event eventbus.ApplicationEvent) error {
	s.notifier.ApplicationCreated(ctx, event.RopChatID, event.ApplicationID, event.AgentName)
	return nil
}

func (s *NotificationSubscriber) onApproved(ctx context.Context, event eventbus.ApplicationEvent) error {
	s.notifier.ApplicationApproved(ctx, event.AgentChatID, event.ApplicationID)
	return nil
}

func (s *NotificationSubscriber) onReturned(ctx context.Context, event eventbus.ApplicationEvent) error {
	s.notifier.ApplicationReturned(ctx, event.AgentChatID, event.ApplicationID, event.Comment)
	return nil
}

func (s *NotificationSubscriber) onTaskAssigned(ctx context.Context, event eventbus.ApplicationEvent) error {
	s.notifier.TaskAssigned(ctx, event.AgentChatID, event.ApplicationID, event.TaskText)
	return nil
}

func (s *NotificationSubscriber) onTasksCompleted(ctx context.Context, event eventbus.ApplicationEvent) error {
	s.notifier.TasksCompleted(ctx, event.LawyerChatID, event.ApplicationID, event.AgentName)
	return nil
}

func (s *NotificationSubscriber) onClosed(ctx context.Context, event eventbus.ApplicationEvent) error {
	s.notifier.ApplicationClosed(ctx, event.AgentChatID, event.ApplicationID)
	return nil
}
