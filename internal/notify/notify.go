package notify

import (
	"context"
	"fmt"

	"k8s.io/klog/v2"

	"github.com/dealflowbot/backend/internal/chat"
)

// Service sends status-change notifications to the affected chats.
// Delivery is best effort: a failed or unaddressable notification is
// logged and never fails the business operation that triggered it.
type Service struct {
	sender chat.Sender
}

func NewService(sender chat.Sender) *Service {
	return &Service{sender: sender}
}

func (s *Service) ApplicationCreated(ctx context.Context, ropChatID string, appID uint, agentName string) bool {
	return s.deliver(ctx, ropChatID,
		fmt.Sprintf("📥 Новая заявка #%d от агента %s. Проверить: /rop", appID, agentName))
}

func (s *Service) ApplicationApproved(ctx context.Context, agentChatID string, appID uint) bool {
	return s.deliver(ctx, agentChatID,
		fmt.Sprintf("✅ Заявка #%d одобрена РОПом и передана юристу.", appID))
}

func (s *Service) ApplicationReturned(ctx context.Context, agentChatID string, appID uint, comment string) bool {
	return s.deliver(ctx, agentChatID,
		fmt.Sprintf("↩️ Заявка #%d возвращена РОПом.\nКомментарий: %s\nИсправить: /my", appID, comment))
}

func (s *Service) TaskAssigned(ctx context.Context, agentChatID string, appID uint, taskText string) bool {
	return s.deliver(ctx, agentChatID,
		fmt.Sprintf("📌 Юрист поставил задачу по заявке #%d:\n%s\nВыполнить: /my", appID, taskText))
}

func (s *Service) TasksCompleted(ctx context.Context, lawyerChatID string, appID uint, agentName string) bool {
	return s.deliver(ctx, lawyerChatID,
		fmt.Sprintf("📤 Агент %s выполнил задачи по заявке #%d. Проверить: /lawyer", agentName, appID))
}

func (s *Service) ApplicationClosed(ctx context.Context, agentChatID string, appID uint) bool {
	return s.deliver(ctx, agentChatID,
		fmt.Sprintf("🏁 Сделка по заявке #%d закрыта юристом.", appID))
}

func (s *Service) deliver(ctx context.Context, chatID, text string) bool {
	if chatID == "" {
		klog.V(6).Infof("уведомление пропущено: адресат не определён")
		return false
	}
	if err := s.sender.Send(ctx, chatID, text, nil); err != nil {
		klog.Errorf("не удалось отправить уведомление: chatID=%s, error=%v", chatID, err)
		return false
	}
	return true
}
