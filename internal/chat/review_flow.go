package chat

import (
	"context"
	"fmt"
	"strings"

	"k8s.io/klog/v2"

	"github.com/dealflowbot/backend/internal/model"
	"github.com/dealflowbot/backend/internal/service/statemachine"
)

func (r *Router) listForRop(ctx context.Context, chatID string) {
	apps, err := r.apps.ListByStatus(statemachine.StatusCreated)
	if err != nil {
		klog.Errorf("не удалось получить заявки для проверки: chatID=%s, error=%v", chatID, err)
		r.send(ctx, chatID, "Произошла ошибка. Пожалуйста, попробуйте позже.", nil)
		return
	}
	if len(apps) == 0 {
		r.send(ctx, chatID, "Нет заявок на проверку.", nil)
		return
	}
	for i := range apps {
		app := &apps[i]
		r.send(ctx, chatID, applicationCard(app), ropActionsKeyboard(app.ID))
	}
}

func (r *Router) handleRopApprove(ctx context.Context, user *model.User, chatID string, appID uint) {
	if _, err := r.apps.Approve(ctx, user, appID); err != nil {
		r.send(ctx, chatID, r.userMessage(err), nil)
		return
	}
	r.send(ctx, chatID, "✅ Заявка передана юристу.", nil)
}

func (r *Router) handleReturnComment(ctx context.Context, user *model.User, chatID string, flow *ReturnCommentFlow, text string) {
	if text == "" {
		r.send(ctx, chatID, "Комментарий не может быть пустым. Введите комментарий:", nil)
		return
	}
	if _, err := r.apps.Return(ctx, user, flow.ApplicationID, text); err != nil {
		r.sessions.Clear(chatID)
		r.send(ctx, chatID, r.userMessage(err), nil)
		return
	}
	r.sessions.Clear(chatID)
	r.send(ctx, chatID, "✅ Заявка возвращена агенту с комментарием.", nil)
}

func (r *Router) listForLawyer(ctx context.Context, chatID string) {
	apps, err := r.apps.ListByStatus(statemachine.StatusToLawyer)
	if err != nil {
		klog.Errorf("не удалось получить заявки юриста: chatID=%s, error=%v", chatID, err)
		r.send(ctx, chatID, "Произошла ошибка. Пожалуйста, попробуйте позже.", nil)
		return
	}
	if len(apps) == 0 {
		r.send(ctx, chatID, "Нет заявок в работе.", nil)
		return
	}
	for i := range apps {
		app := &apps[i]
		r.send(ctx, chatID, applicationCard(app), lawyerActionsKeyboard(app.ID))
	}
}

func (r *Router) handleTaskText(ctx context.Context, user *model.User, chatID string, flow *TaskTextFlow, text string) {
	if text == "" {
		r.send(ctx, chatID, "Текст задачи не может быть пустым. Введите текст:", nil)
		return
	}
	if _, err := r.apps.AssignTask(ctx, user, flow.ApplicationID, text); err != nil {
		r.sessions.Clear(chatID)
		r.send(ctx, chatID, r.userMessage(err), nil)
		return
	}
	r.sessions.Clear(chatID)
	r.send(ctx, chatID, "✅ Задача агенту сохранена.", nil)
}

func (r *Router) handleLawyerClose(ctx context.Context, user *model.User, chatID string, appID uint) {
	if _, err := r.apps.Close(ctx, user, appID); err != nil {
		r.send(ctx, chatID, r.userMessage(err), nil)
		return
	}
	r.send(ctx, chatID, "✅ Сделка закрыта.", nil)
}

// applicationCard renders the review summary shown to the team lead and
// the lawyer.
func applicationCard(app *model.Application) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Заявка #%d\n", app.ID)
	fmt.Fprintf(&b, "Тип сделки: %s\n", app.DealType)
	if app.ContractNo != nil {
		fmt.Fprintf(&b, "Номер договора: %s\n", *app.ContractNo)
	}
	fmt.Fprintf(&b, "Дата протокола: %s\n", app.ProtocolDate)
	fmt.Fprintf(&b, "Адрес: %s\n", app.Address)
	fmt.Fprintf(&b, "Тип объекта: %s\n", app.ObjectType)
	fmt.Fprintf(&b, "Руководитель: %s\n", app.HeadName)
	fmt.Fprintf(&b, "Сотрудник: %s\n", app.AgentName)
	if app.StoragePublicURL != "" {
		fmt.Fprintf(&b, "Документы: %s\n", app.StoragePublicURL)
	}
	fmt.Fprintf(&b, "Статус: %s", app.Status)
	return b.String()
}
