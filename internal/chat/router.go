package chat

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"k8s.io/klog/v2"

	"github.com/dealflowbot/backend/internal/model"
	"github.com/dealflowbot/backend/internal/repository"
	"github.com/dealflowbot/backend/internal/service"
	"github.com/dealflowbot/backend/internal/service/statemachine"
)

// Router dispatches inbound chat updates to flows and role handlers. One
// update is handled to completion before the next one for the same chat;
// different chats are independent.
type Router struct {
	users         repository.UserRepository
	sessions      *SessionManager
	sender        Sender
	apps          *service.ApplicationService
	questionnaire *service.QuestionnaireService
	intake        *service.IntakeService
}

func NewRouter(
	users repository.UserRepository,
	sessions *SessionManager,
	sender Sender,
	apps *service.ApplicationService,
	questionnaire *service.QuestionnaireService,
	intake *service.IntakeService,
) *Router {
	return &Router{
		users:         users,
		sessions:      sessions,
		sender:        sender,
		apps:          apps,
		questionnaire: questionnaire,
		intake:        intake,
	}
}

func (r *Router) HandleUpdate(ctx context.Context, upd Update) {
	chatID := upd.ChatID
	if chatID == "" {
		return
	}
	// The webhook serves chats concurrently; flow state is only safe when
	// each chat's updates run one at a time.
	unlock := r.sessions.LockChat(chatID)
	defer unlock()

	text := strings.TrimSpace(upd.Text)
	user := r.resolveUser(chatID)

	// Access guard: registration is the only thing an unknown user can
	// do, and an unapproved user can do nothing at all.
	if user == nil {
		if text == "/start" {
			r.sessions.Start(chatID, &RegistrationFlow{Step: RegStepFullName})
			r.send(ctx, chatID, "Привет! Введите ваше ФИО для регистрации:", nil)
			return
		}
		if sess := r.sessions.Get(chatID); sess != nil {
			if flow, ok := sess.Flow.(*RegistrationFlow); ok && text != "" {
				r.handleRegistrationInput(ctx, chatID, flow, text)
				return
			}
		}
		r.send(ctx, chatID, "Вы не зарегистрированы. Наберите /start", nil)
		return
	}
	if !user.Active || !user.Approved {
		r.send(ctx, chatID, "Доступ ограничен. Обратитесь к РОПу для подтверждения регистрации.", nil)
		return
	}

	// A fresh top-level command abandons any in-progress flow without
	// side effects on persisted data.
	if strings.HasPrefix(text, "/") {
		r.sessions.Clear(chatID)
		r.handleCommand(ctx, user, chatID, text)
		return
	}

	if upd.CallbackData != "" {
		r.handleCallback(ctx, user, chatID, upd.CallbackData)
		return
	}

	sess := r.sessions.Get(chatID)
	if sess == nil {
		r.send(ctx, chatID, "Неизвестная команда. Доступно: /new, /my, /me", nil)
		return
	}
	switch flow := sess.Flow.(type) {
	case *CreationFlow:
		r.handleCreationInput(ctx, user, flow, upd)
	case *EditFlow:
		r.handleEditInput(ctx, chatID, flow, text)
	case *UploadFlow:
		r.handleUploadInput(ctx, user, flow, upd)
	case *ReturnCommentFlow:
		r.handleReturnComment(ctx, user, chatID, flow, text)
	case *TaskTextFlow:
		r.handleTaskText(ctx, user, chatID, flow, text)
	default:
		r.sessions.Clear(chatID)
		r.send(ctx, chatID, "Неизвестная команда. Доступно: /new, /my, /me", nil)
	}
}

func (r *Router) handleCommand(ctx context.Context, user *model.User, chatID, text string) {
	switch text {
	case "/start":
		r.send(ctx, chatID, "Вы уже зарегистрированы. Доступны команды: /new, /my, /me", nil)
	case "/me":
		r.send(ctx, chatID,
			"ФИО: "+user.FullName+"\nОтдел: "+user.DepartmentNo+"\nРоль: "+string(user.Role), nil)
	case "/new":
		if !r.requireRole(ctx, user, chatID, model.RoleAgent) {
			return
		}
		r.sessions.Start(chatID, &CreationFlow{Step: CreateStepDealType})
		r.send(ctx, chatID, "Тип сделки (Покупка/Продажа/Альтернатива/Юр.услуги):", nil)
	case "/my":
		if !r.requireRole(ctx, user, chatID, model.RoleAgent) {
			return
		}
		r.listAgentApplications(ctx, user, chatID)
	case "/rop":
		if !r.requireRole(ctx, user, chatID, model.RoleRop) {
			return
		}
		r.listForRop(ctx, chatID)
	case "/lawyer":
		if !r.requireRole(ctx, user, chatID, model.RoleLawyer) {
			return
		}
		r.listForLawyer(ctx, chatID)
	default:
		r.send(ctx, chatID, "Неизвестная команда. Доступно: /new, /my, /me", nil)
	}
}

func (r *Router) handleCallback(ctx context.Context, user *model.User, chatID, data string) {
	switch {
	case data == "doc_done" || strings.HasPrefix(data, "doc_"):
		r.handleDocCallback(ctx, user, chatID, data)
	case strings.HasPrefix(data, "rop_approve_"):
		if !r.requireRole(ctx, user, chatID, model.RoleRop) {
			return
		}
		r.handleRopApprove(ctx, user, chatID, parseID(data, "rop_approve_"))
	case strings.HasPrefix(data, "rop_return_"):
		if !r.requireRole(ctx, user, chatID, model.RoleRop) {
			return
		}
		r.sessions.Start(chatID, &ReturnCommentFlow{ApplicationID: parseID(data, "rop_return_")})
		r.send(ctx, chatID, "Введите комментарий для возврата:", nil)
	case strings.HasPrefix(data, "lawyer_task_"):
		if !r.requireRole(ctx, user, chatID, model.RoleLawyer) {
			return
		}
		r.sessions.Start(chatID, &TaskTextFlow{ApplicationID: parseID(data, "lawyer_task_")})
		r.send(ctx, chatID, "Введите текст задачи агенту:", nil)
	case strings.HasPrefix(data, "lawyer_close_"):
		if !r.requireRole(ctx, user, chatID, model.RoleLawyer) {
			return
		}
		r.handleLawyerClose(ctx, user, chatID, parseID(data, "lawyer_close_"))
	case strings.HasPrefix(data, "edit_") && parseID(data, "edit_") > 0:
		if !r.requireRole(ctx, user, chatID, model.RoleAgent) {
			return
		}
		r.sessions.Start(chatID, &EditFlow{
			Step:          EditStepSelectField,
			ApplicationID: parseID(data, "edit_"),
			Edits:         make(map[string]string),
		})
		r.send(ctx, chatID, "Какое поле исправить?", editFieldKeyboard())
	case strings.HasPrefix(data, "upload_"):
		if !r.requireRole(ctx, user, chatID, model.RoleAgent) {
			return
		}
		r.sessions.Start(chatID, &UploadFlow{ApplicationID: parseID(data, "upload_")})
		r.send(ctx, chatID, "Выберите тип документа:", docTypeKeyboard())
	case strings.HasPrefix(data, "task_done_"):
		if !r.requireRole(ctx, user, chatID, model.RoleAgent) {
			return
		}
		r.handleTaskDone(ctx, user, chatID, parseID(data, "task_done_"))
	case strings.HasPrefix(data, "field_") || data == "edit_save" || data == "edit_more" || data == "edit_cancel":
		r.handleEditCallback(ctx, user, chatID, data)
	default:
		klog.V(6).Infof("неизвестный callback: chatID=%s, data=%s", chatID, data)
	}
}

func (r *Router) requireRole(ctx context.Context, user *model.User, chatID string, role model.UserRole) bool {
	if user.Role == role || user.Role == model.RoleAdmin {
		return true
	}
	klog.Warningf("доступ запрещён: chatID=%s, role=%s, required=%s", chatID, user.Role, role)
	r.send(ctx, chatID, "⛔ У вас нет доступа к этой команде.", nil)
	return false
}

func (r *Router) resolveUser(chatID string) *model.User {
	user, err := r.users.GetByChatID(chatID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			klog.Errorf("не удалось получить пользователя: chatID=%s, error=%v", chatID, err)
		}
		return nil
	}
	return user
}

func (r *Router) send(ctx context.Context, chatID, text string, keyboard Keyboard) {
	if err := r.sender.Send(ctx, chatID, text, keyboard); err != nil {
		klog.Errorf("не удалось отправить сообщение: chatID=%s, error=%v", chatID, err)
	}
}

// userMessage maps service errors to the short reason the user sees. The
// conversation always stays recoverable: a fresh top-level command
// escapes any state.
func (r *Router) userMessage(err error) string {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return "Заявка не найдена."
	case errors.Is(err, statemachine.ErrAlreadyClosed):
		return "Сделка уже закрыта, действия недоступны."
	case errors.Is(err, statemachine.ErrPermissionDenied):
		return "⛔ У вас нет доступа к этому действию."
	case errors.Is(err, repository.ErrStatusConflict):
		return "Статус заявки уже изменился, обновите список."
	}
	var transitionErr *statemachine.InvalidStateTransitionError
	if errors.As(err, &transitionErr) {
		return "Действие недоступно в текущем статусе заявки."
	}
	return "Произошла ошибка. Пожалуйста, попробуйте позже."
}

func parseID(data, prefix string) uint {
	id, err := strconv.ParseUint(strings.TrimPrefix(data, prefix), 10, 32)
	if err != nil {
		return 0
	}
	return uint(id)
}
