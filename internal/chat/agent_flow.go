package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"k8s.io/klog/v2"

	"github.com/dealflowbot/backend/internal/model"
	"github.com/dealflowbot/backend/internal/service"
)

// protocolDateLayout is the fixed calendar format for the protocol date.
const protocolDateLayout = "02.01.2006"

// skipToken maps an optional field to empty when entered alone.
const skipToken = "-"

func (r *Router) handleRegistrationInput(ctx context.Context, chatID string, flow *RegistrationFlow, text string) {
	switch flow.Step {
	case RegStepFullName:
		if text == "" {
			r.send(ctx, chatID, "Пожалуйста, введите корректное ФИО:", nil)
			return
		}
		flow.FullName = text
		flow.Step = RegStepDepartment
		r.send(ctx, chatID, "Укажите номер отдела (можно пропустить, отправив '-' ):", nil)
	case RegStepDepartment:
		dep := text
		if dep == skipToken {
			dep = ""
		}
		user := &model.User{
			ChatID:       chatID,
			FullName:     flow.FullName,
			DepartmentNo: dep,
			Role:         model.RoleAgent,
			Active:       true,
			Approved:     false,
		}
		if err := r.users.Create(user); err != nil {
			klog.Errorf("не удалось зарегистрировать пользователя: chatID=%s, error=%v", chatID, err)
			r.send(ctx, chatID, "Произошла ошибка. Пожалуйста, попробуйте позже.", nil)
			return
		}
		r.sessions.Clear(chatID)
		r.send(ctx, chatID,
			"Готово! Вы зарегистрированы как 'агент'. Доступ откроется после подтверждения РОПом.", nil)
	}
}

func (r *Router) handleCreationInput(ctx context.Context, user *model.User, flow *CreationFlow, upd Update) {
	chatID := upd.ChatID
	text := strings.TrimSpace(upd.Text)

	switch flow.Step {
	case CreateStepDealType:
		if text == "" {
			r.send(ctx, chatID, "Поле не может быть пустым. Тип сделки:", nil)
			return
		}
		flow.Draft.DealType = text
		flow.Step = CreateStepContractNo
		r.send(ctx, chatID, "Номер договора (или '-' чтобы пропустить):", nil)
	case CreateStepContractNo:
		if text == skipToken {
			flow.Draft.ContractNo = nil
		} else if text != "" {
			contractNo := text
			flow.Draft.ContractNo = &contractNo
		} else {
			r.send(ctx, chatID, "Введите номер договора или '-' чтобы пропустить:", nil)
			return
		}
		flow.Step = CreateStepProtocolDate
		r.send(ctx, chatID, "Дата подачи протокола (ДД.ММ.ГГГГ):", nil)
	case CreateStepProtocolDate:
		if _, err := time.Parse(protocolDateLayout, text); err != nil {
			r.send(ctx, chatID, "Неверный формат даты. Введите в формате ДД.ММ.ГГГГ:", nil)
			return
		}
		flow.Draft.ProtocolDate = text
		flow.Step = CreateStepAddress
		r.send(ctx, chatID, "Адрес объекта:", nil)
	case CreateStepAddress:
		if text == "" {
			r.send(ctx, chatID, "Поле не может быть пустым. Адрес объекта:", nil)
			return
		}
		flow.Draft.Address = text
		flow.Step = CreateStepObjectType
		r.send(ctx, chatID, "Тип объекта (квартира/комната/доля/ЗУ/дом/апартаменты и т.п.):", nil)
	case CreateStepObjectType:
		if text == "" {
			r.send(ctx, chatID, "Поле не может быть пустым. Тип объекта:", nil)
			return
		}
		flow.Draft.ObjectType = text
		flow.Step = CreateStepHeadName
		r.send(ctx, chatID, "ФИО руководителя:", nil)
	case CreateStepHeadName:
		if text == "" {
			r.send(ctx, chatID, "Поле не может быть пустым. ФИО руководителя:", nil)
			return
		}
		flow.Draft.HeadName = text
		flow.Step = CreateStepAgentName
		r.send(ctx, chatID, "ФИО сотрудника (ваше ФИО):", nil)
	case CreateStepAgentName:
		if text == "" {
			r.send(ctx, chatID, "Поле не может быть пустым. ФИО сотрудника:", nil)
			return
		}
		flow.Draft.AgentName = text
		app, err := r.apps.Create(ctx, user, flow.Draft)
		if err != nil {
			klog.Errorf("не удалось создать заявку: chatID=%s, error=%v", chatID, err)
			r.sessions.Clear(chatID)
			r.send(ctx, chatID, "Произошла ошибка. Пожалуйста, попробуйте позже.", nil)
			return
		}
		flow.ApplicationID = app.ID
		flow.Step = CreateStepQuestionnaire
		flow.QuestionIndex = 0
		r.askNextQuestion(ctx, chatID, flow)
	case CreateStepQuestionnaire:
		r.recordAnswer(ctx, chatID, flow, text)
	case CreateStepAwaitFile:
		if upd.File == nil {
			r.send(ctx, chatID, "Отправьте файл документом или фото.", nil)
			return
		}
		r.acceptIncomingFile(ctx, chatID, flow.ApplicationID, flow.CurrentDocType, upd.File)
	default:
		r.send(ctx, chatID, "Выберите тип документа:", docTypeKeyboard())
	}
}

func (r *Router) askNextQuestion(ctx context.Context, chatID string, flow *CreationFlow) {
	q := r.questionnaire.Question(flow.QuestionIndex)
	if q == nil {
		flow.Step = CreateStepChooseDocType
		r.send(ctx, chatID, "Анкета завершена. Теперь загрузите документы. Выберите тип:", docTypeKeyboard())
		return
	}
	r.send(ctx, chatID, fmt.Sprintf("%d/%d. %s", flow.QuestionIndex+1, r.questionnaire.Len(), q.Prompt), nil)
}

// recordAnswer persists the answer and advances; validation failures
// re-ask the same question without advancing.
func (r *Router) recordAnswer(ctx context.Context, chatID string, flow *CreationFlow, text string) {
	err := r.questionnaire.Record(flow.ApplicationID, flow.QuestionIndex, text)
	if err != nil {
		var validationErr *service.ValidationError
		if errors.As(err, &validationErr) {
			q := r.questionnaire.Question(flow.QuestionIndex)
			r.send(ctx, chatID, validationErr.Msg+"\n"+q.Prompt, nil)
			return
		}
		klog.Errorf("не удалось записать ответ: appID=%d, error=%v", flow.ApplicationID, err)
		r.send(ctx, chatID, "Произошла ошибка. Пожалуйста, попробуйте позже.", nil)
		return
	}
	flow.QuestionIndex++
	r.askNextQuestion(ctx, chatID, flow)
}

// handleDocCallback serves the document-type keyboard for both the
// creation flow and the standalone upload flow.
func (r *Router) handleDocCallback(ctx context.Context, user *model.User, chatID, data string) {
	sess := r.sessions.Get(chatID)
	if sess == nil {
		r.send(ctx, chatID, "Нет активной загрузки. Наберите /my", nil)
		return
	}

	switch flow := sess.Flow.(type) {
	case *CreationFlow:
		if data == "doc_done" {
			if _, err := r.intake.Finish(ctx, flow.ApplicationID); err != nil {
				r.send(ctx, chatID, r.userMessage(err), nil)
			}
			r.sessions.Clear(chatID)
			r.send(ctx, chatID, "Загрузка завершена ✅. Заявка готова для проверки РОПом.", nil)
			return
		}
		flow.CurrentDocType = strings.TrimPrefix(data, "doc_")
		flow.Step = CreateStepAwaitFile
		r.send(ctx, chatID, fmt.Sprintf("Отправьте файл для типа: %s (документ или фото)",
			strings.ToUpper(flow.CurrentDocType)), nil)
	case *UploadFlow:
		if data == "doc_done" {
			if _, err := r.intake.Finish(ctx, flow.ApplicationID); err != nil {
				r.send(ctx, chatID, r.userMessage(err), nil)
			}
			r.sessions.Clear(chatID)
			r.send(ctx, chatID, "Загрузка завершена ✅.", nil)
			return
		}
		flow.CurrentDocType = strings.TrimPrefix(data, "doc_")
		flow.AwaitingFile = true
		r.send(ctx, chatID, fmt.Sprintf("Отправьте файл для типа: %s (документ или фото)",
			strings.ToUpper(flow.CurrentDocType)), nil)
	default:
		r.send(ctx, chatID, "Нет активной загрузки. Наберите /my", nil)
	}
}

func (r *Router) handleUploadInput(ctx context.Context, user *model.User, flow *UploadFlow, upd Update) {
	if !flow.AwaitingFile || upd.File == nil {
		r.send(ctx, upd.ChatID, "Выберите тип документа:", docTypeKeyboard())
		return
	}
	r.acceptIncomingFile(ctx, upd.ChatID, flow.ApplicationID, flow.CurrentDocType, upd.File)
}

func (r *Router) acceptIncomingFile(ctx context.Context, chatID string, appID uint, docType string, file *IncomingFile) {
	if docType == "" {
		docType = "other"
	}
	doc, err := r.intake.AcceptFile(ctx, appID, docType, file.Data, file.Name)
	if err != nil {
		r.sessions.Clear(chatID)
		r.send(ctx, chatID, r.userMessage(err), nil)
		return
	}
	r.send(ctx, chatID,
		fmt.Sprintf("Файл сохранён: %s. Тип: %s. Ещё выбрать тип:", doc.FileName, strings.ToUpper(docType)),
		docTypeKeyboard())
}

func (r *Router) listAgentApplications(ctx context.Context, user *model.User, chatID string) {
	apps, err := r.apps.ListByAgent(user.ID)
	if err != nil {
		klog.Errorf("не удалось получить заявки агента: chatID=%s, error=%v", chatID, err)
		r.send(ctx, chatID, "Произошла ошибка. Пожалуйста, попробуйте позже.", nil)
		return
	}
	if len(apps) == 0 {
		r.send(ctx, chatID, "У вас нет заявок. Создать: /new", nil)
		return
	}
	for i := range apps {
		app := &apps[i]
		text := fmt.Sprintf("Заявка #%d\nТип: %s\nАдрес: %s\nСтатус: %s", app.ID, app.DealType, app.Address, app.Status)
		r.send(ctx, chatID, text, agentAppKeyboard(app))
	}
}

func (r *Router) handleEditCallback(ctx context.Context, user *model.User, chatID, data string) {
	sess := r.sessions.Get(chatID)
	if sess == nil {
		r.send(ctx, chatID, "Нет активного редактирования. Наберите /my", nil)
		return
	}
	flow, ok := sess.Flow.(*EditFlow)
	if !ok {
		r.send(ctx, chatID, "Нет активного редактирования. Наберите /my", nil)
		return
	}

	switch {
	case strings.HasPrefix(data, "field_"):
		flow.Field = strings.TrimPrefix(data, "field_")
		flow.Step = EditStepEnterValue
		r.send(ctx, chatID, "Введите новое значение:", nil)
	case data == "edit_save":
		if _, err := r.apps.Resubmit(ctx, user, flow.ApplicationID, flow.Edits); err != nil {
			r.sessions.Clear(chatID)
			r.send(ctx, chatID, r.userMessage(err), nil)
			return
		}
		r.sessions.Clear(chatID)
		r.send(ctx, chatID, "✅ Заявка отправлена на повторную проверку.", nil)
	case data == "edit_more":
		flow.Step = EditStepSelectField
		r.send(ctx, chatID, "Какое поле исправить?", editFieldKeyboard())
	case data == "edit_cancel":
		r.sessions.Clear(chatID)
		r.send(ctx, chatID, "Правки отменены.", nil)
	}
}

func (r *Router) handleEditInput(ctx context.Context, chatID string, flow *EditFlow, text string) {
	if flow.Step != EditStepEnterValue {
		r.send(ctx, chatID, "Какое поле исправить?", editFieldKeyboard())
		return
	}
	value := strings.TrimSpace(text)
	if flow.Field == "protocol_date" {
		if _, err := time.Parse(protocolDateLayout, value); err != nil {
			r.send(ctx, chatID, "Неверный формат даты. Введите в формате ДД.ММ.ГГГГ:", nil)
			return
		}
	}
	if value == skipToken {
		value = ""
	}
	if value == "" && flow.Field != "contract_no" {
		r.send(ctx, chatID, "Поле не может быть пустым. Введите новое значение:", nil)
		return
	}
	flow.Edits[flow.Field] = value
	flow.Step = EditStepDecide
	r.send(ctx, chatID, "Сохранить изменения?", editDecideKeyboard())
}

func (r *Router) handleTaskDone(ctx context.Context, user *model.User, chatID string, appID uint) {
	if _, err := r.apps.CompleteTasks(ctx, user, appID); err != nil {
		r.send(ctx, chatID, r.userMessage(err), nil)
		return
	}
	r.send(ctx, chatID, "✅ Документы переданы юристу на проверку.", nil)
}
