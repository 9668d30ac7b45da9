package chat

import (
	"fmt"

	"github.com/dealflowbot/backend/internal/model"
	"github.com/dealflowbot/backend/internal/service/statemachine"
)

func docTypeKeyboard() Keyboard {
	return Keyboard{
		{
			{Text: "Паспорт", Data: "doc_passport"},
			{Text: "ЕГРН", Data: "doc_egrn"},
			{Text: "Прочее", Data: "doc_other"},
		},
		{
			{Text: "Завершить загрузку", Data: "doc_done"},
		},
	}
}

func ropActionsKeyboard(appID uint) Keyboard {
	return Keyboard{
		{{Text: "Одобрить → Юристу", Data: fmt.Sprintf("rop_approve_%d", appID)}},
		{{Text: "Вернуть с комментарием", Data: fmt.Sprintf("rop_return_%d", appID)}},
	}
}

func lawyerActionsKeyboard(appID uint) Keyboard {
	return Keyboard{
		{{Text: "Поставить задачу", Data: fmt.Sprintf("lawyer_task_%d", appID)}},
		{{Text: "Закрыть сделку", Data: fmt.Sprintf("lawyer_close_%d", appID)}},
	}
}

// agentAppKeyboard offers the actions available to the owning agent for
// the application's current status.
func agentAppKeyboard(app *model.Application) Keyboard {
	switch statemachine.ApplicationStatus(app.Status) {
	case statemachine.StatusReturnedRop:
		return Keyboard{
			{{Text: "Исправить и отправить снова", Data: fmt.Sprintf("edit_%d", app.ID)}},
		}
	case statemachine.StatusLawyerTask:
		return Keyboard{
			{{Text: "Загрузить документы", Data: fmt.Sprintf("upload_%d", app.ID)}},
			{{Text: "Задача выполнена", Data: fmt.Sprintf("task_done_%d", app.ID)}},
		}
	}
	return nil
}

func editFieldKeyboard() Keyboard {
	return Keyboard{
		{
			{Text: "Тип сделки", Data: "field_deal_type"},
			{Text: "Номер договора", Data: "field_contract_no"},
		},
		{
			{Text: "Дата протокола", Data: "field_protocol_date"},
			{Text: "Адрес", Data: "field_address"},
		},
		{
			{Text: "Тип объекта", Data: "field_object_type"},
			{Text: "ФИО руководителя", Data: "field_head_name"},
		},
		{
			{Text: "Отмена", Data: "edit_cancel"},
		},
	}
}

func editDecideKeyboard() Keyboard {
	return Keyboard{
		{
			{Text: "Сохранить и отправить", Data: "edit_save"},
			{Text: "Продолжить правки", Data: "edit_more"},
		},
		{
			{Text: "Отмена", Data: "edit_cancel"},
		},
	}
}
