package service

import (
	"fmt"
	"strconv"
	"strings"

	"k8s.io/klog/v2"

	"github.com/dealflowbot/backend/internal/model"
	"github.com/dealflowbot/backend/internal/repository"
)

type QuestionKind int

const (
	QuestionClosed  QuestionKind = iota // answer must match one of Allowed exactly
	QuestionFree                        // any non-empty trimmed string
	QuestionIntPair                     // two integers separated by whitespace
)

type Question struct {
	Key     string
	Prompt  string
	Kind    QuestionKind
	Allowed []string
}

// Questions is the fixed ordered deal questionnaire. Keys are stable;
// prompts are what the agent sees in the chat.
var Questions = []Question{
	{Key: "q01", Prompt: "Собраны ли оригиналы всех паспортов? (да/нет)", Allowed: []string{"да", "нет"}},
	{Key: "q02", Prompt: "Есть ли свежая выписка ЕГРН? (есть/нет)", Allowed: []string{"есть", "нет"}},
	{Key: "q03", Prompt: "Есть обременения? (да/нет)", Allowed: []string{"да", "нет"}},
	{Key: "q04", Prompt: "Есть несовершеннолетние собственники? (да/нет)", Allowed: []string{"да", "нет"}},
	{Key: "q05", Prompt: "Есть ли доверенности? (да/нет)", Allowed: []string{"да", "нет"}},
	{Key: "q06", Prompt: "Согласие супруга(ги) требуется? (да/нет)", Allowed: []string{"да", "нет"}},
	{Key: "q07", Prompt: "Прописанные лица остаются? (да/нет)", Allowed: []string{"да", "нет"}},
	{Key: "q08", Prompt: "Маткапитал использовался? (да/нет)", Allowed: []string{"да", "нет"}},
	{Key: "q09", Prompt: "Ипотека участвует? (да/нет)", Allowed: []string{"да", "нет"}},
	{Key: "q10", Prompt: "Есть задолженности по коммуналке? (да/нет)", Allowed: []string{"да", "нет"}},
	{Key: "q11", Prompt: "Все листы договора подписаны? (да/нет)", Allowed: []string{"да", "нет"}},
	{Key: "q12", Prompt: "Согласованы даты протокола? (да/нет)", Allowed: []string{"да", "нет"}},
	{Key: "q13", Prompt: "Пакет по продавцу полный? (да/нет)", Allowed: []string{"да", "нет"}},
	{Key: "q14", Prompt: "Пакет по покупателю полный? (да/нет)", Allowed: []string{"да", "нет"}},
	{Key: "q15", Prompt: "Нотариус требуется? (да/нет)", Allowed: []string{"да", "нет"}},
	{Key: "q16", Prompt: "Есть дополнительные документы? (да/нет)", Allowed: []string{"да", "нет"}},
	{Key: "q17", Prompt: "Количество продавцов и покупателей (два числа через пробел):", Kind: QuestionIntPair},
}

// ValidationError marks recoverable input errors: the caller re-asks the
// same question instead of failing the flow.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

type QuestionnaireService struct {
	answers repository.AnswerRepository
}

func NewQuestionnaireService(answers repository.AnswerRepository) *QuestionnaireService {
	return &QuestionnaireService{answers: answers}
}

// Len returns the number of questions in the fixed list.
func (s *QuestionnaireService) Len() int {
	return len(Questions)
}

// Question returns the question at index, or nil when the questionnaire
// is exhausted (the caller advances to the document stage).
func (s *QuestionnaireService) Question(index int) *Question {
	if index < 0 || index >= len(Questions) {
		return nil
	}
	return &Questions[index]
}

// Record validates the raw input for the question at index and persists
// the answer. Nothing is written on validation failure, so the caller
// can safely re-prompt without advancing.
func (s *QuestionnaireService) Record(appID uint, index int, raw string) error {
	q := s.Question(index)
	if q == nil {
		return fmt.Errorf("questionnaire already completed")
	}

	// Normalize whitespace; matching for closed sets stays case-sensitive.
	value := strings.Join(strings.Fields(raw), " ")

	switch q.Kind {
	case QuestionClosed:
		ok := false
		for _, allowed := range q.Allowed {
			if value == allowed {
				ok = true
				break
			}
		}
		if !ok {
			return &ValidationError{Msg: fmt.Sprintf("Ответ должен быть одним из: %s", strings.Join(q.Allowed, "/"))}
		}
	case QuestionIntPair:
		parts := strings.Fields(value)
		if len(parts) != 2 {
			return &ValidationError{Msg: "Введите ровно два числа через пробел"}
		}
		for _, p := range parts {
			if _, err := strconv.Atoi(p); err != nil {
				return &ValidationError{Msg: fmt.Sprintf("«%s» не является числом", p)}
			}
		}
	default:
		if value == "" {
			return &ValidationError{Msg: "Ответ не может быть пустым"}
		}
	}

	answer := &model.QuestionnaireAnswer{
		ApplicationID: appID,
		QuestionKey:   q.Key,
		AnswerValue:   value,
	}
	if err := s.answers.Create(answer); err != nil {
		return fmt.Errorf("failed to save answer: %w", err)
	}
	klog.V(6).Infof("ответ записан: appID=%d, key=%s", appID, q.Key)
	return nil
}

// Answers returns all recorded rows for an application, oldest first.
func (s *QuestionnaireService) Answers(appID uint) ([]model.QuestionnaireAnswer, error) {
	return s.answers.GetByApplication(appID)
}
