package repository

import (
	"errors"

	"github.com/dealflowbot/backend/internal/model"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrStatusConflict is returned when a guarded status update finds
	// the application in a different status than expected.
	ErrStatusConflict = errors.New("application status changed concurrently")
)

type UserRepository interface {
	Create(user *model.User) error
	Get(id uint) (*model.User, error)
	GetByChatID(chatID string) (*model.User, error)
	Save(user *model.User) error
	ListByRole(role model.UserRole) ([]model.User, error)
	List() ([]model.User, error)
}

type ApplicationRepository interface {
	Create(app *model.Application) error
	Get(id uint) (*model.Application, error)
	Save(app *model.Application) error
	List() ([]model.Application, error)
	ListByStatus(status string) ([]model.Application, error)
	ListByAgent(agentID uint) ([]model.Application, error)
	// UpdateStatus moves an application from one status to another inside
	// a single transaction. mutate is applied to the loaded row before the
	// write. Returns ErrStatusConflict when the row is no longer in the
	// expected status, so concurrent transitions cannot both fire.
	UpdateStatus(id uint, from, to string, mutate func(*model.Application)) (*model.Application, error)
}

type AnswerRepository interface {
	Create(answer *model.QuestionnaireAnswer) error
	GetByApplication(appID uint) ([]model.QuestionnaireAnswer, error)
	CountByApplication(appID uint) (int64, error)
}

type DocumentRepository interface {
	Create(doc *model.Document) error
	Get(id uint) (*model.Document, error)
	Save(doc *model.Document) error
	GetByApplication(appID uint) ([]model.Document, error)
}

type TaskRepository interface {
	Create(task *model.Task) error
	Get(id uint) (*model.Task, error)
	Save(task *model.Task) error
	GetByApplication(appID uint) ([]model.Task, error)
	GetOpenByApplication(appID uint) ([]model.Task, error)
}
