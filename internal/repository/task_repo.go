package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/dealflowbot/backend/internal/model"
)

type taskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) Create(task *model.Task) error {
	return r.db.Create(task).Error
}

func (r *taskRepository) Get(id uint) (*model.Task, error) {
	var task model.Task
	err := r.db.First(&task, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) Save(task *model.Task) error {
	return r.db.Save(task).Error
}

func (r *taskRepository) GetByApplication(appID uint) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.Where("application_id = ?", appID).Order("id").Find(&tasks).Error
	return tasks, err
}

func (r *taskRepository) GetOpenByApplication(appID uint) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.Where("application_id = ? AND status = ?", appID, model.TaskStatusOpen).
		Order("id").Find(&tasks).Error
	return tasks, err
}
