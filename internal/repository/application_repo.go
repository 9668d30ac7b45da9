package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/dealflowbot/backend/internal/model"
)

type applicationRepository struct {
	db *gorm.DB
}

func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) Create(app *model.Application) error {
	return r.db.Create(app).Error
}

func (r *applicationRepository) Get(id uint) (*model.Application, error) {
	var app model.Application
	err := r.db.First(&app, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepository) Save(app *model.Application) error {
	return r.db.Save(app).Error
}

func (r *applicationRepository) List() ([]model.Application, error) {
	var apps []model.Application
	err := r.db.Order("id").Find(&apps).Error
	return apps, err
}

func (r *applicationRepository) ListByStatus(status string) ([]model.Application, error) {
	var apps []model.Application
	err := r.db.Where("status = ?", status).Order("id").Find(&apps).Error
	return apps, err
}

func (r *applicationRepository) ListByAgent(agentID uint) ([]model.Application, error) {
	var apps []model.Application
	err := r.db.Where("agent_id = ?", agentID).Order("id").Find(&apps).Error
	return apps, err
}

// UpdateStatus performs a guarded read-mutate-write of the status column.
// The WHERE clause repeats the expected status so a row changed by a
// concurrent transition is never overwritten: exactly one of two racing
// transitions gets RowsAffected == 1, the other gets ErrStatusConflict.
func (r *applicationRepository) UpdateStatus(id uint, from, to string, mutate func(*model.Application)) (*model.Application, error) {
	var app model.Application
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&app, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if app.Status != from {
			return ErrStatusConflict
		}
		if mutate != nil {
			mutate(&app)
		}
		app.Status = to
		res := tx.Model(&model.Application{}).
			Where("id = ? AND status = ?", id, from).
			Select("*").Omit("id", "created_at").
			Updates(&app)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStatusConflict
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &app, nil
}
