package repository

import (
	"gorm.io/gorm"

	"github.com/dealflowbot/backend/internal/model"
)

type answerRepository struct {
	db *gorm.DB
}

func NewAnswerRepository(db *gorm.DB) AnswerRepository {
	return &answerRepository{db: db}
}

func (r *answerRepository) Create(answer *model.QuestionnaireAnswer) error {
	return r.db.Create(answer).Error
}

func (r *answerRepository) GetByApplication(appID uint) ([]model.QuestionnaireAnswer, error) {
	var answers []model.QuestionnaireAnswer
	err := r.db.Where("application_id = ?", appID).Order("id").Find(&answers).Error
	return answers, err
}

func (r *answerRepository) CountByApplication(appID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.QuestionnaireAnswer{}).
		Where("application_id = ?", appID).Count(&count).Error
	return count, err
}
