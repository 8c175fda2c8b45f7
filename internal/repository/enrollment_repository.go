package repository

import (
	"context"
	"course_player_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EnrollmentRepository struct {
	DB *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: db}
}

// Create 重复报名不报错，返回是否新建
func (r *EnrollmentRepository) Create(ctx context.Context, e *model.Enrollment) (bool, error) {
	res := r.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(e)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *EnrollmentRepository) ListByUser(ctx context.Context, userID string) ([]model.Enrollment, error) {
	var list []model.Enrollment
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("enrolled_at ASC").
		Find(&list).Error
	return list, err
}
