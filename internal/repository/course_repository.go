package repository

import (
	"context"
	"course_player_backend/internal/model"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) Create(ctx context.Context, course *model.Course) error {
	return r.DB.WithContext(ctx).Create(course).Error
}

func (r *CourseRepository) FindByID(ctx context.Context, id string) (*model.Course, error) {
	var course model.Course
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&course).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) List(ctx context.Context, activeOnly bool) ([]model.Course, error) {
	var courses []model.Course
	db := r.DB.WithContext(ctx).Order("created_at ASC")
	if activeOnly {
		db = db.Where("active = ?", true)
	}
	err := db.Find(&courses).Error
	return courses, err
}

func (r *CourseRepository) Update(ctx context.Context, id string, patch map[string]interface{}) error {
	res := r.DB.WithContext(ctx).Model(&model.Course{}).Where("id = ?", id).Updates(patch)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.DB.WithContext(ctx).Model(&model.Course{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
	}
	return nil
}
