package repository

import (
	"context"
	"course_player_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PointsRepository struct {
	DB *gorm.DB
}

func NewPointsRepository(db *gorm.DB) *PointsRepository {
	return &PointsRepository{DB: db}
}

// incrementPoints 以 upsert + 服务端自增写入积分，避免先读后写丢失并发更新
func incrementPoints(tx *gorm.DB, userID, username string, delta int, at time.Time) error {
	row := model.UserPoints{
		UserID:      userID,
		Username:    username,
		Points:      delta,
		LastUpdated: at,
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"points":       gorm.Expr("user_points.points + ?", delta),
			"username":     username,
			"last_updated": at,
		}),
	}).Create(&row).Error
}

func (r *PointsRepository) Increment(ctx context.Context, userID, username string, delta int, at time.Time) error {
	return incrementPoints(r.DB.WithContext(ctx), userID, username, delta, at)
}

func (r *PointsRepository) FindByUser(ctx context.Context, userID string) (*model.UserPoints, error) {
	var p model.UserPoints
	if err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// Top 按累计积分降序，同分按 user_id 升序保证结果稳定
func (r *PointsRepository) Top(ctx context.Context, limit int) ([]model.UserPoints, error) {
	var list []model.UserPoints
	err := r.DB.WithContext(ctx).
		Where("points > 0").
		Order("points DESC").
		Order("user_id ASC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

func (r *PointsRepository) CountGreater(ctx context.Context, points int) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.UserPoints{}).Where("points > ?", points).Count(&count).Error
	return count, err
}

func (r *PointsRepository) ListByUsers(ctx context.Context, userIDs []string) ([]model.UserPoints, error) {
	var list []model.UserPoints
	if len(userIDs) == 0 {
		return list, nil
	}
	err := r.DB.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&list).Error
	return list, err
}

func (r *PointsRepository) UpdateUsername(ctx context.Context, userID, username string) error {
	return r.DB.WithContext(ctx).
		Model(&model.UserPoints{}).
		Where("user_id = ?", userID).
		Update("username", username).Error
}
