package repository

import (
	"context"
	"course_player_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CompletionRepository struct {
	DB *gorm.DB
}

func NewCompletionRepository(db *gorm.DB) *CompletionRepository {
	return &CompletionRepository{DB: db}
}

// record 写入完成记录；仅当记录为新建时在同一事务内发放积分
func (r *CompletionRepository) record(ctx context.Context, rec interface{}, award model.PointsAward) (bool, error) {
	created := false
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(rec)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		created = true
		if award.Points == 0 {
			return nil
		}
		return incrementPoints(tx, award.UserID, award.Username, award.Points, award.At)
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

func (r *CompletionRepository) RecordClass(ctx context.Context, rec *model.ClassCompletion, award model.PointsAward) (bool, error) {
	return r.record(ctx, rec, award)
}

func (r *CompletionRepository) RecordModule(ctx context.Context, rec *model.ModuleCompletion, award model.PointsAward) (bool, error) {
	return r.record(ctx, rec, award)
}

func (r *CompletionRepository) RecordCourse(ctx context.Context, rec *model.CourseCompletion, award model.PointsAward) (bool, error) {
	return r.record(ctx, rec, award)
}

func (r *CompletionRepository) completedIDs(ctx context.Context, table, column, userID string, ids []string) (map[string]bool, error) {
	done := make(map[string]bool)
	if len(ids) == 0 {
		return done, nil
	}

	var found []string
	err := r.DB.WithContext(ctx).
		Table(table).
		Where("user_id = ? AND "+column+" IN ?", userID, ids).
		Distinct().
		Pluck(column, &found).Error
	if err != nil {
		return nil, err
	}
	for _, id := range found {
		done[id] = true
	}
	return done, nil
}

func (r *CompletionRepository) CompletedClassIDs(ctx context.Context, userID string, classIDs []string) (map[string]bool, error) {
	return r.completedIDs(ctx, model.ClassCompletion{}.TableName(), "class_id", userID, classIDs)
}

func (r *CompletionRepository) CompletedModuleIDs(ctx context.Context, userID string, moduleIDs []string) (map[string]bool, error) {
	return r.completedIDs(ctx, model.ModuleCompletion{}.TableName(), "module_id", userID, moduleIDs)
}

func (r *CompletionRepository) CompletedCourseIDs(ctx context.Context, userID string, courseIDs []string) (map[string]bool, error) {
	return r.completedIDs(ctx, model.CourseCompletion{}.TableName(), "course_id", userID, courseIDs)
}

// CountsSince 统计 since 之后各用户在每个层级的完成次数
func (r *CompletionRepository) CountsSince(ctx context.Context, since time.Time) ([]model.CompletionCount, error) {
	tables := []struct {
		tier  model.CompletionTier
		table string
	}{
		{model.TierClass, model.ClassCompletion{}.TableName()},
		{model.TierModule, model.ModuleCompletion{}.TableName()},
		{model.TierCourse, model.CourseCompletion{}.TableName()},
	}

	var out []model.CompletionCount
	for _, t := range tables {
		var rows []struct {
			UserID string
			Total  int
		}
		err := r.DB.WithContext(ctx).
			Table(t.table).
			Select("user_id, COUNT(*) AS total").
			Where("finished_at >= ?", since).
			Group("user_id").
			Scan(&rows).Error
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			out = append(out, model.CompletionCount{UserID: row.UserID, Tier: t.tier, Count: row.Total})
		}
	}
	return out, nil
}
