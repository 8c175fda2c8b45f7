package repository

import (
	"context"
	"course_player_backend/internal/model"

	"gorm.io/gorm"
)

// SiblingRepository 模块/课时/步骤共用的仓储，按父节点外键查询
type SiblingRepository[T any] struct {
	DB           *gorm.DB
	parentColumn string
}

func NewModuleRepository(db *gorm.DB) *SiblingRepository[model.Module] {
	return &SiblingRepository[model.Module]{DB: db, parentColumn: "course_id"}
}

func NewClassRepository(db *gorm.DB) *SiblingRepository[model.Class] {
	return &SiblingRepository[model.Class]{DB: db, parentColumn: "module_id"}
}

func NewStepRepository(db *gorm.DB) *SiblingRepository[model.Step] {
	return &SiblingRepository[model.Step]{DB: db, parentColumn: "class_id"}
}

func (r *SiblingRepository[T]) Create(ctx context.Context, item *T) error {
	return r.DB.WithContext(ctx).Create(item).Error
}

func (r *SiblingRepository[T]) FindByID(ctx context.Context, id string) (*T, error) {
	var item T
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListByParent 返回父节点下的全部子节点（含未发布），排序由调用方按数值处理
func (r *SiblingRepository[T]) ListByParent(ctx context.Context, parentID string) ([]T, error) {
	var items []T
	err := r.DB.WithContext(ctx).
		Where(r.parentColumn+" = ?", parentID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

func (r *SiblingRepository[T]) Update(ctx context.Context, id string, patch map[string]interface{}) error {
	res := r.DB.WithContext(ctx).Model(new(T)).Where("id = ?", id).Updates(patch)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.ensureExists(ctx, id)
	}
	return nil
}

// BatchUpdateOrder 在同一事务中写入全部排序，任一失败整体回滚
func (r *SiblingRepository[T]) BatchUpdateOrder(ctx context.Context, updates []model.OrderUpdate) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			res := tx.Model(new(T)).Where("id = ?", u.ID).Update("sort_order", u.Order)
			if res.Error != nil {
				return res.Error
			}
		}
		return nil
	})
}

func (r *SiblingRepository[T]) ensureExists(ctx context.Context, id string) error {
	var count int64
	if err := r.DB.WithContext(ctx).Model(new(T)).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
