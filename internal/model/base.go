package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UUIDBase 课程层级实体的公共字段，主键为 uuid 字符串
type UUIDBase struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (b *UUIDBase) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return
}

func (b UUIDBase) SiblingID() string {
	return b.ID
}

// All 返回需要自动迁移的全部模型
func All() []interface{} {
	return []interface{}{
		&User{},
		&Course{},
		&Module{},
		&Class{},
		&Step{},
		&ClassCompletion{},
		&ModuleCompletion{},
		&CourseCompletion{},
		&Enrollment{},
		&UserPoints{},
	}
}
