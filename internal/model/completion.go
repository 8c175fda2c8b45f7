package model

import "time"

// ClassCompletion 用户完成课时的记录，(user_id, class_id) 唯一
type ClassCompletion struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ClassID    string    `gorm:"type:varchar(36);not null;uniqueIndex:uk_class_completion_user" json:"classId"`
	UserID     string    `gorm:"type:varchar(36);not null;uniqueIndex:uk_class_completion_user;index" json:"userId"`
	ModuleID   string    `gorm:"type:varchar(36);not null;index" json:"moduleId"`
	FinishedAt time.Time `gorm:"not null;index" json:"finishedAt"`
}

func (ClassCompletion) TableName() string {
	return "class_completions"
}

type ModuleCompletion struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ModuleID   string    `gorm:"type:varchar(36);not null;uniqueIndex:uk_module_completion_user" json:"moduleId"`
	UserID     string    `gorm:"type:varchar(36);not null;uniqueIndex:uk_module_completion_user;index" json:"userId"`
	CourseID   string    `gorm:"type:varchar(36);not null;index" json:"courseId"`
	FinishedAt time.Time `gorm:"not null;index" json:"finishedAt"`
}

func (ModuleCompletion) TableName() string {
	return "module_completions"
}

type CourseCompletion struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CourseID   string    `gorm:"type:varchar(36);not null;uniqueIndex:uk_course_completion_user" json:"courseId"`
	UserID     string    `gorm:"type:varchar(36);not null;uniqueIndex:uk_course_completion_user;index" json:"userId"`
	FinishedAt time.Time `gorm:"not null;index" json:"finishedAt"`
}

func (CourseCompletion) TableName() string {
	return "course_completions"
}

type CompletionTier string

const (
	TierClass  CompletionTier = "class"
	TierModule CompletionTier = "module"
	TierCourse CompletionTier = "course"
)

// CompletionCount 某用户在某层级、某时间窗口内的完成次数
type CompletionCount struct {
	UserID string
	Tier   CompletionTier
	Count  int
}

// PointsAward 与完成记录同事务写入的积分
type PointsAward struct {
	UserID   string
	Username string
	Points   int
	At       time.Time
}
