package service

import (
	"context"
	"course_player_backend/internal/model"
	"course_player_backend/internal/util"
	"time"
)

// 服务层依赖的持久化接口，由 repository 包中的 gorm 实现满足

type SiblingStore[T any] interface {
	Create(ctx context.Context, item *T) error
	FindByID(ctx context.Context, id string) (*T, error)
	ListByParent(ctx context.Context, parentID string) ([]T, error)
	Update(ctx context.Context, id string, patch map[string]interface{}) error
	BatchUpdateOrder(ctx context.Context, updates []model.OrderUpdate) error
}

type CourseStore interface {
	Create(ctx context.Context, course *model.Course) error
	FindByID(ctx context.Context, id string) (*model.Course, error)
	List(ctx context.Context, activeOnly bool) ([]model.Course, error)
	Update(ctx context.Context, id string, patch map[string]interface{}) error
}

type CompletionStore interface {
	RecordClass(ctx context.Context, rec *model.ClassCompletion, award model.PointsAward) (bool, error)
	RecordModule(ctx context.Context, rec *model.ModuleCompletion, award model.PointsAward) (bool, error)
	RecordCourse(ctx context.Context, rec *model.CourseCompletion, award model.PointsAward) (bool, error)
	CompletedClassIDs(ctx context.Context, userID string, classIDs []string) (map[string]bool, error)
	CompletedModuleIDs(ctx context.Context, userID string, moduleIDs []string) (map[string]bool, error)
	CompletedCourseIDs(ctx context.Context, userID string, courseIDs []string) (map[string]bool, error)
	CountsSince(ctx context.Context, since time.Time) ([]model.CompletionCount, error)
}

type PointsStore interface {
	Increment(ctx context.Context, userID, username string, delta int, at time.Time) error
	FindByUser(ctx context.Context, userID string) (*model.UserPoints, error)
	Top(ctx context.Context, limit int) ([]model.UserPoints, error)
	CountGreater(ctx context.Context, points int) (int64, error)
	ListByUsers(ctx context.Context, userIDs []string) ([]model.UserPoints, error)
	UpdateUsername(ctx context.Context, userID, username string) error
}

type EnrollmentStore interface {
	Create(ctx context.Context, e *model.Enrollment) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]model.Enrollment, error)
}

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// LeaderboardCache 排行榜结果缓存，可为空
type LeaderboardCache interface {
	Get(ctx context.Context, period string, limit int, dest interface{}) (bool, error)
	Set(ctx context.Context, period string, limit int, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

// Identity 当前登录用户
type Identity struct {
	UserID string
	Name   string
	Role   model.UserRole
}

func (i Identity) DisplayName() string {
	if i.Name == "" {
		return util.DefaultUsername
	}
	return i.Name
}
