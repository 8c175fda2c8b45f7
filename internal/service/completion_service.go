package service

import (
	"context"
	"course_player_backend/internal/model"
	"course_player_backend/internal/util"
	"course_player_backend/pkg/logger"
	"course_player_backend/pkg/monitoring"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type CompletionStatus string

const (
	StatusClassCompleted  CompletionStatus = "class_completed"
	StatusModuleCompleted CompletionStatus = "module_completed"
	StatusCourseCompleted CompletionStatus = "course_completed"
)

// CompletionOutcome 一次完成上报的级联结果
type CompletionOutcome struct {
	Status          CompletionStatus `json:"status"`
	ClassCompleted  bool             `json:"classCompleted"`
	ModuleCompleted bool             `json:"moduleCompleted"`
	CourseCompleted bool             `json:"courseCompleted"`
	PointsAwarded   int              `json:"pointsAwarded"`
	RecordsCreated  int              `json:"recordsCreated"`
	Partial         bool             `json:"partial"`
	Error           string           `json:"error,omitempty"`
}

type rankingInvalidator interface {
	Invalidate(ctx context.Context)
}

type CompletionService struct {
	Completions CompletionStore
	Ranking     rankingInvalidator

	access *classAccess
	now    func() time.Time
}

func NewCompletionService(
	courses CourseStore,
	modules SiblingStore[model.Module],
	classes SiblingStore[model.Class],
	completions CompletionStore,
	ranking rankingInvalidator,
) *CompletionService {
	return &CompletionService{
		Completions: completions,
		Ranking:     ranking,
		access: &classAccess{
			Courses:     courses,
			Modules:     modules,
			Classes:     classes,
			Completions: completions,
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

// RecordClassCompletion 记录课时完成，并在其为模块最后一个课时时向上级联到模块和课程。
// 课时必须已发布且已解锁；课时这一层失败直接返回错误，模块/课程层失败只记录日志并在结果中标记 partial
func (s *CompletionService) RecordClassCompletion(ctx context.Context, who Identity, classID, moduleID string) (*CompletionOutcome, error) {
	path, err := s.access.resolve(ctx, who, classID)
	if err != nil {
		return nil, err
	}
	class, module := path.Class, path.Module
	if class.ModuleID != moduleID {
		return nil, util.ErrClassNotFound
	}

	at := s.now()
	outcome := &CompletionOutcome{Status: StatusClassCompleted}

	created, err := s.Completions.RecordClass(ctx, &model.ClassCompletion{
		ClassID:    class.ID,
		ModuleID:   module.ID,
		UserID:     who.UserID,
		FinishedAt: at,
	}, s.award(who, ClassCompletionPoints, at))
	if err != nil {
		return nil, fmt.Errorf("record class completion: %w", err)
	}
	outcome.ClassCompleted = true
	s.credit(outcome, model.TierClass, created, ClassCompletionPoints)

	defer func() {
		if outcome.RecordsCreated > 0 && s.Ranking != nil {
			s.Ranking.Invalidate(ctx)
		}
	}()

	if !IsLastActive(path.Classes, class.ID) {
		return outcome, nil
	}

	created, err = s.Completions.RecordModule(ctx, &model.ModuleCompletion{
		ModuleID:   module.ID,
		CourseID:   module.CourseID,
		UserID:     who.UserID,
		FinishedAt: at,
	}, s.award(who, ModuleCompletionPoints, at))
	if err != nil {
		s.fail(outcome, who, class, "record module completion", err)
		return outcome, nil
	}
	outcome.ModuleCompleted = true
	outcome.Status = StatusModuleCompleted
	s.credit(outcome, model.TierModule, created, ModuleCompletionPoints)

	if !IsLastActive(path.Modules, module.ID) {
		return outcome, nil
	}

	created, err = s.Completions.RecordCourse(ctx, &model.CourseCompletion{
		CourseID:   module.CourseID,
		UserID:     who.UserID,
		FinishedAt: at,
	}, s.award(who, CourseCompletionPoints, at))
	if err != nil {
		s.fail(outcome, who, class, "record course completion", err)
		return outcome, nil
	}
	outcome.CourseCompleted = true
	outcome.Status = StatusCourseCompleted
	s.credit(outcome, model.TierCourse, created, CourseCompletionPoints)

	return outcome, nil
}

func (s *CompletionService) award(who Identity, points int, at time.Time) model.PointsAward {
	return model.PointsAward{
		UserID:   who.UserID,
		Username: who.DisplayName(),
		Points:   points,
		At:       at,
	}
}

// credit 重复上报不会新建记录，也不加分
func (s *CompletionService) credit(outcome *CompletionOutcome, tier model.CompletionTier, created bool, points int) {
	if !created {
		return
	}
	outcome.RecordsCreated++
	outcome.PointsAwarded += points
	monitoring.CompletionCounter.WithLabelValues(string(tier)).Inc()
	monitoring.PointsAwarded.Add(float64(points))
}

func (s *CompletionService) fail(outcome *CompletionOutcome, who Identity, class *model.Class, stage string, err error) {
	outcome.Partial = true
	outcome.Error = fmt.Sprintf("%s: %v", stage, err)
	monitoring.PartialPropagations.Inc()
	logger.Log.Error("Completion propagation incomplete",
		zap.String("stage", stage),
		zap.String("userID", who.UserID),
		zap.String("classID", class.ID),
		zap.String("moduleID", class.ModuleID),
		zap.Error(err))
}
