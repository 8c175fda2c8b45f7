package service

import (
	"context"
	"course_player_backend/internal/model"
	"course_player_backend/internal/util"
	"fmt"
	"math"
	"time"
)

// LearnerService 学员端：报名、进度与解锁大纲
type LearnerService struct {
	Courses     CourseStore
	Modules     SiblingStore[model.Module]
	Classes     SiblingStore[model.Class]
	Enrollments EnrollmentStore
	Completions CompletionStore

	now func() time.Time
}

func NewLearnerService(
	courses CourseStore,
	modules SiblingStore[model.Module],
	classes SiblingStore[model.Class],
	enrollments EnrollmentStore,
	completions CompletionStore,
) *LearnerService {
	return &LearnerService{
		Courses:     courses,
		Modules:     modules,
		Classes:     classes,
		Enrollments: enrollments,
		Completions: completions,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

type CourseProgress struct {
	model.Course
	Progress  int  `json:"progress"`
	Completed bool `json:"completed"`
}

type OutlineItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Order       string `json:"order"`
	Available   bool   `json:"available"`
	Completed   bool   `json:"completed"`
	IsLast      bool   `json:"isLast"`
}

type CourseOutline struct {
	Course    model.Course  `json:"course"`
	Modules   []OutlineItem `json:"modules"`
	Completed bool          `json:"completed"`
}

type ModuleOutline struct {
	Module  model.Module  `json:"module"`
	Classes []OutlineItem `json:"classes"`
}

func (s *LearnerService) activeCourse(ctx context.Context, courseID string) (*model.Course, error) {
	course, err := s.Courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, notFound(err, util.ErrCourseNotFound)
	}
	if !course.Active {
		return nil, util.ErrCourseInactive
	}
	return course, nil
}

// Enroll 重复报名视为成功
func (s *LearnerService) Enroll(ctx context.Context, who Identity, courseID string) (*model.Course, error) {
	course, err := s.activeCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	_, err = s.Enrollments.Create(ctx, &model.Enrollment{
		UserID:     who.UserID,
		CourseID:   course.ID,
		EnrolledAt: s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("enroll: %w", err)
	}
	return course, nil
}

func (s *LearnerService) enrolledCourseIDs(ctx context.Context, userID string) (map[string]bool, error) {
	enrollments, err := s.Enrollments.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	ids := make(map[string]bool, len(enrollments))
	for _, e := range enrollments {
		ids[e.CourseID] = true
	}
	return ids, nil
}

// AvailableCourses 已发布且未报名的课程
func (s *LearnerService) AvailableCourses(ctx context.Context, who Identity) ([]model.Course, error) {
	enrolled, err := s.enrolledCourseIDs(ctx, who.UserID)
	if err != nil {
		return nil, err
	}
	courses, err := s.Courses.List(ctx, true)
	if err != nil {
		return nil, err
	}
	available := make([]model.Course, 0, len(courses))
	for _, c := range courses {
		if !enrolled[c.ID] {
			available = append(available, c)
		}
	}
	return available, nil
}

// OngoingCourses 已报名的已发布课程及完成百分比
func (s *LearnerService) OngoingCourses(ctx context.Context, who Identity) ([]CourseProgress, error) {
	enrolled, err := s.enrolledCourseIDs(ctx, who.UserID)
	if err != nil {
		return nil, err
	}
	courses, err := s.Courses.List(ctx, true)
	if err != nil {
		return nil, err
	}

	var courseIDs []string
	for _, c := range courses {
		if enrolled[c.ID] {
			courseIDs = append(courseIDs, c.ID)
		}
	}
	finished, err := s.Completions.CompletedCourseIDs(ctx, who.UserID, courseIDs)
	if err != nil {
		return nil, err
	}

	ongoing := make([]CourseProgress, 0, len(courseIDs))
	for _, c := range courses {
		if !enrolled[c.ID] {
			continue
		}
		progress, err := s.courseProgress(ctx, who.UserID, c.ID)
		if err != nil {
			return nil, err
		}
		ongoing = append(ongoing, CourseProgress{Course: c, Progress: progress, Completed: finished[c.ID]})
	}
	return ongoing, nil
}

func (s *LearnerService) courseProgress(ctx context.Context, userID, courseID string) (int, error) {
	modules, err := s.Modules.ListByParent(ctx, courseID)
	if err != nil {
		return 0, err
	}
	active := ActiveInOrder(modules)
	if len(active) == 0 {
		return 0, nil
	}
	done, err := s.Completions.CompletedModuleIDs(ctx, userID, siblingIDs(active))
	if err != nil {
		return 0, err
	}
	count := 0
	for _, m := range active {
		if done[m.ID] {
			count++
		}
	}
	return int(math.Round(100 * float64(count) / float64(len(active)))), nil
}

func (s *LearnerService) CourseOutline(ctx context.Context, who Identity, courseID string) (*CourseOutline, error) {
	course, err := s.activeCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	modules, err := s.Modules.ListByParent(ctx, courseID)
	if err != nil {
		return nil, err
	}
	active := ActiveInOrder(modules)
	done, err := s.Completions.CompletedModuleIDs(ctx, who.UserID, siblingIDs(active))
	if err != nil {
		return nil, err
	}
	finished, err := s.Completions.CompletedCourseIDs(ctx, who.UserID, []string{course.ID})
	if err != nil {
		return nil, err
	}

	items := make([]OutlineItem, 0, len(active))
	for i, m := range active {
		items = append(items, OutlineItem{
			ID:          m.ID,
			Name:        m.Name,
			Description: m.Description,
			Order:       m.Order,
			Available:   IsAvailable(active, i, done),
			Completed:   done[m.ID],
			IsLast:      i == len(active)-1,
		})
	}
	return &CourseOutline{Course: *course, Modules: items, Completed: finished[course.ID]}, nil
}

func (s *LearnerService) ModuleOutline(ctx context.Context, who Identity, moduleID string) (*ModuleOutline, error) {
	module, err := s.Modules.FindByID(ctx, moduleID)
	if err != nil {
		return nil, notFound(err, util.ErrModuleNotFound)
	}
	if !module.IsActive {
		return nil, util.ErrModuleNotFound
	}
	if _, err := s.activeCourse(ctx, module.CourseID); err != nil {
		return nil, err
	}

	classes, err := s.Classes.ListByParent(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	active := ActiveInOrder(classes)
	done, err := s.Completions.CompletedClassIDs(ctx, who.UserID, siblingIDs(active))
	if err != nil {
		return nil, err
	}

	items := make([]OutlineItem, 0, len(active))
	for i, c := range active {
		items = append(items, OutlineItem{
			ID:          c.ID,
			Name:        c.Name,
			Description: c.Description,
			Order:       c.Order,
			Available:   IsAvailable(active, i, done),
			Completed:   done[c.ID],
			IsLast:      i == len(active)-1,
		})
	}
	return &ModuleOutline{Module: *module, Classes: items}, nil
}

func siblingIDs[T model.Sibling[T]](items []T) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.SiblingID())
	}
	return ids
}
