package service

import (
	"bytes"
	"context"
	"course_player_backend/internal/model"
	"course_player_backend/internal/util"
	"course_player_backend/pkg/logger"
	"course_player_backend/pkg/monitoring"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fileStore interface {
	Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, filename string) error
}

// CourseService 管理端的课程层级维护
type CourseService struct {
	Courses CourseStore
	Modules SiblingStore[model.Module]
	Classes SiblingStore[model.Class]
	Steps   SiblingStore[model.Step]
	Storage fileStore

	validate *validator.Validate
}

func NewCourseService(
	courses CourseStore,
	modules SiblingStore[model.Module],
	classes SiblingStore[model.Class],
	steps SiblingStore[model.Step],
	storage fileStore,
) *CourseService {
	return &CourseService{
		Courses:  courses,
		Modules:  modules,
		Classes:  classes,
		Steps:    steps,
		Storage:  storage,
		validate: validator.New(),
	}
}

type CourseRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Active      *bool  `json:"active"`
}

type CourseUpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Active      *bool   `json:"active"`
}

type SiblingRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	IsActive    *bool  `json:"isActive"`
}

type SiblingUpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"isActive"`
}

type StepRequest struct {
	Name     string          `json:"name" binding:"required"`
	Type     model.StepType  `json:"stepType" binding:"required"`
	IsActive *bool           `json:"isActive"`
	Payload  json.RawMessage `json:"payload"`
}

type StepUpdateRequest struct {
	Name     *string         `json:"name"`
	IsActive *bool           `json:"isActive"`
	Payload  json.RawMessage `json:"payload"`
}

type ReorderRequest struct {
	Sequence []string `json:"sequence" binding:"required"`
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

// nextOrder 新建实体排在现有最大 order 之后
func nextOrder[T model.Sibling[T]](items []T) string {
	highest := 0
	for _, item := range items {
		if n, ok := model.ParseOrder(item.OrderValue()); ok && n > highest {
			highest = n
		}
	}
	return model.FormatOrder(highest + 1)
}

// ---- 课程 ----

func (s *CourseService) CreateCourse(ctx context.Context, req CourseRequest) (*model.Course, error) {
	course := &model.Course{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Active:      boolOr(req.Active, true),
	}
	if err := s.Courses.Create(ctx, course); err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}
	return course, nil
}

func (s *CourseService) GetCourse(ctx context.Context, id string) (*model.Course, error) {
	course, err := s.Courses.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, util.ErrCourseNotFound)
	}
	return course, nil
}

func (s *CourseService) ListCourses(ctx context.Context) ([]model.Course, error) {
	return s.Courses.List(ctx, false)
}

func (s *CourseService) UpdateCourse(ctx context.Context, id string, req CourseUpdateRequest) (*model.Course, error) {
	patch := map[string]interface{}{}
	if req.Name != nil {
		patch["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		patch["description"] = *req.Description
	}
	if req.Active != nil {
		patch["active"] = *req.Active
	}
	if len(patch) > 0 {
		if err := s.Courses.Update(ctx, id, patch); err != nil {
			return nil, notFound(err, util.ErrCourseNotFound)
		}
	}
	return s.GetCourse(ctx, id)
}

// SetCourseActive 课程只做软下架
func (s *CourseService) SetCourseActive(ctx context.Context, id string, active bool) (*model.Course, error) {
	return s.UpdateCourse(ctx, id, CourseUpdateRequest{Active: &active})
}

func (s *CourseService) UploadCourseCover(ctx context.Context, id, filename string, reader io.Reader, size int64) (*model.Course, error) {
	if _, err := s.GetCourse(ctx, id); err != nil {
		return nil, err
	}
	if size > util.MaxCoverSize {
		return nil, fmt.Errorf("%w: cover exceeds %d bytes", util.ErrInvalidFile, util.MaxCoverSize)
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(reader, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	head = head[:n]
	mimeType, err := util.ValidateMimeType(bytes.NewReader(head), []string{util.MimeImage})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrInvalidFile, err)
	}

	object := fmt.Sprintf("covers/%s/%d%s", id, time.Now().Unix(), strings.ToLower(filepath.Ext(filename)))
	url, err := s.Storage.Upload(ctx, object, io.MultiReader(bytes.NewReader(head), reader), size, mimeType)
	if err != nil {
		return nil, fmt.Errorf("upload cover: %w", err)
	}

	if err := s.Courses.Update(ctx, id, map[string]interface{}{"cover_url": url}); err != nil {
		// 写库失败时删除刚上传的文件
		if delErr := s.Storage.Delete(ctx, object); delErr != nil {
			logger.Log.Warn("Failed to remove orphan cover", zap.String("object", object), zap.Error(delErr))
		}
		return nil, notFound(err, util.ErrCourseNotFound)
	}
	return s.GetCourse(ctx, id)
}

// ---- 模块 ----

func (s *CourseService) ListModules(ctx context.Context, courseID string) ([]model.Module, error) {
	if _, err := s.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	modules, err := s.Modules.ListByParent(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return SortByOrder(modules), nil
}

func (s *CourseService) CreateModule(ctx context.Context, courseID string, req SiblingRequest) (*model.Module, error) {
	siblings, err := s.ListModules(ctx, courseID)
	if err != nil {
		return nil, err
	}
	module := &model.Module{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Ordering:    model.Ordering{IsActive: boolOr(req.IsActive, true), Order: nextOrder(siblings)},
		CourseID:    courseID,
	}
	if err := s.Modules.Create(ctx, module); err != nil {
		return nil, fmt.Errorf("create module: %w", err)
	}
	return module, nil
}

func (s *CourseService) UpdateModule(ctx context.Context, id string, req SiblingUpdateRequest) (*model.Module, error) {
	if patch := siblingPatch(req); len(patch) > 0 {
		if err := s.Modules.Update(ctx, id, patch); err != nil {
			return nil, notFound(err, util.ErrModuleNotFound)
		}
	}
	module, err := s.Modules.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, util.ErrModuleNotFound)
	}
	return module, nil
}

func (s *CourseService) ReorderModules(ctx context.Context, courseID string, sequence []string) ([]model.Module, error) {
	current, err := s.ListModules(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return reorderLevel(ctx, "module", courseID, current, sequence, s.Modules)
}

// ---- 课时 ----

func (s *CourseService) ListClasses(ctx context.Context, moduleID string) ([]model.Class, error) {
	if _, err := s.Modules.FindByID(ctx, moduleID); err != nil {
		return nil, notFound(err, util.ErrModuleNotFound)
	}
	classes, err := s.Classes.ListByParent(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	return SortByOrder(classes), nil
}

func (s *CourseService) CreateClass(ctx context.Context, moduleID string, req SiblingRequest) (*model.Class, error) {
	siblings, err := s.ListClasses(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	class := &model.Class{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Ordering:    model.Ordering{IsActive: boolOr(req.IsActive, true), Order: nextOrder(siblings)},
		ModuleID:    moduleID,
	}
	if err := s.Classes.Create(ctx, class); err != nil {
		return nil, fmt.Errorf("create class: %w", err)
	}
	return class, nil
}

func (s *CourseService) UpdateClass(ctx context.Context, id string, req SiblingUpdateRequest) (*model.Class, error) {
	if patch := siblingPatch(req); len(patch) > 0 {
		if err := s.Classes.Update(ctx, id, patch); err != nil {
			return nil, notFound(err, util.ErrClassNotFound)
		}
	}
	class, err := s.Classes.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, util.ErrClassNotFound)
	}
	return class, nil
}

func (s *CourseService) ReorderClasses(ctx context.Context, moduleID string, sequence []string) ([]model.Class, error) {
	current, err := s.ListClasses(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	return reorderLevel(ctx, "class", moduleID, current, sequence, s.Classes)
}

// ---- 步骤 ----

func (s *CourseService) ListSteps(ctx context.Context, classID string) ([]model.Step, error) {
	if _, err := s.Classes.FindByID(ctx, classID); err != nil {
		return nil, notFound(err, util.ErrClassNotFound)
	}
	steps, err := s.Steps.ListByParent(ctx, classID)
	if err != nil {
		return nil, err
	}
	return SortByOrder(steps), nil
}

func (s *CourseService) CreateStep(ctx context.Context, classID string, req StepRequest) (*model.Step, error) {
	if !req.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown step type %q", util.ErrInvalidStepPayload, req.Type)
	}
	siblings, err := s.ListSteps(ctx, classID)
	if err != nil {
		return nil, err
	}

	step := &model.Step{
		Name:     strings.TrimSpace(req.Name),
		Type:     req.Type,
		Ordering: model.Ordering{IsActive: boolOr(req.IsActive, true), Order: nextOrder(siblings)},
		ClassID:  classID,
		Payload:  datatypes.JSON(req.Payload),
	}
	if err := s.ValidateStep(step); err != nil {
		return nil, err
	}
	if err := s.Steps.Create(ctx, step); err != nil {
		return nil, fmt.Errorf("create step: %w", err)
	}
	return step, nil
}

func (s *CourseService) UpdateStep(ctx context.Context, id string, req StepUpdateRequest) (*model.Step, error) {
	step, err := s.Steps.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, util.ErrStepNotFound)
	}

	patch := map[string]interface{}{}
	if req.Name != nil {
		patch["name"] = strings.TrimSpace(*req.Name)
	}
	if req.IsActive != nil {
		patch["is_active"] = *req.IsActive
	}
	if len(req.Payload) > 0 {
		step.Payload = datatypes.JSON(req.Payload)
		if err := s.ValidateStep(step); err != nil {
			return nil, err
		}
		patch["payload"] = step.Payload
	}
	if len(patch) == 0 {
		return step, nil
	}

	if err := s.Steps.Update(ctx, id, patch); err != nil {
		return nil, notFound(err, util.ErrStepNotFound)
	}
	updated, err := s.Steps.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, util.ErrStepNotFound)
	}
	return updated, nil
}

func (s *CourseService) ReorderSteps(ctx context.Context, classID string, sequence []string) ([]model.Step, error) {
	current, err := s.ListSteps(ctx, classID)
	if err != nil {
		return nil, err
	}
	return reorderLevel(ctx, "step", classID, current, sequence, s.Steps)
}

// ValidateStep 按步骤类型校验题目内容
func (s *CourseService) ValidateStep(step *model.Step) error {
	payload, err := step.DecodePayload()
	if err != nil {
		return fmt.Errorf("%w: %v", util.ErrInvalidStepPayload, err)
	}
	if err := s.validate.Struct(payload); err != nil {
		return fmt.Errorf("%w: %v", util.ErrInvalidStepPayload, err)
	}

	switch q := payload.(type) {
	case *model.MultipleChoiceQuestion:
		if !hasOption(q.Options, q.CorrectOptionID) {
			return fmt.Errorf("%w: correctOptionId %d is not an option", util.ErrInvalidStepPayload, q.CorrectOptionID)
		}
	case *model.DragAndDropQuestion:
		for _, id := range q.CorrectWordIDs {
			if !hasWord(q.Words, id) {
				return fmt.Errorf("%w: correct word %d is not in words", util.ErrInvalidStepPayload, id)
			}
		}
	}
	return nil
}

func hasOption(options []model.ChoiceOption, id int) bool {
	for _, o := range options {
		if o.ID == id {
			return true
		}
	}
	return false
}

func hasWord(words []model.DragWord, id int) bool {
	for _, w := range words {
		if w.ID == id {
			return true
		}
	}
	return false
}

func siblingPatch(req SiblingUpdateRequest) map[string]interface{} {
	patch := map[string]interface{}{}
	if req.Name != nil {
		patch["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		patch["description"] = *req.Description
	}
	if req.IsActive != nil {
		patch["is_active"] = *req.IsActive
	}
	return patch
}

// reorderLevel 持久化失败时返回重排前的列表
func reorderLevel[T model.Sibling[T]](ctx context.Context, level, parentID string, current []T, sequence []string, store SiblingStore[T]) ([]T, error) {
	updated, err := Reorder(current, sequence, func(updates []model.OrderUpdate) error {
		return store.BatchUpdateOrder(ctx, updates)
	})
	if err == nil {
		return updated, nil
	}
	if errors.Is(err, util.ErrInvalidSequence) {
		return updated, err
	}

	monitoring.ReorderFailures.WithLabelValues(level).Inc()
	logger.Log.Error("Reorder failed",
		zap.String("level", level),
		zap.String("parentID", parentID),
		zap.Error(err))
	return updated, fmt.Errorf("reorder %ss: %w", level, err)
}
