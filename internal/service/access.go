package service

import (
	"context"
	"course_player_backend/internal/model"
	"course_player_backend/internal/util"
	"fmt"
)

// classAccess 学员访问课时前的校验：课程、模块、课时都已发布，且在解锁链上已可用
type classAccess struct {
	Courses     CourseStore
	Modules     SiblingStore[model.Module]
	Classes     SiblingStore[model.Class]
	Completions CompletionStore
}

// classPath 通过校验的课时及其所在层级，模块和课时列表只含已发布实体且已排序
type classPath struct {
	Course  *model.Course
	Module  *model.Module
	Class   *model.Class
	Modules []model.Module
	Classes []model.Class

	ClassDone  bool
	ModuleDone bool
}

// unlocked 已完成的实体总能重新进入，便于重放补齐级联
func unlocked[T model.Sibling[T]](siblings []T, id string, completed map[string]bool) bool {
	if completed[id] {
		return true
	}
	for i, item := range siblings {
		if item.SiblingID() == id {
			return IsAvailable(siblings, i, completed)
		}
	}
	return false
}

func (a *classAccess) resolve(ctx context.Context, who Identity, classID string) (*classPath, error) {
	class, err := a.Classes.FindByID(ctx, classID)
	if err != nil {
		return nil, notFound(err, util.ErrClassNotFound)
	}
	if !class.IsActive {
		return nil, util.ErrClassNotFound
	}

	module, err := a.Modules.FindByID(ctx, class.ModuleID)
	if err != nil {
		return nil, notFound(err, util.ErrModuleNotFound)
	}
	if !module.IsActive {
		return nil, util.ErrModuleNotFound
	}

	course, err := a.Courses.FindByID(ctx, module.CourseID)
	if err != nil {
		return nil, notFound(err, util.ErrCourseNotFound)
	}
	if !course.Active {
		return nil, util.ErrCourseInactive
	}

	modules, err := a.Modules.ListByParent(ctx, course.ID)
	if err != nil {
		return nil, fmt.Errorf("list course modules: %w", err)
	}
	classes, err := a.Classes.ListByParent(ctx, module.ID)
	if err != nil {
		return nil, fmt.Errorf("list module classes: %w", err)
	}
	path := &classPath{
		Course:  course,
		Module:  module,
		Class:   class,
		Modules: ActiveInOrder(modules),
		Classes: ActiveInOrder(classes),
	}

	doneModules, err := a.Completions.CompletedModuleIDs(ctx, who.UserID, siblingIDs(path.Modules))
	if err != nil {
		return nil, fmt.Errorf("load module completions: %w", err)
	}
	if !unlocked(path.Modules, module.ID, doneModules) {
		return nil, fmt.Errorf("%w: module %s", util.ErrContentLocked, module.ID)
	}

	doneClasses, err := a.Completions.CompletedClassIDs(ctx, who.UserID, siblingIDs(path.Classes))
	if err != nil {
		return nil, fmt.Errorf("load class completions: %w", err)
	}
	if !unlocked(path.Classes, class.ID, doneClasses) {
		return nil, fmt.Errorf("%w: class %s", util.ErrContentLocked, class.ID)
	}

	path.ModuleDone = doneModules[module.ID]
	path.ClassDone = doneClasses[class.ID]
	return path, nil
}
