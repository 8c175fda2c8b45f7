package util

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailRegistered    = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPermissionDenied   = errors.New("permission denied")

	ErrCourseNotFound = errors.New("course not found")
	ErrModuleNotFound = errors.New("module not found")
	ErrClassNotFound  = errors.New("class not found")
	ErrStepNotFound   = errors.New("step not found")
	// 未发布课程对学员表现为不存在
	ErrCourseInactive = fmt.Errorf("%w: course is not active", ErrCourseNotFound)
	// 解锁链上前一个实体尚未完成
	ErrContentLocked  = errors.New("content is locked")

	ErrInvalidSequence    = errors.New("sequence must be a permutation of the current siblings")
	ErrInvalidStepPayload = errors.New("invalid step payload")
	ErrInvalidAnswer      = errors.New("invalid answer selection")
	ErrInvalidPeriod      = errors.New("period must be 'all' or 'week'")
	ErrInvalidFile        = errors.New("invalid file")
)

// IsNotFound 判断是否为各类资源不存在错误
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrCourseNotFound) ||
		errors.Is(err, ErrModuleNotFound) ||
		errors.Is(err, ErrClassNotFound) ||
		errors.Is(err, ErrStepNotFound)
}
