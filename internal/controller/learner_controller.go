package controller

import (
	"course_player_backend/internal/service"
	"course_player_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type LearnerController struct {
	LearnerService *service.LearnerService
}

func NewLearnerController(learnerService *service.LearnerService) *LearnerController {
	return &LearnerController{LearnerService: learnerService}
}

// currentIdentity 取出当前登录用户，未登录时已写入 401
func currentIdentity(ctx *gin.Context) (service.Identity, bool) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return service.Identity{}, false
	}
	return service.IdentityFromClaims(claims), true
}

// @Summary 可报名的课程
// @Tags 学员
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/courses/available [get]
func (c *LearnerController) AvailableCourses(ctx *gin.Context) {
	who, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	courses, err := c.LearnerService.AvailableCourses(ctx.Request.Context(), who)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, courses)
}

// @Summary 进行中的课程及进度
// @Tags 学员
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/courses/ongoing [get]
func (c *LearnerController) OngoingCourses(ctx *gin.Context) {
	who, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	courses, err := c.LearnerService.OngoingCourses(ctx.Request.Context(), who)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, courses)
}

// @Summary 报名课程
// @Tags 学员
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "课程ID"
// @Success 200 {object} util.Response
// @Router /api/courses/{id}/enroll [post]
func (c *LearnerController) Enroll(ctx *gin.Context) {
	who, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	course, err := c.LearnerService.Enroll(ctx.Request.Context(), who, ctx.Param("id"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// @Summary 课程大纲（模块解锁状态）
// @Tags 学员
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "课程ID"
// @Success 200 {object} util.Response
// @Router /api/courses/{id}/outline [get]
func (c *LearnerController) CourseOutline(ctx *gin.Context) {
	who, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	outline, err := c.LearnerService.CourseOutline(ctx.Request.Context(), who, ctx.Param("id"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, outline)
}

// @Summary 模块大纲（课时解锁状态）
// @Tags 学员
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "模块ID"
// @Success 200 {object} util.Response
// @Router /api/modules/{id}/outline [get]
func (c *LearnerController) ModuleOutline(ctx *gin.Context) {
	who, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	outline, err := c.LearnerService.ModuleOutline(ctx.Request.Context(), who, ctx.Param("id"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, outline)
}
