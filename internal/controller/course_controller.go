package controller

import (
	"course_player_backend/internal/service"
	"course_player_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// CourseController 管理端课程层级接口
type CourseController struct {
	CourseService *service.CourseService
}

func NewCourseController(courseService *service.CourseService) *CourseController {
	return &CourseController{CourseService: courseService}
}

type activeRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// ---- 课程 ----

// @Summary 课程列表（含未发布）
// @Tags 管理-课程
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/admin/courses [get]
func (c *CourseController) ListCourses(ctx *gin.Context) {
	courses, err := c.CourseService.ListCourses(ctx.Request.Context())
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, courses)
}

// @Summary 创建课程
// @Tags 管理-课程
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CourseRequest true "课程信息"
// @Success 201 {object} util.Response
// @Router /api/admin/courses [post]
func (c *CourseController) CreateCourse(ctx *gin.Context) {
	var req service.CourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	course, err := c.CourseService.CreateCourse(ctx.Request.Context(), req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, course)
}

// @Summary 课程详情
// @Tags 管理-课程
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "课程ID"
// @Success 200 {object} util.Response
// @Router /api/admin/courses/{id} [get]
func (c *CourseController) GetCourse(ctx *gin.Context) {
	course, err := c.CourseService.GetCourse(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// @Summary 更新课程
// @Tags 管理-课程
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "课程ID"
// @Param body body service.CourseUpdateRequest true "更新字段"
// @Success 200 {object} util.Response
// @Router /api/admin/courses/{id} [put]
func (c *CourseController) UpdateCourse(ctx *gin.Context) {
	var req service.CourseUpdateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	course, err := c.CourseService.UpdateCourse(ctx.Request.Context(), ctx.Param("id"), req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// @Summary 发布/下架课程
// @Tags 管理-课程
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "课程ID"
// @Success 200 {object} util.Response
// @Router /api/admin/courses/{id}/active [put]
func (c *CourseController) SetCourseActive(ctx *gin.Context) {
	var req activeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	course, err := c.CourseService.SetCourseActive(ctx.Request.Context(), ctx.Param("id"), *req.Active)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// @Summary 上传课程封面
// @Tags 管理-课程
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "课程ID"
// @Param file formData file true "封面图片"
// @Success 200 {object} util.Response
// @Router /api/admin/courses/{id}/cover [post]
func (c *CourseController) UploadCover(ctx *gin.Context) {
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "请选择要上传的图片")
		return
	}

	src, err := file.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer src.Close()

	course, err := c.CourseService.UploadCourseCover(ctx.Request.Context(), ctx.Param("id"), file.Filename, src, file.Size)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// ---- 模块 ----

// @Summary 课程下的模块
// @Tags 管理-模块
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "课程ID"
// @Success 200 {object} util.Response
// @Router /api/admin/courses/{id}/modules [get]
func (c *CourseController) ListModules(ctx *gin.Context) {
	modules, err := c.CourseService.ListModules(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, modules)
}

// @Summary 创建模块
// @Tags 管理-模块
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "课程ID"
// @Param body body service.SiblingRequest true "模块信息"
// @Success 201 {object} util.Response
// @Router /api/admin/courses/{id}/modules [post]
func (c *CourseController) CreateModule(ctx *gin.Context) {
	var req service.SiblingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	module, err := c.CourseService.CreateModule(ctx.Request.Context(), ctx.Param("id"), req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, module)
}

// @Summary 更新模块
// @Tags 管理-模块
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "模块ID"
// @Success 200 {object} util.Response
// @Router /api/admin/modules/{id} [put]
func (c *CourseController) UpdateModule(ctx *gin.Context) {
	var req service.SiblingUpdateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	module, err := c.CourseService.UpdateModule(ctx.Request.Context(), ctx.Param("id"), req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, module)
}

// @Summary 模块重新排序
// @Description 失败时 data 中返回重排前的顺序
// @Tags 管理-模块
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "课程ID"
// @Param body body service.ReorderRequest true "新的ID顺序"
// @Success 200 {object} util.Response
// @Router /api/admin/courses/{id}/modules/order [put]
func (c *CourseController) ReorderModules(ctx *gin.Context) {
	var req service.ReorderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	modules, err := c.CourseService.ReorderModules(ctx.Request.Context(), ctx.Param("id"), req.Sequence)
	if err != nil {
		util.HandleServiceErrorWithData(ctx, err, modules)
		return
	}
	util.Success(ctx, modules)
}

// ---- 课时 ----

// @Summary 模块下的课时
// @Tags 管理-课时
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "模块ID"
// @Success 200 {object} util.Response
// @Router /api/admin/modules/{id}/classes [get]
func (c *CourseController) ListClasses(ctx *gin.Context) {
	classes, err := c.CourseService.ListClasses(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, classes)
}

// @Summary 创建课时
// @Tags 管理-课时
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "模块ID"
// @Success 201 {object} util.Response
// @Router /api/admin/modules/{id}/classes [post]
func (c *CourseController) CreateClass(ctx *gin.Context) {
	var req service.SiblingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	class, err := c.CourseService.CreateClass(ctx.Request.Context(), ctx.Param("id"), req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, class)
}

// @Summary 更新课时
// @Tags 管理-课时
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "课时ID"
// @Success 200 {object} util.Response
// @Router /api/admin/classes/{id} [put]
func (c *CourseController) UpdateClass(ctx *gin.Context) {
	var req service.SiblingUpdateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	class, err := c.CourseService.UpdateClass(ctx.Request.Context(), ctx.Param("id"), req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, class)
}

// @Summary 课时重新排序
// @Tags 管理-课时
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "模块ID"
// @Success 200 {object} util.Response
// @Router /api/admin/modules/{id}/classes/order [put]
func (c *CourseController) ReorderClasses(ctx *gin.Context) {
	var req service.ReorderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	classes, err := c.CourseService.ReorderClasses(ctx.Request.Context(), ctx.Param("id"), req.Sequence)
	if err != nil {
		util.HandleServiceErrorWithData(ctx, err, classes)
		return
	}
	util.Success(ctx, classes)
}

// ---- 步骤 ----

// @Summary 课时下的步骤（含答案）
// @Tags 管理-步骤
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "课时ID"
// @Success 200 {object} util.Response
// @Router /api/admin/classes/{id}/steps [get]
func (c *CourseController) ListSteps(ctx *gin.Context) {
	steps, err := c.CourseService.ListSteps(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, steps)
}

// @Summary 创建步骤
// @Tags 管理-步骤
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "课时ID"
// @Param body body service.StepRequest true "步骤信息"
// @Success 201 {object} util.Response
// @Router /api/admin/classes/{id}/steps [post]
func (c *CourseController) CreateStep(ctx *gin.Context) {
	var req service.StepRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	step, err := c.CourseService.CreateStep(ctx.Request.Context(), ctx.Param("id"), req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, step)
}

// @Summary 更新步骤
// @Tags 管理-步骤
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "步骤ID"
// @Success 200 {object} util.Response
// @Router /api/admin/steps/{id} [put]
func (c *CourseController) UpdateStep(ctx *gin.Context) {
	var req service.StepUpdateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	step, err := c.CourseService.UpdateStep(ctx.Request.Context(), ctx.Param("id"), req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, step)
}

// @Summary 步骤重新排序
// @Tags 管理-步骤
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "课时ID"
// @Success 200 {object} util.Response
// @Router /api/admin/classes/{id}/steps/order [put]
func (c *CourseController) ReorderSteps(ctx *gin.Context) {
	var req service.ReorderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	steps, err := c.CourseService.ReorderSteps(ctx.Request.Context(), ctx.Param("id"), req.Sequence)
	if err != nil {
		util.HandleServiceErrorWithData(ctx, err, steps)
		return
	}
	util.Success(ctx, steps)
}
