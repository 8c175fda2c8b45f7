package controller

import (
	"course_player_backend/internal/service"
	"course_player_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// PlayerController 课时播放、答题与完成上报
type PlayerController struct {
	PlayerService     *service.PlayerService
	CompletionService *service.CompletionService
}

func NewPlayerController(playerService *service.PlayerService, completionService *service.CompletionService) *PlayerController {
	return &PlayerController{
		PlayerService:     playerService,
		CompletionService: completionService,
	}
}

type VerifyRequest struct {
	Selected *int `json:"selected" binding:"required"`
}

type CompleteClassRequest struct {
	ModuleID string `json:"moduleId" binding:"required"`
}

// @Summary 课时步骤
// @Tags 课时播放
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "课时ID"
// @Success 200 {object} util.Response
// @Router /api/classes/{id}/steps [get]
func (c *PlayerController) ClassSteps(ctx *gin.Context) {
	who, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	steps, err := c.PlayerService.ClassSteps(ctx.Request.Context(), who, ctx.Param("id"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, steps)
}

// @Summary 校验答案
// @Tags 课时播放
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "步骤ID"
// @Param body body VerifyRequest true "所选选项"
// @Success 200 {object} util.Response{data=service.VerifyResult}
// @Router /api/steps/{id}/verify [post]
func (c *PlayerController) VerifyAnswer(ctx *gin.Context) {
	who, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	var req VerifyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	result, err := c.PlayerService.VerifyAnswer(ctx.Request.Context(), who, ctx.Param("id"), *req.Selected)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary 完成课时
// @Description 最后一个课时会级联完成模块和课程；partial=true 表示级联未全部写入
// @Tags 课时播放
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "课时ID"
// @Param body body CompleteClassRequest true "所属模块"
// @Success 200 {object} util.Response{data=service.CompletionOutcome}
// @Router /api/classes/{id}/complete [post]
func (c *PlayerController) CompleteClass(ctx *gin.Context) {
	who, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	var req CompleteClassRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	outcome, err := c.CompletionService.RecordClassCompletion(ctx.Request.Context(), who, ctx.Param("id"), req.ModuleID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, outcome)
}
