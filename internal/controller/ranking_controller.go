package controller

import (
	"course_player_backend/internal/service"
	"course_player_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type RankingController struct {
	RankingService *service.RankingService
}

func NewRankingController(rankingService *service.RankingService) *RankingController {
	return &RankingController{RankingService: rankingService}
}

// @Summary 积分排行榜
// @Description period=all 为累计积分，week 为近 7 天；当前用户不在榜内时追加一行
// @Tags 排行榜
// @Produce json
// @Security ApiKeyAuth
// @Param period query string false "all | week"
// @Success 200 {object} util.Response
// @Router /api/ranking [get]
func (c *RankingController) Leaderboard(ctx *gin.Context) {
	who, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	period, err := service.ParsePeriod(ctx.Query("period"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	board, err := c.RankingService.Leaderboard(ctx.Request.Context(), who, period)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{
		"period":  period,
		"entries": board,
	})
}

// @Summary 我的排名
// @Tags 排行榜
// @Produce json
// @Security ApiKeyAuth
// @Param period query string false "all | week"
// @Success 200 {object} util.Response{data=service.RankEntry}
// @Router /api/ranking/me [get]
func (c *RankingController) MyRank(ctx *gin.Context) {
	who, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	period, err := service.ParsePeriod(ctx.Query("period"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	entry, err := c.RankingService.UserRank(ctx.Request.Context(), who.UserID, period)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, entry)
}
