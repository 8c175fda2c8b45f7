package app

import (
	"course_player_backend/docs"
	"course_player_backend/internal/config"
	"course_player_backend/internal/middleware"
	"course_player_backend/internal/model"
	"course_player_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	// 接口注解中的路径已包含 /api
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerLearnerRoutes(authGroup, c)
	}

	// 3. 管理员相关接口
	a.registerAdminRoutes(router, c, cfg)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}
}

func (a *App) registerLearnerRoutes(group *gin.RouterGroup, c *controllers) {
	group.GET("/profile", c.auth.Profile)

	courses := group.Group("/courses")
	{
		courses.GET("/available", c.learner.AvailableCourses)
		courses.GET("/ongoing", c.learner.OngoingCourses)
		courses.POST("/:id/enroll", c.learner.Enroll)
		courses.GET("/:id/outline", c.learner.CourseOutline)
	}

	group.GET("/modules/:id/outline", c.learner.ModuleOutline)

	group.GET("/classes/:id/steps", c.player.ClassSteps)
	group.POST("/classes/:id/complete", c.player.CompleteClass)
	group.POST("/steps/:id/verify", c.player.VerifyAnswer)

	ranking := group.Group("/ranking")
	{
		ranking.GET("", c.ranking.Leaderboard)
		ranking.GET("/me", c.ranking.MyRank)
	}
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Admin))
	{
		admin.GET("/courses", c.course.ListCourses)
		admin.POST("/courses", c.course.CreateCourse)
		admin.GET("/courses/:id", c.course.GetCourse)
		admin.PUT("/courses/:id", c.course.UpdateCourse)
		admin.PUT("/courses/:id/active", c.course.SetCourseActive)
		admin.POST("/courses/:id/cover", c.course.UploadCover)

		admin.GET("/courses/:id/modules", c.course.ListModules)
		admin.POST("/courses/:id/modules", c.course.CreateModule)
		admin.PUT("/courses/:id/modules/order", c.course.ReorderModules)
		admin.PUT("/modules/:id", c.course.UpdateModule)

		admin.GET("/modules/:id/classes", c.course.ListClasses)
		admin.POST("/modules/:id/classes", c.course.CreateClass)
		admin.PUT("/modules/:id/classes/order", c.course.ReorderClasses)
		admin.PUT("/classes/:id", c.course.UpdateClass)

		admin.GET("/classes/:id/steps", c.course.ListSteps)
		admin.POST("/classes/:id/steps", c.course.CreateStep)
		admin.PUT("/classes/:id/steps/order", c.course.ReorderSteps)
		admin.PUT("/steps/:id", c.course.UpdateStep)
	}
}
