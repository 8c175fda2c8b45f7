package app

import (
	"context"
	"course_player_backend/internal/config"
	"course_player_backend/internal/controller"
	"course_player_backend/internal/model"
	"course_player_backend/internal/repository"
	"course_player_backend/internal/service"
	"course_player_backend/internal/util"
	"course_player_backend/pkg/configwatcher"
	"course_player_backend/pkg/database"
	"course_player_backend/pkg/logger"
	"course_player_backend/pkg/monitoring"
	"course_player_backend/pkg/security"
	"course_player_backend/pkg/tracing"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"gorm.io/gorm"
)

// ConfigFile 热更新监听的配置文件
const ConfigFile = "configs/config.yaml"

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client

	services    *services
	rateLimiter *security.RateLimiter
	tracer      *sdktrace.TracerProvider

	cron      *cron.Cron
	cronMu    sync.Mutex
	warmEntry cron.EntryID
	warmExpr  string

	cancel          context.CancelFunc
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user       *repository.UserRepository
	course     *repository.CourseRepository
	module     *repository.SiblingRepository[model.Module]
	class      *repository.SiblingRepository[model.Class]
	step       *repository.SiblingRepository[model.Step]
	completion *repository.CompletionRepository
	enrollment *repository.EnrollmentRepository
	points     *repository.PointsRepository
	cache      *repository.RankingCache
}

type services struct {
	auth       *service.AuthService
	storage    *service.StorageService
	course     *service.CourseService
	learner    *service.LearnerService
	player     *service.PlayerService
	completion *service.CompletionService
	ranking    *service.RankingService
}

type controllers struct {
	auth    *controller.AuthController
	course  *controller.CourseController
	learner *controller.LearnerController
	player  *controller.PlayerController
	ranking *controller.RankingController
	health  *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) applyConfig(cfg *config.Config) {
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client) *repositories {
	repos := &repositories{
		user:       repository.NewUserRepository(db),
		course:     repository.NewCourseRepository(db),
		module:     repository.NewModuleRepository(db),
		class:      repository.NewClassRepository(db),
		step:       repository.NewStepRepository(db),
		completion: repository.NewCompletionRepository(db),
		enrollment: repository.NewEnrollmentRepository(db),
		points:     repository.NewPointsRepository(db),
	}
	if rdb != nil {
		repos.cache = repository.NewRankingCache(rdb)
	}
	return repos
}

func (a *App) initServices(repos *repositories, cfg *config.Config) *services {
	s := &services{}

	s.storage = service.NewStorageService(&cfg.Storage)
	s.auth = service.NewAuthService(repos.user, cfg)

	// Redis 不可用时排行榜直接查库
	var cache service.LeaderboardCache
	if repos.cache != nil {
		cache = repos.cache
	}
	s.ranking = service.NewRankingService(repos.points, repos.completion, cache, cfg.Ranking)
	s.auth.Subscribe(s.ranking.SyncUsername)

	s.course = service.NewCourseService(repos.course, repos.module, repos.class, repos.step, s.storage)
	s.learner = service.NewLearnerService(repos.course, repos.module, repos.class, repos.enrollment, repos.completion)
	s.player = service.NewPlayerService(repos.course, repos.module, repos.class, repos.step, repos.completion)
	s.completion = service.NewCompletionService(repos.course, repos.module, repos.class, repos.completion, s.ranking)

	a.RegisterConfigCallback(func(c *config.Config) {
		s.ranking.ApplyConfig(c.Ranking)
	})

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:    controller.NewAuthController(s.auth),
		course:  controller.NewCourseController(s.course),
		learner: controller.NewLearnerController(s.learner),
		player:  controller.NewPlayerController(s.player, s.completion),
		ranking: controller.NewRankingController(s.ranking),
		health:  controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	a.rateLimiter = security.NewRateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute)
	router.Use(a.rateLimiter.Middleware())
	a.RegisterConfigCallback(func(c *config.Config) {
		a.rateLimiter.Update(c.RateLimit.MaxRequests, time.Duration(c.RateLimit.WindowMinutes)*time.Minute)
	})

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// scheduleWarm 按 cron 表达式注册周榜预热任务，表达式变化时替换旧任务
func (a *App) scheduleWarm(expr string) {
	a.cronMu.Lock()
	defer a.cronMu.Unlock()

	if expr == "" || expr == a.warmExpr {
		return
	}
	id, err := a.cron.AddFunc(expr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := a.services.ranking.WarmWeekly(ctx); err != nil {
			logger.Log.Error("Weekly ranking warm-up failed", zap.Error(err))
		}
	})
	if err != nil {
		logger.Log.Error("Invalid ranking warm cron", zap.String("expr", expr), zap.Error(err))
		return
	}
	if a.warmExpr != "" {
		a.cron.Remove(a.warmEntry)
	}
	a.warmEntry = id
	a.warmExpr = expr
	logger.Log.Info("Ranking warm-up scheduled", zap.String("expr", expr))
}

func (a *App) startBackgroundTasks(ctx context.Context, cfg *config.Config) {
	a.cron = cron.New()
	a.scheduleWarm(cfg.Ranking.WarmCron)
	a.RegisterConfigCallback(func(c *config.Config) {
		a.scheduleWarm(c.Ranking.WarmCron)
	})

	// 清理限流器中长时间不活跃的IP
	if _, err := a.cron.AddFunc("@every 5m", func() {
		a.rateLimiter.Cleanup(time.Now())
	}); err != nil {
		logger.Log.Error("Failed to schedule rate limiter cleanup", zap.Error(err))
	}
	a.cron.Start()

	if err := configwatcher.Watch(ctx, ConfigFile, a.applyConfig); err != nil {
		logger.Log.Warn("Config hot reload disabled", zap.Error(err))
	}
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	migrate := cfg.ForceMigrate || cfg.Server.Mode != gin.ReleaseMode
	db, err := database.InitDB(&cfg.Database, migrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	app := &App{
		Config: cfg,
		DB:     db,
	}
	if cfg.MigrateOnly {
		return app
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Warn("Redis unavailable, ranking cache disabled", zap.Error(err))
		rdb = nil
	}
	app.Redis = rdb

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	app.buildRouter(db, rdb)

	ctx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel
	app.startBackgroundTasks(ctx, cfg)

	return app
}

// buildRouter 装配仓储、服务、控制器与路由
func (a *App) buildRouter(db *gorm.DB, rdb *redis.Client) {
	cfg := a.Config
	repos := a.initRepositories(db, rdb)
	a.services = a.initServices(repos, cfg)
	controllers := a.initControllers(a.services, db, rdb)

	if err := a.services.auth.EnsureAdmin(context.Background(), cfg.Admin); err != nil {
		logger.Log.Error("Failed to create admin account", zap.Error(err))
	}

	// 监控初始化
	monitoring.Init()

	gin.SetMode(cfg.Server.Mode)
	router := gin.Default()
	a.Router = router

	a.setupMiddlewares(router, cfg)
	a.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == util.StorageLocal {
		router.Static("/uploads", filepath.Clean(cfg.Storage.LocalPath))
	}
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("listen failed", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	if a.cancel != nil {
		a.cancel()
	}
	if a.cron != nil {
		<-a.cron.Stop().Done()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}

	logger.Log.Info("Server exiting")
}
