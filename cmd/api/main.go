package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/escola-habilidade/scheduling-api/api/swagger"
	"github.com/escola-habilidade/scheduling-api/internal/handler"
	"github.com/escola-habilidade/scheduling-api/internal/middleware"
	"github.com/escola-habilidade/scheduling-api/internal/models"
	"github.com/escola-habilidade/scheduling-api/internal/repository"
	"github.com/escola-habilidade/scheduling-api/internal/service"
	"github.com/escola-habilidade/scheduling-api/pkg/cache"
	"github.com/escola-habilidade/scheduling-api/pkg/config"
	"github.com/escola-habilidade/scheduling-api/pkg/database"
	"github.com/escola-habilidade/scheduling-api/pkg/export"
	"github.com/escola-habilidade/scheduling-api/pkg/jobs"
	"github.com/escola-habilidade/scheduling-api/pkg/logger"
	corsmiddleware "github.com/escola-habilidade/scheduling-api/pkg/middleware/cors"
	reqidmiddleware "github.com/escola-habilidade/scheduling-api/pkg/middleware/requestid"
	"github.com/escola-habilidade/scheduling-api/pkg/storage"
)

// @title Escola Habilidade Scheduling API
// @version 1.0.0
// @description Course scheduling, teacher availability and enrollment service
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	cacheEnabled := cfg.Holidays.CacheEnabled
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		cacheEnabled = false
		redisClient = nil
	}

	validate := validator.New()
	metricsService := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	holidayRepo := repository.NewHolidayRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	exportRepo := repository.NewExportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Holidays.CacheTTL, logr, cacheEnabled)
	holidayService := service.NewHolidayService(holidayRepo, cacheService, cfg.Holidays.CacheTTL, validate, logr)
	teacherService := service.NewTeacherService(teacherRepo, validate, logr)
	availabilityService := service.NewAvailabilityService(availabilityRepo, teacherRepo, validate, logr)
	scheduleService := service.NewScheduleService(availabilityRepo, holidayService, cfg.Scheduler.MaxWeeks, validate, logr)
	slotService := service.NewSlotService(availabilityRepo, teacherRepo, enrollmentRepo, holidayService, cfg.Slots.MaxRangeDays, logr)
	courseService := service.NewCourseService(courseRepo, logr)
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, availabilityRepo, teacherRepo, courseRepo, userRepo, scheduleService, validate, logr)
	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "scheduling-api",
	})

	var exportJobService *service.ExportJobService
	var queue *jobs.Queue
	if cfg.Exports.Enabled {
		fileStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportService := service.NewExportService(enrollmentRepo, fileStore, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Exports.SignedURLTTL,
		}, logr, export.NewCSVExporter(), export.NewPDFExporter())

		worker := service.NewExportWorker(exportRepo, exportService, cfg.Exports.WorkerRetries, logr)
		queue = jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			BufferSize: 64,
			MaxRetries: cfg.Exports.WorkerRetries,
			RetryDelay: 5 * time.Second,
			Logger:     logr,
		})
		queue.Start(ctx)

		exportJobService = service.NewExportJobService(exportRepo, enrollmentRepo, queue, exportService, logr, service.ExportJobConfig{
			ResultTTL:       cfg.Exports.SignedURLTTL,
			CleanupInterval: cfg.Exports.CleanupInterval,
			MaxRetries:      cfg.Exports.WorkerRetries,
		})
		exportJobService.RecoverPendingJobs(ctx)
		exportJobService.StartCleanup(ctx)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	metricsHandler := handler.NewMetricsHandler(metricsService)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r.Group(cfg.APIPrefix), routeDeps{
		auth:         handler.NewAuthHandler(authService),
		holidays:     handler.NewHolidayHandler(holidayService),
		teachers:     handler.NewTeacherHandler(teacherService),
		availability: handler.NewAvailabilityHandler(availabilityService, teacherService, slotService),
		schedules:    handler.NewScheduleHandler(scheduleService, slotService),
		courses:      handler.NewCourseHandler(courseService),
		enrollments:  handler.NewEnrollmentHandler(enrollmentService),
		exports:      exportHandlerOrNil(exportJobService),
		metrics:      metricsHandler,
		authService:  authService,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	if queue != nil {
		queue.Stop()
	}
}

type routeDeps struct {
	auth         *handler.AuthHandler
	holidays     *handler.HolidayHandler
	teachers     *handler.TeacherHandler
	availability *handler.AvailabilityHandler
	schedules    *handler.ScheduleHandler
	courses      *handler.CourseHandler
	enrollments  *handler.EnrollmentHandler
	exports      *handler.ExportHandler
	metrics      *handler.MetricsHandler
	authService  *service.AuthService
}

func registerRoutes(api *gin.RouterGroup, deps routeDeps) {
	adminOnly := middleware.RBAC(string(models.RoleAdmin))
	staff := middleware.RBAC(string(models.RoleAdmin), string(models.RoleInstructor))

	auth := api.Group("/auth")
	{
		auth.POST("/login", deps.auth.Login)
		auth.POST("/refresh", deps.auth.Refresh)

		authed := auth.Group("", middleware.JWT(deps.authService))
		authed.POST("/logout", deps.auth.Logout)
		authed.POST("/change-password", deps.auth.ChangePassword)
		authed.GET("/me", deps.auth.Me)
	}

	// Download carries its own signed token; no session required.
	if deps.exports != nil {
		api.GET("/exports/download/:token", deps.exports.Download)
	}

	// Availability reads back the public booking site; no session required.
	public := api.Group("", middleware.OptionalJWT(deps.authService))
	public.GET("/teachers/:id/availability", deps.availability.List)
	public.GET("/teachers/:id/slots", deps.schedules.AvailableSlots)

	protected := api.Group("", middleware.JWT(deps.authService))

	holidays := protected.Group("/holidays")
	{
		holidays.GET("", deps.holidays.List)
		holidays.GET("/check", deps.holidays.Check)
		holidays.POST("", adminOnly, deps.holidays.Create)
		holidays.PUT("/:id", adminOnly, deps.holidays.Update)
		holidays.DELETE("/:id", adminOnly, deps.holidays.Delete)
	}

	teachers := protected.Group("/teachers")
	{
		teachers.GET("", deps.teachers.List)
		teachers.GET("/:id", deps.teachers.Get)
		teachers.POST("", adminOnly, deps.teachers.Create)
		teachers.PUT("/:id", adminOnly, deps.teachers.Update)
		teachers.DELETE("/:id", adminOnly, deps.teachers.Deactivate)

		// Instructor self-access is enforced inside the handler; the
		// route id is a teacher id, not the caller's user id.
		teachers.POST("/:id/availability", staff, deps.availability.Create)
		teachers.PUT("/:id/availability/:slotId", staff, deps.availability.Update)
		teachers.DELETE("/:id/availability/:slotId", staff, deps.availability.Deactivate)
	}

	protected.POST("/calculations/end-date", deps.schedules.CalculateEndDate)

	courses := protected.Group("/courses")
	{
		courses.GET("", deps.courses.List)
		courses.GET("/:id", deps.courses.Get)
	}

	admin := protected.Group("/admin", adminOnly)
	{
		admin.GET("/enrollments", deps.enrollments.List)
		admin.POST("/enrollments", deps.enrollments.Create)
		admin.GET("/enrollments/:id", deps.enrollments.Get)
		admin.DELETE("/enrollments/:id", deps.enrollments.Cancel)

		if deps.exports != nil {
			admin.POST("/enrollments/:id/export", deps.exports.CreateScheduleExport)
			admin.POST("/exports/enrollments", deps.exports.CreateEnrollmentExport)
		}
	}

	if deps.exports != nil {
		// Owner-or-admin check happens in the service.
		protected.GET("/exports/status/:id", deps.exports.Status)
	}

	protected.GET("/admin/metrics", adminOnly, deps.metrics.Snapshot)
}

func exportHandlerOrNil(svc *service.ExportJobService) *handler.ExportHandler {
	if svc == nil {
		return nil
	}
	return handler.NewExportHandler(svc)
}
