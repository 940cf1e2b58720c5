package main

import (
	"context"
	"errors"
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

	_ "github.com/smartattend/api/api/swagger"
	"github.com/smartattend/api/internal/handler"
	"github.com/smartattend/api/internal/middleware"
	"github.com/smartattend/api/internal/models"
	"github.com/smartattend/api/internal/repository"
	"github.com/smartattend/api/internal/service"
	"github.com/smartattend/api/pkg/cache"
	"github.com/smartattend/api/pkg/config"
	"github.com/smartattend/api/pkg/database"
	"github.com/smartattend/api/pkg/jobs"
	"github.com/smartattend/api/pkg/logger"
	corsmiddleware "github.com/smartattend/api/pkg/middleware/cors"
	reqidmiddleware "github.com/smartattend/api/pkg/middleware/requestid"
	"github.com/smartattend/api/pkg/qr"
	"github.com/smartattend/api/pkg/storage"
)

// @title SmartAttend API
// @version 1.0.0
// @description QR based classroom attendance backend
// @BasePath /api
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metricsService := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		defer redisClient.Close()
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Cache.ReportTTL, logr, cfg.Cache.Enabled)

	userRepo := repository.NewUserRepository(db)
	classRepo := repository.NewClassRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	reportRepo := repository.NewReportRepository(db)

	validate := validator.New()

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
	})
	classService := service.NewClassService(classRepo, sessionRepo, attendanceRepo, validate, logr)
	sessionService := service.NewSessionService(sessionRepo, classRepo, qr.NewGenerator(cfg.QR.ImageSize), validate, logr, service.SessionConfig{
		DefaultQRDuration: cfg.QR.DefaultDuration,
	})
	attendanceService := service.NewAttendanceService(attendanceRepo, sessionRepo, classRepo, cacheService, logr)
	userService := service.NewUserService(userRepo, classRepo, attendanceRepo, validate, logr)
	adminService := service.NewAdminService(userRepo, classRepo, sessionRepo, attendanceRepo, reportRepo, cacheService, cfg.Cache.ReportTTL, logr)
	seedService := service.NewSeedService(userRepo, classRepo, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	authHandler := handler.NewAuthHandler(authService)
	classHandler := handler.NewClassHandler(classService, sessionService)
	sessionHandler := handler.NewSessionHandler(sessionService, attendanceService)
	attendanceHandler := handler.NewAttendanceHandler(attendanceService)
	userHandler := handler.NewUserHandler(userService)
	adminHandler := handler.NewAdminHandler(adminService, seedService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/health", metricsHandler.Health)

	auth := api.Group("/auth")
	auth.POST("/signup", authHandler.Signup)
	auth.POST("/login", authHandler.Login)
	auth.GET("/me", middleware.JWT(authService), authHandler.Me)

	classes := api.Group("/classes", middleware.JWT(authService))
	classes.GET("", middleware.RequireRoles(models.RoleTeacher), classHandler.List)
	classes.POST("", middleware.RequireRoles(models.RoleTeacher), classHandler.Create)
	classes.POST("/join", middleware.RequireRoles(models.RoleStudent), classHandler.Join)
	classes.GET("/enrolled", middleware.RequireRoles(models.RoleStudent), classHandler.Enrolled)
	classes.GET("/sessions", middleware.RequireRoles(models.RoleStudent), classHandler.StudentSessions)
	classes.GET("/today", middleware.RequireRoles(models.RoleStudent), classHandler.Today)
	classes.GET("/upcoming", classHandler.Upcoming)
	classes.GET("/:id/sessions", classHandler.Sessions)
	classes.GET("/:id/register", classHandler.Register)

	sessions := api.Group("/sessions", middleware.JWT(authService))
	sessions.GET("", middleware.RequireRoles(models.RoleTeacher), sessionHandler.List)
	sessions.POST("", middleware.RequireRoles(models.RoleTeacher), sessionHandler.Create)
	sessions.GET("/today", middleware.RequireRoles(models.RoleTeacher), sessionHandler.Today)
	sessions.GET("/active-qr", middleware.RequireRoles(models.RoleTeacher), sessionHandler.ActiveQR)
	sessions.GET("/:id", sessionHandler.Get)
	sessions.GET("/:id/attendance", middleware.RequireRoles(models.RoleTeacher), sessionHandler.Attendance)
	sessions.POST("/:id/generate-qr", middleware.RequireRoles(models.RoleTeacher), sessionHandler.GenerateQR)
	sessions.PUT("/:id/end-qr", middleware.RequireRoles(models.RoleTeacher), sessionHandler.EndQR)
	sessions.DELETE("/:id", middleware.RequireRoles(models.RoleTeacher), sessionHandler.Delete)

	attendance := api.Group("/attendance", middleware.JWT(authService))
	attendance.POST("/mark", middleware.RequireRoles(models.RoleStudent), attendanceHandler.Mark)
	attendance.GET("/report", middleware.RequireRoles(models.RoleTeacher), attendanceHandler.Report)
	attendance.GET("/today", middleware.RequireRoles(models.RoleTeacher), attendanceHandler.Today)
	attendance.GET("/student", middleware.RequireRoles(models.RoleStudent), attendanceHandler.StudentHistory)

	api.GET("/reports/class/:classId", middleware.JWT(authService), middleware.RequireRoles(models.RoleTeacher), attendanceHandler.ClassReport)

	admin := api.Group("/admin", middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/users", userHandler.List)
	admin.POST("/users", userHandler.Create)
	admin.GET("/users/:id", userHandler.Get)
	admin.PUT("/users/:id", userHandler.Update)
	admin.DELETE("/users/:id", userHandler.Delete)
	admin.GET("/stats", adminHandler.Stats)
	admin.GET("/departments", adminHandler.Departments)
	admin.GET("/classes", adminHandler.Classes)
	admin.GET("/reports", adminHandler.Reports)
	admin.GET("/recent-activity", adminHandler.RecentActivity)
	admin.GET("/reports/class-wise", adminHandler.ClassWiseReport)
	admin.GET("/reports/students-attendance", adminHandler.StudentsReport)
	admin.GET("/reports/teachers", adminHandler.TeachersReport)
	admin.DELETE("/attendance/clear", adminHandler.ClearAttendance)
	admin.GET("/system-metrics", metricsHandler.Snapshot)
	admin.POST("/seed", adminHandler.Seed)

	if cfg.Seed.Enabled {
		if msg, err := seedService.Seed(ctx); err != nil {
			logr.Sugar().Errorw("startup seed failed", "error", err)
		} else {
			logr.Sugar().Infow("startup seed", "result", msg)
		}
	}

	var exportQueue *jobs.Queue
	if cfg.Exports.Enabled {
		exportRepo := repository.NewExportRepository(db)
		fileStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

		// The queue handler and the service reference each other, so the
		// worker is resolved through a closure after both exist.
		var exportWorker *service.ExportWorker
		exportQueue = jobs.NewQueue("exports", func(ctx context.Context, job jobs.Job) error {
			return exportWorker.Handle(ctx, job)
		}, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})
		exportService := service.NewExportService(exportRepo, reportRepo, fileStore, exportQueue, signer, service.ExportConfig{
			APIPrefix:       cfg.APIPrefix,
			ResultTTL:       cfg.Exports.SignedURLTTL,
			CleanupInterval: cfg.Exports.CleanupInterval,
		}, logr)
		exportWorker = service.NewExportWorker(exportRepo, exportService, cfg.Exports.WorkerRetries, logr)

		exportQueue.Start(ctx)
		exportService.RecoverPendingJobs(ctx)
		exportService.StartCleanup(ctx)

		exportHandler := handler.NewExportHandler(exportService)
		admin.POST("/exports", exportHandler.Create)
		admin.GET("/exports/:id", exportHandler.Get)
		api.GET("/export/:token", exportHandler.Download)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	if exportQueue != nil {
		exportQueue.Stop()
	}
}
