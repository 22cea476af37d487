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
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-transcript-api/api/swagger"
	"github.com/noah-isme/sma-transcript-api/internal/handler"
	"github.com/noah-isme/sma-transcript-api/internal/middleware"
	"github.com/noah-isme/sma-transcript-api/internal/models"
	"github.com/noah-isme/sma-transcript-api/internal/repository"
	"github.com/noah-isme/sma-transcript-api/internal/service"
	"github.com/noah-isme/sma-transcript-api/pkg/cache"
	"github.com/noah-isme/sma-transcript-api/pkg/config"
	"github.com/noah-isme/sma-transcript-api/pkg/database"
	"github.com/noah-isme/sma-transcript-api/pkg/export"
	"github.com/noah-isme/sma-transcript-api/pkg/jobs"
	"github.com/noah-isme/sma-transcript-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-transcript-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-transcript-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-transcript-api/pkg/storage"
)

// @title SMA Transcript API
// @version 1.0.0
// @description Transcript records, GPA calculation and multi-year academic history for high school registrars.
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	metrics := service.NewMetricsService()
	validate := validator.New()

	var cacheRepo service.CacheRepository
	if cfg.History.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, history cache disabled", zap.Error(err))
		} else {
			redisRepo := repository.NewCacheRepository(client, logr)
			defer redisRepo.Close() //nolint:errcheck
			cacheRepo = redisRepo
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.History.CacheTTL, logr, cfg.History.CacheEnabled)

	transcriptRepo := repository.NewTranscriptRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	exportJobRepo := repository.NewExportJobRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	studentSvc := service.NewStudentService(studentRepo, validate, logr)
	transcriptSvc := service.NewTranscriptService(transcriptRepo, studentRepo, cacheSvc, metrics, validate, logr)
	historySvc := service.NewHistoryService(transcriptRepo, cacheSvc, metrics, logr)
	importSvc := service.NewImportService(transcriptSvc, cfg.Imports.MaxFileSizeBytes, logr)
	tokenSvc := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer)

	fileStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("export storage unavailable", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportSvc := service.NewExportService(historySvc, transcriptSvc, fileStore, signer, service.ExportConfig{
		APIPrefix:            cfg.APIPrefix,
		ResultTTL:            cfg.Exports.SignedURLTTL,
		DefaultPrincipalName: cfg.School.DefaultPrincipalName,
	}, logr, export.NewCSVExporter(), export.NewPDFExporter())

	worker := service.NewExportWorker(exportJobRepo, exportSvc, metrics, cfg.Exports.WorkerRetries, logr)
	queue := jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
		Workers:       cfg.Exports.WorkerConcurrency,
		MaxRetries:    cfg.Exports.WorkerRetries,
		RetryDelay:    2 * time.Second,
		MaxRetryDelay: time.Minute,
		Logger:        logr,
	})
	exportJobSvc := service.NewExportJobService(exportJobRepo, queue, exportSvc, metrics, logr, service.ExportJobConfig{
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
	})

	if cfg.Exports.Enabled {
		queue.Start(ctx)
		defer queue.Stop()
		exportJobSvc.RecoverPendingJobs(ctx)
		exportJobSvc.StartCleanup(ctx)
	}

	studentHandler := handler.NewStudentHandler(studentSvc, transcriptSvc)
	transcriptHandler := handler.NewTranscriptHandler(transcriptSvc, importSvc, exportSvc)
	historyHandler := handler.NewHistoryHandler(historySvc, exportSvc)
	exportHandler := handler.NewExportHandler(exportJobSvc)
	metricsHandler := handler.NewMetricsHandler(metrics)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	// signed token is the credential
	api.GET("/exports/download/:token", exportHandler.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(tokenSvc))

	readers := secured.Group("")
	readers.Use(middleware.CanRead())
	writers := secured.Group("")
	writers.Use(middleware.CanWrite())

	readers.GET("/students", studentHandler.List)
	readers.GET("/students/:id", studentHandler.Get)
	writers.POST("/students", middleware.Audit(auditRepo, logr, models.AuditActionCreate, "student", ""), studentHandler.Create)
	writers.PUT("/students/:id", middleware.Audit(auditRepo, logr, models.AuditActionUpdate, "student", "id"), studentHandler.Update)
	writers.DELETE("/students/:id", middleware.Audit(auditRepo, logr, models.AuditActionDelete, "student", "id"), studentHandler.Delete)
	writers.POST("/students/:id/transcripts", middleware.Audit(auditRepo, logr, models.AuditActionCreate, "transcript", "id"), studentHandler.CreateTranscript)

	readers.GET("/students/:id/history", historyHandler.Get)
	readers.GET("/students/:id/history/export", middleware.Audit(auditRepo, logr, models.AuditActionExport, "academic_history", "id"), historyHandler.Export)
	readers.GET("/students/:id/history/exports", exportHandler.ListHistoryExports)
	readers.POST("/students/:id/history/exports", middleware.Audit(auditRepo, logr, models.AuditActionExport, "academic_history", "id"), exportHandler.CreateHistoryExport)

	readers.GET("/transcripts", transcriptHandler.List)
	readers.GET("/transcripts/export", transcriptHandler.ExportList)
	readers.GET("/transcripts/:id", transcriptHandler.Get)
	readers.GET("/transcripts/:id/export", middleware.Audit(auditRepo, logr, models.AuditActionExport, "transcript", "id"), transcriptHandler.Export)
	readers.POST("/transcripts/:id/exports", middleware.Audit(auditRepo, logr, models.AuditActionExport, "transcript", "id"), exportHandler.CreateTranscriptExport)
	writers.POST("/transcripts", middleware.Audit(auditRepo, logr, models.AuditActionCreate, "transcript", ""), transcriptHandler.Create)
	writers.POST("/transcripts/import", middleware.Audit(auditRepo, logr, models.AuditActionImport, "transcript", ""), transcriptHandler.Import)
	writers.PUT("/transcripts/:id", middleware.Audit(auditRepo, logr, models.AuditActionUpdate, "transcript", "id"), transcriptHandler.Update)
	writers.DELETE("/transcripts/:id", middleware.Audit(auditRepo, logr, models.AuditActionDelete, "transcript", "id"), transcriptHandler.Delete)

	readers.POST("/gpa/preview", transcriptHandler.Preview)
	readers.GET("/exports/:id", exportHandler.Status)

	secured.GET("/metrics/summary", middleware.RequireRoles(models.RoleAdmin), metricsHandler.Summary)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
