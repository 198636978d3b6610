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

	_ "github.com/campuslink/sar-portal-api/api/swagger"
	"github.com/campuslink/sar-portal-api/internal/handler"
	"github.com/campuslink/sar-portal-api/internal/middleware"
	"github.com/campuslink/sar-portal-api/internal/models"
	"github.com/campuslink/sar-portal-api/internal/repository"
	"github.com/campuslink/sar-portal-api/internal/service"
	"github.com/campuslink/sar-portal-api/pkg/cache"
	"github.com/campuslink/sar-portal-api/pkg/config"
	"github.com/campuslink/sar-portal-api/pkg/database"
	"github.com/campuslink/sar-portal-api/pkg/logger"
	corsmiddleware "github.com/campuslink/sar-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campuslink/sar-portal-api/pkg/middleware/requestid"
	"github.com/campuslink/sar-portal-api/pkg/storage"
)

// @title SAR Portal API
// @version 0.1.0
// @description Student administration and record portal
// @BasePath /api/v1
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	bookletStore, err := storage.NewLocalStorage(cfg.Booklet.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init booklet storage", "error", err)
	}
	uploadStore, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init upload storage", "error", err)
	}

	validate := validator.New()

	// Repositories.
	studentRepo := repository.NewStudentRepository(db)
	recordRepo := repository.NewAcademicRecordRepository(db)
	portfolioRepo := repository.NewPortfolioRepository(db)
	verificationRepo := repository.NewVerificationRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Completion.CacheTTL, logr, cfg.Completion.CacheEnabled)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "sar-portal-api",
	})

	smtpSender := &service.SMTPSender{
		Addr: fmt.Sprintf("%s:%d", cfg.Notifications.SMTPHost, cfg.Notifications.SMTPPort),
		From: cfg.Notifications.FromAddress,
	}
	notificationSvc := service.NewNotificationService(smtpSender, cfg.Notifications.Enabled, cfg.Notifications.Workers, cfg.Notifications.MaxRetries, logr)

	studentSvc := service.NewStudentService(studentRepo, userRepo, cacheSvc, validate, logr)
	recordSvc := service.NewRecordService(recordRepo, userRepo, cacheSvc, logr)
	portfolioSvc := service.NewPortfolioService(portfolioRepo, cacheSvc, validate, logr)
	verificationSvc := service.NewVerificationService(studentRepo, verificationRepo, userRepo, notificationSvc, cacheSvc, logr)
	completionSvc := service.NewCompletionService(studentRepo, recordRepo, portfolioRepo, cacheSvc, cfg.Completion.CacheEnabled, cfg.Completion.CacheTTL, logr)

	signer := storage.NewSignedURLSigner(cfg.Booklet.SignedURLSecret, cfg.Booklet.SignedURLTTL)
	bookletSvc := service.NewBookletService(studentRepo, recordRepo, portfolioRepo, bookletStore, signer, userRepo, logr)
	uploadSvc := service.NewUploadService(uploadStore, cfg.Uploads.MaxFileSizeBytes, cfg.Uploads.AllowedMIMEs, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(studentSvc, uploadSvc)
	verificationHandler := handler.NewVerificationHandler(verificationSvc, metricsSvc)
	recordHandler := handler.NewRecordHandler(recordSvc)
	portfolioHandler := handler.NewPortfolioHandler(portfolioSvc)
	completionHandler := handler.NewCompletionHandler(completionSvc)
	bookletHandler := handler.NewBookletHandler(bookletSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	staff := []string{string(models.RoleSuperAdmin), string(models.RoleAdmin), string(models.RoleReviewer)}
	admins := []string{string(models.RoleSuperAdmin), string(models.RoleAdmin)}

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
			auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
		}

		protected := api.Group("")
		protected.Use(middleware.JWT(authSvc))
		{
			protected.GET("/students", middleware.RBAC(staff...), studentHandler.List)
			protected.POST("/students", studentHandler.Submit)
			protected.GET("/students/me", studentHandler.Me)
			protected.GET("/students/:id", middleware.RBAC(append(staff, "SELF")...), studentHandler.Get)
			protected.PUT("/students/:id", middleware.RBAC(admins...), studentHandler.Update)
			protected.DELETE("/students/:id", middleware.RBAC(admins...), studentHandler.Delete)
			protected.POST("/students/:id/documents", middleware.RBAC(append(admins, "SELF")...), studentHandler.UploadDocument)

			verification := protected.Group("/students/:id/verification", middleware.RBAC(staff...))
			{
				verification.POST("", verificationHandler.Open)
				verification.GET("", verificationHandler.Get)
				verification.PUT("/verdicts", verificationHandler.SetVerdict)
				verification.POST("/verify-section", verificationHandler.VerifySection)
				verification.POST("/advance", verificationHandler.Advance)
				verification.POST("/retreat", verificationHandler.Retreat)
				verification.POST("/finalize", verificationHandler.Finalize)
				verification.POST("/approve-all", verificationHandler.ApproveAll)
				verification.POST("/decline-all", verificationHandler.DeclineAll)
				verification.GET("/outcome", verificationHandler.Outcome)
			}
			protected.GET("/verifications/history", middleware.RBAC(staff...), verificationHandler.History)

			protected.GET("/students/:id/records", middleware.RBAC(append(staff, "SELF")...), recordHandler.ListByStudent)
			protected.POST("/students/:id/records", middleware.RBAC(append(admins, "SELF")...), recordHandler.Create)
			protected.GET("/records/:recordId", recordHandler.Get)
			protected.PUT("/records/:recordId", middleware.RBAC(admins...), recordHandler.Update)
			protected.POST("/records/:recordId/recompute", middleware.RBAC(admins...), recordHandler.Recompute)
			protected.DELETE("/records/:recordId", middleware.RBAC(admins...), recordHandler.Delete)

			protected.GET("/students/:id/internships", middleware.RBAC(append(staff, "SELF")...), portfolioHandler.ListInternships)
			protected.POST("/students/:id/internships", middleware.RBAC(append(admins, "SELF")...), portfolioHandler.CreateInternship)
			protected.PUT("/students/:id/internships/:entryId", middleware.RBAC(append(admins, "SELF")...), portfolioHandler.UpdateInternship)
			protected.DELETE("/students/:id/internships/:entryId", middleware.RBAC(append(admins, "SELF")...), portfolioHandler.DeleteInternship)

			protected.GET("/students/:id/achievements", middleware.RBAC(append(staff, "SELF")...), portfolioHandler.ListAchievements)
			protected.POST("/students/:id/achievements", middleware.RBAC(append(admins, "SELF")...), portfolioHandler.CreateAchievement)
			protected.PUT("/students/:id/achievements/:entryId", middleware.RBAC(append(admins, "SELF")...), portfolioHandler.UpdateAchievement)
			protected.DELETE("/students/:id/achievements/:entryId", middleware.RBAC(append(admins, "SELF")...), portfolioHandler.DeleteAchievement)

			protected.GET("/students/:id/completion", middleware.RBAC(append(staff, "SELF")...), completionHandler.Score)
			protected.POST("/students/:id/booklet", middleware.RBAC(append(staff, "SELF")...), bookletHandler.Export)
			protected.GET("/metrics/snapshot", middleware.RBAC(admins...), metricsHandler.Snapshot)
		}

		// Download is authorized by the signed token alone.
		api.GET("/booklets/download", bookletHandler.Download)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notificationSvc.Start(ctx)
	defer notificationSvc.Stop()

	if cfg.Booklet.CleanupInterval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.Booklet.CleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					removed, err := bookletStore.CleanupOlderThan(cfg.Booklet.SignedURLTTL)
					if err != nil {
						logr.Sugar().Warnw("booklet cleanup failed", "error", err)
					} else if len(removed) > 0 {
						logr.Sugar().Infow("expired booklets removed", "count", len(removed))
					}
				}
			}
		}()
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
}
