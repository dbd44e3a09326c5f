package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/canvas-alt-text-api/api/swagger"
	"github.com/noah-isme/canvas-alt-text-api/internal/canvas"
	"github.com/noah-isme/canvas-alt-text-api/internal/captioning"
	"github.com/noah-isme/canvas-alt-text-api/internal/handler"
	"github.com/noah-isme/canvas-alt-text-api/internal/imaging"
	"github.com/noah-isme/canvas-alt-text-api/internal/middleware"
	"github.com/noah-isme/canvas-alt-text-api/internal/repository"
	"github.com/noah-isme/canvas-alt-text-api/internal/service"
	"github.com/noah-isme/canvas-alt-text-api/pkg/cache"
	"github.com/noah-isme/canvas-alt-text-api/pkg/config"
	"github.com/noah-isme/canvas-alt-text-api/pkg/database"
	"github.com/noah-isme/canvas-alt-text-api/pkg/jobs"
	"github.com/noah-isme/canvas-alt-text-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/canvas-alt-text-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/canvas-alt-text-api/pkg/middleware/requestid"
)

// @title Canvas Alt Text API
// @version 0.1.0
// @description Scans LMS course content for images, captions them and writes reviewed alt text back.
// @BasePath /
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

	cacheRepo := repository.NewCacheRepository(nil, logr)
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			cacheRepo = repository.NewCacheRepository(client, logr)
		}
	}

	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	ctx := context.Background()

	captioner, err := captioning.NewGemini(ctx, cfg.Caption)
	if err != nil {
		logr.Sugar().Fatalw("failed to init captioner", "error", err)
	}
	defer captioner.Close() //nolint:errcheck

	canvasClient := canvas.NewClient(cfg.Canvas, logr)
	optimizer := imaging.NewOptimizer(cfg.Images.MaxDimension, cfg.Images.JPEGQuality)
	scanRepo := repository.NewScanRepository(db)

	enumerator := service.NewEnumeratorService(canvasClient, cfg.Images.Concurrency, logr)
	processor := service.NewImageProcessorService(canvasClient, optimizer, captioner, scanRepo, metrics, cfg.Images.Concurrency, logr)
	scanSvc := service.NewScanService(scanRepo, enumerator, processor, cacheSvc, metrics, logr)

	queue := jobs.NewQueue("course-scans", scanSvc.HandleScanJob, jobs.QueueConfig{
		Workers:    cfg.Scan.Workers,
		BufferSize: cfg.Scan.BufferSize,
		MaxRetries: cfg.Scan.MaxRetries,
		Logger:     logr,
	})
	queue.Start(ctx)
	defer queue.Stop()
	scanSvc.SetQueue(queue)

	if err := scanSvc.RecoverPendingScans(ctx); err != nil {
		logr.Sugar().Warnw("scan recovery failed", "error", err)
	}

	updateSvc := service.NewAltTextUpdateService(canvasClient, scanRepo, cacheSvc, canvasClient.Domain(), cfg.Images.Concurrency, logr)
	altText := handler.NewAltTextHandler(scanSvc, updateSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	courses := api.Group("/alt-text/courses/:courseId")
	courses.POST("/scan", altText.StartScan)
	courses.GET("/scan", altText.ScanStatus)
	courses.GET("/content-images", altText.ContentImages)
	courses.PUT("/content-images", altText.SubmitUpdate)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
