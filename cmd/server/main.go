package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/aeroguard/aeroguard-api/internal/config"
	"github.com/aeroguard/aeroguard-api/internal/handler"
	"github.com/aeroguard/aeroguard-api/internal/middleware"
	"github.com/aeroguard/aeroguard-api/internal/model"
	"github.com/aeroguard/aeroguard-api/internal/mqtt"
	"github.com/aeroguard/aeroguard-api/internal/observability"
	"github.com/aeroguard/aeroguard-api/internal/repository"
	"github.com/aeroguard/aeroguard-api/internal/service"
	"github.com/aeroguard/aeroguard-api/internal/ws"
	"github.com/aeroguard/aeroguard-api/migrations"
	"github.com/aeroguard/aeroguard-api/pkg/airquality"
	"github.com/aeroguard/aeroguard-api/pkg/storage"
)

// @title           AeroGuard API
// @version         1.0
// @description     Hyperlocal air quality ingest backend: sensor payload normalization, AQI derivation, live WebSocket feed.

// @contact.name   API Support
// @contact.email  support@aeroguard.local

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      api.localhost
// @BasePath  /api/v1

func main() {
	// ==================== Load Config ====================
	cfg := config.Load()
	log.Printf("🚀 Starting AeroGuard API Server [env=%s]", cfg.App.Env)

	// ==================== Database (PostgreSQL) ====================
	gormLogger := logger.Default.LogMode(logger.Info)
	if cfg.App.Env == "production" {
		gormLogger = logger.Default.LogMode(logger.Warn)
	}

	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	log.Println("✅ Connected to PostgreSQL")

	// ==================== Run Migrations ====================
	if err := migrations.Run(cfg.DB.URL()); err != nil {
		log.Printf("⚠️  Migration warning: %v", err)
		log.Println("📦 Falling back to GORM AutoMigrate...")
		// Fallback to AutoMigrate if migration files fail
		if err := db.AutoMigrate(
			&model.Device{},
			&model.Measurement{},
		); err != nil {
			log.Fatalf("❌ Failed to migrate database: %v", err)
		}
	}
	log.Println("✅ Database migrated successfully")

	// ==================== Redis ====================
	// The hub runs local-only when Redis is unreachable; a single instance
	// does not need the pub/sub fanout.
	var rdb *redis.Client
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       0,
	})
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		log.Printf("⚠️  Redis not available: %v (live feed is local-only)", err)
	} else {
		rdb = client
		log.Println("✅ Connected to Redis")
	}

	// ==================== Metrics ====================
	metrics := observability.NewMetrics()

	// ==================== Initialize Layers ====================
	// Repositories
	deviceRepo := repository.NewDeviceRepository(db)
	measurementRepo := repository.NewMeasurementRepository(db)

	// WebSocket Hub (with Redis Pub/Sub for horizontal scaling)
	hub := ws.NewHub(rdb)
	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	go hub.Run(hubCtx)

	// External PM2.5 enrichment
	var enricher service.AirQualityLookup
	if cfg.AirQuality.Enabled {
		aqClient := airquality.NewClient(cfg.AirQuality.Timeout)
		aqClient.SetBaseURL(cfg.AirQuality.BaseURL)
		enricher = aqClient
		log.Println("✅ Air quality enrichment enabled")
	}

	// MinIO raw payload archive (feeds the offline calibration pipeline)
	var archiver storage.Archiver
	if cfg.MinIO.Enabled {
		minioArchive, err := storage.NewMinIOArchive(storage.Config{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			UseSSL:    cfg.MinIO.UseSSL,
		})
		if err != nil {
			log.Printf("⚠️  MinIO not available: %v (raw payload archive disabled)", err)
		} else {
			archiver = minioArchive
			log.Println("✅ Connected to MinIO")
		}
	}

	// Services
	ingestService := service.NewIngestService(
		deviceRepo, measurementRepo, hub, enricher, archiver, metrics, cfg.AirQuality.Timeout,
	)
	deviceService := service.NewDeviceService(deviceRepo, measurementRepo)

	// MQTT bridge (field nodes publish over MQTT when available)
	if cfg.MQTT.Broker != "" {
		bridge, err := mqtt.NewBridge(cfg.MQTT, ingestService)
		if err != nil {
			log.Printf("⚠️  MQTT bridge not available: %v (HTTP ingest only)", err)
		} else {
			defer bridge.Close()
			log.Printf("✅ MQTT bridge subscribed to %s", cfg.MQTT.Topic)
		}
	}

	// Handlers
	ingestHandler := handler.NewIngestHandler(ingestService)
	deviceHandler := handler.NewDeviceHandler(deviceService)
	wsHandler := handler.NewWSHandler(hub)

	// ==================== Gin Router ====================
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Swagger configuration
	// Serve swagger.json at /docs/swagger.json to avoid conflict with /swagger/* wildcard
	router.StaticFile("/docs/swagger.json", "./docs/swagger.json")
	url := ginSwagger.URL("/docs/swagger.json")
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, url))

	// Global middleware
	router.Use(middleware.CORSMiddleware(cfg.CORS.Origins))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "aeroguard-api",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ==================== API Routes ====================
	api := router.Group("/api/v1")
	{
		// Sensor ingest (HMAC-signed payloads, no session auth)
		api.POST("/ingest", ingestHandler.Ingest)

		// Devices
		api.POST("/devices", deviceHandler.Register)
		api.GET("/devices", deviceHandler.List)
		api.GET("/devices/:id", deviceHandler.Get)
		api.GET("/devices/:id/measurements", deviceHandler.Measurements)

		// Measurements
		api.GET("/measurements/latest", deviceHandler.Latest)
	}

	// WebSocket endpoint (read-only dashboard stream)
	router.GET("/ws", wsHandler.HandleWebSocket)

	// ==================== Start Server ====================
	srv := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	log.Printf("🌐 AeroGuard API running on http://0.0.0.0:%s", cfg.App.Port)
	log.Printf("📋 API docs: http://0.0.0.0:%s/swagger/index.html", cfg.App.Port)
	log.Printf("🔌 WebSocket: ws://0.0.0.0:%s/ws?device_id=<optional>", cfg.App.Port)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down server...")

	// Give ongoing requests 5 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	hubCancel()
	log.Println("✅ Server exited gracefully")
}
