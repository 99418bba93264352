package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm/logger"

	"github.com/vibtrix/vibtrix-api/internal/config"
	"github.com/vibtrix/vibtrix-api/internal/handler"
	"github.com/vibtrix/vibtrix-api/internal/middleware"
	"github.com/vibtrix/vibtrix-api/internal/observability/metrics"
	pgRepo "github.com/vibtrix/vibtrix-api/internal/repository/postgres"
	redisRepo "github.com/vibtrix/vibtrix-api/internal/repository/redis"
	"github.com/vibtrix/vibtrix-api/internal/service"
	"github.com/vibtrix/vibtrix-api/internal/service/qualification"
	ws "github.com/vibtrix/vibtrix-api/internal/websocket"
	"github.com/vibtrix/vibtrix-api/pkg/auth"
	"github.com/vibtrix/vibtrix-api/pkg/database"
)

func main() {
	// .env необязателен: в продакшене переменные задаются окружением
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: failed to load .env file: %v", err)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	isProduction := gin.Mode() == gin.ReleaseMode
	dbLogLevel := logger.Info
	if isProduction {
		dbLogLevel = logger.Warn
	}

	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString(), dbLogLevel)
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	if err := database.MigrateDB(db, cfg.Database.MigrationsPath); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Репозитории
	competitionRepo := pgRepo.NewCompetitionRepo(db)
	roundRepo := pgRepo.NewRoundRepo(db)
	participantRepo := pgRepo.NewParticipantRepo(db)
	entryRepo := pgRepo.NewRoundEntryRepo(db)
	postRepo := pgRepo.NewPostRepo(db)
	sweepRunRepo := pgRepo.NewSweepRunRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}

	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpirationHrs, cfg.JWT.WSTicketExpirySec)
	if err != nil {
		log.Printf("Failed to initialize JWTService: %v", err)
		os.Exit(1)
	}

	// Сервисы
	competitionService := service.NewCompetitionService(competitionRepo, roundRepo, db)
	participationService := service.NewParticipationService(competitionRepo, participantRepo, entryRepo, postRepo, db)
	postService := service.NewPostService(postRepo)
	feedService := service.NewFeedService(competitionRepo, entryRepo, cacheRepo, cfg.Cache.FeedTTL())

	// WebSocket
	wsHub := ws.NewHub()
	wsManager := ws.NewManager(wsHub, competitionService.ValidateSubscription)

	// Метрики
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "websocket_clients",
			Help: "Number of connected websocket clients",
		}, func() float64 { return float64(wsHub.ClientCount()) }),
	)
	qualificationMetrics, err := metrics.NewQualificationMetrics(registry)
	if err != nil {
		log.Printf("Failed to initialize metrics: %v", err)
		os.Exit(1)
	}

	// Квалификация
	qualificationConfig := &qualification.Config{
		Concurrency:   cfg.Cron.Concurrency,
		SweepInterval: cfg.Cron.SweepInterval(),
		SweepTimeout:  cfg.Cron.SweepTimeout(),
	}
	reportStore := qualification.NewReportStore(cacheRepo, sweepRunRepo, cfg.Cache.ReportTTL())
	processor := qualification.NewProcessor(qualificationConfig, &qualification.Dependencies{
		DB:              db,
		CompetitionRepo: competitionRepo,
		ParticipantRepo: participantRepo,
		EntryRepo:       entryRepo,
		Events:          wsHub,
		Cache:           feedService,
		Reports:         reportStore,
		Metrics:         qualificationMetrics,
	})

	var scheduler *qualification.Scheduler
	if cfg.Cron.Enabled {
		scheduler, err = qualification.NewScheduler(qualificationConfig, processor)
		if err != nil {
			log.Printf("Failed to create qualification scheduler: %v", err)
			os.Exit(1)
		}
		scheduler.UseLock(cacheRepo)
		if err := scheduler.Start(); err != nil {
			log.Printf("Failed to start qualification scheduler: %v", err)
			os.Exit(1)
		}
	}

	router := gin.Default()

	// В production не доверяем прокси-заголовкам (защита от IP spoofing)
	trustedProxies := []string{"127.0.0.1", "::1"}
	if isProduction {
		trustedProxies = nil
	}
	if err := router.SetTrustedProxies(trustedProxies); err != nil {
		log.Printf("Warning: failed to set trusted proxies: %v", err)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes := &handler.Routes{
		Competition:   handler.NewCompetitionHandler(competitionService, processor),
		Participation: handler.NewParticipationHandler(participationService),
		Post:          handler.NewPostHandler(postService),
		Feed:          handler.NewFeedHandler(feedService),
		Cron:          handler.NewCronHandler(processor, reportStore),
		WS:            handler.NewWSHandler(wsHub, wsManager, jwtService, competitionService.ValidateSubscription, cfg.CORS.AllowedOrigins),
		Auth:          middleware.NewAuthMiddleware(jwtService),
		CronSecret:    cfg.Cron.Secret,
		RateLimiter:   middleware.NewRateLimiter(redisClient),
	}
	routes.Register(router)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// Тайм-ауты защищают от slow client attacks.
	// WriteTimeout не применяется к уже обновленным WebSocket соединениям.
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	if scheduler != nil {
		if err := scheduler.Shutdown(); err != nil {
			log.Printf("Error stopping qualification scheduler: %v", err)
		}
	}
	wsHub.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if err := redisClient.Close(); err != nil {
		log.Printf("Error closing Redis client: %v", err)
	}
	if sqlDB, err := database.GetSQLDB(db); err == nil {
		_ = sqlDB.Close()
	}

	log.Println("Server exited properly")
}
