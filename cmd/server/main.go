package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gymdesk/platform/internal/ai"
	"gymdesk/platform/internal/api"
	"gymdesk/platform/internal/cache"
	"gymdesk/platform/internal/checkout"
	"gymdesk/platform/internal/config"
	"gymdesk/platform/internal/logger"
	"gymdesk/platform/internal/metrics"
	"gymdesk/platform/internal/realtime"
	"gymdesk/platform/internal/repository/mongo"
	"gymdesk/platform/internal/schedule"
	"gymdesk/platform/internal/scheduler"
	"gymdesk/platform/internal/service"
	"gymdesk/platform/internal/storage"

	"github.com/gin-gonic/gin"
)

// @title GymDesk API
// @version 1.0
// @description Multi-tenant gym management: memberships, AI training plans, store, community and accounting.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	log.Info("Starting GymDesk server...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(ctx, cfg.Database.URI)
	if err != nil {
		return fmt.Errorf("could not connect to MongoDB: %w", err)
	}
	defer func() {
		log.Info("Disconnecting MongoDB...")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Errorw("failed to disconnect MongoDB", "error", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	log.Infow("Database connection established", "database", cfg.Database.Name)

	// --- Ensure Indexes ---
	// Unique indexes back upserts and duplicate checks, so they are
	// created before the server accepts requests.
	indexCtx, cancelIndexes := context.WithTimeout(ctx, time.Minute)
	mongo.EnsureIndexes(indexCtx, appDB, log)
	cancelIndexes()

	// --- Redis (cache and realtime fan-out) ---
	redisClient := cache.NewRedisClient(cfg.Redis)
	defer func() { _ = redisClient.Close() }()
	if err := cache.Ping(ctx, redisClient); err != nil {
		return err
	}
	statsCache := cache.NewRedisCache(redisClient, "gymdesk")
	broker := realtime.NewRedisBroker(redisClient, log)

	// --- Initialize Storage ---
	fileStorage, err := storage.NewS3Storage(ctx, cfg.S3, log)
	if err != nil {
		return fmt.Errorf("failed to initialize S3 storage: %w", err)
	}

	// --- External providers ---
	generator := ai.NewGenerator(ai.NewClient(cfg.AI, log), log)
	provider := checkout.NewStripeProvider(cfg.Checkout, log)

	// --- Initialize Repositories ---
	profileRepo := mongo.NewMongoProfileRepository(appDB)
	gymRepo := mongo.NewMongoGymRepository(appDB)
	planRepo := mongo.NewMongoPlanRepository(appDB)
	workoutDays := mongo.NewMongoPlanDayRepository(appDB, mongo.WorkoutDayCollection)
	nutritionDays := mongo.NewMongoPlanDayRepository(appDB, mongo.NutritionDayCollection)
	completionRepo := mongo.NewMongoCompletionRepository(appDB)
	biometricsRepo := mongo.NewMongoBiometricsRepository(appDB)
	photoRepo := mongo.NewMongoPhotoRepository(appDB)
	membershipPlanRepo := mongo.NewMongoMembershipPlanRepository(appDB)
	membershipRepo := mongo.NewMongoMembershipRepository(appDB)
	paymentRepo := mongo.NewMongoPaymentRepository(appDB)
	productRepo := mongo.NewMongoProductRepository(appDB)
	postRepo := mongo.NewMongoPostRepository(appDB)
	commentRepo := mongo.NewMongoCommentRepository(appDB)
	likeRepo := mongo.NewMongoLikeRepository(appDB)
	notificationRepo := mongo.NewMongoNotificationRepository(appDB)
	statsRepo := mongo.NewMongoStatsRepository(appDB)

	// --- Initialize Services ---
	tiers := service.NewTierCatalog(cfg.SaaS)
	currency := cfg.Checkout.Currency

	authService := service.NewAuthService(profileRepo, gymRepo, tiers, cfg.JWT.Secret, cfg.JWT.Expiration)
	notificationService := service.NewNotificationService(notificationRepo, broker, log)

	keying := schedule.KeyByCalendarMonth
	if cfg.Plans.KeyByPlanMonth {
		keying = schedule.KeyByPlanMonth
	}
	planService := service.NewPlanService(planRepo, workoutDays, nutritionDays, completionRepo, profileRepo, biometricsRepo,
		generator, notificationService, service.PlanServiceConfig{BatchSize: cfg.Plans.BatchSize, Keying: keying}, log)

	membershipService := service.NewMembershipService(membershipPlanRepo, membershipRepo, paymentRepo, profileRepo, gymRepo,
		provider, notificationService, statsCache, log)

	services := api.Services{
		Auth:         authService,
		Gym:          service.NewGymService(gymRepo, profileRepo, authService, fileStorage, currency, log),
		Plan:         planService,
		Membership:   membershipService,
		Payment:      service.NewPaymentService(paymentRepo, membershipRepo, membershipPlanRepo, productRepo, gymRepo, provider, notificationService, statsCache, log),
		SaaS:         service.NewSaaSService(gymRepo, paymentRepo, provider, tiers, currency, log),
		Accounting:   service.NewAccountingService(membershipRepo, paymentRepo, statsRepo, statsCache, cfg.Cache.StatsTTL, log),
		Store:        service.NewStoreService(productRepo, paymentRepo, gymRepo, profileRepo, provider, fileStorage, log),
		Community:    service.NewCommunityService(postRepo, commentRepo, likeRepo, profileRepo, fileStorage, notificationService, log),
		Progress:     service.NewProgressService(biometricsRepo, photoRepo, profileRepo, fileStorage, log),
		Notification: notificationService,
	}

	// --- Background jobs ---
	var jobs *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		jobs = scheduler.New(log)
		if err := jobs.AddExpiryJob(cfg.Scheduler.ExpirySchedule, membershipService); err != nil {
			return err
		}
		jobs.Start()
		log.Infow("Membership expiry scheduled", "spec", cfg.Scheduler.ExpirySchedule)
	}

	// --- Initialize Gin Engine ---
	if cfg.Server.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	metrics.Register()
	router := gin.New()
	router.Use(gin.Recovery(), api.RequestLogger(log), metrics.Middleware())

	api.SetupRoutes(router, services, api.RouterOptions{
		RequestsPerMinute: cfg.Server.RequestsPerMinute,
		Streamer:          realtime.NewStreamer(broker, cfg.Server.AllowedOrigins, log),
		Log:               log,
	})

	// --- Start HTTP Server ---
	// No WriteTimeout: plan generation and notification streams outlive it.
	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infow("Server starting", "address", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// --- Graceful Shutdown ---
	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}
	if jobs != nil {
		if err := jobs.Stop(ctxShutdown); err != nil {
			log.Warnw("scheduler did not stop in time", "error", err)
		}
	}

	log.Info("Server exiting.")
	return nil
}
