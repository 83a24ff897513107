package main

import (
	"log"
	"net/http"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/yukikurage/taskscope/internal/config"
	"github.com/yukikurage/taskscope/internal/constants"
	"github.com/yukikurage/taskscope/internal/database"
	"github.com/yukikurage/taskscope/internal/handlers"
	"github.com/yukikurage/taskscope/internal/notifications"
	"github.com/yukikurage/taskscope/internal/repository"
	"github.com/yukikurage/taskscope/internal/services"
	"github.com/yukikurage/taskscope/internal/throttle"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	db := database.GetDB()

	// Setup session store with Redis
	store, err := redisStore.NewStore(
		10,    // Redis pool size
		"tcp", // network type
		cfg.RedisAddr(),
		"", // username (empty for default user)
		cfg.RedisPassword,
		[]byte(cfg.SessionSecret), // authentication key
	)
	if err != nil {
		log.Fatalf("Failed to create Redis store: %v", err)
	}
	// Configure session options based on environment
	isProduction := cfg.GinMode == gin.ReleaseMode
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
	})

	// Redis client for OTP request throttling
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()

	// Notification sender; fall back to the log when SMTP is not configured
	var sender notifications.Sender = notifications.LogSender{}
	if cfg.SMTPUsername != "" && cfg.SMTPPassword != "" {
		sender = notifications.NewSMTPSender(notifications.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.DefaultFromEmail,
		})
	} else {
		log.Println("SMTP credentials not set; one-time passcodes will be logged instead of emailed")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	passcodeRepo := repository.NewPasscodeRepository(db)

	// Initialize services
	svc := handlers.Services{
		Auth:    services.NewAuthService(userRepo),
		Account: services.NewAccountService(userRepo, taskRepo),
		Task:    services.NewTaskService(taskRepo, userRepo),
		OTP: services.NewOTPService(
			userRepo,
			passcodeRepo,
			sender,
			throttle.NewRedisThrottle(redisClient, constants.OTPThrottleKeyBase),
			services.OTPConfig{
				TTL:          cfg.OTPTTL,
				MaxAttempts:  cfg.OTPMaxAttempts,
				ResendWindow: cfg.OTPResendWindow,
			},
		),
		Token: services.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAccessTTL, cfg.JWTRefreshTTL),
	}

	// Initialize Gin router
	r := gin.Default()
	handlers.SetupRouter(r, db, store, svc)

	// Start server
	log.Printf("Server starting on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
