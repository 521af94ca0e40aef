package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/verimart/verimart/internal/domain"
	"github.com/verimart/verimart/internal/http/handlers"
	httpmw "github.com/verimart/verimart/internal/http/middleware"
	"github.com/verimart/verimart/internal/mailer"
	"github.com/verimart/verimart/internal/repo/postgres"
	redisrepo "github.com/verimart/verimart/internal/repo/redis"
	"github.com/verimart/verimart/internal/service"
	"github.com/verimart/verimart/pkg/config"
	"github.com/verimart/verimart/pkg/database"
	"github.com/verimart/verimart/pkg/events"
	"github.com/verimart/verimart/pkg/logger"
	mw "github.com/verimart/verimart/pkg/middleware"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found", "error", err)
	}

	cfg := config.Load()

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Error("Invalid Redis URL", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	// Repositories
	attrRepo := postgres.NewAttributeRepo(pool)
	userRepo := postgres.NewUserRepo(pool)
	verifyRepo := postgres.NewVerifyRepo(pool)
	sellerRepo := postgres.NewSellerRepo(pool)
	itemRepo := postgres.NewItemRepo(pool)

	limiter := redisrepo.NewLimiter(redisClient)
	idemStore := redisrepo.NewIdempotencyStore(redisClient)

	// Services
	mailSvc := mailer.New(cfg.Email)
	authService := service.NewAuthService(userRepo, attrRepo, eventBus, cfg)
	accountService := service.NewAccountService(verifyRepo, userRepo, mailSvc, eventBus, cfg)
	adminService := service.NewAdminService(userRepo, sellerRepo, eventBus)
	itemService := service.NewItemService(itemRepo, sellerRepo, userRepo, eventBus)

	bootstrapAdmin(ctx, cfg, adminService)

	// HTTP surface
	gate := httpmw.NewGate(cfg.Auth.JWTSecret, attrRepo, userRepo)
	h := handlers.New(authService, accountService, adminService, itemService)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("api"))
	r.Use(mw.Logging)
	r.Use(mw.Recoverer)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Mount("/", handlers.NewRouter(h, handlers.RouterDeps{
		Gate:        gate,
		Limiter:     limiter,
		Idempotency: idemStore,
	}))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down API server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	}()

	logger.Info("Starting API server", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}

// bootstrapAdmin provisions the first admin account from the environment.
// Re-running against an existing account is a no-op.
func bootstrapAdmin(ctx context.Context, cfg *config.Config, adminService service.AdminService) {
	user := cfg.Auth.BootstrapAdminUser
	pass := cfg.Auth.BootstrapAdminPass
	if user == "" || pass == "" {
		return
	}

	_, err := adminService.CreateAdmin(ctx, &domain.RegisterRequest{Username: user, Password: pass})
	switch {
	case err == nil:
		logger.Info("Bootstrap admin created", "username", user)
	case errors.Is(err, domain.ErrDuplicateUsername):
		logger.Debug("Bootstrap admin already exists", "username", user)
	default:
		logger.Error("Failed to bootstrap admin", "error", err, "username", user)
		os.Exit(1)
	}
}
