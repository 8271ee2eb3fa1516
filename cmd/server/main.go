package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/wingopay/backend/docs"
	"github.com/wingopay/backend/internal/audit"
	"github.com/wingopay/backend/internal/config"
	"github.com/wingopay/backend/internal/database"
	"github.com/wingopay/backend/internal/handlers"
	mW "github.com/wingopay/backend/internal/middleware"
	"github.com/wingopay/backend/internal/services"
)

// @title Wingopay Wallet API
// @version 1.0
// @description Wallet ledger and funding API for the prediction platform
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	// Initialize config
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()
	viper.ReadInConfig()

	viper.SetEnvPrefix("")

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")
	viper.BindEnv("argon2.time", "ARGON2_TIME")
	viper.BindEnv("argon2.memory", "ARGON2_MEMORY")
	viper.BindEnv("argon2.threads", "ARGON2_THREADS")
	viper.BindEnv("argon2.key_length", "ARGON2_KEY_LENGTH")
	viper.BindEnv("argon2.salt_length", "ARGON2_SALT_LENGTH")

	viper.BindEnv("wallet.min_withdrawal", "WALLET_MIN_WITHDRAWAL")
	viper.BindEnv("wallet.max_withdrawal", "WALLET_MAX_WITHDRAWAL")
	viper.BindEnv("wallet.max_deposit", "WALLET_MAX_DEPOSIT")
	viper.BindEnv("wallet.wager_multiplier", "WALLET_WAGER_MULTIPLIER")
	viper.BindEnv("wallet.wager_policy", "WALLET_WAGER_POLICY")
	viper.BindEnv("wallet.lock_timeout", "WALLET_LOCK_TIMEOUT")
	viper.BindEnv("wallet.stats_cache_ttl", "WALLET_STATS_CACHE_TTL")
	viper.BindEnv("wallet.settlement_queue", "WALLET_SETTLEMENT_QUEUE")
	viper.BindEnv("wallet.settlement_max_retries", "WALLET_SETTLEMENT_MAX_RETRIES")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	// Initialize Swagger docs
	docs.SwaggerInfo.Title = "Wingopay Wallet API"
	docs.SwaggerInfo.Description = "Wallet ledger and funding API for the prediction platform"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	walletCfg := config.LoadWalletConfig()

	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	auditLogger := audit.NewLogger()

	ledgerService := services.NewLedgerService(db, walletCfg)
	wagerService := services.NewWagerService(db, redisClient, ledgerService, walletCfg)
	fundingService := services.NewFundingService(db, ledgerService, wagerService, walletCfg)
	adminService := services.NewAdminService(db, redisClient, ledgerService, fundingService, walletCfg)
	authService := services.NewAuthService(db, redisClient, ledgerService)
	settingsService := services.NewSettingsService(db, redisClient, auditLogger)
	settingsHandler := handlers.NewSettingsHandler(settingsService)

	// Settlement consumer drains the bet results queue in the background.
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	go wagerService.RunSettlementConsumer(consumerCtx)

	// Setup router
	r := chi.NewRouter()

	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Access-Control-Allow-Origin"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints (no auth required)
		r.Post("/auth/register", authService.Register)
		r.Post("/auth/login", authService.Login)
		r.Post("/auth/logout", authService.Logout)

		// Player endpoints (auth required)
		r.Group(func(r chi.Router) {
			r.Use(mW.Auth(redisClient))

			r.Get("/user/balance", authService.GetBalance)
			r.Get("/user/transactions", ledgerService.TransactionHistory)

			r.Get("/deposit/payment-info", settingsHandler.GetPaymentInfo)
			r.Post("/deposit/request", fundingService.SubmitDeposit)
			r.Get("/deposit/history", fundingService.DepositHistory)

			r.Post("/withdrawal/request", fundingService.SubmitWithdrawal)
			r.Get("/withdrawal/history", fundingService.WithdrawalHistory)
		})

		// Admin endpoints
		r.Group(func(r chi.Router) {
			r.Use(mW.Auth(redisClient))
			r.Use(mW.RequireAdmin)

			r.Get("/admin/dashboard-stats", adminService.GetDashboardStats)
			r.Get("/admin/users", adminService.ListUsers)
			r.Get("/admin/search-player", adminService.SearchPlayer)
			r.Post("/admin/player-management", adminService.PlayerManagement)

			r.Get("/admin/deposits", adminService.ListDeposits)
			r.Get("/admin/withdrawals", adminService.ListWithdrawals)
			r.Post("/admin/deposits/{id}/{decision}", fundingService.DecideDeposit)
			r.Post("/admin/withdrawals/{id}/{decision}", fundingService.DecideWithdrawal)

			r.Get("/admin/payment-settings", settingsHandler.GetPaymentSettings)
			r.Put("/admin/payment-settings", settingsHandler.UpdatePaymentSettings)
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	stopConsumer()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
