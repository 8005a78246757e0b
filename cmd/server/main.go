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

	"github.com/demobank/backend/docs"
	"github.com/demobank/backend/internal/config"
	"github.com/demobank/backend/internal/database"
	"github.com/demobank/backend/internal/events/kafka"
	"github.com/demobank/backend/internal/handlers"
	mW "github.com/demobank/backend/internal/middleware"
	"github.com/demobank/backend/internal/services"
	"github.com/demobank/backend/internal/storage/postgres"
)

// @title Demobank Ledger API
// @version 1.0
// @description Funds-transfer and ledger backend for the demobank application
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()
	viper.ReadInConfig()

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
	viper.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	viper.BindEnv("kafka.topic", "KAFKA_TOPIC")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	docs.SwaggerInfo.Title = "Demobank Ledger API"
	docs.SwaggerInfo.Description = "Funds-transfer and ledger backend for the demobank application"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	var events services.EventPublisher
	if brokers := viper.GetStringSlice("kafka.brokers"); len(brokers) > 0 {
		viper.SetDefault("kafka.topic", "transfer.completed")
		publisher := kafka.NewPublisher(brokers, viper.GetString("kafka.topic"))
		defer publisher.Close()
		events = publisher
		log.Printf("Kafka publisher initialized for topic %s", viper.GetString("kafka.topic"))
	} else {
		log.Println("Kafka brokers not configured, transfer events disabled")
	}

	accountStore := postgres.NewAccountStore(db)
	transactionLog := postgres.NewTransactionLog(db)
	ledgerCfg := config.LoadLedgerConfig()

	ledgerService := services.NewLedgerService(accountStore, transactionLog, redisClient, events, ledgerCfg)
	accountService := services.NewAccountService(accountStore)

	transferHandler := handlers.NewTransferHandler(ledgerService)
	accountHandler := handlers.NewAccountHandler(accountService)
	reportHandler := handlers.NewReportHandler(ledgerService, accountStore)

	r := chi.NewRouter()

	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			r.Get("/accounts/me", accountHandler.GetMyAccount)
			r.Put("/accounts/me/name", accountHandler.UpdateMyName)

			r.Post("/transfers", transferHandler.CreateTransfer)
			r.Get("/transfers", transferHandler.GetStatement)

			r.Get("/reports/summary", reportHandler.GetSummary)
			r.Get("/reports/monthly", reportHandler.GetMonthly)
			r.Get("/reports/top-recipients", reportHandler.GetTopRecipients)

			r.Group(func(r chi.Router) {
				r.Use(mW.RequireAdmin)

				r.Get("/admin/accounts", accountHandler.ListAccounts)
				r.Put("/admin/accounts/{id}/balance", accountHandler.SetBalance)
				r.Put("/admin/accounts/{id}/disabled", accountHandler.SetDisabled)
				r.Delete("/admin/accounts/{id}", accountHandler.DeleteAccount)

				r.Get("/admin/transactions", transferHandler.ListAllTransactions)
				r.Get("/admin/reports/summary", reportHandler.GetAdminSummary)
				r.Get("/admin/reports/sent-by-user", reportHandler.GetSentByUser)
			})
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
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
