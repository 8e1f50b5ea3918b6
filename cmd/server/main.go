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

	"github.com/phoneshop/backend/docs"
	"github.com/phoneshop/backend/internal/database"
	mW "github.com/phoneshop/backend/internal/middleware"
	"github.com/phoneshop/backend/internal/services"
)

// @title Phone Shop POS Backend API
// @version 1.0
// @description API for phone shop point-of-sale and inventory tracking
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	// Initialize config
	viper.SetConfigFile(".env") // explicitly point to .env file
	viper.AutomaticEnv()        // allow environment variables to override .env

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
	viper.BindEnv("inventory.low_stock_threshold", "LOW_STOCK_THRESHOLD")

	viper.SetDefault("jwt.expiry_hours", 24)
	viper.SetDefault("argon2.time", 1)
	viper.SetDefault("argon2.memory", 64*1024)
	viper.SetDefault("argon2.threads", 4)
	viper.SetDefault("argon2.key_length", 32)
	viper.SetDefault("argon2.salt_length", 16)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	docs.SwaggerInfo.Host = viper.GetString("server.host")
	if docs.SwaggerInfo.Host == "" {
		docs.SwaggerInfo.Host = "localhost:8080"
	}

	// Initialize stores
	db := database.InitDatabase()
	defer db.Close()

	if err := database.InitSchema(db); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Initialize services
	authService := services.NewAuthService(db, redisClient)
	inventoryService := services.NewInventoryService(db)
	reportService := services.NewReportService(db)

	mW.InitAuthMiddleware(redisClient)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
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
		// Public endpoints
		r.Post("/auth/login", authService.HandleLogin)
		r.Post("/auth/logout", authService.HandleLogout)
		// Registration is public only for the bootstrap admin; the
		// handler gates subsequent accounts behind admin identity.
		r.With(mW.OptionalAuth).Post("/auth/register", authService.HandleRegister)

		// Protected endpoints
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			r.Post("/auth/change-password", authService.HandleChangePassword)

			// Any authenticated user can sell and read
			r.Get("/phones", inventoryService.HandleListPhones)
			r.Post("/sales", inventoryService.HandleRecordSale)
			r.Get("/sales/{id}", inventoryService.HandleGetSale)
			r.Get("/sales/{id}/receipt.png", inventoryService.HandleReceiptQR)

			r.Get("/reports/inventory-value", reportService.HandleInventoryValue)
			r.Get("/reports/low-stock", reportService.HandleLowStock)
			r.Get("/reports/sales-summary", reportService.HandleSalesSummary)
			r.Get("/reports/sales", reportService.HandleSalesInRange)
			r.Get("/reports/transactions", reportService.HandleInventoryLog)

			r.Get("/export/inventory.csv", reportService.HandleExportInventory)
			r.Get("/export/sales.csv", reportService.HandleExportSales)

			// Admin-only catalog and user management
			r.Group(func(r chi.Router) {
				r.Use(mW.RequireAdmin)

				r.Post("/phones", inventoryService.HandleAddPhone)
				r.Put("/phones/{model}/quantity", inventoryService.HandleUpdateQuantity)
				r.Delete("/phones/{model}", inventoryService.HandleRemovePhone)

				r.Get("/users", authService.HandleListUsers)
				r.Put("/users/{id}/role", authService.HandleUpdateRole)
				r.Delete("/users/{id}", authService.HandleDeleteUser)
			})
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server
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

	// Wait for interrupt signal
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
