package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"tradeterm/configs"
	"tradeterm/internal/database"
	"tradeterm/internal/delivery/tcp"
	"tradeterm/internal/infra"
	"tradeterm/internal/repository"
	"tradeterm/internal/service"
	"tradeterm/internal/usecase"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// Load configuration
	cfg := configs.Load()

	// Initialize context
	ctx := context.Background()

	// Initialize database
	db, err := infra.NewDatabase(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Create schema and seed the default users on first run
	if err := database.RunMigrations(ctx, db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize store and services
	store := repository.NewStore(db)
	registry := service.NewSessionRegistry()
	authService := usecase.NewAuthService(store.Users())
	tradingService := usecase.NewTradingService(store)

	// Initialize the protocol layer
	interpreter := tcp.NewInterpreter(tradingService, registry)
	readTimeout := time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second
	srv := tcp.NewServer(cfg.Server.Addr(), authService, interpreter, registry, readTimeout)

	// Periodic session stats
	cronScheduler := cron.New()
	_, err = cronScheduler.AddFunc("* * * * *", func() {
		log.Printf("[stats] %d active session(s)", registry.Len())
	})
	if err != nil {
		log.Fatalf("Failed to add session stats cron job: %v", err)
	}
	cronScheduler.Start()
	defer cronScheduler.Stop()

	// Operational HTTP endpoint
	opsRouter := chi.NewRouter()
	opsRouter.Use(middleware.Recoverer)
	opsRouter.Get("/health", handleHealth(db))
	opsServer := &http.Server{
		Addr:         ":" + cfg.Ops.Port,
		Handler:      opsRouter,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("Ops endpoint listening on :%s", cfg.Ops.Port)
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Ops endpoint closed: %v", err)
		}
	}()

	// Stop accepting on Ctrl-C as well as on the admin SHUTDOWN command
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Println("Interrupt received, shutting down...")
		srv.Shutdown()
	}()

	// Serve the trading terminal; blocks until SHUTDOWN
	if err := srv.ListenAndServe(ctx); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Ops endpoint forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func handleHealth(db interface{ Ping(context.Context) error }) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		dbStatus := "healthy"
		if err := db.Ping(ctx); err != nil {
			dbStatus = "unhealthy"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status": "healthy", "service": "tradeterm", "database": %q, "timestamp": %q}`,
			dbStatus, time.Now().Format(time.RFC3339))
	}
}
