// Command main is the entry point for the Food App backend server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RingdingdongJeter/Food-App-Backend/internal/cache"
	"github.com/RingdingdongJeter/Food-App-Backend/internal/config"
	"github.com/RingdingdongJeter/Food-App-Backend/internal/database"
	"github.com/RingdingdongJeter/Food-App-Backend/internal/middleware"
	"github.com/RingdingdongJeter/Food-App-Backend/internal/observability"
	"github.com/RingdingdongJeter/Food-App-Backend/internal/server"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	observability.SetLogger(middleware.Logger)

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "food-app-api",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSamplerRatio,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Production schemas are managed with cmd/migrate.
	if !cfg.IsProduction() {
		if err := database.ApplySchema(context.Background(), db); err != nil {
			log.Fatalf("Failed to apply schema: %v", err)
		}
	}

	srv, err := server.NewServerWithDeps(cfg, db, cache.InitRedis(cfg.RedisURL))
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		middleware.Logger.Info("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server resource shutdown error: %v", err)
		}
		if err := shutdownTracing(ctx); err != nil {
			log.Printf("Tracing shutdown error: %v", err)
		}
	}()

	if err := srv.Start(); err != nil {
		log.Fatal(err)
	}
}
