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

	"github.com/NoManNayeem/AgenTick/internal/adapter/agent"
	"github.com/NoManNayeem/AgenTick/internal/auth"
	"github.com/NoManNayeem/AgenTick/internal/config"
	"github.com/NoManNayeem/AgenTick/internal/hub"
	"github.com/NoManNayeem/AgenTick/internal/policy"
	store "github.com/NoManNayeem/AgenTick/internal/repository"
	"github.com/NoManNayeem/AgenTick/internal/service"
	"github.com/NoManNayeem/AgenTick/internal/session"
	httptransport "github.com/NoManNayeem/AgenTick/internal/transport/http"
	"github.com/NoManNayeem/AgenTick/internal/transport/ws"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Printf("Starting AgenTick backend...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DatabaseURL)
	log.Printf("Agent URL: %s", cfg.AgentURL)

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize auth
	authenticator := auth.New(cfg.JWTSecret, cfg.TokenTTL)

	// Initialize policy engine
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize generator and session manager
	generator := agent.NewGenerator(cfg.AgentURL, cfg.AgentAPIKey, cfg.AgentModel, cfg.AgentTimeout)
	sessions := session.NewManager(db, generator, cfg.SessionIdleTTL, cfg.SessionCapacity)
	go sessions.Run(ctx)

	// Initialize service
	svc := service.New(db, sessions, authenticator, policyEngine)

	// Create HTTP server and register the realtime gateway on it
	e := httptransport.NewServer(svc)
	gateway := ws.NewServer(cfg, hub.NewHub(), svc)
	gateway.RegisterRoutes(e)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("API started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("Stopped")
}
