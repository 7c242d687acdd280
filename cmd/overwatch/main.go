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

	"github.com/joho/godotenv"

	"overwatch/api"
	"overwatch/api/middleware"
	"overwatch/internal/alertbus"
	"overwatch/internal/auth"
	"overwatch/internal/config"
	"overwatch/internal/ingest"
	"overwatch/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	} else {
		log.Println("Loaded configuration from .env file")
	}

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := initStore(cfg)
	if err != nil {
		log.Fatal("Failed to initialize store:", err)
	}
	defer db.Close()

	nats := alertbus.NewEmbeddedNATS(&alertbus.NATSConfig{Port: cfg.NATSPort, DataDir: cfg.NATSDataDir})
	if err := nats.Start(); err != nil {
		log.Fatal("Failed to start embedded NATS:", err)
	}

	bus := alertbus.NewBus(nats)
	deduper := alertbus.NewDeduper(cfg.AlertIdleWindow)

	pipeline := ingest.NewPipeline(db, bus, deduper, cfg)
	if err := pipeline.RegionCache().Refresh(); err != nil {
		log.Printf("Warning: failed to warm region cache: %v", err)
	}
	if err := pipeline.SeedDeduper(); err != nil {
		log.Printf("Warning: failed to seed deduper from store: %v", err)
	}

	if err := bootstrapAdmin(db, cfg); err != nil {
		log.Printf("Warning: admin bootstrap failed: %v", err)
	}

	fanout := alertbus.NewFanoutWorker(nats, bus)
	go func() {
		if err := fanout.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("AlertFanoutWorker stopped: %v", err)
		}
	}()

	go db.RunRetentionSweep(ctx, store.RetentionConfig{
		FlightRetention: cfg.FlightRetention,
		AlertRetention:  cfg.AlertRetention,
		Tick:            cfg.RetentionTick,
	})
	go pipeline.RunIdleAlertSweep(ctx, cfg.RetentionTick)

	tokens := auth.NewTokenService(cfg.JWTSecret)

	mux := http.NewServeMux()
	handlers := api.NewHandlers(pipeline, db, bus, tokens)
	handlers.RegisterRoutes(mux)

	handler := middleware.CORS(middleware.RequestLogger(mux))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting overwatch API server on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start:", err)
		}
	}()

	<-sigChan
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	cancel() // stop retention sweep, idle sweep, fanout worker

	if err := fanout.Stop(); err != nil {
		log.Printf("Failed to stop fanout worker: %v", err)
	}
	if err := nats.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown NATS: %v", err)
	}

	log.Println("Server shutdown complete")
}

func initStore(cfg *config.Config) (*store.Store, error) {
	scfg := store.DefaultConfig()
	scfg.DBPath = cfg.DBPath
	s, err := store.New(scfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	return s, nil
}

// bootstrapAdmin creates the initial admin account from
// OVERWATCH_BOOTSTRAP_ADMIN=email:password when no operator exists yet
// (spec.md §4.7's operator lifecycle starts "at bootstrap").
func bootstrapAdmin(s *store.Store, cfg *config.Config) error {
	count, err := s.CountOperators()
	if err != nil {
		return err
	}
	if count > 0 || cfg.BootstrapAdmin == "" {
		return nil
	}

	email, password, ok := splitBootstrap(cfg.BootstrapAdmin)
	if !ok {
		return fmt.Errorf("OVERWATCH_BOOTSTRAP_ADMIN must be email:password")
	}

	hash, err := auth.HashCredential(password)
	if err != nil {
		return err
	}
	if _, err := s.CreateOperator(email, "admin", hash); err != nil {
		return err
	}
	log.Printf("Bootstrapped admin operator %s", email)
	return nil
}

func splitBootstrap(v string) (email, password string, ok bool) {
	for i := 0; i < len(v); i++ {
		if v[i] == ':' {
			return v[:i], v[i+1:], true
		}
	}
	return "", "", false
}
