package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/coinhunt/coinhunt-backend-go/internal/anticheat"
	"github.com/coinhunt/coinhunt-backend-go/internal/api"
	"github.com/coinhunt/coinhunt-backend-go/internal/auth"
	"github.com/coinhunt/coinhunt-backend-go/internal/config"
	"github.com/coinhunt/coinhunt-backend-go/internal/database"
	"github.com/coinhunt/coinhunt-backend-go/internal/events"
	"github.com/coinhunt/coinhunt-backend-go/internal/handler"
	"github.com/coinhunt/coinhunt-backend-go/internal/ingest"
	"github.com/coinhunt/coinhunt-backend-go/internal/repository"
	"github.com/coinhunt/coinhunt-backend-go/internal/service"
	"github.com/coinhunt/coinhunt-backend-go/internal/session"
)

func main() {
	cfg := config.Load()

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		log.Fatal("Failed to create data directory:", err)
	}
	db, err := database.Open(database.Config{Path: cfg.DBPath})
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()

	if err := database.NewMigrationManager(db).RunMigrations(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	locationRepo := repository.NewLocationRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	targetRepo := repository.NewTargetRepository(db)
	flagRepo := repository.NewCheatFlagRepository(db)

	sink := events.NewSink(events.NewHub(), flagRepo)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	manager := session.NewManager(ctx, session.Config{
		Ingest: ingest.Options{
			AccuracyCeilingMeters: cfg.AccuracyCeilingMeters,
			MinMovementMeters:     cfg.MinMovementMeters,
			HeartbeatInterval:     cfg.HeartbeatInterval,
			MaxFixAge:             cfg.MaxFixAge,
		},
		Thresholds: anticheat.Thresholds{
			TeleportSpeedKMH:    cfg.TeleportSpeedKMH,
			ImpossibleSpeedKMH:  cfg.ImpossibleSpeedKMH,
			SpoofAccuracyMeters: cfg.SpoofAccuracyMeters,
			MockDedupWindow:     cfg.MockDedupWindow,
			WalkingMaxKMH:       cfg.WalkingMaxKMH,
			RunningMaxKMH:       cfg.RunningMaxKMH,
			DrivingMaxKMH:       cfg.DrivingMaxKMH,
		},
		FixQueueSize: cfg.FixQueueSize,
		GracePeriod:  cfg.SessionGracePeriod,
	}, sink)

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.SessionTokenTTL)

	locationService := service.NewLocationService(manager, locationRepo, sessionRepo)
	huntService := service.NewHuntService(manager, sessionRepo, targetRepo, tokens)
	flagService := service.NewCheatFlagService(flagRepo)

	router := api.SetupRouter(cfg, tokens, api.Handlers{
		Location: handler.NewLocationHandler(locationService),
		Hunt:     handler.NewHuntHandler(huntService),
		Flags:    handler.NewCheatFlagHandler(flagService),
		Stream:   handler.NewStreamHandler(tokens, sink, cfg.EventQueueSize),
	})

	srv := &http.Server{
		Addr:    cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// A cancelled manager context before a shutdown signal means a worker hit
	// a fatal error, almost always a cheat flag that could not be persisted.
	select {
	case <-ctx.Done():
	case <-manager.Err():
	}

	log.Println("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	if err := manager.Shutdown(); err != nil {
		log.Fatal("Session manager shut down with error:", err)
	}
	log.Println("Shutdown complete")
}
