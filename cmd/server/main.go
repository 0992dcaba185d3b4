package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fleet-scheduling-service/internal/adapters/cache"
	"fleet-scheduling-service/internal/adapters/geocode"
	"fleet-scheduling-service/internal/adapters/notify"
	"fleet-scheduling-service/internal/adapters/ors"
	"fleet-scheduling-service/internal/adapters/repositories"
	"fleet-scheduling-service/internal/adapters/solver"
	"fleet-scheduling-service/internal/api"
	"fleet-scheduling-service/internal/config"
	"fleet-scheduling-service/internal/platform/db"
	"fleet-scheduling-service/internal/platform/obs"
	"fleet-scheduling-service/internal/ports"
	"fleet-scheduling-service/internal/services"
)

// main is the application composition root.
// It wires concrete adapters (SQL store, ORS, solver, Redis) behind ports and starts the HTTP server.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if len(cfg.Fleet) == 0 {
		log.Fatalf("no vehicles configured, add a fleet section to %s", cfg.PolicyPath)
	}

	obs.RegisterDefault()

	conn, dialect, err := openStore(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := initAndSeed(ctx, conn, dialect, config.Get("SEED_PATH", "")); err != nil {
		log.Fatal(err)
	}

	if strings.TrimSpace(cfg.ORSAPIKey) == "" {
		log.Println("ORS_API_KEY is not set, hosted geocoding and optimization will be refused")
	}

	// Geocoding is throttled and never retried; results persist in the same database.
	orsClient := ors.NewClient(cfg.ORSBaseURL, cfg.ORSAPIKey, geocode.ClientOptions(cfg.GeocodeRPS)...)
	var geocodeCache ports.GeocodeCache = cache.NewSqliteGeocodeCache(conn)
	if dialect == repositories.Postgres {
		geocodeCache = cache.NewPostgresGeocodeCache(conn)
	}
	geocoder := geocode.NewORSGeocoder(orsClient, geocodeCache, cfg.GeocodeCountry)

	optimizer := solver.NewClient(ors.NewClient(cfg.ORSBaseURL, cfg.ORSAPIKey), "")
	if cfg.SolverURL != "" {
		optimizer = solver.NewClient(ors.NewClient(cfg.SolverURL, cfg.ORSAPIKey), cfg.SolverURL)
	}

	var notifier ports.Notifier = notify.LogNotifier{}
	if cfg.RedisURL != "" {
		rn, err := notify.NewRedisNotifierFromURL(cfg.RedisURL, notify.DefaultChannel)
		if err != nil {
			log.Fatal(err)
		}
		defer rn.Close()
		notifier = rn
	}

	repo := repositories.NewSQLOrderRepository(conn, dialect, cfg.Location)
	planner := &services.Planner{
		Repo:     repo,
		Geocoder: geocoder,
		Solver:   optimizer,
		Notifier: notifier,
		Policy:   cfg.Policy,
		Fleet:    cfg.Fleet,
		Location: cfg.Location,
	}
	router := api.NewRouter(repo, planner)

	// Timeouts are tuned for cold-cache planning (geocoding and solver latency).
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown failed: %v", err)
		}
	}()

	log.Printf("Server listening addr=:%s db=%s vehicles=%d", cfg.Port, dialect, len(cfg.Fleet))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	log.Println("Server stopped")
}

// openStore prefers Postgres when DATABASE_URL is set and falls back to a
// local SQLite file.
func openStore(cfg config.Config) (*sql.DB, repositories.Dialect, error) {
	if cfg.DatabaseURL != "" {
		conn, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, 0, fmt.Errorf("open store: %w", err)
		}
		return conn, repositories.Postgres, nil
	}

	conn, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, 0, fmt.Errorf("open store: %q: %w", cfg.DBPath, err)
	}
	return conn, repositories.SQLite, nil
}

// initAndSeed creates the schema and, for local runs, loads demo orders.
func initAndSeed(ctx context.Context, conn *sql.DB, d repositories.Dialect, seedPath string) error {
	if err := repositories.InitSchema(ctx, conn, d); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	if seedPath == "" {
		return nil
	}
	if err := repositories.SeedFromJSON(ctx, conn, d, seedPath); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	return nil
}
