package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"fleet-scheduling-service/internal/adapters/notify"
	"fleet-scheduling-service/internal/adapters/repositories"
	"fleet-scheduling-service/internal/config"
	"fleet-scheduling-service/internal/platform/db"
)

const usage = `usage: dbtool [command]

commands:
  init          create the schema and seed orders from SEED_PATH (default)
  watch [zone]  print plan events published on REDIS_URL`

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	cmd := "init"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd {
	case "init":
		err = runInit(ctx)
	case "watch":
		zone := ""
		if len(os.Args) > 2 {
			zone = os.Args[2]
		}
		err = runWatch(ctx, zone)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func runInit(ctx context.Context) error {
	conn, dialect, err := open()
	if err != nil {
		return err
	}
	defer conn.Close()

	seedPath := config.Get("SEED_PATH", "data/seeds/orders.json")
	return initAndSeed(ctx, conn, dialect, seedPath)
}

// open connects to DATABASE_URL when set, otherwise to the SQLite file at DB_PATH.
func open() (*sql.DB, repositories.Dialect, error) {
	if databaseURL := config.Get("DATABASE_URL", ""); databaseURL != "" {
		conn, err := db.Open(databaseURL)
		return conn, repositories.Postgres, err
	}
	conn, err := db.OpenSQLite(config.Get("DB_PATH", "data/app.db"))
	return conn, repositories.SQLite, err
}

func initAndSeed(ctx context.Context, conn *sql.DB, d repositories.Dialect, seedPath string) error {
	log.Printf("Initializing database schema dialect=%s...", d)
	if err := repositories.InitSchema(ctx, conn, d); err != nil {
		return fmt.Errorf("schema initialization failed: %w", err)
	}
	log.Println("Schema ready.")

	log.Printf("Seeding orders from %s...", seedPath)
	if err := repositories.SeedFromJSON(ctx, conn, d, seedPath); err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}
	log.Println("Seeding complete.")

	return nil
}

func runWatch(ctx context.Context, zone string) error {
	redisURL := config.Get("REDIS_URL", "")
	if redisURL == "" {
		return errors.New("watch: REDIS_URL is required")
	}

	n, err := notify.NewRedisNotifierFromURL(redisURL, notify.DefaultChannel)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer n.Close()

	events, err := n.Subscribe(ctx, zone)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	log.Printf("Watching plan events zone=%q", zone)
	for evt := range events {
		log.Printf("event=%s run_id=%s zone=%s at=%s orders=%s",
			evt.Type, evt.RunID, evt.Zone, evt.At.Format("15:04:05"), strings.Join(evt.OrderIDs, ","))
	}
	return nil
}
