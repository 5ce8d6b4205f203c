package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"stop-sequencing-service/internal/adapters/cache"
	"stop-sequencing-service/internal/adapters/repositories"
	"stop-sequencing-service/internal/api"
	"stop-sequencing-service/internal/config"
	"stop-sequencing-service/internal/platform/db"
	"stop-sequencing-service/internal/platform/obs"
	"stop-sequencing-service/internal/ports"
	"stop-sequencing-service/internal/services"
)

// main is the application composition root.
// It wires concrete adapters (SQL, Redis) behind ports and starts the HTTP server.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	if err := run(config.Load()); err != nil {
		log.Fatal(err)
	}
}

func run(cfg config.Config) error {
	conn, driver, err := db.Open(cfg.DatabaseURL, cfg.DBPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := db.Migrate(conn, driver); err != nil {
		return err
	}

	dialect := db.DialectFor(driver)

	// Local SQLite runs get demo data on startup; PostgreSQL is seeded with dbtool.
	if driver == db.DriverSQLite {
		if err := seedIfPresent(conn, dialect, cfg.SeedPath); err != nil {
			return err
		}
	}

	var candidates ports.CandidateSource = repositories.NewSQLCandidateRepository(conn, dialect)
	if cfg.RedisURL != "" {
		client, err := openRedis(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()

		candidates, err = cache.NewRedisCandidateCache(client, candidates, cfg.CandidateCacheTTL)
		if err != nil {
			return err
		}
		log.Printf("candidate cache enabled ttl=%s", cfg.CandidateCacheTTL)
	}

	metrics, err := obs.NewMetrics(nil)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	stops := repositories.NewSQLStopRepository(conn, dialect)
	positions := repositories.NewSQLPositionRepository(conn, dialect)
	planner := &services.RoutePlanner{
		Stops:          stops,
		Candidates:     candidates,
		Positions:      positions,
		Depot:          cfg.Depot,
		PositionMaxAge: cfg.PositionMaxAge,
		CandidateLimit: cfg.CandidateLimit,
		Sequencing:     cfg.Sequencing,
	}

	router := api.NewRouter(api.Deps{
		Stops:      stops,
		Positions:  positions,
		Planner:    planner,
		Sequencing: cfg.Sequencing,
		Metrics:    metrics,
		Ping:       conn.PingContext,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server listening addr=:%s driver=%s", cfg.Port, driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-shutdown:
		log.Printf("Received signal %v, starting graceful shutdown", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("could not gracefully shutdown the server: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

func seedIfPresent(conn *sql.DB, dialect db.Dialect, seedPath string) error {
	if _, err := os.Stat(seedPath); errors.Is(err, os.ErrNotExist) {
		log.Printf("no seed file at %q, skipping seed", seedPath)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := repositories.SeedFromJSON(ctx, conn, dialect, seedPath); err != nil {
		return fmt.Errorf("seed on startup: %w", err)
	}
	return nil
}

func openRedis(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
