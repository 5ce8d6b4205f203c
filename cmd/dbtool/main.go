package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"stop-sequencing-service/internal/adapters/cache"
	"stop-sequencing-service/internal/adapters/geocode"
	"stop-sequencing-service/internal/adapters/repositories"
	"stop-sequencing-service/internal/config"
	"stop-sequencing-service/internal/domain"
	"stop-sequencing-service/internal/platform/db"
	"stop-sequencing-service/internal/services"
)

const usage = `usage: dbtool <command> [flags]

commands:
  migrate              apply schema migrations
  seed [-file path]    load stops, customer addresses and driver positions
  backfill [-limit N]  geocode customer addresses that have no coordinates`

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, driver, err := db.Open(cfg.DatabaseURL, cfg.DBPath)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "migrate":
		err = migrate(conn, driver)
	case "seed":
		err = seed(ctx, conn, driver, cfg, args)
	case "backfill":
		err = backfill(ctx, conn, driver, cfg, args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s\n", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s failed: %v", cmd, err)
	}
}

func migrate(conn *sql.DB, driver string) error {
	log.Println("Applying migrations...")
	if err := db.Migrate(conn, driver); err != nil {
		return err
	}
	log.Println("Schema ready.")
	return nil
}

func seed(ctx context.Context, conn *sql.DB, driver string, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	file := fs.String("file", cfg.SeedPath, "seed JSON file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := migrate(conn, driver); err != nil {
		return err
	}

	log.Printf("Seeding database from %s...", *file)
	if err := repositories.SeedFromJSON(ctx, conn, db.DialectFor(driver), *file); err != nil {
		return err
	}
	log.Println("Seeding complete.")
	return nil
}

func backfill(ctx context.Context, conn *sql.DB, driver string, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("backfill", flag.ContinueOnError)
	limit := fs.Int("limit", 100, "maximum number of addresses to geocode")
	timeout := fs.Duration("timeout", 10*time.Minute, "overall time budget")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return fmt.Errorf("-limit must be positive")
	}

	geocoder, err := geocode.NewORSGeocoder(cfg.ORSAPIKey, cfg.GeocodeCountry)
	if err != nil {
		return fmt.Errorf("ORS_API_KEY is required for backfill: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	dialect := db.DialectFor(driver)
	res, err := services.BackfillCandidateCoordinates(
		ctx,
		repositories.NewSQLCandidateRepository(conn, dialect),
		cache.NewSQLGeocodeCache(conn, dialect),
		geocoder,
		*limit,
	)
	if err != nil {
		return err
	}

	log.Printf(
		"backfill done scanned=%d from_cache=%d geocoded=%d failed=%d",
		res.Scanned, res.FromCache, res.Geocoded, res.Failed,
	)

	if cfg.RedisURL != "" && len(res.Customers) > 0 {
		if err := invalidateCandidatePools(ctx, cfg, res.Customers); err != nil {
			log.Printf("candidate cache invalidation failed: %v", err)
		}
	}
	return nil
}

// invalidateCandidatePools drops cached candidate pools of customers whose
// addresses just gained coordinates so the server sees them before the TTL.
func invalidateCandidatePools(ctx context.Context, cfg config.Config, customers []int64) error {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	defer client.Close()

	// The wrapped source is never read when only invalidating.
	pools, err := cache.NewRedisCandidateCache(client, noCandidates{}, cfg.CandidateCacheTTL)
	if err != nil {
		return err
	}
	for _, id := range customers {
		if err := pools.Invalidate(ctx, id); err != nil {
			return err
		}
	}
	log.Printf("invalidated cached candidate pools customers=%d", len(customers))
	return nil
}

type noCandidates struct{}

func (noCandidates) CandidatesByCustomer(context.Context, []int64, int) (map[int64][]domain.CandidateAddress, error) {
	return map[int64][]domain.CandidateAddress{}, nil
}
