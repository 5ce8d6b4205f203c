package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"stop-sequencing-service/internal/domain"
)

// Get returns the trimmed value of key, or fallback when unset or blank.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// GetFloat parses key as a float64. Malformed values are logged and replaced
// by fallback.
func GetFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("config: invalid float key=%s value=%q, using %v", key, v, fallback)
		return fallback
	}
	return f
}

func GetInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("config: invalid int key=%s value=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func GetDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("config: invalid duration key=%s value=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}

// Sequencing holds the tunables of the matcher and the tour sequencer.
// It is passed explicitly; nothing in the planning core reads the environment.
type Sequencing struct {
	SpeedKmh              float64
	ServiceMinutesPerStop int
	PostalMatchThreshold  float64
	TextMatchThreshold    float64
	TwoOptToleranceKm     float64
}

const (
	DefaultSpeedKmh              = 25.0
	DefaultServiceMinutesPerStop = 5
	DefaultPostalMatchThreshold  = 0.25
	DefaultTextMatchThreshold    = 0.45
	DefaultTwoOptToleranceKm     = 1e-6
)

// DefaultSequencing returns the documented defaults.
func DefaultSequencing() Sequencing {
	return Sequencing{
		SpeedKmh:              DefaultSpeedKmh,
		ServiceMinutesPerStop: DefaultServiceMinutesPerStop,
		PostalMatchThreshold:  DefaultPostalMatchThreshold,
		TextMatchThreshold:    DefaultTextMatchThreshold,
		TwoOptToleranceKm:     DefaultTwoOptToleranceKm,
	}
}

// WithDefaults replaces unusable values (zero or negative) with defaults.
// A zero service time is kept since it is a legitimate setting.
func (s Sequencing) WithDefaults() Sequencing {
	d := DefaultSequencing()
	if !(s.SpeedKmh > 0) {
		s.SpeedKmh = d.SpeedKmh
	}
	if s.ServiceMinutesPerStop < 0 {
		s.ServiceMinutesPerStop = d.ServiceMinutesPerStop
	}
	if !(s.PostalMatchThreshold > 0) {
		s.PostalMatchThreshold = d.PostalMatchThreshold
	}
	if !(s.TextMatchThreshold > 0) {
		s.TextMatchThreshold = d.TextMatchThreshold
	}
	if !(s.TwoOptToleranceKm > 0) {
		s.TwoOptToleranceKm = d.TwoOptToleranceKm
	}
	return s
}

// Config is the process configuration assembled from the environment.
type Config struct {
	Port        string
	DatabaseURL string
	DBPath      string
	SeedPath    string

	RedisURL          string
	CandidateCacheTTL time.Duration
	CandidateLimit    int

	Depot          *domain.GeoPoint
	PositionMaxAge time.Duration

	ORSAPIKey      string
	GeocodeCountry string

	Sequencing Sequencing
}

// Load reads Config from the environment. Call godotenv.Load first if a
// .env file should be honoured.
func Load() Config {
	cfg := Config{
		Port:        Get("PORT", "8080"),
		DatabaseURL: Get("DATABASE_URL", ""),
		DBPath:      Get("DB_PATH", "data/app.db"),
		SeedPath:    Get("SEED_PATH", "data/seeds/routes.json"),

		RedisURL:          Get("REDIS_URL", ""),
		CandidateCacheTTL: GetDuration("CANDIDATE_CACHE_TTL", 10*time.Minute),
		CandidateLimit:    GetInt("CANDIDATE_LIMIT", 25),

		PositionMaxAge: GetDuration("POSITION_MAX_AGE", 12*time.Hour),

		ORSAPIKey:      Get("ORS_API_KEY", ""),
		GeocodeCountry: Get("GEOCODE_COUNTRY", "MX"),

		Sequencing: Sequencing{
			SpeedKmh:              GetFloat("ROUTE_SPEED_KMH", DefaultSpeedKmh),
			ServiceMinutesPerStop: GetInt("ROUTE_SERVICE_MINUTES", DefaultServiceMinutesPerStop),
			PostalMatchThreshold:  GetFloat("MATCH_POSTAL_THRESHOLD", DefaultPostalMatchThreshold),
			TextMatchThreshold:    GetFloat("MATCH_TEXT_THRESHOLD", DefaultTextMatchThreshold),
			TwoOptToleranceKm:     GetFloat("TWO_OPT_TOLERANCE_KM", DefaultTwoOptToleranceKm),
		}.WithDefaults(),
	}

	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = 25
	}

	lat, latOK := os.LookupEnv("DEPOT_LAT")
	lng, lngOK := os.LookupEnv("DEPOT_LNG")
	if latOK && lngOK {
		depot, err := parseDepot(lat, lng)
		if err != nil {
			log.Printf("config: ignoring depot: %v", err)
		} else {
			cfg.Depot = depot
		}
	}

	return cfg
}

func parseDepot(lat, lng string) (*domain.GeoPoint, error) {
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return nil, err
	}
	ln, err := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err != nil {
		return nil, err
	}
	p := domain.GeoPoint{Lat: la, Lng: ln}
	if !p.Valid() {
		return nil, fmt.Errorf("depot %v,%v out of range", la, ln)
	}
	return &p, nil
}
