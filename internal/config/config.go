// Package config loads service settings from the environment (optionally
// seeded from a .env file) and the scheduling policy and fleet from a YAML
// file.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"fleet-scheduling-service/internal/domain"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port           string
	DBPath         string
	DatabaseURL    string
	ORSAPIKey      string
	ORSBaseURL     string
	SolverURL      string
	GeocodeCountry string
	GeocodeRPS     float64
	RedisURL       string
	PolicyPath     string
	Location       *time.Location
	Policy         domain.Policy
	Fleet          []domain.Vehicle
}

// PolicyFile is the on-disk layout of POLICY_PATH.
type PolicyFile struct {
	Policy domain.Policy    `yaml:"policy"`
	Fleet  []domain.Vehicle `yaml:"fleet"`
}

// Get returns the environment value for key or fallback when unset.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// Load reads .env (if present), the environment and the policy file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	rps, err := strconv.ParseFloat(Get("GEOCODE_RPS", "1"), 64)
	if err != nil {
		return Config{}, fmt.Errorf("load config: GEOCODE_RPS: %w", err)
	}

	loc, err := time.LoadLocation(Get("TZ", "Europe/Paris"))
	if err != nil {
		return Config{}, fmt.Errorf("load config: TZ: %w", err)
	}

	cfg := Config{
		Port:           Get("PORT", "8080"),
		DBPath:         Get("DB_PATH", "data/app.db"),
		DatabaseURL:    Get("DATABASE_URL", ""),
		ORSAPIKey:      Get("ORS_API_KEY", ""),
		ORSBaseURL:     Get("ORS_BASE_URL", "https://api.openrouteservice.org"),
		SolverURL:      Get("SOLVER_URL", ""),
		GeocodeCountry: Get("GEOCODE_COUNTRY", "FR"),
		GeocodeRPS:     rps,
		RedisURL:       Get("REDIS_URL", ""),
		PolicyPath:     Get("POLICY_PATH", "config/policy.yaml"),
		Location:       loc,
		Policy:         domain.DefaultPolicy(),
	}

	pf, err := LoadPolicyFile(cfg.PolicyPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Printf("policy file %q not found, using defaults", cfg.PolicyPath)
	case err != nil:
		return Config{}, fmt.Errorf("load config: %w", err)
	default:
		cfg.Policy = pf.Policy
		cfg.Fleet = pf.Fleet
	}

	if err := cfg.Policy.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	return cfg, nil
}

// LoadPolicyFile parses a policy file. Fields omitted from the policy
// section keep their default values.
func LoadPolicyFile(path string) (PolicyFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return PolicyFile{}, fmt.Errorf("read policy file %q: %w", path, err)
	}
	return ParsePolicy(b)
}

func ParsePolicy(b []byte) (PolicyFile, error) {
	pf := PolicyFile{Policy: domain.DefaultPolicy()}
	if err := yaml.Unmarshal(b, &pf); err != nil {
		return PolicyFile{}, fmt.Errorf("parse policy: %w", err)
	}

	seen := make(map[string]struct{}, len(pf.Fleet))
	for i, v := range pf.Fleet {
		id := strings.TrimSpace(v.VehicleID)
		if id == "" {
			return PolicyFile{}, fmt.Errorf("parse policy: fleet entry %d has no id", i+1)
		}
		if _, ok := seen[id]; ok {
			return PolicyFile{}, fmt.Errorf("parse policy: duplicate vehicle id %q", id)
		}
		seen[id] = struct{}{}
		if v.Capacity <= 0 {
			return PolicyFile{}, fmt.Errorf("parse policy: vehicle %q capacity must be positive", id)
		}
		pf.Fleet[i].VehicleID = id
	}

	return pf, nil
}
