// Package config centralizes the operator-tunable defaults spec.md names
// instead of scattering them as inline literals, the way the teacher
// resolved PORT and API_BEARER_TOKEN from the environment in cmd/microlith.
package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port          string
	DBPath        string
	NATSDataDir   string
	NATSPort      int
	JWTSecret     string
	BootstrapAdmin string

	// Trajectory Predictor (§4.3)
	PredictionHorizon time.Duration
	PredictionStride  time.Duration

	// Threat Analyzer (§4.4)
	HighSpeedThresholdKt float64
	GraduatedHighSpeed   bool

	// Deduper / Bus (§4.6)
	AlertIdleWindow time.Duration

	// Store retention (§4.5)
	FlightRetention time.Duration
	AlertRetention  time.Duration
	RetentionTick   time.Duration

	// Ingest pipeline deadline (§5)
	IngestDeadline time.Duration

	// DetectionModel radar center (supplemented feature, §C.1)
	RadarCenterLat float64
	RadarCenterLon float64
	RadarRangeKm   float64
}

func Load() *Config {
	return &Config{
		Port:           getenv("PORT", "8080"),
		DBPath:         getenv("OVERWATCH_DB_PATH", "./data/overwatch.db"),
		NATSDataDir:    getenv("OVERWATCH_NATS_DATA_DIR", "./data/nats"),
		NATSPort:       getenvInt("OVERWATCH_NATS_PORT", 4222),
		JWTSecret:      getenv("OVERWATCH_JWT_SECRET", "overwatch-dev-secret"),
		BootstrapAdmin: getenv("OVERWATCH_BOOTSTRAP_ADMIN", ""),

		PredictionHorizon: getenvDuration("OVERWATCH_PREDICTION_HORIZON", 180*time.Second),
		PredictionStride:  getenvDuration("OVERWATCH_PREDICTION_STRIDE", 30*time.Second),

		HighSpeedThresholdKt: getenvFloat("OVERWATCH_HIGH_SPEED_KT", 500),
		GraduatedHighSpeed:   getenvBool("OVERWATCH_GRADUATED_HIGH_SPEED", false),

		AlertIdleWindow: getenvDuration("OVERWATCH_ALERT_IDLE_WINDOW", 120*time.Second),

		FlightRetention: getenvDuration("OVERWATCH_FLIGHT_RETENTION", 24*time.Hour),
		AlertRetention:  getenvDuration("OVERWATCH_ALERT_RETENTION", 30*24*time.Hour),
		RetentionTick:   getenvDuration("OVERWATCH_RETENTION_TICK", time.Minute),

		IngestDeadline: getenvDuration("OVERWATCH_INGEST_DEADLINE", 2*time.Second),

		RadarCenterLat: getenvFloat("OVERWATCH_RADAR_LAT", 11.65),
		RadarCenterLon: getenvFloat("OVERWATCH_RADAR_LON", 78.15),
		RadarRangeKm:   getenvFloat("OVERWATCH_RADAR_RANGE_KM", 250),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
