package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime configuration. Every anti-cheat threshold and
// ingest filter parameter is policy, not a constant: legitimate high-speed
// travel (trains, flights) means deployments may need to raise the defaults.
type Config struct {
	Port      string `env:"PORT" envDefault:":8080"`
	DBPath    string `env:"DB_PATH" envDefault:"./data/coinhunt.db"`
	JWTSecret string `env:"JWT_SECRET" envDefault:"your-secret-key-change-in-production"`
	JWTIssuer string `env:"JWT_ISSUER" envDefault:"coinhunt"`

	SessionTokenTTL time.Duration `env:"SESSION_TOKEN_TTL" envDefault:"12h"`

	// Ingest filter
	AccuracyCeilingMeters float64       `env:"ACCURACY_CEILING_M" envDefault:"50"`
	MinMovementMeters     float64       `env:"MIN_MOVEMENT_M" envDefault:"2"`
	HeartbeatInterval     time.Duration `env:"HEARTBEAT_INTERVAL" envDefault:"30s"`
	MaxFixAge             time.Duration `env:"MAX_FIX_AGE" envDefault:"5m"`

	// Anti-cheat thresholds
	TeleportSpeedKMH    float64       `env:"TELEPORT_SPEED_KMH" envDefault:"1000"`
	ImpossibleSpeedKMH  float64       `env:"IMPOSSIBLE_SPEED_KMH" envDefault:"200"`
	SpoofAccuracyMeters float64       `env:"SPOOF_ACCURACY_M" envDefault:"100"`
	MockDedupWindow     time.Duration `env:"MOCK_DEDUP_WINDOW" envDefault:"1h"`

	// Movement type buckets (km/h)
	WalkingMaxKMH float64 `env:"WALKING_MAX_KMH" envDefault:"6"`
	RunningMaxKMH float64 `env:"RUNNING_MAX_KMH" envDefault:"20"`
	DrivingMaxKMH float64 `env:"DRIVING_MAX_KMH" envDefault:"120"`

	// Session workers and event fan-out
	FixQueueSize       int           `env:"FIX_QUEUE_SIZE" envDefault:"64"`
	EventQueueSize     int           `env:"EVENT_QUEUE_SIZE" envDefault:"256"`
	SessionGracePeriod time.Duration `env:"SESSION_GRACE_PERIOD" envDefault:"10m"`

	// Rate limiting
	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"120"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
}

// Load parses configuration from the environment, falling back to defaults.
func Load() *Config {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		log.Fatal("Failed to parse configuration:", err)
	}
	return cfg
}
