package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server needs at startup. Built from the
// environment so main stays lean.
type Config struct {
	Addr           string
	PostgresURL    string
	JWTSigningKey  string
	AdminTokenHash string
	Redis          RedisConfig
	Kafka          KafkaConfig
	Policy         Policy
}

// RedisConfig configures the optional Redis cache. An empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the optional audit mirror. Empty brokers disable it.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Policy holds the compliance business rules. The defaults encode the LGPD
// statutory values; deployments in other jurisdictions override them via
// environment variables rather than forking constants.
type Policy struct {
	// ResponseWindow is the statutory window for resolving a data subject
	// request, measured from filing.
	ResponseWindow time.Duration
	// GracePeriod is the delay between a deletion request and the purge,
	// during which the subject may cancel.
	GracePeriod time.Duration
	// SweepInterval is how often the purge sweeper looks for due schedules.
	SweepInterval time.Duration
	// ExportSourceTimeout bounds each collaborator read during an export so
	// one slow store cannot stall the whole bundle.
	ExportSourceTimeout time.Duration
	// ScoreWeights mixes the signals behind the admin compliance score.
	ScoreWeights ScoreWeights
	// ExportAuditLimit caps how many audit events an export bundle carries.
	ExportAuditLimit int
}

// ScoreWeights are the relative weights of the compliance score inputs.
// They are policy, not derived from statute; keep them configurable.
type ScoreWeights struct {
	AuthSuccess     float64
	ThreatRatio     float64
	AlertResolution float64
}

// DefaultPolicy returns the LGPD-calibrated defaults.
func DefaultPolicy() Policy {
	return Policy{
		ResponseWindow:      15 * 24 * time.Hour,
		GracePeriod:         30 * 24 * time.Hour,
		SweepInterval:       time.Hour,
		ExportSourceTimeout: 3 * time.Second,
		ScoreWeights:        ScoreWeights{AuthSuccess: 0.4, ThreatRatio: 0.3, AlertResolution: 0.3},
		ExportAuditLimit:    100,
	}
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:           envOr("TUTELA_ADDR", ":8080"),
		PostgresURL:    os.Getenv("TUTELA_POSTGRES_URL"),
		JWTSigningKey:  envOr("TUTELA_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		AdminTokenHash: os.Getenv("TUTELA_ADMIN_TOKEN_HASH"),
		Redis: RedisConfig{
			URL:          os.Getenv("TUTELA_REDIS_URL"),
			PoolSize:     envInt("TUTELA_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("TUTELA_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("TUTELA_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("TUTELA_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("TUTELA_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: splitNonEmpty(os.Getenv("TUTELA_KAFKA_BROKERS")),
			Topic:   envOr("TUTELA_KAFKA_AUDIT_TOPIC", "tutela.audit.compliance"),
		},
		Policy: DefaultPolicy(),
	}

	if d, ok := lookupDuration("TUTELA_RESPONSE_WINDOW"); ok {
		cfg.Policy.ResponseWindow = d
	}
	if d, ok := lookupDuration("TUTELA_DELETION_GRACE_PERIOD"); ok {
		cfg.Policy.GracePeriod = d
	}
	if d, ok := lookupDuration("TUTELA_SWEEP_INTERVAL"); ok {
		cfg.Policy.SweepInterval = d
	}
	if d, ok := lookupDuration("TUTELA_EXPORT_SOURCE_TIMEOUT"); ok {
		cfg.Policy.ExportSourceTimeout = d
	}
	if f, ok := lookupFloat("TUTELA_SCORE_WEIGHT_AUTH"); ok {
		cfg.Policy.ScoreWeights.AuthSuccess = f
	}
	if f, ok := lookupFloat("TUTELA_SCORE_WEIGHT_THREAT"); ok {
		cfg.Policy.ScoreWeights.ThreatRatio = f
	}
	if f, ok := lookupFloat("TUTELA_SCORE_WEIGHT_RESOLUTION"); ok {
		cfg.Policy.ScoreWeights.AlertResolution = f
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if d, ok := lookupDuration(key); ok {
		return d
	}
	return fallback
}

func lookupDuration(key string) (time.Duration, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, false
	}
	return d, true
}

func lookupFloat(key string) (float64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
