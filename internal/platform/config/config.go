package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string
	HTTPPort     string
	PostgresDSN  string
	KafkaBrokers []string

	// GovernanceOwner seeds the engine state owner on first boot. Later
	// ownership transfers happen through the API, not through config.
	GovernanceOwner string

	// CorrectedParticipation switches participation accounting to count cast
	// vote weight. Off by default to match the reference tallying behavior.
	CorrectedParticipation bool

	EnableHeightConsumer bool
	OutboxPollInterval   time.Duration
	OutboxBatchSize      int
}

func Load() (Config, error) {
	// Missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "agora"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	var brokers []string
	for _, value := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}

	owner := strings.TrimSpace(os.Getenv("GOVERNANCE_OWNER"))
	if owner == "" {
		owner = "owner"
	}

	pollInterval := 5 * time.Second
	if raw := strings.TrimSpace(os.Getenv("OUTBOX_POLL_INTERVAL")); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			pollInterval = parsed
		}
	}

	return Config{
		ServiceName:  service,
		HTTPPort:     port,
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		KafkaBrokers: brokers,

		GovernanceOwner:        owner,
		CorrectedParticipation: envBool("GOVERNANCE_CORRECTED_PARTICIPATION", false),
		EnableHeightConsumer:   envBool("ENABLE_HEIGHT_CONSUMER", true),
		OutboxPollInterval:     pollInterval,
		OutboxBatchSize:        100,
	}, nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}
