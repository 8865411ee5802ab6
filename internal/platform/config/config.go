package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string
	HTTPPort     string
	PostgresDSN  string
	KafkaBrokers []string

	CriterionCatalogPath string

	RecheckFee      float64
	RecheckCurrency string

	PaymentGatewayURL     string
	PaymentGatewayAPIKey  string
	PaymentWebhookSecret  string
	PaymentRequestTimeout time.Duration

	OutboxRelayInterval time.Duration
	AnomalyTimeout      time.Duration

	EnableAnomalyConsumer bool
	EnableResultNotifier  bool
	EnableOutboxRelays    bool
}

func Load() (Config, error) {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "rostrum"
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

	currency := strings.TrimSpace(os.Getenv("RECHECK_CURRENCY"))
	if currency == "" {
		currency = "INR"
	}

	return Config{
		ServiceName:  service,
		HTTPPort:     port,
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		KafkaBrokers: brokers,

		CriterionCatalogPath: os.Getenv("CRITERION_CATALOG_PATH"),

		RecheckFee:      envFloat("RECHECK_FEE", 250),
		RecheckCurrency: currency,

		PaymentGatewayURL:     os.Getenv("PAYMENT_GATEWAY_URL"),
		PaymentGatewayAPIKey:  os.Getenv("PAYMENT_GATEWAY_API_KEY"),
		PaymentWebhookSecret:  os.Getenv("PAYMENT_WEBHOOK_SECRET"),
		PaymentRequestTimeout: envDuration("PAYMENT_REQUEST_TIMEOUT", 10*time.Second),

		OutboxRelayInterval: envDuration("OUTBOX_RELAY_INTERVAL", 2*time.Second),
		AnomalyTimeout:      envDuration("ANOMALY_INSPECT_TIMEOUT", 5*time.Second),

		EnableAnomalyConsumer: envBool("ENABLE_ANOMALY_CONSUMER", true),
		EnableResultNotifier:  envBool("ENABLE_RESULT_NOTIFIER", true),
		EnableOutboxRelays:    envBool("ENABLE_OUTBOX_RELAYS", true),
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

func envFloat(name string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
