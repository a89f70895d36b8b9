package module

import (
	"time"

	"firewatch/internal/platform/config"
)

// Notifier drivers
const (
	DriverLog      = "log"
	DriverShoutrrr = "shoutrrr"
	DriverKafka    = "kafka"
)

// Options for the notify module
type Options struct {
	Driver           string        `env:"DRIVER" validate:"oneof=log shoutrrr kafka"`
	ShoutrrrURLs     []string      `env:"SHOUTRRR_URLS" validate:"required_if=Driver shoutrrr"`
	ShoutrrrTimeout  time.Duration `env:"SHOUTRRR_TIMEOUT" validate:"gte=0"`
	KafkaBrokers     []string      `env:"KAFKA_BROKERS" validate:"required_if=Driver kafka,dive,hostname_port"`
	KafkaTopic       string        `env:"KAFKA_TOPIC" validate:"required_if=Driver kafka"`
	Rate             float64       `env:"RATE" validate:"gte=0"`
	Burst            int           `env:"BURST" validate:"min=1"`
	LocationCacheTTL time.Duration `env:"LOCATION_CACHE_TTL" validate:"gte=0"`
}

// FromConfig fills options from environment
// CORE_NOTIFY_DRIVER (default log) picks the delivery adapter
// CORE_NOTIFY_SHOUTRRR_URLS comma separated service URLs, one per device
// CORE_NOTIFY_KAFKA_BROKERS (default localhost:9092), CORE_NOTIFY_KAFKA_TOPIC (default fire-notifications)
// CORE_NOTIFY_RATE (default 20 per second, 0 disables), CORE_NOTIFY_BURST (default 10)
// CORE_NOTIFY_LOCATION_CACHE_TTL (default 1m, 0 disables)
func FromConfig(cfg config.Conf) Options {
	n := cfg.Prefix("CORE_NOTIFY_")
	return Options{
		Driver:           n.MayEnum("DRIVER", DriverLog, DriverLog, DriverShoutrrr, DriverKafka),
		ShoutrrrURLs:     n.MayCSV("SHOUTRRR_URLS", nil),
		ShoutrrrTimeout:  n.MayDuration("SHOUTRRR_TIMEOUT", 10*time.Second),
		KafkaBrokers:     n.MayCSV("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaTopic:       n.MayString("KAFKA_TOPIC", "fire-notifications"),
		Rate:             n.MayFloat64("RATE", 20),
		Burst:            n.MayInt("BURST", 10),
		LocationCacheTTL: n.MayDuration("LOCATION_CACHE_TTL", time.Minute),
	}
}
