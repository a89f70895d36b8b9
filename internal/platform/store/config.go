package store

import (
	"time"

	"firewatch/internal/platform/config"
)

// Config aggregates per backend configuration
type Config struct {
	AppName string

	PG PGConfig
	CH CHConfig
}

// PGConfig configures postgres connectivity and tracing
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int

	// boot knobs
	ConnectRetries   int           // default 20
	PingTimeout      time.Duration // default 3s
	StatementTimeout time.Duration // SET LOCAL statement_timeout in every tx; 0 disables
}

// CHConfig configures clickhouse connectivity
type CHConfig struct {
	Enabled    bool
	URL        string
	ClientName string
	ClientTag  string
	LogSQL     bool
}

// ConfigFromEnv reads SERVICE_PGSQL_* and SERVICE_CLICKHOUSE_* for the given role.
// SERVICE_PGSQL_DBURL is required unless SERVICE_PGSQL_ENABLED=false
func ConfigFromEnv(cfg config.Conf, role string) Config {
	pg := cfg.Prefix("SERVICE_PGSQL_")
	ch := cfg.Prefix("SERVICE_CLICKHOUSE_")
	pgOn := pg.MayBool("ENABLED", true)
	var pgURL string
	if pgOn {
		pgURL = pg.MustString("DBURL")
	}
	return Config{
		AppName: "firewatch-" + role,
		PG: PGConfig{
			Enabled:          pgOn,
			URL:              pgURL,
			MaxConns:         int32(pg.MayInt("MAX_CONNS", 4)),
			LogSQL:           pg.MayBool("LOG_SQL", false),
			SlowQueryMs:      pg.MayInt("SLOW_MS", 500),
			ConnectRetries:   pg.MayInt("CONNECT_RETRIES", 20),
			PingTimeout:      pg.MayDuration("PING_TIMEOUT", 3*time.Second),
			StatementTimeout: pg.MayDuration("STATEMENT_TIMEOUT", 60*time.Second),
		},
		CH: CHConfig{
			Enabled:    ch.MayBool("ENABLED", false),
			URL:        ch.MayString("DBURL", ""),
			ClientName: role,
			ClientTag:  ch.MayString("CLIENT_TAG", "dev"),
			LogSQL:     ch.MayBool("LOG_SQL", false),
		},
	}
}
