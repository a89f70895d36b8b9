package module

import "firewatch/internal/platform/config"

// Options for the ingest module
type Options struct {
	Chunk int `env:"CHUNK" validate:"min=1,max=50000"`
}

// FromConfig fills options from environment
// CORE_INGEST_CHUNK (default 1000) is the rows per upsert statement
func FromConfig(cfg config.Conf) Options {
	n := cfg.Prefix("CORE_INGEST_")
	return Options{Chunk: n.MayInt("CHUNK", 1000)}
}
