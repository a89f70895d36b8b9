package module

import "firewatch/internal/platform/config"

// Options for the clustering module
type Options struct {
	DistanceM float64 `env:"DISTANCE_M" validate:"gt=0,lte=100000"`
	Batch     int     `env:"BATCH" validate:"min=1,max=100000"`
}

// FromConfig fills options from environment
// CORE_CLUSTER_DISTANCE_M (default 5000) is the join distance from an incident bound
// CORE_CLUSTER_BATCH (default 5000) is the unassigned page size
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CORE_CLUSTER_")
	return Options{
		DistanceM: c.MayFloat64("DISTANCE_M", 5000),
		Batch:     c.MayInt("BATCH", 5000),
	}
}
