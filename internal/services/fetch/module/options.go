package module

import (
	"time"

	"firewatch/internal/platform/config"
)

// Options for the fetch module
type Options struct {
	Sources         []string      `env:"SOURCES" validate:"min=1,dive,required"`
	BaseURL         string        `env:"BASE_URL" validate:"required,url"`
	MapKey          string        `env:"MAP_KEY"`
	Area            string        `env:"AREA" validate:"required"`
	LookbackDays    int           `env:"LOOKBACK_DAYS" validate:"min=1,max=10"`
	SourceTimeout   time.Duration `env:"SOURCE_TIMEOUT" validate:"gt=0"`
	JoinGrace       time.Duration `env:"JOIN_GRACE" validate:"gte=0"`
	BreakerFailures int           `env:"BREAKER_FAILURES" validate:"min=1"`
}

// FromConfig fills options from environment
// CORE_FETCH_SOURCES (default VIIRS_SNPP_NRT,VIIRS_NOAA20_NRT,MODIS_NRT) lists FIRMS sources
// CORE_FETCH_BASE_URL (default https://firms.modaps.eosdis.nasa.gov)
// CORE_FETCH_MAP_KEY is the FIRMS map key; required only when fetching from FIRMS
// CORE_FETCH_AREA (default world) is "world" or a west,south,east,north box
// CORE_FETCH_LOOKBACK_DAYS (default 1) is the day window requested per run
// CORE_FETCH_SOURCE_TIMEOUT (default 60s) bounds each source call
// CORE_FETCH_JOIN_GRACE (default 5s) is added to the source timeout for the join
// CORE_FETCH_BREAKER_FAILURES (default 3) consecutive failures open a source breaker
func FromConfig(cfg config.Conf) Options {
	f := cfg.Prefix("CORE_FETCH_")
	return Options{
		Sources:         f.MayCSV("SOURCES", []string{"VIIRS_SNPP_NRT", "VIIRS_NOAA20_NRT", "MODIS_NRT"}),
		BaseURL:         f.MayString("BASE_URL", "https://firms.modaps.eosdis.nasa.gov"),
		MapKey:          f.MayString("MAP_KEY", ""),
		Area:            f.MayString("AREA", "world"),
		LookbackDays:    f.MayInt("LOOKBACK_DAYS", 1),
		SourceTimeout:   f.MayDuration("SOURCE_TIMEOUT", 60*time.Second),
		JoinGrace:       f.MayDuration("JOIN_GRACE", 5*time.Second),
		BreakerFailures: f.MayInt("BREAKER_FAILURES", 3),
	}
}
