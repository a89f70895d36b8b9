// Package config reads firewatch settings from the environment. Modules take a
// Conf narrowed to their prefix (CORE_FETCH_, SERVICE_PGSQL_) and read typed values with defaults
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"firewatch/internal/platform/logger"
)

// Conf is a prefixed view over the environment
type Conf struct{ prefix string }

// New returns the unprefixed root view
func New() Conf { return Conf{} }

// Prefix narrows c by p
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

func (c Conf) key(k string) string { return c.prefix + k }

func (c Conf) lookup(k string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(c.key(k)))
	return v, v != ""
}

// MustString returns the value of k and panics when it is unset or blank
func (c Conf) MustString(k string) string {
	v, ok := c.lookup(k)
	if !ok {
		logger.Get().Panic().Str("key", c.key(k)).Msg("missing required env")
	}
	return v
}

// MayString returns the value of k or def
func (c Conf) MayString(k, def string) string {
	if v, ok := c.lookup(k); ok {
		return v
	}
	return def
}

// parsed returns def when k is unset and warns then returns def when parse rejects it
func parsed[T any](c Conf, k string, def T, parse func(string) (T, error)) T {
	v, ok := c.lookup(k)
	if !ok {
		return def
	}
	out, err := parse(v)
	if err != nil {
		logger.Get().Warn().Str("key", c.key(k)).Str("value", v).Interface("default", def).Msg("unparseable env; using default")
		return def
	}
	return out
}

// MayInt reads an int
func (c Conf) MayInt(k string, def int) int { return parsed(c, k, def, strconv.Atoi) }

// MayFloat64 reads a float
func (c Conf) MayFloat64(k string, def float64) float64 {
	return parsed(c, k, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

// MayBool reads a strconv.ParseBool value
func (c Conf) MayBool(k string, def bool) bool { return parsed(c, k, def, strconv.ParseBool) }

// MayDuration reads a Go duration such as 90s or 24h
func (c Conf) MayDuration(k string, def time.Duration) time.Duration {
	return parsed(c, k, def, time.ParseDuration)
}

// MayCSV splits a comma separated list and drops blanks; def when nothing is left
func (c Conf) MayCSV(k string, def []string) []string {
	v, ok := c.lookup(k)
	if !ok {
		return def
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// MayEnum returns the lowercased value when it matches one of allowed, def when unset,
// and panics otherwise
func (c Conf) MayEnum(k, def string, allowed ...string) string {
	v, ok := c.lookup(k)
	if !ok {
		return def
	}
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return strings.ToLower(a)
		}
	}
	logger.Get().Panic().Str("key", c.key(k)).Str("value", v).Strs("allowed", allowed).Msg("env value not allowed")
	return def
}
