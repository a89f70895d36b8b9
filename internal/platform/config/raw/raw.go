// Package raw reads the handful of LOG_* variables the logger needs before it
// exists. config.Conf reports bad values through the logger, so it cannot be used here
package raw

import (
	"os"
	"strconv"
	"strings"
)

// Env is a prefixed view over the process environment
type Env struct{ prefix string }

// Prefix returns a view whose keys are prefixed with p
func Prefix(p string) Env { return Env{prefix: p} }

func (e Env) lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(e.prefix + key))
	return v, v != ""
}

// String returns the trimmed value or def
func (e Env) String(key, def string) string {
	if v, ok := e.lookup(key); ok {
		return v
	}
	return def
}

// Bool accepts strconv.ParseBool forms plus yes/no; anything else is def
func (e Env) Bool(key string, def bool) bool {
	v, ok := e.lookup(key)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "yes", "on":
		return true
	case "no", "off":
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Int returns a non-negative integer or def
func (e Env) Int(key string, def int) int {
	v, ok := e.lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
