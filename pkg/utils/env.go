package utils

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

func Env(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

// EnvFirst returns the first non-empty value among keys, or def.
func EnvFirst(def string, keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// ParseEnvInt64 returns the env var as int64, or def when unset.
// Unlike a lenient lookup it reports garbage instead of silently defaulting.
func ParseEnvInt64(key string, def int64) (int64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("env %s=%q is not an integer", key, v)
	}
	return n, nil
}

// ParseEnvInt32 is ParseEnvInt64 bounded to the int32 range.
func ParseEnvInt32(key string, def int32) (int32, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("env %s=%q is not a 32-bit integer", key, v)
	}
	return int32(n), nil
}

// maxSeconds is the largest whole-second count a time.Duration can hold.
const maxSeconds = math.MaxInt64 / int64(time.Second)

// ParseEnvSeconds reads a whole number of seconds. Values that do not fit a
// time.Duration are rejected rather than wrapped.
func ParseEnvSeconds(key string, def time.Duration) (time.Duration, error) {
	n, err := ParseEnvInt64(key, int64(def/time.Second))
	if err != nil {
		return 0, err
	}
	if n > maxSeconds || n < -maxSeconds {
		return 0, fmt.Errorf("env %s=%q is out of range for a duration in seconds", key, os.Getenv(key))
	}
	return time.Duration(n) * time.Second, nil
}
