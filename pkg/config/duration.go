package config

import (
	"fmt"
	"time"

	"github.com/sosodev/duration"
)

// ParseDuration parses an ISO 8601 duration ("PT15M", "P1D") or a Go
// duration ("15m", "500ms"). An empty string is zero.
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}

	isoDuration, err := duration.Parse(s)
	if err == nil {
		return isoDuration.ToTimeDuration(), nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: expected ISO 8601 or Go duration", s)
	}
	return d, nil
}

// MustParseDuration is ParseDuration for values already checked by Validate.
func MustParseDuration(s string) time.Duration {
	d, err := ParseDuration(s)
	if err != nil {
		panic(err)
	}
	return d
}
