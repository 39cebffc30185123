package contract

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Define the regular expression to capture "N [units]".
var windowDurationRe = regexp.MustCompile(`^(\d+)\s*(year|month|week|day|hour|y|mo|w|d|h)s?$`)

// ParseWindowDuration converts strings like "90 days", "12w" or "720h" into a time.Duration.
// It first tries Go's built-in time.ParseDuration, then falls back to calendar-ish units.
func ParseWindowDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)

	if duration, err := time.ParseDuration(s); err == nil {
		if duration <= 0 {
			return 0, errors.New("window must be positive")
		}
		return duration, nil
	}

	s = strings.ToLower(s)
	matches := windowDurationRe.FindStringSubmatch(s)
	if len(matches) == 0 {
		return 0, fmt.Errorf("invalid window duration format: %s", s)
	}

	// 1: Value (e.g., "2")
	// 2: Unit (e.g., "week" or "w")
	value, _ := strconv.Atoi(matches[1])
	day := 24 * time.Hour

	var total time.Duration
	switch matches[2] {
	case "year", "y":
		total = time.Duration(value) * 365 * day
	case "month", "mo":
		total = time.Duration(value) * 30 * day
	case "week", "w":
		total = time.Duration(value) * 7 * day
	case "day", "d":
		total = time.Duration(value) * day
	case "hour", "h":
		total = time.Duration(value) * time.Hour
	}

	if total <= 0 {
		return 0, errors.New("window must be positive")
	}
	return total, nil
}
