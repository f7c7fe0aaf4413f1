package auth

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var ttlPattern = regexp.MustCompile(`^(\d+)([dwh])$`)

// ParseTTL parses a lifetime for sessions and reset tokens.
// Supported formats:
//   - "7d" - days
//   - "2w" - weeks
//   - "24h" - hours
//   - Any valid Go duration like "30m", "2h30m", etc.
//
// The result must be positive.
func ParseTTL(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty ttl")
	}

	if dur, err := time.ParseDuration(s); err == nil {
		if dur <= 0 {
			return 0, fmt.Errorf("ttl must be positive: %s", s)
		}
		return dur, nil
	}

	matches := ttlPattern.FindStringSubmatch(s)
	if len(matches) != 3 {
		return 0, fmt.Errorf("invalid ttl format: %s (use '7d', '2w', '24h' or any Go duration like '30m')", s)
	}

	num, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, fmt.Errorf("invalid number in ttl: %s", s)
	}
	if num == 0 {
		return 0, fmt.Errorf("ttl must be positive: %s", s)
	}

	switch matches[2] {
	case "d":
		return time.Duration(num) * 24 * time.Hour, nil
	case "w":
		return time.Duration(num) * 7 * 24 * time.Hour, nil
	default:
		return time.Duration(num) * time.Hour, nil
	}
}
