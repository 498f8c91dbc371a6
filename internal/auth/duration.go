package auth

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// NoExpiry is the lifetime produced by the duration string "-1": sessions
// that never expire. It is a sentinel, not a real duration — TokenService
// omits the exp claim entirely when it sees this value.
const NoExpiry = time.Duration(-1)

// durationPattern is the strict grammar for admin-configurable lifetimes.
// Only "-1", "0", or a number (optionally fractional, optionally negative)
// followed by one of the listed units is accepted. Notably time.ParseDuration
// would accept compound strings like "1h30m" and reject "d"/"w" — this
// grammar is the opposite, so it gets its own parser.
var durationPattern = regexp.MustCompile(`^(-1|0|(-?\d+(\.\d+)?)(ms|s|m|h|d|w))$`)

var durationUnits = map[string]time.Duration{
	"ms": time.Millisecond,
	"s":  time.Second,
	"m":  time.Minute,
	"h":  time.Hour,
	"d":  24 * time.Hour,
	"w":  7 * 24 * time.Hour,
}

// ParseDuration parses a lifetime string per the grammar above.
//
//	"-1"  → NoExpiry
//	"0"   → 0 (immediate expiry)
//	"30m" → 30 minutes, "2w" → 14 days, "0.5h" → 30 minutes
//
// Anything else is an error; callers treat that as "keep the prior value".
func ParseDuration(s string) (time.Duration, error) {
	m := durationPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("auth: invalid duration %q", s)
	}

	switch s {
	case "-1":
		return NoExpiry, nil
	case "0":
		return 0, nil
	}

	value, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, fmt.Errorf("auth: invalid duration %q: %w", s, err)
	}

	return time.Duration(value * float64(durationUnits[m[4]])), nil
}
