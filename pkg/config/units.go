package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support extended units (d, w) in YAML/JSON.
type Duration time.Duration

// Common durations.
const (
	Day  = 24 * time.Hour
	Week = 7 * Day
)

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// ParseDuration parses a duration string, supporting d and w.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	// fast path for standard units or simple numbers (assume ns if number?)
	// Standard time.ParseDuration doesn't like 'd' or 'w'.

	// Check for 'd' or 'w'
	if strings.ContainsAny(s, "dw") {
		// Simple recursive logic or regex replace?
		// Regex to find (value)(unit) pairs is safer.
		// But time.ParseDuration allows composite "2h45m".
		// Implementing a full parser is complex.
		// Let's support simple single units or standard composite if no d/w.

		// If it contains d/w, let's try to handle it.
		// A simple approach: convert "1d" -> "24h", "1w" -> "168h".
		// But "1d2h" -> "24h2h"? Valid.

		// Regex replacement approach
		// Warning: this is simple and might break if they write "100msd" (unlikely)

		// Let's manually parse common cases or just simple regex replace.
		// converting 1d to 24h, But we need to calculate the value.
		// "2d" -> 48h.

		return parseExtendedDuration(s)
	}

	return time.ParseDuration(s)
}

var unitMap = map[string]time.Duration{
	"ns": time.Nanosecond,
	"us": time.Microsecond,
	"µs": time.Microsecond,
	"ms": time.Millisecond,
	"s":  time.Second,
	"m":  time.Minute,
	"h":  time.Hour,
	"d":  Day,
	"w":  Week,
}

func parseExtendedDuration(s string) (time.Duration, error) {
	// Simple scanner
	var total time.Duration

	// Regexp to match number + unit
	// valid number: ints or floats
	re := regexp.MustCompile(`([0-9.]+)([a-zµ]+)`)
	matches := re.FindAllStringSubmatch(s, -1)

	if len(matches) == 0 {
		return 0, fmt.Errorf("invalid duration format: %s", s)
	}

	for _, match := range matches {
		valStr := match[1]
		unitStr := match[2]

		val, err := strconv.ParseFloat(valStr, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number in duration: %s", valStr)
		}

		base, ok := unitMap[unitStr]
		if !ok {
			return 0, fmt.Errorf("unknown unit: %s", unitStr)
		}

		total += time.Duration(val * float64(base))
	}

	return total, nil
}
