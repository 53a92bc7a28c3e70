package ledger

import (
	"errors"
	"strings"
	"time"
)

// Layouts without a zone; values are read as UTC. Fractional seconds are accepted by time.Parse
// even though the layouts do not spell them out.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp accepts the formats written by every revision of the log:
// "2006-01-02 15:04:05 UTC", RFC 3339 with "Z" or a numeric offset, and naive ISO 8601.
// The result is always in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if strings.HasSuffix(s, "UTC") {
		return parseNaive(strings.TrimSpace(strings.TrimSuffix(s, "UTC")))
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	return parseNaive(s)
}

func parseNaive(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range naiveLayouts {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// FormatTimestamp is the canonical form used for new entries.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
