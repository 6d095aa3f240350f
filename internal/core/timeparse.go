package core

import (
	"strings"
	"time"
)

// isoLayouts covers the timestamp shapes that show up in telemetry
// documents, alert logs, and dedup state files. Zone-less values are
// interpreted as UTC.
var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseISOTime parses an ISO-8601 style timestamp. A trailing "Z" is
// normalized to an explicit UTC offset first, matching how upstream log
// producers write it. The second return is false when no layout matched.
func ParseISOTime(value string) (time.Time, bool) {
	text := strings.TrimSpace(value)
	if text == "" {
		return time.Time{}, false
	}
	if strings.HasSuffix(text, "Z") {
		text = text[:len(text)-1] + "+00:00"
	}
	for _, layout := range isoLayouts {
		if ts, err := time.Parse(layout, text); err == nil {
			return ts, true
		}
	}
	// Zone-less layouts above parse into UTC already via time.Parse.
	return time.Time{}, false
}
