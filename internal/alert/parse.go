package alert

import (
	"strings"
	"time"

	"github.com/opspulse/opspulse/internal/core"
)

// Pipeline attribution categories for parsed alerts. Monthly work never
// raises its own alerts, so anything that is not daily or weekly lands in
// "unknown".
var PipelineCategories = []string{"daily", "weekly", "unknown"}

// TypeCategories lists every alert classification bucket.
var TypeCategories = []string{"threshold", "webhook_failed", "command_failed", "monthly_scheduled", "other"}

// Parsed is the structured form of one alerts.log line.
type Parsed struct {
	Raw       string
	Message   string
	Timestamp time.Time
	HasTime   bool
	Pipeline  string
	Type      string
}

// splitLine separates "[timestamp] message". The prefix grammar is the same
// one Normalize strips.
func splitLine(line string) (ts, msg string, ok bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "[") {
		return "", "", false
	}
	end := strings.Index(trimmed, "]")
	if end < 0 {
		return "", "", false
	}
	return trimmed[1:end], strings.TrimSpace(trimmed[end+1:]), true
}

func detectPipeline(message string) string {
	lower := strings.ToLower(message)
	for _, p := range []string{"daily", "weekly"} {
		if strings.Contains(lower, p+" pipeline") ||
			strings.Contains(lower, `"pipeline":"`+p+`"`) ||
			strings.Contains(lower, "pipeline="+p) {
			return p
		}
	}
	return "unknown"
}

func detectType(message string) string {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "command failed"):
		return "command_failed"
	case strings.Contains(lower, "monthly report scheduled"):
		return "monthly_scheduled"
	case strings.Contains(lower, "webhook") &&
		(strings.Contains(lower, "final failure") || strings.Contains(lower, "failed") || strings.Contains(lower, "failure")):
		return "webhook_failed"
	case strings.Contains(lower, "below threshold") || strings.Contains(lower, "threshold"):
		return "threshold"
	default:
		return "other"
	}
}

// ParseLine parses one alerts.log line. Lines without a bracketed timestamp
// prefix are still classified; they just carry no timestamp.
func ParseLine(line string) Parsed {
	if ts, msg, ok := splitLine(line); ok {
		parsed := Parsed{Raw: line, Message: msg}
		if t, tok := core.ParseISOTime(ts); tok {
			parsed.Timestamp = t
			parsed.HasTime = true
		}
		parsed.Pipeline = detectPipeline(msg)
		parsed.Type = detectType(msg)
		return parsed
	}
	msg := strings.TrimSpace(line)
	return Parsed{
		Raw:      line,
		Message:  msg,
		Pipeline: detectPipeline(msg),
		Type:     detectType(msg),
	}
}

// ParseLines parses every non-blank line.
func ParseLines(lines []string) []Parsed {
	out := make([]Parsed, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, ParseLine(line))
	}
	return out
}

// Summary aggregates parsed alerts inside a window.
type Summary struct {
	PerDay         map[string]int
	PipelineCounts map[string]int
	TypeCounts     map[string]int
}

// Summarize counts alerts at or after since, grouped by calendar day,
// pipeline, and alert type. Alerts without a parsable timestamp are skipped.
// Category maps always carry every known bucket, zero-valued when unseen.
func Summarize(alerts []Parsed, since time.Time) Summary {
	s := Summary{
		PerDay:         map[string]int{},
		PipelineCounts: map[string]int{},
		TypeCounts:     map[string]int{},
	}
	for _, name := range PipelineCategories {
		s.PipelineCounts[name] = 0
	}
	for _, name := range TypeCategories {
		s.TypeCounts[name] = 0
	}

	for _, a := range alerts {
		if !a.HasTime || a.Timestamp.Before(since) {
			continue
		}
		day := a.Timestamp.Format("2006-01-02")
		s.PerDay[day]++
		s.PipelineCounts[a.Pipeline]++
		s.TypeCounts[a.Type]++
	}
	return s
}
