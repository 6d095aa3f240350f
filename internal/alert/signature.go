// Package alert normalizes, signs, and classifies free-text alert log lines.
package alert

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var (
	timestampPrefixRe = regexp.MustCompile(`^\[[^\]]+\]\s*`)
	whitespaceRe      = regexp.MustCompile(`\s+`)
)

// Normalize reduces an alert line to its canonical message form: the leading
// bracketed timestamp is stripped, runs of whitespace collapse to a single
// space, and the result is trimmed and lower-cased. Two emissions of the same
// alert at different times normalize identically.
func Normalize(line string) string {
	// Trim before the anchored prefix match so leading whitespace cannot
	// keep the timestamp inside the message.
	msg := timestampPrefixRe.ReplaceAllString(strings.TrimSpace(line), "")
	msg = whitespaceRe.ReplaceAllString(msg, " ")
	return strings.ToLower(strings.TrimSpace(msg))
}

// Signature returns the SHA-256 hex digest of the normalized alert message.
func Signature(line string) string {
	sum := sha256.Sum256([]byte(Normalize(line)))
	return hex.EncodeToString(sum[:])
}
