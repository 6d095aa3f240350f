// Package dedup suppresses repeated alert emissions. Each alert line is
// reduced to a signature and the last emission time per signature is kept in
// a small JSON state document on disk.
package dedup

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/opspulse/opspulse/internal/alert"
	"github.com/opspulse/opspulse/internal/core"
)

const (
	// DefaultCooldownSec is the minimum quiet period between two emissions
	// of the same alert.
	DefaultCooldownSec = 600
	// DefaultTTLSec bounds how long an idle signature survives in state.
	DefaultTTLSec = 7 * 24 * 60 * 60
)

// EmitDecision is the outcome of one ShouldEmit call.
type EmitDecision struct {
	Send        bool    `json:"send"`
	Signature   string  `json:"signature"`
	LastSent    string  `json:"last_sent,omitempty"`
	CooldownSec float64 `json:"cooldown_sec"`
	TTLSec      float64 `json:"ttl_sec"`
	PrunedCount int     `json:"pruned_count"`
	SentAt      string  `json:"sent_at,omitempty"`
}

// PruneResult reports what a TTL sweep removed.
type PruneResult struct {
	StatePath        string  `json:"state_path"`
	TTLSec           float64 `json:"ttl_sec"`
	EntryCountBefore int     `json:"entry_count_before"`
	EntryCountAfter  int     `json:"entry_count_after"`
	RemovedCount     int     `json:"removed_count"`
}

// SignaturePreview is one row of a state summary, newest first.
type SignaturePreview struct {
	Signature string `json:"signature"`
	Preview   string `json:"signature_preview"`
	Timestamp string `json:"timestamp"`
}

// StateSummary describes the current dedup state document.
type StateSummary struct {
	StatePath     string             `json:"state_path"`
	Exists        bool               `json:"exists"`
	TTLSec        float64            `json:"ttl_sec"`
	PrunedCount   int                `json:"pruned_count"`
	EntryCount    int                `json:"entry_count"`
	OldestTime    string             `json:"oldest_timestamp"`
	NewestTime    string             `json:"newest_timestamp"`
	TopSignatures []SignaturePreview `json:"top_signatures"`
}

// ResetResult reports a state reset.
type ResetResult struct {
	StatePath             string  `json:"state_path"`
	Existed               bool    `json:"existed"`
	TTLSec                float64 `json:"ttl_sec"`
	PrunedCount           int     `json:"pruned_count"`
	EntryCountBeforePrune int     `json:"entry_count_before_prune"`
	EntryCountBefore      int     `json:"entry_count_before"`
	EntryCountAfter       int     `json:"entry_count_after"`
	BackupPath            string  `json:"backup_path"`
}

// Service is the deduplication state machine over one state document.
type Service interface {
	// ShouldEmit decides whether the alert line may be emitted now. When it
	// may, the emission is stamped into state before the call returns.
	ShouldEmit(line string, now time.Time) (EmitDecision, error)
	// Prune removes entries idle longer than the TTL.
	Prune(now time.Time) (PruneResult, error)
	// Summarize describes the state document. It prunes opportunistically
	// and persists the pruned state when anything was removed.
	Summarize(topN int, now time.Time) (StateSummary, error)
	// Reset empties the state, optionally keeping a timestamped backup.
	Reset(backup bool, now time.Time) (ResetResult, error)
	StatePath() string
}

type fileService struct {
	path        string
	cooldownSec float64
	ttlSec      float64
}

// NewService creates a file-backed dedup service. Non-positive cooldown
// means every alert is emitted; non-positive TTL means entries never expire.
func NewService(path string, cooldownSec, ttlSec float64) Service {
	return &fileService{
		path:        path,
		cooldownSec: max(0, cooldownSec),
		ttlSec:      max(0, ttlSec),
	}
}

func (s *fileService) StatePath() string { return s.path }

// state document wire format.
type stateDoc struct {
	LastSent map[string]json.RawMessage `json:"last_sent"`
}

// loadState reads the state document. A missing, unreadable, or malformed
// document yields an empty mapping, never an error; dedup must not block
// alerting.
func loadState(path string) map[string]string {
	data, err := os.ReadFile(path)
	if err != nil {
		return map[string]string{}
	}
	var doc stateDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return map[string]string{}
	}
	state := make(map[string]string, len(doc.LastSent))
	for sig, raw := range doc.LastSent {
		var ts string
		// Non-string timestamps are dropped, same as unknown signatures
		// in a hand-edited file.
		if err := json.Unmarshal(raw, &ts); err == nil {
			state[sig] = ts
		}
	}
	return state
}

// saveState writes the document atomically: temp file in the same
// directory, fsync, then rename over the target.
func saveState(path string, state map[string]string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	payload, err := json.MarshalIndent(stateDocOut{LastSent: state}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	payload = append(payload, '\n')

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp state file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}

type stateDocOut struct {
	LastSent map[string]string `json:"last_sent"`
}

// pruneEntries drops entries older than the TTL cutoff. Entries whose
// timestamp does not parse are retained; expiry needs positive evidence.
func pruneEntries(state map[string]string, ttlSec float64, now time.Time) (map[string]string, int) {
	retained := make(map[string]string, len(state))
	if ttlSec <= 0 {
		for sig, ts := range state {
			retained[sig] = ts
		}
		return retained, 0
	}
	cutoff := now.Add(-time.Duration(ttlSec * float64(time.Second)))
	removed := 0
	for sig, ts := range state {
		parsed, ok := core.ParseISOTime(ts)
		if !ok || !parsed.Before(cutoff) {
			retained[sig] = ts
		} else {
			removed++
		}
	}
	return retained, removed
}

// loadWithPrune loads state and applies the TTL sweep. The pruned state is
// persisted only when the sweep removed something.
func (s *fileService) loadWithPrune(now time.Time) (state map[string]string, removed, beforeCount int, err error) {
	loaded := loadState(s.path)
	pruned, removed := pruneEntries(loaded, s.ttlSec, now)
	if removed > 0 {
		if err := saveState(s.path, pruned); err != nil {
			return nil, 0, 0, err
		}
	}
	return pruned, removed, len(loaded), nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func (s *fileService) ShouldEmit(line string, now time.Time) (EmitDecision, error) {
	now = now.UTC()
	sig := alert.Signature(line)
	state, pruned, _, err := s.loadWithPrune(now)
	if err != nil {
		return EmitDecision{}, fmt.Errorf("pruning dedup state: %w", err)
	}

	lastSent := state[sig]
	decision := EmitDecision{
		Send:        shouldEmit(lastSent, s.cooldownSec, now),
		Signature:   sig,
		LastSent:    lastSent,
		CooldownSec: s.cooldownSec,
		TTLSec:      s.ttlSec,
		PrunedCount: pruned,
	}
	if decision.Send {
		sentAt := formatTimestamp(now)
		state[sig] = sentAt
		if err := saveState(s.path, state); err != nil {
			return EmitDecision{}, fmt.Errorf("recording emission: %w", err)
		}
		decision.SentAt = sentAt
	}
	return decision, nil
}

// shouldEmit applies the cooldown rule to one signature's last emission.
func shouldEmit(lastSent string, cooldownSec float64, now time.Time) bool {
	if cooldownSec <= 0 {
		return true
	}
	parsed, ok := core.ParseISOTime(lastSent)
	if !ok {
		return true
	}
	return now.Sub(parsed).Seconds() >= cooldownSec
}

func (s *fileService) Prune(now time.Time) (PruneResult, error) {
	_, removed, before, err := s.loadWithPrune(now.UTC())
	if err != nil {
		return PruneResult{}, err
	}
	return PruneResult{
		StatePath:        s.path,
		TTLSec:           s.ttlSec,
		EntryCountBefore: before,
		EntryCountAfter:  before - removed,
		RemovedCount:     removed,
	}, nil
}

func (s *fileService) Summarize(topN int, now time.Time) (StateSummary, error) {
	now = now.UTC()
	state, pruned, _, err := s.loadWithPrune(now)
	if err != nil {
		return StateSummary{}, err
	}

	type row struct {
		sig    string
		ts     string
		parsed time.Time
		ok     bool
	}
	rows := make([]row, 0, len(state))
	for sig, ts := range state {
		parsed, ok := core.ParseISOTime(ts)
		rows = append(rows, row{sig: sig, ts: ts, parsed: parsed, ok: ok})
	}
	// Deterministic base order before the ranking sort; map iteration
	// order is not.
	sort.Slice(rows, func(i, j int) bool { return rows[i].sig < rows[j].sig })
	// Newest first, entries without a parsable timestamp last.
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].ok != rows[j].ok {
			return rows[i].ok
		}
		return rows[i].parsed.After(rows[j].parsed)
	})

	var oldest, newest string
	for _, r := range rows {
		if !r.ok {
			continue
		}
		if newest == "" {
			newest = formatTimestamp(r.parsed)
		}
		oldest = formatTimestamp(r.parsed)
	}

	const previewLength = 12
	limit := max(0, topN)
	if limit > len(rows) {
		limit = len(rows)
	}
	top := make([]SignaturePreview, 0, limit)
	for _, r := range rows[:limit] {
		preview := r.sig
		if len(preview) > previewLength {
			preview = preview[:previewLength] + "..."
		}
		top = append(top, SignaturePreview{Signature: r.sig, Preview: preview, Timestamp: r.ts})
	}

	exists := false
	if _, statErr := os.Stat(s.path); statErr == nil {
		exists = true
	}
	return StateSummary{
		StatePath:     s.path,
		Exists:        exists,
		TTLSec:        s.ttlSec,
		PrunedCount:   pruned,
		EntryCount:    len(state),
		OldestTime:    oldest,
		NewestTime:    newest,
		TopSignatures: top,
	}, nil
}

func (s *fileService) Reset(backup bool, now time.Time) (ResetResult, error) {
	now = now.UTC()
	state, pruned, beforePrune, err := s.loadWithPrune(now)
	if err != nil {
		return ResetResult{}, err
	}

	existed := false
	if _, statErr := os.Stat(s.path); statErr == nil {
		existed = true
	}

	backupPath := ""
	if existed && backup {
		backupPath = backupName(s.path, now)
		if err := copyFile(s.path, backupPath); err != nil {
			return ResetResult{}, fmt.Errorf("backing up dedup state: %w", err)
		}
	}

	if err := saveState(s.path, map[string]string{}); err != nil {
		return ResetResult{}, fmt.Errorf("resetting dedup state: %w", err)
	}
	return ResetResult{
		StatePath:             s.path,
		Existed:               existed,
		TTLSec:                s.ttlSec,
		PrunedCount:           pruned,
		EntryCountBeforePrune: beforePrune,
		EntryCountBefore:      len(state),
		EntryCountAfter:       0,
		BackupPath:            backupPath,
	}, nil
}

// backupName derives <stem>-YYYYMMDD-HHMMSS.bak<ext> next to the state file.
func backupName(path string, now time.Time) string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(filepath.Base(path), ext)
	name := fmt.Sprintf("%s-%s.bak%s", stem, now.UTC().Format("20060102-150405"), ext)
	return filepath.Join(filepath.Dir(path), name)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
