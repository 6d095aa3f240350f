package dedup

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func statePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "alert-dedup-state.json")
}

func readDoc(t *testing.T, path string) map[string]string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading state file: %v", err)
	}
	var doc struct {
		LastSent map[string]string `json:"last_sent"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decoding state file: %v", err)
	}
	return doc.LastSent
}

func TestShouldEmitFirstTime(t *testing.T) {
	path := statePath(t)
	svc := NewService(path, DefaultCooldownSec, DefaultTTLSec)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	d, err := svc.ShouldEmit("[2025-03-01T12:00:00Z] webhook delivery failed", now)
	if err != nil {
		t.Fatalf("ShouldEmit: %v", err)
	}
	if !d.Send {
		t.Error("first emission should send")
	}
	if d.SentAt != "2025-03-01T12:00:00Z" {
		t.Errorf("sent_at = %q", d.SentAt)
	}
	if got := readDoc(t, path)[d.Signature]; got != d.SentAt {
		t.Errorf("persisted timestamp = %q, want %q", got, d.SentAt)
	}
}

func TestShouldEmitWithinCooldownSuppresses(t *testing.T) {
	svc := NewService(statePath(t), 600, DefaultTTLSec)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	line := "[x] webhook delivery failed"

	if d, err := svc.ShouldEmit(line, now); err != nil || !d.Send {
		t.Fatalf("first emit: send=%v err=%v", d.Send, err)
	}
	d, err := svc.ShouldEmit(line, now.Add(599*time.Second))
	if err != nil {
		t.Fatalf("second emit: %v", err)
	}
	if d.Send {
		t.Error("emission inside cooldown should be suppressed")
	}
	if d.LastSent != "2025-03-01T12:00:00Z" {
		t.Errorf("last_sent = %q", d.LastSent)
	}
}

func TestShouldEmitAtCooldownBoundarySends(t *testing.T) {
	svc := NewService(statePath(t), 600, DefaultTTLSec)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	line := "[x] webhook delivery failed"

	if _, err := svc.ShouldEmit(line, now); err != nil {
		t.Fatal(err)
	}
	d, err := svc.ShouldEmit(line, now.Add(600*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if !d.Send {
		t.Error("elapsed == cooldown should send")
	}
}

func TestShouldEmitZeroCooldownAlwaysSends(t *testing.T) {
	svc := NewService(statePath(t), 0, DefaultTTLSec)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	line := "[x] repeated alert"

	for i := 0; i < 3; i++ {
		d, err := svc.ShouldEmit(line, now)
		if err != nil {
			t.Fatal(err)
		}
		if !d.Send {
			t.Fatalf("emission %d suppressed with zero cooldown", i)
		}
	}
}

func TestShouldEmitDifferentMessagesIndependent(t *testing.T) {
	svc := NewService(statePath(t), 600, DefaultTTLSec)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	if d, _ := svc.ShouldEmit("[x] alert one", now); !d.Send {
		t.Fatal("alert one suppressed")
	}
	if d, _ := svc.ShouldEmit("[x] alert two", now); !d.Send {
		t.Fatal("alert two suppressed by unrelated signature")
	}
}

func TestLoadStateMissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	if got := loadState(filepath.Join(dir, "absent.json")); len(got) != 0 {
		t.Errorf("missing file: %v", got)
	}

	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte("{not json"), 0o644)
	if got := loadState(bad); len(got) != 0 {
		t.Errorf("corrupt file: %v", got)
	}

	// last_sent of the wrong shape is ignored too.
	shape := filepath.Join(dir, "shape.json")
	os.WriteFile(shape, []byte(`{"last_sent": {"sig": 42, "ok": "2025-01-01T00:00:00Z"}}`), 0o644)
	got := loadState(shape)
	if len(got) != 1 || got["ok"] != "2025-01-01T00:00:00Z" {
		t.Errorf("mixed-shape state = %v", got)
	}
}

func TestPruneRemovesExpiredKeepsUnparsable(t *testing.T) {
	path := statePath(t)
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	seed := map[string]string{
		"old":    "2025-02-01T00:00:00Z",
		"fresh":  "2025-03-09T00:00:00Z",
		"broken": "not-a-timestamp",
	}
	if err := saveState(path, seed); err != nil {
		t.Fatal(err)
	}

	svc := NewService(path, 600, 7*24*3600)
	res, err := svc.Prune(now)
	if err != nil {
		t.Fatal(err)
	}
	if res.EntryCountBefore != 3 || res.EntryCountAfter != 2 || res.RemovedCount != 1 {
		t.Errorf("prune result = %+v", res)
	}
	left := readDoc(t, path)
	if _, ok := left["old"]; ok {
		t.Error("expired entry survived")
	}
	if _, ok := left["broken"]; !ok {
		t.Error("unparsable entry was pruned")
	}
}

func TestPruneZeroTTLKeepsEverything(t *testing.T) {
	path := statePath(t)
	seed := map[string]string{"ancient": "1999-01-01T00:00:00Z"}
	if err := saveState(path, seed); err != nil {
		t.Fatal(err)
	}
	svc := NewService(path, 600, 0)
	res, err := svc.Prune(time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if res.RemovedCount != 0 || res.EntryCountAfter != 1 {
		t.Errorf("prune with zero TTL = %+v", res)
	}
}

func TestSummarizeOrderingAndPreview(t *testing.T) {
	path := statePath(t)
	longSig := strings.Repeat("a", 64)
	seed := map[string]string{
		longSig:  "2025-03-02T00:00:00Z",
		"short":  "2025-03-03T00:00:00Z",
		"broken": "nope",
	}
	if err := saveState(path, seed); err != nil {
		t.Fatal(err)
	}

	svc := NewService(path, 600, 0)
	sum, err := svc.Summarize(5, time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if sum.EntryCount != 3 {
		t.Errorf("entry count = %d", sum.EntryCount)
	}
	if sum.OldestTime != "2025-03-02T00:00:00Z" || sum.NewestTime != "2025-03-03T00:00:00Z" {
		t.Errorf("oldest/newest = %q/%q", sum.OldestTime, sum.NewestTime)
	}
	if len(sum.TopSignatures) != 3 {
		t.Fatalf("top rows = %d", len(sum.TopSignatures))
	}
	if sum.TopSignatures[0].Signature != "short" {
		t.Errorf("newest first, got %q", sum.TopSignatures[0].Signature)
	}
	if sum.TopSignatures[2].Signature != "broken" {
		t.Errorf("unparsable timestamps rank last, got %q", sum.TopSignatures[2].Signature)
	}
	if want := longSig[:12] + "..."; sum.TopSignatures[1].Preview != want {
		t.Errorf("preview = %q, want %q", sum.TopSignatures[1].Preview, want)
	}
	if sum.TopSignatures[0].Preview != "short" {
		t.Errorf("short signatures keep full preview, got %q", sum.TopSignatures[0].Preview)
	}
}

func TestSummarizeMissingFile(t *testing.T) {
	svc := NewService(statePath(t), 600, DefaultTTLSec)
	sum, err := svc.Summarize(5, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Exists || sum.EntryCount != 0 || len(sum.TopSignatures) != 0 {
		t.Errorf("summary of missing state = %+v", sum)
	}
}

func TestResetWithBackup(t *testing.T) {
	path := statePath(t)
	if err := saveState(path, map[string]string{"sig": "2025-03-01T00:00:00Z"}); err != nil {
		t.Fatal(err)
	}
	svc := NewService(path, 600, 0)
	now := time.Date(2025, 3, 5, 10, 30, 0, 0, time.UTC)

	res, err := svc.Reset(true, now)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Existed || res.EntryCountBefore != 1 || res.EntryCountAfter != 0 {
		t.Errorf("reset result = %+v", res)
	}
	wantBackup := filepath.Join(filepath.Dir(path), "alert-dedup-state-20250305-103000.bak.json")
	if res.BackupPath != wantBackup {
		t.Errorf("backup path = %q, want %q", res.BackupPath, wantBackup)
	}
	if backed := readDoc(t, wantBackup); backed["sig"] != "2025-03-01T00:00:00Z" {
		t.Errorf("backup content = %v", backed)
	}
	if left := readDoc(t, path); len(left) != 0 {
		t.Errorf("state after reset = %v", left)
	}
}

func TestResetMissingStateStillWritesEmpty(t *testing.T) {
	path := statePath(t)
	svc := NewService(path, 600, 0)
	res, err := svc.Reset(false, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if res.Existed {
		t.Error("existed should be false for a missing document")
	}
	if res.BackupPath != "" {
		t.Errorf("backup path = %q for missing document", res.BackupPath)
	}
	if left := readDoc(t, path); len(left) != 0 {
		t.Errorf("state after reset = %v", left)
	}
}

func TestSaveStateLeavesNoTempFiles(t *testing.T) {
	path := statePath(t)
	if err := saveState(path, map[string]string{"sig": "ts"}); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("unexpected files next to state: %v", names)
	}
}
