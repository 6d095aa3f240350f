// Package watch re-evaluates thresholds whenever new telemetry lands in the
// logs directory.
package watch

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/opspulse/opspulse/internal/report"
)

// Watch monitors logsDir and calls onResult with a fresh check result each
// time a telemetry document is created or written. It runs until ctx is
// cancelled.
//
// If a re-check fails the error is logged and the previous result remains
// active; Watch does not call onResult.
func Watch(ctx context.Context, logsDir string, days int, builder report.Builder, onResult func(report.CheckResult)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(logsDir); err != nil {
		return err
	}

	slog.Info("watch: monitoring telemetry", "dir", logsDir, "days", days)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Run writers land documents via rename (atomic save), so
			// catch Create alongside Write.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !isTelemetryFile(event.Name) {
				continue
			}

			check, err := builder.Check(days, time.Now().UTC())
			if err != nil {
				slog.Error("watch: check failed, keeping previous result",
					"file", event.Name, "err", err)
				continue
			}

			slog.Info("watch: re-evaluated",
				"file", event.Name,
				"health", check.Health.Score,
				"violations", len(check.Violations))
			onResult(check)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("watch: watcher error", "err", err)
		}
	}
}

// isTelemetryFile reports whether a changed path is a pipeline metric
// document; state files and rollups churning in the same directory must not
// trigger re-checks.
func isTelemetryFile(path string) bool {
	name := path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		name = path[i+1:]
	}
	if !strings.HasSuffix(name, ".json") {
		return false
	}
	return strings.Contains(name, "-metrics-")
}
