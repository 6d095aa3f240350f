// Package internal provides the App struct that wires all opspulse services
// together and initializes the CLI layer.
package internal

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/opspulse/opspulse/internal/cli"
	"github.com/opspulse/opspulse/internal/core"
	"github.com/opspulse/opspulse/internal/dedup"
	"github.com/opspulse/opspulse/internal/notify"
	"github.com/opspulse/opspulse/internal/report"
	"github.com/opspulse/opspulse/internal/telemetry"
	"github.com/opspulse/opspulse/internal/threshold"
	"github.com/opspulse/opspulse/pkg/models"
)

// App holds all service dependencies for opspulse.
type App struct {
	BasePath string

	ConfigMgr core.ConfigurationManager
	Cfg       models.Config

	Profiles map[string]threshold.Table
	Scanner  telemetry.Scanner
	Builder  report.Builder
	DedupSvc dedup.Service
	Notifier notify.Notifier
}

// NewApp creates and wires all opspulse services. basePath is the directory
// holding the config file; relative paths in the config resolve against it.
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	cfg.LogsDir = resolvePath(basePath, cfg.LogsDir)
	cfg.RunbookPath = resolvePath(basePath, cfg.RunbookPath)
	cfg.DedupStatePath = resolvePath(basePath, cfg.DedupStatePath)
	cfg.ProfileFile = resolvePath(basePath, cfg.ProfileFile)
	app.Cfg = *cfg

	app.Profiles, err = core.LoadProfileFile(cfg.ProfileFile)
	if err != nil {
		return nil, fmt.Errorf("loading threshold profiles: %w", err)
	}

	app.Scanner = telemetry.NewScanner(cfg.LogsDir)
	app.Builder = report.NewBuilder(app.Cfg, app.Scanner, app.Profiles)
	app.DedupSvc = dedup.NewService(cfg.DedupStatePath, cfg.DedupCooldownSec, cfg.DedupTTLSec)
	if cfg.NotifyWebhookURL != "" {
		app.Notifier = notify.NewSlackNotifier(cfg.NotifyWebhookURL)
	}

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Cfg = app.Cfg
	cli.Builder = app.Builder
	cli.DedupSvc = app.DedupSvc
	cli.Notifier = app.Notifier

	return app, nil
}

// resolvePath joins a relative config path with the base path. Absolute
// paths and empty values pass through untouched.
func resolvePath(basePath, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(basePath, path)
}

// ResolveBasePath determines the directory opspulse runs against. It checks
// the OPSPULSE_HOME env var, then walks up from the current directory looking
// for a .opspulse.yaml, falling back to the current directory.
func ResolveBasePath() string {
	if home := os.Getenv("OPSPULSE_HOME"); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	cwd := dir
	for {
		if _, err := os.Stat(filepath.Join(dir, ".opspulse.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return cwd
}
