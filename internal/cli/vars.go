package cli

import (
	"github.com/opspulse/opspulse/internal/dedup"
	"github.com/opspulse/opspulse/internal/notify"
	"github.com/opspulse/opspulse/internal/report"
	"github.com/opspulse/opspulse/pkg/models"
)

// Service instances, set during app initialization in app.go.
var (
	BasePath string
	Cfg      models.Config
	Builder  report.Builder
	DedupSvc dedup.Service
	Notifier notify.Notifier
)
