// Package mcp exposes opspulse checks and reports as MCP tools so assistants
// can query pipeline health over stdio.
package mcp

import (
	"context"
	"fmt"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/opspulse/opspulse/internal/dedup"
	"github.com/opspulse/opspulse/internal/report"
	"github.com/opspulse/opspulse/pkg/models"
)

// Server wraps opspulse services and exposes them as MCP tools.
type Server struct {
	server  *gomcp.Server
	builder report.Builder
	dedup   dedup.Service
	days    int
}

// NewServer creates an MCP server over the given services. defaultDays is the
// report window used when a tool call does not specify one.
func NewServer(builder report.Builder, dedupSvc dedup.Service, defaultDays int, version string) *Server {
	if version == "" {
		version = "dev"
	}
	if defaultDays <= 0 {
		defaultDays = 7
	}

	s := &Server{
		builder: builder,
		dedup:   dedupSvc,
		days:    defaultDays,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "opspulse", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run starts the MCP server on stdio, blocking until the client disconnects
// or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type checkThresholdsInput struct {
	Days int `json:"days,omitempty" jsonschema:"lookback window in days (defaults to the configured report window)"`
}

type checkThresholdsOutput struct {
	ThresholdProfile string                 `json:"threshold_profile"`
	TotalRuns        int                    `json:"total_runs"`
	HealthScore      int                    `json:"health_score"`
	ViolationCount   int                    `json:"violation_count"`
	Violations       []models.Violation     `json:"violations"`
	ContinuousAlert  models.ContinuityState `json:"continuous_alert"`
}

type getReportInput struct {
	Days int `json:"days,omitempty" jsonschema:"lookback window in days (defaults to the configured report window)"`
}

type dedupStatusInput struct {
	Top int `json:"top,omitempty" jsonschema:"number of most recent signatures to include. Defaults to 5."`
}

type shouldEmitInput struct {
	Line string `json:"line" jsonschema:"required,the raw alert line to check against the deduplication state"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "check_thresholds",
		Description: "Scan pipeline telemetry and evaluate duration and failure-rate thresholds. Returns violations, the health score, and consecutive-failure status.",
	}, s.handleCheckThresholds)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_report",
		Description: "Build the full operational report: health score with breakdown, per-pipeline success rates, violations, alert rollups, artifact integrity, and retry guides.",
	}, s.handleGetReport)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "dedup_status",
		Description: "Summarize the alert deduplication state: entry count, oldest and newest emission times, and the most recent signatures.",
	}, s.handleDedupStatus)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "dedup_should_emit",
		Description: "Decide whether an alert line may be emitted now under the cooldown rule. A positive decision is recorded in state.",
	}, s.handleShouldEmit)
}

// --- Tool handlers ---

func (s *Server) handleCheckThresholds(_ context.Context, _ *gomcp.CallToolRequest, input checkThresholdsInput) (*gomcp.CallToolResult, checkThresholdsOutput, error) {
	days := input.Days
	if days <= 0 {
		days = s.days
	}

	check, err := s.builder.Check(days, time.Now().UTC())
	if err != nil {
		return errorResult(fmt.Sprintf("checking thresholds: %s", err)), checkThresholdsOutput{}, nil
	}

	out := checkThresholdsOutput{
		ThresholdProfile: check.ThresholdProfile,
		TotalRuns:        check.Summary.TotalRuns,
		HealthScore:      check.Health.Score,
		ViolationCount:   len(check.Violations),
		Violations:       check.Violations,
		ContinuousAlert:  check.ContinuousAlert,
	}
	return nil, out, nil
}

func (s *Server) handleGetReport(_ context.Context, _ *gomcp.CallToolRequest, input getReportInput) (*gomcp.CallToolResult, models.OpsReport, error) {
	days := input.Days
	if days <= 0 {
		days = s.days
	}

	rep, err := s.builder.Build(days, time.Now().UTC())
	if err != nil {
		return errorResult(fmt.Sprintf("building report: %s", err)), models.OpsReport{}, nil
	}

	return nil, rep, nil
}

func (s *Server) handleDedupStatus(_ context.Context, _ *gomcp.CallToolRequest, input dedupStatusInput) (*gomcp.CallToolResult, dedup.StateSummary, error) {
	if s.dedup == nil {
		return errorResult("dedup service not available"), dedup.StateSummary{}, nil
	}

	top := input.Top
	if top <= 0 {
		top = 5
	}

	summary, err := s.dedup.Summarize(top, time.Now().UTC())
	if err != nil {
		return errorResult(fmt.Sprintf("summarizing dedup state: %s", err)), dedup.StateSummary{}, nil
	}

	return nil, summary, nil
}

func (s *Server) handleShouldEmit(_ context.Context, _ *gomcp.CallToolRequest, input shouldEmitInput) (*gomcp.CallToolResult, dedup.EmitDecision, error) {
	if s.dedup == nil {
		return errorResult("dedup service not available"), dedup.EmitDecision{}, nil
	}
	if input.Line == "" {
		return errorResult("line is required"), dedup.EmitDecision{}, nil
	}

	decision, err := s.dedup.ShouldEmit(input.Line, time.Now().UTC())
	if err != nil {
		return errorResult(fmt.Sprintf("evaluating dedup decision: %s", err)), dedup.EmitDecision{}, nil
	}

	return nil, decision, nil
}

// --- Helpers ---

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
