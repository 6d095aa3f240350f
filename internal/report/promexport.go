package report

import (
	"fmt"
	"os"
	"path/filepath"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/opspulse/opspulse/pkg/models"
)

// WritePromFile renders a check result in the Prometheus text exposition
// format for the node_exporter textfile collector. The file is written via
// temp-and-rename so the collector never reads a half-written exposition.
func WritePromFile(check CheckResult, path string) error {
	families := buildMetricFamilies(check)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp metrics file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	encoder := expfmt.NewEncoder(tmp, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, family := range families {
		// The text encoder rejects families without samples.
		if len(family.Metric) == 0 {
			continue
		}
		if err := encoder.Encode(family); err != nil {
			tmp.Close()
			return fmt.Errorf("encoding metric family %s: %w", family.GetName(), err)
		}
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp metrics file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing metrics file: %w", err)
	}
	return nil
}

func buildMetricFamilies(check CheckResult) []*dto.MetricFamily {
	gauge := func(name, help string, metrics []*dto.Metric) *dto.MetricFamily {
		return &dto.MetricFamily{
			Name:   proto.String(name),
			Help:   proto.String(help),
			Type:   dto.MetricType_GAUGE.Enum(),
			Metric: metrics,
		}
	}
	plain := func(value float64) []*dto.Metric {
		return []*dto.Metric{{Gauge: &dto.Gauge{Value: proto.Float64(value)}}}
	}
	perPipeline := func(value func(models.Pipeline) (float64, bool)) []*dto.Metric {
		var metrics []*dto.Metric
		for _, pipeline := range models.KnownPipelines {
			v, ok := value(pipeline)
			if !ok {
				continue
			}
			metrics = append(metrics, &dto.Metric{
				Label: []*dto.LabelPair{{
					Name:  proto.String("pipeline"),
					Value: proto.String(string(pipeline)),
				}},
				Gauge: &dto.Gauge{Value: proto.Float64(v)},
			})
		}
		return metrics
	}

	streaks := map[models.Pipeline]int{}
	for _, vp := range check.ContinuousAlert.ViolatedPipelines {
		streaks[vp.Pipeline] = vp.ConsecutiveFailures
	}

	return []*dto.MetricFamily{
		gauge("opspulse_health_score",
			"Composite operational health score, 0-100.",
			plain(float64(check.Health.Score))),
		gauge("opspulse_total_runs",
			"Pipeline runs observed in the scan window.",
			plain(float64(check.Summary.TotalRuns))),
		gauge("opspulse_threshold_violations",
			"Threshold violations detected in the scan window.",
			plain(float64(len(check.Violations)))),
		gauge("opspulse_pipeline_runs",
			"Runs per pipeline in the scan window.",
			perPipeline(func(p models.Pipeline) (float64, bool) {
				agg, ok := check.Summary.Pipelines[p]
				return float64(agg.RunCount), ok
			})),
		gauge("opspulse_pipeline_success_rate",
			"Success rate per pipeline in the scan window.",
			perPipeline(func(p models.Pipeline) (float64, bool) {
				agg, ok := check.Summary.Pipelines[p]
				return agg.SuccessRate, ok && agg.RunCount > 0
			})),
		gauge("opspulse_pipeline_consecutive_failures",
			"Consecutive newest-first failures per flagged pipeline.",
			perPipeline(func(p models.Pipeline) (float64, bool) {
				streak, ok := streaks[p]
				return float64(streak), ok
			})),
	}
}
