package core

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/opspulse/opspulse/internal/threshold"
	"github.com/opspulse/opspulse/pkg/models"
)

// LoadProfileFile reads a custom threshold profile table from a YAML file.
// An empty path means no custom table and returns nil. Unlike telemetry
// inputs, a profile file is operator-written policy: naming one that is
// missing or malformed is a hard error, not something to shrug off.
func LoadProfileFile(path string) (map[string]threshold.Table, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile file %s: %w", path, err)
	}

	var doc map[string]map[string]threshold.Limits
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing profile file %s: %w", path, err)
	}
	if len(doc) == 0 {
		return nil, fmt.Errorf("profile file %s defines no profiles", path)
	}

	profiles := make(map[string]threshold.Table, len(doc))
	for name, pipelines := range doc {
		table := make(threshold.Table, len(pipelines))
		for _, pipeline := range models.KnownPipelines {
			limits, ok := pipelines[string(pipeline)]
			if !ok {
				return nil, fmt.Errorf("profile file %s: profile %q is missing pipeline %q", path, name, pipeline)
			}
			if limits.MaxDurationSec < 1 {
				return nil, fmt.Errorf("profile file %s: profile %q pipeline %q: max_duration_sec must be at least 1", path, name, pipeline)
			}
			if limits.MaxFailureRate < 0 || limits.MaxFailureRate > 1 {
				return nil, fmt.Errorf("profile file %s: profile %q pipeline %q: max_failure_rate must be within [0, 1]", path, name, pipeline)
			}
			table[pipeline] = limits
		}
		profiles[name] = table
	}
	return profiles, nil
}
