package pipeline

import (
	"fmt"

	"github.com/vk/pipegridgo/internal/config"
)

// DefaultName is used when a definition omits the pipeline name.
const DefaultName = "unnamed_pipeline"

// FromDocument translates a raw config document into a strict Pipeline,
// filling in every documented default. It fails only on structural problems
// (stages present but not a list, stage entries that are not mappings);
// semantic validation belongs to config.Validate and the graph package.
func FromDocument(doc config.Document) (*Pipeline, error) {
	if doc == nil {
		return nil, fmt.Errorf("pipeline definition cannot be decoded as a mapping")
	}

	p := &Pipeline{
		Name:        stringOr(doc["name"], DefaultName),
		Description: stringOr(doc["description"], ""),
		Variables:   stringMapOr(doc["variables"]),
		Timeout:     numberOr(doc["timeout"], DefaultTimeoutSeconds),
		Triggers:    stringListOr(doc["triggers"]),
		Status:      StatusPending,
	}
	if p.Variables == nil {
		p.Variables = map[string]string{}
	}

	rawStages, ok := doc["stages"]
	if !ok || rawStages == nil {
		p.Stages = []*Stage{}
		return p, nil
	}
	stageList, ok := asList(rawStages)
	if !ok {
		return nil, fmt.Errorf("'stages' must be a list")
	}

	p.Stages = make([]*Stage, 0, len(stageList))
	for i, rawStage := range stageList {
		stage, err := parseStage(rawStage)
		if err != nil {
			return nil, fmt.Errorf("stage %d: %w", i, err)
		}
		p.Stages = append(p.Stages, stage)
	}

	return p, nil
}

func parseStage(raw any) (*Stage, error) {
	m, ok := asMap(raw)
	if !ok {
		return nil, fmt.Errorf("must be a mapping")
	}

	stage := &Stage{
		Name:         stringOr(m["name"], ""),
		Dependencies: stringListOr(m["dependencies"]),
		Environment:  stringMapOr(m["environment"]),
		Parallel:     boolOr(m["parallel"]),
		AllowFailure: boolOr(m["allow_failure"]),
		Status:       StatusPending,
	}
	if stage.Dependencies == nil {
		stage.Dependencies = []string{}
	}
	if stage.Environment == nil {
		stage.Environment = map[string]string{}
	}

	if rawCond, ok := m["conditions"]; ok && rawCond != nil {
		if cm, ok := asMap(rawCond); ok {
			stage.Conditions = &Conditions{
				Branch:      stringOr(cm["branch"], ""),
				Environment: stringMapOr(cm["environment"]),
				Custom:      stringOr(cm["custom"], ""),
			}
		}
	}

	if rawJobs, ok := m["jobs"]; ok && rawJobs != nil {
		jobList, ok := asList(rawJobs)
		if !ok {
			return nil, fmt.Errorf("'jobs' must be a list")
		}
		stage.Jobs = make([]*Job, 0, len(jobList))
		for i, rawJob := range jobList {
			job, err := parseJob(rawJob)
			if err != nil {
				return nil, fmt.Errorf("job %d: %w", i, err)
			}
			stage.Jobs = append(stage.Jobs, job)
		}
	} else {
		stage.Jobs = []*Job{}
	}

	return stage, nil
}

func parseJob(raw any) (*Job, error) {
	m, ok := asMap(raw)
	if !ok {
		return nil, fmt.Errorf("must be a mapping")
	}

	job := &Job{
		Name:         stringOr(m["name"], ""),
		Commands:     stringListOr(m["commands"]),
		Timeout:      numberOr(m["timeout"], 0),
		RetryCount:   int(numberOr(m["retry_count"], 0)),
		AllowFailure: boolOr(m["allow_failure"]),
		Artifacts:    stringListOr(m["artifacts"]),
		Dependencies: stringListOr(m["dependencies"]),
		Status:       StatusPending,
	}
	if job.Artifacts == nil {
		job.Artifacts = []string{}
	}
	if job.Dependencies == nil {
		job.Dependencies = []string{}
	}

	return job, nil
}

// --- loose-type coercion helpers ---

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fallback
}

func boolOr(v any) bool {
	b, _ := v.(bool)
	return b
}

func numberOr(v any, fallback float64) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	case float32:
		return float64(n)
	case uint64:
		return float64(n)
	default:
		return fallback
	}
}

func stringListOr(v any) []string {
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...)
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func stringMapOr(v any) map[string]string {
	m, ok := asMap(v)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, val := range m {
		if s, ok := val.(string); ok {
			out[k] = s
		} else {
			out[k] = fmt.Sprintf("%v", val)
		}
	}
	return out
}

func asList(v any) ([]any, bool) {
	switch list := v.(type) {
	case []any:
		return list, true
	case []string:
		out := make([]any, len(list))
		for i, s := range list {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case config.Document:
		return m, true
	default:
		return nil, false
	}
}
