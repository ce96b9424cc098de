package config

import "fmt"

// validTriggers is the fixed vocabulary of pipeline trigger kinds.
var validTriggers = map[string]bool{
	"push":         true,
	"pull_request": true,
	"manual":       true,
	"schedule":     true,
}

// Validate performs structural validation of a pipeline document. It never
// fails fast: every applicable problem is reported, as a human-readable
// string, so callers can render the full list at once. The document is
// valid exactly when the returned list is empty.
//
// Validate is purely structural. Dependency semantics (missing references,
// cycles) are the graph package's concern.
func Validate(doc Document) (bool, []string) {
	var errs []string

	if name, ok := doc["name"]; !ok {
		errs = append(errs, "pipeline 'name' is required")
	} else if _, ok := name.(string); !ok {
		errs = append(errs, "pipeline 'name' must be a string")
	}

	if triggers, ok := doc["triggers"]; ok {
		list, ok := asList(triggers)
		if !ok {
			errs = append(errs, "'triggers' must be a list")
		} else {
			for _, t := range list {
				s, ok := t.(string)
				if !ok || !validTriggers[s] {
					errs = append(errs, fmt.Sprintf("invalid trigger %v: must be one of push, pull_request, manual, schedule", t))
				}
			}
		}
	}

	if timeout, ok := doc["timeout"]; ok {
		if n, ok := asNumber(timeout); !ok || n <= 0 {
			errs = append(errs, "'timeout' must be a positive number")
		}
	}

	rawStages, ok := doc["stages"]
	if !ok {
		errs = append(errs, "'stages' is required and must be a list")
		return len(errs) == 0, errs
	}
	stages, ok := asList(rawStages)
	if !ok {
		errs = append(errs, "'stages' must be a list")
		return len(errs) == 0, errs
	}

	for i, rawStage := range stages {
		errs = append(errs, validateStage(i, rawStage)...)
	}

	return len(errs) == 0, errs
}

func validateStage(index int, raw any) []string {
	var errs []string

	stage, ok := asMap(raw)
	if !ok {
		return []string{fmt.Sprintf("stage %d: must be a mapping", index)}
	}

	label := fmt.Sprintf("stage %d", index)
	if name, ok := stage["name"]; !ok {
		errs = append(errs, fmt.Sprintf("%s: 'name' is required", label))
	} else if s, ok := name.(string); !ok {
		errs = append(errs, fmt.Sprintf("%s: 'name' must be a string", label))
	} else {
		label = fmt.Sprintf("stage '%s'", s)
	}

	if deps, ok := stage["dependencies"]; ok {
		if _, ok := asList(deps); !ok {
			errs = append(errs, fmt.Sprintf("%s: 'dependencies' must be a list", label))
		}
	}

	rawJobs, ok := stage["jobs"]
	if !ok {
		errs = append(errs, fmt.Sprintf("%s: 'jobs' is required and must be a list", label))
		return errs
	}
	jobs, ok := asList(rawJobs)
	if !ok {
		errs = append(errs, fmt.Sprintf("%s: 'jobs' must be a list", label))
		return errs
	}

	for i, rawJob := range jobs {
		errs = append(errs, validateJob(label, i, rawJob)...)
	}

	return errs
}

func validateJob(stageLabel string, index int, raw any) []string {
	var errs []string

	job, ok := asMap(raw)
	if !ok {
		return []string{fmt.Sprintf("%s job %d: must be a mapping", stageLabel, index)}
	}

	label := fmt.Sprintf("%s job %d", stageLabel, index)
	if name, ok := job["name"]; !ok {
		errs = append(errs, fmt.Sprintf("%s: 'name' is required", label))
	} else if s, ok := name.(string); !ok {
		errs = append(errs, fmt.Sprintf("%s: 'name' must be a string", label))
	} else {
		label = fmt.Sprintf("%s job '%s'", stageLabel, s)
	}

	if commands, ok := job["commands"]; !ok {
		errs = append(errs, fmt.Sprintf("%s: 'commands' is required and must be a non-empty list", label))
	} else if list, ok := asList(commands); !ok {
		errs = append(errs, fmt.Sprintf("%s: 'commands' must be a list", label))
	} else if len(list) == 0 {
		errs = append(errs, fmt.Sprintf("%s: 'commands' must not be empty", label))
	}

	if timeout, ok := job["timeout"]; ok {
		if n, ok := asNumber(timeout); !ok || n <= 0 {
			errs = append(errs, fmt.Sprintf("%s: 'timeout' must be a positive number", label))
		}
	}

	if retry, ok := job["retry_count"]; ok {
		if n, ok := asNumber(retry); !ok || n < 0 {
			errs = append(errs, fmt.Sprintf("%s: 'retry_count' must be >= 0", label))
		}
	}

	return errs
}

// asList accepts both []any (what the YAML/JSON decoders produce) and
// concrete string slices (what a caller building documents in code might
// hand us).
func asList(v any) ([]any, bool) {
	switch list := v.(type) {
	case []any:
		return list, true
	case []string:
		return toAnyList(list), true
	default:
		return nil, false
	}
}

// asMap normalizes the mapping representations the decoders can produce.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Document:
		return m, true
	default:
		return nil, false
	}
}

// asNumber normalizes the numeric types the decoders can produce: YAML
// yields int for whole numbers, JSON always float64.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
