package config

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/vk/pipegridgo/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// hclPipeline mirrors the document shape in HCL form. Attribute values that
// the document model treats as free-form string maps are captured as raw
// cty values and converted after decoding.
type hclPipeline struct {
	Name        *string    `hcl:"name,optional"`
	Description *string    `hcl:"description,optional"`
	Timeout     *float64   `hcl:"timeout,optional"`
	Variables   cty.Value  `hcl:"variables,optional"`
	Triggers    []string   `hcl:"triggers,optional"`
	Stages      []hclStage `hcl:"stage,block"`
}

type hclStage struct {
	Name         string         `hcl:"name,label"`
	DependsOn    []string       `hcl:"dependencies,optional"`
	Environment  cty.Value      `hcl:"environment,optional"`
	Parallel     *bool          `hcl:"parallel,optional"`
	AllowFailure *bool          `hcl:"allow_failure,optional"`
	Conditions   *hclConditions `hcl:"conditions,block"`
	Jobs         []hclJob       `hcl:"job,block"`
}

type hclConditions struct {
	Branch      *string   `hcl:"branch,optional"`
	Environment cty.Value `hcl:"environment,optional"`
	Custom      *string   `hcl:"custom,optional"`
}

type hclJob struct {
	Name         string   `hcl:"name,label"`
	Commands     []string `hcl:"commands"`
	Timeout      *float64 `hcl:"timeout,optional"`
	RetryCount   *int     `hcl:"retry_count,optional"`
	AllowFailure *bool    `hcl:"allow_failure,optional"`
	Artifacts    []string `hcl:"artifacts,optional"`
	DependsOn    []string `hcl:"dependencies,optional"`
}

// decodeHCLFile parses an HCL pipeline definition and translates it into the
// same Document shape produced by the YAML and JSON decoders, so that
// everything downstream stays encoding-agnostic.
func decodeHCLFile(ctx context.Context, path string) (Document, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Decoding HCL pipeline definition.", "path", path)

	var raw hclPipeline
	if err := hclsimple.DecodeFile(path, nil, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse HCL pipeline definition: %w", err)
	}

	doc := Document{}
	if raw.Name != nil {
		doc["name"] = *raw.Name
	}
	if raw.Description != nil {
		doc["description"] = *raw.Description
	}
	if raw.Timeout != nil {
		doc["timeout"] = *raw.Timeout
	}
	if vars, err := ctyStringMap(raw.Variables); err != nil {
		return nil, fmt.Errorf("invalid 'variables' attribute: %w", err)
	} else if vars != nil {
		doc["variables"] = vars
	}
	if raw.Triggers != nil {
		doc["triggers"] = toAnyList(raw.Triggers)
	}

	stages := make([]any, 0, len(raw.Stages))
	for _, s := range raw.Stages {
		stage, err := s.document()
		if err != nil {
			return nil, fmt.Errorf("invalid stage %q: %w", s.Name, err)
		}
		stages = append(stages, stage)
	}
	doc["stages"] = stages

	return doc, nil
}

func (s hclStage) document() (map[string]any, error) {
	stage := map[string]any{"name": s.Name}
	if s.DependsOn != nil {
		stage["dependencies"] = toAnyList(s.DependsOn)
	}
	env, err := ctyStringMap(s.Environment)
	if err != nil {
		return nil, fmt.Errorf("invalid 'environment' attribute: %w", err)
	}
	if env != nil {
		stage["environment"] = env
	}
	if s.Parallel != nil {
		stage["parallel"] = *s.Parallel
	}
	if s.AllowFailure != nil {
		stage["allow_failure"] = *s.AllowFailure
	}
	if s.Conditions != nil {
		cond := map[string]any{}
		if s.Conditions.Branch != nil {
			cond["branch"] = *s.Conditions.Branch
		}
		condEnv, err := ctyStringMap(s.Conditions.Environment)
		if err != nil {
			return nil, fmt.Errorf("invalid conditions 'environment' attribute: %w", err)
		}
		if condEnv != nil {
			cond["environment"] = condEnv
		}
		if s.Conditions.Custom != nil {
			cond["custom"] = *s.Conditions.Custom
		}
		stage["conditions"] = cond
	}

	jobs := make([]any, 0, len(s.Jobs))
	for _, j := range s.Jobs {
		job := map[string]any{
			"name":     j.Name,
			"commands": toAnyList(j.Commands),
		}
		if j.Timeout != nil {
			job["timeout"] = *j.Timeout
		}
		if j.RetryCount != nil {
			job["retry_count"] = *j.RetryCount
		}
		if j.AllowFailure != nil {
			job["allow_failure"] = *j.AllowFailure
		}
		if j.Artifacts != nil {
			job["artifacts"] = toAnyList(j.Artifacts)
		}
		if j.DependsOn != nil {
			job["dependencies"] = toAnyList(j.DependsOn)
		}
		jobs = append(jobs, job)
	}
	stage["jobs"] = jobs

	return stage, nil
}

// ctyStringMap converts a raw cty map or object value into a plain
// map[string]any with string values. A null or absent value yields nil.
func ctyStringMap(v cty.Value) (map[string]any, error) {
	if v == cty.NilVal || v.IsNull() {
		return nil, nil
	}
	converted, err := convert.Convert(v, cty.Map(cty.String))
	if err != nil {
		return nil, fmt.Errorf("expected a map of strings: %w", err)
	}
	out := map[string]any{}
	for it := converted.ElementIterator(); it.Next(); {
		k, val := it.Element()
		out[k.AsString()] = val.AsString()
	}
	return out, nil
}

func toAnyList[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
