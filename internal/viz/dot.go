// Package viz renders the stage/job graph of a pipeline as a Graphviz DOT
// description for external rendering tools.
package viz

import (
	"fmt"
	"strings"

	"github.com/vk/pipegridgo/internal/pipeline"
)

// DOT renders a pipeline as a directed graph: one node per stage
// (stage_<name>), nested job nodes (job_<stage>_<name>) inside a cluster
// per stage, edges for stage dependencies and for job dependencies within a
// stage. Job IDs carry the stage name so same-named jobs in different
// stages stay distinct nodes. An empty pipeline yields a minimal valid
// empty graph.
func DOT(p *pipeline.Pipeline) string {
	var b strings.Builder
	b.WriteString("digraph pipeline {\n")
	b.WriteString("  rankdir=LR;\n")

	for i, stage := range p.Stages {
		fmt.Fprintf(&b, "  subgraph cluster_%d {\n", i)
		fmt.Fprintf(&b, "    label=%q;\n", stage.Name)
		fmt.Fprintf(&b, "    %s [shape=box, label=%q];\n", stageID(stage.Name), stage.Name)
		for _, job := range stage.Jobs {
			fmt.Fprintf(&b, "    %s [label=%q];\n", jobID(stage.Name, job.Name), job.Name)
			fmt.Fprintf(&b, "    %s -> %s [style=dotted];\n", stageID(stage.Name), jobID(stage.Name, job.Name))
		}
		b.WriteString("  }\n")
	}

	for _, stage := range p.Stages {
		for _, dep := range stage.Dependencies {
			fmt.Fprintf(&b, "  %s -> %s;\n", stageID(dep), stageID(stage.Name))
		}
		for _, job := range stage.Jobs {
			for _, dep := range job.Dependencies {
				fmt.Fprintf(&b, "  %s -> %s;\n", jobID(stage.Name, dep), jobID(stage.Name, job.Name))
			}
		}
	}

	b.WriteString("}\n")
	return b.String()
}

func stageID(name string) string {
	return "stage_" + sanitize(name)
}

func jobID(stage, name string) string {
	return "job_" + sanitize(stage) + "_" + sanitize(name)
}

// sanitize maps arbitrary names onto valid DOT identifiers.
func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
