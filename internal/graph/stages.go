package graph

import "github.com/vk/pipegridgo/internal/pipeline"

// ForStages builds the stage dependency graph of a pipeline.
func ForStages(stages []*pipeline.Stage) *Graph {
	nodes := make([]Node, 0, len(stages))
	for _, s := range stages {
		nodes = append(nodes, Node{Name: s.Name, DependsOn: s.Dependencies})
	}
	return New(nodes)
}

// ForJobs builds the within-stage job dependency graph. Job dependencies
// only order jobs inside their own stage, never across stages.
func ForJobs(jobs []*pipeline.Job) *Graph {
	nodes := make([]Node, 0, len(jobs))
	for _, j := range jobs {
		nodes = append(nodes, Node{Name: j.Name, DependsOn: j.Dependencies})
	}
	return New(nodes)
}
