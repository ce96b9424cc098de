// Package graph implements the dependency graph over named units (stages,
// or jobs within a stage): reference validation, cycle detection and
// topological leveling for parallel dispatch.
//
// Cycle detection and leveling both use Kahn's algorithm over an explicit
// adjacency list with in-degree counters, keeping stack depth bounded and
// the logic testable in isolation from execution.
package graph

import (
	"fmt"
	"sort"
)

// Node is the minimal view of a schedulable unit: its name and the names of
// the units that must resolve before it.
type Node struct {
	Name      string
	DependsOn []string
}

// IssueKind classifies a problem found in the graph.
type IssueKind int

const (
	// IssueMissingDependency marks a dependency on a name that does not exist.
	IssueMissingDependency IssueKind = iota
	// IssueSelfDependency marks a node that depends on itself.
	IssueSelfDependency
	// IssueCycle marks a dependency cycle somewhere in the graph. It is
	// reported at most once, without enumerating the members.
	IssueCycle
)

// Issue is a single problem found by Inspect.
type Issue struct {
	Kind       IssueKind
	Node       string
	Dependency string
}

// Graph is an immutable dependency graph built from a node list.
type Graph struct {
	nodes []Node
	index map[string]int
}

// New builds a graph from the given nodes. Declaration order is preserved.
func New(nodes []Node) *Graph {
	g := &Graph{nodes: nodes, index: make(map[string]int, len(nodes))}
	for i, n := range nodes {
		g.index[n.Name] = i
	}
	return g
}

// Dependencies returns the direct dependency lookup, one entry per node.
// Nodes with no dependencies map to an empty list.
func (g *Graph) Dependencies() map[string][]string {
	deps := make(map[string][]string, len(g.nodes))
	for _, n := range g.nodes {
		if n.DependsOn == nil {
			deps[n.Name] = []string{}
		} else {
			deps[n.Name] = append([]string(nil), n.DependsOn...)
		}
	}
	return deps
}

// Inspect reports every problem in the graph: missing references and
// self-dependencies per node, plus at most one cycle issue for the whole
// graph. A graph with no nodes, or no dependencies at all, is clean.
func (g *Graph) Inspect() []Issue {
	var issues []Issue
	for _, n := range g.nodes {
		for _, dep := range n.DependsOn {
			if dep == n.Name {
				issues = append(issues, Issue{Kind: IssueSelfDependency, Node: n.Name})
				continue
			}
			if _, ok := g.index[dep]; !ok {
				issues = append(issues, Issue{Kind: IssueMissingDependency, Node: n.Name, Dependency: dep})
			}
		}
	}
	if g.hasCycle() {
		issues = append(issues, Issue{Kind: IssueCycle})
	}
	return issues
}

// Validate formats Inspect results as human-readable strings. The graph is
// valid exactly when the list is empty.
func (g *Graph) Validate() (bool, []string) {
	issues := g.Inspect()
	errs := make([]string, 0, len(issues))
	for _, issue := range issues {
		switch issue.Kind {
		case IssueMissingDependency:
			errs = append(errs, fmt.Sprintf("'%s': missing dependency '%s'", issue.Node, issue.Dependency))
		case IssueSelfDependency:
			errs = append(errs, fmt.Sprintf("'%s' depends on itself", issue.Node))
		case IssueCycle:
			errs = append(errs, "dependency cycle detected")
		}
	}
	return len(errs) == 0, errs
}

// Levels computes the topological layering: level 0 holds every node with
// no dependencies, level k every not-yet-placed node whose dependencies all
// sit in earlier levels. Names within a level are sorted for determinism.
//
// Nodes that can never be placed (members of a cycle, or nodes whose
// dependency chain includes a missing reference) are returned separately in
// unplaced, also sorted.
func (g *Graph) Levels() (levels [][]string, unplaced []string) {
	indegree := make(map[string]int, len(g.nodes))
	dependents := make(map[string][]string, len(g.nodes))
	for _, n := range g.nodes {
		indegree[n.Name] = 0
	}
	for _, n := range g.nodes {
		for _, dep := range n.DependsOn {
			if _, ok := indegree[dep]; !ok {
				// Missing reference: the edge can never be satisfied, so the
				// node is permanently blocked.
				indegree[n.Name] = -1
				continue
			}
			if indegree[n.Name] >= 0 {
				indegree[n.Name]++
			}
			dependents[dep] = append(dependents[dep], n.Name)
		}
	}

	placed := 0
	current := make([]string, 0, len(g.nodes))
	for name, deg := range indegree {
		if deg == 0 {
			current = append(current, name)
		}
	}
	sort.Strings(current)

	for len(current) > 0 {
		levels = append(levels, current)
		placed += len(current)

		var next []string
		for _, name := range current {
			for _, dependent := range dependents[name] {
				if indegree[dependent] < 0 {
					continue
				}
				indegree[dependent]--
				if indegree[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		sort.Strings(next)
		current = next
	}

	if placed < len(g.nodes) {
		for _, n := range g.nodes {
			if indegree[n.Name] != 0 {
				unplaced = append(unplaced, n.Name)
			}
		}
		sort.Strings(unplaced)
	}
	return levels, unplaced
}

// hasCycle runs Kahn's algorithm over the subgraph of resolvable edges.
// Self-loops and missing references are excluded so they surface only as
// their own issue kinds, never as a spurious cycle.
func (g *Graph) hasCycle() bool {
	indegree := make(map[string]int, len(g.nodes))
	dependents := make(map[string][]string, len(g.nodes))
	for _, n := range g.nodes {
		indegree[n.Name] = 0
	}
	for _, n := range g.nodes {
		for _, dep := range n.DependsOn {
			if dep == n.Name {
				continue
			}
			if _, ok := indegree[dep]; !ok {
				continue
			}
			indegree[n.Name]++
			dependents[dep] = append(dependents[dep], n.Name)
		}
	}

	queue := make([]string, 0, len(g.nodes))
	for name, deg := range indegree {
		if deg == 0 {
			queue = append(queue, name)
		}
	}

	processed := 0
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		processed++
		for _, dependent := range dependents[name] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}
	return processed < len(g.nodes)
}
