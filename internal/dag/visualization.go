package dag

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/maxkimambo/bake/internal/taskmanager"
)

// Visualization renders the part of a graph that a run would execute
type Visualization struct {
	graph *Graph
	order []*taskmanager.Descriptor
}

// NewVisualization creates a visualization helper for an execution order
// computed from graph.
func NewVisualization(graph *Graph, order []*taskmanager.Descriptor) *Visualization {
	return &Visualization{
		graph: graph,
		order: order,
	}
}

// NodeInfo contains information about a node for visualization
type NodeInfo struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Position     int      `json:"position"`
	Dependencies []string `json:"dependencies"`
	HasActions   bool     `json:"hasActions"`
	Criteria     int      `json:"criteria"`
}

// EdgeInfo contains information about an edge for visualization
type EdgeInfo struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// GraphStats summarizes the rendered subgraph
type GraphStats struct {
	TotalNodes int      `json:"totalNodes"`
	TotalEdges int      `json:"totalEdges"`
	RootNodes  []string `json:"rootNodes"`
	LeafNodes  []string `json:"leafNodes"`
}

// GraphInfo contains the rendered subgraph
type GraphInfo struct {
	Nodes []NodeInfo `json:"nodes"`
	Edges []EdgeInfo `json:"edges"`
	Stats GraphStats `json:"stats"`
}

// GenerateGraphInfo creates a representation of the subgraph for visualization.
// Only edges between tasks in the order are included.
func (v *Visualization) GenerateGraphInfo() *GraphInfo {
	inOrder := make(map[string]bool, len(v.order))
	for _, d := range v.order {
		inOrder[d.Name()] = true
	}

	info := &GraphInfo{
		Nodes: make([]NodeInfo, 0, len(v.order)),
		Edges: []EdgeInfo{},
		Stats: GraphStats{
			TotalNodes: len(v.order),
			RootNodes:  []string{},
			LeafNodes:  []string{},
		},
	}

	for pos, d := range v.order {
		deps := []string{}
		for _, p := range v.graph.Predecessors(d.Name()) {
			if inOrder[p] {
				deps = append(deps, p)
				info.Edges = append(info.Edges, EdgeInfo{From: p, To: d.Name()})
			}
		}

		hasSuccessor := false
		for _, s := range v.graph.Successors(d.Name()) {
			if inOrder[s] {
				hasSuccessor = true
				break
			}
		}

		if len(deps) == 0 {
			info.Stats.RootNodes = append(info.Stats.RootNodes, d.Name())
		}
		if !hasSuccessor {
			info.Stats.LeafNodes = append(info.Stats.LeafNodes, d.Name())
		}

		info.Nodes = append(info.Nodes, NodeInfo{
			Name:         d.Name(),
			Description:  d.Description(),
			Position:     pos + 1,
			Dependencies: deps,
			HasActions:   d.HasActions(),
			Criteria:     len(d.Criteria()),
		})
	}
	info.Stats.TotalEdges = len(info.Edges)

	return info
}

// GenerateJSON renders the graph info as indented JSON
func (v *Visualization) GenerateJSON() (string, error) {
	data, err := json.MarshalIndent(v.GenerateGraphInfo(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal graph info: %w", err)
	}
	return string(data) + "\n", nil
}

// GenerateDOTGraph creates a DOT format graph for visualization with Graphviz
func (v *Visualization) GenerateDOTGraph() string {
	info := v.GenerateGraphInfo()

	var sb strings.Builder
	sb.WriteString("digraph BakeTasks {\n")
	sb.WriteString("  rankdir=LR;\n")
	sb.WriteString("  node [shape=box, style=filled];\n\n")

	for _, node := range info.Nodes {
		color := "lightblue"
		if !node.HasActions {
			color = "lightgrey"
		}
		label := fmt.Sprintf("%d. %s", node.Position, node.Name)
		if node.Criteria > 0 {
			label += "\\n(conditional)"
		}
		sb.WriteString(fmt.Sprintf("  %q [label=%q, fillcolor=%q];\n", node.Name, label, color))
	}

	if len(info.Edges) > 0 {
		sb.WriteString("\n")
	}
	for _, edge := range info.Edges {
		sb.WriteString(fmt.Sprintf("  %q -> %q;\n", edge.From, edge.To))
	}

	sb.WriteString("}\n")
	return sb.String()
}

// GenerateTextSummary creates a human-readable execution plan
func (v *Visualization) GenerateTextSummary() string {
	info := v.GenerateGraphInfo()

	var sb strings.Builder
	sb.WriteString("=== Execution Plan ===\n\n")
	sb.WriteString(fmt.Sprintf("  Tasks: %d\n", info.Stats.TotalNodes))
	sb.WriteString(fmt.Sprintf("  Edges: %d\n", info.Stats.TotalEdges))
	sb.WriteString(fmt.Sprintf("  Roots: %s\n\n", strings.Join(info.Stats.RootNodes, ", ")))

	for _, node := range info.Nodes {
		sb.WriteString(fmt.Sprintf("%3d. %s", node.Position, node.Name))
		if len(node.Dependencies) > 0 {
			sb.WriteString(fmt.Sprintf(" <- %s", strings.Join(node.Dependencies, ", ")))
		}
		if !node.HasActions {
			sb.WriteString(" (no actions)")
		}
		sb.WriteString("\n")
		if node.Description != "" {
			sb.WriteString(fmt.Sprintf("     %s\n", node.Description))
		}
	}

	return sb.String()
}

// Render returns the graph in the named format: dot, json or text.
func (v *Visualization) Render(format string) (string, error) {
	switch strings.ToLower(format) {
	case "dot":
		return v.GenerateDOTGraph(), nil
	case "json":
		return v.GenerateJSON()
	case "text", "":
		return v.GenerateTextSummary(), nil
	default:
		return "", fmt.Errorf("unsupported graph format %q (expected dot, json or text)", format)
	}
}

// ExportToFile writes the rendered graph to filename
func (v *Visualization) ExportToFile(filename, format string) error {
	out, err := v.Render(format)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, []byte(out), 0644)
}
