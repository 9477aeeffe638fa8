package dag

import (
	"container/heap"
	"sort"

	bakeerrors "github.com/maxkimambo/bake/internal/errors"
	"github.com/maxkimambo/bake/internal/logger"
	"github.com/maxkimambo/bake/internal/taskmanager"
)

// BuildOptions controls how references to unregistered tasks are treated.
type BuildOptions struct {
	// SkipUnresolved drops edges that name unregistered tasks instead of
	// failing the build.
	SkipUnresolved bool
}

// Unresolved records an edge that was dropped because it named an
// unregistered task.
type Unresolved struct {
	Task      string
	Reference string
}

// Graph is the dependency graph of a registry snapshot. Node indices are
// registration indices; an edge u -> v means u must run before v.
type Graph struct {
	snapshot   *taskmanager.Snapshot
	outgoing   [][]int
	incoming   [][]int
	indeg      []int
	unresolved []Unresolved
}

// Build constructs the graph for every task in the snapshot and rejects
// missing references and cycles.
func Build(snap *taskmanager.Snapshot, opts BuildOptions) (*Graph, error) {
	if snap == nil {
		return nil, bakeerrors.NewInvalidArgumentError("snapshot", "build dependency graph")
	}

	n := snap.Len()
	g := &Graph{
		snapshot: snap,
		outgoing: make([][]int, n),
		incoming: make([][]int, n),
		indeg:    make([]int, n),
	}
	edges := make(map[[2]int]bool)

	addEdge := func(from, to int) {
		e := [2]int{from, to}
		if edges[e] {
			return
		}
		edges[e] = true
		g.outgoing[from] = append(g.outgoing[from], to)
		g.incoming[to] = append(g.incoming[to], from)
		g.indeg[to]++
	}

	resolve := func(task *taskmanager.Descriptor, ref string) (int, bool, error) {
		target, ok := snap.Lookup(ref)
		if ok {
			return target.Index(), true, nil
		}
		if !opts.SkipUnresolved {
			return 0, false, bakeerrors.NewMissingDependencyError(task.Name(), ref)
		}
		logger.Op.WithFields(map[string]interface{}{
			"task":      task.Name(),
			"reference": ref,
		}).Warn("Skipping unresolved task reference")
		g.unresolved = append(g.unresolved, Unresolved{Task: task.Name(), Reference: ref})
		return 0, false, nil
	}

	for d := range snap.All() {
		for _, dep := range d.Dependencies() {
			from, ok, err := resolve(d, dep)
			if err != nil {
				return nil, err
			}
			if ok {
				addEdge(from, d.Index())
			}
		}
		for _, dependent := range d.Dependents() {
			to, ok, err := resolve(d, dependent)
			if err != nil {
				return nil, err
			}
			if ok {
				addEdge(d.Index(), to)
			}
		}
	}

	for i := range g.outgoing {
		sort.Ints(g.outgoing[i])
		sort.Ints(g.incoming[i])
	}

	if err := g.validateAcyclic(); err != nil {
		return nil, err
	}
	return g, nil
}

// Size returns the number of nodes in the graph.
func (g *Graph) Size() int {
	return len(g.outgoing)
}

// Unresolved returns the references dropped while building the graph.
func (g *Graph) Unresolved() []Unresolved {
	return append([]Unresolved(nil), g.unresolved...)
}

// Task returns the descriptor for name.
func (g *Graph) Task(name string) (*taskmanager.Descriptor, bool) {
	return g.snapshot.Lookup(name)
}

// Predecessors returns the tasks that must run directly before name, in
// registration order.
func (g *Graph) Predecessors(name string) []string {
	d, ok := g.snapshot.Lookup(name)
	if !ok {
		return nil
	}
	return g.names(g.incoming[d.Index()])
}

// Successors returns the tasks that must run directly after name, in
// registration order.
func (g *Graph) Successors(name string) []string {
	d, ok := g.snapshot.Lookup(name)
	if !ok {
		return nil
	}
	return g.names(g.outgoing[d.Index()])
}

func (g *Graph) names(indices []int) []string {
	out := make([]string, 0, len(indices))
	for _, i := range indices {
		out = append(out, g.snapshot.At(i).Name())
	}
	return out
}

// validateAcyclic runs Kahn's algorithm over the whole graph and, if some
// nodes are never released, extracts one cycle for the error.
func (g *Graph) validateAcyclic() error {
	all := make([]bool, g.Size())
	for i := range all {
		all[i] = true
	}
	if len(g.topoOrder(all)) == g.Size() {
		return nil
	}
	return bakeerrors.NewCircularDependencyError(g.findCycle())
}

type indexHeap []int

func (h indexHeap) Len() int           { return len(h) }
func (h indexHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h indexHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *indexHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *indexHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// topoOrder returns a topological order of the nodes marked in include.
// Ready nodes are released lowest registration index first.
func (g *Graph) topoOrder(include []bool) []int {
	indeg := make([]int, g.Size())
	for v := range g.incoming {
		if !include[v] {
			continue
		}
		for _, u := range g.incoming[v] {
			if include[u] {
				indeg[v]++
			}
		}
	}

	ready := &indexHeap{}
	for i := range indeg {
		if include[i] && indeg[i] == 0 {
			heap.Push(ready, i)
		}
	}

	var out []int
	for ready.Len() > 0 {
		u := heap.Pop(ready).(int)
		out = append(out, u)
		for _, v := range g.outgoing[u] {
			if !include[v] {
				continue
			}
			indeg[v]--
			if indeg[v] == 0 {
				heap.Push(ready, v)
			}
		}
	}
	return out
}

// findCycle walks the graph depth first in registration order and returns
// the first cycle found as [v ... v].
func (g *Graph) findCycle() []string {
	const (
		white = iota
		gray
		black
	)

	color := make([]int, g.Size())
	parent := make([]int, g.Size())
	for i := range parent {
		parent[i] = -1
	}

	var cycle []int
	var dfs func(u int) bool
	dfs = func(u int) bool {
		color[u] = gray
		for _, v := range g.outgoing[u] {
			switch color[v] {
			case white:
				parent[v] = u
				if dfs(v) {
					return true
				}
			case gray:
				// back edge u -> v closes v ... u -> v
				cycle = append(cycle, v)
				for cur := u; cur != -1 && cur != v; cur = parent[cur] {
					cycle = append(cycle, cur)
				}
				cycle = append(cycle, v)
				return true
			}
		}
		color[u] = black
		return false
	}

	for i := 0; i < g.Size(); i++ {
		if color[i] == white && dfs(i) {
			break
		}
	}

	out := make([]string, 0, len(cycle))
	for i := len(cycle) - 1; i >= 0; i-- {
		out = append(out, g.snapshot.At(cycle[i]).Name())
	}
	return out
}
