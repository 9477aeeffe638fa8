package dag

import (
	bakeerrors "github.com/maxkimambo/bake/internal/errors"
	"github.com/maxkimambo/bake/internal/taskmanager"
)

// ExecutionOrder returns the targets together with every task they
// transitively depend on, dependencies first. Tasks declared as dependees
// of any task in that set are pulled in as well. Ties are broken by
// registration order.
func (g *Graph) ExecutionOrder(targets ...string) ([]*taskmanager.Descriptor, error) {
	roots, err := g.resolveTargets(targets)
	if err != nil {
		return nil, err
	}

	include := make([]bool, g.Size())
	stack := append([]int(nil), roots...)
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if include[v] {
			continue
		}
		include[v] = true
		for _, u := range g.incoming[v] {
			if !include[u] {
				stack = append(stack, u)
			}
		}
	}

	order := g.topoOrder(include)
	out := make([]*taskmanager.Descriptor, 0, len(order))
	for _, i := range order {
		out = append(out, g.snapshot.At(i))
	}
	return out, nil
}

// ExclusiveOrder returns only the requested targets, in the order they
// were requested, without dependency expansion or ordering checks.
func (g *Graph) ExclusiveOrder(targets ...string) ([]*taskmanager.Descriptor, error) {
	roots, err := g.resolveTargets(targets)
	if err != nil {
		return nil, err
	}
	out := make([]*taskmanager.Descriptor, 0, len(roots))
	for _, i := range roots {
		out = append(out, g.snapshot.At(i))
	}
	return out, nil
}

// resolveTargets maps target names to node indices, dropping repeats.
func (g *Graph) resolveTargets(targets []string) ([]int, error) {
	if len(targets) == 0 {
		return nil, bakeerrors.NewInvalidArgumentError("target", "resolve execution order")
	}
	seen := make(map[int]bool, len(targets))
	roots := make([]int, 0, len(targets))
	for _, name := range targets {
		d, ok := g.snapshot.Lookup(name)
		if !ok {
			return nil, bakeerrors.NewTaskNotFoundError(name)
		}
		if seen[d.Index()] {
			continue
		}
		seen[d.Index()] = true
		roots = append(roots, d.Index())
	}
	return roots, nil
}
