package engine

import (
	"container/heap"
	"context"

	"github.com/maxkimambo/bake/internal/logger"
	"github.com/maxkimambo/bake/internal/report"
	"github.com/maxkimambo/bake/internal/taskmanager"
)

type taskResult struct {
	position int
	entry    report.Entry
	err      error
}

// positionHeap releases ready tasks in execution-order position.
type positionHeap []int

func (h positionHeap) Len() int           { return len(h) }
func (h positionHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h positionHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *positionHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *positionHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// runParallel runs tasks whose dependencies inside the run have reached a
// terminal state, at most MaxParallelTasks at once. This goroutine is the
// only writer of the report. After the first fatal failure no new task is
// launched; tasks already running are waited for.
func (r *run) runParallel(ctx context.Context) error {
	slots := r.engine.config.MaxParallelTasks
	if slots < 1 {
		slots = 1
	}
	results := make(chan taskResult)

	positions := make(map[string]int, len(r.order))
	for i, d := range r.order {
		positions[d.Name()] = i
	}

	// exclusive runs have no ordering constraints between targets
	remaining := make([]int, len(r.order))
	successors := make([][]int, len(r.order))
	if !r.opts.exclusive() {
		for i, d := range r.order {
			for _, p := range r.graph.Predecessors(d.Name()) {
				if j, ok := positions[p]; ok {
					remaining[i]++
					successors[j] = append(successors[j], i)
				}
			}
		}
	}

	ready := &positionHeap{}
	for i := range r.order {
		if remaining[i] == 0 {
			heap.Push(ready, i)
		}
	}

	launch := func(pos int, d *taskmanager.Descriptor) {
		go func() {
			entry, err := r.runTask(ctx, d)
			results <- taskResult{position: pos, entry: entry, err: err}
		}()
	}

	var fatal error
	running := 0
	for {
		for fatal == nil && ctx.Err() == nil && ready.Len() > 0 && running < slots {
			pos := heap.Pop(ready).(int)
			running++
			launch(pos, r.order[pos])
		}
		if running == 0 {
			break
		}

		res := <-results
		running--
		r.record(res.entry)

		if res.err != nil && fatal == nil {
			fatal = res.err
			if running > 0 || ready.Len() > 0 {
				logger.User.Warnf("Task %s failed, waiting for %d running task(s) before aborting", res.entry.Task, running)
			}
		}
		for _, next := range successors[res.position] {
			remaining[next]--
			if remaining[next] == 0 {
				heap.Push(ready, next)
			}
		}
	}

	if fatal == nil {
		if err := ctx.Err(); err != nil {
			r.log.Warn("Run cancelled, not starting remaining tasks")
			return err
		}
	}
	return fatal
}
