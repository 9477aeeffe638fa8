package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"github.com/maxkimambo/bake/internal/report"
	"github.com/maxkimambo/bake/internal/taskmanager"
)

type drawnTask struct {
	name      string
	deps      []string
	fails     bool
	skip      bool
	keepGoing bool
}

func drawRegistry(t *rapid.T) []drawnTask {
	n := rapid.IntRange(1, 10).Draw(t, "tasks")
	tasks := make([]drawnTask, n)
	for i := range tasks {
		tasks[i].name = fmt.Sprintf("T%d", i)
		for j := 0; j < i; j++ {
			if rapid.Bool().Draw(t, fmt.Sprintf("dep_%d_%d", i, j)) {
				tasks[i].deps = append(tasks[i].deps, tasks[j].name)
			}
		}
		tasks[i].fails = rapid.IntRange(0, 4).Draw(t, fmt.Sprintf("fails_%d", i)) == 0
		tasks[i].skip = rapid.IntRange(0, 4).Draw(t, fmt.Sprintf("skip_%d", i)) == 0
		tasks[i].keepGoing = rapid.Bool().Draw(t, fmt.Sprintf("keepGoing%d", i))
	}
	return tasks
}

func buildEngine(t *rapid.T, tasks []drawnTask, lifetime Lifetime) *Engine {
	e := New(nil, WithLifetime(lifetime))
	for _, dt := range tasks {
		b, err := e.RegisterTask(dt.name)
		if err != nil {
			t.Fatalf("register %s: %v", dt.name, err)
		}
		b.DependsOn(dt.deps...)
		fails, skip := dt.fails, dt.skip
		b.WithCriteria(func(ctx context.Context, tc *taskmanager.TaskContext) (bool, error) { return !skip, nil }, "")
		b.Does(func(ctx context.Context, tc *taskmanager.TaskContext) error {
			if fails {
				return errors.New("drawn failure")
			}
			return nil
		})
		if dt.keepGoing {
			b.ContinueOnError()
		}
	}
	return e
}

func TestRun_Properties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		tasks := drawRegistry(rt)
		target := tasks[rapid.IntRange(0, len(tasks)-1).Draw(rt, "target")].name
		parallel := rapid.Bool().Draw(rt, "parallel")

		counts := &recordingLifetime{}
		e := buildEngine(rt, tasks, counts)
		_, order, err := e.Plan([]string{target}, RunOptions{})
		if err != nil {
			rt.Fatalf("plan: %v", err)
		}

		rep, runErr := e.Run(context.Background(), target, RunOptions{Parallel: parallel})

		if len(counts.setups) != 1 || len(counts.teardowns) != 1 {
			rt.Fatalf("setup ran %d times, teardown %d times", len(counts.setups), len(counts.teardowns))
		}

		recorded := map[string]report.Status{}
		for entry := range rep.Tasks() {
			if _, dup := recorded[entry.Task]; dup {
				rt.Fatalf("%s recorded twice", entry.Task)
			}
			recorded[entry.Task] = entry.Status
		}

		inOrder := map[string]bool{}
		for _, d := range order {
			inOrder[d.Name()] = true
		}
		for name := range recorded {
			if !inOrder[name] {
				rt.Fatalf("%s ran but is not in the closure of %s", name, target)
			}
		}

		if runErr == nil && len(recorded) != len(order) {
			rt.Fatalf("successful run recorded %d of %d tasks", len(recorded), len(order))
		}
		if runErr != nil && rep.Count(report.StatusFailed) == 0 {
			rt.Fatalf("failed run without a failed entry: %v", runErr)
		}

		if !parallel {
			again, _ := buildEngine(rt, tasks, &recordingLifetime{}).Run(context.Background(), target, RunOptions{})
			if fmt.Sprint(shape(rep)) != fmt.Sprint(shape(again)) {
				rt.Fatalf("serial runs differ:\n%v\n%v", shape(rep), shape(again))
			}
		}
	})
}
