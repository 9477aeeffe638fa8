package taskmanager

import (
	"iter"
	"sync"

	bakeerrors "github.com/maxkimambo/bake/internal/errors"
)

// Registry maps case-insensitive task names to tasks, preserving
// registration order.
type Registry struct {
	mu    sync.RWMutex
	tasks []*Task
	index map[string]int
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		index: make(map[string]int),
	}
}

// Register adds a task. A name already present, in any casing, is rejected.
func (r *Registry) Register(task *Task) error {
	if task == nil {
		return bakeerrors.NewInvalidArgumentError("task", "register task")
	}
	k := key(task.Name())
	if k == "" {
		return bakeerrors.NewInvalidArgumentError("task name", "register task")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[k]; exists {
		return bakeerrors.NewDuplicateTaskError(task.Name())
	}
	r.index[k] = len(r.tasks)
	r.tasks = append(r.tasks, task)
	return nil
}

// Lookup returns the task registered under name.
func (r *Registry) Lookup(name string) (*Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[key(name)]
	if !ok {
		return nil, bakeerrors.NewTaskNotFoundError(name)
	}
	return r.tasks[i], nil
}

// Len returns the number of registered tasks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// All yields tasks in registration order. Each range over the sequence
// starts again from the first task.
func (r *Registry) All() iter.Seq[*Task] {
	return func(yield func(*Task) bool) {
		r.mu.RLock()
		tasks := append([]*Task(nil), r.tasks...)
		r.mu.RUnlock()

		for _, t := range tasks {
			if !yield(t) {
				return
			}
		}
	}
}

// Snapshot seals every registered task. Later registrations or builder
// calls do not affect the returned snapshot.
func (r *Registry) Snapshot() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := &Snapshot{
		descriptors: make([]*Descriptor, len(r.tasks)),
		index:       make(map[string]int, len(r.tasks)),
	}
	for i, t := range r.tasks {
		s.descriptors[i] = t.seal(i)
		s.index[key(t.Name())] = i
	}
	return s
}

// Snapshot is an immutable view of a registry taken before a run.
type Snapshot struct {
	descriptors []*Descriptor
	index       map[string]int
}

// Lookup returns the descriptor registered under name.
func (s *Snapshot) Lookup(name string) (*Descriptor, bool) {
	i, ok := s.index[key(name)]
	if !ok {
		return nil, false
	}
	return s.descriptors[i], true
}

func (s *Snapshot) Len() int {
	return len(s.descriptors)
}

// At returns the descriptor at registration position i.
func (s *Snapshot) At(i int) *Descriptor {
	return s.descriptors[i]
}

// All yields descriptors in registration order.
func (s *Snapshot) All() iter.Seq[*Descriptor] {
	return func(yield func(*Descriptor) bool) {
		for _, d := range s.descriptors {
			if !yield(d) {
				return
			}
		}
	}
}
