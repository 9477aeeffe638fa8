package dag

import (
	"errors"
	"testing"

	bakeerrors "github.com/maxkimambo/bake/internal/errors"
	"github.com/maxkimambo/bake/internal/taskmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// taskDef describes a task registration for tests.
type taskDef struct {
	name       string
	deps       []string
	dependeeOf []string
}

// testingT is satisfied by both *testing.T and *rapid.T.
type testingT interface {
	require.TestingT
	Helper()
}

func newSnapshot(t testingT, defs ...taskDef) *taskmanager.Snapshot {
	t.Helper()
	reg := taskmanager.NewRegistry()
	for _, def := range defs {
		task := taskmanager.NewTask(def.name)
		b, err := taskmanager.NewTaskBuilder(task)
		require.NoError(t, err)
		b.DependsOn(def.deps...).IsDependeeOf(def.dependeeOf...)
		require.NoError(t, reg.Register(task))
	}
	return reg.Snapshot()
}

func TestBuild_Edges(t *testing.T) {
	snap := newSnapshot(t,
		taskDef{name: "Build"},
		taskDef{name: "Test", deps: []string{"Build"}},
		taskDef{name: "Lint", dependeeOf: []string{"Test"}},
		taskDef{name: "Package", deps: []string{"test", "Build"}},
	)

	g, err := Build(snap, BuildOptions{})
	require.NoError(t, err)

	assert.Equal(t, 4, g.Size())
	assert.Equal(t, []string{"Build", "Lint"}, g.Predecessors("Test"))
	assert.Equal(t, []string{"Test", "Package"}, g.Successors("build"))
	assert.Equal(t, []string{"Test"}, g.Successors("Lint"))
	assert.Empty(t, g.Predecessors("Build"))
	assert.Nil(t, g.Predecessors("Unknown"))
	assert.Empty(t, g.Unresolved())
}

func TestBuild_DuplicateEdgesCollapse(t *testing.T) {
	snap := newSnapshot(t,
		taskDef{name: "Build", dependeeOf: []string{"Test"}},
		taskDef{name: "Test", deps: []string{"Build"}},
	)

	g, err := Build(snap, BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Build"}, g.Predecessors("Test"))
}

func TestBuild_MissingReferences(t *testing.T) {
	tests := []struct {
		name string
		defs []taskDef
	}{
		{name: "dependency", defs: []taskDef{{name: "Test", deps: []string{"Build"}}}},
		{name: "dependee", defs: []taskDef{{name: "Lint", dependeeOf: []string{"Publish"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := newSnapshot(t, tt.defs...)

			_, err := Build(snap, BuildOptions{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, bakeerrors.ErrMissingDependency))

			g, err := Build(snap, BuildOptions{SkipUnresolved: true})
			require.NoError(t, err)
			require.Len(t, g.Unresolved(), 1)
			assert.Equal(t, tt.defs[0].name, g.Unresolved()[0].Task)
		})
	}
}

func TestBuild_Cycles(t *testing.T) {
	tests := []struct {
		name      string
		defs      []taskDef
		wantCycle []string
	}{
		{
			name: "direct dependency cycle",
			defs: []taskDef{
				{name: "A", deps: []string{"B"}},
				{name: "B", deps: []string{"A"}},
			},
			wantCycle: []string{"A", "B", "A"},
		},
		{
			name: "self dependency",
			defs: []taskDef{
				{name: "Build", deps: []string{"build"}},
			},
			wantCycle: []string{"Build", "Build"},
		},
		{
			name: "cycle through dependee relation",
			defs: []taskDef{
				{name: "Build"},
				{name: "Test", deps: []string{"Build"}},
				{name: "Prepare", deps: []string{"Test"}, dependeeOf: []string{"Build"}},
			},
			wantCycle: []string{"Build", "Test", "Prepare", "Build"},
		},
		{
			name: "cycle away from first task",
			defs: []taskDef{
				{name: "Clean"},
				{name: "X", deps: []string{"Z"}},
				{name: "Y", deps: []string{"X"}},
				{name: "Z", deps: []string{"Y"}},
			},
			wantCycle: []string{"X", "Y", "Z", "X"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := newSnapshot(t, tt.defs...)

			_, err := Build(snap, BuildOptions{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, bakeerrors.ErrCircularDependency))

			var cycleErr *bakeerrors.CircularDependencyError
			require.True(t, errors.As(err, &cycleErr))
			assert.Equal(t, tt.wantCycle, cycleErr.Cycle)

			// same registrations, same witness
			_, again := Build(newSnapshot(t, tt.defs...), BuildOptions{})
			require.True(t, errors.As(again, &cycleErr))
			assert.Equal(t, tt.wantCycle, cycleErr.Cycle)
		})
	}
}

func TestBuild_NilSnapshot(t *testing.T) {
	_, err := Build(nil, BuildOptions{})
	assert.True(t, errors.Is(err, bakeerrors.ErrInvalidArgument))
}
