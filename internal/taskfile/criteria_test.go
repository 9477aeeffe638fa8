package taskfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxkimambo/bake/internal/taskmanager"
)

func mustCriteria(t *testing.T, src string) *Criteria {
	t.Helper()
	expr, diags := hclsyntax.ParseExpression([]byte(src), "test", hcl.Pos{Line: 1, Column: 1})
	require.False(t, diags.HasErrors(), diags.Error())
	return &Criteria{Expr: expr, Source: src}
}

func TestCriteriaPredicate(t *testing.T) {
	t.Setenv("BAKE_CRITERIA_FLAG", "on")

	existing := filepath.Join(t.TempDir(), "marker")
	require.NoError(t, os.WriteFile(existing, nil, 0o600))

	data := taskmanager.NewSharedContext()
	data.Set("channel", "release")
	data.Set("count", 3)
	tc := &taskmanager.TaskContext{Task: "Build", RunID: "run-1", Data: data}

	tests := []struct {
		expr string
		want bool
	}{
		{`env.BAKE_CRITERIA_FLAG == "on"`, true},
		{`getenv("BAKE_CRITERIA_UNSET") == ""`, true},
		{`task.name == "Build"`, true},
		{`task.run_id == "other"`, false},
		{`data.channel == "release"`, true},
		{`upper(task.name) == "BUILD"`, true},
		{`contains(["Build", "Test"], task.name)`, true},
		{`strlen(trimspace("  ab ")) == 2`, true},
		{`fileexists("` + existing + `")`, true},
		{`fileexists("` + existing + `.missing")`, false},
		{`"true"`, true},
		{`false`, false},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			ok, err := mustCriteria(t, tt.expr).predicate()(context.Background(), tc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestCriteriaPredicateErrors(t *testing.T) {
	tc := &taskmanager.TaskContext{Task: "Build", Data: taskmanager.NewSharedContext()}

	tests := []struct {
		expr string
		want string
	}{
		{`env.BAKE_CRITERIA_SURELY_UNSET_VALUE == "x"`, "Unsupported attribute"},
		{`"maybe"`, "must be a bool"},
		{`null`, "evaluated to null"},
		{`unknown_var`, "Unknown variable"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			_, err := mustCriteria(t, tt.expr).predicate()(context.Background(), tc)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Contains(t, err.Error(), tt.expr)
		})
	}
}

func TestDataKeys(t *testing.T) {
	c := mustCriteria(t, `data.a == "x" && data.b != env.HOME && task.name == "T"`)
	assert.ElementsMatch(t, []string{"a", "b"}, dataKeys(c.Expr))
}
