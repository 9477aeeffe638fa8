package taskfile

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"

	"github.com/maxkimambo/bake/internal/taskmanager"
)

var fileExistsFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "path", Type: cty.String},
	},
	Type: function.StaticReturnType(cty.Bool),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		_, err := os.Stat(args[0].AsString())
		return cty.BoolVal(err == nil), nil
	},
})

var getenvFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "name", Type: cty.String},
	},
	Type: function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		return cty.StringVal(os.Getenv(args[0].AsString())), nil
	},
})

var criteriaFunctions = map[string]function.Function{
	"contains":   stdlib.ContainsFunc,
	"fileexists": fileExistsFunc,
	"getenv":     getenvFunc,
	"lower":      stdlib.LowerFunc,
	"strlen":     stdlib.StrlenFunc,
	"trimspace":  stdlib.TrimSpaceFunc,
	"upper":      stdlib.UpperFunc,
}

// evalContext exposes the process environment as env, the running task as
// task and string values of the shared run data as data.
func evalContext(tc *taskmanager.TaskContext, environ []string, dataKeys []string) *hcl.EvalContext {
	env := make(map[string]cty.Value, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = cty.StringVal(v)
	}

	data := make(map[string]cty.Value, len(dataKeys))
	for _, k := range dataKeys {
		if tc.Data == nil {
			break
		}
		if v, ok := tc.Data.Get(k); ok {
			if s, ok := v.(string); ok {
				data[k] = cty.StringVal(s)
			}
		}
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(env),
			"task": cty.ObjectVal(map[string]cty.Value{
				"name":   cty.StringVal(tc.Task),
				"run_id": cty.StringVal(tc.RunID),
			}),
			"data": cty.ObjectVal(data),
		},
		Functions: criteriaFunctions,
	}
}

// predicate turns a criteria expression into a task predicate. It is
// evaluated when the task is reached, not when the file is loaded.
func (c *Criteria) predicate() taskmanager.Predicate {
	keys := dataKeys(c.Expr)
	return func(_ context.Context, tc *taskmanager.TaskContext) (bool, error) {
		val, diags := c.Expr.Value(evalContext(tc, os.Environ(), keys))
		if diags.HasErrors() {
			return false, fmt.Errorf("criteria %q: %s", c.Source, diags.Error())
		}
		if !val.IsKnown() || val.IsNull() {
			return false, fmt.Errorf("criteria %q evaluated to null", c.Source)
		}
		b, err := convert.Convert(val, cty.Bool)
		if err != nil {
			return false, fmt.Errorf("criteria %q must be a bool: %w", c.Source, err)
		}
		return b.True(), nil
	}
}

// dataKeys collects the attribute names the expression reads from data.
func dataKeys(expr hcl.Expression) []string {
	var keys []string
	for _, traversal := range expr.Variables() {
		if traversal.RootName() != "data" || len(traversal) < 2 {
			continue
		}
		if attr, ok := traversal[1].(hcl.TraverseAttr); ok {
			keys = append(keys, attr.Name)
		}
	}
	return keys
}
