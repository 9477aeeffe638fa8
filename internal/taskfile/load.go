package taskfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"

	"github.com/maxkimambo/bake/internal/logger"
)

// Load reads a task file, choosing the format from its extension.
func Load(path string) (*File, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read task file %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		return ParseHCL(path, src)
	case ".yaml", ".yml":
		return ParseYAML(path, src)
	default:
		return nil, fmt.Errorf("unsupported task file %s: expected a .hcl, .yaml or .yml extension", path)
	}
}

// ParseHCL decodes an HCL task file.
func ParseHCL(filename string, src []byte) (*File, error) {
	logger.Op.WithFields(map[string]interface{}{"path": filename}).Debug("Decoding HCL task file")

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %s", filename, diags.Error())
	}

	var raw hclFile
	diags = gohcl.DecodeBody(file.Body, nil, &raw)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %s", filename, diags.Error())
	}

	f := &File{Path: filename}
	if raw.Setup != nil {
		f.Setup = &Hook{Command: raw.Setup.Command, Dir: raw.Setup.Dir}
	}
	if raw.Teardown != nil {
		f.Teardown = &Hook{Command: raw.Teardown.Command, Dir: raw.Teardown.Dir}
	}

	for _, t := range raw.Tasks {
		spec := &TaskSpec{
			Name:            t.Name,
			Description:     t.Description,
			DependsOn:       t.DependsOn,
			DependeeOf:      t.DependeeOf,
			Commands:        t.Commands,
			OnError:         t.OnError,
			Finally:         t.Finally,
			ContinueOnError: t.ContinueOnError,
			DeferOnError:    t.DeferOnError,
			Dir:             t.Dir,
			Env:             t.Env,
		}
		if !isAbsent(t.Criteria) {
			rng := t.Criteria.Range()
			spec.Criteria = &Criteria{
				Expr:   t.Criteria,
				Source: string(rng.SliceBytes(src)),
				Reason: t.SkipReason,
			}
		}
		f.Tasks = append(f.Tasks, spec)
	}

	logger.Op.WithFields(map[string]interface{}{
		"path":  filename,
		"tasks": len(f.Tasks),
	}).Debug("Successfully decoded HCL task file")
	return f, nil
}

// isAbsent reports whether expr is the null placeholder gohcl assigns to
// an omitted optional attribute.
func isAbsent(expr hcl.Expression) bool {
	if expr == nil {
		return true
	}
	if len(expr.Variables()) > 0 {
		return false
	}
	val, diags := expr.Value(nil)
	return !diags.HasErrors() && val.IsNull() && val.Type() == cty.DynamicPseudoType
}

// ParseYAML decodes a YAML task file. Unknown keys are rejected.
func ParseYAML(filename string, src []byte) (*File, error) {
	logger.Op.WithFields(map[string]interface{}{"path": filename}).Debug("Decoding YAML task file")

	var raw yamlFile
	dec := yaml.NewDecoder(bytes.NewReader(src))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode YAML file %s: %w", filename, err)
	}

	f := &File{Path: filename}
	if raw.Setup != nil {
		f.Setup = &Hook{Command: raw.Setup.Command, Dir: raw.Setup.Dir}
	}
	if raw.Teardown != nil {
		f.Teardown = &Hook{Command: raw.Teardown.Command, Dir: raw.Teardown.Dir}
	}

	for i, t := range raw.Tasks {
		if t == nil {
			return nil, fmt.Errorf("task %d in %s is empty", i+1, filename)
		}
		if strings.TrimSpace(t.Name) == "" {
			return nil, fmt.Errorf("task %d in %s has no name", i+1, filename)
		}
		spec := &TaskSpec{
			Name:            t.Name,
			Description:     t.Description,
			DependsOn:       t.DependsOn,
			DependeeOf:      t.DependeeOf,
			Commands:        t.Commands,
			OnError:         t.OnError,
			Finally:         t.Finally,
			ContinueOnError: t.ContinueOnError,
			DeferOnError:    t.DeferOnError,
			Dir:             t.Dir,
			Env:             t.Env,
		}
		if strings.TrimSpace(t.Criteria) != "" {
			expr, diags := hclsyntax.ParseExpression([]byte(t.Criteria), filename, hcl.Pos{Line: 1, Column: 1})
			if diags.HasErrors() {
				return nil, fmt.Errorf("invalid criteria for task %s in %s: %s", t.Name, filename, diags.Error())
			}
			spec.Criteria = &Criteria{Expr: expr, Source: t.Criteria, Reason: t.SkipReason}
		}
		f.Tasks = append(f.Tasks, spec)
	}
	return f, nil
}
