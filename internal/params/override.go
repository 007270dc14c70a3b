package params

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// Override is one launch-argument parameter assignment.
type Override struct {
	Process string
	Key     string
	Value   cty.Value
}

// ParseOverride parses "process.key.path=value". The value uses HCL literal
// syntax (numbers, bools, quoted strings, lists, objects); anything that is
// not a self-contained literal is taken as a bare string.
func ParseOverride(s string) (Override, error) {
	lhs, rhs, ok := strings.Cut(s, "=")
	if !ok {
		return Override{}, fmt.Errorf("override %q: expected process.key=value", s)
	}
	process, key, ok := strings.Cut(strings.TrimSpace(lhs), ".")
	if !ok || process == "" || key == "" {
		return Override{}, fmt.Errorf("override %q: expected process.key=value", s)
	}
	for _, part := range strings.Split(key, ".") {
		if part == "" {
			return Override{}, fmt.Errorf("override %q: empty key segment", s)
		}
	}
	return Override{Process: process, Key: key, Value: literal(rhs)}, nil
}

func literal(raw string) cty.Value {
	trimmed := strings.TrimSpace(raw)
	expr, diags := hclsyntax.ParseExpression([]byte(trimmed), "override", hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() || len(expr.Variables()) > 0 {
		return cty.StringVal(raw)
	}
	v, diags := expr.Value(nil)
	if diags.HasErrors() || !v.IsWhollyKnown() || v.IsNull() {
		return cty.StringVal(raw)
	}
	return v
}

// OverrideLayer collects the overrides addressed to process into one layer.
// Later overrides of the same key win; nested keys compose.
func OverrideLayer(process string, overrides []Override) Layer {
	var layers []Layer
	for _, o := range overrides {
		if o.Process != process {
			continue
		}
		root, v := nest(o.Key, o.Value)
		layers = append(layers, Layer{Values: map[string]cty.Value{root: v}})
	}
	return Layer{Name: "overrides", Values: Merge(layers...)}
}
