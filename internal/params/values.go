package params

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// isMapping reports whether v is a known, non-null object or map value that
// takes part in recursive merging.
func isMapping(v cty.Value) bool {
	if v == cty.NilVal || v.IsNull() || !v.IsKnown() {
		return false
	}
	ty := v.Type()
	return ty.IsObjectType() || ty.IsMapType()
}

// mergeValue merges hi over lo. Mappings merge recursively; anything else in
// hi replaces lo entirely.
func mergeValue(lo, hi cty.Value) cty.Value {
	if !isMapping(lo) || !isMapping(hi) {
		return hi
	}
	out := lo.AsValueMap()
	if out == nil {
		out = make(map[string]cty.Value)
	}
	for k, v := range hi.AsValueMap() {
		if prev, ok := out[k]; ok {
			out[k] = mergeValue(prev, v)
		} else {
			out[k] = v
		}
	}
	return cty.ObjectVal(out)
}

// Merge folds layers from lowest to highest precedence into a flat key map.
func Merge(layers ...Layer) map[string]cty.Value {
	out := make(map[string]cty.Value)
	for _, l := range layers {
		for k, v := range l.Values {
			if prev, ok := out[k]; ok {
				out[k] = mergeValue(prev, v)
			} else {
				out[k] = v
			}
		}
	}
	return out
}

// lookup walks a dotted path through nested mappings.
func lookup(values map[string]cty.Value, path string) (cty.Value, bool) {
	parts := strings.Split(path, ".")
	v, ok := values[parts[0]]
	if !ok {
		return cty.NilVal, false
	}
	for _, p := range parts[1:] {
		if !isMapping(v) {
			return cty.NilVal, false
		}
		m := v.AsValueMap()
		if v, ok = m[p]; !ok {
			return cty.NilVal, false
		}
	}
	if v.IsNull() {
		return cty.NilVal, false
	}
	return v, true
}

// nest wraps v under a dotted path, e.g. "a.b" -> {a = {b = v}}.
func nest(path string, v cty.Value) (string, cty.Value) {
	parts := strings.Split(path, ".")
	for i := len(parts) - 1; i > 0; i-- {
		v = cty.ObjectVal(map[string]cty.Value{parts[i]: v})
	}
	return parts[0], v
}

// FromGo converts decoded YAML/JSON data into a cty value.
func FromGo(v any) (cty.Value, error) {
	switch t := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case string:
		return cty.StringVal(t), nil
	case bool:
		return cty.BoolVal(t), nil
	case int:
		return cty.NumberIntVal(int64(t)), nil
	case int64:
		return cty.NumberIntVal(t), nil
	case uint64:
		return cty.NumberUIntVal(t), nil
	case float64:
		return cty.NumberFloatVal(t), nil
	case []any:
		if len(t) == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, len(t))
		for i, e := range t {
			ev, err := FromGo(e)
			if err != nil {
				return cty.NilVal, fmt.Errorf("[%d]: %w", i, err)
			}
			elems[i] = ev
		}
		return cty.TupleVal(elems), nil
	case map[string]any:
		if len(t) == 0 {
			return cty.EmptyObjectVal, nil
		}
		attrs := make(map[string]cty.Value, len(t))
		for k, e := range t {
			ev, err := FromGo(e)
			if err != nil {
				return cty.NilVal, fmt.Errorf("%s: %w", k, err)
			}
			attrs[k] = ev
		}
		return cty.ObjectVal(attrs), nil
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[fmt.Sprint(k)] = e
		}
		return FromGo(m)
	default:
		return cty.NilVal, fmt.Errorf("unsupported value of type %T", v)
	}
}

// ToGo converts a cty value into plain Go data suitable for YAML encoding.
// Whole numbers become int64 so integer parameters keep their type.
func ToGo(v cty.Value) (any, error) {
	if v == cty.NilVal || v.IsNull() {
		return nil, nil
	}
	if !v.IsKnown() {
		return nil, fmt.Errorf("value is not known")
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil
	case ty == cty.Bool:
		return v.True(), nil
	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return i, nil
			}
		}
		f, _ := bf.Float64()
		return f, nil
	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)
		for k, e := range v.AsValueMap() {
			ge, err := ToGo(e)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = ge
		}
		return out, nil
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, e := it.Element()
			ge, err := ToGo(e)
			if err != nil {
				return nil, err
			}
			out = append(out, ge)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported parameter type %s", ty.FriendlyName())
	}
}

// Strings builds a tuple of strings, the shape of list parameters such as
// planning_pipelines.
func Strings(ss ...string) cty.Value {
	if len(ss) == 0 {
		return cty.EmptyTupleVal
	}
	vals := make([]cty.Value, len(ss))
	for i, s := range ss {
		vals[i] = cty.StringVal(s)
	}
	return cty.TupleVal(vals)
}

func sortedKeys(m map[string]cty.Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
