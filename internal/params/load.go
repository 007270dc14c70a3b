package params

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/armstack/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// rosParametersKey is the section marker of ROS 2 parameter files.
const rosParametersKey = "ros__parameters"

// File is a parsed static configuration document.
type File struct {
	Path string
	Root map[string]cty.Value
}

// LoadFile parses a static configuration file. YAML (.yaml, .yml) is decoded
// with yaml.v3; HCL (.hcl) and JSON (.json) go through hclparse.
func LoadFile(ctx context.Context, path string) (*File, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading static configuration file.", "path", path)

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("read %s: %w", path, err)}
	}

	var root map[string]cty.Value
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		root, err = decodeYAML(src)
	case ".hcl":
		root, err = decodeHCL(path, src, false)
	case ".json":
		root, err = decodeHCL(path, src, true)
	default:
		err = fmt.Errorf("unsupported configuration format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("%s: %w", path, err)}
	}

	logger.Debug("Static configuration file loaded.", "path", path, "keys", len(root))
	return &File{Path: path, Root: root}, nil
}

func decodeYAML(src []byte) (map[string]cty.Value, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return nil, err
	}
	out := make(map[string]cty.Value, len(doc))
	for k, v := range doc {
		cv, err := FromGo(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = cv
	}
	return out, nil
}

func decodeHCL(path string, src []byte, isJSON bool) (map[string]cty.Value, error) {
	parser := hclparse.NewParser()
	var (
		file  *hcl.File
		diags hcl.Diagnostics
	)
	if isJSON {
		file, diags = parser.ParseJSON(src, path)
	} else {
		file, diags = parser.ParseHCL(src, path)
	}
	if diags.HasErrors() {
		return nil, diags
	}
	attrs, diags := file.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}
	out := make(map[string]cty.Value, len(attrs))
	for name, attr := range attrs {
		v, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, diags
		}
		out[name] = v
	}
	return out, nil
}

// IsSectioned reports whether the file uses the ROS layout in which every
// top-level key is a node name holding a ros__parameters mapping.
func (f *File) IsSectioned() bool {
	if len(f.Root) == 0 {
		return false
	}
	for _, v := range f.Root {
		if !isMapping(v) {
			return false
		}
		if _, ok := v.AsValueMap()[rosParametersKey]; !ok {
			return false
		}
	}
	return true
}

// Layer returns the values a node sees from this file. Sectioned files
// contribute the wildcard "/**" section followed by the node's own section;
// flat files contribute every key.
func (f *File) Layer(node string) Layer {
	if !f.IsSectioned() {
		return Layer{Name: f.Path, Values: f.Root}
	}
	var sections []Layer
	for _, key := range []string{"/**", node, "/" + node} {
		sec, ok := f.Root[key]
		if !ok {
			continue
		}
		inner := sec.AsValueMap()[rosParametersKey]
		if isMapping(inner) {
			sections = append(sections, Layer{Values: inner.AsValueMap()})
		}
	}
	return Layer{Name: f.Path + "#" + node, Values: Merge(sections...)}
}
