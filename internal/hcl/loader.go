package hcl

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/armstack/internal/config"
	"github.com/vk/armstack/internal/ctxlog"
)

// Loader is the HCL implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new HCL stack loader.
func NewLoader() *Loader {
	return &Loader{}
}

var _ config.Loader = (*Loader)(nil)

// Load parses the stack file at path and overlays it onto the defaults. An
// empty path returns the defaults unchanged.
func (l *Loader) Load(ctx context.Context, path string) (*config.Stack, error) {
	logger := ctxlog.FromContext(ctx)
	stack := config.Default()
	if path == "" {
		logger.Debug("No stack file given, using built-in defaults.")
		return stack, nil
	}
	logger.Debug("HCL stack loader started.", "path", path)

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stack file %s: %w", path, err)
	}
	return l.Parse(ctx, path, src)
}

// Parse decodes stack file source. filename is used in diagnostics.
func (l *Loader) Parse(ctx context.Context, filename string, src []byte) (*config.Stack, error) {
	logger := ctxlog.FromContext(ctx)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse stack file %s: %w", filename, diags)
	}

	var root stackFile
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode stack file %s: %w", filename, diags)
	}

	stack := config.Default()
	if err := translate(&root, stack); err != nil {
		return nil, fmt.Errorf("invalid stack file %s: %w", filename, err)
	}

	logger.Debug("HCL stack loading complete.",
		"robot", stack.Robot,
		"controllers", len(stack.Controllers),
		"process_settings", len(stack.Processes),
	)
	return stack, nil
}
