package config

import "context"

// Loader is the interface for a format-specific stack file loader.
type Loader interface {
	// Load reads the stack file at path and overlays it onto Default().
	Load(ctx context.Context, path string) (*Stack, error)
}
