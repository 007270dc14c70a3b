package process

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Run identifies one launch and the directory holding its generated files.
type Run struct {
	ID  string
	Dir string
}

// NewRun creates a fresh run directory under base.
func NewRun(base string) (*Run, error) {
	id := uuid.NewString()
	dir := filepath.Join(base, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run directory: %w", err)
	}
	return &Run{ID: id, Dir: dir}, nil
}
