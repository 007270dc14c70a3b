package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/vk/armstack/internal/backend"
)

// ErrNotFound is wrapped when an executable cannot be located.
var ErrNotFound = errors.New("executable not found")

// Resolve finds exe the way ros2 run does: <prefix>/lib/<package>/<name>
// under every entry of ament (an AMENT_PREFIX_PATH value), then $PATH.
func Resolve(exe backend.Executable, ament string) (string, error) {
	if filepath.IsAbs(exe.Name) {
		if isExecutable(exe.Name) {
			return exe.Name, nil
		}
		return "", fmt.Errorf("%w: %s", ErrNotFound, exe.Name)
	}
	if exe.Package != "" {
		for _, prefix := range filepath.SplitList(ament) {
			if prefix == "" {
				continue
			}
			candidate := filepath.Join(prefix, "lib", exe.Package, exe.Name)
			if isExecutable(candidate) {
				return candidate, nil
			}
		}
	}
	if path, err := exec.LookPath(exe.Name); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("%w: %s in AMENT_PREFIX_PATH or PATH", ErrNotFound, exe)
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Mode().Perm()&0o111 != 0
}
