// Package process starts the operating-system processes of a launch. It
// resolves ROS executables, writes each process's parameter file, routes
// output according to the spec's policy and terminates whole process groups.
package process

import (
	"context"

	"github.com/vk/armstack/internal/dag"
)

// Process is a started process.
type Process interface {
	// Done is closed once the process has exited.
	Done() <-chan struct{}
	// Err is the exit error after Done is closed; nil for exit status 0.
	Err() error
	PID() int
	// Terminate stops the process and waits for it to exit. It is a no-op
	// for a process that already exited.
	Terminate(ctx context.Context) error
}

// Spawner starts processes. Spawn returns once the process is started; it
// does not wait for readiness.
type Spawner interface {
	Spawn(ctx context.Context, spec dag.ProcessSpec) (Process, error)
}
