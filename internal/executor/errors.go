package executor

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCancelled is wrapped by the result error of a cancelled launch.
var ErrCancelled = errors.New("launch cancelled")

// ErrNotReleased is wrapped when a process was left waiting on dependencies
// that never released it.
var ErrNotReleased = errors.New("dependencies never released the process")

// Stage says where a process start failed.
type Stage string

const (
	StageSpawn     Stage = "spawn"
	StageReadiness Stage = "readiness"
)

// ProcessStartError reports a process that did not reach Running.
type ProcessStartError struct {
	Process string
	Stage   Stage
	Err     error
}

func (e *ProcessStartError) Error() string {
	if e.Stage == StageReadiness {
		return fmt.Sprintf("process %s did not become ready: %v", e.Process, e.Err)
	}
	return fmt.Sprintf("process %s failed to start: %v", e.Process, e.Err)
}

func (e *ProcessStartError) Unwrap() error { return e.Err }

// DependencyFailedError reports a process aborted because an upstream process
// it requires, directly or transitively, failed.
type DependencyFailedError struct {
	Process string
	// Cause is the failed upstream process.
	Cause string
	Err   error
}

func (e *DependencyFailedError) Error() string {
	if e.Cause == "" {
		return fmt.Sprintf("process %s not started: %v", e.Process, e.Err)
	}
	return fmt.Sprintf("process %s not started: dependency %s failed", e.Process, e.Cause)
}

func (e *DependencyFailedError) Unwrap() error { return e.Err }

// CancelledError is the single aggregated result of a cancelled launch.
type CancelledError struct {
	Cause error
	// Terminated lists the processes stopped, in the order they were stopped.
	Terminated []string
	// Errs collects termination failures.
	Errs []error
}

func (e *CancelledError) Error() string {
	msg := fmt.Sprintf("%v: terminated %d started process(es)", ErrCancelled, len(e.Terminated))
	if len(e.Terminated) > 0 {
		msg += " [" + strings.Join(e.Terminated, ", ") + "]"
	}
	if len(e.Errs) > 0 {
		msg += ": " + errors.Join(e.Errs...).Error()
	}
	return msg
}

func (e *CancelledError) Unwrap() []error {
	errs := []error{ErrCancelled}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return append(errs, e.Errs...)
}
