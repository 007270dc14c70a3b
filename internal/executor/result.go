package executor

import (
	"errors"
	"time"
)

// Status is the overall outcome of a launch.
type Status string

const (
	// StatusSucceeded means every process reached Running.
	StatusSucceeded Status = "succeeded"
	// StatusPartial means only non-critical processes failed.
	StatusPartial Status = "partial"
	// StatusFailed means a critical process did not reach Running.
	StatusFailed Status = "failed"
	// StatusCancelled means the launch was cancelled before it finished.
	StatusCancelled Status = "cancelled"
)

// ExitCode maps the status to the orchestrator's exit code.
func (s Status) ExitCode() int {
	switch s {
	case StatusSucceeded, StatusPartial:
		return 0
	case StatusCancelled:
		return 130
	default:
		return 1
	}
}

// ProcessResult is the launch outcome of one process.
type ProcessResult struct {
	Name     string
	State    State
	Critical bool
	PID      int
	Err      error
	// Elapsed is the time from Starting to the final launch state.
	Elapsed time.Duration
}

// LaunchResult is the complete picture of one launch.
type LaunchResult struct {
	Status Status
	// Processes are in graph order.
	Processes []ProcessResult
	// Started lists processes in the order they were spawned.
	Started []string
	// Err joins every failure, or is a *CancelledError.
	Err      error
	Duration time.Duration
}

// Process returns the result for name.
func (r *LaunchResult) Process(name string) (ProcessResult, bool) {
	for _, p := range r.Processes {
		if p.Name == name {
			return p, true
		}
	}
	return ProcessResult{}, false
}

// Failures returns the results in a failure state.
func (r *LaunchResult) Failures() []ProcessResult {
	var out []ProcessResult
	for _, p := range r.Processes {
		if p.State.IsFailure() {
			out = append(out, p)
		}
	}
	return out
}

// Count returns how many processes are in state s.
func (r *LaunchResult) Count(s State) int {
	n := 0
	for _, p := range r.Processes {
		if p.State == s {
			n++
		}
	}
	return n
}

func (r *LaunchResult) finish() {
	var errs []error
	critical := false
	for _, p := range r.Processes {
		if !p.State.IsFailure() {
			continue
		}
		errs = append(errs, p.Err)
		if p.Critical {
			critical = true
		}
	}
	switch {
	case critical:
		r.Status = StatusFailed
	case len(errs) > 0:
		r.Status = StatusPartial
	default:
		r.Status = StatusSucceeded
	}
	r.Err = errors.Join(errs...)
}
