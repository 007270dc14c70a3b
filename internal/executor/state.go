package executor

import "fmt"

// State is the launch state of one process.
type State int

const (
	Pending State = iota
	Starting
	Running
	Failed
	// DependencyFailed marks a process never started because something it
	// requires did not reach Running.
	DependencyFailed
	// Cancelled marks a process the launch gave up on before it was running.
	Cancelled
	// Stopped marks a running process that was terminated by the orchestrator.
	Stopped
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Failed:
		return "failed"
	case DependencyFailed:
		return "dependency-failed"
	case Cancelled:
		return "cancelled"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// IsTerminal reports whether a launch can no longer change the state.
func (s State) IsTerminal() bool {
	switch s {
	case Failed, DependencyFailed, Cancelled, Stopped:
		return true
	default:
		return false
	}
}

// IsFailure reports whether the state counts against the launch.
func (s State) IsFailure() bool {
	return s == Failed || s == DependencyFailed
}

func allowed(from, to State) bool {
	switch from {
	case Pending:
		return to == Starting || to == DependencyFailed || to == Cancelled
	case Starting:
		return to == Running || to == Failed || to == Cancelled
	case Running:
		return to == Stopped
	default:
		return false
	}
}

// states is the per-process state table owned by the coordinator.
type states map[string]State

// transition moves name from one state to another, rejecting anything the
// state machine does not allow.
func (st states) transition(name string, from, to State) error {
	cur, ok := st[name]
	if !ok {
		return fmt.Errorf("unknown process %q", name)
	}
	if cur != from {
		return fmt.Errorf("invalid transition for %q: expected %s, got %s", name, from, cur)
	}
	if !allowed(from, to) {
		return fmt.Errorf("disallowed transition for %q: %s -> %s", name, from, to)
	}
	st[name] = to
	return nil
}
