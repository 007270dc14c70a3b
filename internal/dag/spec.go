package dag

import (
	"fmt"
	"strings"

	"github.com/vk/armstack/internal/backend"
	"github.com/vk/armstack/internal/params"
	"github.com/vk/armstack/internal/readiness"
)

// OutputPolicy says where a process's stdout and stderr go.
type OutputPolicy string

const (
	OutputDiscard OutputPolicy = "discard"
	OutputForward OutputPolicy = "forward"
	OutputLog     OutputPolicy = "log"
)

// ParseOutputPolicy validates a policy name. "screen" and "both" are
// accepted as aliases of forward.
func ParseOutputPolicy(s string) (OutputPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "discard", "none":
		return OutputDiscard, nil
	case "forward", "screen", "both":
		return OutputForward, nil
	case "log":
		return OutputLog, nil
	default:
		return "", fmt.Errorf("invalid output policy %q: must be discard, forward or log", s)
	}
}

// ProcessSpec describes one process of the bring-up.
type ProcessSpec struct {
	// Name is unique within a graph.
	Name string
	// Node is the ROS node name; empty means no node remapping.
	Node       string
	Executable backend.Executable
	// Prefix is prepended to the command line, e.g. a privilege wrapper.
	Prefix []string
	Args   []string
	// Params is written to a params file for the process; nil means none.
	Params *params.Set
	// ParamFiles are handed to the process verbatim.
	ParamFiles []string
	DependsOn  []string
	Output     OutputPolicy
	Readiness  readiness.Spec
	// Critical failures make the whole launch fail; others only degrade it.
	Critical bool
}

// Command returns the argument vector the spec launches, with the prefix
// first and the executable identity unresolved.
func (s ProcessSpec) Command() []string {
	cmd := make([]string, 0, len(s.Prefix)+1+len(s.Args))
	cmd = append(cmd, s.Prefix...)
	cmd = append(cmd, s.Executable.String())
	return append(cmd, s.Args...)
}

func (s ProcessSpec) validate() error {
	if s.Name == "" {
		return &GraphError{Kind: ErrInvalidSpec, Msg: "process name is required"}
	}
	if s.Executable.Name == "" {
		return &GraphError{Kind: ErrInvalidSpec, Process: s.Name, Msg: "executable is required"}
	}
	switch s.Output {
	case OutputDiscard, OutputForward, OutputLog:
	default:
		return &GraphError{Kind: ErrInvalidSpec, Process: s.Name, Msg: fmt.Sprintf("unknown output policy %q", s.Output)}
	}
	if err := s.Readiness.Validate(); err != nil {
		return &GraphError{Kind: ErrInvalidSpec, Process: s.Name, Msg: err.Error()}
	}
	return nil
}
