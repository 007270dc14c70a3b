package dag

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidSpec       = errors.New("invalid process spec")
	ErrDuplicateProcess  = errors.New("duplicate process")
	ErrMissingDependency = errors.New("missing dependency")
	ErrCycle             = errors.New("dependency cycle")
)

// GraphError reports why a set of process specs does not form a valid graph.
// Kind is one of the Err* sentinels above.
type GraphError struct {
	Kind    error
	Process string
	Msg     string
}

func (e *GraphError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Process != "" {
		fmt.Fprintf(&b, " in %q", e.Process)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	return b.String()
}

func (e *GraphError) Unwrap() error { return e.Kind }

func cycleError(path []string) error {
	return &GraphError{Kind: ErrCycle, Msg: strings.Join(path, " -> ")}
}
