// Package readiness turns "process started" into "process ready". A probe is
// an optional per-process hook; every wait is bounded by a timeout.
package readiness

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"
)

// Kind selects a probe implementation.
type Kind string

const (
	// None means the process counts as ready as soon as the spawn returns.
	None  Kind = ""
	Exit  Kind = "exit"
	TCP   Kind = "tcp"
	File  Kind = "file"
	Delay Kind = "delay"
)

// ParseKind validates a probe kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case None, Exit, TCP, File, Delay:
		return k, nil
	default:
		return None, fmt.Errorf("invalid readiness kind %q: must be one of exit, tcp, file, delay", s)
	}
}

// ErrTimeout is returned when a probe does not succeed within its timeout.
var ErrTimeout = errors.New("readiness timeout")

// pollInterval is how often tcp and file probes retry.
var pollInterval = 100 * time.Millisecond

// Spec declares the readiness condition of one process.
type Spec struct {
	Kind    Kind
	Address string        // tcp
	Path    string        // file
	Delay   time.Duration // delay
	// Timeout bounds the wait; zero means the caller's default.
	Timeout time.Duration
}

// IsZero reports whether no readiness condition is declared.
func (s Spec) IsZero() bool { return s.Kind == None }

// Validate checks that the fields the kind needs are present.
func (s Spec) Validate() error {
	switch s.Kind {
	case TCP:
		if s.Address == "" {
			return errors.New("tcp readiness requires an address")
		}
	case File:
		if s.Path == "" {
			return errors.New("file readiness requires a path")
		}
	case Delay:
		if s.Delay <= 0 {
			return errors.New("delay readiness requires a positive delay")
		}
	case None, Exit:
	default:
		return fmt.Errorf("unknown readiness kind %q", s.Kind)
	}
	if s.Timeout < 0 {
		return errors.New("readiness timeout must not be negative")
	}
	return nil
}

func (s Spec) String() string {
	switch s.Kind {
	case TCP:
		return "tcp " + s.Address
	case File:
		return "file " + s.Path
	case Delay:
		return "delay " + s.Delay.String()
	case Exit:
		return "exit"
	default:
		return "none"
	}
}

// Target is the view of a started process a probe needs.
type Target interface {
	// Done is closed once the process has exited.
	Done() <-chan struct{}
	// Err is the exit error after Done is closed; nil for exit status 0.
	Err() error
}

// Probe waits for one readiness condition.
type Probe interface {
	Wait(ctx context.Context, t Target) error
}

// New builds the probe for spec. A zero spec yields nil.
func New(spec Spec) (Probe, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	switch spec.Kind {
	case Exit:
		return exitProbe{}, nil
	case TCP:
		return tcpProbe{address: spec.Address}, nil
	case File:
		return fileProbe{path: spec.Path}, nil
	case Delay:
		return delayProbe{delay: spec.Delay}, nil
	default:
		return nil, nil
	}
}

// Await runs the probe for spec against t. The wait is bounded by
// spec.Timeout, or fallback when the spec leaves it unset. Exceeding it
// returns an error wrapping ErrTimeout; cancellation of ctx returns ctx.Err().
func Await(ctx context.Context, spec Spec, t Target, fallback time.Duration) error {
	probe, err := New(spec)
	if err != nil || probe == nil {
		return err
	}
	timeout := spec.Timeout
	if timeout == 0 {
		timeout = fallback
	}
	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	err = probe.Wait(waitCtx, t)
	if err != nil && ctx.Err() == nil && errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s waiting for %s", ErrTimeout, timeout, spec)
	}
	return err
}

// exited reports a process that stopped before its probe succeeded. It is
// nil for exit status 0.
func exited(t Target) error {
	if err := t.Err(); err != nil {
		return fmt.Errorf("process exited before becoming ready: %w", err)
	}
	return nil
}

type exitProbe struct{}

func (exitProbe) Wait(ctx context.Context, t Target) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.Done():
		if err := t.Err(); err != nil {
			return fmt.Errorf("process exited with error: %w", err)
		}
		return nil
	}
}

type tcpProbe struct{ address string }

func (p tcpProbe) Wait(ctx context.Context, t Target) error {
	var d net.Dialer
	return poll(ctx, t, func() bool {
		dialCtx, cancel := context.WithTimeout(ctx, pollInterval)
		defer cancel()
		conn, err := d.DialContext(dialCtx, "tcp", p.address)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	})
}

type fileProbe struct{ path string }

func (p fileProbe) Wait(ctx context.Context, t Target) error {
	return poll(ctx, t, func() bool {
		_, err := os.Stat(p.path)
		return err == nil
	})
}

type delayProbe struct{ delay time.Duration }

func (p delayProbe) Wait(ctx context.Context, t Target) error {
	timer := time.NewTimer(p.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.Done():
		return exited(t)
	case <-timer.C:
		return nil
	}
}

func poll(ctx context.Context, t Target, ready func() bool) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		if ready() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.Done():
			if err := exited(t); err != nil {
				return err
			}
			if ready() {
				return nil
			}
			return errors.New("process exited before becoming ready")
		case <-ticker.C:
		}
	}
}
