package executor

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/vk/armstack/internal/ctxlog"
	"github.com/vk/armstack/internal/dag"
	"github.com/vk/armstack/internal/process"
	"github.com/vk/armstack/internal/readiness"
)

// DefaultReadinessTimeout bounds a readiness wait whose spec sets no timeout.
const DefaultReadinessTimeout = 10 * time.Second

// Options configures a Sequencer.
type Options struct {
	ReadinessTimeout time.Duration
}

// Sequencer runs one launch.
type Sequencer struct {
	spawner process.Spawner
	opts    Options

	mu      sync.Mutex
	started []startedProcess
}

type startedProcess struct {
	name string
	proc process.Process
}

type eventKind int

const (
	// spawned is sent once the spawn call returned a process.
	spawned eventKind = iota
	// settled is sent when the start reached Running or failed.
	settled
)

type event struct {
	kind eventKind
	name string
	proc process.Process
	err  error
}

// New creates a Sequencer that starts processes with spawner.
func New(spawner process.Spawner, opts Options) *Sequencer {
	if opts.ReadinessTimeout <= 0 {
		opts.ReadinessTimeout = DefaultReadinessTimeout
	}
	return &Sequencer{spawner: spawner, opts: opts}
}

// Run starts the processes of g. Processes with no ordering constraint
// between them are started concurrently. Post-spawn failures are collected
// rather than returned early, so the result covers every process.
func (s *Sequencer) Run(ctx context.Context, g *dag.Graph) *LaunchResult {
	logger := ctxlog.FromContext(ctx)
	begin := time.Now()
	order := g.Order()

	logger.Info("🚀 Launching process graph.", "processes", len(order), "waves", len(g.Waves()))

	st := make(states, len(order))
	results := make(map[string]*ProcessResult, len(order))
	since := make(map[string]time.Time, len(order))
	unmet := make(map[string]int, len(order))
	for _, name := range order {
		spec, _ := g.Spec(name)
		st[name] = Pending
		results[name] = &ProcessResult{Name: name, State: Pending, Critical: spec.Critical}
		unmet[name] = len(g.Dependencies(name))
	}

	move := func(name string, from, to State, err error) {
		if terr := st.transition(name, from, to); terr != nil {
			logger.Error("Invalid state transition.", "error", terr)
			return
		}
		r := results[name]
		r.State = to
		if err != nil {
			r.Err = err
		}
		if t, ok := since[name]; ok && to != Starting {
			r.Elapsed = time.Since(t)
		}
	}

	events := make(chan event, 2*len(order))
	var wg sync.WaitGroup
	inflight := 0
	launch := func(name string) {
		spec, _ := g.Spec(name)
		since[name] = time.Now()
		move(name, Pending, Starting, nil)
		inflight++
		wg.Add(1)
		go s.start(ctx, spec, events, &wg)
	}

	for _, name := range order {
		if unmet[name] == 0 {
			launch(name)
		}
	}

	var started []startedProcess
	done := ctx.Done()
	for inflight > 0 {
		select {
		case <-done:
			logger.Warn("Launch cancelled, waiting for in-flight starts.", "in_flight", inflight)
			done = nil
		case ev := <-events:
			plog := logger.With("process", ev.name)
			if ev.kind == spawned {
				started = append(started, startedProcess{name: ev.name, proc: ev.proc})
				results[ev.name].PID = ev.proc.PID()
				continue
			}
			inflight--

			switch {
			case ev.err == nil:
				move(ev.name, Starting, Running, nil)
				plog.Info("✅ Process running.")
				if ctx.Err() != nil {
					continue
				}
				for _, d := range g.Dependents(ev.name) {
					unmet[d]--
					if unmet[d] == 0 && st[d] == Pending {
						launch(d)
					}
				}
			case interrupted(ctx, ev.err):
				move(ev.name, Starting, Cancelled, ErrCancelled)
				plog.Debug("Start interrupted by cancellation.")
			default:
				move(ev.name, Starting, Failed, ev.err)
				plog.Error("❌ Process failed to start.", "error", ev.err)
				for _, d := range g.Downstream(ev.name) {
					if st[d] != Pending {
						continue
					}
					move(d, Pending, DependencyFailed, &DependencyFailedError{Process: d, Cause: ev.name, Err: ev.err})
					logger.Warn("Process not started.", "process", d, "failed_dependency", ev.name)
				}
			}
		}
	}
	wg.Wait()

	// Without cancellation every process must have left Pending; one that
	// did not was never released by its dependencies.
	if ctx.Err() == nil {
		for _, name := range order {
			if st[name] != Pending {
				continue
			}
			var cause string
			for _, d := range g.Dependencies(name) {
				if st[d] != Running {
					cause = d
					break
				}
			}
			move(name, Pending, DependencyFailed, &DependencyFailedError{Process: name, Cause: cause, Err: ErrNotReleased})
			logger.Error("Process was never released by its dependencies.", "process", name)
		}
	}

	res := &LaunchResult{Started: make([]string, 0, len(started))}
	for _, sp := range started {
		res.Started = append(res.Started, sp.name)
	}

	// Failed starts were already terminated by their start goroutine.
	live := slices.DeleteFunc(slices.Clone(started), func(sp startedProcess) bool {
		return st[sp.name] == Failed
	})

	var cancelled *CancelledError
	if ctx.Err() != nil {
		cancelled = &CancelledError{Cause: context.Cause(ctx)}
		for _, name := range order {
			if st[name] == Pending {
				move(name, Pending, Cancelled, ErrCancelled)
			}
		}
		cancelled.Terminated, cancelled.Errs = terminate(context.WithoutCancel(ctx), live)
		for _, sp := range live {
			if st[sp.name] == Running {
				move(sp.name, Running, Stopped, nil)
			}
		}
	} else {
		s.mu.Lock()
		s.started = live
		s.mu.Unlock()
	}

	for _, name := range order {
		res.Processes = append(res.Processes, *results[name])
	}
	res.finish()
	if cancelled != nil {
		res.Status = StatusCancelled
		res.Err = cancelled
	}
	res.Duration = time.Since(begin)

	logger.Info("🏁 Launch finished.",
		"status", res.Status,
		"running", res.Count(Running),
		"failed", res.Count(Failed),
		"dependency_failed", res.Count(DependencyFailed),
		"duration", res.Duration,
	)
	return res
}

// start spawns one process and waits for its readiness.
func (s *Sequencer) start(ctx context.Context, spec dag.ProcessSpec, events chan<- event, wg *sync.WaitGroup) {
	defer wg.Done()
	pctx, logger := ctxlog.ForProcess(ctx, spec.Name)

	logger.Debug("Spawning process.", "command", spec.Command())
	proc, err := s.spawner.Spawn(pctx, spec)
	if err != nil {
		events <- event{kind: settled, name: spec.Name, err: &ProcessStartError{Process: spec.Name, Stage: StageSpawn, Err: err}}
		return
	}
	events <- event{kind: spawned, name: spec.Name, proc: proc}

	if !spec.Readiness.IsZero() {
		logger.Debug("Waiting for readiness.", "readiness", spec.Readiness.String())
	}
	if err := readiness.Await(pctx, spec.Readiness, proc, s.opts.ReadinessTimeout); err != nil {
		// Interrupted starts stay live and are stopped with the rest of the
		// launch; any other failure is stopped here.
		if !interrupted(ctx, err) {
			if terr := proc.Terminate(context.WithoutCancel(pctx)); terr != nil {
				logger.Warn("Failed to terminate unready process.", "error", terr)
			}
		}
		events <- event{kind: settled, name: spec.Name, proc: proc, err: &ProcessStartError{Process: spec.Name, Stage: StageReadiness, Err: err}}
		return
	}
	events <- event{kind: settled, name: spec.Name, proc: proc}
}

// interrupted reports whether err is the launch context's own cancellation.
func interrupted(ctx context.Context, err error) bool {
	return ctx.Err() != nil && errors.Is(err, ctx.Err())
}

// Shutdown terminates the processes a completed launch left running, in
// reverse start order. Calling it again is a no-op.
func (s *Sequencer) Shutdown(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	started := s.started
	s.started = nil
	s.mu.Unlock()

	names, errs := terminate(ctx, started)
	return names, errors.Join(errs...)
}

// terminate stops procs last-started first.
func terminate(ctx context.Context, procs []startedProcess) ([]string, []error) {
	logger := ctxlog.FromContext(ctx)
	var (
		names []string
		errs  []error
	)
	for i := len(procs) - 1; i >= 0; i-- {
		sp := procs[i]
		logger.Info("🛑 Terminating process.", "process", sp.name)
		if err := sp.proc.Terminate(ctx); err != nil {
			logger.Error("Failed to terminate process.", "process", sp.name, "error", err)
			errs = append(errs, err)
		}
		names = append(names, sp.name)
	}
	return names, errs
}
