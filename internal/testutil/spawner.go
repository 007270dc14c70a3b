package testutil

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/vk/armstack/internal/dag"
	"github.com/vk/armstack/internal/process"
)

// ErrInterrupted is the exit error of a terminated FakeProcess.
var ErrInterrupted = errors.New("signal: interrupt")

// FakeSpawner is an in-memory process.Spawner. Its processes run until they
// are terminated or told to exit.
type FakeSpawner struct {
	// Fail makes Spawn return the error for the named process.
	Fail map[string]error
	// Exit makes the named process exit with the error right after spawning.
	Exit map[string]error
	// Hook runs before every spawn with its 1-based call number. A non-nil
	// return fails the spawn.
	Hook func(n int, spec dag.ProcessSpec) error

	mu         sync.Mutex
	calls      int
	specs      map[string]dag.ProcessSpec
	procs      map[string]*FakeProcess
	spawned    []string
	terminated []string
	records    map[string]*ExecutionRecord
}

var _ process.Spawner = (*FakeSpawner)(nil)

func (f *FakeSpawner) Spawn(_ context.Context, spec dag.ProcessSpec) (process.Process, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	if f.specs == nil {
		f.specs = make(map[string]dag.ProcessSpec)
		f.procs = make(map[string]*FakeProcess)
		f.records = make(map[string]*ExecutionRecord)
	}
	f.specs[spec.Name] = spec
	f.mu.Unlock()

	if f.Hook != nil {
		if err := f.Hook(n, spec); err != nil {
			return nil, err
		}
	}
	if err, ok := f.Fail[spec.Name]; ok {
		return nil, err
	}

	p := &FakeProcess{name: spec.Name, pid: 1000 + n, owner: f, done: make(chan struct{})}
	f.mu.Lock()
	f.spawned = append(f.spawned, spec.Name)
	f.procs[spec.Name] = p
	f.records[spec.Name] = &ExecutionRecord{Start: time.Now()}
	f.mu.Unlock()

	if err, ok := f.Exit[spec.Name]; ok {
		p.Exit(err)
	}
	return p, nil
}

// Spec returns the last spec passed to Spawn for name.
func (f *FakeSpawner) Spec(name string) (dag.ProcessSpec, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.specs[name]
	return s, ok
}

// Process returns the running fake for name.
func (f *FakeSpawner) Process(name string) (*FakeProcess, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.procs[name]
	return p, ok
}

// Spawned lists successfully spawned processes in spawn order.
func (f *FakeSpawner) Spawned() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.spawned)
}

// Terminated lists terminated processes in termination order.
func (f *FakeSpawner) Terminated() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.terminated)
}

// Record returns the execution record of name.
func (f *FakeSpawner) Record(name string) (ExecutionRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[name]
	if !ok {
		return ExecutionRecord{}, false
	}
	return *r, true
}

// FakeProcess is a process started by FakeSpawner.
type FakeProcess struct {
	name  string
	pid   int
	owner *FakeSpawner
	once  sync.Once
	done  chan struct{}
	err   error
}

var _ process.Process = (*FakeProcess)(nil)

func (p *FakeProcess) Done() <-chan struct{} { return p.done }

func (p *FakeProcess) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

func (p *FakeProcess) PID() int { return p.pid }

// Exit ends the process with err. Later calls do nothing.
func (p *FakeProcess) Exit(err error) {
	p.once.Do(func() {
		p.err = err
		p.owner.mu.Lock()
		if r, ok := p.owner.records[p.name]; ok {
			r.End = time.Now()
		}
		p.owner.mu.Unlock()
		close(p.done)
	})
}

// Terminate records the termination and ends a live process.
func (p *FakeProcess) Terminate(context.Context) error {
	select {
	case <-p.done:
		return nil
	default:
	}
	p.owner.mu.Lock()
	p.owner.terminated = append(p.owner.terminated, p.name)
	p.owner.mu.Unlock()
	p.Exit(ErrInterrupted)
	return nil
}
