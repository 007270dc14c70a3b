package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/vk/armstack/internal/ctxlog"
	"github.com/vk/armstack/internal/dag"
)

// DefaultGrace is how long Terminate waits after SIGINT before SIGKILL.
const DefaultGrace = 5 * time.Second

// Options configures an OS spawner.
type Options struct {
	// RunDir receives the generated parameter files.
	RunDir string
	// LogDir receives <name>.log for processes with the log policy.
	LogDir string
	// Stdout receives forwarded output.
	Stdout io.Writer
	// AmentPrefixPath is searched for ROS executables.
	AmentPrefixPath string
	Grace           time.Duration
}

// OS spawns real processes.
type OS struct {
	opts Options
	// mu serializes forwarded lines across processes.
	mu sync.Mutex
}

var _ Spawner = (*OS)(nil)

// NewOS creates a spawner. A zero Grace means DefaultGrace and a nil Stdout
// means os.Stdout.
func NewOS(opts Options) *OS {
	if opts.Grace <= 0 {
		opts.Grace = DefaultGrace
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	return &OS{opts: opts}
}

// Command returns the argument vector that would start spec, resolving the
// executable and writing its parameter file.
func (s *OS) Command(spec dag.ProcessSpec) ([]string, error) {
	path, err := Resolve(spec.Executable, s.opts.AmentPrefixPath)
	if err != nil {
		return nil, err
	}

	argv := make([]string, 0, len(spec.Prefix)+1+len(spec.Args)+8)
	argv = append(argv, spec.Prefix...)
	argv = append(argv, path)
	argv = append(argv, spec.Args...)

	rosArgs, err := s.rosArgs(spec)
	if err != nil {
		return nil, err
	}
	return append(argv, rosArgs...), nil
}

// rosArgs renders the node remap and parameter files.
func (s *OS) rosArgs(spec dag.ProcessSpec) ([]string, error) {
	if spec.Node == "" && spec.Params == nil && len(spec.ParamFiles) == 0 {
		return nil, nil
	}
	args := []string{"--ros-args"}
	if spec.Node != "" {
		args = append(args, "-r", "__node:="+spec.Node)
	}
	for _, f := range spec.ParamFiles {
		args = append(args, "--params-file", f)
	}
	if spec.Params != nil {
		node := spec.Node
		if node == "" {
			node = spec.Name
		}
		path, err := spec.Params.WriteROSFile(s.opts.RunDir, node)
		if err != nil {
			return nil, err
		}
		args = append(args, "--params-file", path)
	}
	return args, nil
}

// Spawn starts spec in its own process group.
func (s *OS) Spawn(ctx context.Context, spec dag.ProcessSpec) (Process, error) {
	logger := ctxlog.FromContext(ctx)

	argv, err := s.Command(spec)
	if err != nil {
		return nil, err
	}

	// A prefix program such as sudo is looked up in PATH by exec.Command.
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = os.Environ()
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	h := &handle{done: make(chan struct{}), grace: s.opts.Grace}
	switch spec.Output {
	case dag.OutputForward:
		h.fwd = newPrefixWriter(&s.mu, s.opts.Stdout, spec.Name)
		cmd.Stdout, cmd.Stderr = h.fwd, h.fwd
	case dag.OutputLog:
		if err := os.MkdirAll(s.opts.LogDir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.Create(filepath.Join(s.opts.LogDir, spec.Name+".log"))
		if err != nil {
			return nil, fmt.Errorf("create log file: %w", err)
		}
		h.log = f
		cmd.Stdout, cmd.Stderr = f, f
	}

	logger.Debug("Starting process.", "argv", argv, "output", spec.Output)
	if err := cmd.Start(); err != nil {
		h.closeOutput()
		return nil, fmt.Errorf("failed to start %s: %w", argv[0], err)
	}
	h.cmd = cmd

	go func() {
		h.err = cmd.Wait()
		h.closeOutput()
		close(h.done)
	}()
	return h, nil
}

// handle is a process started by OS.
type handle struct {
	cmd   *exec.Cmd
	done  chan struct{}
	err   error
	grace time.Duration
	fwd   *prefixWriter
	log   *os.File
}

func (h *handle) Done() <-chan struct{} { return h.done }

func (h *handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

func (h *handle) PID() int { return h.cmd.Process.Pid }

func (h *handle) closeOutput() {
	if h.fwd != nil {
		_ = h.fwd.Flush()
	}
	if h.log != nil {
		_ = h.log.Close()
	}
}

// Terminate sends SIGINT to the process group and escalates to SIGKILL
// after the grace period.
func (h *handle) Terminate(ctx context.Context) error {
	select {
	case <-h.done:
		return nil
	default:
	}

	pgid := -h.cmd.Process.Pid
	if err := syscall.Kill(pgid, syscall.SIGINT); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("interrupt process group: %w", err)
	}

	timer := time.NewTimer(h.grace)
	defer timer.Stop()
	select {
	case <-h.done:
		return nil
	case <-timer.C:
	case <-ctx.Done():
	}

	if err := syscall.Kill(pgid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("kill process group: %w", err)
	}
	<-h.done
	return nil
}
