package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/vk/armstack/internal/config"
	"github.com/vk/armstack/internal/ctxlog"
	"github.com/vk/armstack/internal/executor"
	"github.com/vk/armstack/internal/process"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	ctx     context.Context
	config  *Config
	loader  config.Loader
	spawner process.Spawner

	httpServer *http.Server
	runID      atomic.Value // string
	result     atomic.Pointer[executor.LaunchResult]
}

// Option customises an App.
type Option func(*App)

// WithSpawner replaces the operating-system spawner, mainly for tests.
func WithSpawner(s process.Spawner) Option {
	return func(a *App) { a.spawner = s }
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, opts ...Option) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	a := &App{
		outW:   outW,
		logger: logger,
		ctx:    ctxlog.WithLogger(context.Background(), logger),
		config: cfg,
		loader: loader,
	}
	for _, opt := range opts {
		opt(a)
	}
	logger.Debug("Logger configured successfully.")
	return a
}

// Result returns the outcome of the last launch, nil while it is running.
func (a *App) Result() *executor.LaunchResult {
	return a.result.Load()
}

// RunID returns the identifier of the current run directory, empty until
// the launch has been prepared.
func (a *App) RunID() string {
	id, _ := a.runID.Load().(string)
	return id
}

// RunError carries the exit code of a run whose outcome was already
// reported to the user.
type RunError struct {
	Code int
	Err  error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("launch exited with code %d: %v", e.Code, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }
