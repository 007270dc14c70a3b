package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/vk/armstack/internal/backend"
	"github.com/vk/armstack/internal/config"
	"github.com/vk/armstack/internal/ctxlog"
	"github.com/vk/armstack/internal/dag"
	"github.com/vk/armstack/internal/description"
	"github.com/vk/armstack/internal/executor"
	"github.com/vk/armstack/internal/process"
	"github.com/vk/armstack/internal/summary"
	"github.com/vk/armstack/internal/topology"
)

// Run performs one bring-up: it prepares the process graph, launches it and,
// in hold mode, keeps the stack up until ctx is cancelled. A non-zero
// outcome is returned as *RunError after the summary has been printed.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	a.logger.Debug("App.Run method started.")
	out := summary.New(a.outW)

	if a.config.HealthcheckPort > 0 {
		a.healthCheckServer()
		defer func() { _ = a.closeHealthCheckServer() }()
	}

	graph, run, err := a.prepare(ctx)
	if err != nil {
		a.logger.Error("Launch aborted.", "error", err)
		_ = out.Aborted(err)
		return &RunError{Code: 1, Err: err}
	}

	spawner := a.spawner
	if spawner == nil {
		logDir := a.config.LogDir
		if logDir == "" {
			logDir = filepath.Join(run.Dir, "log")
		}
		spawner = process.NewOS(process.Options{
			RunDir:          run.Dir,
			LogDir:          logDir,
			Stdout:          a.outW,
			AmentPrefixPath: a.config.AmentPrefixPath,
		})
	}

	seq := executor.New(spawner, executor.Options{ReadinessTimeout: a.config.ReadinessTimeout})
	res := seq.Run(ctx, graph)
	a.result.Store(res)
	if err := out.Launch(res); err != nil {
		a.logger.Warn("Failed to print launch summary.", "error", err)
	}

	if a.config.Hold && res.Status != executor.StatusCancelled {
		a.hold(ctx, seq, res)
	}

	a.logger.Debug("App.Run method finished.")
	if code := res.Status.ExitCode(); code != 0 {
		return &RunError{Code: code, Err: res.Err}
	}
	return nil
}

// prepare runs every stage that must succeed before the first spawn.
func (a *App) prepare(ctx context.Context) (*dag.Graph, *process.Run, error) {
	logger := ctxlog.FromContext(ctx)

	stack, err := a.loader.Load(ctx, a.config.StackPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load stack configuration: %w", err)
	}
	if err := a.applyFlags(stack); err != nil {
		return nil, nil, err
	}
	if err := stack.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid stack configuration: %w", err)
	}
	dir := stack.ResolveConfigDir(a.config.AmentPrefixPath)
	logger.Debug("Configuration directory resolved.", "config_dir", dir)

	mode := a.config.Backend
	if mode == backend.Physical {
		logger.Warn("⚠️ Physical backend selected: joints will move under real control.")
	}
	profile, err := stack.Profile(mode)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Backend selected.", "backend", mode, "hardware_type", profile.HardwareType, "interface", profile.Interface.String())

	artifacts, err := description.ResolveAll(ctx, description.Sources{
		Kinematic: stack.Path(stack.Templates.Kinematic),
		Semantic:  stack.Path(stack.Templates.Semantic),
	}, profile.Substitutions())
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("Descriptions resolved.",
		"kinematic_digest", artifacts.Kinematic.Digest(),
		"semantic_digest", artifacts.Semantic.Digest(),
	)

	store, err := topology.Parameters(ctx, stack, artifacts, a.config.Overrides)
	if err != nil {
		return nil, nil, err
	}
	graph, err := topology.Build(ctx, store, profile, stack)
	if err != nil {
		return nil, nil, err
	}

	run, err := process.NewRun(a.config.RunBase)
	if err != nil {
		return nil, nil, err
	}
	a.runID.Store(run.ID)
	logger.Info("Run directory created.", "run_id", run.ID, "dir", run.Dir)
	return graph, run, nil
}

// applyFlags overlays the command-line path overrides onto the stack.
// Paths given on the command line are relative to the working directory.
func (a *App) applyFlags(stack *config.Stack) error {
	abs := func(p string) (string, error) {
		if p == "" {
			return "", nil
		}
		return filepath.Abs(p)
	}
	var err error
	if a.config.ConfigDir != "" {
		if stack.ConfigDir, err = abs(a.config.ConfigDir); err != nil {
			return err
		}
	}
	if a.config.KinematicPath != "" {
		if stack.Templates.Kinematic, err = abs(a.config.KinematicPath); err != nil {
			return err
		}
	}
	if a.config.SemanticPath != "" {
		if stack.Templates.Semantic, err = abs(a.config.SemanticPath); err != nil {
			return err
		}
	}
	if a.config.NoVisualization {
		stack.Visualization.Enabled = false
	}
	if a.config.Privileged {
		stack.Privileged = true
	}
	return nil
}

// hold keeps a launched stack in the foreground until ctx is cancelled and
// then stops it. A launch whose critical processes failed is stopped at once.
func (a *App) hold(ctx context.Context, seq *executor.Sequencer, res *executor.LaunchResult) {
	logger := ctxlog.FromContext(ctx)
	if res.Status == executor.StatusFailed {
		logger.Warn("Critical process failed, stopping the rest of the stack.")
	} else {
		logger.Info("⏸️ Holding launched processes, interrupt to stop.", "running", res.Count(executor.Running))
		<-ctx.Done()
	}

	names, err := seq.Shutdown(context.WithoutCancel(ctx))
	if err != nil {
		logger.Error("Shutdown finished with errors.", "error", err)
	}
	logger.Info("🛑 Stack stopped.", "terminated", len(names))
}
