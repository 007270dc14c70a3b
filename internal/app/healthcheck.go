package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vk/armstack/internal/ctxlog"
	"github.com/vk/armstack/internal/executor"
)

// healthHandler answers liveness probes.
func (app *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	logger := ctxlog.FromContext(app.ctx)
	logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

type processStatus struct {
	Name     string `json:"name"`
	State    string `json:"state"`
	Critical bool   `json:"critical"`
	PID      int    `json:"pid,omitempty"`
	Error    string `json:"error,omitempty"`
}

type launchStatus struct {
	RunID     string          `json:"run_id,omitempty"`
	Status    string          `json:"status"`
	ExitCode  int             `json:"exit_code"`
	Processes []processStatus `json:"processes,omitempty"`
}

func statusOf(runID string, res *executor.LaunchResult) launchStatus {
	st := launchStatus{RunID: runID, Status: string(res.Status), ExitCode: res.Status.ExitCode()}
	for _, p := range res.Processes {
		ps := processStatus{Name: p.Name, State: p.State.String(), Critical: p.Critical, PID: p.PID}
		if p.Err != nil {
			ps.Error = p.Err.Error()
		}
		st.Processes = append(st.Processes, ps)
	}
	return st
}

// statusHandler reports the launch result as JSON, 503 until it exists.
func (app *App) statusHandler(w http.ResponseWriter, r *http.Request) {
	logger := ctxlog.FromContext(app.ctx)
	logger.Debug("Status endpoint hit.", "remote_addr", r.RemoteAddr)

	runID := app.RunID()
	w.Header().Set("Content-Type", "application/json")
	res := app.result.Load()
	if res == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(launchStatus{RunID: runID, Status: "launching"})
		return
	}
	if err := json.NewEncoder(w).Encode(statusOf(runID, res)); err != nil {
		logger.Warn("Failed to write status response.", "error", err)
	}
}

func (app *App) healthMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", app.healthHandler)
	mux.HandleFunc("/status", app.statusHandler)
	return mux
}

// healthCheckServer initializes and runs the health check HTTP server.
func (app *App) healthCheckServer() {
	logger := ctxlog.FromContext(app.ctx)
	logger.Debug("Configuring health check server.")

	addr := fmt.Sprintf(":%d", app.config.HealthcheckPort)
	app.httpServer = &http.Server{
		Addr:              addr,
		Handler:           app.healthMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("🩺 Health check server starting", "address", fmt.Sprintf("http://localhost%s/health", addr))
		// ListenAndServe returns ErrServerClosed on graceful shutdown.
		if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Health check server failed unexpectedly", "error", err)
		}
	}()
}

func (app *App) closeHealthCheckServer() error {
	logger := ctxlog.FromContext(app.ctx)
	if app.httpServer == nil {
		logger.Debug("Health check server was not running.")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(app.ctx), 5*time.Second)
	defer cancel()

	logger.Info("🩺 Shutting down health check server...")
	if err := app.httpServer.Shutdown(ctx); err != nil {
		logger.Error("Health check server shutdown failed", "error", err)
		return err
	}
	return nil
}
