package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/vk/armstack/internal/app"
	"github.com/vk/armstack/internal/backend"
	"github.com/vk/armstack/internal/executor"
	"github.com/vk/armstack/internal/params"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// overrideList collects repeated --set flags.
type overrideList []params.Override

func (l *overrideList) String() string {
	parts := make([]string, 0, len(*l))
	for _, o := range *l {
		parts = append(parts, o.Process+"."+o.Key)
	}
	return strings.Join(parts, ",")
}

func (l *overrideList) Set(s string) error {
	o, err := params.ParseOverride(s)
	if err != nil {
		return err
	}
	*l = append(*l, o)
	return nil
}

// Parse processes command-line arguments. It returns a populated app
// Config, a boolean indicating if the program should exit cleanly, or an
// ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("armstack", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
armstack - brings up the manipulator stack: descriptions, controllers, planning and visualization.

Usage:
  armstack [options] [STACK_FILE]

Arguments:
  STACK_FILE
    Optional HCL stack file. Built-in defaults apply when omitted.

Options:
`)
		flagSet.PrintDefaults()
	}

	backendFlag := flagSet.String("backend", string(backend.Simulated), "Hardware backend. Options: 'simulated' or 'physical'.")
	stackFlag := flagSet.String("stack", "", "Path to the HCL stack file.")
	kinematicFlag := flagSet.String("kinematic", "", "Override the kinematic description template.")
	semanticFlag := flagSet.String("semantic", "", "Override the semantic description template.")
	configDirFlag := flagSet.String("config-dir", "", "Directory holding templates and static configuration files.")
	var overrides overrideList
	flagSet.Var(&overrides, "set", "Parameter override 'process.key=value' (repeatable, HCL literal values).")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	logDirFlag := flagSet.String("log-dir", "", "Directory for per-process log files. Defaults to the run directory.")
	readinessFlag := flagSet.Duration("readiness-timeout", executor.DefaultReadinessTimeout, "Default bound on each readiness wait.")
	noVizFlag := flagSet.Bool("no-visualization", false, "Do not start the visualization client.")
	holdFlag := flagSet.Bool("hold", false, "Stay in the foreground and stop every process on interrupt.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	privilegedFlag := flagSet.Bool("privileged", false, "Run the physical hardware interface through 'sudo -E'.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	stackPath := *stackFlag
	if stackPath == "" && flagSet.NArg() > 0 {
		stackPath = flagSet.Arg(0)
	}
	if flagSet.NArg() > 1 {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unexpected arguments: %s", strings.Join(flagSet.Args()[1:], " "))}
	}

	mode, err := backend.ParseMode(*backendFlag)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	if *readinessFlag <= 0 {
		return nil, false, &ExitError{Code: 2, Message: "invalid readiness-timeout: must be positive"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		Backend:          mode,
		StackPath:        stackPath,
		KinematicPath:    *kinematicFlag,
		SemanticPath:     *semanticFlag,
		ConfigDir:        *configDirFlag,
		Overrides:        overrides,
		NoVisualization:  *noVizFlag,
		Privileged:       *privilegedFlag,
		LogFormat:        logFormat,
		LogLevel:         logLevel,
		LogDir:           *logDirFlag,
		AmentPrefixPath:  os.Getenv("AMENT_PREFIX_PATH"),
		ReadinessTimeout: *readinessFlag,
		Hold:             *holdFlag,
		HealthcheckPort:  *healthPortFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "backend", config.Backend, "stack", config.StackPath)
	return config, false, nil
}
