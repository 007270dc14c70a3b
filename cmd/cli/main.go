package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vk/armstack/internal/app"
	"github.com/vk/armstack/internal/cli"
	"github.com/vk/armstack/internal/hcl"
)

// main is the entrypoint for the armstack launcher.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Stdout, os.Args[1:])
	stop()
	os.Exit(exitCode(err, os.Stderr))
}

// run encapsulates the main application logic for easier testing and error handling.
func run(ctx context.Context, outW io.Writer, args []string) error {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	armstack := app.NewApp(outW, appConfig, hcl.NewLoader())
	return armstack.Run(ctx)
}

// exitCode maps an error from run to the process exit status, printing the
// messages that have not been reported yet.
func exitCode(err error, errW io.Writer) int {
	if err == nil {
		return 0
	}
	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		fmt.Fprintln(errW, exitErr.Message)
		return exitErr.Code
	}
	var runErr *app.RunError
	if errors.As(err, &runErr) {
		return runErr.Code
	}
	fmt.Fprintln(errW, err)
	return 1
}
