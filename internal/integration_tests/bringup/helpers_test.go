package integration_tests

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vk/armstack/internal/app"
	"github.com/vk/armstack/internal/hcl"
	"github.com/vk/armstack/internal/testutil"
)

const daemon = `echo "$@"
exec sleep 30`

// stackEnv is an isolated bring-up environment: a config directory, an
// ament prefix of stand-in executables and a run base.
type stackEnv struct {
	ConfigDir string
	Prefix    string
	RunBase   string
}

// newStackEnv installs a stand-in for every executable of the default stack.
// Entries of skip are left out, entries of override replace the script body.
func newStackEnv(t *testing.T, override map[string]string, skip ...string) stackEnv {
	t.Helper()
	if testing.Short() {
		t.Skip("bring-up tests start real processes")
	}

	env := stackEnv{
		ConfigDir: testutil.WriteFiles(t, testutil.ArmConfig(map[string]string{"moveit.rviz": "Panels: []\n"})),
		Prefix:    t.TempDir(),
		RunBase:   t.TempDir(),
	}

	executables := []struct{ pkg, name, key string }{
		{"tf2_ros", "static_transform_publisher", "static_transform_publisher"},
		{"robot_state_publisher", "robot_state_publisher", "robot_state_publisher"},
		{"controller_manager", "ros2_control_node", "ros2_control_node"},
		{"controller_manager", "spawner", "spawner"},
		{"arm_hardware", "mock_arm_interface", "mock_arm_interface"},
		{"moveit_ros_move_group", "move_group", "move_group"},
		{"rviz2", "rviz2", "rviz2"},
	}
	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[s] = true
	}
	for _, e := range executables {
		if skipped[e.key] {
			continue
		}
		body := daemon
		if e.key == "spawner" {
			body = "exit 0"
		}
		if b, ok := override[e.key]; ok {
			body = b
		}
		testutil.InstallExecutable(t, env.Prefix, e.pkg, e.name, body)
	}
	return env
}

// writeStack writes an HCL stack file and returns its path.
func writeStack(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stack.hcl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

// launch runs the app against env with the real process spawner. In hold
// mode the context is cancelled as soon as the launch result is published.
func launch(t *testing.T, env stackEnv, cfg app.Config) (*app.App, *app.SafeBuffer, error) {
	t.Helper()

	cfg.ConfigDir = env.ConfigDir
	cfg.AmentPrefixPath = env.Prefix
	cfg.RunBase = env.RunBase
	a, out := app.SetupAppTest(t, cfg, hcl.NewLoader())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if cfg.Hold {
		go func() {
			for a.Result() == nil && ctx.Err() == nil {
				time.Sleep(20 * time.Millisecond)
			}
			cancel()
		}()
	}

	err := a.Run(ctx)
	return a, out, err
}
