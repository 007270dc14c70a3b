package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/armstack/internal/backend"
	"github.com/vk/armstack/internal/description"
	"github.com/vk/armstack/internal/executor"
	"github.com/vk/armstack/internal/hcl"
	"github.com/vk/armstack/internal/params"
	"github.com/vk/armstack/internal/process"
	"github.com/vk/armstack/internal/testutil"
	"github.com/zclconf/go-cty/cty"
)

func TestRun_SimulatedLaunch(t *testing.T) {
	spawner := &testutil.FakeSpawner{}
	a, out := SetupAppTest(t, Config{ConfigDir: testutil.WriteFiles(t, testutil.ArmConfig(nil))}, hcl.NewLoader(), WithSpawner(spawner))

	require.NoError(t, a.Run(context.Background()))

	res := a.Result()
	require.NotNil(t, res)
	assert.Equal(t, executor.StatusSucceeded, res.Status)
	assert.Equal(t, 8, res.Count(executor.Running))

	hw, ok := spawner.Spec("hardware_interface")
	require.True(t, ok)
	assert.Equal(t, backend.Executable{Package: "arm_hardware", Name: "mock_arm_interface"}, hw.Executable)
	assert.Empty(t, hw.Prefix)

	rsp, ok := spawner.Spec("robot_state_publisher")
	require.True(t, ok)
	assert.Contains(t, rsp.Params.String("robot_description"), "<plugin>mock_components</plugin>")

	assert.Contains(t, out.String(), "Launch succeeded")
	assert.NotContains(t, out.String(), "Physical backend selected")
	assert.Empty(t, spawner.Terminated(), "processes stay up without hold mode")
}

func TestRun_PhysicalPrivilegedLaunch(t *testing.T) {
	spawner := &testutil.FakeSpawner{}
	a, out := SetupAppTest(t, Config{
		Backend:         backend.Physical,
		ConfigDir:       testutil.WriteFiles(t, testutil.ArmConfig(nil)),
		Privileged:      true,
		NoVisualization: true,
		Overrides: []params.Override{
			{Process: "controller_manager", Key: "update_rate", Value: cty.StringVal("x")},
		},
	}, hcl.NewLoader(), WithSpawner(spawner))

	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, out.String(), "Physical backend selected")

	hw, ok := spawner.Spec("hardware_interface")
	require.True(t, ok)
	assert.Equal(t, backend.Executable{Package: "arm_ethercat_interface", Name: "arm_ethercat_interface"}, hw.Executable)
	assert.Equal(t, []string{"sudo", "-E"}, hw.Prefix)

	_, ok = spawner.Spec("rviz2")
	assert.False(t, ok, "visualization disabled")
	assert.Equal(t, 7, a.Result().Count(executor.Running))

	cm, ok := spawner.Spec("controller_manager")
	require.True(t, ok)
	assert.Equal(t, "x", cm.Params.String("update_rate"))
	assert.Contains(t, cm.Params.String("robot_description"), "<plugin>real</plugin>")
}

func TestRun_AbortsBeforeSpawning(t *testing.T) {
	spawner := &testutil.FakeSpawner{}
	a, out := SetupAppTest(t, Config{
		ConfigDir:     testutil.WriteFiles(t, testutil.ArmConfig(nil)),
		KinematicPath: filepath.Join(t.TempDir(), "missing.urdf.xacro"),
	}, hcl.NewLoader(), WithSpawner(spawner))

	err := a.Run(context.Background())

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, 1, runErr.Code)
	var resErr *description.ResolutionError
	assert.ErrorAs(t, err, &resErr)
	assert.Nil(t, a.Result())
	assert.Empty(t, spawner.Spawned())
	assert.Contains(t, out.String(), "Launch aborted before starting any process")
}

func TestRun_UnknownOverrideProcess(t *testing.T) {
	a, _ := SetupAppTest(t, Config{
		ConfigDir: testutil.WriteFiles(t, testutil.ArmConfig(nil)),
		Overrides: []params.Override{{Process: "gripper", Key: "speed", Value: cty.NumberIntVal(1)}},
	}, hcl.NewLoader(), WithSpawner(&testutil.FakeSpawner{}))

	var cfgErr *params.ConfigError
	require.ErrorAs(t, a.Run(context.Background()), &cfgErr)
	assert.Equal(t, "gripper", cfgErr.Process)
}

func TestRun_CriticalFailureExitsNonZero(t *testing.T) {
	spawner := &testutil.FakeSpawner{Fail: map[string]error{"move_group": process.ErrNotFound}}
	a, out := SetupAppTest(t, Config{ConfigDir: testutil.WriteFiles(t, testutil.ArmConfig(nil))}, hcl.NewLoader(), WithSpawner(spawner))

	err := a.Run(context.Background())

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, 1, runErr.Code)
	assert.ErrorIs(t, err, process.ErrNotFound)
	assert.Equal(t, executor.DependencyFailed, mustProcess(t, a.Result(), "rviz2").State)
	assert.Contains(t, out.String(), "Launch failed")
}

func TestRun_HoldStopsInReverseOrder(t *testing.T) {
	spawner := &testutil.FakeSpawner{}
	a, _ := SetupAppTest(t, Config{
		ConfigDir:       testutil.WriteFiles(t, testutil.ArmConfig(nil)),
		Hold:            true,
		NoVisualization: true,
	}, hcl.NewLoader(), WithSpawner(spawner))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		for a.Result() == nil {
			time.Sleep(10 * time.Millisecond)
		}
		cancel()
	}()

	require.NoError(t, a.Run(ctx))

	res := a.Result()
	assert.Len(t, res.Started, 7)
	assert.Equal(t, testutil.Reversed(res.Started), spawner.Terminated())
}

func TestStatusHandler(t *testing.T) {
	a, _ := SetupAppTest(t, Config{}, hcl.NewLoader())
	mux := a.healthMux()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"launching"`)

	a.runID.Store("run-1")
	a.result.Store(&executor.LaunchResult{
		Status: executor.StatusPartial,
		Processes: []executor.ProcessResult{
			{Name: "move_group", State: executor.Running, Critical: true, PID: 10},
			{Name: "spawner_arm_group_controller", State: executor.Failed, Err: errors.New("exit status 1")},
		},
	})

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got launchStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, "partial", got.Status)
	assert.Equal(t, 0, got.ExitCode)
	require.Len(t, got.Processes, 2)
	assert.Equal(t, "exit status 1", got.Processes[1].Error)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK\n", rec.Body.String())
}

func TestNewConfig(t *testing.T) {
	cfg, err := NewConfig(Config{})
	require.NoError(t, err)
	assert.Equal(t, backend.Simulated, cfg.Backend)
	assert.Equal(t, executor.DefaultReadinessTimeout, cfg.ReadinessTimeout)
	assert.NotEmpty(t, cfg.RunBase)
	assert.Equal(t, "text", cfg.LogFormat)

	_, err = NewConfig(Config{Backend: "hybrid"})
	assert.ErrorContains(t, err, "invalid backend mode")

	_, err = NewConfig(Config{ReadinessTimeout: -time.Second})
	assert.Error(t, err)

	_, err = NewConfig(Config{HealthcheckPort: 70000})
	assert.Error(t, err)
}

func mustProcess(t *testing.T, res *executor.LaunchResult, name string) executor.ProcessResult {
	t.Helper()
	require.NotNil(t, res)
	p, ok := res.Process(name)
	require.True(t, ok, name)
	return p
}
