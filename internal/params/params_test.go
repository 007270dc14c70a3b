package params

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBuild_NestedMappingsMergeRecursively(t *testing.T) {
	lo := Layer{Name: "defaults", Values: map[string]cty.Value{
		"ompl": cty.ObjectVal(map[string]cty.Value{
			"planner":  cty.StringVal("RRTConnect"),
			"attempts": cty.NumberIntVal(5),
		}),
		"update_rate": cty.NumberIntVal(100),
	}}
	hi := Layer{Name: "file", Values: map[string]cty.Value{
		"ompl": cty.ObjectVal(map[string]cty.Value{
			"attempts": cty.NumberIntVal(10),
			"simplify": cty.True,
		}),
		"update_rate": cty.NumberIntVal(250),
	}}

	set, err := Build("move_group", nil, lo, hi)
	require.NoError(t, err)

	got, err := set.GoValue()
	require.NoError(t, err)
	want := map[string]any{
		"ompl": map[string]any{
			"planner":  "RRTConnect",
			"attempts": int64(10),
			"simplify": true,
		},
		"update_rate": int64(250),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("merged parameters mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_ScalarReplacesMapping(t *testing.T) {
	lo := Layer{Values: map[string]cty.Value{
		"x": cty.ObjectVal(map[string]cty.Value{"a": cty.NumberIntVal(1)}),
	}}
	hi := Layer{Values: map[string]cty.Value{"x": cty.StringVal("flat")}}

	set, err := Build("p", nil, lo, hi)
	require.NoError(t, err)
	assert.Equal(t, "flat", set.String("x"))
}

func TestBuild_MissingRequiredKeys(t *testing.T) {
	layer := Layer{Values: map[string]cty.Value{
		"robot_description": cty.StringVal("<robot/>"),
	}}

	_, err := Build("controller_manager", []string{"update_rate", "robot_description", "a.b"}, layer)
	require.Error(t, err)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "controller_manager", cfgErr.Process)
	assert.Equal(t, []string{"a.b", "update_rate"}, cfgErr.Missing)
	assert.Contains(t, err.Error(), "missing required keys: a.b, update_rate")
}

func TestBuild_NullCountsAsMissing(t *testing.T) {
	layer := Layer{Values: map[string]cty.Value{
		"robot_description": cty.NullVal(cty.String),
	}}
	_, err := Build("robot_state_publisher", []string{"robot_description"}, layer)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, []string{"robot_description"}, cfgErr.Missing)
}

func TestSet_GetDottedPath(t *testing.T) {
	set, err := Build("p", nil, Layer{Values: map[string]cty.Value{
		"a": cty.ObjectVal(map[string]cty.Value{
			"b": cty.ObjectVal(map[string]cty.Value{"c": cty.StringVal("deep")}),
		}),
	}})
	require.NoError(t, err)

	assert.Equal(t, "deep", set.String("a.b.c"))
	_, ok := set.Get("a.b.missing")
	assert.False(t, ok)
	_, ok = set.Get("a.b.c.d")
	assert.False(t, ok)
	assert.Equal(t, []string{"a"}, set.Keys())
	assert.Equal(t, 1, set.Len())
}

func TestStore_BuildOncePerProcess(t *testing.T) {
	st := NewStore()
	_, err := st.Build("rviz2", nil)
	require.NoError(t, err)

	_, err = st.Build("rviz2", nil)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "already built")

	_, err = st.Build("move_group", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"move_group", "rviz2"}, st.Processes())

	_, err = st.Lookup("missing")
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "missing", cfgErr.Process)
}

func TestLoadFile_YAML(t *testing.T) {
	path := writeFile(t, "kinematics.yaml", `
arm_group:
  kinematics_solver: kdl_kinematics_plugin/KDLKinematicsPlugin
  kinematics_solver_timeout: 0.005
  attempts: 3
joints: [j1, j2]
`)
	f, err := LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, f.IsSectioned())

	set, err := Build("move_group", []string{"arm_group.kinematics_solver"}, f.Layer("move_group"))
	require.NoError(t, err)
	got, err := set.GoValue()
	require.NoError(t, err)
	want := map[string]any{
		"arm_group": map[string]any{
			"kinematics_solver":         "kdl_kinematics_plugin/KDLKinematicsPlugin",
			"kinematics_solver_timeout": 0.005,
			"attempts":                  int64(3),
		},
		"joints": []any{"j1", "j2"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("yaml parameters mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFile_SectionedYAML(t *testing.T) {
	path := writeFile(t, "ros2_controllers.yaml", `
controller_manager:
  ros__parameters:
    update_rate: 100
    arm_group_controller:
      type: joint_trajectory_controller/JointTrajectoryController
arm_group_controller:
  ros__parameters:
    joints: [j1]
/**:
  ros__parameters:
    use_sim_time: false
    update_rate: 50
`)
	f, err := LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, f.IsSectioned())

	layer := f.Layer("controller_manager")
	set, err := Build("controller_manager", nil, layer)
	require.NoError(t, err)

	v, ok := set.Get("update_rate")
	require.True(t, ok)
	assert.True(t, v.RawEquals(cty.NumberIntVal(100)), "node section must override wildcard")
	v, ok = set.Get("use_sim_time")
	require.True(t, ok)
	assert.True(t, v.RawEquals(cty.False))
	_, ok = set.Get("joints")
	assert.False(t, ok, "other node sections must not leak")
}

func TestLoadFile_HCLAndJSON(t *testing.T) {
	hclPath := writeFile(t, "limits.hcl", `
default_velocity_scaling_factor = 0.1
joint_limits = {
  j1 = { has_velocity_limits = true, max_velocity = 2 }
}
`)
	jsonPath := writeFile(t, "limits.json", `{"joint_limits": {"j1": {"max_velocity": 3}}}`)

	hf, err := LoadFile(context.Background(), hclPath)
	require.NoError(t, err)
	jf, err := LoadFile(context.Background(), jsonPath)
	require.NoError(t, err)

	set, err := Build("move_group", nil, hf.Layer("move_group"), jf.Layer("move_group"))
	require.NoError(t, err)

	got, err := set.GoValue()
	require.NoError(t, err)
	want := map[string]any{
		"default_velocity_scaling_factor": 0.1,
		"joint_limits": map[string]any{
			"j1": map[string]any{"has_velocity_limits": true, "max_velocity": int64(3)},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("hcl/json parameters mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadFile(context.Background(), writeFile(t, "x.toml", "a = 1"))
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "unsupported configuration format")

	_, err = LoadFile(context.Background(), writeFile(t, "bad.yaml", "a: [1, 2"))
	require.ErrorAs(t, err, &cfgErr)
}

func TestParseOverride(t *testing.T) {
	testCases := []struct {
		name    string
		in      string
		process string
		key     string
		want    cty.Value
	}{
		{"number", "controller_manager.update_rate=250", "controller_manager", "update_rate", cty.NumberIntVal(250)},
		{"bool", "move_group.publish_robot_description=false", "move_group", "publish_robot_description", cty.False},
		{"bare word", "move_group.ompl.planner=RRTstar", "move_group", "ompl.planner", cty.StringVal("RRTstar")},
		{"quoted", `rviz2.title="arm view"`, "rviz2", "title", cty.StringVal("arm view")},
		{"list", `move_group.planning_pipelines=["ompl"]`, "move_group", "planning_pipelines", cty.TupleVal([]cty.Value{cty.StringVal("ompl")})},
		{"path", "rviz2.config=/tmp/a.rviz", "rviz2", "config", cty.StringVal("/tmp/a.rviz")},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			o, err := ParseOverride(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.process, o.Process)
			assert.Equal(t, tc.key, o.Key)
			assert.True(t, o.Value.RawEquals(tc.want), "got %#v", o.Value)
		})
	}
}

func TestParseOverride_Invalid(t *testing.T) {
	for _, in := range []string{"noequals", "nodot=1", ".key=1", "proc.=1", "proc.a..b=1"} {
		_, err := ParseOverride(in)
		assert.Error(t, err, in)
	}
}

func TestOverrideLayer_HighestPrecedence(t *testing.T) {
	var overrides []Override
	for _, s := range []string{
		"move_group.ompl.planner=PRM",
		"move_group.ompl.planner=RRTstar",
		"rviz2.x=1",
	} {
		o, err := ParseOverride(s)
		require.NoError(t, err)
		overrides = append(overrides, o)
	}
	defaults := Layer{Values: map[string]cty.Value{
		"ompl": cty.ObjectVal(map[string]cty.Value{
			"planner":  cty.StringVal("RRTConnect"),
			"attempts": cty.NumberIntVal(5),
		}),
	}}

	set, err := Build("move_group", nil, defaults, OverrideLayer("move_group", overrides))
	require.NoError(t, err)
	assert.Equal(t, "RRTstar", set.String("ompl.planner"))
	_, ok := set.Get("ompl.attempts")
	assert.True(t, ok)
	_, ok = set.Get("x")
	assert.False(t, ok)
}

func TestWriteROSFile(t *testing.T) {
	set, err := Build("controller_manager", nil, Layer{Values: map[string]cty.Value{
		"update_rate":       cty.NumberIntVal(100),
		"robot_description": cty.StringVal("<robot/>"),
	}})
	require.NoError(t, err)

	dir := t.TempDir()
	path, err := set.WriteROSFile(dir, "controller_manager")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "controller_manager.params.yaml"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]map[string]map[string]any
	require.NoError(t, yaml.Unmarshal(data, &doc))
	want := map[string]map[string]map[string]any{
		"controller_manager": {
			"ros__parameters": {
				"update_rate":       100,
				"robot_description": "<robot/>",
			},
		},
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("params file mismatch (-want +got):\n%s", diff)
	}
}
