package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/armstack/internal/backend"
	"github.com/vk/armstack/internal/readiness"
)

func TestDefault_IsValid(t *testing.T) {
	s := Default()
	require.NoError(t, s.Validate())
	assert.Equal(t, []string{"joint_state_broadcaster", "arm_group_controller"}, s.Controllers)
	assert.Equal(t, []string{"0.0", "0.0", "0.0", "0.0", "0.0", "0.0", "world", "arm_link"}, s.StaticTransform.Args())
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	s := Default()
	s.Templates.Kinematic = ""
	s.ControllerManager.UpdateRate = 0
	s.Controllers = []string{"jsb", "jsb", ""}
	s.Processes["move_group"] = ProcessSettings{Readiness: readiness.Spec{Kind: readiness.File}}

	err := s.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"kinematic template is required",
		"update rate must be positive",
		`controller "jsb" listed twice`,
		"controller name must not be empty",
		`process "move_group": file readiness requires a path`,
	} {
		assert.ErrorContains(t, err, want)
	}
}

func TestTransformArgs(t *testing.T) {
	tr := Transform{X: 0.5, Z: 1, Yaw: -1.5708, Parent: "world", Child: "base"}
	assert.Equal(t, []string{"0.5", "0.0", "1.0", "0.0", "0.0", "-1.5708", "world", "base"}, tr.Args())
}

func TestResolveConfigDir(t *testing.T) {
	t.Run("explicit dir wins", func(t *testing.T) {
		s := Default()
		s.ConfigDir = "/etc/arm"
		assert.Equal(t, "/etc/arm", s.ResolveConfigDir("/opt/ros"))
	})

	t.Run("found under ament prefix", func(t *testing.T) {
		missing := t.TempDir()
		prefix := t.TempDir()
		dir := filepath.Join(prefix, "share", "arm_config", "config")
		require.NoError(t, os.MkdirAll(dir, 0o755))

		s := Default()
		got := s.ResolveConfigDir(missing + string(os.PathListSeparator) + prefix)
		assert.Equal(t, dir, got)
		assert.Equal(t, filepath.Join(dir, "kinematics.yaml"), s.Path("kinematics.yaml"))
		assert.Equal(t, "/abs/file.yaml", s.Path("/abs/file.yaml"))
	})

	t.Run("falls back to local config", func(t *testing.T) {
		s := Default()
		assert.Equal(t, "config", s.ResolveConfigDir(""))
	})
}

func TestProfile(t *testing.T) {
	s := Default()

	sim, err := s.Profile(backend.Simulated)
	require.NoError(t, err)
	assert.Equal(t, "mock_components", sim.HardwareType)
	assert.True(t, sim.Augmentation.IsZero())

	phys, err := s.Profile(backend.Physical)
	require.NoError(t, err)
	assert.Equal(t, "real", phys.HardwareType)
	assert.True(t, phys.Augmentation.IsZero())

	s.Privileged = true
	phys, err = s.Profile(backend.Physical)
	require.NoError(t, err)
	assert.Equal(t, []string{"sudo", "-E"}, phys.Augmentation.Prefix)

	sim, err = s.Profile(backend.Simulated)
	require.NoError(t, err)
	assert.True(t, sim.Augmentation.IsZero(), "privilege never applies to the simulated backend")

	assert.Empty(t, s.Backends[backend.Physical].Augmentation.Prefix, "stack table must not be mutated")
}
