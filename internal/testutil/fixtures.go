package testutil

import (
	"maps"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// KinematicTemplate is a minimal kinematic description with the hardware
// placeholder.
const KinematicTemplate = `<robot name="zeroerr_arm">
  <ros2_control name="arm" type="system">
    <hardware><plugin>${ros2_control_hardware_type}</plugin></hardware>
  </ros2_control>
</robot>
`

// SemanticTemplate is a minimal semantic description.
const SemanticTemplate = `<robot name="zeroerr_arm"><group name="arm_group"/></robot>
`

// ArmConfig returns the files of a minimal arm_config/config directory.
// Entries in extra replace or add files.
func ArmConfig(extra map[string]string) map[string]string {
	files := map[string]string{
		"zeroerr_arm.urdf.xacro": KinematicTemplate,
		"zeroerr_arm.srdf":       SemanticTemplate,
		"ros2_controllers.yaml": `
controller_manager:
  ros__parameters:
    update_rate: 500
`,
		"kinematics.yaml":   "arm_group:\n  kinematics_solver: kdl_kinematics_plugin/KDLKinematicsPlugin\n",
		"joint_limits.yaml": "joint_limits: {}\n",
	}
	maps.Copy(files, extra)
	return files
}

// WriteFiles writes files, keyed by slash-separated relative path, into a
// fresh temporary directory and returns it.
func WriteFiles(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

// InstallExecutable writes a shell script at <prefix>/lib/<pkg>/<name>, the
// layout of an ament install prefix.
func InstallExecutable(t *testing.T, prefix, pkg, name, body string) {
	t.Helper()

	dir := filepath.Join(prefix, "lib", pkg)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"+body+"\n"), 0o755))
}
