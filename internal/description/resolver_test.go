package description

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const urdfTemplate = `<robot name="zeroerr_arm">
  <ros2_control name="arm" type="system">
    <hardware>
      <plugin>${ros2_control_hardware_type}</plugin>
    </hardware>
  </ros2_control>
  <xacro:arg name="prefix" default="$(arg prefix)"/>
</robot>
`

func writeTemplate(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestResolve_SubstitutesPlaceholders(t *testing.T) {
	path := writeTemplate(t, "arm.urdf.xacro", urdfTemplate)

	a, err := Resolve(context.Background(), Kinematic, path, map[string]string{"ros2_control_hardware_type": "mock_components"})
	require.NoError(t, err)

	assert.Equal(t, Kinematic, a.Kind())
	assert.Equal(t, path, a.Source())
	assert.Contains(t, a.String(), "<plugin>mock_components</plugin>")
	assert.Contains(t, a.String(), `default="$(arg prefix)"`, "non-placeholder dollar syntax must pass through")
	assert.Len(t, a.Digest(), 64)
}

func TestResolve_Deterministic(t *testing.T) {
	path := writeTemplate(t, "arm.urdf.xacro", urdfTemplate)
	subs := map[string]string{"ros2_control_hardware_type": "real", "unused": "x"}

	first, err := Resolve(context.Background(), Kinematic, path, subs)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Resolve(context.Background(), Kinematic, path, subs)
		require.NoError(t, err)
		assert.Equal(t, first.Bytes(), again.Bytes())
		assert.Equal(t, first.Digest(), again.Digest())
	}
}

func TestResolve_MissingSubstitution(t *testing.T) {
	path := writeTemplate(t, "arm.urdf.xacro", "${b} ${a} ${b}")

	_, err := Resolve(context.Background(), Kinematic, path, map[string]string{})
	require.Error(t, err)

	var resErr *ResolutionError
	require.True(t, errors.As(err, &resErr))
	assert.Equal(t, []string{"a", "b"}, resErr.Missing)
	assert.ErrorIs(t, err, ErrUnresolved)
	assert.Contains(t, err.Error(), "unresolved placeholders: a, b")
}

func TestResolve_MalformedTemplate(t *testing.T) {
	testCases := map[string]string{
		"unterminated": "<robot>${ros2_control_hardware_type</robot>",
		"attribute":    "${hw.type}",
		"function":     "${upper(x)}",
	}
	for name, content := range testCases {
		t.Run(name, func(t *testing.T) {
			path := writeTemplate(t, "bad.srdf", content)
			_, err := Resolve(context.Background(), Semantic, path, map[string]string{"x": "1", "hw": "2", "ros2_control_hardware_type": "real"})
			var resErr *ResolutionError
			require.True(t, errors.As(err, &resErr), "got %v", err)
			assert.Empty(t, resErr.Missing)
		})
	}
}

func TestResolve_OnlyPlaceholders(t *testing.T) {
	testCases := map[string]string{
		"arithmetic":    "<rate>${1+1}</rate>",
		"conditional":   `${x == "1" ? "a" : "b"}`,
		"if directive":  `%{if x == "1"}a%{endif}`,
		"for directive": `%{for c in x}${c}%{endfor}`,
		"strip markers": "<plugin>\n  ${~x~}\n</plugin>",
		"quoted string": `${"lit"}`,
	}
	for name, content := range testCases {
		t.Run(name, func(t *testing.T) {
			path := writeTemplate(t, "bad.urdf.xacro", content)
			_, err := Resolve(context.Background(), Kinematic, path, map[string]string{"x": "1"})
			var resErr *ResolutionError
			require.ErrorAs(t, err, &resErr)
			assert.Contains(t, err.Error(), "not supported")
		})
	}

	t.Run("escapes stay literal", func(t *testing.T) {
		path := writeTemplate(t, "ok.urdf.xacro", "$${x} %%{y} ${x}")
		a, err := Resolve(context.Background(), Kinematic, path, map[string]string{"x": "1"})
		require.NoError(t, err)
		assert.Equal(t, "${x} %{y} 1", a.String())
	})
}

func TestResolve_MissingFile(t *testing.T) {
	_, err := Resolve(context.Background(), Semantic, filepath.Join(t.TempDir(), "nope.srdf"), nil)
	var resErr *ResolutionError
	require.True(t, errors.As(err, &resErr))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestResolveAll(t *testing.T) {
	src := Sources{
		Kinematic: writeTemplate(t, "arm.urdf.xacro", urdfTemplate),
		Semantic:  writeTemplate(t, "arm.srdf", `<robot name="zeroerr_arm"><group name="arm"/></robot>`),
	}

	set, err := ResolveAll(context.Background(), src, map[string]string{"ros2_control_hardware_type": "real"})
	require.NoError(t, err)
	assert.Equal(t, Kinematic, set.Kinematic.Kind())
	assert.Equal(t, Semantic, set.Semantic.Kind())
	assert.Contains(t, set.Kinematic.String(), "<plugin>real</plugin>")

	_, err = ResolveAll(context.Background(), src, nil)
	var resErr *ResolutionError
	assert.True(t, errors.As(err, &resErr))
}
