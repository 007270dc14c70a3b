package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/vk/armstack/internal/backend"
	"github.com/vk/armstack/internal/readiness"
	"github.com/zclconf/go-cty/cty"
)

// Stack is the unified description of one bring-up.
type Stack struct {
	Robot string
	// Package is the ROS package whose share directory holds ConfigDir.
	Package string
	// ConfigDir holds templates and static configuration files. Relative
	// file names elsewhere in the stack are resolved against it.
	ConfigDir string

	Templates         Templates
	Backends          backend.Table
	Privileged        bool
	ControllerManager ControllerManager
	Controllers       []string
	Planning          Planning
	Visualization     Visualization
	StaticTransform   Transform

	// Processes holds per-process launch settings keyed by process name.
	Processes map[string]ProcessSettings
}

// Templates names the two description documents.
type Templates struct {
	Kinematic string
	Semantic  string
}

// ControllerManager configures the real-time control loop process.
type ControllerManager struct {
	Name       string
	ConfigFile string
	UpdateRate int
}

// Planning configures the motion-planning service.
type Planning struct {
	Pipelines       []string
	ControllersFile string
	KinematicsFile  string
	JointLimitsFile string
	LogLevel        string
}

// Visualization configures the optional visualization client.
type Visualization struct {
	Enabled    bool
	ConfigFile string
}

// Transform is the static pose published between two frames.
type Transform struct {
	X, Y, Z          float64
	Roll, Pitch, Yaw float64
	Parent, Child    string
}

// Args renders the transform as static_transform_publisher arguments.
func (t Transform) Args() []string {
	args := make([]string, 0, 8)
	for _, v := range []float64{t.X, t.Y, t.Z, t.Roll, t.Pitch, t.Yaw} {
		args = append(args, formatFloat(v))
	}
	return append(args, t.Parent, t.Child)
}

func formatFloat(v float64) string {
	s := fmt.Sprintf("%g", v)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// ProcessSettings are optional per-process overrides from the stack file.
type ProcessSettings struct {
	Output    string
	Readiness readiness.Spec
	Critical  *bool
	// Params join the static configuration layer of the process.
	Params map[string]cty.Value
}

// Default returns the stock stack for the zeroerr arm.
func Default() *Stack {
	return &Stack{
		Robot:     "zeroerr_arm",
		Package:   "arm_config",
		ConfigDir: "",
		Templates: Templates{
			Kinematic: "zeroerr_arm.urdf.xacro",
			Semantic:  "zeroerr_arm.srdf",
		},
		Backends: backend.DefaultTable(),
		ControllerManager: ControllerManager{
			Name:       "controller_manager",
			ConfigFile: "ros2_controllers.yaml",
			UpdateRate: 100,
		},
		Controllers: []string{"joint_state_broadcaster", "arm_group_controller"},
		Planning: Planning{
			Pipelines:       []string{"ompl", "chomp", "pilz_industrial_motion_planner", "stomp"},
			ControllersFile: "moveit_controllers.yaml",
			KinematicsFile:  "kinematics.yaml",
			JointLimitsFile: "joint_limits.yaml",
			LogLevel:        "info",
		},
		Visualization: Visualization{
			Enabled:    true,
			ConfigFile: "moveit.rviz",
		},
		StaticTransform: Transform{Parent: "world", Child: "arm_link"},
		Processes:       map[string]ProcessSettings{},
	}
}

// Validate checks the stack for values no launch can work with.
func (s *Stack) Validate() error {
	var errs []error
	if s.Templates.Kinematic == "" {
		errs = append(errs, errors.New("kinematic template is required"))
	}
	if s.Templates.Semantic == "" {
		errs = append(errs, errors.New("semantic template is required"))
	}
	if s.ControllerManager.Name == "" {
		errs = append(errs, errors.New("controller manager name is required"))
	}
	if s.ControllerManager.UpdateRate <= 0 {
		errs = append(errs, fmt.Errorf("controller manager update rate must be positive, got %d", s.ControllerManager.UpdateRate))
	}
	if s.StaticTransform.Parent == "" || s.StaticTransform.Child == "" {
		errs = append(errs, errors.New("static transform needs parent and child frames"))
	}
	seen := make(map[string]bool)
	for _, c := range s.Controllers {
		if c == "" {
			errs = append(errs, errors.New("controller name must not be empty"))
		} else if seen[c] {
			errs = append(errs, fmt.Errorf("controller %q listed twice", c))
		}
		seen[c] = true
	}
	for name, p := range s.Processes {
		if err := p.Readiness.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("process %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// ResolveConfigDir fills ConfigDir when the stack leaves it empty, looking
// for <prefix>/share/<Package>/config under every AMENT_PREFIX_PATH entry
// and falling back to ./config.
func (s *Stack) ResolveConfigDir(ament string) string {
	if s.ConfigDir != "" {
		return s.ConfigDir
	}
	for _, prefix := range filepath.SplitList(ament) {
		if prefix == "" {
			continue
		}
		dir := filepath.Join(prefix, "share", s.Package, "config")
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			s.ConfigDir = dir
			return dir
		}
	}
	s.ConfigDir = "config"
	return s.ConfigDir
}

// Path resolves name against ConfigDir unless it is already absolute.
func (s *Stack) Path(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.ConfigDir, name)
}

// Settings returns the launch settings for process, zero if none are set.
func (s *Stack) Settings(process string) ProcessSettings {
	return s.Processes[process]
}

// Profile selects the backend profile for mode. When the stack is
// privileged the physical interface is wrapped in backend.PrivilegePrefix.
func (s *Stack) Profile(mode backend.Mode) (backend.Profile, error) {
	table := make(backend.Table, len(s.Backends))
	for m, p := range s.Backends {
		table[m] = p
	}
	if s.Privileged {
		p := table[backend.Physical]
		p.Augmentation.Prefix = append(slices.Clone(backend.PrivilegePrefix), p.Augmentation.Prefix...)
		table[backend.Physical] = p
	}
	return backend.SelectFrom(table, mode)
}
