package hcl

import "github.com/hashicorp/hcl/v2"

// Pointer fields stay nil when the stack file omits them, which lets the
// translator tell "unset" from a zero value.

// stackFile is the top-level structure of a stack file.
type stackFile struct {
	Robot       *string   `hcl:"robot,optional"`
	Package     *string   `hcl:"package,optional"`
	ConfigDir   *string   `hcl:"config_dir,optional"`
	Privileged  *bool     `hcl:"privileged,optional"`
	Controllers *[]string `hcl:"controllers,optional"`

	Templates         *templatesBlock         `hcl:"templates,block"`
	Backends          []*backendBlock         `hcl:"backend,block"`
	ControllerManager *controllerManagerBlock `hcl:"controller_manager,block"`
	Planning          *planningBlock          `hcl:"planning,block"`
	Visualization     *visualizationBlock     `hcl:"visualization,block"`
	StaticTransform   *transformBlock         `hcl:"static_transform,block"`
	Processes         []*processBlock         `hcl:"process,block"`
}

type templatesBlock struct {
	Kinematic *string `hcl:"kinematic,optional"`
	Semantic  *string `hcl:"semantic,optional"`
}

// backendBlock overrides one backend profile.
type backendBlock struct {
	Mode         string    `hcl:"mode,label"`
	HardwareType *string   `hcl:"hardware_type,optional"`
	Package      *string   `hcl:"package,optional"`
	Executable   *string   `hcl:"executable,optional"`
	Prefix       *[]string `hcl:"prefix,optional"`
	Args         *[]string `hcl:"args,optional"`
}

type controllerManagerBlock struct {
	Name       *string `hcl:"name,optional"`
	ConfigFile *string `hcl:"config_file,optional"`
	UpdateRate *int    `hcl:"update_rate,optional"`
}

type planningBlock struct {
	Pipelines       *[]string `hcl:"pipelines,optional"`
	ControllersFile *string   `hcl:"controllers_file,optional"`
	KinematicsFile  *string   `hcl:"kinematics_file,optional"`
	JointLimitsFile *string   `hcl:"joint_limits_file,optional"`
	LogLevel        *string   `hcl:"log_level,optional"`
}

type visualizationBlock struct {
	Enabled    *bool   `hcl:"enabled,optional"`
	ConfigFile *string `hcl:"config_file,optional"`
}

type transformBlock struct {
	X      *float64 `hcl:"x,optional"`
	Y      *float64 `hcl:"y,optional"`
	Z      *float64 `hcl:"z,optional"`
	Roll   *float64 `hcl:"roll,optional"`
	Pitch  *float64 `hcl:"pitch,optional"`
	Yaw    *float64 `hcl:"yaw,optional"`
	Parent *string  `hcl:"parent,optional"`
	Child  *string  `hcl:"child,optional"`
}

// processBlock carries per-process launch settings.
type processBlock struct {
	Name      string          `hcl:"name,label"`
	Output    *string         `hcl:"output,optional"`
	Critical  *bool           `hcl:"critical,optional"`
	Params    hcl.Expression  `hcl:"params,optional"`
	Readiness *readinessBlock `hcl:"readiness,block"`
}

type readinessBlock struct {
	Kind    string  `hcl:"kind"`
	Address *string `hcl:"address,optional"`
	Path    *string `hcl:"path,optional"`
	Delay   *string `hcl:"delay,optional"`
	Timeout *string `hcl:"timeout,optional"`
}
