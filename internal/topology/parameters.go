package topology

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/vk/armstack/internal/config"
	"github.com/vk/armstack/internal/ctxlog"
	"github.com/vk/armstack/internal/description"
	"github.com/vk/armstack/internal/params"
	"github.com/zclconf/go-cty/cty"
)

// Parameter names shared with the ROS nodes.
const (
	RobotDescription         = "robot_description"
	RobotDescriptionSemantic = "robot_description_semantic"
	UpdateRate               = "update_rate"
	PlanningPipelines        = "planning_pipelines"
)

// files loads every static configuration file at most once per launch.
type files struct {
	ctx    context.Context
	stack  *config.Stack
	loaded map[string]*params.File
}

// get returns the parsed file, or nil if it does not exist and is optional.
func (f *files) get(name string, required bool) (*params.File, error) {
	path := f.stack.Path(name)
	if path == "" {
		return nil, nil
	}
	if file, ok := f.loaded[path]; ok {
		return file, nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && !required {
		ctxlog.FromContext(f.ctx).Debug("Optional configuration file not found, skipping.", "path", path)
		f.loaded[path] = nil
		return nil, nil
	}
	file, err := params.LoadFile(f.ctx, path)
	if err != nil {
		return nil, err
	}
	f.loaded[path] = file
	return file, nil
}

// under loads an optional file and nests its whole content below key, the
// way MoveIt expects kinematics and joint limits.
func (f *files) under(key, name, node string) ([]params.Layer, error) {
	file, err := f.get(name, false)
	if err != nil || file == nil {
		return nil, err
	}
	l := file.Layer(node)
	return []params.Layer{{Name: l.Name, Values: map[string]cty.Value{key: objectOf(l.Values)}}}, nil
}

// flat loads an optional file as a top-level layer.
func (f *files) flat(name, node string) ([]params.Layer, error) {
	file, err := f.get(name, false)
	if err != nil || file == nil {
		return nil, err
	}
	return []params.Layer{file.Layer(node)}, nil
}

func objectOf(values map[string]cty.Value) cty.Value {
	if len(values) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(values)
}

// recipe lists the layers of one process from lowest to highest precedence.
type recipe struct {
	process  string
	required []string
	defaults map[string]cty.Value
	static   func(*files) ([]params.Layer, error)
	// artifacts picks which resolved descriptions the process receives.
	kinematic, semantic bool
}

func (r recipe) layers(f *files, stack *config.Stack, artifacts *description.Set, overrides []params.Override) ([]params.Layer, error) {
	layers := []params.Layer{{Name: "defaults", Values: r.defaults}}

	if r.static != nil {
		static, err := r.static(f)
		if err != nil {
			return nil, err
		}
		layers = append(layers, static...)
	}
	if p := stack.Settings(r.process).Params; len(p) > 0 {
		layers = append(layers, params.Layer{Name: "stack", Values: p})
	}

	described := make(map[string]cty.Value)
	if r.kinematic {
		described[RobotDescription] = cty.StringVal(artifacts.Kinematic.String())
	}
	if r.semantic {
		described[RobotDescriptionSemantic] = cty.StringVal(artifacts.Semantic.String())
	}
	layers = append(layers, params.Layer{Name: "description", Values: described})

	return append(layers, params.OverrideLayer(r.process, overrides)), nil
}

func recipes(stack *config.Stack) []recipe {
	cm := stack.ControllerManager
	planning := stack.Planning

	planningStatic := func(node string) func(*files) ([]params.Layer, error) {
		return func(f *files) ([]params.Layer, error) {
			var out []params.Layer
			for _, p := range planning.Pipelines {
				l, err := f.under(p, p+"_planning.yaml", node)
				if err != nil {
					return nil, err
				}
				out = append(out, l...)
			}
			kin, err := f.under("robot_description_kinematics", planning.KinematicsFile, node)
			if err != nil {
				return nil, err
			}
			limits, err := f.under("robot_description_planning", planning.JointLimitsFile, node)
			if err != nil {
				return nil, err
			}
			return append(append(out, kin...), limits...), nil
		}
	}

	pipelineDefaults := map[string]cty.Value{
		PlanningPipelines: params.Strings(planning.Pipelines...),
	}
	if len(planning.Pipelines) > 0 {
		pipelineDefaults["default_planning_pipeline"] = cty.StringVal(planning.Pipelines[0])
	}

	moveGroupDefaults := map[string]cty.Value{
		"publish_robot_description":          cty.True,
		"publish_robot_description_semantic": cty.True,
	}
	for k, v := range pipelineDefaults {
		moveGroupDefaults[k] = v
	}

	rs := []recipe{
		{process: StaticTransformPublisher},
		{
			process:   RobotStatePublisher,
			required:  []string{RobotDescription},
			kinematic: true,
		},
		{
			process:  ControllerManager,
			required: []string{RobotDescription, UpdateRate},
			defaults: map[string]cty.Value{UpdateRate: cty.NumberIntVal(int64(cm.UpdateRate))},
			static: func(f *files) ([]params.Layer, error) {
				file, err := f.get(cm.ConfigFile, true)
				if err != nil || file == nil {
					return nil, err
				}
				return []params.Layer{file.Layer(cm.Name)}, nil
			},
			kinematic: true,
		},
		{process: HardwareInterface},
	}
	for _, c := range stack.Controllers {
		rs = append(rs, recipe{process: SpawnerName(c)})
	}
	rs = append(rs, recipe{
		process:  MoveGroup,
		required: []string{RobotDescription, RobotDescriptionSemantic, PlanningPipelines},
		defaults: moveGroupDefaults,
		static: func(f *files) ([]params.Layer, error) {
			out, err := planningStatic(MoveGroup)(f)
			if err != nil {
				return nil, err
			}
			ctrl, err := f.flat(planning.ControllersFile, MoveGroup)
			if err != nil {
				return nil, err
			}
			return append(out, ctrl...), nil
		},
		kinematic: true,
		semantic:  true,
	})
	if stack.Visualization.Enabled {
		rs = append(rs, recipe{
			process:   RViz,
			required:  []string{RobotDescription, RobotDescriptionSemantic},
			defaults:  pipelineDefaults,
			static:    planningStatic(RViz),
			kinematic: true,
			semantic:  true,
		})
	}
	return rs
}

// Parameters builds the parameter set of every process in the topology.
// Layers are, from lowest precedence: built-in defaults, static files, stack
// file params, resolved descriptions, launch-argument overrides.
func Parameters(ctx context.Context, stack *config.Stack, artifacts *description.Set, overrides []params.Override) (*params.Store, error) {
	logger := ctxlog.FromContext(ctx)
	if artifacts == nil || artifacts.Kinematic == nil || artifacts.Semantic == nil {
		return nil, &params.ConfigError{Err: errors.New("both description artifacts are required")}
	}

	rs := recipes(stack)
	known := make(map[string]bool, len(rs))
	for _, r := range rs {
		known[r.process] = true
	}
	for _, o := range overrides {
		if !known[o.Process] {
			return nil, &params.ConfigError{Process: o.Process, Err: fmt.Errorf("override %s.%s targets an unknown process", o.Process, o.Key)}
		}
	}

	f := &files{ctx: ctx, stack: stack, loaded: make(map[string]*params.File)}
	store := params.NewStore()
	for _, r := range rs {
		layers, err := r.layers(f, stack, artifacts, overrides)
		if err != nil {
			return nil, err
		}
		set, err := store.Build(r.process, r.required, layers...)
		if err != nil {
			return nil, err
		}
		logger.Debug("Parameter set built.", "process", r.process, "keys", set.Len())
	}
	return store, nil
}
