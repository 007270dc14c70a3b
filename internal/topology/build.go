package topology

import (
	"context"

	"github.com/vk/armstack/internal/backend"
	"github.com/vk/armstack/internal/config"
	"github.com/vk/armstack/internal/ctxlog"
	"github.com/vk/armstack/internal/dag"
	"github.com/vk/armstack/internal/params"
)

// Build declares the manipulator topology for profile and validates it into
// a process graph. store must come from Parameters for the same stack.
func Build(ctx context.Context, store *params.Store, profile backend.Profile, stack *config.Stack) (*dag.Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Declaring process topology.", "backend", profile.Mode, "interface", profile.Interface.String())

	cm := stack.ControllerManager
	specs := []dag.ProcessSpec{
		{
			Name:       StaticTransformPublisher,
			Node:       StaticTransformPublisher,
			Executable: backend.Executable{Package: "tf2_ros", Name: "static_transform_publisher"},
			Args:       stack.StaticTransform.Args(),
			Output:     dag.OutputLog,
			Critical:   true,
		},
		{
			Name:       RobotStatePublisher,
			Node:       RobotStatePublisher,
			Executable: backend.Executable{Package: "robot_state_publisher", Name: "robot_state_publisher"},
			Output:     dag.OutputForward,
			Critical:   true,
		},
		{
			// The manager reads the description from the state publisher's
			// topic, so it starts after it.
			Name:       ControllerManager,
			Node:       cm.Name,
			Executable: backend.Executable{Package: "controller_manager", Name: "ros2_control_node"},
			ParamFiles: nonEmpty(stack.Path(cm.ConfigFile)),
			DependsOn:  []string{RobotStatePublisher},
			Output:     dag.OutputForward,
			Critical:   true,
		},
		{
			// No edge to the manager: the two attach to each other on their own.
			Name:       HardwareInterface,
			Executable: profile.Interface,
			Prefix:     profile.Augmentation.Prefix,
			Args:       profile.Augmentation.Args,
			Output:     dag.OutputForward,
			Critical:   true,
		},
	}

	for _, c := range stack.Controllers {
		specs = append(specs, dag.ProcessSpec{
			Name:       SpawnerName(c),
			Executable: backend.Executable{Package: "controller_manager", Name: "spawner"},
			Args:       []string{c, "--controller-manager", "/" + cm.Name},
			DependsOn:  []string{ControllerManager, StaticTransformPublisher},
			Output:     dag.OutputLog,
		})
	}

	specs = append(specs, dag.ProcessSpec{
		Name:       MoveGroup,
		Node:       MoveGroup,
		Executable: backend.Executable{Package: "moveit_ros_move_group", Name: "move_group"},
		Args:       []string{"--ros-args", "--log-level", stack.Planning.LogLevel},
		Output:     dag.OutputForward,
		Critical:   true,
	})

	if stack.Visualization.Enabled {
		specs = append(specs, dag.ProcessSpec{
			Name:       RViz,
			Node:       RViz,
			Executable: backend.Executable{Package: "rviz2", Name: "rviz2"},
			Args:       []string{"-d", stack.Path(stack.Visualization.ConfigFile)},
			DependsOn:  []string{MoveGroup},
			Output:     dag.OutputLog,
		})
	}

	declared := make(map[string]bool, len(specs))
	for i := range specs {
		declared[specs[i].Name] = true
		if err := attach(&specs[i], store, stack.Settings(specs[i].Name)); err != nil {
			return nil, err
		}
	}
	for name := range stack.Processes {
		if !declared[name] {
			logger.Warn("Stack file configures a process that is not launched.", "process", name)
		}
	}

	g, err := dag.New(ctx, specs)
	if err != nil {
		return nil, err
	}
	logger.Debug("Process topology built.", "processes", g.Len(), "waves", len(g.Waves()))
	return g, nil
}

// attach gives spec its parameter set and applies stack file settings.
func attach(spec *dag.ProcessSpec, store *params.Store, settings config.ProcessSettings) error {
	set, err := store.Lookup(spec.Name)
	if err != nil {
		return err
	}
	if set.Len() > 0 {
		spec.Params = set
		if spec.Node == "" {
			spec.Node = spec.Name
		}
	}

	if settings.Output != "" {
		out, err := dag.ParseOutputPolicy(settings.Output)
		if err != nil {
			return &dag.GraphError{Kind: dag.ErrInvalidSpec, Process: spec.Name, Msg: err.Error()}
		}
		spec.Output = out
	}
	if !settings.Readiness.IsZero() {
		spec.Readiness = settings.Readiness
	}
	if settings.Critical != nil {
		spec.Critical = *settings.Critical
	}
	return nil
}

func nonEmpty(paths ...string) []string {
	var out []string
	for _, p := range paths {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
