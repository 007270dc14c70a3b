// Package topology declares the fixed process graph of the manipulator
// stack: the reference-frame publisher, the kinematic-state publisher, the
// control-loop manager, the hardware interface chosen by the backend, one
// activator per controller, the motion planner and the optional
// visualization client.
package topology

// Process names in the graph.
const (
	StaticTransformPublisher = "static_transform_publisher"
	RobotStatePublisher      = "robot_state_publisher"
	ControllerManager        = "controller_manager"
	HardwareInterface        = "hardware_interface"
	MoveGroup                = "move_group"
	RViz                     = "rviz2"
)

// SpawnerName is the process name of the activator for controller.
func SpawnerName(controller string) string {
	return "spawner_" + controller
}
