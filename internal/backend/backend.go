package backend

import (
	"fmt"
	"slices"
	"strings"
)

// HardwareTypeKey is the description placeholder the backend fills in.
const HardwareTypeKey = "ros2_control_hardware_type"

// Mode is the enumerated hardware backend switch.
type Mode string

const (
	// Simulated runs the mock hardware component.
	Simulated Mode = "simulated"
	// Physical runs the EtherCAT fieldbus driver against real joints.
	Physical Mode = "physical"
)

// Modes lists every accepted mode in display order.
var Modes = []Mode{Simulated, Physical}

// ParseMode converts a user-supplied string into a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Modes, m) {
		return m, nil
	}
	return "", fmt.Errorf("invalid backend mode %q: must be 'simulated' or 'physical'", s)
}

// Executable identifies a process binary by package and executable name.
type Executable struct {
	Package string
	Name    string
}

func (e Executable) String() string {
	if e.Package == "" {
		return e.Name
	}
	return e.Package + "/" + e.Name
}

// Augmentation is extra invocation material a backend applies to the
// hardware-interface process. Prefix is prepended to the command line
// (for example "sudo -E"); Args are appended to its arguments.
type Augmentation struct {
	Prefix []string
	Args   []string
}

// IsZero reports whether the augmentation changes nothing.
func (a Augmentation) IsZero() bool {
	return len(a.Prefix) == 0 && len(a.Args) == 0
}

// Profile is everything the rest of the graph needs to know about a backend.
type Profile struct {
	Mode         Mode
	HardwareType string
	Interface    Executable
	Augmentation Augmentation
}

// Substitutions returns the description substitutions this backend injects.
func (p Profile) Substitutions() map[string]string {
	return map[string]string{HardwareTypeKey: p.HardwareType}
}

// Table maps each mode to its profile.
type Table map[Mode]Profile

// DefaultTable returns the built-in profiles for the zeroerr arm.
func DefaultTable() Table {
	return Table{
		Simulated: {
			Mode:         Simulated,
			HardwareType: "mock_components",
			Interface:    Executable{Package: "arm_hardware", Name: "mock_arm_interface"},
		},
		Physical: {
			Mode:         Physical,
			HardwareType: "real",
			Interface:    Executable{Package: "arm_ethercat_interface", Name: "arm_ethercat_interface"},
		},
	}
}

// PrivilegePrefix is the elevated-privilege invocation the EtherCAT master needs
// when the interface is not installed with raw-socket capabilities.
var PrivilegePrefix = []string{"sudo", "-E"}

// Select returns the default profile for mode.
func Select(mode Mode) (Profile, error) {
	return SelectFrom(DefaultTable(), mode)
}

// SelectFrom returns a copy of the profile for mode from t. Argument
// augmentation is only honoured for the physical backend.
func SelectFrom(t Table, mode Mode) (Profile, error) {
	p, ok := t[mode]
	if !ok {
		return Profile{}, fmt.Errorf("no backend profile for mode %q", mode)
	}
	if p.HardwareType == "" {
		return Profile{}, fmt.Errorf("backend profile %q has no hardware type", mode)
	}
	if p.Interface.Name == "" {
		return Profile{}, fmt.Errorf("backend profile %q has no interface executable", mode)
	}
	p.Mode = mode
	if mode != Physical {
		p.Augmentation = Augmentation{}
	}
	p.Augmentation = Augmentation{
		Prefix: slices.Clone(p.Augmentation.Prefix),
		Args:   slices.Clone(p.Augmentation.Args),
	}
	return p, nil
}
