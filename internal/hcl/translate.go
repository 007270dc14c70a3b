package hcl

import (
	"fmt"
	"slices"
	"time"

	"github.com/vk/armstack/internal/backend"
	"github.com/vk/armstack/internal/config"
	"github.com/vk/armstack/internal/readiness"
	"github.com/zclconf/go-cty/cty"
)

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func setSlice(dst *[]string, src *[]string) {
	if src != nil {
		*dst = slices.Clone(*src)
	}
}

// translate overlays every attribute the file sets onto stack.
func translate(f *stackFile, stack *config.Stack) error {
	set(&stack.Robot, f.Robot)
	set(&stack.Package, f.Package)
	set(&stack.ConfigDir, f.ConfigDir)
	set(&stack.Privileged, f.Privileged)
	setSlice(&stack.Controllers, f.Controllers)

	if t := f.Templates; t != nil {
		set(&stack.Templates.Kinematic, t.Kinematic)
		set(&stack.Templates.Semantic, t.Semantic)
	}

	for _, b := range f.Backends {
		if err := translateBackend(b, stack.Backends); err != nil {
			return err
		}
	}

	if cm := f.ControllerManager; cm != nil {
		set(&stack.ControllerManager.Name, cm.Name)
		set(&stack.ControllerManager.ConfigFile, cm.ConfigFile)
		set(&stack.ControllerManager.UpdateRate, cm.UpdateRate)
	}

	if p := f.Planning; p != nil {
		setSlice(&stack.Planning.Pipelines, p.Pipelines)
		set(&stack.Planning.ControllersFile, p.ControllersFile)
		set(&stack.Planning.KinematicsFile, p.KinematicsFile)
		set(&stack.Planning.JointLimitsFile, p.JointLimitsFile)
		set(&stack.Planning.LogLevel, p.LogLevel)
	}

	if v := f.Visualization; v != nil {
		set(&stack.Visualization.Enabled, v.Enabled)
		set(&stack.Visualization.ConfigFile, v.ConfigFile)
	}

	if t := f.StaticTransform; t != nil {
		st := &stack.StaticTransform
		set(&st.X, t.X)
		set(&st.Y, t.Y)
		set(&st.Z, t.Z)
		set(&st.Roll, t.Roll)
		set(&st.Pitch, t.Pitch)
		set(&st.Yaw, t.Yaw)
		set(&st.Parent, t.Parent)
		set(&st.Child, t.Child)
	}

	for _, p := range f.Processes {
		if _, dup := stack.Processes[p.Name]; dup {
			return fmt.Errorf("process %q is configured twice", p.Name)
		}
		settings, err := translateProcess(p)
		if err != nil {
			return fmt.Errorf("process %q: %w", p.Name, err)
		}
		stack.Processes[p.Name] = settings
	}
	return nil
}

func translateBackend(b *backendBlock, table backend.Table) error {
	mode, err := backend.ParseMode(b.Mode)
	if err != nil {
		return err
	}
	p := table[mode]
	p.Mode = mode
	set(&p.HardwareType, b.HardwareType)
	set(&p.Interface.Package, b.Package)
	set(&p.Interface.Name, b.Executable)
	setSlice(&p.Augmentation.Prefix, b.Prefix)
	setSlice(&p.Augmentation.Args, b.Args)
	table[mode] = p
	return nil
}

func translateProcess(p *processBlock) (config.ProcessSettings, error) {
	var s config.ProcessSettings
	set(&s.Output, p.Output)
	s.Critical = p.Critical

	if p.Params != nil {
		v, diags := p.Params.Value(nil)
		if diags.HasErrors() {
			return s, diags
		}
		if !v.IsNull() {
			ty := v.Type()
			if !ty.IsObjectType() && !ty.IsMapType() {
				return s, fmt.Errorf("params must be an object, got %s", ty.FriendlyName())
			}
			s.Params = make(map[string]cty.Value)
			for k, e := range v.AsValueMap() {
				s.Params[k] = e
			}
		}
	}

	if r := p.Readiness; r != nil {
		spec, err := translateReadiness(r)
		if err != nil {
			return s, err
		}
		s.Readiness = spec
	}
	return s, nil
}

func translateReadiness(r *readinessBlock) (readiness.Spec, error) {
	kind, err := readiness.ParseKind(r.Kind)
	if err != nil {
		return readiness.Spec{}, err
	}
	spec := readiness.Spec{Kind: kind}
	set(&spec.Address, r.Address)
	set(&spec.Path, r.Path)
	if spec.Delay, err = parseDuration("delay", r.Delay); err != nil {
		return spec, err
	}
	if spec.Timeout, err = parseDuration("timeout", r.Timeout); err != nil {
		return spec, err
	}
	return spec, spec.Validate()
}

func parseDuration(field string, s *string) (time.Duration, error) {
	if s == nil {
		return 0, nil
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return 0, fmt.Errorf("readiness %s: %w", field, err)
	}
	return d, nil
}
