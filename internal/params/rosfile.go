package params

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// MarshalROS encodes the set as a ROS 2 parameter file for node.
func (s *Set) MarshalROS(node string) ([]byte, error) {
	values, err := s.GoValue()
	if err != nil {
		return nil, err
	}
	doc := map[string]any{
		node: map[string]any{rosParametersKey: values},
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, &ConfigError{Process: s.process, Err: fmt.Errorf("encode parameters: %w", err)}
	}
	return out, nil
}

// WriteROSFile writes the set for node into dir and returns the file path.
func (s *Set) WriteROSFile(dir, node string) (string, error) {
	data, err := s.MarshalROS(node)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create params dir: %w", err)
	}
	path := filepath.Join(dir, s.process+".params.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write params file: %w", err)
	}
	return path, nil
}
