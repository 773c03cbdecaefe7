package workflow

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Definition is the on-disk form of a versioned stage template graph.
type Definition struct {
	Version      string             `yaml:"version"`
	Stages       []StageConfig      `yaml:"stages"`
	Dependencies []DependencyConfig `yaml:"dependencies"`
}

type StageConfig struct {
	Code          string `yaml:"code"`
	Name          string `yaml:"name"`
	Sequence      int    `yaml:"sequence"`
	Optional      bool   `yaml:"optional,omitempty"`
	ParallelGroup string `yaml:"parallel_group,omitempty"`
}

// DependencyConfig reads "Stage cannot start before DependsOn completes".
type DependencyConfig struct {
	Stage     string `yaml:"stage"`
	DependsOn string `yaml:"depends_on"`
}

//go:embed procurement_v1.yaml
var procurementV1 []byte

// ParseDefinition decodes a YAML workflow definition.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parsing workflow definition: %w", err)
	}
	return &def, nil
}

// LoadDefinitionFile reads and decodes a YAML workflow file.
func LoadDefinitionFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workflow file: %w", err)
	}
	return ParseDefinition(data)
}
