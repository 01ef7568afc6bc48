// Package manifest loads tool and layer declarations from a YAML file and
// registers them with a scheduler. Entries without an explicit weight get
// one from a pluggable estimator, so manifests can carry raw definition text
// instead of hand-counted weights.
package manifest

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/andywolf/ctxbudget/internal/budget"
)

// Tool declares one weighted tool.
type Tool struct {
	ID string `yaml:"id"`

	// Weight is the explicit budget cost. When zero, the estimator derives
	// it from Definition.
	Weight int `yaml:"weight,omitempty"`

	// Definition is the raw tool description fed to the estimator.
	Definition string `yaml:"definition,omitempty"`

	Priority int            `yaml:"priority,omitempty"`
	Required bool           `yaml:"required,omitempty"`
	Metadata map[string]any `yaml:"metadata,omitempty"`
}

// Manifest is the root document: a set of tools to track immediately plus
// layer definitions available for later activation.
type Manifest struct {
	Tools  []Tool         `yaml:"tools,omitempty"`
	Layers []budget.Layer `yaml:"layers,omitempty"`
}

// Estimator derives a weight from a raw definition string.
type Estimator func(definition string) int

// DefaultEstimator approximates token cost as one unit per four characters,
// with a floor of one for non-empty definitions.
func DefaultEstimator(definition string) int {
	if definition == "" {
		return 0
	}
	w := len(definition) / 4
	if w < 1 {
		w = 1
	}
	return w
}

// Parse parses manifest YAML.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

// Load reads and parses a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(data)
}

// Validate checks structural consistency: non-empty unique ids, non-negative
// weights, and layer references that stay inside the manifest or are
// explicitly tolerated by the scheduler's lazy resolution.
func (m *Manifest) Validate() error {
	seen := make(map[string]bool)

	for _, tool := range m.Tools {
		if tool.ID == "" {
			return fmt.Errorf("tool with empty id")
		}
		if seen[tool.ID] {
			return fmt.Errorf("duplicate id: %s", tool.ID)
		}
		seen[tool.ID] = true
		if tool.Weight < 0 {
			return fmt.Errorf("tool %s: negative weight %d", tool.ID, tool.Weight)
		}
		if tool.Weight == 0 && tool.Definition == "" {
			return fmt.Errorf("tool %s: needs a weight or a definition to estimate from", tool.ID)
		}
	}

	for _, layer := range m.Layers {
		if layer.ID == "" {
			return fmt.Errorf("layer with empty id")
		}
		if seen[layer.ID] {
			return fmt.Errorf("duplicate id: %s", layer.ID)
		}
		seen[layer.ID] = true
		if layer.Weight < 0 {
			return fmt.Errorf("layer %s: negative weight %d", layer.ID, layer.Weight)
		}
		for _, dep := range layer.Dependencies {
			if dep == layer.ID {
				return fmt.Errorf("layer %s: depends on itself", layer.ID)
			}
		}
	}

	return nil
}

// ResolvedWeight returns the tool's effective weight, consulting the
// estimator when no explicit weight is declared.
func (t Tool) ResolvedWeight(estimate Estimator) int {
	if t.Weight > 0 {
		return t.Weight
	}
	return estimate(t.Definition)
}

// Apply registers every manifest entry with the scheduler: layers are
// defined, tools are added to the ledger. A nil estimator falls back to
// DefaultEstimator. Returns the ids registered, sorted.
func (m *Manifest) Apply(s *budget.Scheduler, estimate Estimator) ([]string, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if estimate == nil {
		estimate = DefaultEstimator
	}

	var applied []string
	for _, layer := range m.Layers {
		if err := s.DefineLayer(layer); err != nil {
			return applied, fmt.Errorf("layer %s: %w", layer.ID, err)
		}
		applied = append(applied, layer.ID)
	}
	for _, tool := range m.Tools {
		weight := tool.ResolvedWeight(estimate)
		if err := s.AddItem(tool.ID, budget.KindTool, weight, tool.Priority, tool.Required, tool.Metadata); err != nil {
			return applied, fmt.Errorf("tool %s: %w", tool.ID, err)
		}
		applied = append(applied, tool.ID)
	}

	sort.Strings(applied)
	return applied, nil
}
