package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario: a complete capability
// program plus the expected resolution outcome.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Capabilities declares the kinds to register, in order.
	Capabilities []CapabilityDecl `yaml:"capabilities"`

	// Projections declares the legal payload projections.
	Projections []ProjectionDecl `yaml:"projections,omitempty"`

	// Functions declares the call graph.
	Functions []FunctionDecl `yaml:"functions"`

	// Supply populates the root store at the process boundary.
	Supply []SupplyDecl `yaml:"supply,omitempty"`

	// Entry is the function resolution starts from.
	Entry string `yaml:"entry"`

	// Expect states the required outcome.
	Expect ExpectClause `yaml:"expect"`
}

// CapabilityDecl declares one capability kind.
type CapabilityDecl struct {
	Name       string `yaml:"name"`
	Payload    string `yaml:"payload"`
	Visibility string `yaml:"visibility,omitempty"`
	Slot       *int   `yaml:"slot,omitempty"`
	Default    any    `yaml:"default,omitempty"`
}

// ProjectionDecl declares one directional payload projection.
type ProjectionDecl struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// RequireDecl is one entry of a function's requirement list.
type RequireDecl struct {
	Cap     string `yaml:"cap"`
	Mode    string `yaml:"mode,omitempty"`
	Payload string `yaml:"payload,omitempty"`
}

// FunctionDecl declares one function's capability surface.
type FunctionDecl struct {
	Name     string        `yaml:"name"`
	Requires []RequireDecl `yaml:"requires,omitempty"`
	Calls    []string      `yaml:"calls,omitempty"`
}

// SupplyDecl is one root-store binding.
type SupplyDecl struct {
	Cap   string `yaml:"cap"`
	Mode  string `yaml:"mode,omitempty"`
	Value any    `yaml:"value,omitempty"`
}

// Expected outcome names.
const (
	OutcomeResolve = "resolve"
	OutcomeFail    = "fail"
)

// ExpectClause states the required resolution outcome. On failure, Code
// names the construction error code the resolution must carry.
type ExpectClause struct {
	Outcome string `yaml:"outcome"`
	Code    string `yaml:"code,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos in scenario files fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Capabilities) == 0 {
		return fmt.Errorf("capabilities list is required and must be non-empty")
	}
	if len(s.Functions) == 0 {
		return fmt.Errorf("functions list is required and must be non-empty")
	}
	if s.Entry == "" {
		return fmt.Errorf("entry is required")
	}
	switch s.Expect.Outcome {
	case OutcomeResolve:
		if s.Expect.Code != "" {
			return fmt.Errorf("expect.code is only valid with outcome %q", OutcomeFail)
		}
	case OutcomeFail:
		if s.Expect.Code == "" {
			return fmt.Errorf("expect.code is required with outcome %q", OutcomeFail)
		}
	default:
		return fmt.Errorf("expect.outcome must be %q or %q", OutcomeResolve, OutcomeFail)
	}
	return nil
}
