// Package harness runs data-driven dispatch scenarios: a YAML description
// of setups and calls is played through a real registry, log, and
// dispatcher, and the resulting trace is checked against expectations or a
// golden file.
//
// Scenario argument patterns are plain data (literal values and the "*"
// wildcard), deliberately not a predicate language: real match predicates
// come compiled from the interception layer, which this engine does not
// own.
package harness

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/understudy/internal/core"
)

// Wildcard is the argument pattern matching any value.
const Wildcard = "*"

// Scenario describes one dispatch test case.
type Scenario struct {
	// Name uniquely identifies this scenario; it also names the golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description,omitempty"`

	// Setups are registered in order, so a setup's list index equals its
	// registry identifier.
	Setups []SetupSpec `yaml:"setups"`

	// Calls are dispatched in order after registration.
	Calls []CallStep `yaml:"calls"`

	// Verify lists post-hoc verification checks evaluated against a
	// context captured after all calls.
	Verify []VerifyStep `yaml:"verify,omitempty"`
}

// SetupSpec describes one registered setup.
type SetupSpec struct {
	// Method is the call-site signature as "Type.Name"; the arity comes
	// from len(Args).
	Method string `yaml:"method"`

	// Args are the argument patterns: literal values, or "*" for any.
	Args []any `yaml:"args"`

	// Guarded marks the setup as carrying an extra condition, which
	// excludes it from override shadowing.
	Guarded bool `yaml:"guarded,omitempty"`

	// Returns marks a return-style setup (the kind that can own a nested
	// mock and participate in recursive verification).
	Returns bool `yaml:"returns,omitempty"`
}

// CallStep describes one observed call and its expected resolution.
type CallStep struct {
	Method string        `yaml:"method"`
	Args   []any         `yaml:"args"`
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected dispatch outcome for a call.
type ExpectClause struct {
	// Setup is the expected governing setup's index into Setups.
	Setup *int `yaml:"setup,omitempty"`

	// Unmatched expects no registered setup to govern the call.
	Unmatched bool `yaml:"unmatched,omitempty"`
}

// VerifyStep specifies an expected verification answer for a setup.
type VerifyStep struct {
	// Setup is the index into Setups.
	Setup int `yaml:"setup"`

	// Satisfied is the expected "was this setup matched" answer.
	Satisfied bool `yaml:"satisfied"`
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load scenario: %w", err)
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("load scenario %s: %w", path, err)
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("load scenario %s: %w", path, err)
	}
	return &sc, nil
}

// Validate checks structural invariants before a run.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario has no name")
	}
	for i, sp := range s.Setups {
		if _, _, err := splitMethod(sp.Method); err != nil {
			return fmt.Errorf("setup %d: %w", i, err)
		}
	}
	for i, c := range s.Calls {
		if _, _, err := splitMethod(c.Method); err != nil {
			return fmt.Errorf("call %d: %w", i, err)
		}
		if c.Expect != nil && c.Expect.Setup != nil {
			if *c.Expect.Setup < 0 || *c.Expect.Setup >= len(s.Setups) {
				return fmt.Errorf("call %d: expect.setup %d out of range", i, *c.Expect.Setup)
			}
		}
	}
	for i, v := range s.Verify {
		if v.Setup < 0 || v.Setup >= len(s.Setups) {
			return fmt.Errorf("verify %d: setup %d out of range", i, v.Setup)
		}
	}
	return nil
}

// splitMethod parses "Type.Name" into its components.
func splitMethod(s string) (string, string, error) {
	typeName, name, ok := strings.Cut(s, ".")
	if !ok || typeName == "" || name == "" {
		return "", "", fmt.Errorf("method %q is not of the form Type.Name", s)
	}
	return typeName, name, nil
}

// methodOf builds the core signature for a method string and arity.
func methodOf(s string, arity int) (core.Method, error) {
	typeName, name, err := splitMethod(s)
	if err != nil {
		return core.Method{}, err
	}
	return core.NewMethod(typeName, name, arity), nil
}
