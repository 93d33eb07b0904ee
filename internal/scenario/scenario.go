// Package scenario scripts command timelines that a session applies at given seconds.
package scenario

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario is a named, ordered list of timed commands.
type Scenario struct {
	Name        string `yaml:"name,omitempty"`
	Description string `yaml:"description,omitempty"`
	Preset      string `yaml:"preset,omitempty"`
	Steps       []Step `yaml:"steps"`
}

// Step issues one command before the tick that reaches second At.
type Step struct {
	At     int    `yaml:"at"`
	Action string `yaml:"action"`
	Args   Args   `yaml:"args,omitempty"`
	Note   string `yaml:"note,omitempty"`
}

// Args accepts any YAML scalars, so "args: [1, 4]" and "args: [UI]" both decode.
type Args []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (a *Args) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		*a = strings.Fields(n.Value)
		return nil
	}
	if n.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: args must be a list", n.Line)
	}
	out := make(Args, 0, len(n.Content))
	for _, c := range n.Content {
		if c.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: args must be scalars", c.Line)
		}
		out = append(out, c.Value)
	}
	*a = out
	return nil
}

// Line renders the step as a command line, e.g. "link 1 4".
func (st Step) Line() string {
	return strings.TrimSpace(st.Action + " " + strings.Join(st.Args, " "))
}

// Load reads a YAML scenario definition from disk.
func Load(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return Parse(b)
}

// Parse decodes and validates a YAML scenario. Steps are ordered by second,
// keeping file order within a second.
func Parse(b []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	sort.SliceStable(s.Steps, func(i, j int) bool { return s.Steps[i].At < s.Steps[j].At })
	return &s, nil
}

// Validate checks every step has a positive second and an action.
func (s *Scenario) Validate() error {
	for i, st := range s.Steps {
		if st.At < 1 {
			return fmt.Errorf("scenario %q step %d: at must be >= 1", s.Name, i+1)
		}
		if strings.TrimSpace(st.Action) == "" {
			return fmt.Errorf("scenario %q step %d: missing action", s.Name, i+1)
		}
	}
	return nil
}

// Due returns the steps scheduled for second sec.
func (s *Scenario) Due(sec int) []Step {
	var out []Step
	for _, st := range s.Steps {
		if st.At == sec {
			out = append(out, st)
		}
	}
	return out
}

// Last returns the second of the final step, or 0 when there are none.
func (s *Scenario) Last() int {
	last := 0
	for _, st := range s.Steps {
		if st.At > last {
			last = st.At
		}
	}
	return last
}

// Resolve returns the built-in scenario called name, or loads name as a file path.
func Resolve(name string) (*Scenario, error) {
	if sc, ok := BuiltIn()[name]; ok {
		return &sc, nil
	}
	if _, err := os.Stat(name); err != nil {
		return nil, fmt.Errorf("scenario %q: not a built-in (%s) and not a readable file", name, strings.Join(Names(), ", "))
	}
	return Load(name)
}

// Names lists the built-in scenarios alphabetically.
func Names() []string {
	var names []string
	for n := range BuiltIn() {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
