// Package suite loads YAML keyword suites and runs them through a keyword
// registry.
package suite

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Step is one keyword call: the keyword name followed by its arguments.
// A first item of the form "${name}=" assigns the keyword's return value.
type Step []string

// UnmarshalYAML accepts a sequence of scalars or a single scalar keyword.
func (s *Step) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*s = Step{node.Value}
		return nil
	case yaml.SequenceNode:
		items := make(Step, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: step arguments must be scalars", item.Line)
			}
			items = append(items, item.Value)
		}
		*s = items
		return nil
	}
	return fmt.Errorf("line %d: a step must be a keyword or a list", node.Line)
}

// Test is one named test case.
type Test struct {
	Name     string `yaml:"name"`
	Doc      string `yaml:"doc,omitempty"`
	Setup    []Step `yaml:"setup,omitempty"`
	Steps    []Step `yaml:"steps"`
	Teardown []Step `yaml:"teardown,omitempty"`
}

// Suite is a keyword suite file.
type Suite struct {
	Name      string            `yaml:"name"`
	Variables map[string]string `yaml:"variables,omitempty"`
	Setup     []Step            `yaml:"suite_setup,omitempty"`
	Tests     []Test            `yaml:"tests"`
	Teardown  []Step            `yaml:"suite_teardown,omitempty"`

	// Path is the file the suite was loaded from.
	Path string `yaml:"-"`
}

// Load reads and validates a suite file. A suite without a name is named
// after the file.
func Load(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite file: %w", err)
	}

	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.Path = path
	if s.Name == "" {
		base := filepath.Base(path)
		s.Name = base[:len(base)-len(filepath.Ext(base))]
	}
	return s, nil
}

// Parse decodes and validates a suite.
func Parse(data []byte) (*Suite, error) {
	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse suite: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks that every test is named and every step names a keyword.
func (s *Suite) Validate() error {
	if len(s.Tests) == 0 {
		return errors.New("suite has no tests")
	}

	seen := make(map[string]bool, len(s.Tests))
	for i, t := range s.Tests {
		if t.Name == "" {
			return fmt.Errorf("test #%d has no name", i+1)
		}
		if seen[t.Name] {
			return fmt.Errorf("duplicate test name %q", t.Name)
		}
		seen[t.Name] = true
		if len(t.Steps) == 0 {
			return fmt.Errorf("test %q has no steps", t.Name)
		}
		for _, group := range [][]Step{t.Setup, t.Steps, t.Teardown} {
			if err := validateSteps(group); err != nil {
				return fmt.Errorf("test %q: %w", t.Name, err)
			}
		}
	}

	if err := validateSteps(s.Setup); err != nil {
		return fmt.Errorf("suite_setup: %w", err)
	}
	if err := validateSteps(s.Teardown); err != nil {
		return fmt.Errorf("suite_teardown: %w", err)
	}
	return nil
}

func validateSteps(steps []Step) error {
	for i, st := range steps {
		if _, keyword, _ := st.split(); keyword == "" {
			return fmt.Errorf("step %d has no keyword", i+1)
		}
	}
	return nil
}

// split separates an optional assignment target from the keyword and its
// arguments.
func (s Step) split() (assign, keyword string, args []string) {
	items := []string(s)
	if len(items) > 0 {
		if name, ok := assignTarget(items[0]); ok {
			assign = name
			items = items[1:]
		}
	}
	if len(items) == 0 {
		return assign, "", nil
	}
	return assign, items[0], items[1:]
}
