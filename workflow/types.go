package workflow

import (
	"fmt"
)

// Job represents a job in a workflow
type Job struct {
	Name           string            `yaml:"name,omitempty"`
	RunsOn         RunsOn            `yaml:"runs-on"`
	Permissions    Permissions       `yaml:"permissions,omitempty"`
	Needs          []string          `yaml:"needs,omitempty"`
	If             string            `yaml:"if,omitempty"`
	Env            map[string]string `yaml:"env,omitempty"`
	TimeoutMinutes int               `yaml:"timeout-minutes,omitempty"`
	Steps          []*Step           `yaml:"steps"`
}

// Step represents a step in a job. A step either uses an action or runs an
// inline shell command, never both.
type Step struct {
	ID               string            `yaml:"id,omitempty"`
	Name             string            `yaml:"name,omitempty"`
	If               string            `yaml:"if,omitempty"`
	Uses             string            `yaml:"uses,omitempty"`
	With             map[string]any    `yaml:"with,omitempty"`
	Run              string            `yaml:"run,omitempty"`
	Env              map[string]string `yaml:"env,omitempty"`
	WorkingDirectory string            `yaml:"working-directory,omitempty"`
	ContinueOnError  bool              `yaml:"continue-on-error,omitempty"`
}

// StepKind distinguishes action steps from inline command steps.
type StepKind int

const (
	// StepAction references a reusable action via uses.
	StepAction StepKind = iota
	// StepRun executes an inline shell command.
	StepRun
)

// Kind reports which variant the step is.
func (s *Step) Kind() StepKind {
	if s.Uses != "" {
		return StepAction
	}
	return StepRun
}

// Uses builds an action step.
func Uses(name, action string, with map[string]any) *Step {
	return &Step{Name: name, Uses: action, With: with}
}

// Run builds an inline command step.
func Run(name, command string) *Step {
	return &Step{Name: name, Run: command}
}

// RunsOn is the execution target of a job: a single runner label or a set of
// labels that must all match.
type RunsOn []string

// UnmarshalYAML accepts either a single label or a list of labels.
func (r *RunsOn) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		*r = RunsOn{v}
		return nil
	case []any:
		labels := make(RunsOn, 0, len(v))
		for _, item := range v {
			label, ok := item.(string)
			if !ok {
				return fmt.Errorf("runs-on labels must be strings, got %T", item)
			}
			labels = append(labels, label)
		}
		*r = labels
		return nil
	}
	return fmt.Errorf("runs-on must be a string or a list of strings, got %T", raw)
}

// value returns the YAML form: a scalar for one label, a list otherwise.
func (r RunsOn) value() any {
	if len(r) == 1 {
		return r[0]
	}
	return []string(r)
}
