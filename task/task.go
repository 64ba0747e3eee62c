// Package task models named units of build-time work and the registry that
// owns them.
package task

import (
	"maps"
	"slices"
)

// Step is a single entry in a task's step sequence.
// Exactly one of Exec or Spawn is set.
type Step struct {
	Name  string   // Optional display name
	Exec  string   // Shell command line
	Spawn string   // Name of another task to run
	Args  []string // Appended to Exec when the owning task receives args
}

// IsExec reports whether the step runs a command directly.
func (s Step) IsExec() bool {
	return s.Exec != ""
}

// StepOption customizes a step appended with Task.Exec.
type StepOption func(*Step)

// WithName sets the display name of a step.
func WithName(name string) StepOption {
	return func(s *Step) {
		s.Name = name
	}
}

// WithArgs sets the static arguments of a step.
func WithArgs(args ...string) StepOption {
	return func(s *Step) {
		s.Args = append([]string(nil), args...)
	}
}

// Task is a named, ordered sequence of steps. Tasks are created and owned by
// a Registry.
type Task struct {
	name        string
	description string
	steps       []Step
	env         map[string]string
	receiveArgs bool
}

// Name returns the task's unique name.
func (t *Task) Name() string {
	return t.name
}

// Description returns the task's description.
func (t *Task) Description() string {
	return t.description
}

// SetDescription replaces the task's description.
func (t *Task) SetDescription(description string) {
	t.description = description
}

// Steps returns a copy of the task's steps in execution order.
func (t *Task) Steps() []Step {
	out := make([]Step, len(t.steps))
	for i, s := range t.steps {
		s.Args = slices.Clone(s.Args)
		out[i] = s
	}
	return out
}

// Env returns a copy of the task's environment.
func (t *Task) Env() map[string]string {
	return maps.Clone(t.env)
}

// SetEnv sets one environment variable for the task.
func (t *Task) SetEnv(key, value string) {
	if t.env == nil {
		t.env = make(map[string]string)
	}
	t.env[key] = value
}

// ReceiveArgs reports whether invocation-time arguments are appended to the
// last exec step.
func (t *Task) ReceiveArgs() bool {
	return t.receiveArgs
}

// SetReceiveArgs toggles argument pass-through.
func (t *Task) SetReceiveArgs(receive bool) {
	t.receiveArgs = receive
}

// Exec appends a step that runs command.
func (t *Task) Exec(command string, opts ...StepOption) {
	step := Step{Exec: command}
	for _, opt := range opts {
		opt(&step)
	}
	t.steps = append(t.steps, step)
}

// Spawn appends a step that runs another task.
func (t *Task) Spawn(sub *Task, opts ...StepOption) {
	step := Step{Spawn: sub.Name()}
	for _, opt := range opts {
		opt(&step)
	}
	t.steps = append(t.steps, step)
}

// Reset discards every step and replaces them with one exec step per
// non-empty command. With no commands the task is left empty.
// Description, environment and ReceiveArgs are kept.
func (t *Task) Reset(commands ...string) {
	t.steps = nil
	for _, cmd := range commands {
		if cmd != "" {
			t.Exec(cmd)
		}
	}
}

// lastExec returns the index of the last exec step, or -1.
func (t *Task) lastExec() int {
	for i := len(t.steps) - 1; i >= 0; i-- {
		if t.steps[i].IsExec() {
			return i
		}
	}
	return -1
}
