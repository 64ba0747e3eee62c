package task

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Options configures a task created with Registry.Add.
type Options struct {
	Description string
	// Exec, when set, becomes the task's first step.
	Exec        string
	Env         map[string]string
	ReceiveArgs bool
	// Args are attached to the initial Exec step.
	Args        []string
}

// Registry owns every task of a project, keyed by name.
type Registry struct {
	tasks map[string]*Task
	env   map[string]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*Task)}
}

// Add creates and registers a task. It fails without modifying the registry
// when the name is taken.
func (r *Registry) Add(name string, opts Options) (*Task, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("task name cannot be empty")
	}
	if _, exists := r.tasks[name]; exists {
		return nil, &DuplicateTaskError{Name: name}
	}

	t := &Task{
		name:        name,
		description: opts.Description,
		env:         maps.Clone(opts.Env),
		receiveArgs: opts.ReceiveArgs,
	}
	if opts.Exec != "" {
		t.Exec(opts.Exec, WithArgs(opts.Args...))
	}

	r.tasks[name] = t
	return t, nil
}

// Remove deletes a task.
func (r *Registry) Remove(name string) error {
	if _, exists := r.tasks[name]; !exists {
		return &UnknownTaskError{Name: name}
	}
	delete(r.tasks, name)
	return nil
}

// Get returns the registered task with the given name.
func (r *Registry) Get(name string) (*Task, error) {
	t, exists := r.tasks[name]
	if !exists {
		return nil, &UnknownTaskError{Name: name}
	}
	return t, nil
}

// Reset replaces the steps of the named task. See Task.Reset.
func (r *Registry) Reset(name string, commands ...string) error {
	t, err := r.Get(name)
	if err != nil {
		return err
	}
	t.Reset(commands...)
	return nil
}

// Names returns the registered task names in sorted order.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.tasks))
}

// All returns the registered tasks sorted by name.
func (r *Registry) All() []*Task {
	names := r.Names()
	out := make([]*Task, len(names))
	for i, name := range names {
		out[i] = r.tasks[name]
	}
	return out
}

// Len returns the number of registered tasks.
func (r *Registry) Len() int {
	return len(r.tasks)
}

// AddEnv sets an environment variable shared by all tasks.
func (r *Registry) AddEnv(key, value string) {
	if r.env == nil {
		r.env = make(map[string]string)
	}
	r.env[key] = value
}

// Validate reports every structural defect in the registry: tasks that
// receive args without an exec step, spawns of unknown tasks, and spawn
// cycles. It returns nil or a Problems value.
func (r *Registry) Validate() error {
	var problems Problems
	for _, t := range r.All() {
		if t.receiveArgs && t.lastExec() < 0 {
			problems = append(problems, Problem{Task: t.name, Reason: "receives args but has no exec step"})
		}
		for _, s := range t.steps {
			if s.IsExec() == (s.Spawn != "") {
				problems = append(problems, Problem{Task: t.name, Reason: "step must set exactly one of exec or spawn"})
				continue
			}
			if s.Spawn != "" {
				if _, ok := r.tasks[s.Spawn]; !ok {
					problems = append(problems, Problem{Task: t.name, Reason: fmt.Sprintf("spawns unknown task %q", s.Spawn)})
				}
			}
		}
		if r.cyclic(t.name, map[string]bool{}) {
			problems = append(problems, Problem{Task: t.name, Reason: "spawn cycle"})
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return problems
}

// cyclic reports whether following spawns from name leads back onto the
// current path.
func (r *Registry) cyclic(name string, path map[string]bool) bool {
	if path[name] {
		return true
	}
	t, ok := r.tasks[name]
	if !ok {
		return false
	}
	path[name] = true
	defer delete(path, name)
	for _, s := range t.steps {
		if s.Spawn != "" && r.cyclic(s.Spawn, path) {
			return true
		}
	}
	return false
}

// CommandLines resolves the commands the named task would run, expanding
// spawned tasks depth-first. When the task receives args, step args and the
// given invocation args are appended to its last exec step. Nothing is run.
func (r *Registry) CommandLines(name string, args ...string) ([]string, error) {
	return r.commandLines(name, args, map[string]bool{})
}

func (r *Registry) commandLines(name string, args []string, path map[string]bool) ([]string, error) {
	t, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	if path[name] {
		return nil, fmt.Errorf("spawn cycle through task %q", name)
	}
	path[name] = true
	defer delete(path, name)

	last := t.lastExec()
	var lines []string
	for i, s := range t.steps {
		if s.Spawn != "" {
			sub, err := r.commandLines(s.Spawn, nil, path)
			if err != nil {
				return nil, fmt.Errorf("task %q: %w", name, err)
			}
			lines = append(lines, sub...)
			continue
		}

		parts := []string{s.Exec}
		if t.receiveArgs {
			parts = append(parts, s.Args...)
			if i == last {
				parts = append(parts, args...)
			}
		}
		lines = append(lines, strings.Join(parts, " "))
	}
	return lines, nil
}

// --- Rendering ---

type stepSpec struct {
	Name        string   `json:"name,omitempty"`
	Exec        string   `json:"exec,omitempty"`
	Spawn       string   `json:"spawn,omitempty"`
	Args        []string `json:"args,omitempty"`
	ReceiveArgs bool     `json:"receiveArgs,omitempty"`
}

type taskSpec struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Env         map[string]string `json:"env,omitempty"`
	Steps       []stepSpec        `json:"steps,omitempty"`
}

type tasksFile struct {
	Marker string              `json:"//,omitempty"`
	Env    map[string]string   `json:"env,omitempty"`
	Tasks  map[string]taskSpec `json:"tasks"`
}

// Render produces the tasks manifest consumed by the external task runner.
// The last exec step of a task that receives args is flagged with
// "receiveArgs" as the placeholder for appended arguments.
func (r *Registry) Render(marker string) ([]byte, error) {
	file := tasksFile{
		Marker: marker,
		Env:    r.env,
		Tasks:  make(map[string]taskSpec, len(r.tasks)),
	}
	for name, t := range r.tasks {
		spec := taskSpec{
			Name:        name,
			Description: t.description,
			Env:         t.env,
		}
		last := t.lastExec()
		for i, s := range t.steps {
			spec.Steps = append(spec.Steps, stepSpec{
				Name:        s.Name,
				Exec:        s.Exec,
				Spawn:       s.Spawn,
				Args:        s.Args,
				ReceiveArgs: t.receiveArgs && i == last,
			})
		}
		file.Tasks[name] = spec
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(file); err != nil {
		return nil, fmt.Errorf("marshaling tasks: %w", err)
	}
	return buf.Bytes(), nil
}
