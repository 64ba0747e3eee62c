// Package rc reads the .projgen.yaml definition file and applies it to a
// project through the public model APIs.
package rc

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/goccy/go-yaml"

	"github.com/handleui/projgen/project"
	"github.com/handleui/projgen/task"
	"github.com/handleui/projgen/workflow"
)

// DefaultFile is the definition file looked up by the CLI.
const DefaultFile = ".projgen.yaml"

const maxFileSizeBytes = 1 * 1024 * 1024

// File is a decoded definition. Sections are applied in a fixed order:
// devDeps, gitignore, package, env, tasks, workflows.
type File struct {
	Name string `yaml:"name"`
	// Node selects the standard Node.js task set. Defaults to true.
	Node      *bool               `yaml:"node"`
	DevDeps   []string            `yaml:"devDeps"`
	Gitignore Gitignore           `yaml:"gitignore"`
	Package   Package             `yaml:"package"`
	Env       map[string]string   `yaml:"env"`
	Tasks     Tasks               `yaml:"tasks"`
	Workflows map[string]Workflow `yaml:"workflows"`
}

// Gitignore edits the ignore file. Exclude is applied first, then Include,
// then Remove.
type Gitignore struct {
	Exclude []string `yaml:"exclude"`
	Include []string `yaml:"include"`
	Remove  []string `yaml:"remove"`
}

// Package edits the manifest. Fields keep their order from the file.
type Package struct {
	Fields      yaml.MapSlice `yaml:"fields"`
	Resolutions []string      `yaml:"resolutions"`
}

// Tasks edits the registry in the order remove, add, reset, exec so a
// standard task can be removed and redefined, and added tasks can be
// extended.
type Tasks struct {
	Remove []string            `yaml:"remove"`
	Add    map[string]TaskDef  `yaml:"add"`
	Reset  map[string][]string `yaml:"reset"`
	Exec   map[string][]string `yaml:"exec"`
}

// TaskDef mirrors task.Options.
type TaskDef struct {
	Description string            `yaml:"description"`
	Exec        string            `yaml:"exec"`
	Env         map[string]string `yaml:"env"`
	ReceiveArgs bool              `yaml:"receiveArgs"`
	Args        []string          `yaml:"args"`
}

// Workflow declares one CI workflow.
type Workflow struct {
	On   workflow.Triggers        `yaml:"on"`
	Jobs map[string]*workflow.Job `yaml:"jobs"`
}

// Load reads and parses a definition file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the user's --rcfile flag
	if err != nil {
		return nil, fmt.Errorf("reading definition file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes a definition. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	if len(data) > maxFileSizeBytes {
		return nil, fmt.Errorf("definition exceeds maximum size of %d bytes", maxFileSizeBytes)
	}
	if bytes.Contains(data, []byte{0x00}) {
		return nil, errors.New("definition contains null bytes")
	}

	var f File
	if err := yaml.UnmarshalWithOptions(data, &f, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("parsing definition:\n%s", yaml.FormatError(err, false, true))
	}
	return &f, nil
}

// NewProject builds a project from the definition. The definition's name
// overrides opts.Name.
func (f *File) NewProject(opts project.Options) (*project.Project, error) {
	if f.Name != "" {
		opts.Name = f.Name
	}

	newProject := project.NewNodeProject
	if f.Node != nil && !*f.Node {
		newProject = project.New
	}
	p, err := newProject(opts)
	if err != nil {
		return nil, err
	}
	if err := f.Apply(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Apply mutates p according to the definition. It stops at the first error.
func (f *File) Apply(p *project.Project) error {
	if err := p.Package.AddDevDeps(f.DevDeps...); err != nil {
		return fmt.Errorf("devDeps: %w", err)
	}

	p.Gitignore.Exclude(f.Gitignore.Exclude...)
	p.Gitignore.Include(f.Gitignore.Include...)
	p.Gitignore.RemovePatterns(f.Gitignore.Remove...)

	for _, item := range f.Package.Fields {
		key, ok := item.Key.(string)
		if !ok {
			return fmt.Errorf("package.fields: key %v is not a string", item.Key)
		}
		p.Package.AddField(key, item.Value)
	}
	if err := p.Package.AddPackageResolutions(f.Package.Resolutions...); err != nil {
		return fmt.Errorf("package.resolutions: %w", err)
	}

	for _, key := range sortedKeys(f.Env) {
		p.Tasks.AddEnv(key, f.Env[key])
	}

	if err := f.applyTasks(p); err != nil {
		return err
	}
	return f.applyWorkflows(p)
}

func (f *File) applyTasks(p *project.Project) error {
	for _, name := range f.Tasks.Remove {
		if err := p.Tasks.Remove(name); err != nil {
			return fmt.Errorf("tasks.remove: %w", err)
		}
	}

	for _, name := range sortedKeys(f.Tasks.Add) {
		def := f.Tasks.Add[name]
		if _, err := p.AddTask(name, task.Options{
			Description: def.Description,
			Exec:        def.Exec,
			Env:         def.Env,
			ReceiveArgs: def.ReceiveArgs,
			Args:        def.Args,
		}); err != nil {
			return fmt.Errorf("tasks.add: %w", err)
		}
	}

	for _, name := range sortedKeys(f.Tasks.Reset) {
		if err := p.Tasks.Reset(name, f.Tasks.Reset[name]...); err != nil {
			return fmt.Errorf("tasks.reset: %w", err)
		}
	}

	for _, name := range sortedKeys(f.Tasks.Exec) {
		t, err := p.Tasks.Get(name)
		if err != nil {
			return fmt.Errorf("tasks.exec: %w", err)
		}
		for _, cmd := range f.Tasks.Exec[name] {
			t.Exec(cmd)
		}
	}
	return nil
}

func (f *File) applyWorkflows(p *project.Project) error {
	for _, name := range sortedKeys(f.Workflows) {
		def := f.Workflows[name]
		wf, err := p.GitHub.AddWorkflow(name)
		if err != nil {
			return fmt.Errorf("workflows: %w", err)
		}
		if len(def.On) > 0 {
			if err := wf.On(def.On); err != nil {
				return fmt.Errorf("workflows.%s.on: %w", name, err)
			}
		}
		if len(def.Jobs) > 0 {
			if err := wf.AddJobs(def.Jobs); err != nil {
				return fmt.Errorf("workflows.%s.jobs: %w", name, err)
			}
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
