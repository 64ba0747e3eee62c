// Package project ties the task, workflow, ignore and manifest models into a
// single project and synthesizes them into files on disk.
package project

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/handleui/projgen/ignore"
	"github.com/handleui/projgen/internal/logging"
	"github.com/handleui/projgen/manifest"
	"github.com/handleui/projgen/task"
	"github.com/handleui/projgen/workflow"
)

const (
	// Marker is stamped into every generated artifact.
	Marker = `~~ Generated by projgen. To modify, edit .projgen.yaml and run "projgen synth".`

	DefaultTaskRunner        = "npx projgen"
	DefaultMaxParallelWrites = 4
)

// Standard task names registered by NewNodeProject.
const (
	TaskDefault     = "default"
	TaskPreCompile  = "pre-compile"
	TaskCompile     = "compile"
	TaskPostCompile = "post-compile"
	TaskTest        = "test"
	TaskTestWatch   = "test:watch"
	TaskTestUpdate  = "test:update"
	TaskTestCompile = "test:compile"
	TaskPackage     = "package"
	TaskBuild       = "build"
)

// Options configures a project.
type Options struct {
	// Name is the package name. Required.
	Name string
	// Outdir is where artifacts are written. Defaults to ".".
	Outdir string
	Logger *slog.Logger
	// MaxParallelWrites bounds concurrent artifact writes.
	MaxParallelWrites int
	// TaskRunner prefixes task names in package.json scripts.
	TaskRunner string
	DevDeps    []string
}

// Project is the root aggregate. Its models are mutated by the caller and
// consumed once by Synth.
type Project struct {
	Tasks     *task.Registry
	GitHub    *workflow.GitHub
	Gitignore *ignore.File
	Package   *manifest.Manifest

	outdir      string
	logger      *slog.Logger
	maxParallel int
	runner      string
	synthesized bool
}

// New returns a project with empty models.
func New(opts Options) (*Project, error) {
	if strings.TrimSpace(opts.Name) == "" {
		return nil, errors.New("project name cannot be empty")
	}

	p := &Project{
		Tasks:       task.NewRegistry(),
		GitHub:      workflow.New(),
		Gitignore:   ignore.New(),
		Package:     manifest.New(opts.Name),
		outdir:      opts.Outdir,
		logger:      opts.Logger,
		maxParallel: opts.MaxParallelWrites,
		runner:      opts.TaskRunner,
	}
	if p.outdir == "" {
		p.outdir = "."
	}
	if p.logger == nil {
		p.logger = logging.NewNop()
	}
	if p.maxParallel <= 0 {
		p.maxParallel = DefaultMaxParallelWrites
	}
	if p.runner == "" {
		p.runner = DefaultTaskRunner
	}

	if err := p.Package.AddDevDeps(opts.DevDeps...); err != nil {
		return nil, err
	}
	return p, nil
}

// NewNodeProject returns a project preloaded with the standard build phases
// and the usual ignore patterns of a Node.js repository.
func NewNodeProject(opts Options) (*Project, error) {
	p, err := New(opts)
	if err != nil {
		return nil, err
	}

	p.Gitignore.Exclude(
		"/node_modules/",
		"/coverage/",
		"/test-reports/",
		"/lib/",
		"/dist/",
		"*.tsbuildinfo",
		"*.log",
		".DS_Store",
		"/.projgen/synth.lock",
	)
	p.Gitignore.Include(
		"/.gitignore",
		"/package.json",
		"/.projgen/tasks.json",
		"/.projgen/files.json",
	)

	standard := []struct {
		name string
		opts task.Options
	}{
		{TaskDefault, task.Options{Description: "Synthesize project files", Exec: "projgen synth"}},
		{TaskPreCompile, task.Options{Description: "Prepare the project for compilation"}},
		{TaskCompile, task.Options{Description: "Only compile"}},
		{TaskPostCompile, task.Options{Description: "Runs after successful compilation"}},
		{TaskTest, task.Options{Description: "Run tests", Exec: "jest --passWithNoTests --all"}},
		{TaskTestWatch, task.Options{Description: "Run jest in watch mode", Exec: "jest --watch"}},
		{TaskTestUpdate, task.Options{Description: "Update jest snapshots", Exec: "jest --updateSnapshot"}},
		{TaskTestCompile, task.Options{Description: "Compiles the test code", Exec: "tsc --noEmit"}},
		{TaskPackage, task.Options{Description: "Creates the distribution package", Exec: "mkdir -p dist/js"}},
		{TaskBuild, task.Options{Description: "Full release build"}},
	}
	for _, s := range standard {
		if _, err := p.Tasks.Add(s.name, s.opts); err != nil {
			return nil, err
		}
	}
	pkg, _ := p.Tasks.Get(TaskPackage)
	pkg.Exec("npm pack --pack-destination dist/js")

	build, _ := p.Tasks.Get(TaskBuild)
	for _, phase := range []string{TaskDefault, TaskPreCompile, TaskCompile, TaskPostCompile, TaskTest, TaskPackage} {
		sub, _ := p.Tasks.Get(phase)
		build.Spawn(sub)
	}
	return p, nil
}

// Name returns the package name.
func (p *Project) Name() string {
	return p.Package.Name()
}

// Outdir returns the output directory.
func (p *Project) Outdir() string {
	return p.outdir
}

// TaskRunner returns the command prefix used for package scripts.
func (p *Project) TaskRunner() string {
	return p.runner
}

// AddTask registers a task. See task.Registry.Add.
func (p *Project) AddTask(name string, opts task.Options) (*task.Task, error) {
	t, err := p.Tasks.Add(name, opts)
	if err != nil {
		return nil, fmt.Errorf("adding task: %w", err)
	}
	return t, nil
}

// CompileTask returns the compile phase, or nil if it was removed.
func (p *Project) CompileTask() *task.Task { return p.lookup(TaskCompile) }

// TestTask returns the test phase, or nil if it was removed.
func (p *Project) TestTask() *task.Task { return p.lookup(TaskTest) }

// PackageTask returns the package phase, or nil if it was removed.
func (p *Project) PackageTask() *task.Task { return p.lookup(TaskPackage) }

// BuildTask returns the build task, or nil if it was removed.
func (p *Project) BuildTask() *task.Task { return p.lookup(TaskBuild) }

func (p *Project) lookup(name string) *task.Task {
	t, err := p.Tasks.Get(name)
	if err != nil {
		return nil
	}
	return t
}
