package rc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/handleui/projgen/project"
	"github.com/handleui/projgen/task"
	"github.com/handleui/projgen/workflow"
)

const monorepo = `
name: root
devDeps:
  - lerna
  - typescript
  - "@types/node"
gitignore:
  exclude:
    - .vscode/
    - "*.js"
    - "*.d.ts"
    - dist/
  include:
    - tools/keep.js
package:
  fields:
    private: true
    workspaces:
      packages: []
  resolutions:
    - "@types/responselike@1.0.0"
    - got@12.3.1
tasks:
  remove:
    - test:watch
    - test:update
    - test:compile
  add:
    generate-spec:
      description: Generates the new k8s spec
      exec: tools/import-spec.sh
      receiveArgs: true
    integ:update:
      exec: bash test/test-all.sh
      env:
        UPDATE_SNAPSHOTS: "1"
  reset:
    test: ["lerna run test -- -u"]
    package: []
  exec:
    compile: ["lerna run build"]
workflows:
  website:
    on:
      push:
        branches: [master]
      workflow_dispatch:
    jobs:
      deploy:
        runs-on: ubuntu-latest
        permissions:
          contents: write
        steps:
          - name: Checkout sources
            uses: actions/checkout@v2
          - name: Setup Hugo
            uses: peaceiris/actions-hugo@v2
            with:
              hugo-version: 0.68.3
              extended: true
          - name: Build Website
            run: |
              cd website
              ./build.sh
`

func newProject(t *testing.T, src, outdir string) *project.Project {
	t.Helper()
	f, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	p, err := f.NewProject(project.Options{Outdir: outdir})
	if err != nil {
		t.Fatalf("NewProject() error = %v", err)
	}
	return p
}

func TestNewProject_AppliesDefinition(t *testing.T) {
	p := newProject(t, monorepo, t.TempDir())

	if p.Name() != "root" {
		t.Errorf("Name() = %q, want root", p.Name())
	}
	if _, err := p.Tasks.Get("test:watch"); err == nil {
		t.Error("test:watch should be removed")
	}

	lines, err := p.Tasks.CommandLines("test")
	if err != nil {
		t.Fatalf("CommandLines(test) error = %v", err)
	}
	if !slices.Equal(lines, []string{"lerna run test -- -u"}) {
		t.Errorf("test = %q", lines)
	}
	if steps := p.PackageTask().Steps(); len(steps) != 0 {
		t.Errorf("package has %d steps, want 0", len(steps))
	}
	if steps := p.CompileTask().Steps(); len(steps) != 1 || steps[0].Exec != "lerna run build" {
		t.Errorf("compile steps = %+v", steps)
	}

	gen, err := p.Tasks.Get("generate-spec")
	if err != nil {
		t.Fatalf("Get(generate-spec) error = %v", err)
	}
	if !gen.ReceiveArgs() {
		t.Error("generate-spec should receive args")
	}

	patterns := p.Gitignore.Patterns()
	n := len(patterns)
	if n < 5 || !slices.Equal(patterns[n-5:], []string{".vscode/", "*.js", "*.d.ts", "dist/", "!tools/keep.js"}) {
		t.Errorf("gitignore tail = %q", patterns)
	}

	if got := p.Package.DevDeps()["@types/node"]; got != "*" {
		t.Errorf("devDeps @types/node = %q, want *", got)
	}
	if got := p.Package.Resolutions(); len(got) != 2 || got[1].Name != "got" {
		t.Errorf("Resolutions() = %+v", got)
	}

	wf, err := p.GitHub.Workflow("website")
	if err != nil {
		t.Fatalf("Workflow(website) error = %v", err)
	}
	triggers := wf.Triggers()
	if push := triggers[workflow.EventPush]; push == nil || !slices.Equal(push.Branches, []string{"master"}) {
		t.Errorf("push trigger = %+v", push)
	}
	if _, ok := triggers[workflow.EventWorkflowDispatch]; !ok {
		t.Error("workflow_dispatch trigger missing")
	}
	job, err := wf.Job("deploy")
	if err != nil {
		t.Fatalf("Job(deploy) error = %v", err)
	}
	if !slices.Equal(job.RunsOn, workflow.RunsOn{"ubuntu-latest"}) {
		t.Errorf("runs-on = %q", job.RunsOn)
	}
	if job.Permissions.Level(workflow.ScopeContents) != workflow.LevelWrite {
		t.Error("contents should be write")
	}
	if got := job.Steps[2].Run; got != "cd website\n./build.sh\n" {
		t.Errorf("run = %q", got)
	}
}

func TestNewProject_Synth(t *testing.T) {
	outdir := t.TempDir()
	p := newProject(t, monorepo, outdir)
	if err := p.Synth(context.Background()); err != nil {
		t.Fatalf("Synth() error = %v", err)
	}

	pkg, err := os.ReadFile(filepath.Join(outdir, project.ManifestFile))
	if err != nil {
		t.Fatal(err)
	}
	if !gjson.GetBytes(pkg, "private").Bool() {
		t.Errorf("private not set:\n%s", pkg)
	}
	if !gjson.GetBytes(pkg, "workspaces.packages").IsArray() {
		t.Errorf("workspaces.packages should be an array:\n%s", pkg)
	}

	var keys []string
	gjson.ParseBytes(pkg).ForEach(func(key, _ gjson.Result) bool {
		keys = append(keys, key.String())
		return true
	})
	if i, j := slices.Index(keys, "private"), slices.Index(keys, "workspaces"); i < 0 || j < i {
		t.Errorf("overlay fields out of order: %q", keys)
	}

	if _, err := os.Stat(filepath.Join(outdir, ".github", "workflows", "website.yml")); err != nil {
		t.Errorf("website.yml not written: %v", err)
	}
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{name: "top level", src: "name: root\ncolour: red\n"},
		{name: "task def", src: "tasks:\n  add:\n    x:\n      cmd: echo\n"},
		{name: "job", src: "workflows:\n  ci:\n    jobs:\n      a:\n        runs_on: ubuntu-latest\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.src)); err == nil {
				t.Error("Parse() should reject unknown keys")
			}
		})
	}
}

func TestParse_RejectsBinary(t *testing.T) {
	if _, err := Parse([]byte("name: root\x00")); err == nil {
		t.Error("Parse() should reject null bytes")
	}
}

func TestParse_RunsOnList(t *testing.T) {
	f, err := Parse([]byte("workflows:\n  ci:\n    jobs:\n      a:\n        runs-on: [self-hosted, linux]\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	got := f.Workflows["ci"].Jobs["a"].RunsOn
	if !slices.Equal(got, workflow.RunsOn{"self-hosted", "linux"}) {
		t.Errorf("runs-on = %q", got)
	}
}

func TestApply_Errors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		check func(t *testing.T, err error)
	}{
		{
			name: "reset unknown task",
			src:  "tasks:\n  reset:\n    nope: [echo]\n",
			check: func(t *testing.T, err error) {
				var unknown *task.UnknownTaskError
				if !errors.As(err, &unknown) || unknown.Name != "nope" {
					t.Errorf("error = %v, want UnknownTaskError", err)
				}
			},
		},
		{
			name: "add existing task",
			src:  "tasks:\n  add:\n    compile:\n      exec: tsc\n",
			check: func(t *testing.T, err error) {
				var dup *task.DuplicateTaskError
				if !errors.As(err, &dup) {
					t.Errorf("error = %v, want DuplicateTaskError", err)
				}
			},
		},
		{
			name: "bad resolution",
			src:  "package:\n  resolutions: [got]\n",
			check: func(t *testing.T, err error) {
				if err == nil || !strings.Contains(err.Error(), "package.resolutions") {
					t.Errorf("error = %v", err)
				}
			},
		},
		{
			name: "unknown event",
			src:  "workflows:\n  ci:\n    on:\n      deploy_now: {}\n",
			check: func(t *testing.T, err error) {
				var invalid workflow.ValidationErrors
				if !errors.As(err, &invalid) {
					t.Errorf("error = %v, want ValidationErrors", err)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse([]byte(tt.src))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			_, err = f.NewProject(project.Options{Name: "root"})
			tt.check(t, err)
		})
	}
}

func TestNewProject_Bare(t *testing.T) {
	p := newProject(t, "name: lib\nnode: false\n", t.TempDir())
	if p.Tasks.Len() != 0 {
		t.Errorf("bare project has %d tasks, want 0", p.Tasks.Len())
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFile)
	if err := os.WriteFile(path, []byte(monorepo), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if f.Name != "root" {
		t.Errorf("Name = %q", f.Name)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Load() should fail for a missing file")
	}
}
