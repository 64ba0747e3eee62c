package project

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"

	"github.com/nightlyone/lockfile"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
	"golang.org/x/sync/errgroup"

	"github.com/handleui/projgen/task"
	"github.com/handleui/projgen/workflow"
)

// Artifact locations, relative to the output directory.
const (
	StateDir      = ".projgen"
	TasksFile     = ".projgen/tasks.json"
	FileListFile  = ".projgen/files.json"
	LockFile      = ".projgen/synth.lock"
	GitignoreFile = ".gitignore"
	ManifestFile  = "package.json"
	WorkflowsDir  = ".github/workflows"
)

type artifact struct {
	path string
	data []byte
}

// Synth validates every model, renders all artifacts and writes them to the
// output directory. It may be called once; later calls return
// ErrAlreadySynthesized. Nothing is written when validation fails. Files
// generated by a previous run that are no longer produced are removed.
func (p *Project) Synth(ctx context.Context) error {
	if p.synthesized {
		return ErrAlreadySynthesized
	}
	p.synthesized = true

	if err := p.validate(); err != nil {
		return err
	}
	artifacts, err := p.render()
	if err != nil {
		return err
	}

	outdir, err := filepath.Abs(p.outdir)
	if err != nil {
		return fmt.Errorf("resolving output directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(outdir, StateDir), 0o755); err != nil {
		return &SynthesisIOError{Artifact: StateDir, Err: err}
	}

	unlock, err := acquireLock(filepath.Join(outdir, filepath.FromSlash(LockFile)))
	if err != nil {
		return err
	}
	defer unlock()

	previous := p.previousFiles(outdir)

	if err := p.writeAll(ctx, outdir, artifacts); err != nil {
		return err
	}
	if err := p.removeStale(outdir, previous, artifacts); err != nil {
		return err
	}

	paths := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		paths = append(paths, a.path)
	}
	list, err := renderFileList(paths)
	if err != nil {
		return err
	}
	if err := writeAtomic(filepath.Join(outdir, filepath.FromSlash(FileListFile)), list); err != nil {
		return &SynthesisIOError{Artifact: FileListFile, Err: err}
	}

	p.logger.Info("synthesized project", "name", p.Name(), "outdir", outdir, "artifacts", len(artifacts)+1)
	return nil
}

// validate collects every problem of every model into one error.
func (p *Project) validate() error {
	var problems []error

	if err := p.Tasks.Validate(); err != nil {
		var taskProblems task.Problems
		if errors.As(err, &taskProblems) {
			for _, tp := range taskProblems {
				problems = append(problems, tp)
			}
		} else {
			problems = append(problems, err)
		}
	}

	if err := p.GitHub.Validate(); err != nil {
		var wfProblems workflow.ValidationErrors
		if errors.As(err, &wfProblems) {
			for _, wp := range wfProblems {
				problems = append(problems, wp)
			}
		} else {
			problems = append(problems, err)
		}
	}

	if len(problems) == 0 {
		return nil
	}
	p.logger.Debug("project validation failed", "problems", len(problems))
	return &InvariantViolationError{Problems: problems}
}

// render produces every artifact in memory, sorted by path.
func (p *Project) render() ([]artifact, error) {
	tasks, err := p.Tasks.Render(Marker)
	if err != nil {
		return nil, fmt.Errorf("rendering tasks: %w", err)
	}
	artifacts := []artifact{
		{path: TasksFile, data: tasks},
		{path: GitignoreFile, data: p.Gitignore.Render(Marker)},
	}

	for _, wf := range p.GitHub.Workflows() {
		data, err := wf.Render(Marker)
		if err != nil {
			return nil, fmt.Errorf("rendering workflow %q: %w", wf.Name(), err)
		}
		artifacts = append(artifacts, artifact{path: path.Join(WorkflowsDir, wf.FileName()), data: data})
	}

	for _, name := range p.Tasks.Names() {
		p.Package.SetScript(name, p.runner+" "+name)
	}
	manifest, err := p.Package.Render(Marker)
	if err != nil {
		return nil, fmt.Errorf("rendering %s: %w", ManifestFile, err)
	}
	artifacts = append(artifacts, artifact{path: ManifestFile, data: manifest})

	slices.SortFunc(artifacts, func(a, b artifact) int {
		switch {
		case a.path < b.path:
			return -1
		case a.path > b.path:
			return 1
		}
		return 0
	})
	return artifacts, nil
}

func (p *Project) writeAll(ctx context.Context, outdir string, artifacts []artifact) error {
	// Writes are independent: one failure does not cancel the others.
	var g errgroup.Group
	g.SetLimit(p.maxParallel)

	for _, a := range artifacts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := writeAtomic(filepath.Join(outdir, filepath.FromSlash(a.path)), a.data); err != nil {
				return &SynthesisIOError{Artifact: a.path, Err: err}
			}
			p.logger.Debug("wrote artifact", "path", a.path, "bytes", len(a.data))
			return nil
		})
	}
	return g.Wait()
}

// previousFiles reads the file list of the last synthesis, if any.
func (p *Project) previousFiles(outdir string) []string {
	data, err := os.ReadFile(filepath.Join(outdir, filepath.FromSlash(FileListFile)))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			p.logger.Warn("reading previous file list", "error", err)
		}
		return nil
	}
	if !gjson.ValidBytes(data) {
		p.logger.Warn("ignoring malformed file list", "path", FileListFile)
		return nil
	}
	var files []string
	for _, f := range gjson.GetBytes(data, "files").Array() {
		files = append(files, f.String())
	}
	return files
}

// removeStale deletes files from the previous run that are no longer
// generated. Paths escaping the output directory are never touched.
func (p *Project) removeStale(outdir string, previous []string, artifacts []artifact) error {
	current := make(map[string]bool, len(artifacts)+1)
	current[FileListFile] = true
	for _, a := range artifacts {
		current[a.path] = true
	}

	for _, prev := range previous {
		if current[prev] {
			continue
		}
		local := filepath.FromSlash(prev)
		if !filepath.IsLocal(local) {
			p.logger.Warn("skipping stale file outside output directory", "path", prev)
			continue
		}
		if err := os.Remove(filepath.Join(outdir, local)); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return &SynthesisIOError{Artifact: prev, Err: err}
		}
		p.logger.Debug("removed stale file", "path", prev)
	}
	return nil
}

func renderFileList(paths []string) ([]byte, error) {
	doc, err := sjson.SetBytes([]byte("{}"), "//", Marker)
	if err == nil {
		doc, err = sjson.SetBytes(doc, "files", paths)
	}
	if err != nil {
		return nil, fmt.Errorf("rendering %s: %w", FileListFile, err)
	}
	return append(bytes.TrimRight(pretty.Pretty(doc), "\n"), '\n'), nil
}

// acquireLock takes the synth lock, clearing locks left by dead processes.
func acquireLock(lockPath string) (func(), error) {
	lock, err := lockfile.New(lockPath)
	if err != nil {
		return nil, &SynthesisIOError{Artifact: LockFile, Err: err}
	}

	err = lock.TryLock()
	if errors.Is(err, lockfile.ErrDeadOwner) || errors.Is(err, lockfile.ErrInvalidPid) {
		err = lock.TryLock()
	}
	switch {
	case err == nil:
		return func() { _ = lock.Unlock() }, nil
	case errors.Is(err, lockfile.ErrBusy):
		return nil, fmt.Errorf("%w: %s is held", ErrSynthInProgress, LockFile)
	default:
		return nil, &SynthesisIOError{Artifact: LockFile, Err: err}
	}
}

// writeAtomic replaces dest with data via a temp file in the same directory
// so a failed write never leaves a truncated artifact behind.
func writeAtomic(dest string, data []byte) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("writing: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("syncing: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("closing: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("renaming: %w", err)
	}
	return nil
}
