// Package workflow models GitHub Actions workflows and renders them as YAML
// pipeline definitions.
package workflow

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
)

// validJobIDPattern matches GitHub Actions job ID requirements: [a-zA-Z_][a-zA-Z0-9_-]*
var validJobIDPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_-]*$`)

// validWorkflowNamePattern keeps workflow names usable as file names.
var validWorkflowNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9_.-]*$`)

// GitHub holds the workflows of a project.
type GitHub struct {
	workflows map[string]*Workflow
}

// New returns an empty workflow collection.
func New() *GitHub {
	return &GitHub{workflows: make(map[string]*Workflow)}
}

// AddWorkflow creates an empty workflow.
func (g *GitHub) AddWorkflow(name string) (*Workflow, error) {
	if !validWorkflowNamePattern.MatchString(name) {
		return nil, &ValidationError{
			Feature:     "name",
			Description: fmt.Sprintf("workflow name %q must match %s", name, validWorkflowNamePattern),
		}
	}
	if _, exists := g.workflows[name]; exists {
		return nil, &DuplicateWorkflowError{Name: name}
	}
	wf := &Workflow{
		name:     name,
		triggers: make(Triggers),
		jobs:     make(map[string]*Job),
	}
	g.workflows[name] = wf
	return wf, nil
}

// Workflow returns the named workflow.
func (g *GitHub) Workflow(name string) (*Workflow, error) {
	wf, exists := g.workflows[name]
	if !exists {
		return nil, &UnknownWorkflowError{Name: name}
	}
	return wf, nil
}

// RemoveWorkflow deletes the named workflow.
func (g *GitHub) RemoveWorkflow(name string) error {
	if _, exists := g.workflows[name]; !exists {
		return &UnknownWorkflowError{Name: name}
	}
	delete(g.workflows, name)
	return nil
}

// Workflows returns every workflow sorted by name.
func (g *GitHub) Workflows() []*Workflow {
	names := slices.Sorted(maps.Keys(g.workflows))
	out := make([]*Workflow, len(names))
	for i, name := range names {
		out[i] = g.workflows[name]
	}
	return out
}

// Validate checks every workflow. See Workflow.Validate.
func (g *GitHub) Validate() error {
	var errs ValidationErrors
	for _, wf := range g.Workflows() {
		errs = append(errs, wf.problems()...)
	}
	return errs.orNil()
}

// Workflow is a CI pipeline made of triggers and jobs.
type Workflow struct {
	name     string
	triggers Triggers
	jobs     map[string]*Job
}

// Name returns the workflow name.
func (w *Workflow) Name() string {
	return w.name
}

// FileName returns the pipeline file name relative to .github/workflows.
func (w *Workflow) FileName() string {
	return w.name + ".yml"
}

// On merges triggers into the workflow. Unknown events are rejected and
// leave the workflow unchanged.
func (w *Workflow) On(triggers Triggers) error {
	if errs := triggers.validate(); len(errs) > 0 {
		return errs.withWorkflow(w.name)
	}
	w.triggers.merge(triggers)
	return nil
}

// Triggers returns a copy of the configured triggers.
func (w *Workflow) Triggers() Triggers {
	out := make(Triggers, len(w.triggers))
	for event, opts := range w.triggers {
		out[event] = opts.clone()
	}
	return out
}

// AddJob adds a single job. See AddJobs.
func (w *Workflow) AddJob(id string, job *Job) error {
	return w.AddJobs(map[string]*Job{id: job})
}

// AddJobs adds jobs to the workflow. Jobs are never replaced: if any id is
// already present, or any job is malformed, nothing is added.
func (w *Workflow) AddJobs(jobs map[string]*Job) error {
	ids := slices.Sorted(maps.Keys(jobs))

	var errs ValidationErrors
	for _, id := range ids {
		errs = append(errs, validateJob(id, jobs[id])...)
	}
	if len(errs) > 0 {
		return errs.withWorkflow(w.name)
	}

	for _, id := range ids {
		if _, exists := w.jobs[id]; exists {
			return &DuplicateJobError{Workflow: w.name, JobID: id}
		}
	}
	for _, id := range ids {
		w.jobs[id] = jobs[id]
	}
	return nil
}

// Job returns the job with the given id.
func (w *Workflow) Job(id string) (*Job, error) {
	job, exists := w.jobs[id]
	if !exists {
		return nil, &UnknownJobError{Workflow: w.name, JobID: id}
	}
	return job, nil
}

// RemoveJob deletes the job with the given id.
func (w *Workflow) RemoveJob(id string) error {
	if _, exists := w.jobs[id]; !exists {
		return &UnknownJobError{Workflow: w.name, JobID: id}
	}
	delete(w.jobs, id)
	return nil
}

// JobIDs returns the job ids in sorted order.
func (w *Workflow) JobIDs() []string {
	return slices.Sorted(maps.Keys(w.jobs))
}

// Validate reports structural problems that only make sense once
// configuration is complete: missing triggers or jobs, jobs without steps,
// and needs that reference unknown jobs. Jobs are re-checked as well since
// callers may mutate them after adding.
func (w *Workflow) Validate() error {
	return w.problems().orNil()
}

func (w *Workflow) problems() ValidationErrors {
	var errs ValidationErrors
	if len(w.triggers) == 0 {
		errs = append(errs, &ValidationError{Feature: "on", Description: "workflow has no triggers"})
	}
	if len(w.jobs) == 0 {
		errs = append(errs, &ValidationError{Feature: "jobs", Description: "workflow has no jobs"})
	}
	for _, id := range w.JobIDs() {
		job := w.jobs[id]
		errs = append(errs, validateJob(id, job)...)
		if job == nil {
			continue
		}
		if len(job.Steps) == 0 {
			errs = append(errs, &ValidationError{Feature: "steps", Description: "job has no steps", JobID: id})
		}
		for _, need := range job.Needs {
			if _, ok := w.jobs[need]; !ok {
				errs = append(errs, &ValidationError{
					Feature:     "needs",
					Description: fmt.Sprintf("unknown job %q", need),
					JobID:       id,
				})
			}
		}
	}
	return errs.withWorkflow(w.name)
}

// validateJob checks the construction-time rules for a job.
func validateJob(id string, job *Job) ValidationErrors {
	if !validJobIDPattern.MatchString(id) {
		return ValidationErrors{{
			Feature:     "job id",
			Description: fmt.Sprintf("%q must match %s", id, validJobIDPattern),
			JobID:       id,
		}}
	}
	if job == nil {
		return ValidationErrors{{Feature: "job", Description: "job is nil", JobID: id}}
	}

	var errs ValidationErrors
	if len(job.RunsOn) == 0 {
		errs = append(errs, &ValidationError{Feature: "runs-on", Description: "runs-on is required", JobID: id})
	}
	errs = append(errs, job.Permissions.validate(id)...)

	for i, step := range job.Steps {
		label := stepLabel(i, step)
		switch {
		case step == nil:
			errs = append(errs, &ValidationError{Feature: "step", Description: "step is nil", JobID: id, StepName: label})
		case step.Uses != "" && step.Run != "":
			errs = append(errs, &ValidationError{Feature: "step", Description: "uses and run are mutually exclusive", JobID: id, StepName: label})
		case step.Uses == "" && step.Run == "":
			errs = append(errs, &ValidationError{Feature: "step", Description: "step must set uses or run", JobID: id, StepName: label})
		case step.Run != "" && len(step.With) > 0:
			errs = append(errs, &ValidationError{Feature: "with", Description: "with is only valid on uses steps", JobID: id, StepName: label})
		}
	}
	return errs
}

func stepLabel(i int, step *Step) string {
	if step != nil && step.Name != "" {
		return step.Name
	}
	return fmt.Sprintf("#%d", i+1)
}
