package workflow

import (
	"fmt"
	"strings"
)

// DuplicateWorkflowError is returned when a workflow name is already taken.
type DuplicateWorkflowError struct {
	Name string
}

func (e *DuplicateWorkflowError) Error() string {
	return fmt.Sprintf("workflow %q already exists", e.Name)
}

// UnknownWorkflowError is returned when a workflow name is not registered.
type UnknownWorkflowError struct {
	Name string
}

func (e *UnknownWorkflowError) Error() string {
	return fmt.Sprintf("workflow %q not found", e.Name)
}

// DuplicateJobError is returned when a job id collides with an existing job.
// Jobs are never silently replaced.
type DuplicateJobError struct {
	Workflow string
	JobID    string
}

func (e *DuplicateJobError) Error() string {
	return fmt.Sprintf("workflow %q: job %q already exists", e.Workflow, e.JobID)
}

// UnknownJobError is returned when a job id is not present in a workflow.
type UnknownJobError struct {
	Workflow string
	JobID    string
}

func (e *UnknownJobError) Error() string {
	return fmt.Sprintf("workflow %q: job %q not found", e.Workflow, e.JobID)
}

// ValidationError represents an unrecognized or malformed piece of workflow
// configuration.
type ValidationError struct {
	Feature     string // The offending key or feature
	Description string // Human-readable description of the issue
	Workflow    string // Workflow name (empty when not yet attached)
	JobID       string // Job ID where the issue was found (empty for workflow-level issues)
	StepName    string // Step name or position where the issue was found
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var location []string
	if e.Workflow != "" {
		location = append(location, "workflow: "+e.Workflow)
	}
	if e.JobID != "" {
		location = append(location, "job: "+e.JobID)
	}
	if e.StepName != "" {
		location = append(location, "step: "+e.StepName)
	}

	msg := fmt.Sprintf("invalid %s", e.Feature)
	if len(location) > 0 {
		msg += " (" + strings.Join(location, ", ") + ")"
	}
	return msg + ": " + e.Description
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []*ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d workflow problems detected:\n", len(e)))
	for _, err := range e {
		sb.WriteString("  - ")
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// orNil returns nil for an empty collection so callers can return it as error.
func (e ValidationErrors) orNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// withWorkflow stamps the workflow name on every error.
func (e ValidationErrors) withWorkflow(name string) ValidationErrors {
	for _, err := range e {
		err.Workflow = name
	}
	return e
}
