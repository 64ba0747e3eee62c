package task

import (
	"fmt"
	"strings"
)

// DuplicateTaskError is returned when a task name is already registered.
type DuplicateTaskError struct {
	Name string
}

func (e *DuplicateTaskError) Error() string {
	return fmt.Sprintf("task %q already exists", e.Name)
}

// UnknownTaskError is returned when a task name is not registered.
type UnknownTaskError struct {
	Name string
}

func (e *UnknownTaskError) Error() string {
	return fmt.Sprintf("task %q not found", e.Name)
}

// Problem describes one structural defect found by Registry.Validate.
type Problem struct {
	Task   string
	Reason string
}

func (p Problem) Error() string {
	return fmt.Sprintf("task %q: %s", p.Task, p.Reason)
}

// Problems is the list of defects found in a registry.
type Problems []Problem

// Error implements the error interface.
func (p Problems) Error() string {
	if len(p) == 1 {
		return p[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d task problems:", len(p))
	for _, problem := range p {
		sb.WriteString("\n  - ")
		sb.WriteString(problem.Error())
	}
	return sb.String()
}
