package project

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAlreadySynthesized is returned by every Synth call after the first.
var ErrAlreadySynthesized = errors.New("project already synthesized")

// ErrSynthInProgress is returned when another process holds the synth lock
// for the same output directory.
var ErrSynthInProgress = errors.New("another synthesis is running in this directory")

// InvariantViolationError reports every structural defect found in the
// project models before anything is written.
type InvariantViolationError struct {
	Problems []error
}

func (e *InvariantViolationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid project: " + e.Problems[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "invalid project (%d problems):", len(e.Problems))
	for _, p := range e.Problems {
		for _, line := range strings.Split(p.Error(), "\n") {
			sb.WriteString("\n  ")
			sb.WriteString(line)
		}
	}
	return sb.String()
}

// Unwrap exposes the underlying problems to errors.Is and errors.As.
func (e *InvariantViolationError) Unwrap() []error {
	return e.Problems
}

// SynthesisIOError reports which artifact could not be written or removed.
type SynthesisIOError struct {
	Artifact string
	Err      error
}

func (e *SynthesisIOError) Error() string {
	return fmt.Sprintf("synthesizing %s: %v", e.Artifact, e.Err)
}

func (e *SynthesisIOError) Unwrap() error {
	return e.Err
}
