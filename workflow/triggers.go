package workflow

import (
	"fmt"
	"maps"
	"slices"

	"github.com/goccy/go-yaml"
)

// Event is a workflow trigger event name.
type Event string

// Recognized trigger events.
const (
	EventPush               Event = "push"
	EventPullRequest        Event = "pull_request"
	EventPullRequestTarget  Event = "pull_request_target"
	EventWorkflowDispatch   Event = "workflow_dispatch"
	EventWorkflowCall       Event = "workflow_call"
	EventWorkflowRun        Event = "workflow_run"
	EventSchedule           Event = "schedule"
	EventRelease            Event = "release"
	EventMergeGroup         Event = "merge_group"
	EventIssues             Event = "issues"
	EventIssueComment       Event = "issue_comment"
	EventRepositoryDispatch Event = "repository_dispatch"
)

var knownEvents = map[Event]bool{
	EventPush:               true,
	EventPullRequest:        true,
	EventPullRequestTarget:  true,
	EventWorkflowDispatch:   true,
	EventWorkflowCall:       true,
	EventWorkflowRun:        true,
	EventSchedule:           true,
	EventRelease:            true,
	EventMergeGroup:         true,
	EventIssues:             true,
	EventIssueComment:       true,
	EventRepositoryDispatch: true,
}

// Trigger holds the filter options of one event. A nil or zero Trigger means
// the event fires unfiltered.
type Trigger struct {
	Branches       []string `yaml:"branches,omitempty"`
	BranchesIgnore []string `yaml:"branches-ignore,omitempty"`
	Tags           []string `yaml:"tags,omitempty"`
	TagsIgnore     []string `yaml:"tags-ignore,omitempty"`
	Paths          []string `yaml:"paths,omitempty"`
	PathsIgnore    []string `yaml:"paths-ignore,omitempty"`
	Types          []string `yaml:"types,omitempty"`
	Workflows      []string `yaml:"workflows,omitempty"`
	// Cron is only valid for the schedule event.
	Cron           []string `yaml:"cron,omitempty"`
}

// Triggers maps events to their options.
type Triggers map[Event]*Trigger

// validate rejects unknown events and misplaced options.
func (t Triggers) validate() ValidationErrors {
	var errs ValidationErrors
	for _, event := range slices.Sorted(maps.Keys(t)) {
		if !knownEvents[event] {
			errs = append(errs, &ValidationError{
				Feature:     "on",
				Description: fmt.Sprintf("unknown event %q", event),
			})
			continue
		}
		opts := t[event]
		hasCron := opts != nil && len(opts.Cron) > 0
		switch {
		case event == EventSchedule && !hasCron:
			errs = append(errs, &ValidationError{Feature: "on", Description: "schedule requires at least one cron expression"})
		case event != EventSchedule && hasCron:
			errs = append(errs, &ValidationError{Feature: "on", Description: fmt.Sprintf("cron is only valid for schedule, not %q", event)})
		}
	}
	return errs
}

// merge folds src into dst. Events are added; within one event every option
// set in src replaces the same option in dst.
func (t Triggers) merge(src Triggers) {
	for event, opts := range src {
		cur, exists := t[event]
		if !exists || cur == nil {
			t[event] = opts.clone()
			continue
		}
		if opts == nil {
			continue
		}
		override(&cur.Branches, opts.Branches)
		override(&cur.BranchesIgnore, opts.BranchesIgnore)
		override(&cur.Tags, opts.Tags)
		override(&cur.TagsIgnore, opts.TagsIgnore)
		override(&cur.Paths, opts.Paths)
		override(&cur.PathsIgnore, opts.PathsIgnore)
		override(&cur.Types, opts.Types)
		override(&cur.Workflows, opts.Workflows)
		override(&cur.Cron, opts.Cron)
	}
}

func override(dst *[]string, src []string) {
	if src != nil {
		*dst = slices.Clone(src)
	}
}

func (t *Trigger) clone() *Trigger {
	if t == nil {
		return nil
	}
	return &Trigger{
		Branches:       slices.Clone(t.Branches),
		BranchesIgnore: slices.Clone(t.BranchesIgnore),
		Tags:           slices.Clone(t.Tags),
		TagsIgnore:     slices.Clone(t.TagsIgnore),
		Paths:          slices.Clone(t.Paths),
		PathsIgnore:    slices.Clone(t.PathsIgnore),
		Types:          slices.Clone(t.Types),
		Workflows:      slices.Clone(t.Workflows),
		Cron:           slices.Clone(t.Cron),
	}
}

// render produces the "on" section with events in sorted order.
func (t Triggers) render() yaml.MapSlice {
	out := make(yaml.MapSlice, 0, len(t))
	for _, event := range slices.Sorted(maps.Keys(t)) {
		out = append(out, yaml.MapItem{Key: string(event), Value: t[event].render(event)})
	}
	return out
}

func (t *Trigger) render(event Event) any {
	if event == EventSchedule {
		var crons []string
		if t != nil {
			crons = t.Cron
		}
		entries := make([]yaml.MapSlice, 0, len(crons))
		for _, cron := range crons {
			entries = append(entries, yaml.MapSlice{{Key: "cron", Value: cron}})
		}
		return entries
	}

	if t == nil {
		return map[string]any{}
	}
	out := yaml.MapSlice{}
	add := func(key string, values []string) {
		if len(values) > 0 {
			out = append(out, yaml.MapItem{Key: key, Value: values})
		}
	}
	add("branches", t.Branches)
	add("branches-ignore", t.BranchesIgnore)
	add("tags", t.Tags)
	add("tags-ignore", t.TagsIgnore)
	add("paths", t.Paths)
	add("paths-ignore", t.PathsIgnore)
	add("types", t.Types)
	add("workflows", t.Workflows)
	if len(out) == 0 {
		return map[string]any{}
	}
	return out
}
