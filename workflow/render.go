package workflow

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"
)

// Render marshals the workflow to a GitHub Actions pipeline document.
// marker, when non-empty, is written as a leading comment. Keys are emitted
// in a fixed order and maps are sorted so output is reproducible.
func (w *Workflow) Render(marker string) ([]byte, error) {
	jobs := make(yaml.MapSlice, 0, len(w.jobs))
	for _, id := range w.JobIDs() {
		jobs = append(jobs, yaml.MapItem{Key: id, Value: renderJob(w.jobs[id])})
	}

	doc := yaml.MapSlice{
		{Key: "name", Value: w.name},
		{Key: "on", Value: w.triggers.render()},
		{Key: "jobs", Value: jobs},
	}

	data, err := yaml.MarshalWithOptions(doc,
		yaml.Indent(2),
		yaml.IndentSequence(true),
		yaml.UseLiteralStyleIfMultiline(true),
	)
	if err != nil {
		return nil, fmt.Errorf("marshaling workflow %s: %w", w.name, err)
	}

	var buf bytes.Buffer
	if marker != "" {
		for line := range strings.SplitSeq(marker, "\n") {
			buf.WriteString("# ")
			buf.WriteString(line)
			buf.WriteString("\n")
		}
		buf.WriteString("\n")
	}
	buf.Write(data)
	if !bytes.HasSuffix(data, []byte("\n")) {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func renderJob(job *Job) yaml.MapSlice {
	out := yaml.MapSlice{}
	if job.Name != "" {
		out = append(out, yaml.MapItem{Key: "name", Value: job.Name})
	}
	out = append(out, yaml.MapItem{Key: "runs-on", Value: job.RunsOn.value()})
	out = append(out, yaml.MapItem{Key: "permissions", Value: job.Permissions.resolved()})
	if len(job.Needs) > 0 {
		out = append(out, yaml.MapItem{Key: "needs", Value: job.Needs})
	}
	if job.If != "" {
		out = append(out, yaml.MapItem{Key: "if", Value: job.If})
	}
	if len(job.Env) > 0 {
		out = append(out, yaml.MapItem{Key: "env", Value: sortedMap(job.Env)})
	}
	if job.TimeoutMinutes > 0 {
		out = append(out, yaml.MapItem{Key: "timeout-minutes", Value: job.TimeoutMinutes})
	}

	steps := make([]yaml.MapSlice, 0, len(job.Steps))
	for _, step := range job.Steps {
		steps = append(steps, renderStep(step))
	}
	return append(out, yaml.MapItem{Key: "steps", Value: steps})
}

func renderStep(step *Step) yaml.MapSlice {
	out := yaml.MapSlice{}
	add := func(key string, value string) {
		if value != "" {
			out = append(out, yaml.MapItem{Key: key, Value: value})
		}
	}
	add("id", step.ID)
	add("name", step.Name)
	add("if", step.If)
	add("uses", step.Uses)
	if len(step.With) > 0 {
		out = append(out, yaml.MapItem{Key: "with", Value: sortedMap(step.With)})
	}
	add("run", step.Run)
	if len(step.Env) > 0 {
		out = append(out, yaml.MapItem{Key: "env", Value: sortedMap(step.Env)})
	}
	add("working-directory", step.WorkingDirectory)
	if step.ContinueOnError {
		out = append(out, yaml.MapItem{Key: "continue-on-error", Value: true})
	}
	return out
}

// sortedMap converts a map to a MapSlice ordered by key. Nested maps are
// sorted as well.
func sortedMap[V any](m map[string]V) yaml.MapSlice {
	out := make(yaml.MapSlice, 0, len(m))
	for _, key := range slices.Sorted(maps.Keys(m)) {
		var value any = m[key]
		if nested, ok := value.(map[string]any); ok {
			value = sortedMap(nested)
		}
		out = append(out, yaml.MapItem{Key: key, Value: value})
	}
	return out
}
