// Package manifest assembles the package manifest (package.json) from a base
// structure, field overlays and dependency resolution pins.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// Manifest is the in-memory package manifest.
type Manifest struct {
	name        string
	scripts     map[string]string
	devDeps     map[string]string
	fields      map[string]any
	order       []string
	resolutions []Resolution
}

// New returns a manifest for the named package.
func New(name string) *Manifest {
	return &Manifest{
		name:    name,
		scripts: make(map[string]string),
		devDeps: make(map[string]string),
		fields:  make(map[string]any),
	}
}

// Name returns the package name.
func (m *Manifest) Name() string {
	return m.name
}

// AddField sets a top-level field. The last write for a key wins; the key
// keeps the position of its first write. Overlay fields are applied after
// the base structure and replace base keys of the same name.
func (m *Manifest) AddField(key string, value any) {
	if _, exists := m.fields[key]; !exists {
		m.order = append(m.order, key)
	}
	m.fields[key] = value
}

// Field returns an overlay field.
func (m *Manifest) Field(key string) (any, bool) {
	v, ok := m.fields[key]
	return v, ok
}

// SetScript sets a script entry.
func (m *Manifest) SetScript(name, command string) {
	m.scripts[name] = command
}

// Scripts returns a copy of the script entries.
func (m *Manifest) Scripts() map[string]string {
	return maps.Clone(m.scripts)
}

// AddDevDeps records development dependencies given as "name" or
// "name@range".
func (m *Manifest) AddDevDeps(specs ...string) error {
	parsed := make(map[string]string, len(specs))
	for _, spec := range specs {
		name, version, err := parseDependency(spec)
		if err != nil {
			return err
		}
		parsed[name] = version
	}
	maps.Copy(m.devDeps, parsed)
	return nil
}

// DevDeps returns a copy of the development dependencies.
func (m *Manifest) DevDeps() map[string]string {
	return maps.Clone(m.devDeps)
}

// AddPackageResolutions appends "name@version" pins. Entries are validated
// up front; on error none are added.
func (m *Manifest) AddPackageResolutions(entries ...string) error {
	parsed := make([]Resolution, 0, len(entries))
	for _, entry := range entries {
		r, err := ParseResolution(entry)
		if err != nil {
			return err
		}
		parsed = append(parsed, r)
	}
	m.resolutions = append(m.resolutions, parsed...)
	return nil
}

// Resolutions returns the effective pins: one per package, the last
// configured version winning, ordered by first appearance.
func (m *Manifest) Resolutions() []Resolution {
	index := make(map[string]int)
	var out []Resolution
	for _, r := range m.resolutions {
		if i, seen := index[r.Name]; seen {
			out[i].Version = r.Version
			continue
		}
		index[r.Name] = len(out)
		out = append(out, r)
	}
	return out
}

// Render produces the manifest document: name, scripts, devDependencies,
// overlay fields, resolutions and finally the marker under "//".
func (m *Manifest) Render(marker string) ([]byte, error) {
	doc := []byte("{}")
	var err error

	set := func(path string, value any) {
		if err != nil {
			return
		}
		var raw []byte
		if raw, err = marshalRaw(value); err == nil {
			doc, err = sjson.SetRawBytes(doc, path, raw)
		}
	}

	if m.name != "" {
		set("name", m.name)
	}
	if len(m.scripts) > 0 {
		set("scripts", m.scripts)
	}
	if len(m.devDeps) > 0 {
		set("devDependencies", m.devDeps)
	}
	for _, key := range m.order {
		set(escapePath(key), m.fields[key])
	}
	if resolutions := m.Resolutions(); len(resolutions) > 0 && err == nil {
		var raw []byte
		if raw, err = orderedObject(resolutions); err == nil {
			doc, err = sjson.SetRawBytes(doc, "resolutions", raw)
		}
	}
	if marker != "" {
		set(escapePath("//"), marker)
	}
	if err != nil {
		return nil, fmt.Errorf("assembling manifest: %w", err)
	}

	if !gjson.ValidBytes(doc) {
		return nil, errors.New("assembling manifest: result is not valid JSON")
	}
	out := bytes.TrimRight(pretty.Pretty(doc), "\n")
	return append(out, '\n'), nil
}

func marshalRaw(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// orderedObject encodes resolutions as a JSON object preserving order.
func orderedObject(resolutions []Resolution) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, r := range resolutions {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalRaw(r.Name)
		if err != nil {
			return nil, err
		}
		value, err := marshalRaw(r.Version)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// escapePath escapes a literal key for use as an sjson path.
func escapePath(key string) string {
	var sb strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', ':', '!', '=', '<', '>', '%':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
