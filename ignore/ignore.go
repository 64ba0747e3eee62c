// Package ignore holds the ordered path-exclusion patterns rendered into an
// ignore file such as .gitignore.
package ignore

import (
	"bytes"
	"path"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// File is an ordered list of ignore patterns. Order is significant: a later
// negated pattern ("!p") re-includes paths excluded earlier. Patterns are not
// validated here.
type File struct {
	patterns []string
}

// New returns an ignore file seeded with patterns.
func New(patterns ...string) *File {
	return &File{patterns: slices.Clone(patterns)}
}

// Exclude appends patterns that exclude paths.
func (f *File) Exclude(patterns ...string) {
	f.patterns = append(f.patterns, patterns...)
}

// AddPatterns appends raw patterns, negations included.
func (f *File) AddPatterns(patterns ...string) {
	f.patterns = append(f.patterns, patterns...)
}

// Include appends negated patterns so matching paths are not ignored.
func (f *File) Include(patterns ...string) {
	for _, p := range patterns {
		f.patterns = append(f.patterns, "!"+p)
	}
}

// RemovePatterns drops every occurrence of the given patterns.
func (f *File) RemovePatterns(patterns ...string) {
	f.patterns = slices.DeleteFunc(f.patterns, func(p string) bool {
		return slices.Contains(patterns, p)
	})
}

// Patterns returns the patterns in insertion order.
func (f *File) Patterns() []string {
	return slices.Clone(f.patterns)
}

// Render returns the ignore file contents: the marker as a comment (when
// non-empty) followed by one pattern per line, in insertion order.
func (f *File) Render(marker string) []byte {
	var buf bytes.Buffer
	if marker != "" {
		buf.WriteString("# ")
		buf.WriteString(marker)
		buf.WriteByte('\n')
	}
	for _, p := range f.patterns {
		buf.WriteString(p)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// Ignored reports whether a slash-separated path relative to the project
// root is ignored. The last matching pattern decides, following gitignore
// rules: patterns without a slash match at any depth, a leading slash
// anchors to the root, a trailing slash matches directories and everything
// beneath them.
func (f *File) Ignored(p string) bool {
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	ignored := false
	for _, raw := range f.patterns {
		pattern, negate := strings.CutPrefix(raw, "!")
		if pattern == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		if matches(pattern, p) {
			ignored = !negate
		}
	}
	return ignored
}

func matches(pattern, p string) bool {
	dirOnly := strings.HasSuffix(pattern, "/")
	pattern = strings.TrimSuffix(pattern, "/")

	anchored := strings.Contains(pattern, "/")
	pattern = strings.TrimPrefix(pattern, "/")
	if !anchored {
		pattern = "**/" + pattern
	}

	if !dirOnly {
		if ok, _ := doublestar.Match(pattern, p); ok {
			return true
		}
	}
	ok, _ := doublestar.Match(pattern+"/**", p)
	return ok
}
