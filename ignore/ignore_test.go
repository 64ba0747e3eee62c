package ignore

import (
	"slices"
	"strings"
	"testing"
)

func patternLines(data []byte) []string {
	var out []string
	for _, line := range strings.Split(strings.TrimSuffix(string(data), "\n"), "\n") {
		if !strings.HasPrefix(line, "#") {
			out = append(out, line)
		}
	}
	return out
}

func TestFile_RenderPreservesOrder(t *testing.T) {
	f := New()
	f.AddPatterns("*.js", "!keep.js", "*.js")

	got := patternLines(f.Render("generated"))
	want := []string{"*.js", "!keep.js", "*.js"}
	if !slices.Equal(got, want) {
		t.Errorf("rendered patterns = %q, want %q", got, want)
	}
}

func TestFile_RenderMarker(t *testing.T) {
	f := New("/node_modules/")
	got := string(f.Render("~~ Generated by projgen."))
	want := "# ~~ Generated by projgen.\n/node_modules/\n"
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
	if got := string(f.Render("")); got != "/node_modules/\n" {
		t.Errorf("Render(\"\") = %q", got)
	}
}

func TestFile_Mutations(t *testing.T) {
	f := New("/node_modules/")
	f.Exclude(".vscode/")
	f.AddPatterns("*.js", "*.d.ts", "dist/")
	f.Include("tools/*.js")
	f.Exclude("*.js")
	f.RemovePatterns("*.d.ts")

	want := []string{"/node_modules/", ".vscode/", "*.js", "dist/", "!tools/*.js", "*.js"}
	if got := f.Patterns(); !slices.Equal(got, want) {
		t.Errorf("Patterns() = %q, want %q", got, want)
	}

	f.RemovePatterns("*.js")
	if got := f.Patterns(); slices.Contains(got, "*.js") {
		t.Errorf("RemovePatterns left duplicates: %q", got)
	}
}

func TestFile_PatternsReturnsCopy(t *testing.T) {
	f := New("a")
	p := f.Patterns()
	p[0] = "mutated"
	if f.Patterns()[0] != "a" {
		t.Error("Patterns() exposed internal slice")
	}
}

func TestFile_Ignored(t *testing.T) {
	f := New()
	f.Exclude(".vscode/", "*.js", "dist/", "/docs/reference/cdk8s/java.md")
	f.Include("tools/keep.js")

	tests := []struct {
		path string
		want bool
	}{
		{path: "index.js", want: true},
		{path: "src/lib/index.js", want: true},
		{path: "tools/keep.js", want: false},
		{path: "index.ts", want: false},
		{path: "dist/index.d.ts", want: true},
		{path: "packages/a/dist/out.txt", want: true},
		{path: ".vscode/settings.json", want: true},
		{path: "docs/reference/cdk8s/java.md", want: true},
		{path: "other/docs/reference/cdk8s/java.md", want: false},
		{path: "docs/reference/cdk8s/python.md", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := f.Ignored(tt.path); got != tt.want {
				t.Errorf("Ignored(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestFile_IgnoredLastMatchWins(t *testing.T) {
	f := New()
	f.AddPatterns("*.js", "!keep.js", "*.js")
	if !f.Ignored("keep.js") {
		t.Error("later *.js should re-exclude keep.js")
	}
}
