package task

import (
	"reflect"
	"testing"
)

func TestTask_ResetIdempotent(t *testing.T) {
	r := NewRegistry()
	build, _ := r.Add("build", Options{Exec: "compile"})
	build.Exec("lint")

	build.Reset("lerna run build")
	first := build.Steps()
	build.Reset("lerna run build")
	second := build.Steps()

	want := []Step{{Exec: "lerna run build"}}
	if !reflect.DeepEqual(first, want) {
		t.Errorf("after first Reset steps = %+v, want %+v", first, want)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Reset not idempotent: %+v vs %+v", first, second)
	}
}

func TestTask_ResetKeepsMetadata(t *testing.T) {
	r := NewRegistry()
	gen, _ := r.Add("gen", Options{
		Description: "generate",
		Exec:        "a",
		Env:         map[string]string{"K": "V"},
		ReceiveArgs: true,
	})

	gen.Reset("b")

	if !gen.ReceiveArgs() {
		t.Error("Reset cleared ReceiveArgs")
	}
	if gen.Env()["K"] != "V" {
		t.Errorf("Reset changed env: %v", gen.Env())
	}
	if gen.Description() != "generate" {
		t.Errorf("Reset changed description: %q", gen.Description())
	}
}

func TestTask_ResetVariants(t *testing.T) {
	tests := []struct {
		name     string
		commands []string
		want     int
	}{
		{name: "no commands clears", commands: nil, want: 0},
		{name: "empty command clears", commands: []string{""}, want: 0},
		{name: "several commands", commands: []string{"a", "b"}, want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			tk, _ := r.Add("package", Options{Exec: "mkdir -p dist"})
			tk.Reset(tt.commands...)
			if got := len(tk.Steps()); got != tt.want {
				t.Errorf("len(Steps()) = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTask_ExecOptions(t *testing.T) {
	r := NewRegistry()
	tk, _ := r.Add("docs", Options{})
	tk.Exec("./docs/build.sh", WithName("Build Docs Site"), WithArgs("website/public/docs"))

	want := []Step{{Name: "Build Docs Site", Exec: "./docs/build.sh", Args: []string{"website/public/docs"}}}
	if got := tk.Steps(); !reflect.DeepEqual(got, want) {
		t.Errorf("Steps() = %+v, want %+v", got, want)
	}
}

func TestTask_AccessorsReturnCopies(t *testing.T) {
	r := NewRegistry()
	tk, _ := r.Add("x", Options{Exec: "a", Args: []string{"1"}, Env: map[string]string{"K": "V"}})

	steps := tk.Steps()
	steps[0].Exec = "mutated"
	steps[0].Args[0] = "mutated"
	env := tk.Env()
	env["K"] = "mutated"

	if got := tk.Steps()[0]; got.Exec != "a" || got.Args[0] != "1" {
		t.Errorf("step mutated through accessor: %+v", got)
	}
	if tk.Env()["K"] != "V" {
		t.Errorf("env mutated through accessor: %v", tk.Env())
	}
}

func TestTask_SetEnvOnEmpty(t *testing.T) {
	r := NewRegistry()
	tk, _ := r.Add("x", Options{})
	tk.SetEnv("A", "1")
	tk.SetDescription("d")
	tk.SetReceiveArgs(true)
	if tk.Env()["A"] != "1" || tk.Description() != "d" || !tk.ReceiveArgs() {
		t.Errorf("setters did not apply: env=%v desc=%q recv=%v", tk.Env(), tk.Description(), tk.ReceiveArgs())
	}
}
