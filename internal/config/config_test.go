package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tidwall/gjson"
)

func setupHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv(HomeEnv, home)
	t.Setenv(LogLevelEnv, "")
	t.Setenv(MaxParallelWritesEnv, "")
	t.Setenv(TaskRunnerEnv, "")
	return home
}

func writeGlobal(t *testing.T, home, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(home, globalConfigFile), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setupHome(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LogLevel.Value != DefaultLogLevel || cfg.LogLevel.Source != SourceDefault {
		t.Errorf("LogLevel = %+v", cfg.LogLevel)
	}
	if cfg.MaxParallelWrites.Value != DefaultMaxParallelWrites || cfg.MaxParallelWrites.Source != SourceDefault {
		t.Errorf("MaxParallelWrites = %+v", cfg.MaxParallelWrites)
	}
	if cfg.TaskRunner.Value != DefaultTaskRunner {
		t.Errorf("TaskRunner = %+v", cfg.TaskRunner)
	}
}

func TestLoad_GlobalThenEnv(t *testing.T) {
	home := setupHome(t)
	writeGlobal(t, home, `{"log_level": "debug", "max_parallel_writes": 8, "task_runner": "yarn projgen"}`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LogLevel.Value != "debug" || cfg.LogLevel.Source != SourceGlobal {
		t.Errorf("LogLevel = %+v", cfg.LogLevel)
	}
	if cfg.MaxParallelWrites.Value != 8 || cfg.MaxParallelWrites.Source != SourceGlobal {
		t.Errorf("MaxParallelWrites = %+v", cfg.MaxParallelWrites)
	}

	t.Setenv(TaskRunnerEnv, "pnpm projgen")
	t.Setenv(MaxParallelWritesEnv, "1000")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TaskRunner.Value != "pnpm projgen" || cfg.TaskRunner.Source != SourceEnv {
		t.Errorf("TaskRunner = %+v", cfg.TaskRunner)
	}
	if cfg.MaxParallelWrites.Value != maxParallelWrites || cfg.MaxParallelWrites.Source != SourceEnv {
		t.Errorf("MaxParallelWrites = %+v, want clamped env value", cfg.MaxParallelWrites)
	}
}

func TestLoad_InvalidValuesWarn(t *testing.T) {
	home := setupHome(t)
	writeGlobal(t, home, `{"log_level": "chatty"}`)
	t.Setenv(MaxParallelWritesEnv, "many")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LogLevel.Source != SourceDefault {
		t.Errorf("invalid log level should fall back to default, got %+v", cfg.LogLevel)
	}
	if cfg.MaxParallelWrites.Source != SourceDefault {
		t.Errorf("invalid env value should be ignored, got %+v", cfg.MaxParallelWrites)
	}
	if len(cfg.Warnings) != 2 {
		t.Errorf("Warnings = %q, want 2", cfg.Warnings)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	home := setupHome(t)
	writeGlobal(t, home, `{not json`)
	if _, err := Load(); err == nil {
		t.Fatal("Load() should fail on malformed config")
	}
}

func TestSet_PreservesUnknownKeys(t *testing.T) {
	home := setupHome(t)
	writeGlobal(t, home, `{"telemetry": false, "log_level": "warn"}`)

	if err := Set(KeyMaxParallelWrites, "12"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := Set(KeyLogLevel, "ERROR"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(home, globalConfigFile))
	if err != nil {
		t.Fatal(err)
	}
	if !gjson.GetBytes(data, "telemetry").Exists() {
		t.Errorf("unknown key was dropped:\n%s", data)
	}
	if got := gjson.GetBytes(data, "max_parallel_writes").Int(); got != 12 {
		t.Errorf("max_parallel_writes = %d, want 12", got)
	}
	if got := gjson.GetBytes(data, "log_level").String(); got != "error" {
		t.Errorf("log_level = %q, want error", got)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MaxParallelWrites.Value != 12 {
		t.Errorf("MaxParallelWrites = %+v", cfg.MaxParallelWrites)
	}
}

func TestSet_CreatesFile(t *testing.T) {
	home := setupHome(t)
	nested := filepath.Join(home, "nested")
	t.Setenv(HomeEnv, nested)

	if err := Set(KeyTaskRunner, "bunx projgen"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TaskRunner.Value != "bunx projgen" || cfg.TaskRunner.Source != SourceGlobal {
		t.Errorf("TaskRunner = %+v", cfg.TaskRunner)
	}
}

func TestSet_Invalid(t *testing.T) {
	setupHome(t)
	tests := []struct {
		key   string
		value string
		want  string
	}{
		{key: "colour", value: "red", want: "unknown config key"},
		{key: KeyLogLevel, value: "loud", want: "unknown log level"},
		{key: KeyMaxParallelWrites, value: "x", want: "must be an integer"},
		{key: KeyMaxParallelWrites, value: "0", want: "must be between"},
		{key: KeyTaskRunner, value: "  ", want: "cannot be empty"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			err := Set(tt.key, tt.value)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Set() error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestUnset(t *testing.T) {
	home := setupHome(t)
	writeGlobal(t, home, `{"task_runner": "yarn projgen", "log_level": "debug"}`)

	if err := Unset(KeyTaskRunner); err != nil {
		t.Fatalf("Unset() error = %v", err)
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TaskRunner.Source != SourceDefault {
		t.Errorf("TaskRunner = %+v, want default", cfg.TaskRunner)
	}
	if cfg.LogLevel.Value != "debug" {
		t.Errorf("LogLevel = %+v, other keys should survive", cfg.LogLevel)
	}
	if err := Unset("nope"); err == nil {
		t.Error("Unset() should reject unknown keys")
	}
}

func TestValueSource_String(t *testing.T) {
	tests := map[ValueSource]string{
		SourceDefault:  "default",
		SourceGlobal:   "global",
		SourceEnv:      "env",
		ValueSource(9): "unknown",
	}
	for source, want := range tests {
		if got := source.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", source, got, want)
		}
	}
}
