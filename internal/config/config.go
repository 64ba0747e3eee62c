// Package config resolves user-level settings for projgen from defaults, the
// global config file (~/.projgen/config.json) and environment variables.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/handleui/projgen/internal/logging"
)

// --- File paths ---

const (
	dirName          = ".projgen"
	globalConfigFile = "config.json"

	// HomeEnv overrides ~/.projgen.
	HomeEnv = "PROJGEN_HOME"
)

// Environment overrides.
const (
	LogLevelEnv          = "PROJGEN_LOG_LEVEL"
	MaxParallelWritesEnv = "PROJGEN_MAX_PARALLEL_WRITES"
	TaskRunnerEnv        = "PROJGEN_TASK_RUNNER"
)

// Keys accepted by Set and Unset.
const (
	KeyLogLevel          = "log_level"
	KeyMaxParallelWrites = "max_parallel_writes"
	KeyTaskRunner        = "task_runner"
)

// Keys lists the settable keys in display order.
var Keys = []string{KeyLogLevel, KeyMaxParallelWrites, KeyTaskRunner}

// --- Defaults ---

const (
	DefaultLogLevel          = "info"
	DefaultMaxParallelWrites = 4
	DefaultTaskRunner        = "npx projgen"

	minParallelWrites = 1
	maxParallelWrites = 64
)

// --- Structs ---

// GlobalConfig is the raw structure persisted in config.json.
type GlobalConfig struct {
	LogLevel          string `json:"log_level,omitempty"`
	MaxParallelWrites *int   `json:"max_parallel_writes,omitempty"`
	TaskRunner        string `json:"task_runner,omitempty"`
}

// ValueSource indicates where a configuration value originated.
type ValueSource int

// Value sources, lowest precedence first.
const (
	SourceDefault ValueSource = iota // SourceDefault is a hardcoded default.
	SourceGlobal                     // SourceGlobal comes from ~/.projgen/config.json.
	SourceEnv                        // SourceEnv comes from an environment variable.
)

// String returns the display name for a value source.
func (s ValueSource) String() string {
	switch s {
	case SourceDefault:
		return "default"
	case SourceGlobal:
		return "global"
	case SourceEnv:
		return "env"
	}
	return "unknown"
}

// Value holds a resolved value with its source.
type Value[T any] struct {
	Value  T
	Source ValueSource
}

// Config is the resolved configuration.
type Config struct {
	LogLevel          Value[string]
	MaxParallelWrites Value[int]
	TaskRunner        Value[string]

	// Warnings lists ignored invalid values.
	Warnings []string
}

// --- Path helpers ---

// Dir returns the projgen home directory, honouring PROJGEN_HOME.
func Dir() (string, error) {
	if override := os.Getenv(HomeEnv); override != "" {
		return filepath.Clean(override), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// Path returns the path to the global config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, globalConfigFile), nil
}

// --- Loading ---

// Load resolves the configuration: env var > global config > default.
// Invalid values are skipped and reported in Warnings.
func Load() (*Config, error) {
	global, err := loadGlobal()
	if err != nil {
		return nil, fmt.Errorf("global config: %w", err)
	}
	return resolve(global), nil
}

func resolve(global *GlobalConfig) *Config {
	c := &Config{
		LogLevel:          Value[string]{Value: DefaultLogLevel, Source: SourceDefault},
		MaxParallelWrites: Value[int]{Value: DefaultMaxParallelWrites, Source: SourceDefault},
		TaskRunner:        Value[string]{Value: DefaultTaskRunner, Source: SourceDefault},
	}

	if global.LogLevel != "" {
		c.setLogLevel(global.LogLevel, SourceGlobal)
	}
	if global.MaxParallelWrites != nil {
		c.MaxParallelWrites = Value[int]{Value: clampParallel(*global.MaxParallelWrites), Source: SourceGlobal}
	}
	if runner := strings.TrimSpace(global.TaskRunner); runner != "" {
		c.TaskRunner = Value[string]{Value: runner, Source: SourceGlobal}
	}

	if env := os.Getenv(LogLevelEnv); env != "" {
		c.setLogLevel(env, SourceEnv)
	}
	if env := os.Getenv(MaxParallelWritesEnv); env != "" {
		n, err := strconv.Atoi(env)
		if err != nil {
			c.Warnings = append(c.Warnings, fmt.Sprintf("ignoring %s=%q: not an integer", MaxParallelWritesEnv, env))
		} else {
			c.MaxParallelWrites = Value[int]{Value: clampParallel(n), Source: SourceEnv}
		}
	}
	if env := strings.TrimSpace(os.Getenv(TaskRunnerEnv)); env != "" {
		c.TaskRunner = Value[string]{Value: env, Source: SourceEnv}
	}
	return c
}

func (c *Config) setLogLevel(level string, source ValueSource) {
	if _, err := logging.ParseLevel(level); err != nil {
		c.Warnings = append(c.Warnings, fmt.Sprintf("ignoring %s from %s: %v", KeyLogLevel, source, err))
		return
	}
	c.LogLevel = Value[string]{Value: strings.ToLower(strings.TrimSpace(level)), Source: source}
}

func clampParallel(n int) int {
	return max(minParallelWrites, min(n, maxParallelWrites))
}

func loadGlobal() (*GlobalConfig, error) {
	data, err := readGlobal()
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return &GlobalConfig{}, nil
	}

	var cfg GlobalConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	return &cfg, nil
}

func readGlobal() ([]byte, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	// #nosec G304 - path is derived from the user's home directory
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading: %w", err)
	}
	return data, nil
}

// --- Saving ---

// Set validates and persists one key. Other keys in the file, including
// ones this version does not know, are preserved.
func Set(key, value string) error {
	var raw any
	switch key {
	case KeyLogLevel:
		if _, err := logging.ParseLevel(value); err != nil {
			return err
		}
		raw = strings.ToLower(strings.TrimSpace(value))
	case KeyMaxParallelWrites:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s must be an integer: %w", key, err)
		}
		if n < minParallelWrites || n > maxParallelWrites {
			return fmt.Errorf("%s must be between %d and %d", key, minParallelWrites, maxParallelWrites)
		}
		raw = n
	case KeyTaskRunner:
		value = strings.TrimSpace(value)
		if value == "" {
			return fmt.Errorf("%s cannot be empty", key)
		}
		raw = value
	default:
		return unknownKey(key)
	}
	return update(func(doc []byte) ([]byte, error) {
		return sjson.SetBytes(doc, key, raw)
	})
}

// Unset removes a key from the global config file.
func Unset(key string) error {
	if !slices.Contains(Keys, key) {
		return unknownKey(key)
	}
	return update(func(doc []byte) ([]byte, error) {
		return sjson.DeleteBytes(doc, key)
	})
}

func unknownKey(key string) error {
	return fmt.Errorf("unknown config key %q (valid: %s)", key, strings.Join(Keys, ", "))
}

func update(edit func([]byte) ([]byte, error)) error {
	doc, err := readGlobal()
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(doc)) == 0 {
		doc = []byte("{}")
	}
	if doc, err = edit(doc); err != nil {
		return fmt.Errorf("updating: %w", err)
	}

	dir, err := Dir()
	if err != nil {
		return err
	}
	// #nosec G301 - 0700 is intentionally restrictive
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	// #nosec G306 - 0600 is intentionally restrictive
	if err := os.WriteFile(filepath.Join(dir, globalConfigFile), pretty.Pretty(doc), 0o600); err != nil {
		return fmt.Errorf("writing: %w", err)
	}
	return nil
}
