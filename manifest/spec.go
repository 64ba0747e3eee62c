package manifest

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Resolution pins a (possibly transitive) dependency to a version.
type Resolution struct {
	Name    string
	Version string
}

// InvalidResolutionError is returned for a malformed "name@version" entry.
type InvalidResolutionError struct {
	Entry  string
	Reason string
}

func (e *InvalidResolutionError) Error() string {
	return fmt.Sprintf("invalid resolution %q: %s", e.Entry, e.Reason)
}

// splitSpec splits "name@version" at the last "@" that is not the leading
// scope marker, so "@types/node@20.1.0" yields ("@types/node", "20.1.0").
func splitSpec(spec string) (name, version string) {
	idx := strings.LastIndex(spec, "@")
	if idx <= 0 {
		return spec, ""
	}
	return spec[:idx], spec[idx+1:]
}

// checkVersion accepts an exact version or a range.
func checkVersion(version string) error {
	if _, err := semver.NewVersion(version); err == nil {
		return nil
	}
	if _, err := semver.NewConstraint(version); err != nil {
		return fmt.Errorf("%q is neither a version nor a range", version)
	}
	return nil
}

// ParseResolution parses a "name@version" pin.
func ParseResolution(entry string) (Resolution, error) {
	name, version := splitSpec(strings.TrimSpace(entry))
	if name == "" || strings.HasSuffix(name, "/") {
		return Resolution{}, &InvalidResolutionError{Entry: entry, Reason: "missing package name"}
	}
	if version == "" {
		return Resolution{}, &InvalidResolutionError{Entry: entry, Reason: "missing version"}
	}
	if err := checkVersion(version); err != nil {
		return Resolution{}, &InvalidResolutionError{Entry: entry, Reason: err.Error()}
	}
	return Resolution{Name: name, Version: version}, nil
}

// parseDependency parses "name" or "name@range". A bare name resolves to "*".
func parseDependency(spec string) (name, version string, err error) {
	name, version = splitSpec(strings.TrimSpace(spec))
	if name == "" {
		return "", "", fmt.Errorf("invalid dependency %q: missing package name", spec)
	}
	if version == "" {
		return name, "*", nil
	}
	if err := checkVersion(version); err != nil {
		return "", "", fmt.Errorf("invalid dependency %q: %w", spec, err)
	}
	return name, version, nil
}
