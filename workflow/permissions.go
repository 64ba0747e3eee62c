package workflow

import (
	"fmt"
	"maps"
	"slices"

	"github.com/goccy/go-yaml"
)

// Scope is a GitHub token permission scope.
type Scope string

// Recognized permission scopes.
const (
	ScopeActions            Scope = "actions"
	ScopeAttestations       Scope = "attestations"
	ScopeChecks             Scope = "checks"
	ScopeContents           Scope = "contents"
	ScopeDeployments        Scope = "deployments"
	ScopeDiscussions        Scope = "discussions"
	ScopeIDToken            Scope = "id-token"
	ScopeIssues             Scope = "issues"
	ScopePackages           Scope = "packages"
	ScopePages              Scope = "pages"
	ScopePullRequests       Scope = "pull-requests"
	ScopeRepositoryProjects Scope = "repository-projects"
	ScopeSecurityEvents     Scope = "security-events"
	ScopeStatuses           Scope = "statuses"
)

// Scopes lists every recognized scope in rendering order.
var Scopes = []Scope{
	ScopeActions,
	ScopeAttestations,
	ScopeChecks,
	ScopeContents,
	ScopeDeployments,
	ScopeDiscussions,
	ScopeIDToken,
	ScopeIssues,
	ScopePackages,
	ScopePages,
	ScopePullRequests,
	ScopeRepositoryProjects,
	ScopeSecurityEvents,
	ScopeStatuses,
}

var knownScopes = func() map[Scope]bool {
	m := make(map[Scope]bool, len(Scopes))
	for _, s := range Scopes {
		m[s] = true
	}
	return m
}()

// Level is the access granted to a scope.
type Level string

// Access levels.
const (
	LevelRead  Level = "read"
	LevelWrite Level = "write"
	LevelNone  Level = "none"
)

func (l Level) valid() bool {
	return l == LevelRead || l == LevelWrite || l == LevelNone
}

// Permissions maps scopes to access levels. Scopes that are not listed are
// rendered as none.
type Permissions map[Scope]Level

// validate checks that every scope and level is recognized.
func (p Permissions) validate(jobID string) ValidationErrors {
	var errs ValidationErrors
	for _, scope := range slices.Sorted(maps.Keys(p)) {
		if !knownScopes[scope] {
			errs = append(errs, &ValidationError{
				Feature:     "permissions",
				Description: fmt.Sprintf("unknown scope %q", scope),
				JobID:       jobID,
			})
			continue
		}
		if level := p[scope]; !level.valid() {
			errs = append(errs, &ValidationError{
				Feature:     "permissions",
				Description: fmt.Sprintf("scope %q has invalid level %q (want read, write or none)", scope, level),
				JobID:       jobID,
			})
		}
	}
	return errs
}

// resolved expands the permissions to every recognized scope, defaulting the
// missing ones to none.
func (p Permissions) resolved() yaml.MapSlice {
	out := make(yaml.MapSlice, 0, len(Scopes))
	for _, scope := range Scopes {
		level, ok := p[scope]
		if !ok {
			level = LevelNone
		}
		out = append(out, yaml.MapItem{Key: string(scope), Value: string(level)})
	}
	return out
}

// Level returns the effective level for a scope.
func (p Permissions) Level(scope Scope) Level {
	if level, ok := p[scope]; ok {
		return level
	}
	return LevelNone
}
