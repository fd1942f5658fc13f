package model

import (
	"fmt"
	"sort"
	"strings"
)

// SearchScope controls how many teams a related-item search covers.
type SearchScope string

const (
	// ScopeVerySpecific searches only the team owning the source item's area path.
	ScopeVerySpecific SearchScope = "very-specific"
	// ScopeSpecific searches every verified team, preferring title keywords.
	ScopeSpecific SearchScope = "specific"
	// ScopeBalanced searches every verified team by team batch.
	ScopeBalanced SearchScope = "balanced"
	// ScopeGeneric searches every team in the project.
	ScopeGeneric SearchScope = "generic"
)

// Scopes lists the valid scopes from narrowest to broadest.
var Scopes = []SearchScope{ScopeVerySpecific, ScopeSpecific, ScopeBalanced, ScopeGeneric}

// ParseSearchScope validates a scope label.
func ParseSearchScope(s string) (SearchScope, error) {
	scope := SearchScope(strings.ToLower(strings.TrimSpace(s)))
	for _, valid := range Scopes {
		if scope == valid {
			return scope, nil
		}
	}
	return "", fmt.Errorf("invalid search scope %q: must be one of very-specific, specific, balanced, generic", s)
}

// SearchMode is the matching strategy used against the selected teams.
type SearchMode string

const (
	// ModeTitleKeyword restricts queries to titles containing extracted keywords.
	ModeTitleKeyword SearchMode = "title-keyword"
	// ModeRelationship follows the source item's links and scans its area without keywords.
	ModeRelationship SearchMode = "relationship"
	// ModeTeamBatch fans out across teams without a title filter.
	ModeTeamBatch SearchMode = "team-batch"
)

// Strategy records how a set of results was produced.
type Strategy struct {
	Scope SearchScope
	Mode  SearchMode
	// Downgraded is set when the requested scope could not be honored and a broader one was used.
	Downgraded bool
}

// Label renders the strategy for display and persistence.
func (s Strategy) Label() string {
	label := fmt.Sprintf("%s/%s", s.Scope, s.Mode)
	if s.Downgraded {
		label += " (downgraded)"
	}
	return label
}

// Team is a project team and the area path its work is filed under.
type Team struct {
	Name     string
	ID       string
	AreaPath string
	Verified bool
}

// TeamMappingEntry is one team's confirmed area path.
type TeamMappingEntry struct {
	AreaPath string `json:"area_path"`
	Verified bool   `json:"verified"`
}

// TeamMapping is the externally maintained team to area-path mapping.
type TeamMapping struct {
	Mappings map[string]TeamMappingEntry `json:"mappings"`
}

// VerifiedTeams returns the names of verified teams in lexical order.
func (m TeamMapping) VerifiedTeams() []string {
	var teams []string
	for name, entry := range m.Mappings {
		if entry.Verified {
			teams = append(teams, name)
		}
	}
	sort.Strings(teams)
	return teams
}

// AreaPath returns the mapped area path for a team, if any.
func (m TeamMapping) AreaPath(team string) (string, bool) {
	entry, ok := m.Mappings[team]
	if !ok || strings.TrimSpace(entry.AreaPath) == "" {
		return "", false
	}
	return entry.AreaPath, true
}
