package config

import (
	"fmt"

	"github.com/Veraticus/workitem-scout/internal/common"
	"github.com/Veraticus/workitem-scout/internal/model"
	"github.com/spf13/viper"
)

// SearchSettings are the defaults applied to related-item searches.
// Command-line flags override them per run.
type SearchSettings struct {
	Scope             model.SearchScope
	DateFilter        string
	TeamMappingPath   string
	WorkItemTypes     []string
	MaxResultsPerTeam int
	MaxResults        int
	WindowYears       int
	Workers           int
	KeywordLimit      int
	CacheSize         int
}

// DefaultSearchSettings returns the settings used when nothing is configured.
func DefaultSearchSettings() SearchSettings {
	return SearchSettings{
		Scope:             model.ScopeSpecific,
		DateFilter:        "last-year",
		TeamMappingPath:   "~/.config/scout/team_mappings.json",
		MaxResultsPerTeam: 100,
		MaxResults:        50,
		WindowYears:       3,
		Workers:           4,
		KeywordLimit:      4,
		CacheSize:         50,
	}
}

// LoadSearchSettings reads the search.* keys over the defaults.
func LoadSearchSettings(v *viper.Viper) (SearchSettings, error) {
	s := DefaultSearchSettings()

	if raw := v.GetString("search.scope"); raw != "" {
		scope, err := model.ParseSearchScope(raw)
		if err != nil {
			return SearchSettings{}, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
		}
		s.Scope = scope
	}
	if val := v.GetString("search.date_filter"); val != "" {
		s.DateFilter = val
	}
	if val := v.GetString("search.team_mapping"); val != "" {
		s.TeamMappingPath = val
	}
	if val := v.GetStringSlice("search.work_item_types"); len(val) > 0 {
		s.WorkItemTypes = val
	}

	ints := []struct {
		dst *int
		key string
	}{
		{&s.MaxResultsPerTeam, "search.max_results_per_team"},
		{&s.MaxResults, "search.max_results"},
		{&s.WindowYears, "search.window_years"},
		{&s.Workers, "search.workers"},
		{&s.KeywordLimit, "search.keyword_limit"},
		{&s.CacheSize, "search.cache_size"},
	}
	for _, field := range ints {
		if !v.IsSet(field.key) {
			continue
		}
		val := v.GetInt(field.key)
		if val <= 0 {
			return SearchSettings{}, fmt.Errorf("%w: %s must be positive, got %d", common.ErrInvalidConfig, field.key, val)
		}
		*field.dst = val
	}

	s.TeamMappingPath = ExpandPath(s.TeamMappingPath)
	return s, nil
}
