package discovery

import (
	"log/slog"

	"github.com/Veraticus/workitem-scout/internal/common"
	"github.com/Veraticus/workitem-scout/internal/model"
)

// Selection is the outcome of strategy selection: which teams to search and how.
type Selection struct {
	Strategy model.Strategy
	Teams    []string
	// Keywords are the title keywords of the source item. They filter queries in
	// title-keyword mode and are used as match signals in every mode.
	Keywords []string
}

// Selector chooses a search strategy for a source item.
type Selector struct {
	logger       *slog.Logger
	keywordLimit int
}

// NewSelector creates a selector extracting at most keywordLimit title keywords.
func NewSelector(keywordLimit int) *Selector {
	if keywordLimit <= 0 {
		keywordLimit = DefaultKeywordLimit
	}
	return &Selector{
		keywordLimit: keywordLimit,
		logger:       slog.Default().With("component", "selector"),
	}
}

// Select picks the teams and matching mode for scope. It never fails: when a
// scope cannot be honored it degrades to a broader one and logs why.
func (s *Selector) Select(scope model.SearchScope, source model.WorkItemRef, verifiedTeams, allTeams []string) Selection {
	var keywords []string
	meaningful := IsMeaningfulTitle(source.Title)
	if meaningful {
		keywords = ExtractKeywords(source.Title, s.keywordLimit)
	} else {
		s.logger.Debug("Source title is not meaningful for keyword search",
			"id", source.ID,
			"title", source.Title,
			"signal", common.ErrNoMeaningfulTitle)
	}

	sel := Selection{Keywords: keywords}

	switch scope {
	case model.ScopeVerySpecific:
		segments := source.AreaSegments()
		if len(segments) < 2 {
			s.logger.Warn("Area path too shallow for very-specific search, falling back to generic",
				"id", source.ID,
				"area_path", source.AreaPath)
			sel.Strategy = model.Strategy{Scope: model.ScopeGeneric, Mode: model.ModeTeamBatch, Downgraded: true}
			sel.Teams = cloneStrings(allTeams)
			return sel
		}
		sel.Teams = []string{segments[len(segments)-1]}
		sel.Strategy = model.Strategy{Scope: scope, Mode: model.ModeRelationship}
		if meaningful {
			sel.Strategy.Mode = model.ModeTitleKeyword
		}

	case model.ScopeSpecific:
		sel.Teams = s.verifiedOrAll(scope, verifiedTeams, allTeams)
		sel.Strategy = model.Strategy{Scope: scope, Mode: model.ModeTeamBatch}
		if meaningful {
			sel.Strategy.Mode = model.ModeTitleKeyword
		}

	case model.ScopeBalanced:
		sel.Teams = s.verifiedOrAll(scope, verifiedTeams, allTeams)
		sel.Strategy = model.Strategy{Scope: scope, Mode: model.ModeTeamBatch}

	default:
		sel.Teams = cloneStrings(allTeams)
		sel.Strategy = model.Strategy{Scope: model.ScopeGeneric, Mode: model.ModeTeamBatch}
	}

	return sel
}

func (s *Selector) verifiedOrAll(scope model.SearchScope, verifiedTeams, allTeams []string) []string {
	if len(verifiedTeams) > 0 {
		return cloneStrings(verifiedTeams)
	}
	s.logger.Warn("No verified teams in mapping, searching all project teams",
		"scope", scope,
		"teams", len(allTeams),
		"signal", common.ErrNoVerifiedTeams)
	return cloneStrings(allTeams)
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
