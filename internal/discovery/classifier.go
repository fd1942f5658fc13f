package discovery

import (
	"fmt"
	"strings"

	"github.com/Veraticus/workitem-scout/internal/model"
)

// MatchSignal records why an item was found.
type MatchSignal struct {
	LinkType     string
	Context      string // text relationship types are inferred from
	KeywordHits  []string
	SameAreaPath bool
	Linked       bool
}

// BuildSignal derives the match signal for item relative to source. link is
// nil unless the item is directly linked to the source.
func BuildSignal(source, item model.WorkItemRef, keywords []string, link *model.Link) MatchSignal {
	signal := MatchSignal{
		KeywordHits:  KeywordHits(keywords, item.Title),
		SameAreaPath: source.AreaPath != "" && item.InAreaPath(source.AreaPath),
	}

	parts := []string{item.Title}
	if item.Tags != "" {
		parts = append(parts, item.Tags)
	}
	if link != nil {
		signal.Linked = true
		signal.LinkType = link.Type
		parts = append([]string{link.Type}, parts...)
	}
	signal.Context = strings.Join(parts, " ")
	return signal
}

// Classify labels an item by the strategy and signal that produced it.
//
//   - high: a direct link, or a keyword hit from a very-specific search or inside
//     the source's own area path
//   - low: found only by team-batch fan-out with no keyword overlap outside the
//     source's area
//   - medium: everything else
func Classify(item model.WorkItemRef, strategy model.Strategy, signal MatchSignal) model.RelationshipResult {
	hits := len(signal.KeywordHits) > 0
	narrow := strategy.Scope == model.ScopeVerySpecific && !strategy.Downgraded

	confidence := model.ConfidenceMedium
	switch {
	case signal.Linked:
		confidence = model.ConfidenceHigh
	case hits && (narrow || signal.SameAreaPath):
		confidence = model.ConfidenceHigh
	case strategy.Mode == model.ModeTeamBatch && !hits && !signal.SameAreaPath:
		confidence = model.ConfidenceLow
	}

	return model.RelationshipResult{
		Item:             item,
		Confidence:       confidence,
		RelationshipType: InferRelationshipType(signal.Context),
		Reasoning:        reasoning(strategy, signal),
	}
}

// InferRelationshipType maps match context text to a relationship type by
// substring. Link type names such as System.LinkTypes.Dependency-Forward are
// matched the same way as free text.
func InferRelationshipType(context string) string {
	lower := strings.ToLower(context)
	switch {
	case strings.Contains(lower, "hierarchy"):
		return model.RelationshipHierarchy
	case strings.Contains(lower, "duplicat"):
		return model.RelationshipDuplicate
	case strings.Contains(lower, "depend"):
		return model.RelationshipDependency
	case strings.Contains(lower, "block"):
		return model.RelationshipBlocking
	default:
		return model.RelationshipRelated
	}
}

func reasoning(strategy model.Strategy, signal MatchSignal) string {
	var parts []string
	if signal.Linked {
		parts = append(parts, "directly linked ("+signal.LinkType+")")
	}
	if len(signal.KeywordHits) > 0 {
		parts = append(parts, "title shares "+strings.Join(signal.KeywordHits, ", "))
	}
	if signal.SameAreaPath {
		parts = append(parts, "same area path")
	}
	if len(parts) == 0 {
		parts = append(parts, "no direct overlap")
	}
	return fmt.Sprintf("%s; found by %s search", strings.Join(parts, "; "), strategy.Label())
}
