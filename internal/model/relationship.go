package model

import (
	"fmt"
	"strings"
)

// Confidence is a heuristic label for how strongly an item relates to the source item.
type Confidence string

const (
	// ConfidenceHigh marks direct links and keyword hits inside the source's own area.
	ConfidenceHigh Confidence = "high"
	// ConfidenceMedium is the default label.
	ConfidenceMedium Confidence = "medium"
	// ConfidenceLow marks items found only by broad team fan-out.
	ConfidenceLow Confidence = "low"
)

// ParseConfidence accepts a confidence label in any case.
func ParseConfidence(s string) (Confidence, error) {
	switch c := Confidence(strings.ToLower(strings.TrimSpace(s))); c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return c, nil
	default:
		return "", fmt.Errorf("invalid confidence %q", s)
	}
}

// Rank orders confidences so that higher is stronger.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}

// Relationship types inferred from match context.
const (
	RelationshipRelated    = "related"
	RelationshipDependency = "dependency"
	RelationshipBlocking   = "blocking"
	RelationshipDuplicate  = "duplicate"
	RelationshipHierarchy  = "hierarchy"
)

// Link is a typed relation from one work item to another.
type Link struct {
	Type     string // backend relation name, e.g. System.LinkTypes.Dependency-Forward
	TargetID int
}

// RelationshipResult is a discovered item with its derived confidence.
// Confidence and RelationshipType are recomputed from match context, never stored authoritatively.
type RelationshipResult struct {
	Confidence       Confidence
	RelationshipType string
	Reasoning        string
	Item             WorkItemRef
}
