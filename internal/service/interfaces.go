// Package service defines the interfaces shared between application packages.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/workitem-scout/internal/model"
)

// WorkItemSource is the contract for the ticketing backend.
//
// Implementations must return errors wrapping common.ErrResultSetTooLarge when the
// backend refuses a query for exceeding its row ceiling, common.ErrSourceUnavailable
// when the backend cannot be reached or rejects the credentials, and common.ErrNotFound
// for unknown IDs.
type WorkItemSource interface {
	QueryByFilter(ctx context.Context, filter QueryFilter) ([]model.WorkItemRef, error)
	GetByID(ctx context.Context, project string, id int) (model.WorkItemRef, error)
	GetLinks(ctx context.Context, project string, id int) ([]model.Link, error)
	ListTeams(ctx context.Context, project string) ([]TeamInfo, error)
	GetAreaPath(ctx context.Context, project, team string) (string, error)
}

// QueryFilter describes one filtered query against the source.
type QueryFilter struct {
	DateRange     *DateRange
	Project       string
	AreaPath      string
	WorkItemTypes []string
	States        []string
	TitleKeywords []string // OR-ed CONTAINS clauses; empty means no title filter
	ExcludeIDs    []int
	Limit         int
}

// TeamInfo identifies a team as listed by the source.
type TeamInfo struct {
	Name string
	ID   string
}

// DateRange represents a half-open time period [Start, End).
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Duration returns the length of the range.
func (r DateRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// SearchRun is a persisted record of one related-item search.
type SearchRun struct {
	CreatedAt     time.Time
	ID            string
	Project       string
	Scope         string
	Mode          string
	DateFilter    string
	SourceID      int
	TeamCount     int
	ResultCount   int
	FailedQueries int
	Duration      time.Duration
	Results       []SearchRunResult
	CacheHit      bool
}

// SearchRunResult is one ranked item of a persisted search run.
type SearchRunResult struct {
	Title            string
	Confidence       string
	RelationshipType string
	ItemID           int
	Rank             int
}

// HistoryStore persists search runs.
type HistoryStore interface {
	SaveSearchRun(ctx context.Context, run *SearchRun) error
	GetRecentSearchRuns(ctx context.Context, limit int) ([]SearchRun, error)
	GetSearchRun(ctx context.Context, id string) (*SearchRun, error)
	Close() error
}
