package ado

import (
	"context"
	"sync"

	"github.com/Veraticus/workitem-scout/internal/common"
	"github.com/Veraticus/workitem-scout/internal/model"
	"github.com/Veraticus/workitem-scout/internal/service"
)

// MockSource is a mock implementation of service.WorkItemSource for testing.
// It is safe for concurrent use.
type MockSource struct {
	// Functions that can be set by tests to control behavior
	QueryByFilterFn func(ctx context.Context, filter service.QueryFilter) ([]model.WorkItemRef, error)
	GetByIDFn       func(ctx context.Context, project string, id int) (model.WorkItemRef, error)
	GetLinksFn      func(ctx context.Context, project string, id int) ([]model.Link, error)
	ListTeamsFn     func(ctx context.Context, project string) ([]service.TeamInfo, error)
	GetAreaPathFn   func(ctx context.Context, project, team string) (string, error)

	// Items backs the default GetByID behavior.
	Items map[int]model.WorkItemRef

	// Call tracking
	QueryCalls       []service.QueryFilter
	GetByIDCalls     []int
	GetLinksCalls    []int
	ListTeamsCalls   int
	GetAreaPathCalls []string

	mu sync.Mutex
}

// NewMockSource creates a new mock source serving the given items by ID.
func NewMockSource(items ...model.WorkItemRef) *MockSource {
	m := &MockSource{Items: make(map[int]model.WorkItemRef, len(items))}
	for _, item := range items {
		m.Items[item.ID] = item
	}
	return m
}

// QueryByFilter implements service.WorkItemSource.
func (m *MockSource) QueryByFilter(ctx context.Context, filter service.QueryFilter) ([]model.WorkItemRef, error) {
	m.mu.Lock()
	m.QueryCalls = append(m.QueryCalls, filter)
	fn := m.QueryByFilterFn
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, filter)
	}
	return []model.WorkItemRef{}, nil
}

// GetByID implements service.WorkItemSource.
func (m *MockSource) GetByID(ctx context.Context, project string, id int) (model.WorkItemRef, error) {
	m.mu.Lock()
	m.GetByIDCalls = append(m.GetByIDCalls, id)
	fn := m.GetByIDFn
	item, ok := m.Items[id]
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, project, id)
	}
	if !ok {
		return model.WorkItemRef{}, common.ErrNotFound
	}
	return item, nil
}

// GetLinks implements service.WorkItemSource.
func (m *MockSource) GetLinks(ctx context.Context, project string, id int) ([]model.Link, error) {
	m.mu.Lock()
	m.GetLinksCalls = append(m.GetLinksCalls, id)
	fn := m.GetLinksFn
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, project, id)
	}
	return []model.Link{}, nil
}

// ListTeams implements service.WorkItemSource.
func (m *MockSource) ListTeams(ctx context.Context, project string) ([]service.TeamInfo, error) {
	m.mu.Lock()
	m.ListTeamsCalls++
	fn := m.ListTeamsFn
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, project)
	}
	return []service.TeamInfo{}, nil
}

// GetAreaPath implements service.WorkItemSource.
func (m *MockSource) GetAreaPath(ctx context.Context, project, team string) (string, error) {
	m.mu.Lock()
	m.GetAreaPathCalls = append(m.GetAreaPathCalls, team)
	fn := m.GetAreaPathFn
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, project, team)
	}
	return "", nil
}

// QueryCount returns the number of QueryByFilter calls so far.
func (m *MockSource) QueryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.QueryCalls)
}

// Reset clears all call tracking.
func (m *MockSource) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueryCalls = nil
	m.GetByIDCalls = nil
	m.GetLinksCalls = nil
	m.ListTeamsCalls = 0
	m.GetAreaPathCalls = nil
}

// Ensure MockSource implements the WorkItemSource interface.
var _ service.WorkItemSource = (*MockSource)(nil)
