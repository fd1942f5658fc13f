package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/workitem-scout/internal/ado"
	"github.com/Veraticus/workitem-scout/internal/common"
	"github.com/Veraticus/workitem-scout/internal/model"
	"github.com/Veraticus/workitem-scout/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ref(id int, title, area string) model.WorkItemRef {
	return model.WorkItemRef{ID: id, Title: title, AreaPath: area, Type: "Bug", State: "Active"}
}

func ids(items []model.WorkItemRef) []int {
	out := make([]int, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}

func targets(names ...string) []Target {
	out := make([]Target, 0, len(names))
	for _, name := range names {
		out = append(out, Target{Name: name, AreaPath: `Proj\` + name})
	}
	return out
}

// byArea serves fixed results per area path.
func byArea(results map[string][]model.WorkItemRef) func(context.Context, service.QueryFilter) ([]model.WorkItemRef, error) {
	return func(_ context.Context, filter service.QueryFilter) ([]model.WorkItemRef, error) {
		return results[filter.AreaPath], nil
	}
}

func lastYear() *service.DateRange {
	return &service.DateRange{Start: day(2023, 6, 15), End: day(2024, 6, 16)}
}

func TestExecutor_DeduplicatesInTeamOrder(t *testing.T) {
	source := ado.NewMockSource()
	source.QueryByFilterFn = byArea(map[string][]model.WorkItemRef{
		`Proj\A`: {ref(1, "one", `Proj\A`), ref(2, "two", `Proj\A`)},
		`Proj\B`: {ref(2, "two again", `Proj\B`), ref(3, "three", `Proj\B`), ref(100, "source", `Proj\B`)},
		`Proj\C`: {ref(4, "four", `Proj\C`), ref(1, "one again", `Proj\C`)},
	})

	for _, workers := range []int{1, 4} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			exec := NewExecutor(source, ExecutorOptions{Workers: workers})
			result, err := exec.Execute(context.Background(), ExecuteRequest{
				Project:   "Proj",
				Source:    ref(100, "source", `Proj\B`),
				Targets:   targets("A", "B", "C"),
				DateRange: lastYear(),
			})
			require.NoError(t, err)

			assert.Equal(t, []int{1, 2, 3, 4}, ids(result.Items))
			assert.Equal(t, "one", result.Items[0].Title, "first seen wins")
			assert.Equal(t, 3, result.Queries)
			assert.Zero(t, result.FailedQueries)
		})
	}
}

func TestExecutor_BuildsQueryFilter(t *testing.T) {
	source := ado.NewMockSource()
	exec := NewExecutor(source, ExecutorOptions{Workers: 1})

	_, err := exec.Execute(context.Background(), ExecuteRequest{
		Project:           "Proj",
		Source:            ref(100, "source", `Proj\PL-UK`),
		Targets:           []Target{{Name: "PL-UK", AreaPath: `Proj\PL-UK`}},
		DateRange:         lastYear(),
		WorkItemTypes:     []string{"Bug", "User Story"},
		Keywords:          []string{"carousel", "ARIA"},
		MaxResultsPerTeam: 25,
	})
	require.NoError(t, err)

	require.Len(t, source.QueryCalls, 1)
	filter := source.QueryCalls[0]
	assert.Equal(t, "Proj", filter.Project)
	assert.Equal(t, `Proj\PL-UK`, filter.AreaPath)
	assert.Equal(t, []string{"Bug", "User Story"}, filter.WorkItemTypes)
	assert.Equal(t, []string{"carousel", "ARIA"}, filter.TitleKeywords)
	assert.Equal(t, []int{100}, filter.ExcludeIDs)
	assert.Equal(t, 25, filter.Limit)
	assert.Equal(t, lastYear(), filter.DateRange)
}

func TestExecutor_PartialFailureTolerance(t *testing.T) {
	source := ado.NewMockSource()
	source.QueryByFilterFn = func(_ context.Context, filter service.QueryFilter) ([]model.WorkItemRef, error) {
		switch filter.AreaPath {
		case `Proj\T1`:
			return []model.WorkItemRef{ref(11, "t1", filter.AreaPath)}, nil
		case `Proj\T2`:
			return []model.WorkItemRef{ref(21, "t2", filter.AreaPath), ref(11, "dup", filter.AreaPath)}, nil
		case `Proj\T3`:
			return nil, fmt.Errorf("%w: dial tcp: connection reset", common.ErrSourceUnavailable)
		case `Proj\T4`:
			return []model.WorkItemRef{ref(41, "t4", filter.AreaPath)}, nil
		default:
			return []model.WorkItemRef{ref(51, "t5", filter.AreaPath)}, nil
		}
	}

	exec := NewExecutor(source, ExecutorOptions{Workers: 3})
	result, err := exec.Execute(context.Background(), ExecuteRequest{
		Project:   "Proj",
		Source:    ref(1, "source", `Proj\T1`),
		Targets:   targets("T1", "T2", "T3", "T4", "T5"),
		DateRange: lastYear(),
	})
	require.NoError(t, err)

	assert.Equal(t, []int{11, 21, 41, 51}, ids(result.Items))
	assert.Equal(t, 5, result.Queries)
	assert.Equal(t, 1, result.FailedQueries)
}

func TestExecutor_AllQueriesFailIsEmptyNotError(t *testing.T) {
	source := ado.NewMockSource()
	source.QueryByFilterFn = func(context.Context, service.QueryFilter) ([]model.WorkItemRef, error) {
		return nil, errors.New("boom")
	}

	result, err := NewExecutor(source, ExecutorOptions{}).Execute(context.Background(), ExecuteRequest{
		Source:    ref(1, "source", `Proj\A`),
		Targets:   targets("A", "B"),
		DateRange: lastYear(),
	})
	require.NoError(t, err)
	assert.Empty(t, result.Items)
	assert.NotNil(t, result.Items)
	assert.Equal(t, 2, result.FailedQueries)
}

func TestExecutor_PartitionsLongRanges(t *testing.T) {
	var mu sync.Mutex
	var windows []service.DateRange

	source := ado.NewMockSource()
	source.QueryByFilterFn = func(_ context.Context, filter service.QueryFilter) ([]model.WorkItemRef, error) {
		mu.Lock()
		windows = append(windows, *filter.DateRange)
		mu.Unlock()
		// One item per window, identified by the window's start year.
		return []model.WorkItemRef{ref(filter.DateRange.Start.Year(), "item", filter.AreaPath)}, nil
	}

	exec := NewExecutor(source, ExecutorOptions{Workers: 4, WindowYears: 3})
	result, err := exec.Execute(context.Background(), ExecuteRequest{
		Source:    ref(1, "source", `Proj\A`),
		Targets:   targets("A"),
		DateRange: &service.DateRange{Start: day(2006, 1, 1), End: day(2024, 6, 16)},
	})
	require.NoError(t, err)

	assert.Len(t, windows, 7)
	assert.Equal(t, []int{2006, 2009, 2012, 2015, 2018, 2021, 2024}, ids(result.Items), "oldest window first")
}

func TestExecutor_NarrowsTooLargeWindows(t *testing.T) {
	source := ado.NewMockSource()
	source.QueryByFilterFn = func(_ context.Context, filter service.QueryFilter) ([]model.WorkItemRef, error) {
		if filter.DateRange.Duration() > 100*24*time.Hour {
			return nil, fmt.Errorf("query: %w", common.ErrResultSetTooLarge)
		}
		id := int(filter.DateRange.Start.Unix() / 86400)
		return []model.WorkItemRef{ref(id, "item", filter.AreaPath)}, nil
	}

	result, err := NewExecutor(source, ExecutorOptions{Workers: 1}).Execute(context.Background(), ExecuteRequest{
		Source:    ref(1, "source", `Proj\A`),
		Targets:   targets("A"),
		DateRange: lastYear(),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.Items)
	assert.Zero(t, result.SkippedWindows)
	assert.Zero(t, result.FailedQueries)
	assert.Greater(t, result.Queries, 1)
	for i := 1; i < len(result.Items); i++ {
		assert.Less(t, result.Items[i-1].ID, result.Items[i].ID, "narrowed windows stay in chronological order")
	}
}

func TestExecutor_SkipsWindowsThatStayTooLarge(t *testing.T) {
	source := ado.NewMockSource()
	source.QueryByFilterFn = func(_ context.Context, filter service.QueryFilter) ([]model.WorkItemRef, error) {
		if filter.AreaPath == `Proj\Huge` {
			return nil, common.ErrResultSetTooLarge
		}
		return []model.WorkItemRef{ref(7, "small team item", filter.AreaPath)}, nil
	}

	result, err := NewExecutor(source, ExecutorOptions{Workers: 2}).Execute(context.Background(), ExecuteRequest{
		Source:    ref(1, "source", `Proj\Small`),
		Targets:   targets("Huge", "Small"),
		DateRange: &service.DateRange{Start: day(2024, 1, 1), End: day(2024, 3, 1)},
	})
	require.NoError(t, err)

	assert.Equal(t, []int{7}, ids(result.Items))
	assert.Equal(t, 2, result.SkippedWindows)
	assert.Equal(t, 2, result.FailedQueries)
}

func TestExecutor_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	source := ado.NewMockSource()
	source.QueryByFilterFn = func(ctx context.Context, _ service.QueryFilter) ([]model.WorkItemRef, error) {
		cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	}

	_, err := NewExecutor(source, ExecutorOptions{Workers: 1}).Execute(ctx, ExecuteRequest{
		Source:    ref(1, "source", `Proj\A`),
		Targets:   targets("A", "B", "C", "D"),
		DateRange: lastYear(),
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, source.QueryCount(), 4)
}

func TestExecutor_ReportsProgress(t *testing.T) {
	var mu sync.Mutex
	var calls []int
	total := 0

	exec := NewExecutor(ado.NewMockSource(), ExecutorOptions{
		Workers: 2,
		Progress: func(done, n int) {
			mu.Lock()
			defer mu.Unlock()
			calls = append(calls, done)
			total = n
		},
	})

	_, err := exec.Execute(context.Background(), ExecuteRequest{
		Source:    ref(1, "source", `Proj\A`),
		Targets:   targets("A", "B", "C"),
		DateRange: lastYear(),
	})
	require.NoError(t, err)

	assert.Equal(t, 3, total)
	assert.ElementsMatch(t, []int{1, 2, 3}, calls)
}

func TestExecutor_NoTargets(t *testing.T) {
	result, err := NewExecutor(ado.NewMockSource(), ExecutorOptions{}).Execute(context.Background(), ExecuteRequest{
		Source:    ref(1, "source", `Proj\A`),
		DateRange: lastYear(),
	})
	require.NoError(t, err)
	assert.Empty(t, result.Items)
	assert.Zero(t, result.Queries)
}
