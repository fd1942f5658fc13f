package discovery

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Veraticus/workitem-scout/internal/common"
	"github.com/Veraticus/workitem-scout/internal/model"
	"github.com/Veraticus/workitem-scout/internal/service"
	"golang.org/x/sync/semaphore"
)

// DefaultWorkers bounds concurrent team/window queries.
const DefaultWorkers = 4

// Target is a team to search and the area path its work lives under.
type Target struct {
	Name     string
	AreaPath string
}

// ExecuteRequest describes one team-batched search.
type ExecuteRequest struct {
	DateRange         *service.DateRange
	Project           string
	Targets           []Target
	WorkItemTypes     []string
	Keywords          []string // non-empty restricts titles to any of these
	Source            model.WorkItemRef
	MaxResultsPerTeam int
}

// ExecuteResult is the deduplicated output of a batch plus query accounting.
type ExecuteResult struct {
	Items          []model.WorkItemRef
	Queries        int
	FailedQueries  int
	SkippedWindows int
}

// ExecutorOptions configures an Executor.
type ExecutorOptions struct {
	// Progress, if set, is called after each team/window job completes.
	// It may be called from multiple goroutines.
	Progress    func(done, total int)
	Workers     int
	WindowYears int
}

// Executor runs per-team, per-window queries against a work item source.
type Executor struct {
	source      service.WorkItemSource
	logger      *slog.Logger
	progress    func(done, total int)
	workers     int
	windowYears int
}

// NewExecutor creates an executor over source.
func NewExecutor(source service.WorkItemSource, opts ExecutorOptions) *Executor {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.WindowYears <= 0 {
		opts.WindowYears = DefaultWindowYears
	}
	return &Executor{
		source:      source,
		workers:     opts.Workers,
		windowYears: opts.WindowYears,
		progress:    opts.Progress,
		logger:      slog.Default().With("component", "executor"),
	}
}

// jobResult holds one team/window job's output in its deterministic slot.
type jobResult struct {
	items   []model.WorkItemRef
	queries int
	failed  int
	skipped int
}

// Execute queries every target across every date window and merges the results.
// Order is target order, then window order (oldest first), then the source's
// per-query order; the first occurrence of an ID wins and the source item is
// never returned. Failed queries are logged and skipped. The only error is
// cancellation of ctx.
func (e *Executor) Execute(ctx context.Context, req ExecuteRequest) (*ExecuteResult, error) {
	var windows []*service.DateRange
	if req.DateRange == nil {
		windows = []*service.DateRange{nil}
	} else {
		for _, w := range PartitionRange(*req.DateRange, e.windowYears) {
			windows = append(windows, &w)
		}
	}

	total := len(req.Targets) * len(windows)
	slots := make([]jobResult, total)

	e.logger.Debug("Executing team batch",
		"teams", len(req.Targets),
		"windows", len(windows),
		"keywords", req.Keywords,
		"workers", e.workers)

	sem := semaphore.NewWeighted(int64(e.workers))
	var wg sync.WaitGroup
	var done atomic.Int32

dispatch:
	for ti, target := range req.Targets {
		for wi, window := range windows {
			if err := sem.Acquire(ctx, 1); err != nil {
				break dispatch
			}
			wg.Add(1)
			go func(slot int, target Target, window *service.DateRange) {
				defer wg.Done()
				defer sem.Release(1)

				slots[slot] = e.runWindow(ctx, req, target, window)
				if e.progress != nil {
					e.progress(int(done.Add(1)), total)
				}
			}(ti*len(windows)+wi, target, window)
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &ExecuteResult{Items: []model.WorkItemRef{}}
	seen := map[int]struct{}{req.Source.ID: {}}
	for _, slot := range slots {
		result.Queries += slot.queries
		result.FailedQueries += slot.failed
		result.SkippedWindows += slot.skipped
		for _, item := range slot.items {
			if _, dup := seen[item.ID]; dup {
				continue
			}
			seen[item.ID] = struct{}{}
			result.Items = append(result.Items, item)
		}
	}

	if result.Queries > 0 && result.FailedQueries == result.Queries {
		e.logger.Warn("Every team query failed; returning no related items",
			"queries", result.Queries)
	}

	e.logger.Info("Team batch complete",
		"teams", len(req.Targets),
		"queries", result.Queries,
		"failed", result.FailedQueries,
		"skipped_windows", result.SkippedWindows,
		"items", len(result.Items))

	return result, nil
}

// runWindow queries one team over one window, halving the window while the
// backend reports the result set as too large.
func (e *Executor) runWindow(ctx context.Context, req ExecuteRequest, target Target, window *service.DateRange) jobResult {
	var res jobResult

	filter := service.QueryFilter{
		Project:       req.Project,
		AreaPath:      target.AreaPath,
		WorkItemTypes: req.WorkItemTypes,
		TitleKeywords: req.Keywords,
		DateRange:     window,
		Limit:         req.MaxResultsPerTeam,
	}
	if req.Source.ID > 0 {
		filter.ExcludeIDs = []int{req.Source.ID}
	}

	res.queries++
	items, err := e.source.QueryByFilter(ctx, filter)
	switch {
	case err == nil:
		res.items = items
		e.logger.Debug("Team query complete",
			"team", target.Name,
			"window", formatRange(window),
			"items", len(items))
		return res

	case ctx.Err() != nil:
		return res

	case errors.Is(err, common.ErrResultSetTooLarge):
		if window != nil {
			if first, second, ok := splitRange(*window); ok {
				e.logger.Debug("Result set too large, narrowing window",
					"team", target.Name,
					"window", formatRange(window))
				for _, half := range []service.DateRange{first, second} {
					sub := e.runWindow(ctx, req, target, &half)
					res.items = append(res.items, sub.items...)
					res.queries += sub.queries
					res.failed += sub.failed
					res.skipped += sub.skipped
				}
				return res
			}
		}
		e.logger.Warn("Skipping window: result set too large even at minimum width",
			"team", target.Name,
			"window", formatRange(window),
			"error", err)
		res.failed++
		res.skipped++
		return res

	default:
		e.logger.Warn("Team query failed, skipping",
			"team", target.Name,
			"area_path", target.AreaPath,
			"window", formatRange(window),
			"error", err)
		res.failed++
		return res
	}
}
