package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/workitem-scout/internal/model"
	"github.com/Veraticus/workitem-scout/internal/service"
	"golang.org/x/sync/semaphore"
)

// DefaultMaxResults caps the number of related items returned per search.
const DefaultMaxResults = 50

// DefaultMaxResultsPerTeam caps each team/window query.
const DefaultMaxResultsPerTeam = 100

// Request is one related-item search.
type Request struct {
	Project           string
	Scope             model.SearchScope
	DateFilter        string
	WorkItemTypes     []string
	ID                int
	MaxResultsPerTeam int
	MaxResults        int
	// Refresh skips the cache read; the fresh result still replaces the entry.
	Refresh bool
}

// SearchOutcome is the result of FindRelated. An empty Results slice is a
// valid outcome meaning no related items were found.
type SearchOutcome struct {
	Strategy       model.Strategy
	Source         model.WorkItemRef
	Keywords       []string
	Teams          []Target
	Results        []model.RelationshipResult
	DateRange      service.DateRange
	Queries        int
	FailedQueries  int
	SkippedWindows int
	CacheHit       bool
}

// FinderOptions configures a Finder.
type FinderOptions struct {
	Now          func() time.Time
	Progress     func(done, total int)
	Cache        *ResultCache
	Mapping      model.TeamMapping
	Workers      int
	WindowYears  int
	KeywordLimit int
}

// Finder orchestrates strategy selection, team fan-out, classification and caching.
type Finder struct {
	source   service.WorkItemSource
	selector *Selector
	executor *Executor
	cache    *ResultCache
	mapping  model.TeamMapping
	now      func() time.Time
	logger   *slog.Logger
	workers  int
}

// NewFinder creates a finder over source.
func NewFinder(source service.WorkItemSource, opts FinderOptions) *Finder {
	if opts.Cache == nil {
		opts.Cache = NewResultCache(DefaultCacheSize)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}

	return &Finder{
		source:   source,
		selector: NewSelector(opts.KeywordLimit),
		executor: NewExecutor(source, ExecutorOptions{
			Workers:     opts.Workers,
			WindowYears: opts.WindowYears,
			Progress:    opts.Progress,
		}),
		cache:   opts.Cache,
		mapping: opts.Mapping,
		now:     opts.Now,
		workers: opts.Workers,
		logger:  slog.Default().With("component", "finder"),
	}
}

// Cache returns the finder's result cache.
func (f *Finder) Cache() *ResultCache {
	return f.cache
}

// FindRelated finds work items related to req.ID.
//
// Errors fetching the source item or listing teams propagate (wrapping
// common.ErrNotFound or common.ErrSourceUnavailable); failures of individual
// team queries do not.
func (f *Finder) FindRelated(ctx context.Context, req Request) (*SearchOutcome, error) {
	if req.ID <= 0 {
		return nil, fmt.Errorf("work item id must be positive, got %d", req.ID)
	}
	if req.Scope == "" {
		req.Scope = model.ScopeSpecific
	}
	if _, err := model.ParseSearchScope(string(req.Scope)); err != nil {
		return nil, err
	}
	if req.MaxResults <= 0 {
		req.MaxResults = DefaultMaxResults
	}
	if req.MaxResultsPerTeam <= 0 {
		req.MaxResultsPerTeam = DefaultMaxResultsPerTeam
	}

	dateRange, err := ResolveDateFilter(req.DateFilter, f.now())
	if err != nil {
		return nil, err
	}

	if !req.Refresh {
		if entry, ok := f.cache.Get(req.Project, req.ID); ok {
			f.logger.Debug("Serving related items from cache", "project", req.Project, "id", req.ID)
			outcome := f.outcomeFromEntry(entry, req.MaxResults)
			outcome.CacheHit = true
			outcome.DateRange = dateRange
			return outcome, nil
		}
	}

	source, err := f.source.GetByID(ctx, req.Project, req.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch work item %d: %w", req.ID, err)
	}

	teams, err := f.source.ListTeams(ctx, req.Project)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	allTeams := make([]string, 0, len(teams))
	for _, t := range teams {
		allTeams = append(allTeams, t.Name)
	}

	sel := f.selector.Select(req.Scope, source, f.mapping.VerifiedTeams(), allTeams)
	targets, err := f.resolveTargets(ctx, req.Project, source, sel)
	if err != nil {
		return nil, err
	}

	f.logger.Info("Searching for related work items",
		"id", source.ID,
		"strategy", sel.Strategy.Label(),
		"teams", len(targets),
		"keywords", sel.Keywords,
		"date_range", formatRange(&dateRange))

	var links []model.Link
	var linked []model.WorkItemRef
	if sel.Strategy.Mode == model.ModeRelationship {
		links, linked = f.fetchLinked(ctx, req.Project, source)
	}

	execReq := ExecuteRequest{
		Project:           req.Project,
		Source:            source,
		Targets:           targets,
		DateRange:         &dateRange,
		WorkItemTypes:     req.WorkItemTypes,
		MaxResultsPerTeam: req.MaxResultsPerTeam,
	}
	if sel.Strategy.Mode == model.ModeTitleKeyword {
		execReq.Keywords = sel.Keywords
	}

	result, err := f.executor.Execute(ctx, execReq)
	if err != nil {
		return nil, err
	}

	items := mergeItems(source.ID, linked, result.Items)

	entry := CacheEntry{
		Strategy: sel.Strategy,
		Source:   source,
		Items:    items,
		Keywords: sel.Keywords,
		Links:    links,
		Teams:    targets,
		Queries:  result.Queries,
	}
	// Results with failed queries are incomplete; do not pin them for the session.
	if result.FailedQueries == 0 {
		f.cache.Put(req.Project, req.ID, entry)
	}

	outcome := f.outcomeFromEntry(entry, req.MaxResults)
	outcome.DateRange = dateRange
	outcome.FailedQueries = result.FailedQueries
	outcome.SkippedWindows = result.SkippedWindows
	return outcome, nil
}

// resolveTargets attaches an area path to every selected team: the source
// item's own path for a very-specific search, otherwise the mapping, then the
// team's configured area, then <project>\<team>.
func (f *Finder) resolveTargets(ctx context.Context, project string, source model.WorkItemRef, sel Selection) ([]Target, error) {
	targets := make([]Target, len(sel.Teams))

	if sel.Strategy.Scope == model.ScopeVerySpecific && !sel.Strategy.Downgraded && len(sel.Teams) == 1 {
		targets[0] = Target{Name: sel.Teams[0], AreaPath: source.AreaPath}
		return targets, nil
	}

	areaProject := project
	if segments := source.AreaSegments(); len(segments) > 0 {
		areaProject = segments[0]
	}

	sem := semaphore.NewWeighted(int64(f.workers))
	errs := make([]error, len(sel.Teams))
	for i, team := range sel.Teams {
		targets[i] = Target{Name: team}
		if path, ok := f.mapping.AreaPath(team); ok {
			targets[i].AreaPath = path
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		go func(i int, team string) {
			defer sem.Release(1)
			path, err := f.source.GetAreaPath(ctx, project, team)
			if err != nil {
				errs[i] = err
			}
			if path == "" {
				path = team
				if areaProject != "" {
					path = areaProject + `\` + team
				}
			}
			targets[i].AreaPath = path
		}(i, team)
	}

	// Acquiring the full weight waits for every lookup to release.
	if err := sem.Acquire(ctx, int64(f.workers)); err != nil {
		return nil, err
	}

	for i, err := range errs {
		if err != nil {
			f.logger.Warn("Failed to resolve team area path, using default",
				"team", sel.Teams[i],
				"area_path", targets[i].AreaPath,
				"error", err)
		}
	}
	return targets, nil
}

// fetchLinked returns the source item's links and the linked items that could be
// fetched. Failures degrade to fewer linked items.
func (f *Finder) fetchLinked(ctx context.Context, project string, source model.WorkItemRef) ([]model.Link, []model.WorkItemRef) {
	links, err := f.source.GetLinks(ctx, project, source.ID)
	if err != nil {
		f.logger.Warn("Failed to fetch work item links", "id", source.ID, "error", err)
		return nil, nil
	}

	items := make([]model.WorkItemRef, 0, len(links))
	for _, link := range links {
		item, err := f.source.GetByID(ctx, project, link.TargetID)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return links, items
			}
			f.logger.Warn("Failed to fetch linked work item",
				"id", link.TargetID,
				"link_type", link.Type,
				"error", err)
			continue
		}
		items = append(items, item)
	}
	return links, items
}

func (f *Finder) outcomeFromEntry(entry CacheEntry, maxResults int) *SearchOutcome {
	linkByID := make(map[int]model.Link, len(entry.Links))
	for _, link := range entry.Links {
		if _, ok := linkByID[link.TargetID]; !ok {
			linkByID[link.TargetID] = link
		}
	}

	items := entry.Items
	if len(items) > maxResults {
		items = items[:maxResults]
	}

	results := make([]model.RelationshipResult, 0, len(items))
	for _, item := range items {
		var link *model.Link
		if l, ok := linkByID[item.ID]; ok {
			link = &l
		}
		signal := BuildSignal(entry.Source, item, entry.Keywords, link)
		results = append(results, Classify(item, entry.Strategy, signal))
	}

	return &SearchOutcome{
		Strategy: entry.Strategy,
		Source:   entry.Source,
		Keywords: entry.Keywords,
		Teams:    entry.Teams,
		Results:  results,
		Queries:  entry.Queries,
	}
}

// mergeItems places linked items first, then batch results, dropping duplicates
// and the source item.
func mergeItems(sourceID int, linked, found []model.WorkItemRef) []model.WorkItemRef {
	seen := map[int]struct{}{sourceID: {}}
	items := make([]model.WorkItemRef, 0, len(linked)+len(found))
	for _, group := range [][]model.WorkItemRef{linked, found} {
		for _, item := range group {
			if _, dup := seen[item.ID]; dup {
				continue
			}
			seen[item.ID] = struct{}{}
			items = append(items, item)
		}
	}
	return items
}
