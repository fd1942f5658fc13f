package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/workitem-scout/internal/cli"
	"github.com/Veraticus/workitem-scout/internal/config"
	"github.com/Veraticus/workitem-scout/internal/discovery"
	"github.com/Veraticus/workitem-scout/internal/model"
	"github.com/Veraticus/workitem-scout/internal/service"
)

// searchFlags are the per-run overrides shared by related and analyze.
type searchFlags struct {
	scope      string
	dateFilter string
	mapping    string
	types      []string
	maxPerTeam int
	maxResults int
	workers    int
	jsonOutput bool
	noHistory  bool
	noProgress bool
}

func (f *searchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.scope, "scope", "", "search scope: very-specific, specific, balanced, generic (default from config)")
	cmd.Flags().StringVar(&f.dateFilter, "date-filter", "",
		fmt.Sprintf("created-date filter: %s, all, or YYYY-MM-DD..YYYY-MM-DD", strings.Join(discovery.DateFilters, ", ")))
	cmd.Flags().StringSliceVar(&f.types, "types", nil, "work item types to include (default: all)")
	cmd.Flags().IntVar(&f.maxPerTeam, "max-per-team", 0, "maximum results per team query")
	cmd.Flags().IntVar(&f.maxResults, "max-results", 0, "maximum results returned")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "concurrent team queries")
	cmd.Flags().StringVar(&f.mapping, "mapping", "", "path to the team verification mapping JSON")
	cmd.Flags().BoolVar(&f.jsonOutput, "json", false, "write results as JSON")
	cmd.Flags().BoolVar(&f.noHistory, "no-history", false, "do not record this search in history")
	cmd.Flags().BoolVar(&f.noProgress, "no-progress", false, "hide the progress bar")
}

// settings merges flags over configured defaults.
func (f *searchFlags) settings() (config.SearchSettings, error) {
	s, err := config.LoadSearchSettings(viper.GetViper())
	if err != nil {
		return config.SearchSettings{}, err
	}

	if f.scope != "" {
		scope, err := model.ParseSearchScope(f.scope)
		if err != nil {
			return config.SearchSettings{}, err
		}
		s.Scope = scope
	}
	if f.dateFilter != "" {
		s.DateFilter = f.dateFilter
	}
	if len(f.types) > 0 {
		s.WorkItemTypes = f.types
	}
	if f.mapping != "" {
		s.TeamMappingPath = config.ExpandPath(f.mapping)
	}
	for _, o := range []struct {
		dst *int
		val int
	}{
		{&s.MaxResultsPerTeam, f.maxPerTeam},
		{&s.MaxResults, f.maxResults},
		{&s.Workers, f.workers},
	} {
		if o.val > 0 {
			*o.dst = o.val
		}
	}
	return s, nil
}

func relatedCmd() *cobra.Command {
	var flags searchFlags

	cmd := &cobra.Command{
		Use:   "related <id> [id...]",
		Short: "Find work items related to one or more items",
		Long: `Find work items related to the given work items.

The scope decides how wide the search reaches:
  very-specific  the item's own area, matching title keywords
  specific       verified teams, matching title keywords
  balanced       verified teams, every item in range
  generic        every team in the project`,
		Example: `  scout related 4211
  scout related 4211 --scope balanced --date-filter last-3-months
  scout related 4211 4212 --types Bug,"User Story" --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}

			outcomes, err := runSearches(cmd, ids, &flags)
			if err != nil {
				return err
			}

			if flags.jsonOutput {
				return writeOutcomesJSON(cmd.OutOrStdout(), outcomes)
			}
			for _, outcome := range outcomes {
				if err := cli.RenderResults(cmd.OutOrStdout(), outcome); err != nil {
					return err
				}
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

// runSearches executes FindRelated for every id, sharing one finder and cache.
func runSearches(cmd *cobra.Command, ids []int, flags *searchFlags) ([]*discovery.SearchOutcome, error) {
	settings, err := flags.settings()
	if err != nil {
		return nil, err
	}

	source, adoCfg, err := connect()
	if err != nil {
		return nil, err
	}

	mapping := config.LoadTeamMapping(settings.TeamMappingPath)

	var progress *cli.TeamProgress
	opts := discovery.FinderOptions{
		Cache:        discovery.NewResultCache(settings.CacheSize),
		Mapping:      mapping,
		Workers:      settings.Workers,
		WindowYears:  settings.WindowYears,
		KeywordLimit: settings.KeywordLimit,
	}
	if !flags.noProgress && !flags.jsonOutput {
		progress = cli.NewTeamProgress(cmd.ErrOrStderr())
		opts.Progress = progress.Update
	}
	finder := discovery.NewFinder(source, opts)

	interrupts := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx, stop := interrupts.HandleInterrupts(cmd.Context())
	defer stop()

	var history service.HistoryStore
	if !flags.noHistory {
		history, err = openHistory(ctx)
		if err != nil {
			slog.Warn("Search history unavailable", "error", err)
		} else {
			defer func() { _ = history.Close() }()
		}
	}

	outcomes := make([]*discovery.SearchOutcome, 0, len(ids))
	for _, id := range ids {
		started := time.Now()
		outcome, err := finder.FindRelated(ctx, discovery.Request{
			Project:           adoCfg.Project,
			ID:                id,
			Scope:             settings.Scope,
			DateFilter:        settings.DateFilter,
			WorkItemTypes:     settings.WorkItemTypes,
			MaxResultsPerTeam: settings.MaxResultsPerTeam,
			MaxResults:        settings.MaxResults,
		})
		if progress != nil {
			progress.Finish()
		}
		if err != nil {
			if errors.Is(err, context.Canceled) && interrupts.WasInterrupted() {
				return nil, fmt.Errorf("search for %d interrupted", id)
			}
			return nil, fmt.Errorf("search for %d failed: %w", id, err)
		}
		outcomes = append(outcomes, outcome)

		if history != nil {
			run := searchRun(adoCfg.Project, settings.DateFilter, outcome, time.Since(started))
			if err := history.SaveSearchRun(ctx, run); err != nil {
				slog.Warn("Failed to record search", "id", id, "error", err)
			}
		}
	}
	return outcomes, nil
}

func searchRun(project, dateFilter string, outcome *discovery.SearchOutcome, took time.Duration) *service.SearchRun {
	run := &service.SearchRun{
		Project:       project,
		SourceID:      outcome.Source.ID,
		Scope:         string(outcome.Strategy.Scope),
		Mode:          string(outcome.Strategy.Mode),
		DateFilter:    dateFilter,
		TeamCount:     len(outcome.Teams),
		ResultCount:   len(outcome.Results),
		FailedQueries: outcome.FailedQueries,
		Duration:      took,
		CacheHit:      outcome.CacheHit,
	}
	for i, r := range outcome.Results {
		run.Results = append(run.Results, service.SearchRunResult{
			Rank:             i + 1,
			ItemID:           r.Item.ID,
			Title:            r.Item.Title,
			Confidence:       string(r.Confidence),
			RelationshipType: r.RelationshipType,
		})
	}
	return run
}

type resultJSON struct {
	Type             string `json:"type"`
	State            string `json:"state"`
	Title            string `json:"title"`
	AreaPath         string `json:"area_path"`
	Confidence       string `json:"confidence"`
	RelationshipType string `json:"relationship_type"`
	Reasoning        string `json:"reasoning"`
	ID               int    `json:"id"`
}

type outcomeJSON struct {
	Strategy       string       `json:"strategy"`
	Title          string       `json:"title"`
	Keywords       []string     `json:"keywords"`
	Teams          []string     `json:"teams"`
	Results        []resultJSON `json:"results"`
	SourceID       int          `json:"source_id"`
	Queries        int          `json:"queries"`
	FailedQueries  int          `json:"failed_queries"`
	SkippedWindows int          `json:"skipped_windows"`
	CacheHit       bool         `json:"cache_hit"`
}

func writeOutcomesJSON(w io.Writer, outcomes []*discovery.SearchOutcome) error {
	out := make([]outcomeJSON, 0, len(outcomes))
	for _, o := range outcomes {
		doc := outcomeJSON{
			SourceID:       o.Source.ID,
			Title:          o.Source.Title,
			Strategy:       o.Strategy.Label(),
			Keywords:       o.Keywords,
			Teams:          make([]string, 0, len(o.Teams)),
			Results:        make([]resultJSON, 0, len(o.Results)),
			Queries:        o.Queries,
			FailedQueries:  o.FailedQueries,
			SkippedWindows: o.SkippedWindows,
			CacheHit:       o.CacheHit,
		}
		for _, t := range o.Teams {
			doc.Teams = append(doc.Teams, t.Name)
		}
		for _, r := range o.Results {
			doc.Results = append(doc.Results, resultJSON{
				ID:               r.Item.ID,
				Type:             r.Item.Type,
				State:            r.Item.State,
				Title:            r.Item.Title,
				AreaPath:         r.Item.AreaPath,
				Confidence:       string(r.Confidence),
				RelationshipType: r.RelationshipType,
				Reasoning:        r.Reasoning,
			})
		}
		out = append(out, doc)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
