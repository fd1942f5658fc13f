package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/workitem-scout/internal/common"
	"github.com/Veraticus/workitem-scout/internal/service"
)

// SaveSearchRun records a search and its ranked results in one transaction.
// Runs without an ID or timestamp get a fresh UUID and the current time.
func (s *SQLiteStorage) SaveSearchRun(ctx context.Context, run *service.SearchRun) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSearchRun(run); err != nil {
		return err
	}

	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	run.CreatedAt = run.CreatedAt.UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO search_runs (
			id, project, source_id, scope, mode, date_filter,
			team_count, result_count, failed_queries, duration_ms, cache_hit, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID, run.Project, run.SourceID, run.Scope, run.Mode, run.DateFilter,
		run.TeamCount, run.ResultCount, run.FailedQueries, run.Duration.Milliseconds(), run.CacheHit, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save search run: %w", err)
	}

	if err = saveRunResultsTx(ctx, tx, run.ID, run.Results); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit search run: %w", err)
	}
	return nil
}

func saveRunResultsTx(ctx context.Context, q queryable, runID string, results []service.SearchRunResult) error {
	for i, r := range results {
		rank := r.Rank
		if rank == 0 {
			rank = i + 1
		}
		_, err := q.ExecContext(ctx, `
			INSERT INTO search_run_results (run_id, rank, item_id, title, confidence, relationship_type)
			VALUES (?, ?, ?, ?, ?, ?)
		`, runID, rank, r.ItemID, r.Title, r.Confidence, r.RelationshipType)
		if err != nil {
			return fmt.Errorf("failed to save result %d of run %s: %w", r.ItemID, runID, err)
		}
	}
	return nil
}

// GetRecentSearchRuns lists runs newest first, without their result rows.
func (s *SQLiteStorage) GetRecentSearchRuns(ctx context.Context, limit int) ([]service.SearchRun, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project, source_id, scope, mode, date_filter,
			team_count, result_count, failed_queries, duration_ms, cache_hit, created_at
		FROM search_runs
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query search runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	runs := []service.SearchRun{}
	for rows.Next() {
		run, scanErr := scanSearchRun(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating search runs: %w", err)
	}
	return runs, nil
}

// GetSearchRun loads one run with its ranked results.
func (s *SQLiteStorage) GetSearchRun(ctx context.Context, id string) (*service.SearchRun, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, project, source_id, scope, mode, date_filter,
			team_count, result_count, failed_queries, duration_ms, cache_hit, created_at
		FROM search_runs
		WHERE id = ?
	`, id)
	run, err := scanSearchRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("search run %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT rank, item_id, title, confidence, relationship_type
		FROM search_run_results
		WHERE run_id = ?
		ORDER BY rank
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query run results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var r service.SearchRunResult
		if err := rows.Scan(&r.Rank, &r.ItemID, &r.Title, &r.Confidence, &r.RelationshipType); err != nil {
			return nil, fmt.Errorf("failed to scan run result: %w", err)
		}
		run.Results = append(run.Results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run results: %w", err)
	}
	return run, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSearchRun(row scanner) (*service.SearchRun, error) {
	var (
		run        service.SearchRun
		durationMS int64
	)
	err := row.Scan(
		&run.ID, &run.Project, &run.SourceID, &run.Scope, &run.Mode, &run.DateFilter,
		&run.TeamCount, &run.ResultCount, &run.FailedQueries, &durationMS, &run.CacheHit, &run.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan search run: %w", err)
	}
	run.Duration = time.Duration(durationMS) * time.Millisecond
	return &run, nil
}
