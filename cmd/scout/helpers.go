package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/Veraticus/workitem-scout/internal/ado"
	"github.com/Veraticus/workitem-scout/internal/common"
	"github.com/Veraticus/workitem-scout/internal/config"
	"github.com/Veraticus/workitem-scout/internal/llm"
	"github.com/Veraticus/workitem-scout/internal/service"
	"github.com/Veraticus/workitem-scout/internal/storage"
)

// Seams replaced in tests.
var (
	newWorkItemSource = func(cfg ado.Config) (service.WorkItemSource, error) {
		client, err := ado.NewClient(cfg)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	newLLMClient = llm.NewClient
	openHistory  = initStorage
)

const defaultDatabasePath = "$HOME/.local/share/scout/scout.db"

// initStorage opens the history database with proper path expansion.
func initStorage(ctx context.Context) (service.HistoryStore, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = defaultDatabasePath
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// connect loads the ADO settings and builds the work item source.
func connect() (service.WorkItemSource, ado.Config, error) {
	cfg, err := config.LoadADOConfig(viper.GetViper())
	if err != nil {
		return nil, ado.Config{}, common.NewUserError(
			"Azure DevOps is not configured. Set ado.organization_url, ado.project and ado.pat (or AZURE_DEVOPS_ORG_URL, AZURE_DEVOPS_PROJECT, AZURE_DEVOPS_PAT).",
			err)
	}

	source, err := newWorkItemSource(cfg)
	if err != nil {
		return nil, ado.Config{}, fmt.Errorf("failed to create Azure DevOps client: %w", err)
	}
	return source, cfg, nil
}

// parseIDs converts positional work item IDs.
func parseIDs(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, arg := range args {
		id, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(arg), "#"))
		if err != nil || id <= 0 {
			return nil, common.NewUserError(fmt.Sprintf("invalid work item id %q", arg), common.ErrInvalidConfig)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
