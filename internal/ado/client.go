package ado

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/workitem-scout/internal/common"
	"github.com/Veraticus/workitem-scout/internal/model"
	"github.com/Veraticus/workitem-scout/internal/service"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	apiVersion = "7.1"

	// batchSize is the workitemsbatch endpoint's per-request ID ceiling.
	batchSize = 200
	teamsPage = 1000

	// resultSetTooLargeCode is the server error raised when a WIQL query exceeds
	// the 20,000 row ceiling.
	resultSetTooLargeCode = "VS402337"
)

// Client implements service.WorkItemSource against the Azure DevOps REST API.
type Client struct {
	http      *resty.Client
	limiter   *rate.Limiter
	logger    *slog.Logger
	project   string
	retryOpts service.RetryOptions
}

// NewClient creates a new Azure DevOps client with the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.OrganizationURL, "/")).
		SetBasicAuth("", cfg.PAT).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	limit := rate.Inf
	burst := 0
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
		burst = max(1, int(cfg.RateLimit))
	}

	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	return &Client{
		http:    httpClient,
		limiter: rate.NewLimiter(limit, burst),
		project: cfg.Project,
		logger:  slog.Default().With("component", "ado"),
		retryOpts: service.RetryOptions{
			MaxAttempts:  maxRetries,
			InitialDelay: retryDelay,
			MaxDelay:     min(30*time.Second, 16*retryDelay),
			Multiplier:   2.0,
		},
	}, nil
}

// Project returns the default project used when a call does not name one.
func (c *Client) Project() string {
	return c.project
}

// QueryByFilter runs a WIQL query and hydrates the matching work items.
func (c *Client) QueryByFilter(ctx context.Context, filter service.QueryFilter) ([]model.WorkItemRef, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}
	project := c.projectOrDefault(filter.Project)
	query := BuildWIQL(filter)

	c.logger.Debug("Running WIQL query",
		"project", project,
		"area_path", filter.AreaPath,
		"limit", filter.Limit,
		"query", query)

	var result wiqlResponse
	err := c.do(ctx, "query work items", func() (*resty.Response, error) {
		req := c.http.R().
			SetContext(ctx).
			SetPathParam("project", project).
			SetQueryParam("api-version", apiVersion).
			SetBody(wiqlRequest{Query: query}).
			SetResult(&result)
		if filter.Limit > 0 {
			req.SetQueryParam("$top", strconv.Itoa(filter.Limit))
		}
		return req.Post("/{project}/_apis/wit/wiql")
	})
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(result.WorkItems))
	for _, ref := range result.WorkItems {
		ids = append(ids, ref.ID)
	}
	if filter.Limit > 0 && len(ids) > filter.Limit {
		ids = ids[:filter.Limit]
	}

	return c.fetchBatch(ctx, project, ids)
}

// GetByID fetches a single work item.
func (c *Client) GetByID(ctx context.Context, project string, id int) (model.WorkItemRef, error) {
	project = c.projectOrDefault(project)

	var item workItem
	err := c.do(ctx, fmt.Sprintf("get work item %d", id), func() (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetPathParam("project", project).
			SetPathParam("id", strconv.Itoa(id)).
			SetQueryParam("api-version", apiVersion).
			SetQueryParam("fields", strings.Join(model.WorkItemFields, ",")).
			SetResult(&item).
			Get("/{project}/_apis/wit/workitems/{id}")
	})
	if err != nil {
		return model.WorkItemRef{}, err
	}

	if item.ID == 0 {
		item.ID = id
	}
	return model.NewWorkItemRef(item.ID, item.Fields)
}

// GetLinks returns the work-item relations of an item. Non work-item links
// (attachments, hyperlinks, commits) are ignored.
func (c *Client) GetLinks(ctx context.Context, project string, id int) ([]model.Link, error) {
	project = c.projectOrDefault(project)

	var item workItem
	err := c.do(ctx, fmt.Sprintf("get links for work item %d", id), func() (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetPathParam("project", project).
			SetPathParam("id", strconv.Itoa(id)).
			SetQueryParam("api-version", apiVersion).
			SetQueryParam("$expand", "relations").
			SetResult(&item).
			Get("/{project}/_apis/wit/workitems/{id}")
	})
	if err != nil {
		return nil, err
	}

	links := make([]model.Link, 0, len(item.Relations))
	for _, rel := range item.Relations {
		target, ok := workItemIDFromURL(rel.URL)
		if !ok || target == id {
			continue
		}
		links = append(links, model.Link{Type: rel.Rel, TargetID: target})
	}
	return links, nil
}

// ListTeams lists every team in the project.
func (c *Client) ListTeams(ctx context.Context, project string) ([]service.TeamInfo, error) {
	project = c.projectOrDefault(project)

	var teams []service.TeamInfo
	for skip := 0; ; skip += teamsPage {
		var page teamsResponse
		err := c.do(ctx, "list teams", func() (*resty.Response, error) {
			return c.http.R().
				SetContext(ctx).
				SetPathParam("project", project).
				SetQueryParam("api-version", apiVersion).
				SetQueryParam("$top", strconv.Itoa(teamsPage)).
				SetQueryParam("$skip", strconv.Itoa(skip)).
				SetResult(&page).
				Get("/_apis/projects/{project}/teams")
		})
		if err != nil {
			return nil, err
		}

		for _, t := range page.Value {
			teams = append(teams, service.TeamInfo{Name: t.Name, ID: t.ID})
		}

		if len(page.Value) < teamsPage {
			break
		}
	}

	c.logger.Info("Fetched teams", "project", project, "count", len(teams))
	return teams, nil
}

// GetAreaPath returns the team's default area path, or an empty string when the
// team has no area configured.
func (c *Client) GetAreaPath(ctx context.Context, project, teamName string) (string, error) {
	project = c.projectOrDefault(project)

	var values teamFieldValuesResponse
	err := c.do(ctx, fmt.Sprintf("get area path for team %s", teamName), func() (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetPathParam("project", project).
			SetPathParam("team", teamName).
			SetQueryParam("api-version", apiVersion).
			SetResult(&values).
			Get("/{project}/{team}/_apis/work/teamsettings/teamfieldvalues")
	})
	if errors.Is(err, common.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	if values.DefaultValue != "" {
		return values.DefaultValue, nil
	}
	if len(values.Values) > 0 {
		return values.Values[0].Value, nil
	}
	return "", nil
}

// fetchBatch hydrates IDs in chunks, preserving the order of ids.
func (c *Client) fetchBatch(ctx context.Context, project string, ids []int) ([]model.WorkItemRef, error) {
	if len(ids) == 0 {
		return []model.WorkItemRef{}, nil
	}

	byID := make(map[int]workItem, len(ids))
	for start := 0; start < len(ids); start += batchSize {
		end := min(start+batchSize, len(ids))
		chunk := ids[start:end]

		var batch workItemsBatchResponse
		err := c.do(ctx, "fetch work items", func() (*resty.Response, error) {
			return c.http.R().
				SetContext(ctx).
				SetPathParam("project", project).
				SetQueryParam("api-version", apiVersion).
				SetBody(workItemsBatchRequest{IDs: chunk, Fields: model.WorkItemFields}).
				SetResult(&batch).
				Post("/{project}/_apis/wit/workitemsbatch")
		})
		if err != nil {
			return nil, err
		}

		for _, item := range batch.Value {
			byID[item.ID] = item
		}
	}

	refs := make([]model.WorkItemRef, 0, len(ids))
	for _, id := range ids {
		item, ok := byID[id]
		if !ok {
			c.logger.Debug("Work item missing from batch response", "id", id)
			continue
		}
		ref, err := model.NewWorkItemRef(item.ID, item.Fields)
		if err != nil {
			c.logger.Warn("Skipping malformed work item", "id", id, "error", err)
			continue
		}
		refs = append(refs, ref)
	}

	return refs, nil
}

// do runs one request under the rate limiter and retry policy, translating
// transport failures and HTTP statuses into the source error taxonomy.
func (c *Client) do(ctx context.Context, operation string, send func() (*resty.Response, error)) error {
	return common.WithRetry(ctx, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s: %w", operation, err)
		}

		resp, err := send()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("%w: %s: %v", common.ErrSourceUnavailable, operation, err)
		}

		return checkResponse(operation, resp.StatusCode(), resp.Body())
	}, c.retryOpts)
}

func (c *Client) projectOrDefault(project string) string {
	if project == "" {
		return c.project
	}
	return project
}

// checkResponse maps an HTTP status to the source error taxonomy.
func checkResponse(operation string, status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	msg := errorMessage(body)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s: azure devops returned %d: %s", common.ErrSourceUnavailable, operation, status, msg)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s: %s", common.ErrNotFound, operation, msg)
	case status == http.StatusTooManyRequests:
		return &common.RetryableError{Err: fmt.Errorf("%w: %s", common.ErrRateLimit, operation), Retryable: true}
	case status >= 500:
		return &common.RetryableError{
			Err:       fmt.Errorf("%s: azure devops returned %d: %s", operation, status, msg),
			Retryable: true,
		}
	case isResultSetTooLarge(msg):
		return fmt.Errorf("%w: %s: %s", common.ErrResultSetTooLarge, operation, msg)
	default:
		return fmt.Errorf("%s: azure devops returned %d: %s", operation, status, msg)
	}
}

func errorMessage(body []byte) string {
	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		return parsed.Message
	}
	return strings.TrimSpace(string(body))
}

func isResultSetTooLarge(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(msg, resultSetTooLargeCode) ||
		strings.Contains(lower, "size limit") ||
		strings.Contains(lower, "exceeds the maximum")
}

// workItemIDFromURL extracts the target ID from a .../_apis/wit/workItems/{id} relation URL.
func workItemIDFromURL(rawURL string) (int, bool) {
	idx := strings.LastIndex(strings.ToLower(rawURL), "/_apis/wit/workitems/")
	if idx < 0 {
		return 0, false
	}
	tail := rawURL[idx+len("/_apis/wit/workitems/"):]
	if cut := strings.IndexAny(tail, "/?"); cut >= 0 {
		tail = tail[:cut]
	}
	id, err := strconv.Atoi(tail)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Ensure Client implements the WorkItemSource interface.
var _ service.WorkItemSource = (*Client)(nil)
