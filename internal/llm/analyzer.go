package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Veraticus/workitem-scout/internal/common"
	"github.com/Veraticus/workitem-scout/internal/model"
	"github.com/Veraticus/workitem-scout/internal/service"
)

// Analyzer refines heuristic relationship results with a language model.
type Analyzer struct {
	client    Client
	cache     *analysisCache
	limiter   *rate.Limiter
	logger    *slog.Logger
	retryOpts service.RetryOptions
}

// NewAnalyzer wraps a client with caching, rate limiting and retries.
func NewAnalyzer(client Client, cfg Config) *Analyzer {
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RateLimit))
	}

	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = time.Second
	}

	return &Analyzer{
		client:  client,
		cache:   newAnalysisCache(cfg.CacheTTL),
		limiter: rate.NewLimiter(limit, 1),
		logger:  common.ComponentLogger("llm"),
		retryOpts: service.RetryOptions{
			MaxAttempts:  cfg.MaxRetries,
			InitialDelay: retryDelay,
			MaxDelay:     16 * retryDelay,
			Multiplier:   2.0,
		},
	}
}

// Close releases the analyzer's cache.
func (a *Analyzer) Close() {
	a.cache.Close()
}

// Analyze asks the model to grade each candidate against the source item.
// Assessments for ids that were not offered are dropped; labels the model gets
// wrong fall back to the heuristic values already on the result.
func (a *Analyzer) Analyze(ctx context.Context, project string, source model.WorkItemRef, results []model.RelationshipResult) ([]model.RelationshipResult, error) {
	if len(results) == 0 {
		return []model.RelationshipResult{}, nil
	}

	ids := make([]int, len(results))
	for i, r := range results {
		ids[i] = r.Item.ID
	}
	key := analysisKey(project, source.ID, ids)

	assessments, ok := a.cache.get(key)
	if ok {
		a.logger.Debug("analysis cache hit", "source_id", source.ID, "candidates", len(ids))
	} else {
		var err error
		assessments, err = a.request(ctx, source, results)
		if err != nil {
			return nil, err
		}
		a.cache.set(key, assessments)
	}

	return a.merge(results, assessments), nil
}

func (a *Analyzer) request(ctx context.Context, source model.WorkItemRef, results []model.RelationshipResult) ([]Assessment, error) {
	prompt := buildPrompt(source, results)

	var assessments []Assessment
	err := common.WithRetry(ctx, func() error {
		if err := a.limiter.Wait(ctx); err != nil {
			return err
		}

		content, err := a.client.Complete(ctx, systemPrompt, prompt)
		if err != nil {
			return err
		}

		parsed, err := parseAssessments(content)
		if err != nil {
			// A malformed reply is worth one more sample.
			return &common.RetryableError{Err: err, Retryable: true}
		}
		assessments = parsed
		return nil
	}, a.retryOpts)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("relationship analysis for %d failed: %w", source.ID, err)
	}

	a.logger.Info("analysis complete", "source_id", source.ID, "candidates", len(results), "assessments", len(assessments))
	return assessments, nil
}

func (a *Analyzer) merge(results []model.RelationshipResult, assessments []Assessment) []model.RelationshipResult {
	byID := make(map[int]Assessment, len(assessments))
	offered := make(map[int]bool, len(results))
	for _, r := range results {
		offered[r.Item.ID] = true
	}
	for _, as := range assessments {
		if !offered[as.ID] {
			a.logger.Debug("dropping assessment for unknown item", "id", as.ID)
			continue
		}
		byID[as.ID] = as
	}

	merged := make([]model.RelationshipResult, len(results))
	for i, r := range results {
		merged[i] = r
		as, ok := byID[r.Item.ID]
		if !ok {
			continue
		}

		if c, err := model.ParseConfidence(as.Confidence); err == nil {
			merged[i].Confidence = c
		} else {
			a.logger.Debug("keeping heuristic confidence", "id", as.ID, "label", as.Confidence)
		}
		if rt, ok := relationshipType(as.RelationshipType); ok {
			merged[i].RelationshipType = rt
		}
		if reasoning := strings.TrimSpace(as.Reasoning); reasoning != "" {
			merged[i].Reasoning = reasoning
		}
	}
	return merged
}

func relationshipType(s string) (string, bool) {
	switch t := strings.ToLower(strings.TrimSpace(s)); t {
	case model.RelationshipRelated, model.RelationshipDependency, model.RelationshipBlocking,
		model.RelationshipDuplicate, model.RelationshipHierarchy:
		return t, true
	default:
		return "", false
	}
}
