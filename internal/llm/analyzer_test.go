package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/workitem-scout/internal/common"
	"github.com/Veraticus/workitem-scout/internal/model"
)

func testAnalyzer(t *testing.T, client Client) *Analyzer {
	t.Helper()
	a := NewAnalyzer(client, Config{MaxRetries: 2, RetryDelay: time.Millisecond})
	t.Cleanup(a.Close)
	return a
}

func candidate(id int, title string, conf model.Confidence) model.RelationshipResult {
	return model.RelationshipResult{
		Item:             model.WorkItemRef{ID: id, Title: title, Type: "Bug", AreaPath: `Proj\Web`},
		Confidence:       conf,
		RelationshipType: model.RelationshipRelated,
		Reasoning:        "heuristic",
	}
}

func TestAnalyzerAnalyze(t *testing.T) {
	source := model.WorkItemRef{ID: 1, Title: "Carousel ARIA labels missing", Description: "Screen readers skip slides"}

	t.Run("applies assessments and falls back on bad labels", func(t *testing.T) {
		mock := &MockClient{Response: "```json\n" + `[
			{"id": 10, "confidence": "HIGH", "relationship_type": "duplicate", "reasoning": "same defect"},
			{"id": 11, "confidence": "certain", "relationship_type": "sibling", "reasoning": ""},
			{"id": 99, "confidence": "high", "relationship_type": "related", "reasoning": "not offered"}
		]` + "\n```"}
		a := testAnalyzer(t, mock)

		results := []model.RelationshipResult{
			candidate(10, "Carousel focus order", model.ConfidenceMedium),
			candidate(11, "Slides autoplay", model.ConfidenceLow),
			candidate(12, "Footer links", model.ConfidenceLow),
		}

		got, err := a.Analyze(context.Background(), "Proj", source, results)
		require.NoError(t, err)
		require.Len(t, got, 3)

		assert.Equal(t, 10, got[0].Item.ID)
		assert.Equal(t, model.ConfidenceHigh, got[0].Confidence)
		assert.Equal(t, model.RelationshipDuplicate, got[0].RelationshipType)
		assert.Equal(t, "same defect", got[0].Reasoning)

		assert.Equal(t, model.ConfidenceLow, got[1].Confidence)
		assert.Equal(t, model.RelationshipRelated, got[1].RelationshipType)
		assert.Equal(t, "heuristic", got[1].Reasoning)

		assert.Equal(t, results[2], got[2])

		// input is not mutated
		assert.Equal(t, model.ConfidenceMedium, results[0].Confidence)

		require.Equal(t, 1, mock.Calls())
		assert.Contains(t, mock.Prompts[0], "Carousel ARIA labels missing")
		assert.Contains(t, mock.Prompts[0], "id: 12")
	})

	t.Run("empty candidates skip the model", func(t *testing.T) {
		mock := &MockClient{}
		a := testAnalyzer(t, mock)

		got, err := a.Analyze(context.Background(), "Proj", source, nil)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Equal(t, 0, mock.Calls())
	})

	t.Run("repeat requests hit the cache", func(t *testing.T) {
		mock := &MockClient{Response: `[{"id": 10, "confidence": "high"}]`}
		a := testAnalyzer(t, mock)
		results := []model.RelationshipResult{candidate(10, "Carousel focus order", model.ConfidenceLow)}

		_, err := a.Analyze(context.Background(), "Proj", source, results)
		require.NoError(t, err)
		got, err := a.Analyze(context.Background(), "proj", source, results)
		require.NoError(t, err)

		assert.Equal(t, 1, mock.Calls())
		assert.Equal(t, model.ConfidenceHigh, got[0].Confidence)
	})

	t.Run("malformed reply is retried", func(t *testing.T) {
		replies := []string{"I think 10 is related", `[{"id": 10, "confidence": "medium"}]`}
		mock := &MockClient{}
		mock.CompleteFn = func(_ context.Context, _, _ string) (string, error) {
			return replies[mock.Calls()-1], nil
		}
		a := testAnalyzer(t, mock)

		got, err := a.Analyze(context.Background(), "Proj", source, []model.RelationshipResult{candidate(10, "x title", model.ConfidenceLow)})
		require.NoError(t, err)
		assert.Equal(t, model.ConfidenceMedium, got[0].Confidence)
		assert.Equal(t, 2, mock.Calls())
	})

	t.Run("permanent errors are returned", func(t *testing.T) {
		boom := errors.New("invalid api key")
		mock := &MockClient{CompleteFn: func(context.Context, string, string) (string, error) {
			return "", boom
		}}
		a := testAnalyzer(t, mock)

		_, err := a.Analyze(context.Background(), "Proj", source, []model.RelationshipResult{candidate(10, "x title", model.ConfidenceLow)})
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, mock.Calls())
	})

	t.Run("retryable errors exhaust attempts", func(t *testing.T) {
		mock := &MockClient{CompleteFn: func(context.Context, string, string) (string, error) {
			return "", &common.RetryableError{Err: errors.New("overloaded"), Retryable: true}
		}}
		a := testAnalyzer(t, mock)

		_, err := a.Analyze(context.Background(), "Proj", source, []model.RelationshipResult{candidate(10, "x title", model.ConfidenceLow)})
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrMaxRetries)
		assert.Equal(t, 2, mock.Calls())
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		a := testAnalyzer(t, &MockClient{Response: "[]"})

		_, err := a.Analyze(ctx, "Proj", source, []model.RelationshipResult{candidate(10, "x title", model.ConfidenceLow)})
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestBuildPromptTruncatesDescription(t *testing.T) {
	long := make([]rune, maxDescriptionRunes+50)
	for i := range long {
		long[i] = 'é'
	}
	source := model.WorkItemRef{ID: 1, Title: "Source title", Description: string(long), Tags: "a11y; web"}

	prompt := buildPrompt(source, nil)
	assert.Contains(t, prompt, "tags: a11y, web")
	assert.Contains(t, prompt, string(long[:maxDescriptionRunes])+"...")
	assert.NotContains(t, prompt, string(long[:maxDescriptionRunes+1]))
}
