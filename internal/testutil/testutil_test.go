package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/workitem-scout/internal/service"
)

func TestSetupTestDB(t *testing.T) {
	db := SetupTestDB(t,
		&service.SearchRun{Project: "Contoso", SourceID: 1, Scope: "specific", Mode: "title-keyword", CreatedAt: time.Now().Add(-time.Hour)},
		&service.SearchRun{Project: "Contoso", SourceID: 2, Scope: "generic", Mode: "team-batch", CreatedAt: time.Now()},
	)

	runs := db.MustRecentRuns(10)
	require.Len(t, runs, 2)
	assert.Equal(t, 2, runs[0].SourceID)

	store := db.Unclosable()
	require.NoError(t, store.Close())
	assert.Len(t, db.MustRecentRuns(10), 2, "database stays open")
}

func TestWorkItemBuilder(t *testing.T) {
	item := NewWorkItem(42, "Carousel ARIA labels missing").
		InArea(`Contoso\Web`).
		OfType("User Story").
		InState("New").
		Tagged("a11y", "web").
		Described("Screen readers skip slides").
		CreatedAgo(48 * time.Hour).
		Build()

	assert.Equal(t, 42, item.ID)
	assert.Equal(t, `Contoso\Web`, item.AreaPath)
	assert.Equal(t, "User Story", item.Type)
	assert.Equal(t, "New", item.State)
	assert.Equal(t, []string{"a11y", "web"}, item.TagList())
	assert.Equal(t, "Screen readers skip slides", item.Description)
	assert.WithinDuration(t, time.Now().Add(-48*time.Hour), item.CreatedDate, time.Minute)
}
