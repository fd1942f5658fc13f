package testutil

import (
	"strings"
	"time"

	"github.com/Veraticus/workitem-scout/internal/model"
)

// WorkItemBuilder builds WorkItemRef fixtures with a fluent API.
//
// Example:
//
//	item := testutil.NewWorkItem(42, "Carousel ARIA labels missing").
//		InArea(`Contoso\Web`).
//		Tagged("a11y").
//		Build()
type WorkItemBuilder struct {
	item model.WorkItemRef
}

// NewWorkItem starts an active Bug created a week ago.
func NewWorkItem(id int, title string) *WorkItemBuilder {
	return &WorkItemBuilder{item: model.WorkItemRef{
		ID:          id,
		Title:       title,
		Type:        "Bug",
		State:       "Active",
		CreatedDate: time.Now().UTC().AddDate(0, 0, -7),
	}}
}

// InArea sets the area path.
func (b *WorkItemBuilder) InArea(path string) *WorkItemBuilder {
	b.item.AreaPath = path
	return b
}

// OfType sets the work item type.
func (b *WorkItemBuilder) OfType(t string) *WorkItemBuilder {
	b.item.Type = t
	return b
}

// InState sets the state.
func (b *WorkItemBuilder) InState(s string) *WorkItemBuilder {
	b.item.State = s
	return b
}

// Tagged sets the tags, joined the way the backend stores them.
func (b *WorkItemBuilder) Tagged(tags ...string) *WorkItemBuilder {
	b.item.Tags = strings.Join(tags, "; ")
	return b
}

// CreatedAgo backdates the creation time.
func (b *WorkItemBuilder) CreatedAgo(d time.Duration) *WorkItemBuilder {
	b.item.CreatedDate = time.Now().UTC().Add(-d)
	return b
}

// Described sets the description.
func (b *WorkItemBuilder) Described(text string) *WorkItemBuilder {
	b.item.Description = text
	return b
}

// Build returns the work item.
func (b *WorkItemBuilder) Build() model.WorkItemRef {
	return b.item
}
