package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Azure DevOps field reference names read into a WorkItemRef.
const (
	FieldTitle         = "System.Title"
	FieldWorkItemType  = "System.WorkItemType"
	FieldState         = "System.State"
	FieldAreaPath      = "System.AreaPath"
	FieldIterationPath = "System.IterationPath"
	FieldAssignedTo    = "System.AssignedTo"
	FieldTags          = "System.Tags"
	FieldCreatedDate   = "System.CreatedDate"
	FieldDescription   = "System.Description"
)

// WorkItemFields lists every field NewWorkItemRef understands, in the order
// they are requested from the backend.
var WorkItemFields = []string{
	FieldTitle,
	FieldWorkItemType,
	FieldState,
	FieldAreaPath,
	FieldIterationPath,
	FieldAssignedTo,
	FieldTags,
	FieldCreatedDate,
	FieldDescription,
}

// ErrInvalidWorkItem is returned when a backend record cannot be turned into a WorkItemRef.
var ErrInvalidWorkItem = errors.New("invalid work item")

// WorkItemRef is an immutable snapshot of a work item as fetched from the source.
// Callers must treat values as read-only; the slices returned by helpers are copies.
type WorkItemRef struct {
	CreatedDate   time.Time
	Title         string
	Type          string
	State         string
	AreaPath      string
	IterationPath string
	AssignedTo    string
	Tags          string // semicolon-delimited, as stored by the backend
	Description   string
	ID            int
}

// NewWorkItemRef builds a WorkItemRef from a backend field map.
// It is the only place field maps are interpreted; every source adapter must use it.
func NewWorkItemRef(id int, fields map[string]any) (WorkItemRef, error) {
	if id <= 0 {
		return WorkItemRef{}, fmt.Errorf("%w: id must be positive, got %d", ErrInvalidWorkItem, id)
	}

	ref := WorkItemRef{
		ID:            id,
		Title:         strings.TrimSpace(stringField(fields, FieldTitle)),
		Type:          stringField(fields, FieldWorkItemType),
		State:         stringField(fields, FieldState),
		AreaPath:      stringField(fields, FieldAreaPath),
		IterationPath: stringField(fields, FieldIterationPath),
		AssignedTo:    identityField(fields, FieldAssignedTo),
		Tags:          stringField(fields, FieldTags),
		Description:   stringField(fields, FieldDescription),
	}

	if ref.Title == "" {
		return WorkItemRef{}, fmt.Errorf("%w: work item %d has no title", ErrInvalidWorkItem, id)
	}

	if raw := stringField(fields, FieldCreatedDate); raw != "" {
		created, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return WorkItemRef{}, fmt.Errorf("%w: work item %d has malformed created date %q", ErrInvalidWorkItem, id, raw)
		}
		ref.CreatedDate = created.UTC()
	}

	return ref, nil
}

// TagList returns the trimmed, non-empty tags.
func (w WorkItemRef) TagList() []string {
	if w.Tags == "" {
		return nil
	}
	parts := strings.Split(w.Tags, ";")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// AreaSegments splits the backslash-delimited area path.
func (w WorkItemRef) AreaSegments() []string {
	return SplitAreaPath(w.AreaPath)
}

// SplitAreaPath splits a backslash-delimited area path, dropping empty segments.
func SplitAreaPath(path string) []string {
	var segments []string
	for _, seg := range strings.Split(path, `\`) {
		if seg = strings.TrimSpace(seg); seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}

// InAreaPath reports whether the item sits at or below the given area path.
func (w WorkItemRef) InAreaPath(path string) bool {
	if path == "" || w.AreaPath == "" {
		return false
	}
	item := strings.ToLower(w.AreaPath)
	area := strings.ToLower(strings.TrimRight(path, `\`))
	return item == area || strings.HasPrefix(item, area+`\`)
}

func stringField(fields map[string]any, name string) string {
	v, ok := fields[name]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// identityField handles System.AssignedTo, which the REST API returns as an
// identity object but older servers and test fixtures return as a plain string.
func identityField(fields map[string]any, name string) string {
	v, ok := fields[name]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case map[string]any:
		if display, ok := val["displayName"].(string); ok && display != "" {
			return display
		}
		if unique, ok := val["uniqueName"].(string); ok {
			return unique
		}
	}
	return ""
}
