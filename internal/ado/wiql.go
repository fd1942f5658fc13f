package ado

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Veraticus/workitem-scout/internal/service"
)

// wiqlDateFormat is the day precision WIQL accepts without timePrecision=true.
const wiqlDateFormat = "2006-01-02"

// BuildWIQL constructs a flat WIQL query for a filter.
func BuildWIQL(filter service.QueryFilter) string {
	parts := []string{"[System.TeamProject] = @project"}

	if filter.AreaPath != "" {
		parts = append(parts, fmt.Sprintf("[System.AreaPath] UNDER %s", quote(filter.AreaPath)))
	}

	if len(filter.WorkItemTypes) > 0 {
		parts = append(parts, fmt.Sprintf("[System.WorkItemType] IN (%s)", quoteList(filter.WorkItemTypes)))
	}

	if len(filter.States) > 0 {
		parts = append(parts, fmt.Sprintf("[System.State] IN (%s)", quoteList(filter.States)))
	}

	if filter.DateRange != nil {
		if !filter.DateRange.Start.IsZero() {
			parts = append(parts, fmt.Sprintf("[System.CreatedDate] >= %s", quote(filter.DateRange.Start.Format(wiqlDateFormat))))
		}
		if !filter.DateRange.End.IsZero() {
			parts = append(parts, fmt.Sprintf("[System.CreatedDate] < %s", quote(filter.DateRange.End.Format(wiqlDateFormat))))
		}
	}

	if len(filter.TitleKeywords) > 0 {
		clauses := make([]string, 0, len(filter.TitleKeywords))
		for _, kw := range filter.TitleKeywords {
			clauses = append(clauses, fmt.Sprintf("[System.Title] CONTAINS %s", quote(kw)))
		}
		parts = append(parts, "("+strings.Join(clauses, " OR ")+")")
	}

	for _, id := range filter.ExcludeIDs {
		parts = append(parts, "[System.Id] <> "+strconv.Itoa(id))
	}

	return "SELECT [System.Id] FROM WorkItems WHERE " + strings.Join(parts, " AND ") +
		" ORDER BY [System.CreatedDate] DESC"
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func quoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = quote(v)
	}
	return strings.Join(quoted, ", ")
}
