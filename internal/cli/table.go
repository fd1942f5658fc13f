package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/workitem-scout/internal/discovery"
	"github.com/Veraticus/workitem-scout/internal/model"
	"github.com/Veraticus/workitem-scout/internal/service"
)

const maxTitleWidth = 60

// RenderResults writes a search outcome as a summary box and a result table.
func RenderResults(w io.Writer, outcome *discovery.SearchOutcome) error {
	summary := fmt.Sprintf("Source:    #%d %s\n", outcome.Source.ID, outcome.Source.Title) +
		fmt.Sprintf("Strategy:  %s\n", outcome.Strategy.Label()) +
		fmt.Sprintf("Teams:     %d\n", len(outcome.Teams)) +
		fmt.Sprintf("Queries:   %d", outcome.Queries)
	if len(outcome.Keywords) > 0 {
		summary += "\nKeywords:  " + strings.Join(outcome.Keywords, ", ")
	}
	if outcome.CacheHit {
		summary += "\n" + SubtleStyle.Render("(cached result)")
	}

	if _, err := fmt.Fprintln(w, RenderBox("Related Work Items", summary)); err != nil {
		return err
	}

	if outcome.FailedQueries > 0 {
		msg := fmt.Sprintf("%d of %d queries failed; results may be incomplete", outcome.FailedQueries, outcome.Queries)
		if _, err := fmt.Fprintln(w, FormatWarning(msg)); err != nil {
			return err
		}
	}

	if len(outcome.Results) == 0 {
		_, err := fmt.Fprintln(w, FormatInfo("No related work items found"))
		return err
	}

	rows := make([][]string, 0, len(outcome.Results))
	styles := make([]lipgloss.Style, 0, len(outcome.Results))
	for _, r := range outcome.Results {
		rows = append(rows, []string{
			strconv.Itoa(r.Item.ID),
			string(r.Confidence),
			r.RelationshipType,
			r.Item.Type,
			r.Item.State,
			truncate(r.Item.Title, maxTitleWidth),
		})
		styles = append(styles, ConfidenceStyle(r.Confidence))
	}

	return writeTable(w, []string{"ID", "CONFIDENCE", "RELATION", "TYPE", "STATE", "TITLE"}, rows, func(row, col int) lipgloss.Style {
		if col == 1 {
			return styles[row]
		}
		return lipgloss.NewStyle()
	})
}

// RenderWorkItem writes a single work item's details.
func RenderWorkItem(w io.Writer, item model.WorkItemRef) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Type:      %s\n", item.Type)
	fmt.Fprintf(&b, "State:     %s\n", item.State)
	fmt.Fprintf(&b, "Area:      %s\n", item.AreaPath)
	if item.IterationPath != "" {
		fmt.Fprintf(&b, "Iteration: %s\n", item.IterationPath)
	}
	if item.AssignedTo != "" {
		fmt.Fprintf(&b, "Assigned:  %s\n", item.AssignedTo)
	}
	if tags := item.TagList(); len(tags) > 0 {
		fmt.Fprintf(&b, "Tags:      %s\n", strings.Join(tags, ", "))
	}
	if !item.CreatedDate.IsZero() {
		fmt.Fprintf(&b, "Created:   %s\n", item.CreatedDate.Format("2006-01-02"))
	}
	if item.Description != "" {
		fmt.Fprintf(&b, "\n%s", truncate(item.Description, 500))
	}

	_, err := fmt.Fprintln(w, RenderBox(fmt.Sprintf("#%d %s", item.ID, item.Title), strings.TrimRight(b.String(), "\n")))
	return err
}

// RenderTeams writes the team list with verification status.
func RenderTeams(w io.Writer, teams []model.Team) error {
	if len(teams) == 0 {
		_, err := fmt.Fprintln(w, FormatInfo("No teams found"))
		return err
	}

	rows := make([][]string, 0, len(teams))
	for _, t := range teams {
		verified := ""
		if t.Verified {
			verified = SuccessIcon
		}
		rows = append(rows, []string{t.Name, verified, t.AreaPath})
	}
	return writeTable(w, []string{"TEAM", "VERIFIED", "AREA PATH"}, rows, nil)
}

// RenderHistory writes recent search runs.
func RenderHistory(w io.Writer, runs []service.SearchRun) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, FormatInfo("No searches recorded yet"))
		return err
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.ID,
			fmt.Sprintf("%s #%d", r.Project, r.SourceID),
			r.Scope + "/" + r.Mode,
			strconv.Itoa(r.ResultCount),
			strconv.Itoa(r.FailedQueries),
			r.Duration.Round(10 * time.Millisecond).String(),
		})
	}
	return writeTable(w, []string{"WHEN", "RUN", "SOURCE", "STRATEGY", "RESULTS", "FAILED", "TOOK"}, rows, nil)
}

// RenderRun writes one stored run and its results.
func RenderRun(w io.Writer, run *service.SearchRun) error {
	summary := fmt.Sprintf("Source:    %s #%d\n", run.Project, run.SourceID) +
		fmt.Sprintf("Strategy:  %s/%s\n", run.Scope, run.Mode) +
		fmt.Sprintf("Dates:     %s\n", run.DateFilter) +
		fmt.Sprintf("When:      %s", run.CreatedAt.Local().Format(time.RFC1123))
	if _, err := fmt.Fprintln(w, RenderBox("Search "+run.ID, summary)); err != nil {
		return err
	}

	rows := make([][]string, 0, len(run.Results))
	for _, r := range run.Results {
		rows = append(rows, []string{
			strconv.Itoa(r.Rank),
			strconv.Itoa(r.ItemID),
			r.Confidence,
			r.RelationshipType,
			truncate(r.Title, maxTitleWidth),
		})
	}
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, FormatInfo("The run found no related work items"))
		return err
	}
	return writeTable(w, []string{"#", "ID", "CONFIDENCE", "RELATION", "TITLE"}, rows, nil)
}

// writeTable pads columns by display width so styled cells stay aligned.
func writeTable(w io.Writer, headers []string, rows [][]string, style func(row, col int) lipgloss.Style) error {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if cw := lipgloss.Width(cell); cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	var b strings.Builder
	for i, h := range headers {
		b.WriteString(TableHeaderStyle.Render(pad(h, widths[i])))
		if i < len(headers)-1 {
			b.WriteString("  ")
		}
	}
	b.WriteString("\n")

	for r, row := range rows {
		for i, cell := range row {
			padded := pad(cell, widths[i])
			if style != nil {
				padded = style(r, i).Render(padded)
			}
			b.WriteString(padded)
			if i < len(row)-1 {
				b.WriteString("  ")
			}
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func pad(s string, width int) string {
	if gap := width - lipgloss.Width(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
