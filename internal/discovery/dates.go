package discovery

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/workitem-scout/internal/common"
	"github.com/Veraticus/workitem-scout/internal/service"
)

const (
	// DefaultDateFilter is applied when the caller does not choose one.
	DefaultDateFilter = "last-year"
	// DefaultWindowYears is the width of the slices a long range is split into so
	// that no single query approaches the backend's row ceiling.
	DefaultWindowYears = 3

	// minWindow is the narrowest window a too-large result set is split down to.
	minWindow = 30 * 24 * time.Hour

	dateLayout = "2006-01-02"
)

// earliestWorkItem predates any Azure DevOps (then TFS) collection.
var earliestWorkItem = time.Date(2006, 1, 1, 0, 0, 0, 0, time.UTC)

// DateFilters lists the relative labels ResolveDateFilter accepts.
var DateFilters = []string{
	"last-week", "last-month", "last-3-months", "last-6-months",
	"last-year", "last-3-years", "all",
}

// ResolveDateFilter turns a relative label or an explicit YYYY-MM-DD..YYYY-MM-DD
// range into a half-open range at day granularity. Relative ranges end at the
// start of tomorrow (UTC) so items created today are included; explicit end
// dates are inclusive.
func ResolveDateFilter(filter string, now time.Time) (service.DateRange, error) {
	filter = strings.ToLower(strings.TrimSpace(filter))
	if filter == "" {
		filter = DefaultDateFilter
	}

	today := now.UTC().Truncate(24 * time.Hour)
	end := today.AddDate(0, 0, 1)

	switch filter {
	case "last-week":
		return service.DateRange{Start: today.AddDate(0, 0, -7), End: end}, nil
	case "last-month":
		return service.DateRange{Start: today.AddDate(0, -1, 0), End: end}, nil
	case "last-3-months":
		return service.DateRange{Start: today.AddDate(0, -3, 0), End: end}, nil
	case "last-6-months":
		return service.DateRange{Start: today.AddDate(0, -6, 0), End: end}, nil
	case "last-year":
		return service.DateRange{Start: today.AddDate(-1, 0, 0), End: end}, nil
	case "last-3-years":
		return service.DateRange{Start: today.AddDate(-3, 0, 0), End: end}, nil
	case "all":
		return service.DateRange{Start: earliestWorkItem, End: end}, nil
	}

	from, to, ok := strings.Cut(filter, "..")
	if !ok {
		return service.DateRange{}, fmt.Errorf("%w: unknown date filter %q: use one of %s or YYYY-MM-DD..YYYY-MM-DD",
			common.ErrInvalidConfig, filter, strings.Join(DateFilters, ", "))
	}

	start, err := time.Parse(dateLayout, strings.TrimSpace(from))
	if err != nil {
		return service.DateRange{}, fmt.Errorf("%w: invalid start date %q", common.ErrInvalidConfig, from)
	}
	last, err := time.Parse(dateLayout, strings.TrimSpace(to))
	if err != nil {
		return service.DateRange{}, fmt.Errorf("%w: invalid end date %q", common.ErrInvalidConfig, to)
	}
	if last.Before(start) {
		return service.DateRange{}, fmt.Errorf("%w: date range %q ends before it starts", common.ErrInvalidConfig, filter)
	}

	return service.DateRange{Start: start, End: last.AddDate(0, 0, 1)}, nil
}

// PartitionRange splits r into consecutive windows of at most years width,
// oldest first. Ranges that already fit are returned unchanged.
func PartitionRange(r service.DateRange, years int) []service.DateRange {
	if years <= 0 || !r.Start.AddDate(years, 0, 0).Before(r.End) {
		return []service.DateRange{r}
	}

	var windows []service.DateRange
	for cur := r.Start; cur.Before(r.End); {
		next := cur.AddDate(years, 0, 0)
		if next.After(r.End) {
			next = r.End
		}
		windows = append(windows, service.DateRange{Start: cur, End: next})
		cur = next
	}
	return windows
}

// splitRange halves r on a day boundary. It reports false when r is already at
// the minimum window width.
func splitRange(r service.DateRange) (service.DateRange, service.DateRange, bool) {
	if r.Duration() <= minWindow {
		return r, service.DateRange{}, false
	}
	mid := r.Start.Add(r.Duration() / 2).Truncate(24 * time.Hour)
	if !mid.After(r.Start) || !mid.Before(r.End) {
		return r, service.DateRange{}, false
	}
	return service.DateRange{Start: r.Start, End: mid}, service.DateRange{Start: mid, End: r.End}, true
}

func formatRange(r *service.DateRange) string {
	if r == nil {
		return "all time"
	}
	return r.Start.Format(dateLayout) + ".." + r.End.Format(dateLayout)
}
