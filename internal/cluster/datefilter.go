package cluster

import (
	"time"

	"github.com/scrypster/waymark/pkg/types"
)

// DateRange is an inclusive calendar-date interval used to narrow the working
// set of records before clustering. The zero value means "no filter".
type DateRange struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether no filter is set.
func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// FilterOverlapping returns the records whose [start, end] date interval,
// truncated to calendar dates in each record's own zone, overlaps the filter:
// a record passes iff record.end >= filter.start and record.start <= filter.end.
// A zero range passes everything.
func FilterOverlapping(records []types.MemoryRecord, r DateRange) []types.MemoryRecord {
	if r.IsZero() {
		return records
	}

	filtered := make([]types.MemoryRecord, 0, len(records))
	for _, rec := range records {
		if !rec.EndDay().Before(r.Start) && !rec.StartDay().After(r.End) {
			filtered = append(filtered, rec)
		}
	}
	return filtered
}

// DeriveRange computes the default filter from the full data set: minimum
// start date to maximum end date, so everything is visible on first load.
// An empty data set yields the zero (no-op) range.
func DeriveRange(records []types.MemoryRecord) DateRange {
	var r DateRange
	for _, rec := range records {
		start, end := rec.StartDay(), rec.EndDay()
		if r.Start.IsZero() || start.Before(r.Start) {
			r.Start = start
		}
		if r.End.IsZero() || end.After(r.End) {
			r.End = end
		}
	}
	return r
}

// ExpandFor widens the range to include the given record. Expand, never
// shrink: a newly saved or navigated-to memory outside the active filter
// becomes visible without hiding anything already shown. Expanding the zero
// range adopts the record's own interval.
func (r DateRange) ExpandFor(rec *types.MemoryRecord) DateRange {
	start, end := rec.StartDay(), rec.EndDay()

	if r.Start.IsZero() || start.Before(r.Start) {
		r.Start = start
	}
	if r.End.IsZero() || end.After(r.End) {
		r.End = end
	}
	return r
}
