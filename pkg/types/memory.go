package types

import (
	"time"
)

// MemoryRecord represents a single user-visible memory: a titled event pinned
// to a location with a date range and zero or more attached media assets.
type MemoryRecord struct {
	// ID is the stable record identity assigned on first insert.
	// 0 means the record has not been persisted yet.
	ID int64 `json:"id"`

	// Title is the user-supplied name of the memory. Never empty once persisted.
	Title string `json:"title"`

	// Description is optional free text.
	Description string `json:"description,omitempty"`

	// Latitude and Longitude are WGS84 degrees.
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	// PlaceName and Address are optional location metadata from the place
	// picker. When both are present on two records and match exactly, the
	// records are treated as sharing a location regardless of distance.
	PlaceName string `json:"place_name,omitempty"`
	Address   string `json:"address,omitempty"`

	// StartDate and EndDate bound the memory in time. The editing layer
	// guarantees EndDate is never before StartDate at persistence time;
	// storage does not re-validate this.
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`

	// AllDay marks memories without a meaningful time of day. When set, the
	// times are normalized to start-of-day / end-of-day before persistence.
	AllDay bool `json:"all_day"`

	// MarkerHue is the map marker hue in degrees. May be supplied
	// un-normalized; use NormalizeHue before rendering.
	MarkerHue float64 `json:"marker_hue"`
}

// MediaAsset is one photo or video belonging to a MemoryRecord. Assets are
// exclusively owned by their record; deleting the record deletes its assets.
type MediaAsset struct {
	// ID is assigned on first insert; 0 means not yet persisted.
	ID int64 `json:"id"`

	// MemoryID is the owning record (foreign key, cascade delete).
	MemoryID int64 `json:"memory_id"`

	// URI locates the underlying media file on the device that created the
	// asset. After a cross-device restore it may point at another device's
	// storage until reconciliation rewrites it.
	URI string `json:"uri"`

	// DeviceID is the installation identifier of the device the URI is valid on.
	DeviceID string `json:"device_id"`

	// Kind is image or video.
	Kind MediaKind `json:"kind"`

	// Signature is the content fingerprint in "{sizeBytes}_{partialHash}"
	// format. Computed once at creation; recomputed only during restore
	// reconciliation. Must stay stable across versions.
	Signature string `json:"signature"`

	// FileSize is the asset size in bytes.
	FileSize int64 `json:"file_size"`

	// DateTaken is the capture timestamp in epoch milliseconds, 0 if unknown.
	DateTaken int64 `json:"date_taken"`
}

// Validate checks the record invariants enforced at save time.
func (m *MemoryRecord) Validate() error {
	if m.Title == "" {
		return ErrEmptyTitle
	}
	if m.StartDate.IsZero() || m.EndDate.IsZero() {
		return ErrMissingDates
	}
	return nil
}

// NormalizeAllDay returns a copy of the record with times normalized for
// all-day memories: start of day for StartDate and 23:59:59 for EndDate,
// both in the timestamp's own zone. Records without AllDay are unchanged.
func (m MemoryRecord) NormalizeAllDay() MemoryRecord {
	if !m.AllDay {
		return m
	}
	sy, sm, sd := m.StartDate.Date()
	ey, em, ed := m.EndDate.Date()
	m.StartDate = time.Date(sy, sm, sd, 0, 0, 0, 0, m.StartDate.Location())
	m.EndDate = time.Date(ey, em, ed, 23, 59, 59, 0, m.EndDate.Location())
	return m
}

// StartDay returns the calendar date of StartDate in the record's own zone,
// represented as midnight UTC so dates compare with time.Before/After.
func (m *MemoryRecord) StartDay() time.Time {
	return DayOf(m.StartDate)
}

// EndDay returns the calendar date of EndDate in the record's own zone.
func (m *MemoryRecord) EndDay() time.Time {
	return DayOf(m.EndDate)
}

// DayOf truncates a timestamp to its calendar date in its own zone and
// re-anchors it at midnight UTC, making dates directly comparable.
func DayOf(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

// FormattedDate renders the record's date range for display: bare dates for
// all-day memories, dates with times otherwise, collapsing equal endpoints.
func (m *MemoryRecord) FormattedDate() string {
	const dateLayout = "Jan 2, 2006"
	const timeLayout = "15:04"

	startDay := m.StartDate.Format(dateLayout)
	endDay := m.EndDate.Format(dateLayout)

	if m.AllDay {
		if startDay == endDay {
			return startDay
		}
		return startDay + " - " + endDay
	}

	startTime := m.StartDate.Format(timeLayout)
	endTime := m.EndDate.Format(timeLayout)
	if startDay == endDay {
		return startDay + " " + startTime + " - " + endTime
	}
	return startDay + " " + startTime + " - " + endDay + " " + endTime
}
