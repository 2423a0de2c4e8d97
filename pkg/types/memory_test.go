package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	now := time.Now()

	valid := MemoryRecord{Title: "Trip", StartDate: now, EndDate: now}
	assert.NoError(t, valid.Validate())

	noTitle := MemoryRecord{StartDate: now, EndDate: now}
	assert.ErrorIs(t, noTitle.Validate(), ErrEmptyTitle)

	noDates := MemoryRecord{Title: "Trip"}
	assert.ErrorIs(t, noDates.Validate(), ErrMissingDates)
}

func TestNormalizeAllDay(t *testing.T) {
	zone := time.FixedZone("CET", 3600)
	rec := MemoryRecord{
		Title:     "Picnic",
		AllDay:    true,
		StartDate: time.Date(2024, 6, 1, 14, 30, 12, 0, zone),
		EndDate:   time.Date(2024, 6, 2, 9, 5, 0, 0, zone),
	}

	got := rec.NormalizeAllDay()
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, zone), got.StartDate)
	assert.Equal(t, time.Date(2024, 6, 2, 23, 59, 59, 0, zone), got.EndDate)

	// Timed memories pass through untouched.
	timed := rec
	timed.AllDay = false
	assert.Equal(t, timed, timed.NormalizeAllDay())
}

func TestDayOfUsesOwnZone(t *testing.T) {
	// 23:30 on June 1 in UTC+10 is still June 1 for that record even though
	// it is June 1 13:30 UTC; a UTC-truncation would agree here, so use a
	// case where they diverge: 00:30 June 2 in UTC+10 is June 1 14:30 UTC.
	zone := time.FixedZone("AEST", 10*3600)
	ts := time.Date(2024, 6, 2, 0, 30, 0, 0, zone)

	require.Equal(t, time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), DayOf(ts))
}

func TestFormattedDate(t *testing.T) {
	start := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		rec  MemoryRecord
		want string
	}{
		{
			name: "all day single date",
			rec:  MemoryRecord{AllDay: true, StartDate: start, EndDate: start},
			want: "Jun 1, 2024",
		},
		{
			name: "all day range",
			rec:  MemoryRecord{AllDay: true, StartDate: start, EndDate: start.AddDate(0, 0, 2)},
			want: "Jun 1, 2024 - Jun 3, 2024",
		},
		{
			name: "timed same day",
			rec:  MemoryRecord{StartDate: start, EndDate: start.Add(2 * time.Hour)},
			want: "Jun 1, 2024 09:00 - 11:00",
		},
		{
			name: "timed across days",
			rec:  MemoryRecord{StartDate: start, EndDate: start.AddDate(0, 0, 1)},
			want: "Jun 1, 2024 09:00 - Jun 2, 2024 09:00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rec.FormattedDate())
		})
	}
}

func TestIsValidMediaKind(t *testing.T) {
	assert.True(t, IsValidMediaKind(MediaImage))
	assert.True(t, IsValidMediaKind(MediaVideo))
	assert.False(t, IsValidMediaKind(MediaKind("audio")))
}
