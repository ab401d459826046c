package scraper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseDateRange(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		start     *time.Time
		end       *time.Time
		precision string
	}{
		{
			name:      "closed month range",
			in:        "Nov 2022 - May 2023",
			start:     ptr(date(2022, time.November, 1)),
			end:       ptr(date(2023, time.May, 31)),
			precision: "month",
		},
		{
			name:      "open range",
			in:        "May 2021 - Present",
			start:     ptr(date(2021, time.May, 1)),
			precision: "month",
		},
		{
			name:      "year only",
			in:        "2019 - 2021",
			start:     ptr(date(2019, time.January, 1)),
			end:       ptr(date(2021, time.December, 31)),
			precision: "year",
		},
		{
			name:      "full month name",
			in:        "September 2020 - Present",
			start:     ptr(date(2020, time.September, 1)),
			precision: "month",
		},
		{
			name:      "start only",
			in:        "Jan 2024",
			start:     ptr(date(2024, time.January, 1)),
			precision: "month",
		},
		{name: "empty", in: "", precision: "none"},
		{name: "garbage", in: "a while ago", precision: "none"},
		{name: "bad year", in: "Nov 22 - May 23", precision: "none"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDateRange(tt.in)
			assert.Equal(t, tt.precision, got.Precision)
			requireTimeEqual(t, tt.start, got.Start)
			requireTimeEqual(t, tt.end, got.End)
		})
	}
}

func TestParseDateRangeEndNotBeforeStart(t *testing.T) {
	got := ParseDateRange("May 2023 - May 2023")
	require.NotNil(t, got.Start)
	require.NotNil(t, got.End)
	assert.False(t, got.End.Before(*got.Start))
}

func ptr(t time.Time) *time.Time { return &t }

func requireTimeEqual(t *testing.T, want, got *time.Time) {
	t.Helper()
	if want == nil {
		require.Nil(t, got)
		return
	}
	require.NotNil(t, got)
	assert.True(t, want.Equal(*got), "want %v, got %v", want, got)
}
