package scraper

import (
	"strings"
	"time"
)

var monthNames = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// DateRange is a parsed scraper date range. A nil End means current. The
// precision records how much of the range was actually stated.
type DateRange struct {
	Start     *time.Time
	End       *time.Time
	Precision string // "month", "year" or "none"
}

// ParseDateRange parses free text like "Nov 2022 - May 2023",
// "May 2021 - Present" or "2019 - 2021". Unparseable input yields an
// empty range with precision "none", never an error.
func ParseDateRange(raw string) DateRange {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DateRange{Precision: "none"}
	}

	// Ranges separate with a hyphen or an en dash.
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '-' || r == '–'
	})
	if len(parts) == 0 {
		return DateRange{Precision: "none"}
	}

	start, startPrec := parsePoint(parts[0])
	if start == nil {
		return DateRange{Precision: "none"}
	}

	out := DateRange{Start: start, Precision: startPrec}
	if len(parts) < 2 {
		return out
	}

	endText := strings.TrimSpace(parts[1])
	if strings.EqualFold(endText, "present") {
		return out
	}
	end, endPrec := parsePoint(endText)
	if end != nil {
		// End-of-range points resolve to the last day of the stated
		// month or year so end >= start holds within one month.
		last := end.AddDate(0, 1, -1)
		if endPrec == "year" {
			last = time.Date(end.Year(), time.December, 31, 0, 0, 0, 0, time.UTC)
		}
		out.End = &last
		if endPrec == "year" && out.Precision == "month" {
			out.Precision = "month"
		}
	}
	return out
}

// parsePoint parses "Nov 2022" or "2022".
func parsePoint(text string) (*time.Time, string) {
	fields := strings.Fields(strings.TrimSpace(text))
	switch len(fields) {
	case 1:
		year, ok := parseYear(fields[0])
		if !ok {
			return nil, "none"
		}
		t := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return &t, "year"
	case 2:
		month, ok := monthNames[strings.ToLower(fields[0])[:min(3, len(fields[0]))]]
		if !ok {
			return nil, "none"
		}
		year, ok := parseYear(fields[1])
		if !ok {
			return nil, "none"
		}
		t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		return &t, "month"
	}
	return nil, "none"
}

func parseYear(s string) (int, bool) {
	if len(s) != 4 {
		return 0, false
	}
	year := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		year = year*10 + int(r-'0')
	}
	if year < 1900 || year > 2100 {
		return 0, false
	}
	return year, true
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
