package normalize

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// CanonicalLayout is the output form of Date.
const CanonicalLayout = "2006-01-02 15:04:05"

var rfc2822Layouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 02 Jan 2006 15:04:05 -07:00",
	"Mon, 02 Jan 2006 15:04 -0700",
	"Mon, 02 Jan 2006 15:04 MST",
	"Mon, 02 Jan 2006 15:04:05",
	"Mon, 2 Jan 2006 15:04:05",
	"02 Jan 2006 15:04:05 -0700",
	"02 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	"02 Jan 2006 15:04:05",
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
}

var localLayouts = []string{
	CanonicalLayout,
	"2006-01-02 15:04",
	"2006.01.02 15:04:05",
	"2006.01.02 15:04",
	"2006. 01. 02 15:04",
	"2006. 1. 2 15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006년 01월 02일 15:04:05",
	"2006년 01월 02일 15:04",
	"2006년 1월 2일 15:04",
	"2006-01-02",
	"2006.01.02",
}

// Date renders a feed timestamp in CanonicalLayout. A structured time wins;
// otherwise raw is tried against RFC 2822, ISO 8601 and publisher-local
// layouts. When nothing parses, raw is returned unchanged.
func Date(parsed *time.Time, raw string) string {
	if parsed != nil && !parsed.IsZero() {
		return parsed.Format(CanonicalLayout)
	}
	s := strings.TrimSpace(raw)
	if s == "" {
		return raw
	}
	if t, ok := ParseDate(s); ok {
		return t.Format(CanonicalLayout)
	}
	return raw
}

// ParseDate parses s keeping the wall clock of the zone written in s.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, group := range [][]string{rfc2822Layouts, isoLayouts, localLayouts} {
		for _, layout := range group {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	// Inputs without a zone are read as UTC so the digits are kept as written.
	if t, err := dateparse.ParseIn(s, time.UTC); err == nil {
		return t, true
	}
	return time.Time{}, false
}
