package feed

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// Run splits entries into kept and filtered, preserving order. reasons is
// parallel to filtered.
func (f *Filterer) Run(entries []Entry, filters []Filter) (kept []Entry, filtered []Entry, reasons []string) {
	if len(filters) == 0 {
		return entries, nil, nil
	}

	kept = make([]Entry, 0, len(entries))
	for _, entry := range entries {
		if reason := f.reject(entry, filters); reason != "" {
			filtered = append(filtered, entry)
			reasons = append(reasons, reason)
			continue
		}
		kept = append(kept, entry)
	}
	return kept, filtered, reasons
}

// reject returns why entry fails filters, or "" when it passes. Excludes win
// over includes within one filter.
func (f *Filterer) reject(entry Entry, filters []Filter) string {
	for _, filter := range filters {
		value := fold(fieldValue(entry, filter.Field))

		for _, exclude := range filter.Excludes {
			if strings.Contains(value, fold(exclude)) {
				return fmt.Sprintf("%s contains %q", filter.Field, exclude)
			}
		}

		if len(filter.Includes) == 0 {
			continue
		}
		matched := false
		for _, include := range filter.Includes {
			if strings.Contains(value, fold(include)) {
				matched = true
				break
			}
		}
		if !matched {
			return fmt.Sprintf("%s matches none of %q", filter.Field, filter.Includes)
		}
	}
	return ""
}

// fold makes matching insensitive to case, Unicode composition and runs of
// whitespace. Feeds built on macOS tools sometimes ship decomposed Hangul.
func fold(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(norm.NFC.String(s))), " ")
}

func fieldValue(entry Entry, field string) string {
	switch field {
	case "title":
		return entry.Title
	case "summary":
		return entry.Summary
	case "author":
		return entry.Author
	case "link":
		return entry.Link
	case "category":
		return entry.Category
	default:
		return ""
	}
}
