package feed

import (
	"fmt"
	"time"
)

// Entry is one candidate article taken from a feed or listing page.
type Entry struct {
	GUID         string
	Title        string
	Link         string     // absolute
	Published    *time.Time // structured form when the feed layer parsed one
	PublishedRaw string
	Author       string // most specific creator field, raw
	Category     string // publisher-supplied category, raw
	Summary      string // description / summary HTML
	IsVideo      bool
}

// FeedError means the document could not be turned into entries. Callers skip
// the category; it is never fatal to a run.
type FeedError struct {
	Source string
	Reason string
	Err    error
}

func (e *FeedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("feed %s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("feed %s: %s", e.Source, e.Reason)
}

func (e *FeedError) Unwrap() error {
	return e.Err
}

// Filter is an include/exclude rule on one entry field.
type Filter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// FilterFields lists the entry fields a Filter may target.
var FilterFields = map[string]bool{
	"title":    true,
	"summary":  true,
	"author":   true,
	"link":     true,
	"category": true,
}

// Listing describes a paginated HTML index used instead of a feed.
type Listing struct {
	URL      string `yaml:"url"` // may contain {page}
	Pages    int    `yaml:"pages"`
	Item     string `yaml:"item"`
	Link     string `yaml:"link"`
	Title    string `yaml:"title"`
	Date     string `yaml:"date"`
	Summary  string `yaml:"summary"`
	Category string `yaml:"category"`
}
