package profile

import (
	"fmt"

	"github.com/lysyi3m/press-comb/app/extract"
	"github.com/lysyi3m/press-comb/app/feed"
	"github.com/lysyi3m/press-comb/app/normalize"
	"github.com/lysyi3m/press-comb/app/reporter"
)

// FeedSource is one category of a publisher, read either from a feed URL or
// from a listing page.
type FeedSource struct {
	Category string        `yaml:"category"`
	URL      string        `yaml:"url"`
	Listing  *feed.Listing `yaml:"listing"`
}

// Location is what the source is fetched from, for logs.
func (s FeedSource) Location() string {
	if s.Listing != nil {
		return s.Listing.URL
	}
	return s.URL
}

// Profile describes one publisher. It is loaded once and never modified.
type Profile struct {
	ID               string             `yaml:"-"`
	Name             string             `yaml:"name"`
	Referer          string             `yaml:"referer"`
	MaxBodyChars     int                `yaml:"max_body_chars"`
	ReporterFallback string             `yaml:"reporter_fallback"`
	Feeds            []FeedSource       `yaml:"feeds"`
	ArticleRules     []extract.Strategy `yaml:"article_rules"`
	ReporterRules    []string           `yaml:"reporter_rules"`
	NoisePatterns    []string           `yaml:"noise_patterns"`
	DenyReporters    []string           `yaml:"deny_reporters"`
	Filters          []feed.Filter      `yaml:"filters"`

	text      *normalize.Text
	extractor *extract.Extractor
	resolver  *reporter.Resolver
}

func (p *Profile) Text() *normalize.Text {
	return p.text
}

func (p *Profile) Extractor() *extract.Extractor {
	return p.extractor
}

func (p *Profile) Resolver() *reporter.Resolver {
	return p.resolver
}

// Categories lists the category labels in declaration order.
func (p *Profile) Categories() []string {
	names := make([]string, 0, len(p.Feeds))
	for _, f := range p.Feeds {
		names = append(names, f.Category)
	}
	return names
}

// Select returns the sources for the named categories, keeping declaration
// order. No names selects every source.
func (p *Profile) Select(categories []string) ([]FeedSource, error) {
	if len(categories) == 0 {
		return p.Feeds, nil
	}

	wanted := make(map[string]bool, len(categories))
	for _, c := range categories {
		wanted[c] = true
	}

	var selected []FeedSource
	for _, f := range p.Feeds {
		if wanted[f.Category] {
			selected = append(selected, f)
			delete(wanted, f.Category)
		}
	}
	for _, c := range categories {
		if wanted[c] {
			return nil, &ValidationError{Profile: p.ID, Field: "category", Reason: fmt.Sprintf("unknown category %q", c)}
		}
	}
	return selected, nil
}

// ValidationError reports a profile that cannot be used.
type ValidationError struct {
	Profile string
	Field   string
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("publisher %s: %s: %s", e.Profile, e.Field, e.Reason)
}
