package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/press-comb/app/extract"
	"github.com/lysyi3m/press-comb/app/feed"
	"github.com/lysyi3m/press-comb/app/normalize"
	"github.com/lysyi3m/press-comb/app/reporter"
)

// Fallbacks are the accepted reporter_fallback values.
var Fallbacks = map[string]bool{reporter.DefaultFallback: true, "정보없음": true}

type Cache struct {
	profilesDir string
	cache       map[string]*Profile
	mu          sync.RWMutex
}

func NewCache(profilesDir string) *Cache {
	return &Cache{
		profilesDir: profilesDir,
		cache:       make(map[string]*Profile),
	}
}

// Run loads every <id>.yml in the profiles directory.
func (c *Cache) Run() error {
	if _, err := os.Stat(c.profilesDir); os.IsNotExist(err) {
		return fmt.Errorf("profiles directory %s does not exist", c.profilesDir)
	}

	files, err := filepath.Glob(filepath.Join(c.profilesDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		id := strings.TrimSuffix(filepath.Base(file), ".yml")

		p, err := c.Load(id)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Profile loaded", "publisher", id, "name", p.Name, "feeds", len(p.Feeds))
	}

	return nil
}

func (c *Cache) Load(id string) (*Profile, error) {
	file := filepath.Join(c.profilesDir, id+".yml")
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	p, err := Parse(id, data)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[id] = p

	return p, nil
}

func (c *Cache) Get(id string) (*Profile, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.cache[id]
	if !ok {
		return nil, &ValidationError{Profile: id, Field: "publisher", Reason: "not found"}
	}
	return p, nil
}

// IDs returns the loaded publisher ids sorted.
func (c *Cache) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.cache))
	for id := range c.cache {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// Parse decodes and validates one profile document and builds the
// publisher's normalizer, extractor and resolver.
func Parse(id string, data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	p.ID = id

	if p.ReporterFallback == "" {
		p.ReporterFallback = reporter.DefaultFallback
	}

	if err := validate(&p); err != nil {
		return nil, err
	}

	text, err := normalize.NewText(p.NoisePatterns, p.MaxBodyChars)
	if err != nil {
		return nil, &ValidationError{Profile: id, Field: "noise_patterns", Reason: err.Error()}
	}
	p.text = text
	p.extractor = extract.NewExtractor(p.ArticleRules, text)
	p.resolver = reporter.NewResolver(reporter.Options{
		Selectors: p.ReporterRules,
		Deny:      p.DenyReporters,
		Publisher: p.Name,
		Fallback:  p.ReporterFallback,
	})

	return &p, nil
}

func validate(p *Profile) error {
	fail := func(field, format string, args ...any) error {
		return &ValidationError{Profile: p.ID, Field: field, Reason: fmt.Sprintf(format, args...)}
	}

	if strings.TrimSpace(p.Name) == "" {
		return fail("name", "is required")
	}
	if len(p.Feeds) == 0 {
		return fail("feeds", "at least one feed is required")
	}
	if p.MaxBodyChars < 0 {
		return fail("max_body_chars", "must be non-negative")
	}
	if !Fallbacks[p.ReporterFallback] {
		return fail("reporter_fallback", "unsupported value %q", p.ReporterFallback)
	}

	seen := make(map[string]bool, len(p.Feeds))
	for i, f := range p.Feeds {
		if f.Category == "" {
			return fail("feeds", "category is required at index %d", i)
		}
		if seen[f.Category] {
			return fail("feeds", "duplicate category %q", f.Category)
		}
		seen[f.Category] = true

		if (f.URL == "") == (f.Listing == nil) {
			return fail("feeds", "category %q needs exactly one of url or listing", f.Category)
		}
		if f.Listing != nil {
			if err := validateListing(f.Listing); err != nil {
				return fail("feeds", "category %q: %v", f.Category, err)
			}
		}
	}

	for i, rule := range p.ArticleRules {
		if err := rule.Validate(); err != nil {
			return fail("article_rules", "rule %d: %v", i, err)
		}
	}

	for _, sel := range p.ReporterRules {
		if err := extract.ValidSelector(sel); err != nil {
			return fail("reporter_rules", "%v", err)
		}
	}

	for i, pattern := range p.NoisePatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fail("noise_patterns", "pattern %d: %v", i, err)
		}
	}

	for i, filter := range p.Filters {
		if !feed.FilterFields[filter.Field] {
			return fail("filters", "invalid filter field at index %d: %s", i, filter.Field)
		}
		if len(filter.Includes) == 0 && len(filter.Excludes) == 0 {
			return fail("filters", "filter at index %d must have at least one include or exclude rule", i)
		}
	}

	return nil
}

func validateListing(l *feed.Listing) error {
	if l.URL == "" {
		return fmt.Errorf("listing url is required")
	}
	if l.Item == "" {
		return fmt.Errorf("listing item selector is required")
	}
	for _, sel := range []string{l.Item, l.Link, l.Title, l.Date, l.Summary, l.Category} {
		if sel == "" {
			continue
		}
		if err := extract.ValidSelector(sel); err != nil {
			return err
		}
	}
	return nil
}
