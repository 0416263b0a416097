package feed

import (
	"bytes"
	"cmp"
	"net/url"
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

var emailAuthorRe = regexp.MustCompile(`^\s*([^\s@()]+@[^\s@()]+)\s*\(([^)]*)\)\s*$`)

type Reader struct {
	gofeedParser *gofeed.Parser
}

func NewReader() *Reader {
	return &Reader{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses an RSS 2.0 or Atom 1.0 document into entries in feed order.
// Relative links are resolved against baseURL.
func (r *Reader) Run(data []byte, baseURL string) ([]Entry, error) {
	parsed, err := r.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &FeedError{Source: baseURL, Reason: "unsupported or malformed feed", Err: err}
	}
	if len(parsed.Items) == 0 {
		return nil, &FeedError{Source: baseURL, Reason: "feed has no entries"}
	}

	base := resolveBase(baseURL, parsed.Link)

	entries := make([]Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		entries = append(entries, r.normalizeItem(item, base))
	}
	return entries, nil
}

func (r *Reader) normalizeItem(item *gofeed.Item, base *url.URL) Entry {
	entry := Entry{
		Title:   strings.TrimSpace(item.Title),
		Link:    absoluteURL(base, strings.TrimSpace(item.Link)),
		Summary: cmp.Or(item.Description, item.Content),
	}
	entry.GUID = cmp.Or(item.GUID, entry.Link)

	switch {
	case item.PublishedParsed != nil:
		entry.Published = item.PublishedParsed
	case item.UpdatedParsed != nil:
		entry.Published = item.UpdatedParsed
	}
	entry.PublishedRaw = cmp.Or(item.Published, item.Updated)

	entry.Author = r.extractAuthor(item)
	entry.Category = r.extractCategory(item)
	entry.IsVideo = r.isVideo(item)

	return entry
}

// extractAuthor prefers dc:creator, then author, then nothing.
func (r *Reader) extractAuthor(item *gofeed.Item) string {
	if item.DublinCoreExt != nil {
		for _, creator := range item.DublinCoreExt.Creator {
			if name := strings.TrimSpace(creator); name != "" {
				return name
			}
		}
	}
	if value := extensionValue(item.Extensions, "dc", "creator"); value != "" {
		return value
	}

	people := item.Authors
	if len(people) == 0 && item.Author != nil {
		people = []*gofeed.Person{item.Author}
	}
	for _, person := range people {
		if person == nil {
			continue
		}
		if name := r.formatAuthor(person.Name, person.Email); name != "" {
			return name
		}
	}
	return ""
}

// formatAuthor keeps the display name; RSS <author> is often "mail (name)".
func (r *Reader) formatAuthor(name, email string) string {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if m := emailAuthorRe.FindStringSubmatch(name); m != nil {
		name = strings.TrimSpace(m[2])
		email = m[1]
	}
	return cmp.Or(name, email)
}

func (r *Reader) extractCategory(item *gofeed.Item) string {
	for _, category := range item.Categories {
		if c := strings.TrimSpace(category); c != "" {
			return c
		}
	}
	if item.DublinCoreExt != nil {
		for _, subject := range item.DublinCoreExt.Subject {
			if s := strings.TrimSpace(subject); s != "" {
				return s
			}
		}
	}
	return extensionValue(item.Extensions, "dc", "category")
}

func (r *Reader) isVideo(item *gofeed.Item) bool {
	for _, enclosure := range item.Enclosures {
		if enclosure != nil && strings.HasPrefix(enclosure.Type, "video/") {
			return true
		}
	}
	return strings.Contains(item.Link, "/video/") || strings.Contains(item.Link, "/vod/")
}

func extensionValue(extensions ext.Extensions, prefix, name string) string {
	if extensions == nil {
		return ""
	}
	for _, e := range extensions[prefix][name] {
		if v := strings.TrimSpace(e.Value); v != "" {
			return v
		}
	}
	return ""
}

func resolveBase(feedURL, siteLink string) *url.URL {
	if u, err := url.Parse(feedURL); err == nil && u.IsAbs() {
		return u
	}
	if u, err := url.Parse(siteLink); err == nil && u.IsAbs() {
		return u
	}
	return nil
}

func absoluteURL(base *url.URL, link string) string {
	if link == "" || base == nil {
		return link
	}
	u, err := url.Parse(link)
	if err != nil {
		return link
	}
	return base.ResolveReference(u).String()
}
