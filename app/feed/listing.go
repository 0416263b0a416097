package feed

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ListingReader turns paginated HTML index pages into entries for publishers
// that do not publish a usable feed.
type ListingReader struct {
	listing Listing
}

func NewListingReader(listing Listing) *ListingReader {
	if listing.Pages <= 0 {
		listing.Pages = 1
	}
	if listing.Link == "" {
		listing.Link = "a"
	}
	return &ListingReader{listing: listing}
}

// PageURLs returns the index page URLs in fetch order.
func (r *ListingReader) PageURLs() []string {
	if !strings.Contains(r.listing.URL, "{page}") {
		return []string{r.listing.URL}
	}
	urls := make([]string, 0, r.listing.Pages)
	for page := 1; page <= r.listing.Pages; page++ {
		urls = append(urls, strings.ReplaceAll(r.listing.URL, "{page}", strconv.Itoa(page)))
	}
	return urls
}

// Run parses one UTF-8 index page.
func (r *ListingReader) Run(page []byte, pageURL string) ([]Entry, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, &FeedError{Source: pageURL, Reason: "malformed listing page", Err: err}
	}
	if r.listing.Item == "" {
		return nil, &FeedError{Source: pageURL, Reason: "listing has no item selector"}
	}

	base := resolveBase(pageURL, "")

	var entries []Entry
	doc.Find(r.listing.Item).Each(func(i int, s *goquery.Selection) {
		linkSel := s.Find(r.listing.Link).First()
		if goquery.NodeName(s) == "a" && linkSel.Length() == 0 {
			linkSel = s
		}
		href, ok := linkSel.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" || strings.HasPrefix(href, "javascript:") || href == "#" {
			return
		}

		title := strings.TrimSpace(linkSel.Text())
		if r.listing.Title != "" {
			if t := strings.TrimSpace(s.Find(r.listing.Title).First().Text()); t != "" {
				title = t
			}
		}

		entry := Entry{
			Title: title,
			Link:  absoluteURL(base, href),
		}
		entry.GUID = entry.Link
		if r.listing.Date != "" {
			entry.PublishedRaw = strings.TrimSpace(s.Find(r.listing.Date).First().Text())
		}
		if r.listing.Summary != "" {
			entry.Summary = strings.TrimSpace(s.Find(r.listing.Summary).First().Text())
		}
		if r.listing.Category != "" {
			entry.Category = strings.TrimSpace(s.Find(r.listing.Category).First().Text())
		}
		entries = append(entries, entry)
	})

	if len(entries) == 0 {
		return nil, &FeedError{Source: pageURL, Reason: fmt.Sprintf("no entries matched %q", r.listing.Item)}
	}
	return entries, nil
}

// Merge appends entries whose links were not seen on earlier pages.
func Merge(dst []Entry, seen map[string]bool, src []Entry) []Entry {
	for _, e := range src {
		if seen[e.Link] {
			continue
		}
		seen[e.Link] = true
		dst = append(dst, e)
	}
	return dst
}
