package extract

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

type ContentExtractor struct{}

func NewContentExtractor() *ContentExtractor {
	return &ContentExtractor{}
}

// Run returns the plain text readability finds in an HTML document.
func (e *ContentExtractor) Run(data string, pageURL string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	var base *url.URL
	if u, err := url.Parse(pageURL); err == nil && u.IsAbs() {
		base = u
	}

	article, err := readability.FromReader(strings.NewReader(data), base)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return "", fmt.Errorf("no content extracted from HTML data")
	}

	slog.Debug("Content extracted successfully",
		"title", article.Title,
		"content_length", len(text))

	return text, nil
}

var densityCandidates = "div, article, section, main, td"

// densestContainer returns the text of the candidate container with the
// highest text-to-tag ratio among those whose cleaned text reaches minChars.
func densestContainer(doc *goquery.Document, clean func(string) string, minChars int) string {
	best := ""
	bestScore := 0.0
	doc.Find(densityCandidates).Each(func(i int, s *goquery.Selection) {
		text := clean(blockText(s))
		length := runeLen(text)
		if length < minChars {
			return
		}
		tags := s.Find("*").Length() + 1
		score := float64(length) / float64(tags)
		if score > bestScore {
			best = text
			bestScore = score
		}
	})
	return best
}
