package extract

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"

	"github.com/lysyi3m/press-comb/app/normalize"
)

// MinCandidateChars is the cleaned length a strategy must reach to win.
const MinCandidateChars = 100

// minParagraphChars is the length a <p> needs for the paragraph heuristic.
const minParagraphChars = 20

const chromeSelector = "script, style, noscript, template, nav, aside, footer, header, iframe, figure, form"

type Source string

const (
	SourceNone    Source = ""
	SourceSummary Source = "summary"
)

type Result struct {
	Body   string
	Source Source
	// Strategy is the index of the winning strategy, -1 for summary or none.
	Strategy int
}

type Extractor struct {
	strategies  []Strategy
	text        *normalize.Text
	readability *ContentExtractor
	minChars    int
}

// NewExtractor binds an ordered strategy list to the text normalizer used to
// measure and clean candidates. An empty list means DefaultStrategies.
func NewExtractor(strategies []Strategy, text *normalize.Text) *Extractor {
	if len(strategies) == 0 {
		strategies = DefaultStrategies
	}
	return &Extractor{
		strategies:  strategies,
		text:        text,
		readability: NewContentExtractor(),
		minChars:    MinCandidateChars,
	}
}

// Run evaluates the strategies against page; the earliest qualifying one
// wins. When all fail the cleaned summary is returned with SourceSummary.
// page may be nil when the article could not be fetched.
func (e *Extractor) Run(page *Page, summary string) Result {
	if page != nil {
		working := page.clone()
		working.Find(chromeSelector).Remove()

		for i, strategy := range e.strategies {
			body := e.evaluate(working, page.URL, strategy)
			if runeLen(body) >= e.minChars {
				return Result{Body: body, Source: Source(strategy.Kind), Strategy: i}
			}
		}
		slog.Debug("No extraction strategy matched", "url", page.URL, "strategies", len(e.strategies))
	}

	if body := e.text.Run(summary); body != "" {
		return Result{Body: body, Source: SourceSummary, Strategy: -1}
	}
	return Result{Source: SourceNone, Strategy: -1}
}

func (e *Extractor) evaluate(doc *goquery.Document, pageURL string, strategy Strategy) string {
	switch strategy.Kind {
	case KindSelector:
		for _, selector := range strategy.Selectors {
			containers := outermost(doc.Find(selector), selector)
			if body := e.containerText(containers, strategy.Remove); body != "" {
				return body
			}
		}
	case KindXPath:
		for _, expr := range strategy.XPaths {
			nodes, err := htmlquery.QueryAll(doc.Get(0), expr)
			if err != nil {
				slog.Debug("XPath query failed", "xpath", expr, "error", err)
				continue
			}
			if body := e.containerText(doc.FindNodes(nodes...), strategy.Remove); body != "" {
				return body
			}
		}
	case KindParagraphs:
		return e.paragraphs(doc)
	case KindReadability:
		if html, err := doc.Html(); err == nil {
			if text, err := e.readability.Run(html, pageURL); err == nil {
				if body := e.text.Run(text); runeLen(body) >= e.minChars {
					return body
				}
			}
		}
		return densestContainer(doc, e.text.Run, e.minChars)
	}
	return ""
}

// containerText reads the <p> descendants of the containers, or the
// containers' own text when the paragraphs are too short to qualify.
// Only qualifying text is returned.
func (e *Extractor) containerText(containers *goquery.Selection, remove []string) string {
	if containers.Length() == 0 {
		return ""
	}
	for _, sel := range remove {
		containers.Find(sel).Remove()
	}

	var paragraphs []string
	containers.Find("p").Each(func(i int, p *goquery.Selection) {
		if text := strings.TrimSpace(blockText(p)); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	if body := e.text.Run(strings.Join(paragraphs, "\n")); runeLen(body) >= e.minChars {
		return body
	}
	if body := e.text.Run(blockText(containers)); runeLen(body) >= e.minChars {
		return body
	}
	return ""
}

func (e *Extractor) paragraphs(doc *goquery.Document) string {
	var paragraphs []string
	doc.Find("p").Each(func(i int, p *goquery.Selection) {
		text := normalize.CollapseSpace(blockText(p))
		if runeLen(text) <= minParagraphChars || e.text.IsNoise(text) {
			return
		}
		paragraphs = append(paragraphs, text)
	})
	return e.text.Run(strings.Join(paragraphs, "\n"))
}

// outermost drops matches nested inside another match of the same selector.
func outermost(sel *goquery.Selection, selector string) *goquery.Selection {
	return sel.FilterFunction(func(i int, s *goquery.Selection) bool {
		return s.ParentsFiltered(selector).Length() == 0
	})
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
