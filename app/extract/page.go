package extract

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/lysyi3m/press-comb/app/fetch"
	"github.com/lysyi3m/press-comb/app/normalize"
)

// Page is a parsed article page. Doc is never modified; extraction works on
// clones.
type Page struct {
	URL string
	Doc *goquery.Document

	textOnce sync.Once
	text     string
}

// Parse decodes body from encoding and builds the page DOM.
func Parse(body []byte, encoding, pageURL string) (*Page, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("HTML data is empty")
	}
	utf8Body, err := fetch.ToUTF8(body, encoding)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(utf8Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &Page{URL: pageURL, Doc: doc}, nil
}

// VisibleText is the whitespace-collapsed text of the page without scripts
// and styles, with block elements separated by spaces.
func (p *Page) VisibleText() string {
	p.textOnce.Do(func() {
		working := p.clone()
		working.Find("script, style, noscript, template").Remove()
		p.text = normalize.CollapseSpace(blockText(working.Selection))
	})
	return p.text
}

func (p *Page) clone() *goquery.Document {
	return goquery.NewDocumentFromNode(p.Doc.Selection.Clone().Get(0))
}

var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "br": true,
	"dd": true, "div": true, "dl": true, "dt": true, "figcaption": true, "footer": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "main": true, "ol": true, "p": true,
	"pre": true, "section": true, "table": true, "td": true, "th": true, "tr": true, "ul": true,
}

// blockText renders the text of s, breaking lines at block elements so that
// adjacent paragraphs do not run together.
func blockText(s *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.CommentNode:
			return
		case html.ElementNode:
			if blockTags[n.Data] {
				b.WriteByte('\n')
				defer b.WriteByte('\n')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return b.String()
}
