package extract

import (
	"fmt"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/xpath"
)

type Kind string

const (
	KindSelector    Kind = "selector"
	KindXPath       Kind = "xpath"
	KindParagraphs  Kind = "paragraphs"
	KindReadability Kind = "readability"
)

// Strategy is one body-extraction rule. Strategies are evaluated in order and
// the first one producing a long enough body wins.
type Strategy struct {
	Kind      Kind     `yaml:"kind"`
	Selectors []string `yaml:"selectors"`
	XPaths    []string `yaml:"xpaths"`
	// Remove lists selectors dropped from the container before reading it,
	// e.g. photo captions or inline reporter boxes.
	Remove []string `yaml:"remove"`
}

// DefaultStrategies is used for profiles that declare no article rules.
var DefaultStrategies = []Strategy{
	{
		Kind: KindSelector,
		Selectors: []string{
			"#dic_area",
			"#articleBody",
			"#article-view-content-div",
			"#articletxt",
			"#news_body_area",
			"#newsct_article",
			".article_body",
			".article-body",
			".news_body",
			"[itemprop=articleBody]",
			"article",
		},
	},
	{Kind: KindParagraphs},
	{Kind: KindReadability},
}

func (s Strategy) Validate() error {
	switch s.Kind {
	case KindSelector:
		if len(s.Selectors) == 0 {
			return fmt.Errorf("selector strategy needs at least one selector")
		}
		for _, sel := range append(append([]string{}, s.Selectors...), s.Remove...) {
			if err := ValidSelector(sel); err != nil {
				return err
			}
		}
	case KindXPath:
		if len(s.XPaths) == 0 {
			return fmt.Errorf("xpath strategy needs at least one expression")
		}
		for _, expr := range s.XPaths {
			if _, err := xpath.Compile(expr); err != nil {
				return fmt.Errorf("invalid xpath %q: %w", expr, err)
			}
		}
	case KindParagraphs, KindReadability:
	default:
		return fmt.Errorf("unknown strategy kind %q", s.Kind)
	}
	return nil
}

// ValidSelector compiles sel the way goquery does; goquery itself silently
// matches nothing on a bad selector.
func ValidSelector(sel string) error {
	if _, err := cascadia.Compile(sel); err != nil {
		return fmt.Errorf("invalid selector %q: %w", sel, err)
	}
	return nil
}
