package normalize

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultNoisePatterns is applied before any publisher-specific pattern.
// Broader patterns come first.
var DefaultNoisePatterns = []string{
	`(?i)copyright\s*(?:ⓒ|©|\(c\))?.{0,80}?all\s+rights\s+reserved\.?`,
	`<?저작권자\s*[ⓒ©].{0,60}?금지>?`,
	`[ⓒ©].{0,60}?무단\s*(?:전재|복제).{0,40}?금지\.?`,
	`무단\s*전재\s*[및·]?\s*재배포\s*금지`,
	`▶\s*(?:관련\s*기사|기사\s*원문|바로\s*가기|구독하기)[^▶]{0,80}`,
	`(?:카카오톡|페이스북|트위터|네이버\s*밴드|URL\s*복사)\s*(?:공유하기|보내기)`,
	`(?:기사\s*공유하기|글자\s*크기\s*(?:설정|조정)|인쇄하기)`,
}

const cdataPattern = `(?s)<!\[CDATA\[(.*?)\]\]>`

var (
	cdataRe    = regexp.MustCompile(cdataPattern)
	tagRe      = regexp.MustCompile(`(?s)<!--.*?-->|</?[a-zA-Z][^<>]*>|<!\w[^<>]*>`)
	invisibles = strings.NewReplacer("\u200b", "", "\u200c", "", "\u200d", "", "\ufeff", "")
)

// extraPasses is added to the input length to bound the fixpoint loop.
const extraPasses = 4

// Text cleans article bodies and titles.
type Text struct {
	noise    []*regexp.Regexp
	maxChars int
}

// NewText compiles the default noise patterns followed by extra.
// maxChars <= 0 disables truncation.
func NewText(extra []string, maxChars int) (*Text, error) {
	patterns := append(append([]string{}, DefaultNoisePatterns...), extra...)
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid noise pattern at index %d: %w", i, err)
		}
		compiled = append(compiled, re)
	}
	return &Text{noise: compiled, maxChars: maxChars}, nil
}

// MustText is NewText for patterns known to be valid.
func MustText(extra []string, maxChars int) *Text {
	t, err := NewText(extra, maxChars)
	if err != nil {
		panic(err)
	}
	return t
}

// Run applies the full body pipeline. Run(Run(s)) == Run(s).
func (t *Text) Run(s string) string {
	s = t.fixpoint(s, true)
	if t.maxChars > 0 && utf8.RuneCountInString(s) > t.maxChars {
		s = Truncate(s, t.maxChars)
	}
	return s
}

// Light cleans a title: markup, entities and whitespace only.
func (t *Text) Light(s string) string {
	return t.fixpoint(s, false)
}

// IsNoise reports whether any noise pattern matches s.
func (t *Text) IsNoise(s string) bool {
	for _, re := range t.noise {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// fixpoint repeats pass until the text stops changing. A changing pass
// removes at least one level of escaping or markup, so the input length
// bounds the loop.
func (t *Text) fixpoint(s string, withNoise bool) string {
	for limit := len(s) + extraPasses; limit > 0; limit-- {
		next := t.pass(s, withNoise)
		if next == s {
			break
		}
		s = next
	}
	return s
}

func (t *Text) pass(s string, withNoise bool) string {
	s = UnwrapCDATA(s)
	s = StripTags(s)
	s = html.UnescapeString(s)
	s = invisibles.Replace(s)
	if withNoise {
		for _, re := range t.noise {
			s = re.ReplaceAllString(s, " ")
		}
	}
	return CollapseSpace(s)
}

// UnwrapCDATA replaces every CDATA section with its content.
func UnwrapCDATA(s string) string {
	if !strings.Contains(s, "<![CDATA[") {
		return s
	}
	return cdataRe.ReplaceAllString(s, "$1")
}

// StripTags removes HTML tags and comments, leaving a space in their place.
func StripTags(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}
	return tagRe.ReplaceAllString(s, " ")
}

// CollapseSpace turns every whitespace run into a single space and trims.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate cuts s so that the result, ellipsis included, has max runes.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	runes := []rune(s)
	return strings.TrimRight(string(runes[:max-1]), " ") + "…"
}
