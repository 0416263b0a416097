package reporter

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lysyi3m/press-comb/app/extract"
	"github.com/lysyi3m/press-comb/app/normalize"
)

const DefaultFallback = "미상"

// DefaultSelectors are byline containers common across Korean news sites.
var DefaultSelectors = []string{
	".byline",
	".reporter",
	".writer",
	".author",
	".journalist",
	".byline_name",
	".reporter_name",
	".article_writer",
	"[itemprop=author]",
	"[rel=author]",
}

// DefaultDeny holds desk and section words that look like names.
var DefaultDeny = []string{
	"기자", "특파원", "뉴스", "속보", "단독", "종합", "사진", "영상", "그래픽",
	"정치", "경제", "사회", "문화", "국제", "스포츠", "연예", "산업", "생활",
	"정치부", "경제부", "사회부", "문화부", "국제부", "산업부", "체육부", "편집부",
	"사진부", "취재부", "편집국", "보도국", "취재팀", "뉴스팀", "온라인", "디지털",
	"인터넷", "온라인팀", "디지털팀", "공동취재", "기획취재", "객원",
}

const roles = `기자|특파원|논설위원|편집위원|아나운서`

var (
	emailRe      = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9-]+(?:\.[A-Za-z0-9-]+)*\.[A-Za-z]{2,}`)
	bracketRe    = regexp.MustCompile(`[\[\](){}<>]`)
	separatorRe  = regexp.MustCompile(`\s*(?:[,·/&|]|\s및\s)\s*`)
	byRe         = regexp.MustCompile(`(?i)^by\s+`)
	roleSuffixRe = regexp.MustCompile(`\s*(?:` + roles + `)$`)
	rolePrefixRe = regexp.MustCompile(`^(?:` + roles + `)\s+`)

	hangulName = regexp.MustCompile(`^[가-힣]{2,4}$`)
	latinName  = regexp.MustCompile(`^[A-Z][a-z]+ [A-Z][a-z]+$`)
)

type pattern struct {
	re *regexp.Regexp
	// name builds the candidate from the submatches.
	name func(m []string) string
}

func firstGroup(m []string) string { return m[1] }

// textPatterns are tried in order; within a pattern matches are tried in
// document order.
var textPatterns = []pattern{
	{regexp.MustCompile(`[\[(][가-힣]{1,10}\s*=\s*(?:[가-힣]+\)\s*)?([가-힣]{2,4})\s*(?:기자|특파원)[\])]?`), firstGroup},
	{regexp.MustCompile(`([가-힣]{2,4})\s*(?:` + roles + `)\s*[<(\[]?\s*[A-Za-z0-9._%+-]+@[A-Za-z0-9-]+(?:\.[A-Za-z0-9-]+)*\.[A-Za-z]{2,}`), firstGroup},
	{regexp.MustCompile(`(?:^|[^가-힣])([가-힣]{2,4})\s?(?:` + roles + `)(?:$|[^가-힣])`), firstGroup},
	{regexp.MustCompile(`(?:^|[^가-힣])기자\s+([가-힣]{2,4})(?:$|[^가-힣])`), firstGroup},
	{regexp.MustCompile(`\b[Bb]y\s+([A-Z][a-z]+ [A-Z][a-z]+)\b`), firstGroup},
	{regexp.MustCompile(`\b([a-z]{2,})[._]([a-z]{2,})@[A-Za-z0-9-]+(?:\.[A-Za-z0-9-]+)*\.[A-Za-z]{2,}`), func(m []string) string {
		return capitalize(m[1]) + " " + capitalize(m[2])
	}},
}

type Options struct {
	Selectors []string
	Deny      []string
	Publisher string
	Fallback  string
}

// Resolver picks a reporter name for an article. It holds no mutable state.
type Resolver struct {
	selectors []string
	deny      map[string]bool
	fallback  string
}

func NewResolver(opts Options) *Resolver {
	selectors := opts.Selectors
	if len(selectors) == 0 {
		selectors = DefaultSelectors
	}

	deny := make(map[string]bool, len(DefaultDeny)+len(opts.Deny)+1)
	for _, list := range [][]string{DefaultDeny, opts.Deny, {opts.Publisher}} {
		for _, word := range list {
			if word = strings.TrimSpace(word); word != "" {
				deny[strings.ToLower(word)] = true
			}
		}
	}

	fallback := opts.Fallback
	if fallback == "" {
		fallback = DefaultFallback
	}

	return &Resolver{selectors: selectors, deny: deny, fallback: fallback}
}

// Resolve tries the feed author, the byline selectors and the page text in
// that order. page may be nil. The result is never empty.
func (r *Resolver) Resolve(author string, page *extract.Page) string {
	if name := r.fromField(author); name != "" {
		return name
	}
	if page == nil {
		return r.fallback
	}

	for _, sel := range r.selectors {
		var name string
		page.Doc.Find(sel).EachWithBreak(func(i int, s *goquery.Selection) bool {
			text := normalize.CollapseSpace(s.Text())
			if name = r.fromField(text); name == "" {
				name = r.fromText(text)
			}
			return name == ""
		})
		if name != "" {
			return name
		}
	}

	if name := r.fromText(page.VisibleText()); name != "" {
		return name
	}

	slog.Debug("Reporter not found", "url", page.URL, "fallback", r.fallback)
	return r.fallback
}

// fromField reads a name from a byline-like field such as dc:creator,
// e.g. "홍길동 기자 hong@example.com" or "서울=홍길동·김철수 기자".
func (r *Resolver) fromField(s string) string {
	s = emailRe.ReplaceAllString(s, " ")
	if i := strings.LastIndex(s, "="); i >= 0 {
		s = s[i+len("="):]
	}
	s = normalize.CollapseSpace(bracketRe.ReplaceAllString(s, " "))
	if s == "" {
		return ""
	}

	first := separatorRe.Split(s, 2)[0]
	first = byRe.ReplaceAllString(first, "")
	first = roleSuffixRe.ReplaceAllString(first, "")
	first = rolePrefixRe.ReplaceAllString(first, "")
	first = strings.TrimSpace(first)

	if r.valid(first) {
		return first
	}
	return ""
}

func (r *Resolver) fromText(text string) string {
	for _, p := range textPatterns {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			if name := p.name(m); r.valid(name) {
				return name
			}
		}
	}
	return ""
}

func (r *Resolver) valid(name string) bool {
	if !hangulName.MatchString(name) && !latinName.MatchString(name) {
		return false
	}
	return !r.deny[strings.ToLower(name)]
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
