package extract

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func TestContentExtractor_Run_ArticleText(t *testing.T) {
	extractor := NewContentExtractor()

	var paragraphs []string
	for i := 0; i < 8; i++ {
		paragraphs = append(paragraphs, `<p>이 문단은 본문 추출 알고리즘이 찾아야 하는 기사 내용입니다. The content is meaningful and provides value to readers who follow the story.</p>`)
	}

	htmlContent := `
	<!DOCTYPE html>
	<html>
	<head><title>Long Article</title></head>
	<body>
		<nav>Site Navigation</nav>
		<main>
			<article>
				<h1>Long Article Title</h1>
				<p>This paragraph contains <strong>bold text</strong> and <em>italic text</em> inside it.</p>
				` + strings.Join(paragraphs, "\n") + `
			</article>
		</main>
		<aside><div>Advertisement</div></aside>
	</body>
	</html>
	`

	result, err := extractor.Run(htmlContent, "https://news.example.com/article/1")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !strings.Contains(result, "기사 내용입니다") {
		t.Errorf("Expected extracted text to contain article paragraphs, got %q", result)
	}

	if strings.Contains(result, "<strong>") {
		t.Errorf("Expected plain text without markup")
	}

	if strings.Contains(result, "Advertisement") {
		t.Errorf("Expected extracted text to exclude the sidebar")
	}
}

func TestContentExtractor_Run_EmptyData(t *testing.T) {
	extractor := NewContentExtractor()

	result, err := extractor.Run("", "")

	if err == nil {
		t.Fatalf("Expected error for empty data")
	}

	if result != "" {
		t.Errorf("Expected empty result for empty data")
	}

	expectedError := "HTML data is empty"
	if err.Error() != expectedError {
		t.Errorf("Expected error message '%s', got '%s'", expectedError, err.Error())
	}
}

func TestContentExtractor_Run_RelativeURL(t *testing.T) {
	extractor := NewContentExtractor()

	htmlContent := `<html><body><article><p>` + strings.Repeat("짧지 않은 본문 문장입니다. ", 60) + `</p></article></body></html>`

	result, err := extractor.Run(htmlContent, "not a url")
	if err != nil {
		t.Fatalf("Expected no error without a base URL, got: %v", err)
	}
	if !strings.Contains(result, "본문 문장입니다") {
		t.Errorf("Expected article text, got %q", result)
	}
}

func TestDensestContainer(t *testing.T) {
	htmlContent := `
	<html><body>
		<div id="links"><ul>` + strings.Repeat(`<li><a href="/x">링크 목록 항목입니다 링크 목록 항목입니다</a></li>`, 10) + `</ul></div>
		<div id="story">` + strings.Repeat("밀도가 높은 기사 본문입니다. ", 20) + `</div>
	</body></html>
	`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	result := densestContainer(doc, strings.TrimSpace, 100)

	if !strings.HasPrefix(result, "밀도가 높은 기사 본문입니다.") {
		t.Errorf("Expected the dense story container to win, got %q", result)
	}
	if strings.Contains(result, "링크 목록") {
		t.Errorf("Expected link list to lose")
	}
}

func TestDensestContainer_NothingQualifies(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<html><body><div>짧다</div></body></html>`))
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	if result := densestContainer(doc, strings.TrimSpace, 100); result != "" {
		t.Errorf("Expected empty result, got %q", result)
	}
}
