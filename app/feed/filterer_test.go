package feed

import (
	"strings"
	"testing"

	"golang.org/x/text/unicode/norm"
)

func TestFilterer_NoFilters(t *testing.T) {
	filterer := NewFilterer()

	entries := []Entry{
		{Title: "Test Item 1"},
		{Title: "Test Item 2"},
	}

	kept, filtered, _ := filterer.Run(entries, nil)

	if len(kept) != 2 {
		t.Errorf("Expected 2 entries, got %d", len(kept))
	}
	if len(filtered) != 0 {
		t.Errorf("Expected no filtered entries, got %d", len(filtered))
	}
}

func TestFilterer_TitleExclude(t *testing.T) {
	filterer := NewFilterer()

	entries := []Entry{
		{Title: "[포토] 오늘의 사진"},
		{Title: "경제 전망"},
		{Title: "[영상] 뉴스 브리핑"},
	}

	filters := []Filter{
		{Field: "title", Excludes: []string{"[포토]", "[영상]"}},
	}

	kept, filtered, reasons := filterer.Run(entries, filters)

	if len(kept) != 1 || kept[0].Title != "경제 전망" {
		t.Errorf("Expected only '경제 전망' to be kept, got %v", kept)
	}
	if len(filtered) != 2 {
		t.Errorf("Expected 2 filtered entries, got %d", len(filtered))
	}
	if len(reasons) != 2 || reasons[0] == "" {
		t.Errorf("Expected a reason for each filtered entry, got %v", reasons)
	}
}

func TestFilterer_IncludeIsCaseInsensitive(t *testing.T) {
	filterer := NewFilterer()

	entries := []Entry{
		{Link: "https://e.com/NEWS/1"},
		{Link: "https://e.com/blog/2"},
	}

	filters := []Filter{
		{Field: "link", Includes: []string{"/news/"}},
	}

	kept, filtered, _ := filterer.Run(entries, filters)

	if len(kept) != 1 || kept[0].Link != "https://e.com/NEWS/1" {
		t.Errorf("Expected news link to be kept, got %v", kept)
	}
	if len(filtered) != 1 {
		t.Errorf("Expected blog link to be filtered, got %d", len(filtered))
	}
}

func TestFilterer_PreservesOrder(t *testing.T) {
	filterer := NewFilterer()

	entries := []Entry{
		{Title: "c", Category: "정치"},
		{Title: "a", Category: "스포츠"},
		{Title: "b", Category: "정치"},
	}

	kept, _, _ := filterer.Run(entries, []Filter{{Field: "category", Excludes: []string{"스포츠"}}})

	if len(kept) != 2 || kept[0].Title != "c" || kept[1].Title != "b" {
		t.Errorf("Expected [c b], got %v", kept)
	}
}

func TestFilterer_DecomposedHangulAndSpacing(t *testing.T) {
	filterer := NewFilterer()

	entries := []Entry{
		{Title: norm.NFD.String("[포토]  오늘의 사진")},
		{Title: "오늘의 경제"},
	}

	kept, filtered, reasons := filterer.Run(entries, []Filter{
		{Field: "title", Excludes: []string{"[포토] 오늘의"}},
	})

	if len(kept) != 1 || kept[0].Title != "오늘의 경제" {
		t.Errorf("Expected decomposed title to be filtered, kept %v", kept)
	}
	if len(filtered) != 1 {
		t.Fatalf("Expected 1 filtered entry, got %d", len(filtered))
	}
	if !strings.Contains(reasons[0], "title") {
		t.Errorf("Expected reason to name the field, got %q", reasons[0])
	}
}
