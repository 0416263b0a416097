package normalize

import (
	"testing"
	"time"
)

func TestDate_Structured(t *testing.T) {
	parsed := time.Date(2025, 8, 3, 6, 27, 3, 0, time.UTC)

	result := Date(&parsed, "ignored")
	if result != "2025-08-03 06:27:03" {
		t.Errorf("Expected '2025-08-03 06:27:03', got '%s'", result)
	}
}

func TestDate_KeepsSourceZone(t *testing.T) {
	kst := time.FixedZone("KST", 9*3600)
	parsed := time.Date(2025, 8, 3, 15, 27, 3, 0, kst)

	result := Date(&parsed, "")
	if result != "2025-08-03 15:27:03" {
		t.Errorf("Expected wall clock of source zone, got '%s'", result)
	}
}

func TestDate_RawFormats(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{"Sun, 03 Aug 2025 06:27:03 GMT", "2025-08-03 06:27:03"},
		{"Sun, 03 Aug 2025 15:27:03 +0900", "2025-08-03 15:27:03"},
		{"Sun, 03 Aug 2025 15:27:03 KST", "2025-08-03 15:27:03"},
		{"Sun, 3 Aug 2025 15:27:03 +0900", "2025-08-03 15:27:03"},
		{"Sun, 03 Aug 2025 15:27:03", "2025-08-03 15:27:03"},
		{"2025-08-03T15:27:03+09:00", "2025-08-03 15:27:03"},
		{"2025-08-03T15:27:03.123456Z", "2025-08-03 15:27:03"},
		{"2025-08-03T15:27:03", "2025-08-03 15:27:03"},
		{"2025-08-03 15:27:03", "2025-08-03 15:27:03"},
		{"2025.08.03 15:27", "2025-08-03 15:27:00"},
		{"2025년 08월 03일 15:27", "2025-08-03 15:27:00"},
		{"  2025-08-03 15:27:03  ", "2025-08-03 15:27:03"},
	}

	for _, tt := range tests {
		if got := Date(nil, tt.raw); got != tt.expected {
			t.Errorf("Date(%q): expected '%s', got '%s'", tt.raw, tt.expected, got)
		}
	}
}

func TestDate_UnparseableReturnsInput(t *testing.T) {
	inputs := []string{"3시간 전", "어제", "", "not a date"}

	for _, input := range inputs {
		if got := Date(nil, input); got != input {
			t.Errorf("Expected input %q to be returned unchanged, got '%s'", input, got)
		}
	}
}

func TestDate_IdempotentOnCanonical(t *testing.T) {
	canonical := "2024-12-31 23:59:59"

	once := Date(nil, canonical)
	twice := Date(nil, once)
	if once != canonical || twice != canonical {
		t.Errorf("Expected canonical input to be stable, got '%s' then '%s'", once, twice)
	}
}
