package timeparsing

import (
	"testing"
	"time"
)

func TestParseNaturalLanguage(t *testing.T) {
	// Fixed reference time: Wednesday, January 15, 2025, 10:00:00 AM
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.Local)

	tests := []struct {
		name      string
		input     string
		wantYear  int
		wantMonth time.Month
		wantDay   int
	}{
		{"tomorrow", "tomorrow", 2025, time.January, 16},
		{"yesterday", "yesterday", 2025, time.January, 14},
		{"next monday", "next monday", 2025, time.January, 20},
		{"next friday", "next friday", 2025, time.January, 17},
		{"in 3 days", "in 3 days", 2025, time.January, 18},
		{"whitespace tolerated", "  tomorrow  ", 2025, time.January, 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseNaturalLanguage(tt.input, now)
			if err != nil {
				t.Fatalf("ParseNaturalLanguage(%q) error: %v", tt.input, err)
			}
			if got.Year() != tt.wantYear || got.Month() != tt.wantMonth || got.Day() != tt.wantDay {
				t.Errorf("ParseNaturalLanguage(%q) = %v, want %d-%02d-%02d",
					tt.input, got, tt.wantYear, tt.wantMonth, tt.wantDay)
			}
		})
	}
}

func TestParseNaturalLanguageRejects(t *testing.T) {
	now := time.Now()
	for _, input := range []string{"", "   ", "flurble"} {
		if _, err := ParseNaturalLanguage(input, now); err == nil {
			t.Errorf("ParseNaturalLanguage(%q) should fail", input)
		}
	}
}
