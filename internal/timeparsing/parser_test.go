package timeparsing

import (
	"testing"
	"time"
)

func TestParseCompactDuration(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		input string
		want  time.Time
	}{
		{"+6h", now.Add(6 * time.Hour)},
		{"6h", now.Add(6 * time.Hour)},
		{"-1d", now.AddDate(0, 0, -1)},
		{"+2w", now.AddDate(0, 0, 14)},
		{"3m", now.AddDate(0, 3, 0)},
		{"1y", now.AddDate(1, 0, 0)},
	}
	for _, tt := range tests {
		got, err := ParseCompactDuration(tt.input, now)
		if err != nil {
			t.Errorf("ParseCompactDuration(%q) error: %v", tt.input, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseCompactDuration(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseCompactDurationRejects(t *testing.T) {
	now := time.Now()
	for _, input := range []string{"", "6", "h", "6x", "+-6h", "6h30m", "tomorrow"} {
		if _, err := ParseCompactDuration(input, now); err == nil {
			t.Errorf("ParseCompactDuration(%q) should fail", input)
		}
	}
}

func TestIsCompactDuration(t *testing.T) {
	for _, input := range []string{"+6h", "-1d", "2w", "3m", "1y"} {
		if !IsCompactDuration(input) {
			t.Errorf("IsCompactDuration(%q) = false, want true", input)
		}
	}
	for _, input := range []string{"tomorrow", "2025-01-01", "6", ""} {
		if IsCompactDuration(input) {
			t.Errorf("IsCompactDuration(%q) = true, want false", input)
		}
	}
}

func TestParseAbsolute(t *testing.T) {
	got, err := ParseAbsolute("2025-03-01T09:30:00Z")
	if err != nil {
		t.Fatalf("ParseAbsolute error: %v", err)
	}
	want := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}

	got, err = ParseAbsolute("2025-03-01")
	if err != nil {
		t.Fatalf("ParseAbsolute date-only error: %v", err)
	}
	if got.Year() != 2025 || got.Month() != time.March || got.Day() != 1 {
		t.Errorf("date-only parse got %v", got)
	}

	if _, err := ParseAbsolute("next tuesday"); err == nil {
		t.Error("ParseAbsolute should reject natural language")
	}
}

func TestParseDueDateLayers(t *testing.T) {
	// Fixed reference: Wednesday, January 15, 2025.
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.Local)

	got, err := ParseDueDate("+1d", now)
	if err != nil {
		t.Fatalf("compact layer error: %v", err)
	}
	if got.Day() != 16 {
		t.Errorf("compact layer got day %d, want 16", got.Day())
	}

	got, err = ParseDueDate("2025-02-01", now)
	if err != nil {
		t.Fatalf("absolute layer error: %v", err)
	}
	if got.Month() != time.February || got.Day() != 1 {
		t.Errorf("absolute layer got %v", got)
	}

	got, err = ParseDueDate("tomorrow", now)
	if err != nil {
		t.Fatalf("natural language layer error: %v", err)
	}
	if got.Day() != 16 {
		t.Errorf("tomorrow got day %d, want 16", got.Day())
	}

	if _, err := ParseDueDate("not a date at all xyz", now); err == nil {
		t.Error("ParseDueDate should fail on garbage")
	}
}
