package entities

import (
	"strings"
	"testing"
	"time"
)

func TestParseLanguage(t *testing.T) {
	for _, code := range []string{"en", "hi", "mr"} {
		lang, err := ParseLanguage(code)
		if err != nil {
			t.Errorf("ParseLanguage(%q) unexpected error: %v", code, err)
		}
		if string(lang) != code {
			t.Errorf("ParseLanguage(%q) = %q", code, lang)
		}
	}

	for _, code := range []string{"", "EN", "fr", "hi-IN"} {
		if _, err := ParseLanguage(code); err == nil {
			t.Errorf("ParseLanguage(%q) expected error", code)
		}
	}
}

func TestLanguageTags(t *testing.T) {
	tests := []struct {
		lang    Language
		tag     string
		display string
	}{
		{LanguageEnglish, "en-IN", "English"},
		{LanguageHindi, "hi-IN", "Hindi"},
		{LanguageMarathi, "mr-IN", "Marathi"},
	}

	for _, tt := range tests {
		if got := tt.lang.SpeechTag(); got != tt.tag {
			t.Errorf("%s.SpeechTag() = %s, want %s", tt.lang, got, tt.tag)
		}
		if got := tt.lang.DisplayName(); got != tt.display {
			t.Errorf("%s.DisplayName() = %s, want %s", tt.lang, got, tt.display)
		}
	}
}

func TestDraftTitle(t *testing.T) {
	created := time.Date(2026, 7, 4, 9, 5, 3, 0, time.UTC)
	if got, want := DraftTitle(created), "Draft from 04/07/2026, 09:05:03"; got != want {
		t.Errorf("DraftTitle() = %q, want %q", got, want)
	}
}

func TestDraftDocument_Preview(t *testing.T) {
	short := DraftDocument{Content: "Stolen scooter"}
	if short.Preview() != "Stolen scooter" {
		t.Errorf("Expected short content unchanged, got %q", short.Preview())
	}

	// Devanagari runes must not be split
	long := DraftDocument{Content: strings.Repeat("चोरी", 60)}
	preview := long.Preview()
	if !strings.HasSuffix(preview, "...") {
		t.Errorf("Expected ellipsis on long preview")
	}
	if n := len([]rune(strings.TrimSuffix(preview, "..."))); n != 150 {
		t.Errorf("Expected 150 runes, got %d", n)
	}
}

func TestDraftDocument_Validate(t *testing.T) {
	valid := DraftDocument{ID: "fir_1", OwnerID: "alice", Content: "text", Language: LanguageEnglish}
	if err := valid.Validate(); err != nil {
		t.Errorf("Expected valid draft, got %v", err)
	}

	invalid := []DraftDocument{
		{OwnerID: "alice", Content: "text", Language: LanguageEnglish},
		{ID: "fir_1", Content: "text", Language: LanguageEnglish},
		{ID: "fir_1", OwnerID: "alice", Language: LanguageEnglish},
		{ID: "fir_1", OwnerID: "alice", Content: "text", Language: "fr"},
	}
	for i, d := range invalid {
		if err := d.Validate(); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestCoordinate_Validate(t *testing.T) {
	if err := (Coordinate{Latitude: 28.6, Longitude: 77.2}).Validate(); err != nil {
		t.Errorf("Expected valid coordinate, got %v", err)
	}
	if err := (Coordinate{Latitude: -91}).Validate(); err == nil {
		t.Error("Expected latitude error")
	}
	if err := (Coordinate{Longitude: 181}).Validate(); err == nil {
		t.Error("Expected longitude error")
	}
}

func TestCaptureSnapshot_CanStart(t *testing.T) {
	tests := []struct {
		snapshot CaptureSnapshot
		want     bool
	}{
		{CaptureSnapshot{Status: CaptureStatusIdle}, true},
		{CaptureSnapshot{Status: CaptureStatusListening}, false},
		{CaptureSnapshot{Status: CaptureStatusProcessing, Busy: true}, false},
		{CaptureSnapshot{Status: CaptureStatusReady}, true},
		{CaptureSnapshot{Status: CaptureStatusError}, true},
	}

	for _, tt := range tests {
		if got := tt.snapshot.CanStart(); got != tt.want {
			t.Errorf("CanStart() for %s busy=%v = %v, want %v", tt.snapshot.Status, tt.snapshot.Busy, got, tt.want)
		}
	}
}
