package entities

import (
	"errors"
	"fmt"
	"time"
)

// Language is one of the statement languages supported by the assistant
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageHindi   Language = "hi"
	LanguageMarathi Language = "mr"
)

// SupportedLanguages lists every language in display order
var SupportedLanguages = []Language{LanguageEnglish, LanguageHindi, LanguageMarathi}

// ParseLanguage validates a language code
func ParseLanguage(code string) (Language, error) {
	for _, l := range SupportedLanguages {
		if string(l) == code {
			return l, nil
		}
	}
	return "", fmt.Errorf("unsupported language %q", code)
}

// IsValid reports whether l is a supported language
func (l Language) IsValid() bool {
	_, err := ParseLanguage(string(l))
	return err == nil
}

// SpeechTag returns the BCP-47 tag used by speech recognition
func (l Language) SpeechTag() string {
	switch l {
	case LanguageHindi:
		return "hi-IN"
	case LanguageMarathi:
		return "mr-IN"
	default:
		return "en-IN"
	}
}

// DisplayName returns the English name of the language, used in prompts
func (l Language) DisplayName() string {
	switch l {
	case LanguageHindi:
		return "Hindi"
	case LanguageMarathi:
		return "Marathi"
	default:
		return "English"
	}
}

// DraftDocument is a persisted FIR draft owned by one user
type DraftDocument struct {
	ID        string    `json:"id" bson:"_id" db:"id"`
	OwnerID   string    `json:"owner_id" bson:"owner_id" db:"owner_id"`
	Content   string    `json:"content" bson:"content" db:"content"`
	Title     string    `json:"title" bson:"title" db:"title"`
	Language  Language  `json:"lang" bson:"lang" db:"lang"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" db:"created_at"`
}

// previewLength matches the dashboard card excerpt
const previewLength = 150

// DraftTitle derives the display title from the creation time
func DraftTitle(createdAt time.Time) string {
	return "Draft from " + createdAt.Format("02/01/2006, 15:04:05")
}

// Preview returns the beginning of the content for list views
func (d *DraftDocument) Preview() string {
	runes := []rune(d.Content)
	if len(runes) <= previewLength {
		return d.Content
	}
	return string(runes[:previewLength]) + "..."
}

// Validate checks the invariants every persisted draft must hold
func (d *DraftDocument) Validate() error {
	if d.ID == "" {
		return errors.New("draft id is required")
	}
	if d.OwnerID == "" {
		return errors.New("owner id is required")
	}
	if d.Content == "" {
		return errors.New("content is required")
	}
	if !d.Language.IsValid() {
		return fmt.Errorf("unsupported language %q", d.Language)
	}
	return nil
}

// Coordinate is a device-provided position
type Coordinate struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// Validate checks the coordinate is on the globe
func (c Coordinate) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude out of range: %f", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude out of range: %f", c.Longitude)
	}
	return nil
}

// Station is a police station returned by the locator
type Station struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Distance string `json:"distance"`
}
