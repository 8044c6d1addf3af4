package syntax

import (
	"fmt"

	"golang.org/x/text/language"
)

// Represents a portal language code (BCP-47), as used for the first path segment of localized portal URLs (eg, "en-US").
//
// The raw string is passed through with no normalization, since the portal matches the path segment exactly.
type Language string

func ParseLanguage(raw string) (Language, error) {
	if raw == "" {
		return "", fmt.Errorf("expected language code, got empty string")
	}
	if len(raw) > 128 {
		return "", fmt.Errorf("language code is too long (128 chars max)")
	}
	if _, err := language.Parse(raw); err != nil {
		return "", fmt.Errorf("invalid language code: %w", err)
	}
	return Language(raw), nil
}

func (l Language) String() string {
	return string(l)
}

func (l Language) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Language) UnmarshalText(text []byte) error {
	lang, err := ParseLanguage(string(text))
	if err != nil {
		return err
	}
	*l = lang
	return nil
}
