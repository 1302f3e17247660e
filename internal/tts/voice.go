package tts

import (
	"strings"

	"golang.org/x/text/language"
)

// Voice describes a voice offered by an engine.
type Voice struct {
	ID       string
	Name     string
	Language string // BCP 47 tag, e.g. "es-ES"
	Gender   string
}

// IsZero reports whether v is the "engine default" voice.
func (v Voice) IsZero() bool {
	return v.ID == "" && v.Language == ""
}

// VoiceSelector picks a voice by id or by language.
type VoiceSelector struct {
	ID       string
	Language string
}

// IsZero reports whether the selector leaves the choice to the engine.
func (s VoiceSelector) IsZero() bool {
	return s.ID == "" && s.Language == ""
}

// String renders the selector for logs.
func (s VoiceSelector) String() string {
	switch {
	case s.ID != "":
		return s.ID
	case s.Language != "":
		return s.Language
	default:
		return "default"
	}
}

// SelectVoice finds the voice matching sel. An explicit id wins; otherwise the
// first voice with the exact language tag, then the first voice sharing the
// base language ("es-MX" accepts an "es-ES" voice). ok is false when nothing
// matches and the engine default should be used.
func SelectVoice(voices []Voice, sel VoiceSelector) (Voice, bool) {
	if sel.ID != "" {
		for _, v := range voices {
			if v.ID == sel.ID {
				return v, true
			}
		}
	}

	if sel.Language == "" {
		return Voice{}, false
	}
	want, err := language.Parse(sel.Language)
	if err != nil {
		return Voice{}, false
	}
	wantBase, _ := want.Base()

	var fallback *Voice
	for i, v := range voices {
		tag, err := language.Parse(v.Language)
		if err != nil {
			continue
		}
		if tag == want || strings.EqualFold(v.Language, sel.Language) {
			return v, true
		}
		if base, _ := tag.Base(); base == wantBase && fallback == nil {
			fallback = &voices[i]
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return Voice{}, false
}

// BaseLanguage returns the base language subtag ("es" for "es-MX"), or tag
// itself when it does not parse.
func BaseLanguage(tag string) string {
	t, err := language.Parse(tag)
	if err != nil {
		return strings.ToLower(tag)
	}
	base, _ := t.Base()
	return base.String()
}
