package language

import (
	"strings"
	"unicode/utf8"

	"github.com/pemistahl/lingua-go"
)

// sampleBytes bounds how much text is handed to the detector.
const sampleBytes = 4096

// Detector names the language of a text as a lowercase ISO 639-1 code, or
// "" when it cannot tell.
type Detector interface {
	Detect(text string) string
}

// Lingua detects languages with lingua-go's statistical models.
type Lingua struct {
	detector lingua.LanguageDetector
}

// NewLingua builds a detector for languages, or for all languages when
// none are given. Models load lazily on first use.
func NewLingua(languages ...lingua.Language) *Lingua {
	builder := lingua.NewLanguageDetectorBuilder()
	var b lingua.LanguageDetectorBuilder
	if len(languages) < 2 {
		b = builder.FromAllLanguages()
	} else {
		b = builder.FromLanguages(languages...)
	}
	return &Lingua{detector: b.WithLowAccuracyMode().Build()}
}

func (l *Lingua) Detect(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if len(text) > sampleBytes {
		cut := sampleBytes
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}

	lang, ok := l.detector.DetectLanguageOf(text)
	if !ok {
		return ""
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}

// Fixed always reports the same language. It stands in when detection is
// disabled.
type Fixed string

func (f Fixed) Detect(string) string { return string(f) }
