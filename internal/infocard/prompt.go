package infocard

import "fmt"

const (
	maxTitleLen       = 60
	maxDescriptionLen = 200
)

// SystemPrompt instructs the model to summarise a transcript as a JSON
// object with "title" and "description", written in lang when known.
func SystemPrompt(lang string) string {
	answerIn := "the same language as the transcript"
	if lang != "" {
		answerIn = langName(lang)
	}
	return fmt.Sprintf(
		"You write info cards for short videos. Read the transcript and produce a catchy title "+
			"(at most %d characters) and a one or two sentence description (at most %d characters). "+
			"Write both in %s. "+
			"Respond with ONLY a JSON object of the form {\"title\": \"...\", \"description\": \"...\"}.",
		maxTitleLen, maxDescriptionLen, answerIn,
	)
}

func langName(code string) string {
	names := map[string]string{
		"ko": "Korean",
		"en": "English",
		"ja": "Japanese",
		"zh": "Chinese",
		"es": "Spanish",
		"fr": "French",
		"de": "German",
		"pt": "Portuguese",
		"it": "Italian",
		"ru": "Russian",
		"ar": "Arabic",
		"hi": "Hindi",
		"th": "Thai",
		"vi": "Vietnamese",
		"id": "Indonesian",
	}
	if name, ok := names[code]; ok {
		return name
	}
	return code
}
