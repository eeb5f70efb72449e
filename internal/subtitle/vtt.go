package subtitle

import (
	"regexp"
	"strings"

	"github.com/reelai/backend/internal/db/models"
)

var timingRe = regexp.MustCompile(`^((?:\d+:)?\d{2}:\d{2}[.,]\d{3})\s*-->\s*((?:\d+:)?\d{2}:\d{2}[.,]\d{3})`)

// ParseSegments parses WebVTT (or SRT) content into ordered segments.
// Every text line after a timing line, up to the next timing line, is
// appended space-joined to that segment. Cue identifiers, the WEBVTT
// header and NOTE blocks are skipped. Timestamps are kept verbatim.
func ParseSegments(content string) []models.Segment {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	segments := []models.Segment{}
	var current *models.Segment
	inNote := false

	flush := func() {
		if current != nil && current.Text != "" {
			segments = append(segments, *current)
		}
		current = nil
	}

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			inNote = false
			continue
		}
		if inNote {
			continue
		}

		if m := timingRe.FindStringSubmatch(line); m != nil {
			flush()
			current = &models.Segment{Start: m[1], End: m[2]}
			continue
		}

		if isHeader(line) {
			continue
		}
		if line == "NOTE" || strings.HasPrefix(line, "NOTE ") {
			inNote = true
			continue
		}
		if isCueID(lines, i) {
			continue
		}
		if current == nil {
			continue
		}

		if current.Text != "" {
			current.Text += " "
		}
		current.Text += line
	}
	flush()

	return segments
}

// JoinText reconstructs the full transcript text from its segments.
func JoinText(segments []models.Segment) string {
	texts := make([]string, len(segments))
	for i, s := range segments {
		texts[i] = s.Text
	}
	return strings.Join(texts, " ")
}

// Parse returns the segments of content and the full transcript text.
// Content without any timing line is treated as plain text.
func Parse(content string) ([]models.Segment, string) {
	segments := ParseSegments(content)
	if len(segments) > 0 {
		return segments, JoinText(segments)
	}

	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	var words []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if timingRe.MatchString(line) {
			// Cues were present but all empty.
			return segments, ""
		}
		if line == "" || isHeader(line) {
			continue
		}
		words = append(words, strings.Fields(line)...)
	}
	return segments, strings.Join(words, " ")
}

// isCueID reports whether lines[i] opens a cue block: it follows a blank
// line and is immediately followed by a timing line.
func isCueID(lines []string, i int) bool {
	if i+1 >= len(lines) || !timingRe.MatchString(strings.TrimSpace(lines[i+1])) {
		return false
	}
	return i == 0 || strings.TrimSpace(lines[i-1]) == ""
}

func isHeader(line string) bool {
	return line == "WEBVTT" || strings.HasPrefix(line, "WEBVTT ") || strings.HasPrefix(line, "WEBVTT\t")
}
