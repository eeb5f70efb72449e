package whisper

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// offsetVTTTimestamps shifts every cue timing line in content by offset
func offsetVTTTimestamps(content string, offset time.Duration) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		start, rest, ok := strings.Cut(line, "-->")
		if !ok {
			continue
		}
		rest = strings.TrimSpace(rest)
		end, settings, _ := strings.Cut(rest, " ")

		shifted := offsetTimestamp(strings.TrimSpace(start), offset) + " --> " + offsetTimestamp(end, offset)
		if settings != "" {
			shifted += " " + settings
		}
		lines[i] = shifted
	}
	return strings.Join(lines, "\n")
}

// offsetTimestamp adds offset to a [HH:]MM:SS.mmm timestamp. Unparsable
// input is returned unchanged.
func offsetTimestamp(ts string, offset time.Duration) string {
	d, ok := parseTimestamp(ts)
	if !ok {
		return ts
	}
	d += offset
	if d < 0 {
		d = 0
	}

	ms := d.Milliseconds()
	h := ms / 3600000
	ms %= 3600000
	m := ms / 60000
	ms %= 60000
	s := ms / 1000
	ms %= 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

func parseTimestamp(ts string) (time.Duration, bool) {
	ts = strings.Replace(ts, ",", ".", 1)
	clock, frac, ok := strings.Cut(ts, ".")
	if !ok || len(frac) != 3 {
		return 0, false
	}
	parts := strings.Split(clock, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}

	var total time.Duration
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, false
		}
		total = total*60 + time.Duration(n)
	}
	ms, err := strconv.Atoi(frac)
	if err != nil {
		return 0, false
	}
	return total*time.Second + time.Duration(ms)*time.Millisecond, true
}
