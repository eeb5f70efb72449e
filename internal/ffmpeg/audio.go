package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// AudioOptions controls the compressed audio every window is encoded to.
type AudioOptions struct {
	SampleRate int
	Bitrate    string
}

func DefaultAudioOptions() AudioOptions {
	return AudioOptions{SampleRate: 16000, Bitrate: "32k"}
}

// Window is one fixed-length slice of the source timeline.
type Window struct {
	Index  int
	Start  time.Duration
	Length time.Duration
}

// Windows cuts total into consecutive windows of length. The last window
// is truncated to whatever remains.
func Windows(total, length time.Duration) []Window {
	if total <= 0 || length <= 0 {
		return nil
	}
	var windows []Window
	for start, i := time.Duration(0), 0; start < total; start, i = start+length, i+1 {
		l := length
		if remaining := total - start; remaining < l {
			l = remaining
		}
		windows = append(windows, Window{Index: i, Start: start, Length: l})
	}
	return windows
}

// SegmentName is the file name of window i inside a working directory.
func SegmentName(i int) string {
	return fmt.Sprintf("segment_%03d.mp3", i)
}

// EncodeWindow transcodes one window of input to mono mp3 at output.
func (t *Toolchain) EncodeWindow(ctx context.Context, input string, w Window, output string, opts AudioOptions) error {
	if opts.SampleRate <= 0 || opts.Bitrate == "" {
		opts = DefaultAudioOptions()
	}
	_, err := t.run(ctx, t.ffmpegPath,
		"-hide_banner", "-loglevel", "error", "-nostdin", "-y",
		"-ss", seconds(w.Start),
		"-t", seconds(w.Length),
		"-i", input,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(opts.SampleRate),
		"-c:a", "libmp3lame",
		"-b:a", opts.Bitrate,
		output,
	)
	return err
}

// Concat joins parts in order into output without re-encoding. The list
// file is written next to output.
func (t *Toolchain) Concat(ctx context.Context, parts []string, output string) error {
	if len(parts) == 0 {
		return fmt.Errorf("concat: no input parts")
	}
	listPath := filepath.Join(filepath.Dir(output), "segments.txt")
	var sb strings.Builder
	for _, p := range parts {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		sb.WriteString("file '")
		sb.WriteString(strings.ReplaceAll(abs, "'", `'\''`))
		sb.WriteString("'\n")
	}
	if err := os.WriteFile(listPath, []byte(sb.String()), 0o600); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}

	_, err := t.run(ctx, t.ffmpegPath,
		"-hide_banner", "-loglevel", "error", "-nostdin", "-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		output,
	)
	return err
}

// Split cuts input into chunk-long pieces inside dir without re-encoding
// and returns their paths in timeline order.
func (t *Toolchain) Split(ctx context.Context, input, dir string, chunk time.Duration) ([]string, error) {
	pattern := filepath.Join(dir, "chunk_%03d"+filepath.Ext(input))
	_, err := t.run(ctx, t.ffmpegPath,
		"-hide_banner", "-loglevel", "error", "-nostdin", "-y",
		"-i", input,
		"-f", "segment",
		"-segment_time", seconds(chunk),
		"-c", "copy",
		pattern,
	)
	if err != nil {
		return nil, err
	}

	matches, err := filepath.Glob(filepath.Join(dir, "chunk_*"+filepath.Ext(input)))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("split produced no chunks")
	}
	sort.Strings(matches)
	return matches, nil
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
