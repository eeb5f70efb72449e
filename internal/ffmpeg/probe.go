package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrNoDuration is returned when the prober reports no usable duration.
var ErrNoDuration = errors.New("media duration unavailable")

type ProbeResult struct {
	Format  ProbeFormat   `json:"format"`
	Streams []ProbeStream `json:"streams"`
}

type ProbeFormat struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
}

type ProbeStream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"` // video, audio, subtitle
	SampleRate string `json:"sample_rate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
}

type MediaInfo struct {
	Duration   time.Duration `json:"duration"`
	Format     string        `json:"format"`
	AudioCodec string        `json:"audio_codec"`
	HasAudio   bool          `json:"has_audio"`
	Streams    []ProbeStream `json:"streams"`
}

// Probe inspects a local media file with ffprobe.
func (t *Toolchain) Probe(ctx context.Context, filePath string) (*MediaInfo, error) {
	out, err := t.run(ctx, t.ffprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	)
	if err != nil {
		return nil, err
	}
	return parseProbe([]byte(out.Stdout))
}

// Duration returns the container duration of a local media file.
func (t *Toolchain) Duration(ctx context.Context, filePath string) (time.Duration, error) {
	info, err := t.Probe(ctx, filePath)
	if err != nil {
		return 0, err
	}
	return info.Duration, nil
}

func parseProbe(data []byte) (*MediaInfo, error) {
	var result ProbeResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode ffprobe output: %w", err)
	}

	raw := strings.TrimSpace(result.Format.Duration)
	if raw == "" || raw == "N/A" {
		return nil, ErrNoDuration
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrNoDuration, raw)
	}
	if secs <= 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoDuration, raw)
	}

	info := &MediaInfo{
		Duration: time.Duration(secs * float64(time.Second)),
		Format:   result.Format.FormatName,
		Streams:  result.Streams,
	}
	for _, s := range result.Streams {
		if s.CodecType == "audio" && !info.HasAudio {
			info.HasAudio = true
			info.AudioCodec = s.CodecName
		}
	}
	return info, nil
}
