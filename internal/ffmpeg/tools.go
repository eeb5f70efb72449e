package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
)

var lookPath = exec.LookPath

// Check verifies that ffmpeg and ffprobe resolve and that the ffmpeg
// build carries the mp3 encoder.
func (t *Toolchain) Check(ctx context.Context) error {
	var errs []error
	for _, bin := range []string{t.ffmpegPath, t.ffprobePath} {
		if _, err := lookPath(bin); err != nil {
			errs = append(errs, fmt.Errorf("%s not found: %w", bin, err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	if !t.testAudioEncoder(ctx, "libmp3lame") {
		return fmt.Errorf("%s lacks the libmp3lame encoder", t.ffmpegPath)
	}
	return nil
}

// testAudioEncoder runs a tiny silent encode to prove the encoder works.
func (t *Toolchain) testAudioEncoder(ctx context.Context, encoder string) bool {
	_, err := t.run(ctx, t.ffmpegPath,
		"-hide_banner", "-loglevel", "error", "-nostdin",
		"-f", "lavfi", "-i", "anullsrc=r=16000:cl=mono",
		"-t", "0.1",
		"-c:a", encoder,
		"-f", "null", "-",
	)
	if err != nil {
		log.Warn().Err(err).Str("encoder", encoder).Msg("encoder test failed")
		return false
	}
	return true
}

// Version returns the first line of `ffmpeg -version`.
func (t *Toolchain) Version(ctx context.Context) (string, error) {
	out, err := t.run(ctx, t.ffmpegPath, "-hide_banner", "-version")
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(out.Stdout, "\n")
	return strings.TrimSpace(line), nil
}
