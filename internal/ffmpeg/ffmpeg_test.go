package ffmpeg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// fakeRunner records invocations and delegates to injected behavior.
type fakeRunner struct {
	calls [][]string
	run   func(name string, args ...string) (CommandLog, error)
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (CommandLog, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.run == nil {
		return CommandLog{Command: name}, nil
	}
	return f.run(name, args...)
}

func argValue(args []string, flag string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func TestWindows(t *testing.T) {
	got := Windows(40*time.Second, 15*time.Second)
	if len(got) != 3 {
		t.Fatalf("windows = %d, want 3", len(got))
	}
	if got[2].Start != 30*time.Second || got[2].Length != 10*time.Second {
		t.Fatalf("last window = %+v", got[2])
	}
	for i, w := range got {
		if w.Index != i {
			t.Fatalf("window %d has index %d", i, w.Index)
		}
	}

	exact := Windows(30*time.Second, 15*time.Second)
	if len(exact) != 2 || exact[1].Length != 15*time.Second {
		t.Fatalf("exact windows = %+v", exact)
	}
	if Windows(0, 15*time.Second) != nil {
		t.Fatal("zero duration should yield no windows")
	}
}

func TestDurationParsesFormat(t *testing.T) {
	runner := &fakeRunner{run: func(name string, args ...string) (CommandLog, error) {
		return CommandLog{Stdout: `{"format":{"duration":"12.500000","format_name":"mov,mp4"},"streams":[{"codec_type":"video"},{"codec_type":"audio","codec_name":"aac"}]}`}, nil
	}}
	tc := NewWithRunner("ffmpeg", "ffprobe-custom", runner)

	info, err := tc.Probe(context.Background(), "/tmp/in.mp4")
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if info.Duration != 12500*time.Millisecond {
		t.Fatalf("Duration = %v", info.Duration)
	}
	if !info.HasAudio || info.AudioCodec != "aac" {
		t.Fatalf("audio = %v %q", info.HasAudio, info.AudioCodec)
	}
	if runner.calls[0][0] != "ffprobe-custom" {
		t.Fatalf("probe binary = %q", runner.calls[0][0])
	}
}

func TestDurationMissing(t *testing.T) {
	for _, out := range []string{`{"format":{}}`, `{"format":{"duration":"N/A"}}`, `{"format":{"duration":"0.000"}}`, `not json`} {
		runner := &fakeRunner{run: func(name string, args ...string) (CommandLog, error) {
			return CommandLog{Stdout: out}, nil
		}}
		_, err := NewWithRunner("", "", runner).Duration(context.Background(), "in.mp4")
		if err == nil {
			t.Fatalf("Duration(%s) succeeded, want error", out)
		}
	}
}

func TestEncodeWindowArgs(t *testing.T) {
	runner := &fakeRunner{}
	tc := NewWithRunner("ffmpeg", "ffprobe", runner)

	w := Window{Index: 2, Start: 30 * time.Second, Length: 7500 * time.Millisecond}
	if err := tc.EncodeWindow(context.Background(), "src.mp4", w, "out.mp3", AudioOptions{SampleRate: 22050, Bitrate: "48k"}); err != nil {
		t.Fatalf("EncodeWindow() error = %v", err)
	}
	args := runner.calls[0][1:]
	checks := map[string]string{"-ss": "30.000", "-t": "7.500", "-i": "src.mp4", "-ac": "1", "-ar": "22050", "-c:a": "libmp3lame", "-b:a": "48k"}
	for flag, want := range checks {
		if got := argValue(args, flag); got != want {
			t.Fatalf("%s = %q, want %q", flag, got, want)
		}
	}
	if args[len(args)-1] != "out.mp3" {
		t.Fatalf("output = %q", args[len(args)-1])
	}
}

func TestEncodeWindowFailureCarriesStderr(t *testing.T) {
	runner := &fakeRunner{run: func(name string, args ...string) (CommandLog, error) {
		return CommandLog{Command: name, ExitCode: 1, Stderr: "Invalid data found when processing input\n"}, errors.New("exit status 1")
	}}
	err := NewWithRunner("", "", runner).EncodeWindow(context.Background(), "bad.mp4", Window{Length: time.Second}, "o.mp3", DefaultAudioOptions())

	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("error = %v, want *CommandError", err)
	}
	if cmdErr.Log.ExitCode != 1 || !strings.Contains(err.Error(), "Invalid data found") {
		t.Fatalf("error = %v", err)
	}
}

func TestConcatWritesOrderedList(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{}
	tc := NewWithRunner("ffmpeg", "ffprobe", runner)

	parts := []string{filepath.Join(dir, SegmentName(0)), filepath.Join(dir, SegmentName(1)), filepath.Join(dir, "it's.mp3")}
	output := filepath.Join(dir, "audio.mp3")
	if err := tc.Concat(context.Background(), parts, output); err != nil {
		t.Fatalf("Concat() error = %v", err)
	}

	list, err := os.ReadFile(filepath.Join(dir, "segments.txt"))
	if err != nil {
		t.Fatalf("read list: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(list)), "\n")
	if len(lines) != 3 {
		t.Fatalf("list lines = %d", len(lines))
	}
	if !strings.HasSuffix(lines[0], "segment_000.mp3'") || !strings.HasSuffix(lines[1], "segment_001.mp3'") {
		t.Fatalf("list order = %v", lines)
	}
	if !strings.Contains(lines[2], `it'\''s.mp3`) {
		t.Fatalf("quote not escaped: %q", lines[2])
	}

	args := runner.calls[0][1:]
	if argValue(args, "-c") != "copy" || argValue(args, "-f") != "concat" {
		t.Fatalf("concat args = %v", args)
	}
}

func TestConcatRejectsEmpty(t *testing.T) {
	if err := NewWithRunner("", "", &fakeRunner{}).Concat(context.Background(), nil, "out.mp3"); err == nil {
		t.Fatal("Concat(nil) succeeded")
	}
}

func TestSplitReturnsSortedChunks(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{run: func(name string, args ...string) (CommandLog, error) {
		for _, n := range []string{"chunk_002.mp3", "chunk_000.mp3", "chunk_001.mp3"} {
			if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o600); err != nil {
				return CommandLog{}, err
			}
		}
		return CommandLog{}, nil
	}}

	chunks, err := NewWithRunner("", "", runner).Split(context.Background(), "/tmp/audio.mp3", dir, 10*time.Minute)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) != 3 || filepath.Base(chunks[0]) != "chunk_000.mp3" || filepath.Base(chunks[2]) != "chunk_002.mp3" {
		t.Fatalf("chunks = %v", chunks)
	}
	if got := argValue(runner.calls[0][1:], "-segment_time"); got != "600.000" {
		t.Fatalf("-segment_time = %q", got)
	}
}

func TestCheckMissingBinary(t *testing.T) {
	orig := lookPath
	defer func() { lookPath = orig }()
	lookPath = func(file string) (string, error) {
		if file == "ffprobe" {
			return "", errors.New("executable file not found in $PATH")
		}
		return "/usr/bin/" + file, nil
	}

	runner := &fakeRunner{}
	err := NewWithRunner("ffmpeg", "ffprobe", runner).Check(context.Background())
	if err == nil || !strings.Contains(err.Error(), "ffprobe not found") {
		t.Fatalf("Check() error = %v", err)
	}
	if len(runner.calls) != 0 {
		t.Fatal("encoder test should not run when a binary is missing")
	}
}
