package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
)

// CommandLog captures one external command invocation.
type CommandLog struct {
	Command  string   `json:"command"`
	Args     []string `json:"args"`
	ExitCode int      `json:"exitCode"`
	Stdout   string   `json:"stdout"`
	Stderr   string   `json:"stderr"`
}

// Runner abstracts process execution so the toolchain can be faked in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (CommandLog, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) (CommandLog, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := CommandLog{
		Command: name,
		Args:    append([]string(nil), args...),
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}
	return result, nil
}

// CommandError is a failed tool invocation. The tool's stderr is part of
// the message.
type CommandError struct {
	Log CommandLog
	Err error
}

func (e *CommandError) Error() string {
	stderr := strings.TrimSpace(e.Log.Stderr)
	if stderr == "" {
		return fmt.Sprintf("%s exited with code %d: %v", e.Log.Command, e.Log.ExitCode, e.Err)
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Log.Command, e.Log.ExitCode, stderr)
}

func (e *CommandError) Unwrap() error { return e.Err }

// Toolchain runs ffmpeg and ffprobe.
type Toolchain struct {
	ffmpegPath  string
	ffprobePath string
	runner      Runner
}

func New(ffmpegPath, ffprobePath string) *Toolchain {
	return NewWithRunner(ffmpegPath, ffprobePath, ExecRunner{})
}

func NewWithRunner(ffmpegPath, ffprobePath string, runner Runner) *Toolchain {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Toolchain{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath, runner: runner}
}

func (t *Toolchain) run(ctx context.Context, name string, args ...string) (CommandLog, error) {
	result, err := t.runner.Run(ctx, name, args...)
	if err != nil {
		if result.Command == "" {
			result.Command = name
		}
		return result, &CommandError{Log: result, Err: err}
	}
	log.Debug().Str("command", name).Strs("args", args).Msg("command finished")
	return result, nil
}
