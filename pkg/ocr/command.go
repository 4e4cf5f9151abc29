package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// CommandEngine runs the tesseract CLI and reads the recognized text from
// its stdout.
type CommandEngine struct {
	binary   string
	language string
	args     []string
}

// NewCommandEngine creates an engine that runs
// "<binary> <image> stdout -l <language> <args...>".
func NewCommandEngine(binary, language string, args ...string) *CommandEngine {
	if binary == "" {
		binary = "tesseract"
	}
	if language == "" {
		language = "eng"
	}
	return &CommandEngine{binary: binary, language: language, args: args}
}

// Available reports whether the binary can be found on PATH.
func (e *CommandEngine) Available() bool {
	_, err := exec.LookPath(e.binary)
	return err == nil
}

// Recognize runs the binary against imagePath.
func (e *CommandEngine) Recognize(ctx context.Context, imagePath string) (string, error) {
	args := append([]string{imagePath, "stdout", "-l", e.language}, e.args...)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("%s exited with code %d: %s", e.binary, exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return "", fmt.Errorf("running %s: %w", e.binary, err)
	}

	text := stdout.String()
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	return text, nil
}
