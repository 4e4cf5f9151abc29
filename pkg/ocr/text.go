package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TextFileEngine replays already recognized text. For an image path it
// reads the ".txt" file next to it; a path that already ends in ".txt" is
// read directly.
type TextFileEngine struct{}

// Recognize reads the text sidecar of imagePath.
func (TextFileEngine) Recognize(ctx context.Context, imagePath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := SidecarPath(imagePath)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading recognized text: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", ErrNoText
	}
	return string(data), nil
}

// SidecarPath returns the ".txt" path for an image.
func SidecarPath(imagePath string) string {
	ext := filepath.Ext(imagePath)
	if strings.EqualFold(ext, ".txt") {
		return imagePath
	}
	return strings.TrimSuffix(imagePath, ext) + ".txt"
}
