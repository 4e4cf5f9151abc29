//go:build gosseract

package ocr

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// chatVariables bias tesseract towards the chat vocabulary instead of
// dictionary words.
var chatVariables = map[gosseract.SettableVariable]string{
	"language_model_penalty_non_freq_dict_word": "1",
	"language_model_penalty_non_dict_word":      "1",
}

// TesseractEngine binds libtesseract through gosseract. A single client is
// reused, so calls are serialized.
type TesseractEngine struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewTesseractEngine creates a libtesseract engine for language.
func NewTesseractEngine(language string) (Engine, error) {
	if language == "" {
		language = "eng"
	}

	client := gosseract.NewClient()
	if err := client.SetLanguage(language); err != nil {
		client.Close()
		return nil, fmt.Errorf("setting language %q: %w", language, err)
	}
	for k, v := range chatVariables {
		if err := client.SetVariable(k, v); err != nil {
			client.Close()
			return nil, fmt.Errorf("setting %s: %w", k, err)
		}
	}
	return &TesseractEngine{client: client}, nil
}

// Recognize runs OCR on imagePath.
func (e *TesseractEngine) Recognize(ctx context.Context, imagePath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.client.SetImage(imagePath); err != nil {
		return "", fmt.Errorf("loading image: %w", err)
	}
	text, err := e.client.Text()
	if err != nil {
		return "", fmt.Errorf("recognizing %s: %w", imagePath, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	return text, nil
}

// Close releases the tesseract client.
func (e *TesseractEngine) Close() error {
	return e.client.Close()
}
