// Package ocr turns chat-pane screenshots into text.
//
// Image acquisition is not handled here; engines read an image file that an
// external capture tool keeps refreshing.
package ocr

import (
	"context"
	"errors"
	"fmt"
)

// Engine names.
const (
	EngineCommand = "command"
	EngineLibrary = "library"
	EngineText    = "text"
)

var (
	// ErrNoText is returned when recognition produced only whitespace.
	ErrNoText = errors.New("no text recognized")

	// ErrUnavailable is returned for engines not compiled into the binary.
	ErrUnavailable = errors.New("ocr engine not available in this build")
)

// Engine recognizes the text in an image file.
type Engine interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// Options selects and configures an engine.
type Options struct {
	Engine   string
	Binary   string
	Args     []string
	Language string
}

// New builds the engine described by opts.
func New(opts Options) (Engine, error) {
	switch opts.Engine {
	case "", EngineCommand:
		return NewCommandEngine(opts.Binary, opts.Language, opts.Args...), nil
	case EngineLibrary:
		return NewTesseractEngine(opts.Language)
	case EngineText:
		return TextFileEngine{}, nil
	default:
		return nil, fmt.Errorf("unknown ocr engine %q", opts.Engine)
	}
}
