//go:build !gosseract

package ocr

// NewTesseractEngine reports ErrUnavailable; build with -tags gosseract to
// link libtesseract.
func NewTesseractEngine(language string) (Engine, error) {
	return nil, ErrUnavailable
}
