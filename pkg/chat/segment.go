// Package chat turns recognized chat-pane text into discrete chat lines.
package chat

import (
	"iter"
	"regexp"
	"strings"
)

// markerPattern matches the [HH:MM] stamp that opens every chat message.
var markerPattern = regexp.MustCompile(`\[\d{2}:\d{2}\]`)

// Segment splits a flat OCR text blob into chat lines. Each line starts at a
// [dd:dd] marker and runs up to, but not including, the next marker or the
// end of input, so messages wrapped over several rows come back whole.
// Text before the first marker is dropped. A blob without markers yields
// nothing.
func Segment(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		bounds := markerPattern.FindAllStringIndex(text, -1)
		for i, b := range bounds {
			end := len(text)
			if i+1 < len(bounds) {
				end = bounds[i+1][0]
			}
			if !yield(text[b[0]:end]) {
				return
			}
		}
	}
}

// Lines collects Segment into a slice.
func Lines(text string) []string {
	var lines []string
	for line := range Segment(text) {
		lines = append(lines, line)
	}
	return lines
}

// Flatten joins OCR output rows the way the segmenter expects them: rows are
// trimmed, empty rows removed, and the rest concatenated without separators.
func Flatten(ocrText string) string {
	var sb strings.Builder
	for _, row := range strings.Split(ocrText, "\n") {
		row = strings.TrimSpace(row)
		if row == "" {
			continue
		}
		sb.WriteString(row)
	}
	return sb.String()
}
