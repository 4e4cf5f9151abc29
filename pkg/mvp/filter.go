package mvp

import (
	"iter"
	"regexp"
	"strings"
)

// noiseMarker shows up in OCR fragments of unrelated words; lines carrying
// it are never MVP calls.
const noiseMarker = "mpe"

// Filter selects chat lines that plausibly announce an MVP.
type Filter struct {
	indicators *regexp.Regexp
	minHits    int
}

// NewFilter creates a filter over IndicatorPatterns. A strict filter needs
// at least two indicator hits per line; a loose one accepts a single hit.
func NewFilter(loose bool) *Filter {
	minHits := 2
	if loose {
		minHits = 1
	}
	return &Filter{
		indicators: compileIndicators(IndicatorPatterns),
		minHits:    minHits,
	}
}

// Match reports whether line qualifies.
func (f *Filter) Match(line string) bool {
	if Noisy(line) {
		return false
	}
	return len(f.indicators.FindAllStringIndex(line, f.minHits)) >= f.minHits
}

// Hits counts the indicator matches in line.
func (f *Filter) Hits(line string) int {
	return len(f.indicators.FindAllStringIndex(line, -1))
}

// MinHits is the number of indicator matches a line needs.
func (f *Filter) MinHits() int {
	return f.minHits
}

// Noisy reports whether line carries the noise marker.
func Noisy(line string) bool {
	return strings.Contains(strings.ToLower(line), noiseMarker)
}

// Apply yields the lines that match, in their original order.
func (f *Filter) Apply(lines iter.Seq[string]) iter.Seq[string] {
	return func(yield func(string) bool) {
		for line := range lines {
			if f.Match(line) && !yield(line) {
				return
			}
		}
	}
}
