package mvp

import (
	"regexp"
	"strings"
)

// IndicatorPatterns are the signals that a chat line talks about an MVP.
// They are compiled into a single alternation, so a stretch of text counts
// once even when several patterns could claim it.
var IndicatorPatterns = []string{
	`mvp`,             // the word itself
	`\d/\d`,           // channel extension notation, e.g. 5/6
	`\s?x{1,2}:?\d\d`, // masked time: xx:00, xx00, x:00, x00
	`extend`,          // extension notices
}

// KeywordRule maps a set of keywords to a canonical value.
type KeywordRule struct {
	Keywords []string
	Value    string
}

// DefaultLocations is the ordered location table. Earlier rules win, so
// generic keywords must sit behind specific ones.
var DefaultLocations = []KeywordRule{
	{Keywords: []string{"kerning", "kernig", "kering", "city"}, Value: "Kerning City"},
	{Keywords: []string{"hene"}, Value: "Henesys"},
	{Keywords: []string{"leafre"}, Value: "Leafre"},
	{Keywords: []string{"cern"}, Value: "Cernium"},
	{Keywords: []string{"ludi"}, Value: "Ludibrium"},
	{Keywords: []string{"ellinia"}, Value: "Ellinia"},
	{Keywords: []string{"nameless", "vanishing"}, Value: "Nameless Town"},
	{Keywords: []string{"lith harbor"}, Value: "Lith Harbor"},
}

// MatchFirst returns the value of the first rule with a keyword contained
// in text. Matching is case-insensitive.
func MatchFirst(rules []KeywordRule, text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, rule := range rules {
		for _, kw := range rule.Keywords {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				return rule.Value, true
			}
		}
	}
	return "", false
}

// ClassifyLocation maps a chat line to a canonical location using rules,
// falling back to Unknown.
func ClassifyLocation(rules []KeywordRule, line string) string {
	if name, ok := MatchFirst(rules, line); ok {
		return name
	}
	return Unknown
}

// channelPattern matches c/ch/cc/channel, one optional non-digit, then the
// channel number.
var channelPattern = regexp.MustCompile(`(c|ch|cc|channel)\D?(\d{1,2})`)

// ExtractChannel returns the first channel number referenced in line with
// leading zeros removed, or Unknown.
func ExtractChannel(line string) string {
	m := channelPattern.FindStringSubmatch(strings.ToLower(line))
	if m == nil {
		return Unknown
	}
	ch := strings.TrimLeft(m[2], "0")
	if ch == "" {
		return "0"
	}
	return ch
}

// compileIndicators builds the case-insensitive alternation of patterns.
func compileIndicators(patterns []string) *regexp.Regexp {
	parts := make([]string, len(patterns))
	for i, p := range patterns {
		parts[i] = "(?:" + p + ")"
	}
	return regexp.MustCompile("(?i)" + strings.Join(parts, "|"))
}
