package mvp

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnresolvedSpawn is returned when a masked time cannot be turned into a
// valid time of day.
var ErrUnresolvedSpawn = errors.New("unresolved spawn time")

var (
	// postedPattern captures the marker that opens a chat line.
	postedPattern = regexp.MustCompile(`^\[(\d{2}:\d{2})\]`)

	// maskedTimePattern captures a masked time, optionally followed by a
	// second one for extensions (xx:30/xx:45). Only the first is used.
	maskedTimePattern = regexp.MustCompile(`(x+:?\d\d)/?(x+:?\d\d)?`)

	maskRun = regexp.MustCompile(`x+`)
)

// ParsePosted returns the time of day in the line's leading [HH:MM] marker
// and the length of the marker.
func ParsePosted(line string) (Clock, int, error) {
	m := postedPattern.FindStringSubmatch(line)
	if m == nil {
		return Clock{}, 0, errors.New("line has no [HH:MM] marker")
	}
	c, err := ParseClock(m[1])
	if err != nil {
		return Clock{}, 0, err
	}
	return c, len(m[0]), nil
}

// FindMaskedTime returns the first masked-time token in text. The text is
// expected in lower case.
func FindMaskedTime(text string) (string, bool) {
	m := maskedTimePattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// NormalizeMaskedTime rewrites a masked-time token into the xx:MM form:
// a missing colon is inserted before the minutes and the mask is widened or
// narrowed to exactly two characters.
func NormalizeMaskedTime(token string) string {
	if !strings.Contains(token, ":") && len(token) > 2 {
		cut := len(token) - 2
		token = token[:cut] + ":" + token[cut:]
	}
	return maskRun.ReplaceAllString(token, "xx")
}

// ResolveSpawn fills the mask of token with an hour derived from posted.
// A masked time on the hour (xx:00) means the next hour boundary; any other
// minute is taken to be within the posted hour.
func ResolveSpawn(token string, posted Clock) (Clock, error) {
	norm := NormalizeMaskedTime(token)

	hour := posted.Hour
	if strings.HasSuffix(norm, ":00") {
		hour++
	}

	literal := strings.ReplaceAll(norm, "xx", fmt.Sprintf("%02d", hour))
	c, err := ParseClock(literal)
	if err != nil {
		return Clock{}, fmt.Errorf("%w from %q: %w", ErrUnresolvedSpawn, token, err)
	}
	return c, nil
}
