// Package mvp extracts boss spawn timers from segmented chat lines.
//
// The pipeline is synchronous and holds no mutable global state: a Parser
// filters lines that look like MVP announcements, resolves their posted and
// spawn times, classifies the location and channel, and yields one Entry per
// qualifying line in input order.
package mvp

import (
	"fmt"
	"time"
)

// Unknown is the sentinel for a location or channel that could not be
// determined, and the display text for an unresolved spawn time.
const Unknown = "Unknown"

// clockLayout is the 24-hour layout used for chat markers and spawn times.
const clockLayout = "15:04"

// Clock is a time of day without a date. Two clocks compare equal whenever
// they name the same hour and minute, regardless of the day they were seen.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses an HH:MM string as a 24-hour time of day.
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return Clock{}, fmt.Errorf("parsing time of day %q: %w", s, err)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// String returns the clock as HH:MM.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// On places the clock on the calendar day of t, in t's location.
func (c Clock) On(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), c.Hour, c.Minute, 0, 0, t.Location())
}

// MarshalText implements encoding.TextMarshaler.
func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Clock) UnmarshalText(b []byte) error {
	parsed, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Entry is one spawn timer extracted from a chat line.
type Entry struct {
	// Posted is when the chat line appeared, taken from its [HH:MM] marker
	// in the server's clock.
	Posted Clock `json:"posted_time"`

	// Spawn is the resolved spawn time, or nil when it could not be
	// determined (extension notices, malformed masked times).
	Spawn *Clock `json:"spawn_time"`

	// Location is a canonical place name or Unknown.
	Location string `json:"location"`

	// Channel is the channel number without leading zeros, or Unknown.
	Channel string `json:"channel"`

	// Message is the chat line exactly as segmented.
	Message string `json:"original_message"`

	// SpawnToken is the raw masked-time token the spawn was resolved from.
	SpawnToken string `json:"spawn_token,omitempty"`

	// Zone is the server clock's time zone.
	Zone *time.Location `json:"-"`
}

// Key identifies an entry for deduplication. Only the posted and spawn
// times take part; location and channel do not, so two announcements that
// share both times collapse into one key.
type Key struct {
	Posted     Clock
	Spawn      Clock
	SpawnKnown bool
}

// String renders the key as posted/spawn, e.g. "13:05/14:00".
func (k Key) String() string {
	spawn := Unknown
	if k.SpawnKnown {
		spawn = k.Spawn.String()
	}
	return k.Posted.String() + "/" + spawn
}

// Key returns the deduplication key of the entry.
func (e Entry) Key() Key {
	k := Key{Posted: e.Posted}
	if e.Spawn != nil {
		k.Spawn = *e.Spawn
		k.SpawnKnown = true
	}
	return k
}

// Equal reports whether e and other share the same deduplication key.
func (e Entry) Equal(other Entry) bool {
	return e.Key() == other.Key()
}

// SpawnText returns the spawn time as HH:MM, or Unknown.
func (e Entry) SpawnText() string {
	if e.Spawn == nil {
		return Unknown
	}
	return e.Spawn.String()
}

// PostedAt returns the posted time on the server-clock day of now.
func (e Entry) PostedAt(now time.Time) time.Time {
	zone := e.Zone
	if zone == nil {
		zone = time.UTC
	}
	return e.Posted.On(now.In(zone))
}
