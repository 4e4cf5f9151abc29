package mvp

import (
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/mvpwatch/mvpwatch/pkg/chat"
)

// Parser runs the full extraction pipeline over recognized chat text.
// A Parser is immutable after construction and safe for concurrent use.
type Parser struct {
	filter    *Filter
	locations []KeywordRule
	zone      *time.Location
	logger    *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithLooseFilter accepts lines with a single MVP indicator instead of
// requiring a repeated one.
func WithLooseFilter() Option {
	return func(p *Parser) {
		p.filter = NewFilter(true)
	}
}

// WithLocations replaces the location table. Order is priority.
func WithLocations(rules []KeywordRule) Option {
	return func(p *Parser) {
		if len(rules) > 0 {
			p.locations = rules
		}
	}
}

// WithZone sets the time zone of the server clock shown in chat markers.
func WithZone(zone *time.Location) Option {
	return func(p *Parser) {
		if zone != nil {
			p.zone = zone
		}
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewParser creates a Parser with a strict filter, DefaultLocations and a
// UTC server clock unless overridden.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		filter:    NewFilter(false),
		locations: DefaultLocations,
		zone:      time.UTC,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Zone returns the server clock's time zone.
func (p *Parser) Zone() *time.Location {
	return p.zone
}

// Entries segments text and yields an Entry for every qualifying line.
func (p *Parser) Entries(text string) iter.Seq[Entry] {
	return p.EntriesFrom(chat.Segment(text))
}

// EntriesFrom yields an Entry for every qualifying line of an already
// segmented sequence, preserving order.
func (p *Parser) EntriesFrom(lines iter.Seq[string]) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for line := range p.filter.Apply(lines) {
			e, ok := p.Entry(line)
			if !ok {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// Parse collects Entries into a slice.
func (p *Parser) Parse(text string) []Entry {
	var entries []Entry
	for e := range p.Entries(text) {
		entries = append(entries, e)
	}
	return entries
}

// Entry builds the entry for a single filtered line. It reports false when
// the line turns out not to be a timer: no usable marker, or neither a
// masked time nor an extension notice.
func (p *Parser) Entry(line string) (Entry, bool) {
	lower := strings.ToLower(line)

	posted, markerLen, err := ParsePosted(lower)
	if err != nil {
		p.logger.Warn("skipping chat line with bad time marker",
			slog.String("line", line), slog.Any("err", err))
		return Entry{}, false
	}

	e := Entry{
		Posted:  posted,
		Message: line,
		Zone:    p.zone,
	}

	token, found := FindMaskedTime(lower[markerLen:])
	switch {
	case found:
		e.SpawnToken = token
		spawn, err := ResolveSpawn(token, posted)
		if err != nil {
			p.logger.Warn("could not resolve spawn time",
				slog.String("token", token),
				slog.String("line", line),
				slog.Any("err", err))
		} else {
			e.Spawn = &spawn
		}
	case strings.Contains(lower, "extend"):
		// extensions carry no fixed time
	default:
		p.logger.Debug("no masked time in candidate line", slog.String("line", line))
		return Entry{}, false
	}

	e.Location = ClassifyLocation(p.locations, lower)
	e.Channel = ExtractChannel(lower)
	return e, true
}
