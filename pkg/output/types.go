// Package output provides formatting of extracted spawn entries.
package output

import (
	"time"

	"github.com/mvpwatch/mvpwatch/pkg/mvp"
)

// Report is the complete output of one parse run.
type Report struct {
	// Summary provides aggregate statistics.
	Summary Summary `json:"summary"`

	// Entries are the extracted spawn entries in chat order.
	Entries []mvp.Entry `json:"entries"`

	// Metadata provides context about the run.
	Metadata Metadata `json:"metadata"`
}

// Summary provides aggregate statistics.
type Summary struct {
	// LinesSegmented is the number of chat lines found in the input.
	LinesSegmented int `json:"lines_segmented"`

	// Entries is the number of spawn entries extracted.
	Entries int `json:"entries"`

	// UnknownSpawn counts entries without a resolved spawn time.
	UnknownSpawn int `json:"unknown_spawn"`
}

// Metadata provides context about the run.
type Metadata struct {
	// Source is the input file, or "-" for stdin.
	Source string `json:"source"`

	// ServerTimezone is the zone of the chat markers.
	ServerTimezone string `json:"server_timezone"`

	// ParsedAt is when the run happened.
	ParsedAt time.Time `json:"parsed_at"`
}

// NewReport builds a Report from parsed entries.
func NewReport(entries []mvp.Entry, linesSegmented int, meta Metadata) *Report {
	if entries == nil {
		entries = []mvp.Entry{}
	}

	unknown := 0
	for _, e := range entries {
		if e.Spawn == nil {
			unknown++
		}
	}

	return &Report{
		Summary: Summary{
			LinesSegmented: linesSegmented,
			Entries:        len(entries),
			UnknownSpawn:   unknown,
		},
		Entries:  entries,
		Metadata: meta,
	}
}

// HasEntries returns true if any entries were extracted.
func (r *Report) HasEntries() bool {
	return r.Summary.Entries > 0
}
