// Package timefmt renders stored timestamps for display at the API edge.
// Rendered values are time-of-day strings for people, not for sorting.
package timefmt

import (
	"fmt"
	"time"
	_ "time/tzdata" // containers often ship without a zoneinfo database
)

// DefaultLayout matches the "h:mm:ss AM" style clients already render.
const DefaultLayout = "3:04:05 PM"

type Formatter struct {
	loc    *time.Location
	layout string
}

// New builds a Formatter for an IANA zone name ("Local" and "UTC" included).
// An empty layout falls back to DefaultLayout.
func New(location, layout string) (*Formatter, error) {
	loc, err := time.LoadLocation(location)
	if err != nil {
		return nil, fmt.Errorf("load location %q: %w", location, err)
	}
	if layout == "" {
		layout = DefaultLayout
	}
	return &Formatter{loc: loc, layout: layout}, nil
}

// Format renders t in the formatter's zone.
func (f *Formatter) Format(t time.Time) string {
	return t.In(f.loc).Format(f.layout)
}
