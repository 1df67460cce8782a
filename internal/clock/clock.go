package clock

import (
	"fmt"
	"time"
	_ "time/tzdata" // zone data is embedded so containers without /usr/share/zoneinfo still resolve Asia/Jakarta
)

// DefaultZone is the school's local zone.
const DefaultZone = "Asia/Jakarta"

// Clock returns the current instant.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock.
type System struct{}

// Now returns time.Now().
func (System) Now() time.Time { return time.Now() }

// Fixed always returns the same instant.
type Fixed time.Time

// Now returns the fixed instant.
func (f Fixed) Now() time.Time { return time.Time(f) }

// LoadZone resolves an IANA zone name, defaulting to DefaultZone when empty.
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load zone %q: %w", name, err)
	}
	return loc, nil
}
