//-------------------------------------------------------------------------
//
// pgEdge Normalize
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package normalize

import (
	"fmt"
	"strings"
)

// DefaultSentinelID is assigned to rows whose country is not in the table.
const DefaultSentinelID int64 = -99

// Sentinel maps a country to the negative customer id that stands in for
// missing customers from that country.
type Sentinel struct {
	Country string `mapstructure:"country"`
	ID      int64  `mapstructure:"id"`
}

// DefaultSentinels returns the built-in country table.
func DefaultSentinels() []Sentinel {
	return []Sentinel{
		{Country: "United Kingdom", ID: -1},
		{Country: "EIRE", ID: -2},
		{Country: "France", ID: -3},
		{Country: "Hong Kong", ID: -4},
		{Country: "Bahrain", ID: -5},
		{Country: "Israel", ID: -6},
		{Country: "Portugal", ID: -7},
		{Country: "Switzerland", ID: -8},
		{Country: "Unspecified", ID: -9},
	}
}

// SentinelTable is an immutable country lookup. Countries match after
// trimming and case folding.
type SentinelTable struct {
	entries   []Sentinel
	byCountry map[string]int64
	def       int64
}

// NewSentinelTable validates entries and builds a table.
func NewSentinelTable(entries []Sentinel, defaultID int64) (*SentinelTable, error) {
	if defaultID >= 0 {
		return nil, fmt.Errorf("%w: default sentinel must be negative, got %d",
			ErrInvalidPolicy, defaultID)
	}

	t := &SentinelTable{
		entries:   make([]Sentinel, 0, len(entries)),
		byCountry: make(map[string]int64, len(entries)),
		def:       defaultID,
	}
	seenIDs := make(map[int64]string, len(entries))

	for _, e := range entries {
		key := countryKey(e.Country)
		if key == "" {
			return nil, fmt.Errorf("%w: sentinel %d has an empty country", ErrInvalidPolicy, e.ID)
		}
		if e.ID >= 0 {
			return nil, fmt.Errorf("%w: sentinel for %q must be negative, got %d",
				ErrInvalidPolicy, e.Country, e.ID)
		}
		if e.ID == defaultID {
			return nil, fmt.Errorf("%w: sentinel for %q collides with the default %d",
				ErrInvalidPolicy, e.Country, defaultID)
		}
		if _, dup := t.byCountry[key]; dup {
			return nil, fmt.Errorf("%w: country %q is mapped twice", ErrInvalidPolicy, e.Country)
		}
		if other, dup := seenIDs[e.ID]; dup {
			return nil, fmt.Errorf("%w: sentinel %d is used by both %q and %q",
				ErrInvalidPolicy, e.ID, other, e.Country)
		}
		seenIDs[e.ID] = e.Country
		t.byCountry[key] = e.ID
		t.entries = append(t.entries, Sentinel{Country: strings.TrimSpace(e.Country), ID: e.ID})
	}

	return t, nil
}

// Lookup returns the sentinel for country and whether it was mapped.
// Unmapped countries get the default sentinel.
func (t *SentinelTable) Lookup(country string) (int64, bool) {
	if id, ok := t.byCountry[countryKey(country)]; ok {
		return id, true
	}
	return t.def, false
}

// Default returns the fallback sentinel.
func (t *SentinelTable) Default() int64 {
	return t.def
}

// Entries returns a copy of the mapped countries in configuration order.
func (t *SentinelTable) Entries() []Sentinel {
	out := make([]Sentinel, len(t.entries))
	copy(out, t.entries)
	return out
}

func countryKey(country string) string {
	return strings.ToLower(strings.TrimSpace(country))
}
