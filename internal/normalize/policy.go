//-------------------------------------------------------------------------
//
// pgEdge Normalize
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package normalize

import "fmt"

// TieBreak decides between candidates that score equally.
type TieBreak string

const (
	// TieBreakFirstSeen prefers the candidate observed at the lowest row.
	TieBreakFirstSeen TieBreak = "first-seen"
	// TieBreakLastSeen prefers the candidate observed at the highest row.
	TieBreakLastSeen TieBreak = "last-seen"
)

// CountrySelection picks a customer's country among its transactions.
type CountrySelection string

const (
	// CountryLatest takes the country of the most recent transaction.
	CountryLatest CountrySelection = "latest"
	// CountryMostFrequent takes the country seen on most transactions.
	CountryMostFrequent CountrySelection = "most-frequent"
)

// DescriptionSelection picks a product's description among observations.
type DescriptionSelection string

const (
	// DescriptionMostFrequent takes the description seen on most rows.
	DescriptionMostFrequent DescriptionSelection = "most-frequent"
	// DescriptionLatest takes the description of the most recent row.
	DescriptionLatest DescriptionSelection = "latest"
)

// Violation decides whether a finding is reported or aborts the run.
type Violation string

const (
	// ViolationWarn records an issue and continues.
	ViolationWarn Violation = "warn"
	// ViolationFail aborts the run with an error.
	ViolationFail Violation = "fail"
)

// Policy holds the resolution heuristics of a run.
type Policy struct {
	Sentinels            *SentinelTable
	UnmappedCountry      Violation
	MissingDescription   Violation
	CountrySelection     CountrySelection
	DescriptionSelection DescriptionSelection
	TieBreak             TieBreak
}

// DefaultPolicy returns the built-in sentinel table with latest-country,
// most-frequent-description and first-seen tie breaking.
func DefaultPolicy() Policy {
	table, err := NewSentinelTable(DefaultSentinels(), DefaultSentinelID)
	if err != nil {
		panic(err)
	}
	return Policy{
		Sentinels:            table,
		UnmappedCountry:      ViolationWarn,
		MissingDescription:   ViolationWarn,
		CountrySelection:     CountryLatest,
		DescriptionSelection: DescriptionMostFrequent,
		TieBreak:             TieBreakFirstSeen,
	}
}

// Validate checks that every field holds a known value.
func (p Policy) Validate() error {
	if p.Sentinels == nil {
		return fmt.Errorf("%w: sentinel table is required", ErrInvalidPolicy)
	}
	switch p.UnmappedCountry {
	case ViolationWarn, ViolationFail:
	default:
		return fmt.Errorf("%w: unmapped_country must be 'warn' or 'fail', got %q",
			ErrInvalidPolicy, p.UnmappedCountry)
	}
	switch p.MissingDescription {
	case ViolationWarn, ViolationFail:
	default:
		return fmt.Errorf("%w: missing_description must be 'warn' or 'fail', got %q",
			ErrInvalidPolicy, p.MissingDescription)
	}
	switch p.CountrySelection {
	case CountryLatest, CountryMostFrequent:
	default:
		return fmt.Errorf("%w: country_selection must be 'latest' or 'most-frequent', got %q",
			ErrInvalidPolicy, p.CountrySelection)
	}
	switch p.DescriptionSelection {
	case DescriptionMostFrequent, DescriptionLatest:
	default:
		return fmt.Errorf("%w: description_selection must be 'most-frequent' or 'latest', got %q",
			ErrInvalidPolicy, p.DescriptionSelection)
	}
	switch p.TieBreak {
	case TieBreakFirstSeen, TieBreakLastSeen:
	default:
		return fmt.Errorf("%w: tie_break must be 'first-seen' or 'last-seen', got %q",
			ErrInvalidPolicy, p.TieBreak)
	}
	return nil
}

// prefers reports whether a candidate first observed at row a wins over
// one observed at row b when everything else is equal.
func (t TieBreak) prefers(a, b int) bool {
	if t == TieBreakLastSeen {
		return a > b
	}
	return a < b
}
