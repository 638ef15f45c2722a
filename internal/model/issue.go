package model

import "fmt"

// IssueKind classifies a non-fatal finding of a run.
type IssueKind string

const (
	// IssueUnmappedCountry marks a row whose country had no sentinel and
	// received the default one.
	IssueUnmappedCountry IssueKind = "unmapped_country"

	// IssueMissingDescription marks a stock code with no usable description.
	IssueMissingDescription IssueKind = "missing_description"

	// IssueMalformedRow marks a source row skipped by the reader.
	IssueMalformedRow IssueKind = "malformed_row"
)

// Issue is a finding reported alongside a successful run.
type Issue struct {
	Kind IssueKind

	// Row is the source row the issue was found at, 0 when not row-bound.
	Row int

	// Key is the business key involved (country, stock code, ...).
	Key string

	Message string
}

func (i Issue) String() string {
	if i.Row > 0 {
		return fmt.Sprintf("%s at row %d (%s): %s", i.Kind, i.Row, i.Key, i.Message)
	}
	return fmt.Sprintf("%s (%s): %s", i.Kind, i.Key, i.Message)
}
