package normalize

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoTransactions is returned when a run has nothing to resolve.
	ErrNoTransactions = errors.New("no transactions to normalize")

	// ErrInvalidPolicy is returned for a policy that cannot be applied.
	ErrInvalidPolicy = errors.New("invalid normalization policy")

	// ErrUnmappedCountry is returned under the fail policy when a row with
	// no customer has a country missing from the sentinel table.
	ErrUnmappedCountry = errors.New("country has no sentinel mapping")

	// ErrMissingCustomer is returned when a resolver sees a row that was
	// not repaired.
	ErrMissingCustomer = errors.New("transaction has no customer identifier")

	// ErrInvoiceCustomerConflict is returned when one invoice references
	// more than one customer.
	ErrInvoiceCustomerConflict = errors.New("invoice references more than one customer")

	// ErrMissingDescription is returned under the fail policy for a stock
	// code that never had a non-empty description.
	ErrMissingDescription = errors.New("stock code has no description")

	// ErrUnknownStockCode is returned when a line cannot be matched to a
	// resolved product.
	ErrUnknownStockCode = errors.New("stock code has no resolved product")
)

// UnmappedCountryError reports a country that fell back to the default
// sentinel.
type UnmappedCountryError struct {
	Country string
	Rows    []int
}

func (e *UnmappedCountryError) Error() string {
	return fmt.Sprintf("country %q (%d rows, first at row %d): %s",
		e.Country, len(e.Rows), e.Rows[0], ErrUnmappedCountry)
}

func (e *UnmappedCountryError) Unwrap() error {
	return ErrUnmappedCountry
}

// InvoiceConflictError reports an invoice observed with several customers.
type InvoiceConflictError struct {
	InvoiceNo   string
	CustomerIDs []int64
}

func (e *InvoiceConflictError) Error() string {
	ids := make([]string, len(e.CustomerIDs))
	for i, id := range e.CustomerIDs {
		ids[i] = fmt.Sprintf("%d", id)
	}
	return fmt.Sprintf("invoice %s: %s (%s)",
		e.InvoiceNo, ErrInvoiceCustomerConflict, strings.Join(ids, ", "))
}

func (e *InvoiceConflictError) Unwrap() error {
	return ErrInvoiceCustomerConflict
}
