package normalize

import (
	"fmt"

	"github.com/pgEdge/pgedge-normalize/internal/model"
)

// RepairIdentifiers assigns a sentinel customer id to every transaction
// without one. Transactions that already have a customer are untouched.
// One issue is returned per row whose country fell back to the default.
func RepairIdentifiers(txs []model.Transaction, table *SentinelTable) (repaired int, issues []model.Issue) {
	for i := range txs {
		if txs[i].HasCustomer() {
			continue
		}
		id, mapped := table.Lookup(txs[i].Country)
		txs[i].CustomerID = &id
		repaired++
		if !mapped {
			issues = append(issues, model.Issue{
				Kind: model.IssueUnmappedCountry,
				Row:  txs[i].Row,
				Key:  txs[i].Country,
				Message: fmt.Sprintf("no sentinel for country, assigned default %d",
					table.Default()),
			})
		}
	}
	return repaired, issues
}

// unmappedCountryErrors groups unmapped-country issues by country, in
// first-seen order.
func unmappedCountryErrors(issues []model.Issue) []error {
	byCountry := make(map[string]*UnmappedCountryError)
	var order []string
	for _, is := range issues {
		if is.Kind != model.IssueUnmappedCountry {
			continue
		}
		e, ok := byCountry[is.Key]
		if !ok {
			e = &UnmappedCountryError{Country: is.Key}
			byCountry[is.Key] = e
			order = append(order, is.Key)
		}
		e.Rows = append(e.Rows, is.Row)
	}

	errs := make([]error, 0, len(order))
	for _, c := range order {
		errs = append(errs, byCountry[c])
	}
	return errs
}
