package normalize

import (
	"fmt"
	"sort"
	"time"

	"github.com/pgEdge/pgedge-normalize/internal/model"
)

// ResolveCustomers collapses repaired transactions into one customer per
// id. Every transaction must carry a customer id.
func ResolveCustomers(txs []model.Transaction, p Policy) ([]model.Customer, error) {
	switch p.CountrySelection {
	case CountryMostFrequent:
		return customersByFrequency(txs, p.TieBreak)
	default:
		return customersByLatest(txs, p.TieBreak)
	}
}

func customersByLatest(txs []model.Transaction, tb TieBreak) ([]model.Customer, error) {
	type pick struct {
		at      time.Time
		row     int
		country string
	}
	best := make(map[int64]pick)

	for _, tx := range txs {
		if !tx.HasCustomer() {
			return nil, fmt.Errorf("row %d: %w", tx.Row, ErrMissingCustomer)
		}
		id := *tx.CustomerID
		cur, ok := best[id]
		if !ok ||
			tx.InvoiceDate.After(cur.at) ||
			(tx.InvoiceDate.Equal(cur.at) && tb.prefers(tx.Row, cur.row)) {
			best[id] = pick{at: tx.InvoiceDate, row: tx.Row, country: tx.Country}
		}
	}

	customers := make([]model.Customer, 0, len(best))
	for id, p := range best {
		customers = append(customers, model.Customer{ID: id, Country: p.country})
	}
	sortCustomers(customers)
	return customers, nil
}

func customersByFrequency(txs []model.Transaction, tb TieBreak) ([]model.Customer, error) {
	type group struct {
		order  []string
		counts map[string]*tally
	}
	groups := make(map[int64]*group)

	for _, tx := range txs {
		if !tx.HasCustomer() {
			return nil, fmt.Errorf("row %d: %w", tx.Row, ErrMissingCustomer)
		}
		id := *tx.CustomerID
		g, ok := groups[id]
		if !ok {
			g = &group{counts: make(map[string]*tally)}
			groups[id] = g
		}
		t, ok := g.counts[tx.Country]
		if !ok {
			t = &tally{}
			g.counts[tx.Country] = t
			g.order = append(g.order, tx.Country)
		}
		t.observe(tx.Row)
	}

	customers := make([]model.Customer, 0, len(groups))
	for id, g := range groups {
		country, _ := mostFrequent(g.order, g.counts, tb)
		customers = append(customers, model.Customer{ID: id, Country: country})
	}
	sortCustomers(customers)
	return customers, nil
}

func sortCustomers(customers []model.Customer) {
	sort.Slice(customers, func(i, j int) bool {
		return customers[i].ID < customers[j].ID
	})
}
