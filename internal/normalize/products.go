package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/pgEdge/pgedge-normalize/internal/model"
)

// ResolveProducts collapses transactions into one product per stock code.
// Products are numbered from seq in the order their stock code first
// appears. A stock code with no non-empty description yields a product
// with a nil description and a missing_description issue.
func ResolveProducts(txs []model.Transaction, p Policy, seq *Sequence) ([]model.Product, []model.Issue) {
	type latest struct {
		at   time.Time
		row  int
		desc string
	}
	type group struct {
		firstRow int
		order    []string
		counts   map[string]*tally
		latest   *latest
	}

	groups := make(map[string]*group)
	var codes []string

	for _, tx := range txs {
		g, ok := groups[tx.StockCode]
		if !ok {
			g = &group{firstRow: tx.Row, counts: make(map[string]*tally)}
			groups[tx.StockCode] = g
			codes = append(codes, tx.StockCode)
		}

		desc := strings.TrimSpace(tx.Description)
		if desc == "" {
			continue
		}
		t, ok := g.counts[desc]
		if !ok {
			t = &tally{}
			g.counts[desc] = t
			g.order = append(g.order, desc)
		}
		t.observe(tx.Row)

		if g.latest == nil ||
			tx.InvoiceDate.After(g.latest.at) ||
			(tx.InvoiceDate.Equal(g.latest.at) && p.TieBreak.prefers(tx.Row, g.latest.row)) {
			g.latest = &latest{at: tx.InvoiceDate, row: tx.Row, desc: desc}
		}
	}

	products := make([]model.Product, 0, len(codes))
	var issues []model.Issue

	for _, code := range codes {
		g := groups[code]
		product := model.Product{ID: seq.Next(), StockCode: code}

		var (
			desc  string
			found bool
		)
		if p.DescriptionSelection == DescriptionLatest {
			if g.latest != nil {
				desc, found = g.latest.desc, true
			}
		} else {
			desc, found = mostFrequent(g.order, g.counts, p.TieBreak)
		}

		if found {
			product.Description = &desc
		} else {
			issues = append(issues, model.Issue{
				Kind:    model.IssueMissingDescription,
				Row:     g.firstRow,
				Key:     code,
				Message: "no non-empty description observed",
			})
		}
		products = append(products, product)
	}

	return products, issues
}

func missingDescriptionErrors(issues []model.Issue) []error {
	var errs []error
	for _, is := range issues {
		if is.Kind == model.IssueMissingDescription {
			errs = append(errs, fmt.Errorf("stock code %s: %w", is.Key, ErrMissingDescription))
		}
	}
	return errs
}
