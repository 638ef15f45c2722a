package normalize

import (
	"errors"
	"fmt"

	"github.com/pgEdge/pgedge-normalize/internal/model"
)

// ExpandLines emits one invoice line per transaction, in source order,
// with the stock code replaced by the resolved product id. A transaction
// whose stock code has no product is an error rather than a dropped line.
func ExpandLines(txs []model.Transaction, products []model.Product, seq *Sequence) ([]model.InvoiceLine, error) {
	byCode := make(map[string]int64, len(products))
	for _, p := range products {
		byCode[p.StockCode] = p.ID
	}

	lines := make([]model.InvoiceLine, 0, len(txs))
	var errs []error

	for _, tx := range txs {
		productID, ok := byCode[tx.StockCode]
		if !ok {
			errs = append(errs, fmt.Errorf("row %d: stock code %s: %w",
				tx.Row, tx.StockCode, ErrUnknownStockCode))
			continue
		}
		lines = append(lines, model.InvoiceLine{
			ID:        seq.Next(),
			InvoiceNo: tx.InvoiceNo,
			ProductID: productID,
			Quantity:  tx.Quantity,
			UnitPrice: tx.UnitPrice,
		})
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return lines, nil
}
