package datagen

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-normalize/internal/logging"
)

// Header is the column layout of a generated export.
var Header = []string{
	"InvoiceNo", "StockCode", "Description", "Quantity",
	"InvoiceDate", "UnitPrice", "CustomerID", "Country",
}

// Countries a generated customer can live in, weighted towards the United
// Kingdom. The list mixes countries with and without a sentinel mapping.
var (
	countries = []string{
		"United Kingdom", "Germany", "France", "EIRE", "Spain",
		"Netherlands", "Belgium", "Switzerland", "Portugal", "Australia",
		"Norway", "Italy", "Hong Kong", "Israel", "Bahrain", "Unspecified",
	}
	countryWeights = []int{
		60, 6, 6, 5, 3,
		3, 2, 2, 2, 2,
		2, 2, 1, 1, 1, 1,
	}
)

// Config controls the size and the defects of a generated export.
type Config struct {
	Rows      int
	Customers int
	Products  int
	Seed      uint64

	// MissingCustomerRate is the share of invoices exported without a
	// customer identifier.
	MissingCustomerRate float64

	// DescriptionVariantRate is the share of lines whose description is a
	// spelling variant of the product's canonical one.
	DescriptionVariantRate float64

	// EmptyDescriptionRate is the share of lines with no description.
	EmptyDescriptionRate float64

	// CountryChangeRate is the chance that a customer has moved country
	// before an invoice.
	CountryChangeRate float64

	// Start is the timestamp of the first invoice.
	Start time.Time

	// TimestampLayout formats InvoiceDate.
	TimestampLayout string
}

// DefaultConfig returns a small export with the defects of the public
// Online Retail dataset.
func DefaultConfig() Config {
	return Config{
		Rows:                   10000,
		Customers:              500,
		Products:               300,
		MissingCustomerRate:    0.2,
		DescriptionVariantRate: 0.05,
		EmptyDescriptionRate:   0.01,
		CountryChangeRate:      0.02,
		Start:                  time.Date(2010, 12, 1, 8, 26, 0, 0, time.UTC),
		TimestampLayout:        "1/2/2006 15:04",
	}
}

// Stats counts what a generator produced.
type Stats struct {
	Rows                int
	Invoices            int
	MissingCustomers    int
	DescriptionVariants int
	EmptyDescriptions   int
	CountryChanges      int
}

type customer struct {
	id      int64
	country string
}

type product struct {
	code        string
	description string
	price       decimal.Decimal
}

// Generator writes synthetic exports.
type Generator struct {
	cfg   Config
	faker *Faker
}

// NewGenerator returns a generator. A zero seed picks a random one.
func NewGenerator(cfg Config) (*Generator, error) {
	if cfg.Rows < 1 {
		return nil, fmt.Errorf("rows must be at least 1")
	}
	if cfg.Customers < 1 || cfg.Products < 1 {
		return nil, fmt.Errorf("customers and products must be at least 1")
	}
	if cfg.TimestampLayout == "" {
		cfg.TimestampLayout = DefaultConfig().TimestampLayout
	}
	if cfg.Start.IsZero() {
		cfg.Start = DefaultConfig().Start
	}

	f := NewFaker()
	if cfg.Seed != 0 {
		f = NewFakerWithSeed(cfg.Seed)
	}
	return &Generator{cfg: cfg, faker: f}, nil
}

// WriteFile writes an export to path.
func (g *Generator) WriteFile(ctx context.Context, path string) (Stats, error) {
	f, err := os.Create(path)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to create %s: %w", path, err)
	}

	buf := bufio.NewWriter(f)
	stats, err := g.Write(ctx, buf)
	if err == nil {
		err = buf.Flush()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return stats, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return stats, nil
}

// Write writes an export to w. Every line of an invoice shares the
// invoice's customer and country, so the export never holds an invoice
// with two customers.
func (g *Generator) Write(ctx context.Context, w io.Writer) (Stats, error) {
	customers := g.customers()
	products, err := g.products()
	if err != nil {
		return Stats{}, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return Stats{}, err
	}

	var stats Stats
	progress := NewProgressReporter("export", int64(g.cfg.Rows), progressInterval(g.cfg.Rows))
	invoiceNo := 536365
	at := g.cfg.Start

	for stats.Rows < g.cfg.Rows {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		cust := &customers[g.faker.Int(0, len(customers)-1)]
		if g.faker.Chance(g.cfg.CountryChangeRate) {
			moved := Choose(g.faker, countries)
			if moved != cust.country {
				cust.country = moved
				stats.CountryChanges++
			}
		}

		customerID := strconv.FormatInt(cust.id, 10)
		if g.faker.Chance(g.cfg.MissingCustomerRate) {
			customerID = ""
			stats.MissingCustomers++
		}

		lines := g.faker.Int(1, 12)
		if remaining := g.cfg.Rows - stats.Rows; lines > remaining {
			lines = remaining
		}

		invoice := strconv.Itoa(invoiceNo)
		for i := 0; i < lines; i++ {
			p := products[g.faker.Int(0, len(products)-1)]

			// Lines of one invoice can be stamped a minute or two apart.
			lineAt := at.Add(time.Duration(g.faker.Int(0, 2)) * time.Minute)

			record := []string{
				invoice,
				p.code,
				g.description(p, &stats),
				strconv.Itoa(g.faker.Int(1, 24)),
				lineAt.Format(g.cfg.TimestampLayout),
				p.price.StringFixed(2),
				customerID,
				cust.country,
			}
			if err := cw.Write(record); err != nil {
				return stats, err
			}
		}

		stats.Rows += lines
		stats.Invoices++
		progress.Update(int64(lines))
		invoiceNo++
		at = at.Add(time.Duration(g.faker.Int(3, 90)) * time.Minute)
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return stats, err
	}
	progress.Done()

	logging.Info().
		Int("rows", stats.Rows).
		Int("invoices", stats.Invoices).
		Int("missing_customers", stats.MissingCustomers).
		Int("description_variants", stats.DescriptionVariants).
		Int("empty_descriptions", stats.EmptyDescriptions).
		Int("country_changes", stats.CountryChanges).
		Msg("Export generated")
	return stats, nil
}

func (g *Generator) customers() []customer {
	out := make([]customer, g.cfg.Customers)
	for i := range out {
		out[i] = customer{
			id:      int64(12346 + i),
			country: ChooseWeighted(g.faker, countries, countryWeights),
		}
	}
	return out
}

func (g *Generator) products() ([]product, error) {
	out := make([]product, 0, g.cfg.Products)
	seen := make(map[string]bool, g.cfg.Products)
	for attempts := 0; len(out) < g.cfg.Products; attempts++ {
		if attempts > g.cfg.Products*20 {
			return nil, fmt.Errorf("could not generate %d distinct stock codes", g.cfg.Products)
		}
		code := g.faker.StockCode()
		if seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, product{
			code:        code,
			description: g.faker.ProductDescription(),
			price:       g.faker.Price(0.1, 50),
		})
	}
	return out, nil
}

// description returns the canonical description, an empty one or a
// variant: lower case, a trailing space, or a trailing marker.
func (g *Generator) description(p product, stats *Stats) string {
	switch {
	case g.faker.Chance(g.cfg.EmptyDescriptionRate):
		stats.EmptyDescriptions++
		return ""
	case g.faker.Chance(g.cfg.DescriptionVariantRate):
		stats.DescriptionVariants++
		switch g.faker.Int(0, 2) {
		case 0:
			return strings.ToLower(p.description)
		case 1:
			return p.description + " "
		default:
			return p.description + " ?"
		}
	default:
		return p.description
	}
}

func progressInterval(rows int) int64 {
	if rows < 10 {
		return 1
	}
	return int64(rows / 10)
}

// ProgressReporter tracks and reports generation progress.
type ProgressReporter struct {
	name             string
	totalRows        int64
	currentRow       int64
	progressInterval int64
}

// NewProgressReporter creates a new progress reporter.
func NewProgressReporter(name string, totalRows int64, interval int64) *ProgressReporter {
	if interval < 1 {
		interval = 1
	}
	return &ProgressReporter{
		name:             name,
		totalRows:        totalRows,
		progressInterval: interval,
	}
}

// Update updates the progress and logs if necessary.
func (p *ProgressReporter) Update(rows int64) {
	oldRow := p.currentRow
	p.currentRow += rows

	// Check if we crossed a progress interval
	if p.currentRow/p.progressInterval > oldRow/p.progressInterval {
		pct := float64(p.currentRow) / float64(p.totalRows) * 100
		logging.Debug().
			Str("target", p.name).
			Int64("rows", p.currentRow).
			Int64("total", p.totalRows).
			Float64("percent", pct).
			Msg("Generating data")
	}
}

// Rows returns the number of rows reported so far.
func (p *ProgressReporter) Rows() int64 {
	return p.currentRow
}

// Done logs completion.
func (p *ProgressReporter) Done() {
	logging.Debug().
		Str("target", p.name).
		Int64("rows", p.currentRow).
		Msg("Generation complete")
}
