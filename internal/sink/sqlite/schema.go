package sqlite

// Statements are executed one at a time. Prices are stored as TEXT so the
// exact decimal survives; NUMERIC affinity would coerce them to REAL.
var createSchemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS customers (
    customer_id INTEGER PRIMARY KEY,
    country     TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS products (
    product_id  INTEGER PRIMARY KEY,
    stock_code  TEXT NOT NULL UNIQUE,
    description TEXT
)`,
	`CREATE TABLE IF NOT EXISTS invoices (
    invoice_no  TEXT PRIMARY KEY,
    invoiced_at TEXT NOT NULL,
    customer_id INTEGER NOT NULL REFERENCES customers(customer_id)
)`,
	`CREATE TABLE IF NOT EXISTS invoice_lines (
    line_id    INTEGER PRIMARY KEY,
    invoice_no TEXT NOT NULL REFERENCES invoices(invoice_no),
    product_id INTEGER NOT NULL REFERENCES products(product_id),
    quantity   INTEGER NOT NULL,
    unit_price TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS normalize_metadata (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_invoices_customer ON invoices(customer_id)`,
	`CREATE INDEX IF NOT EXISTS idx_invoice_lines_invoice ON invoice_lines(invoice_no)`,
	`CREATE INDEX IF NOT EXISTS idx_invoice_lines_product ON invoice_lines(product_id)`,
	`CREATE VIEW IF NOT EXISTS invoice_details AS
SELECT l.line_id,
       i.invoice_no,
       p.stock_code,
       p.description,
       l.quantity,
       i.invoiced_at,
       l.unit_price,
       c.customer_id,
       c.country
FROM invoice_lines l
JOIN invoices i ON i.invoice_no = l.invoice_no
JOIN products p ON p.product_id = l.product_id
JOIN customers c ON c.customer_id = i.customer_id`,
}

var dropSchemaStatements = []string{
	`DROP VIEW IF EXISTS invoice_details`,
	`DROP TABLE IF EXISTS invoice_lines`,
	`DROP TABLE IF EXISTS invoices`,
	`DROP TABLE IF EXISTS products`,
	`DROP TABLE IF EXISTS customers`,
	`DROP TABLE IF EXISTS normalize_metadata`,
}

const (
	insertCustomerSQL = `INSERT INTO customers (customer_id, country) VALUES (?, ?)`
	insertProductSQL  = `INSERT INTO products (product_id, stock_code, description) VALUES (?, ?, ?)`
	insertInvoiceSQL  = `INSERT INTO invoices (invoice_no, invoiced_at, customer_id) VALUES (?, ?, ?)`
	insertLineSQL     = `INSERT INTO invoice_lines (line_id, invoice_no, product_id, quantity, unit_price) VALUES (?, ?, ?, ?, ?)`
	upsertMetadataSQL = `INSERT INTO normalize_metadata (key, value) VALUES (?, ?)
ON CONFLICT (key) DO UPDATE SET value = excluded.value`
)
