package postgres

// Schema SQL for the normalized tables. The metadata table is managed by
// the db package.
const createSchemaSQL = `
-- Customer: one row per repaired customer identifier
CREATE TABLE IF NOT EXISTS customers (
    customer_id BIGINT PRIMARY KEY,
    country     TEXT NOT NULL
);

-- Product: one row per stock code
CREATE TABLE IF NOT EXISTS products (
    product_id  BIGINT PRIMARY KEY,
    stock_code  TEXT NOT NULL UNIQUE,
    description TEXT
);

-- Invoice: one row per invoice number
CREATE TABLE IF NOT EXISTS invoices (
    invoice_no  TEXT PRIMARY KEY,
    invoiced_at TIMESTAMPTZ NOT NULL,
    customer_id BIGINT NOT NULL REFERENCES customers(customer_id)
);

-- Invoice line: one row per source transaction
CREATE TABLE IF NOT EXISTS invoice_lines (
    line_id    BIGINT PRIMARY KEY,
    invoice_no TEXT NOT NULL REFERENCES invoices(invoice_no),
    product_id BIGINT NOT NULL REFERENCES products(product_id),
    quantity   INTEGER NOT NULL,
    unit_price NUMERIC NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_invoices_customer ON invoices(customer_id);
CREATE INDEX IF NOT EXISTS idx_invoice_lines_invoice ON invoice_lines(invoice_no);
CREATE INDEX IF NOT EXISTS idx_invoice_lines_product ON invoice_lines(product_id);

-- The flat export shape, rebuilt from the normalized tables
CREATE OR REPLACE VIEW invoice_details AS
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
JOIN customers c ON c.customer_id = i.customer_id;
`

const dropSchemaSQL = `
DROP VIEW IF EXISTS invoice_details;
DROP TABLE IF EXISTS invoice_lines CASCADE;
DROP TABLE IF EXISTS invoices CASCADE;
DROP TABLE IF EXISTS products CASCADE;
DROP TABLE IF EXISTS customers CASCADE;
`
