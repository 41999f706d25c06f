package repository

// Schema definitions for the Heron dataset store.
// Compatible with both SQLite and PostgreSQL.

const schemaDatasets = `
CREATE TABLE IF NOT EXISTS datasets (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    customer_count INTEGER NOT NULL DEFAULT 0,
    transaction_count INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL
);
`

// schemaCustomers keeps the upstream load order in seq so portfolio
// runs replay customers exactly as they were ingested.
const schemaCustomers = `
CREATE TABLE IF NOT EXISTS customers (
    dataset_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    customer_id TEXT NOT NULL,
    age INTEGER NOT NULL,
    residency TEXT NOT NULL,
    income_gross_monthly REAL NOT NULL,
    customer_segment TEXT NOT NULL,
    account_category TEXT NOT NULL,
    account_type_id TEXT NOT NULL,
    annual_turnover REAL,
    PRIMARY KEY (dataset_id, customer_id)
);

CREATE INDEX IF NOT EXISTS idx_customers_dataset ON customers(dataset_id, seq);
`

const schemaTransactions = `
CREATE TABLE IF NOT EXISTS transactions (
    dataset_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    transaction_id TEXT NOT NULL,
    customer_id TEXT NOT NULL,
    type TEXT NOT NULL,
    amount REAL NOT NULL,
    channel TEXT,
    atm_owner TEXT,
    transfer_scope TEXT,
    merchant TEXT,
    timestamp TIMESTAMP NOT NULL,
    PRIMARY KEY (dataset_id, transaction_id)
);

CREATE INDEX IF NOT EXISTS idx_transactions_dataset ON transactions(dataset_id, seq);
CREATE INDEX IF NOT EXISTS idx_transactions_customer ON transactions(dataset_id, customer_id);
`

const schemaPortfolioRuns = `
CREATE TABLE IF NOT EXISTS portfolio_runs (
    id TEXT PRIMARY KEY,
    dataset_id TEXT NOT NULL,
    status TEXT NOT NULL,
    requested_at TIMESTAMP NOT NULL,
    completed_at TIMESTAMP,
    summary TEXT,
    error TEXT
);

CREATE INDEX IF NOT EXISTS idx_portfolio_runs_dataset ON portfolio_runs(dataset_id);
CREATE INDEX IF NOT EXISTS idx_portfolio_runs_status ON portfolio_runs(status);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaDatasets,
		schemaCustomers,
		schemaTransactions,
		schemaPortfolioRuns,
	}
}
