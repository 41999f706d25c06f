// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-finance/heron/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// CreateDataset stores a dataset header row.
func (r *SQLRepository) CreateDataset(ctx context.Context, dataset *domain.Dataset) error {
	if dataset == nil || dataset.ID == "" {
		return fmt.Errorf("%w: dataset id is required", ErrInvalidInput)
	}

	if dataset.CreatedAt.IsZero() {
		dataset.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO datasets (id, name, customer_count, transaction_count, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		dataset.ID, dataset.Name,
		dataset.CustomerCount, dataset.TransactionCount,
		dataset.CreatedAt,
	)
	return err
}

// GetDataset retrieves a dataset header by ID.
func (r *SQLRepository) GetDataset(ctx context.Context, id string) (*domain.Dataset, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: dataset id is required", ErrInvalidInput)
	}

	query := `
		SELECT id, name, customer_count, transaction_count, created_at
		FROM datasets
		WHERE id = ?
	`

	var ds domain.Dataset
	err := r.db.QueryRowContext(ctx, r.rebind(query), id).Scan(
		&ds.ID, &ds.Name, &ds.CustomerCount, &ds.TransactionCount, &ds.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &ds, nil
}

// ListDatasets retrieves all dataset headers, newest first.
func (r *SQLRepository) ListDatasets(ctx context.Context) ([]*domain.Dataset, error) {
	query := `
		SELECT id, name, customer_count, transaction_count, created_at
		FROM datasets
		ORDER BY created_at DESC, id
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var datasets []*domain.Dataset
	for rows.Next() {
		var ds domain.Dataset
		if err := rows.Scan(
			&ds.ID, &ds.Name, &ds.CustomerCount, &ds.TransactionCount, &ds.CreatedAt,
		); err != nil {
			return nil, err
		}
		datasets = append(datasets, &ds)
	}

	return datasets, rows.Err()
}

// DeleteDataset removes a dataset and everything stored under it.
func (r *SQLRepository) DeleteDataset(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: dataset id is required", ErrInvalidInput)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, query := range []string{
		`DELETE FROM portfolio_runs WHERE dataset_id = ?`,
		`DELETE FROM transactions WHERE dataset_id = ?`,
		`DELETE FROM customers WHERE dataset_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, r.rebind(query), id); err != nil {
			return err
		}
	}

	result, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM datasets WHERE id = ?`), id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

// SaveCustomers stores customer records under a dataset, preserving
// slice order in the seq column.
func (r *SQLRepository) SaveCustomers(ctx context.Context, datasetID string, customers []*domain.Customer) error {
	if datasetID == "" {
		return fmt.Errorf("%w: datasetID is required", ErrInvalidInput)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO customers (
			dataset_id, seq, customer_id, age, residency,
			income_gross_monthly, customer_segment, account_category,
			account_type_id, annual_turnover
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	stmt, err := tx.PrepareContext(ctx, r.rebind(query))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, c := range customers {
		var turnover sql.NullFloat64
		if c.AnnualTurnover != nil {
			turnover = sql.NullFloat64{Float64: *c.AnnualTurnover, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			datasetID, i, c.ID, c.Age, c.Residency,
			c.IncomeGrossMonthly, string(c.Segment), c.AccountCategory,
			c.AccountTypeID, turnover,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetCustomers retrieves a dataset's customers in their stored order.
func (r *SQLRepository) GetCustomers(ctx context.Context, datasetID string) ([]*domain.Customer, error) {
	if datasetID == "" {
		return nil, fmt.Errorf("%w: datasetID is required", ErrInvalidInput)
	}

	query := `
		SELECT customer_id, age, residency, income_gross_monthly,
			   customer_segment, account_category, account_type_id, annual_turnover
		FROM customers
		WHERE dataset_id = ?
		ORDER BY seq
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), datasetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []*domain.Customer
	for rows.Next() {
		var c domain.Customer
		var turnover sql.NullFloat64

		if err := rows.Scan(
			&c.ID, &c.Age, &c.Residency, &c.IncomeGrossMonthly,
			&c.Segment, &c.AccountCategory, &c.AccountTypeID, &turnover,
		); err != nil {
			return nil, err
		}

		if turnover.Valid {
			v := turnover.Float64
			c.AnnualTurnover = &v
		}
		customers = append(customers, &c)
	}

	return customers, rows.Err()
}

// SaveTransactions stores transaction records under a dataset,
// preserving slice order in the seq column.
func (r *SQLRepository) SaveTransactions(ctx context.Context, datasetID string, transactions []*domain.Transaction) error {
	if datasetID == "" {
		return fmt.Errorf("%w: datasetID is required", ErrInvalidInput)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO transactions (
			dataset_id, seq, transaction_id, customer_id, type,
			amount, channel, atm_owner, transfer_scope, merchant, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	stmt, err := tx.PrepareContext(ctx, r.rebind(query))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, txn := range transactions {
		if _, err := stmt.ExecContext(ctx,
			datasetID, i, txn.ID, txn.CustomerID, txn.Kind,
			txn.Amount, txn.Channel, txn.ATMOwner, txn.TransferScope,
			txn.Merchant, txn.Timestamp.UTC(),
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetTransactions retrieves a dataset's transactions in their stored
// order.
func (r *SQLRepository) GetTransactions(ctx context.Context, datasetID string) ([]*domain.Transaction, error) {
	if datasetID == "" {
		return nil, fmt.Errorf("%w: datasetID is required", ErrInvalidInput)
	}

	query := `
		SELECT transaction_id, customer_id, type, amount, channel,
			   atm_owner, transfer_scope, merchant, timestamp
		FROM transactions
		WHERE dataset_id = ?
		ORDER BY seq
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), datasetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []*domain.Transaction
	for rows.Next() {
		var txn domain.Transaction
		if err := rows.Scan(
			&txn.ID, &txn.CustomerID, &txn.Kind, &txn.Amount, &txn.Channel,
			&txn.ATMOwner, &txn.TransferScope, &txn.Merchant, &txn.Timestamp,
		); err != nil {
			return nil, err
		}
		transactions = append(transactions, &txn)
	}

	return transactions, rows.Err()
}

// CreateRun stores a new portfolio run.
func (r *SQLRepository) CreateRun(ctx context.Context, run *domain.PortfolioRun) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("%w: run id is required", ErrInvalidInput)
	}
	if run.DatasetID == "" {
		return fmt.Errorf("%w: run dataset id is required", ErrInvalidInput)
	}

	if run.RequestedAt.IsZero() {
		run.RequestedAt = time.Now().UTC()
	}

	summary, _ := json.Marshal(run.Summary)

	query := `
		INSERT INTO portfolio_runs (
			id, dataset_id, status, requested_at, completed_at, summary, error
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		run.ID, run.DatasetID, string(run.Status), run.RequestedAt,
		nullTime(run.CompletedAt), string(summary), run.Error,
	)
	return err
}

// UpdateRun persists status, completion time, summary and error of an
// existing run.
func (r *SQLRepository) UpdateRun(ctx context.Context, run *domain.PortfolioRun) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("%w: run id is required", ErrInvalidInput)
	}

	summary, _ := json.Marshal(run.Summary)

	query := `
		UPDATE portfolio_runs
		SET status = ?, completed_at = ?, summary = ?, error = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query),
		string(run.Status), nullTime(run.CompletedAt), string(summary), run.Error, run.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// GetRun retrieves a portfolio run by ID.
func (r *SQLRepository) GetRun(ctx context.Context, id string) (*domain.PortfolioRun, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: run id is required", ErrInvalidInput)
	}

	query := `
		SELECT id, dataset_id, status, requested_at, completed_at, summary, error
		FROM portfolio_runs
		WHERE id = ?
	`

	run, err := scanRun(r.db.QueryRowContext(ctx, r.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

// ListRuns retrieves all runs for a dataset, newest first.
func (r *SQLRepository) ListRuns(ctx context.Context, datasetID string) ([]*domain.PortfolioRun, error) {
	if datasetID == "" {
		return nil, fmt.Errorf("%w: datasetID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, dataset_id, status, requested_at, completed_at, summary, error
		FROM portfolio_runs
		WHERE dataset_id = ?
		ORDER BY requested_at DESC, id
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), datasetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.PortfolioRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*domain.PortfolioRun, error) {
	var run domain.PortfolioRun
	var completed sql.NullTime
	var summary string

	if err := s.Scan(
		&run.ID, &run.DatasetID, &run.Status, &run.RequestedAt,
		&completed, &summary, &run.Error,
	); err != nil {
		return nil, err
	}

	if completed.Valid {
		t := completed.Time
		run.CompletedAt = &t
	}
	if summary != "" {
		if err := json.Unmarshal([]byte(summary), &run.Summary); err != nil {
			return nil, fmt.Errorf("failed to parse run summary: %w", err)
		}
	}

	return &run, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
