// Package domain defines the core types and interfaces for Heron.
package domain

import "context"

// Repository is the interface for dataset and run persistence.
// Implementations exist for SQLite (default) and PostgreSQL.
type Repository interface {
	// Dataset operations
	CreateDataset(ctx context.Context, dataset *Dataset) error
	GetDataset(ctx context.Context, id string) (*Dataset, error)
	ListDatasets(ctx context.Context) ([]*Dataset, error)
	DeleteDataset(ctx context.Context, id string) error

	// Record operations
	SaveCustomers(ctx context.Context, datasetID string, customers []*Customer) error
	SaveTransactions(ctx context.Context, datasetID string, transactions []*Transaction) error
	GetCustomers(ctx context.Context, datasetID string) ([]*Customer, error)
	GetTransactions(ctx context.Context, datasetID string) ([]*Transaction, error)

	// Run operations
	CreateRun(ctx context.Context, run *PortfolioRun) error
	UpdateRun(ctx context.Context, run *PortfolioRun) error
	GetRun(ctx context.Context, id string) (*PortfolioRun, error)
	ListRuns(ctx context.Context, datasetID string) ([]*PortfolioRun, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds database connection settings. For SQLite the
// DSN is the database file path; for PostgreSQL it is a full
// connection string.
type RepositoryConfig struct {
	Driver string `json:"driver" yaml:"driver"` // "sqlite" or "postgres"
	DSN    string `json:"dsn" yaml:"dsn"`

	// Connection pool settings
	MaxOpenConns    int `json:"maxOpenConns" yaml:"maxOpenConns"`
	MaxIdleConns    int `json:"maxIdleConns" yaml:"maxIdleConns"`
	ConnMaxLifetime int `json:"connMaxLifetime" yaml:"connMaxLifetime"` // seconds
}
