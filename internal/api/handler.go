package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/opensource-finance/heron/internal/analyzer"
	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/portfolio"
	"github.com/opensource-finance/heron/internal/repository"
	"github.com/opensource-finance/heron/internal/worker"
)

// Cache lifetimes. Runs are cached only once terminal.
const (
	runCacheTTL        = 10 * time.Minute
	comparisonCacheTTL = 5 * time.Minute
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo      domain.Repository
	cache     domain.Cache
	bus       domain.EventBus
	analyzer  *analyzer.Analyzer
	portfolio *portfolio.Engine
	version   string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, a *analyzer.Analyzer, engine *portfolio.Engine, version string) *Handler {
	return &Handler{
		repo:      repo,
		cache:     cache,
		bus:       bus,
		analyzer:  a,
		portfolio: engine,
		version:   version,
	}
}

// AnalyzeRequest is the request body for POST /analyze.
type AnalyzeRequest struct {
	Customer     domain.Customer       `json:"customer"`
	Transactions []*domain.Transaction `json:"transactions"`
	AccountID    string                `json:"account_id"`
}

// AnalyzeResponse is the response for POST /analyze.
type AnalyzeResponse struct {
	Report   *domain.FitReport `json:"report"`
	Metadata struct {
		TraceID string `json:"traceId"`
		TotalMs int64  `json:"totalMs"`
		Version string `json:"version"`
	} `json:"metadata"`
}

// Analyze handles POST /analyze: one customer costed against one account.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	traceID := GetTraceID(ctx)

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.AccountID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "account_id is required",
		})
		return
	}
	if err := validateStatement(&req.Customer, req.Transactions); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	account, ok := h.analyzer.Account(req.AccountID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "account not found",
		})
		return
	}

	report, err := h.analyzer.Analyze(&req.Customer, req.Transactions, account)
	if err != nil {
		slog.Error("analysis failed",
			"customer_id", req.Customer.ID,
			"account_id", req.AccountID,
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "analysis failed",
		})
		return
	}

	resp := AnalyzeResponse{Report: report}
	resp.Metadata.TraceID = traceID
	resp.Metadata.TotalMs = time.Since(start).Milliseconds()
	resp.Metadata.Version = h.version

	writeJSON(w, http.StatusOK, resp)
}

// CompareRequest is the request body for POST /compare.
type CompareRequest struct {
	Customer     domain.Customer       `json:"customer"`
	Transactions []*domain.Transaction `json:"transactions"`
}

// CompareResponse is the response for POST /compare.
type CompareResponse struct {
	Comparison *domain.Comparison `json:"comparison"`
	Metadata   struct {
		TraceID string `json:"traceId"`
		TotalMs int64  `json:"totalMs"`
		Version string `json:"version"`
	} `json:"metadata"`
}

// Compare handles POST /compare: one customer against the whole shelf.
func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	traceID := GetTraceID(ctx)

	var req CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if err := validateStatement(&req.Customer, req.Transactions); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	cmp, err := h.analyzer.Compare(&req.Customer, req.Transactions)
	if err != nil {
		slog.Error("comparison failed",
			"customer_id", req.Customer.ID,
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "comparison failed",
		})
		return
	}

	// Keep the latest comparison per customer for cheap lookups.
	if h.cache != nil {
		if err := h.cache.SetComparison(ctx, cmp.CustomerID, cmp, comparisonCacheTTL); err != nil {
			slog.Warn("failed to cache comparison",
				"customer_id", cmp.CustomerID,
				"error", err,
			)
		}
	}

	resp := CompareResponse{Comparison: cmp}
	resp.Metadata.TraceID = traceID
	resp.Metadata.TotalMs = time.Since(start).Milliseconds()
	resp.Metadata.Version = h.version

	writeJSON(w, http.StatusOK, resp)
}

// GetComparison handles GET /comparisons/{customerID}: the most recent
// comparison computed for that customer, if still cached.
func (h *Handler) GetComparison(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customerID := chi.URLParam(r, "customerID")

	if h.cache == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "cache not available",
		})
		return
	}

	cmp, err := h.cache.GetComparison(ctx, customerID)
	if err != nil {
		slog.Error("failed to read comparison cache",
			"customer_id", customerID,
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "cache read failed",
		})
		return
	}
	if cmp == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "no cached comparison for customer",
		})
		return
	}

	writeJSON(w, http.StatusOK, cmp)
}

// ListAccounts returns the account shelf in configured order.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts := h.analyzer.Accounts()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

// GetAccount retrieves one account config by ID.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")

	account, ok := h.analyzer.Account(accountID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "account not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, account)
}

// CreateDatasetRequest is the request body for POST /datasets.
type CreateDatasetRequest struct {
	Name         string                `json:"name"`
	Customers    []*domain.Customer    `json:"customers"`
	Transactions []*domain.Transaction `json:"transactions"`
}

// CreateDataset stores a customer/transaction batch for later runs.
func (h *Handler) CreateDataset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	var req CreateDatasetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if err := validateBatch(req.Customers, req.Transactions); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	dataset := &domain.Dataset{
		ID:               uuid.New().String(),
		Name:             req.Name,
		CustomerCount:    len(req.Customers),
		TransactionCount: len(req.Transactions),
		CreatedAt:        time.Now().UTC(),
	}

	if err := h.repo.CreateDataset(ctx, dataset); err != nil {
		slog.Error("failed to create dataset", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to create dataset",
		})
		return
	}
	if err := h.repo.SaveCustomers(ctx, dataset.ID, req.Customers); err != nil {
		slog.Error("failed to save customers", "dataset_id", dataset.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save customers",
		})
		return
	}
	if err := h.repo.SaveTransactions(ctx, dataset.ID, req.Transactions); err != nil {
		slog.Error("failed to save transactions", "dataset_id", dataset.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save transactions",
		})
		return
	}

	slog.Info("dataset created",
		"dataset_id", dataset.ID,
		"customers", dataset.CustomerCount,
		"transactions", dataset.TransactionCount,
	)
	writeJSON(w, http.StatusCreated, dataset)
}

// GetDataset retrieves a dataset by ID.
func (h *Handler) GetDataset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	datasetID := chi.URLParam(r, "id")

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	dataset, err := h.repo.GetDataset(ctx, datasetID)
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "dataset not found",
		})
		return
	}
	if err != nil {
		slog.Error("failed to get dataset", "id", datasetID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get dataset",
		})
		return
	}

	writeJSON(w, http.StatusOK, dataset)
}

// ListDatasets returns all stored datasets, newest first.
func (h *Handler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	datasets, err := h.repo.ListDatasets(ctx)
	if err != nil {
		slog.Error("failed to list datasets", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list datasets",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"datasets": datasets,
		"count":    len(datasets),
	})
}

// DeleteDataset removes a dataset and everything stored under it.
func (h *Handler) DeleteDataset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	datasetID := chi.URLParam(r, "id")

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	err := h.repo.DeleteDataset(ctx, datasetID)
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "dataset not found",
		})
		return
	}
	if err != nil {
		slog.Error("failed to delete dataset", "id", datasetID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to delete dataset",
		})
		return
	}

	slog.Info("dataset deleted", "dataset_id", datasetID)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "dataset deleted",
	})
}

// CreateRunRequest is the request body for POST /runs.
type CreateRunRequest struct {
	DatasetID string `json:"dataset_id"`
}

// CreateRun queues a portfolio run over a stored dataset. The run is
// accepted immediately and executed by the worker; poll GET /runs/{id}
// for the result.
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.DatasetID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "dataset_id is required",
		})
		return
	}

	if _, err := h.repo.GetDataset(ctx, req.DatasetID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "dataset not found",
			})
			return
		}
		slog.Error("failed to get dataset", "id", req.DatasetID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get dataset",
		})
		return
	}

	run := &domain.PortfolioRun{
		ID:          uuid.New().String(),
		DatasetID:   req.DatasetID,
		Status:      domain.RunPending,
		RequestedAt: time.Now().UTC(),
	}

	if err := h.repo.CreateRun(ctx, run); err != nil {
		slog.Error("failed to create run", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to create run",
		})
		return
	}

	payload, _ := json.Marshal(worker.RunMessage{RunID: run.ID, DatasetID: run.DatasetID})
	if err := h.bus.Publish(ctx, domain.TopicRunRequested, payload); err != nil {
		slog.Error("failed to queue run", "run_id", run.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to queue run",
		})
		return
	}

	slog.Info("portfolio run queued",
		"run_id", run.ID,
		"dataset_id", run.DatasetID,
	)
	writeJSON(w, http.StatusAccepted, run)
}

// GetRun retrieves a portfolio run. Terminal runs are served from
// cache when possible.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	runID := chi.URLParam(r, "id")

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	cacheKey := "run:" + runID
	if h.cache != nil {
		if data, err := h.cache.Get(ctx, cacheKey); err == nil && data != nil {
			var run domain.PortfolioRun
			if err := json.Unmarshal(data, &run); err == nil {
				writeJSON(w, http.StatusOK, &run)
				return
			}
		}
	}

	run, err := h.repo.GetRun(ctx, runID)
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "run not found",
		})
		return
	}
	if err != nil {
		slog.Error("failed to get run", "id", runID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get run",
		})
		return
	}

	// Terminal runs never change again; pending and running ones
	// must always come from the store.
	if h.cache != nil && (run.Status == domain.RunCompleted || run.Status == domain.RunFailed) {
		if data, err := json.Marshal(run); err == nil {
			if err := h.cache.Set(ctx, cacheKey, data, runCacheTTL); err != nil {
				slog.Warn("failed to cache run", "run_id", runID, "error", err)
			}
		}
	}

	writeJSON(w, http.StatusOK, run)
}

// ListRuns returns all runs for a dataset, newest first.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	datasetID := chi.URLParam(r, "id")

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	runs, err := h.repo.ListRuns(ctx, datasetID)
	if err != nil {
		slog.Error("failed to list runs", "dataset_id", datasetID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list runs",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	if h.bus != nil {
		if err := h.bus.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// validateStatement checks one customer and their statement rows.
func validateStatement(customer *domain.Customer, txns []*domain.Transaction) error {
	if err := customer.Validate(); err != nil {
		return err
	}
	for _, txn := range txns {
		if err := txn.Validate(); err != nil {
			return err
		}
		if txn.CustomerID != customer.ID {
			return fmt.Errorf("transaction %s does not belong to customer %s", txn.ID, customer.ID)
		}
	}
	return nil
}

// validateBatch checks a whole dataset upload: record validity, unique
// ids and referential integrity.
func validateBatch(customers []*domain.Customer, txns []*domain.Transaction) error {
	if len(customers) == 0 {
		return fmt.Errorf("at least one customer is required")
	}

	customerIDs := make(map[string]bool, len(customers))
	for _, c := range customers {
		if err := c.Validate(); err != nil {
			return err
		}
		if customerIDs[c.ID] {
			return fmt.Errorf("duplicate customer id %s", c.ID)
		}
		customerIDs[c.ID] = true
	}

	txnIDs := make(map[string]bool, len(txns))
	for _, txn := range txns {
		if err := txn.Validate(); err != nil {
			return err
		}
		if txnIDs[txn.ID] {
			return fmt.Errorf("duplicate transaction id %s", txn.ID)
		}
		txnIDs[txn.ID] = true
		if !customerIDs[txn.CustomerID] {
			return fmt.Errorf("transaction %s references unknown customer %s", txn.ID, txn.CustomerID)
		}
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
