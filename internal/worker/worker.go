// Package worker processes portfolio runs requested over the event bus.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/portfolio"
)

// Worker consumes run requests from the EventBus, evaluates the
// referenced dataset with the portfolio engine and persists the result.
type Worker struct {
	bus    domain.EventBus
	repo   domain.Repository
	engine *portfolio.Engine

	subscriptions []domain.Subscription
	ctx           context.Context
	cancel        context.CancelFunc
}

// RunMessage is the payload published on heron.run.requested.
type RunMessage struct {
	RunID     string `json:"run_id"`
	DatasetID string `json:"dataset_id"`
}

// NewWorker creates a run worker.
func NewWorker(bus domain.EventBus, repo domain.Repository, engine *portfolio.Engine) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:    bus,
		repo:   repo,
		engine: engine,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes to the run request topic. Requests are processed
// sequentially; each run fans out internally over the engine's
// worker pool.
func (w *Worker) Start() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.TopicRunRequested, w.handleRunRequested)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", domain.TopicRunRequested, err)
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("run worker started",
		"topic", domain.TopicRunRequested,
	)

	return nil
}

// handleRunRequested parses a run request and executes it.
func (w *Worker) handleRunRequested(ctx context.Context, msg *domain.Message) error {
	var req RunMessage
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		slog.Error("failed to parse run request",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	if req.RunID == "" {
		slog.Error("run request missing run_id",
			"message_id", msg.ID,
		)
		return fmt.Errorf("run request missing run_id")
	}

	return w.processRun(ctx, req.RunID)
}

// processRun executes one portfolio run end to end.
func (w *Worker) processRun(ctx context.Context, runID string) error {
	start := time.Now()

	run, err := w.repo.GetRun(ctx, runID)
	if err != nil {
		slog.Error("failed to load run",
			"run_id", runID,
			"error", err,
		)
		return err
	}

	slog.Debug("processing portfolio run",
		"run_id", run.ID,
		"dataset_id", run.DatasetID,
	)

	run.Status = domain.RunRunning
	if err := w.repo.UpdateRun(ctx, run); err != nil {
		slog.Error("failed to mark run running",
			"run_id", run.ID,
			"error", err,
		)
	}

	customers, err := w.repo.GetCustomers(ctx, run.DatasetID)
	if err != nil {
		return w.failRun(ctx, run, fmt.Errorf("failed to load customers: %w", err))
	}

	txns, err := w.repo.GetTransactions(ctx, run.DatasetID)
	if err != nil {
		return w.failRun(ctx, run, fmt.Errorf("failed to load transactions: %w", err))
	}

	summary, err := w.engine.Run(ctx, customers, txns)
	if err != nil {
		return w.failRun(ctx, run, err)
	}

	now := time.Now().UTC()
	run.Status = domain.RunCompleted
	run.CompletedAt = &now
	run.Summary = summary
	run.Error = ""

	if err := w.repo.UpdateRun(ctx, run); err != nil {
		slog.Error("failed to save run result",
			"run_id", run.ID,
			"error", err,
		)
		return err
	}

	payload, _ := json.Marshal(run)
	if err := w.bus.Publish(ctx, domain.TopicRunCompleted, payload); err != nil {
		slog.Error("failed to publish run completion",
			"run_id", run.ID,
			"error", err,
		)
	}

	slog.Info("portfolio run completed",
		"run_id", run.ID,
		"dataset_id", run.DatasetID,
		"customers", len(customers),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// failRun marks the run failed and notifies subscribers.
func (w *Worker) failRun(ctx context.Context, run *domain.PortfolioRun, cause error) error {
	now := time.Now().UTC()
	run.Status = domain.RunFailed
	run.CompletedAt = &now
	run.Error = cause.Error()

	if err := w.repo.UpdateRun(ctx, run); err != nil {
		slog.Error("failed to save run failure",
			"run_id", run.ID,
			"error", err,
		)
	}

	payload, _ := json.Marshal(run)
	if err := w.bus.Publish(ctx, domain.TopicRunFailed, payload); err != nil {
		slog.Error("failed to publish run failure",
			"run_id", run.ID,
			"error", err,
		)
	}

	slog.Error("portfolio run failed",
		"run_id", run.ID,
		"dataset_id", run.DatasetID,
		"error", cause,
	)

	return cause
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() error {
	w.cancel()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	slog.Info("run worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
