// Package worker provides async cart processing from the event bus.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/tariffshield/harrier/internal/domain"
	"github.com/tariffshield/harrier/internal/pipeline"
)

// Worker consumes cart analysis requests from the EventBus and runs
// them through the pipeline. The pipeline itself publishes the
// cart-analyzed and alert events.
type Worker struct {
	bus      domain.EventBus
	pipeline *pipeline.Service

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// TenantIDs is the list of tenants to process (empty = all via wildcard if supported)
	TenantIDs []string
}

// NewWorker creates a new async cart worker.
func NewWorker(bus domain.EventBus, svc *pipeline.Service) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:      bus,
		pipeline: svc,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins processing cart requests for the given tenants.
func (w *Worker) Start(cfg Config) error {
	if len(cfg.TenantIDs) == 0 {
		return w.startGlobalWorker()
	}

	for _, tenantID := range cfg.TenantIDs {
		if err := w.startTenantWorker(tenantID); err != nil {
			slog.Error("failed to start worker for tenant",
				"tenant_id", tenantID,
				"error", err,
			)
			continue
		}
	}

	slog.Info("workers started",
		"tenant_count", len(cfg.TenantIDs),
	)

	return nil
}

// startGlobalWorker starts a worker that processes all tenants (for testing/dev).
func (w *Worker) startGlobalWorker() error {
	sub, err := w.bus.Subscribe(w.ctx, "_global", domain.TopicCartRequested, w.handleMessage)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("global worker started")
	return nil
}

// startTenantWorker starts a worker for a specific tenant.
func (w *Worker) startTenantWorker(tenantID string) error {
	sub, err := w.bus.Subscribe(w.ctx, tenantID, domain.TopicCartRequested, func(ctx context.Context, msg *domain.Message) error {
		return w.processCart(ctx, tenantID, msg)
	})
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("tenant worker started",
		"tenant_id", tenantID,
		"topic", domain.TopicCartRequested,
	)

	return nil
}

// handleMessage handles messages from the global subscription.
func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	return w.processCart(ctx, msg.TenantID, msg)
}

// CartMessage is the message payload for async cart analysis.
type CartMessage struct {
	RequestID string            `json:"requestId"`
	TenantID  string            `json:"tenantId"`
	TraceID   string            `json:"traceId"`
	Items     []domain.CartItem `json:"items"`
}

// processCart runs one queued cart through the analysis pipeline.
func (w *Worker) processCart(ctx context.Context, tenantID string, msg *domain.Message) error {
	start := time.Now()

	var cartMsg CartMessage
	if err := json.Unmarshal(msg.Payload, &cartMsg); err != nil {
		slog.Error("failed to parse cart message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	// Use message tenant if provided
	if cartMsg.TenantID != "" {
		tenantID = cartMsg.TenantID
	}

	slog.Debug("processing cart request",
		"request_id", cartMsg.RequestID,
		"tenant_id", tenantID,
		"items", len(cartMsg.Items),
	)

	analysis, err := w.pipeline.AnalyzeCart(ctx, tenantID, &domain.CartRequest{Items: cartMsg.Items})
	if err != nil {
		slog.Error("cart analysis failed",
			"request_id", cartMsg.RequestID,
			"tenant_id", tenantID,
			"error", err,
		)
		return err
	}

	slog.Info("cart request processed",
		"request_id", cartMsg.RequestID,
		"cart_id", analysis.ID,
		"tenant_id", tenantID,
		"items", analysis.Summary.TotalItems,
		"failed", analysis.Summary.FailedItems,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// Stop gracefully stops all workers.
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

	w.wg.Wait()

	slog.Info("workers stopped")
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
