package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/allisson/webhook-ledger/internal/metrics"
)

// webhookUseCaseWithMetrics decorates WebhookUseCase with metrics instrumentation.
type webhookUseCaseWithMetrics struct {
	next    WebhookUseCase
	metrics metrics.BusinessMetrics
}

// NewWebhookUseCaseWithMetrics wraps a WebhookUseCase with metrics recording.
func NewWebhookUseCaseWithMetrics(useCase WebhookUseCase, m metrics.BusinessMetrics) WebhookUseCase {
	return &webhookUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// ProcessWebhook records metrics for webhook deliveries. The status label is
// the delivery outcome (processed, ignored, already_processed, in_progress)
// rather than a flat success/error so duplicate rates are visible.
func (w *webhookUseCaseWithMetrics) ProcessWebhook(
	ctx context.Context,
	input ProcessWebhookInput,
) (*ProcessWebhookOutput, error) {
	start := time.Now()
	output, err := w.next.ProcessWebhook(ctx, input)

	status := "error"
	if err == nil {
		status = strings.ToLower(output.Status)
	}

	w.metrics.RecordOperation(ctx, "webhook", "process_webhook", status)
	w.metrics.RecordDuration(ctx, "webhook", "process_webhook", time.Since(start), status)

	return output, err
}

// CleanupExpired records metrics for expired event record cleanup operations.
func (w *webhookUseCaseWithMetrics) CleanupExpired(ctx context.Context) (int64, error) {
	start := time.Now()
	count, err := w.next.CleanupExpired(ctx)

	status := "success"
	if err != nil {
		status = "error"
	}

	w.metrics.RecordOperation(ctx, "webhook", "cleanup_expired", status)
	w.metrics.RecordDuration(ctx, "webhook", "cleanup_expired", time.Since(start), status)

	return count, err
}
