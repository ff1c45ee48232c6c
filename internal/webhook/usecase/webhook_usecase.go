package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/allisson/webhook-ledger/internal/webhook/domain"
)

// webhookUseCase implements WebhookUseCase.
type webhookUseCase struct {
	secrets            SecretSource
	verifier           SignatureVerifier
	lock               *EventLock
	normalizer         *Normalizer
	ledger             LedgerAppender
	repo               EventRecordRepository
	logger             *slog.Logger
	signatureSecretURL string
	now                func() time.Time
}

// ProcessWebhook runs the pipeline for one delivery. The event lock makes the
// pipeline exactly-once per event id: duplicate deliveries short-circuit on
// the lock, and any failure after the lock is acquired releases it so the
// provider's retry can run the pipeline again from the start.
func (w *webhookUseCase) ProcessWebhook(ctx context.Context, input ProcessWebhookInput) (*ProcessWebhookOutput, error) {
	signingKey, err := w.secrets.Get(ctx, w.signatureSecretURL)
	if err != nil {
		return nil, err
	}
	if !w.verifier.Verify(input.SignatureHeader, signingKey, input.NotificationURL, input.RawBody) {
		return nil, domain.ErrInvalidSignature
	}

	envelope, err := domain.ParsePayload(input.RawBody)
	if err != nil {
		return nil, err
	}

	eventID := envelope.EventID()
	if eventID == "" {
		return nil, domain.ErrMissingEventID
	}

	lockResult, err := w.lock.Acquire(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if lockResult == domain.LockAlreadyProcessed || lockResult == domain.LockInProgress {
		w.logger.Info("duplicate webhook delivery short-circuited",
			slog.String("event_id", eventID), slog.String("result", string(lockResult)))
		return &ProcessWebhookOutput{Status: string(lockResult), EventID: eventID}, nil
	}

	outcome, err := w.normalizer.Normalize(ctx, envelope, input.RawBody)
	if err != nil {
		w.lock.Release(ctx, eventID)
		return nil, err
	}

	if !outcome.Process {
		if err := w.lock.Finalize(ctx, eventID, domain.StatusIgnored, outcome.Reason); err != nil {
			w.lock.Release(ctx, eventID)
			return nil, err
		}
		w.logger.Info("webhook event ignored",
			slog.String("event_id", eventID), slog.String("reason", outcome.Reason))
		return &ProcessWebhookOutput{Status: string(domain.StatusIgnored), EventID: eventID}, nil
	}

	if err := w.ledger.Append(ctx, outcome.Row); err != nil {
		w.lock.Release(ctx, eventID)
		return nil, err
	}

	// The row is in the ledger at this point. A finalize failure must not fail
	// the delivery: the provider would retry an event that was already
	// recorded. Log it and let the lease expire into a reclaim.
	if err := w.lock.Finalize(ctx, eventID, domain.StatusProcessed, ""); err != nil {
		w.logger.Error("processed event but failed to finalize status",
			slog.String("event_id", eventID), slog.Any("error", err))
	}

	w.logger.Info("webhook event processed", slog.String("event_id", eventID))
	return &ProcessWebhookOutput{Status: string(domain.StatusProcessed), EventID: eventID}, nil
}

// CleanupExpired deletes event records whose retention TTL lapsed.
func (w *webhookUseCase) CleanupExpired(ctx context.Context) (int64, error) {
	return w.repo.DeleteExpired(ctx, w.now().UTC().Unix())
}

// NewWebhookUseCase creates a new WebhookUseCase with injected dependencies.
func NewWebhookUseCase(
	secrets SecretSource,
	verifier SignatureVerifier,
	lock *EventLock,
	normalizer *Normalizer,
	ledger LedgerAppender,
	repo EventRecordRepository,
	logger *slog.Logger,
	signatureSecretURL string,
) WebhookUseCase {
	return &webhookUseCase{
		secrets:            secrets,
		verifier:           verifier,
		lock:               lock,
		normalizer:         normalizer,
		ledger:             ledger,
		repo:               repo,
		logger:             logger,
		signatureSecretURL: signatureSecretURL,
		now:                time.Now,
	}
}
