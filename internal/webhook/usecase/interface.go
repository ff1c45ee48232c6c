// Package usecase defines interfaces and implementations for webhook processing use cases.
// Coordinates signature verification, the event lock protocol, order enrichment, and ledger append.
package usecase

import (
	"context"

	"github.com/allisson/webhook-ledger/internal/webhook/domain"
)

// EventRecordRepository defines the interface for event record persistence operations.
type EventRecordRepository interface {
	// Create inserts a new PROCESSING record, returning ErrEventRecordExists when
	// a record for the event id is already present.
	Create(ctx context.Context, record *domain.EventRecord) error

	GetByID(ctx context.Context, eventID string) (*domain.EventRecord, error)

	// Reclaim takes over the lease of a stale PROCESSING record. Returns
	// ErrConditionFailed when the record is no longer reclaimable (another
	// worker renewed the lease or finalized the event).
	Reclaim(ctx context.Context, eventID string, now, lockExpires, ttl int64) error

	// Finalize moves a record to a terminal status and back-dates the lease so
	// it can never be mistaken for held.
	Finalize(ctx context.Context, eventID string, status domain.Status, note string, lockExpires, ttl int64) error

	// Delete removes the record entirely, releasing the lock so redelivery
	// starts from a clean slate.
	Delete(ctx context.Context, eventID string) error

	// DeleteExpired removes records whose retention TTL lapsed before now and
	// returns the number of deleted records.
	DeleteExpired(ctx context.Context, now int64) (int64, error)
}

// SecretSource resolves secret values from their configured URLs.
type SecretSource interface {
	Get(ctx context.Context, secretURL string) (string, error)
}

// SignatureVerifier validates the webhook signature over the notification URL
// and raw body.
type SignatureVerifier interface {
	Verify(signatureHeader, signingKey, notificationURL string, rawBody []byte) bool
}

// OrderFetcher retrieves an order from the payment provider. A missing order
// returns (nil, nil).
type OrderFetcher interface {
	FetchOrder(ctx context.Context, orderID string) (*domain.Order, error)
}

// LedgerAppender appends one booking row to the ledger.
type LedgerAppender interface {
	Append(ctx context.Context, row domain.LedgerRow) error
}

// WebhookUseCase defines the interface for webhook processing operations.
type WebhookUseCase interface {
	// ProcessWebhook runs the full pipeline for one delivery: verify the
	// signature, acquire the per-event lock, normalize the payload into a
	// ledger row, append it, and finalize the event record.
	ProcessWebhook(ctx context.Context, input ProcessWebhookInput) (*ProcessWebhookOutput, error)

	// CleanupExpired deletes event records whose retention TTL has lapsed and
	// returns the number of deleted records.
	CleanupExpired(ctx context.Context) (int64, error)
}

// ProcessWebhookInput carries one webhook delivery as received on the wire.
type ProcessWebhookInput struct {
	RawBody         []byte
	SignatureHeader string
	NotificationURL string
}

// ProcessWebhookOutput reports the terminal outcome of a delivery.
type ProcessWebhookOutput struct {
	Status  string
	EventID string
}
