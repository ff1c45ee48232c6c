// Package domain defines the webhook event domain entities and types.
package domain

import (
	"time"

	"github.com/allisson/webhook-ledger/internal/errors"
)

// Status is the lifecycle state of an event record.
type Status string

// Event record statuses. A record only ever moves PROCESSING -> PROCESSED or
// PROCESSING -> IGNORED, or is deleted entirely; terminal statuses never revert.
const (
	StatusProcessing Status = "PROCESSING"
	StatusProcessed  Status = "PROCESSED"
	StatusIgnored    Status = "IGNORED"
)

// Terminal reports whether the status is a final outcome.
func (s Status) Terminal() bool {
	return s == StatusProcessed || s == StatusIgnored
}

// LockResult is the outcome of an event lock acquisition attempt.
type LockResult string

const (
	// LockAcquired means this invocation owns the processing slot for the event.
	LockAcquired LockResult = "LOCK_ACQUIRED"
	// LockAlreadyProcessed means the event already reached a terminal status;
	// callers should treat this as a successful no-op.
	LockAlreadyProcessed LockResult = "ALREADY_PROCESSED"
	// LockInProgress means another invocation holds an unexpired lease.
	LockInProgress LockResult = "IN_PROGRESS"
)

// EventRecord is the per-event row in the lock/status store. At most one record
// exists per event id; all coordination between concurrent deliveries happens
// through conditional writes against it.
type EventRecord struct {
	EventID          string
	Status           Status
	Note             string
	ReceivedAt       time.Time
	ProcessedAt      *time.Time
	UpdatedAt        time.Time
	LockExpiresEpoch int64
	TTLEpoch         int64
}

// LeaseExpired reports whether the record's lease lapsed at the given time.
func (r *EventRecord) LeaseExpired(now time.Time) bool {
	return r.LockExpiresEpoch < now.Unix()
}

// Domain-specific errors for webhook event operations.
var (
	// ErrEventRecordExists indicates a record for the event id already exists.
	ErrEventRecordExists = errors.Wrap(errors.ErrConflict, "event record already exists")

	// ErrEventRecordNotFound indicates the requested event record does not exist.
	ErrEventRecordNotFound = errors.Wrap(errors.ErrNotFound, "event record not found")

	// ErrMissingBody indicates the webhook request carried no body.
	ErrMissingBody = errors.Wrap(errors.ErrInvalidInput, "Missing request body")

	// ErrMissingSignatureHeader indicates the signature header is absent.
	ErrMissingSignatureHeader = errors.Wrap(errors.ErrUnauthorized, "Missing Square signature header")

	// ErrInvalidSignature indicates the signature did not match the request.
	ErrInvalidSignature = errors.Wrap(errors.ErrUnauthorized, "Invalid signature")

	// ErrMissingEventID indicates the payload carried no event identifier.
	ErrMissingEventID = errors.Wrap(errors.ErrInvalidInput, "Missing Square event ID")
)
