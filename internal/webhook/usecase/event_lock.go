package usecase

import (
	"context"
	"log/slog"
	"time"

	apperrors "github.com/allisson/webhook-ledger/internal/errors"
	"github.com/allisson/webhook-ledger/internal/webhook/domain"
)

// EventLock implements the per-event lease protocol on top of conditional
// repository writes. At most one worker holds the lease for an event id at a
// time, and a crashed worker's lease becomes reclaimable once it expires.
type EventLock struct {
	repo         EventRecordRepository
	logger       *slog.Logger
	lockDuration time.Duration
	recordTTL    time.Duration
	now          func() time.Time
}

// NewEventLock creates a new EventLock.
func NewEventLock(
	repo EventRecordRepository,
	logger *slog.Logger,
	lockDuration, recordTTL time.Duration,
) *EventLock {
	return &EventLock{
		repo:         repo,
		logger:       logger,
		lockDuration: lockDuration,
		recordTTL:    recordTTL,
		now:          time.Now,
	}
}

// Acquire attempts to take the processing lease for an event id.
//
// The fast path inserts a fresh PROCESSING record; insert-if-absent makes the
// first delivery win. On conflict the existing record decides the outcome: a
// terminal record means the event was already handled, a live lease means
// another worker owns it, and an expired lease is taken over with a guarded
// update so exactly one of the racing workers wins.
func (l *EventLock) Acquire(ctx context.Context, eventID string) (domain.LockResult, error) {
	now := l.now().UTC()
	nowEpoch := now.Unix()
	lockExpires := now.Add(l.lockDuration).Unix()
	ttl := now.Add(l.recordTTL).Unix()

	record := &domain.EventRecord{
		EventID:          eventID,
		Status:           domain.StatusProcessing,
		LockExpiresEpoch: lockExpires,
		TTLEpoch:         ttl,
	}

	err := l.repo.Create(ctx, record)
	if err == nil {
		return domain.LockAcquired, nil
	}
	if !apperrors.Is(err, domain.ErrEventRecordExists) {
		return "", err
	}

	existing, err := l.repo.GetByID(ctx, eventID)
	if err != nil {
		if apperrors.Is(err, domain.ErrEventRecordNotFound) {
			// The record vanished between the insert conflict and the read,
			// so another worker released it. Let redelivery retry.
			return domain.LockInProgress, nil
		}
		return "", err
	}

	if existing.Status.Terminal() {
		return domain.LockAlreadyProcessed, nil
	}
	if !existing.LeaseExpired(now) {
		return domain.LockInProgress, nil
	}

	if err := l.repo.Reclaim(ctx, eventID, nowEpoch, lockExpires, ttl); err != nil {
		if apperrors.Is(err, apperrors.ErrConditionFailed) {
			return domain.LockInProgress, nil
		}
		return "", err
	}

	l.logger.Info("reclaimed expired event lease", slog.String("event_id", eventID))
	return domain.LockAcquired, nil
}

// Finalize moves the event record to a terminal status. The lease expiry is
// back-dated so the record never reads as held, and the retention TTL is
// refreshed from the finalization time.
func (l *EventLock) Finalize(ctx context.Context, eventID string, status domain.Status, note string) error {
	now := l.now().UTC()
	return l.repo.Finalize(ctx, eventID, status, note, now.Unix()-1, now.Add(l.recordTTL).Unix())
}

// Release deletes the event record so a later redelivery can start over.
// Used when processing fails after the lease was acquired.
func (l *EventLock) Release(ctx context.Context, eventID string) {
	if err := l.repo.Delete(ctx, eventID); err != nil {
		l.logger.Error("failed to release event lock",
			slog.String("event_id", eventID), slog.Any("error", err))
		return
	}
	l.logger.Info("released event lock", slog.String("event_id", eventID))
}
