// Package repository provides data persistence implementations for webhook event records.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	apperrors "github.com/allisson/webhook-ledger/internal/errors"
	"github.com/allisson/webhook-ledger/internal/webhook/domain"
)

// PostgreSQLEventRecordRepository handles event record persistence for PostgreSQL.
// All mutual exclusion between concurrent deliveries is expressed as conditional
// single-row writes; the database's per-row atomicity is the only lock.
type PostgreSQLEventRecordRepository struct {
	db *sql.DB
}

// NewPostgreSQLEventRecordRepository creates a new PostgreSQLEventRecordRepository.
func NewPostgreSQLEventRecordRepository(db *sql.DB) *PostgreSQLEventRecordRepository {
	return &PostgreSQLEventRecordRepository{db: db}
}

// Create inserts a new PROCESSING record, failing if one already exists for the
// event id. This is the insert-if-absent arm of lock acquisition.
func (r *PostgreSQLEventRecordRepository) Create(ctx context.Context, record *domain.EventRecord) error {
	query := `INSERT INTO webhook_events (event_id, status, note, received_at, updated_at, lock_expires_epoch, ttl_epoch)
			  VALUES ($1, $2, $3, NOW(), NOW(), $4, $5)`

	_, err := r.db.ExecContext(ctx, query,
		record.EventID, record.Status, record.Note, record.LockExpiresEpoch, record.TTLEpoch,
	)
	if err != nil {
		if isPostgreSQLUniqueViolation(err) {
			return domain.ErrEventRecordExists
		}
		return apperrors.Wrap(err, "failed to create event record")
	}
	return nil
}

// GetByID retrieves an event record by event id.
func (r *PostgreSQLEventRecordRepository) GetByID(ctx context.Context, eventID string) (*domain.EventRecord, error) {
	query := `SELECT event_id, status, note, received_at, processed_at, updated_at, lock_expires_epoch, ttl_epoch
			  FROM webhook_events WHERE event_id = $1`

	var record domain.EventRecord
	var note sql.NullString
	var processedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, eventID).Scan(
		&record.EventID, &record.Status, &note, &record.ReceivedAt,
		&processedAt, &record.UpdatedAt, &record.LockExpiresEpoch, &record.TTLEpoch,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEventRecordNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get event record")
	}

	record.Note = note.String
	if processedAt.Valid {
		record.ProcessedAt = &processedAt.Time
	}
	return &record, nil
}

// Reclaim re-claims the lease of a stale PROCESSING record. The guarded update
// succeeds only if the stored lease expired before now and the status has not
// reached a terminal state; losing the race returns ErrConditionFailed.
func (r *PostgreSQLEventRecordRepository) Reclaim(ctx context.Context, eventID string, now, lockExpires, ttl int64) error {
	query := `UPDATE webhook_events
			  SET lock_expires_epoch = $2, ttl_epoch = $3, updated_at = NOW()
			  WHERE event_id = $1 AND status = 'PROCESSING' AND lock_expires_epoch < $4`

	result, err := r.db.ExecContext(ctx, query, eventID, lockExpires, ttl, now)
	if err != nil {
		return apperrors.Wrap(err, "failed to reclaim event record")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read reclaim result")
	}
	if rows == 0 {
		return apperrors.Wrap(apperrors.ErrConditionFailed, "event lease not reclaimable")
	}
	return nil
}

// Finalize moves a record to a terminal status, back-dates the lease, stamps
// processed_at, and refreshes the retention TTL.
func (r *PostgreSQLEventRecordRepository) Finalize(
	ctx context.Context,
	eventID string,
	status domain.Status,
	note string,
	lockExpires, ttl int64,
) error {
	query := `UPDATE webhook_events
			  SET status = $2, processed_at = NOW(), updated_at = NOW(), lock_expires_epoch = $3, ttl_epoch = $4
			  WHERE event_id = $1`
	args := []any{eventID, status, lockExpires, ttl}

	if note != "" {
		query = `UPDATE webhook_events
				 SET status = $2, processed_at = NOW(), updated_at = NOW(), lock_expires_epoch = $3, ttl_epoch = $4, note = $5
				 WHERE event_id = $1`
		args = append(args, note)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return apperrors.Wrap(err, "failed to finalize event record")
	}
	return nil
}

// Delete removes an event record entirely, allowing a future delivery attempt
// to start from scratch. Deleting an absent record is not an error.
func (r *PostgreSQLEventRecordRepository) Delete(ctx context.Context, eventID string) error {
	query := `DELETE FROM webhook_events WHERE event_id = $1`

	if _, err := r.db.ExecContext(ctx, query, eventID); err != nil {
		return apperrors.Wrap(err, "failed to delete event record")
	}
	return nil
}

// DeleteExpired removes records whose retention TTL lapsed before now.
// Returns the number of records removed.
func (r *PostgreSQLEventRecordRepository) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	query := `DELETE FROM webhook_events WHERE ttl_epoch < $1`

	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete expired event records")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to read delete result")
	}
	return rows, nil
}

// isPostgreSQLUniqueViolation checks if the error is a PostgreSQL unique constraint violation
func isPostgreSQLUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate key") || strings.Contains(errMsg, "unique constraint")
}
