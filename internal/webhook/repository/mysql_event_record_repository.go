package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	apperrors "github.com/allisson/webhook-ledger/internal/errors"
	"github.com/allisson/webhook-ledger/internal/webhook/domain"
)

// MySQLEventRecordRepository handles event record persistence for MySQL.
type MySQLEventRecordRepository struct {
	db *sql.DB
}

// NewMySQLEventRecordRepository creates a new MySQLEventRecordRepository.
func NewMySQLEventRecordRepository(db *sql.DB) *MySQLEventRecordRepository {
	return &MySQLEventRecordRepository{db: db}
}

// Create inserts a new PROCESSING record, failing if one already exists for the
// event id.
func (r *MySQLEventRecordRepository) Create(ctx context.Context, record *domain.EventRecord) error {
	query := `INSERT INTO webhook_events (event_id, status, note, received_at, updated_at, lock_expires_epoch, ttl_epoch)
			  VALUES (?, ?, ?, NOW(6), NOW(6), ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		record.EventID, record.Status, record.Note, record.LockExpiresEpoch, record.TTLEpoch,
	)
	if err != nil {
		if isMySQLDuplicateEntry(err) {
			return domain.ErrEventRecordExists
		}
		return apperrors.Wrap(err, "failed to create event record")
	}
	return nil
}

// GetByID retrieves an event record by event id.
func (r *MySQLEventRecordRepository) GetByID(ctx context.Context, eventID string) (*domain.EventRecord, error) {
	query := `SELECT event_id, status, note, received_at, processed_at, updated_at, lock_expires_epoch, ttl_epoch
			  FROM webhook_events WHERE event_id = ?`

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

// Reclaim re-claims the lease of a stale PROCESSING record; losing the race
// returns ErrConditionFailed.
func (r *MySQLEventRecordRepository) Reclaim(ctx context.Context, eventID string, now, lockExpires, ttl int64) error {
	query := `UPDATE webhook_events
			  SET lock_expires_epoch = ?, ttl_epoch = ?, updated_at = NOW(6)
			  WHERE event_id = ? AND status = 'PROCESSING' AND lock_expires_epoch < ?`

	result, err := r.db.ExecContext(ctx, query, lockExpires, ttl, eventID, now)
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
func (r *MySQLEventRecordRepository) Finalize(
	ctx context.Context,
	eventID string,
	status domain.Status,
	note string,
	lockExpires, ttl int64,
) error {
	query := `UPDATE webhook_events
			  SET status = ?, processed_at = NOW(6), updated_at = NOW(6), lock_expires_epoch = ?, ttl_epoch = ?
			  WHERE event_id = ?`
	args := []any{status, lockExpires, ttl, eventID}

	if note != "" {
		query = `UPDATE webhook_events
				 SET status = ?, processed_at = NOW(6), updated_at = NOW(6), lock_expires_epoch = ?, ttl_epoch = ?, note = ?
				 WHERE event_id = ?`
		args = []any{status, lockExpires, ttl, note, eventID}
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return apperrors.Wrap(err, "failed to finalize event record")
	}
	return nil
}

// Delete removes an event record entirely. Deleting an absent record is not an error.
func (r *MySQLEventRecordRepository) Delete(ctx context.Context, eventID string) error {
	query := `DELETE FROM webhook_events WHERE event_id = ?`

	if _, err := r.db.ExecContext(ctx, query, eventID); err != nil {
		return apperrors.Wrap(err, "failed to delete event record")
	}
	return nil
}

// DeleteExpired removes records whose retention TTL lapsed before now.
func (r *MySQLEventRecordRepository) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	query := `DELETE FROM webhook_events WHERE ttl_epoch < ?`

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

// isMySQLDuplicateEntry checks if the error is a MySQL duplicate key violation (error 1062).
func isMySQLDuplicateEntry(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate entry") || strings.Contains(errMsg, "error 1062")
}
