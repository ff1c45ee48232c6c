package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/webhook-ledger/internal/errors"
	"github.com/allisson/webhook-ledger/internal/webhook/domain"
)

func setupMySQLMock(t *testing.T) (*MySQLEventRecordRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewMySQLEventRecordRepository(db), mock
}

func TestMySQLEventRecordRepository_Create(t *testing.T) {
	record := &domain.EventRecord{
		EventID:          "evt-1",
		Status:           domain.StatusProcessing,
		LockExpiresEpoch: 1700000120,
		TTLEpoch:         1707776000,
	}

	t.Run("inserts record", func(t *testing.T) {
		repo, mock := setupMySQLMock(t)

		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO webhook_events`)).
			WithArgs("evt-1", domain.StatusProcessing, "", int64(1700000120), int64(1707776000)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Create(context.Background(), record))
	})

	t.Run("duplicate entry maps to ErrEventRecordExists", func(t *testing.T) {
		repo, mock := setupMySQLMock(t)

		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO webhook_events`)).
			WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'evt-1' for key 'webhook_events.PRIMARY'"))

		err := repo.Create(context.Background(), record)
		assert.ErrorIs(t, err, domain.ErrEventRecordExists)
	})
}

func TestMySQLEventRecordRepository_Reclaim(t *testing.T) {
	t.Run("reclaims expired lease", func(t *testing.T) {
		repo, mock := setupMySQLMock(t)

		mock.ExpectExec(regexp.QuoteMeta(`UPDATE webhook_events`)).
			WithArgs(int64(1700000240), int64(1707776120), "evt-1", int64(1700000120)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Reclaim(context.Background(), "evt-1", 1700000120, 1700000240, 1707776120))
	})

	t.Run("lost race maps to ErrConditionFailed", func(t *testing.T) {
		repo, mock := setupMySQLMock(t)

		mock.ExpectExec(regexp.QuoteMeta(`UPDATE webhook_events`)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Reclaim(context.Background(), "evt-1", 1700000120, 1700000240, 1707776120)
		assert.True(t, apperrors.Is(err, apperrors.ErrConditionFailed))
	})
}

func TestMySQLEventRecordRepository_Finalize(t *testing.T) {
	repo, mock := setupMySQLMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE webhook_events`)).
		WithArgs(domain.StatusIgnored, int64(1700000119), int64(1707776000), "Ignored event payment.updated with status FAILED", "evt-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Finalize(
		context.Background(), "evt-1", domain.StatusIgnored,
		"Ignored event payment.updated with status FAILED", 1700000119, 1707776000,
	)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLEventRecordRepository_Delete(t *testing.T) {
	repo, mock := setupMySQLMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM webhook_events WHERE event_id = ?`)).
		WithArgs("evt-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Delete(context.Background(), "evt-1"))
}
