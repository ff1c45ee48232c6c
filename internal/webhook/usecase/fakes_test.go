package usecase

import (
	"context"
	"sync"

	apperrors "github.com/allisson/webhook-ledger/internal/errors"
	"github.com/allisson/webhook-ledger/internal/webhook/domain"
)

// memEventRecordRepo is an in-memory EventRecordRepository with per-method
// error injection, mirroring the conditional write semantics of the real
// repositories.
type memEventRecordRepo struct {
	mu      sync.Mutex
	records map[string]*domain.EventRecord

	createErr   error
	getErr      error
	reclaimErr  error
	finalizeErr error
	deleteErr   error
}

func newMemEventRecordRepo() *memEventRecordRepo {
	return &memEventRecordRepo{records: map[string]*domain.EventRecord{}}
}

func (m *memEventRecordRepo) Create(_ context.Context, record *domain.EventRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[record.EventID]; ok {
		return domain.ErrEventRecordExists
	}
	clone := *record
	m.records[record.EventID] = &clone
	return nil
}

func (m *memEventRecordRepo) GetByID(_ context.Context, eventID string) (*domain.EventRecord, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[eventID]
	if !ok {
		return nil, domain.ErrEventRecordNotFound
	}
	clone := *record
	return &clone, nil
}

func (m *memEventRecordRepo) Reclaim(_ context.Context, eventID string, now, lockExpires, ttl int64) error {
	if m.reclaimErr != nil {
		return m.reclaimErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[eventID]
	if !ok || record.Status != domain.StatusProcessing || record.LockExpiresEpoch >= now {
		return apperrors.Wrap(apperrors.ErrConditionFailed, "event lease not reclaimable")
	}
	record.LockExpiresEpoch = lockExpires
	record.TTLEpoch = ttl
	return nil
}

func (m *memEventRecordRepo) Finalize(
	_ context.Context,
	eventID string,
	status domain.Status,
	note string,
	lockExpires, ttl int64,
) error {
	if m.finalizeErr != nil {
		return m.finalizeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[eventID]
	if !ok {
		return domain.ErrEventRecordNotFound
	}
	record.Status = status
	if note != "" {
		record.Note = note
	}
	record.LockExpiresEpoch = lockExpires
	record.TTLEpoch = ttl
	return nil
}

func (m *memEventRecordRepo) Delete(_ context.Context, eventID string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, eventID)
	return nil
}

func (m *memEventRecordRepo) DeleteExpired(_ context.Context, now int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for id, record := range m.records {
		if record.TTLEpoch < now {
			delete(m.records, id)
			count++
		}
	}
	return count, nil
}

type fakeSecretSource struct {
	value string
	err   error
}

func (f *fakeSecretSource) Get(_ context.Context, _ string) (string, error) {
	return f.value, f.err
}

type fakeVerifier struct {
	valid bool
}

func (f *fakeVerifier) Verify(_, _, _ string, _ []byte) bool {
	return f.valid
}

type fakeOrderFetcher struct {
	order   *domain.Order
	err     error
	orderID string
}

func (f *fakeOrderFetcher) FetchOrder(_ context.Context, orderID string) (*domain.Order, error) {
	f.orderID = orderID
	return f.order, f.err
}

type fakeLedger struct {
	rows []domain.LedgerRow
	err  error
}

func (f *fakeLedger) Append(_ context.Context, row domain.LedgerRow) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, row)
	return nil
}
