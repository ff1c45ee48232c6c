package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/webhook-ledger/internal/webhook/domain"
)

type useCaseFixture struct {
	useCase WebhookUseCase
	repo    *memEventRecordRepo
	secrets *fakeSecretSource
	ledger  *fakeLedger
	orders  *fakeOrderFetcher
}

func newUseCaseFixture(t *testing.T, verifierValid bool) *useCaseFixture {
	t.Helper()

	repo := newMemEventRecordRepo()
	secrets := &fakeSecretSource{value: "signature-key"}
	ledger := &fakeLedger{}
	orders := &fakeOrderFetcher{}
	logger := discardLogger()

	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	lock := NewEventLock(repo, logger, 2*time.Minute, 90*24*time.Hour)
	lock.now = func() time.Time { return now }

	normalizer := NewNormalizer(orders, NewPackageResolver("", logger), 8000)
	normalizer.now = func() time.Time { return now }

	useCase := NewWebhookUseCase(
		secrets,
		&fakeVerifier{valid: verifierValid},
		lock,
		normalizer,
		ledger,
		repo,
		logger,
		"constant://?val=signature-key&decoder=string",
	)

	return &useCaseFixture{
		useCase: useCase,
		repo:    repo,
		secrets: secrets,
		ledger:  ledger,
		orders:  orders,
	}
}

func processInput(rawBody string) ProcessWebhookInput {
	return ProcessWebhookInput{
		RawBody:         []byte(rawBody),
		SignatureHeader: "sig",
		NotificationURL: "https://example.com/v1/webhooks/square",
	}
}

const completedPaymentBody = `{"event_id":"evt-1","type":"payment.created",` +
	`"data":{"object":{"payment":{"id":"pay-1","status":"COMPLETED",` +
	`"amount_money":{"amount":15000,"currency":"USD"}}}}}`

func TestWebhookUseCase_ProcessWebhook(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid signature is rejected", func(t *testing.T) {
		fixture := newUseCaseFixture(t, false)

		_, err := fixture.useCase.ProcessWebhook(ctx, processInput(completedPaymentBody))
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
		assert.Empty(t, fixture.repo.records)
	})

	t.Run("secret fetch failure fails before verification", func(t *testing.T) {
		fixture := newUseCaseFixture(t, true)
		fixture.secrets.err = errors.New("secret store unavailable")

		_, err := fixture.useCase.ProcessWebhook(ctx, processInput(completedPaymentBody))
		assert.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("missing event id is rejected", func(t *testing.T) {
		fixture := newUseCaseFixture(t, true)

		_, err := fixture.useCase.ProcessWebhook(ctx, processInput(`{"type":"payment.created"}`))
		assert.ErrorIs(t, err, domain.ErrMissingEventID)
	})

	t.Run("malformed payload fails", func(t *testing.T) {
		fixture := newUseCaseFixture(t, true)

		_, err := fixture.useCase.ProcessWebhook(ctx, processInput(`{not-json`))
		assert.Error(t, err)
	})

	t.Run("completed payment is appended and finalized", func(t *testing.T) {
		fixture := newUseCaseFixture(t, true)

		output, err := fixture.useCase.ProcessWebhook(ctx, processInput(completedPaymentBody))
		require.NoError(t, err)
		assert.Equal(t, "PROCESSED", output.Status)
		assert.Equal(t, "evt-1", output.EventID)

		require.Len(t, fixture.ledger.rows, 1)
		assert.Equal(t, "pay-1", fixture.ledger.rows[0].PaymentID)

		record, err := fixture.repo.GetByID(ctx, "evt-1")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusProcessed, record.Status)
	})

	t.Run("duplicate delivery short-circuits without a second append", func(t *testing.T) {
		fixture := newUseCaseFixture(t, true)

		_, err := fixture.useCase.ProcessWebhook(ctx, processInput(completedPaymentBody))
		require.NoError(t, err)

		output, err := fixture.useCase.ProcessWebhook(ctx, processInput(completedPaymentBody))
		require.NoError(t, err)
		assert.Equal(t, "ALREADY_PROCESSED", output.Status)
		assert.Len(t, fixture.ledger.rows, 1)
	})

	t.Run("ignorable event is finalized as ignored", func(t *testing.T) {
		fixture := newUseCaseFixture(t, true)
		raw := `{"event_id":"evt-2","type":"payment.updated","data":{"object":{"payment":{"id":"pay-2","status":"FAILED"}}}}`

		output, err := fixture.useCase.ProcessWebhook(ctx, processInput(raw))
		require.NoError(t, err)
		assert.Equal(t, "IGNORED", output.Status)
		assert.Empty(t, fixture.ledger.rows)

		record, err := fixture.repo.GetByID(ctx, "evt-2")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusIgnored, record.Status)
		assert.Equal(t, "Ignored event payment.updated with status FAILED", record.Note)
	})

	t.Run("append failure releases the lock", func(t *testing.T) {
		fixture := newUseCaseFixture(t, true)
		fixture.ledger.err = errors.New("sheet unavailable")

		_, err := fixture.useCase.ProcessWebhook(ctx, processInput(completedPaymentBody))
		assert.Error(t, err)

		// Lock released: the next delivery starts over.
		_, err = fixture.repo.GetByID(ctx, "evt-1")
		assert.ErrorIs(t, err, domain.ErrEventRecordNotFound)
	})

	t.Run("order fetch failure releases the lock", func(t *testing.T) {
		fixture := newUseCaseFixture(t, true)
		fixture.orders.err = errors.New("upstream unavailable")
		raw := `{"event_id":"evt-3","type":"payment.created","data":{"object":{"payment":{"id":"pay-3","status":"COMPLETED","order_id":"order-3"}}}}`

		_, err := fixture.useCase.ProcessWebhook(ctx, processInput(raw))
		assert.Error(t, err)

		_, err = fixture.repo.GetByID(ctx, "evt-3")
		assert.ErrorIs(t, err, domain.ErrEventRecordNotFound)
	})

	t.Run("finalize failure after append still reports processed", func(t *testing.T) {
		fixture := newUseCaseFixture(t, true)
		fixture.repo.finalizeErr = errors.New("store unavailable")

		output, err := fixture.useCase.ProcessWebhook(ctx, processInput(completedPaymentBody))
		require.NoError(t, err)
		assert.Equal(t, "PROCESSED", output.Status)
		assert.Len(t, fixture.ledger.rows, 1)
	})
}

func TestWebhookUseCase_CleanupExpired(t *testing.T) {
	ctx := context.Background()
	fixture := newUseCaseFixture(t, true)

	fixture.repo.records["evt-old"] = &domain.EventRecord{EventID: "evt-old", TTLEpoch: 1}
	fixture.repo.records["evt-new"] = &domain.EventRecord{
		EventID:  "evt-new",
		TTLEpoch: time.Now().Add(time.Hour).Unix(),
	}

	count, err := fixture.useCase.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
