package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	provider, err := NewProvider("test_ns")
	require.NoError(t, err)
	assert.NotNil(t, provider.MeterProvider())

	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
	})
}

func TestProvider_HandlerServesMetrics(t *testing.T) {
	provider, err := NewProvider("test_ns")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
	})

	bm, err := NewBusinessMetrics(provider.MeterProvider(), "test_ns")
	require.NoError(t, err)

	ctx := context.Background()
	bm.RecordOperation(ctx, "webhook", "process_webhook", "success")
	bm.RecordDuration(ctx, "webhook", "process_webhook", 42*time.Millisecond, "success")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	provider.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "test_ns_operations_total")
}
