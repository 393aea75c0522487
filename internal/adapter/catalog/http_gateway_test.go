package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rl1809/inventory/internal/core/domain"
	"github.com/rl1809/inventory/internal/port"
	"github.com/rl1809/inventory/pkg/middleware"
)

const testAPIKey = "secret-key"

func newTestGateway(baseURL string) *HTTPGateway {
	return NewHTTPGateway(Config{
		BaseURL:      baseURL,
		APIKey:       testAPIKey,
		Timeout:      time.Second,
		InitialDelay: time.Millisecond,
		MaxDelay:     3 * time.Millisecond,
		MaxRetries:   2,
	}, zap.NewNop())
}

// catalogServer fails the first `failures` requests with status, then serves product.
func catalogServer(t *testing.T, failures int32, status int, product domain.Product) (*httptest.Server, *atomic.Int32) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		assert.Equal(t, testAPIKey, r.Header.Get("X-API-KEY"))
		if n <= failures {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(product)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestFetchProduct_Success(t *testing.T) {
	product := domain.Product{ID: 10, Name: "Keyboard", Price: 49.9, Description: "Mechanical keyboard"}
	srv, calls := catalogServer(t, 0, 0, product)

	got, err := newTestGateway(srv.URL).FetchProduct(context.Background(), 10)

	require.NoError(t, err)
	assert.Equal(t, product, got)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchProduct_RequestShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/products/42", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "custom-key", r.Header.Get("X-Catalog-Key"))
		assert.Equal(t, "req-123", r.Header.Get(middleware.RequestIDHeader))
		json.NewEncoder(w).Encode(domain.Product{ID: 42, Name: "Mouse", Price: 10})
	}))
	defer srv.Close()

	gw := NewHTTPGateway(Config{
		BaseURL:      srv.URL + "/",
		APIKey:       "custom-key",
		APIKeyHeader: "X-Catalog-Key",
		Timeout:      time.Second,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
	}, zap.NewNop())

	ctx := middleware.ContextWithRequestID(context.Background(), "req-123")
	got, err := gw.FetchProduct(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "Mouse", got.Name)
}

func TestFetchProduct_NotFoundIsNotRetried(t *testing.T) {
	srv, calls := catalogServer(t, 100, http.StatusNotFound, domain.Product{})

	_, err := newTestGateway(srv.URL).FetchProduct(context.Background(), 10)

	assert.ErrorIs(t, err, port.ErrProductNotFound)
	assert.NotErrorIs(t, err, port.ErrCatalogUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchProduct_RetriesTransientFailures(t *testing.T) {
	product := domain.Product{ID: 10, Name: "Keyboard", Price: 49.9}
	srv, calls := catalogServer(t, 2, http.StatusServiceUnavailable, product)

	got, err := newTestGateway(srv.URL).FetchProduct(context.Background(), 10)

	require.NoError(t, err)
	assert.Equal(t, product, got)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchProduct_RetryExhaustion(t *testing.T) {
	srv, calls := catalogServer(t, 100, http.StatusInternalServerError, domain.Product{})

	_, err := newTestGateway(srv.URL).FetchProduct(context.Background(), 10)

	assert.ErrorIs(t, err, port.ErrCatalogUnavailable)
	assert.NotErrorIs(t, err, port.ErrProductNotFound)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchProduct_ClientErrorIsNotRetried(t *testing.T) {
	srv, calls := catalogServer(t, 100, http.StatusUnauthorized, domain.Product{})

	_, err := newTestGateway(srv.URL).FetchProduct(context.Background(), 10)

	assert.ErrorIs(t, err, port.ErrCatalogUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchProduct_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	_, err := newTestGateway(srv.URL).FetchProduct(context.Background(), 10)

	assert.ErrorIs(t, err, port.ErrCatalogUnavailable)
}

func TestFetchProduct_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestGateway(url).FetchProduct(context.Background(), 10)

	assert.ErrorIs(t, err, port.ErrCatalogUnavailable)
}

func TestFetchProduct_ContextCancelledStopsRetrying(t *testing.T) {
	srv, calls := catalogServer(t, 100, http.StatusBadGateway, domain.Product{})

	gw := newTestGateway(srv.URL)
	gw.cfg.InitialDelay = time.Hour
	gw.cfg.MaxDelay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := gw.FetchProduct(ctx, 10)

	assert.ErrorIs(t, err, port.ErrCatalogUnavailable)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, int32(1), calls.Load())
}

func TestNewBackOff_Schedule(t *testing.T) {
	gw := NewHTTPGateway(Config{
		InitialDelay: time.Second,
		MaxDelay:     3 * time.Second,
		MaxRetries:   2,
	}, zap.NewNop())

	b := gw.newBackOff()

	want := []time.Duration{
		time.Second,
		1500 * time.Millisecond,
		2250 * time.Millisecond,
		3 * time.Second,
		3 * time.Second,
	}
	for i, d := range want {
		assert.Equal(t, d, b.NextBackOff(), "delay %d", i)
	}
}

func TestFetchProduct_SlowAttemptsAreRetried(t *testing.T) {
	product := domain.Product{ID: 10, Name: "Keyboard", Price: 49.9}

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			select {
			case <-time.After(time.Second):
			case <-r.Context().Done():
			}
			return
		}
		json.NewEncoder(w).Encode(product)
	}))
	defer srv.Close()

	gw := newTestGateway(srv.URL)
	gw.client.Timeout = 50 * time.Millisecond

	got, err := gw.FetchProduct(context.Background(), 10)

	require.NoError(t, err)
	assert.Equal(t, product, got)
	assert.Equal(t, int32(3), calls.Load())
}
