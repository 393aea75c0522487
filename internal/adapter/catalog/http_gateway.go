package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/rl1809/inventory/internal/core/domain"
	"github.com/rl1809/inventory/internal/port"
	"github.com/rl1809/inventory/pkg/middleware"
)

// retryMultiplier grows the delay between attempts until it reaches Config.MaxDelay.
const retryMultiplier = 1.5

type Config struct {
	BaseURL      string
	APIKey       string
	APIKeyHeader string
	Timeout      time.Duration
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxRetries   int
}

// HTTPGateway fetches products from the catalog service over HTTP.
type HTTPGateway struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

func NewHTTPGateway(cfg Config, logger *zap.Logger) *HTTPGateway {
	if cfg.APIKeyHeader == "" {
		cfg.APIKeyHeader = "X-API-KEY"
	}
	return &HTTPGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// errRetryable marks an attempt failure worth another try.
var errRetryable = errors.New("retryable catalog failure")

func (g *HTTPGateway) FetchProduct(ctx context.Context, productID int64) (domain.Product, error) {
	var product domain.Product
	attempts := 0

	operation := func() error {
		attempts++
		p, err := g.fetchOnce(ctx, productID)
		if err == nil {
			product = p
			return nil
		}
		if errors.Is(err, errRetryable) {
			return err
		}
		return backoff.Permanent(err)
	}

	notify := func(err error, delay time.Duration) {
		g.logger.Warn("catalog request failed, retrying",
			zap.Int64("product_id", productID),
			zap.Int("attempt", attempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(g.newBackOff(), uint64(g.cfg.MaxRetries)), ctx)
	err := backoff.RetryNotify(operation, policy, notify)
	switch {
	case err == nil:
		return product, nil
	case errors.Is(err, port.ErrProductNotFound):
		return domain.Product{}, err
	default:
		return domain.Product{}, fmt.Errorf("%w: product %d after %d attempts: %v",
			port.ErrCatalogUnavailable, productID, attempts, err)
	}
}

func (g *HTTPGateway) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = g.cfg.InitialDelay
	b.MaxInterval = g.cfg.MaxDelay
	b.Multiplier = retryMultiplier
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func (g *HTTPGateway) fetchOnce(ctx context.Context, productID int64) (domain.Product, error) {
	url := strings.TrimRight(g.cfg.BaseURL, "/") + "/products/" + strconv.FormatInt(productID, 10)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.Product{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set(g.cfg.APIKeyHeader, g.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	if requestID := middleware.RequestIDFromContext(ctx); requestID != "" {
		req.Header.Set(middleware.RequestIDHeader, requestID)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := g.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return domain.Product{}, ctx.Err()
		}
		return domain.Product{}, fmt.Errorf("%w: %v", errRetryable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return domain.Product{}, port.ErrProductNotFound
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		io.Copy(io.Discard, resp.Body)
		return domain.Product{}, fmt.Errorf("%w: status %d", errRetryable, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		io.Copy(io.Discard, resp.Body)
		return domain.Product{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var product domain.Product
	if err := json.NewDecoder(resp.Body).Decode(&product); err != nil {
		return domain.Product{}, fmt.Errorf("decode product: %w", err)
	}
	return product, nil
}
