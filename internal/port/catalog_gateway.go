package port

import (
	"context"
	"errors"

	"github.com/rl1809/inventory/internal/core/domain"
)

var (
	ErrProductNotFound    = errors.New("product not found in catalog")
	ErrCatalogUnavailable = errors.New("catalog unavailable")
)

type CatalogGateway interface {
	// FetchProduct returns ErrProductNotFound when the catalog has no such product
	// and an error wrapping ErrCatalogUnavailable once retries are exhausted.
	FetchProduct(ctx context.Context, productID int64) (domain.Product, error)
}
