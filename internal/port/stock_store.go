package port

import (
	"context"
	"errors"

	"github.com/rl1809/inventory/internal/core/domain"
)

var ErrStaleRecord = errors.New("stale inventory record")

type StockStore interface {
	// FindByProduct returns the record for productID, or nil if none exists
	FindByProduct(ctx context.Context, productID int64) (*domain.InventoryRecord, error)

	// Save inserts a record with ID 0, otherwise updates the row with the same ID and Version.
	// Returns ErrStaleRecord if the row changed since it was read.
	Save(ctx context.Context, record domain.InventoryRecord) (domain.InventoryRecord, error)
}
