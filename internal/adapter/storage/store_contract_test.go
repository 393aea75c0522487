package storage

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/inventory/internal/core/domain"
	"github.com/rl1809/inventory/internal/port"
)

// runStoreContract exercises the StockStore guarantees every adapter must provide.
// productID must not exist in the store yet.
func runStoreContract(t *testing.T, store port.StockStore, productID int64) {
	ctx := context.Background()

	t.Run("absent record", func(t *testing.T) {
		rec, err := store.FindByProduct(ctx, productID)
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	var created domain.InventoryRecord
	t.Run("insert assigns id and version", func(t *testing.T) {
		var err error
		created, err = store.Save(ctx, domain.InventoryRecord{ProductID: productID, Quantity: 5})
		require.NoError(t, err)
		assert.NotZero(t, created.ID)
		assert.Equal(t, int64(1), created.Version)
		assert.Equal(t, 5, created.Quantity)

		found, err := store.FindByProduct(ctx, productID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, created, *found)
	})

	t.Run("second insert for same product is stale", func(t *testing.T) {
		_, err := store.Save(ctx, domain.InventoryRecord{ProductID: productID, Quantity: 1})
		assert.ErrorIs(t, err, port.ErrStaleRecord)
	})

	t.Run("update advances version", func(t *testing.T) {
		found, err := store.FindByProduct(ctx, productID)
		require.NoError(t, err)
		require.NotNil(t, found)

		found.Quantity = 3
		saved, err := store.Save(ctx, *found)
		require.NoError(t, err)
		assert.Equal(t, created.ID, saved.ID)
		assert.Equal(t, created.Version+1, saved.Version)

		again, err := store.FindByProduct(ctx, productID)
		require.NoError(t, err)
		assert.Equal(t, 3, again.Quantity)
		assert.Equal(t, saved.Version, again.Version)
	})

	t.Run("stale version is rejected", func(t *testing.T) {
		stale := created
		stale.Quantity = 100
		_, err := store.Save(ctx, stale)
		assert.ErrorIs(t, err, port.ErrStaleRecord)

		current, err := store.FindByProduct(ctx, productID)
		require.NoError(t, err)
		assert.Equal(t, 3, current.Quantity)
	})

	t.Run("quantity beyond 32 bits round-trips", func(t *testing.T) {
		found, err := store.FindByProduct(ctx, productID)
		require.NoError(t, err)
		require.NotNil(t, found)

		original := found.Quantity
		found.Quantity = math.MaxInt32 + 10
		saved, err := store.Save(ctx, *found)
		require.NoError(t, err)

		again, err := store.FindByProduct(ctx, productID)
		require.NoError(t, err)
		assert.Equal(t, math.MaxInt32+10, again.Quantity)

		saved.Quantity = original
		_, err = store.Save(ctx, saved)
		require.NoError(t, err)
	})

	t.Run("concurrent writers from one snapshot", func(t *testing.T) {
		snapshot, err := store.FindByProduct(ctx, productID)
		require.NoError(t, err)

		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				rec := *snapshot
				rec.Quantity--
				if _, err := store.Save(ctx, rec); err == nil {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), wins.Load())
		current, err := store.FindByProduct(ctx, productID)
		require.NoError(t, err)
		assert.Equal(t, snapshot.Quantity-1, current.Quantity)
	})
}
