package storage

import (
	"context"
	"sync"

	"github.com/rl1809/inventory/internal/core/domain"
	"github.com/rl1809/inventory/internal/port"
)

// MemoryAdapter keeps inventory in process memory. Intended for local runs and tests.
type MemoryAdapter struct {
	mu        sync.Mutex
	byProduct map[int64]domain.InventoryRecord
	nextID    int64
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{byProduct: make(map[int64]domain.InventoryRecord)}
}

func (m *MemoryAdapter) FindByProduct(ctx context.Context, productID int64) (*domain.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.byProduct[productID]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (m *MemoryAdapter) Save(ctx context.Context, record domain.InventoryRecord) (domain.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, exists := m.byProduct[record.ProductID]

	if record.ID == 0 {
		if exists {
			return domain.InventoryRecord{}, port.ErrStaleRecord
		}
		m.nextID++
		record.ID = m.nextID
		record.Version = 1
		m.byProduct[record.ProductID] = record
		return record, nil
	}

	if !exists || current.ID != record.ID || current.Version != record.Version {
		return domain.InventoryRecord{}, port.ErrStaleRecord
	}
	record.Version++
	m.byProduct[record.ProductID] = record
	return record, nil
}
