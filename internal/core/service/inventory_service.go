package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rl1809/inventory/internal/core/domain"
	"github.com/rl1809/inventory/internal/port"
)

const tracerName = "github.com/rl1809/inventory/internal/core/service"

type InventoryService struct {
	catalog         port.CatalogGateway
	store           port.StockStore
	logger          *zap.Logger
	tracer          trace.Tracer
	conflictRetries int
}

// NewInventoryService builds the workflow. conflictRetries bounds how many times a
// write re-reads the record after losing an optimistic-lock race.
func NewInventoryService(catalog port.CatalogGateway, store port.StockStore, logger *zap.Logger, conflictRetries int) *InventoryService {
	if conflictRetries < 0 {
		conflictRetries = 0
	}
	return &InventoryService{
		catalog:         catalog,
		store:           store,
		logger:          logger,
		tracer:          otel.Tracer(tracerName),
		conflictRetries: conflictRetries,
	}
}

func (s *InventoryService) GetStock(ctx context.Context, productID int64) (domain.InventoryRecord, error) {
	ctx, span := s.startSpan(ctx, "GetStock", productID)
	defer span.End()

	if _, err := s.verifyProduct(ctx, productID); err != nil {
		return domain.InventoryRecord{}, s.fail(span, err)
	}

	record, err := s.store.FindByProduct(ctx, productID)
	if err != nil {
		return domain.InventoryRecord{}, s.fail(span, newError(KindStoreFailure, productID, "find inventory", err))
	}
	if record == nil {
		return domain.InventoryRecord{}, s.fail(span, newError(KindInventoryNotFound, productID, "", nil))
	}

	return *record, nil
}

func (s *InventoryService) SetStock(ctx context.Context, productID int64, quantity int) (domain.InventoryRecord, error) {
	ctx, span := s.startSpan(ctx, "SetStock", productID)
	defer span.End()

	if quantity < 0 {
		return domain.InventoryRecord{}, s.fail(span, newError(KindInvalidQuantity, productID,
			fmt.Sprintf("quantity must be >= 0, got %d", quantity), nil))
	}

	if _, err := s.verifyProduct(ctx, productID); err != nil {
		return domain.InventoryRecord{}, s.fail(span, err)
	}

	saved, err := s.mutate(ctx, productID, func(record *domain.InventoryRecord) (*domain.InventoryRecord, error) {
		if record == nil {
			record = &domain.InventoryRecord{ProductID: productID}
		}
		record.Quantity = quantity
		return record, nil
	})
	if err != nil {
		return domain.InventoryRecord{}, s.fail(span, err)
	}

	s.logger.Info("stock set",
		zap.Int64("product_id", productID),
		zap.Int("quantity", saved.Quantity),
		zap.Int64("version", saved.Version),
	)
	return saved, nil
}

func (s *InventoryService) DecreaseStock(ctx context.Context, productID int64, amount int) (domain.PurchaseResult, error) {
	ctx, span := s.startSpan(ctx, "DecreaseStock", productID)
	defer span.End()

	if amount <= 0 {
		return domain.PurchaseResult{}, s.fail(span, newError(KindInvalidAmount, productID,
			fmt.Sprintf("amount must be > 0, got %d", amount), nil))
	}

	product, err := s.verifyProduct(ctx, productID)
	if err != nil {
		return domain.PurchaseResult{}, s.fail(span, err)
	}

	saved, err := s.mutate(ctx, productID, func(record *domain.InventoryRecord) (*domain.InventoryRecord, error) {
		if record == nil {
			return nil, newError(KindInventoryNotFound, productID, "", nil)
		}
		if record.Quantity < amount {
			return nil, newError(KindInsufficientStock, productID,
				fmt.Sprintf("available %d, requested %d", record.Quantity, amount), nil)
		}
		record.Quantity -= amount
		return record, nil
	})
	if err != nil {
		return domain.PurchaseResult{}, s.fail(span, err)
	}

	s.logger.Info("stock decreased",
		zap.Int64("product_id", productID),
		zap.Int("amount", amount),
		zap.Int("remaining", saved.Quantity),
	)
	return domain.PurchaseResult{
		Record:             saved,
		PurchasedAmount:    amount,
		ProductDescription: product.Description,
	}, nil
}

func (s *InventoryService) verifyProduct(ctx context.Context, productID int64) (domain.Product, error) {
	product, err := s.catalog.FetchProduct(ctx, productID)
	switch {
	case err == nil:
		return product, nil
	case errors.Is(err, port.ErrProductNotFound):
		return domain.Product{}, newError(KindProductNotFound, productID, "", nil)
	default:
		s.logger.Warn("catalog verification failed",
			zap.Int64("product_id", productID),
			zap.Error(err),
		)
		return domain.Product{}, newError(KindDependencyUnavailable, productID, "catalog", err)
	}
}

// mutate runs read-check-write against the store. apply receives the current record
// (nil if absent) and returns the record to save or a terminal error. A stale save
// re-reads and re-applies; the catalog is not consulted again.
func (s *InventoryService) mutate(ctx context.Context, productID int64, apply func(*domain.InventoryRecord) (*domain.InventoryRecord, error)) (domain.InventoryRecord, error) {
	for attempt := 0; ; attempt++ {
		current, err := s.store.FindByProduct(ctx, productID)
		if err != nil {
			return domain.InventoryRecord{}, newError(KindStoreFailure, productID, "find inventory", err)
		}

		next, err := apply(current)
		if err != nil {
			return domain.InventoryRecord{}, err
		}

		saved, err := s.store.Save(ctx, *next)
		if err == nil {
			return saved, nil
		}
		if !errors.Is(err, port.ErrStaleRecord) {
			return domain.InventoryRecord{}, newError(KindStoreFailure, productID, "save inventory", err)
		}
		if attempt >= s.conflictRetries {
			return domain.InventoryRecord{}, newError(KindConcurrentUpdate, productID,
				fmt.Sprintf("gave up after %d attempts", attempt+1), err)
		}
		s.logger.Debug("inventory write conflict, retrying",
			zap.Int64("product_id", productID),
			zap.Int("attempt", attempt+1),
		)
	}
}

func (s *InventoryService) startSpan(ctx context.Context, name string, productID int64) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "InventoryService."+name,
		trace.WithAttributes(attribute.Int64("inventory.product_id", productID)))
}

func (s *InventoryService) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(KindOf(err)))
	return err
}
