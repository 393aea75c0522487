package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/rl1809/inventory/internal/adapter/storage"
	"github.com/rl1809/inventory/internal/core/domain"
	"github.com/rl1809/inventory/internal/core/service"
)

type stressConfig struct {
	Backend         string `env:"STOCK_BACKEND"          envDefault:"memory"`
	MySQLDSN        string `env:"MYSQL_DSN"              envDefault:"root:root@tcp(localhost:3306)/inventory?parseTime=true"`
	SQLitePath      string `env:"SQLITE_PATH"            envDefault:"stress.db"`
	RedisAddr       string `env:"REDIS_ADDR"             envDefault:"localhost:6379"`
	ConflictRetries int    `env:"STORE_CONFLICT_RETRIES" envDefault:"50"`

	ProductID     int64 `env:"STRESS_PRODUCT_ID"     envDefault:"900001"`
	InitialStock  int   `env:"STRESS_INITIAL_STOCK"  envDefault:"20"`
	TotalRequests int   `env:"STRESS_TOTAL_REQUESTS" envDefault:"50"`
}

// staticCatalog answers every lookup for one product without leaving the process.
type staticCatalog struct {
	product domain.Product
}

func (c staticCatalog) FetchProduct(ctx context.Context, productID int64) (domain.Product, error) {
	return c.product, nil
}

func main() {
	_ = godotenv.Load()

	var cfg stressConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to parse env: %v", err)
	}

	ctx := context.Background()

	store, closeStore, err := storage.Open(ctx, storage.Options{
		Backend:    cfg.Backend,
		MySQLDSN:   cfg.MySQLDSN,
		SQLitePath: cfg.SQLitePath,
		RedisAddr:  cfg.RedisAddr,
	})
	if err != nil {
		log.Fatalf("failed to open %s store: %v", cfg.Backend, err)
	}
	defer closeStore()

	catalog := staticCatalog{product: domain.Product{ID: cfg.ProductID, Name: "stress-item"}}
	inventory := service.NewInventoryService(catalog, store, zap.NewNop(), cfg.ConflictRetries)

	if _, err := inventory.SetStock(ctx, cfg.ProductID, cfg.InitialStock); err != nil {
		log.Fatalf("failed to set stock: %v", err)
	}

	// Counters
	var successCount, insufficientCount, conflictCount, otherCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < cfg.TotalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := inventory.DecreaseStock(ctx, cfg.ProductID, 1)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, service.ErrInsufficientStock):
				insufficientCount.Add(1)
			case errors.Is(err, service.ErrConcurrentUpdate):
				conflictCount.Add(1)
			default:
				otherCount.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := int(successCount.Load())
	final, err := inventory.GetStock(ctx, cfg.ProductID)
	if err != nil {
		log.Fatalf("failed to read final stock: %v", err)
	}

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Backend:            %s\n", cfg.Backend)
	fmt.Printf("Initial Stock:      %d\n", cfg.InitialStock)
	fmt.Printf("Total Requests:     %d\n", cfg.TotalRequests)
	fmt.Printf("Successful:         %d\n", success)
	fmt.Printf("Insufficient Stock: %d\n", insufficientCount.Load())
	fmt.Printf("Conflicts:          %d\n", conflictCount.Load())
	fmt.Printf("Other Failures:     %d\n", otherCount.Load())
	fmt.Printf("Final Stock:        %d\n", final.Quantity)
	fmt.Printf("Duration:           %v\n", elapsed)
	fmt.Println("==========================================")

	// Assertions
	if success+final.Quantity == cfg.InitialStock {
		fmt.Println("PASS: every unit is either sold or still in stock")
	} else {
		fmt.Printf("FAIL: sold %d + remaining %d != initial %d\n", success, final.Quantity, cfg.InitialStock)
	}

	if expected := min(cfg.InitialStock, cfg.TotalRequests); success == expected {
		fmt.Printf("PASS: exactly %d purchases succeeded\n", expected)
	} else {
		fmt.Printf("FAIL: expected %d purchases, got %d\n", expected, success)
	}
}
