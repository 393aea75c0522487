package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/rl1809/inventory/internal/core/domain"
	"github.com/rl1809/inventory/internal/port"
)

// Dialect holds the parts of the SQL adapter that differ between database engines.
type Dialect struct {
	Name        string
	DriverName  string
	Schema      string
	isDuplicate func(error) bool
}

var MySQL = Dialect{
	Name:       "mysql",
	DriverName: "mysql",
	Schema: `
		CREATE TABLE IF NOT EXISTS inventory (
			id         BIGINT AUTO_INCREMENT PRIMARY KEY,
			product_id BIGINT NOT NULL UNIQUE,
			quantity   BIGINT NOT NULL CHECK (quantity >= 0),
			version    BIGINT NOT NULL DEFAULT 1
		)`,
	isDuplicate: func(err error) bool {
		var myErr *mysql.MySQLError
		return errors.As(err, &myErr) && myErr.Number == 1062
	},
}

var SQLite = Dialect{
	Name:       "sqlite",
	DriverName: "sqlite",
	Schema: `
		CREATE TABLE IF NOT EXISTS inventory (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			product_id INTEGER NOT NULL UNIQUE,
			quantity   INTEGER NOT NULL CHECK (quantity >= 0),
			version    INTEGER NOT NULL DEFAULT 1
		)`,
	isDuplicate: func(err error) bool {
		var liteErr *sqlite.Error
		return errors.As(err, &liteErr) && liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	},
}

type SQLAdapter struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLAdapter(db *sql.DB, dialect Dialect) *SQLAdapter {
	return &SQLAdapter{db: db, dialect: dialect}
}

// Migrate creates the inventory table if it does not exist.
func (a *SQLAdapter) Migrate(ctx context.Context) error {
	if _, err := a.db.ExecContext(ctx, a.dialect.Schema); err != nil {
		return fmt.Errorf("migrate %s schema: %w", a.dialect.Name, err)
	}
	return nil
}

func (a *SQLAdapter) FindByProduct(ctx context.Context, productID int64) (*domain.InventoryRecord, error) {
	var rec domain.InventoryRecord
	err := a.db.QueryRowContext(ctx, `
		SELECT id, product_id, quantity, version
		FROM inventory WHERE product_id = ?`, productID,
	).Scan(&rec.ID, &rec.ProductID, &rec.Quantity, &rec.Version)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}

	return &rec, nil
}

func (a *SQLAdapter) Save(ctx context.Context, rec domain.InventoryRecord) (domain.InventoryRecord, error) {
	if rec.ID == 0 {
		return a.insert(ctx, rec)
	}

	result, err := a.db.ExecContext(ctx, `
		UPDATE inventory
		SET quantity = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		rec.Quantity, rec.ID, rec.Version,
	)
	if err != nil {
		return domain.InventoryRecord{}, fmt.Errorf("update inventory: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return domain.InventoryRecord{}, fmt.Errorf("update inventory: %w", err)
	}
	if rows == 0 {
		return domain.InventoryRecord{}, port.ErrStaleRecord
	}

	rec.Version++
	return rec, nil
}

func (a *SQLAdapter) insert(ctx context.Context, rec domain.InventoryRecord) (domain.InventoryRecord, error) {
	result, err := a.db.ExecContext(ctx, `
		INSERT INTO inventory (product_id, quantity, version)
		VALUES (?, ?, 1)`,
		rec.ProductID, rec.Quantity,
	)
	if err != nil {
		// another request created the row first
		if a.dialect.isDuplicate(err) {
			return domain.InventoryRecord{}, port.ErrStaleRecord
		}
		return domain.InventoryRecord{}, fmt.Errorf("insert inventory: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return domain.InventoryRecord{}, fmt.Errorf("insert inventory: %w", err)
	}

	rec.ID = id
	rec.Version = 1
	return rec, nil
}
