package storage

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func getSQLiteDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/inventory?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("MySQL not available: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLAdapter_SQLite_Contract(t *testing.T) {
	adapter := NewSQLAdapter(getSQLiteDB(t), SQLite)
	require.NoError(t, adapter.Migrate(context.Background()))

	runStoreContract(t, adapter, 10)
}

func TestSQLAdapter_SQLite_MigrateIsRepeatable(t *testing.T) {
	adapter := NewSQLAdapter(getSQLiteDB(t), SQLite)
	require.NoError(t, adapter.Migrate(context.Background()))
	require.NoError(t, adapter.Migrate(context.Background()))
}

func TestSQLAdapter_SQLite_RejectsNegativeQuantity(t *testing.T) {
	db := getSQLiteDB(t)
	adapter := NewSQLAdapter(db, SQLite)
	require.NoError(t, adapter.Migrate(context.Background()))

	_, err := db.Exec(`INSERT INTO inventory (product_id, quantity) VALUES (1, -1)`)
	require.Error(t, err)
}

func TestSQLAdapter_MySQL_Contract(t *testing.T) {
	db := getMySQLDB(t)
	ctx := context.Background()
	adapter := NewSQLAdapter(db, MySQL)
	require.NoError(t, adapter.Migrate(ctx))

	productID := time.Now().UnixNano()
	t.Cleanup(func() {
		db.ExecContext(ctx, `DELETE FROM inventory WHERE product_id = ?`, productID)
	})

	runStoreContract(t, adapter, productID)
}
