package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_Memory(t *testing.T) {
	store, closeFn, err := Open(context.Background(), Options{Backend: BackendMemory})

	require.NoError(t, err)
	assert.IsType(t, &MemoryAdapter{}, store)
	assert.NoError(t, closeFn())
}

func TestOpen_SQLiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.db")

	store, closeFn, err := Open(context.Background(), Options{Backend: BackendSQLite, SQLitePath: path})
	require.NoError(t, err)
	defer closeFn()

	runStoreContract(t, store, 7)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, _, err := Open(context.Background(), Options{Backend: "cassandra"})

	assert.ErrorContains(t, err, "cassandra")
}
