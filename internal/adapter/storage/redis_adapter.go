package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/inventory/internal/core/domain"
	"github.com/rl1809/inventory/internal/port"
)

const (
	inventoryKeyPrefix = "inventory:product:"
	inventorySeqKey    = "inventory:seq"
)

// saveScript applies a compare-and-swap on the record hash.
// ARGV: id (0 for insert), quantity, expected version.
// Returns {id, version}, or {-1, 0} if the stored record does not match.
var saveScript = redis.NewScript(`
local key = KEYS[1]
local id = tonumber(ARGV[1])
local quantity = tonumber(ARGV[2])
local version = tonumber(ARGV[3])

if id == 0 then
	if redis.call('EXISTS', key) == 1 then
		return {-1, 0}
	end
	local newID = redis.call('INCR', KEYS[2])
	redis.call('HSET', key, 'id', newID, 'quantity', quantity, 'version', 1)
	return {newID, 1}
end

local current = redis.call('HMGET', key, 'id', 'version')
if not current[1] or tonumber(current[1]) ~= id or tonumber(current[2]) ~= version then
	return {-1, 0}
end

redis.call('HSET', key, 'quantity', quantity)
local newVersion = redis.call('HINCRBY', key, 'version', 1)
return {id, newVersion}
`)

type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func inventoryKey(productID int64) string {
	return inventoryKeyPrefix + strconv.FormatInt(productID, 10)
}

func (r *RedisAdapter) FindByProduct(ctx context.Context, productID int64) (*domain.InventoryRecord, error) {
	values, err := r.client.HGetAll(ctx, inventoryKey(productID)).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall inventory: %w", err)
	}
	if len(values) == 0 {
		return nil, nil
	}

	rec := domain.InventoryRecord{ProductID: productID}
	if rec.ID, err = strconv.ParseInt(values["id"], 10, 64); err != nil {
		return nil, fmt.Errorf("parse inventory id: %w", err)
	}
	if rec.Quantity, err = strconv.Atoi(values["quantity"]); err != nil {
		return nil, fmt.Errorf("parse inventory quantity: %w", err)
	}
	if rec.Version, err = strconv.ParseInt(values["version"], 10, 64); err != nil {
		return nil, fmt.Errorf("parse inventory version: %w", err)
	}

	return &rec, nil
}

func (r *RedisAdapter) Save(ctx context.Context, rec domain.InventoryRecord) (domain.InventoryRecord, error) {
	keys := []string{inventoryKey(rec.ProductID), inventorySeqKey}

	result, err := saveScript.Run(ctx, r.client, keys, rec.ID, rec.Quantity, rec.Version).Int64Slice()
	if err != nil {
		return domain.InventoryRecord{}, fmt.Errorf("save inventory: %w", err)
	}
	if len(result) != 2 {
		return domain.InventoryRecord{}, errors.New("save inventory: unexpected script reply")
	}
	if result[0] < 0 {
		return domain.InventoryRecord{}, port.ErrStaleRecord
	}

	rec.ID = result[0]
	rec.Version = result[1]
	return rec, nil
}
