package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/gearindex/marketpulse/internal/model"
)

const entryKeyPrefix = "catalog:entry:"

// maxTxRetries bounds optimistic-transaction retries when another
// writer touches the same entry mid-update.
const maxTxRetries = 5

// RedisStore persists catalog entries as JSON values in Redis. Writes
// go through WATCH/MULTI so the snapshot set and history push land
// atomically relative to concurrent readers and writers.
type RedisStore struct {
	client     *redis.Client
	historyCap int
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisStore{
		client:     client,
		historyCap: DefaultHistoryCap,
	}, nil
}

// SetHistoryCap overrides the default per-entry history bound.
func (s *RedisStore) SetHistoryCap(n int) {
	s.historyCap = n
}

func (s *RedisStore) FindByID(ctx context.Context, id string) (*model.CatalogEntry, error) {
	data, err := s.client.Get(ctx, entryKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry model.CatalogEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("unmarshal entry %s: %w", id, err)
	}
	return &entry, nil
}

// Insert stores a new entry. Used by seeding; the pricing engine only
// updates existing entries.
func (s *RedisStore) Insert(ctx context.Context, entry *model.CatalogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	if err := s.client.Set(ctx, entryKeyPrefix+entry.ID, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) AtomicUpdate(ctx context.Context, id string, update Update) error {
	if update.IsZero() {
		return nil
	}

	key := entryKeyPrefix + id

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("redis get: %w", err)
		}

		var entry model.CatalogEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			return fmt.Errorf("unmarshal entry %s: %w", id, err)
		}

		applyUpdate(&entry, update, s.historyCap)

		out, err := json.Marshal(&entry)
		if err != nil {
			return fmt.Errorf("marshal entry: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txn, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue // lost the race, re-read and retry
		}
		return err
	}

	return fmt.Errorf("update entry %s: too many conflicting writers", id)
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
