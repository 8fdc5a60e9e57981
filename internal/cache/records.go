package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/insurance/screening-service/internal/domain"
	"github.com/insurance/screening-service/internal/pkg/logger"
	"github.com/insurance/screening-service/internal/screening"
)

// RecordIndex caches exact-key record lookups in Redis in front of the
// backing record store. Every Redis call runs behind a circuit breaker; any
// cache failure, including an open circuit, falls through to the backing
// store so screening never degrades below database latency guarantees.
type RecordIndex struct {
	inner   screening.RecordStore
	rdb     *redis.Client
	breaker *gobreaker.CircuitBreaker
	ttl     time.Duration
	log     *logger.Logger
}

// NewRecordIndex wraps a record store with the Redis index.
func NewRecordIndex(inner screening.RecordStore, rdb *redis.Client, ttl time.Duration, log *logger.Logger) *RecordIndex {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "record_index",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &RecordIndex{
		inner:   inner,
		rdb:     rdb,
		breaker: breaker,
		ttl:     ttl,
		log:     log.Named("record_index"),
	}
}

func (c *RecordIndex) FindByNationalID(ctx context.Context, tenantID uuid.UUID, cat domain.SourceCategory, idNorm string) ([]domain.NormalizedRecord, error) {
	return c.cached(ctx, c.key(tenantID, cat, "nid", idNorm), func() ([]domain.NormalizedRecord, error) {
		return c.inner.FindByNationalID(ctx, tenantID, cat, idNorm)
	})
}

func (c *RecordIndex) FindByPassport(ctx context.Context, tenantID uuid.UUID, cat domain.SourceCategory, passportNorm string) ([]domain.NormalizedRecord, error) {
	return c.cached(ctx, c.key(tenantID, cat, "pp", passportNorm), func() ([]domain.NormalizedRecord, error) {
		return c.inner.FindByPassport(ctx, tenantID, cat, passportNorm)
	})
}

func (c *RecordIndex) FindByResidentCard(ctx context.Context, tenantID uuid.UUID, cat domain.SourceCategory, cardNorm string) ([]domain.NormalizedRecord, error) {
	return c.cached(ctx, c.key(tenantID, cat, "rc", cardNorm), func() ([]domain.NormalizedRecord, error) {
		return c.inner.FindByResidentCard(ctx, tenantID, cat, cardNorm)
	})
}

// ListByCategory is a bulk scan; it always goes straight to the store.
func (c *RecordIndex) ListByCategory(ctx context.Context, tenantID uuid.UUID, cat domain.SourceCategory, limit int) ([]domain.NormalizedRecord, error) {
	return c.inner.ListByCategory(ctx, tenantID, cat, limit)
}

func (c *RecordIndex) key(tenantID uuid.UUID, cat domain.SourceCategory, field, value string) string {
	return fmt.Sprintf("records:%s:%s:%s:%s", tenantID, cat, field, value)
}

func (c *RecordIndex) cached(ctx context.Context, key string, load func() ([]domain.NormalizedRecord, error)) ([]domain.NormalizedRecord, error) {
	if records, ok := c.get(ctx, key); ok {
		return records, nil
	}

	records, err := load()
	if err != nil {
		return nil, err
	}

	c.set(ctx, key, records)
	return records, nil
}

func (c *RecordIndex) get(ctx context.Context, key string) ([]domain.NormalizedRecord, bool) {
	raw, err := c.breaker.Execute(func() (interface{}, error) {
		payload, err := c.rdb.Get(ctx, key).Bytes()
		if err == redis.Nil {
			// A miss is a healthy response, not a breaker failure.
			return nil, nil
		}
		return payload, err
	})
	if err != nil {
		c.log.Debug("record index read failed", logger.ErrorField(err))
		return nil, false
	}
	if raw == nil {
		return nil, false
	}

	var records []domain.NormalizedRecord
	if err := json.Unmarshal(raw.([]byte), &records); err != nil {
		c.log.Warn("record index entry corrupt", logger.StringField("key", key))
		return nil, false
	}
	return records, true
}

func (c *RecordIndex) set(ctx context.Context, key string, records []domain.NormalizedRecord) {
	payload, err := json.Marshal(records)
	if err != nil {
		return
	}
	if _, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.rdb.Set(ctx, key, payload, c.ttl).Err()
	}); err != nil {
		c.log.Debug("record index write failed", logger.ErrorField(err))
	}
}

// Invalidate drops cached entries after a reimport. Best effort; stale
// entries also expire via TTL.
func (c *RecordIndex) Invalidate(ctx context.Context, tenantID uuid.UUID) {
	pattern := fmt.Sprintf("records:%s:*", tenantID)
	if _, err := c.breaker.Execute(func() (interface{}, error) {
		iter := c.rdb.Scan(ctx, 0, pattern, 0).Iterator()
		for iter.Next(ctx) {
			if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
				return nil, err
			}
		}
		return nil, iter.Err()
	}); err != nil {
		c.log.Warn("record index invalidation failed", logger.ErrorField(err))
	}
}
