package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"stop-sequencing-service/internal/domain"
	"stop-sequencing-service/internal/platform/obs"
	"stop-sequencing-service/internal/ports"
)

// RedisCandidateCache is a read-through cache in front of a CandidateSource.
// Each customer's pool is stored as one JSON value under a key that embeds
// the pool limit, so differently sized requests do not share entries.
// Customers with no candidates are cached as empty pools.
//
// Redis failures degrade to the underlying source; they are logged, not
// returned.
type RedisCandidateCache struct {
	client *redis.Client
	next   ports.CandidateSource
	ttl    time.Duration
	prefix string
}

func NewRedisCandidateCache(client *redis.Client, next ports.CandidateSource, ttl time.Duration) (*RedisCandidateCache, error) {
	if client == nil || next == nil {
		return nil, errors.New("redis candidate cache: client and source are required")
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisCandidateCache{client: client, next: next, ttl: ttl, prefix: "candidates"}, nil
}

type cachedCandidate struct {
	ID         int64   `json:"id"`
	Street     string  `json:"street"`
	Locality   string  `json:"locality"`
	Region     string  `json:"region"`
	PostalCode string  `json:"postal_code"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
}

func (c *RedisCandidateCache) key(customerID int64, limit int) string {
	return c.prefix + ":" + strconv.FormatInt(customerID, 10) + ":" + strconv.Itoa(limit)
}

// Return candidate pools from Redis, loading misses from the wrapped source.
func (c *RedisCandidateCache) CandidatesByCustomer(
	ctx context.Context,
	customerIDs []int64,
	limit int,
) (_ map[int64][]domain.CandidateAddress, err error) {
	defer obs.Time(ctx, "candidates.redis.ByCustomer")(&err)

	out := make(map[int64][]domain.CandidateAddress, len(customerIDs))
	if len(customerIDs) == 0 {
		return out, nil
	}

	ids := make([]int64, 0, len(customerIDs))
	seen := make(map[int64]struct{}, len(customerIDs))
	for _, id := range customerIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.key(id, limit)
	}

	misses := ids
	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		log.Printf("candidate cache read failed: %v", err)
	} else {
		misses = make([]int64, 0, len(ids))
		for i, v := range vals {
			pool, ok := decodePool(ids[i], v)
			if !ok {
				misses = append(misses, ids[i])
				continue
			}
			if len(pool) > 0 {
				out[ids[i]] = pool
			}
		}
	}

	if len(misses) == 0 {
		return out, nil
	}

	loaded, err := c.next.CandidatesByCustomer(ctx, misses, limit)
	if err != nil {
		return nil, fmt.Errorf("candidate cache: load misses: %w", err)
	}

	pipe := c.client.Pipeline()
	for _, id := range misses {
		pool := loaded[id]
		if len(pool) > 0 {
			out[id] = pool
		}

		payload, err := encodePool(pool)
		if err != nil {
			log.Printf("candidate cache encode customer_id=%d failed: %v", id, err)
			continue
		}
		pipe.Set(ctx, c.key(id, limit), payload, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("candidate cache write failed: %v", err)
	}

	return out, nil
}

// Invalidate drops every cached pool of the customer, whatever the limit.
func (c *RedisCandidateCache) Invalidate(ctx context.Context, customerID int64) error {
	pattern := c.prefix + ":" + strconv.FormatInt(customerID, 10) + ":*"

	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	keys := make([]string, 0, 4)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("candidate cache: scan %q: %w", pattern, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("candidate cache: delete customer_id=%d: %w", customerID, err)
	}
	return nil
}

func encodePool(pool []domain.CandidateAddress) (string, error) {
	rows := make([]cachedCandidate, 0, len(pool))
	for _, a := range pool {
		rows = append(rows, cachedCandidate{
			ID:         a.ID,
			Street:     a.Street,
			Locality:   a.Locality,
			Region:     a.Region,
			PostalCode: a.PostalCode,
			Lat:        a.Position.Lat,
			Lng:        a.Position.Lng,
		})
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodePool(customerID int64, v any) ([]domain.CandidateAddress, bool) {
	s, ok := v.(string)
	if !ok {
		return nil, false
	}

	var rows []cachedCandidate
	if err := json.Unmarshal([]byte(s), &rows); err != nil {
		log.Printf("candidate cache decode customer_id=%d failed: %v", customerID, err)
		return nil, false
	}

	pool := make([]domain.CandidateAddress, 0, len(rows))
	for _, r := range rows {
		pool = append(pool, domain.CandidateAddress{
			ID:         r.ID,
			CustomerID: customerID,
			Street:     r.Street,
			Locality:   r.Locality,
			Region:     r.Region,
			PostalCode: r.PostalCode,
			Position:   domain.GeoPoint{Lat: r.Lat, Lng: r.Lng},
		})
	}
	return pool, true
}
