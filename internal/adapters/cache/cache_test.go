package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"stop-sequencing-service/internal/domain"
	"stop-sequencing-service/internal/platform/db"
)

func TestSQLGeocodeCacheRoundTrip(t *testing.T) {
	conn, err := db.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer conn.Close()
	if err := db.Migrate(conn, db.DriverSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	c := NewSQLGeocodeCache(conn, db.SQLite)
	ctx := context.Background()

	err = c.PutMany(ctx, map[string]domain.GeoPoint{
		"av juarez 100 cdmx": {Lat: 19.43, Lng: -99.14},
		"calle 5":            {Lat: 19.40, Lng: -99.10},
	})
	if err != nil {
		t.Fatalf("PutMany: %v", err)
	}

	// Overwrite keeps a single row per address.
	if err := c.PutMany(ctx, map[string]domain.GeoPoint{"calle 5": {Lat: 20, Lng: -100}}); err != nil {
		t.Fatalf("PutMany overwrite: %v", err)
	}

	got, err := c.GetMany(ctx, []string{"calle 5", "av juarez 100 cdmx", "calle 5", " ", "missing"})
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
	if p := got["calle 5"]; p.Lat != 20 || p.Lng != -100 {
		t.Fatalf("calle 5 = %+v, want overwritten point", p)
	}
	if p := got["av juarez 100 cdmx"]; p.Lat != 19.43 || p.Lng != -99.14 {
		t.Fatalf("av juarez = %+v", p)
	}
}

func TestSQLGeocodeCacheRejectsEmptyKey(t *testing.T) {
	conn, err := db.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer conn.Close()
	if err := db.Migrate(conn, db.DriverSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	c := NewSQLGeocodeCache(conn, db.SQLite)
	if err := c.PutMany(context.Background(), map[string]domain.GeoPoint{"": {}}); err == nil {
		t.Fatal("expected error for empty address key")
	}
}

type countingSource struct {
	mu    sync.Mutex
	calls [][]int64
	pools map[int64][]domain.CandidateAddress
}

func (s *countingSource) CandidatesByCustomer(_ context.Context, ids []int64, limit int) (map[int64][]domain.CandidateAddress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, append([]int64(nil), ids...))

	out := map[int64][]domain.CandidateAddress{}
	for _, id := range ids {
		pool := s.pools[id]
		if len(pool) > limit {
			pool = pool[:limit]
		}
		if len(pool) > 0 {
			out[id] = pool
		}
	}
	return out, nil
}

func newRedisCache(t *testing.T, src *countingSource) (*RedisCandidateCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	c, err := NewRedisCandidateCache(client, src, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisCandidateCache: %v", err)
	}
	return c, mr
}

func TestRedisCandidateCacheReadThrough(t *testing.T) {
	src := &countingSource{pools: map[int64][]domain.CandidateAddress{
		1: {
			{ID: 10, CustomerID: 1, Street: "Av Juarez 100", PostalCode: "01000", Position: domain.GeoPoint{Lat: 19.43, Lng: -99.14}},
			{ID: 11, CustomerID: 1, Street: "Reforma 222", Position: domain.GeoPoint{Lat: 19.42, Lng: -99.16}},
		},
	}}
	c, mr := newRedisCache(t, src)
	ctx := context.Background()

	first, err := c.CandidatesByCustomer(ctx, []int64{1, 2, 1}, 25)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if len(first[1]) != 2 {
		t.Fatalf("len(first[1]) = %d, want 2", len(first[1]))
	}
	if _, ok := first[2]; ok {
		t.Fatal("customer 2 has no candidates and must be absent")
	}
	if len(src.calls) != 1 || len(src.calls[0]) != 2 {
		t.Fatalf("source calls = %v, want one call with 2 ids", src.calls)
	}
	if !mr.Exists("candidates:1:25") || !mr.Exists("candidates:2:25") {
		t.Fatal("expected both pools to be cached, empty ones included")
	}
	if ttl := mr.TTL("candidates:1:25"); ttl != time.Minute {
		t.Fatalf("ttl = %s, want 1m", ttl)
	}

	second, err := c.CandidatesByCustomer(ctx, []int64{1, 2}, 25)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if len(src.calls) != 1 {
		t.Fatalf("source calls = %d, want cache hit", len(src.calls))
	}
	got := second[1][0]
	if got.ID != 10 || got.CustomerID != 1 || got.PostalCode != "01000" || got.Position.Lat != 19.43 {
		t.Fatalf("decoded candidate = %+v", got)
	}

	// A different limit is a different key.
	if _, err := c.CandidatesByCustomer(ctx, []int64{1}, 1); err != nil {
		t.Fatalf("limit 1: %v", err)
	}
	if len(src.calls) != 2 {
		t.Fatalf("source calls = %d, want 2", len(src.calls))
	}
}

func TestRedisCandidateCacheInvalidate(t *testing.T) {
	src := &countingSource{pools: map[int64][]domain.CandidateAddress{
		1: {{ID: 10, CustomerID: 1, Street: "x", Position: domain.GeoPoint{Lat: 1, Lng: 1}}},
	}}
	c, mr := newRedisCache(t, src)
	ctx := context.Background()

	for _, limit := range []int{1, 25} {
		if _, err := c.CandidatesByCustomer(ctx, []int64{1}, limit); err != nil {
			t.Fatalf("limit %d: %v", limit, err)
		}
	}
	if err := c.Invalidate(ctx, 1); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if mr.Exists("candidates:1:1") || mr.Exists("candidates:1:25") {
		t.Fatal("expected all pools of customer 1 to be dropped")
	}
}

func TestRedisCandidateCacheFallsBackWhenRedisDown(t *testing.T) {
	src := &countingSource{pools: map[int64][]domain.CandidateAddress{
		1: {{ID: 10, CustomerID: 1, Street: "x", Position: domain.GeoPoint{Lat: 1, Lng: 1}}},
	}}
	c, mr := newRedisCache(t, src)
	mr.Close()

	got, err := c.CandidatesByCustomer(context.Background(), []int64{1}, 25)
	if err != nil {
		t.Fatalf("CandidatesByCustomer: %v", err)
	}
	if len(got[1]) != 1 {
		t.Fatalf("len(got[1]) = %d, want 1", len(got[1]))
	}
}

func TestSQLGeocodeCacheLookupSpansChunks(t *testing.T) {
	conn, err := db.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer conn.Close()
	if err := db.Migrate(conn, db.DriverSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	c := NewSQLGeocodeCache(conn, db.SQLite)
	entries := make(map[string]domain.GeoPoint, lookupChunk+10)
	keys := make([]string, 0, lookupChunk+10)
	for i := 0; i < lookupChunk+10; i++ {
		k := fmt.Sprintf("calle %d", i)
		entries[k] = domain.GeoPoint{Lat: 19, Lng: -99}
		keys = append(keys, k)
	}
	if err := c.PutMany(context.Background(), entries); err != nil {
		t.Fatalf("PutMany: %v", err)
	}

	got, err := c.GetMany(context.Background(), keys)
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	if len(got) != len(keys) {
		t.Fatalf("len(got) = %d, want %d", len(got), len(keys))
	}
}
