package services

import (
	"context"
	"reflect"
	"testing"
	"time"

	"stop-sequencing-service/internal/adapters/memory"
	"stop-sequencing-service/internal/domain"
)

func TestBackfillCandidateCoordinates(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	updated := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	store.AddUngeocoded(domain.CandidateAddress{ID: 1, CustomerID: 1, Street: "Av Juárez 100", Locality: "CDMX"}, updated)
	store.AddUngeocoded(domain.CandidateAddress{ID: 2, CustomerID: 1, Street: "Reforma 222", Locality: "CDMX"}, updated)
	store.AddUngeocoded(domain.CandidateAddress{ID: 3, CustomerID: 2, Street: "Reforma 222", Locality: "CDMX"}, updated)
	store.AddUngeocoded(domain.CandidateAddress{ID: 4, CustomerID: 2, Street: "Unknown"}, updated)

	cached := domain.GeoPoint{Lat: 19.43, Lng: -99.14}
	if err := store.PutMany(ctx, map[string]domain.GeoPoint{"av juarez 100 cdmx": cached}); err != nil {
		t.Fatalf("PutMany: %v", err)
	}

	reforma := domain.GeoPoint{Lat: 19.42, Lng: -99.16}
	geocoder := &memory.Geocoder{Results: map[string]domain.GeoPoint{"Reforma 222, CDMX": reforma}}

	res, err := BackfillCandidateCoordinates(ctx, store, store, geocoder, 100)
	if err != nil {
		t.Fatalf("BackfillCandidateCoordinates: %v", err)
	}

	if res.Scanned != 4 || res.FromCache != 2 || res.Geocoded != 1 || res.Failed != 1 {
		t.Fatalf("result = %+v, want scanned 4, from cache 2, geocoded 1, failed 1", res)
	}
	if !reflect.DeepEqual(res.Customers, []int64{1, 2}) {
		t.Fatalf("customers = %v, want [1 2]", res.Customers)
	}
	if len(geocoder.Calls) != 2 {
		t.Fatalf("geocoder calls = %v, want 2", geocoder.Calls)
	}

	got, _ := store.GetMany(ctx, []string{"reforma 222 cdmx"})
	if got["reforma 222 cdmx"] != reforma {
		t.Fatalf("fresh result not cached: %v", got)
	}

	pools, _ := store.CandidatesByCustomer(ctx, []int64{1, 2}, 10)
	if len(pools[1]) != 2 || len(pools[2]) != 1 {
		t.Fatalf("pools = %v, want 2 and 1 geocoded addresses", pools)
	}

	left, _ := store.ListUngeocoded(ctx, 10)
	if len(left) != 1 || left[0].ID != 4 {
		t.Fatalf("still ungeocoded = %v, want only address 4", left)
	}
}

func TestBackfillWithoutCache(t *testing.T) {
	store := memory.NewStore()
	store.AddUngeocoded(domain.CandidateAddress{ID: 1, CustomerID: 1, Street: "Calle 5"}, time.Now())
	geocoder := &memory.Geocoder{Results: map[string]domain.GeoPoint{"Calle 5": {Lat: 1, Lng: 2}}}

	res, err := BackfillCandidateCoordinates(context.Background(), store, nil, geocoder, 0)
	if err != nil {
		t.Fatalf("BackfillCandidateCoordinates: %v", err)
	}
	if res.Geocoded != 1 {
		t.Fatalf("result = %+v, want one geocoded", res)
	}
}
