package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestGeocodeParsesFirstFeature(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/geocode/search" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "key" {
			t.Errorf("Authorization = %q, want key", got)
		}
		q := r.URL.Query()
		if q.Get("text") != "Av. Juárez 12, Centro" || q.Get("boundary.country") != "MX" || q.Get("size") != "1" {
			t.Errorf("unexpected query %v", q)
		}
		w.Write([]byte(`{"features":[{"geometry":{"coordinates":[-99.14,19.43]}},{"geometry":{"coordinates":[0,0]}}]}`))
	}))
	defer srv.Close()

	g, err := NewORSGeocoder("key", "mx", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewORSGeocoder: %v", err)
	}

	p, err := g.Geocode(context.Background(), "  Av. Juárez 12, Centro ")
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if p.Lat != 19.43 || p.Lng != -99.14 {
		t.Fatalf("point = %+v, want lat 19.43 lng -99.14", p)
	}
}

func TestGeocodeNoResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"features":[]}`))
	}))
	defer srv.Close()

	g, _ := NewORSGeocoder("key", "", WithBaseURL(srv.URL))
	_, err := g.Geocode(context.Background(), "nowhere")
	if !errors.Is(err, ErrNoResult) {
		t.Fatalf("err = %v, want ErrNoResult", err)
	}
}

func TestGeocodeRetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"features":[{"geometry":{"coordinates":[2.35,48.85]}}]}`))
	}))
	defer srv.Close()

	g, _ := NewORSGeocoder("key", "FR", WithBaseURL(srv.URL), WithRetry(4, time.Millisecond))
	p, err := g.Geocode(context.Background(), "Paris")
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
	if p.Lat != 48.85 {
		t.Fatalf("lat = %v, want 48.85", p.Lat)
	}
}

func TestGeocodeDoesNotRetryClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad key", http.StatusForbidden)
	}))
	defer srv.Close()

	g, _ := NewORSGeocoder("key", "", WithBaseURL(srv.URL), WithRetry(4, time.Millisecond))
	_, err := g.Geocode(context.Background(), "Paris")

	var se *searchError
	if !errors.As(err, &se) || se.Status != http.StatusForbidden {
		t.Fatalf("err = %v, want status 403", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestNewORSGeocoderRequiresKey(t *testing.T) {
	if _, err := NewORSGeocoder(" ", "MX"); err == nil {
		t.Fatal("expected error for blank api key")
	}
}
