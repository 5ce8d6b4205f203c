package obs

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"stop-sequencing-service/internal/domain"
)

func TestObservePlanCountsStops(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	total := 12
	plan := &domain.RoutePlan{
		TotalMinutes: &total,
		Stops: []domain.PlannedStop{
			{ID: 1, Position: &domain.GeoPoint{Lat: 1, Lng: 1}, MatchOrigin: domain.MatchOriginMatched},
			{ID: 2, Position: &domain.GeoPoint{Lat: 2, Lng: 2}, MatchOrigin: domain.MatchOriginPreset},
			{ID: 3, Reason: domain.ReasonNoAddress},
		},
	}
	m.ObservePlan("inline", plan, 5*time.Millisecond)
	m.ObservePlan("driver", nil, time.Millisecond)

	if got := testutil.ToFloat64(m.Plans.WithLabelValues("inline", "optimized")); got != 1 {
		t.Fatalf("optimized plans = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Plans.WithLabelValues("driver", "error")); got != 1 {
		t.Fatalf("error plans = %v, want 1", got)
	}
	for _, label := range []string{"matched", "preset", "unmatched"} {
		if got := testutil.ToFloat64(m.Stops.WithLabelValues(label)); got != 1 {
			t.Errorf("stops{%s} = %v, want 1", label, got)
		}
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "route_plans_total") {
		t.Fatalf("metrics output missing route_plans_total")
	}
}

func TestNewMetricsReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	second, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("second NewMetrics: %v", err)
	}
	if first.Plans != second.Plans {
		t.Fatalf("expected the already registered counter to be reused")
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObservePlan("inline", &domain.RoutePlan{}, time.Millisecond)
}
