package services

import (
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"stop-sequencing-service/internal/config"
	"stop-sequencing-service/internal/domain"
)

func pt(lat, lng float64) *domain.GeoPoint { return &domain.GeoPoint{Lat: lat, Lng: lng} }

func TestSequenceStopsNothingMatched(t *testing.T) {
	stops := make([]domain.Stop, 0, 5)
	for i := int64(1); i <= 5; i++ {
		stops = append(stops, domain.Stop{ID: i, CustomerID: i, Address: "Calle sin coordenadas"})
	}

	plan := SequenceStops(SequenceInput{Origin: pt(19.4, -99.1), Stops: stops}, config.DefaultSequencing())

	if plan.TotalMinutes != nil {
		t.Fatalf("total = %d, want nil", *plan.TotalMinutes)
	}
	if len(plan.Stops) != 5 {
		t.Fatalf("stops = %d, want 5", len(plan.Stops))
	}
	for i, s := range plan.Stops {
		if s.ID != int64(i+1) {
			t.Fatalf("stop %d id = %d, want original order", i, s.ID)
		}
		if s.Position != nil || s.Reason != domain.ReasonNoCandidates {
			t.Fatalf("stop %d = %+v, want unmatched", i, s)
		}
	}
	if !strings.Contains(plan.Note, "5 unmatched") {
		t.Fatalf("note = %q, want mention of 5 unmatched", plan.Note)
	}
	if plan.MatchedCount != 0 || plan.UnmatchedByReason[domain.ReasonNoCandidates] != 5 {
		t.Fatalf("counts = %d / %v", plan.MatchedCount, plan.UnmatchedByReason)
	}
}

func TestSequenceStopsMixed(t *testing.T) {
	stops := []domain.Stop{
		{ID: 1, CustomerID: 10, Address: ""},
		{ID: 2, CustomerID: 20, Address: "Av Juarez 100 CDMX 01000", PostalCode: "01000"},
		{ID: 3, CustomerID: 30, Address: "ignored", Position: pt(19.40, -99.10)},
		{ID: 4, CustomerID: 40, Address: "Calle Hidalgo 45 Colonia Centro Puebla"},
	}
	candidates := map[int64][]domain.CandidateAddress{
		20: {{ID: 200, CustomerID: 20, Street: "Av Juarez 100", Locality: "CDMX", PostalCode: "01000", Position: domain.GeoPoint{Lat: 19.43, Lng: -99.14}}},
		40: {{ID: 400, CustomerID: 40, Street: "Calle Morelos 12 Centro Puebla Pue Mexico", Position: domain.GeoPoint{Lat: 19.04, Lng: -98.2}}},
	}

	plan := SequenceStops(SequenceInput{
		Origin:               pt(19.39, -99.09),
		Stops:                stops,
		CandidatesByCustomer: candidates,
	}, config.DefaultSequencing())

	seen := map[int64]bool{}
	for _, s := range plan.Stops {
		seen[s.ID] = true
	}
	if len(plan.Stops) != 4 || len(seen) != 4 {
		t.Fatalf("plan does not hold every input stop exactly once: %+v", plan.Stops)
	}

	if plan.Stops[0].ID != 3 || plan.Stops[0].MatchOrigin != domain.MatchOriginPreset {
		t.Fatalf("first stop = %+v, want preset stop 3 nearest to origin", plan.Stops[0])
	}
	if plan.Stops[1].ID != 2 || plan.Stops[1].MatchOrigin != domain.MatchOriginMatched || plan.Stops[1].Score != 1 {
		t.Fatalf("second stop = %+v, want matched stop 2", plan.Stops[1])
	}
	if plan.Stops[2].ID != 1 || plan.Stops[2].Reason != domain.ReasonNoAddress {
		t.Fatalf("third stop = %+v, want unmatched stop 1", plan.Stops[2])
	}
	if plan.Stops[3].ID != 4 || plan.Stops[3].Reason != domain.ReasonNoReliableMatch {
		t.Fatalf("fourth stop = %+v, want unmatched stop 4", plan.Stops[3])
	}

	if len(plan.LegMinutes) != 2 || plan.TotalMinutes == nil {
		t.Fatalf("legs = %v total = %v", plan.LegMinutes, plan.TotalMinutes)
	}
	want := "2 of 4 stops optimized; 2 unmatched excluded (no reliable coordinates: 1, no address text: 1)"
	if plan.Note != want {
		t.Fatalf("note = %q, want %q", plan.Note, want)
	}
}

func TestSequenceStopsNotes(t *testing.T) {
	cfg := config.DefaultSequencing()

	empty := SequenceStops(SequenceInput{}, cfg)
	if empty.Note != "no stops to sequence" || empty.TotalMinutes != nil || len(empty.Stops) != 0 {
		t.Fatalf("empty plan = %+v", empty)
	}

	all := SequenceStops(SequenceInput{Stops: []domain.Stop{
		{ID: 1, Position: pt(19.4, -99.1)},
		{ID: 2, Position: pt(19.41, -99.1)},
	}}, cfg)
	if all.Note != "all 2 stops optimized" {
		t.Fatalf("note = %q", all.Note)
	}
	if all.Origin != nil || all.LegMinutes[0] != 0 {
		t.Fatalf("no-origin plan should anchor on the first stop: %+v", all)
	}
}

func TestSequenceStopsIgnoresInvalidPresetPosition(t *testing.T) {
	plan := SequenceStops(SequenceInput{Stops: []domain.Stop{
		{ID: 1, CustomerID: 1, Address: "Calle 5", Position: pt(200, 0)},
	}}, config.DefaultSequencing())

	if plan.Stops[0].Position != nil || plan.Stops[0].Reason != domain.ReasonNoCandidates {
		t.Fatalf("stop = %+v, want fallback to matching", plan.Stops[0])
	}
}

func TestSequenceStopsSingleStopWithOrigin(t *testing.T) {
	cfg := config.DefaultSequencing()
	plan := SequenceStops(SequenceInput{
		Origin: pt(19.40, -99.10),
		Stops:  []domain.Stop{{ID: 7, Position: pt(19.50, -99.10)}},
	}, cfg)

	if !reflect.DeepEqual(plan.LegMinutes, []int{0}) {
		t.Fatalf("legs = %v, want [0]", plan.LegMinutes)
	}
	if plan.TotalMinutes == nil || *plan.TotalMinutes != cfg.ServiceMinutesPerStop {
		t.Fatalf("total = %v, want %d", plan.TotalMinutes, cfg.ServiceMinutesPerStop)
	}
	if plan.Note != "all 1 stops optimized" {
		t.Fatalf("note = %q", plan.Note)
	}
}

func TestSequenceStopsPartitionsEveryStop(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	cfg := config.DefaultSequencing()
	streets := []string{"Reforma 10 Centro", "Insurgentes 300 Roma", "Av Juarez 100 CDMX", ""}

	for run := 0; run < 30; run++ {
		n := rng.Intn(15)
		stops := make([]domain.Stop, n)
		candidates := map[int64][]domain.CandidateAddress{}
		for i := range stops {
			s := domain.Stop{ID: int64(100 + i), CustomerID: int64(rng.Intn(4)), Address: streets[rng.Intn(len(streets))]}
			if rng.Intn(4) == 0 {
				s.Position = pt(19.3+rng.Float64()*0.2, -99.2+rng.Float64()*0.2)
			}
			stops[i] = s
		}
		for c := int64(1); c < 4; c++ {
			candidates[c] = []domain.CandidateAddress{{
				CustomerID: c,
				Street:     streets[rng.Intn(len(streets)-1)],
				Position:   domain.GeoPoint{Lat: 19.3 + rng.Float64()*0.2, Lng: -99.2 + rng.Float64()*0.2},
			}}
		}

		plan := SequenceStops(SequenceInput{
			Origin:               pt(19.4, -99.1),
			Stops:                stops,
			CandidatesByCustomer: candidates,
		}, cfg)

		if len(plan.Stops) != n {
			t.Fatalf("run %d: %d planned stops for %d inputs", run, len(plan.Stops), n)
		}
		seen := make(map[int64]int, n)
		for _, s := range plan.Stops {
			seen[s.ID]++
		}
		for _, s := range stops {
			if seen[s.ID] != 1 {
				t.Fatalf("run %d: stop %d appears %d times", run, s.ID, seen[s.ID])
			}
		}

		// Matched stops come first; unmatched ones keep input order after them.
		tail := plan.Stops[plan.MatchedCount:]
		last := int64(-1)
		for i, s := range plan.Stops {
			if (i < plan.MatchedCount) != (s.Position != nil) {
				t.Fatalf("run %d: stop %d at %d breaks the matched prefix", run, s.ID, i)
			}
		}
		for _, s := range tail {
			if s.ID <= last {
				t.Fatalf("run %d: unmatched stops out of input order: %+v", run, tail)
			}
			last = s.ID
		}
		if len(plan.LegMinutes) != plan.MatchedCount {
			t.Fatalf("run %d: %d legs for %d matched", run, len(plan.LegMinutes), plan.MatchedCount)
		}
	}
}
