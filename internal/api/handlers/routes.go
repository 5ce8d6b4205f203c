package handlers

import (
	"log"
	"math"
	"net/http"
	"time"

	"stop-sequencing-service/internal/api/dto"
	"stop-sequencing-service/internal/config"
	"stop-sequencing-service/internal/domain"
	"stop-sequencing-service/internal/platform/obs"
	"stop-sequencing-service/internal/services"
)

const (
	maxInlineStops     = 1000
	maxOptimizeDrivers = 50
)

// RouteHandler serves inline sequencing and driver-level planning.
type RouteHandler struct {
	Planner    *services.RoutePlanner
	Sequencing config.Sequencing
	Metrics    *obs.Metrics
	Now        func() time.Time
}

// Sequence matches and orders the stops carried in the request body. No
// storage is touched; the body holds the candidate pools too.
func (h *RouteHandler) Sequence(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.SequenceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if len(req.Stops) > maxInlineStops {
		writeError(w, r, http.StatusBadRequest, "too many stops")
		return
	}

	cfg := h.Sequencing
	if req.SpeedKmh != nil {
		if !(*req.SpeedKmh > 0) || math.IsInf(*req.SpeedKmh, 0) {
			writeError(w, r, http.StatusBadRequest, "speed_kmh must be positive")
			return
		}
		cfg.SpeedKmh = *req.SpeedKmh
	}
	if req.ServiceMinutesPerStop != nil {
		if *req.ServiceMinutesPerStop < 0 {
			writeError(w, r, http.StatusBadRequest, "service_minutes_per_stop must not be negative")
			return
		}
		cfg.ServiceMinutesPerStop = *req.ServiceMinutesPerStop
	}

	in := services.SequenceInput{
		Stops:                make([]domain.Stop, 0, len(req.Stops)),
		CandidatesByCustomer: make(map[int64][]domain.CandidateAddress, len(req.CandidateAddressesByCustomer)),
	}

	source := domain.OriginSourceNone
	if req.Origin != nil {
		origin := domain.GeoPoint{Lat: req.Origin.Lat, Lng: req.Origin.Lng}
		if !origin.Valid() {
			writeError(w, r, http.StatusBadRequest, "origin is out of range")
			return
		}
		in.Origin = &origin
		source = domain.OriginSourceRequest
	}

	for _, s := range req.Stops {
		stop := domain.Stop{
			ID:         s.ID,
			Label:      s.Label,
			CustomerID: s.CustomerID,
			Address:    s.DestinationAddress,
			PostalCode: s.DestinationPostalCode,
		}
		if s.Lat != nil && s.Lng != nil {
			stop.Position = &domain.GeoPoint{Lat: *s.Lat, Lng: *s.Lng}
		}
		in.Stops = append(in.Stops, stop)
	}

	for customerID, pool := range req.CandidateAddressesByCustomer {
		candidates := make([]domain.CandidateAddress, 0, len(pool))
		for _, c := range pool {
			if c.Lat == nil || c.Lng == nil {
				continue
			}
			candidates = append(candidates, domain.CandidateAddress{
				ID:         c.ID,
				CustomerID: customerID,
				Street:     c.Street,
				Locality:   c.Locality,
				Region:     c.Region,
				PostalCode: c.PostalCode,
				Position:   domain.GeoPoint{Lat: *c.Lat, Lng: *c.Lng},
			})
		}
		in.CandidatesByCustomer[customerID] = candidates
	}

	start := time.Now()
	plan := services.SequenceStops(in, cfg)
	plan.OriginSource = source
	h.Metrics.ObservePlan("inline", plan, time.Since(start))

	writeJSON(w, r, http.StatusOK, toRouteResponse(plan, false))
}

// PlanDriver sequences the stored stops of one driver for ?date=.
func (h *RouteHandler) PlanDriver(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	driverID, ok := driverIDFromPath(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "driver id must be a positive integer")
		return
	}
	day, ok := parseDay(r.URL.Query().Get("date"), now(h.Now))
	if !ok {
		writeError(w, r, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	start := time.Now()
	plan, err := h.Planner.PlanDriver(r.Context(), driverID, day)
	h.Metrics.ObservePlan("driver", plan, time.Since(start))
	if err != nil {
		log.Printf("plan driver failed: req_id=%s driver_id=%d err=%v", obs.RequestID(r.Context()), driverID, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusOK, toRouteResponse(plan, true))
}

// Optimize plans several drivers for the same day.
func (h *RouteHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.OptimizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if len(req.DriverIDs) == 0 {
		writeError(w, r, http.StatusBadRequest, "driver_ids is required")
		return
	}
	if len(req.DriverIDs) > maxOptimizeDrivers {
		writeError(w, r, http.StatusBadRequest, "driver_ids must hold at most 50 ids")
		return
	}
	seen := make(map[int64]struct{}, len(req.DriverIDs))
	for _, id := range req.DriverIDs {
		if id <= 0 {
			writeError(w, r, http.StatusBadRequest, "driver ids must be positive integers")
			return
		}
		if _, dup := seen[id]; dup {
			writeError(w, r, http.StatusBadRequest, "driver_ids must be unique")
			return
		}
		seen[id] = struct{}{}
	}

	day, ok := parseDay(req.Date, now(h.Now))
	if !ok {
		writeError(w, r, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	start := time.Now()
	plans, err := services.PlanDrivers(r.Context(), h.Planner, req.DriverIDs, day)
	if err != nil {
		h.Metrics.ObservePlan("batch", nil, time.Since(start))
		log.Printf("optimize routes failed: req_id=%s drivers=%d err=%v", obs.RequestID(r.Context()), len(req.DriverIDs), err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	res := dto.OptimizeResponse{
		Date:   day.Format(dateLayout),
		Routes: make([]dto.RouteResponse, 0, len(plans)),
	}
	took := time.Since(start)
	for _, p := range plans {
		h.Metrics.ObservePlan("batch", p, took)
		res.Routes = append(res.Routes, toRouteResponse(p, true))
	}

	writeJSON(w, r, http.StatusOK, res)
}

func toRouteResponse(p *domain.RoutePlan, withDriver bool) dto.RouteResponse {
	res := dto.RouteResponse{
		OriginSource:      string(p.OriginSource),
		OrderedStops:      make([]dto.OrderedStopResponse, 0, len(p.Stops)),
		LegMinutes:        p.LegMinutes,
		TotalMinutes:      p.TotalMinutes,
		TotalDistanceKm:   math.Round(p.DistanceKm*1000) / 1000,
		MatchedCount:      p.MatchedCount,
		UnmatchedByReason: make(map[string]int, len(p.UnmatchedByReason)),
		Note:              p.Note,
	}
	if withDriver {
		id := p.DriverID
		res.DriverID = &id
	}
	if res.LegMinutes == nil {
		res.LegMinutes = []int{}
	}
	if p.Origin != nil {
		res.Origin = &dto.Point{Lat: p.Origin.Lat, Lng: p.Origin.Lng}
	}

	for _, s := range p.Stops {
		out := dto.OrderedStopResponse{
			ID:      s.ID,
			Label:   s.Label,
			Address: s.Address,
		}
		if s.Position != nil {
			lat, lng, score := s.Position.Lat, s.Position.Lng, s.Score
			out.Lat, out.Lng, out.Score = &lat, &lng, &score
			out.MatchOrigin = string(s.MatchOrigin)
			out.PostalCodeEqual = s.PostalCodeEqual
		} else {
			out.UnmatchedReason = string(s.Reason)
		}
		res.OrderedStops = append(res.OrderedStops, out)
	}

	for reason, n := range p.UnmatchedByReason {
		res.UnmatchedByReason[string(reason)] = n
	}

	return res
}
