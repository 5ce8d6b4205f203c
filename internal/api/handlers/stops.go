package handlers

import (
	"log"
	"net/http"
	"time"

	"stop-sequencing-service/internal/api/dto"
	"stop-sequencing-service/internal/platform/obs"
	"stop-sequencing-service/internal/ports"
)

// StopHandler exposes read-only access to a driver's stops.
type StopHandler struct {
	Repo ports.StopRepository
	Now  func() time.Time
}

func (h *StopHandler) List(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
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

	stops, err := h.Repo.ListStops(r.Context(), driverID, day)
	if err != nil {
		log.Printf("list stops failed: req_id=%s driver_id=%d err=%v", obs.RequestID(r.Context()), driverID, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	res := dto.ListStopsResponse{
		DriverID: driverID,
		Date:     day.Format(dateLayout),
		Stops:    make([]dto.StopResponse, 0, len(stops)),
	}
	for _, s := range stops {
		sr := dto.StopResponse{
			ID:         s.ID,
			Label:      s.Label,
			CustomerID: s.CustomerID,
			Address:    s.Address,
			PostalCode: s.PostalCode,
		}
		if s.Position != nil {
			lat, lng := s.Position.Lat, s.Position.Lng
			sr.Lat, sr.Lng = &lat, &lng
		}
		res.Stops = append(res.Stops, sr)
	}

	writeJSON(w, r, http.StatusOK, res)
}

func now(f func() time.Time) time.Time {
	if f != nil {
		return f()
	}
	return time.Now()
}
