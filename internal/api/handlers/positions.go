package handlers

import (
	"log"
	"net/http"
	"time"

	"stop-sequencing-service/internal/api/dto"
	"stop-sequencing-service/internal/domain"
	"stop-sequencing-service/internal/platform/obs"
	"stop-sequencing-service/internal/ports"
)

// PositionHandler accepts position reports used as route origins.
type PositionHandler struct {
	Recorder ports.PositionRecorder
	Now      func() time.Time
}

func (h *PositionHandler) Record(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	driverID, ok := driverIDFromPath(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "driver id must be a positive integer")
		return
	}

	var req dto.RecordPositionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p := domain.GeoPoint{Lat: req.Lat, Lng: req.Lng}
	if !p.Valid() {
		writeError(w, r, http.StatusBadRequest, "lat/lng out of range")
		return
	}

	at := now(h.Now).UTC().Truncate(time.Second)
	if req.RecordedAt != nil {
		at = req.RecordedAt.UTC().Truncate(time.Second)
	}

	pos := domain.DriverPosition{DriverID: driverID, Position: p, RecordedAt: at}
	if err := h.Recorder.RecordPosition(r.Context(), pos); err != nil {
		log.Printf("record position failed: req_id=%s driver_id=%d err=%v", obs.RequestID(r.Context()), driverID, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusCreated, dto.PositionResponse{
		DriverID:   driverID,
		Lat:        p.Lat,
		Lng:        p.Lng,
		RecordedAt: at,
	})
}
