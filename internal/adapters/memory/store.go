package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"stop-sequencing-service/internal/domain"
)

// Store is an in-memory implementation of the planning ports. It is safe for
// concurrent use and is meant for tests and local experiments.
type Store struct {
	mu sync.RWMutex

	stops     map[stopKey][]domain.Stop
	addresses map[int64][]address
	positions map[int64]domain.DriverPosition
	geocodes  map[string]domain.GeoPoint

	// Err, when set, is returned by every read.
	Err error
}

type stopKey struct {
	driverID int64
	day      string
}

type address struct {
	candidate domain.CandidateAddress
	geocoded  bool
	updatedAt time.Time
}

func NewStore() *Store {
	return &Store{
		stops:     make(map[stopKey][]domain.Stop),
		addresses: make(map[int64][]address),
		positions: make(map[int64]domain.DriverPosition),
		geocodes:  make(map[string]domain.GeoPoint),
	}
}

// AddStops appends stops to the driver's list for the day of day.
func (s *Store) AddStops(driverID int64, day time.Time, stops ...domain.Stop) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := stopKey{driverID: driverID, day: day.Format(time.DateOnly)}
	s.stops[k] = append(s.stops[k], stops...)
}

// AddAddress registers a geocoded candidate address.
func (s *Store) AddAddress(c domain.CandidateAddress, updatedAt time.Time) {
	s.addAddress(c, true, updatedAt)
}

// AddUngeocoded registers an address without a coordinate.
func (s *Store) AddUngeocoded(c domain.CandidateAddress, updatedAt time.Time) {
	s.addAddress(c, false, updatedAt)
}

func (s *Store) addAddress(c domain.CandidateAddress, geocoded bool, updatedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addresses[c.CustomerID] = append(s.addresses[c.CustomerID], address{
		candidate: c,
		geocoded:  geocoded,
		updatedAt: updatedAt,
	})
}

func (s *Store) RecordPosition(_ context.Context, p domain.DriverPosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.positions[p.DriverID]; ok && cur.RecordedAt.After(p.RecordedAt) {
		return nil
	}
	s.positions[p.DriverID] = p
	return nil
}

func (s *Store) ListStops(_ context.Context, driverID int64, day time.Time) ([]domain.Stop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	stops := s.stops[stopKey{driverID: driverID, day: day.Format(time.DateOnly)}]
	return append([]domain.Stop(nil), stops...), nil
}

func (s *Store) CandidatesByCustomer(_ context.Context, customerIDs []int64, limit int) (map[int64][]domain.CandidateAddress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}

	out := make(map[int64][]domain.CandidateAddress, len(customerIDs))
	for _, id := range customerIDs {
		rows := make([]address, 0, len(s.addresses[id]))
		for _, a := range s.addresses[id] {
			if a.geocoded {
				rows = append(rows, a)
			}
		}
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].updatedAt.After(rows[j].updatedAt) })
		if limit > 0 && len(rows) > limit {
			rows = rows[:limit]
		}
		if len(rows) == 0 {
			continue
		}

		pool := make([]domain.CandidateAddress, len(rows))
		for i, a := range rows {
			pool[i] = a.candidate
		}
		out[id] = pool
	}
	return out, nil
}

func (s *Store) LastPosition(_ context.Context, driverID int64) (*domain.DriverPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	p, ok := s.positions[driverID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *Store) ListUngeocoded(_ context.Context, limit int) ([]domain.CandidateAddress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}

	out := make([]domain.CandidateAddress, 0)
	for _, rows := range s.addresses {
		for _, a := range rows {
			if !a.geocoded {
				out = append(out, a.candidate)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) SetPosition(_ context.Context, addressID int64, p domain.GeoPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for cid, rows := range s.addresses {
		for i := range rows {
			if rows[i].candidate.ID == addressID {
				rows[i].candidate.Position = p
				rows[i].geocoded = true
				s.addresses[cid] = rows
				return nil
			}
		}
	}
	return fmt.Errorf("set position: address_id=%d not found", addressID)
}

func (s *Store) GetMany(_ context.Context, keys []string) (map[string]domain.GeoPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := make(map[string]domain.GeoPoint, len(keys))
	for _, k := range keys {
		if p, ok := s.geocodes[k]; ok {
			out[k] = p
		}
	}
	return out, nil
}

func (s *Store) PutMany(_ context.Context, results map[string]domain.GeoPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, p := range results {
		s.geocodes[k] = p
	}
	return nil
}

// Geocoder is a canned ports.Geocoder keyed by exact address text.
type Geocoder struct {
	mu      sync.Mutex
	Results map[string]domain.GeoPoint
	Calls   []string
}

func (g *Geocoder) Geocode(_ context.Context, addr string) (domain.GeoPoint, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Calls = append(g.Calls, addr)
	p, ok := g.Results[addr]
	if !ok {
		return domain.GeoPoint{}, fmt.Errorf("geocode %q: no result", addr)
	}
	return p, nil
}
