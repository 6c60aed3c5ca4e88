// Package service coordinates validation, store mutation and persistence for
// the request handlers and the CLI.
package service

import (
	"fmt"
	"sync"

	"flightres/internal/devdata"
	"flightres/internal/fr"
	"flightres/internal/validation"
)

// Service is the orchestration layer over the flight and reservation stores.
//
// Every write runs validate, mutate and save while holding mu, so two
// requests cannot both pass a uniqueness check and then both insert.
// Reads work on detached snapshots and do not take mu.
type Service struct {
	flights      fr.FlightRepository
	reservations fr.ReservationRepository
	validator    *validation.Validator
	logger       fr.Logger
	clock        fr.Clock
	idgen        fr.IDGenerator

	mu sync.Mutex
}

// NewService creates a new Service with the provided dependencies.
func NewService(flights fr.FlightRepository, reservations fr.ReservationRepository, logger fr.Logger, clock fr.Clock, idgen fr.IDGenerator) *Service {
	return &Service{
		flights:      flights,
		reservations: reservations,
		validator:    validation.New(flights, reservations),
		logger:       logger,
		clock:        clock,
		idgen:        idgen,
	}
}

// FlightView is a flight with, when requested, its reservations.
type FlightView struct {
	Flight       *fr.Flight
	Reservations []*fr.Reservation // nil unless joined
}

// ListFlights returns flights in insertion order. With withReservations
// each view carries the flight's reservations. A nil page returns everything.
func (s *Service) ListFlights(withReservations bool, page *PageRequest) (Page[FlightView], error) {
	var byFlight map[string][]*fr.Reservation
	if withReservations {
		byFlight = make(map[string][]*fr.Reservation)
		for _, r := range s.reservations.Snapshot() {
			byFlight[r.FlightID] = append(byFlight[r.FlightID], r)
		}
	}

	flights := s.flights.Snapshot()
	views := make([]FlightView, len(flights))
	for i, f := range flights {
		views[i] = FlightView{Flight: f}
		if withReservations {
			views[i].Reservations = byFlight[f.ID]
			if views[i].Reservations == nil {
				views[i].Reservations = []*fr.Reservation{}
			}
		}
	}

	if page == nil {
		return Page[FlightView]{Items: views, TotalCount: len(views)}, nil
	}
	return paginate(views, *page)
}

// GetFlight returns a copy of the flight with id.
func (s *Service) GetFlight(id string) (*fr.Flight, error) {
	f, ok := s.flights.FindCopy(id)
	if !ok {
		return nil, fmt.Errorf("flight %q: %w", id, fr.ErrNotFound)
	}
	return f, nil
}

// CreateFlight validates f, stores it under a fresh ID and saves.
// Any ID on f is ignored.
func (s *Service) CreateFlight(f *fr.Flight) (*fr.Flight, error) {
	if f == nil {
		return nil, fmt.Errorf("flight is required: %w", fr.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f = f.Clone()
	f.ID = ""
	if err := s.validator.ValidateFlight(f); err != nil {
		return nil, err
	}
	if err := s.flights.Add(f); err != nil {
		return nil, fmt.Errorf("adding flight: %w", err)
	}
	if err := s.flights.Save(); err != nil {
		return nil, err
	}

	s.logger.Info("flight created", "flight", f.ID, "number", f.Number)
	return f.Clone(), nil
}

// UpdateFlight validates f as the new state of flight id and saves.
func (s *Service) UpdateFlight(id string, f *fr.Flight) (*fr.Flight, error) {
	if f == nil {
		return nil, fmt.Errorf("flight is required: %w", fr.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.flights.Find(id)
	if !ok {
		return nil, fmt.Errorf("flight %q: %w", id, fr.ErrNotFound)
	}

	f = f.Clone()
	f.ID = id
	if err := s.validator.ValidateFlight(f); err != nil {
		return nil, err
	}
	if err := s.flights.Update(f); err != nil {
		return nil, fmt.Errorf("updating flight: %w", err)
	}
	if err := s.flights.Save(); err != nil {
		return nil, err
	}

	s.logger.Info("flight updated", "flight", id, "number", f.Number)
	return stored.Clone(), nil
}

// ListReservations returns one page of reservations in insertion order.
func (s *Service) ListReservations(page PageRequest) (Page[*fr.Reservation], error) {
	return paginate(s.reservations.Snapshot(), page)
}

// GetReservation returns a copy of the reservation with id.
func (s *Service) GetReservation(id string) (*fr.Reservation, error) {
	r, ok := s.reservations.FindCopy(id)
	if !ok {
		return nil, fmt.Errorf("reservation %q: %w", id, fr.ErrNotFound)
	}
	return r, nil
}

// CreateReservation validates r, stores it under a fresh ID and saves.
// An unknown flight is a validation failure on flightId.
func (s *Service) CreateReservation(r *fr.Reservation) (*fr.Reservation, error) {
	if r == nil {
		return nil, fmt.Errorf("reservation is required: %w", fr.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r = r.Clone()
	r.ID = ""
	r.Flight = nil
	if _, err := s.validator.ValidateReservation(r); err != nil {
		return nil, err
	}
	if err := s.reservations.Add(r); err != nil {
		return nil, fmt.Errorf("adding reservation: %w", err)
	}
	if err := s.reservations.Save(); err != nil {
		return nil, err
	}

	s.logger.Info("reservation created", "reservation", r.ID, "flight", r.FlightID)
	return r.Clone(), nil
}

// UpdateReservation validates r as the new state of reservation id and saves.
// A missing reservation is reported before any validation failure.
func (s *Service) UpdateReservation(id string, r *fr.Reservation) (*fr.Reservation, error) {
	if r == nil {
		return nil, fmt.Errorf("reservation is required: %w", fr.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.reservations.Find(id)
	if !ok {
		return nil, fmt.Errorf("reservation %q: %w", id, fr.ErrNotFound)
	}

	r = r.Clone()
	r.ID = id
	if _, err := s.validator.ValidateReservation(r); err != nil {
		return nil, err
	}
	if err := s.reservations.Update(r); err != nil {
		return nil, fmt.Errorf("updating reservation: %w", err)
	}
	if err := s.reservations.Save(); err != nil {
		return nil, err
	}

	s.logger.Info("reservation updated", "reservation", id, "flight", r.FlightID)
	return stored.Clone(), nil
}

// DeleteReservation removes reservation id and saves.
func (s *Service) DeleteReservation(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reservations.RemoveByID(id); err != nil {
		return err
	}
	if err := s.reservations.Save(); err != nil {
		return err
	}

	s.logger.Info("reservation deleted", "reservation", id)
	return nil
}

// DevDataResult reports what GenerateDevData added.
type DevDataResult struct {
	Flights      int `json:"flights"`
	Reservations int `json:"reservations"`
}

// GenerateDevData adds generated fixtures to the existing data and saves
// both stores. A zero seed picks a random one.
func (s *Service) GenerateDevData(flights, reservations int, seed uint64) (DevDataResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gen, err := devdata.NewGenerator(seed, s.clock, s.idgen)
	if err != nil {
		return DevDataResult{}, err
	}
	fx, err := gen.Generate(flights, reservations, func(number string) bool {
		return s.flights.ExistsByNumberExcept(number, "")
	})
	if err != nil {
		return DevDataResult{}, err
	}

	for _, f := range fx.Flights {
		if err := s.flights.Add(f); err != nil {
			return DevDataResult{}, fmt.Errorf("adding generated flight: %w", err)
		}
	}
	if err := s.flights.Save(); err != nil {
		return DevDataResult{}, err
	}

	for _, r := range fx.Reservations {
		if err := s.reservations.Add(r); err != nil {
			return DevDataResult{}, fmt.Errorf("adding generated reservation: %w", err)
		}
	}
	if err := s.reservations.Save(); err != nil {
		return DevDataResult{}, err
	}

	res := DevDataResult{Flights: len(fx.Flights), Reservations: len(fx.Reservations)}
	s.logger.Info("dev data generated", "flights", res.Flights, "reservations", res.Reservations)
	return res, nil
}

// ClearDevData deletes both documents and empties both stores.
// Reservations go first so a failure never leaves them pointing at nothing.
func (s *Service) ClearDevData() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reservations.Delete(); err != nil {
		return err
	}
	if err := s.flights.Delete(); err != nil {
		return err
	}

	s.logger.Warn("all flights and reservations deleted")
	return nil
}
