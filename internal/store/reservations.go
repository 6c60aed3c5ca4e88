package store

import (
	"encoding/json"
	"fmt"
	"strings"

	"flightres/internal/fr"
)

const (
	// ReservationsDocument is the document name reservations are persisted under.
	ReservationsDocument = "reservations"

	// OrphansDocument receives reservations dropped at load under OrphanQuarantine.
	OrphansDocument = "reservations.orphans"
)

// OrphanPolicy decides what loading does with a reservation whose flight
// does not exist.
type OrphanPolicy string

const (
	// OrphanFail aborts construction with fr.ErrOrphanedReservation.
	OrphanFail OrphanPolicy = "fail"

	// OrphanQuarantine moves orphans to OrphansDocument and continues.
	OrphanQuarantine OrphanPolicy = "quarantine"
)

// ParseOrphanPolicy maps a config value to an OrphanPolicy. Empty means OrphanFail.
func ParseOrphanPolicy(s string) (OrphanPolicy, error) {
	switch OrphanPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", OrphanFail:
		return OrphanFail, nil
	case OrphanQuarantine:
		return OrphanQuarantine, nil
	default:
		return "", fmt.Errorf("unknown orphan policy: %q", s)
	}
}

// ReservationStore is the Collection of reservations. Every stored
// reservation references a flight held by flights.
type ReservationStore struct {
	*Collection[*fr.Reservation]

	flights *FlightStore
	docs    fr.DocumentStore
	logger  fr.Logger
}

var _ fr.ReservationRepository = (*ReservationStore)(nil)

// NewReservationStore loads the reservations document and resolves each
// reservation's flight through flights. What happens to reservations whose
// flight is missing depends on policy.
func NewReservationStore(docs fr.DocumentStore, flights *FlightStore, policy OrphanPolicy, logger fr.Logger, idgen fr.IDGenerator) (*ReservationStore, error) {
	if flights == nil {
		return nil, fmt.Errorf("reservation store: flight store is required: %w", fr.ErrInvalidArgument)
	}

	c, err := newCollection[*fr.Reservation](ReservationsDocument, docs, logger, idgen)
	if err != nil {
		return nil, err
	}

	s := &ReservationStore{
		Collection: c,
		flights:    flights,
		docs:       docs,
		logger:     logger,
	}
	if err := s.attachFlights(policy); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ReservationStore) attachFlights(policy OrphanPolicy) error {
	var orphans []*fr.Reservation
	for _, r := range s.GetAll() {
		f, ok := s.flights.Find(r.FlightID)
		if !ok {
			orphans = append(orphans, r)
			continue
		}
		r.Flight = f
	}
	if len(orphans) == 0 {
		return nil
	}

	if policy != OrphanQuarantine {
		r := orphans[0]
		s.logger.Error("reservation references a missing flight", "reservation", r.ID, "flight", r.FlightID, "orphans", len(orphans))
		return fmt.Errorf("reservation %s references flight %q: %w", r.ID, r.FlightID, fr.ErrOrphanedReservation)
	}

	if err := s.quarantine(orphans); err != nil {
		return err
	}
	for _, r := range orphans {
		s.logger.Warn("reservation quarantined", "reservation", r.ID, "flight", r.FlightID)
		if err := s.Remove(r); err != nil {
			return err
		}
	}
	return s.Save()
}

// quarantine appends orphans to whatever OrphansDocument already holds.
func (s *ReservationStore) quarantine(orphans []*fr.Reservation) error {
	var existing []*fr.Reservation
	data, ok, err := s.docs.ReadDocument(OrphansDocument)
	if err != nil {
		return &fr.PersistenceError{Op: "load", Document: OrphansDocument, Err: err}
	}
	if ok {
		if err := json.Unmarshal(data, &existing); err != nil {
			s.logger.Warn("discarding unreadable orphans document", "location", s.docs.Location(OrphansDocument), "error", err)
			existing = nil
		}
	}

	out, err := json.MarshalIndent(append(existing, orphans...), "", "  ")
	if err != nil {
		return &fr.PersistenceError{Op: "save", Document: OrphansDocument, Err: err}
	}
	if err := s.docs.WriteDocument(OrphansDocument, out); err != nil {
		return &fr.PersistenceError{Op: "save", Document: OrphansDocument, Err: err}
	}
	return nil
}

// resolve looks up the flight r references. It runs before the reservation
// lock is taken, so a failed lookup never leaves a partial mutation.
func (s *ReservationStore) resolve(r *fr.Reservation) (*fr.Flight, error) {
	if r == nil {
		return nil, fmt.Errorf("%s: entity is required: %w", ReservationsDocument, fr.ErrInvalidArgument)
	}
	f, ok := s.flights.Find(r.FlightID)
	if !ok {
		return nil, fmt.Errorf("flight %q: %w", r.FlightID, fr.ErrNotFound)
	}
	return f, nil
}

// Add resolves r's flight, then appends r.
func (s *ReservationStore) Add(r *fr.Reservation) error {
	f, err := s.resolve(r)
	if err != nil {
		return err
	}
	return s.add(r, func(stored *fr.Reservation) { stored.Flight = f })
}

// Update merges r onto the stored reservation and re-resolves its flight from
// the merged FlightID. An unknown FlightID leaves the collection unchanged.
func (s *ReservationStore) Update(r *fr.Reservation) error {
	if r == nil || r.ID == "" {
		return fmt.Errorf("%s: id is required: %w", ReservationsDocument, fr.ErrInvalidArgument)
	}
	f, err := s.resolve(r)
	if err != nil {
		return err
	}
	return s.update(r, func(stored *fr.Reservation) { stored.Flight = f })
}

// FlightOf returns the current flight for r, looked up by FlightID rather than
// through the cached pointer.
func (s *ReservationStore) FlightOf(r *fr.Reservation) (*fr.Flight, bool) {
	if r == nil {
		return nil, false
	}
	return s.flights.Find(r.FlightID)
}

// ExistsByPassengerAndFlightExcept reports whether a reservation other than
// exceptID books passengerName on flightID. Names are compared ignoring case.
func (s *ReservationStore) ExistsByPassengerAndFlightExcept(passengerName, flightID, exceptID string) bool {
	return s.Any(func(r *fr.Reservation) bool {
		return r.ID != exceptID &&
			r.FlightID == flightID &&
			strings.EqualFold(r.PassengerName, passengerName)
	})
}
