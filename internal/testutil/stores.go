package testutil

import (
	"testing"
	"time"

	"flightres/internal/documents"
	"flightres/internal/fr"
	"flightres/internal/store"
)

// Stores bundles a flight and reservation store sharing one in-memory
// document backend.
type Stores struct {
	Docs         *documents.MemoryDocuments
	Flights      *store.FlightStore
	Reservations *store.ReservationStore
}

// NewMemoryStores creates empty stores on a fresh MemoryDocuments with
// sequential "f-N" and "r-N" ids.
func NewMemoryStores(t *testing.T) *Stores {
	t.Helper()
	return OpenStores(t, documents.NewMemoryDocuments())
}

// OpenStores loads stores from docs, failing the test on error. Generated ids
// continue after the highest "f-N" and "r-N" already stored.
func OpenStores(t *testing.T, docs *documents.MemoryDocuments) *Stores {
	t.Helper()

	flightIDs := NewPrefixedIDGenerator("f")
	flights, err := store.NewFlightStore(docs, fr.NewNopLogger(), flightIDs)
	if err != nil {
		t.Fatalf("NewFlightStore() error = %v", err)
	}
	reservationIDs := NewPrefixedIDGenerator("r")
	reservations, err := store.NewReservationStore(docs, flights, store.OrphanFail, fr.NewNopLogger(), reservationIDs)
	if err != nil {
		t.Fatalf("NewReservationStore() error = %v", err)
	}

	for _, f := range flights.GetAll() {
		flightIDs.SkipPast(f.ID)
	}
	for _, r := range reservations.GetAll() {
		reservationIDs.SkipPast(r.ID)
	}
	return &Stores{Docs: docs, Flights: flights, Reservations: reservations}
}

// Departure is the base departure time used by NewFlight.
var Departure = time.Date(2025, 4, 1, 9, 30, 0, 0, time.FixedZone("CEST", 2*60*60))

// NewFlight returns an unsaved flight departing offset after Departure and
// arriving two hours later.
func NewFlight(number string, offset time.Duration) *fr.Flight {
	dep := Departure.Add(offset)
	return &fr.Flight{
		Number:        number,
		DepartureTime: dep,
		ArrivalTime:   dep.Add(2 * time.Hour),
	}
}

// NewReservation returns an unsaved Economy reservation.
func NewReservation(passenger, flightID string) *fr.Reservation {
	return &fr.Reservation{
		PassengerName: passenger,
		FlightID:      flightID,
		Class:         fr.TicketClassEconomy,
	}
}

// MustAddFlight adds and saves f.
func (s *Stores) MustAddFlight(t *testing.T, f *fr.Flight) *fr.Flight {
	t.Helper()
	if err := s.Flights.Add(f); err != nil {
		t.Fatalf("Flights.Add() error = %v", err)
	}
	if err := s.Flights.Save(); err != nil {
		t.Fatalf("Flights.Save() error = %v", err)
	}
	return f
}

// MustAddReservation adds and saves r.
func (s *Stores) MustAddReservation(t *testing.T, r *fr.Reservation) *fr.Reservation {
	t.Helper()
	if err := s.Reservations.Add(r); err != nil {
		t.Fatalf("Reservations.Add() error = %v", err)
	}
	if err := s.Reservations.Save(); err != nil {
		t.Fatalf("Reservations.Save() error = %v", err)
	}
	return r
}
