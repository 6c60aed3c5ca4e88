package fr

import "time"

// TicketClass is the closed set of cabin classes a reservation can book.
// Values are serialized by name.
type TicketClass string

const (
	TicketClassEconomy  TicketClass = "Economy"
	TicketClassBusiness TicketClass = "Business"
)

// TicketClasses returns every defined TicketClass in declaration order.
func TicketClasses() []TicketClass {
	return []TicketClass{TicketClassEconomy, TicketClassBusiness}
}

// Valid reports whether c is a defined TicketClass.
func (c TicketClass) Valid() bool {
	for _, tc := range TicketClasses() {
		if c == tc {
			return true
		}
	}
	return false
}

// Flight is a scheduled flight. ID is assigned by the store on Add and never
// changes afterwards.
type Flight struct {
	ID            string    `json:"id"`
	Number        string    `json:"number" validate:"notblank"`
	DepartureTime time.Time `json:"departureTime" validate:"required"`
	ArrivalTime   time.Time `json:"arrivalTime" validate:"required"`
}

func (f *Flight) EntityID() string      { return f.ID }
func (f *Flight) SetEntityID(id string) { f.ID = id }

// MergeFrom copies the mutable fields of src onto f.
func (f *Flight) MergeFrom(src *Flight) {
	f.Number = src.Number
	f.DepartureTime = src.DepartureTime
	f.ArrivalTime = src.ArrivalTime
}

// Clone returns a detached copy of f.
func (f *Flight) Clone() *Flight {
	c := *f
	return &c
}

// Reservation is a passenger booking on a flight. FlightID is the source of
// truth for the relationship; Flight is resolved from it by the reservation
// store on load, add and update and is never persisted.
type Reservation struct {
	ID            string      `json:"id"`
	PassengerName string      `json:"passengerName" validate:"notblank"`
	FlightID      string      `json:"flightId" validate:"required"`
	Class         TicketClass `json:"class" validate:"ticketclass"`

	Flight *Flight `json:"-" validate:"-"`
}

func (r *Reservation) EntityID() string      { return r.ID }
func (r *Reservation) SetEntityID(id string) { r.ID = id }

// MergeFrom copies the mutable fields of src onto r. The cached Flight is left
// alone; the store re-resolves it from FlightID.
func (r *Reservation) MergeFrom(src *Reservation) {
	r.PassengerName = src.PassengerName
	r.FlightID = src.FlightID
	r.Class = src.Class
}

// Clone returns a copy of r. The Flight pointer is shared, not copied.
func (r *Reservation) Clone() *Reservation {
	c := *r
	return &c
}
