package fr

// FlightRepository is the authoritative collection of flights.
//
// GetAll and Find return the live stored instances; callers must not assume
// they stay unchanged across a following mutation. Snapshot returns detached
// copies that are safe to read without holding any lock.
type FlightRepository interface {
	GetAll() []*Flight
	Snapshot() []*Flight
	Find(id string) (*Flight, bool)
	// FindCopy is Find returning a detached copy.
	FindCopy(id string) (*Flight, bool)
	Len() int

	// Add assigns a fresh ID when f.ID is empty and appends f. It does not persist.
	Add(f *Flight) error
	Remove(f *Flight) error
	RemoveByID(id string) error
	// Update merges the mutable fields of f onto the stored flight with the same ID.
	Update(f *Flight) error

	// Save rewrites the backing document with the full collection.
	Save() error
	// Delete removes the backing document and clears the collection.
	// Only dev-data tooling calls it.
	Delete() error

	// ExistsByNumberExcept reports whether a flight other than exceptID has
	// number, compared case-insensitively.
	ExistsByNumberExcept(number, exceptID string) bool
}

// ReservationRepository is the authoritative collection of reservations.
// Every stored reservation references an existing flight.
type ReservationRepository interface {
	GetAll() []*Reservation
	Snapshot() []*Reservation
	Find(id string) (*Reservation, bool)
	FindCopy(id string) (*Reservation, bool)
	Len() int

	// Add resolves r.FlightID, assigns a fresh ID when r.ID is empty and appends r.
	Add(r *Reservation) error
	Remove(r *Reservation) error
	RemoveByID(id string) error
	// Update merges r onto the stored reservation and re-resolves its flight.
	Update(r *Reservation) error

	Save() error
	Delete() error

	// FlightOf resolves the flight r references through the flight store.
	FlightOf(r *Reservation) (*Flight, bool)

	// ExistsByPassengerAndFlightExcept reports whether a reservation other than
	// exceptID books passengerName (case-insensitive) on flightID.
	ExistsByPassengerAndFlightExcept(passengerName, flightID, exceptID string) bool
}
