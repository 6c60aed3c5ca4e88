package store

import (
	"strings"

	"flightres/internal/fr"
)

// FlightsDocument is the document name flights are persisted under.
const FlightsDocument = "flights"

// FlightStore is the Collection of flights.
type FlightStore struct {
	*Collection[*fr.Flight]
}

var _ fr.FlightRepository = (*FlightStore)(nil)

// NewFlightStore loads the flights document from docs.
func NewFlightStore(docs fr.DocumentStore, logger fr.Logger, idgen fr.IDGenerator) (*FlightStore, error) {
	c, err := newCollection[*fr.Flight](FlightsDocument, docs, logger, idgen)
	if err != nil {
		return nil, err
	}
	return &FlightStore{Collection: c}, nil
}

// ExistsByNumberExcept reports whether a flight other than exceptID already
// uses number. The comparison ignores case.
func (s *FlightStore) ExistsByNumberExcept(number, exceptID string) bool {
	return s.Any(func(f *fr.Flight) bool {
		return f.ID != exceptID && strings.EqualFold(f.Number, number)
	})
}
