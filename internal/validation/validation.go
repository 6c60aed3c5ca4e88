// Package validation holds the rule sets a flight or reservation must pass
// before it is added to or merged into a store.
//
// Field-presence rules run first, via struct tags on the domain types.
// Cross-entity rules (uniqueness, ordering, flight existence) run only for
// fields that passed presence, so a missing value never also reports a
// uniqueness clash.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"flightres/internal/fr"
)

const (
	MsgNumberRequired    = "Flight number is required."
	MsgNumberNotUnique   = "Flight number must be unique."
	MsgDepartureRequired = "Departure time is required."
	MsgArrivalRequired   = "Arrival time is required."
	MsgDepartureOrder    = "Departure time must be earlier than arrival time."
	MsgPassengerRequired = "Passenger name is required."
	MsgInvalidClass      = "Invalid ticket class."
	MsgFlightIDRequired  = "Flight ID is required."
	MsgFlightNotFound    = "Flight not found."
	MsgPassengerExists   = "Passenger already exists on this flight."
)

// presenceMessages maps a failed tag on a JSON field name to its message.
var presenceMessages = map[string]string{
	"number":        MsgNumberRequired,
	"departureTime": MsgDepartureRequired,
	"arrivalTime":   MsgArrivalRequired,
	"passengerName": MsgPassengerRequired,
	"flightId":      MsgFlightIDRequired,
	"class":         MsgInvalidClass,
}

// FlightIndex is the read side of the flight store the rules need.
type FlightIndex interface {
	Find(id string) (*fr.Flight, bool)
	ExistsByNumberExcept(number, exceptID string) bool
}

// ReservationIndex is the read side of the reservation store the rules need.
type ReservationIndex interface {
	ExistsByPassengerAndFlightExcept(passengerName, flightID, exceptID string) bool
}

// Validator evaluates rules against the current store contents. It holds no
// state of its own.
type Validator struct {
	v            *validator.Validate
	flights      FlightIndex
	reservations ReservationIndex
}

// New returns a Validator reading from flights and reservations.
func New(flights FlightIndex, reservations ReservationIndex) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	_ = v.RegisterValidation("ticketclass", func(fl validator.FieldLevel) bool {
		return fr.TicketClass(fl.Field().String()).Valid()
	})

	return &Validator{v: v, flights: flights, reservations: reservations}
}

// ValidateFlight checks f for create (empty ID) or update (ID set).
// It returns a *fr.ValidationError listing every failed rule, or nil.
func (val *Validator) ValidateFlight(f *fr.Flight) error {
	if f == nil {
		return fmt.Errorf("flight is required: %w", fr.ErrInvalidArgument)
	}

	verr, err := val.presence(f)
	if err != nil {
		return err
	}

	if !verr.Has("number") && val.flights.ExistsByNumberExcept(f.Number, f.ID) {
		verr.Add("number", MsgNumberNotUnique)
	}
	if !verr.Has("departureTime") && !verr.Has("arrivalTime") && !f.DepartureTime.Before(f.ArrivalTime) {
		verr.Add("departureTime", MsgDepartureOrder)
	}

	return verr.OrNil()
}

// ValidateReservation checks r for create (empty ID) or update (ID set).
// On success it returns the flight r.FlightID names.
func (val *Validator) ValidateReservation(r *fr.Reservation) (*fr.Flight, error) {
	if r == nil {
		return nil, fmt.Errorf("reservation is required: %w", fr.ErrInvalidArgument)
	}

	verr, err := val.presence(r)
	if err != nil {
		return nil, err
	}

	var flight *fr.Flight
	if !verr.Has("flightId") {
		f, ok := val.flights.Find(r.FlightID)
		if ok {
			flight = f
		} else {
			verr.Add("flightId", MsgFlightNotFound)
		}
	}

	if flight != nil && !verr.Has("passengerName") &&
		val.reservations.ExistsByPassengerAndFlightExcept(r.PassengerName, r.FlightID, r.ID) {
		verr.Add("passengerName", MsgPassengerExists)
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return flight, nil
}

// presence runs the struct-tag rules on entity.
func (val *Validator) presence(entity any) (*fr.ValidationError, error) {
	verr := fr.NewValidationError()

	err := val.v.Struct(entity)
	if err == nil {
		return verr, nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil, fmt.Errorf("validating %T: %w", entity, err)
	}
	for _, fe := range fieldErrs {
		field := fe.Field()
		msg, ok := presenceMessages[field]
		if !ok {
			msg = fmt.Sprintf("%s failed %s.", field, fe.Tag())
		}
		if !verr.Has(field) {
			verr.Add(field, msg)
		}
	}
	return verr, nil
}
