package httpapi

import (
	"time"

	"flightres/internal/fr"
	"flightres/internal/service"
)

// FlightDto is the wire form of a flight. Reservations is only present when
// the listing was requested with withReservations=true.
type FlightDto struct {
	ID            string           `json:"id"`
	Number        string           `json:"number"`
	DepartureTime time.Time        `json:"departureTime"`
	ArrivalTime   time.Time        `json:"arrivalTime"`
	Reservations  []ReservationDto `json:"reservations,omitzero"`
}

// ReservationDto is the wire form of a reservation.
type ReservationDto struct {
	ID            string         `json:"id"`
	PassengerName string         `json:"passengerName"`
	FlightID      string         `json:"flightId"`
	Class         fr.TicketClass `json:"class"`
}

// PagedResult is one page of a listing.
type PagedResult[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"totalCount"`
}

func toFlightDto(f *fr.Flight) FlightDto {
	return FlightDto{
		ID:            f.ID,
		Number:        f.Number,
		DepartureTime: f.DepartureTime,
		ArrivalTime:   f.ArrivalTime,
	}
}

func toFlightViewDto(v service.FlightView) FlightDto {
	dto := toFlightDto(v.Flight)
	if v.Reservations != nil {
		dto.Reservations = make([]ReservationDto, len(v.Reservations))
		for i, r := range v.Reservations {
			dto.Reservations[i] = toReservationDto(r)
		}
	}
	return dto
}

func (d FlightDto) toFlight() *fr.Flight {
	return &fr.Flight{
		ID:            d.ID,
		Number:        d.Number,
		DepartureTime: d.DepartureTime,
		ArrivalTime:   d.ArrivalTime,
	}
}

func toReservationDto(r *fr.Reservation) ReservationDto {
	return ReservationDto{
		ID:            r.ID,
		PassengerName: r.PassengerName,
		FlightID:      r.FlightID,
		Class:         r.Class,
	}
}

// toReservation converts d to a model. A missing class books Economy.
func (d ReservationDto) toReservation() *fr.Reservation {
	class := d.Class
	if class == "" {
		class = fr.TicketClassEconomy
	}
	return &fr.Reservation{
		ID:            d.ID,
		PassengerName: d.PassengerName,
		FlightID:      d.FlightID,
		Class:         class,
	}
}

func toPagedResult[T, D any](page service.Page[T], convert func(T) D) PagedResult[D] {
	items := make([]D, len(page.Items))
	for i, item := range page.Items {
		items[i] = convert(item)
	}
	return PagedResult[D]{Items: items, TotalCount: page.TotalCount}
}
