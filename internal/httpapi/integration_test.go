package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flightres/internal/fr"
	"flightres/internal/service"
	"flightres/internal/testutil"
	"flightres/internal/validation"
)

func newIntegrationRouter(t *testing.T) (http.Handler, *testutil.Stores) {
	t.Helper()
	stores := testutil.NewMemoryStores(t)
	svc := service.NewService(stores.Flights, stores.Reservations, fr.NewNopLogger(), testutil.FixedClock(), testutil.NewStubIDGenerator())
	return setupTestRouter(svc, Options{DevEndpoints: true}), stores
}

func createFlight(t *testing.T, router http.Handler, number string) FlightDto {
	t.Helper()
	rec := serve(router, http.MethodPost, "/api/flights", map[string]string{
		"number":        number,
		"departureTime": "2025-04-01T09:30:00+02:00",
		"arrivalTime":   "2025-04-01T11:30:00+02:00",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var f FlightDto
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &f))
	return f
}

func TestIntegration_FlightsAndReservations(t *testing.T) {
	router, stores := newIntegrationRouter(t)

	lo100 := createFlight(t, router, "LO100")
	lo200 := createFlight(t, router, "LO200")

	// Duplicate number, any case.
	rec := serve(router, http.MethodPost, "/api/flights", map[string]string{
		"number":        "lo100",
		"departureTime": "2025-04-01T09:30:00+02:00",
		"arrivalTime":   "2025-04-01T11:30:00+02:00",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{validation.MsgNumberNotUnique}, decodeProblem(t, rec).Errors["number"])

	// Arrival before departure.
	rec = serve(router, http.MethodPut, "/api/flights/"+lo200.ID, map[string]string{
		"number":        "LO200",
		"departureTime": "2025-04-01T11:30:00+02:00",
		"arrivalTime":   "2025-04-01T09:30:00+02:00",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{validation.MsgDepartureOrder}, decodeProblem(t, rec).Errors["departureTime"])

	// Reservation on an unknown flight.
	rec = serve(router, http.MethodPost, "/api/reservations", ReservationDto{PassengerName: "Jan Kowalski", FlightID: "nope", Class: fr.TicketClassEconomy})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{validation.MsgFlightNotFound}, decodeProblem(t, rec).Errors["flightId"])
	assert.Equal(t, 0, stores.Reservations.Len())

	rec = serve(router, http.MethodPost, "/api/reservations", ReservationDto{PassengerName: "Jan Kowalski", FlightID: lo100.ID, Class: fr.TicketClassEconomy})
	require.Equal(t, http.StatusCreated, rec.Code)
	var jan ReservationDto
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &jan))
	assert.Equal(t, "/api/reservations/"+jan.ID, rec.Header().Get("Location"))

	rec = serve(router, http.MethodPost, "/api/reservations", ReservationDto{PassengerName: "JAN KOWALSKI", FlightID: lo100.ID, Class: fr.TicketClassBusiness})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{validation.MsgPassengerExists}, decodeProblem(t, rec).Errors["passengerName"])

	rec = serve(router, http.MethodPost, "/api/reservations", `{"passengerName":"Anna Nowak","flightId":"`+lo100.ID+`","class":"First"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{validation.MsgInvalidClass}, decodeProblem(t, rec).Errors["class"])

	// Move Jan to LO200, then list flights with reservations.
	rec = serve(router, http.MethodPut, "/api/reservations/"+jan.ID, ReservationDto{PassengerName: "Jan Kowalski", FlightID: lo200.ID, Class: fr.TicketClassEconomy})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(router, http.MethodGet, "/api/flights?withReservations=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var flights []FlightDto
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &flights))
	require.Len(t, flights, 2)
	assert.Empty(t, flights[0].Reservations)
	require.Len(t, flights[1].Reservations, 1)
	assert.Equal(t, jan.ID, flights[1].Reservations[0].ID)

	stored, ok := stores.Reservations.Find(jan.ID)
	require.True(t, ok)
	assert.Equal(t, "LO200", stored.Flight.Number)

	rec = serve(router, http.MethodDelete, "/api/reservations/"+jan.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = serve(router, http.MethodGet, "/api/reservations/"+jan.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIntegration_ReservationPaging(t *testing.T) {
	router, _ := newIntegrationRouter(t)
	f := createFlight(t, router, "LO100")

	for i := 0; i < 7; i++ {
		rec := serve(router, http.MethodPost, "/api/reservations",
			ReservationDto{PassengerName: fmt.Sprintf("Passenger %d", i), FlightID: f.ID, Class: fr.TicketClassEconomy})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := serve(router, http.MethodGet, "/api/reservations?pageNumber=2&pageSize=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page PagedResult[ReservationDto]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 7, page.TotalCount)
	require.Len(t, page.Items, 3)
	assert.Equal(t, "Passenger 3", page.Items[0].PassengerName)

	rec = serve(router, http.MethodGet, "/api/reservations?pageNumber=0", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeProblem(t, rec).Errors, "pageNumber")
}

func TestIntegration_DevData(t *testing.T) {
	router, stores := newIntegrationRouter(t)

	rec := serve(router, http.MethodPost, "/api/devdata/generate?flights=20&reservations=200&seed=3", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 20, stores.Flights.Len())
	assert.Equal(t, 200, stores.Reservations.Len())

	rec = serve(router, http.MethodGet, "/api/flights?pageNumber=1&pageSize=5", nil)
	var page PagedResult[FlightDto]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 20, page.TotalCount)
	assert.Len(t, page.Items, 5)

	rec = serve(router, http.MethodPost, "/api/devdata/clear", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, stores.Flights.Len())
	assert.Equal(t, 0, stores.Reservations.Len())
}
