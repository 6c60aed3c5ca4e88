package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"flightres/internal/fr"
	"flightres/internal/httpapi/mocks"
	"flightres/internal/service"
)

var departure = time.Date(2025, 4, 1, 9, 30, 0, 0, time.FixedZone("", 2*60*60))

func setupTestRouter(svc Service, opts Options) http.Handler {
	return NewRouter(NewHandler(svc, fr.NewNopLogger()), opts, fr.NewNopLogger())
}

func sampleFlight() *fr.Flight {
	return &fr.Flight{ID: "f-1", Number: "LO100", DepartureTime: departure, ArrivalTime: departure.Add(2 * time.Hour)}
}

func sampleReservation() *fr.Reservation {
	return &fr.Reservation{ID: "r-1", PassengerName: "Jan Kowalski", FlightID: "f-1", Class: fr.TicketClassBusiness}
}

func serve(h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) Problem {
	t.Helper()
	assert.Equal(t, problemContentType, rec.Header().Get("Content-Type"))
	var p Problem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

func TestHandler_GetFlights(t *testing.T) {
	svc := new(mocks.MockService)
	router := setupTestRouter(svc, Options{})

	svc.On("ListFlights", false, (*service.PageRequest)(nil)).Return(service.Page[service.FlightView]{
		Items:      []service.FlightView{{Flight: sampleFlight()}},
		TotalCount: 1,
	}, nil)

	rec := serve(router, http.MethodGet, "/api/flights", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var got []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "LO100", got[0]["number"])
	assert.Equal(t, "2025-04-01T09:30:00+02:00", got[0]["departureTime"])
	assert.NotContains(t, got[0], "reservations")
	svc.AssertExpectations(t)
}

func TestHandler_GetFlightsPagedWithReservations(t *testing.T) {
	svc := new(mocks.MockService)
	router := setupTestRouter(svc, Options{})

	svc.On("ListFlights", true, &service.PageRequest{Number: 2, Size: service.DefaultPageSize}).Return(service.Page[service.FlightView]{
		Items: []service.FlightView{
			{Flight: sampleFlight(), Reservations: []*fr.Reservation{sampleReservation()}},
			{Flight: &fr.Flight{ID: "f-2", Number: "LO200"}, Reservations: []*fr.Reservation{}},
		},
		TotalCount: 52,
	}, nil)

	rec := serve(router, http.MethodGet, "/api/flights?withReservations=true&pageNumber=2", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var got PagedResult[FlightDto]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 52, got.TotalCount)
	require.Len(t, got.Items, 2)
	assert.Equal(t, []ReservationDto{{ID: "r-1", PassengerName: "Jan Kowalski", FlightID: "f-1", Class: fr.TicketClassBusiness}}, got.Items[0].Reservations)
	assert.Contains(t, rec.Body.String(), `"reservations":[]`)
	svc.AssertExpectations(t)
}

func TestHandler_GetFlightsBadQuery(t *testing.T) {
	svc := new(mocks.MockService)
	router := setupTestRouter(svc, Options{})

	rec := serve(router, http.MethodGet, "/api/flights?pageNumber=abc&withReservations=maybe", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	p := decodeProblem(t, rec)
	assert.Equal(t, []string{"The value 'abc' is not valid."}, p.Errors["pageNumber"])
	assert.Contains(t, p.Errors, "withReservations")
	svc.AssertNotCalled(t, "ListFlights", mock.Anything, mock.Anything)
}

func TestHandler_GetFlightNotFound(t *testing.T) {
	svc := new(mocks.MockService)
	router := setupTestRouter(svc, Options{})

	svc.On("GetFlight", "missing").Return(nil, fr.ErrNotFound)

	rec := serve(router, http.MethodGet, "/api/flights/missing", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, decodeProblem(t, rec).Status)
}

func TestHandler_CreateFlight(t *testing.T) {
	svc := new(mocks.MockService)
	router := setupTestRouter(svc, Options{})

	svc.On("CreateFlight", mock.MatchedBy(func(f *fr.Flight) bool {
		return f.Number == "LO100" && f.DepartureTime.Equal(departure)
	})).Return(sampleFlight(), nil)

	rec := serve(router, http.MethodPost, "/api/flights",
		`{"number":"LO100","departureTime":"2025-04-01T09:30:00+02:00","arrivalTime":"2025-04-01T11:30:00+02:00"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/api/flights/f-1", rec.Header().Get("Location"))
	var got FlightDto
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "f-1", got.ID)
	svc.AssertExpectations(t)
}

func TestHandler_CreateFlightValidation(t *testing.T) {
	svc := new(mocks.MockService)
	router := setupTestRouter(svc, Options{})

	verr := fr.NewValidationError()
	verr.Add("number", "Flight number must be unique.")
	svc.On("CreateFlight", mock.Anything).Return(nil, verr)

	rec := serve(router, http.MethodPost, "/api/flights", FlightDto{Number: "LO100"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	p := decodeProblem(t, rec)
	assert.Equal(t, titleValidation, p.Title)
	assert.Equal(t, map[string][]string{"number": {"Flight number must be unique."}}, p.Errors)
}

func TestHandler_MalformedBody(t *testing.T) {
	svc := new(mocks.MockService)
	router := setupTestRouter(svc, Options{})

	tests := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{name: "create flight", method: http.MethodPost, target: "/api/flights", body: `{"number":`},
		{name: "update flight", method: http.MethodPut, target: "/api/flights/f-1", body: `{"departureTime":"tomorrow"}`},
		{name: "create reservation", method: http.MethodPost, target: "/api/reservations", body: `[1,2]`},
		{name: "update reservation", method: http.MethodPut, target: "/api/reservations/r-1", body: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, tt.method, tt.target, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decodeProblem(t, rec).Errors, "body")
		})
	}
	assert.Empty(t, svc.Calls)
}

func TestHandler_CreateReservationUnknownFlight(t *testing.T) {
	svc := new(mocks.MockService)
	router := setupTestRouter(svc, Options{})

	verr := fr.NewValidationError()
	verr.Add("flightId", "Flight not found.")
	svc.On("CreateReservation", mock.MatchedBy(func(r *fr.Reservation) bool {
		return r.FlightID == "nope" && r.Class == fr.TicketClassEconomy
	})).Return(nil, verr)

	rec := serve(router, http.MethodPost, "/api/reservations",
		`{"passengerName":"Jan Kowalski","flightId":"nope","class":"Economy"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"Flight not found."}, decodeProblem(t, rec).Errors["flightId"])
	svc.AssertExpectations(t)
}

func TestHandler_CreateReservationDefaultsClass(t *testing.T) {
	svc := new(mocks.MockService)
	router := setupTestRouter(svc, Options{})

	created := &fr.Reservation{ID: "r-2", PassengerName: "Anna Nowak", FlightID: "f-1", Class: fr.TicketClassEconomy}
	svc.On("CreateReservation", mock.MatchedBy(func(r *fr.Reservation) bool {
		return r.PassengerName == "Anna Nowak" && r.Class == fr.TicketClassEconomy
	})).Return(created, nil)

	rec := serve(router, http.MethodPost, "/api/reservations",
		`{"passengerName":"Anna Nowak","flightId":"f-1"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":"r-2","passengerName":"Anna Nowak","flightId":"f-1","class":"Economy"}`, rec.Body.String())
	svc.AssertExpectations(t)
}

func TestHandler_GetReservations(t *testing.T) {
	svc := new(mocks.MockService)
	router := setupTestRouter(svc, Options{})

	svc.On("ListReservations", service.PageRequest{Number: 1, Size: 50}).Return(service.Page[*fr.Reservation]{
		Items:      []*fr.Reservation{sampleReservation()},
		TotalCount: 1,
	}, nil)

	rec := serve(router, http.MethodGet, "/api/reservations", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"items":[{"id":"r-1","passengerName":"Jan Kowalski","flightId":"f-1","class":"Business"}],"totalCount":1}`,
		rec.Body.String())
}

func TestHandler_GetReservationsInvalidPage(t *testing.T) {
	svc := new(mocks.MockService)
	router := setupTestRouter(svc, Options{})

	verr := fr.NewValidationError()
	verr.Add("pageSize", "Page size must be greater than 0.")
	svc.On("ListReservations", service.PageRequest{Number: 1, Size: 0}).Return(service.Page[*fr.Reservation]{}, verr)

	rec := serve(router, http.MethodGet, "/api/reservations?pageSize=0", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeProblem(t, rec).Errors, "pageSize")
}

func TestHandler_UpdateReservation(t *testing.T) {
	svc := new(mocks.MockService)
	router := setupTestRouter(svc, Options{})

	updated := sampleReservation()
	updated.PassengerName = "Anna Nowak"
	svc.On("UpdateReservation", "r-1", mock.MatchedBy(func(r *fr.Reservation) bool {
		return r.PassengerName == "Anna Nowak"
	})).Return(updated, nil)
	svc.On("UpdateReservation", "missing", mock.Anything).Return(nil, fr.ErrNotFound)

	rec := serve(router, http.MethodPut, "/api/reservations/r-1",
		ReservationDto{PassengerName: "Anna Nowak", FlightID: "f-1", Class: fr.TicketClassBusiness})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"passengerName":"Anna Nowak"`)

	rec = serve(router, http.MethodPut, "/api/reservations/missing", ReservationDto{})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_DeleteReservation(t *testing.T) {
	svc := new(mocks.MockService)
	router := setupTestRouter(svc, Options{})

	svc.On("DeleteReservation", "r-1").Return(nil)
	svc.On("DeleteReservation", "missing").Return(fr.ErrNotFound)

	rec := serve(router, http.MethodDelete, "/api/reservations/r-1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = serve(router, http.MethodDelete, "/api/reservations/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_InternalErrorIsOpaque(t *testing.T) {
	svc := new(mocks.MockService)
	router := setupTestRouter(svc, Options{})

	svc.On("DeleteReservation", "r-1").Return(&fr.PersistenceError{
		Op: "save", Document: "reservations", Err: errors.New("open /var/lib/flightres/reservations.json: permission denied"),
	})

	rec := serve(router, http.MethodDelete, "/api/reservations/r-1", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	p := decodeProblem(t, rec)
	assert.Equal(t, 500, p.Status)
	assert.Equal(t, "An unexpected error occurred.", p.Title)
	assert.True(t, strings.HasPrefix(p.Detail, "Error ID: "), "detail = %q", p.Detail)
	assert.NotContains(t, rec.Body.String(), "permission denied")
}

func TestHandler_PanicIsRecovered(t *testing.T) {
	svc := new(mocks.MockService)
	router := setupTestRouter(svc, Options{})

	svc.On("GetReservation", "r-1").Run(func(mock.Arguments) { panic("boom") })

	rec := serve(router, http.MethodGet, "/api/reservations/r-1", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestHandler_DevDataEndpoints(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		svc := new(mocks.MockService)
		router := setupTestRouter(svc, Options{})

		rec := serve(router, http.MethodPost, "/api/devdata/generate", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Empty(t, svc.Calls)
	})

	t.Run("generate with defaults", func(t *testing.T) {
		svc := new(mocks.MockService)
		router := setupTestRouter(svc, Options{DevEndpoints: true})
		svc.On("GenerateDevData", 150, 10000, uint64(0)).Return(service.DevDataResult{Flights: 150, Reservations: 10000}, nil)

		rec := serve(router, http.MethodPost, "/api/devdata/generate", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"flights":150,"reservations":10000}`, rec.Body.String())
	})

	t.Run("generate with parameters", func(t *testing.T) {
		svc := new(mocks.MockService)
		router := setupTestRouter(svc, Options{DevEndpoints: true})
		svc.On("GenerateDevData", 5, 20, uint64(7)).Return(service.DevDataResult{Flights: 5, Reservations: 20}, nil)

		rec := serve(router, http.MethodPost, "/api/devdata/generate?flights=5&reservations=20&seed=7", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("too many flights", func(t *testing.T) {
		svc := new(mocks.MockService)
		router := setupTestRouter(svc, Options{DevEndpoints: true})
		svc.On("GenerateDevData", 5000, 10000, uint64(0)).Return(service.DevDataResult{}, fr.ErrInvalidArgument)

		rec := serve(router, http.MethodPost, "/api/devdata/generate?flights=5000", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("clear", func(t *testing.T) {
		svc := new(mocks.MockService)
		router := setupTestRouter(svc, Options{DevEndpoints: true})
		svc.On("ClearDevData").Return(nil)

		rec := serve(router, http.MethodPost, "/api/devdata/clear", nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		svc.AssertExpectations(t)
	})
}

func TestRouter_Health(t *testing.T) {
	router := setupTestRouter(new(mocks.MockService), Options{})

	rec := serve(router, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestRouter_RequestID(t *testing.T) {
	router := setupTestRouter(new(mocks.MockService), Options{})

	rec := serve(router, http.MethodGet, "/health", nil)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestRouter_CORSPreflight(t *testing.T) {
	router := setupTestRouter(new(mocks.MockService), Options{CORSOrigins: []string{"http://localhost:4200"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/flights", nil)
	req.Header.Set("Origin", "http://localhost:4200")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:4200", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/flights", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_RateLimit(t *testing.T) {
	router := setupTestRouter(new(mocks.MockService), Options{RateLimit: 1, RateBurst: 2})

	codes := make([]int, 3)
	for i := range codes {
		codes[i] = serve(router, http.MethodGet, "/health", nil).Code
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimiter_PerClient(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("10.0.0.1"))
	assert.False(t, rl.allow("10.0.0.1"))
	assert.True(t, rl.allow("10.0.0.2"), "other clients have their own bucket")

	now = now.Add(time.Second)
	assert.True(t, rl.allow("10.0.0.1"), "bucket refills")

	now = now.Add(visitorTTL + time.Minute)
	rl.allow("10.0.0.3")
	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.visitors, "10.0.0.1")
	assert.Contains(t, rl.visitors, "10.0.0.3")
}
