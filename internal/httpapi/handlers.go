// Package httpapi exposes the flight and reservation service over HTTP.
package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"

	"flightres/internal/devdata"
	"flightres/internal/fr"
	"flightres/internal/service"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Service is what the handlers need from the service layer.
type Service interface {
	ListFlights(withReservations bool, page *service.PageRequest) (service.Page[service.FlightView], error)
	GetFlight(id string) (*fr.Flight, error)
	CreateFlight(f *fr.Flight) (*fr.Flight, error)
	UpdateFlight(id string, f *fr.Flight) (*fr.Flight, error)

	ListReservations(page service.PageRequest) (service.Page[*fr.Reservation], error)
	GetReservation(id string) (*fr.Reservation, error)
	CreateReservation(r *fr.Reservation) (*fr.Reservation, error)
	UpdateReservation(id string, r *fr.Reservation) (*fr.Reservation, error)
	DeleteReservation(id string) error

	GenerateDevData(flights, reservations int, seed uint64) (service.DevDataResult, error)
	ClearDevData() error
}

var _ Service = (*service.Service)(nil)

// Handler contains the HTTP handlers for the API.
type Handler struct {
	svc    Service
	logger fr.Logger
}

// NewHandler creates a new Handler.
func NewHandler(svc Service, logger fr.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// GetFlights handles GET /api/flights.
// The result is paged only when pageNumber or pageSize is given.
func (h *Handler) GetFlights(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	verr := fr.NewValidationError()

	withReservations := false
	if raw := q.Get("withReservations"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			verr.Add("withReservations", invalidValue(raw))
		}
		withReservations = v
	}

	var page *service.PageRequest
	if q.Has("pageNumber") || q.Has("pageSize") {
		p := parsePage(q, verr)
		page = &p
	}
	if err := verr.OrNil(); err != nil {
		h.respondError(w, r, err)
		return
	}

	result, err := h.svc.ListFlights(withReservations, page)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if page == nil {
		flights := make([]FlightDto, len(result.Items))
		for i, v := range result.Items {
			flights[i] = toFlightViewDto(v)
		}
		respondJSON(w, http.StatusOK, flights)
		return
	}
	respondJSON(w, http.StatusOK, toPagedResult(result, toFlightViewDto))
}

// GetFlight handles GET /api/flights/{id}.
func (h *Handler) GetFlight(w http.ResponseWriter, r *http.Request) {
	f, err := h.svc.GetFlight(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toFlightDto(f))
}

// CreateFlight handles POST /api/flights.
func (h *Handler) CreateFlight(w http.ResponseWriter, r *http.Request) {
	var req FlightDto
	if !decodeBody(w, r, &req) {
		return
	}

	f, err := h.svc.CreateFlight(req.toFlight())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/flights/"+url.PathEscape(f.ID))
	respondJSON(w, http.StatusCreated, toFlightDto(f))
}

// UpdateFlight handles PUT /api/flights/{id}.
func (h *Handler) UpdateFlight(w http.ResponseWriter, r *http.Request) {
	var req FlightDto
	if !decodeBody(w, r, &req) {
		return
	}

	f, err := h.svc.UpdateFlight(mux.Vars(r)["id"], req.toFlight())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toFlightDto(f))
}

// GetReservations handles GET /api/reservations.
func (h *Handler) GetReservations(w http.ResponseWriter, r *http.Request) {
	verr := fr.NewValidationError()
	page := parsePage(r.URL.Query(), verr)
	if err := verr.OrNil(); err != nil {
		h.respondError(w, r, err)
		return
	}

	result, err := h.svc.ListReservations(page)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toPagedResult(result, toReservationDto))
}

// GetReservation handles GET /api/reservations/{id}.
func (h *Handler) GetReservation(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.GetReservation(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toReservationDto(res))
}

// CreateReservation handles POST /api/reservations.
func (h *Handler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req ReservationDto
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.svc.CreateReservation(req.toReservation())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/reservations/"+url.PathEscape(res.ID))
	respondJSON(w, http.StatusCreated, toReservationDto(res))
}

// UpdateReservation handles PUT /api/reservations/{id}.
func (h *Handler) UpdateReservation(w http.ResponseWriter, r *http.Request) {
	var req ReservationDto
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.svc.UpdateReservation(mux.Vars(r)["id"], req.toReservation())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toReservationDto(res))
}

// DeleteReservation handles DELETE /api/reservations/{id}.
func (h *Handler) DeleteReservation(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteReservation(mux.Vars(r)["id"]); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GenerateDevData handles POST /api/devdata/generate.
func (h *Handler) GenerateDevData(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	verr := fr.NewValidationError()
	flights := intParam(q, "flights", devdata.DefaultFlights, verr)
	reservations := intParam(q, "reservations", devdata.DefaultReservations, verr)

	var seed uint64
	if raw := q.Get("seed"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			verr.Add("seed", invalidValue(raw))
		}
		seed = v
	}
	if err := verr.OrNil(); err != nil {
		h.respondError(w, r, err)
		return
	}

	res, err := h.svc.GenerateDevData(flights, reservations, seed)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// ClearDevData handles POST /api/devdata/clear.
func (h *Handler) ClearDevData(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearDevData(); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	respondProblem(w, Problem{Status: http.StatusNotFound, Title: titleNotFound})
}

// decodeBody reads a JSON body into dst, answering 400 itself on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		respondValidation(w, map[string][]string{"body": {"The request body is not valid: " + err.Error()}})
		return false
	}
	return true
}

func parsePage(q url.Values, verr *fr.ValidationError) service.PageRequest {
	return service.PageRequest{
		Number: intParam(q, "pageNumber", service.DefaultPageNumber, verr),
		Size:   intParam(q, "pageSize", service.DefaultPageSize, verr),
	}
}

func intParam(q url.Values, name string, def int, verr *fr.ValidationError) int {
	raw := q.Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		verr.Add(name, invalidValue(raw))
		return def
	}
	return v
}

func invalidValue(raw string) string {
	return fmt.Sprintf("The value '%s' is not valid.", raw)
}
