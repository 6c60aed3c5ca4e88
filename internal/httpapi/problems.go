package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"flightres/internal/fr"
)

const problemContentType = "application/problem+json"

const (
	titleValidation = "One or more validation errors occurred."
	titleNotFound   = "The requested resource was not found."
	titleInternal   = "An unexpected error occurred."
)

// Problem is an RFC 7807 error body.
type Problem struct {
	Status int                 `json:"status"`
	Title  string              `json:"title"`
	Detail string              `json:"detail,omitempty"`
	Errors map[string][]string `json:"errors,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func respondProblem(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", problemContentType)
	w.WriteHeader(p.Status)
	json.NewEncoder(w).Encode(p)
}

func respondValidation(w http.ResponseWriter, fields map[string][]string) {
	respondProblem(w, Problem{Status: http.StatusBadRequest, Title: titleValidation, Errors: fields})
}

// respondError maps err onto a problem response. Anything that is not a
// client error is logged with a fresh error id and reported only by that id.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *fr.ValidationError
	switch {
	case errors.As(err, &verr):
		respondValidation(w, verr.Fields)
	case fr.IsNotFound(err):
		respondProblem(w, Problem{Status: http.StatusNotFound, Title: titleNotFound})
	case fr.IsInvalidArgument(err):
		respondProblem(w, Problem{Status: http.StatusBadRequest, Title: titleValidation, Detail: err.Error()})
	default:
		h.respondInternal(w, r, err)
	}
}

func (h *Handler) respondInternal(w http.ResponseWriter, r *http.Request, err error) {
	errorID := uuid.New().String()
	h.logger.Error("unhandled request error",
		"error_id", errorID,
		"request_id", RequestIDFrom(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
		"error", err)
	respondProblem(w, Problem{
		Status: http.StatusInternalServerError,
		Title:  titleInternal,
		Detail: "Error ID: " + errorID,
	})
}
