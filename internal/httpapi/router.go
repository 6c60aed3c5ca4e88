package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"flightres/internal/fr"
)

// Options configures the middleware around the API routes.
type Options struct {
	CORSOrigins []string
	// RateLimit is requests per second per client IP; zero disables limiting.
	RateLimit float64
	RateBurst int
	// DevEndpoints mounts /api/devdata.
	DevEndpoints bool
}

// NewRouter builds the full HTTP handler: routes plus CORS, request ids,
// access logging, panic recovery and rate limiting.
func NewRouter(h *Handler, opts Options, logger fr.Logger) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(notFound)

	api := r.PathPrefix("/api").Subrouter()

	// Flights
	api.HandleFunc("/flights", h.GetFlights).Methods(http.MethodGet)
	api.HandleFunc("/flights", h.CreateFlight).Methods(http.MethodPost)
	api.HandleFunc("/flights/{id}", h.GetFlight).Methods(http.MethodGet)
	api.HandleFunc("/flights/{id}", h.UpdateFlight).Methods(http.MethodPut)

	// Reservations
	api.HandleFunc("/reservations", h.GetReservations).Methods(http.MethodGet)
	api.HandleFunc("/reservations", h.CreateReservation).Methods(http.MethodPost)
	api.HandleFunc("/reservations/{id}", h.GetReservation).Methods(http.MethodGet)
	api.HandleFunc("/reservations/{id}", h.UpdateReservation).Methods(http.MethodPut)
	api.HandleFunc("/reservations/{id}", h.DeleteReservation).Methods(http.MethodDelete)

	if opts.DevEndpoints {
		api.HandleFunc("/devdata/generate", h.GenerateDevData).Methods(http.MethodPost)
		api.HandleFunc("/devdata/clear", h.ClearDevData).Methods(http.MethodPost)
	}

	r.HandleFunc("/health", healthCheck).Methods(http.MethodGet)

	var handler http.Handler = r
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		handler = NewRateLimiter(opts.RateLimit, burst).Limit(handler)
	}
	handler = h.recoverer(handler)
	handler = accessLog(logger)(handler)
	handler = requestID(handler)

	c := cors.New(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", RequestIDHeader},
		ExposedHeaders: []string{"Location", RequestIDHeader},
	})
	return c.Handler(handler)
}
