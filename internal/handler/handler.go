// Package handler contains the chi HTTP handlers that translate HTTP
// requests and responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/johnamet/faithvibe/internal/middleware"
	"github.com/johnamet/faithvibe/internal/model"
	"github.com/johnamet/faithvibe/internal/repository"
	"github.com/johnamet/faithvibe/internal/service"
)

// Handler holds every HTTP handler for the API.
type Handler struct {
	mutations   *service.MutationService
	gate        *service.Gate
	events      repository.EventReader
	products    repository.ProductReader
	orders      repository.OrderReader
	prayers     repository.PrayerReader
	devotionals repository.DevotionalReader
	users       repository.UserReader
	log         *slog.Logger
}

// New constructs a Handler.
func New(
	mutations *service.MutationService,
	gate *service.Gate,
	events repository.EventReader,
	products repository.ProductReader,
	orders repository.OrderReader,
	prayers repository.PrayerReader,
	devotionals repository.DevotionalReader,
	users repository.UserReader,
	log *slog.Logger,
) *Handler {
	return &Handler{
		mutations:   mutations,
		gate:        gate,
		events:      events,
		products:    products,
		orders:      orders,
		prayers:     prayers,
		devotionals: devotionals,
		users:       users,
		log:         log,
	}
}

// Routes mounts every endpoint on a fresh router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Route("/events", func(r chi.Router) {
			r.Get("/", h.ListEvents)
			r.Post("/", h.CreateEvent)
			r.Get("/{id}", h.GetEvent)
			r.Patch("/{id}", h.UpdateEvent)
			r.Delete("/{id}", h.DeleteEvent)
			r.Post("/{id}/register", h.RegisterForEvent)
			r.Get("/{id}/registrations", h.ListEventRegistrations)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.CreateProduct)
			r.Get("/{id}", h.GetProduct)
			r.Patch("/{id}", h.UpdateProduct)
			r.Delete("/{id}", h.DeleteProduct)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.ListOrders)
			r.Post("/", h.CreateOrder)
			r.Get("/{id}", h.GetOrder)
			r.Patch("/{id}/status", h.UpdateOrderStatus)
		})

		r.Route("/prayer-requests", func(r chi.Router) {
			r.Get("/", h.ListPrayerRequests)
			r.Post("/", h.CreatePrayerRequest)
			r.Patch("/{id}", h.UpdatePrayerRequest)
			r.Delete("/{id}", h.DeletePrayerRequest)
			r.Post("/{id}/pray", h.PrayForRequest)
		})

		r.Route("/devotionals", func(r chi.Router) {
			r.Get("/", h.ListDevotionals)
			r.Post("/", h.CreateDevotional)
			r.Get("/latest", h.LatestDevotional)
			r.Get("/{id}", h.GetDevotional)
			r.Patch("/{id}", h.UpdateDevotional)
			r.Delete("/{id}", h.DeleteDevotional)
			r.Post("/{id}/like", h.LikeDevotional)
		})

		r.Route("/me", func(r chi.Router) {
			r.Get("/", h.Me)
			r.Get("/registrations", h.MyRegistrations)
			r.Get("/orders", h.MyOrders)
		})

		r.Post("/auth/sync", h.SyncUser)

		r.Route("/users", func(r chi.Router) {
			r.Get("/admins", h.ListAdmins)
			r.Put("/{uid}/role", h.SetUserRole)
		})
	})

	return r
}

// HealthCheck handles GET /healthz.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// respondErr maps a domain error onto an HTTP status. Permission
// failures become 401 for anonymous callers and 403 for identified ones.
func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	err = service.Translate(err)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrPermissionDenied):
		if middleware.IdentityFrom(r.Context()) == nil {
			status = http.StatusUnauthorized
		} else {
			status = http.StatusForbidden
		}
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrCapacityExceeded), errors.Is(err, service.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, service.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, service.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError || status == http.StatusServiceUnavailable {
		h.log.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeError(w, status, err.Error())
}

func queryInt(r *http.Request, key string) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return 0
}

func queryBool(r *http.Request, key string) bool {
	v := r.URL.Query().Get(key)
	return v == "true" || v == "1"
}
