package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/johnamet/faithvibe/internal/middleware"
	"github.com/johnamet/faithvibe/internal/model"
	"github.com/johnamet/faithvibe/internal/repository"
)

// ListEvents handles GET /api/events.
// Supports ?category=, ?status=, ?featured=true, ?upcoming=true, ?limit=.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	f := repository.EventFilter{
		Category:      r.URL.Query().Get("category"),
		Status:        model.EventStatus(r.URL.Query().Get("status")),
		FeaturedOnly:  queryBool(r, "featured"),
		UpcomingFirst: queryBool(r, "upcoming"),
		Limit:         queryInt(r, "limit"),
	}
	events, err := h.events.List(r.Context(), f)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /api/events/{id}.
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.events.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// CreateEvent handles POST /api/events. Admin only.
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.gate.RequireAdmin(r.Context(), middleware.IdentityFrom(r.Context())); err != nil {
		h.respondErr(w, r, err)
		return
	}
	var in model.CreateEventInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	event, err := h.mutations.CreateEvent(r.Context(), in)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// UpdateEvent handles PATCH /api/events/{id}. Admin only.
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.gate.RequireAdmin(r.Context(), middleware.IdentityFrom(r.Context())); err != nil {
		h.respondErr(w, r, err)
		return
	}
	var patch model.EventPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	event, err := h.mutations.UpdateEvent(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// DeleteEvent handles DELETE /api/events/{id}. Admin only.
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.gate.RequireAdmin(r.Context(), middleware.IdentityFrom(r.Context())); err != nil {
		h.respondErr(w, r, err)
		return
	}
	if err := h.mutations.DeleteEvent(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RegisterForEvent handles POST /api/events/{id}/register.
// The seat is claimed for the authenticated caller.
func (h *Handler) RegisterForEvent(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFrom(r.Context())
	if err := h.gate.RequireAuthenticated(id); err != nil {
		h.respondErr(w, r, err)
		return
	}
	eventID := chi.URLParam(r, "id")
	if err := h.mutations.RegisterForEvent(r.Context(), eventID, id.UID); err != nil {
		h.respondErr(w, r, err)
		return
	}
	event, err := h.events.GetByID(r.Context(), eventID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// ListEventRegistrations handles GET /api/events/{id}/registrations.
// Admin only.
func (h *Handler) ListEventRegistrations(w http.ResponseWriter, r *http.Request) {
	if err := h.gate.RequireAdmin(r.Context(), middleware.IdentityFrom(r.Context())); err != nil {
		h.respondErr(w, r, err)
		return
	}
	regs, err := h.events.RegistrationsByEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if regs == nil {
		regs = []model.EventRegistration{}
	}
	writeJSON(w, http.StatusOK, regs)
}

// MyRegistrations handles GET /api/me/registrations.
func (h *Handler) MyRegistrations(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFrom(r.Context())
	if err := h.gate.RequireAuthenticated(id); err != nil {
		h.respondErr(w, r, err)
		return
	}
	regs, err := h.events.RegistrationsByUser(r.Context(), id.UID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if regs == nil {
		regs = []model.EventRegistration{}
	}
	writeJSON(w, http.StatusOK, regs)
}
