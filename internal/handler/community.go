package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/johnamet/faithvibe/internal/auth"
	"github.com/johnamet/faithvibe/internal/middleware"
	"github.com/johnamet/faithvibe/internal/model"
	"github.com/johnamet/faithvibe/internal/repository"
)

// ListPrayerRequests handles GET /api/prayer-requests.
// Anonymous callers only see active requests; admins may pass ?status=.
func (h *Handler) ListPrayerRequests(w http.ResponseWriter, r *http.Request) {
	f := repository.PrayerFilter{
		Status: model.PrayerActive,
		Limit:  queryInt(r, "limit"),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		if err := h.gate.RequireAdmin(r.Context(), middleware.IdentityFrom(r.Context())); err != nil {
			h.respondErr(w, r, err)
			return
		}
		f.Status = model.PrayerStatus(s)
	}
	requests, err := h.prayers.List(r.Context(), f)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if requests == nil {
		requests = []model.PrayerRequest{}
	}
	writeJSON(w, http.StatusOK, requests)
}

// CreatePrayerRequest handles POST /api/prayer-requests. Anonymous
// submissions are allowed; an authenticated caller's UID is attached.
func (h *Handler) CreatePrayerRequest(w http.ResponseWriter, r *http.Request) {
	var in model.CreatePrayerRequestInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	var uid string
	if id := middleware.IdentityFrom(r.Context()); id != nil {
		uid = id.UID
	}
	request, err := h.mutations.CreatePrayerRequest(r.Context(), uid, in)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, request)
}

// UpdatePrayerRequest handles PATCH /api/prayer-requests/{id}. Admin only.
func (h *Handler) UpdatePrayerRequest(w http.ResponseWriter, r *http.Request) {
	if err := h.gate.RequireAdmin(r.Context(), middleware.IdentityFrom(r.Context())); err != nil {
		h.respondErr(w, r, err)
		return
	}
	var patch model.PrayerRequestPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	request, err := h.mutations.UpdatePrayerRequest(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, request)
}

// DeletePrayerRequest handles DELETE /api/prayer-requests/{id}. Admin only.
func (h *Handler) DeletePrayerRequest(w http.ResponseWriter, r *http.Request) {
	if err := h.gate.RequireAdmin(r.Context(), middleware.IdentityFrom(r.Context())); err != nil {
		h.respondErr(w, r, err)
		return
	}
	if err := h.mutations.DeletePrayerRequest(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PrayForRequest handles POST /api/prayer-requests/{id}/pray.
func (h *Handler) PrayForRequest(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFrom(r.Context())
	if err := h.gate.RequireAuthenticated(id); err != nil {
		h.respondErr(w, r, err)
		return
	}
	request, err := h.mutations.PrayForRequest(r.Context(), chi.URLParam(r, "id"), id.UID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, request)
}

// ListDevotionals handles GET /api/devotionals.
// Anonymous callers only see published devotionals; admins may pass
// ?status=.
func (h *Handler) ListDevotionals(w http.ResponseWriter, r *http.Request) {
	f := repository.DevotionalFilter{
		Category: r.URL.Query().Get("category"),
		Status:   model.DevotionalPublished,
		Limit:    queryInt(r, "limit"),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		if err := h.gate.RequireAdmin(r.Context(), middleware.IdentityFrom(r.Context())); err != nil {
			h.respondErr(w, r, err)
			return
		}
		f.Status = model.DevotionalStatus(s)
	}
	devotionals, err := h.devotionals.List(r.Context(), f)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if devotionals == nil {
		devotionals = []model.Devotional{}
	}
	writeJSON(w, http.StatusOK, devotionals)
}

// LatestDevotional handles GET /api/devotionals/latest.
func (h *Handler) LatestDevotional(w http.ResponseWriter, r *http.Request) {
	devotional, err := h.devotionals.Latest(r.Context())
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, devotional)
}

// GetDevotional handles GET /api/devotionals/{id}.
func (h *Handler) GetDevotional(w http.ResponseWriter, r *http.Request) {
	devotional, err := h.devotionals.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, devotional)
}

// CreateDevotional handles POST /api/devotionals. Admin only; the caller
// becomes the author.
func (h *Handler) CreateDevotional(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFrom(r.Context())
	if err := h.gate.RequireAdmin(r.Context(), id); err != nil {
		h.respondErr(w, r, err)
		return
	}
	var in model.CreateDevotionalInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	author := authorFrom(id)
	devotional, err := h.mutations.CreateDevotional(r.Context(), author, in)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, devotional)
}

// UpdateDevotional handles PATCH /api/devotionals/{id}. Admin only.
func (h *Handler) UpdateDevotional(w http.ResponseWriter, r *http.Request) {
	if err := h.gate.RequireAdmin(r.Context(), middleware.IdentityFrom(r.Context())); err != nil {
		h.respondErr(w, r, err)
		return
	}
	var patch model.DevotionalPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	devotional, err := h.mutations.UpdateDevotional(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, devotional)
}

// DeleteDevotional handles DELETE /api/devotionals/{id}. Admin only.
func (h *Handler) DeleteDevotional(w http.ResponseWriter, r *http.Request) {
	if err := h.gate.RequireAdmin(r.Context(), middleware.IdentityFrom(r.Context())); err != nil {
		h.respondErr(w, r, err)
		return
	}
	if err := h.mutations.DeleteDevotional(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LikeDevotional handles POST /api/devotionals/{id}/like.
func (h *Handler) LikeDevotional(w http.ResponseWriter, r *http.Request) {
	if err := h.gate.RequireAuthenticated(middleware.IdentityFrom(r.Context())); err != nil {
		h.respondErr(w, r, err)
		return
	}
	devotional, err := h.mutations.LikeDevotional(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, devotional)
}

func authorFrom(id *auth.Identity) model.Author {
	name := id.Name
	if name == "" {
		name = id.Email
	}
	return model.Author{ID: id.UID, Name: name}
}
