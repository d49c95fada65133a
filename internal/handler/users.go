package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/johnamet/faithvibe/internal/middleware"
	"github.com/johnamet/faithvibe/internal/model"
)

// SyncUser handles POST /api/auth/sync. The identity provider's view of
// the caller is upserted on sign-in.
func (h *Handler) SyncUser(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFrom(r.Context())
	user, err := h.gate.SyncUser(r.Context(), id)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Me handles GET /api/me: the caller's identity plus their resolved
// role. Resolving lazily creates the non-admin default.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFrom(r.Context())
	if err := h.gate.RequireAuthenticated(id); err != nil {
		h.respondErr(w, r, err)
		return
	}
	role, err := h.gate.ResolveRole(r.Context(), id.UID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"identity": id,
		"role":     role,
	})
}

// ListAdmins handles GET /api/users/admins. Admin only.
func (h *Handler) ListAdmins(w http.ResponseWriter, r *http.Request) {
	if err := h.gate.RequireAdmin(r.Context(), middleware.IdentityFrom(r.Context())); err != nil {
		h.respondErr(w, r, err)
		return
	}
	admins, err := h.users.ListAdmins(r.Context())
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if admins == nil {
		admins = []model.UserRole{}
	}
	writeJSON(w, http.StatusOK, admins)
}

// SetUserRole handles PUT /api/users/{uid}/role. Admin only; revoking
// your own admin role is rejected.
func (h *Handler) SetUserRole(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IsAdmin bool `json:"isAdmin"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	caller := middleware.IdentityFrom(r.Context())
	uid := chi.URLParam(r, "uid")
	if err := h.gate.SetUserRole(r.Context(), caller, uid, body.IsAdmin); err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.UserRole{UserID: uid, IsAdmin: body.IsAdmin})
}
