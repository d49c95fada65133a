package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/johnamet/faithvibe/internal/middleware"
	"github.com/johnamet/faithvibe/internal/model"
	"github.com/johnamet/faithvibe/internal/repository"
)

// ListProducts handles GET /api/products.
// Supports ?category=, ?featured=true, ?sale=true, ?limit=.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	f := repository.ProductFilter{
		Category:     r.URL.Query().Get("category"),
		FeaturedOnly: queryBool(r, "featured"),
		SaleOnly:     queryBool(r, "sale"),
		Limit:        queryInt(r, "limit"),
	}
	products, err := h.products.List(r.Context(), f)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if products == nil {
		products = []model.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

// GetProduct handles GET /api/products/{id}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.products.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// CreateProduct handles POST /api/products. Admin only.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.gate.RequireAdmin(r.Context(), middleware.IdentityFrom(r.Context())); err != nil {
		h.respondErr(w, r, err)
		return
	}
	var in model.CreateProductInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	product, err := h.mutations.CreateProduct(r.Context(), in)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

// UpdateProduct handles PATCH /api/products/{id}. Admin only.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.gate.RequireAdmin(r.Context(), middleware.IdentityFrom(r.Context())); err != nil {
		h.respondErr(w, r, err)
		return
	}
	var patch model.ProductPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	product, err := h.mutations.UpdateProduct(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// DeleteProduct handles DELETE /api/products/{id}. Admin only.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.gate.RequireAdmin(r.Context(), middleware.IdentityFrom(r.Context())); err != nil {
		h.respondErr(w, r, err)
		return
	}
	if err := h.mutations.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateOrder handles POST /api/orders.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFrom(r.Context())
	if err := h.gate.RequireAuthenticated(id); err != nil {
		h.respondErr(w, r, err)
		return
	}
	var in model.CreateOrderInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	order, err := h.mutations.CreateOrder(r.Context(), id.UID, in)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// ListOrders handles GET /api/orders. Admin only; supports ?status=,
// ?user=, ?limit=.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	if err := h.gate.RequireAdmin(r.Context(), middleware.IdentityFrom(r.Context())); err != nil {
		h.respondErr(w, r, err)
		return
	}
	f := repository.OrderFilter{
		UserID: r.URL.Query().Get("user"),
		Status: model.OrderStatus(r.URL.Query().Get("status")),
		Limit:  queryInt(r, "limit"),
	}
	orders, err := h.orders.List(r.Context(), f)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

// GetOrder handles GET /api/orders/{id}. Visible to the order's owner
// and to admins.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFrom(r.Context())
	if err := h.gate.RequireAuthenticated(id); err != nil {
		h.respondErr(w, r, err)
		return
	}
	order, err := h.orders.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if order.UserID != id.UID {
		if err := h.gate.RequireAdmin(r.Context(), id); err != nil {
			h.respondErr(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, order)
}

// UpdateOrderStatus handles PATCH /api/orders/{id}/status. Admin only.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	if err := h.gate.RequireAdmin(r.Context(), middleware.IdentityFrom(r.Context())); err != nil {
		h.respondErr(w, r, err)
		return
	}
	var body struct {
		Status model.OrderStatus `json:"status"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	order, err := h.mutations.UpdateOrderStatus(r.Context(), chi.URLParam(r, "id"), body.Status)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// MyOrders handles GET /api/me/orders.
func (h *Handler) MyOrders(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFrom(r.Context())
	if err := h.gate.RequireAuthenticated(id); err != nil {
		h.respondErr(w, r, err)
		return
	}
	orders, err := h.orders.List(r.Context(), repository.OrderFilter{UserID: id.UID})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}
