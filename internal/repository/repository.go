// Package repository implements the read-side accessors over pgx. These
// run outside transactions against the connection pool and serve list and
// detail pages; every write, and every read that must participate in
// conflict detection, goes through the store's transaction handle
// instead.
package repository

import (
	"context"

	"github.com/johnamet/faithvibe/internal/model"
)

// EventReader lists and fetches events and their registrations.
type EventReader interface {
	GetByID(ctx context.Context, id string) (*model.Event, error)
	List(ctx context.Context, f EventFilter) ([]model.Event, error)
	RegistrationsByEvent(ctx context.Context, eventID string) ([]model.EventRegistration, error)
	RegistrationsByUser(ctx context.Context, userID string) ([]model.EventRegistration, error)
}

// ProductReader lists and fetches shop products.
type ProductReader interface {
	GetByID(ctx context.Context, id string) (*model.Product, error)
	List(ctx context.Context, f ProductFilter) ([]model.Product, error)
}

// OrderReader lists and fetches orders.
type OrderReader interface {
	GetByID(ctx context.Context, id string) (*model.Order, error)
	List(ctx context.Context, f OrderFilter) ([]model.Order, error)
}

// PrayerReader lists prayer requests.
type PrayerReader interface {
	GetByID(ctx context.Context, id string) (*model.PrayerRequest, error)
	List(ctx context.Context, f PrayerFilter) ([]model.PrayerRequest, error)
}

// DevotionalReader lists and fetches devotionals.
type DevotionalReader interface {
	GetByID(ctx context.Context, id string) (*model.Devotional, error)
	List(ctx context.Context, f DevotionalFilter) ([]model.Devotional, error)
	Latest(ctx context.Context) (*model.Devotional, error)
}

// UserReader resolves synced users and role records for admin screens.
type UserReader interface {
	GetByUID(ctx context.Context, uid string) (*model.UserData, error)
	ListAdmins(ctx context.Context) ([]model.UserRole, error)
}

// EventFilter narrows an event listing. Zero values mean "no filter";
// results are always newest-first by creation time unless UpcomingFirst
// asks for soonest-first by event date.
type EventFilter struct {
	Category      string
	Status        model.EventStatus
	FeaturedOnly  bool
	UpcomingFirst bool
	Limit         int
}

// ProductFilter narrows a product listing.
type ProductFilter struct {
	Category     string
	FeaturedOnly bool
	SaleOnly     bool
	Limit        int
}

// OrderFilter narrows an order listing.
type OrderFilter struct {
	UserID string
	Status model.OrderStatus
	Limit  int
}

// PrayerFilter narrows a prayer-request listing.
type PrayerFilter struct {
	UserID string
	Status model.PrayerStatus
	Limit  int
}

// DevotionalFilter narrows a devotional listing.
type DevotionalFilter struct {
	Category string
	Status   model.DevotionalStatus
	Limit    int
}
