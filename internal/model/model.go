// Package model defines the core domain types for the FaithVibe
// community platform: events, registrations, shop products, orders,
// prayer requests, devotionals, and user roles.
package model

import "time"

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	EventUpcoming  EventStatus = "upcoming"
	EventCompleted EventStatus = "completed"
	EventCancelled EventStatus = "cancelled"
)

// Event represents a community event with a bounded number of seats.
// Registrations must satisfy 0 <= Registrations <= Capacity at all times;
// the counter is only ever mutated inside a store transaction.
type Event struct {
	ID               string      `json:"id"`
	Title            string      `json:"title"`
	Date             string      `json:"date"` // YYYY-MM-DD
	Time             string      `json:"time"` // HH:MM
	Location         string      `json:"location"`
	Category         string      `json:"category"`
	Description      string      `json:"description"`
	Image            string      `json:"image"`
	Capacity         int         `json:"capacity"`
	Registrations    int         `json:"registrations"`
	RegistrationOpen bool        `json:"registrationOpen"`
	Featured         bool        `json:"featured"`
	Status           EventStatus `json:"status"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

// Remaining returns the number of open seats.
func (e *Event) Remaining() int {
	return e.Capacity - e.Registrations
}

// IsFull returns true when no seats remain.
func (e *Event) IsFull() bool {
	return e.Registrations >= e.Capacity
}

// EventRegistration is the audit record created when a user claims a seat.
// It is only ever written in the same transaction that increments the
// event's registration counter.
type EventRegistration struct {
	ID           string    `json:"id"`
	EventID      string    `json:"eventId"`
	UserID       string    `json:"userId"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// Product is a shop item.
type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	OriginalPrice float64   `json:"originalPrice,omitempty"` // set when Sale is true
	Category      string    `json:"category"`
	Description   string    `json:"description"`
	Image         string    `json:"image"`
	Stock         int       `json:"stock"`
	Sale          bool      `json:"sale"`
	Featured      bool      `json:"featured"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// OrderItem is one line of an order.
type OrderItem struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Image       string  `json:"image,omitempty"`
}

// ShippingAddress is the destination for a shop order.
type ShippingAddress struct {
	Name    string `json:"name"`
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// Order is a shop purchase. Total always equals the sum of line totals;
// submitted totals that disagree are rejected at creation.
type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	UserEmail       string          `json:"userEmail"`
	UserName        string          `json:"userName"`
	Items           []OrderItem     `json:"items"`
	Total           float64         `json:"total"`
	Status          OrderStatus     `json:"status"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod"`
	PaymentID       string          `json:"paymentId,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// PrayerStatus is the visibility state of a prayer request.
type PrayerStatus string

const (
	PrayerActive   PrayerStatus = "active"
	PrayerArchived PrayerStatus = "archived"
)

// PrayerRequest is a community prayer request with a per-user guarded
// prayer counter.
type PrayerRequest struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Request     string       `json:"request"`
	UserID      string       `json:"userId,omitempty"`
	IsAnonymous bool         `json:"isAnonymous"`
	PrayerCount int          `json:"prayerCount"`
	Status      PrayerStatus `json:"status"`
	Date        time.Time    `json:"date"`
}

// DevotionalStatus is the publication state of a devotional.
type DevotionalStatus string

const (
	DevotionalDraft     DevotionalStatus = "draft"
	DevotionalPublished DevotionalStatus = "published"
	DevotionalScheduled DevotionalStatus = "scheduled"
)

// Author identifies the writer of a devotional.
type Author struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// Devotional is a daily reading.
type Devotional struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Verse     string           `json:"verse"`
	VerseText string           `json:"verseText"`
	Content   string           `json:"content"`
	Author    Author           `json:"author"`
	Category  string           `json:"category,omitempty"`
	Likes     int              `json:"likes"`
	Comments  int              `json:"comments"`
	Status    DevotionalStatus `json:"status"`
	Date      time.Time        `json:"date"`
}

// UserData mirrors the identity provider's view of a user, synced on
// sign-in.
type UserData struct {
	UID         string    `json:"uid"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName,omitempty"`
	PhotoURL    string    `json:"photoURL,omitempty"`
	PhoneNumber string    `json:"phoneNumber,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// UserRole is the per-user authorization record. It is keyed by the
// user's UID and created lazily with IsAdmin=false on first resolution.
type UserRole struct {
	UserID      string   `json:"userId"`
	IsAdmin     bool     `json:"isAdmin"`
	Permissions []string `json:"permissions,omitempty"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
