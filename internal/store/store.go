// Package store defines the transactional document-store contract the
// mutation core runs against, together with a backend-agnostic set of
// low-level error kinds. Two implementations exist: a Postgres store
// built on pgx, and an in-memory store with optimistic conflict
// detection used by tests and ephemeral environments.
package store

import (
	"context"
	"errors"

	"github.com/johnamet/faithvibe/internal/model"
)

// Low-level store errors. These are the whole error vocabulary a backend
// may surface; the service layer owns the translation into the domain
// taxonomy, so nothing above it ever inspects backend-specific codes.
var (
	// ErrNotExist is returned when a referenced document is absent.
	ErrNotExist = errors.New("store: document does not exist")

	// ErrTxConflict is returned when a transaction lost a race with a
	// concurrent committed transaction. The transaction body is safe to
	// re-run.
	ErrTxConflict = errors.New("store: transaction conflict")

	// ErrDuplicate is returned when a write violates a uniqueness rule.
	ErrDuplicate = errors.New("store: duplicate document")

	// ErrUnavailable is returned on transient backend failures,
	// including transaction timeouts. Nothing has been committed.
	ErrUnavailable = errors.New("store: backend unavailable")

	// ErrExhausted is returned when the backend sheds load.
	ErrExhausted = errors.New("store: resources exhausted")
)

// Collection names the document collections managed by the store.
type Collection string

const (
	Events             Collection = "events"
	EventRegistrations Collection = "eventRegistrations"
	Products           Collection = "products"
	Orders             Collection = "orders"
	PrayerRequests     Collection = "prayerRequests"
	Devotionals        Collection = "devotionals"
	Users              Collection = "users"
	UserRoles          Collection = "userRoles"
)

// ChangeKind classifies a committed mutation.
type ChangeKind string

const (
	Created ChangeKind = "created"
	Updated ChangeKind = "updated"
	Deleted ChangeKind = "deleted"
)

// Change describes one committed document mutation. Changes are the
// live-query feed: watchers receive them only after the owning
// transaction commits.
type Change struct {
	Collection Collection `json:"collection"`
	ID         string     `json:"id"`
	Kind       ChangeKind `json:"kind"`
}

// Tx is the handle to an open transaction. Reads through the handle
// participate in the backend's conflict detection (row locks on
// Postgres, version capture in memory), so a read-then-write sequence
// inside one Tx can never silently overwrite a concurrent commit.
// A Tx is single-use: after Commit or Rollback it must be discarded.
type Tx interface {
	// Event reads an event for update. Returns ErrNotExist if absent.
	Event(ctx context.Context, id string) (*model.Event, error)
	InsertEvent(ctx context.Context, e *model.Event) error
	UpdateEvent(ctx context.Context, e *model.Event) error
	DeleteEvent(ctx context.Context, id string) error

	// HasRegistration reports whether the user already holds a seat.
	HasRegistration(ctx context.Context, eventID, userID string) (bool, error)
	InsertRegistration(ctx context.Context, r *model.EventRegistration) error
	// DeleteRegistrationsForEvent removes every registration referencing
	// the event and returns how many were removed.
	DeleteRegistrationsForEvent(ctx context.Context, eventID string) (int64, error)

	Product(ctx context.Context, id string) (*model.Product, error)
	InsertProduct(ctx context.Context, p *model.Product) error
	UpdateProduct(ctx context.Context, p *model.Product) error
	DeleteProduct(ctx context.Context, id string) error

	Order(ctx context.Context, id string) (*model.Order, error)
	InsertOrder(ctx context.Context, o *model.Order) error
	UpdateOrder(ctx context.Context, o *model.Order) error

	PrayerRequest(ctx context.Context, id string) (*model.PrayerRequest, error)
	InsertPrayerRequest(ctx context.Context, r *model.PrayerRequest) error
	UpdatePrayerRequest(ctx context.Context, r *model.PrayerRequest) error
	DeletePrayerRequest(ctx context.Context, id string) error
	// HasPrayerAction reports whether the user already prayed for the
	// request; InsertPrayerAction records that they now have.
	HasPrayerAction(ctx context.Context, requestID, userID string) (bool, error)
	InsertPrayerAction(ctx context.Context, requestID, userID string) error

	Devotional(ctx context.Context, id string) (*model.Devotional, error)
	InsertDevotional(ctx context.Context, d *model.Devotional) error
	UpdateDevotional(ctx context.Context, d *model.Devotional) error
	DeleteDevotional(ctx context.Context, id string) error

	// Role reads a user's role record. Returns ErrNotExist when the
	// user has never been assigned one.
	Role(ctx context.Context, userID string) (*model.UserRole, error)
	// PutRole creates or replaces a role record.
	PutRole(ctx context.Context, r *model.UserRole) error
	// User reads a synced user record. Returns ErrNotExist if absent.
	User(ctx context.Context, uid string) (*model.UserData, error)
	PutUser(ctx context.Context, u *model.UserData) error

	// Commit makes every buffered write visible atomically and delivers
	// the transaction's changes to watchers. Returns ErrTxConflict when
	// the transaction lost a race.
	Commit(ctx context.Context) error
	// Rollback discards the transaction. Safe to call after Commit.
	Rollback(ctx context.Context) error
}

// Store opens transactions and exposes the committed-change feed.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	// Watch subscribes to committed changes. The returned cancel func
	// detaches the subscriber and closes the channel.
	Watch(ctx context.Context) (<-chan Change, func())
}
