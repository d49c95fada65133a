package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/johnamet/faithvibe/internal/model"
	"github.com/johnamet/faithvibe/internal/store"
)

// EventRepository is the pgx-backed EventReader.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, title, date, time, location, category, description, image,
	capacity, registrations, registration_open, featured, status, created_at, updated_at`

func scanEvent(row pgx.Row) (*model.Event, error) {
	var e model.Event
	err := row.Scan(&e.ID, &e.Title, &e.Date, &e.Time, &e.Location, &e.Category,
		&e.Description, &e.Image, &e.Capacity, &e.Registrations,
		&e.RegistrationOpen, &e.Featured, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetByID returns a single event or store.ErrNotExist.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	e, err := scanEvent(r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("event %s: %w", id, store.ErrNotExist)
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// List returns events matching the filter, newest-first by default.
func (r *EventRepository) List(ctx context.Context, f EventFilter) ([]model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE 1=1`
	var args []any
	if f.Category != "" {
		args = append(args, f.Category)
		query += ` AND category = $` + strconv.Itoa(len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	if f.FeaturedOnly {
		query += ` AND featured`
	}
	if f.UpcomingFirst {
		query += ` ORDER BY date ASC, time ASC`
	} else {
		query += ` ORDER BY created_at DESC`
	}
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// RegistrationsByEvent returns all registrations for an event, oldest first.
func (r *EventRepository) RegistrationsByEvent(ctx context.Context, eventID string) ([]model.EventRegistration, error) {
	return r.listRegistrations(ctx,
		`SELECT id, event_id, user_id, registered_at
		 FROM event_registrations
		 WHERE event_id = $1
		 ORDER BY registered_at ASC`, eventID)
}

// RegistrationsByUser returns all registrations held by a user, newest first.
func (r *EventRepository) RegistrationsByUser(ctx context.Context, userID string) ([]model.EventRegistration, error) {
	return r.listRegistrations(ctx,
		`SELECT id, event_id, user_id, registered_at
		 FROM event_registrations
		 WHERE user_id = $1
		 ORDER BY registered_at DESC`, userID)
}

func (r *EventRepository) listRegistrations(ctx context.Context, query, arg string) ([]model.EventRegistration, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var regs []model.EventRegistration
	for rows.Next() {
		var reg model.EventRegistration
		if err := rows.Scan(&reg.ID, &reg.EventID, &reg.UserID, &reg.RegisteredAt); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}
