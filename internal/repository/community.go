package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/johnamet/faithvibe/internal/model"
	"github.com/johnamet/faithvibe/internal/store"
)

// PrayerRepository is the pgx-backed PrayerReader.
type PrayerRepository struct {
	db *pgxpool.Pool
}

// NewPrayerRepository constructs a PrayerRepository.
func NewPrayerRepository(db *pgxpool.Pool) *PrayerRepository {
	return &PrayerRepository{db: db}
}

const prayerColumns = `id, name, request, user_id, is_anonymous, prayer_count, status, date`

func scanPrayer(row pgx.Row) (*model.PrayerRequest, error) {
	var p model.PrayerRequest
	err := row.Scan(&p.ID, &p.Name, &p.Request, &p.UserID, &p.IsAnonymous,
		&p.PrayerCount, &p.Status, &p.Date)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByID returns a single prayer request or store.ErrNotExist.
func (r *PrayerRepository) GetByID(ctx context.Context, id string) (*model.PrayerRequest, error) {
	p, err := scanPrayer(r.db.QueryRow(ctx,
		`SELECT `+prayerColumns+` FROM prayer_requests WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("prayer request %s: %w", id, store.ErrNotExist)
		}
		return nil, fmt.Errorf("get prayer request: %w", err)
	}
	return p, nil
}

// List returns prayer requests matching the filter, newest-first.
func (r *PrayerRepository) List(ctx context.Context, f PrayerFilter) ([]model.PrayerRequest, error) {
	query := `SELECT ` + prayerColumns + ` FROM prayer_requests WHERE 1=1`
	var args []any
	if f.UserID != "" {
		args = append(args, f.UserID)
		query += ` AND user_id = $` + strconv.Itoa(len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY date DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list prayer requests: %w", err)
	}
	defer rows.Close()

	var requests []model.PrayerRequest
	for rows.Next() {
		p, err := scanPrayer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan prayer request: %w", err)
		}
		requests = append(requests, *p)
	}
	return requests, rows.Err()
}

// DevotionalRepository is the pgx-backed DevotionalReader.
type DevotionalRepository struct {
	db *pgxpool.Pool
}

// NewDevotionalRepository constructs a DevotionalRepository.
func NewDevotionalRepository(db *pgxpool.Pool) *DevotionalRepository {
	return &DevotionalRepository{db: db}
}

const devotionalColumns = `id, title, verse, verse_text, content, author, category,
	likes, comments, status, date`

func scanDevotional(row pgx.Row) (*model.Devotional, error) {
	var (
		d      model.Devotional
		author []byte
	)
	err := row.Scan(&d.ID, &d.Title, &d.Verse, &d.VerseText, &d.Content, &author,
		&d.Category, &d.Likes, &d.Comments, &d.Status, &d.Date)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(author, &d.Author); err != nil {
		return nil, fmt.Errorf("decode devotional author: %w", err)
	}
	return &d, nil
}

// GetByID returns a single devotional or store.ErrNotExist.
func (r *DevotionalRepository) GetByID(ctx context.Context, id string) (*model.Devotional, error) {
	d, err := scanDevotional(r.db.QueryRow(ctx,
		`SELECT `+devotionalColumns+` FROM devotionals WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("devotional %s: %w", id, store.ErrNotExist)
		}
		return nil, fmt.Errorf("get devotional: %w", err)
	}
	return d, nil
}

// List returns devotionals matching the filter, newest-first.
func (r *DevotionalRepository) List(ctx context.Context, f DevotionalFilter) ([]model.Devotional, error) {
	query := `SELECT ` + devotionalColumns + ` FROM devotionals WHERE 1=1`
	var args []any
	if f.Category != "" {
		args = append(args, f.Category)
		query += ` AND category = $` + strconv.Itoa(len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY date DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list devotionals: %w", err)
	}
	defer rows.Close()

	var devotionals []model.Devotional
	for rows.Next() {
		d, err := scanDevotional(rows)
		if err != nil {
			return nil, fmt.Errorf("scan devotional: %w", err)
		}
		devotionals = append(devotionals, *d)
	}
	return devotionals, rows.Err()
}

// Latest returns the most recent published devotional, or
// store.ErrNotExist when none has been published yet.
func (r *DevotionalRepository) Latest(ctx context.Context) (*model.Devotional, error) {
	d, err := scanDevotional(r.db.QueryRow(ctx,
		`SELECT `+devotionalColumns+` FROM devotionals
		 WHERE status = 'published'
		 ORDER BY date DESC
		 LIMIT 1`))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("latest devotional: %w", store.ErrNotExist)
		}
		return nil, fmt.Errorf("latest devotional: %w", err)
	}
	return d, nil
}

// UserRepository is the pgx-backed UserReader.
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// GetByUID returns a synced user record or store.ErrNotExist.
func (r *UserRepository) GetByUID(ctx context.Context, uid string) (*model.UserData, error) {
	var u model.UserData
	err := r.db.QueryRow(ctx,
		`SELECT uid, email, display_name, photo_url, phone_number, created_at, updated_at
		 FROM users WHERE uid = $1`, uid,
	).Scan(&u.UID, &u.Email, &u.DisplayName, &u.PhotoURL, &u.PhoneNumber,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", uid, store.ErrNotExist)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// ListAdmins returns every role record with admin rights.
func (r *UserRepository) ListAdmins(ctx context.Context) ([]model.UserRole, error) {
	rows, err := r.db.Query(ctx,
		`SELECT user_id, is_admin, permissions FROM user_roles WHERE is_admin`)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	var roles []model.UserRole
	for rows.Next() {
		var role model.UserRole
		if err := rows.Scan(&role.UserID, &role.IsAdmin, &role.Permissions); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}
