package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/johnamet/faithvibe/internal/model"
)

// changeChannel is the LISTEN/NOTIFY channel carrying the committed
// change feed. Notifications are emitted inside the transaction, so
// Postgres delivers them only after a successful commit.
const changeChannel = "faithvibe_changes"

// Postgres is the production Store. Transactional reads take row-level
// locks (SELECT ... FOR UPDATE), which serialises concurrent
// read-then-write sequences on the same document; serialization
// failures and lock timeouts surface as ErrTxConflict.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps a connection pool in the Store contract.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Begin opens a database transaction.
func (s *Postgres) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, mapError(fmt.Errorf("begin transaction: %w", err))
	}
	return &pgTx{tx: tx}, nil
}

// Watch subscribes to the committed-change feed over a dedicated
// listening connection. The channel closes when the subscription ends.
func (s *Postgres) Watch(ctx context.Context) (<-chan Change, func()) {
	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan Change, 64)

	go func() {
		defer close(ch)
		conn, err := s.pool.Acquire(ctx)
		if err != nil {
			return
		}
		defer conn.Release()

		if _, err := conn.Exec(ctx, "LISTEN "+changeChannel); err != nil {
			return
		}
		for {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				return
			}
			var c Change
			if err := json.Unmarshal([]byte(n.Payload), &c); err != nil {
				continue
			}
			select {
			case ch <- c:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, cancel
}

// mapError normalises pgx/Postgres failures into the store's
// backend-agnostic error kinds. Anything unrecognised passes through
// unchanged.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w", ErrNotExist)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505":
			return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
		case pgErr.Code == "40001" || pgErr.Code == "40P01" || pgErr.Code == "55P03":
			return fmt.Errorf("%w: %v", ErrTxConflict, err)
		case strings.HasPrefix(pgErr.Code, "53"):
			return fmt.Errorf("%w: %v", ErrExhausted, err)
		case strings.HasPrefix(pgErr.Code, "08") || pgErr.Code == "57P03" || pgErr.Code == "57014":
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	return err
}

// pgTx implements Tx over a pgx transaction. Change notifications are
// buffered and emitted via pg_notify just before commit so watchers
// only ever observe committed state.
type pgTx struct {
	tx      pgx.Tx
	changes []Change
}

func (t *pgTx) note(col Collection, id string, kind ChangeKind) {
	t.changes = append(t.changes, Change{Collection: col, ID: id, Kind: kind})
}

func (t *pgTx) Commit(ctx context.Context) error {
	for _, c := range t.changes {
		payload, err := json.Marshal(c)
		if err != nil {
			return err
		}
		if _, err := t.tx.Exec(ctx, `SELECT pg_notify($1, $2)`, changeChannel, string(payload)); err != nil {
			return mapError(fmt.Errorf("notify change: %w", err))
		}
	}
	if err := t.tx.Commit(ctx); err != nil {
		return mapError(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

func (t *pgTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return mapError(err)
	}
	return nil
}

// ── Events ───────────────────────────────────────────────────────────────

// Event reads an event under an exclusive row lock. Concurrent
// transactions that touch the same row queue behind the lock, so the
// capacity check-then-increment in the service layer is race-free.
func (t *pgTx) Event(ctx context.Context, id string) (*model.Event, error) {
	var e model.Event
	err := t.tx.QueryRow(ctx,
		`SELECT id, title, date, time, location, category, description, image,
		        capacity, registrations, registration_open, featured, status,
		        created_at, updated_at
		 FROM events WHERE id = $1
		 FOR UPDATE`,
		id,
	).Scan(&e.ID, &e.Title, &e.Date, &e.Time, &e.Location, &e.Category,
		&e.Description, &e.Image, &e.Capacity, &e.Registrations,
		&e.RegistrationOpen, &e.Featured, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, mapError(fmt.Errorf("lock event row: %w", err))
	}
	return &e, nil
}

func (t *pgTx) InsertEvent(ctx context.Context, e *model.Event) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO events (id, title, date, time, location, category, description,
		                     image, capacity, registrations, registration_open,
		                     featured, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		e.ID, e.Title, e.Date, e.Time, e.Location, e.Category, e.Description,
		e.Image, e.Capacity, e.Registrations, e.RegistrationOpen,
		e.Featured, e.Status, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return mapError(fmt.Errorf("insert event: %w", err))
	}
	t.note(Events, e.ID, Created)
	return nil
}

func (t *pgTx) UpdateEvent(ctx context.Context, e *model.Event) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE events SET title = $2, date = $3, time = $4, location = $5,
		        category = $6, description = $7, image = $8, capacity = $9,
		        registrations = $10, registration_open = $11, featured = $12,
		        status = $13, updated_at = $14
		 WHERE id = $1`,
		e.ID, e.Title, e.Date, e.Time, e.Location, e.Category, e.Description,
		e.Image, e.Capacity, e.Registrations, e.RegistrationOpen,
		e.Featured, e.Status, e.UpdatedAt,
	)
	if err != nil {
		return mapError(fmt.Errorf("update event: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("event %s: %w", e.ID, ErrNotExist)
	}
	t.note(Events, e.ID, Updated)
	return nil
}

func (t *pgTx) DeleteEvent(ctx context.Context, id string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return mapError(fmt.Errorf("delete event: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("event %s: %w", id, ErrNotExist)
	}
	t.note(Events, id, Deleted)
	return nil
}

func (t *pgTx) HasRegistration(ctx context.Context, eventID, userID string) (bool, error) {
	var n int
	err := t.tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM event_registrations WHERE event_id = $1 AND user_id = $2`,
		eventID, userID,
	).Scan(&n)
	if err != nil {
		return false, mapError(fmt.Errorf("check registration: %w", err))
	}
	return n > 0, nil
}

func (t *pgTx) InsertRegistration(ctx context.Context, r *model.EventRegistration) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO event_registrations (id, event_id, user_id, registered_at)
		 VALUES ($1, $2, $3, $4)`,
		r.ID, r.EventID, r.UserID, r.RegisteredAt,
	)
	if err != nil {
		return mapError(fmt.Errorf("insert registration: %w", err))
	}
	t.note(EventRegistrations, r.ID, Created)
	return nil
}

func (t *pgTx) DeleteRegistrationsForEvent(ctx context.Context, eventID string) (int64, error) {
	tag, err := t.tx.Exec(ctx,
		`DELETE FROM event_registrations WHERE event_id = $1`, eventID)
	if err != nil {
		return 0, mapError(fmt.Errorf("delete registrations: %w", err))
	}
	return tag.RowsAffected(), nil
}

// ── Products ─────────────────────────────────────────────────────────────

func (t *pgTx) Product(ctx context.Context, id string) (*model.Product, error) {
	var p model.Product
	err := t.tx.QueryRow(ctx,
		`SELECT id, name, price, original_price, category, description, image,
		        stock, sale, featured, created_at, updated_at
		 FROM products WHERE id = $1
		 FOR UPDATE`,
		id,
	).Scan(&p.ID, &p.Name, &p.Price, &p.OriginalPrice, &p.Category,
		&p.Description, &p.Image, &p.Stock, &p.Sale, &p.Featured,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, mapError(fmt.Errorf("lock product row: %w", err))
	}
	return &p, nil
}

func (t *pgTx) InsertProduct(ctx context.Context, p *model.Product) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO products (id, name, price, original_price, category, description,
		                       image, stock, sale, featured, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		p.ID, p.Name, p.Price, p.OriginalPrice, p.Category, p.Description,
		p.Image, p.Stock, p.Sale, p.Featured, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return mapError(fmt.Errorf("insert product: %w", err))
	}
	t.note(Products, p.ID, Created)
	return nil
}

func (t *pgTx) UpdateProduct(ctx context.Context, p *model.Product) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE products SET name = $2, price = $3, original_price = $4,
		        category = $5, description = $6, image = $7, stock = $8,
		        sale = $9, featured = $10, updated_at = $11
		 WHERE id = $1`,
		p.ID, p.Name, p.Price, p.OriginalPrice, p.Category, p.Description,
		p.Image, p.Stock, p.Sale, p.Featured, p.UpdatedAt,
	)
	if err != nil {
		return mapError(fmt.Errorf("update product: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %s: %w", p.ID, ErrNotExist)
	}
	t.note(Products, p.ID, Updated)
	return nil
}

func (t *pgTx) DeleteProduct(ctx context.Context, id string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return mapError(fmt.Errorf("delete product: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %s: %w", id, ErrNotExist)
	}
	t.note(Products, id, Deleted)
	return nil
}

// ── Orders ───────────────────────────────────────────────────────────────

func (t *pgTx) Order(ctx context.Context, id string) (*model.Order, error) {
	var (
		o        model.Order
		items    []byte
		shipping []byte
	)
	err := t.tx.QueryRow(ctx,
		`SELECT id, user_id, user_email, user_name, items, total, status,
		        shipping_address, payment_method, payment_id, notes,
		        created_at, updated_at
		 FROM orders WHERE id = $1
		 FOR UPDATE`,
		id,
	).Scan(&o.ID, &o.UserID, &o.UserEmail, &o.UserName, &items, &o.Total,
		&o.Status, &shipping, &o.PaymentMethod, &o.PaymentID, &o.Notes,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, mapError(fmt.Errorf("lock order row: %w", err))
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode order items: %w", err)
	}
	if err := json.Unmarshal(shipping, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("decode shipping address: %w", err)
	}
	return &o, nil
}

func (t *pgTx) InsertOrder(ctx context.Context, o *model.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("encode order items: %w", err)
	}
	shipping, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("encode shipping address: %w", err)
	}
	_, err = t.tx.Exec(ctx,
		`INSERT INTO orders (id, user_id, user_email, user_name, items, total,
		                     status, shipping_address, payment_method, payment_id,
		                     notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		o.ID, o.UserID, o.UserEmail, o.UserName, items, o.Total,
		o.Status, shipping, o.PaymentMethod, o.PaymentID, o.Notes,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return mapError(fmt.Errorf("insert order: %w", err))
	}
	t.note(Orders, o.ID, Created)
	return nil
}

func (t *pgTx) UpdateOrder(ctx context.Context, o *model.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("encode order items: %w", err)
	}
	shipping, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("encode shipping address: %w", err)
	}
	tag, err := t.tx.Exec(ctx,
		`UPDATE orders SET user_email = $2, user_name = $3, items = $4, total = $5,
		        status = $6, shipping_address = $7, payment_method = $8,
		        payment_id = $9, notes = $10, updated_at = $11
		 WHERE id = $1`,
		o.ID, o.UserEmail, o.UserName, items, o.Total, o.Status, shipping,
		o.PaymentMethod, o.PaymentID, o.Notes, o.UpdatedAt,
	)
	if err != nil {
		return mapError(fmt.Errorf("update order: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %s: %w", o.ID, ErrNotExist)
	}
	t.note(Orders, o.ID, Updated)
	return nil
}

// ── Prayer requests ──────────────────────────────────────────────────────

func (t *pgTx) PrayerRequest(ctx context.Context, id string) (*model.PrayerRequest, error) {
	var r model.PrayerRequest
	err := t.tx.QueryRow(ctx,
		`SELECT id, name, request, user_id, is_anonymous, prayer_count, status, date
		 FROM prayer_requests WHERE id = $1
		 FOR UPDATE`,
		id,
	).Scan(&r.ID, &r.Name, &r.Request, &r.UserID, &r.IsAnonymous,
		&r.PrayerCount, &r.Status, &r.Date)
	if err != nil {
		return nil, mapError(fmt.Errorf("lock prayer request row: %w", err))
	}
	return &r, nil
}

func (t *pgTx) InsertPrayerRequest(ctx context.Context, r *model.PrayerRequest) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO prayer_requests (id, name, request, user_id, is_anonymous,
		                              prayer_count, status, date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.ID, r.Name, r.Request, r.UserID, r.IsAnonymous, r.PrayerCount,
		r.Status, r.Date,
	)
	if err != nil {
		return mapError(fmt.Errorf("insert prayer request: %w", err))
	}
	t.note(PrayerRequests, r.ID, Created)
	return nil
}

func (t *pgTx) UpdatePrayerRequest(ctx context.Context, r *model.PrayerRequest) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE prayer_requests SET name = $2, request = $3, is_anonymous = $4,
		        prayer_count = $5, status = $6
		 WHERE id = $1`,
		r.ID, r.Name, r.Request, r.IsAnonymous, r.PrayerCount, r.Status,
	)
	if err != nil {
		return mapError(fmt.Errorf("update prayer request: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("prayer request %s: %w", r.ID, ErrNotExist)
	}
	t.note(PrayerRequests, r.ID, Updated)
	return nil
}

func (t *pgTx) DeletePrayerRequest(ctx context.Context, id string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM prayer_requests WHERE id = $1`, id)
	if err != nil {
		return mapError(fmt.Errorf("delete prayer request: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("prayer request %s: %w", id, ErrNotExist)
	}
	t.note(PrayerRequests, id, Deleted)
	return nil
}

func (t *pgTx) HasPrayerAction(ctx context.Context, requestID, userID string) (bool, error) {
	var n int
	err := t.tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM prayer_actions WHERE request_id = $1 AND user_id = $2`,
		requestID, userID,
	).Scan(&n)
	if err != nil {
		return false, mapError(fmt.Errorf("check prayer action: %w", err))
	}
	return n > 0, nil
}

func (t *pgTx) InsertPrayerAction(ctx context.Context, requestID, userID string) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO prayer_actions (request_id, user_id, created_at)
		 VALUES ($1, $2, now())`,
		requestID, userID,
	)
	if err != nil {
		return mapError(fmt.Errorf("insert prayer action: %w", err))
	}
	return nil
}

// ── Devotionals ──────────────────────────────────────────────────────────

func (t *pgTx) Devotional(ctx context.Context, id string) (*model.Devotional, error) {
	var (
		d      model.Devotional
		author []byte
	)
	err := t.tx.QueryRow(ctx,
		`SELECT id, title, verse, verse_text, content, author, category,
		        likes, comments, status, date
		 FROM devotionals WHERE id = $1
		 FOR UPDATE`,
		id,
	).Scan(&d.ID, &d.Title, &d.Verse, &d.VerseText, &d.Content, &author,
		&d.Category, &d.Likes, &d.Comments, &d.Status, &d.Date)
	if err != nil {
		return nil, mapError(fmt.Errorf("lock devotional row: %w", err))
	}
	if err := json.Unmarshal(author, &d.Author); err != nil {
		return nil, fmt.Errorf("decode devotional author: %w", err)
	}
	return &d, nil
}

func (t *pgTx) InsertDevotional(ctx context.Context, d *model.Devotional) error {
	author, err := json.Marshal(d.Author)
	if err != nil {
		return fmt.Errorf("encode devotional author: %w", err)
	}
	_, err = t.tx.Exec(ctx,
		`INSERT INTO devotionals (id, title, verse, verse_text, content, author,
		                          category, likes, comments, status, date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		d.ID, d.Title, d.Verse, d.VerseText, d.Content, author,
		d.Category, d.Likes, d.Comments, d.Status, d.Date,
	)
	if err != nil {
		return mapError(fmt.Errorf("insert devotional: %w", err))
	}
	t.note(Devotionals, d.ID, Created)
	return nil
}

func (t *pgTx) UpdateDevotional(ctx context.Context, d *model.Devotional) error {
	author, err := json.Marshal(d.Author)
	if err != nil {
		return fmt.Errorf("encode devotional author: %w", err)
	}
	tag, err := t.tx.Exec(ctx,
		`UPDATE devotionals SET title = $2, verse = $3, verse_text = $4,
		        content = $5, author = $6, category = $7, likes = $8,
		        comments = $9, status = $10
		 WHERE id = $1`,
		d.ID, d.Title, d.Verse, d.VerseText, d.Content, author,
		d.Category, d.Likes, d.Comments, d.Status,
	)
	if err != nil {
		return mapError(fmt.Errorf("update devotional: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("devotional %s: %w", d.ID, ErrNotExist)
	}
	t.note(Devotionals, d.ID, Updated)
	return nil
}

func (t *pgTx) DeleteDevotional(ctx context.Context, id string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM devotionals WHERE id = $1`, id)
	if err != nil {
		return mapError(fmt.Errorf("delete devotional: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("devotional %s: %w", id, ErrNotExist)
	}
	t.note(Devotionals, id, Deleted)
	return nil
}

// ── Users & roles ────────────────────────────────────────────────────────

func (t *pgTx) Role(ctx context.Context, userID string) (*model.UserRole, error) {
	var r model.UserRole
	err := t.tx.QueryRow(ctx,
		`SELECT user_id, is_admin, permissions
		 FROM user_roles WHERE user_id = $1
		 FOR UPDATE`,
		userID,
	).Scan(&r.UserID, &r.IsAdmin, &r.Permissions)
	if err != nil {
		return nil, mapError(fmt.Errorf("lock role row: %w", err))
	}
	return &r, nil
}

func (t *pgTx) PutRole(ctx context.Context, r *model.UserRole) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO user_roles (user_id, is_admin, permissions)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id)
		 DO UPDATE SET is_admin = EXCLUDED.is_admin, permissions = EXCLUDED.permissions`,
		r.UserID, r.IsAdmin, r.Permissions,
	)
	if err != nil {
		return mapError(fmt.Errorf("put role: %w", err))
	}
	t.note(UserRoles, r.UserID, Updated)
	return nil
}

func (t *pgTx) User(ctx context.Context, uid string) (*model.UserData, error) {
	var u model.UserData
	err := t.tx.QueryRow(ctx,
		`SELECT uid, email, display_name, photo_url, phone_number, created_at, updated_at
		 FROM users WHERE uid = $1
		 FOR UPDATE`,
		uid,
	).Scan(&u.UID, &u.Email, &u.DisplayName, &u.PhotoURL, &u.PhoneNumber,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, mapError(fmt.Errorf("lock user row: %w", err))
	}
	return &u, nil
}

func (t *pgTx) PutUser(ctx context.Context, u *model.UserData) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO users (uid, email, display_name, photo_url, phone_number,
		                    created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (uid)
		 DO UPDATE SET email = EXCLUDED.email, display_name = EXCLUDED.display_name,
		               photo_url = EXCLUDED.photo_url, phone_number = EXCLUDED.phone_number,
		               updated_at = EXCLUDED.updated_at`,
		u.UID, u.Email, u.DisplayName, u.PhotoURL, u.PhoneNumber,
		u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return mapError(fmt.Errorf("put user: %w", err))
	}
	t.note(Users, u.UID, Updated)
	return nil
}
