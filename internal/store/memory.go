package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/johnamet/faithvibe/internal/model"
)

// prayerActions is an internal collection backing the per-user prayer
// guard. It is never exposed through the change feed.
const prayerActions Collection = "prayerActions"

type docKey struct {
	col Collection
	id  string
}

// Memory is an in-memory Store with optimistic conflict detection:
// every transactional read captures the document's version, and Commit
// fails with ErrTxConflict if any read document has since been changed
// by another committed transaction. This mirrors the consistency model
// of the production backend closely enough to drive the concurrency
// tests in-process.
type Memory struct {
	mu        sync.Mutex
	docs      map[docKey]any
	versions  map[docKey]uint64
	watchers  map[int]chan Change
	nextWatch int
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		docs:     make(map[docKey]any),
		versions: make(map[docKey]uint64),
		watchers: make(map[int]chan Change),
	}
}

// Begin opens a transaction. The returned Tx buffers writes locally and
// applies them atomically on Commit.
func (m *Memory) Begin(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &memTx{
		m:       m,
		reads:   make(map[docKey]uint64),
		overlay: make(map[docKey]any),
		kinds:   make(map[docKey]ChangeKind),
	}, nil
}

// Watch subscribes to committed changes. Slow consumers drop changes
// rather than blocking committers.
func (m *Memory) Watch(ctx context.Context) (<-chan Change, func()) {
	ch := make(chan Change, 64)
	m.mu.Lock()
	id := m.nextWatch
	m.nextWatch++
	m.watchers[id] = ch
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		if _, ok := m.watchers[id]; ok {
			delete(m.watchers, id)
			close(ch)
		}
		m.mu.Unlock()
	}
	return ch, cancel
}

// broadcast delivers changes to watchers. Caller holds m.mu.
func (m *Memory) broadcast(changes []Change) {
	for _, ch := range m.watchers {
		for _, c := range changes {
			select {
			case ch <- c:
			default:
			}
		}
	}
}

// memTx implements Tx over Memory. Reads consult the local overlay
// first, so a transaction observes its own writes.
type memTx struct {
	m       *Memory
	reads   map[docKey]uint64
	overlay map[docKey]any // tombstone: nil value
	kinds   map[docKey]ChangeKind
	done    bool
}

var errTxDone = errors.New("store: transaction already resolved")

// read fetches a document copy, capturing the base version on first
// access. ok is false when the document does not exist.
func (t *memTx) read(k docKey) (any, bool) {
	if doc, hit := t.overlay[k]; hit {
		return doc, doc != nil
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	t.reads[k] = t.m.versions[k]
	doc, ok := t.m.docs[k]
	return doc, ok
}

func (t *memTx) put(k docKey, doc any, kind ChangeKind) {
	t.overlay[k] = doc
	if prev, ok := t.kinds[k]; !ok || prev != Created {
		t.kinds[k] = kind
	}
}

// insert records a create; uniqueness of the key is re-validated at
// commit time.
func (t *memTx) insert(k docKey, doc any) error {
	if _, exists := t.read(k); exists {
		return fmt.Errorf("%s %s: %w", k.col, k.id, ErrDuplicate)
	}
	t.overlay[k] = doc
	t.kinds[k] = Created
	return nil
}

// update requires the document to exist (existence observed through the
// transaction, so it participates in conflict detection).
func (t *memTx) update(k docKey, doc any) error {
	if _, ok := t.read(k); !ok {
		return fmt.Errorf("%s %s: %w", k.col, k.id, ErrNotExist)
	}
	t.put(k, doc, Updated)
	return nil
}

func (t *memTx) delete(k docKey) error {
	if _, ok := t.read(k); !ok {
		return fmt.Errorf("%s %s: %w", k.col, k.id, ErrNotExist)
	}
	t.put(k, nil, Deleted)
	return nil
}

// Commit validates every captured read version against the base store
// and, if none moved, applies the overlay atomically and notifies
// watchers.
func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return errTxDone
	}
	t.done = true
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	for k, v := range t.reads {
		if t.m.versions[k] != v {
			return fmt.Errorf("%s %s changed concurrently: %w", k.col, k.id, ErrTxConflict)
		}
	}
	// Keys written blind (created without an overlapping read) must
	// still be unique.
	for k, kind := range t.kinds {
		if kind != Created {
			continue
		}
		if _, tracked := t.reads[k]; !tracked && t.m.versions[k] != 0 {
			return fmt.Errorf("%s %s: %w", k.col, k.id, ErrDuplicate)
		}
	}

	changes := make([]Change, 0, len(t.overlay))
	for k, doc := range t.overlay {
		t.m.versions[k]++
		if doc == nil {
			delete(t.m.docs, k)
		} else {
			t.m.docs[k] = doc
		}
		if k.col == prayerActions {
			continue
		}
		changes = append(changes, Change{Collection: k.col, ID: k.id, Kind: t.kinds[k]})
	}
	t.m.broadcast(changes)
	return nil
}

// Rollback discards the transaction. Calling it after Commit is a no-op.
func (t *memTx) Rollback(ctx context.Context) error {
	t.done = true
	return nil
}

// ── Events ───────────────────────────────────────────────────────────────

func (t *memTx) Event(ctx context.Context, id string) (*model.Event, error) {
	doc, ok := t.read(docKey{Events, id})
	if !ok {
		return nil, fmt.Errorf("event %s: %w", id, ErrNotExist)
	}
	e := doc.(model.Event)
	return &e, nil
}

func (t *memTx) InsertEvent(ctx context.Context, e *model.Event) error {
	return t.insert(docKey{Events, e.ID}, *e)
}

func (t *memTx) UpdateEvent(ctx context.Context, e *model.Event) error {
	return t.update(docKey{Events, e.ID}, *e)
}

func (t *memTx) DeleteEvent(ctx context.Context, id string) error {
	return t.delete(docKey{Events, id})
}

func (t *memTx) HasRegistration(ctx context.Context, eventID, userID string) (bool, error) {
	found := false
	t.scan(EventRegistrations, func(doc any) {
		r := doc.(model.EventRegistration)
		if r.EventID == eventID && r.UserID == userID {
			found = true
		}
	})
	return found, nil
}

func (t *memTx) InsertRegistration(ctx context.Context, r *model.EventRegistration) error {
	return t.insert(docKey{EventRegistrations, r.ID}, *r)
}

func (t *memTx) DeleteRegistrationsForEvent(ctx context.Context, eventID string) (int64, error) {
	var keys []docKey
	t.scanKeys(EventRegistrations, func(k docKey, doc any) {
		if doc.(model.EventRegistration).EventID == eventID {
			keys = append(keys, k)
		}
	})
	for _, k := range keys {
		if err := t.delete(k); err != nil {
			return 0, err
		}
	}
	return int64(len(keys)), nil
}

// scan visits every live document of a collection, overlay included.
func (t *memTx) scan(col Collection, fn func(doc any)) {
	t.scanKeys(col, func(_ docKey, doc any) { fn(doc) })
}

func (t *memTx) scanKeys(col Collection, fn func(k docKey, doc any)) {
	t.m.mu.Lock()
	base := make(map[docKey]any)
	for k, doc := range t.m.docs {
		if k.col == col {
			base[k] = doc
		}
	}
	t.m.mu.Unlock()
	for k, doc := range t.overlay {
		if k.col != col {
			continue
		}
		if doc == nil {
			delete(base, k)
		} else {
			base[k] = doc
		}
	}
	for k, doc := range base {
		fn(k, doc)
	}
}

// ── Products ─────────────────────────────────────────────────────────────

func (t *memTx) Product(ctx context.Context, id string) (*model.Product, error) {
	doc, ok := t.read(docKey{Products, id})
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotExist)
	}
	p := doc.(model.Product)
	return &p, nil
}

func (t *memTx) InsertProduct(ctx context.Context, p *model.Product) error {
	return t.insert(docKey{Products, p.ID}, *p)
}

func (t *memTx) UpdateProduct(ctx context.Context, p *model.Product) error {
	return t.update(docKey{Products, p.ID}, *p)
}

func (t *memTx) DeleteProduct(ctx context.Context, id string) error {
	return t.delete(docKey{Products, id})
}

// ── Orders ───────────────────────────────────────────────────────────────

func (t *memTx) Order(ctx context.Context, id string) (*model.Order, error) {
	doc, ok := t.read(docKey{Orders, id})
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotExist)
	}
	o := doc.(model.Order)
	o.Items = append([]model.OrderItem(nil), o.Items...)
	return &o, nil
}

func (t *memTx) InsertOrder(ctx context.Context, o *model.Order) error {
	cp := *o
	cp.Items = append([]model.OrderItem(nil), o.Items...)
	return t.insert(docKey{Orders, o.ID}, cp)
}

func (t *memTx) UpdateOrder(ctx context.Context, o *model.Order) error {
	cp := *o
	cp.Items = append([]model.OrderItem(nil), o.Items...)
	return t.update(docKey{Orders, o.ID}, cp)
}

// ── Prayer requests ──────────────────────────────────────────────────────

func (t *memTx) PrayerRequest(ctx context.Context, id string) (*model.PrayerRequest, error) {
	doc, ok := t.read(docKey{PrayerRequests, id})
	if !ok {
		return nil, fmt.Errorf("prayer request %s: %w", id, ErrNotExist)
	}
	r := doc.(model.PrayerRequest)
	return &r, nil
}

func (t *memTx) InsertPrayerRequest(ctx context.Context, r *model.PrayerRequest) error {
	return t.insert(docKey{PrayerRequests, r.ID}, *r)
}

func (t *memTx) UpdatePrayerRequest(ctx context.Context, r *model.PrayerRequest) error {
	return t.update(docKey{PrayerRequests, r.ID}, *r)
}

func (t *memTx) DeletePrayerRequest(ctx context.Context, id string) error {
	return t.delete(docKey{PrayerRequests, id})
}

func (t *memTx) HasPrayerAction(ctx context.Context, requestID, userID string) (bool, error) {
	_, ok := t.read(docKey{prayerActions, requestID + "/" + userID})
	return ok, nil
}

func (t *memTx) InsertPrayerAction(ctx context.Context, requestID, userID string) error {
	return t.insert(docKey{prayerActions, requestID + "/" + userID}, struct{}{})
}

// ── Devotionals ──────────────────────────────────────────────────────────

func (t *memTx) Devotional(ctx context.Context, id string) (*model.Devotional, error) {
	doc, ok := t.read(docKey{Devotionals, id})
	if !ok {
		return nil, fmt.Errorf("devotional %s: %w", id, ErrNotExist)
	}
	d := doc.(model.Devotional)
	return &d, nil
}

func (t *memTx) InsertDevotional(ctx context.Context, d *model.Devotional) error {
	return t.insert(docKey{Devotionals, d.ID}, *d)
}

func (t *memTx) UpdateDevotional(ctx context.Context, d *model.Devotional) error {
	return t.update(docKey{Devotionals, d.ID}, *d)
}

func (t *memTx) DeleteDevotional(ctx context.Context, id string) error {
	return t.delete(docKey{Devotionals, id})
}

// ── Users & roles ────────────────────────────────────────────────────────

func (t *memTx) Role(ctx context.Context, userID string) (*model.UserRole, error) {
	doc, ok := t.read(docKey{UserRoles, userID})
	if !ok {
		return nil, fmt.Errorf("role %s: %w", userID, ErrNotExist)
	}
	r := doc.(model.UserRole)
	r.Permissions = append([]string(nil), r.Permissions...)
	return &r, nil
}

func (t *memTx) PutRole(ctx context.Context, r *model.UserRole) error {
	cp := *r
	cp.Permissions = append([]string(nil), r.Permissions...)
	k := docKey{UserRoles, r.UserID}
	if _, ok := t.read(k); ok {
		t.put(k, cp, Updated)
	} else {
		t.put(k, cp, Created)
	}
	return nil
}

func (t *memTx) User(ctx context.Context, uid string) (*model.UserData, error) {
	doc, ok := t.read(docKey{Users, uid})
	if !ok {
		return nil, fmt.Errorf("user %s: %w", uid, ErrNotExist)
	}
	u := doc.(model.UserData)
	return &u, nil
}

func (t *memTx) PutUser(ctx context.Context, u *model.UserData) error {
	k := docKey{Users, u.UID}
	if _, ok := t.read(k); ok {
		t.put(k, *u, Updated)
	} else {
		t.put(k, *u, Created)
	}
	return nil
}
