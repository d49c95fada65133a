package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnamet/faithvibe/internal/model"
)

func seedEvent(t *testing.T, m *Memory, id string, capacity, registrations int) {
	t.Helper()
	ctx := context.Background()
	tx, err := m.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.InsertEvent(ctx, &model.Event{
		ID:            id,
		Title:         "Seed Event",
		Capacity:      capacity,
		Registrations: registrations,
	}))
	require.NoError(t, tx.Commit(ctx))
}

func TestMemory_ReadAfterCommit(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	ctx := context.Background()
	seedEvent(t, m, "e1", 10, 0)

	tx, err := m.Begin(ctx)
	require.NoError(t, err)
	e, err := tx.Event(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, 10, e.Capacity)
	require.NoError(t, tx.Rollback(ctx))
}

func TestMemory_MissingDocument(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	ctx := context.Background()

	tx, err := m.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.Event(ctx, "nope")
	require.ErrorIs(t, err, ErrNotExist)
	require.NoError(t, tx.Rollback(ctx))
}

func TestMemory_TxSeesOwnWrites(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	ctx := context.Background()

	tx, err := m.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.InsertEvent(ctx, &model.Event{ID: "e1", Capacity: 5}))
	e, err := tx.Event(ctx, "e1")
	require.NoError(t, err)
	e.Registrations = 3
	require.NoError(t, tx.UpdateEvent(ctx, e))

	e, err = tx.Event(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, 3, e.Registrations)
	require.NoError(t, tx.Commit(ctx))
}

func TestMemory_UncommittedWritesInvisible(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	ctx := context.Background()

	tx, err := m.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.InsertEvent(ctx, &model.Event{ID: "e1", Capacity: 5}))

	other, err := m.Begin(ctx)
	require.NoError(t, err)
	_, err = other.Event(ctx, "e1")
	require.ErrorIs(t, err, ErrNotExist)

	require.NoError(t, tx.Rollback(ctx))
	require.NoError(t, other.Rollback(ctx))
}

func TestMemory_ConflictOnConcurrentWrite(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	ctx := context.Background()
	seedEvent(t, m, "e1", 10, 0)

	tx1, err := m.Begin(ctx)
	require.NoError(t, err)
	tx2, err := m.Begin(ctx)
	require.NoError(t, err)

	e1, err := tx1.Event(ctx, "e1")
	require.NoError(t, err)
	e2, err := tx2.Event(ctx, "e1")
	require.NoError(t, err)

	e1.Registrations++
	require.NoError(t, tx1.UpdateEvent(ctx, e1))
	require.NoError(t, tx1.Commit(ctx))

	e2.Registrations++
	require.NoError(t, tx2.UpdateEvent(ctx, e2))
	require.ErrorIs(t, tx2.Commit(ctx), ErrTxConflict)

	// The losing transaction left no trace.
	tx3, err := m.Begin(ctx)
	require.NoError(t, err)
	e, err := tx3.Event(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, 1, e.Registrations)
	require.NoError(t, tx3.Rollback(ctx))
}

func TestMemory_ConflictOnReadOnlyDependency(t *testing.T) {
	t.Parallel()

	// A transaction that only read a document still fails when that
	// document moved underneath it.
	m := NewMemory()
	ctx := context.Background()
	seedEvent(t, m, "e1", 10, 0)

	tx, err := m.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.Event(ctx, "e1")
	require.NoError(t, err)
	require.NoError(t, tx.InsertProduct(ctx, &model.Product{ID: "p1", Name: "Hymnal"}))

	writer, err := m.Begin(ctx)
	require.NoError(t, err)
	e, err := writer.Event(ctx, "e1")
	require.NoError(t, err)
	e.Title = "Renamed"
	require.NoError(t, writer.UpdateEvent(ctx, e))
	require.NoError(t, writer.Commit(ctx))

	require.ErrorIs(t, tx.Commit(ctx), ErrTxConflict)
}

func TestMemory_DuplicateInsert(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	ctx := context.Background()
	seedEvent(t, m, "e1", 10, 0)

	tx, err := m.Begin(ctx)
	require.NoError(t, err)
	err = tx.InsertEvent(ctx, &model.Event{ID: "e1", Capacity: 3})
	require.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, tx.Rollback(ctx))
}

func TestMemory_DeleteRegistrationsForEvent(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	ctx := context.Background()
	seedEvent(t, m, "e1", 10, 2)
	seedEvent(t, m, "e2", 10, 1)

	tx, err := m.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.InsertRegistration(ctx, &model.EventRegistration{ID: "r1", EventID: "e1", UserID: "u1"}))
	require.NoError(t, tx.InsertRegistration(ctx, &model.EventRegistration{ID: "r2", EventID: "e1", UserID: "u2"}))
	require.NoError(t, tx.InsertRegistration(ctx, &model.EventRegistration{ID: "r3", EventID: "e2", UserID: "u1"}))
	require.NoError(t, tx.Commit(ctx))

	tx, err = m.Begin(ctx)
	require.NoError(t, err)
	n, err := tx.DeleteRegistrationsForEvent(ctx, "e1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	require.NoError(t, tx.Commit(ctx))

	tx, err = m.Begin(ctx)
	require.NoError(t, err)
	has, err := tx.HasRegistration(ctx, "e1", "u1")
	require.NoError(t, err)
	assert.False(t, has)
	has, err = tx.HasRegistration(ctx, "e2", "u1")
	require.NoError(t, err)
	assert.True(t, has)
	require.NoError(t, tx.Rollback(ctx))
}

func TestMemory_PrayerActionGuard(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	ctx := context.Background()

	tx, err := m.Begin(ctx)
	require.NoError(t, err)
	has, err := tx.HasPrayerAction(ctx, "req1", "u1")
	require.NoError(t, err)
	assert.False(t, has)
	require.NoError(t, tx.InsertPrayerAction(ctx, "req1", "u1"))
	require.NoError(t, tx.Commit(ctx))

	tx, err = m.Begin(ctx)
	require.NoError(t, err)
	has, err = tx.HasPrayerAction(ctx, "req1", "u1")
	require.NoError(t, err)
	assert.True(t, has)
	err = tx.InsertPrayerAction(ctx, "req1", "u1")
	require.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, tx.Rollback(ctx))
}

func TestMemory_WatchDeliversCommittedChanges(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	ctx := context.Background()

	changes, cancel := m.Watch(ctx)
	defer cancel()

	seedEvent(t, m, "e1", 10, 0)

	select {
	case c := <-changes:
		assert.Equal(t, Events, c.Collection)
		assert.Equal(t, "e1", c.ID)
		assert.Equal(t, Created, c.Kind)
	case <-time.After(time.Second):
		t.Fatal("no change delivered")
	}
}

func TestMemory_WatchSkipsRolledBack(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	ctx := context.Background()

	changes, cancel := m.Watch(ctx)
	defer cancel()

	tx, err := m.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.InsertEvent(ctx, &model.Event{ID: "e1", Capacity: 1}))
	require.NoError(t, tx.Rollback(ctx))

	select {
	case c := <-changes:
		t.Fatalf("unexpected change: %+v", c)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemory_WatchCancelClosesChannel(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	changes, cancel := m.Watch(context.Background())
	cancel()
	_, ok := <-changes
	assert.False(t, ok)
}
