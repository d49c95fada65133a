package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnamet/faithvibe/internal/auth"
	"github.com/johnamet/faithvibe/internal/model"
	"github.com/johnamet/faithvibe/internal/store"
)

func newTestGate() (*Gate, *store.Memory) {
	st := store.NewMemory()
	return NewGate(st, testLogger()), st
}

func grantAdmin(t *testing.T, st *store.Memory, uid string) {
	t.Helper()
	ctx := context.Background()
	tx, err := st.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.PutRole(ctx, &model.UserRole{UserID: uid, IsAdmin: true}))
	require.NoError(t, tx.Commit(ctx))
}

func TestResolveRole_LazyDefault(t *testing.T) {
	t.Parallel()

	gate, st := newTestGate()
	ctx := context.Background()

	role, err := gate.ResolveRole(ctx, "new-user")
	require.NoError(t, err)
	assert.Equal(t, "new-user", role.UserID)
	assert.False(t, role.IsAdmin)

	// The default was persisted, not just returned.
	tx, err := st.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)
	stored, err := tx.Role(ctx, "new-user")
	require.NoError(t, err)
	assert.False(t, stored.IsAdmin)
}

func TestResolveRole_ExistingUntouched(t *testing.T) {
	t.Parallel()

	gate, st := newTestGate()
	grantAdmin(t, st, "admin-1")

	role, err := gate.ResolveRole(context.Background(), "admin-1")
	require.NoError(t, err)
	assert.True(t, role.IsAdmin)
}

func TestResolveRole_ConcurrentFirstResolution(t *testing.T) {
	t.Parallel()

	gate, st := newTestGate()
	ctx := context.Background()

	const callers = 8
	var wg sync.WaitGroup
	roles := make([]*model.UserRole, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			roles[i], errs[i] = gate.ResolveRole(ctx, "same-user")
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.False(t, roles[i].IsAdmin)
	}

	tx, err := st.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)
	stored, err := tx.Role(ctx, "same-user")
	require.NoError(t, err)
	assert.False(t, stored.IsAdmin)
}

func TestRequireAuthenticated(t *testing.T) {
	t.Parallel()

	gate, _ := newTestGate()

	require.ErrorIs(t, gate.RequireAuthenticated(nil), ErrPermissionDenied)
	require.ErrorIs(t, gate.RequireAuthenticated(&auth.Identity{}), ErrPermissionDenied)
	require.NoError(t, gate.RequireAuthenticated(&auth.Identity{UID: "u1"}))
}

func TestRequireAdmin(t *testing.T) {
	t.Parallel()

	gate, st := newTestGate()
	ctx := context.Background()
	grantAdmin(t, st, "admin-1")

	require.NoError(t, gate.RequireAdmin(ctx, &auth.Identity{UID: "admin-1"}))
	require.ErrorIs(t, gate.RequireAdmin(ctx, &auth.Identity{UID: "member-1"}), ErrPermissionDenied)
	require.ErrorIs(t, gate.RequireAdmin(ctx, nil), ErrPermissionDenied)
}

func TestSetUserRole_Grant(t *testing.T) {
	t.Parallel()

	gate, st := newTestGate()
	ctx := context.Background()
	grantAdmin(t, st, "admin-1")
	caller := &auth.Identity{UID: "admin-1"}

	require.NoError(t, gate.SetUserRole(ctx, caller, "member-1", true))

	role, err := gate.ResolveRole(ctx, "member-1")
	require.NoError(t, err)
	assert.True(t, role.IsAdmin)

	// And revocation of someone else works.
	require.NoError(t, gate.SetUserRole(ctx, caller, "member-1", false))
	role, err = gate.ResolveRole(ctx, "member-1")
	require.NoError(t, err)
	assert.False(t, role.IsAdmin)
}

func TestSetUserRole_SelfDemotionRejected(t *testing.T) {
	t.Parallel()

	gate, st := newTestGate()
	ctx := context.Background()
	grantAdmin(t, st, "admin-1")
	caller := &auth.Identity{UID: "admin-1"}

	err := gate.SetUserRole(ctx, caller, "admin-1", false)
	require.ErrorIs(t, err, ErrPermissionDenied)

	// Still admin afterwards.
	role, err := gate.ResolveRole(ctx, "admin-1")
	require.NoError(t, err)
	assert.True(t, role.IsAdmin)

	// Re-granting yourself admin is a no-op, not an error path.
	require.NoError(t, gate.SetUserRole(ctx, caller, "admin-1", true))
}

func TestSetUserRole_NonAdminCaller(t *testing.T) {
	t.Parallel()

	gate, _ := newTestGate()
	err := gate.SetUserRole(context.Background(), &auth.Identity{UID: "member-1"}, "member-2", true)
	require.ErrorIs(t, err, ErrPermissionDenied)
}

func TestSyncUser(t *testing.T) {
	t.Parallel()

	gate, _ := newTestGate()
	ctx := context.Background()
	id := &auth.Identity{UID: "u1", Email: "sam@example.org", Name: "Sam"}

	user, err := gate.SyncUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "u1", user.UID)
	assert.Equal(t, "sam@example.org", user.Email)
	assert.False(t, user.CreatedAt.IsZero())
	created := user.CreatedAt

	// A second sync updates the profile but keeps the creation time.
	id.Name = "Samuel"
	user, err = gate.SyncUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Samuel", user.DisplayName)
	assert.Equal(t, created, user.CreatedAt)

	_, err = gate.SyncUser(ctx, nil)
	require.ErrorIs(t, err, ErrPermissionDenied)
}
