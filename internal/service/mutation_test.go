package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnamet/faithvibe/internal/model"
	"github.com/johnamet/faithvibe/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestMutations() (*MutationService, *store.Memory) {
	st := store.NewMemory()
	return NewMutationService(st, testLogger()), st
}

func validEventInput() model.CreateEventInput {
	return model.CreateEventInput{
		Title:       "Worship Night",
		Date:        "2026-09-12",
		Time:        "19:00",
		Location:    "Main Hall",
		Category:    "worship",
		Description: "An evening of worship and fellowship.",
		Capacity:    50,
	}
}

func mustCreateEvent(t *testing.T, svc *MutationService, capacity int) *model.Event {
	t.Helper()
	in := validEventInput()
	in.Capacity = capacity
	e, err := svc.CreateEvent(context.Background(), in)
	require.NoError(t, err)
	return e
}

func readEvent(t *testing.T, st *store.Memory, id string) *model.Event {
	t.Helper()
	ctx := context.Background()
	tx, err := st.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)
	e, err := tx.Event(ctx, id)
	require.NoError(t, err)
	return e
}

func TestCreateEvent(t *testing.T) {
	t.Parallel()

	svc, st := newTestMutations()
	e, err := svc.CreateEvent(context.Background(), validEventInput())
	require.NoError(t, err)

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, 0, e.Registrations)
	assert.Equal(t, model.EventUpcoming, e.Status)
	assert.False(t, e.CreatedAt.IsZero())
	assert.Equal(t, e.CreatedAt, e.UpdatedAt)

	stored := readEvent(t, st, e.ID)
	assert.Equal(t, "Worship Night", stored.Title)
}

func TestCreateEvent_Validation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestMutations()
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*model.CreateEventInput)
	}{
		{"short title", func(in *model.CreateEventInput) { in.Title = "ab" }},
		{"bad date", func(in *model.CreateEventInput) { in.Date = "12-09-2026" }},
		{"bad time", func(in *model.CreateEventInput) { in.Time = "7pm" }},
		{"zero capacity", func(in *model.CreateEventInput) { in.Capacity = 0 }},
		{"negative capacity", func(in *model.CreateEventInput) { in.Capacity = -5 }},
		{"unknown status", func(in *model.CreateEventInput) { in.Status = "paused" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := validEventInput()
			tc.mutate(&in)
			_, err := svc.CreateEvent(ctx, in)
			require.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestUpdateEvent_Patch(t *testing.T) {
	t.Parallel()

	svc, _ := newTestMutations()
	ctx := context.Background()
	e := mustCreateEvent(t, svc, 50)

	title := "Worship Night (Rescheduled)"
	featured := true
	updated, err := svc.UpdateEvent(ctx, e.ID, model.EventPatch{Title: &title, Featured: &featured})
	require.NoError(t, err)

	assert.Equal(t, title, updated.Title)
	assert.True(t, updated.Featured)
	// Untouched fields survive.
	assert.Equal(t, e.Location, updated.Location)
	assert.Equal(t, e.Capacity, updated.Capacity)
	assert.True(t, updated.UpdatedAt.After(e.UpdatedAt) || updated.UpdatedAt.Equal(e.UpdatedAt))
}

func TestUpdateEvent_CapacityBelowRegistrations(t *testing.T) {
	t.Parallel()

	svc, _ := newTestMutations()
	ctx := context.Background()
	e := mustCreateEvent(t, svc, 3)
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.RegisterForEvent(ctx, e.ID, fmt.Sprintf("user-%d", i)))
	}

	two := 2
	_, err := svc.UpdateEvent(ctx, e.ID, model.EventPatch{Capacity: &two})
	require.ErrorIs(t, err, ErrValidation)
}

func TestUpdateEvent_NotFound(t *testing.T) {
	t.Parallel()

	svc, _ := newTestMutations()
	title := "New Title"
	_, err := svc.UpdateEvent(context.Background(), "missing", model.EventPatch{Title: &title})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRegisterForEvent(t *testing.T) {
	t.Parallel()

	svc, st := newTestMutations()
	ctx := context.Background()
	e := mustCreateEvent(t, svc, 50)

	require.NoError(t, svc.RegisterForEvent(ctx, e.ID, "user-1"))

	stored := readEvent(t, st, e.ID)
	assert.Equal(t, 1, stored.Registrations)

	tx, err := st.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)
	has, err := tx.HasRegistration(ctx, e.ID, "user-1")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestRegisterForEvent_Duplicate(t *testing.T) {
	t.Parallel()

	svc, st := newTestMutations()
	ctx := context.Background()
	e := mustCreateEvent(t, svc, 50)

	require.NoError(t, svc.RegisterForEvent(ctx, e.ID, "user-1"))
	err := svc.RegisterForEvent(ctx, e.ID, "user-1")
	require.ErrorIs(t, err, ErrConflict)

	// The duplicate attempt left the counter alone.
	assert.Equal(t, 1, readEvent(t, st, e.ID).Registrations)
}

func TestRegisterForEvent_LastSeatThenFull(t *testing.T) {
	t.Parallel()

	svc, st := newTestMutations()
	ctx := context.Background()
	e := mustCreateEvent(t, svc, 50)
	for i := 0; i < 49; i++ {
		require.NoError(t, svc.RegisterForEvent(ctx, e.ID, fmt.Sprintf("user-%d", i)))
	}

	// Seat 50 succeeds, seat 51 is refused.
	require.NoError(t, svc.RegisterForEvent(ctx, e.ID, "user-49"))
	err := svc.RegisterForEvent(ctx, e.ID, "user-50")
	require.ErrorIs(t, err, ErrCapacityExceeded)

	assert.Equal(t, 50, readEvent(t, st, e.ID).Registrations)
}

func TestRegisterForEvent_NotFound(t *testing.T) {
	t.Parallel()

	svc, _ := newTestMutations()
	err := svc.RegisterForEvent(context.Background(), "missing", "user-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRegisterForEvent_MissingUser(t *testing.T) {
	t.Parallel()

	svc, _ := newTestMutations()
	e := mustCreateEvent(t, svc, 5)
	err := svc.RegisterForEvent(context.Background(), e.ID, "")
	require.ErrorIs(t, err, ErrValidation)
}

func TestRegisterForEvent_ConcurrentSingleSeat(t *testing.T) {
	t.Parallel()

	svc, st := newTestMutations()
	ctx := context.Background()
	e := mustCreateEvent(t, svc, 1)

	const callers = 8
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.RegisterForEvent(ctx, e.ID, fmt.Sprintf("user-%d", i))
		}(i)
	}
	wg.Wait()

	var won int
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			require.True(t, isDomain(err), "unexpected error kind: %v", err)
		}
	}
	assert.Equal(t, 1, won, "exactly one caller may claim the seat")
	assert.Equal(t, 1, readEvent(t, st, e.ID).Registrations)
}

func TestRegisterForEvent_ConcurrentNeverOverbooks(t *testing.T) {
	t.Parallel()

	svc, st := newTestMutations()
	ctx := context.Background()
	const capacity = 5
	e := mustCreateEvent(t, svc, capacity)

	const callers = 20
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = svc.RegisterForEvent(ctx, e.ID, fmt.Sprintf("user-%d", i))
		}(i)
	}
	wg.Wait()

	stored := readEvent(t, st, e.ID)
	assert.LessOrEqual(t, stored.Registrations, capacity)
	assert.GreaterOrEqual(t, stored.Registrations, 1)
}

func TestDeleteEvent_CascadesRegistrations(t *testing.T) {
	t.Parallel()

	svc, st := newTestMutations()
	ctx := context.Background()
	e := mustCreateEvent(t, svc, 10)
	other := mustCreateEvent(t, svc, 10)
	require.NoError(t, svc.RegisterForEvent(ctx, e.ID, "user-1"))
	require.NoError(t, svc.RegisterForEvent(ctx, e.ID, "user-2"))
	require.NoError(t, svc.RegisterForEvent(ctx, other.ID, "user-1"))

	require.NoError(t, svc.DeleteEvent(ctx, e.ID))

	tx, err := st.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)
	_, err = tx.Event(ctx, e.ID)
	require.ErrorIs(t, err, store.ErrNotExist)
	has, err := tx.HasRegistration(ctx, e.ID, "user-1")
	require.NoError(t, err)
	assert.False(t, has)
	// Registrations on other events are untouched.
	has, err = tx.HasRegistration(ctx, other.ID, "user-1")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestDeleteEvent_NotFound(t *testing.T) {
	t.Parallel()

	svc, _ := newTestMutations()
	err := svc.DeleteEvent(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateOrder_RecomputesTotal(t *testing.T) {
	t.Parallel()

	svc, _ := newTestMutations()
	ctx := context.Background()

	in := model.CreateOrderInput{
		UserEmail: "member@example.org",
		UserName:  "Jordan Member",
		Items: []model.OrderItem{
			{ProductID: "p1", ProductName: "Hymnal", Price: 12.50, Quantity: 2},
			{ProductID: "p2", ProductName: "Candle", Price: 4.25, Quantity: 1},
		},
		Total:         29.25,
		PaymentMethod: "card",
	}
	o, err := svc.CreateOrder(ctx, "user-1", in)
	require.NoError(t, err)

	assert.Equal(t, model.OrderPending, o.Status)
	assert.Equal(t, "user-1", o.UserID)
	assert.InDelta(t, 29.25, o.Total, 0.001)
}

func TestCreateOrder_TotalMismatch(t *testing.T) {
	t.Parallel()

	svc, _ := newTestMutations()
	in := model.CreateOrderInput{
		UserEmail: "member@example.org",
		UserName:  "Jordan Member",
		Items: []model.OrderItem{
			{ProductID: "p1", ProductName: "Hymnal", Price: 12.50, Quantity: 2},
		},
		Total:         20.00,
		PaymentMethod: "card",
	}
	_, err := svc.CreateOrder(context.Background(), "user-1", in)
	require.ErrorIs(t, err, ErrValidation)
}

func TestCreateOrder_BadLineItem(t *testing.T) {
	t.Parallel()

	svc, _ := newTestMutations()
	in := model.CreateOrderInput{
		UserEmail: "member@example.org",
		UserName:  "Jordan Member",
		Items: []model.OrderItem{
			{ProductID: "p1", ProductName: "Hymnal", Price: 12.50, Quantity: 0},
		},
		Total:         12.50,
		PaymentMethod: "card",
	}
	_, err := svc.CreateOrder(context.Background(), "user-1", in)
	require.ErrorIs(t, err, ErrValidation)
}

func TestUpdateOrderStatus(t *testing.T) {
	t.Parallel()

	svc, _ := newTestMutations()
	ctx := context.Background()
	o, err := svc.CreateOrder(ctx, "user-1", model.CreateOrderInput{
		UserEmail:     "member@example.org",
		UserName:      "Jordan Member",
		Items:         []model.OrderItem{{ProductID: "p1", ProductName: "Hymnal", Price: 10, Quantity: 1}},
		Total:         10,
		PaymentMethod: "card",
	})
	require.NoError(t, err)

	updated, err := svc.UpdateOrderStatus(ctx, o.ID, model.OrderShipped)
	require.NoError(t, err)
	assert.Equal(t, model.OrderShipped, updated.Status)

	_, err = svc.UpdateOrderStatus(ctx, o.ID, "teleported")
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.UpdateOrderStatus(ctx, "missing", model.OrderShipped)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreatePrayerRequest_AnonymousMasksName(t *testing.T) {
	t.Parallel()

	svc, _ := newTestMutations()
	r, err := svc.CreatePrayerRequest(context.Background(), "user-1", model.CreatePrayerRequestInput{
		Name:        "Jordan Member",
		Request:     "Please pray for my family this week.",
		IsAnonymous: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Anonymous", r.Name)
	assert.Equal(t, model.PrayerActive, r.Status)
	assert.Equal(t, 0, r.PrayerCount)
}

func TestPrayForRequest_OncePerUser(t *testing.T) {
	t.Parallel()

	svc, _ := newTestMutations()
	ctx := context.Background()
	r, err := svc.CreatePrayerRequest(ctx, "user-1", model.CreatePrayerRequestInput{
		Name:    "Jordan Member",
		Request: "Please pray for my family this week.",
	})
	require.NoError(t, err)

	updated, err := svc.PrayForRequest(ctx, r.ID, "user-2")
	require.NoError(t, err)
	assert.Equal(t, 1, updated.PrayerCount)

	_, err = svc.PrayForRequest(ctx, r.ID, "user-2")
	require.ErrorIs(t, err, ErrConflict)

	// A different user still counts.
	updated, err = svc.PrayForRequest(ctx, r.ID, "user-3")
	require.NoError(t, err)
	assert.Equal(t, 2, updated.PrayerCount)
}

func TestPrayForRequest_ConcurrentSameUser(t *testing.T) {
	t.Parallel()

	svc, _ := newTestMutations()
	ctx := context.Background()
	r, err := svc.CreatePrayerRequest(ctx, "user-1", model.CreatePrayerRequestInput{
		Name:    "Jordan Member",
		Request: "Please pray for my family this week.",
	})
	require.NoError(t, err)

	const callers = 6
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.PrayForRequest(ctx, r.ID, "same-user")
		}(i)
	}
	wg.Wait()

	var won int
	for _, err := range errs {
		if err == nil {
			won++
		}
	}
	assert.Equal(t, 1, won)

	final, err := svc.PrayForRequest(ctx, r.ID, "other-user")
	require.NoError(t, err)
	assert.Equal(t, 2, final.PrayerCount)
}

func TestDevotionalLifecycle(t *testing.T) {
	t.Parallel()

	svc, _ := newTestMutations()
	ctx := context.Background()
	author := model.Author{ID: "admin-1", Name: "Pastor Sam"}

	d, err := svc.CreateDevotional(ctx, author, model.CreateDevotionalInput{
		Title:     "Morning Light",
		Verse:     "Psalm 27:1",
		VerseText: "The Lord is my light and my salvation.",
		Content:   "A reflection on trusting God through uncertainty.",
	})
	require.NoError(t, err)
	assert.Equal(t, model.DevotionalDraft, d.Status)
	assert.Equal(t, author, d.Author)

	published := model.DevotionalPublished
	d, err = svc.UpdateDevotional(ctx, d.ID, model.DevotionalPatch{Status: &published})
	require.NoError(t, err)
	assert.Equal(t, model.DevotionalPublished, d.Status)

	d, err = svc.LikeDevotional(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Likes)

	require.NoError(t, svc.DeleteDevotional(ctx, d.ID))
	_, err = svc.LikeDevotional(ctx, d.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestProductLifecycle(t *testing.T) {
	t.Parallel()

	svc, _ := newTestMutations()
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, model.CreateProductInput{
		Name:        "Study Bible",
		Price:       39.99,
		Category:    "books",
		Description: "Large-print study Bible with commentary.",
		Stock:       12,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)

	stock := 11
	p, err = svc.UpdateProduct(ctx, p.ID, model.ProductPatch{Stock: &stock})
	require.NoError(t, err)
	assert.Equal(t, 11, p.Stock)

	require.NoError(t, svc.DeleteProduct(ctx, p.ID))
	err = svc.DeleteProduct(ctx, p.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
