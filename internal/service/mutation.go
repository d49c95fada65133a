package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/johnamet/faithvibe/internal/model"
	"github.com/johnamet/faithvibe/internal/store"
)

// totalTolerance absorbs float rounding when comparing a submitted order
// total against the recomputed sum of line totals.
const totalTolerance = 0.005

// MutationService owns every state-changing operation. All writes go
// through store transactions so the registration counter, the prayer
// counter and the like counter can never drift from their audit records.
type MutationService struct {
	store    store.Store
	validate *validator.Validate
	log      *slog.Logger
}

// NewMutationService creates a MutationService backed by st.
func NewMutationService(st store.Store, log *slog.Logger) *MutationService {
	return &MutationService{
		store:    st,
		validate: validator.New(),
		log:      log,
	}
}

// ---- events ----

// CreateEvent validates the input and persists a new event with zero
// registrations.
func (s *MutationService) CreateEvent(ctx context.Context, in model.CreateEventInput) (*model.Event, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, validationErr(err)
	}
	now := time.Now().UTC()
	e := &model.Event{
		ID:               uuid.NewString(),
		Title:            in.Title,
		Date:             in.Date,
		Time:             in.Time,
		Location:         in.Location,
		Category:         in.Category,
		Description:      in.Description,
		Image:            in.Image,
		Capacity:         in.Capacity,
		Registrations:    0,
		RegistrationOpen: in.RegistrationOpen,
		Featured:         in.Featured,
		Status:           in.Status,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if e.Status == "" {
		e.Status = model.EventUpcoming
	}
	err := runTx(ctx, s.store, func(tx store.Tx) error {
		return tx.InsertEvent(ctx, e)
	})
	if err != nil {
		return nil, translate(err)
	}
	s.log.InfoContext(ctx, "event created", "event_id", e.ID, "capacity", e.Capacity)
	return e, nil
}

// UpdateEvent applies a partial update to an event. Lowering capacity
// below the current registration count is rejected so the seat invariant
// keeps holding.
func (s *MutationService) UpdateEvent(ctx context.Context, id string, patch model.EventPatch) (*model.Event, error) {
	if err := s.validate.Struct(patch); err != nil {
		return nil, validationErr(err)
	}
	var updated *model.Event
	err := runTx(ctx, s.store, func(tx store.Tx) error {
		e, err := tx.Event(ctx, id)
		if err != nil {
			return err
		}
		patch.Apply(e)
		if e.Capacity < e.Registrations {
			return fmt.Errorf("%w: capacity %d is below current registrations %d",
				ErrValidation, e.Capacity, e.Registrations)
		}
		e.UpdatedAt = time.Now().UTC()
		if err := tx.UpdateEvent(ctx, e); err != nil {
			return err
		}
		updated = e
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return updated, nil
}

// DeleteEvent removes an event together with every registration that
// references it, in one transaction.
func (s *MutationService) DeleteEvent(ctx context.Context, id string) error {
	var removed int64
	err := runTx(ctx, s.store, func(tx store.Tx) error {
		if _, err := tx.Event(ctx, id); err != nil {
			return err
		}
		var err error
		removed, err = tx.DeleteRegistrationsForEvent(ctx, id)
		if err != nil {
			return err
		}
		return tx.DeleteEvent(ctx, id)
	})
	if err != nil {
		return translate(err)
	}
	s.log.InfoContext(ctx, "event deleted", "event_id", id, "registrations_removed", removed)
	return nil
}

// RegisterForEvent claims one seat on an event for the user. The locked
// read, the capacity check, the counter increment and the registration
// record all live in one transaction, so the counter can never pass the
// capacity no matter how many callers race.
func (s *MutationService) RegisterForEvent(ctx context.Context, eventID, userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: user id is required", ErrValidation)
	}
	err := runTx(ctx, s.store, func(tx store.Tx) error {
		e, err := tx.Event(ctx, eventID)
		if err != nil {
			return err
		}
		taken, err := tx.HasRegistration(ctx, eventID, userID)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: user %s is already registered", ErrConflict, userID)
		}
		if e.IsFull() {
			return fmt.Errorf("%w: %d/%d seats taken", ErrCapacityExceeded, e.Registrations, e.Capacity)
		}
		e.Registrations++
		e.UpdatedAt = time.Now().UTC()
		if err := tx.UpdateEvent(ctx, e); err != nil {
			return err
		}
		return tx.InsertRegistration(ctx, &model.EventRegistration{
			ID:           uuid.NewString(),
			EventID:      eventID,
			UserID:       userID,
			RegisteredAt: time.Now().UTC(),
		})
	})
	if err != nil {
		return translate(err)
	}
	s.log.InfoContext(ctx, "event registration", "event_id", eventID, "user_id", userID)
	return nil
}

// ---- shop ----

// CreateProduct validates the input and persists a new product.
func (s *MutationService) CreateProduct(ctx context.Context, in model.CreateProductInput) (*model.Product, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, validationErr(err)
	}
	now := time.Now().UTC()
	p := &model.Product{
		ID:            uuid.NewString(),
		Name:          in.Name,
		Price:         in.Price,
		OriginalPrice: in.OriginalPrice,
		Category:      in.Category,
		Description:   in.Description,
		Image:         in.Image,
		Stock:         in.Stock,
		Sale:          in.Sale,
		Featured:      in.Featured,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err := runTx(ctx, s.store, func(tx store.Tx) error {
		return tx.InsertProduct(ctx, p)
	})
	if err != nil {
		return nil, translate(err)
	}
	s.log.InfoContext(ctx, "product created", "product_id", p.ID)
	return p, nil
}

// UpdateProduct applies a partial update to a product.
func (s *MutationService) UpdateProduct(ctx context.Context, id string, patch model.ProductPatch) (*model.Product, error) {
	if err := s.validate.Struct(patch); err != nil {
		return nil, validationErr(err)
	}
	var updated *model.Product
	err := runTx(ctx, s.store, func(tx store.Tx) error {
		p, err := tx.Product(ctx, id)
		if err != nil {
			return err
		}
		patch.Apply(p)
		p.UpdatedAt = time.Now().UTC()
		if err := tx.UpdateProduct(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return updated, nil
}

// DeleteProduct removes a product.
func (s *MutationService) DeleteProduct(ctx context.Context, id string) error {
	err := runTx(ctx, s.store, func(tx store.Tx) error {
		if _, err := tx.Product(ctx, id); err != nil {
			return err
		}
		return tx.DeleteProduct(ctx, id)
	})
	if err != nil {
		return translate(err)
	}
	s.log.InfoContext(ctx, "product deleted", "product_id", id)
	return nil
}

// CreateOrder places an order for the user. The total is recomputed from
// the line items on the server; a submitted total that disagrees is a
// validation failure, never silently corrected.
func (s *MutationService) CreateOrder(ctx context.Context, userID string, in model.CreateOrderInput) (*model.Order, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, validationErr(err)
	}
	var sum float64
	for _, item := range in.Items {
		if item.Quantity <= 0 || item.Price < 0 {
			return nil, fmt.Errorf("%w: invalid line item for product %s", ErrValidation, item.ProductID)
		}
		sum += item.Price * float64(item.Quantity)
	}
	if math.Abs(sum-in.Total) > totalTolerance {
		return nil, fmt.Errorf("%w: submitted total %.2f does not match item total %.2f",
			ErrValidation, in.Total, sum)
	}
	now := time.Now().UTC()
	o := &model.Order{
		ID:              uuid.NewString(),
		UserID:          userID,
		UserEmail:       in.UserEmail,
		UserName:        in.UserName,
		Items:           in.Items,
		Total:           sum,
		Status:          model.OrderPending,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
		PaymentID:       in.PaymentID,
		Notes:           in.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	err := runTx(ctx, s.store, func(tx store.Tx) error {
		return tx.InsertOrder(ctx, o)
	})
	if err != nil {
		return nil, translate(err)
	}
	s.log.InfoContext(ctx, "order created", "order_id", o.ID, "user_id", userID, "total", o.Total)
	return o, nil
}

var orderStatuses = map[model.OrderStatus]bool{
	model.OrderPending:    true,
	model.OrderProcessing: true,
	model.OrderShipped:    true,
	model.OrderDelivered:  true,
	model.OrderCancelled:  true,
}

// UpdateOrderStatus moves an order to a new fulfilment state.
func (s *MutationService) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) (*model.Order, error) {
	if !orderStatuses[status] {
		return nil, fmt.Errorf("%w: unknown order status %q", ErrValidation, status)
	}
	var updated *model.Order
	err := runTx(ctx, s.store, func(tx store.Tx) error {
		o, err := tx.Order(ctx, id)
		if err != nil {
			return err
		}
		o.Status = status
		o.UpdatedAt = time.Now().UTC()
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	s.log.InfoContext(ctx, "order status updated", "order_id", id, "status", string(status))
	return updated, nil
}

// ---- prayer requests ----

// CreatePrayerRequest submits a prayer request. userID may be empty for
// anonymous submissions.
func (s *MutationService) CreatePrayerRequest(ctx context.Context, userID string, in model.CreatePrayerRequestInput) (*model.PrayerRequest, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, validationErr(err)
	}
	r := &model.PrayerRequest{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Request:     in.Request,
		UserID:      userID,
		IsAnonymous: in.IsAnonymous,
		PrayerCount: 0,
		Status:      model.PrayerActive,
		Date:        time.Now().UTC(),
	}
	if r.IsAnonymous {
		r.Name = "Anonymous"
	}
	err := runTx(ctx, s.store, func(tx store.Tx) error {
		return tx.InsertPrayerRequest(ctx, r)
	})
	if err != nil {
		return nil, translate(err)
	}
	s.log.InfoContext(ctx, "prayer request created", "request_id", r.ID, "anonymous", r.IsAnonymous)
	return r, nil
}

// UpdatePrayerRequest applies a partial update to a prayer request.
func (s *MutationService) UpdatePrayerRequest(ctx context.Context, id string, patch model.PrayerRequestPatch) (*model.PrayerRequest, error) {
	if err := s.validate.Struct(patch); err != nil {
		return nil, validationErr(err)
	}
	var updated *model.PrayerRequest
	err := runTx(ctx, s.store, func(tx store.Tx) error {
		r, err := tx.PrayerRequest(ctx, id)
		if err != nil {
			return err
		}
		patch.Apply(r)
		if err := tx.UpdatePrayerRequest(ctx, r); err != nil {
			return err
		}
		updated = r
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return updated, nil
}

// DeletePrayerRequest removes a prayer request.
func (s *MutationService) DeletePrayerRequest(ctx context.Context, id string) error {
	err := runTx(ctx, s.store, func(tx store.Tx) error {
		if _, err := tx.PrayerRequest(ctx, id); err != nil {
			return err
		}
		return tx.DeletePrayerRequest(ctx, id)
	})
	if err != nil {
		return translate(err)
	}
	s.log.InfoContext(ctx, "prayer request deleted", "request_id", id)
	return nil
}

// PrayForRequest increments the prayer counter once per user. A second
// call by the same user is a conflict and leaves the counter untouched.
func (s *MutationService) PrayForRequest(ctx context.Context, requestID, userID string) (*model.PrayerRequest, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	var updated *model.PrayerRequest
	err := runTx(ctx, s.store, func(tx store.Tx) error {
		r, err := tx.PrayerRequest(ctx, requestID)
		if err != nil {
			return err
		}
		prayed, err := tx.HasPrayerAction(ctx, requestID, userID)
		if err != nil {
			return err
		}
		if prayed {
			return fmt.Errorf("%w: user %s already prayed for this request", ErrConflict, userID)
		}
		r.PrayerCount++
		if err := tx.UpdatePrayerRequest(ctx, r); err != nil {
			return err
		}
		if err := tx.InsertPrayerAction(ctx, requestID, userID); err != nil {
			return err
		}
		updated = r
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return updated, nil
}

// ---- devotionals ----

// CreateDevotional persists a new devotional attributed to author.
func (s *MutationService) CreateDevotional(ctx context.Context, author model.Author, in model.CreateDevotionalInput) (*model.Devotional, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, validationErr(err)
	}
	d := &model.Devotional{
		ID:        uuid.NewString(),
		Title:     in.Title,
		Verse:     in.Verse,
		VerseText: in.VerseText,
		Content:   in.Content,
		Author:    author,
		Category:  in.Category,
		Status:    in.Status,
		Date:      time.Now().UTC(),
	}
	if d.Status == "" {
		d.Status = model.DevotionalDraft
	}
	err := runTx(ctx, s.store, func(tx store.Tx) error {
		return tx.InsertDevotional(ctx, d)
	})
	if err != nil {
		return nil, translate(err)
	}
	s.log.InfoContext(ctx, "devotional created", "devotional_id", d.ID, "status", string(d.Status))
	return d, nil
}

// UpdateDevotional applies a partial update to a devotional.
func (s *MutationService) UpdateDevotional(ctx context.Context, id string, patch model.DevotionalPatch) (*model.Devotional, error) {
	if err := s.validate.Struct(patch); err != nil {
		return nil, validationErr(err)
	}
	var updated *model.Devotional
	err := runTx(ctx, s.store, func(tx store.Tx) error {
		d, err := tx.Devotional(ctx, id)
		if err != nil {
			return err
		}
		patch.Apply(d)
		if err := tx.UpdateDevotional(ctx, d); err != nil {
			return err
		}
		updated = d
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return updated, nil
}

// DeleteDevotional removes a devotional.
func (s *MutationService) DeleteDevotional(ctx context.Context, id string) error {
	err := runTx(ctx, s.store, func(tx store.Tx) error {
		if _, err := tx.Devotional(ctx, id); err != nil {
			return err
		}
		return tx.DeleteDevotional(ctx, id)
	})
	if err != nil {
		return translate(err)
	}
	s.log.InfoContext(ctx, "devotional deleted", "devotional_id", id)
	return nil
}

// LikeDevotional increments the like counter transactionally.
func (s *MutationService) LikeDevotional(ctx context.Context, id string) (*model.Devotional, error) {
	var updated *model.Devotional
	err := runTx(ctx, s.store, func(tx store.Tx) error {
		d, err := tx.Devotional(ctx, id)
		if err != nil {
			return err
		}
		d.Likes++
		if err := tx.UpdateDevotional(ctx, d); err != nil {
			return err
		}
		updated = d
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return updated, nil
}
