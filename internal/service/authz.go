package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/johnamet/faithvibe/internal/auth"
	"github.com/johnamet/faithvibe/internal/model"
	"github.com/johnamet/faithvibe/internal/store"
)

// Gate answers authorization questions for the handler layer. Role
// records are created lazily: the first resolution for an unknown user
// persists a non-admin default, so role reads after that point are
// always backed by a document.
type Gate struct {
	store store.Store
	log   *slog.Logger
}

// NewGate creates a Gate backed by st.
func NewGate(st store.Store, log *slog.Logger) *Gate {
	return &Gate{store: st, log: log}
}

// ResolveRole returns the user's role record, creating the non-admin
// default inside a transaction if the user has none yet. Two concurrent
// first resolutions converge on a single record.
func (g *Gate) ResolveRole(ctx context.Context, uid string) (*model.UserRole, error) {
	if uid == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrValidation)
	}
	var role *model.UserRole
	err := runTx(ctx, g.store, func(tx store.Tx) error {
		r, err := tx.Role(ctx, uid)
		if err == nil {
			role = r
			return nil
		}
		if !errors.Is(err, store.ErrNotExist) {
			return err
		}
		role = &model.UserRole{UserID: uid, IsAdmin: false}
		return tx.PutRole(ctx, role)
	})
	if err != nil {
		return nil, translate(err)
	}
	return role, nil
}

// RequireAuthenticated fails unless the caller presented a verified
// identity.
func (g *Gate) RequireAuthenticated(id *auth.Identity) error {
	if id == nil || id.UID == "" {
		return fmt.Errorf("%w: authentication required", ErrPermissionDenied)
	}
	return nil
}

// RequireAdmin fails unless the caller is authenticated and holds the
// admin role.
func (g *Gate) RequireAdmin(ctx context.Context, id *auth.Identity) error {
	if err := g.RequireAuthenticated(id); err != nil {
		return err
	}
	role, err := g.ResolveRole(ctx, id.UID)
	if err != nil {
		return err
	}
	if !role.IsAdmin {
		return fmt.Errorf("%w: admin role required", ErrPermissionDenied)
	}
	return nil
}

// SetUserRole grants or revokes the admin role on the target user. An
// admin revoking their own admin role is rejected outright, before the
// caller's role is even consulted, so the platform cannot lock itself
// out of administration.
func (g *Gate) SetUserRole(ctx context.Context, caller *auth.Identity, targetUID string, isAdmin bool) error {
	if targetUID == "" {
		return fmt.Errorf("%w: missing target user id", ErrValidation)
	}
	if caller != nil && caller.UID == targetUID && !isAdmin {
		return fmt.Errorf("%w: cannot revoke your own admin role", ErrPermissionDenied)
	}
	if err := g.RequireAdmin(ctx, caller); err != nil {
		return err
	}
	err := runTx(ctx, g.store, func(tx store.Tx) error {
		role, err := tx.Role(ctx, targetUID)
		if errors.Is(err, store.ErrNotExist) {
			role = &model.UserRole{UserID: targetUID}
		} else if err != nil {
			return err
		}
		role.IsAdmin = isAdmin
		return tx.PutRole(ctx, role)
	})
	if err != nil {
		return translate(err)
	}
	g.log.InfoContext(ctx, "user role updated",
		"target_uid", targetUID, "is_admin", isAdmin, "by", caller.UID)
	return nil
}

// SyncUser upserts the identity provider's view of the user on sign-in.
func (g *Gate) SyncUser(ctx context.Context, id *auth.Identity) (*model.UserData, error) {
	if err := g.RequireAuthenticated(id); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	var user *model.UserData
	err := runTx(ctx, g.store, func(tx store.Tx) error {
		u, err := tx.User(ctx, id.UID)
		if errors.Is(err, store.ErrNotExist) {
			u = &model.UserData{UID: id.UID, CreatedAt: now}
		} else if err != nil {
			return err
		}
		u.Email = id.Email
		u.DisplayName = id.Name
		u.UpdatedAt = now
		if err := tx.PutUser(ctx, u); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return user, nil
}
