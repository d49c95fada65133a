package service

import (
	"context"
	"errors"

	"github.com/johnamet/faithvibe/internal/store"
)

// txAttempts bounds automatic re-execution of a transaction body that
// lost a race with a concurrent writer.
const txAttempts = 3

// runTx executes fn inside a transaction and commits it. On
// store.ErrTxConflict the body is re-executed from scratch against fresh
// reads, up to txAttempts times. Bodies must therefore be free of side
// effects outside the transaction.
func runTx(ctx context.Context, st store.Store, fn func(tx store.Tx) error) error {
	var err error
	for attempt := 0; attempt < txAttempts; attempt++ {
		err = runTxOnce(ctx, st, fn)
		if !errors.Is(err, store.ErrTxConflict) {
			return err
		}
	}
	return err
}

func runTxOnce(ctx context.Context, st store.Store, fn func(tx store.Tx) error) error {
	tx, err := st.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}
