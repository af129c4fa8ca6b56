package store

import (
	"context"
	"errors"
	"sync"
)

type undoKey struct{}

// undoLog collects the inverse of every write made inside a Compensate call.
type undoLog struct {
	mu    sync.Mutex
	undos []func(ctx context.Context) error
}

// Compensate gives a store without native transactions the all-or-nothing
// behaviour WithTx promises. Repositories register the inverse of each write
// with OnRollback; if fn fails the inverses run newest first and fn's error is
// returned joined with any undo failures. Nested calls join the outer log.
func Compensate(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(undoKey{}).(*undoLog); ok {
		return fn(ctx)
	}

	log := &undoLog{}
	err := fn(context.WithValue(ctx, undoKey{}, log))
	if err == nil {
		return nil
	}

	// inverses run detached from ctx cancellation
	undoCtx := context.WithoutCancel(ctx)
	errs := []error{err}
	for i := len(log.undos) - 1; i >= 0; i-- {
		if uerr := log.undos[i](undoCtx); uerr != nil {
			errs = append(errs, &UndoError{Err: uerr})
		}
	}
	if len(errs) == 1 {
		return err
	}
	return errors.Join(errs...)
}

// OnRollback registers undo with the Compensate call carried by ctx. It is a
// no-op when ctx carries none, as inside a native transaction.
func OnRollback(ctx context.Context, undo func(ctx context.Context) error) {
	log, ok := ctx.Value(undoKey{}).(*undoLog)
	if !ok {
		return
	}
	log.mu.Lock()
	log.undos = append(log.undos, undo)
	log.mu.Unlock()
}

// UndoError marks a compensating write that failed. The store may then hold a
// partial unit of work.
type UndoError struct {
	Err error
}

func (e *UndoError) Error() string { return "undo failed: " + e.Err.Error() }
func (e *UndoError) Unwrap() error { return e.Err }
