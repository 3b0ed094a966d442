package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Fallback serves a collection from the remote table server and answers from
// the local mirror whenever the remote call fails.
//
// The two backends are never reconciled: a write that lands remotely is not
// copied to the mirror and a write taken by the mirror during an outage is
// not replayed upstream. Records created offline are therefore only visible
// while the mirror answers, and Get consults the mirror on a remote miss so
// they remain reachable by id.
type Fallback[T any] struct {
	remote Table[T]
	local  Table[T]
	name   string
	logger *slog.Logger
}

// NewFallback pairs a remote and a local table.
func NewFallback[T any](remote, local Table[T], logger *slog.Logger) *Fallback[T] {
	if logger == nil {
		logger = slog.Default()
	}
	name := CollectionName[T]()
	return &Fallback[T]{
		remote: remote,
		local:  local,
		name:   name,
		logger: logger.With("collection", name),
	}
}

// OperationFailedError is returned when both backends failed.
type OperationFailedError struct {
	Op     string
	Remote error
	Local  error
}

func (e *OperationFailedError) Error() string {
	return fmt.Sprintf("%s failed: remote: %v; local: %v", e.Op, e.Remote, e.Local)
}

// Unwrap leaves out a remote not-found: a miss upstream followed by a broken
// mirror is a failure, not an absent record.
func (e *OperationFailedError) Unwrap() []error {
	errs := []error{e.Local}
	if e.Remote != nil && !errors.Is(e.Remote, ErrNotFound) {
		errs = append(errs, e.Remote)
	}
	return errs
}

func (f *Fallback[T]) List(ctx context.Context, flt Filter) ([]T, error) {
	out, err := f.remote.List(ctx, flt)
	if err == nil {
		return out, nil
	}
	if !f.shouldFallBack(ctx, "list", err) {
		return nil, err
	}
	out, lerr := f.local.List(ctx, flt)
	return out, f.resolve("list", err, lerr)
}

func (f *Fallback[T]) Get(ctx context.Context, id string) (T, error) {
	out, err := f.remote.Get(ctx, id)
	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		return out, ctx.Err()
	}
	if !errors.Is(err, ErrNotFound) {
		f.logger.Warn("remote store failed, using local mirror", "op", "get", "id", id, "err", err)
	}
	out, lerr := f.local.Get(ctx, id)
	if lerr != nil && errors.Is(err, ErrNotFound) && errors.Is(lerr, ErrNotFound) {
		return out, ErrNotFound
	}
	return out, f.resolve("get", err, lerr)
}

func (f *Fallback[T]) Create(ctx context.Context, rec T) (T, error) {
	// both paths must agree on the id
	AssignID(&rec)
	out, err := f.remote.Create(ctx, rec)
	if err == nil {
		return out, nil
	}
	if !f.shouldFallBack(ctx, "create", err) {
		return out, err
	}
	out, lerr := f.local.Create(ctx, rec)
	return out, f.resolve("create", err, lerr)
}

func (f *Fallback[T]) Replace(ctx context.Context, id string, rec T) (T, error) {
	out, err := f.remote.Replace(ctx, id, rec)
	if err == nil {
		return out, nil
	}
	if !f.shouldFallBack(ctx, "replace", err) {
		return out, err
	}
	out, lerr := f.local.Replace(ctx, id, rec)
	return out, f.resolve("replace", err, lerr)
}

func (f *Fallback[T]) Update(ctx context.Context, id string, fields Fields) (T, error) {
	out, err := f.remote.Update(ctx, id, fields)
	if err == nil {
		return out, nil
	}
	if !f.shouldFallBack(ctx, "update", err) {
		return out, err
	}
	out, lerr := f.local.Update(ctx, id, fields)
	return out, f.resolve("update", err, lerr)
}

func (f *Fallback[T]) Delete(ctx context.Context, id string) error {
	err := f.remote.Delete(ctx, id)
	if err == nil {
		return nil
	}
	if !f.shouldFallBack(ctx, "delete", err) {
		return err
	}
	return f.resolve("delete", err, f.local.Delete(ctx, id))
}

// shouldFallBack reports whether the local mirror should take over after a
// remote failure. A canceled or expired caller context never falls back, and
// neither does an answer from a reachable remote (not found, conflict, invalid).
func (f *Fallback[T]) shouldFallBack(ctx context.Context, op string, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) || errors.Is(err, ErrInvalid) {
		return false
	}
	f.logger.Warn("remote store failed, using local mirror", "op", op, "err", err)
	return true
}

// resolve turns the local outcome into the caller-visible error. A local
// not-found is passed through so callers can skip missing records.
func (f *Fallback[T]) resolve(op string, remoteErr, localErr error) error {
	switch {
	case localErr == nil:
		return nil
	case errors.Is(localErr, ErrNotFound):
		return ErrNotFound
	case errors.Is(localErr, ErrConflict), errors.Is(localErr, ErrInvalid):
		return localErr
	default:
		f.logger.Error("local mirror failed", "op", op, "err", localErr)
		return &OperationFailedError{Op: f.name + " " + op, Remote: remoteErr, Local: localErr}
	}
}
