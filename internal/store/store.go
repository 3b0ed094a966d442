// Package store is the record store client: one CRUD contract over the four
// collections, served by the remote table server, the local mirror, or a
// fallback pair of both.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/takumayoshiokadotcom/kyonomi/internal/db"
)

var (
	// ErrNotFound means the collection has no record with the given id.
	ErrNotFound = errors.New("record not found")
	// ErrUnavailable means the backend could not be reached or answered with
	// an unexpected status.
	ErrUnavailable = errors.New("store unavailable")
	// ErrInvalid means the backend rejected the record or filter.
	ErrInvalid = errors.New("invalid record")
	// ErrConflict means a unique constraint was violated.
	ErrConflict = errors.New("record conflict")
)

// Fields is a partial update keyed by column name.
type Fields map[string]any

// Filter narrows a List call. Where holds column equality conditions; Search is
// a free-text match on the collection's search columns (users only).
// Limit 0 means no limit.
type Filter struct {
	Where  map[string]any
	Search string
	Limit  int
	Offset int
}

// Eq is shorthand for a Filter of equality conditions given as key/value pairs.
func Eq(kv ...any) Filter {
	f := Filter{Where: make(map[string]any, len(kv)/2)}
	for i := 0; i+1 < len(kv); i += 2 {
		f.Where[kv[i].(string)] = kv[i+1]
	}
	return f
}

// Table is the CRUD contract every backend implements for one collection.
type Table[T any] interface {
	List(ctx context.Context, f Filter) ([]T, error)
	Get(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, rec T) (T, error)
	Replace(ctx context.Context, id string, rec T) (T, error)
	Update(ctx context.Context, id string, fields Fields) (T, error)
	Delete(ctx context.Context, id string) error
}

// Record is implemented by pointers to the collection models.
type Record interface {
	RecordID() string
	SetRecordID(id string)
}

// Store bundles the four collections.
type Store struct {
	Users         Table[db.User]
	Follows       Table[db.Follow]
	Likes         Table[db.Like]
	Notifications Table[db.Notification]
}

// AssignID gives rec a fresh UUIDv7 unless it already carries an id.
func AssignID[T any](rec *T) {
	r, ok := any(rec).(Record)
	if !ok || r.RecordID() != "" {
		return
	}
	if id, err := uuid.NewV7(); err == nil {
		r.SetRecordID(id.String())
	} else {
		r.SetRecordID(uuid.NewString())
	}
}

// SetID overwrites the id of rec.
func SetID[T any](rec *T, id string) {
	if r, ok := any(rec).(Record); ok {
		r.SetRecordID(id)
	}
}

// CollectionName returns the table name a model is stored under.
func CollectionName[T any]() string {
	var zero T
	if n, ok := any(zero).(interface{ TableName() string }); ok {
		return n.TableName()
	}
	return ""
}

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
