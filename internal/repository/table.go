package repository

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/takumayoshiokadotcom/kyonomi/internal/db"
	"github.com/takumayoshiokadotcom/kyonomi/internal/store"
)

// Table provides data access for one collection model on top of gorm.
// It backs both the local mirror (SQLite) and the table resource server.
type Table[T any] struct {
	db     *gorm.DB
	schema *schema.Schema
}

// NewTable creates a table bound to the given DB connection.
func NewTable[T any](database *gorm.DB) (*Table[T], error) {
	stmt := &gorm.Statement{DB: database}
	if err := stmt.Parse(new(T)); err != nil {
		return nil, fmt.Errorf("failed to parse model schema: %w", err)
	}
	return &Table[T]{db: database, schema: stmt.Schema}, nil
}

// NewStore builds all four collection tables on one connection.
func NewStore(database *gorm.DB) (*store.Store, error) {
	users, err := NewTable[db.User](database)
	if err != nil {
		return nil, err
	}
	follows, err := NewTable[db.Follow](database)
	if err != nil {
		return nil, err
	}
	likes, err := NewTable[db.Like](database)
	if err != nil {
		return nil, err
	}
	notifications, err := NewTable[db.Notification](database)
	if err != nil {
		return nil, err
	}
	return &store.Store{
		Users:         users,
		Follows:       follows,
		Likes:         likes,
		Notifications: notifications,
	}, nil
}

// Name returns the collection (table) name.
func (t *Table[T]) Name() string { return t.schema.Table }

// List returns records matching f, oldest first (created_at, then id).
//
// Behavior:
//   - Where keys must be column names; string values are coerced to the column type.
//   - Search matches a substring of any search column (users: username, email, bio).
//   - Limit 0 returns every match.
//
// Example:
//
//	follows.List(ctx, store.Eq("following_id", "user1", "status", "pending"))
func (t *Table[T]) List(ctx context.Context, f store.Filter) ([]T, error) {
	q, err := t.query(ctx, f)
	if err != nil {
		return nil, err
	}
	q = q.Order("created_at ASC").Order("id ASC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var out []T
	if err := q.Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return out, nil
}

// Count returns how many records match f, ignoring Limit and Offset.
func (t *Table[T]) Count(ctx context.Context, f store.Filter) (int64, error) {
	q, err := t.query(ctx, f)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, translate(err)
	}
	return n, nil
}

func (t *Table[T]) Get(ctx context.Context, id string) (T, error) {
	var rec T
	err := t.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error
	return rec, translate(err)
}

// Create inserts rec, assigning a UUIDv7 id when it has none.
func (t *Table[T]) Create(ctx context.Context, rec T) (T, error) {
	store.AssignID(&rec)
	if err := t.db.WithContext(ctx).Create(&rec).Error; err != nil {
		var zero T
		return zero, translate(err)
	}
	return rec, nil
}

// Replace overwrites every column of an existing record except id and created_at.
func (t *Table[T]) Replace(ctx context.Context, id string, rec T) (T, error) {
	if _, err := t.Get(ctx, id); err != nil {
		return rec, err
	}
	store.SetID(&rec, id)
	err := t.db.WithContext(ctx).
		Model(&rec).
		Select("*").
		Omit("id", "created_at").
		Updates(rec).Error
	if err != nil {
		return rec, translate(err)
	}
	return t.Get(ctx, id)
}

// Update applies a partial update. Unknown columns and id changes are rejected.
func (t *Table[T]) Update(ctx context.Context, id string, fields store.Fields) (T, error) {
	current, err := t.Get(ctx, id)
	if err != nil {
		return current, err
	}

	values := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == "id" || k == "created_at" {
			continue
		}
		field, ok := t.schema.FieldsByDBName[k]
		if !ok {
			return current, fmt.Errorf("%w: unknown column %q", store.ErrInvalid, k)
		}
		cv, err := coerce(field, v)
		if err != nil {
			return current, err
		}
		values[k] = cv
	}
	if len(values) == 0 {
		return current, nil
	}

	err = t.db.WithContext(ctx).
		Model(new(T)).
		Where("id = ?", id).
		Updates(values).Error
	if err != nil {
		return current, translate(err)
	}
	return t.Get(ctx, id)
}

func (t *Table[T]) Delete(ctx context.Context, id string) error {
	res := t.db.WithContext(ctx).Where("id = ?", id).Delete(new(T))
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// HasColumn reports whether name is a column of the collection.
func (t *Table[T]) HasColumn(name string) bool {
	_, ok := t.schema.FieldsByDBName[name]
	return ok
}

func (t *Table[T]) query(ctx context.Context, f store.Filter) (*gorm.DB, error) {
	q := t.db.WithContext(ctx).Model(new(T))

	if len(f.Where) > 0 {
		where := make(map[string]any, len(f.Where))
		for k, v := range f.Where {
			field, ok := t.schema.FieldsByDBName[k]
			if !ok {
				return nil, fmt.Errorf("%w: unknown column %q", store.ErrInvalid, k)
			}
			cv, err := coerce(field, v)
			if err != nil {
				return nil, err
			}
			where[k] = cv
		}
		q = q.Where(where)
	}

	if s := strings.TrimSpace(f.Search); s != "" {
		cols := searchColumns[T]()
		if len(cols) == 0 {
			return nil, fmt.Errorf("%w: %s does not support search", store.ErrInvalid, t.schema.Table)
		}
		pattern := "%" + strings.ToLower(s) + "%"
		conds := make([]string, len(cols))
		args := make([]any, len(cols))
		for i, c := range cols {
			conds[i] = "LOWER(" + c + ") LIKE ?"
			args[i] = pattern
		}
		q = q.Where(strings.Join(conds, " OR "), args...)
	}

	return q, nil
}

func searchColumns[T any]() []string {
	var zero T
	if s, ok := any(zero).(interface{ SearchColumns() []string }); ok {
		return s.SearchColumns()
	}
	return nil
}

// coerce converts wire values (query-string text, JSON strings for times)
// into the Go type of the column.
func coerce(field *schema.Field, v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return v, nil
	}

	typ := field.IndirectFieldType
	if typ == reflect.TypeOf(time.Time{}) {
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be an RFC3339 timestamp", store.ErrInvalid, field.DBName)
		}
		return ts, nil
	}

	switch typ.Kind() {
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be a boolean", store.ErrInvalid, field.DBName)
		}
		return b, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be an integer", store.ErrInvalid, field.DBName)
		}
		return n, nil
	}
	return s, nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", store.ErrConflict, err)
	default:
		return err
	}
}
