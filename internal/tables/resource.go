package tables

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/takumayoshiokadotcom/kyonomi/internal/repository"
	"github.com/takumayoshiokadotcom/kyonomi/internal/store"
)

// resource erases the model type so one set of handlers serves every collection.
type resource interface {
	list(ctx context.Context, f store.Filter) (any, int64, error)
	get(ctx context.Context, id string) (any, error)
	create(c *gin.Context) (any, error)
	replace(c *gin.Context, id string) (any, error)
	update(ctx context.Context, id string, fields store.Fields) (any, error)
	delete(ctx context.Context, id string) error
	hasColumn(name string) bool
}

type collection[T any] struct {
	table *repository.Table[T]
}

func (r collection[T]) list(ctx context.Context, f store.Filter) (any, int64, error) {
	total, err := r.table.Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.table.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	if rows == nil {
		rows = []T{}
	}
	return rows, total, nil
}

func (r collection[T]) get(ctx context.Context, id string) (any, error) {
	return r.table.Get(ctx, id)
}

func (r collection[T]) create(c *gin.Context) (any, error) {
	var rec T
	if err := c.ShouldBindJSON(&rec); err != nil {
		return nil, badBody(err)
	}
	return r.table.Create(c.Request.Context(), rec)
}

func (r collection[T]) replace(c *gin.Context, id string) (any, error) {
	var rec T
	if err := c.ShouldBindJSON(&rec); err != nil {
		return nil, badBody(err)
	}
	return r.table.Replace(c.Request.Context(), id, rec)
}

func (r collection[T]) update(ctx context.Context, id string, fields store.Fields) (any, error) {
	return r.table.Update(ctx, id, fields)
}

func (r collection[T]) delete(ctx context.Context, id string) error {
	return r.table.Delete(ctx, id)
}

func (r collection[T]) hasColumn(name string) bool {
	return r.table.HasColumn(name)
}
