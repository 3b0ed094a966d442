package tables

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/takumayoshiokadotcom/kyonomi/internal/db"
	svcErr "github.com/takumayoshiokadotcom/kyonomi/internal/errors"
	"github.com/takumayoshiokadotcom/kyonomi/internal/repository"
	"github.com/takumayoshiokadotcom/kyonomi/internal/store"
)

const maxPageSize = 1000

var errUnknownCollection = errors.New("unknown collection")

// Handler serves the generic table resource API over the four collections.
type Handler struct {
	resources map[string]resource
	logger    *slog.Logger
}

// NewHandler wires one resource per collection model onto database.
func NewHandler(database *gorm.DB, logger *slog.Logger) (*Handler, error) {
	h := &Handler{resources: map[string]resource{}, logger: logger}
	if err := mount[db.User](h, database); err != nil {
		return nil, err
	}
	if err := mount[db.Follow](h, database); err != nil {
		return nil, err
	}
	if err := mount[db.Like](h, database); err != nil {
		return nil, err
	}
	if err := mount[db.Notification](h, database); err != nil {
		return nil, err
	}
	return h, nil
}

func mount[T any](h *Handler, database *gorm.DB) error {
	table, err := repository.NewTable[T](database)
	if err != nil {
		return err
	}
	h.resources[table.Name()] = collection[T]{table: table}
	return nil
}

// List handles GET /tables/:collection.
//
// Query parameters:
//   - search: free-text match (users only)
//   - page, limit: 1-based page of limit rows; no limit returns everything
//   - any column name: equality filter; unknown names are ignored
func (h *Handler) List(c *gin.Context) {
	res, ok := h.resource(c)
	if !ok {
		return
	}

	page, limit, err := pageParams(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	f := store.Filter{Search: c.Query("search"), Limit: limit}
	if limit > 0 {
		f.Offset = (page - 1) * limit
	}
	for k, vals := range c.Request.URL.Query() {
		if isReserved(k) || len(vals) == 0 || !res.hasColumn(k) {
			continue
		}
		if f.Where == nil {
			f.Where = map[string]any{}
		}
		f.Where[k] = vals[0]
	}

	rows, total, err := res.list(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	if limit == 0 {
		limit = int(total)
	}
	c.JSON(http.StatusOK, gin.H{"data": rows, "total": total, "page": page, "limit": limit})
}

// Get handles GET /tables/:collection/:id.
func (h *Handler) Get(c *gin.Context) {
	res, ok := h.resource(c)
	if !ok {
		return
	}
	rec, err := res.get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Create handles POST /tables/:collection. The server assigns an id if absent.
func (h *Handler) Create(c *gin.Context) {
	res, ok := h.resource(c)
	if !ok {
		return
	}
	rec, err := res.create(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// Replace handles PUT /tables/:collection/:id.
func (h *Handler) Replace(c *gin.Context) {
	res, ok := h.resource(c)
	if !ok {
		return
	}
	rec, err := res.replace(c, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Patch handles PATCH /tables/:collection/:id with a partial JSON object.
func (h *Handler) Patch(c *gin.Context) {
	res, ok := h.resource(c)
	if !ok {
		return
	}
	var fields store.Fields
	if err := c.ShouldBindJSON(&fields); err != nil {
		h.fail(c, badBody(err))
		return
	}
	rec, err := res.update(c.Request.Context(), c.Param("id"), fields)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Delete handles DELETE /tables/:collection/:id.
func (h *Handler) Delete(c *gin.Context) {
	res, ok := h.resource(c)
	if !ok {
		return
	}
	if err := res.delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) resource(c *gin.Context) (resource, bool) {
	name := c.Param("collection")
	res, ok := h.resources[name]
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("%v: %s", errUnknownCollection, name)})
		return nil, false
	}
	return res, true
}

func (h *Handler) fail(c *gin.Context, err error) {
	code := svcErr.HTTPStatus(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error("table request failed",
			"method", c.Request.Method, "path", c.Request.URL.Path, "err", err)
	}
	c.AbortWithStatusJSON(code, gin.H{"error": err.Error()})
}

func pageParams(c *gin.Context) (page, limit int, err error) {
	page, limit = 1, 0
	if s := c.Query("page"); s != "" {
		if page, err = strconv.Atoi(s); err != nil || page < 1 {
			return 0, 0, fmt.Errorf("%w: page must be a positive integer", store.ErrInvalid)
		}
	}
	if s := c.Query("limit"); s != "" {
		if limit, err = strconv.Atoi(s); err != nil || limit < 0 {
			return 0, 0, fmt.Errorf("%w: limit must be a non-negative integer", store.ErrInvalid)
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit, nil
}

func isReserved(k string) bool {
	switch k {
	case "search", "page", "limit":
		return true
	}
	return false
}

func badBody(err error) error {
	return fmt.Errorf("%w: %v", store.ErrInvalid, err)
}
