// Package remote is the HTTP client for the /tables resource server.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/takumayoshiokadotcom/kyonomi/internal/db"
	"github.com/takumayoshiokadotcom/kyonomi/internal/store"
)

// Client talks to one table server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the server at baseURL (scheme://host[:port]).
// A zero timeout leaves requests bounded only by the caller's context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// NewStore returns the four collections served by c.
func NewStore(c *Client) *store.Store {
	return &store.Store{
		Users:         NewTable[db.User](c),
		Follows:       NewTable[db.Follow](c),
		Likes:         NewTable[db.Like](c),
		Notifications: NewTable[db.Notification](c),
	}
}

// ListResponse is the envelope returned by GET /tables/{collection}.
type ListResponse[T any] struct {
	Data  []T   `json:"data"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// Table is the remote view of one collection.
type Table[T any] struct {
	client     *Client
	collection string
}

func NewTable[T any](c *Client) *Table[T] {
	return &Table[T]{client: c, collection: store.CollectionName[T]()}
}

func (t *Table[T]) List(ctx context.Context, f store.Filter) ([]T, error) {
	q := url.Values{}
	for k, v := range f.Where {
		q.Set(k, fmt.Sprint(v))
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
		q.Set("page", strconv.Itoa(f.Offset/f.Limit+1))
	}

	var resp ListResponse[T]
	if err := t.client.do(ctx, http.MethodGet, t.path("", q), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (t *Table[T]) Get(ctx context.Context, id string) (T, error) {
	var rec T
	err := t.client.do(ctx, http.MethodGet, t.path(id, nil), nil, &rec)
	return rec, err
}

func (t *Table[T]) Create(ctx context.Context, rec T) (T, error) {
	var out T
	err := t.client.do(ctx, http.MethodPost, t.path("", nil), rec, &out)
	return out, err
}

func (t *Table[T]) Replace(ctx context.Context, id string, rec T) (T, error) {
	var out T
	err := t.client.do(ctx, http.MethodPut, t.path(id, nil), rec, &out)
	return out, err
}

func (t *Table[T]) Update(ctx context.Context, id string, fields store.Fields) (T, error) {
	var out T
	err := t.client.do(ctx, http.MethodPatch, t.path(id, nil), fields, &out)
	return out, err
}

func (t *Table[T]) Delete(ctx context.Context, id string) error {
	return t.client.do(ctx, http.MethodDelete, t.path(id, nil), nil, nil)
}

func (t *Table[T]) path(id string, q url.Values) string {
	p := "/tables/" + t.collection
	if id != "" {
		p += "/" + url.PathEscape(id)
	}
	if len(q) > 0 {
		p += "?" + q.Encode()
	}
	return p
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: %v", store.ErrInvalid, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", store.ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %v", store.ErrUnavailable, method, path, err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return store.ErrNotFound
	case resp.StatusCode == http.StatusConflict:
		return store.ErrConflict
	case resp.StatusCode == http.StatusBadRequest:
		return store.ErrInvalid
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", store.ErrUnavailable, resp.StatusCode, bytes.TrimSpace(msg))
	}
}
